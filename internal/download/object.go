package download

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/tatxtion/hstay-ai/constants"
	"github.com/tatxtion/hstay-ai/internal/common"
)

// ObjectStore fetches documents from an S3-compatible bucket.
type ObjectStore struct {
	client      *minio.Client
	maxBytes    int64
	allowedExts []string
	logger      *slog.Logger
}

func NewObjectStore(cfg common.ObjectStoreConfig, dl common.DownloadConfig, allowedExts []string, logger *slog.Logger) (*ObjectStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, common.NewAppError(common.CodeConfigError, "object store endpoint is required", nil)
	}
	access := strings.TrimSpace(cfg.AccessKey)
	secret := strings.TrimSpace(cfg.SecretKey)
	if access == "" || secret == "" {
		return nil, common.NewAppError(common.CodeConfigError, "object store access key and secret key are required", nil)
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(access, secret, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, common.NewAppError(common.CodeObjectStoreError, "init object store client", err)
	}

	maxBytes := dl.MaxBytes
	if maxBytes <= 0 {
		maxBytes = 20 << 20
	}
	return &ObjectStore{
		client:      client,
		maxBytes:    maxBytes,
		allowedExts: allowedExts,
		logger:      logger,
	}, nil
}

// Download stats the object first so oversized blobs are rejected before any
// bytes move, then fetches it to a temp file. The caller owns the file;
// cleanup removes it.
func (s *ObjectStore) Download(ctx context.Context, bucket, objectKey string) (string, func(), error) {
	bucket = strings.TrimSpace(bucket)
	objectKey = strings.TrimSpace(objectKey)
	if bucket == "" {
		return "", nil, common.NewAppError(common.CodeObjectStoreError, "bucket is required", nil)
	}
	if objectKey == "" {
		return "", nil, common.NewAppError(common.CodeObjectStoreError, "object key is required", nil)
	}

	suffix, err := s.resolveSuffix(objectKey)
	if err != nil {
		return "", nil, err
	}

	stat, err := s.client.StatObject(ctx, bucket, objectKey, minio.StatObjectOptions{})
	if err != nil {
		errResp := minio.ToErrorResponse(err)
		if errResp.Code == "NoSuchKey" || errResp.Code == "NoSuchBucket" {
			return "", nil, common.NewAppError(common.CodeObjectStoreError,
				fmt.Sprintf("object %s/%s not found", bucket, objectKey), err)
		}
		return "", nil, common.NewAppError(common.CodeObjectStoreError, "unable to read object metadata", err)
	}
	if stat.Size > s.maxBytes {
		return "", nil, common.NewAppError(common.CodeObjectStoreError,
			fmt.Sprintf("object exceeds limit of %d bytes", s.maxBytes), nil)
	}

	tmp, err := os.CreateTemp("", "hstay-obj-*"+suffix)
	if err != nil {
		return "", nil, common.NewAppError(common.CodeObjectStoreError, "unable to create temp file", err)
	}
	tmpPath := tmp.Name()
	_ = tmp.Close()
	cleanup := func() { _ = os.Remove(tmpPath) }

	if err := s.client.FGetObject(ctx, bucket, objectKey, tmpPath, minio.GetObjectOptions{}); err != nil {
		cleanup()
		return "", nil, common.NewAppError(common.CodeObjectStoreError,
			fmt.Sprintf("failed to download %s/%s", bucket, objectKey), err)
	}

	s.logger.Info("download.object.ok", "bucket", bucket, "key", objectKey, "bytes", stat.Size, "path", tmpPath)
	return tmpPath, cleanup, nil
}

// resolveSuffix requires a recognized extension on the object key; object
// sources carry no content-type fallback worth trusting.
func (s *ObjectStore) resolveSuffix(objectKey string) (string, error) {
	ext := constants.NormalizeExt(path.Ext(objectKey))
	for _, allowed := range s.allowedExts {
		if ext == allowed {
			return "." + ext, nil
		}
	}
	return "", common.NewAppError(common.CodeInvalidFileExtension,
		fmt.Sprintf("unsupported extension %q, allowed: %s", ext, strings.Join(s.allowedExts, ", ")), nil)
}
