// Package download fetches remote documents to local temp files so the OCR
// stage can treat every source the same way.
package download

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"github.com/tatxtion/hstay-ai/constants"
	"github.com/tatxtion/hstay-ai/internal/common"
)

const downloadChunkSize = 64 << 10

// Downloader streams an http(s) document into a temp file, capped at MaxBytes.
type Downloader struct {
	client      *http.Client
	maxBytes    int64
	allowedExts []string
	logger      *slog.Logger
}

func NewDownloader(cfg common.DownloadConfig, allowedExts []string, logger *slog.Logger) *Downloader {
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	maxBytes := cfg.MaxBytes
	if maxBytes <= 0 {
		maxBytes = 20 << 20
	}
	return &Downloader{
		client:      &http.Client{Timeout: timeout},
		maxBytes:    maxBytes,
		allowedExts: allowedExts,
		logger:      logger,
	}
}

// Download validates the URL, streams the body to a temp file, and returns
// its path. The caller owns the file; cleanup removes it.
func (d *Downloader) Download(ctx context.Context, rawURL string) (string, func(), error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", nil, common.NewAppError(common.CodeInvalidDocumentURL, "document URL is not parseable", err)
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", nil, common.NewAppError(common.CodeInvalidDocumentURL, "document URL must use http or https", nil)
	}
	if u.Hostname() == "" {
		return "", nil, common.NewAppError(common.CodeInvalidDocumentURL, "document URL must include a hostname", nil)
	}

	suffix := d.resolveSuffix(u.Path)
	tmp, err := os.CreateTemp("", "hstay-dl-*"+suffix)
	if err != nil {
		return "", nil, common.NewAppError(common.CodeDownloadError, "unable to create temp file", err)
	}
	tmpPath := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpPath) }

	written, err := d.stream(ctx, rawURL, tmp)
	closeErr := tmp.Close()
	if err == nil && closeErr != nil {
		err = common.NewAppError(common.CodeDownloadError, "unable to write downloaded document", closeErr)
	}
	if err != nil {
		cleanup()
		return "", nil, err
	}

	d.logger.Info("download.http.ok", "url", rawURL, "bytes", written, "path", tmpPath)
	return tmpPath, cleanup, nil
}

func (d *Downloader) stream(ctx context.Context, rawURL string, out io.Writer) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, common.NewAppError(common.CodeDownloadError, "unable to build request", err)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return 0, common.NewAppError(common.CodeDownloadError, "document download failed", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			d.logger.Warn("download.http.body_close_error", "url", rawURL, "error", err)
		}
	}()

	if resp.StatusCode/100 != 2 {
		return 0, common.NewAppError(common.CodeDownloadError,
			fmt.Sprintf("document download failed with status %d", resp.StatusCode), nil)
	}

	var total int64
	buf := make([]byte, downloadChunkSize)
	for {
		n, rerr := resp.Body.Read(buf)
		if n > 0 {
			total += int64(n)
			if total > d.maxBytes {
				return total, common.NewAppError(common.CodeDownloadError,
					fmt.Sprintf("downloaded file exceeds limit of %d bytes", d.maxBytes), nil)
			}
			if _, werr := out.Write(buf[:n]); werr != nil {
				return total, common.NewAppError(common.CodeDownloadError, "unable to write downloaded document", werr)
			}
		}
		if rerr == io.EOF {
			return total, nil
		}
		if rerr != nil {
			return total, common.NewAppError(common.CodeDownloadError, "document download failed", rerr)
		}
	}
}

// resolveSuffix keeps a recognized extension so the OCR stage can pick a
// strategy; anything else defaults to .png.
func (d *Downloader) resolveSuffix(urlPath string) string {
	ext := constants.NormalizeExt(path.Ext(urlPath))
	for _, allowed := range d.allowedExts {
		if ext == allowed {
			return "." + ext
		}
	}
	return ".png"
}
