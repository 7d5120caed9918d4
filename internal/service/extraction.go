// Package service runs the end-to-end extraction pipeline: resolve the
// source document, OCR it, detect and reconcile the document type, extract
// spans, and map them onto the typed field schema.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/tatxtion/hstay-ai/constants"
	"github.com/tatxtion/hstay-ai/internal/common"
	"github.com/tatxtion/hstay-ai/internal/docext"
	"github.com/tatxtion/hstay-ai/internal/extract"
	"github.com/tatxtion/hstay-ai/internal/llm"
	"github.com/tatxtion/hstay-ai/internal/repository"
)

// URLDownloader fetches a remote document to a local temp file.
type URLDownloader interface {
	Download(ctx context.Context, rawURL string) (string, func(), error)
}

// ObjectDownloader fetches an object-store document to a local temp file.
type ObjectDownloader interface {
	Download(ctx context.Context, bucket, objectKey string) (string, func(), error)
}

// AuditRecorder persists one row per extraction run.
type AuditRecorder interface {
	Record(ctx context.Context, a *repository.ExtractionAudit) error
}

// Extractor is what the transport layer depends on.
type Extractor interface {
	Process(ctx context.Context, req Request) (*Response, error)
	ProcessV2(ctx context.Context, req RequestV2) (*ResponseV2, error)
}

// Service orchestrates validation, OCR, detection, and structured extraction.
type Service struct {
	cfg     common.ExtractionConfig
	text    extract.TextExtractor
	spans   llm.SpanExtractor
	urls    URLDownloader
	objects ObjectDownloader // nil when no object store is configured
	audits  AuditRecorder    // nil when no database is configured
	logger  *slog.Logger
}

func NewService(
	cfg common.ExtractionConfig,
	text extract.TextExtractor,
	spans llm.SpanExtractor,
	urls URLDownloader,
	objects ObjectDownloader,
	audits AuditRecorder,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		cfg:     cfg,
		text:    text,
		spans:   spans,
		urls:    urls,
		objects: objects,
		audits:  audits,
		logger:  logger,
	}
}

// Process handles a v1 request: a file already under the image directory.
func (s *Service) Process(ctx context.Context, req Request) (*Response, error) {
	totalStart := time.Now()

	requested, err := parseRequestedType(req.DocumentType)
	if err != nil {
		return nil, err
	}

	t0 := time.Now()
	path, err := s.validateAndResolvePath(req.Filename)
	if err != nil {
		return nil, err
	}
	validationMs := time.Since(t0).Milliseconds()

	run, err := s.run(ctx, path, requested)
	if err != nil {
		return nil, err
	}

	resp := &Response{
		Filename:              req.Filename,
		DocumentTypeRequested: requested,
		DocumentTypeDetected:  run.finalType,
		OCR:                   s.ocrPayload(run, boolOrTrue(req.IncludeOCRText)),
		Fields:                run.fields,
		Issues:                run.issues,
		TimingsMs: Timings{
			Validation: &validationMs,
			OCR:        run.ocrMs,
			Detection:  run.detectionMs,
			Extraction: run.extractionMs,
			Total:      time.Since(totalStart).Milliseconds(),
		},
	}
	if boolOrTrue(req.IncludeExtractions) {
		resp.Extractions = run.spans
	}

	s.record(ctx, auditSeed{
		source:    "local",
		fileName:  req.Filename,
		requested: requested,
	}, run, resp.TimingsMs.Total)
	return resp, nil
}

// ProcessV2 handles a remote-source request: download first, then the same
// pipeline as v1.
func (s *Service) ProcessV2(ctx context.Context, req RequestV2) (*ResponseV2, error) {
	totalStart := time.Now()

	if err := req.Validate(); err != nil {
		return nil, err
	}
	requested, err := parseRequestedType(req.DocumentType)
	if err != nil {
		return nil, err
	}

	t0 := time.Now()
	localPath, cleanup, fileName, source, err := s.fetchSource(ctx, req)
	if err != nil {
		return nil, err
	}
	defer cleanup()
	downloadMs := time.Since(t0).Milliseconds()

	run, err := s.run(ctx, localPath, requested)
	if err != nil {
		return nil, err
	}

	resp := &ResponseV2{
		DocumentID:            req.DocumentID,
		OrganizationID:        req.OrganizationID,
		PropertyID:            req.PropertyID,
		DocumentURL:           req.DocumentURL,
		Bucket:                req.Bucket,
		ObjectKey:             req.ObjectKey,
		DocumentTypeRequested: requested,
		DocumentTypeDetected:  run.finalType,
		OCR:                   s.ocrPayload(run, boolOrTrue(req.IncludeOCRText)),
		Fields:                run.fields,
		Issues:                run.issues,
		TimingsMs: Timings{
			Download:   &downloadMs,
			OCR:        run.ocrMs,
			Detection:  run.detectionMs,
			Extraction: run.extractionMs,
			Total:      time.Since(totalStart).Milliseconds(),
		},
	}
	if boolOrTrue(req.IncludeExtractions) {
		resp.Extractions = run.spans
	}

	s.record(ctx, auditSeed{
		source:         source,
		fileName:       fileName,
		requested:      requested,
		documentID:     req.DocumentID,
		organizationID: req.OrganizationID,
		propertyID:     req.PropertyID,
	}, run, resp.TimingsMs.Total)
	return resp, nil
}

// runResult carries the pipeline output shared by v1 and v2.
type runResult struct {
	ocrText      string
	ocrMethod    string
	pages        int
	detectedType constants.DocumentType
	finalType    constants.DocumentType
	issues       []docext.Issue
	spans        []docext.ExtractionSpan
	fields       docext.Fields
	ocrMs        int64
	detectionMs  int64
	extractionMs int64
}

func (s *Service) run(ctx context.Context, localPath string, requested *constants.DocumentType) (*runResult, error) {
	t0 := time.Now()
	ocrRes, err := s.text.Extract(ctx, localPath)
	if err != nil {
		return nil, common.NewAppError(common.CodeOCRError, "text extraction failed", err)
	}
	// The stripped text is the grounding corpus from here on; every span
	// offset is relative to it.
	ocrText := strings.TrimSpace(ocrRes.Text)
	if ocrText == "" {
		return nil, common.NewAppError(common.CodeEmptyOCRText, "OCR output is empty for the provided document", nil)
	}
	ocrMs := time.Since(t0).Milliseconds()

	t0 = time.Now()
	detected := docext.DetectDocumentType(ocrText)
	finalType, issues := docext.Reconcile(requested, detected)
	detectionMs := time.Since(t0).Milliseconds()

	t0 = time.Now()
	spans, _, err := s.spans.ExtractSpans(ctx, llm.SpanRequest{OCRText: ocrText, DocumentType: finalType})
	if err != nil {
		return nil, common.NewAppError(common.CodeSpanExtractorError, "span extraction failed", err)
	}
	fields := docext.MapFields(finalType, spans, ocrText)
	extractionMs := time.Since(t0).Milliseconds()

	s.logger.Info("service.extract.ok",
		"req_id", common.RequestIDFromContext(ctx),
		"path", localPath,
		"detected_type", string(detected),
		"final_type", string(finalType),
		"spans", len(spans),
		"issues", len(issues),
		"ocr_method", ocrRes.Method,
		"text_chars", len(ocrText),
	)

	return &runResult{
		ocrText:      ocrText,
		ocrMethod:    ocrRes.Method,
		pages:        ocrRes.Pages,
		detectedType: detected,
		finalType:    finalType,
		issues:       issues,
		spans:        spans,
		fields:       fields,
		ocrMs:        ocrMs,
		detectionMs:  detectionMs,
		extractionMs: extractionMs,
	}, nil
}

// fetchSource downloads the v2 document and returns its local path, a cleanup
// for the temp file, a display file name, and the source kind.
func (s *Service) fetchSource(ctx context.Context, req RequestV2) (string, func(), string, string, error) {
	if req.DocumentURL != nil {
		if s.urls == nil {
			return "", nil, "", "", common.NewAppError(common.CodeConfigError, "URL downloads are not configured", nil)
		}
		localPath, cleanup, err := s.urls.Download(ctx, *req.DocumentURL)
		if err != nil {
			return "", nil, "", "", err
		}
		name := "document"
		if u, uerr := url.Parse(*req.DocumentURL); uerr == nil && path.Base(u.Path) != "/" && path.Base(u.Path) != "." {
			name = path.Base(u.Path)
		}
		return localPath, cleanup, name, "url", nil
	}

	if s.objects == nil {
		return "", nil, "", "", common.NewAppError(common.CodeConfigError, "object store is not configured", nil)
	}
	localPath, cleanup, err := s.objects.Download(ctx, *req.Bucket, *req.ObjectKey)
	if err != nil {
		return "", nil, "", "", err
	}
	return localPath, cleanup, path.Base(*req.ObjectKey), "object", nil
}

// validateAndResolvePath confines v1 filenames to the image directory.
func (s *Service) validateAndResolvePath(filename string) (string, error) {
	if filename == "" || strings.ContainsAny(filename, `/\`) || filepath.Base(filename) != filename {
		return "", common.NewAppError(common.CodePathTraversal, "filename must be a basename without directories", nil)
	}

	ext := constants.NormalizeExt(filepath.Ext(filename))
	if !slices.Contains(s.cfg.AllowedExtensions, ext) {
		return "", common.NewAppError(common.CodeInvalidFileExtension,
			fmt.Sprintf("unsupported extension %q, allowed: %s", ext, strings.Join(s.cfg.AllowedExtensions, ", ")), nil)
	}

	root, err := filepath.Abs(s.cfg.ImageDirectory)
	if err != nil {
		return "", common.NewAppError(common.CodeConfigError, "image directory is not resolvable", err)
	}
	candidate := filepath.Join(root, filename)
	if candidate != root && !strings.HasPrefix(candidate, root+string(os.PathSeparator)) {
		return "", common.NewAppError(common.CodePathTraversal, "resolved file path escapes the image directory", nil)
	}

	info, err := os.Stat(candidate)
	if err != nil || info.IsDir() {
		return "", common.NewAppError(common.CodeSourceFileNotFound, "source file not found: "+filename, err)
	}
	return candidate, nil
}

func (s *Service) ocrPayload(run *runResult, includeText bool) OCRPayload {
	p := OCRPayload{
		TextPreview: s.textPreview(run.ocrText),
		CharCount:   len(run.ocrText),
	}
	if includeText {
		t := run.ocrText
		p.Text = &t
	}
	return p
}

// textPreview truncates on rune count so a multi-byte character is never
// split at the boundary.
func (s *Service) textPreview(text string) string {
	limit := s.cfg.OCRPreviewChars
	if limit < 0 {
		limit = 0
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}

type auditSeed struct {
	source         string
	fileName       string
	requested      *constants.DocumentType
	documentID     string
	organizationID string
	propertyID     string
}

// record persists the audit row best-effort; a broken audit store never fails
// the extraction itself.
func (s *Service) record(ctx context.Context, seed auditSeed, run *runResult, totalMs int64) {
	if s.audits == nil {
		return
	}

	issuesJSON, err := json.Marshal(run.issues)
	if err != nil {
		issuesJSON = []byte("[]")
	}
	fieldsJSON, err := json.Marshal(run.fields)
	if err != nil {
		fieldsJSON = []byte("{}")
	}
	requested := ""
	if seed.requested != nil {
		requested = string(*seed.requested)
	}

	a := &repository.ExtractionAudit{
		DocumentID:     seed.documentID,
		OrganizationID: seed.organizationID,
		PropertyID:     seed.propertyID,
		Source:         seed.source,
		FileName:       seed.fileName,
		RequestedType:  requested,
		DetectedType:   string(run.detectedType),
		FinalType:      string(run.finalType),
		OCRMethod:      run.ocrMethod,
		Pages:          run.pages,
		TextChars:      len(run.ocrText),
		DurationMs:     totalMs,
		Issues:         issuesJSON,
		Fields:         fieldsJSON,
	}
	if err := s.audits.Record(ctx, a); err != nil {
		s.logger.Warn("service.audit_record_failed", "file_name", seed.fileName, "error", err)
	}
}
