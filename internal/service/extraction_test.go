package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tatxtion/hstay-ai/constants"
	"github.com/tatxtion/hstay-ai/internal/common"
	"github.com/tatxtion/hstay-ai/internal/docext"
	"github.com/tatxtion/hstay-ai/internal/extract"
	"github.com/tatxtion/hstay-ai/internal/llm"
	"github.com/tatxtion/hstay-ai/internal/repository"
)

const panText = "INCOME TAX DEPARTMENT\nName: RAVI KUMAR\nDOB: 12/07/1989\nABCDE1234F"

type stubText struct {
	text string
	err  error
}

func (s *stubText) Extract(_ context.Context, _ string) (extract.TextExtractionResult, error) {
	if s.err != nil {
		return extract.TextExtractionResult{}, s.err
	}
	return extract.TextExtractionResult{
		Text:   s.text,
		Pages:  1,
		Method: "image-ocr",
	}, nil
}

type stubSpans struct {
	spans   []docext.ExtractionSpan
	err     error
	lastReq llm.SpanRequest
}

func (s *stubSpans) ExtractSpans(_ context.Context, req llm.SpanRequest) ([]docext.ExtractionSpan, []byte, error) {
	s.lastReq = req
	if s.err != nil {
		return nil, nil, s.err
	}
	return s.spans, []byte("{}"), nil
}

type stubAudits struct {
	rows []*repository.ExtractionAudit
	err  error
}

func (s *stubAudits) Record(_ context.Context, a *repository.ExtractionAudit) error {
	if s.err != nil {
		return s.err
	}
	s.rows = append(s.rows, a)
	return nil
}

type stubURLDownloader struct {
	path string
	err  error
}

func (s *stubURLDownloader) Download(_ context.Context, _ string) (string, func(), error) {
	if s.err != nil {
		return "", nil, s.err
	}
	return s.path, func() {}, nil
}

func writeImage(t *testing.T, dir, name string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("img"), 0o600))
}

func newTestService(t *testing.T, text *stubText, spans *stubSpans, audits AuditRecorder) (*Service, string) {
	t.Helper()
	dir := t.TempDir()
	cfg := common.ExtractionConfig{
		ImageDirectory:    dir,
		AllowedExtensions: constants.DefaultAllowedExtensions,
		OCRPreviewChars:   24,
	}
	return NewService(cfg, text, spans, nil, nil, audits, nil), dir
}

func strp(s string) *string { return &s }
func boolp(b bool) *bool    { return &b }

func TestProcessHappyPath(t *testing.T) {
	spans := &stubSpans{spans: []docext.ExtractionSpan{
		{ExtractionClass: "pan_number", ExtractionText: "ABCDE1234F"},
	}}
	svc, dir := newTestService(t, &stubText{text: panText}, spans, nil)
	writeImage(t, dir, "pan.png")

	resp, err := svc.Process(context.Background(), Request{Filename: "pan.png"})
	require.NoError(t, err)

	assert.Equal(t, constants.DocTypePAN, resp.DocumentTypeDetected)
	assert.Nil(t, resp.DocumentTypeRequested)
	assert.Empty(t, resp.Issues)

	require.NotNil(t, resp.OCR.Text)
	assert.Equal(t, panText, *resp.OCR.Text)
	assert.Equal(t, len(panText), resp.OCR.CharCount)
	assert.True(t, strings.HasSuffix(resp.OCR.TextPreview, "..."))
	assert.Len(t, resp.OCR.TextPreview, 24+3)

	fields, ok := resp.Fields.(*docext.PANFields)
	require.True(t, ok)
	require.NotNil(t, fields.PANNumber)
	assert.Equal(t, "ABCDE1234F", fields.PANNumber.Value)

	require.Len(t, resp.Extractions, 1)
	require.NotNil(t, resp.TimingsMs.Validation)
	assert.Nil(t, resp.TimingsMs.Download)
	assert.GreaterOrEqual(t, resp.TimingsMs.Total, int64(0))

	// the extractor was steered by the reconciled type
	assert.Equal(t, constants.DocTypePAN, spans.lastReq.DocumentType)
	assert.Equal(t, panText, spans.lastReq.OCRText)
}

func TestProcessTrimsOCRTextBeforeGrounding(t *testing.T) {
	padded := "\n\n  " + panText + "  \n"
	svc, dir := newTestService(t, &stubText{text: padded}, &stubSpans{}, nil)
	writeImage(t, dir, "pan.png")

	resp, err := svc.Process(context.Background(), Request{Filename: "pan.png"})
	require.NoError(t, err)
	assert.Equal(t, panText, *resp.OCR.Text)
	assert.Equal(t, len(panText), resp.OCR.CharCount)
}

func TestProcessOmitsOptionalPayloads(t *testing.T) {
	spans := &stubSpans{spans: []docext.ExtractionSpan{
		{ExtractionClass: "pan_number", ExtractionText: "ABCDE1234F"},
	}}
	svc, dir := newTestService(t, &stubText{text: panText}, spans, nil)
	writeImage(t, dir, "pan.png")

	resp, err := svc.Process(context.Background(), Request{
		Filename:           "pan.png",
		IncludeOCRText:     boolp(false),
		IncludeExtractions: boolp(false),
	})
	require.NoError(t, err)
	assert.Nil(t, resp.OCR.Text)
	assert.NotEmpty(t, resp.OCR.TextPreview)
	assert.Nil(t, resp.Extractions)
}

func TestProcessReconcilesRequestedType(t *testing.T) {
	svc, dir := newTestService(t, &stubText{text: panText}, &stubSpans{}, nil)
	writeImage(t, dir, "pan.png")

	resp, err := svc.Process(context.Background(), Request{
		Filename:     "pan.png",
		DocumentType: strp("AADHAAR"),
	})
	require.NoError(t, err)

	require.NotNil(t, resp.DocumentTypeRequested)
	assert.Equal(t, constants.DocTypeAadhaar, *resp.DocumentTypeRequested)
	assert.Equal(t, constants.DocTypePAN, resp.DocumentTypeDetected)
	require.Len(t, resp.Issues, 1)
	assert.Equal(t, docext.IssueDocumentTypeMismatch, resp.Issues[0].Code)
}

func TestProcessRejectsUnknownDocumentType(t *testing.T) {
	svc, dir := newTestService(t, &stubText{text: panText}, &stubSpans{}, nil)
	writeImage(t, dir, "pan.png")

	_, err := svc.Process(context.Background(), Request{Filename: "pan.png", DocumentType: strp("DRIVING_LICENSE")})
	require.Error(t, err)
	assert.Equal(t, common.CodeValidation, common.ErrorCode(err))
}

func TestProcessPathValidation(t *testing.T) {
	svc, dir := newTestService(t, &stubText{text: panText}, &stubSpans{}, nil)
	writeImage(t, dir, "pan.png")

	cases := []struct {
		name     string
		filename string
		code     string
	}{
		{"empty", "", common.CodePathTraversal},
		{"slash", "sub/pan.png", common.CodePathTraversal},
		{"backslash", `sub\pan.png`, common.CodePathTraversal},
		{"dotdot", "../pan.png", common.CodePathTraversal},
		{"bad extension", "pan.docx", common.CodeInvalidFileExtension},
		{"missing file", "ghost.png", common.CodeSourceFileNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Process(context.Background(), Request{Filename: tc.filename})
			require.Error(t, err)
			assert.Equal(t, tc.code, common.ErrorCode(err))
		})
	}
}

func TestProcessEmptyOCRText(t *testing.T) {
	svc, dir := newTestService(t, &stubText{text: "  \n\t "}, &stubSpans{}, nil)
	writeImage(t, dir, "blank.png")

	_, err := svc.Process(context.Background(), Request{Filename: "blank.png"})
	require.Error(t, err)
	assert.Equal(t, common.CodeEmptyOCRText, common.ErrorCode(err))
}

func TestProcessUpstreamFailures(t *testing.T) {
	t.Run("ocr", func(t *testing.T) {
		svc, dir := newTestService(t, &stubText{err: fmt.Errorf("tesseract exploded")}, &stubSpans{}, nil)
		writeImage(t, dir, "pan.png")

		_, err := svc.Process(context.Background(), Request{Filename: "pan.png"})
		require.Error(t, err)
		assert.Equal(t, common.CodeOCRError, common.ErrorCode(err))
	})

	t.Run("spans", func(t *testing.T) {
		svc, dir := newTestService(t, &stubText{text: panText}, &stubSpans{err: fmt.Errorf("llm down")}, nil)
		writeImage(t, dir, "pan.png")

		_, err := svc.Process(context.Background(), Request{Filename: "pan.png"})
		require.Error(t, err)
		assert.Equal(t, common.CodeSpanExtractorError, common.ErrorCode(err))
	})
}

func TestProcessRecordsAudit(t *testing.T) {
	audits := &stubAudits{}
	svc, dir := newTestService(t, &stubText{text: panText}, &stubSpans{}, audits)
	writeImage(t, dir, "pan.png")

	_, err := svc.Process(context.Background(), Request{Filename: "pan.png"})
	require.NoError(t, err)

	require.Len(t, audits.rows, 1)
	row := audits.rows[0]
	assert.Equal(t, "local", row.Source)
	assert.Equal(t, "pan.png", row.FileName)
	assert.Equal(t, "PAN", row.DetectedType)
	assert.Equal(t, "PAN", row.FinalType)
	assert.Equal(t, "image-ocr", row.OCRMethod)
	assert.Equal(t, len(panText), row.TextChars)
}

func TestProcessSurvivesAuditFailure(t *testing.T) {
	audits := &stubAudits{err: fmt.Errorf("db down")}
	svc, dir := newTestService(t, &stubText{text: panText}, &stubSpans{}, audits)
	writeImage(t, dir, "pan.png")

	_, err := svc.Process(context.Background(), Request{Filename: "pan.png"})
	require.NoError(t, err)
}

func TestProcessV2Validation(t *testing.T) {
	svc, _ := newTestService(t, &stubText{text: panText}, &stubSpans{}, nil)

	_, err := svc.ProcessV2(context.Background(), RequestV2{DocumentID: "d1"})
	require.Error(t, err)
	assert.Equal(t, common.CodeValidation, common.ErrorCode(err))

	_, err = svc.ProcessV2(context.Background(), RequestV2{DocumentID: "d1", ObjectKey: strp("docs/pan.png")})
	require.Error(t, err)
	assert.Equal(t, common.CodeValidation, common.ErrorCode(err)) // bucket missing
}

func TestProcessV2FromURL(t *testing.T) {
	tmp := filepath.Join(t.TempDir(), "remote.png")
	require.NoError(t, os.WriteFile(tmp, []byte("img"), 0o600))

	audits := &stubAudits{}
	svc, _ := newTestService(t, &stubText{text: panText}, &stubSpans{}, audits)
	svc.urls = &stubURLDownloader{path: tmp}

	resp, err := svc.ProcessV2(context.Background(), RequestV2{
		DocumentID:     "doc-1",
		OrganizationID: "org-1",
		PropertyID:     "prop-1",
		DocumentURL:    strp("https://cdn.example.com/docs/pan.png"),
	})
	require.NoError(t, err)

	assert.Equal(t, "doc-1", resp.DocumentID)
	assert.Equal(t, constants.DocTypePAN, resp.DocumentTypeDetected)
	require.NotNil(t, resp.TimingsMs.Download)
	assert.Nil(t, resp.TimingsMs.Validation)

	require.Len(t, audits.rows, 1)
	assert.Equal(t, "url", audits.rows[0].Source)
	assert.Equal(t, "pan.png", audits.rows[0].FileName)
	assert.Equal(t, "doc-1", audits.rows[0].DocumentID)
}

func TestProcessV2ObjectKeyAlias(t *testing.T) {
	req := RequestV2{
		DocumentID:     "d1",
		Bucket:         strp("docs"),
		ObjectKeyAlias: strp(" cards/pan.png "),
	}
	require.NoError(t, req.Validate())
	require.NotNil(t, req.ObjectKey)
	assert.Equal(t, "cards/pan.png", *req.ObjectKey)
}

func TestProcessV2UnconfiguredSources(t *testing.T) {
	svc, _ := newTestService(t, &stubText{text: panText}, &stubSpans{}, nil)

	_, err := svc.ProcessV2(context.Background(), RequestV2{
		DocumentID:  "d1",
		DocumentURL: strp("https://cdn.example.com/pan.png"),
	})
	require.Error(t, err)
	assert.Equal(t, common.CodeConfigError, common.ErrorCode(err))

	_, err = svc.ProcessV2(context.Background(), RequestV2{
		DocumentID: "d1",
		Bucket:     strp("docs"),
		ObjectKey:  strp("pan.png"),
	})
	require.Error(t, err)
	assert.Equal(t, common.CodeConfigError, common.ErrorCode(err))
}

func TestTextPreviewKeepsRuneBoundaries(t *testing.T) {
	svc, _ := newTestService(t, &stubText{text: panText}, &stubSpans{}, nil)

	// 24 runes fit exactly; the 25th forces truncation.
	text := strings.Repeat("न", 25)
	preview := svc.textPreview(text)

	assert.True(t, utf8.ValidString(preview))
	assert.Equal(t, strings.Repeat("न", 24)+"...", preview)

	// At or under the limit the text passes through untouched.
	assert.Equal(t, strings.Repeat("₹", 24), svc.textPreview(strings.Repeat("₹", 24)))
}
