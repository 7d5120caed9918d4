package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tatxtion/hstay-ai/constants"
)

// stubRunner fakes the external binaries. For pdftoppm it materializes
// page images so the glob in pdfToOCR finds something.
type stubRunner struct {
	pdfText    string
	pdfTextErr error
	ocrText    string
	pages      int
	calls      []string
}

func (s *stubRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	s.calls = append(s.calls, name)
	switch {
	case strings.Contains(name, "pdftotext"):
		if s.pdfTextErr != nil {
			return nil, []byte("pdftotext boom"), s.pdfTextErr
		}
		return []byte(s.pdfText), nil, nil
	case strings.Contains(name, "pdftoppm"):
		prefix := args[len(args)-1]
		for i := 1; i <= s.pages; i++ {
			if err := os.WriteFile(fmt.Sprintf("%s-%d.png", prefix, i), []byte("png"), 0o600); err != nil {
				return nil, nil, err
			}
		}
		return nil, nil, nil
	case strings.Contains(name, "tesseract"):
		return []byte(s.ocrText), nil, nil
	}
	return nil, nil, fmt.Errorf("unexpected command %q", name)
}

func newTestExtractor(t *testing.T, r Runner) *Extractor {
	t.Helper()
	e := NewExtractor(Config{}, slog.New(slog.NewTextHandler(os.Stderr, nil)))
	e.runner = r
	return e
}

func TestExtractPDFUsesTextLayer(t *testing.T) {
	text := "GOVERNMENT OF INDIA\nPermanent Account Number\nABCDE1234F\n"
	e := newTestExtractor(t, &stubRunner{pdfText: text})

	res, err := e.Extract(context.Background(), "/tmp/doc.pdf")
	require.NoError(t, err)
	assert.Equal(t, "pdf-text", res.Method)
	assert.Equal(t, constants.PDF, res.SourceType)
	assert.Equal(t, text, res.Text)
	assert.Equal(t, 1, res.Pages)
}

func TestExtractPDFCountsFormFeedPages(t *testing.T) {
	text := strings.Repeat("page one text long enough to trust ", 2) + "\fsecond page"
	e := newTestExtractor(t, &stubRunner{pdfText: text})

	res, err := e.Extract(context.Background(), "/tmp/doc.pdf")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Pages)
}

func TestExtractPDFFallsBackToRasterOCR(t *testing.T) {
	r := &stubRunner{pdfText: "  \n ", ocrText: "AADHAAR 1234 5678 9012", pages: 2}
	e := newTestExtractor(t, r)

	res, err := e.Extract(context.Background(), "/tmp/scan.pdf")
	require.NoError(t, err)
	assert.Equal(t, "pdf-ocr", res.Method)
	assert.Equal(t, 2, res.Pages)
	assert.Contains(t, res.Text, "AADHAAR 1234 5678 9012")
	assert.Contains(t, res.Text, "\f") // page break marker between pages
	assert.Contains(t, r.calls, "pdftoppm")
}

func TestExtractPDFFallsBackWhenPdftotextFails(t *testing.T) {
	r := &stubRunner{pdfTextErr: fmt.Errorf("exit status 1"), ocrText: "PASSPORT", pages: 1}
	e := newTestExtractor(t, r)

	res, err := e.Extract(context.Background(), "/tmp/scan.pdf")
	require.NoError(t, err)
	assert.Equal(t, "pdf-ocr", res.Method)
}

func TestExtractImage(t *testing.T) {
	e := newTestExtractor(t, &stubRunner{ocrText: "Permanent Account Number\nABCDE1234F"})

	res, err := e.Extract(context.Background(), "/tmp/card.jpg")
	require.NoError(t, err)
	assert.Equal(t, "image-ocr", res.Method)
	assert.Equal(t, constants.IMAGE, res.SourceType)
	assert.Equal(t, 1, res.Pages)
	assert.Contains(t, res.Text, "ABCDE1234F")
}

func TestExtractImageStripsBoxNoise(t *testing.T) {
	e := newTestExtractor(t, &stubRunner{ocrText: "NAME\n______\nAMIT SHARMA"})

	res, err := e.Extract(context.Background(), "/tmp/card.png")
	require.NoError(t, err)
	assert.NotContains(t, res.Text, "______")
	assert.Contains(t, res.Text, "AMIT SHARMA")
}

func TestExtractUnsupportedExtension(t *testing.T) {
	e := newTestExtractor(t, &stubRunner{})

	_, err := e.Extract(context.Background(), "/tmp/doc.docx")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported extension")
}

func TestMaxPagesCapsRasterOCR(t *testing.T) {
	r := &stubRunner{ocrText: "X", pages: 5}
	e := NewExtractor(Config{MaxPages: 2}, nil)
	e.runner = r

	res, err := e.extractPDF(context.Background(), "/tmp/scan.pdf")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Pages)
}

func TestPdfToOCRGlobOrdering(t *testing.T) {
	// pdftoppm writes page-1..page-3; glob sorting keeps them in order
	dir := t.TempDir()
	for _, n := range []string{"page-1.png", "page-2.png", "page-3.png"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), []byte("png"), 0o600))
	}
	matches, err := filepath.Glob(filepath.Join(dir, "page") + "-*.png")
	require.NoError(t, err)
	assert.Len(t, matches, 3)
}
