package export

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/tatxtion/hstay-ai/internal/repository"
)

type stubLister struct {
	rows []repository.ExtractionAudit
	err  error
}

func (s *stubLister) List(_ context.Context, _ int) ([]repository.ExtractionAudit, error) {
	return s.rows, s.err
}

func TestExportAuditsXLSX(t *testing.T) {
	rows := []repository.ExtractionAudit{
		{
			CreatedAt:    time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
			DocumentID:   "doc-1",
			Source:       "url",
			FileName:     "card.png",
			DetectedType: "PAN",
			FinalType:    "PAN",
			OCRMethod:    "image-ocr",
			Pages:        1,
			TextChars:    240,
			DurationMs:   1200,
			Issues:       []byte(`[]`),
		},
		{
			CreatedAt:     time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC),
			DocumentID:    "doc-2",
			Source:        "local",
			FileName:      "passport.pdf",
			RequestedType: "AADHAAR",
			DetectedType:  "PASSPORT",
			FinalType:     "PASSPORT",
			OCRMethod:     "pdf-text",
			Pages:         2,
			TextChars:     1800,
			DurationMs:    800,
			Issues:        []byte(`[{"code":"DOCUMENT_TYPE_MISMATCH"}]`),
		},
	}
	svc := NewService(&stubLister{rows: rows}, nil)

	b, err := svc.ExportAuditsXLSX(context.Background(), 100)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(b))
	require.NoError(t, err)
	defer f.Close()

	got, err := f.GetRows("Extractions")
	require.NoError(t, err)
	require.Len(t, got, 3) // header + 2 rows

	assert.Equal(t, "Document ID", got[0][1])
	assert.Equal(t, "doc-1", got[1][1])
	assert.Equal(t, "PAN", got[1][8])
	assert.Equal(t, "passport.pdf", got[2][5])
	assert.Contains(t, got[2][13], "DOCUMENT_TYPE_MISMATCH")

	// The workbook carries exactly one sheet; the default Sheet1 is removed.
	assert.Equal(t, []string{"Extractions"}, f.GetSheetList())
}

func TestExportAuditsXLSXPropagatesError(t *testing.T) {
	svc := NewService(&stubLister{err: fmt.Errorf("db down")}, nil)

	_, err := svc.ExportAuditsXLSX(context.Background(), 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
}
