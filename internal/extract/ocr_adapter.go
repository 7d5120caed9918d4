package extract

import (
	"context"
	"log/slog"

	"github.com/tatxtion/hstay-ai/internal/ocr"
)

// OCRAdapter narrows the OCR extractor's result to the fields the
// extraction pipeline reads.
type OCRAdapter struct {
	e      *ocr.Extractor
	logger *slog.Logger
}

func NewOCRAdapter(e *ocr.Extractor, logger *slog.Logger) *OCRAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &OCRAdapter{e: e, logger: logger}
}

func (a *OCRAdapter) Extract(ctx context.Context, path string) (TextExtractionResult, error) {
	r, err := a.e.Extract(ctx, path)
	if err != nil {
		return TextExtractionResult{}, err
	}
	a.logger.Debug("extract.ocr.ok",
		"method", r.Method,
		"pages", r.Pages,
		"text_chars", len(r.Text),
		"warnings", len(r.Warnings),
	)
	return TextExtractionResult{Text: r.Text, Pages: r.Pages, Method: r.Method}, nil
}
