package extract

import "context"

// TextExtractor turns a document file into plain OCR text.
type TextExtractor interface {
	Extract(ctx context.Context, path string) (TextExtractionResult, error)
}

// TextExtractionResult is the slice of the OCR output the extraction
// pipeline consumes.
type TextExtractionResult struct {
	Text   string
	Pages  int
	Method string // "pdf-text" | "pdf-ocr" | "image-ocr"
}
