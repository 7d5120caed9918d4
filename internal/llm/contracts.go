package llm

import (
	"context"

	"github.com/tatxtion/hstay-ai/constants"
	"github.com/tatxtion/hstay-ai/internal/docext"
)

// SpanRequest carries the OCR text and the document type the spans are for.
// The type only steers the few-shot examples; the extractor never filters
// classes itself, that is the field mapper's job.
type SpanRequest struct {
	OCRText      string
	DocumentType constants.DocumentType
}

// SpanExtractor is the interface the extraction pipeline depends on.
type SpanExtractor interface {
	ExtractSpans(ctx context.Context, req SpanRequest) ([]docext.ExtractionSpan, []byte /*rawJSON*/, error)
}
