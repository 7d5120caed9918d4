package service

import (
	"strings"

	"github.com/tatxtion/hstay-ai/constants"
	"github.com/tatxtion/hstay-ai/internal/common"
	"github.com/tatxtion/hstay-ai/internal/docext"
)

// Request is the v1 extraction request: a file already present in the
// configured image directory.
type Request struct {
	Filename           string  `json:"filename"`
	DocumentType       *string `json:"document_type,omitempty"`
	IncludeOCRText     *bool   `json:"include_ocr_text,omitempty"`
	IncludeExtractions *bool   `json:"include_extractions,omitempty"`
}

// RequestV2 is the remote-source extraction request: the document comes from
// a URL or from the object store.
type RequestV2 struct {
	DocumentID     string `json:"document_id"`
	OrganizationID string `json:"organization_id"`
	PropertyID     string `json:"property_id"`

	DocumentURL *string `json:"document_url,omitempty"`
	Bucket      *string `json:"bucket,omitempty"`
	ObjectKey   *string `json:"object_key,omitempty"`
	// legacy camelCase alias some callers still send
	ObjectKeyAlias *string `json:"objectKey,omitempty"`

	DocumentType       *string `json:"document_type,omitempty"`
	IncludeOCRText     *bool   `json:"include_ocr_text,omitempty"`
	IncludeExtractions *bool   `json:"include_extractions,omitempty"`
}

// Validate trims source fields, folds the objectKey alias, and checks that
// exactly enough of a source is present.
func (r *RequestV2) Validate() error {
	r.DocumentURL = trimmedOrNil(r.DocumentURL)
	if r.ObjectKey == nil {
		r.ObjectKey = r.ObjectKeyAlias
	}
	r.ObjectKeyAlias = nil
	r.ObjectKey = trimmedOrNil(r.ObjectKey)
	r.Bucket = trimmedOrNil(r.Bucket)

	if r.DocumentURL == nil && r.ObjectKey == nil {
		return common.NewAppError(common.CodeValidation, "either document_url or object_key must be provided", nil)
	}
	if r.DocumentURL == nil && r.ObjectKey != nil && r.Bucket == nil {
		return common.NewAppError(common.CodeValidation, "bucket is required when object_key is provided", nil)
	}
	return nil
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}

// parseRequestedType validates an optional document_type wire value.
func parseRequestedType(s *string) (*constants.DocumentType, error) {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil, nil
	}
	dt, ok := constants.ParseDocumentType(*s)
	if !ok {
		return nil, common.NewAppError(common.CodeValidation, "unknown document_type "+*s, nil)
	}
	return &dt, nil
}

func boolOrTrue(b *bool) bool {
	return b == nil || *b
}

// OCRPayload echoes what the OCR stage produced.
type OCRPayload struct {
	Text        *string `json:"text,omitempty"`
	TextPreview string  `json:"text_preview"`
	CharCount   int     `json:"char_count"`
}

// Timings carries per-stage wall-clock durations in milliseconds.
type Timings struct {
	Validation *int64 `json:"validation,omitempty"`
	Download   *int64 `json:"download,omitempty"`
	OCR        int64  `json:"ocr"`
	Detection  int64  `json:"detection"`
	Extraction int64  `json:"extraction"`
	Total      int64  `json:"total"`
}

// Response is the v1 extraction result.
type Response struct {
	Filename              string                  `json:"filename"`
	DocumentTypeRequested *constants.DocumentType `json:"document_type_requested,omitempty"`
	DocumentTypeDetected  constants.DocumentType  `json:"document_type_detected"`
	OCR                   OCRPayload              `json:"ocr"`
	Fields                docext.Fields           `json:"fields"`
	Extractions           []docext.ExtractionSpan `json:"extractions,omitempty"`
	Issues                []docext.Issue          `json:"issues"`
	TimingsMs             Timings                 `json:"timings_ms"`
}

// ResponseV2 is the remote-source extraction result.
type ResponseV2 struct {
	DocumentID            string                  `json:"document_id"`
	OrganizationID        string                  `json:"organization_id"`
	PropertyID            string                  `json:"property_id"`
	DocumentURL           *string                 `json:"document_url,omitempty"`
	Bucket                *string                 `json:"bucket,omitempty"`
	ObjectKey             *string                 `json:"object_key,omitempty"`
	DocumentTypeRequested *constants.DocumentType `json:"document_type_requested,omitempty"`
	DocumentTypeDetected  constants.DocumentType  `json:"document_type_detected"`
	OCR                   OCRPayload              `json:"ocr"`
	Fields                docext.Fields           `json:"fields"`
	Extractions           []docext.ExtractionSpan `json:"extractions,omitempty"`
	Issues                []docext.Issue          `json:"issues"`
	TimingsMs             Timings                 `json:"timings_ms"`
}
