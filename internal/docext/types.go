// Package docext is the classification-and-grounding engine: it decides what
// kind of identity document a blob of OCR text represents and maps the span
// extractor's loosely-typed output onto a strict per-type field schema, with
// every value tied back to the exact substring of the OCR text that produced
// it. Everything in this package is a pure function over strings already in
// memory; nothing here performs I/O or returns an error.
package docext

// ExtractionSpan is one loosely-typed extraction reported by the external
// span extractor. Class names are free text and offsets are untrusted; both
// must be normalized/verified before use.
type ExtractionSpan struct {
	ExtractionClass string         `json:"extraction_class"`
	ExtractionText  string         `json:"extraction_text"`
	Attributes      map[string]any `json:"attributes,omitempty"`
	StartPos        *int           `json:"start_pos,omitempty"`
	EndPos          *int           `json:"end_pos,omitempty"`
	GroupIndex      *int           `json:"group_index,omitempty"`
	ExtractionIndex *int           `json:"extraction_index,omitempty"`
}

// FieldEvidence carries an extracted value plus the evidence that justifies
// it. When StartPos/EndPos are set, Evidence is the verified substring of the
// original OCR text at [StartPos, EndPos); otherwise Evidence falls back to
// the extractor's reported text and the offsets are null (ungrounded).
type FieldEvidence struct {
	Value                 string `json:"value"`
	Evidence              string `json:"evidence"`
	StartPos              *int   `json:"start_pos"`
	EndPos                *int   `json:"end_pos"`
	SourceExtractionClass string `json:"source_extraction_class"`
}

// Synthetic source classes for fields not resolved from an extractor span.
const (
	SourceRegexFallback = "regex_fallback"
	SourceMRZFallback   = "mrz_fallback"
)

// Fields is the closed union of per-type field schemas.
type Fields interface {
	isFields()
}

// PANFields is the field schema for Indian PAN cards.
type PANFields struct {
	PANNumber   *FieldEvidence `json:"pan_number"`
	FullName    *FieldEvidence `json:"full_name"`
	FatherName  *FieldEvidence `json:"father_name"`
	DateOfBirth *FieldEvidence `json:"date_of_birth"`
}

// AadhaarFields is the field schema for Aadhaar cards.
type AadhaarFields struct {
	AadhaarNumber *FieldEvidence `json:"aadhaar_number"`
	FullName      *FieldEvidence `json:"full_name"`
	DateOfBirth   *FieldEvidence `json:"date_of_birth"`
	YearOfBirth   *FieldEvidence `json:"year_of_birth"`
	Gender        *FieldEvidence `json:"gender"`
	Address       *FieldEvidence `json:"address"`
	CareOf        *FieldEvidence `json:"care_of"`
	PINCode       *FieldEvidence `json:"pin_code"`
}

// PassportFields is the field schema for Indian passports.
type PassportFields struct {
	PassportNumber *FieldEvidence `json:"passport_number"`
	Surname        *FieldEvidence `json:"surname"`
	GivenNames     *FieldEvidence `json:"given_names"`
	Nationality    *FieldEvidence `json:"nationality"`
	DateOfBirth    *FieldEvidence `json:"date_of_birth"`
	Sex            *FieldEvidence `json:"sex"`
	PlaceOfBirth   *FieldEvidence `json:"place_of_birth"`
	PlaceOfIssue   *FieldEvidence `json:"place_of_issue"`
	DateOfIssue    *FieldEvidence `json:"date_of_issue"`
	DateOfExpiry   *FieldEvidence `json:"date_of_expiry"`
	FileNumber     *FieldEvidence `json:"file_number"`
	MRZLine1       *FieldEvidence `json:"mrz_line_1"`
	MRZLine2       *FieldEvidence `json:"mrz_line_2"`
}

// OtherFields is the generic schema for unrecognized document types.
type OtherFields struct {
	IDNumber    *FieldEvidence `json:"id_number"`
	FullName    *FieldEvidence `json:"full_name"`
	DateOfBirth *FieldEvidence `json:"date_of_birth"`
	Address     *FieldEvidence `json:"address"`
}

func (*PANFields) isFields()      {}
func (*AadhaarFields) isFields()  {}
func (*PassportFields) isFields() {}
func (*OtherFields) isFields()    {}

// Severity grades an Issue.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Issue codes raised by type reconciliation.
const (
	IssueDetectionInconclusive = "DETECTION_INCONCLUSIVE"
	IssueDocumentTypeMismatch  = "DOCUMENT_TYPE_MISMATCH"
)

// Issue is a non-fatal quality problem attached to an extraction result.
type Issue struct {
	Code     string   `json:"code"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

func intPtr(v int) *int       { return &v }
func strPtr(s string) *string { return &s }
