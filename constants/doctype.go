package constants

import "strings"

// DocumentType is the closed set of identity document kinds the extractor
// understands.
type DocumentType string

// Stable values (these exact strings appear on the wire and in audit rows).
const (
	DocTypePAN      DocumentType = "PAN"
	DocTypeAadhaar  DocumentType = "AADHAAR"
	DocTypePassport DocumentType = "PASSPORT"
	DocTypeOther    DocumentType = "OTHER"
)

// DocumentTypes holds every accepted document type value.
var DocumentTypes = []DocumentType{DocTypePAN, DocTypeAadhaar, DocTypePassport, DocTypeOther}

// ParseDocumentType maps a wire string onto a DocumentType, case-insensitively.
func ParseDocumentType(s string) (DocumentType, bool) {
	v := DocumentType(strings.ToUpper(strings.TrimSpace(s)))
	for _, dt := range DocumentTypes {
		if v == dt {
			return dt, true
		}
	}
	return "", false
}
