package docext

import (
	"fmt"

	"github.com/tatxtion/hstay-ai/constants"
)

// Reconcile decides the effective document type from an optional caller
// request and the detected type. The detected type wins on a genuine
// conflict; the requested type only fills in when detection was inconclusive.
// Divergence is reported as warning Issues, never as an error.
func Reconcile(requested *constants.DocumentType, detected constants.DocumentType) (constants.DocumentType, []Issue) {
	if requested == nil || *requested == constants.DocTypeOther {
		return detected, nil
	}
	if detected == constants.DocTypeOther {
		return *requested, []Issue{{
			Code:     IssueDetectionInconclusive,
			Message:  fmt.Sprintf("document type detection was inconclusive; using requested type %s", *requested),
			Severity: SeverityWarning,
		}}
	}
	if *requested != detected {
		return detected, []Issue{{
			Code:     IssueDocumentTypeMismatch,
			Message:  fmt.Sprintf("requested type %s does not match detected type %s; proceeding with detected type", *requested, detected),
			Severity: SeverityWarning,
		}}
	}
	return detected, nil
}
