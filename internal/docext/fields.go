package docext

import (
	"regexp"
	"strings"

	"github.com/tatxtion/hstay-ai/constants"
)

var classKeyPattern = regexp.MustCompile(`[^a-z0-9]+`)

// normalizeClassKey folds a free-text extraction class onto the alias-table
// key space: lower-case, runs of non-alphanumerics collapsed to a single
// underscore, outer underscores stripped.
func normalizeClassKey(s string) string {
	return strings.Trim(classKeyPattern.ReplaceAllString(strings.ToLower(s), "_"), "_")
}

// MapFields builds the typed field schema for the effective document type
// from the extractor's spans. Resolution order per field: alias lookup (first
// matching span wins), then a type-specific regex fallback for identifier
// fields, then (passports only) MRZ-derived values for still-missing fields.
// Unresolved fields stay nil.
func MapFields(docType constants.DocumentType, spans []ExtractionSpan, ocrText string) Fields {
	switch docType {
	case constants.DocTypePAN:
		return mapPANFields(spans, ocrText)
	case constants.DocTypeAadhaar:
		return mapAadhaarFields(spans, ocrText)
	case constants.DocTypePassport:
		return mapPassportFields(spans, ocrText)
	default:
		return mapOtherFields(spans, ocrText)
	}
}

func mapPANFields(spans []ExtractionSpan, ocrText string) *PANFields {
	panNumber := pickField(spans, ocrText, "pan_number", "pan", "id_number", "document_number")
	if panNumber == nil {
		panNumber = regexEvidence(panPattern, ocrText)
	}
	return &PANFields{
		PANNumber:   panNumber,
		FullName:    pickField(spans, ocrText, "full_name", "name", "cardholder_name"),
		FatherName:  pickField(spans, ocrText, "father_name", "parent_name"),
		DateOfBirth: pickField(spans, ocrText, "date_of_birth", "dob", "birth_date"),
	}
}

func mapAadhaarFields(spans []ExtractionSpan, ocrText string) *AadhaarFields {
	aadhaarNumber := pickField(spans, ocrText, "aadhaar_number", "aadhaar", "uid", "id_number")
	if aadhaarNumber == nil {
		aadhaarNumber = regexEvidence(aadhaarPattern, ocrText)
	}
	pinCode := pickField(spans, ocrText, "pin_code", "postal_code")
	if pinCode == nil {
		pinCode = regexEvidence(pinCodePattern, ocrText)
	}
	return &AadhaarFields{
		AadhaarNumber: aadhaarNumber,
		FullName:      pickField(spans, ocrText, "full_name", "name"),
		DateOfBirth:   pickField(spans, ocrText, "date_of_birth", "dob", "birth_date"),
		YearOfBirth:   pickField(spans, ocrText, "year_of_birth", "yob"),
		Gender:        pickField(spans, ocrText, "gender", "sex"),
		Address:       pickField(spans, ocrText, "address", "residential_address"),
		CareOf:        pickField(spans, ocrText, "care_of", "c_o", "co"),
		PINCode:       pinCode,
	}
}

func mapPassportFields(spans []ExtractionSpan, ocrText string) *PassportFields {
	passportNumber := pickField(spans, ocrText, "passport_number", "passport_no", "id_number")
	if passportNumber == nil {
		passportNumber = regexEvidence(passportNumberPattern, ocrText)
	}

	fields := &PassportFields{
		PassportNumber: passportNumber,
		Surname:        pickField(spans, ocrText, "surname", "last_name", "family_name"),
		GivenNames:     pickField(spans, ocrText, "given_names", "first_name", "name"),
		Nationality:    pickField(spans, ocrText, "nationality"),
		DateOfBirth:    pickField(spans, ocrText, "date_of_birth", "dob", "birth_date"),
		Sex:            pickField(spans, ocrText, "sex", "gender"),
		PlaceOfBirth:   pickField(spans, ocrText, "place_of_birth"),
		PlaceOfIssue:   pickField(spans, ocrText, "place_of_issue"),
		DateOfIssue:    pickField(spans, ocrText, "date_of_issue", "issue_date"),
		DateOfExpiry:   pickField(spans, ocrText, "date_of_expiry", "expiry_date"),
		FileNumber:     pickField(spans, ocrText, "file_number"),
		MRZLine1:       pickField(spans, ocrText, "mrz_line_1"),
		MRZLine2:       pickField(spans, ocrText, "mrz_line_2"),
	}

	if fields.Sex != nil && fields.Nationality != nil && fields.MRZLine1 != nil && fields.MRZLine2 != nil {
		return fields
	}

	// MRZ-derived values come from normalized text, so they carry the matched
	// line as both value and evidence with no offsets.
	line1, line2 := extractMRZTD3Lines(ocrText)
	if line1 != nil && fields.MRZLine1 == nil {
		fields.MRZLine1 = mrzEvidence(*line1)
	}
	if line2 != nil && fields.MRZLine2 == nil {
		fields.MRZLine2 = mrzEvidence(*line2)
	}
	if line2 != nil {
		if fields.Nationality == nil {
			if nat := mrzNationality(*line2); nat != "" {
				fields.Nationality = mrzEvidence(nat)
			}
		}
		if fields.Sex == nil {
			if sex := mrzSex(*line2); sex != "" {
				fields.Sex = mrzEvidence(sex)
			}
		}
	}
	return fields
}

func mapOtherFields(spans []ExtractionSpan, ocrText string) *OtherFields {
	idNumber := pickField(spans, ocrText, "id_number", "document_number", "identifier")
	if idNumber == nil {
		idNumber = regexEvidence(panPattern, ocrText)
	}
	if idNumber == nil {
		idNumber = regexEvidence(aadhaarPattern, ocrText)
	}
	if idNumber == nil {
		idNumber = regexEvidence(passportNumberPattern, ocrText)
	}
	return &OtherFields{
		IDNumber:    idNumber,
		FullName:    pickField(spans, ocrText, "full_name", "name"),
		DateOfBirth: pickField(spans, ocrText, "date_of_birth", "dob", "birth_date"),
		Address:     pickField(spans, ocrText, "address"),
	}
}

// pickField resolves a schema field against the span list via alias lookup.
// First matching span in original order wins; there is no scoring.
func pickField(spans []ExtractionSpan, ocrText string, aliases ...string) *FieldEvidence {
	keys := make(map[string]struct{}, len(aliases))
	for _, a := range aliases {
		keys[normalizeClassKey(a)] = struct{}{}
	}
	for i := range spans {
		if _, ok := keys[normalizeClassKey(spans[i].ExtractionClass)]; ok {
			return buildEvidence(&spans[i], ocrText)
		}
	}
	return nil
}

// buildEvidence grounds a span against the OCR text. Offsets are untrusted
// input: only when 0 <= start <= end <= len(ocrText) does the evidence become
// the source substring; otherwise it degrades to the extractor's reported
// text with null offsets.
func buildEvidence(span *ExtractionSpan, ocrText string) *FieldEvidence {
	ev := &FieldEvidence{
		Value:                 span.ExtractionText,
		Evidence:              span.ExtractionText,
		SourceExtractionClass: span.ExtractionClass,
	}
	if span.StartPos != nil && span.EndPos != nil {
		start, end := *span.StartPos, *span.EndPos
		if 0 <= start && start <= end && end <= len(ocrText) {
			ev.Evidence = ocrText[start:end]
			ev.StartPos = intPtr(start)
			ev.EndPos = intPtr(end)
		}
	}
	return ev
}

// regexEvidence searches the original OCR text directly; a match is always
// grounded since the offsets are the match's own.
func regexEvidence(pattern *regexp.Regexp, ocrText string) *FieldEvidence {
	loc := pattern.FindStringIndex(ocrText)
	if loc == nil {
		return nil
	}
	match := ocrText[loc[0]:loc[1]]
	return &FieldEvidence{
		Value:                 match,
		Evidence:              match,
		StartPos:              intPtr(loc[0]),
		EndPos:                intPtr(loc[1]),
		SourceExtractionClass: SourceRegexFallback,
	}
}

func mrzEvidence(value string) *FieldEvidence {
	return &FieldEvidence{
		Value:                 value,
		Evidence:              value,
		SourceExtractionClass: SourceMRZFallback,
	}
}
