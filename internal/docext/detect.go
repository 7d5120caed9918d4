package docext

import (
	"regexp"
	"strings"

	"github.com/tatxtion/hstay-ai/constants"
)

// Identifier shapes for the supported Indian identity documents.
var (
	panPattern            = regexp.MustCompile(`\b[A-Z]{5}[0-9]{4}[A-Z]\b`)
	aadhaarPattern        = regexp.MustCompile(`\b\d{4}\s?\d{4}\s?\d{4}\b`)
	passportNumberPattern = regexp.MustCompile(`\b[A-PR-WYa-pr-wy][1-9]\d{6}\b`)
	mrzIndiaPrefixPattern = regexp.MustCompile(`(?m)^P<IND`)
	pinCodePattern        = regexp.MustCompile(`\b\d{6}\b`)
)

// Keyword co-occurrence is weak evidence: each hit counts once, weight 1.
var passportKeywords = []string{
	"passport",
	"republic of india",
	"nationality",
	"date of issue",
	"date of expiry",
	"place of issue",
}

// DetectDocumentType classifies raw OCR text into one of the supported
// document types. PAN- and Aadhaar-shaped identifiers are near-unambiguous
// and win outright, in that order. Passports are scored: structural signals
// (passport-number token, `P<IND` line prefix, a valid TD3 MRZ second line)
// weigh 2, keywords weigh 1, and a total of 2 suffices. Anything else is
// OTHER. Deterministic and total.
func DetectDocumentType(ocrText string) constants.DocumentType {
	if panPattern.MatchString(ocrText) {
		return constants.DocTypePAN
	}
	if aadhaarPattern.MatchString(ocrText) {
		return constants.DocTypeAadhaar
	}

	score := 0
	if passportNumberPattern.MatchString(ocrText) {
		score += 2
	}
	if mrzIndiaPrefixPattern.MatchString(ocrText) {
		score += 2
	}
	if _, line2 := extractMRZTD3Lines(ocrText); line2 != nil {
		score += 2
	}
	lower := strings.ToLower(ocrText)
	for _, kw := range passportKeywords {
		if strings.Contains(lower, kw) {
			score++
		}
	}
	if score >= 2 {
		return constants.DocTypePassport
	}
	return constants.DocTypeOther
}
