package docext

import (
	"regexp"
	"strings"
)

// TD3 second line, 44 fixed-width characters:
// document number (9) + check (1) + nationality (3) + birth date (6) +
// check (1) + sex (1) + expiry date (6) + check (1) + optional data (14) +
// final checks (2). `<` is the filler character.
const mrzTD3Line2Expr = `[A-Z0-9<]{9}[0-9<][A-Z<]{3}[0-9]{6}[0-9<][MF<X][0-9]{6}[0-9<][A-Z0-9<]{14}[0-9<]{2}`

var (
	mrzTD3BlockPattern = regexp.MustCompile(`([A-Z0-9<]{44})\s+([A-Z0-9<]{44})`)
	mrzTD3Line2Strict  = regexp.MustCompile(`^` + mrzTD3Line2Expr + `$`)
	mrzTD3Line2Search  = regexp.MustCompile(mrzTD3Line2Expr)
)

// extractMRZTD3Lines locates a TD3 machine-readable zone in OCR text.
// Preferred: the first adjacent 44/44 pair whose second line satisfies the
// strict TD3 grammar. Fallback: any standalone strict second line anywhere in
// the text, returned with a nil line1. Matching runs on normalized text, so
// the returned lines carry no usable offsets into the original. Never errors;
// "not found" is (nil, nil).
func extractMRZTD3Lines(ocrText string) (line1, line2 *string) {
	normalized := normalizeForMatching(ocrText)
	for _, m := range mrzTD3BlockPattern.FindAllStringSubmatch(normalized, -1) {
		if mrzTD3Line2Strict.MatchString(m[2]) {
			return strPtr(m[1]), strPtr(m[2])
		}
	}
	if m := mrzTD3Line2Search.FindString(normalized); m != "" {
		return nil, strPtr(m)
	}
	return nil, nil
}

// mrzNationality reads the issuing/nationality code from a strict TD3 second
// line, with filler characters stripped. Empty means unknown.
func mrzNationality(line2 string) string {
	return strings.TrimSpace(strings.ReplaceAll(line2[10:13], "<", ""))
}

// mrzSex reads the sex marker from a strict TD3 second line. Only M, F and X
// are surfaced; the filler `<` means unknown and returns empty.
func mrzSex(line2 string) string {
	switch s := line2[20:21]; s {
	case "M", "F", "X":
		return s
	default:
		return ""
	}
}
