package docext

import (
	"html"
	"strings"
)

// normalizeForMatching prepares OCR text for structural pattern matching.
// Some OCR exporters HTML-escape the MRZ filler character (`&lt;` for `<`),
// so entities are decoded before upper-casing. The result must never be used
// to ground offsets: unescaping changes string length, so positions no longer
// line up with the original text.
func normalizeForMatching(text string) string {
	return strings.ToUpper(html.UnescapeString(text))
}
