package constants

import "strings"

// File formats the OCR stage understands.
const (
	PDF   = "PDF"
	IMAGE = "IMAGE"
)

// FileTypes holds the allowed values for the source_type field.
var FileTypes = []string{PDF, IMAGE}

// DefaultAllowedExtensions is the default extension allow-list for incoming
// identity documents (overridable via ALLOWED_EXTENSIONS).
var DefaultAllowedExtensions = []string{"png", "jpg", "jpeg", "webp", "tif", "tiff", "bmp", "pdf"}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// MapExtToFormat maps a normalized extension to PDF/IMAGE; unknown -> "".
func MapExtToFormat(ext string) string {
	switch NormalizeExt(ext) {
	case "pdf":
		return PDF
	case "png", "jpg", "jpeg", "webp", "tif", "tiff", "bmp":
		return IMAGE
	default:
		return ""
	}
}
