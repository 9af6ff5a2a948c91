package laserblob

import "regexp"

// SpreadsheetContentTypes is the closed set of MIME types classified as
// spreadsheets.
var SpreadsheetContentTypes = []string{
	"text/csv",
	"application/csv",
	"application/vnd.ms-excel",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

var (
	imageContentType = regexp.MustCompile(`^image/\w+$`)
	videoContentType = regexp.MustCompile(`^video/.+$`)

	spreadsheetContentTypes = func() map[string]bool {
		m := make(map[string]bool, len(SpreadsheetContentTypes))
		for _, ct := range SpreadsheetContentTypes {
			m[ct] = true
		}
		return m
	}()
)

// variantDef is one entry in the static classification registry.
type variantDef struct {
	variant Variant
	match   func(contentType string) bool
}

// variantRegistry is the complete, ordered set of non-generic variants.
// Classification walks it in order and returns the first match, so the
// registry must be fully populated before first use; all variants are
// statically known here.
var variantRegistry = []variantDef{
	{VariantImage, imageContentType.MatchString},
	{VariantVideo, videoContentType.MatchString},
	{VariantPDF, func(ct string) bool { return ct == "application/pdf" }},
	{VariantSpreadsheet, func(ct string) bool { return spreadsheetContentTypes[ct] }},
}

// Classify maps a content type to a blob variant. Content types matching no
// registered variant classify as generic.
func Classify(contentType string) Variant {
	for _, def := range variantRegistry {
		if def.match(contentType) {
			return def.variant
		}
	}
	return VariantGeneric
}

// ValidateContentType reports whether the content type is acceptable for the
// given variant. The generic variant accepts any non-empty content type.
func ValidateContentType(v Variant, contentType string) bool {
	if contentType == "" {
		return false
	}
	for _, def := range variantRegistry {
		if def.variant == v {
			return def.match(contentType)
		}
	}
	return v == VariantGeneric
}
