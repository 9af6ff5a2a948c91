package laserblob

import (
	"crypto/rand"
	"encoding/hex"
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// asciiFold decomposes characters and strips combining marks so accented
// letters reduce to their ASCII base form.
var asciiFold = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// SanitizeFilename reduces a filename to printable ASCII, transliterating
// accented characters where possible and dropping the rest.
func SanitizeFilename(filename string) string {
	if filename == "" {
		return ""
	}

	folded, _, err := transform.String(asciiFold, filename)
	if err != nil {
		folded = filename
	}

	var result strings.Builder
	result.Grow(len(folded))
	for _, r := range folded {
		if r < 128 && unicode.IsPrint(r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// filenameFromPath derives a display filename from a local path, with the
// extension lowercased.
func filenameFromPath(p string) string {
	base := filepath.Base(p)
	ext := filepath.Ext(base)
	return strings.TrimSuffix(base, ext) + strings.ToLower(ext)
}

// defaultFilename synthesizes a filename for attachments created without
// one: "<role>-<20 hex chars>".
func defaultFilename(role string) string {
	buf := make([]byte, 10)
	rand.Read(buf)
	return role + "-" + hex.EncodeToString(buf)
}
