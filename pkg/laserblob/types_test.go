package laserblob

import (
	"crypto/sha1"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		contentType string
		expected    Variant
	}{
		{"image/png", VariantImage},
		{"image/jpeg", VariantImage},
		{"image/webp", VariantImage},
		{"video/mp4", VariantVideo},
		{"video/quicktime", VariantVideo},
		{"video/x-matroska", VariantVideo},
		{"application/pdf", VariantPDF},
		{"text/csv", VariantSpreadsheet},
		{"application/csv", VariantSpreadsheet},
		{"application/vnd.ms-excel", VariantSpreadsheet},
		{"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", VariantSpreadsheet},
		// image subtypes with punctuation fall outside the image pattern
		{"image/svg+xml", VariantGeneric},
		{"application/zip", VariantGeneric},
		{"text/plain", VariantGeneric},
		{"application/octet-stream", VariantGeneric},
		{"", VariantGeneric},
		// prefixes are anchored, not substring matches
		{"application/pdfx", VariantGeneric},
		{"text/csv2", VariantGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.contentType, func(t *testing.T) {
			assert.Equal(t, tt.expected, Classify(tt.contentType))
		})
	}
}

func TestValidateContentType(t *testing.T) {
	assert.True(t, ValidateContentType(VariantImage, "image/png"))
	assert.False(t, ValidateContentType(VariantImage, "application/pdf"))
	assert.True(t, ValidateContentType(VariantPDF, "application/pdf"))
	assert.False(t, ValidateContentType(VariantPDF, "image/png"))
	assert.True(t, ValidateContentType(VariantSpreadsheet, "text/csv"))
	assert.False(t, ValidateContentType(VariantSpreadsheet, "text/plain"))

	// generic accepts anything non-empty
	assert.True(t, ValidateContentType(VariantGeneric, "application/zip"))
	assert.True(t, ValidateContentType(VariantGeneric, "text/plain"))
	assert.False(t, ValidateContentType(VariantGeneric, ""))
	assert.False(t, ValidateContentType(VariantImage, ""))
}

func TestBlobValidate(t *testing.T) {
	valid := func() *Blob {
		return &Blob{
			Variant:     VariantImage,
			ContentType: "image/png",
			Size:        42,
			Digest:      make([]byte, sha1.Size),
		}
	}

	t.Run("valid blob", func(t *testing.T) {
		assert.NoError(t, valid().Validate())
	})

	t.Run("missing content type", func(t *testing.T) {
		b := valid()
		b.ContentType = ""
		assert.ErrorIs(t, b.Validate(), ErrInvalidBlob)
	})

	t.Run("zero size", func(t *testing.T) {
		b := valid()
		b.Size = 0
		assert.ErrorIs(t, b.Validate(), ErrInvalidBlob)
	})

	t.Run("short digest", func(t *testing.T) {
		b := valid()
		b.Digest = make([]byte, 16)
		assert.ErrorIs(t, b.Validate(), ErrInvalidBlob)
	})

	t.Run("content type outside variant", func(t *testing.T) {
		b := valid()
		b.ContentType = "application/pdf"
		assert.ErrorIs(t, b.Validate(), ErrInvalidBlob)
	})
}

func TestResolveContentType(t *testing.T) {
	t.Run("explicit wins over sniffed", func(t *testing.T) {
		assert.Equal(t, "image/png", resolveContentType("image/png", "application/zip", "x.zip"))
	})

	t.Run("sniffed used when no explicit", func(t *testing.T) {
		assert.Equal(t, "image/jpeg", resolveContentType("", "image/jpeg", ""))
	})

	t.Run("octet-stream re-sniffed from extension", func(t *testing.T) {
		ct := resolveContentType("", "application/octet-stream", "report.xlsx")
		assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", ct)
	})

	t.Run("extension fallback when nothing known", func(t *testing.T) {
		assert.Equal(t, "text/csv", resolveContentType("", "", "data.csv"))
	})

	t.Run("defaults to octet-stream", func(t *testing.T) {
		assert.Equal(t, "application/octet-stream", resolveContentType("", "", ""))
		assert.Equal(t, "application/octet-stream", resolveContentType("", "", "noextension"))
	})
}

func TestDecodeBase64(t *testing.T) {
	t.Run("standard padded", func(t *testing.T) {
		decoded, err := decodeBase64("aGVsbG8=")
		require.NoError(t, err)
		assert.Equal(t, []byte("hello"), decoded)
	})

	t.Run("unpadded", func(t *testing.T) {
		decoded, err := decodeBase64("aGVsbG8")
		require.NoError(t, err)
		assert.Equal(t, []byte("hello"), decoded)
	})

	t.Run("embedded newlines", func(t *testing.T) {
		decoded, err := decodeBase64("aGVs\nbG8=\n")
		require.NoError(t, err)
		assert.Equal(t, []byte("hello"), decoded)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := decodeBase64("!!not base64!!")
		assert.Error(t, err)
	})
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"report.pdf", "report.pdf"},
		{"résumé.pdf", "resume.pdf"},
		{"über mapå.png", "uber mapa.png"},
		{"emoji\U0001F600.png", "emoji.png"},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, SanitizeFilename(tt.in))
	}
}

func TestContentDisposition(t *testing.T) {
	t.Run("default attachment", func(t *testing.T) {
		assert.Equal(t, "attachment", URLOptions{}.ContentDisposition())
	})

	t.Run("inline", func(t *testing.T) {
		assert.Equal(t, "inline", URLOptions{Disposition: "inline"}.ContentDisposition())
	})

	t.Run("filename encoded", func(t *testing.T) {
		cd := URLOptions{Filename: "résumé.pdf"}.ContentDisposition()
		assert.Equal(t, `attachment; filename="r%C3%A9sum%C3%A9.pdf"`, cd)
	})

	t.Run("slashes survive encoding", func(t *testing.T) {
		cd := URLOptions{Disposition: "inline", Filename: "a/b.pdf"}.ContentDisposition()
		assert.Equal(t, `inline; filename="a/b.pdf"`, cd)
	})
}

func TestRoleConfigAllows(t *testing.T) {
	open := RoleConfig{Role: "any"}
	assert.True(t, open.Allows(VariantGeneric))
	assert.True(t, open.Allows(VariantImage))

	restricted := RoleConfig{Role: "gallery", AllowedVariants: []Variant{VariantImage, VariantVideo}}
	assert.True(t, restricted.Allows(VariantImage))
	assert.True(t, restricted.Allows(VariantVideo))
	assert.False(t, restricted.Allows(VariantPDF))
	assert.False(t, restricted.Allows(VariantGeneric))
}

func TestBlobMetadataAccessors(t *testing.T) {
	b := &Blob{
		Variant: VariantVideo,
		Metadata: map[string]interface{}{
			"width":    float64(1920),
			"height":   float64(1080),
			"duration": 12.5,
			"bitrate":  float64(4000000),
			"codec":    "h264",
		},
	}

	assert.Equal(t, 1920, b.Width())
	assert.Equal(t, 1080, b.Height())
	assert.Equal(t, 12.5, b.Duration())
	assert.Equal(t, 4000000, b.Bitrate())
	assert.Equal(t, "h264", b.Codec())
	assert.InDelta(t, 16.0/9.0, b.AspectRatio(), 0.001)

	pdf := &Blob{
		Variant: VariantPDF,
		Metadata: map[string]interface{}{
			"pages": []interface{}{
				map[string]interface{}{"width": 612.0, "height": 792.0},
				map[string]interface{}{"width": 612.0, "height": 792.0},
			},
		},
	}
	assert.Equal(t, 2, pdf.PageCount())
	assert.InDelta(t, 612.0/792.0, pdf.AspectRatio(), 0.001)

	sheet := &Blob{
		Variant: VariantSpreadsheet,
		Metadata: map[string]interface{}{
			"sheets": []interface{}{
				map[string]interface{}{"name": "a", "rows": float64(10)},
				map[string]interface{}{"name": "b", "rows": float64(5)},
			},
		},
	}
	assert.Equal(t, 2, sheet.SheetCount())
	assert.Equal(t, 15, sheet.RowCount())

	empty := &Blob{Variant: VariantImage, Metadata: map[string]interface{}{}}
	assert.Zero(t, empty.Width())
	assert.Zero(t, empty.AspectRatio())
}
