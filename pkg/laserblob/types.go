package laserblob

import (
	"crypto/sha1"
	"fmt"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// Variant is the polymorphic behavior classification of a blob. It is fixed
// at creation and drives content-type validation, metadata extraction and
// attachment type restrictions.
type Variant string

// Registered blob variants.
const (
	VariantGeneric     Variant = "generic"
	VariantImage       Variant = "image"
	VariantVideo       Variant = "video"
	VariantPDF         Variant = "pdf"
	VariantSpreadsheet Variant = "spreadsheet"
)

// DigestSize is the required length of a blob digest in bytes (SHA-1).
const DigestSize = sha1.Size

// Blob is an immutable content record. The (Variant, Digest) pair is unique
// across all persisted blobs; identical bytes uploaded under the same
// declared content type always resolve to the same blob.
type Blob struct {
	ID          uuid.UUID              `json:"id"`
	Variant     Variant                `json:"variant"`
	ContentType string                 `json:"content_type"`
	Size        int64                  `json:"size"`
	Digest      []byte                 `json:"digest"`
	Metadata    map[string]interface{} `json:"metadata"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
}

// Validate checks the blob's structural invariants.
func (b *Blob) Validate() error {
	if b.ContentType == "" {
		return fmt.Errorf("%w: content type is required", ErrInvalidBlob)
	}
	if b.Size <= 0 {
		return fmt.Errorf("%w: size must be greater than zero", ErrInvalidBlob)
	}
	if len(b.Digest) != DigestSize {
		return fmt.Errorf("%w: digest must be exactly %d bytes", ErrInvalidBlob, DigestSize)
	}
	if !ValidateContentType(b.Variant, b.ContentType) {
		return fmt.Errorf("%w: content type %q is not valid for variant %q", ErrInvalidBlob, b.ContentType, b.Variant)
	}
	return nil
}

// Extension returns the canonical file extension for the blob's content
// type, including the leading dot. Empty when the content type is unknown.
func (b *Blob) Extension() string {
	if m := mimetype.Lookup(b.ContentType); m != nil {
		return m.Extension()
	}
	for ext, ct := range contentTypesByExtension {
		if ct == b.ContentType {
			return ext
		}
	}
	return ""
}

// Metadata accessors. Keys are populated by the variant's MetadataExtractor;
// a missing key yields the zero value.

// Width returns the pixel width for image and video blobs.
func (b *Blob) Width() int { return metaInt(b.Metadata, "width") }

// Height returns the pixel height for image and video blobs.
func (b *Blob) Height() int { return metaInt(b.Metadata, "height") }

// Duration returns the duration in seconds for video blobs.
func (b *Blob) Duration() float64 { return metaFloat(b.Metadata, "duration") }

// Bitrate returns the bitrate for video blobs.
func (b *Blob) Bitrate() int { return metaInt(b.Metadata, "bitrate") }

// Codec returns the video codec name.
func (b *Blob) Codec() string { s, _ := b.Metadata["codec"].(string); return s }

// PageCount returns the number of pages for pdf blobs.
func (b *Blob) PageCount() int {
	pages, _ := b.Metadata["pages"].([]interface{})
	return len(pages)
}

// SheetCount returns the number of sheets for spreadsheet blobs.
func (b *Blob) SheetCount() int {
	sheets, _ := b.Metadata["sheets"].([]interface{})
	return len(sheets)
}

// RowCount returns the total row count across sheets for spreadsheet blobs.
func (b *Blob) RowCount() int {
	sheets, _ := b.Metadata["sheets"].([]interface{})
	total := 0
	for _, s := range sheets {
		sheet, _ := s.(map[string]interface{})
		total += metaInt(sheet, "rows")
	}
	return total
}

// AspectRatio returns width/height for image and video blobs, or the aspect
// ratio of the first page for pdf blobs. Zero when unknown.
func (b *Blob) AspectRatio() float64 {
	switch b.Variant {
	case VariantImage, VariantVideo:
		w, h := b.Width(), b.Height()
		if w == 0 || h == 0 {
			return 0
		}
		return float64(w) / float64(h)
	case VariantPDF:
		pages, _ := b.Metadata["pages"].([]interface{})
		if len(pages) == 0 {
			return 0
		}
		first, _ := pages[0].(map[string]interface{})
		w, h := metaFloat(first, "width"), metaFloat(first, "height")
		if w == 0 || h == 0 {
			return 0
		}
		return w / h
	}
	return 0
}

func metaInt(m map[string]interface{}, key string) int {
	switch v := m[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

func metaFloat(m map[string]interface{}, key string) float64 {
	switch v := m[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return 0
}

// OwnerRef is a polymorphic reference to the record owning an attachment.
type OwnerRef struct {
	Type string `json:"record_type"`
	ID   string `json:"record_id"`
}

func (o OwnerRef) String() string {
	return o.Type + "/" + o.ID
}

// Cardinality declares how many attachments a role holds.
type Cardinality string

// Role cardinalities.
const (
	CardinalityOne  Cardinality = "one"
	CardinalityMany Cardinality = "many"
)

// RoleConfig declares an attachment slot on an owning record type. It is the
// only schema-level integration point the library requires from the
// embedding application.
type RoleConfig struct {
	Role            string
	Cardinality     Cardinality
	AllowedVariants []Variant // empty means any variant is accepted
}

// Allows reports whether the role accepts blobs of the given variant.
func (rc RoleConfig) Allows(v Variant) bool {
	if len(rc.AllowedVariants) == 0 {
		return true
	}
	for _, allowed := range rc.AllowedVariants {
		if allowed == v {
			return true
		}
	}
	return false
}

// Attachment is a named, ordered binding of a blob to an owning record. The
// (BlobID, Owner, Role, Filename) tuple is unique. Attachments reference
// blobs weakly: deleting an attachment never deletes the blob.
type Attachment struct {
	ID        uuid.UUID `json:"id"`
	BlobID    uuid.UUID `json:"blob_id"`
	Owner     OwnerRef  `json:"owner"`
	Role      string    `json:"role"`
	Position  int       `json:"order"`
	Filename  string    `json:"filename"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
