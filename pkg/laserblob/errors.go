package laserblob

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Error types
var (
	// ErrBlobNotFound indicates a blob row was not found
	ErrBlobNotFound = errors.New("blob not found")

	// ErrAttachmentNotFound indicates an attachment was not found
	ErrAttachmentNotFound = errors.New("attachment not found")

	// ErrObjectNotFound indicates no bytes exist at a storage key
	ErrObjectNotFound = errors.New("object not found")

	// ErrDuplicateBlob indicates a (variant, digest) uniqueness violation
	ErrDuplicateBlob = errors.New("blob already exists")

	// ErrDuplicateAttachment indicates a (blob, owner, role, filename) uniqueness violation
	ErrDuplicateAttachment = errors.New("blob already attached")

	// ErrInvalidBlob indicates a blob failed structural validation
	ErrInvalidBlob = errors.New("invalid blob")

	// ErrMissingSource indicates a create request carried no byte source
	ErrMissingSource = errors.New("blob source is required")

	// ErrInvalidSourceURL indicates a remote source URL was malformed or not http(s)
	ErrInvalidSourceURL = errors.New("invalid source url")

	// ErrInvalidBase64 indicates a base64 source could not be decoded
	ErrInvalidBase64 = errors.New("invalid base64 source")

	// ErrWrongCardinality indicates a single-valued call against a
	// multi-valued role or vice versa
	ErrWrongCardinality = errors.New("role cardinality mismatch")

	// ErrExtractorNotFound indicates no metadata extractor is registered for a variant
	ErrExtractorNotFound = errors.New("no metadata extractor registered")
)

// BlobError represents an error related to blob operations
type BlobError struct {
	BlobID uuid.UUID
	Op     string
	Err    error
}

func (e *BlobError) Error() string {
	return fmt.Sprintf("blob operation %s failed for blob %s: %v", e.Op, e.BlobID, e.Err)
}

func (e *BlobError) Unwrap() error {
	return e.Err
}

// AttachmentError represents an error related to attachment resolution
type AttachmentError struct {
	Owner OwnerRef
	Role  string
	Op    string
	Err   error
}

func (e *AttachmentError) Error() string {
	return fmt.Sprintf("attachment operation %s failed for %s role %q: %v", e.Op, e.Owner, e.Role, e.Err)
}

func (e *AttachmentError) Unwrap() error {
	return e.Err
}

// StorageError represents an error related to storage backend operations
type StorageError struct {
	Key string
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage operation %s failed for key %s: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// FetchError represents a failed remote-URL download. StatusCode is zero
// when the request never produced a response.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch failed for %s: HTTP %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch failed for %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// OffendingBlob identifies one element of an attachment assignment that
// failed the role's variant restriction.
type OffendingBlob struct {
	Index   int
	BlobID  uuid.UUID
	Variant Variant
}

// InvalidBlobTypeError is returned when one or more blobs in an attachment
// assignment carry a variant outside the role's allowed set. It names every
// offending element; nothing is persisted when it is returned.
type InvalidBlobTypeError struct {
	Role      string
	Allowed   []Variant
	Offending []OffendingBlob
}

func (e *InvalidBlobTypeError) Error() string {
	allowed := make([]string, len(e.Allowed))
	for i, v := range e.Allowed {
		allowed[i] = string(v)
	}
	parts := make([]string, len(e.Offending))
	for i, o := range e.Offending {
		parts[i] = fmt.Sprintf("blob %s at index %d has variant %q", o.BlobID, o.Index, o.Variant)
	}
	return fmt.Sprintf("role %q allows variants [%s]: %s",
		e.Role, strings.Join(allowed, ", "), strings.Join(parts, "; "))
}

// DuplicateAttachmentError names the duplicate tuple when the same blob is
// attached twice under an identical role and filename to one owner.
type DuplicateAttachmentError struct {
	BlobID   uuid.UUID
	Owner    OwnerRef
	Role     string
	Filename string
}

func (e *DuplicateAttachmentError) Error() string {
	return fmt.Sprintf("blob %s already attached to %s under role %q with filename %q",
		e.BlobID, e.Owner, e.Role, e.Filename)
}

func (e *DuplicateAttachmentError) Unwrap() error {
	return ErrDuplicateAttachment
}

// ExtractionError represents a failed metadata extraction. The blob's
// metadata is left unchanged when it is returned.
type ExtractionError struct {
	BlobID  uuid.UUID
	Variant Variant
	Err     error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("metadata extraction failed for %s blob %s: %v", e.Variant, e.BlobID, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}
