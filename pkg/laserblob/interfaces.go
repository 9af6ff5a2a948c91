package laserblob

import (
	"context"
	"io"

	"github.com/google/uuid"
)

// Storage defines the interface for byte-storage backends. Keys are blob ids
// in string form; implementations decide the physical layout behind a key.
type Storage interface {
	// Write copies the byte source into backend-managed storage under the
	// key. Overwriting an existing key with the same bytes is safe.
	Write(ctx context.Context, id string, r io.Reader, opts WriteOptions) error

	// Read returns the bytes at the key. Fails with ErrObjectNotFound when
	// no object exists there.
	Read(ctx context.Context, id string) (io.ReadCloser, error)

	// Delete removes the object. Deleting an absent key is a no-op.
	Delete(ctx context.Context, id string) error

	// Exists reports whether an object exists at the key.
	Exists(ctx context.Context, id string) (bool, error)

	// URL returns a download URL for the key: a stable application-relative
	// path for local backends, a time-limited presigned URL for remote ones.
	URL(ctx context.Context, id string, opts URLOptions) (string, error)

	// WithTempFile copies the object into a scoped temporary file and hands
	// its path to fn. The file is removed on every exit path once fn
	// returns.
	WithTempFile(ctx context.Context, id string, basenameHint string, fn func(path string) error) error
}

// Repository defines the interface for blob and attachment persistence. The
// uniqueness invariants on (variant, digest) and (blob, owner, role,
// filename) are authoritative here: implementations must surface violations
// as ErrDuplicateBlob and ErrDuplicateAttachment respectively.
type Repository interface {
	// Blob operations
	CreateBlob(ctx context.Context, blob *Blob) error
	GetBlob(ctx context.Context, id uuid.UUID) (*Blob, error)
	FindBlobByDigest(ctx context.Context, variant Variant, digest []byte) (*Blob, error)
	UpdateBlobMetadata(ctx context.Context, id uuid.UUID, metadata map[string]interface{}) error
	DeleteBlob(ctx context.Context, id uuid.UUID) error

	// Attachment operations
	CreateAttachment(ctx context.Context, attachment *Attachment) error
	UpdateAttachment(ctx context.Context, attachment *Attachment) error
	GetAttachment(ctx context.Context, id uuid.UUID) (*Attachment, error)
	// ListAttachments returns the owner's attachments for a role ordered by
	// position ascending.
	ListAttachments(ctx context.Context, owner OwnerRef, role string) ([]*Attachment, error)
	DeleteAttachment(ctx context.Context, id uuid.UUID) error
	DeleteAttachmentsForOwner(ctx context.Context, owner OwnerRef) error
}

// MetadataExtractor analyzes a locally accessible copy of a blob's bytes and
// produces its metadata map. Implementations are format specific (image,
// video, pdf, spreadsheet introspection) and live outside this library.
type MetadataExtractor interface {
	Extract(ctx context.Context, variant Variant, path string) (map[string]interface{}, error)
}

// EventSink defines the interface for event handling
type EventSink interface {
	// BlobCreated is fired after a new blob row and its bytes are persisted.
	// It is not fired for deduplicated creates that returned an existing blob.
	BlobCreated(ctx context.Context, blob *Blob) error

	// BlobDeleted is fired after a blob and its bytes are removed
	BlobDeleted(ctx context.Context, blobID uuid.UUID) error

	// AttachmentSaved is fired when an attachment is created or updated
	AttachmentSaved(ctx context.Context, attachment *Attachment) error

	// AttachmentDeleted is fired when an attachment is removed
	AttachmentDeleted(ctx context.Context, attachmentID uuid.UUID) error
}
