package laserblob

import (
	"context"

	"github.com/google/uuid"
)

// Service defines the main interface for the laserblob library
type Service interface {
	// Blob operations
	CreateBlob(ctx context.Context, req CreateBlobRequest) (*Blob, error)
	GetBlob(ctx context.Context, id uuid.UUID) (*Blob, error)
	DeleteBlob(ctx context.Context, id uuid.UUID) error
	BlobURL(ctx context.Context, id uuid.UUID, opts URLOptions) (string, error)
	// OpenBlob copies the blob's bytes into a scoped temporary file and
	// hands its path to fn; the file is removed when fn returns.
	OpenBlob(ctx context.Context, id uuid.UUID, fn func(path string) error) error
	// ExtractMetadata runs the variant's registered MetadataExtractor over a
	// local copy of the blob's bytes and persists the resulting map.
	ExtractMetadata(ctx context.Context, id uuid.UUID) (map[string]interface{}, error)

	// Attachment resolution
	SetAttachment(ctx context.Context, owner OwnerRef, cfg RoleConfig, params *AttachmentParams) (*Attachment, error)
	SetAttachments(ctx context.Context, owner OwnerRef, cfg RoleConfig, params []AttachmentParams) ([]*Attachment, error)
	GetAttachment(ctx context.Context, owner OwnerRef, role string) (*Attachment, error)
	ListAttachments(ctx context.Context, owner OwnerRef, role string) ([]*Attachment, error)
	DeleteAttachment(ctx context.Context, id uuid.UUID) error
	DeleteOwnerAttachments(ctx context.Context, owner OwnerRef) error
	AttachmentURL(ctx context.Context, id uuid.UUID, opts URLOptions) (string, error)
	OpenAttachment(ctx context.Context, id uuid.UUID, fn func(path string) error) error
}
