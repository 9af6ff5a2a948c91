package memory

import (
	"bytes"
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/laserblob/laserblob/pkg/laserblob"
)

// Repository implements laserblob.Repository using in-memory storage.
// It enforces the same uniqueness rules as the PostgreSQL schema: one blob
// per (variant, digest) pair and one attachment per
// (blob, owner, role, filename) tuple.
type Repository struct {
	mu          sync.RWMutex
	blobs       map[uuid.UUID]*laserblob.Blob
	attachments map[uuid.UUID]*laserblob.Attachment
}

// New creates a new in-memory repository
func New() laserblob.Repository {
	return &Repository{
		blobs:       make(map[uuid.UUID]*laserblob.Blob),
		attachments: make(map[uuid.UUID]*laserblob.Attachment),
	}
}

// Blob operations

func (r *Repository) CreateBlob(ctx context.Context, blob *laserblob.Blob) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, b := range r.blobs {
		if b.Variant == blob.Variant && bytes.Equal(b.Digest, blob.Digest) {
			return laserblob.ErrDuplicateBlob
		}
	}

	// Create a copy to avoid external modifications
	blobCopy := copyBlob(blob)
	r.blobs[blob.ID] = blobCopy

	return nil
}

func (r *Repository) GetBlob(ctx context.Context, id uuid.UUID) (*laserblob.Blob, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	blob, exists := r.blobs[id]
	if !exists {
		return nil, laserblob.ErrBlobNotFound
	}
	return copyBlob(blob), nil
}

func (r *Repository) FindBlobByDigest(ctx context.Context, variant laserblob.Variant, digest []byte) (*laserblob.Blob, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, b := range r.blobs {
		if b.Variant == variant && bytes.Equal(b.Digest, digest) {
			return copyBlob(b), nil
		}
	}
	return nil, laserblob.ErrBlobNotFound
}

func (r *Repository) UpdateBlobMetadata(ctx context.Context, id uuid.UUID, metadata map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	blob, exists := r.blobs[id]
	if !exists {
		return laserblob.ErrBlobNotFound
	}

	merged := make(map[string]interface{}, len(blob.Metadata)+len(metadata))
	for k, v := range blob.Metadata {
		merged[k] = v
	}
	for k, v := range metadata {
		merged[k] = v
	}
	blob.Metadata = merged
	return nil
}

func (r *Repository) DeleteBlob(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.blobs[id]; !exists {
		return laserblob.ErrBlobNotFound
	}
	delete(r.blobs, id)
	return nil
}

// Attachment operations

func (r *Repository) CreateAttachment(ctx context.Context, att *laserblob.Attachment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, a := range r.attachments {
		if a.BlobID == att.BlobID && a.Owner == att.Owner && a.Role == att.Role && a.Filename == att.Filename {
			return laserblob.ErrDuplicateAttachment
		}
	}

	attCopy := *att
	r.attachments[att.ID] = &attCopy
	return nil
}

func (r *Repository) UpdateAttachment(ctx context.Context, att *laserblob.Attachment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.attachments[att.ID]; !exists {
		return laserblob.ErrAttachmentNotFound
	}

	for _, a := range r.attachments {
		if a.ID != att.ID && a.BlobID == att.BlobID && a.Owner == att.Owner && a.Role == att.Role && a.Filename == att.Filename {
			return laserblob.ErrDuplicateAttachment
		}
	}

	attCopy := *att
	r.attachments[att.ID] = &attCopy
	return nil
}

func (r *Repository) GetAttachment(ctx context.Context, id uuid.UUID) (*laserblob.Attachment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	att, exists := r.attachments[id]
	if !exists {
		return nil, laserblob.ErrAttachmentNotFound
	}
	attCopy := *att
	return &attCopy, nil
}

func (r *Repository) ListAttachments(ctx context.Context, owner laserblob.OwnerRef, role string) ([]*laserblob.Attachment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*laserblob.Attachment
	for _, a := range r.attachments {
		if a.Owner == owner && a.Role == role {
			attCopy := *a
			result = append(result, &attCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Position != result[j].Position {
			return result[i].Position < result[j].Position
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	return result, nil
}

func (r *Repository) DeleteAttachment(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.attachments[id]; !exists {
		return laserblob.ErrAttachmentNotFound
	}
	delete(r.attachments, id)
	return nil
}

func (r *Repository) DeleteAttachmentsForOwner(ctx context.Context, owner laserblob.OwnerRef) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, a := range r.attachments {
		if a.Owner == owner {
			delete(r.attachments, id)
		}
	}
	return nil
}

func copyBlob(b *laserblob.Blob) *laserblob.Blob {
	blobCopy := *b
	blobCopy.Digest = append([]byte(nil), b.Digest...)
	if b.Metadata != nil {
		blobCopy.Metadata = make(map[string]interface{}, len(b.Metadata))
		for k, v := range b.Metadata {
			blobCopy.Metadata[k] = v
		}
	}
	return &blobCopy
}
