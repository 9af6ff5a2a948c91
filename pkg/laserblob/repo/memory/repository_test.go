package memory

import (
	"context"
	"crypto/sha1"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/laserblob/laserblob/pkg/laserblob"
)

func newBlob(variant laserblob.Variant, contentType string, data []byte) *laserblob.Blob {
	sum := sha1.Sum(data)
	now := time.Now().UTC()
	return &laserblob.Blob{
		ID:          uuid.New(),
		Variant:     variant,
		ContentType: contentType,
		Size:        int64(len(data)),
		Digest:      sum[:],
		Metadata:    map[string]interface{}{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func newAttachment(blobID uuid.UUID, owner laserblob.OwnerRef, role, filename string, position int) *laserblob.Attachment {
	now := time.Now().UTC()
	return &laserblob.Attachment{
		ID:        uuid.New(),
		BlobID:    blobID,
		Owner:     owner,
		Role:      role,
		Position:  position,
		Filename:  filename,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestBlobOperations(t *testing.T) {
	repo := New()
	ctx := context.Background()

	blob := newBlob(laserblob.VariantImage, "image/png", []byte("pixels"))

	t.Run("create and get", func(t *testing.T) {
		require.NoError(t, repo.CreateBlob(ctx, blob))

		got, err := repo.GetBlob(ctx, blob.ID)
		require.NoError(t, err)
		assert.Equal(t, blob.ID, got.ID)
		assert.Equal(t, blob.Digest, got.Digest)
	})

	t.Run("duplicate digest under same variant rejected", func(t *testing.T) {
		dup := newBlob(laserblob.VariantImage, "image/png", []byte("pixels"))
		err := repo.CreateBlob(ctx, dup)
		assert.ErrorIs(t, err, laserblob.ErrDuplicateBlob)
	})

	t.Run("same digest under another variant allowed", func(t *testing.T) {
		other := newBlob(laserblob.VariantGeneric, "application/octet-stream", []byte("pixels"))
		assert.NoError(t, repo.CreateBlob(ctx, other))
	})

	t.Run("find by digest", func(t *testing.T) {
		got, err := repo.FindBlobByDigest(ctx, laserblob.VariantImage, blob.Digest)
		require.NoError(t, err)
		assert.Equal(t, blob.ID, got.ID)

		_, err = repo.FindBlobByDigest(ctx, laserblob.VariantPDF, blob.Digest)
		assert.ErrorIs(t, err, laserblob.ErrBlobNotFound)
	})

	t.Run("returned blobs are copies", func(t *testing.T) {
		got, err := repo.GetBlob(ctx, blob.ID)
		require.NoError(t, err)
		got.Digest[0] ^= 0xff
		got.Metadata["tainted"] = true

		fresh, err := repo.GetBlob(ctx, blob.ID)
		require.NoError(t, err)
		assert.Equal(t, blob.Digest, fresh.Digest)
		assert.NotContains(t, fresh.Metadata, "tainted")
	})

	t.Run("metadata updates merge", func(t *testing.T) {
		require.NoError(t, repo.UpdateBlobMetadata(ctx, blob.ID, map[string]interface{}{"width": 640}))
		require.NoError(t, repo.UpdateBlobMetadata(ctx, blob.ID, map[string]interface{}{"height": 480}))

		got, err := repo.GetBlob(ctx, blob.ID)
		require.NoError(t, err)
		assert.Equal(t, 640, got.Metadata["width"])
		assert.Equal(t, 480, got.Metadata["height"])
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, repo.DeleteBlob(ctx, blob.ID))

		_, err := repo.GetBlob(ctx, blob.ID)
		assert.ErrorIs(t, err, laserblob.ErrBlobNotFound)

		assert.ErrorIs(t, repo.DeleteBlob(ctx, blob.ID), laserblob.ErrBlobNotFound)
	})
}

func TestAttachmentOperations(t *testing.T) {
	repo := New()
	ctx := context.Background()

	owner := laserblob.OwnerRef{Type: "Report", ID: "1"}
	blobID := uuid.New()

	t.Run("create and get", func(t *testing.T) {
		att := newAttachment(blobID, owner, "cover", "cover.png", 0)
		require.NoError(t, repo.CreateAttachment(ctx, att))

		got, err := repo.GetAttachment(ctx, att.ID)
		require.NoError(t, err)
		assert.Equal(t, att.Filename, got.Filename)
	})

	t.Run("duplicate tuple rejected", func(t *testing.T) {
		dup := newAttachment(blobID, owner, "cover", "cover.png", 1)
		assert.ErrorIs(t, repo.CreateAttachment(ctx, dup), laserblob.ErrDuplicateAttachment)

		// a different filename makes the tuple unique again
		ok := newAttachment(blobID, owner, "cover", "other.png", 1)
		assert.NoError(t, repo.CreateAttachment(ctx, ok))
	})

	t.Run("list is position ordered", func(t *testing.T) {
		o := laserblob.OwnerRef{Type: "Album", ID: "2"}
		third := newAttachment(uuid.New(), o, "photos", "3.png", 2)
		first := newAttachment(uuid.New(), o, "photos", "1.png", 0)
		second := newAttachment(uuid.New(), o, "photos", "2.png", 1)

		for _, att := range []*laserblob.Attachment{third, first, second} {
			require.NoError(t, repo.CreateAttachment(ctx, att))
		}

		listed, err := repo.ListAttachments(ctx, o, "photos")
		require.NoError(t, err)
		require.Len(t, listed, 3)
		assert.Equal(t, "1.png", listed[0].Filename)
		assert.Equal(t, "2.png", listed[1].Filename)
		assert.Equal(t, "3.png", listed[2].Filename)
	})

	t.Run("list scopes by owner and role", func(t *testing.T) {
		listed, err := repo.ListAttachments(ctx, owner, "photos")
		require.NoError(t, err)
		assert.Empty(t, listed)

		listed, err = repo.ListAttachments(ctx, laserblob.OwnerRef{Type: "Report", ID: "nope"}, "cover")
		require.NoError(t, err)
		assert.Empty(t, listed)
	})

	t.Run("update", func(t *testing.T) {
		listed, err := repo.ListAttachments(ctx, owner, "cover")
		require.NoError(t, err)
		require.NotEmpty(t, listed)

		att := listed[0]
		att.Position = 7
		att.Filename = "renamed.png"
		require.NoError(t, repo.UpdateAttachment(ctx, att))

		got, err := repo.GetAttachment(ctx, att.ID)
		require.NoError(t, err)
		assert.Equal(t, 7, got.Position)
		assert.Equal(t, "renamed.png", got.Filename)

		missing := newAttachment(blobID, owner, "cover", "ghost.png", 0)
		assert.ErrorIs(t, repo.UpdateAttachment(ctx, missing), laserblob.ErrAttachmentNotFound)
	})

	t.Run("delete for owner removes every role", func(t *testing.T) {
		require.NoError(t, repo.DeleteAttachmentsForOwner(ctx, owner))

		listed, err := repo.ListAttachments(ctx, owner, "cover")
		require.NoError(t, err)
		assert.Empty(t, listed)

		// other owners untouched
		listed, err = repo.ListAttachments(ctx, laserblob.OwnerRef{Type: "Album", ID: "2"}, "photos")
		require.NoError(t, err)
		assert.Len(t, listed, 3)
	})
}
