package memory

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/laserblob/laserblob/pkg/laserblob"
)

func TestWriteRead(t *testing.T) {
	backend := New()
	ctx := context.Background()

	data := []byte("in memory payload")
	require.NoError(t, backend.Write(ctx, "key1", bytes.NewReader(data), laserblob.WriteOptions{ContentType: "text/plain"}))

	rc, err := backend.Read(ctx, "key1")
	require.NoError(t, err)
	defer rc.Close()

	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, data, got)

	_, err = backend.Read(ctx, "missing")
	assert.ErrorIs(t, err, laserblob.ErrObjectNotFound)
}

func TestDelete(t *testing.T) {
	backend := New()
	ctx := context.Background()

	require.NoError(t, backend.Write(ctx, "key1", bytes.NewReader([]byte("x")), laserblob.WriteOptions{}))
	require.NoError(t, backend.Delete(ctx, "key1"))

	exists, err := backend.Exists(ctx, "key1")
	require.NoError(t, err)
	assert.False(t, exists)

	// absent keys are a no-op
	assert.NoError(t, backend.Delete(ctx, "missing"))
}

func TestWriteCount(t *testing.T) {
	backend := New()
	ctx := context.Background()

	assert.Zero(t, backend.WriteCount())

	require.NoError(t, backend.Write(ctx, "a", bytes.NewReader([]byte("1")), laserblob.WriteOptions{}))
	require.NoError(t, backend.Write(ctx, "b", bytes.NewReader([]byte("2")), laserblob.WriteOptions{}))
	assert.Equal(t, 2, backend.WriteCount())
}

func TestURL(t *testing.T) {
	backend := New()
	ctx := context.Background()

	_, err := backend.URL(ctx, "missing", laserblob.URLOptions{})
	assert.ErrorIs(t, err, laserblob.ErrObjectNotFound)

	require.NoError(t, backend.Write(ctx, "key1", bytes.NewReader([]byte("x")), laserblob.WriteOptions{}))
	url, err := backend.URL(ctx, "key1", laserblob.URLOptions{})
	require.NoError(t, err)
	assert.Equal(t, "memory://blobs/key1", url)
}
