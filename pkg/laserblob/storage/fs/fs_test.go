package fs

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/laserblob/laserblob/pkg/laserblob"
)

func newTestBackend(t *testing.T) (laserblob.Storage, string) {
	t.Helper()
	dir := t.TempDir()
	backend, err := New(Config{BaseDir: dir, URLPrefix: "/files"})
	require.NoError(t, err)
	return backend, dir
}

func TestNew(t *testing.T) {
	t.Run("requires base dir", func(t *testing.T) {
		_, err := New(Config{})
		assert.Error(t, err)
	})

	t.Run("creates base dir", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "nested", "storage")
		_, err := New(Config{BaseDir: dir})
		require.NoError(t, err)

		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})
}

func TestWriteRead(t *testing.T) {
	backend, dir := newTestBackend(t)
	ctx := context.Background()

	id := "abc123def456"
	data := []byte("round trip payload")

	require.NoError(t, backend.Write(ctx, id, bytes.NewReader(data), laserblob.WriteOptions{ContentType: "text/plain"}))

	t.Run("sharded layout", func(t *testing.T) {
		_, err := os.Stat(filepath.Join(dir, "ab", "c1", id))
		assert.NoError(t, err)
	})

	t.Run("read returns written bytes", func(t *testing.T) {
		rc, err := backend.Read(ctx, id)
		require.NoError(t, err)
		defer rc.Close()

		got, err := io.ReadAll(rc)
		require.NoError(t, err)
		assert.Equal(t, data, got)
	})

	t.Run("overwrite replaces bytes", func(t *testing.T) {
		require.NoError(t, backend.Write(ctx, id, bytes.NewReader([]byte("v2")), laserblob.WriteOptions{}))

		rc, err := backend.Read(ctx, id)
		require.NoError(t, err)
		defer rc.Close()
		got, _ := io.ReadAll(rc)
		assert.Equal(t, []byte("v2"), got)
	})

	t.Run("missing key", func(t *testing.T) {
		_, err := backend.Read(ctx, "0000missing")
		assert.ErrorIs(t, err, laserblob.ErrObjectNotFound)
	})
}

func TestExists(t *testing.T) {
	backend, _ := newTestBackend(t)
	ctx := context.Background()

	exists, err := backend.Exists(ctx, "nothinghere")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, backend.Write(ctx, "somethinghere", bytes.NewReader([]byte("x")), laserblob.WriteOptions{}))

	exists, err = backend.Exists(ctx, "somethinghere")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestDelete(t *testing.T) {
	backend, dir := newTestBackend(t)
	ctx := context.Background()

	id := "deadbeefcafe"
	require.NoError(t, backend.Write(ctx, id, bytes.NewReader([]byte("x")), laserblob.WriteOptions{}))
	require.NoError(t, backend.Delete(ctx, id))

	exists, err := backend.Exists(ctx, id)
	require.NoError(t, err)
	assert.False(t, exists)

	t.Run("empty shard directories are pruned", func(t *testing.T) {
		_, err := os.Stat(filepath.Join(dir, "de"))
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("deleting an absent key is a no-op", func(t *testing.T) {
		assert.NoError(t, backend.Delete(ctx, id))
	})
}

func TestURL(t *testing.T) {
	backend, _ := newTestBackend(t)
	ctx := context.Background()

	url, err := backend.URL(ctx, "someid", laserblob.URLOptions{Disposition: "inline", Filename: "x.png"})
	require.NoError(t, err)
	assert.Equal(t, "/files/blobs/someid/download", url)
}

func TestWithTempFile(t *testing.T) {
	backend, _ := newTestBackend(t)
	ctx := context.Background()

	id := "tempfileblob"
	data := []byte("temp file payload")
	require.NoError(t, backend.Write(ctx, id, bytes.NewReader(data), laserblob.WriteOptions{}))

	var seenPath string
	err := backend.WithTempFile(ctx, id, "report.pdf", func(path string) error {
		seenPath = path
		assert.Equal(t, ".pdf", filepath.Ext(path))

		got, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, data, got)
		return nil
	})
	require.NoError(t, err)

	_, err = os.Stat(seenPath)
	assert.True(t, os.IsNotExist(err), "temp file must be removed after the callback")

	t.Run("missing key", func(t *testing.T) {
		err := backend.WithTempFile(ctx, "0000missing", "", func(string) error { return nil })
		assert.ErrorIs(t, err, laserblob.ErrObjectNotFound)
	})
}
