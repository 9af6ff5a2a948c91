package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/laserblob/laserblob/pkg/laserblob"
)

// Backend is an in-memory implementation of the laserblob.Storage interface
type Backend struct {
	mu           sync.RWMutex
	objects      map[string][]byte
	contentTypes map[string]string
	writeCount   int
}

// New creates a new in-memory storage backend
func New() *Backend {
	return &Backend{
		objects:      make(map[string][]byte),
		contentTypes: make(map[string]string),
	}
}

// Write stores the byte source in memory
func (b *Backend) Write(ctx context.Context, id string, r io.Reader, opts laserblob.WriteOptions) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.objects[id] = data
	contentType := opts.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	b.contentTypes[id] = contentType
	b.writeCount++
	return nil
}

// Read returns a reader over the stored bytes
func (b *Backend) Read(ctx context.Context, id string) (io.ReadCloser, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	data, exists := b.objects[id]
	if !exists {
		return nil, laserblob.ErrObjectNotFound
	}

	return io.NopCloser(bytes.NewReader(data)), nil
}

// Delete removes the object; deleting an absent key is a no-op
func (b *Backend) Delete(ctx context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.objects, id)
	delete(b.contentTypes, id)
	return nil
}

// Exists reports whether an object is stored under the key
func (b *Backend) Exists(ctx context.Context, id string) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	_, exists := b.objects[id]
	return exists, nil
}

// URL returns a synthetic identifier; the memory backend serves no traffic
func (b *Backend) URL(ctx context.Context, id string, opts laserblob.URLOptions) (string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if _, exists := b.objects[id]; !exists {
		return "", laserblob.ErrObjectNotFound
	}
	return fmt.Sprintf("memory://blobs/%s", id), nil
}

// WithTempFile materializes the stored bytes into a scoped temporary file
func (b *Backend) WithTempFile(ctx context.Context, id string, basenameHint string, fn func(path string) error) error {
	b.mu.RLock()
	data, exists := b.objects[id]
	b.mu.RUnlock()
	if !exists {
		return laserblob.ErrObjectNotFound
	}

	tmp, err := os.CreateTemp("", "blob-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	_, err = tmp.Write(data)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}

	return fn(tmp.Name())
}

// WriteCount reports how many writes the backend has served. Test helper
// for asserting deduplicated ingests skip the second write.
func (b *Backend) WriteCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.writeCount
}
