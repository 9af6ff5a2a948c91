package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/laserblob/laserblob/pkg/laserblob"
)

// Backend is a local-filesystem implementation of the laserblob.Storage
// interface. Keys are sharded into two levels of two-character
// subdirectories (id "abc123..." lives at "ab/c1/abc123...") to bound
// directory fan-out.
type Backend struct {
	baseDir   string
	urlPrefix string
}

// Config options for the filesystem backend
type Config struct {
	BaseDir   string // Base directory for storing files
	URLPrefix string // Optional prefix prepended to download paths
}

// New creates a new filesystem storage backend
func New(config Config) (laserblob.Storage, error) {
	if config.BaseDir == "" {
		return nil, errors.New("base directory is required")
	}

	if err := os.MkdirAll(config.BaseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &Backend{
		baseDir:   config.BaseDir,
		urlPrefix: strings.TrimSuffix(config.URLPrefix, "/"),
	}, nil
}

func (b *Backend) pathFor(id string) string {
	if len(id) < 4 {
		return filepath.Join(b.baseDir, id)
	}
	return filepath.Join(b.baseDir, id[0:2], id[2:4], id)
}

// Write copies the byte source into the sharded layout. Overwrites are safe.
func (b *Backend) Write(ctx context.Context, id string, r io.Reader, opts laserblob.WriteOptions) error {
	filePath := b.pathFor(id)

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	// The content type is not stored separately; it lives on the blob row.
	if _, err := io.Copy(file, r); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}

// Read opens the object at the key
func (b *Backend) Read(ctx context.Context, id string) (io.ReadCloser, error) {
	file, err := os.Open(b.pathFor(id))
	if os.IsNotExist(err) {
		return nil, laserblob.ErrObjectNotFound
	} else if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return file, nil
}

// Delete removes the object; deleting an absent key is a no-op
func (b *Backend) Delete(ctx context.Context, id string) error {
	filePath := b.pathFor(id)

	if err := os.Remove(filePath); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to delete file: %w", err)
	}

	b.cleanupEmptyDirectories(filepath.Dir(filePath))
	return nil
}

// Exists reports whether an object exists at the key
func (b *Backend) Exists(ctx context.Context, id string) (bool, error) {
	_, err := os.Stat(b.pathFor(id))
	if os.IsNotExist(err) {
		return false, nil
	} else if err != nil {
		return false, err
	}
	return true, nil
}

// URL returns a stable application-relative download path. The path is
// never time-limited, so ExpiresIn and disposition options are ignored;
// the serving application applies them at response time.
func (b *Backend) URL(ctx context.Context, id string, opts laserblob.URLOptions) (string, error) {
	return fmt.Sprintf("%s/blobs/%s/download", b.urlPrefix, id), nil
}

// WithTempFile copies the object into a scoped temporary file and hands its
// path to fn; the file is removed on every exit path.
func (b *Backend) WithTempFile(ctx context.Context, id string, basenameHint string, fn func(path string) error) error {
	src, err := b.Read(ctx, id)
	if err != nil {
		return err
	}
	defer src.Close()

	tmp, err := os.CreateTemp("", tempPattern(basenameHint))
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	_, err = io.Copy(tmp, src)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("failed to copy to temp file: %w", err)
	}

	return fn(tmp.Name())
}

// tempPattern turns a basename hint like "report.pdf" into an os.CreateTemp
// pattern keeping the extension ("report-*.pdf").
func tempPattern(hint string) string {
	if hint == "" {
		return "blob-*"
	}
	ext := filepath.Ext(hint)
	return strings.TrimSuffix(filepath.Base(hint), ext) + "-*" + ext
}

// cleanupEmptyDirectories recursively removes empty shard directories up to
// the base directory.
func (b *Backend) cleanupEmptyDirectories(dir string) {
	if dir == b.baseDir {
		return
	}

	if entries, err := os.ReadDir(dir); err == nil && len(entries) == 0 {
		if os.Remove(dir) == nil {
			b.cleanupEmptyDirectories(filepath.Dir(dir))
		}
	}
}
