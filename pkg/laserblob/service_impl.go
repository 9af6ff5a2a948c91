package laserblob

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
)

// service implements the Service interface
type service struct {
	repository Repository
	storage    Storage
	eventSink  EventSink
	extractors map[Variant]MetadataExtractor
	httpClient *http.Client
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithRepository sets the repository for the service
func WithRepository(repo Repository) Option {
	return func(s *service) {
		s.repository = repo
	}
}

// WithStorage sets the byte-storage backend for the service
func WithStorage(storage Storage) Option {
	return func(s *service) {
		s.storage = storage
	}
}

// WithEventSink sets the event sink for the service
func WithEventSink(sink EventSink) Option {
	return func(s *service) {
		s.eventSink = sink
	}
}

// WithMetadataExtractor registers a metadata extractor for a variant
func WithMetadataExtractor(variant Variant, extractor MetadataExtractor) Option {
	return func(s *service) {
		if s.extractors == nil {
			s.extractors = make(map[Variant]MetadataExtractor)
		}
		s.extractors[variant] = extractor
	}
}

// WithHTTPClient sets the client used for remote-URL sources. Callers wrap
// it with their own timeout/cancellation policy.
func WithHTTPClient(client *http.Client) Option {
	return func(s *service) {
		s.httpClient = client
	}
}

// New creates a new service instance with the given options
func New(options ...Option) (Service, error) {
	s := &service{
		extractors: make(map[Variant]MetadataExtractor),
		httpClient: http.DefaultClient,
	}

	for _, option := range options {
		option(s)
	}

	if s.repository == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if s.storage == nil {
		return nil, fmt.Errorf("storage is required")
	}

	return s, nil
}

// Blob operations

func (s *service) CreateBlob(ctx context.Context, req CreateBlobRequest) (*Blob, error) {
	blob, _, err := s.createBlob(ctx, req)
	return blob, err
}

// createBlob stages the source, deduplicates by (variant, digest) and
// persists a new blob when no match exists. It also reports the filename
// resolved from the source for attachment defaulting.
func (s *service) createBlob(ctx context.Context, req CreateBlobRequest) (*Blob, string, error) {
	src, err := s.stageSource(ctx, req)
	if err != nil {
		return nil, "", err
	}
	defer src.Close()

	variant := Classify(src.contentType)

	if existing, err := s.repository.FindBlobByDigest(ctx, variant, src.digest); err == nil {
		return existing, src.filename, nil
	} else if !errors.Is(err, ErrBlobNotFound) {
		return nil, "", err
	}

	now := time.Now().UTC()
	blob := &Blob{
		ID:          uuid.New(),
		Variant:     variant,
		ContentType: src.contentType,
		Size:        src.size,
		Digest:      src.digest,
		Metadata:    make(map[string]interface{}),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := blob.Validate(); err != nil {
		return nil, "", err
	}

	if err := s.repository.CreateBlob(ctx, blob); err != nil {
		if errors.Is(err, ErrDuplicateBlob) {
			// A concurrent identical upload won the insert race; the
			// winning row is authoritative.
			winner, ferr := s.repository.FindBlobByDigest(ctx, variant, src.digest)
			if ferr != nil {
				return nil, "", ferr
			}
			return winner, src.filename, nil
		}
		return nil, "", &BlobError{BlobID: blob.ID, Op: "create", Err: err}
	}

	f, err := os.Open(src.path)
	if err != nil {
		return nil, "", s.rollbackBlob(ctx, blob, &StorageError{Key: blob.ID.String(), Op: "write", Err: err})
	}
	defer f.Close()

	if err := s.storage.Write(ctx, blob.ID.String(), f, WriteOptions{ContentType: blob.ContentType}); err != nil {
		return nil, "", s.rollbackBlob(ctx, blob, &StorageError{Key: blob.ID.String(), Op: "write", Err: err})
	}

	if s.eventSink != nil {
		if err := s.eventSink.BlobCreated(ctx, blob); err != nil {
			// Events never fail the operation.
		}
	}

	return blob, src.filename, nil
}

// rollbackBlob removes a blob row whose byte write failed so the row never
// outlives missing bytes. The original write error is always returned.
func (s *service) rollbackBlob(ctx context.Context, blob *Blob, writeErr error) error {
	if err := s.repository.DeleteBlob(ctx, blob.ID); err != nil {
		return errors.Join(writeErr, fmt.Errorf("rollback of blob %s failed: %w", blob.ID, err))
	}
	return writeErr
}

func (s *service) GetBlob(ctx context.Context, id uuid.UUID) (*Blob, error) {
	return s.repository.GetBlob(ctx, id)
}

func (s *service) DeleteBlob(ctx context.Context, id uuid.UUID) error {
	blob, err := s.repository.GetBlob(ctx, id)
	if err != nil {
		return &BlobError{BlobID: id, Op: "delete", Err: err}
	}

	// Bytes go first. A failed byte delete aborts and leaves the row; the
	// operation is re-runnable since Delete treats absent keys as a no-op.
	if err := s.storage.Delete(ctx, blob.ID.String()); err != nil {
		return &StorageError{Key: blob.ID.String(), Op: "delete", Err: err}
	}

	if err := s.repository.DeleteBlob(ctx, id); err != nil {
		return &BlobError{BlobID: id, Op: "delete", Err: err}
	}

	if s.eventSink != nil {
		if err := s.eventSink.BlobDeleted(ctx, id); err != nil {
			// Events never fail the operation.
		}
	}

	return nil
}

func (s *service) BlobURL(ctx context.Context, id uuid.UUID, opts URLOptions) (string, error) {
	blob, err := s.repository.GetBlob(ctx, id)
	if err != nil {
		return "", &BlobError{BlobID: id, Op: "url", Err: err}
	}
	return s.storage.URL(ctx, blob.ID.String(), opts)
}

func (s *service) OpenBlob(ctx context.Context, id uuid.UUID, fn func(path string) error) error {
	blob, err := s.repository.GetBlob(ctx, id)
	if err != nil {
		return &BlobError{BlobID: id, Op: "open", Err: err}
	}
	return s.storage.WithTempFile(ctx, blob.ID.String(), "blob"+blob.Extension(), fn)
}

func (s *service) ExtractMetadata(ctx context.Context, id uuid.UUID) (map[string]interface{}, error) {
	blob, err := s.repository.GetBlob(ctx, id)
	if err != nil {
		return nil, &BlobError{BlobID: id, Op: "extract_metadata", Err: err}
	}

	extractor, ok := s.extractors[blob.Variant]
	if !ok {
		return nil, &ExtractionError{BlobID: id, Variant: blob.Variant, Err: ErrExtractorNotFound}
	}

	var metadata map[string]interface{}
	err = s.storage.WithTempFile(ctx, blob.ID.String(), "blob"+blob.Extension(), func(path string) error {
		m, err := extractor.Extract(ctx, blob.Variant, path)
		if err != nil {
			return err
		}
		metadata = m
		return nil
	})
	if err != nil {
		return nil, &ExtractionError{BlobID: id, Variant: blob.Variant, Err: err}
	}

	if err := s.repository.UpdateBlobMetadata(ctx, id, metadata); err != nil {
		return nil, &BlobError{BlobID: id, Op: "extract_metadata", Err: err}
	}

	return metadata, nil
}
