package laserblob

import (
	"context"

	"github.com/google/uuid"
)

// NoopEventSink is a no-operation implementation of EventSink.
// Useful for production when you don't need event handling or for testing.
type NoopEventSink struct{}

// NewNoopEventSink creates a new no-operation event sink
func NewNoopEventSink() EventSink {
	return &NoopEventSink{}
}

// BlobCreated does nothing and returns nil
func (n *NoopEventSink) BlobCreated(ctx context.Context, blob *Blob) error {
	return nil
}

// BlobDeleted does nothing and returns nil
func (n *NoopEventSink) BlobDeleted(ctx context.Context, blobID uuid.UUID) error {
	return nil
}

// AttachmentSaved does nothing and returns nil
func (n *NoopEventSink) AttachmentSaved(ctx context.Context, attachment *Attachment) error {
	return nil
}

// AttachmentDeleted does nothing and returns nil
func (n *NoopEventSink) AttachmentDeleted(ctx context.Context, attachmentID uuid.UUID) error {
	return nil
}

// Logger interface for logging events
type Logger interface {
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// LoggingEventSink is an event sink that logs events but takes no other
// action. Useful for development and debugging.
type LoggingEventSink struct {
	logger Logger
}

// NewLoggingEventSink creates a new logging event sink
func NewLoggingEventSink(logger Logger) EventSink {
	return &LoggingEventSink{logger: logger}
}

// BlobCreated logs the blob creation event
func (l *LoggingEventSink) BlobCreated(ctx context.Context, blob *Blob) error {
	l.logger.Infof("Blob created: ID=%s, Variant=%s, ContentType=%s, Size=%d", blob.ID, blob.Variant, blob.ContentType, blob.Size)
	return nil
}

// BlobDeleted logs the blob deletion event
func (l *LoggingEventSink) BlobDeleted(ctx context.Context, blobID uuid.UUID) error {
	l.logger.Infof("Blob deleted: ID=%s", blobID)
	return nil
}

// AttachmentSaved logs the attachment save event
func (l *LoggingEventSink) AttachmentSaved(ctx context.Context, attachment *Attachment) error {
	l.logger.Infof("Attachment saved: ID=%s, Owner=%s, Role=%s, Order=%d", attachment.ID, attachment.Owner, attachment.Role, attachment.Position)
	return nil
}

// AttachmentDeleted logs the attachment deletion event
func (l *LoggingEventSink) AttachmentDeleted(ctx context.Context, attachmentID uuid.UUID) error {
	l.logger.Infof("Attachment deleted: ID=%s", attachmentID)
	return nil
}

// MetadataExtractorFunc adapts a function to the MetadataExtractor interface
type MetadataExtractorFunc func(ctx context.Context, variant Variant, path string) (map[string]interface{}, error)

// Extract calls the wrapped function
func (f MetadataExtractorFunc) Extract(ctx context.Context, variant Variant, path string) (map[string]interface{}, error) {
	return f(ctx, variant, path)
}
