// Package postgres implements laserblob.Repository on PostgreSQL via pgx.
//
// Expected schema:
//
//	CREATE TABLE blobs (
//	    id           UUID PRIMARY KEY,
//	    variant      TEXT NOT NULL,
//	    content_type TEXT NOT NULL,
//	    size         BIGINT NOT NULL,
//	    digest       BYTEA NOT NULL,
//	    metadata     JSONB NOT NULL DEFAULT '{}',
//	    created_at   TIMESTAMPTZ NOT NULL,
//	    updated_at   TIMESTAMPTZ NOT NULL,
//	    CONSTRAINT blobs_variant_digest_key UNIQUE (variant, digest)
//	);
//
//	CREATE TABLE attachments (
//	    id          UUID PRIMARY KEY,
//	    blob_id     UUID NOT NULL REFERENCES blobs (id),
//	    record_type TEXT NOT NULL,
//	    record_id   TEXT NOT NULL,
//	    role        TEXT NOT NULL,
//	    position    INTEGER NOT NULL DEFAULT 0,
//	    filename    TEXT NOT NULL,
//	    created_at  TIMESTAMPTZ NOT NULL,
//	    updated_at  TIMESTAMPTZ NOT NULL,
//	    CONSTRAINT attachments_blob_owner_role_filename_key
//	        UNIQUE (blob_id, record_type, record_id, role, filename)
//	);
//	CREATE INDEX attachments_owner_role_idx
//	    ON attachments (record_type, record_id, role, position);
//
// The list order column is named "position" rather than "order" because
// "order" is a reserved word.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/laserblob/laserblob/pkg/laserblob"
)

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Repository implements laserblob.Repository using PostgreSQL
type Repository struct {
	db DBTX
}

// New creates a new PostgreSQL repository
func New(db DBTX) laserblob.Repository {
	return &Repository{db: db}
}

// NewWithPool creates a new PostgreSQL repository with connection pool
func NewWithPool(pool *pgxpool.Pool) laserblob.Repository {
	return &Repository{db: pool}
}

// handlePostgresError maps constraint violations onto the package sentinels
// so callers can branch on errors.Is.
func (r *Repository) handlePostgresError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			if strings.Contains(pgErr.ConstraintName, "blobs") {
				return laserblob.ErrDuplicateBlob
			}
			if strings.Contains(pgErr.ConstraintName, "attachments") {
				return laserblob.ErrDuplicateAttachment
			}
			return fmt.Errorf("duplicate entry in %s: %s", operation, pgErr.ConstraintName)
		case "23503": // foreign_key_violation
			return fmt.Errorf("referenced record not found in %s", operation)
		case "23502": // not_null_violation
			return fmt.Errorf("required field %s is missing", pgErr.ColumnName)
		case "42P01": // undefined_table
			return fmt.Errorf("table does not exist - database migration required")
		default:
			return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}

	return fmt.Errorf("database error in %s: %w", operation, err)
}

// Blob operations

func (r *Repository) CreateBlob(ctx context.Context, blob *laserblob.Blob) error {
	metadata, err := marshalMetadata(blob.Metadata)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO blobs (
			id, variant, content_type, size, digest, metadata, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err = r.db.Exec(ctx, query,
		blob.ID, blob.Variant, blob.ContentType, blob.Size,
		blob.Digest, metadata, blob.CreatedAt, blob.UpdatedAt)

	if err != nil {
		return r.handlePostgresError("create blob", err)
	}

	return nil
}

func (r *Repository) GetBlob(ctx context.Context, id uuid.UUID) (*laserblob.Blob, error) {
	query := `
        SELECT id, variant, content_type, size, digest, metadata, created_at, updated_at
        FROM blobs WHERE id = $1`

	return r.scanBlob(r.db.QueryRow(ctx, query, id))
}

func (r *Repository) FindBlobByDigest(ctx context.Context, variant laserblob.Variant, digest []byte) (*laserblob.Blob, error) {
	query := `
        SELECT id, variant, content_type, size, digest, metadata, created_at, updated_at
        FROM blobs WHERE variant = $1 AND digest = $2`

	return r.scanBlob(r.db.QueryRow(ctx, query, variant, digest))
}

func (r *Repository) scanBlob(row pgx.Row) (*laserblob.Blob, error) {
	var blob laserblob.Blob
	var metadata []byte
	err := row.Scan(
		&blob.ID, &blob.Variant, &blob.ContentType, &blob.Size,
		&blob.Digest, &metadata, &blob.CreatedAt, &blob.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, laserblob.ErrBlobNotFound
		}
		return nil, err
	}

	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &blob.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode blob metadata: %w", err)
		}
	}

	return &blob, nil
}

func (r *Repository) UpdateBlobMetadata(ctx context.Context, id uuid.UUID, metadata map[string]interface{}) error {
	patch, err := marshalMetadata(metadata)
	if err != nil {
		return err
	}

	query := `
		UPDATE blobs SET metadata = metadata || $2::jsonb, updated_at = NOW()
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, id, patch)
	if err != nil {
		return r.handlePostgresError("update blob metadata", err)
	}
	if tag.RowsAffected() == 0 {
		return laserblob.ErrBlobNotFound
	}
	return nil
}

func (r *Repository) DeleteBlob(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM blobs WHERE id = $1`, id)
	if err != nil {
		return r.handlePostgresError("delete blob", err)
	}
	if tag.RowsAffected() == 0 {
		return laserblob.ErrBlobNotFound
	}
	return nil
}

// Attachment operations

func (r *Repository) CreateAttachment(ctx context.Context, att *laserblob.Attachment) error {
	query := `
		INSERT INTO attachments (
			id, blob_id, record_type, record_id, role, position, filename, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.db.Exec(ctx, query,
		att.ID, att.BlobID, att.Owner.Type, att.Owner.ID,
		att.Role, att.Position, att.Filename, att.CreatedAt, att.UpdatedAt)

	if err != nil {
		return r.handlePostgresError("create attachment", err)
	}

	return nil
}

func (r *Repository) UpdateAttachment(ctx context.Context, att *laserblob.Attachment) error {
	query := `
		UPDATE attachments SET
			blob_id = $2, position = $3, filename = $4, updated_at = $5
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query,
		att.ID, att.BlobID, att.Position, att.Filename, att.UpdatedAt)

	if err != nil {
		return r.handlePostgresError("update attachment", err)
	}
	if tag.RowsAffected() == 0 {
		return laserblob.ErrAttachmentNotFound
	}
	return nil
}

func (r *Repository) GetAttachment(ctx context.Context, id uuid.UUID) (*laserblob.Attachment, error) {
	query := `
        SELECT id, blob_id, record_type, record_id, role, position, filename, created_at, updated_at
        FROM attachments WHERE id = $1`

	var att laserblob.Attachment
	err := r.db.QueryRow(ctx, query, id).Scan(
		&att.ID, &att.BlobID, &att.Owner.Type, &att.Owner.ID,
		&att.Role, &att.Position, &att.Filename, &att.CreatedAt, &att.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, laserblob.ErrAttachmentNotFound
		}
		return nil, err
	}

	return &att, nil
}

func (r *Repository) ListAttachments(ctx context.Context, owner laserblob.OwnerRef, role string) ([]*laserblob.Attachment, error) {
	query := `
        SELECT id, blob_id, record_type, record_id, role, position, filename, created_at, updated_at
        FROM attachments
        WHERE record_type = $1 AND record_id = $2 AND role = $3
        ORDER BY position ASC, created_at ASC`

	rows, err := r.db.Query(ctx, query, owner.Type, owner.ID, role)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var atts []*laserblob.Attachment
	for rows.Next() {
		var att laserblob.Attachment
		if err := rows.Scan(
			&att.ID, &att.BlobID, &att.Owner.Type, &att.Owner.ID,
			&att.Role, &att.Position, &att.Filename, &att.CreatedAt, &att.UpdatedAt); err != nil {
			return nil, err
		}
		atts = append(atts, &att)
	}

	return atts, rows.Err()
}

func (r *Repository) DeleteAttachment(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM attachments WHERE id = $1`, id)
	if err != nil {
		return r.handlePostgresError("delete attachment", err)
	}
	if tag.RowsAffected() == 0 {
		return laserblob.ErrAttachmentNotFound
	}
	return nil
}

func (r *Repository) DeleteAttachmentsForOwner(ctx context.Context, owner laserblob.OwnerRef) error {
	query := `DELETE FROM attachments WHERE record_type = $1 AND record_id = $2`
	if _, err := r.db.Exec(ctx, query, owner.Type, owner.ID); err != nil {
		return r.handlePostgresError("delete attachments for owner", err)
	}
	return nil
}

func marshalMetadata(m map[string]interface{}) ([]byte, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to encode metadata: %w", err)
	}
	return data, nil
}
