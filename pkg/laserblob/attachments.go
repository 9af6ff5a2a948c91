package laserblob

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Attachment resolution. Both entry points reconcile a desired attachment
// set against the owner's current attachments for a role; callers serialize
// concurrent writes to the same (owner, role) themselves.

func (s *service) SetAttachment(ctx context.Context, owner OwnerRef, cfg RoleConfig, params *AttachmentParams) (*Attachment, error) {
	if cfg.Cardinality == CardinalityMany {
		return nil, &AttachmentError{Owner: owner, Role: cfg.Role, Op: "set_one",
			Err: fmt.Errorf("%w: role is multi-valued, use SetAttachments", ErrWrongCardinality)}
	}

	existing, err := s.repository.ListAttachments(ctx, owner, cfg.Role)
	if err != nil {
		return nil, &AttachmentError{Owner: owner, Role: cfg.Role, Op: "set_one", Err: err}
	}

	// nil clears the role.
	if params == nil {
		for _, a := range existing {
			if err := s.deleteAttachment(ctx, a.ID); err != nil {
				return nil, &AttachmentError{Owner: owner, Role: cfg.Role, Op: "set_one", Err: err}
			}
		}
		return nil, nil
	}

	att, isUpdate, err := s.resolveParams(ctx, owner, cfg, existing, *params, 0)
	if err != nil {
		return nil, err
	}

	if err := s.checkAllowedVariants(ctx, cfg, []*Attachment{att}); err != nil {
		return nil, err
	}

	// A single-valued role holds at most one attachment. Superseded rows go
	// first so re-assigning the same blob and filename lands on a free
	// uniqueness slot.
	for _, a := range existing {
		if a.ID != att.ID {
			if err := s.deleteAttachment(ctx, a.ID); err != nil {
				return nil, &AttachmentError{Owner: owner, Role: cfg.Role, Op: "set_one", Err: err}
			}
		}
	}

	if err := s.saveAttachment(ctx, owner, cfg.Role, att, isUpdate); err != nil {
		return nil, err
	}

	return att, nil
}

func (s *service) SetAttachments(ctx context.Context, owner OwnerRef, cfg RoleConfig, params []AttachmentParams) ([]*Attachment, error) {
	if cfg.Cardinality != CardinalityMany {
		return nil, &AttachmentError{Owner: owner, Role: cfg.Role, Op: "set_many",
			Err: fmt.Errorf("%w: role is single-valued, use SetAttachment", ErrWrongCardinality)}
	}

	existing, err := s.repository.ListAttachments(ctx, owner, cfg.Role)
	if err != nil {
		return nil, &AttachmentError{Owner: owner, Role: cfg.Role, Op: "set_many", Err: err}
	}

	matched := make(map[uuid.UUID]bool)
	desired := make([]*Attachment, 0, len(params))
	updates := make([]bool, 0, len(params))
	for i, p := range params {
		att, isUpdate, err := s.resolveParams(ctx, owner, cfg, existing, p, i)
		if err != nil {
			return nil, err
		}
		desired = append(desired, att)
		updates = append(updates, isUpdate)
		if isUpdate {
			matched[att.ID] = true
		}
	}

	// The whole assignment fails validation before anything is persisted.
	if err := s.checkAllowedVariants(ctx, cfg, desired); err != nil {
		return nil, err
	}

	// The new set replaces the prior set: unmatched attachments are removed
	// before any write, so a full resend of the same tuples (the normal way
	// to reorder without ids) never collides with its own predecessors.
	for _, a := range existing {
		if !matched[a.ID] {
			if err := s.deleteAttachment(ctx, a.ID); err != nil {
				return nil, &AttachmentError{Owner: owner, Role: cfg.Role, Op: "set_many", Err: err}
			}
		}
	}

	// Updates land before creates so a surviving row vacates its old tuple
	// before a new row can claim it.
	for i, att := range desired {
		if !updates[i] {
			continue
		}
		if err := s.saveAttachment(ctx, owner, cfg.Role, att, true); err != nil {
			return nil, err
		}
	}
	for i, att := range desired {
		if updates[i] {
			continue
		}
		if err := s.saveAttachment(ctx, owner, cfg.Role, att, false); err != nil {
			return nil, err
		}
	}

	return desired, nil
}

// resolveParams matches one descriptor against the owner's current
// attachments: an ID match updates in place (filename/blob only when
// supplied), anything else builds a fresh attachment at the given position.
func (s *service) resolveParams(ctx context.Context, owner OwnerRef, cfg RoleConfig, existing []*Attachment, p AttachmentParams, position int) (*Attachment, bool, error) {
	var att *Attachment
	if p.ID != nil {
		for _, a := range existing {
			if a.ID == *p.ID {
				match := *a
				att = &match
				break
			}
		}
	}

	blobID := uuid.Nil
	defaultName := ""
	if p.Source != nil {
		blob, sourceName, err := s.createBlob(ctx, *p.Source)
		if err != nil {
			return nil, false, err
		}
		blobID = blob.ID
		defaultName = sourceName
	} else if p.BlobID != nil {
		blobID = *p.BlobID
	}

	now := time.Now().UTC()
	if att != nil {
		att.Position = position
		if p.Filename != "" {
			att.Filename = p.Filename
		}
		if blobID != uuid.Nil {
			att.BlobID = blobID
		}
		att.UpdatedAt = now
		return att, true, nil
	}

	if blobID == uuid.Nil {
		return nil, false, &AttachmentError{Owner: owner, Role: cfg.Role, Op: "resolve",
			Err: errors.New("blob id or source is required for a new attachment")}
	}

	filename := p.Filename
	if filename == "" {
		filename = SanitizeFilename(defaultName)
	}
	if filename == "" {
		filename = defaultFilename(cfg.Role)
	}

	return &Attachment{
		ID:        uuid.New(),
		BlobID:    blobID,
		Owner:     owner,
		Role:      cfg.Role,
		Position:  position,
		Filename:  filename,
		CreatedAt: now,
		UpdatedAt: now,
	}, false, nil
}

// checkAllowedVariants verifies every referenced blob exists and carries a
// variant inside the role's allowed set, collecting all offenders.
func (s *service) checkAllowedVariants(ctx context.Context, cfg RoleConfig, atts []*Attachment) error {
	var offending []OffendingBlob
	for i, att := range atts {
		blob, err := s.repository.GetBlob(ctx, att.BlobID)
		if err != nil {
			return fmt.Errorf("blob %s: %w", att.BlobID, err)
		}
		if !cfg.Allows(blob.Variant) {
			offending = append(offending, OffendingBlob{Index: i, BlobID: blob.ID, Variant: blob.Variant})
		}
	}
	if len(offending) > 0 {
		return &InvalidBlobTypeError{Role: cfg.Role, Allowed: cfg.AllowedVariants, Offending: offending}
	}
	return nil
}

func (s *service) saveAttachment(ctx context.Context, owner OwnerRef, role string, att *Attachment, isUpdate bool) error {
	var err error
	if isUpdate {
		err = s.repository.UpdateAttachment(ctx, att)
	} else {
		err = s.repository.CreateAttachment(ctx, att)
	}
	if err != nil {
		if errors.Is(err, ErrDuplicateAttachment) {
			return &DuplicateAttachmentError{BlobID: att.BlobID, Owner: owner, Role: role, Filename: att.Filename}
		}
		return &AttachmentError{Owner: owner, Role: role, Op: "save", Err: err}
	}

	if s.eventSink != nil {
		if err := s.eventSink.AttachmentSaved(ctx, att); err != nil {
			// Events never fail the operation.
		}
	}
	return nil
}

func (s *service) deleteAttachment(ctx context.Context, id uuid.UUID) error {
	if err := s.repository.DeleteAttachment(ctx, id); err != nil {
		return err
	}
	if s.eventSink != nil {
		if err := s.eventSink.AttachmentDeleted(ctx, id); err != nil {
			// Events never fail the operation.
		}
	}
	return nil
}

func (s *service) GetAttachment(ctx context.Context, owner OwnerRef, role string) (*Attachment, error) {
	atts, err := s.repository.ListAttachments(ctx, owner, role)
	if err != nil {
		return nil, &AttachmentError{Owner: owner, Role: role, Op: "get", Err: err}
	}
	if len(atts) == 0 {
		return nil, ErrAttachmentNotFound
	}
	return atts[0], nil
}

func (s *service) ListAttachments(ctx context.Context, owner OwnerRef, role string) ([]*Attachment, error) {
	return s.repository.ListAttachments(ctx, owner, role)
}

func (s *service) DeleteAttachment(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repository.GetAttachment(ctx, id); err != nil {
		return err
	}
	return s.deleteAttachment(ctx, id)
}

// DeleteOwnerAttachments removes every attachment of a record across all
// roles; called when the owning record is destroyed.
func (s *service) DeleteOwnerAttachments(ctx context.Context, owner OwnerRef) error {
	if err := s.repository.DeleteAttachmentsForOwner(ctx, owner); err != nil {
		return &AttachmentError{Owner: owner, Op: "delete_all", Err: err}
	}
	return nil
}

func (s *service) AttachmentURL(ctx context.Context, id uuid.UUID, opts URLOptions) (string, error) {
	att, err := s.repository.GetAttachment(ctx, id)
	if err != nil {
		return "", err
	}
	if opts.Filename == "" {
		opts.Filename = att.Filename
	}
	return s.BlobURL(ctx, att.BlobID, opts)
}

func (s *service) OpenAttachment(ctx context.Context, id uuid.UUID, fn func(path string) error) error {
	att, err := s.repository.GetAttachment(ctx, id)
	if err != nil {
		return err
	}
	hint := att.Filename
	if hint == "" {
		hint = "blob"
	}
	return s.storage.WithTempFile(ctx, att.BlobID.String(), hint, fn)
}
