package laserblob

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Request/Response DTOs

// CreateBlobRequest contains parameters for creating a blob. Exactly one
// source field must be set; when several are set the first in the order
// URL, Base64, Data, FilePath wins.
type CreateBlobRequest struct {
	// Sources
	Data     []byte // raw bytes
	Base64   string // base64-encoded bytes
	FilePath string // path to a local file
	URL      string // http(s) URL to download

	// ContentType overrides sniffing when set.
	ContentType string
	// Filename is used for extension-based content-type fallback and as the
	// default attachment filename. Defaulted from the source when empty.
	Filename string
}

// AttachmentParams describes one desired attachment in a role assignment.
// Either BlobID or Source must be set for new attachments; for updates
// (matched by ID) both are optional.
type AttachmentParams struct {
	ID       *uuid.UUID
	BlobID   *uuid.UUID
	Filename string
	// Source creates the underlying blob first (deduplication applies) and
	// wraps it in the attachment.
	Source *CreateBlobRequest
}

// WriteOptions contains parameters for storage writes
type WriteOptions struct {
	ContentType string
}

// URLOptions contains parameters for building download URLs
type URLOptions struct {
	Disposition string        // "inline" or "attachment" (default "attachment")
	Filename    string        // content-disposition filename parameter
	ExpiresIn   time.Duration // presign lifetime; ignored by local backends
}

// ContentDisposition renders the options as a Content-Disposition value.
// Filenames are percent-encoded as UTF-8 with "/" left unescaped so
// path-like filenames stay readable.
func (o URLOptions) ContentDisposition() string {
	disposition := "attachment"
	if o.Disposition == "inline" {
		disposition = "inline"
	}
	if o.Filename != "" {
		encoded := strings.ReplaceAll(url.QueryEscape(o.Filename), "%2F", "/")
		disposition = fmt.Sprintf("%s; filename=\"%s\"", disposition, encoded)
	}
	return disposition
}
