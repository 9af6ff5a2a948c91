package laserblob

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// contentTypesByExtension maps the extensions relevant to variant
// classification to their canonical MIME types. Extensions outside this
// table fall through to the platform mime registry.
var contentTypesByExtension = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
	".mp4":  "video/mp4",
	".mov":  "video/quicktime",
	".webm": "video/webm",
	".pdf":  "application/pdf",
	".csv":  "text/csv",
	".xls":  "application/vnd.ms-excel",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

// stagedSource is a byte source normalized into a local temporary file with
// its digest, size, content type and display filename already determined.
type stagedSource struct {
	path        string
	size        int64
	digest      []byte
	contentType string
	filename    string
	cleanup     func()
}

// Close releases the staged temporary file.
func (src *stagedSource) Close() {
	if src.cleanup != nil {
		src.cleanup()
		src.cleanup = nil
	}
}

// stageSource normalizes a create request into a staged local file. Source
// precedence when several are set: URL, Base64, Data, FilePath.
func (s *service) stageSource(ctx context.Context, req CreateBlobRequest) (*stagedSource, error) {
	switch {
	case req.URL != "":
		return s.stageURL(ctx, req)
	case req.Base64 != "":
		decoded, err := decodeBase64(req.Base64)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidBase64, err)
		}
		return stageBytes(decoded, req)
	case req.Data != nil:
		return stageBytes(req.Data, req)
	case req.FilePath != "":
		return stageFile(req)
	default:
		return nil, ErrMissingSource
	}
}

func stageBytes(data []byte, req CreateBlobRequest) (*stagedSource, error) {
	src, err := stageReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	src.filename = req.Filename
	sniffed := baseMIME(mimetype.Detect(data).String())
	src.contentType = resolveContentType(req.ContentType, sniffed, src.filename)
	return src, nil
}

func stageFile(req CreateBlobRequest) (*stagedSource, error) {
	f, err := os.Open(req.FilePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	src, err := stageReader(f)
	if err != nil {
		return nil, err
	}

	src.filename = req.Filename
	if src.filename == "" {
		src.filename = filenameFromPath(req.FilePath)
	}

	sniffed := ""
	if m, err := mimetype.DetectFile(req.FilePath); err == nil {
		sniffed = baseMIME(m.String())
	}
	src.contentType = resolveContentType(req.ContentType, sniffed, src.filename)
	return src, nil
}

func (s *service) stageURL(ctx context.Context, req CreateBlobRequest) (*stagedSource, error) {
	u, err := url.Parse(req.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("%w: %s", ErrInvalidSourceURL, req.URL)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidSourceURL, req.URL)
	}

	// The default client policy follows at most 10 redirects, bounding
	// redirect loops.
	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return nil, &FetchError{URL: req.URL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &FetchError{URL: req.URL, StatusCode: resp.StatusCode}
	}

	// Body bytes stream through the hash and into the temp file without
	// buffering the whole payload.
	src, err := stageReader(resp.Body)
	if err != nil {
		return nil, &FetchError{URL: req.URL, Err: err}
	}

	headerType := baseMIME(resp.Header.Get("Content-Type"))
	src.filename = req.Filename
	if src.filename == "" {
		src.filename = filenameFromResponse(resp, u, headerType)
	}
	src.contentType = resolveContentType(req.ContentType, headerType, src.filename)
	return src, nil
}

// stageReader copies a stream into a temporary file while accumulating its
// SHA-1 digest and size.
func stageReader(r io.Reader) (*stagedSource, error) {
	tmp, err := os.CreateTemp("", "laserblob-*")
	if err != nil {
		return nil, err
	}

	h := sha1.New()
	size, err := io.Copy(io.MultiWriter(tmp, h), r)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp.Name())
		return nil, err
	}

	name := tmp.Name()
	return &stagedSource{
		path:    name,
		size:    size,
		digest:  h.Sum(nil),
		cleanup: func() { os.Remove(name) },
	}, nil
}

// resolveContentType applies the precedence chain: explicit override, then
// the sniffed/declared type, with octet-stream-labeled sources re-sniffed
// from the filename extension.
func resolveContentType(explicit, sniffed, filename string) string {
	ct := strings.TrimSpace(explicit)
	if ct == "" {
		ct = sniffed
	}
	if (ct == "" || ct == "application/octet-stream") && filename != "" {
		if byExt := contentTypeByFilename(filename); byExt != "" {
			ct = byExt
		}
	}
	if ct == "" {
		ct = "application/octet-stream"
	}
	return ct
}

func contentTypeByFilename(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return ""
	}
	if ct, ok := contentTypesByExtension[ext]; ok {
		return ct
	}
	return baseMIME(mime.TypeByExtension(ext))
}

// filenameFromResponse derives a display filename for a downloaded body:
// content-disposition header, then the URL path basename with an extension
// matching the response content type, falling back to "index" for root
// paths.
func filenameFromResponse(resp *http.Response, u *url.URL, contentType string) string {
	if cd := resp.Header.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil {
			if fn := params["filename"]; fn != "" {
				return filepath.Base(fn)
			}
		}
	}

	base := path.Base(u.Path)
	if base == "/" || base == "." || base == "" {
		base = "index"
	}

	ext := extensionForContentType(contentType)
	if ext == "" {
		ext = path.Ext(base)
	}
	return strings.TrimSuffix(base, path.Ext(base)) + ext
}

func extensionForContentType(contentType string) string {
	if m := mimetype.Lookup(contentType); m != nil {
		return m.Extension()
	}
	for ext, ct := range contentTypesByExtension {
		if ct == contentType {
			return ext
		}
	}
	return ""
}

// baseMIME strips parameters such as charset from a media type value.
func baseMIME(mediaType string) string {
	if mediaType == "" {
		return ""
	}
	if mt, _, err := mime.ParseMediaType(mediaType); err == nil {
		return mt
	}
	return strings.TrimSpace(strings.SplitN(mediaType, ";", 2)[0])
}

// decodeBase64 tolerates surrounding whitespace and missing padding.
func decodeBase64(value string) ([]byte, error) {
	compact := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\n', '\r', '\t':
			return -1
		}
		return r
	}, value)

	if decoded, err := base64.StdEncoding.DecodeString(compact); err == nil {
		return decoded, nil
	}
	return base64.RawStdEncoding.DecodeString(compact)
}
