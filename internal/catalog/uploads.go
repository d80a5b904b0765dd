// internal/catalog/uploads.go
package catalog

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math/rand/v2"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"bookstore/pkg/apperr"
)

// PublicPrefix is the URL prefix book images are served under.
const PublicPrefix = "/uploads/"

var (
	allowedExtensions   = map[string]bool{".jpg": true, ".jpeg": true, ".png": true}
	allowedContentTypes = map[string]bool{"image/jpeg": true, "image/jpg": true, "image/png": true}
)

// ImageStore keeps book cover images on local disk.
type ImageStore struct {
	dir      string
	maxBytes int64
	now      func() time.Time
	suffix   func() int64
}

// NewImageStore creates dir if needed and stores images of at most maxBytes there.
func NewImageStore(dir string, maxBytes int64) (*ImageStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &ImageStore{
		dir:      dir,
		maxBytes: maxBytes,
		now:      time.Now,
		suffix:   func() int64 { return rand.Int64N(1e9) },
	}, nil
}

// Dir is the directory images are written to.
func (s *ImageStore) Dir() string { return s.dir }

// Save validates and writes the upload, returning its public path.
func (s *ImageStore) Save(u *Upload) (string, error) {
	if err := CheckImage(u.Filename, u.ContentType); err != nil {
		return "", err
	}
	if u.Size > s.maxBytes {
		return "", apperr.Invalidf("image exceeds %d bytes", s.maxBytes)
	}

	name := ImageFileName(s.now(), s.suffix(), u.Filename)
	full := filepath.Join(s.dir, name)

	f, err := os.OpenFile(full, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("create image file: %w", err)
	}

	n, err := io.Copy(f, io.LimitReader(u.Body, s.maxBytes+1))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil && n > s.maxBytes {
		err = apperr.Invalidf("image exceeds %d bytes", s.maxBytes)
	}
	if err != nil {
		_ = os.Remove(full)
		return "", err
	}

	return PublicPrefix + name, nil
}

// Remove deletes the image behind a public path. Paths outside the upload
// prefix and files that are already gone are ignored.
func (s *ImageStore) Remove(publicPath string) error {
	if !strings.HasPrefix(publicPath, PublicPrefix) {
		return nil
	}
	name := path.Base(publicPath)
	if name == "." || name == "/" {
		return nil
	}
	err := os.Remove(filepath.Join(s.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// CheckImage accepts only JPEG and PNG images, by extension and content type.
func CheckImage(filename, contentType string) error {
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExtensions[ext] || !allowedContentTypes[strings.ToLower(contentType)] {
		return apperr.Invalidf("only .jpg and .png images are allowed")
	}
	return nil
}

// ImageFileName builds the stored name "<unix-ms>-<suffix>-<sanitized name>".
func ImageFileName(now time.Time, suffix int64, original string) string {
	return fmt.Sprintf("%d-%d-%s", now.UnixMilli(), suffix, SanitizeFilename(original))
}

// SanitizeFilename replaces every character outside [A-Za-z0-9.] with '_'.
func SanitizeFilename(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
