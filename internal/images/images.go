// Package images provides the piece image upload service on top of the
// blob store: content-type and size validation, filename sanitization and
// timestamp-prefixed keys, plus retrieval of time-limited download URLs.
package images

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"piececore/internal/blob"
	"piececore/pkg/domain"
)

// MaxUploadBytes caps accepted image size at 10 MiB.
const MaxUploadBytes = 10 << 20

// DefaultPrefix is the key prefix images are stored under.
const DefaultPrefix = "images/"

var allowedTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/gif":  {},
	"image/webp": {},
	"image/bmp":  {},
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// Upload describes a stored image.
type Upload struct {
	Key      string `json:"key"`
	FileName string `json:"file_name"`
	Size     int64  `json:"size"`
	URL      string `json:"url,omitempty"`
}

// Service uploads, resolves and deletes piece images.
type Service struct {
	store  blob.Store
	logger domain.Logger
	prefix string
	now    func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(l domain.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithPrefix overrides the storage key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Service) {
		if prefix != "" && !strings.HasSuffix(prefix, "/") {
			prefix += "/"
		}
		s.prefix = prefix
	}
}

// WithClock overrides the clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService wraps a blob store as an image upload service.
func NewService(store blob.Store, opts ...Option) *Service {
	s := &Service{store: store, logger: domain.NopLogger{}, prefix: DefaultPrefix, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SanitizeFileName replaces every character outside [a-zA-Z0-9._-] with an
// underscore.
func SanitizeFileName(name string) string {
	return unsafeChars.ReplaceAllString(name, "_")
}

// Upload validates and stores an image, keyed by a millisecond timestamp
// prefix plus the sanitized original filename.
func (s *Service) Upload(ctx context.Context, fileName, contentType string, r io.Reader) (Upload, error) {
	if strings.TrimSpace(fileName) == "" {
		return Upload{}, fmt.Errorf("no file name provided")
	}
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if _, ok := allowedTypes[ct]; !ok {
		return Upload{}, fmt.Errorf("invalid file type %q, only image files are allowed", contentType)
	}
	// Read through a limited reader so an oversized stream fails instead of
	// being stored truncated.
	data, err := io.ReadAll(io.LimitReader(r, MaxUploadBytes+1))
	if err != nil {
		return Upload{}, fmt.Errorf("read image: %w", err)
	}
	if len(data) > MaxUploadBytes {
		return Upload{}, fmt.Errorf("file too large, maximum size is %d bytes", MaxUploadBytes)
	}
	name := fmt.Sprintf("%d_%s", s.now().UnixMilli(), SanitizeFileName(fileName))
	key := s.prefix + name
	info, err := s.store.Put(ctx, key, bytes.NewReader(data), blob.PutOptions{ContentType: ct})
	if err != nil {
		return Upload{}, fmt.Errorf("store image %s: %w", key, err)
	}
	up := Upload{Key: info.Key, FileName: name, Size: info.Size}
	if url, err := s.store.URL(ctx, info.Key, 0); err == nil {
		up.URL = url
	} else if err != blob.ErrUnsupported {
		s.logger.Warn("image url unavailable", "key", info.Key, "error", err)
	}
	return up, nil
}

// URL resolves a download URL for a stored image key.
func (s *Service) URL(ctx context.Context, key string) (string, error) {
	url, err := s.store.URL(ctx, key, 0)
	if err != nil {
		return "", fmt.Errorf("resolve url for %s: %w", key, err)
	}
	return url, nil
}

// Delete removes a stored image. Returns false when the key was absent.
func (s *Service) Delete(ctx context.Context, key string) (bool, error) {
	return s.store.Delete(ctx, key)
}

// List enumerates stored images under the service prefix.
func (s *Service) List(ctx context.Context) ([]blob.Info, error) {
	return s.store.List(ctx, s.prefix)
}
