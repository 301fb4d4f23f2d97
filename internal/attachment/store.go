// Package attachment keeps uploaded request files in an afs blob location.
// Blobs are content addressed by their BLAKE3 digest so identical uploads
// share storage; each upload still gets its own attachment id.
package attachment

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/frahmantamala/expense-approval/internal"
	"github.com/frahmantamala/expense-approval/internal/request"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/url"
	"github.com/zeebo/blake3"
)

const DefaultMaxSize = 10 * 1024 * 1024

// DefaultAllowedTypes are PDF, JPEG, PNG and both Excel formats.
var DefaultAllowedTypes = []string{
	"application/pdf",
	"image/jpeg",
	"image/png",
	"application/vnd.ms-excel",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

type Store struct {
	fs      afs.Service
	baseURL string
	maxSize int64
	allowed []string
	logger  *slog.Logger
	now     func() time.Time
	newID   func() string
}

// NewStore opens the blob location, creating it if needed. A zero maxSize or
// empty allowed list falls back to the defaults.
func NewStore(ctx context.Context, baseURL string, maxSize int64, allowed []string, logger *slog.Logger) (*Store, error) {
	fs := afs.New()
	base := url.Normalize(baseURL, file.Scheme)

	exists, err := fs.Exists(ctx, base)
	if err != nil {
		return nil, fmt.Errorf("check blob location %s: %w", base, err)
	}
	if !exists {
		if err := fs.Create(ctx, base, file.DefaultDirOsMode, true); err != nil {
			return nil, fmt.Errorf("create blob location %s: %w", base, err)
		}
	}

	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	if len(allowed) == 0 {
		allowed = DefaultAllowedTypes
	}
	return &Store{
		fs:      fs,
		baseURL: base,
		maxSize: maxSize,
		allowed: allowed,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
		newID:   uuid.NewString,
	}, nil
}

// Validate checks size and sniffed content type and returns the MIME type.
func (s *Store) Validate(name string, data []byte) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", internal.NewValidationFieldError("name", "file name is required", internal.ErrCodeMissingField)
	}
	if len(data) == 0 {
		return "", internal.NewValidationFieldError("file", "file is empty", internal.ErrCodeInvalidAttachment)
	}
	if int64(len(data)) > s.maxSize {
		return "", internal.NewValidationFieldError("file",
			"file exceeds "+sizeLimit(s.maxSize),
			internal.ErrCodeInvalidAttachment)
	}

	detected := mimetype.Detect(data)
	for _, allowed := range s.allowed {
		if detected.Is(allowed) {
			return allowed, nil
		}
	}
	return "", internal.NewValidationFieldError("file",
		fmt.Sprintf("file type %s is not allowed, accepted types are PDF, JPEG, PNG and Excel", detected.String()),
		internal.ErrCodeInvalidAttachment)
}

func sizeLimit(n int64) string {
	const mb = 1024 * 1024
	if n%mb == 0 {
		return fmt.Sprintf("%dMB", n/mb)
	}
	return fmt.Sprintf("%d bytes", n)
}

func (s *Store) location(digest, ext string) string {
	return url.Join(s.baseURL, digest[:2], digest+ext)
}

// Put validates data and stores it under its digest.
func (s *Store) Put(ctx context.Context, name string, data []byte) (request.AttachedFile, error) {
	mimeType, err := s.Validate(name, data)
	if err != nil {
		return request.AttachedFile{}, err
	}

	sum := blake3.Sum256(data)
	digest := hex.EncodeToString(sum[:])
	loc := s.location(digest, mimetype.Lookup(mimeType).Extension())

	exists, err := s.fs.Exists(ctx, loc)
	if err != nil {
		return request.AttachedFile{}, fmt.Errorf("check blob %s: %w", digest, err)
	}
	if !exists {
		if err := s.fs.Upload(ctx, loc, file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
			return request.AttachedFile{}, fmt.Errorf("write blob %s: %w", digest, err)
		}
		s.logger.Debug("blob stored", "digest", digest, "size", len(data))
	}

	return request.AttachedFile{
		ID:         s.newID(),
		Name:       path.Base(strings.ReplaceAll(name, "\\", "/")),
		URL:        loc,
		Size:       int64(len(data)),
		Type:       mimeType,
		UploadedAt: s.now(),
	}, nil
}

// Open reads the blob behind an attachment.
func (s *Store) Open(ctx context.Context, f request.AttachedFile) ([]byte, error) {
	if !strings.HasPrefix(f.URL, s.baseURL) {
		return nil, internal.ErrAttachmentNotFound.WithDetails(map[string]string{"file_id": f.ID})
	}
	exists, err := s.fs.Exists(ctx, f.URL)
	if err != nil {
		return nil, fmt.Errorf("check blob %s: %w", f.URL, err)
	}
	if !exists {
		return nil, internal.ErrAttachmentNotFound.WithDetails(map[string]string{"file_id": f.ID})
	}
	data, err := s.fs.DownloadWithURL(ctx, f.URL)
	if err != nil {
		return nil, fmt.Errorf("read blob %s: %w", f.URL, err)
	}
	return data, nil
}
