package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/deskfs/deskfs/pkg/vfs"
)

// UploadInput carries one file upload.
type UploadInput struct {
	// Data is the full file payload.
	Data []byte

	// FileName is the original client file name.
	FileName string

	// CustomName optionally overrides FileName as the stored item name.
	CustomName string

	// MimeType is the client-declared content type. When empty or the
	// generic application/octet-stream, the payload is sniffed instead.
	MimeType string

	// ParentPath is the canonical path of the destination folder, nil for
	// the root.
	ParentPath *string

	UploadedBy string
	UserID     *string

	// Admin applies the elevated size ceiling.
	Admin bool
}

// UploadFile validates and stores a real file: size against the applicable
// ceiling, MIME type against the allow-list, destination parent must be an
// existing folder, and the canonical path must be free. Bytes go to the blob
// store before the metadata row is created, so a failed row write cannot
// leave a visible item without content.
//
// Parameters:
//   - ctx: context for cancellation
//   - in: the upload payload and placement
//
// Returns:
//   - *vfs.Item: the created item
//   - error: vfs.ErrTooLarge, vfs.ErrInvalidFileType, vfs.ErrDirectoryNotFound,
//     vfs.ErrConflict or vfs.ErrInvalidPath on rule violations
func (s *Service) UploadFile(ctx context.Context, in UploadInput) (*vfs.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	name := in.CustomName
	if name == "" {
		name = in.FileName
	}
	if err := vfs.ValidateName(name); err != nil {
		return nil, err
	}

	limit := s.limits.MaxUploadSize
	if in.Admin {
		limit = s.limits.MaxAdminUploadSize
	}
	size := int64(len(in.Data))
	if limit > 0 && size > limit {
		return nil, fmt.Errorf("%w: %d bytes exceeds limit of %d", vfs.ErrTooLarge, size, limit)
	}

	mime := in.MimeType
	if mime == "" || mime == vfs.DefaultContentType {
		mime = mimetype.Detect(in.Data).String()
	}
	// Detected types can carry parameters ("text/plain; charset=utf-8").
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	if !s.mimeAllowed(mime) {
		return nil, fmt.Errorf("%w: %s is not allowed", vfs.ErrInvalidFileType, mime)
	}

	parentPath := vfs.NormalizeParent(in.ParentPath)
	if err := s.requireFolder(ctx, parentPath); err != nil {
		return nil, err
	}

	path, err := vfs.JoinPath(parentPath, name)
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.FindByPath(ctx, path); err == nil {
		return nil, fmt.Errorf("%w: %s already exists", vfs.ErrConflict, path)
	} else if !errors.Is(err, vfs.ErrNotFound) {
		return nil, fmt.Errorf("failed to check path %s: %w", path, err)
	}

	ext := vfs.ExtensionOf(name)
	key := uuid.NewString()
	if ext != nil {
		key += *ext
	}
	locator, err := s.blobs.Store(ctx, key, in.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to store content: %w", err)
	}

	now := time.Now().UTC()
	item := &vfs.Item{
		ID:           uuid.NewString(),
		Name:         name,
		Path:         path,
		ParentPath:   parentPath,
		Type:         vfs.TypeForName(name),
		Size:         &size,
		Extension:    ext,
		FilePath:     &locator,
		IsReal:       true,
		UploadedBy:   in.UploadedBy,
		UserID:       in.UserID,
		DateCreated:  now,
		DateModified: now,
	}
	if err := s.repo.Create(ctx, item); err != nil {
		// Lost a concurrent race for the path. Compensate by dropping the
		// blob we just wrote; the collector catches it if this fails too.
		if delErr := s.blobs.Delete(ctx, locator); delErr != nil {
			s.logger.Warn("failed to delete blob after create conflict",
				zap.String("locator", locator),
				zap.Error(delErr))
		}
		return nil, err
	}

	s.logger.Info("file uploaded",
		zap.String("id", item.ID),
		zap.String("path", item.Path),
		zap.Int64("size", size),
		zap.String("mime", mime))
	return item, nil
}

// mimeAllowed checks mime against the allow-list. Entries may be exact or a
// family wildcard such as "image/*". An empty list allows everything.
func (s *Service) mimeAllowed(mime string) bool {
	if len(s.limits.AllowedMimeTypes) == 0 {
		return true
	}
	for _, allowed := range s.limits.AllowedMimeTypes {
		if allowed == mime || allowed == "*/*" {
			return true
		}
		if family, ok := strings.CutSuffix(allowed, "/*"); ok &&
			strings.HasPrefix(mime, family+"/") {
			return true
		}
	}
	return false
}

// requireFolder ensures parentPath (nil meaning the root) names an existing
// folder item.
func (s *Service) requireFolder(ctx context.Context, parentPath *string) error {
	if parentPath == nil || *parentPath == "" || *parentPath == vfs.Separator {
		return nil
	}
	parent, err := s.repo.FindByPath(ctx, *parentPath)
	if err != nil {
		if errors.Is(err, vfs.ErrNotFound) {
			return fmt.Errorf("%w: %s", vfs.ErrDirectoryNotFound, *parentPath)
		}
		return fmt.Errorf("failed to resolve parent %s: %w", *parentPath, err)
	}
	if !parent.IsFolder() {
		return fmt.Errorf("%w: %s is not a folder", vfs.ErrValidation, *parentPath)
	}
	return nil
}
