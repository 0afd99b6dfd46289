package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/deskfs/deskfs/pkg/vfs"
)

// CreateFolder creates a folder item under parentPath (nil for the root).
// Folders never carry content: no size, no extension, no blob.
//
// Returns vfs.ErrDirectoryNotFound if the parent does not exist,
// vfs.ErrConflict if the path is taken, vfs.ErrInvalidPath on a bad name.
func (s *Service) CreateFolder(ctx context.Context, parentPath *string, name string, uploadedBy string, userID *string) (*vfs.Item, error) {
	return s.createVirtual(ctx, parentPath, name, vfs.TypeFolder, uploadedBy, userID)
}

// CreateFakeItem creates a placeholder item of the given type. Fake items are
// browsable like real ones but have no bytes behind them; their extension
// comes from a fixed per-type table, not from the name.
//
// Parameters:
//   - ctx: context for cancellation
//   - parentPath: destination folder path, nil for the root
//   - name: item name
//   - itemType: one of the vfs item types
//   - uploadedBy: display name of the creator
//   - userID: optional owner id
//
// Returns:
//   - *vfs.Item: the created item
//   - error: vfs.ErrValidation on an unknown type, plus the CreateFolder errors
func (s *Service) CreateFakeItem(ctx context.Context, parentPath *string, name string, itemType vfs.ItemType, uploadedBy string, userID *string) (*vfs.Item, error) {
	if !itemType.Valid() {
		return nil, fmt.Errorf("%w: unknown item type %q", vfs.ErrValidation, itemType)
	}
	return s.createVirtual(ctx, parentPath, name, itemType, uploadedBy, userID)
}

func (s *Service) createVirtual(ctx context.Context, parentPath *string, name string, itemType vfs.ItemType, uploadedBy string, userID *string) (*vfs.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	parentPath = vfs.NormalizeParent(parentPath)
	if err := s.requireFolder(ctx, parentPath); err != nil {
		return nil, err
	}
	path, err := vfs.JoinPath(parentPath, name)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	item := &vfs.Item{
		ID:           uuid.NewString(),
		Name:         name,
		Path:         path,
		ParentPath:   parentPath,
		Type:         itemType,
		Extension:    vfs.FakeExtensionFor(itemType),
		IsReal:       false,
		UploadedBy:   uploadedBy,
		UserID:       userID,
		DateCreated:  now,
		DateModified: now,
	}
	if err := s.repo.Create(ctx, item); err != nil {
		return nil, err
	}

	s.logger.Info("item created",
		zap.String("id", item.ID),
		zap.String("path", item.Path),
		zap.String("type", string(itemType)))
	return item, nil
}

// SeedEntry describes one item to pre-populate.
type SeedEntry struct {
	ParentPath *string      `mapstructure:"parent_path" json:"parentPath"`
	Name       string       `mapstructure:"name" json:"name"`
	Type       vfs.ItemType `mapstructure:"type" json:"type"`
}

// Seed creates the given entries in order, skipping any whose path already
// exists. Entries must be listed parents-first; a missing parent is an error.
// Returns the number of items actually created.
func (s *Service) Seed(ctx context.Context, entries []SeedEntry, uploadedBy string) (int, error) {
	created := 0
	for _, entry := range entries {
		_, err := s.CreateFakeItem(ctx, entry.ParentPath, entry.Name, entry.Type, uploadedBy, nil)
		if err != nil {
			if errors.Is(err, vfs.ErrConflict) {
				s.logger.Debug("seed entry already exists", zap.String("name", entry.Name))
				continue
			}
			return created, fmt.Errorf("failed to seed %s: %w", entry.Name, err)
		}
		created++
	}
	if created > 0 {
		s.logger.Info("seeded items", zap.Int("created", created))
	}
	return created, nil
}
