package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/deskfs/deskfs/pkg/store/items"
	"github.com/deskfs/deskfs/pkg/vfs"
)

// UpdateInput carries a partial item update. Nil fields are left unchanged.
type UpdateInput struct {
	// Name renames the item in place.
	Name *string

	// ParentPath moves the item to another folder. Moving folders is
	// rejected: child rows address their parent by path string, and a
	// folder move would strand the whole subtree.
	ParentPath *string

	// UserID reassigns ownership.
	UserID *string
}

// UpdateItem applies a rename, move or ownership change to a single row.
//
// The canonical path is recomputed whenever name or parent changes. Renaming
// a folder does not rewrite the paths of its children; the subtree becomes
// addressable only through fresh listings of the new path.
//
// Parameters:
//   - ctx: context for cancellation
//   - id: item id
//   - in: the fields to change
//
// Returns:
//   - *vfs.Item: the updated item
//   - error: vfs.ErrNotFound, vfs.ErrValidation (folder move),
//     vfs.ErrDirectoryNotFound, vfs.ErrConflict or vfs.ErrInvalidPath
func (s *Service) UpdateItem(ctx context.Context, id string, in UpdateInput) (*vfs.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	changes := items.ItemChanges{UserID: in.UserID}

	name := item.Name
	if in.Name != nil && *in.Name != item.Name {
		if err := vfs.ValidateName(*in.Name); err != nil {
			return nil, err
		}
		name = *in.Name
		changes.Name = &name
	}

	parentPath := item.ParentPath
	if in.ParentPath != nil {
		if item.IsFolder() {
			return nil, fmt.Errorf("%w: folders cannot be moved", vfs.ErrValidation)
		}
		newParent := vfs.NormalizeParent(in.ParentPath)
		if !samePath(newParent, item.ParentPath) {
			if err := s.requireFolder(ctx, newParent); err != nil {
				return nil, err
			}
			parentPath = newParent
			changes.ParentPath = &parentPath
		}
	}

	if changes.Name != nil || changes.ParentPath != nil {
		path, err := vfs.JoinPath(parentPath, name)
		if err != nil {
			return nil, err
		}
		changes.Path = &path

		if changes.Name != nil && item.IsReal {
			// Real items derive their extension from the name; fake items
			// keep the type-table extension assigned at creation.
			ext := vfs.ExtensionOf(name)
			changes.Extension = &ext
		}
	}

	now := time.Now().UTC()
	changes.DateModified = &now

	updated, err := s.repo.Update(ctx, id, changes)
	if err != nil {
		if errors.Is(err, vfs.ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update item %s: %w", id, err)
	}

	s.logger.Info("item updated",
		zap.String("id", id),
		zap.String("path", updated.Path))
	return updated, nil
}

func samePath(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
