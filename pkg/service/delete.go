package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/deskfs/deskfs/pkg/store/items"
	"github.com/deskfs/deskfs/pkg/vfs"
)

// DeleteRecursive removes an item and, for folders, its entire subtree.
//
// The walk is depth-first: children go before their parent so no listing
// ever shows a child without its folder. After the first pass over a
// folder's children, the children are listed once more and any survivor
// (typically a row created concurrently during the walk) is removed before
// the folder itself. Blob deletion is best effort: a failing backend delete
// is logged and the metadata row is removed anyway, leaving an orphaned blob
// for the collector rather than a half-deleted tree.
//
// Parameters:
//   - ctx: context for cancellation
//   - id: item id
//
// Returns:
//   - error: vfs.ErrNotFound if the item does not exist
func (s *Service) DeleteRecursive(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.deleteSubtree(ctx, item); err != nil {
		return err
	}

	s.logger.Info("item deleted",
		zap.String("id", item.ID),
		zap.String("path", item.Path))
	return nil
}

func (s *Service) deleteSubtree(ctx context.Context, item *vfs.Item) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if item.IsFolder() {
		children, _, err := s.repo.List(ctx, items.Query{ParentPath: &item.Path})
		if err != nil {
			return fmt.Errorf("failed to list children of %s: %w", item.Path, err)
		}
		for i := range children {
			if err := s.deleteSubtree(ctx, &children[i]); err != nil {
				// A child removed by a concurrent delete is not a failure.
				if errors.Is(err, vfs.ErrNotFound) {
					continue
				}
				return err
			}
		}

		// Second pass: catch rows that appeared under this folder while the
		// first pass was running.
		stragglers, _, err := s.repo.List(ctx, items.Query{ParentPath: &item.Path})
		if err != nil {
			return fmt.Errorf("failed to re-list children of %s: %w", item.Path, err)
		}
		for i := range stragglers {
			if err := s.deleteSubtree(ctx, &stragglers[i]); err != nil && !errors.Is(err, vfs.ErrNotFound) {
				return err
			}
		}
	}

	if item.IsReal && item.FilePath != nil {
		if err := s.blobs.Delete(ctx, *item.FilePath); err != nil {
			s.logger.Warn("failed to delete blob, leaving orphan for collector",
				zap.String("id", item.ID),
				zap.String("locator", *item.FilePath),
				zap.Error(err))
		}
	}

	if err := s.repo.Delete(ctx, item.ID); err != nil {
		return err
	}
	return nil
}
