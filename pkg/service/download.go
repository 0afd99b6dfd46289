package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/deskfs/deskfs/pkg/vfs"
)

// Download fetches the bytes of a real item and records the download.
//
// Fake items have no content and are rejected with vfs.ErrValidation. The
// download counter is incremented exactly once per successful retrieval; a
// failed counter update is logged but does not fail the download.
//
// Parameters:
//   - ctx: context for cancellation
//   - id: item id
//
// Returns:
//   - []byte: the full payload
//   - string: the content type resolved from the item's extension
//   - *vfs.Item: the item row, for response headers
//   - error: vfs.ErrNotFound or vfs.ErrValidation
func (s *Service) Download(ctx context.Context, id string) ([]byte, string, *vfs.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", nil, err
	}

	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, "", nil, err
	}
	if !item.IsReal || item.FilePath == nil {
		return nil, "", nil, fmt.Errorf("%w: item %s has no content", vfs.ErrValidation, id)
	}

	data, err := s.blobs.Retrieve(ctx, *item.FilePath)
	if err != nil {
		return nil, "", nil, fmt.Errorf("failed to retrieve content for %s: %w", id, err)
	}

	if err := s.repo.IncrementDownloadCount(ctx, id); err != nil {
		s.logger.Warn("failed to record download",
			zap.String("id", id),
			zap.Error(err))
	} else {
		item.DownloadCount++
	}

	return data, vfs.ContentTypeFor(item.Extension), item, nil
}
