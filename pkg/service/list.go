package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/deskfs/deskfs/pkg/store/items"
	"github.com/deskfs/deskfs/pkg/vfs"
)

// GetItems returns the direct children of the folder at path, sorted by the
// given field and order. "/" (or "") lists the root. Listing never recurses,
// and an unknown path yields an empty slice rather than an error so clients
// can probe folders cheaply.
//
// Parameters:
//   - ctx: context for cancellation
//   - path: canonical folder path, "/" for the root
//   - sortBy: sort field, defaults to name when empty
//   - sortOrder: asc or desc, defaults to asc when empty
//
// Returns:
//   - []vfs.Item: the children, possibly empty
//   - error: vfs.ErrValidation on unknown sort parameters
func (s *Service) GetItems(ctx context.Context, path string, sortBy items.SortField, sortOrder items.SortOrder) ([]vfs.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if sortBy == "" {
		sortBy = items.SortByName
	}
	if sortOrder == "" {
		sortOrder = items.SortAsc
	}
	if !sortBy.Valid() {
		return nil, fmt.Errorf("%w: unknown sort field %q", vfs.ErrValidation, sortBy)
	}
	if !sortOrder.Valid() {
		return nil, fmt.Errorf("%w: unknown sort order %q", vfs.ErrValidation, sortOrder)
	}

	query := items.Query{
		SortBy:    sortBy,
		SortOrder: sortOrder,
	}
	path = strings.TrimSuffix(path, vfs.Separator)
	if path == "" {
		query.RootOnly = true
	} else {
		query.ParentPath = &path
	}

	rows, _, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	return rows, nil
}

// Pagination describes one page of a Browse result.
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

// defaultBrowseLimit bounds unpaginated admin queries.
const defaultBrowseLimit = 20

// Browse runs an admin query over the whole tree: filtering by type and
// real/fake, substring search on names, sorting and pagination.
func (s *Service) Browse(ctx context.Context, query items.Query) ([]vfs.Item, Pagination, error) {
	if err := ctx.Err(); err != nil {
		return nil, Pagination{}, err
	}

	if query.SortBy == "" {
		query.SortBy = items.SortByName
	}
	if query.SortOrder == "" {
		query.SortOrder = items.SortAsc
	}
	if !query.SortBy.Valid() {
		return nil, Pagination{}, fmt.Errorf("%w: unknown sort field %q", vfs.ErrValidation, query.SortBy)
	}
	if !query.SortOrder.Valid() {
		return nil, Pagination{}, fmt.Errorf("%w: unknown sort order %q", vfs.ErrValidation, query.SortOrder)
	}
	if query.Type != nil && !query.Type.Valid() {
		return nil, Pagination{}, fmt.Errorf("%w: unknown item type %q", vfs.ErrValidation, *query.Type)
	}
	if query.Page < 1 {
		query.Page = 1
	}
	if query.Limit < 1 {
		query.Limit = defaultBrowseLimit
	}

	rows, total, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, Pagination{}, fmt.Errorf("failed to browse items: %w", err)
	}

	pages := int(total) / query.Limit
	if int(total)%query.Limit != 0 {
		pages++
	}
	return rows, Pagination{
		Page:       query.Page,
		Limit:      query.Limit,
		Total:      total,
		TotalPages: pages,
	}, nil
}

// Stats returns aggregate counts and sizes over the whole tree.
func (s *Service) Stats(ctx context.Context) (*items.Stats, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compute stats: %w", err)
	}
	return stats, nil
}
