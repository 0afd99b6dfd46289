// Package gormstore implements the item repository on a relational database
// through GORM. One table, `items`, is the sole source of truth for the
// namespace hierarchy; a unique index on `path` is the write boundary that
// turns concurrent path races into Conflict errors.
package gormstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/deskfs/deskfs/pkg/store/items"
	"github.com/deskfs/deskfs/pkg/vfs"
)

// ItemRepository implements items.Repository on a *gorm.DB.
type ItemRepository struct {
	db *gorm.DB
}

// New wraps an open GORM handle. Callers own connection lifecycle.
func New(db *gorm.DB) *ItemRepository {
	return &ItemRepository{db: db}
}

// AutoMigrate creates or updates the items table.
func (r *ItemRepository) AutoMigrate() error {
	return r.db.AutoMigrate(&vfs.Item{})
}

// sortColumns maps API sort fields to table columns.
var sortColumns = map[items.SortField]string{
	items.SortByName:         "name",
	items.SortByDateModified: "date_modified",
	items.SortBySize:         "size",
	items.SortByType:         "type",
}

// isDuplicate reports whether err is a unique-constraint violation. GORM
// translates these for some dialectors; the message check covers sqlite.
func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func (r *ItemRepository) FindByPath(ctx context.Context, path string) (*vfs.Item, error) {
	var item vfs.Item
	err := r.db.WithContext(ctx).Where("path = ?", path).First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("path %q: %w", path, vfs.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to query path %q: %w", path, err)
	}
	return &item, nil
}

func (r *ItemRepository) FindByID(ctx context.Context, id string) (*vfs.Item, error) {
	var item vfs.Item
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("id %q: %w", id, vfs.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to query id %q: %w", id, err)
	}
	return &item, nil
}

// List applies the query's filters, sort, and pagination. The returned count
// is the number of matching rows before pagination.
func (r *ItemRepository) List(ctx context.Context, q items.Query) ([]vfs.Item, int64, error) {
	tx := r.db.WithContext(ctx).Model(&vfs.Item{})

	if q.Type != nil {
		tx = tx.Where("type = ?", *q.Type)
	}
	if q.IsReal != nil {
		tx = tx.Where("is_real = ?", *q.IsReal)
	}
	if q.RootOnly {
		tx = tx.Where("parent_path IS NULL")
	} else if q.ParentPath != nil {
		tx = tx.Where("parent_path = ?", *q.ParentPath)
	}
	if q.Search != "" {
		tx = tx.Where("lower(name) LIKE ?", "%"+strings.ToLower(q.Search)+"%")
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count items: %w", err)
	}

	sortBy := q.SortBy
	if sortBy == "" {
		sortBy = items.SortByName
	}
	column, ok := sortColumns[sortBy]
	if !ok {
		return nil, 0, fmt.Errorf("unsupported sort field %q: %w", sortBy, vfs.ErrValidation)
	}

	order := q.SortOrder
	if order == "" {
		order = items.SortAsc
	}
	if !order.Valid() {
		return nil, 0, fmt.Errorf("unsupported sort order %q: %w", order, vfs.ErrValidation)
	}

	tx = tx.Order(column + " " + strings.ToUpper(string(order)))

	if q.Limit > 0 {
		page := q.Page
		if page < 1 {
			page = 1
		}
		tx = tx.Offset((page - 1) * q.Limit).Limit(q.Limit)
	}

	var rows []vfs.Item
	if err := tx.Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list items: %w", err)
	}

	return rows, total, nil
}

func (r *ItemRepository) Create(ctx context.Context, item *vfs.Item) error {
	if err := r.db.WithContext(ctx).Create(item).Error; err != nil {
		if isDuplicate(err) {
			return fmt.Errorf("path %q: %w", item.Path, vfs.ErrConflict)
		}
		return fmt.Errorf("failed to create item at %q: %w", item.Path, err)
	}
	return nil
}

// Update applies a partial change set. Path collisions (excluding the row
// itself) surface as ErrConflict, either from the pre-check or from the
// unique index if a concurrent writer sneaks in between.
func (r *ItemRepository) Update(ctx context.Context, id string, changes items.ItemChanges) (*vfs.Item, error) {
	if _, err := r.FindByID(ctx, id); err != nil {
		return nil, err
	}

	if changes.Path != nil {
		var collisions int64
		err := r.db.WithContext(ctx).Model(&vfs.Item{}).
			Where("path = ? AND id <> ?", *changes.Path, id).
			Count(&collisions).Error
		if err != nil {
			return nil, fmt.Errorf("failed to check path %q: %w", *changes.Path, err)
		}
		if collisions > 0 {
			return nil, fmt.Errorf("path %q: %w", *changes.Path, vfs.ErrConflict)
		}
	}

	fields := map[string]any{}
	if changes.Name != nil {
		fields["name"] = *changes.Name
	}
	if changes.Path != nil {
		fields["path"] = *changes.Path
	}
	if changes.ParentPath != nil {
		fields["parent_path"] = *changes.ParentPath
	}
	if changes.Extension != nil {
		fields["extension"] = *changes.Extension
	}
	if changes.UserID != nil {
		fields["user_id"] = *changes.UserID
	}
	if changes.DateModified != nil {
		fields["date_modified"] = *changes.DateModified
	}

	if len(fields) > 0 {
		err := r.db.WithContext(ctx).Model(&vfs.Item{}).Where("id = ?", id).Updates(fields).Error
		if err != nil {
			if isDuplicate(err) {
				return nil, fmt.Errorf("id %q: %w", id, vfs.ErrConflict)
			}
			return nil, fmt.Errorf("failed to update id %q: %w", id, err)
		}
	}

	return r.FindByID(ctx, id)
}

func (r *ItemRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&vfs.Item{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete id %q: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("id %q: %w", id, vfs.ErrNotFound)
	}
	return nil
}

// IncrementDownloadCount bumps the counter in SQL so concurrent downloads
// never lose increments.
func (r *ItemRepository) IncrementDownloadCount(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Model(&vfs.Item{}).
		Where("id = ?", id).
		UpdateColumn("download_count", gorm.Expr("download_count + 1"))
	if result.Error != nil {
		return fmt.Errorf("failed to increment download count for %q: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("id %q: %w", id, vfs.ErrNotFound)
	}
	return nil
}

func (r *ItemRepository) ListLocators(ctx context.Context) ([]string, error) {
	var locators []string
	err := r.db.WithContext(ctx).Model(&vfs.Item{}).
		Where("is_real = ? AND file_path IS NOT NULL", true).
		Pluck("file_path", &locators).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list locators: %w", err)
	}
	return locators, nil
}

func (r *ItemRepository) Stats(ctx context.Context) (*items.Stats, error) {
	stats := &items.Stats{ByType: make(map[vfs.ItemType]int64)}
	db := r.db.WithContext(ctx).Model(&vfs.Item{})

	if err := db.Count(&stats.TotalItems).Error; err != nil {
		return nil, fmt.Errorf("failed to count items: %w", err)
	}
	if err := r.db.WithContext(ctx).Model(&vfs.Item{}).Where("is_real = ?", true).Count(&stats.RealItems).Error; err != nil {
		return nil, fmt.Errorf("failed to count real items: %w", err)
	}
	stats.FakeItems = stats.TotalItems - stats.RealItems

	if err := r.db.WithContext(ctx).Model(&vfs.Item{}).Where("type = ?", vfs.TypeFolder).Count(&stats.Folders).Error; err != nil {
		return nil, fmt.Errorf("failed to count folders: %w", err)
	}

	var sums struct {
		TotalSize      *int64
		TotalDownloads *int64
	}
	err := r.db.WithContext(ctx).Model(&vfs.Item{}).
		Select("SUM(size) AS total_size, SUM(download_count) AS total_downloads").
		Scan(&sums).Error
	if err != nil {
		return nil, fmt.Errorf("failed to sum sizes: %w", err)
	}
	if sums.TotalSize != nil {
		stats.TotalSize = *sums.TotalSize
	}
	if sums.TotalDownloads != nil {
		stats.TotalDownloads = *sums.TotalDownloads
	}

	var perType []struct {
		Type  vfs.ItemType
		Count int64
	}
	err = r.db.WithContext(ctx).Model(&vfs.Item{}).
		Select("type, COUNT(*) AS count").
		Group("type").
		Scan(&perType).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count by type: %w", err)
	}
	for _, row := range perType {
		stats.ByType[row.Type] = row.Count
	}

	return stats, nil
}
