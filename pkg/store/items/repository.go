// Package items defines the metadata repository contract for the virtual
// namespace.
//
// The repository persists and queries Item rows in a single relational table,
// which is the sole source of truth for the hierarchy. It knows nothing about
// physical bytes — coordinating rows with the blob store is the service's
// job.
//
// Design Principles (mirroring the blob store):
//   - Consistent error handling: business failures surface vfs sentinel
//     errors (ErrNotFound, ErrConflict) wrapped with context
//   - Context-aware: every operation takes a context.Context
//   - Write-boundary uniqueness: path collisions are rejected here, backed
//     by a unique index, so concurrent creators race to a Conflict rather
//     than a silent overwrite
//
// Thread Safety:
// Implementations must be safe for concurrent use by multiple goroutines.
package items

import (
	"context"
	"time"

	"github.com/deskfs/deskfs/pkg/vfs"
)

// SortField selects the column used to order listings.
type SortField string

const (
	SortByName         SortField = "name"
	SortByDateModified SortField = "dateModified"
	SortBySize         SortField = "size"
	SortByType         SortField = "type"
)

// Valid reports whether the sort field is one of the supported columns.
func (f SortField) Valid() bool {
	switch f {
	case SortByName, SortByDateModified, SortBySize, SortByType:
		return true
	}
	return false
}

// SortOrder selects the listing direction.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// Valid reports whether the sort order is asc or desc.
func (o SortOrder) Valid() bool {
	return o == SortAsc || o == SortDesc
}

// Query describes a filtered, sorted, optionally paginated listing.
//
// Zero values mean "no filter". ParentPath and RootOnly are mutually
// exclusive ways to scope by position: ParentPath matches rows whose
// parent_path equals the given string exactly, RootOnly matches rows with a
// NULL parent_path (items living at the namespace root).
type Query struct {
	// Type restricts results to one item type.
	Type *vfs.ItemType

	// IsReal restricts results to real (true) or fake (false) items.
	IsReal *bool

	// ParentPath restricts results to direct children of the given path.
	ParentPath *string

	// RootOnly restricts results to items with no parent.
	RootOnly bool

	// Search restricts results to names containing the substring,
	// case-insensitively.
	Search string

	// SortBy orders results; defaults to SortByName when empty.
	SortBy SortField

	// SortOrder defaults to SortAsc when empty.
	SortOrder SortOrder

	// Page is 1-based. Pagination applies only when Limit > 0.
	Page int

	// Limit is the page size; 0 disables pagination.
	Limit int
}

// ItemChanges is a partial update applied to an existing row. Nil fields are
// left untouched. The service computes Path/Extension alongside Name or
// ParentPath changes so the path invariant holds after every update.
// ParentPath and Extension are doubly indirect because NULL is a valid
// target value: the outer pointer marks the field as changed, the inner
// pointer is the new value (nil moves an item to the root or clears the
// extension).
type ItemChanges struct {
	Name         *string
	Path         *string
	ParentPath   **string
	Extension    **string
	UserID       *string
	DateModified *time.Time
}

// Stats aggregates namespace-wide counters for admin dashboards.
type Stats struct {
	TotalItems     int64                  `json:"totalItems"`
	RealItems      int64                  `json:"realItems"`
	FakeItems      int64                  `json:"fakeItems"`
	Folders        int64                  `json:"folders"`
	TotalSize      int64                  `json:"totalSize"`
	TotalDownloads int64                  `json:"totalDownloads"`
	ByType         map[vfs.ItemType]int64 `json:"byType"`
}

// Repository is the persistence contract for Item rows.
type Repository interface {
	// FindByPath returns the item at the canonical path.
	// Returns vfs.ErrNotFound (wrapped) if no row matches.
	FindByPath(ctx context.Context, path string) (*vfs.Item, error)

	// FindByID returns the item with the given id.
	// Returns vfs.ErrNotFound (wrapped) if no row matches.
	FindByID(ctx context.Context, id string) (*vfs.Item, error)

	// List returns the rows matching the query plus the total count before
	// pagination (for totalPages derivation).
	List(ctx context.Context, q Query) ([]vfs.Item, int64, error)

	// Create inserts a new row.
	// Returns vfs.ErrConflict (wrapped) if the path is already taken.
	Create(ctx context.Context, item *vfs.Item) error

	// Update applies a partial change set to the row with the given id.
	// Returns vfs.ErrNotFound if the row does not exist and vfs.ErrConflict
	// if a path change collides with another row (self excluded).
	Update(ctx context.Context, id string, changes ItemChanges) (*vfs.Item, error)

	// Delete removes the row with the given id.
	// Returns vfs.ErrNotFound if the row does not exist.
	Delete(ctx context.Context, id string) error

	// IncrementDownloadCount atomically adds one to the row's counter.
	IncrementDownloadCount(ctx context.Context, id string) error

	// ListLocators returns the FilePath of every real item. Consumed by the
	// orphan collector to diff metadata against stored blobs.
	ListLocators(ctx context.Context) ([]string, error)

	// Stats returns namespace-wide aggregates.
	Stats(ctx context.Context) (*Stats, error)
}
