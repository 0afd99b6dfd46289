// Package service implements the drive operations on top of the item
// repository and a blob store. All business rules live here: path
// construction, upload limits, MIME validation, conflict detection and the
// recursive delete walk. Handlers in pkg/api stay thin and translate the
// sentinel errors from pkg/vfs into HTTP status codes.
package service

import (
	"go.uber.org/zap"

	"github.com/deskfs/deskfs/pkg/store/blob"
	"github.com/deskfs/deskfs/pkg/store/items"
)

// Limits carries the upload policy applied by UploadFile.
type Limits struct {
	// MaxUploadSize is the byte ceiling for regular uploads.
	MaxUploadSize int64

	// MaxAdminUploadSize is the byte ceiling for uploads flagged as admin.
	MaxAdminUploadSize int64

	// AllowedMimeTypes is the upload allow-list. Entries are exact MIME
	// types ("image/png") or a family wildcard ("image/*"). An empty list
	// allows everything.
	AllowedMimeTypes []string
}

// Service coordinates the metadata repository and the blob store.
//
// The repository is the source of truth: an item is visible if and only if
// its row exists. Blob writes happen before row creation so a crash can
// leave an orphaned blob (reclaimed by the collector) but never a row
// without bytes behind it.
type Service struct {
	repo   items.Repository
	blobs  blob.Store
	limits Limits
	logger *zap.Logger
}

// New creates a Service.
func New(repo items.Repository, blobs blob.Store, limits Limits, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:   repo,
		blobs:  blobs,
		limits: limits,
		logger: logger,
	}
}
