// Package blob defines the storage-backend abstraction for physical bytes.
//
// The blob store manages only raw file data. It does NOT manage:
//   - Item metadata (names, types, hierarchy) → handled by the item repository
//   - Path uniqueness or parent/child relationships → handled by the service
//
// Metadata and blob storage are coordinated through locators: a real item's
// FilePath column holds the locator returned by Store, and readers hand that
// locator back to Retrieve. Locator formats are implementation-specific
// (relative filename for local disk, object URL for S3) and must be treated
// as opaque by callers.
//
// One implementation is selected per process from configuration — local disk
// in development, an S3-compatible object store in production — and passed to
// the service as an explicit dependency. Implementations are never mixed
// within one call chain.
//
// Thread Safety:
// Implementations must be safe for concurrent use by multiple goroutines.
// Concurrent writes to the same key are last-write-wins.
package blob

import "context"

// Store persists and retrieves raw bytes addressed by opaque locators.
type Store interface {
	// Store persists data under the given key and returns the locator that
	// addresses it from now on. For very large payloads implementations may
	// transparently switch to a multipart/chunked upload path; callers are
	// unaware of the distinction.
	Store(ctx context.Context, key string, data []byte) (string, error)

	// Retrieve returns the bytes addressed by a locator.
	//
	// Returns ErrBlobNotFound (wrapped) if the locator does not resolve.
	Retrieve(ctx context.Context, locator string) ([]byte, error)

	// Delete removes the bytes addressed by a locator.
	//
	// Deletion is best-effort: backend-specific failures (permissions,
	// network) are reported but treated as non-fatal by callers, which log
	// and continue. Orphaned bytes left behind are reclaimed by the orphan
	// collector.
	Delete(ctx context.Context, locator string) error
}

// KeyLister is implemented by stores that can enumerate every stored locator.
//
// The orphan collector diffs this listing against the locators referenced by
// metadata to find blobs stranded by swallowed delete failures or crashes.
type KeyLister interface {
	// ListKeys returns the locators of all blobs currently stored.
	ListKeys(ctx context.Context) ([]string, error)
}
