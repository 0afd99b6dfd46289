package blob

import "errors"

// Standard blob store errors. Implementations wrap these with context:
//
//	return nil, fmt.Errorf("locator %q: %w", locator, blob.ErrBlobNotFound)
var (
	// ErrBlobNotFound indicates the locator does not resolve to stored bytes.
	//
	// HTTP mapping: 404 Not Found
	ErrBlobNotFound = errors.New("blob not found")

	// ErrInvalidLocator indicates a locator that is malformed for the store,
	// e.g. an absolute or escaping path handed to the local-disk store.
	ErrInvalidLocator = errors.New("invalid locator")
)
