package vfs

import "errors"

// ============================================================================
// Standard Namespace Errors
// ============================================================================

// These errors provide a consistent way to indicate common failure conditions
// across the repository, service, and HTTP layers. Transport handlers check
// for these errors with errors.Is and map them to status codes.
//
// Error Wrapping:
// Callers should wrap these errors with additional context:
//
//	if existing != nil {
//	    return fmt.Errorf("path %q: %w", path, vfs.ErrConflict)
//	}

var (
	// ErrInvalidPath indicates a malformed path or name segment.
	//
	// Returned when:
	//   - A name segment is empty
	//   - A name segment contains a path separator
	//
	// HTTP mapping: 400 Bad Request
	ErrInvalidPath = errors.New("invalid path")

	// ErrInvalidFileType indicates an upload with a MIME type outside the
	// configured allow-list.
	//
	// HTTP mapping: 400 Bad Request
	ErrInvalidFileType = errors.New("invalid file type")

	// ErrNotFound indicates the requested item does not exist.
	//
	// Returned when an id or path does not resolve to a row.
	//
	// HTTP mapping: 404 Not Found
	ErrNotFound = errors.New("item not found")

	// ErrDirectoryNotFound indicates a parent path that does not resolve to
	// an existing FOLDER item.
	//
	// This is distinct from ErrNotFound: it is raised on create/upload when
	// the *target directory* is missing, never on listing (listing an unknown
	// directory returns an empty result).
	//
	// HTTP mapping: 404 Not Found
	ErrDirectoryNotFound = errors.New("directory not found")

	// ErrConflict indicates a path collision: another item already occupies
	// the canonical path the operation would produce.
	//
	// Uniqueness is enforced at the repository write boundary, so two
	// concurrent creates targeting the same path race and the loser observes
	// this error rather than a silent overwrite.
	//
	// HTTP mapping: 409 Conflict
	ErrConflict = errors.New("path already exists")

	// ErrValidation indicates a constraint violation detected before any
	// mutation, e.g. a folder-move attempt or a download of a fake item.
	//
	// HTTP mapping: 400 Bad Request
	ErrValidation = errors.New("validation failed")

	// ErrTooLarge indicates an upload exceeding the configured size limit.
	//
	// HTTP mapping: 413 Request Entity Too Large
	ErrTooLarge = errors.New("file too large")
)
