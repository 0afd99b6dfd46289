// Package fs implements local-disk blob storage.
//
// Bytes are stored as plain files under a fixed upload root; locators are
// the relative filenames beneath that root. This is the development backend:
// inspectable with ordinary shell tools and trivially seeded.
package fs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/deskfs/deskfs/pkg/store/blob"
)

// FSBlobStore implements blob.Store using the local filesystem.
//
// Thread Safety:
// Filesystem operations are thread-safe at the OS level. Concurrent writes
// to the same key are last-write-wins.
type FSBlobStore struct {
	basePath string
}

// NewFSBlobStore creates a local-disk blob store rooted at basePath.
//
// The root directory is created with permissions 0755 if it does not exist.
func NewFSBlobStore(ctx context.Context, basePath string) (*FSBlobStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload root: %w", err)
	}

	return &FSBlobStore{basePath: basePath}, nil
}

// resolve maps a locator to an absolute path under the upload root, rejecting
// locators that would escape it.
func (s *FSBlobStore) resolve(locator string) (string, error) {
	if locator == "" || strings.HasPrefix(locator, "/") {
		return "", fmt.Errorf("locator %q: %w", locator, blob.ErrInvalidLocator)
	}

	full := filepath.Join(s.basePath, filepath.FromSlash(locator))

	rel, err := filepath.Rel(s.basePath, full)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("locator %q escapes upload root: %w", locator, blob.ErrInvalidLocator)
	}

	return full, nil
}

// Store writes data to a file named by key under the upload root and returns
// the relative filename as the locator.
func (s *FSBlobStore) Store(ctx context.Context, key string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	full, err := s.resolve(key)
	if err != nil {
		return "", err
	}

	if dir := filepath.Dir(full); dir != s.basePath {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("failed to create directory for %q: %w", key, err)
		}
	}

	if err := os.WriteFile(full, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write blob %q: %w", key, err)
	}

	return key, nil
}

// Retrieve reads the file addressed by the locator.
func (s *FSBlobStore) Retrieve(ctx context.Context, locator string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	full, err := s.resolve(locator)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("locator %q: %w", locator, blob.ErrBlobNotFound)
		}
		return nil, fmt.Errorf("failed to read blob %q: %w", locator, err)
	}

	return data, nil
}

// Delete removes the file addressed by the locator. Deleting a locator that
// does not resolve returns ErrBlobNotFound.
func (s *FSBlobStore) Delete(ctx context.Context, locator string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	full, err := s.resolve(locator)
	if err != nil {
		return err
	}

	if err := os.Remove(full); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("locator %q: %w", locator, blob.ErrBlobNotFound)
		}
		return fmt.Errorf("failed to delete blob %q: %w", locator, err)
	}

	return nil
}

// ListKeys walks the upload root and returns every stored locator, expressed
// relative to the root with forward slashes.
func (s *FSBlobStore) ListKeys(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var keys []string
	err := filepath.WalkDir(s.basePath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(s.basePath, path)
		if err != nil {
			return err
		}
		keys = append(keys, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list blobs: %w", err)
	}

	return keys, nil
}
