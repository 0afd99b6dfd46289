// Package memory implements in-memory blob storage.
//
// Designed for tests and ephemeral development runs: all operations are
// memory-speed and data is lost on process exit.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/deskfs/deskfs/pkg/store/blob"
)

// MemoryBlobStore implements blob.Store backed by a map.
//
// Thread Safety:
// All operations are protected by a sync.RWMutex. Data is copied on both
// store and retrieve so callers cannot race against the store's buffers.
type MemoryBlobStore struct {
	data map[string][]byte
	mu   sync.RWMutex

	// FailDeletes forces Delete to return an error. Used by tests to
	// exercise the best-effort deletion path of the service layer.
	FailDeletes bool
}

// NewMemoryBlobStore creates an empty in-memory blob store.
func NewMemoryBlobStore() *MemoryBlobStore {
	return &MemoryBlobStore{data: make(map[string][]byte)}
}

// Store copies data into the map under key and returns key as the locator.
func (s *MemoryBlobStore) Store(ctx context.Context, key string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	buf := make([]byte, len(data))
	copy(buf, data)

	s.mu.Lock()
	s.data[key] = buf
	s.mu.Unlock()

	return key, nil
}

// Retrieve returns a copy of the bytes stored under the locator.
func (s *MemoryBlobStore) Retrieve(ctx context.Context, locator string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	stored, ok := s.data[locator]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("locator %q: %w", locator, blob.ErrBlobNotFound)
	}

	buf := make([]byte, len(stored))
	copy(buf, stored)
	return buf, nil
}

// Delete removes the bytes stored under the locator.
func (s *MemoryBlobStore) Delete(ctx context.Context, locator string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if s.FailDeletes {
		return fmt.Errorf("simulated backend failure deleting %q", locator)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[locator]; !ok {
		return fmt.Errorf("locator %q: %w", locator, blob.ErrBlobNotFound)
	}

	delete(s.data, locator)
	return nil
}

// ListKeys returns the locators of all stored blobs.
func (s *MemoryBlobStore) ListKeys(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	return keys, nil
}

// Len returns the number of stored blobs. Test helper.
func (s *MemoryBlobStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
