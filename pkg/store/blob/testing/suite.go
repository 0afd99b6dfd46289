// Package blobtest provides a conformance suite shared by blob.Store
// implementations. Each implementation's tests construct a fresh store and
// run the suite against it.
package blobtest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deskfs/deskfs/pkg/store/blob"
)

// Factory builds a fresh, empty store for one test.
type Factory func(t *testing.T) blob.Store

// RunSuite exercises the blob.Store contract against the given factory.
func RunSuite(t *testing.T, newStore Factory) {
	t.Run("StoreAndRetrieve", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		locator, err := s.Store(ctx, "docs/a.txt", []byte("hello"))
		require.NoError(t, err)
		require.NotEmpty(t, locator)

		data, err := s.Retrieve(ctx, locator)
		require.NoError(t, err)
		assert.Equal(t, []byte("hello"), data)
	})

	t.Run("RetrieveUnknownLocator", func(t *testing.T) {
		s := newStore(t)

		_, err := s.Retrieve(context.Background(), "does/not/exist")
		assert.ErrorIs(t, err, blob.ErrBlobNotFound)
	})

	t.Run("OverwriteSameKey", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		_, err := s.Store(ctx, "k", []byte("one"))
		require.NoError(t, err)
		locator, err := s.Store(ctx, "k", []byte("two"))
		require.NoError(t, err)

		data, err := s.Retrieve(ctx, locator)
		require.NoError(t, err)
		assert.Equal(t, []byte("two"), data)
	})

	t.Run("DeleteThenRetrieveFails", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		locator, err := s.Store(ctx, "victim.bin", []byte{1, 2, 3})
		require.NoError(t, err)

		require.NoError(t, s.Delete(ctx, locator))

		_, err = s.Retrieve(ctx, locator)
		assert.ErrorIs(t, err, blob.ErrBlobNotFound)
	})

	t.Run("EmptyPayload", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		locator, err := s.Store(ctx, "empty", nil)
		require.NoError(t, err)

		data, err := s.Retrieve(ctx, locator)
		require.NoError(t, err)
		assert.Empty(t, data)
	})

	t.Run("ListKeys", func(t *testing.T) {
		s := newStore(t)
		lister, ok := s.(blob.KeyLister)
		if !ok {
			t.Skip("store does not implement KeyLister")
		}
		ctx := context.Background()

		a, err := s.Store(ctx, "one.txt", []byte("1"))
		require.NoError(t, err)
		b, err := s.Store(ctx, "nested/two.txt", []byte("2"))
		require.NoError(t, err)

		keys, err := lister.ListKeys(ctx)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{a, b}, keys)
	})

	t.Run("CancelledContext", func(t *testing.T) {
		s := newStore(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := s.Store(ctx, "k", []byte("v"))
		assert.Error(t, err)
	})
}
