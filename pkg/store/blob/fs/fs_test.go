package fs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deskfs/deskfs/pkg/store/blob"
	blobtest "github.com/deskfs/deskfs/pkg/store/blob/testing"
)

func newStore(t *testing.T) blob.Store {
	t.Helper()

	store, err := NewFSBlobStore(context.Background(), t.TempDir())
	require.NoError(t, err)
	return store
}

func TestFSBlobStore_Conformance(t *testing.T) {
	blobtest.RunSuite(t, newStore)
}

func TestFSBlobStore_RejectsEscapingLocators(t *testing.T) {
	store, err := NewFSBlobStore(context.Background(), t.TempDir())
	require.NoError(t, err)

	for _, locator := range []string{"", "/etc/passwd", "../outside", "a/../../outside"} {
		_, err := store.Retrieve(context.Background(), locator)
		assert.ErrorIs(t, err, blob.ErrInvalidLocator, locator)
	}
}

func TestFSBlobStore_LocatorIsRelativeKey(t *testing.T) {
	store, err := NewFSBlobStore(context.Background(), t.TempDir())
	require.NoError(t, err)

	locator, err := store.Store(context.Background(), "uploads/report.pdf", []byte("pdf"))
	require.NoError(t, err)
	assert.Equal(t, "uploads/report.pdf", locator)
}
