package service

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/deskfs/deskfs/pkg/store/blob/memory"
	"github.com/deskfs/deskfs/pkg/store/items"
	"github.com/deskfs/deskfs/pkg/store/items/gormstore"
	"github.com/deskfs/deskfs/pkg/vfs"
)

func newService(t *testing.T) (*Service, *gormstore.ItemRepository, *memory.MemoryBlobStore) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	repo := gormstore.New(db)
	require.NoError(t, repo.AutoMigrate())

	blobs := memory.NewMemoryBlobStore()
	svc := New(repo, blobs, Limits{
		MaxUploadSize:      1 << 20,
		MaxAdminUploadSize: 10 << 20,
	}, zap.NewNop())
	return svc, repo, blobs
}

func strPtr(s string) *string { return &s }

func mustUpload(t *testing.T, svc *Service, parent *string, name string, data []byte) *vfs.Item {
	t.Helper()
	item, err := svc.UploadFile(context.Background(), UploadInput{
		Data:       data,
		FileName:   name,
		ParentPath: parent,
		UploadedBy: "tester",
	})
	require.NoError(t, err)
	return item
}

func mustFolder(t *testing.T, svc *Service, parent *string, name string) *vfs.Item {
	t.Helper()
	item, err := svc.CreateFolder(context.Background(), parent, name, "tester", nil)
	require.NoError(t, err)
	return item
}

// ============================================================================
// Upload
// ============================================================================

func TestUploadFile_StoresBytesAndRow(t *testing.T) {
	svc, repo, blobs := newService(t)
	ctx := context.Background()

	item := mustUpload(t, svc, nil, "report.pdf", []byte("%PDF-1.4 payload"))

	assert.Equal(t, "/report.pdf", item.Path)
	assert.Nil(t, item.ParentPath)
	assert.True(t, item.IsReal)
	assert.Equal(t, vfs.TypeDocument, item.Type)
	require.NotNil(t, item.Extension)
	assert.Equal(t, ".pdf", *item.Extension)
	require.NotNil(t, item.Size)
	assert.Equal(t, int64(16), *item.Size)

	require.NotNil(t, item.FilePath)
	data, err := blobs.Retrieve(ctx, *item.FilePath)
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.4 payload"), data)

	stored, err := repo.FindByPath(ctx, "/report.pdf")
	require.NoError(t, err)
	assert.Equal(t, item.ID, stored.ID)
}

func TestUploadFile_NestedPathInvariant(t *testing.T) {
	svc, _, _ := newService(t)

	docs := mustFolder(t, svc, nil, "Docs")
	item := mustUpload(t, svc, &docs.Path, "notes.txt", []byte("hello"))

	require.NotNil(t, item.ParentPath)
	assert.Equal(t, "/Docs", *item.ParentPath)
	assert.Equal(t, "/Docs/notes.txt", item.Path)
}

func TestUploadFile_SizeLimits(t *testing.T) {
	svc, _, blobs := newService(t)
	ctx := context.Background()
	svc.limits.MaxUploadSize = 8
	svc.limits.MaxAdminUploadSize = 64

	_, err := svc.UploadFile(ctx, UploadInput{
		Data:     make([]byte, 32),
		FileName: "big.bin",
	})
	assert.ErrorIs(t, err, vfs.ErrTooLarge)
	assert.Equal(t, 0, blobs.Len(), "rejected upload must not store bytes")

	_, err = svc.UploadFile(ctx, UploadInput{
		Data:     make([]byte, 32),
		FileName: "big.bin",
		Admin:    true,
	})
	require.NoError(t, err)
}

func TestUploadFile_MimeAllowList(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()
	svc.limits.AllowedMimeTypes = []string{"text/*", "application/pdf"}

	// Declared type wins when specific.
	_, err := svc.UploadFile(ctx, UploadInput{
		Data:     []byte("plain words"),
		FileName: "a.txt",
		MimeType: "text/plain",
	})
	require.NoError(t, err)

	// Undeclared type is sniffed. A PNG header is not on the list.
	png := append([]byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a}, make([]byte, 64)...)
	_, err = svc.UploadFile(ctx, UploadInput{
		Data:     png,
		FileName: "sneaky.txt",
	})
	assert.ErrorIs(t, err, vfs.ErrInvalidFileType)
}

func TestUploadFile_ParentValidation(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	_, err := svc.UploadFile(ctx, UploadInput{
		Data:       []byte("x"),
		FileName:   "a.txt",
		ParentPath: strPtr("/nowhere"),
	})
	assert.ErrorIs(t, err, vfs.ErrDirectoryNotFound)

	file := mustUpload(t, svc, nil, "plain.txt", []byte("x"))
	_, err = svc.UploadFile(ctx, UploadInput{
		Data:       []byte("x"),
		FileName:   "b.txt",
		ParentPath: &file.Path,
	})
	assert.ErrorIs(t, err, vfs.ErrValidation)
}

func TestUploadFile_ConflictLeavesNoOrphan(t *testing.T) {
	svc, _, blobs := newService(t)
	ctx := context.Background()

	mustUpload(t, svc, nil, "dup.txt", []byte("first"))
	stored := blobs.Len()

	_, err := svc.UploadFile(ctx, UploadInput{
		Data:     []byte("second"),
		FileName: "dup.txt",
	})
	assert.ErrorIs(t, err, vfs.ErrConflict)
	assert.Equal(t, stored, blobs.Len())
}

func TestUploadFile_CustomNameAndBadNames(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	item, err := svc.UploadFile(ctx, UploadInput{
		Data:       []byte("x"),
		FileName:   "original.txt",
		CustomName: "renamed.txt",
	})
	require.NoError(t, err)
	assert.Equal(t, "renamed.txt", item.Name)
	assert.Equal(t, "/renamed.txt", item.Path)

	_, err = svc.UploadFile(ctx, UploadInput{Data: []byte("x"), FileName: "a/b.txt"})
	assert.ErrorIs(t, err, vfs.ErrInvalidPath)

	_, err = svc.UploadFile(ctx, UploadInput{Data: []byte("x"), FileName: ""})
	assert.ErrorIs(t, err, vfs.ErrInvalidPath)
}

// ============================================================================
// Folders and fake items
// ============================================================================

func TestCreateFolder(t *testing.T) {
	svc, _, _ := newService(t)

	folder := mustFolder(t, svc, nil, "Media")
	assert.Equal(t, vfs.TypeFolder, folder.Type)
	assert.False(t, folder.IsReal)
	assert.Nil(t, folder.Extension)
	assert.Nil(t, folder.Size)
	assert.Nil(t, folder.FilePath)

	_, err := svc.CreateFolder(context.Background(), nil, "Media", "tester", nil)
	assert.ErrorIs(t, err, vfs.ErrConflict)
}

func TestCreateFakeItem_ExtensionFromTypeTable(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	// The name's own extension is ignored for fakes.
	item, err := svc.CreateFakeItem(ctx, nil, "promo.txt", vfs.TypeVideo, "tester", nil)
	require.NoError(t, err)
	assert.False(t, item.IsReal)
	require.NotNil(t, item.Extension)
	assert.Equal(t, ".mp4", *item.Extension)
	assert.Nil(t, item.FilePath)

	_, err = svc.CreateFakeItem(ctx, nil, "x", vfs.ItemType("BOGUS"), "tester", nil)
	assert.ErrorIs(t, err, vfs.ErrValidation)
}

// ============================================================================
// Listing
// ============================================================================

func TestGetItems_ScopedToDirectChildren(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	docs := mustFolder(t, svc, nil, "Docs")
	sub := mustFolder(t, svc, &docs.Path, "Sub")
	mustUpload(t, svc, &docs.Path, "a.txt", []byte("a"))
	mustUpload(t, svc, &sub.Path, "deep.txt", []byte("d"))
	mustUpload(t, svc, nil, "root.txt", []byte("r"))

	roots, err := svc.GetItems(ctx, "/", "", "")
	require.NoError(t, err)
	require.Len(t, roots, 2)

	children, err := svc.GetItems(ctx, "/Docs", "", "")
	require.NoError(t, err)
	require.Len(t, children, 2)
	for _, c := range children {
		assert.NotEqual(t, "deep.txt", c.Name, "listing must not recurse")
	}

	empty, err := svc.GetItems(ctx, "/Docs/Sub/missing", "", "")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestGetItems_SortValidation(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	_, err := svc.GetItems(ctx, "/", items.SortField("color"), "")
	assert.ErrorIs(t, err, vfs.ErrValidation)

	_, err = svc.GetItems(ctx, "/", "", items.SortOrder("sideways"))
	assert.ErrorIs(t, err, vfs.ErrValidation)
}

func TestBrowse_Pagination(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	for _, name := range []string{"a.txt", "b.txt", "c.txt", "d.txt", "e.txt"} {
		mustUpload(t, svc, nil, name, []byte("x"))
	}

	rows, page, err := svc.Browse(ctx, items.Query{Limit: 2, Page: 2})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, int64(5), page.Total)
	assert.Equal(t, 3, page.TotalPages)
	assert.Equal(t, "c.txt", rows[0].Name)
}

// ============================================================================
// Update
// ============================================================================

func TestUpdateItem_RenameRecomputesPathAndExtension(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	docs := mustFolder(t, svc, nil, "Docs")
	item := mustUpload(t, svc, &docs.Path, "draft.txt", []byte("x"))

	updated, err := svc.UpdateItem(ctx, item.ID, UpdateInput{Name: strPtr("final.md")})
	require.NoError(t, err)
	assert.Equal(t, "/Docs/final.md", updated.Path)
	require.NotNil(t, updated.Extension)
	assert.Equal(t, ".md", *updated.Extension)
	assert.True(t, updated.DateModified.After(item.DateModified) ||
		updated.DateModified.Equal(item.DateModified))
}

func TestUpdateItem_RenameFakeKeepsTableExtension(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	fake, err := svc.CreateFakeItem(ctx, nil, "clip", vfs.TypeVideo, "tester", nil)
	require.NoError(t, err)

	updated, err := svc.UpdateItem(ctx, fake.ID, UpdateInput{Name: strPtr("clip.txt")})
	require.NoError(t, err)
	require.NotNil(t, updated.Extension)
	assert.Equal(t, ".mp4", *updated.Extension)
}

func TestUpdateItem_MoveFile(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	docs := mustFolder(t, svc, nil, "Docs")
	item := mustUpload(t, svc, nil, "loose.txt", []byte("x"))

	moved, err := svc.UpdateItem(ctx, item.ID, UpdateInput{ParentPath: &docs.Path})
	require.NoError(t, err)
	require.NotNil(t, moved.ParentPath)
	assert.Equal(t, "/Docs", *moved.ParentPath)
	assert.Equal(t, "/Docs/loose.txt", moved.Path)

	// Back to the root.
	back, err := svc.UpdateItem(ctx, item.ID, UpdateInput{ParentPath: strPtr("/")})
	require.NoError(t, err)
	assert.Nil(t, back.ParentPath)
	assert.Equal(t, "/loose.txt", back.Path)

	_, err = svc.UpdateItem(ctx, item.ID, UpdateInput{ParentPath: strPtr("/nowhere")})
	assert.ErrorIs(t, err, vfs.ErrDirectoryNotFound)
}

func TestUpdateItem_FolderMoveRejected(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	docs := mustFolder(t, svc, nil, "Docs")
	other := mustFolder(t, svc, nil, "Other")

	_, err := svc.UpdateItem(ctx, docs.ID, UpdateInput{ParentPath: &other.Path})
	assert.ErrorIs(t, err, vfs.ErrValidation)
}

func TestUpdateItem_FolderRenameDoesNotCascade(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	docs := mustFolder(t, svc, nil, "Docs")
	child := mustUpload(t, svc, &docs.Path, "a.txt", []byte("x"))

	renamed, err := svc.UpdateItem(ctx, docs.ID, UpdateInput{Name: strPtr("Papers")})
	require.NoError(t, err)
	assert.Equal(t, "/Papers", renamed.Path)

	// Children keep their old parent path and stay listed under it.
	old, err := svc.GetItems(ctx, "/Docs", "", "")
	require.NoError(t, err)
	require.Len(t, old, 1)
	assert.Equal(t, child.ID, old[0].ID)

	fresh, err := svc.GetItems(ctx, "/Papers", "", "")
	require.NoError(t, err)
	assert.Empty(t, fresh)
}

func TestUpdateItem_PathConflict(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	mustUpload(t, svc, nil, "a.txt", []byte("a"))
	b := mustUpload(t, svc, nil, "b.txt", []byte("b"))

	_, err := svc.UpdateItem(ctx, b.ID, UpdateInput{Name: strPtr("a.txt")})
	assert.ErrorIs(t, err, vfs.ErrConflict)
}

// ============================================================================
// Delete
// ============================================================================

func TestDeleteRecursive_RemovesSubtreeAndBlobs(t *testing.T) {
	svc, repo, blobs := newService(t)
	ctx := context.Background()

	docs := mustFolder(t, svc, nil, "Docs")
	sub := mustFolder(t, svc, &docs.Path, "Sub")
	mustUpload(t, svc, &docs.Path, "a.txt", []byte("a"))
	mustUpload(t, svc, &sub.Path, "b.txt", []byte("b"))
	keep := mustUpload(t, svc, nil, "keep.txt", []byte("k"))

	require.NoError(t, svc.DeleteRecursive(ctx, docs.ID))

	for _, path := range []string{"/Docs", "/Docs/Sub", "/Docs/a.txt", "/Docs/Sub/b.txt"} {
		_, err := repo.FindByPath(ctx, path)
		assert.ErrorIs(t, err, vfs.ErrNotFound, path)
	}
	_, err := repo.FindByPath(ctx, "/keep.txt")
	require.NoError(t, err)

	assert.Equal(t, 1, blobs.Len(), "only the kept item's blob remains")
	_, err = blobs.Retrieve(ctx, *keep.FilePath)
	require.NoError(t, err)
}

func TestDeleteRecursive_UnknownID(t *testing.T) {
	svc, _, _ := newService(t)
	err := svc.DeleteRecursive(context.Background(), "no-such-id")
	assert.ErrorIs(t, err, vfs.ErrNotFound)
}

func TestDeleteRecursive_BlobFailureIsSwallowed(t *testing.T) {
	svc, repo, blobs := newService(t)
	ctx := context.Background()

	item := mustUpload(t, svc, nil, "stuck.txt", []byte("x"))
	blobs.FailDeletes = true

	require.NoError(t, svc.DeleteRecursive(ctx, item.ID))

	_, err := repo.FindByID(ctx, item.ID)
	assert.ErrorIs(t, err, vfs.ErrNotFound)
	assert.Equal(t, 1, blobs.Len(), "orphan blob stays behind for the collector")
}

// raceRepo injects a new child under target after its children are listed
// once, simulating a concurrent create during a recursive delete.
type raceRepo struct {
	items.Repository
	svc    *Service
	target string
	fired  bool
}

func (r *raceRepo) List(ctx context.Context, q items.Query) ([]vfs.Item, int64, error) {
	rows, total, err := r.Repository.List(ctx, q)
	if err == nil && !r.fired && q.ParentPath != nil && *q.ParentPath == r.target {
		r.fired = true
		if _, cerr := r.svc.CreateFakeItem(ctx, &r.target, "late.txt", vfs.TypeText, "racer", nil); cerr != nil {
			return nil, 0, cerr
		}
	}
	return rows, total, err
}

func TestDeleteRecursive_SecondPassCatchesConcurrentCreate(t *testing.T) {
	svc, repo, blobs := newService(t)
	ctx := context.Background()

	docs := mustFolder(t, svc, nil, "Docs")
	mustUpload(t, svc, &docs.Path, "a.txt", []byte("a"))

	race := &raceRepo{Repository: repo, target: docs.Path}
	racingSvc := New(race, blobs, svc.limits, zap.NewNop())
	race.svc = svc // the concurrent writer goes through the plain service

	require.NoError(t, racingSvc.DeleteRecursive(ctx, docs.ID))
	require.True(t, race.fired)

	_, err := repo.FindByPath(ctx, "/Docs/late.txt")
	assert.ErrorIs(t, err, vfs.ErrNotFound, "second pass removes the straggler")
	_, err = repo.FindByPath(ctx, "/Docs")
	assert.ErrorIs(t, err, vfs.ErrNotFound)
}

// ============================================================================
// Download
// ============================================================================

func TestDownload(t *testing.T) {
	svc, repo, _ := newService(t)
	ctx := context.Background()

	item := mustUpload(t, svc, nil, "song.mp3", []byte("ID3 bytes"))

	data, contentType, got, err := svc.Download(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("ID3 bytes"), data)
	assert.Equal(t, "audio/mpeg", contentType)
	assert.Equal(t, int64(1), got.DownloadCount)

	_, _, _, err = svc.Download(ctx, item.ID)
	require.NoError(t, err)
	stored, err := repo.FindByID(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stored.DownloadCount)
}

func TestDownload_FakeAndMissing(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	fake, err := svc.CreateFakeItem(ctx, nil, "ghost", vfs.TypeDocument, "tester", nil)
	require.NoError(t, err)

	_, _, _, err = svc.Download(ctx, fake.ID)
	assert.ErrorIs(t, err, vfs.ErrValidation)

	_, _, _, err = svc.Download(ctx, "missing")
	assert.ErrorIs(t, err, vfs.ErrNotFound)
}

// ============================================================================
// Stats and seeding
// ============================================================================

func TestStats(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	mustFolder(t, svc, nil, "Docs")
	mustUpload(t, svc, nil, "a.txt", []byte("12345"))
	_, err := svc.CreateFakeItem(ctx, nil, "ghost", vfs.TypeVideo, "tester", nil)
	require.NoError(t, err)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalItems)
	assert.Equal(t, int64(1), stats.RealItems)
	assert.Equal(t, int64(2), stats.FakeItems)
	assert.Equal(t, int64(1), stats.Folders)
	assert.Equal(t, int64(5), stats.TotalSize)
}

func TestSeed_Idempotent(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	entries := []SeedEntry{
		{Name: "Library", Type: vfs.TypeFolder},
		{ParentPath: strPtr("/Library"), Name: "intro.pdf", Type: vfs.TypeDocument},
		{ParentPath: strPtr("/Library"), Name: "theme.mp3", Type: vfs.TypeAudio},
	}

	created, err := svc.Seed(ctx, entries, "seeder")
	require.NoError(t, err)
	assert.Equal(t, 3, created)

	created, err = svc.Seed(ctx, entries, "seeder")
	require.NoError(t, err)
	assert.Equal(t, 0, created)

	children, err := svc.GetItems(ctx, "/Library", "", "")
	require.NoError(t, err)
	assert.Len(t, children, 2)
}

// ============================================================================
// End to end
// ============================================================================

func TestLifecycle(t *testing.T) {
	svc, repo, blobs := newService(t)
	ctx := context.Background()

	docs := mustFolder(t, svc, nil, "Docs")
	report := mustUpload(t, svc, &docs.Path, "report.pdf", []byte("%PDF-1.4"))
	_, err := svc.CreateFakeItem(ctx, &docs.Path, "promo", vfs.TypeVideo, "tester", nil)
	require.NoError(t, err)

	children, err := svc.GetItems(ctx, "/Docs", items.SortByName, items.SortAsc)
	require.NoError(t, err)
	require.Len(t, children, 2)

	data, _, _, err := svc.Download(ctx, report.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.4"), data)

	renamed, err := svc.UpdateItem(ctx, report.ID, UpdateInput{Name: strPtr("final.pdf")})
	require.NoError(t, err)
	assert.Equal(t, "/Docs/final.pdf", renamed.Path)

	require.NoError(t, svc.DeleteRecursive(ctx, docs.ID))

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.TotalItems)
	assert.Equal(t, 0, blobs.Len())

	_, err = repo.FindByPath(ctx, "/Docs")
	assert.ErrorIs(t, err, vfs.ErrNotFound)
}
