package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/deskfs/deskfs/pkg/gc"
	"github.com/deskfs/deskfs/pkg/service"
	"github.com/deskfs/deskfs/pkg/store/blob/memory"
	"github.com/deskfs/deskfs/pkg/store/items/gormstore"
	"github.com/deskfs/deskfs/pkg/vfs"
)

func newTestServer(t *testing.T, opts Options) (*Server, *memory.MemoryBlobStore) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	repo := gormstore.New(db)
	require.NoError(t, repo.AutoMigrate())
	blobs := memory.NewMemoryBlobStore()

	svc := service.New(repo, blobs, service.Limits{
		MaxUploadSize:      1 << 20,
		MaxAdminUploadSize: 10 << 20,
	}, zap.NewNop())

	collector, err := gc.NewCollector(repo, blobs, gc.Config{}, nil)
	require.NoError(t, err)

	return NewServer(svc, collector, opts, zap.NewNop()), blobs
}

func doRequest(t *testing.T, srv *Server, method, target string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	t.Helper()

	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func doJSON(t *testing.T, srv *Server, method, target string, payload any) *httptest.ResponseRecorder {
	t.Helper()

	body, err := json.Marshal(payload)
	require.NoError(t, err)
	return doRequest(t, srv, method, target, bytes.NewBuffer(body), "application/json")
}

func uploadFile(t *testing.T, srv *Server, name, content string, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}
	require.NoError(t, writer.Close())

	return doRequest(t, srv, http.MethodPost, "/api/items/upload", &buf, writer.FormDataContentType())
}

func decodeItem(t *testing.T, rec *httptest.ResponseRecorder) vfs.Item {
	t.Helper()

	var item vfs.Item
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &item))
	return item
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t, Options{})

	rec := doRequest(t, srv, http.MethodGet, "/healthz", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUploadAndBrowse(t *testing.T) {
	srv, _ := newTestServer(t, Options{})

	rec := doJSON(t, srv, http.MethodPost, "/api/items/folder", map[string]any{"name": "Docs"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = uploadFile(t, srv, "notes.txt", "hello world", map[string]string{
		"parentPath": "/Docs",
		"uploadedBy": "alice",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	item := decodeItem(t, rec)
	assert.Equal(t, "/Docs/notes.txt", item.Path)
	assert.True(t, item.IsReal)

	rec = doRequest(t, srv, http.MethodGet, "/api/browse/Docs", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var listing struct {
		Items []vfs.Item `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listing))
	require.Len(t, listing.Items, 1)
	assert.Equal(t, "notes.txt", listing.Items[0].Name)

	// Root listing shows only the folder.
	rec = doRequest(t, srv, http.MethodGet, "/api/browse/", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listing))
	require.Len(t, listing.Items, 1)
	assert.Equal(t, "Docs", listing.Items[0].Name)
}

func TestUpload_ErrorStatuses(t *testing.T) {
	srv, _ := newTestServer(t, Options{})

	// Conflict on duplicate path.
	rec := uploadFile(t, srv, "dup.txt", "x", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = uploadFile(t, srv, "dup.txt", "y", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Unknown parent folder.
	rec = uploadFile(t, srv, "a.txt", "x", map[string]string{"parentPath": "/nope"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Missing file part.
	rec = doRequest(t, srv, http.MethodPost, "/api/items/upload", nil, "multipart/form-data")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpload_TooLarge(t *testing.T) {
	srv, _ := newTestServer(t, Options{})

	rec := uploadFile(t, srv, "big.bin", strings.Repeat("x", 2<<20), nil)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestCreateFake_Validation(t *testing.T) {
	srv, _ := newTestServer(t, Options{})

	rec := doJSON(t, srv, http.MethodPost, "/api/items/fake", map[string]any{
		"fileName": "promo", "fileType": "VIDEO",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	item := decodeItem(t, rec)
	assert.False(t, item.IsReal)
	require.NotNil(t, item.Extension)
	assert.Equal(t, ".mp4", *item.Extension)

	rec = doJSON(t, srv, http.MethodPost, "/api/items/fake", map[string]any{
		"fileName": "x", "fileType": "HOLOGRAM",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, srv, http.MethodPost, "/api/items/fake", map[string]any{"fileName": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "missing fileType")
}

func TestUpdateAndDelete(t *testing.T) {
	srv, _ := newTestServer(t, Options{})

	rec := uploadFile(t, srv, "draft.txt", "x", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	item := decodeItem(t, rec)

	rec = doJSON(t, srv, http.MethodPatch, "/api/items/"+item.ID, map[string]any{"name": "final.txt"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decodeItem(t, rec)
	assert.Equal(t, "/final.txt", updated.Path)

	rec = doRequest(t, srv, http.MethodDelete, "/api/items/"+item.ID, nil, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doRequest(t, srv, http.MethodDelete, "/api/items/"+item.ID, nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDownloadAndView(t *testing.T) {
	srv, _ := newTestServer(t, Options{})

	rec := uploadFile(t, srv, "song.mp3", "ID3 bytes", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	item := decodeItem(t, rec)

	rec = doRequest(t, srv, http.MethodGet, "/api/items/"+item.ID+"/download", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ID3 bytes", rec.Body.String())
	assert.Equal(t, "audio/mpeg", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")

	rec = doRequest(t, srv, http.MethodGet, "/api/items/"+item.ID+"/view", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "inline")

	// Fake items have nothing to download.
	rec = doJSON(t, srv, http.MethodPost, "/api/items/fake", map[string]any{
		"fileName": "ghost", "fileType": "DOCUMENT",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	fake := decodeItem(t, rec)
	rec = doRequest(t, srv, http.MethodGet, "/api/items/"+fake.ID+"/download", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminItemsAndStats(t *testing.T) {
	srv, _ := newTestServer(t, Options{})

	for i := 0; i < 5; i++ {
		rec := uploadFile(t, srv, fmt.Sprintf("file-%d.txt", i), "x", nil)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := doRequest(t, srv, http.MethodGet, "/api/admin/items?limit=2&page=2", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Items      []vfs.Item         `json:"items"`
		Pagination service.Pagination `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Items, 2)
	assert.Equal(t, int64(5), resp.Pagination.Total)
	assert.Equal(t, 3, resp.Pagination.TotalPages)

	rec = doRequest(t, srv, http.MethodGet, "/api/admin/items?isReal=maybe", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, srv, http.MethodGet, "/api/admin/stats", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var stats struct {
		TotalItems int64 `json:"totalItems"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, int64(5), stats.TotalItems)
}

func TestRunGC(t *testing.T) {
	srv, blobs := newTestServer(t, Options{})

	_, err := blobs.Store(context.Background(), "orphan", []byte("x"))
	require.NoError(t, err)

	rec := doRequest(t, srv, http.MethodPost, "/api/admin/gc", nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var result struct {
		Orphaned int `json:"orphaned"`
		Deleted  int `json:"deleted"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, 1, result.Orphaned)
	assert.Equal(t, 1, result.Deleted)
	assert.Equal(t, 0, blobs.Len())
}

func TestRateLimit(t *testing.T) {
	srv, _ := newTestServer(t, Options{
		RateLimitEnabled: true,
		RateLimitRPS:     1,
		RateLimitBurst:   2,
	})

	codes := make(map[int]int)
	for i := 0; i < 5; i++ {
		rec := doRequest(t, srv, http.MethodGet, "/healthz", nil, "")
		codes[rec.Code]++
	}
	assert.Equal(t, 2, codes[http.StatusOK])
	assert.Equal(t, 3, codes[http.StatusTooManyRequests])
}
