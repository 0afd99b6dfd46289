package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deskfs/deskfs/pkg/vfs"
)

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "INFO", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "filesystem", cfg.Blob.Type)
	assert.Equal(t, "uploads", cfg.Blob.Filesystem["path"])
	assert.Equal(t, int64(100<<20), cfg.Upload.MaxSizeBytes)
	assert.Equal(t, int64(500<<20), cfg.Upload.MaxAdminSizeBytes)
	assert.Equal(t, 24*time.Hour, cfg.GC.Interval)
	assert.False(t, cfg.GC.Enabled)
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
logging:
  level: debug
  format: json
server:
  addr: ":9999"
  rate_limit:
    enabled: true
    rps: 5
    burst: 10
database:
  dsn: ":memory:"
blob:
  type: memory
upload:
  max_size_bytes: 1024
  max_admin_size_bytes: 4096
  allowed_mime_types:
    - text/plain
    - image/*
seed:
  enabled: true
  entries:
    - name: Docs
      type: FOLDER
    - name: intro.pdf
      parent_path: /Docs
      type: DOCUMENT
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "DEBUG", cfg.Logging.Level, "level is normalized to uppercase")
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, ":9999", cfg.Server.Addr)
	assert.True(t, cfg.Server.RateLimit.Enabled)
	assert.Equal(t, ":memory:", cfg.Database.DSN)
	assert.Equal(t, "memory", cfg.Blob.Type)
	assert.Equal(t, int64(1024), cfg.Upload.MaxSizeBytes)
	assert.Equal(t, []string{"text/plain", "image/*"}, cfg.Upload.AllowedMimeTypes)

	require.Len(t, cfg.Seed.Entries, 2)
	assert.Equal(t, vfs.TypeFolder, cfg.Seed.Entries[0].Type)
	require.NotNil(t, cfg.Seed.Entries[1].ParentPath)
	assert.Equal(t, "/Docs", *cfg.Seed.Entries[1].ParentPath)
}

func TestLoad_RejectsInvalidConfig(t *testing.T) {
	dir := t.TempDir()

	cases := map[string]string{
		"bad blob type":     "blob:\n  type: floppy\n",
		"bad log level":     "logging:\n  level: chatty\n",
		"admin below limit": "upload:\n  max_size_bytes: 100\n  max_admin_size_bytes: 50\n",
		"bad mime entry":    "upload:\n  allowed_mime_types: [notamime]\n",
		"bad seed type":     "seed:\n  entries:\n    - name: x\n      type: NOPE\n",
	}

	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name+".yaml")
			require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}
