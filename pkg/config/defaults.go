package config

import (
	"strings"
	"time"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// Zero values (0, "", false, nil) are replaced with defaults; explicit values
// are preserved. Store-specific defaults are handled by the factories.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyServerDefaults(&cfg.Server)
	applyDatabaseDefaults(&cfg.Database)
	applyBlobDefaults(&cfg.Blob)
	applyUploadDefaults(&cfg.Upload)
	applySeedDefaults(&cfg.Seed)
	applyGCDefaults(cfg)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

// applyServerDefaults sets HTTP server defaults.
func applyServerDefaults(cfg *ServerConfig) {
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
	if cfg.RateLimit.RPS == 0 {
		cfg.RateLimit.RPS = 50
	}
	if cfg.RateLimit.Burst == 0 {
		cfg.RateLimit.Burst = 100
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
}

// applyDatabaseDefaults sets metadata store defaults.
func applyDatabaseDefaults(cfg *DatabaseConfig) {
	if cfg.DSN == "" {
		cfg.DSN = "deskfs.db"
	}
}

// applyBlobDefaults sets blob store defaults.
func applyBlobDefaults(cfg *BlobConfig) {
	if cfg.Type == "" {
		cfg.Type = "filesystem"
	}

	if cfg.Filesystem == nil {
		cfg.Filesystem = make(map[string]any)
	}
	if cfg.Memory == nil {
		cfg.Memory = make(map[string]any)
	}
	if cfg.S3 == nil {
		cfg.S3 = make(map[string]any)
	}

	if _, ok := cfg.Filesystem["path"]; !ok {
		cfg.Filesystem["path"] = "uploads"
	}
}

// applyUploadDefaults sets upload policy defaults.
func applyUploadDefaults(cfg *UploadConfig) {
	if cfg.MaxSizeBytes == 0 {
		cfg.MaxSizeBytes = 100 << 20 // 100MB
	}
	if cfg.MaxAdminSizeBytes == 0 {
		cfg.MaxAdminSizeBytes = 500 << 20 // 500MB
	}
}

// applySeedDefaults sets seeding defaults.
func applySeedDefaults(cfg *SeedConfig) {
	if cfg.UploadedBy == "" {
		cfg.UploadedBy = "system"
	}
}

// applyGCDefaults sets orphan collector defaults.
func applyGCDefaults(cfg *Config) {
	if cfg.GC.Interval == 0 {
		cfg.GC.Interval = 24 * time.Hour
	}
	if cfg.GC.BatchSize == 0 {
		cfg.GC.BatchSize = 100
	}
}
