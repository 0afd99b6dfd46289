// Package config loads, defaults and validates the server configuration, and
// provides factory functions turning configuration sections into initialized
// components.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/deskfs/deskfs/pkg/gc"
	"github.com/deskfs/deskfs/pkg/service"
)

// Config represents the complete server configuration.
//
// Configuration sources (in order of precedence):
//  1. Environment variables (DESKFS_*)
//  2. Configuration file (YAML)
//  3. Default values
//
// Blob store configuration follows a type-keyed pattern: Blob.Type selects
// the implementation and only the matching type-specific section is decoded.
type Config struct {
	// Logging controls log output behavior.
	Logging LoggingConfig `mapstructure:"logging"`

	// Server contains HTTP server settings.
	Server ServerConfig `mapstructure:"server"`

	// Database configures the relational metadata store.
	Database DatabaseConfig `mapstructure:"database"`

	// Blob selects and configures the byte-storage backend.
	Blob BlobConfig `mapstructure:"blob"`

	// Upload contains upload policy: size ceilings and the MIME allow-list.
	Upload UploadConfig `mapstructure:"upload"`

	// Seed optionally pre-populates the namespace on startup.
	Seed SeedConfig `mapstructure:"seed"`

	// GC configures the orphaned-blob collector.
	// Uses the gc.Config type directly to avoid duplication.
	GC gc.Config `mapstructure:"gc"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output.
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive).
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Format specifies the log output format.
	// Valid values: text, json
	Format string `mapstructure:"format" validate:"required,oneof=text json"`

	// Output specifies where logs are written.
	// Valid values: stdout, stderr, or a file path.
	Output string `mapstructure:"output" validate:"required"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string `mapstructure:"addr" validate:"required"`

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0"`

	// RateLimit throttles incoming requests per client address.
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`

	// Metrics exposes Prometheus metrics when enabled.
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// RateLimitConfig throttles requests per client address.
type RateLimitConfig struct {
	// Enabled turns request rate limiting on.
	Enabled bool `mapstructure:"enabled"`

	// RPS is the sustained requests-per-second allowance per client.
	RPS float64 `mapstructure:"rps" validate:"gte=0"`

	// Burst is the instantaneous burst allowance per client.
	Burst int `mapstructure:"burst" validate:"gte=0"`
}

// MetricsConfig controls the Prometheus metrics endpoint.
type MetricsConfig struct {
	// Enabled turns metric collection and the /metrics endpoint on.
	Enabled bool `mapstructure:"enabled"`

	// Path is the metrics endpoint path.
	Path string `mapstructure:"path"`
}

// DatabaseConfig configures the relational metadata store.
type DatabaseConfig struct {
	// DSN is the SQLite data source name: a file path, or ":memory:" for an
	// ephemeral database.
	DSN string `mapstructure:"dsn" validate:"required"`
}

// BlobConfig specifies blob store configuration.
//
// The Type field determines which store implementation is used. Only the
// corresponding type-specific configuration section is decoded.
type BlobConfig struct {
	// Type specifies which blob store implementation to use.
	// Valid values: filesystem, memory, s3
	Type string `mapstructure:"type" validate:"required,oneof=filesystem memory s3"`

	// Filesystem contains filesystem-specific configuration.
	// Only used when Type = "filesystem".
	Filesystem map[string]any `mapstructure:"filesystem"`

	// Memory contains memory-specific configuration.
	// Only used when Type = "memory".
	Memory map[string]any `mapstructure:"memory"`

	// S3 contains S3-specific configuration.
	// Only used when Type = "s3".
	S3 map[string]any `mapstructure:"s3"`
}

// UploadConfig contains upload policy.
type UploadConfig struct {
	// MaxSizeBytes is the byte ceiling for regular uploads.
	MaxSizeBytes int64 `mapstructure:"max_size_bytes" validate:"gt=0"`

	// MaxAdminSizeBytes is the byte ceiling for admin uploads.
	MaxAdminSizeBytes int64 `mapstructure:"max_admin_size_bytes" validate:"gt=0"`

	// AllowedMimeTypes is the MIME allow-list. Entries are exact types or
	// family wildcards ("image/*"). Empty allows everything.
	AllowedMimeTypes []string `mapstructure:"allowed_mime_types"`
}

// SeedConfig pre-populates the namespace on startup.
type SeedConfig struct {
	// Enabled turns startup seeding on.
	Enabled bool `mapstructure:"enabled"`

	// UploadedBy is recorded as the creator of seeded items.
	UploadedBy string `mapstructure:"uploaded_by"`

	// Entries lists the items to create, parents first. Existing paths are
	// skipped, so seeding is idempotent across restarts.
	Entries []service.SeedEntry `mapstructure:"entries"`
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (DESKFS_*)
//  2. Configuration file
//  3. Default values
//
// Parameters:
//   - configPath: Path to config file (empty string uses the default location)
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: Configuration loading or validation error
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// setupViper configures viper with environment variables and config file
// settings.
func setupViper(v *viper.Viper, configPath string) {
	// Environment variables use the DESKFS_ prefix with underscores.
	// Example: DESKFS_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("DESKFS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists. A missing file is
// acceptable; defaults apply.
func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		// An absent file is acceptable in both lookup modes: viper reports
		// ConfigFileNotFoundError for search paths and a bare fs.ErrNotExist
		// for an explicit path.
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to the
// current directory if the home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "deskfs")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "deskfs")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}
