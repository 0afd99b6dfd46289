package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate is the singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate validates the configuration using struct tags and custom rules.
//
// Declarative checks come from go-playground/validator struct tags; rules
// that cannot be expressed in tags live in validateCustomRules.
//
// Note: Log level normalization is handled in ApplyDefaults, not here.
// Validation accepts both uppercase and lowercase log levels.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	return validateCustomRules(cfg)
}

// validateCustomRules performs custom validation beyond struct tags.
func validateCustomRules(cfg *Config) error {
	if cfg.Upload.MaxAdminSizeBytes < cfg.Upload.MaxSizeBytes {
		return fmt.Errorf("upload: max_admin_size_bytes (%d) must not be below max_size_bytes (%d)",
			cfg.Upload.MaxAdminSizeBytes, cfg.Upload.MaxSizeBytes)
	}

	for i, mime := range cfg.Upload.AllowedMimeTypes {
		if mime != "*/*" && !strings.Contains(mime, "/") {
			return fmt.Errorf("upload: allowed_mime_types[%d]: %q is not a MIME type", i, mime)
		}
	}

	if cfg.Server.RateLimit.Enabled {
		if cfg.Server.RateLimit.RPS <= 0 {
			return fmt.Errorf("server.rate_limit: rps must be positive when enabled")
		}
		if cfg.Server.RateLimit.Burst <= 0 {
			return fmt.Errorf("server.rate_limit: burst must be positive when enabled")
		}
	}

	for i, entry := range cfg.Seed.Entries {
		if entry.Name == "" {
			return fmt.Errorf("seed.entries[%d]: name is required", i)
		}
		if !entry.Type.Valid() {
			return fmt.Errorf("seed.entries[%d]: unknown item type %q", i, entry.Type)
		}
	}

	return nil
}

// formatValidationError converts validator errors into user-friendly messages.
func formatValidationError(err error) error {
	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		if len(validationErrs) > 0 {
			e := validationErrs[0]
			return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
				e.Namespace(), e.Tag(), e.Value())
		}
	}
	return err
}
