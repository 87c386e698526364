package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateConfig checks the settings required by the configured components
// and reports every problem at once.
func ValidateConfig(cfg *Config) error {
	var problems []ValidationError
	fail := func(field, msg string) {
		problems = append(problems, ValidationError{Field: field, Message: msg})
	}

	if cfg.ServerPort == "" {
		fail("SERVER_PORT", "is required")
	}

	switch cfg.DBDriver {
	case "postgres":
		if cfg.DBHost == "" {
			fail("DB_HOST", "is required for the postgres driver")
		}
		if cfg.DBName == "" {
			fail("DB_NAME", "is required for the postgres driver")
		}
		if cfg.DBUser == "" {
			fail("DB_USER", "is required for the postgres driver")
		}
		if cfg.Environment == Production && cfg.DBPassword == "" {
			fail("DB_PASSWORD", "is required in production")
		}
	case "sqlite":
		if cfg.SQLitePath == "" {
			fail("SQLITE_PATH", "is required for the sqlite driver")
		}
	default:
		fail("DB_DRIVER", fmt.Sprintf("unsupported driver %q", cfg.DBDriver))
	}

	if cfg.JWTSecret == "" {
		fail("JWT_SECRET", "is required")
	} else if cfg.Environment == Production && len(cfg.JWTSecret) < 32 {
		fail("JWT_SECRET", "must be at least 32 characters in production")
	}

	if cfg.Environment != Test {
		if cfg.OpenAIAPIKey == "" {
			fail("OPENAI_API_KEY", "is required")
		}
		if cfg.S3Bucket == "" {
			fail("S3_BUCKET_NAME", "is required")
		}
	}
	if cfg.AssetBaseURL != "" {
		if u, err := url.Parse(cfg.AssetBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			fail("ASSET_BASE_URL", "must be an absolute URL")
		}
	}
	if strings.Trim(cfg.AssetFolder, "/") == "" {
		fail("ASSET_FOLDER", "must not be empty")
	}

	if cfg.GenerationTimeout <= 0 {
		fail("GENERATION_TIMEOUT", "must be positive")
	}
	if cfg.SynthesisTimeout <= 0 {
		fail("SYNTHESIS_TIMEOUT", "must be positive")
	}
	if cfg.StorageTimeout <= 0 {
		fail("STORAGE_TIMEOUT", "must be positive")
	}
	if cfg.GenerationRateLimit < 0 {
		fail("GENERATION_RATE_LIMIT", "must not be negative")
	}
	if cfg.GenerationRateLimit > 0 && cfg.GenerationRateWindow <= 0 {
		fail("GENERATION_RATE_WINDOW", "must be positive")
	}

	if len(problems) == 0 {
		return nil
	}

	errs := make([]error, 0, len(problems))
	for _, p := range problems {
		errs = append(errs, p)
	}
	return errors.Join(errs...)
}
