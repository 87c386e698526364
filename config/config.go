package config

import (
	"fmt"
	"strings"
	"time"
)

// Config holds all configuration for the application
type Config struct {
	Environment Environment

	// Server configuration
	ServerHost  string
	ServerPort  string
	CORSOrigins []string

	// Logging
	LogLevel  string
	LogFormat string

	// Database configuration. DBDriver is "postgres" or "sqlite".
	DBDriver   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	SQLitePath string

	// Redis configuration. Without RedisURL or RedisHost drafts and rate
	// limiting are disabled.
	RedisURL      string
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// JWTSecret verifies bearer tokens issued by the identity provider.
	JWTSecret string

	// Generative models
	OpenAIAPIKey  string
	OpenAIBaseURL string
	TextModel     string
	ImageModel    string
	Temperature   float64

	// Blob storage
	S3Bucket     string
	S3Region     string
	S3Endpoint   string
	AssetBaseURL string
	AssetFolder  string

	// Deadlines for outbound calls
	GenerationTimeout time.Duration
	SynthesisTimeout  time.Duration
	StorageTimeout    time.Duration

	// Generation requests allowed per user and window
	GenerationRateLimit  int
	GenerationRateWindow time.Duration
}

// LoadConfig reads the configuration of the current environment and validates it.
func LoadConfig() (*Config, error) {
	env := GetEnvironment()
	cfg, errs := load(newSource(env))
	cfg.Environment = env

	if len(errs) > 0 {
		return nil, fmt.Errorf("failed to load %s configuration:\n%s", env, strings.Join(errs, "\n"))
	}

	if err := ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func load(src source) (*Config, []string) {
	var errs []string

	defaultDriver := "postgres"
	if src.env == Test {
		defaultDriver = "sqlite"
	}

	cfg := &Config{
		ServerHost:  src.stringOr("SERVER_HOST", "0.0.0.0"),
		ServerPort:  src.stringOr("SERVER_PORT", "8080"),
		CORSOrigins: src.listOr("CORS_ORIGINS", []string{"http://localhost:5173"}),

		LogLevel:  src.stringOr("LOG_LEVEL", "info"),
		LogFormat: src.stringOr("LOG_FORMAT", "json"),

		DBDriver:   strings.ToLower(src.stringOr("DB_DRIVER", defaultDriver)),
		DBHost:     src.get("DB_HOST"),
		DBPort:     src.stringOr("DB_PORT", "5432"),
		DBUser:     src.get("DB_USER"),
		DBPassword: src.get("DB_PASSWORD"),
		DBName:     src.get("DB_NAME"),
		DBSSLMode:  src.stringOr("DB_SSL_MODE", "disable"),
		SQLitePath: src.stringOr("SQLITE_PATH", "smartrecipe.db"),

		RedisURL:      src.get("REDIS_URL"),
		RedisHost:     src.get("REDIS_HOST"),
		RedisPort:     src.stringOr("REDIS_PORT", "6379"),
		RedisPassword: src.get("REDIS_PASSWORD"),
		RedisDB:       src.intOr("REDIS_DB", 0, &errs),

		JWTSecret: src.get("JWT_SECRET"),

		OpenAIAPIKey:  src.get("OPENAI_API_KEY"),
		OpenAIBaseURL: src.get("OPENAI_BASE_URL"),
		TextModel:     src.stringOr("OPENAI_TEXT_MODEL", "gpt-4o-mini"),
		ImageModel:    src.stringOr("OPENAI_IMAGE_MODEL", "dall-e-3"),
		Temperature:   src.floatOr("OPENAI_TEMPERATURE", 0.7, &errs),

		S3Bucket:     src.get("S3_BUCKET_NAME"),
		S3Region:     src.stringOr("AWS_REGION", "us-east-1"),
		S3Endpoint:   src.get("S3_ENDPOINT"),
		AssetBaseURL: src.get("ASSET_BASE_URL"),
		AssetFolder:  src.stringOr("ASSET_FOLDER", "smartrecipe"),

		GenerationTimeout: src.durationOr("GENERATION_TIMEOUT", 60*time.Second, &errs),
		SynthesisTimeout:  src.durationOr("SYNTHESIS_TIMEOUT", 90*time.Second, &errs),
		StorageTimeout:    src.durationOr("STORAGE_TIMEOUT", 30*time.Second, &errs),

		GenerationRateLimit:  src.intOr("GENERATION_RATE_LIMIT", 10, &errs),
		GenerationRateWindow: src.durationOr("GENERATION_RATE_WINDOW", time.Hour, &errs),
	}

	if cfg.AssetBaseURL == "" && cfg.S3Bucket != "" {
		cfg.AssetBaseURL = DefaultAssetBaseURL(cfg.S3Bucket, cfg.S3Endpoint)
	}

	return cfg, errs
}

// PostgresDSN renders the connection string for the postgres driver.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode)
}

// RedisEnabled reports whether a Redis server is configured.
func (c *Config) RedisEnabled() bool {
	return c.RedisURL != "" || c.RedisHost != ""
}

// Addr is the listen address of the HTTP server.
func (c *Config) Addr() string {
	return c.ServerHost + ":" + c.ServerPort
}
