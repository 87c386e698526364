package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setTestEnv(t *testing.T) {
	t.Helper()
	t.Setenv("CI", "")
	t.Setenv("ENV", "test")
	t.Setenv("SECRETS_DIR", t.TempDir())
	t.Setenv("JWT_SECRET", "test-secret")
}

func TestLoadConfig(t *testing.T) {
	t.Run("should apply defaults in the test environment", func(t *testing.T) {
		setTestEnv(t)

		cfg, err := LoadConfig()
		require.NoError(t, err)

		assert.Equal(t, Test, cfg.Environment)
		assert.Equal(t, "sqlite", cfg.DBDriver)
		assert.Equal(t, "8080", cfg.ServerPort)
		assert.Equal(t, "smartrecipe", cfg.AssetFolder)
		assert.Equal(t, 60*time.Second, cfg.GenerationTimeout)
		assert.Equal(t, 90*time.Second, cfg.SynthesisTimeout)
		assert.Equal(t, 30*time.Second, cfg.StorageTimeout)
		assert.Equal(t, "gpt-4o-mini", cfg.TextModel)
		assert.InDelta(t, 0.7, cfg.Temperature, 0.0001)
		assert.False(t, cfg.RedisEnabled())
	})

	t.Run("should read environment overrides", func(t *testing.T) {
		setTestEnv(t)
		t.Setenv("GENERATION_TIMEOUT", "15s")
		t.Setenv("CORS_ORIGINS", "http://a.test, http://b.test")
		t.Setenv("REDIS_URL", "redis://localhost:6379/0")
		t.Setenv("S3_BUCKET_NAME", "recipes")

		cfg, err := LoadConfig()
		require.NoError(t, err)

		assert.Equal(t, 15*time.Second, cfg.GenerationTimeout)
		assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSOrigins)
		assert.True(t, cfg.RedisEnabled())
		assert.Equal(t, "https://recipes.s3.amazonaws.com", cfg.AssetBaseURL)
	})

	t.Run("should read docker secrets when the variable is unset", func(t *testing.T) {
		setTestEnv(t)
		t.Setenv("JWT_SECRET", "")
		dir := os.Getenv("SECRETS_DIR")
		require.NoError(t, os.WriteFile(filepath.Join(dir, "jwt_secret"), []byte("from-secret\n"), 0o600))

		cfg, err := LoadConfig()
		require.NoError(t, err)
		assert.Equal(t, "from-secret", cfg.JWTSecret)
	})

	t.Run("should report malformed values", func(t *testing.T) {
		setTestEnv(t)
		t.Setenv("STORAGE_TIMEOUT", "soon")

		_, err := LoadConfig()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "STORAGE_TIMEOUT")
	})
}

func TestValidateConfig(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Environment:       Development,
			ServerPort:        "8080",
			DBDriver:          "postgres",
			DBHost:            "localhost",
			DBName:            "smartrecipe",
			DBUser:            "postgres",
			JWTSecret:         "secret",
			OpenAIAPIKey:      "sk-test",
			S3Bucket:          "recipes",
			AssetFolder:       "smartrecipe",
			GenerationTimeout: time.Minute,
			SynthesisTimeout:  time.Minute,
			StorageTimeout:    time.Minute,
		}
	}

	t.Run("should accept a complete configuration", func(t *testing.T) {
		assert.NoError(t, ValidateConfig(valid()))
	})

	t.Run("should aggregate every problem", func(t *testing.T) {
		cfg := valid()
		cfg.DBDriver = "mysql"
		cfg.JWTSecret = ""
		cfg.StorageTimeout = 0

		err := ValidateConfig(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "DB_DRIVER")
		assert.Contains(t, err.Error(), "JWT_SECRET")
		assert.Contains(t, err.Error(), "STORAGE_TIMEOUT")

		var verr ValidationError
		assert.True(t, errors.As(err, &verr))
	})

	t.Run("should require a long secret in production", func(t *testing.T) {
		cfg := valid()
		cfg.Environment = Production
		cfg.DBPassword = "pw"

		err := ValidateConfig(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "at least 32 characters")
	})
}

type fakeS3 struct {
	puts    []*s3.PutObjectInput
	deletes []*s3.DeleteObjectInput
	err     error
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.puts = append(f.puts, in)
	return &s3.PutObjectOutput{}, f.err
}

func (f *fakeS3) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.deletes = append(f.deletes, in)
	return &s3.DeleteObjectOutput{}, f.err
}

func TestS3Store(t *testing.T) {
	t.Run("should upload and return the public url", func(t *testing.T) {
		client := &fakeS3{}
		store := NewS3StoreWithClient(client, "recipes", "https://recipes.s3.amazonaws.com/")

		url, err := store.Upload(context.Background(), "smartrecipe/abc.png", "image/png", []byte("png"))
		require.NoError(t, err)

		assert.Equal(t, "https://recipes.s3.amazonaws.com/smartrecipe/abc.png", url)
		require.Len(t, client.puts, 1)
		assert.Equal(t, "recipes", aws.ToString(client.puts[0].Bucket))
		assert.Equal(t, "smartrecipe/abc.png", aws.ToString(client.puts[0].Key))
		assert.Equal(t, "image/png", aws.ToString(client.puts[0].ContentType))
	})

	t.Run("should delete by key", func(t *testing.T) {
		client := &fakeS3{}
		store := NewS3StoreWithClient(client, "recipes", "https://recipes.s3.amazonaws.com")

		require.NoError(t, store.Delete(context.Background(), "smartrecipe/abc.png"))
		require.Len(t, client.deletes, 1)
		assert.Equal(t, "smartrecipe/abc.png", aws.ToString(client.deletes[0].Key))
	})

	t.Run("should wrap client errors", func(t *testing.T) {
		client := &fakeS3{err: errors.New("access denied")}
		store := NewS3StoreWithClient(client, "recipes", "https://recipes.s3.amazonaws.com")

		_, err := store.Upload(context.Background(), "smartrecipe/abc.png", "image/png", []byte("png"))
		assert.ErrorContains(t, err, "access denied")
	})

	t.Run("should derive the base url from a custom endpoint", func(t *testing.T) {
		assert.Equal(t, "http://localhost:9000/recipes", DefaultAssetBaseURL("recipes", "http://localhost:9000/"))
	})
}
