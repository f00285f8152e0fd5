package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv unsets every variable Load reads; t.Setenv restores them afterwards.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "APP_ENV", "OTEL_EXPORTER_OTLP_ENDPOINT",
		"STORE_BACKEND", "DATABASE_URL", "REDIS_ADDR",
		"WISHLIST_API_URL", "WISHLIST_API_TIMEOUT", "WISHLIST_API_BREAKER",
		"WISHLIST_SOURCE", "WISHLIST_COUNTRY", "WISHLIST_STRICT_MODE",
		"IDENTITY_JWT_SECRET",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoad(t *testing.T) {
	t.Run("success with all values set", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("PORT", "9000")
		t.Setenv("APP_ENV", "test")
		t.Setenv("STORE_BACKEND", "postgres")
		t.Setenv("DATABASE_URL", "postgres://localhost:5432/test")
		t.Setenv("WISHLIST_API_URL", "https://api.example.com")
		t.Setenv("WISHLIST_API_TIMEOUT", "3s")
		t.Setenv("WISHLIST_API_BREAKER", "false")
		t.Setenv("WISHLIST_SOURCE", "taobao")
		t.Setenv("WISHLIST_COUNTRY", "ru")
		t.Setenv("WISHLIST_STRICT_MODE", "true")
		t.Setenv("IDENTITY_JWT_SECRET", "super-secret")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "9000", cfg.Port)
		assert.Equal(t, "test", cfg.AppEnv)
		assert.Equal(t, BackendPostgres, cfg.StoreBackend)
		assert.Equal(t, "postgres://localhost:5432/test", cfg.DatabaseURL)
		assert.Equal(t, "https://api.example.com", cfg.WishlistAPIURL)
		assert.Equal(t, 3*time.Second, cfg.WishlistAPITimeout)
		assert.False(t, cfg.WishlistAPIBreaker)
		assert.Equal(t, "taobao", cfg.WishlistSource)
		assert.Equal(t, "ru", cfg.WishlistCountry)
		assert.True(t, cfg.WishlistStrictMode)
		assert.Equal(t, "super-secret", cfg.JWTSecret)
	})

	t.Run("default values", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("REDIS_ADDR", "localhost:6379")
		t.Setenv("WISHLIST_API_URL", "https://api.example.com")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "8080", cfg.Port)
		assert.Equal(t, "production", cfg.AppEnv)
		assert.Equal(t, BackendRedis, cfg.StoreBackend)
		assert.Equal(t, 10*time.Second, cfg.WishlistAPITimeout)
		assert.True(t, cfg.WishlistAPIBreaker)
		assert.Equal(t, "1688", cfg.WishlistSource)
		assert.Equal(t, "en", cfg.WishlistCountry)
		assert.False(t, cfg.WishlistStrictMode)
		assert.Empty(t, cfg.JWTSecret)
	})

	t.Run("missing WISHLIST_API_URL", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("REDIS_ADDR", "localhost:6379")

		_, err := Load()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "WISHLIST_API_URL is required")
	})

	t.Run("local env defaults WISHLIST_API_URL", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("APP_ENV", "local")
		t.Setenv("REDIS_ADDR", "localhost:6379")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "http://localhost:3000/api", cfg.WishlistAPIURL)
	})

	t.Run("missing REDIS_ADDR", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("WISHLIST_API_URL", "https://api.example.com")

		_, err := Load()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "REDIS_ADDR is required")
	})

	t.Run("missing DATABASE_URL", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("WISHLIST_API_URL", "https://api.example.com")
		t.Setenv("STORE_BACKEND", "postgres")

		_, err := Load()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "DATABASE_URL is required")
	})

	t.Run("unknown backend", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("WISHLIST_API_URL", "https://api.example.com")
		t.Setenv("STORE_BACKEND", "sqlite")

		_, err := Load()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "STORE_BACKEND")
	})

	t.Run("invalid duration", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("REDIS_ADDR", "localhost:6379")
		t.Setenv("WISHLIST_API_URL", "https://api.example.com")
		t.Setenv("WISHLIST_API_TIMEOUT", "soon")

		_, err := Load()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "parse config")
	})
}
