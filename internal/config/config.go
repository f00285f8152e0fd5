package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

const (
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

type Config struct {
	Port                 string `env:"PORT" envDefault:"8080"`
	AppEnv               string `env:"APP_ENV"`
	OtelExporterEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`

	StoreBackend string `env:"STORE_BACKEND" envDefault:"redis"`
	DatabaseURL  string `env:"DATABASE_URL"`
	RedisAddr    string `env:"REDIS_ADDR"`

	WishlistAPIURL     string        `env:"WISHLIST_API_URL"`
	WishlistAPITimeout time.Duration `env:"WISHLIST_API_TIMEOUT" envDefault:"10s"`
	WishlistAPIBreaker bool          `env:"WISHLIST_API_BREAKER" envDefault:"true"`

	WishlistSource     string `env:"WISHLIST_SOURCE" envDefault:"1688"`
	WishlistCountry    string `env:"WISHLIST_COUNTRY" envDefault:"en"`
	WishlistStrictMode bool   `env:"WISHLIST_STRICT_MODE" envDefault:"false"`

	// JWTSecret verifies session tokens when set; otherwise claims are read unverified.
	JWTSecret string `env:"IDENTITY_JWT_SECRET"`
}

// Load reads configuration from environment variables.
// It applies defaults for "local" environments but enforces strictness for others.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	// Default to production safety if not explicitly set to local
	if cfg.AppEnv == "" {
		cfg.AppEnv = "production"
	}

	if cfg.WishlistAPIURL == "" {
		if cfg.AppEnv == "local" {
			cfg.WishlistAPIURL = "http://localhost:3000/api"
		} else {
			return Config{}, errors.New("WISHLIST_API_URL is required")
		}
	}

	switch cfg.StoreBackend {
	case BackendRedis:
		if cfg.RedisAddr == "" {
			return Config{}, errors.New("REDIS_ADDR is required")
		}
	case BackendPostgres:
		if cfg.DatabaseURL == "" {
			return Config{}, errors.New("DATABASE_URL is required")
		}
	default:
		return Config{}, fmt.Errorf("STORE_BACKEND must be %q or %q, got %q", BackendRedis, BackendPostgres, cfg.StoreBackend)
	}

	if cfg.WishlistAPITimeout < 0 {
		return Config{}, errors.New("WISHLIST_API_TIMEOUT must not be negative")
	}

	return cfg, nil
}
