// Package config loads the service configuration from the environment, with
// an optional .env file for local development.
package config

import (
	"errors"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL string        `env:"DB_DSN"`
	ListenAddr  string        `env:"LISTEN_ADDR" envDefault:":8080"`
	JWTSecret   string        `env:"JWT_SECRET" envDefault:"change-me-in-production"`
	JWTIssuer   string        `env:"JWT_ISS" envDefault:"asset-inventory-api"`
	JWTAudience string        `env:"JWT_AUD" envDefault:"asset-inventory-api"`
	JWTExpiry   time.Duration `env:"JWT_EXPIRY" envDefault:"24h"`
	MetricsOn   bool          `env:"ENABLE_METRICS"`
	LogLevel    string        `env:"LOG_LEVEL" envDefault:"info"`
	// MaxUploadBytes bounds multipart import uploads.
	MaxUploadBytes int64 `env:"MAX_UPLOAD_BYTES" envDefault:"20971520"`
}

// Load reads .env (when present) and the process environment.
func Load() (*Config, error) {
	// .env is a local convenience; absence is not an error
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return errors.New("DB_DSN is required")
	}
	if c.JWTExpiry <= 0 {
		return errors.New("JWT_EXPIRY must be positive")
	}
	if c.MaxUploadBytes <= 0 {
		return errors.New("MAX_UPLOAD_BYTES must be positive")
	}
	return nil
}
