// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config captures everything the process needs to start. Values come from
// environment variables so main stays lean and deployments stay 12-factor.
type Config struct {
	// Addr is the TCP address the HTTP server listens on.
	Addr string `env:"ADDR" env-default:":8080"`

	// DatabaseURL is the PostgreSQL connection string. The process refuses
	// to start without it.
	DatabaseURL string `env:"DATABASE_URL" env-required:"true"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `env:"LOG_LEVEL" env-default:"info"`

	// SeedOnEmpty populates an empty citizens table with synthetic records
	// at startup. Bootstrap convenience for development, off by default.
	SeedOnEmpty bool `env:"SEED_ON_EMPTY" env-default:"false"`

	// SeedCount is the number of synthetic records generated when seeding.
	SeedCount int `env:"SEED_COUNT" env-default:"5000"`

	// ShutdownTimeout bounds graceful shutdown on SIGINT/SIGTERM.
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" env-default:"10s"`
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return &cfg, nil
}
