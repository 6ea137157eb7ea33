// Package config loads server settings from the environment, an optional
// .env file and command-line flags, in increasing order of precedence.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/robfig/cron/v3"

	"github.com/erazemk/izposoja/internal/db"
)

// EnvPrefix prefixes every environment variable, as in IZPOSOJA_ADDR.
const EnvPrefix = "IZPOSOJA"

// Config holds the server settings.
type Config struct {
	Driver            string        `envconfig:"DB_DRIVER" default:"sqlite"`
	DSN               string        `envconfig:"DB" default:"izposoja.sqlite3"`
	Addr              string        `envconfig:"ADDR" default:":8080"`
	AdminName         string        `envconfig:"ADMIN" default:"Admin"`
	LogPath           string        `envconfig:"LOG"`
	LogLevel          string        `envconfig:"LOG_LEVEL" default:"info"`
	RedisURL          string        `envconfig:"REDIS_URL"`
	RedisChannel      string        `envconfig:"REDIS_CHANNEL" default:"izposoja:events"`
	ReconcileSchedule string        `envconfig:"RECONCILE_SCHEDULE" default:"@every 1h"`
	ShutdownTimeout   time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"5s"`
}

// Load reads envFile, if given and present, or ./.env otherwise, then the
// environment. Variables already set in the environment win over the file.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading env file %s: %w", envFile, err)
		}
	} else {
		_ = godotenv.Load()
	}

	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

// RegisterFlags binds the command-line flags to cfg. Flags default to the
// values already loaded, so only flags given explicitly override them.
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.DSN, "db", c.DSN, "")
	fs.StringVar(&c.DSN, "d", c.DSN, "")
	fs.StringVar(&c.Driver, "driver", c.Driver, "")
	fs.StringVar(&c.Addr, "addr", c.Addr, "")
	fs.StringVar(&c.Addr, "a", c.Addr, "")
	fs.StringVar(&c.AdminName, "user", c.AdminName, "")
	fs.StringVar(&c.AdminName, "u", c.AdminName, "")
	fs.StringVar(&c.LogPath, "log", c.LogPath, "")
	fs.StringVar(&c.LogPath, "l", c.LogPath, "")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "")
	fs.StringVar(&c.RedisURL, "redis", c.RedisURL, "")
	fs.StringVar(&c.ReconcileSchedule, "reconcile", c.ReconcileSchedule, "")
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	if _, err := c.Dialect(); err != nil {
		return err
	}
	if strings.TrimSpace(c.DSN) == "" {
		return errors.New("database path or DSN is required")
	}
	if c.ReconcileSchedule != "" {
		if _, err := cron.ParseStandard(c.ReconcileSchedule); err != nil {
			return fmt.Errorf("invalid reconcile schedule %q: %w", c.ReconcileSchedule, err)
		}
	}
	if c.ShutdownTimeout <= 0 {
		return errors.New("shutdown timeout must be positive")
	}
	return nil
}

// Dialect returns the database dialect named by Driver.
func (c *Config) Dialect() (db.Dialect, error) {
	return db.ParseDialect(c.Driver)
}
