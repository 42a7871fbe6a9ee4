// Package config loads learntrack settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/abhisek/learntrack/internal/audit"
	"github.com/abhisek/learntrack/internal/progress"
	"github.com/abhisek/learntrack/internal/store"
)

// Config holds all runtime configuration.
type Config struct {
	DB       DBConfig
	HTTP     HTTPConfig
	AMQP     AMQPConfig
	Progress ProgressConfig

	// CatalogPath is the JSON catalog file the hierarchy is read from.
	CatalogPath string

	// ReconcileSchedule is a cron spec for the reconciliation sweep run by
	// the server. Empty disables the sweep. Default: "@every 1h".
	ReconcileSchedule string

	// LogLevel is one of debug, info, warn, error. Default: info.
	LogLevel string
}

// DBConfig selects the progress database.
type DBConfig struct {
	Driver string // "sqlite" or "postgres"
	DSN    string // file path for sqlite, connection string for postgres
}

// HTTPConfig configures the API server.
type HTTPConfig struct {
	Addr           string        // Default: ":8080"
	RequestTimeout time.Duration // Default: 5s
}

// AMQPConfig configures the audit event publisher.
type AMQPConfig struct {
	URL      string // empty disables publishing
	Exchange string // Default: "learntrack.audit"
}

// ProgressConfig holds the completion rules.
type ProgressConfig struct {
	PassThreshold int                   // Default: 60
	RetakePolicy  progress.RetakePolicy // Default: "keep"
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		DB: DBConfig{
			Driver: store.DriverSQLite,
		},
		HTTP: HTTPConfig{
			Addr:           ":8080",
			RequestTimeout: 5 * time.Second,
		},
		AMQP: AMQPConfig{
			Exchange: audit.DefaultExchange,
		},
		Progress: ProgressConfig{
			PassThreshold: progress.DefaultPassThreshold,
			RetakePolicy:  progress.RetakeKeep,
		},
		CatalogPath:       "catalog.json",
		ReconcileSchedule: "@every 1h",
		LogLevel:          "info",
	}
}

// LoadDotEnv loads variables from the given .env files (default ".env")
// without overriding variables already set. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// ConfigFromEnv builds a Config from LEARNTRACK_* environment variables,
// falling back to defaults for unset values.
func ConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	if d := os.Getenv("LEARNTRACK_DB_DRIVER"); d != "" {
		cfg.DB.Driver = d
	}
	if d := os.Getenv("LEARNTRACK_DB"); d != "" {
		cfg.DB.DSN = d
	}
	if c := os.Getenv("LEARNTRACK_CATALOG"); c != "" {
		cfg.CatalogPath = c
	}
	if a := os.Getenv("LEARNTRACK_HTTP_ADDR"); a != "" {
		cfg.HTTP.Addr = a
	}
	if u := os.Getenv("LEARNTRACK_AMQP_URL"); u != "" {
		cfg.AMQP.URL = u
	}
	if x := os.Getenv("LEARNTRACK_AMQP_EXCHANGE"); x != "" {
		cfg.AMQP.Exchange = x
	}
	if p := os.Getenv("LEARNTRACK_RETAKE_POLICY"); p != "" {
		cfg.Progress.RetakePolicy = progress.RetakePolicy(strings.ToLower(p))
	}
	if l := os.Getenv("LEARNTRACK_LOG_LEVEL"); l != "" {
		cfg.LogLevel = strings.ToLower(l)
	}
	// Set but empty disables the sweep.
	if s, ok := os.LookupEnv("LEARNTRACK_RECONCILE_SCHEDULE"); ok {
		cfg.ReconcileSchedule = s
	}

	if t := os.Getenv("LEARNTRACK_PASS_THRESHOLD"); t != "" {
		n, err := strconv.Atoi(t)
		if err != nil {
			return cfg, fmt.Errorf("LEARNTRACK_PASS_THRESHOLD: %w", err)
		}
		cfg.Progress.PassThreshold = n
	}
	if t := os.Getenv("LEARNTRACK_REQUEST_TIMEOUT"); t != "" {
		d, err := time.ParseDuration(t)
		if err != nil {
			return cfg, fmt.Errorf("LEARNTRACK_REQUEST_TIMEOUT: %w", err)
		}
		cfg.HTTP.RequestTimeout = d
	}

	return cfg, nil
}

// Validate checks that all settings are usable.
func (c Config) Validate() error {
	switch c.DB.Driver {
	case store.DriverSQLite:
	case store.DriverPostgres:
		if c.DB.DSN == "" {
			return fmt.Errorf("LEARNTRACK_DB is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown database driver: %q", c.DB.Driver)
	}

	if c.Progress.PassThreshold < 0 || c.Progress.PassThreshold > 100 {
		return fmt.Errorf("pass threshold must be in [0, 100], got %d", c.Progress.PassThreshold)
	}
	if !c.Progress.RetakePolicy.Valid() {
		return fmt.Errorf("unknown retake policy: %q", c.Progress.RetakePolicy)
	}
	if c.HTTP.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be > 0, got %s", c.HTTP.RequestTimeout)
	}
	if c.ReconcileSchedule != "" {
		if _, err := cron.ParseStandard(c.ReconcileSchedule); err != nil {
			return fmt.Errorf("invalid reconcile schedule %q: %w", c.ReconcileSchedule, err)
		}
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// Policy returns the completion rules as a progress.Policy.
func (c Config) Policy() progress.Policy {
	return progress.Policy{
		PassThreshold: c.Progress.PassThreshold,
		Retake:        c.Progress.RetakePolicy,
	}
}

// SlogLevel parses LogLevel.
func (c Config) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("unknown log level: %q", c.LogLevel)
	}
	return lvl, nil
}
