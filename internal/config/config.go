// Package config loads the server configuration from environment variables.
// envconfig maps variables onto struct fields; Validate checks the values
// envconfig cannot (enums, cross-field rules, the private key).
package config

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kelseyhightower/envconfig"

	"github.com/sakif/commit-karma/internal/apperror"
	"github.com/sakif/commit-karma/internal/auth"
)

// Supported store drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	// --- HTTP ---
	Port        int    `envconfig:"PORT" default:"8080"`
	WebhookPath string `envconfig:"GITHUB_WEBHOOK_PATH" default:"webhook"`

	// --- GitHub App ---
	WebhookSecret string `envconfig:"GITHUB_WEBHOOK_SECRET" required:"true"`
	AppID         int64  `envconfig:"APP_ID" default:"37724"`
	// PEM text, or the PEM base64-encoded onto one line.
	PrivateKeyRaw string          `envconfig:"GITHUB_PRIVATE_KEY" required:"true"`
	PrivateKey    *rsa.PrivateKey `envconfig:"-"` // set by Validate
	APIURL        string          `envconfig:"GITHUB_API_URL" default:"https://api.github.com"`

	// --- Store ---
	DBDriver    string `envconfig:"DB_DRIVER" default:"sqlite"`
	DBPath      string `envconfig:"DB_PATH" default:"data/karma.db"`
	DatabaseURL string `envconfig:"DATABASE_URL"`

	// --- Observability ---
	LogLevel     string `envconfig:"LOG_LEVEL" default:"info"`
	OTLPEndpoint string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	ServiceName  string `envconfig:"OTEL_SERVICE_NAME" default:"commit-karma"`
}

// Load reads the environment and validates the result. Every failure is an
// apperror.ErrConfiguration.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		var perr *envconfig.ParseError
		if errors.As(err, &perr) {
			return nil, apperror.Configuration(perr.KeyName, fmt.Sprintf("cannot be parsed as %s", perr.TypeName))
		}
		return nil, apperror.Configuration("environment", err.Error())
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field values and parses the private key into PrivateKey.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return apperror.Configuration("PORT", "must be between 1 and 65535")
	}

	c.WebhookPath = strings.Trim(strings.TrimSpace(c.WebhookPath), "/")
	if c.WebhookPath == "" {
		return apperror.Configuration("GITHUB_WEBHOOK_PATH", "must not be empty")
	}
	if c.WebhookSecret == "" {
		return apperror.Configuration("GITHUB_WEBHOOK_SECRET", "must not be empty")
	}
	if c.AppID <= 0 {
		return apperror.Configuration("APP_ID", "must be positive")
	}

	key, err := auth.ParsePrivateKey(c.PrivateKeyRaw)
	if err != nil {
		return apperror.Configuration("GITHUB_PRIVATE_KEY", "is not an RSA private key")
	}
	c.PrivateKey = key

	if c.APIURL == "" {
		return apperror.Configuration("GITHUB_API_URL", "must not be empty")
	}
	c.APIURL = strings.TrimRight(c.APIURL, "/")

	switch c.DBDriver {
	case DriverSQLite:
		if c.DBPath == "" {
			return apperror.Configuration("DB_PATH", "must not be empty")
		}
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return apperror.Configuration("DATABASE_URL", "is required when DB_DRIVER is postgres")
		}
	default:
		return apperror.Configuration("DB_DRIVER", fmt.Sprintf("must be %s or %s", DriverSQLite, DriverPostgres))
	}

	if _, err := ParseLevel(c.LogLevel); err != nil {
		return apperror.Configuration("LOG_LEVEL", "must be debug, info, warn or error")
	}
	return nil
}

// Level is the configured slog level. Validate has already rejected bad values.
func (c *Config) Level() slog.Level {
	level, _ := ParseLevel(c.LogLevel)
	return level
}

func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("config: unknown log level %q", s)
	}
}
