package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

type Config struct {
	Env      string `env:"ENV" envDefault:"local" validate:"required,oneof=local staging production"`
	Port     string `env:"PORT" envDefault:"8080" validate:"required"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`

	MetricsPort string `env:"METRICS_PORT" envDefault:"9090"`

	ProviderBaseURL  string        `env:"PROVIDER_BASE_URL" envDefault:"https://edesis.api.edesis.com" validate:"required,url"`
	ProviderTenant   string        `env:"PROVIDER_TENANT,required"   validate:"required"`
	ProviderUsername string        `env:"PROVIDER_USERNAME,required" validate:"required"`
	ProviderPassword string        `env:"PROVIDER_PASSWORD,required" validate:"required"`
	ProviderTimeout  time.Duration `env:"PROVIDER_TIMEOUT" envDefault:"30s" validate:"min=1s"`

	TokenRefreshInterval time.Duration `env:"TOKEN_REFRESH_INTERVAL" envDefault:"6h" validate:"min=1m"`
	SyncSchedule         string        `env:"SYNC_SCHEDULE" envDefault:"@every 1h" validate:"required"`
	SyncFailureBackoff   time.Duration `env:"SYNC_FAILURE_BACKOFF" envDefault:"1h" validate:"min=1s"`

	DailyDownloadLimit int           `env:"DAILY_DOWNLOAD_LIMIT" envDefault:"10" validate:"min=1,max=1000"`
	Timezone           string        `env:"TIMEZONE" envDefault:"Europe/Istanbul" validate:"required"`
	SessionTTL         time.Duration `env:"SESSION_TTL" envDefault:"24h" validate:"min=1m"`
	JanitorInterval    time.Duration `env:"JANITOR_INTERVAL" envDefault:"10m" validate:"min=1s"`
	DownloadDir        string        `env:"DOWNLOAD_DIR"`

	SnapshotDriver string `env:"SNAPSHOT_DRIVER" envDefault:"bolt" validate:"oneof=bolt postgres none"`
	BoltPath       string `env:"BOLT_PATH" envDefault:"data/answerkey.db" validate:"required_if=SnapshotDriver bolt"`
	DatabaseURL    string `env:"DATABASE_URL" validate:"required_if=SnapshotDriver postgres"`

	GatewayJWTSecret string `env:"GATEWAY_JWT_SECRET,required" validate:"required,min=32"`

	AlertAfterFailures int    `env:"ALERT_AFTER_FAILURES" envDefault:"3" validate:"min=1"`
	AlertEmailTo       string `env:"ALERT_EMAIL_TO"  validate:"omitempty,email"`
	ResendAPIKey       string `env:"RESEND_API_KEY"  validate:"required_if=Env production,required_if=Env staging"`
	ResendFrom         string `env:"RESEND_FROM"     validate:"required_if=Env production,required_if=Env staging"`
}

func Load() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return nil, fmt.Errorf("invalid config: timezone %q: %w", cfg.Timezone, err)
	}

	if cfg.DownloadDir == "" {
		cfg.DownloadDir = os.TempDir()
	}

	return cfg, nil
}

func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Location is the zone that defines a "day" for download quotas.
// Load has already verified the name.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}
