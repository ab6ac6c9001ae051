package main

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config is read from BOOKING_* environment variables, optionally seeded
// from a .env file.
type Config struct {
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8080"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// DatabaseURL selects the store: postgres:// or postgresql:// for
	// Postgres, sqlite:<path> or file:<path> for SQLite, empty for memory.
	DatabaseURL    string `envconfig:"DATABASE_URL"`
	DisableMigrate bool   `envconfig:"DISABLE_MIGRATE" default:"false"`

	MaxTxRetries        int           `envconfig:"MAX_TX_RETRIES" default:"5"`
	ExpirySweepInterval time.Duration `envconfig:"EXPIRY_SWEEP_INTERVAL" default:"1m"`
	ExpiryBatchSize     int           `envconfig:"EXPIRY_BATCH_SIZE" default:"500"`

	// Webhook secrets per tenant, as tenant:secret pairs.
	StripeWebhookSecrets  map[string]string `envconfig:"STRIPE_WEBHOOK_SECRETS"`
	GatewayWebhookSecrets map[string]string `envconfig:"GATEWAY_WEBHOOK_SECRETS"`
	GatewayName           string            `envconfig:"GATEWAY_NAME" default:"gateway"`

	RabbitURL      string `envconfig:"RABBIT_URL"`
	RabbitExchange string `envconfig:"RABBIT_EXCHANGE" default:"booking.events"`

	AuditLog      bool          `envconfig:"AUDIT_LOG" default:"true"`
	MetricsPath   string        `envconfig:"METRICS_PATH" default:"/metrics"`
	ShutdownGrace time.Duration `envconfig:"SHUTDOWN_GRACE" default:"15s"`
}

func loadConfig() (Config, error) {
	// A missing .env is fine; the environment wins over the file.
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("booking", &cfg); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func (c Config) level() slog.Level {
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
