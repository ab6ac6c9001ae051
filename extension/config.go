package extension

import "time"

// Config holds the Booking extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.booking" or "booking" keys).
type Config struct {
	// DisableRoutes prevents the HTTP API from being provided and mounted.
	DisableRoutes bool `json:"disable_routes" mapstructure:"disable_routes" yaml:"disable_routes"`

	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// BasePath is the URL prefix for booking routes (default: "/booking").
	BasePath string `json:"base_path" mapstructure:"base_path" yaml:"base_path"`

	// MaxTxRetries is how often a transaction that lost a serialization race
	// is retried before failing with a conflict (default: 5).
	MaxTxRetries int `json:"max_tx_retries" mapstructure:"max_tx_retries" yaml:"max_tx_retries"`

	// ExpirySweepInterval is how often expired credit lots are swept
	// (default: 1m). A negative value disables the sweeper.
	ExpirySweepInterval time.Duration `json:"expiry_sweep_interval" mapstructure:"expiry_sweep_interval" yaml:"expiry_sweep_interval"`

	// ExpiryBatchSize bounds the grants read per sweep round (default: 500).
	ExpiryBatchSize int `json:"expiry_batch_size" mapstructure:"expiry_batch_size" yaml:"expiry_batch_size"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		BasePath:            "/booking",
		MaxTxRetries:        5,
		ExpirySweepInterval: time.Minute,
		ExpiryBatchSize:     500,
	}
}
