package extension

import (
	"time"

	"github.com/xraph/booking"
	"github.com/xraph/booking/payment"
	"github.com/xraph/booking/plugin"
	"github.com/xraph/booking/store"
)

// Option configures the Booking Forge extension.
type Option func(*Extension)

// WithStore sets the store for the booking engine.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithEngineOption passes a booking.Option through to the underlying engine.
func WithEngineOption(opt booking.Option) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, opt)
	}
}

// WithPlugin registers a booking plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, booking.WithPlugin(p))
	}
}

// WithPaymentProvider registers a payment provider for webhooks.
func WithPaymentProvider(p payment.Provider) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, booking.WithPaymentProvider(p))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithDisableRoutes prevents HTTP route registration.
func WithDisableRoutes() Option {
	return func(e *Extension) { e.config.DisableRoutes = true }
}

// WithDisableMigrate prevents auto-migration on start.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithBasePath sets the URL prefix for booking routes.
func WithBasePath(path string) Option {
	return func(e *Extension) { e.config.BasePath = path }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}

// WithMaxTxRetries sets the transaction retry budget.
func WithMaxTxRetries(n int) Option {
	return func(e *Extension) { e.config.MaxTxRetries = n }
}

// WithExpirySweepInterval sets how often expired credits are swept.
// A negative interval disables the sweeper.
func WithExpirySweepInterval(d time.Duration) Option {
	return func(e *Extension) { e.config.ExpirySweepInterval = d }
}

// WithExpiryBatchSize bounds the grants read per sweep round.
func WithExpiryBatchSize(n int) Option {
	return func(e *Extension) { e.config.ExpiryBatchSize = n }
}
