// Package extension provides the Forge extension adapter for Booking.
//
// It implements the forge.Extension interface to integrate the booking
// engine into a Forge application with DI registration and lifecycle
// management. The engine and, unless routes are disabled, the HTTP API
// handler are provided to the container.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.booking" or "booking" keys.
package extension

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/xraph/forge"
	"github.com/xraph/vessel"

	"github.com/xraph/booking"
	"github.com/xraph/booking/api"
	"github.com/xraph/booking/store"
	"github.com/xraph/booking/store/memory"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "booking"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Multi-tenant reservation and credit ledger engine"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts the booking engine as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config     Config
	engine     *booking.Engine
	handler    *api.Handler
	store      store.Store
	engineOpts []booking.Option
}

// New creates a new Booking Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying engine.
// This is nil until Register is called.
func (e *Extension) Engine() *booking.Engine { return e.engine }

// Handler returns the HTTP API handler, or nil when routes are disabled.
func (e *Extension) Handler() *api.Handler { return e.handler }

// Register implements [forge.Extension]. It loads configuration,
// initializes the engine, and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	// Use memory store if no store was provided programmatically.
	if e.store == nil {
		e.store = memory.New()
	}

	e.engine = booking.New(e.store, e.buildEngineOpts()...)

	if err := vessel.Provide(fapp.Container(), func() (*booking.Engine, error) {
		return e.engine, nil
	}); err != nil {
		return err
	}

	if e.config.DisableRoutes {
		return nil
	}
	e.handler = api.New(e.engine)
	return vessel.Provide(fapp.Container(), func() (*api.Handler, error) {
		return e.handler, nil
	})
}

// Mount registers the HTTP API under BasePath on r. It is a no-op when
// routes are disabled.
func (e *Extension) Mount(r gin.IRouter) {
	if e.handler == nil {
		return
	}
	base := strings.TrimSuffix(e.config.BasePath, "/")
	if base == "" {
		e.handler.Register(r)
		return
	}
	e.handler.Register(r.Group(base))
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("booking: extension not initialized")
	}

	if err := e.engine.Start(ctx); err != nil {
		return err
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(_ context.Context) error {
	if e.engine != nil {
		if err := e.engine.Stop(); err != nil {
			e.MarkStopped()
			return err
		}
	}
	e.MarkStopped()
	return nil
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.store == nil {
		return errors.New("booking: store not initialized")
	}
	return e.store.Ping(ctx)
}

// buildEngineOpts constructs booking.Option values from the resolved config.
func (e *Extension) buildEngineOpts() []booking.Option {
	opts := make([]booking.Option, 0, len(e.engineOpts)+4)

	opts = append(opts,
		booking.WithMigrate(!e.config.DisableMigrate),
		booking.WithMaxTxRetries(e.config.MaxTxRetries),
		booking.WithExpiryBatchSize(e.config.ExpiryBatchSize),
	)
	sweep := e.config.ExpirySweepInterval
	if sweep < 0 {
		sweep = 0
	}
	opts = append(opts, booking.WithExpirySweepInterval(sweep))

	// Pass-through options last so they win over config.
	opts = append(opts, e.engineOpts...)

	return opts
}

// --- Config Loading ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("booking: configuration is required but not found in config files; " +
				"ensure 'extensions.booking' or 'booking' key exists in your config")
		}

		e.config = mergeWithDefaults(programmaticConfig)
	} else {
		e.config = mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("booking: configuration loaded",
		forge.F("disable_routes", e.config.DisableRoutes),
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("base_path", e.config.BasePath),
		forge.F("max_tx_retries", e.config.MaxTxRetries),
		forge.F("expiry_sweep_interval", e.config.ExpirySweepInterval),
		forge.F("expiry_batch_size", e.config.ExpiryBatchSize),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()

	for _, key := range []string{"extensions.booking", "booking"} {
		if !cm.IsSet(key) {
			continue
		}
		var cfg Config
		if err := cm.Bind(key, &cfg); err != nil {
			e.Logger().Warn("booking: failed to bind config",
				forge.F("key", key),
				forge.F("error", err.Error()),
			)
			continue
		}
		e.Logger().Debug("booking: loaded config from file",
			forge.F("key", key),
		)
		return cfg, true
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.BasePath == "" {
		cfg.BasePath = defaults.BasePath
	}
	if cfg.MaxTxRetries == 0 {
		cfg.MaxTxRetries = defaults.MaxTxRetries
	}
	if cfg.ExpirySweepInterval == 0 {
		cfg.ExpirySweepInterval = defaults.ExpirySweepInterval
	}
	if cfg.ExpiryBatchSize == 0 {
		cfg.ExpiryBatchSize = defaults.ExpiryBatchSize
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence for most fields; programmatic bool flags fill gaps.
func mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	if programmaticConfig.DisableRoutes {
		yamlConfig.DisableRoutes = true
	}
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}

	if yamlConfig.BasePath == "" && programmaticConfig.BasePath != "" {
		yamlConfig.BasePath = programmaticConfig.BasePath
	}
	if yamlConfig.MaxTxRetries == 0 && programmaticConfig.MaxTxRetries != 0 {
		yamlConfig.MaxTxRetries = programmaticConfig.MaxTxRetries
	}
	if yamlConfig.ExpirySweepInterval == 0 && programmaticConfig.ExpirySweepInterval != 0 {
		yamlConfig.ExpirySweepInterval = programmaticConfig.ExpirySweepInterval
	}
	if yamlConfig.ExpiryBatchSize == 0 && programmaticConfig.ExpiryBatchSize != 0 {
		yamlConfig.ExpiryBatchSize = programmaticConfig.ExpiryBatchSize
	}

	return mergeWithDefaults(yamlConfig)
}
