package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"

	"github.com/xraph/booking/payment"
	"github.com/xraph/booking/plugin"
	"github.com/xraph/booking/reservation"
	"github.com/xraph/booking/schedule"
	"github.com/xraph/booking/store"
	"github.com/xraph/booking/tenant"
	"github.com/xraph/booking/types"
)

// Engine is the reservation and ledger engine. All state lives in the
// store; the engine itself only holds configuration, so one Engine may
// serve every tenant and any number of goroutines.
type Engine struct {
	store     store.Store
	plugins   *plugin.Registry
	logger    *slog.Logger
	clock     types.Clock
	providers map[string]payment.Provider

	// Background workers
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	// Configuration
	maxTxRetries        int
	txBackoff           time.Duration
	txMaxBackoff        time.Duration
	expirySweepInterval time.Duration
	expiryBatchSize     int
	migrate             bool
}

// New creates a new Engine on s.
func New(s store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:               s,
		plugins:             plugin.NewRegistry(),
		logger:              slog.Default(),
		clock:               types.SystemClock{},
		providers:           make(map[string]payment.Provider),
		stopChan:            make(chan struct{}),
		maxTxRetries:        5,
		txBackoff:           10 * time.Millisecond,
		txMaxBackoff:        500 * time.Millisecond,
		expirySweepInterval: time.Minute,
		expiryBatchSize:     500,
		migrate:             true,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
		e.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Engine) {
		_ = e.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithClock replaces the wall clock.
func WithClock(c types.Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithMaxTxRetries sets how often a transaction that lost a serialization
// race is retried before the call fails with a ConflictError.
func WithMaxTxRetries(n int) Option {
	return func(e *Engine) {
		e.maxTxRetries = max(0, n)
	}
}

// WithTxBackoff sets the delay bounds between transaction retries.
func WithTxBackoff(base, maxDelay time.Duration) Option {
	return func(e *Engine) {
		e.txBackoff = base
		e.txMaxBackoff = maxDelay
	}
}

// WithExpirySweepInterval sets how often Start's worker expires credits.
// Zero disables the worker.
func WithExpirySweepInterval(d time.Duration) Option {
	return func(e *Engine) {
		e.expirySweepInterval = d
	}
}

// WithExpiryBatchSize bounds the grants read per sweep round.
func WithExpiryBatchSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.expiryBatchSize = n
		}
	}
}

// WithMigrate controls whether Start migrates the store. Disable it when
// schema changes are applied out of band.
func WithMigrate(enabled bool) Option {
	return func(e *Engine) {
		e.migrate = enabled
	}
}

// WithPaymentProvider registers a payment provider under its name.
func WithPaymentProvider(p payment.Provider) Option {
	return func(e *Engine) {
		e.providers[p.Name()] = p
	}
}

// Store returns the engine's store.
func (e *Engine) Store() store.Store { return e.store }

// Plugins returns the plugin registry.
func (e *Engine) Plugins() *plugin.Registry { return e.plugins }

// Clock returns the engine's time source.
func (e *Engine) Clock() types.Clock { return e.clock }

// Logger returns the engine's logger.
func (e *Engine) Logger() *slog.Logger { return e.logger }

// Provider returns the payment provider registered as name.
func (e *Engine) Provider(name string) (payment.Provider, bool) {
	p, ok := e.providers[name]
	return p, ok
}

// Providers returns the registered provider names in order.
func (e *Engine) Providers() []string {
	names := make([]string, 0, len(e.providers))
	for name := range e.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Start migrates the store, initializes plugins and starts the credit
// expiry worker.
func (e *Engine) Start(ctx context.Context) error {
	if e.migrate {
		if err := e.store.Migrate(ctx); err != nil {
			return err
		}
	}

	e.plugins.EmitInit(ctx, e)

	if e.expirySweepInterval > 0 {
		e.wg.Add(1)
		go e.expiryWorker(ctx)
	}

	e.logger.Info("booking engine started",
		"expiry_sweep_interval", e.expirySweepInterval,
		"max_tx_retries", e.maxTxRetries,
		"providers", e.Providers(),
		"plugins", e.plugins.Count(),
	)

	return nil
}

// Stop stops the workers, shuts plugins down and closes the store.
func (e *Engine) Stop() error {
	e.stopOnce.Do(func() { close(e.stopChan) })
	e.wg.Wait()

	e.plugins.EmitShutdown(context.Background())

	return e.store.Close()
}

// ──────────────────────────────────────────────────
// Transactions
// ──────────────────────────────────────────────────

// hooks collects plugin emissions that must only run once the transaction
// has committed.
type hooks []func(ctx context.Context)

func (h *hooks) add(fn func(ctx context.Context)) { *h = append(*h, fn) }

func (h hooks) fire(ctx context.Context) {
	for _, fn := range h {
		fn(ctx)
	}
}

type txFunc func(ctx context.Context, tx store.Store, h *hooks) error

// runTx runs fn in a store transaction, retrying serialization failures
// with jittered backoff. Hooks queued by the successful attempt fire after
// commit; hooks of failed attempts are dropped.
func (e *Engine) runTx(ctx context.Context, fn txFunc) error {
	builder := retrypolicy.NewBuilder[any]().
		HandleIf(func(_ any, err error) bool {
			return IsRetryable(err)
		}).
		WithMaxRetries(e.maxTxRetries).
		ReturnLastFailure().
		OnRetry(func(ev failsafe.ExecutionEvent[any]) {
			e.logger.Debug("retrying transaction", "attempt", ev.Attempts(), "error", ev.LastError())
		})
	if e.txBackoff > 0 && e.txMaxBackoff > e.txBackoff {
		builder = builder.WithBackoff(e.txBackoff, e.txMaxBackoff).WithJitterFactor(0.25)
	}
	policy := builder.Build()

	var committed hooks
	err := failsafe.With[any](policy).WithContext(ctx).Run(func() error {
		var h hooks
		if err := e.store.RunInTx(ctx, func(ctx context.Context, tx store.Store) error {
			return fn(ctx, tx, &h)
		}); err != nil {
			return err
		}
		committed = h
		return nil
	})
	if err != nil {
		if IsRetryable(err) {
			return &ConflictError{Resource: "transaction", Reason: "concurrent modification, retries exhausted"}
		}
		return err
	}

	committed.fire(ctx)
	return nil
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

func (e *Engine) now() time.Time { return e.clock.Now().UTC() }

func checkActor(actor types.Actor) error {
	if !actor.Valid() {
		return &ValidationError{Field: "tenant_id", Message: "is required"}
	}
	return nil
}

// settings returns the tenant's settings, or the defaults when none are
// stored.
func settings(ctx context.Context, s tenant.Store, tenantID string) (*tenant.Settings, error) {
	ts, err := s.GetSettings(ctx, tenantID)
	if err != nil {
		if IsNotFound(err) {
			return tenant.Default(tenantID), nil
		}
		return nil, err
	}
	return ts, nil
}

// fieldError converts a schedule validation failure to a ValidationError.
func fieldError(err error) error {
	var fe *schedule.FieldError
	if errors.As(err, &fe) {
		return &ValidationError{Field: fe.Field, Message: fe.Message}
	}
	return err
}

// transitionError converts a lifecycle refusal to a ConflictError.
func transitionError(r *reservation.Reservation, err error) error {
	var te *reservation.TransitionError
	if errors.As(err, &te) {
		return &ConflictError{
			Resource:  "reservation",
			ID:        r.ID.String(),
			Current:   string(te.From),
			Requested: string(te.To),
			Reason:    te.Reason,
		}
	}
	return fmt.Errorf("booking: reservation %s: %w", r.ID, err)
}
