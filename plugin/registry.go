package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/xraph/booking/credit"
	"github.com/xraph/booking/payment"
	"github.com/xraph/booking/reservation"
)

// hookTimeout bounds a single plugin call.
const hookTimeout = 5 * time.Second

// Registry manages all registered plugins and provides efficient dispatch.
// It uses type-cached discovery so emitting an event only touches the
// plugins that implement its hook.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger

	// Type-cached plugin lists for efficient dispatch
	onInit                   []OnInit
	onShutdown               []OnShutdown
	onReservationCreated     []OnReservationCreated
	onReservationConfirmed   []OnReservationConfirmed
	onReservationCancelled   []OnReservationCancelled
	onReservationPromoted    []OnReservationPromoted
	onReservationRescheduled []OnReservationRescheduled
	onReservationCheckedIn   []OnReservationCheckedIn
	onReservationCompleted   []OnReservationCompleted
	onReservationNoShow      []OnReservationNoShow
	onCreditEntry            []OnCreditEntry
	onCreditsExpired         []OnCreditsExpired
	onPaymentApplied         []OnPaymentApplied
	onPaymentIgnored         []OnPaymentIgnored
	onWebhookRejected        []OnWebhookRejected
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{logger: slog.Default()}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnReservationCreated); ok {
		r.onReservationCreated = append(r.onReservationCreated, v)
	}
	if v, ok := p.(OnReservationConfirmed); ok {
		r.onReservationConfirmed = append(r.onReservationConfirmed, v)
	}
	if v, ok := p.(OnReservationCancelled); ok {
		r.onReservationCancelled = append(r.onReservationCancelled, v)
	}
	if v, ok := p.(OnReservationPromoted); ok {
		r.onReservationPromoted = append(r.onReservationPromoted, v)
	}
	if v, ok := p.(OnReservationRescheduled); ok {
		r.onReservationRescheduled = append(r.onReservationRescheduled, v)
	}
	if v, ok := p.(OnReservationCheckedIn); ok {
		r.onReservationCheckedIn = append(r.onReservationCheckedIn, v)
	}
	if v, ok := p.(OnReservationCompleted); ok {
		r.onReservationCompleted = append(r.onReservationCompleted, v)
	}
	if v, ok := p.(OnReservationNoShow); ok {
		r.onReservationNoShow = append(r.onReservationNoShow, v)
	}
	if v, ok := p.(OnCreditEntry); ok {
		r.onCreditEntry = append(r.onCreditEntry, v)
	}
	if v, ok := p.(OnCreditsExpired); ok {
		r.onCreditsExpired = append(r.onCreditsExpired, v)
	}
	if v, ok := p.(OnPaymentApplied); ok {
		r.onPaymentApplied = append(r.onPaymentApplied, v)
	}
	if v, ok := p.(OnPaymentIgnored); ok {
		r.onPaymentIgnored = append(r.onPaymentIgnored, v)
	}
	if v, ok := p.(OnWebhookRejected); ok {
		r.onWebhookRejected = append(r.onWebhookRejected, v)
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", implementedInterfaces(p),
	)

	return nil
}

var hookTypes = []struct {
	name string
	typ  reflect.Type
}{
	{"OnInit", reflect.TypeFor[OnInit]()},
	{"OnShutdown", reflect.TypeFor[OnShutdown]()},
	{"OnReservationCreated", reflect.TypeFor[OnReservationCreated]()},
	{"OnReservationConfirmed", reflect.TypeFor[OnReservationConfirmed]()},
	{"OnReservationCancelled", reflect.TypeFor[OnReservationCancelled]()},
	{"OnReservationPromoted", reflect.TypeFor[OnReservationPromoted]()},
	{"OnReservationRescheduled", reflect.TypeFor[OnReservationRescheduled]()},
	{"OnReservationCheckedIn", reflect.TypeFor[OnReservationCheckedIn]()},
	{"OnReservationCompleted", reflect.TypeFor[OnReservationCompleted]()},
	{"OnReservationNoShow", reflect.TypeFor[OnReservationNoShow]()},
	{"OnCreditEntry", reflect.TypeFor[OnCreditEntry]()},
	{"OnCreditsExpired", reflect.TypeFor[OnCreditsExpired]()},
	{"OnPaymentApplied", reflect.TypeFor[OnPaymentApplied]()},
	{"OnPaymentIgnored", reflect.TypeFor[OnPaymentIgnored]()},
	{"OnWebhookRejected", reflect.TypeFor[OnWebhookRejected]()},
}

// implementedInterfaces returns the hook names p implements.
func implementedInterfaces(p Plugin) []string {
	var names []string
	t := reflect.TypeOf(p)
	for _, h := range hookTypes {
		if t.Implements(h.typ) {
			names = append(names, h.name)
		}
	}
	return names
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// emit calls fn for each plugin in the snapshot taken by pick. Failures
// and timeouts are logged, never returned.
func emit[T Plugin](ctx context.Context, r *Registry, hook string, pick func(*Registry) []T, fn func(T) error) {
	r.mu.RLock()
	plugins := pick(r)
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return fn(p)
		}); err != nil {
			r.logger.Warn("plugin "+hook+" failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, engine any) {
	emit(ctx, r, "OnInit", func(r *Registry) []OnInit { return r.onInit },
		func(p OnInit) error { return p.OnInit(ctx, engine) })
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	emit(ctx, r, "OnShutdown", func(r *Registry) []OnShutdown { return r.onShutdown },
		func(p OnShutdown) error { return p.OnShutdown(ctx) })
}

// EmitReservationCreated emits a reservation created event.
func (r *Registry) EmitReservationCreated(ctx context.Context, rsv *reservation.Reservation) {
	emit(ctx, r, "OnReservationCreated", func(r *Registry) []OnReservationCreated { return r.onReservationCreated },
		func(p OnReservationCreated) error { return p.OnReservationCreated(ctx, rsv) })
}

// EmitReservationConfirmed emits a reservation confirmed event.
func (r *Registry) EmitReservationConfirmed(ctx context.Context, rsv *reservation.Reservation) {
	emit(ctx, r, "OnReservationConfirmed", func(r *Registry) []OnReservationConfirmed { return r.onReservationConfirmed },
		func(p OnReservationConfirmed) error { return p.OnReservationConfirmed(ctx, rsv) })
}

// EmitReservationCancelled emits a reservation cancelled event.
func (r *Registry) EmitReservationCancelled(ctx context.Context, rsv *reservation.Reservation) {
	emit(ctx, r, "OnReservationCancelled", func(r *Registry) []OnReservationCancelled { return r.onReservationCancelled },
		func(p OnReservationCancelled) error { return p.OnReservationCancelled(ctx, rsv) })
}

// EmitReservationPromoted emits a waitlist promotion event.
func (r *Registry) EmitReservationPromoted(ctx context.Context, rsv *reservation.Reservation) {
	emit(ctx, r, "OnReservationPromoted", func(r *Registry) []OnReservationPromoted { return r.onReservationPromoted },
		func(p OnReservationPromoted) error { return p.OnReservationPromoted(ctx, rsv) })
}

// EmitReservationRescheduled emits a reschedule event.
func (r *Registry) EmitReservationRescheduled(ctx context.Context, rsv *reservation.Reservation, previousStart time.Time) {
	emit(ctx, r, "OnReservationRescheduled", func(r *Registry) []OnReservationRescheduled { return r.onReservationRescheduled },
		func(p OnReservationRescheduled) error { return p.OnReservationRescheduled(ctx, rsv, previousStart) })
}

// EmitReservationCheckedIn emits a check-in event.
func (r *Registry) EmitReservationCheckedIn(ctx context.Context, rsv *reservation.Reservation) {
	emit(ctx, r, "OnReservationCheckedIn", func(r *Registry) []OnReservationCheckedIn { return r.onReservationCheckedIn },
		func(p OnReservationCheckedIn) error { return p.OnReservationCheckedIn(ctx, rsv) })
}

// EmitReservationCompleted emits a check-out event.
func (r *Registry) EmitReservationCompleted(ctx context.Context, rsv *reservation.Reservation) {
	emit(ctx, r, "OnReservationCompleted", func(r *Registry) []OnReservationCompleted { return r.onReservationCompleted },
		func(p OnReservationCompleted) error { return p.OnReservationCompleted(ctx, rsv) })
}

// EmitReservationNoShow emits a no-show event.
func (r *Registry) EmitReservationNoShow(ctx context.Context, rsv *reservation.Reservation) {
	emit(ctx, r, "OnReservationNoShow", func(r *Registry) []OnReservationNoShow { return r.onReservationNoShow },
		func(p OnReservationNoShow) error { return p.OnReservationNoShow(ctx, rsv) })
}

// EmitCreditEntry emits a ledger entry event.
func (r *Registry) EmitCreditEntry(ctx context.Context, e *credit.Entry) {
	emit(ctx, r, "OnCreditEntry", func(r *Registry) []OnCreditEntry { return r.onCreditEntry },
		func(p OnCreditEntry) error { return p.OnCreditEntry(ctx, e) })
}

// EmitCreditsExpired emits an expiry sweep event.
func (r *Registry) EmitCreditsExpired(ctx context.Context, count int, elapsed time.Duration) {
	emit(ctx, r, "OnCreditsExpired", func(r *Registry) []OnCreditsExpired { return r.onCreditsExpired },
		func(p OnCreditsExpired) error { return p.OnCreditsExpired(ctx, count, elapsed) })
}

// EmitPaymentApplied emits a payment applied event.
func (r *Registry) EmitPaymentApplied(ctx context.Context, ev *payment.Event) {
	emit(ctx, r, "OnPaymentApplied", func(r *Registry) []OnPaymentApplied { return r.onPaymentApplied },
		func(p OnPaymentApplied) error { return p.OnPaymentApplied(ctx, ev) })
}

// EmitPaymentIgnored emits a payment ignored event.
func (r *Registry) EmitPaymentIgnored(ctx context.Context, ev *payment.Event, reason string) {
	emit(ctx, r, "OnPaymentIgnored", func(r *Registry) []OnPaymentIgnored { return r.onPaymentIgnored },
		func(p OnPaymentIgnored) error { return p.OnPaymentIgnored(ctx, ev, reason) })
}

// EmitWebhookRejected emits a webhook rejection event.
func (r *Registry) EmitWebhookRejected(ctx context.Context, tenantID, provider string, err error) {
	emit(ctx, r, "OnWebhookRejected", func(r *Registry) []OnWebhookRejected { return r.onWebhookRejected },
		func(p OnWebhookRejected) error { return p.OnWebhookRejected(ctx, tenantID, provider, err) })
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins should never stall the booking pipeline.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	timer := time.NewTimer(hookTimeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
