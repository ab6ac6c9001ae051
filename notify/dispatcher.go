package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"

	"github.com/xraph/booking/payment"
	"github.com/xraph/booking/plugin"
	"github.com/xraph/booking/reservation"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin                 = (*Dispatcher)(nil)
	_ plugin.OnShutdown             = (*Dispatcher)(nil)
	_ plugin.OnReservationCreated   = (*Dispatcher)(nil)
	_ plugin.OnReservationCancelled = (*Dispatcher)(nil)
	_ plugin.OnReservationPromoted  = (*Dispatcher)(nil)
	_ plugin.OnPaymentApplied       = (*Dispatcher)(nil)
)

// ErrClosed is returned by Enqueue after Close.
var ErrClosed = errors.New("notify: dispatcher closed")

// ErrQueueFull is returned by Enqueue when the buffer is full.
var ErrQueueFull = errors.New("notify: queue full")

// Dispatcher is a booking plugin that queues notifications and delivers
// them from a single background worker.
type Dispatcher struct {
	notifier Notifier
	logger   *slog.Logger
	clock    func() time.Time

	queueSize    int
	maxRetries   int
	retryDelay   time.Duration
	maxRetryWait time.Duration
	timeout      time.Duration

	mu     sync.RWMutex
	closed bool
	queue  chan Event
	done   chan struct{}

	delivered atomic.Int64
	failed    atomic.Int64
	dropped   atomic.Int64
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger for delivery failures.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = logger }
}

// WithQueueSize sets how many events may wait for delivery (default: 256).
func WithQueueSize(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.queueSize = n
		}
	}
}

// WithRetry sets how often a failed delivery is retried and the backoff
// between attempts (default: 3 retries, 200ms to 5s).
func WithRetry(maxRetries int, delay, maxDelay time.Duration) Option {
	return func(d *Dispatcher) {
		d.maxRetries = maxRetries
		d.retryDelay = delay
		d.maxRetryWait = maxDelay
	}
}

// WithTimeout bounds a single delivery attempt (default: 10s).
func WithTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) { d.timeout = timeout }
}

// NewDispatcher creates a Dispatcher delivering through n and starts its
// worker. Call Close, or let the engine's shutdown hook do it, to drain.
func NewDispatcher(n Notifier, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		notifier:     n,
		logger:       slog.Default(),
		clock:        time.Now,
		queueSize:    256,
		maxRetries:   3,
		retryDelay:   200 * time.Millisecond,
		maxRetryWait: 5 * time.Second,
		timeout:      10 * time.Second,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.queue = make(chan Event, d.queueSize)
	d.done = make(chan struct{})

	go d.run()
	return d
}

// Name implements plugin.Plugin.
func (d *Dispatcher) Name() string { return "notify-dispatcher" }

// Enqueue queues ev without blocking.
func (d *Dispatcher) Enqueue(ev Event) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrClosed
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = d.clock().UTC()
	}

	select {
	case d.queue <- ev:
		return nil
	default:
		d.dropped.Add(1)
		return ErrQueueFull
	}
}

// Close stops accepting events and waits until the queue is drained or
// ctx is done.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats returns delivered, failed and dropped event counts.
func (d *Dispatcher) Stats() (delivered, failed, dropped int64) {
	return d.delivered.Load(), d.failed.Load(), d.dropped.Load()
}

func (d *Dispatcher) run() {
	defer close(d.done)

	builder := retrypolicy.NewBuilder[any]().
		WithMaxRetries(d.maxRetries).
		ReturnLastFailure()
	if d.retryDelay > 0 && d.maxRetryWait > d.retryDelay {
		builder = builder.WithBackoff(d.retryDelay, d.maxRetryWait).WithJitterFactor(0.1)
	}
	executor := failsafe.With[any](builder.Build())

	for ev := range d.queue {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout*time.Duration(d.maxRetries+1))
		err := executor.WithContext(ctx).Run(func() error {
			attempt, cancelAttempt := context.WithTimeout(ctx, d.timeout)
			defer cancelAttempt()
			return d.notifier.Notify(attempt, ev)
		})
		cancel()

		if err != nil {
			d.failed.Add(1)
			d.logger.Warn("notification delivery failed",
				"kind", ev.Kind,
				"tenant_id", ev.TenantID,
				"error", err,
			)
			continue
		}
		d.delivered.Add(1)
	}
}

func (d *Dispatcher) enqueue(ev Event) {
	if err := d.Enqueue(ev); err != nil {
		d.logger.Warn("notification not queued",
			"kind", ev.Kind,
			"tenant_id", ev.TenantID,
			"error", err,
		)
	}
}

// ──────────────────────────────────────────────────
// Plugin hooks
// ──────────────────────────────────────────────────

// OnReservationCreated implements plugin.OnReservationCreated.
func (d *Dispatcher) OnReservationCreated(_ context.Context, r *reservation.Reservation) error {
	d.enqueue(Event{Kind: KindReservationCreated, TenantID: r.TenantID, Reservation: r})
	return nil
}

// OnReservationCancelled implements plugin.OnReservationCancelled.
func (d *Dispatcher) OnReservationCancelled(_ context.Context, r *reservation.Reservation) error {
	d.enqueue(Event{Kind: KindReservationCancelled, TenantID: r.TenantID, Reservation: r})
	return nil
}

// OnReservationPromoted implements plugin.OnReservationPromoted.
func (d *Dispatcher) OnReservationPromoted(_ context.Context, r *reservation.Reservation) error {
	d.enqueue(Event{Kind: KindReservationPromoted, TenantID: r.TenantID, Reservation: r})
	return nil
}

// OnPaymentApplied implements plugin.OnPaymentApplied. Only completed
// checkouts are announced.
func (d *Dispatcher) OnPaymentApplied(_ context.Context, ev *payment.Event) error {
	if ev.Type != payment.EventCheckoutCompleted {
		return nil
	}
	d.enqueue(Event{Kind: KindPaymentConfirmed, TenantID: ev.TenantID, Payment: ev})
	return nil
}

// OnShutdown implements plugin.OnShutdown.
func (d *Dispatcher) OnShutdown(ctx context.Context) error {
	return d.Close(ctx)
}
