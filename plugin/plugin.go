// Package plugin provides the hook system of the booking engine.
// Plugins implement any subset of the hook interfaces below; the engine
// calls them after the owning transaction has committed.
package plugin

import (
	"context"
	"time"

	"github.com/xraph/booking/credit"
	"github.com/xraph/booking/payment"
	"github.com/xraph/booking/reservation"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the engine starts.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, engine any) error
}

// OnShutdown is called when the engine stops.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Reservation hooks
// ──────────────────────────────────────────────────

// OnReservationCreated is called for every new reservation, waitlisted
// ones included.
type OnReservationCreated interface {
	Plugin
	OnReservationCreated(ctx context.Context, r *reservation.Reservation) error
}

// OnReservationConfirmed is called when a reservation becomes confirmed.
type OnReservationConfirmed interface {
	Plugin
	OnReservationConfirmed(ctx context.Context, r *reservation.Reservation) error
}

// OnReservationCancelled is called when a reservation is cancelled.
type OnReservationCancelled interface {
	Plugin
	OnReservationCancelled(ctx context.Context, r *reservation.Reservation) error
}

// OnReservationPromoted is called when a waitlisted reservation takes a
// freed seat.
type OnReservationPromoted interface {
	Plugin
	OnReservationPromoted(ctx context.Context, r *reservation.Reservation) error
}

// OnReservationRescheduled is called after a reservation moves to a new
// start time.
type OnReservationRescheduled interface {
	Plugin
	OnReservationRescheduled(ctx context.Context, r *reservation.Reservation, previousStart time.Time) error
}

// OnReservationCheckedIn is called when the client checks in.
type OnReservationCheckedIn interface {
	Plugin
	OnReservationCheckedIn(ctx context.Context, r *reservation.Reservation) error
}

// OnReservationCompleted is called on check-out.
type OnReservationCompleted interface {
	Plugin
	OnReservationCompleted(ctx context.Context, r *reservation.Reservation) error
}

// OnReservationNoShow is called when a reservation is marked no-show.
type OnReservationNoShow interface {
	Plugin
	OnReservationNoShow(ctx context.Context, r *reservation.Reservation) error
}

// ──────────────────────────────────────────────────
// Credit hooks
// ──────────────────────────────────────────────────

// OnCreditEntry is called for every ledger entry written.
type OnCreditEntry interface {
	Plugin
	OnCreditEntry(ctx context.Context, e *credit.Entry) error
}

// OnCreditsExpired is called after an expiry sweep that wrote entries.
type OnCreditsExpired interface {
	Plugin
	OnCreditsExpired(ctx context.Context, count int, elapsed time.Duration) error
}

// ──────────────────────────────────────────────────
// Payment hooks
// ──────────────────────────────────────────────────

// OnPaymentApplied is called when a payment event changed state.
type OnPaymentApplied interface {
	Plugin
	OnPaymentApplied(ctx context.Context, ev *payment.Event) error
}

// OnPaymentIgnored is called for duplicates and unsupported event types.
type OnPaymentIgnored interface {
	Plugin
	OnPaymentIgnored(ctx context.Context, ev *payment.Event, reason string) error
}

// OnWebhookRejected is called when a webhook fails verification or
// decoding. Nothing has been stored at that point.
type OnWebhookRejected interface {
	Plugin
	OnWebhookRejected(ctx context.Context, tenantID, provider string, err error) error
}
