// Package notify is the outbound notification port of the booking engine.
//
// The engine never talks to email, SMS or chat providers itself. A
// Dispatcher registered as a plugin turns lifecycle hooks into Events and
// hands them to a Notifier on a background worker, so no transaction waits
// on network I/O. Delivery is at-least-once: failures are retried and then
// logged, never returned to the caller that caused the event.
package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/xraph/booking/payment"
	"github.com/xraph/booking/reservation"
)

// Kind names what happened.
type Kind string

const (
	KindReservationCreated   Kind = "reservation.created"
	KindReservationCancelled Kind = "reservation.cancelled"
	KindReservationPromoted  Kind = "reservation.promoted"
	KindPaymentConfirmed     Kind = "payment.confirmed"
)

// Event is a single notification. Reservation is set for reservation kinds
// and Payment for payment kinds.
type Event struct {
	Kind        Kind                     `json:"kind"`
	TenantID    string                   `json:"tenant_id"`
	Reservation *reservation.Reservation `json:"reservation,omitempty"`
	Payment     *payment.Event           `json:"payment,omitempty"`
	OccurredAt  time.Time                `json:"occurred_at"`
}

// Notifier delivers events to the outside world.
type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

// NotifierFunc is an adapter to use a plain function as a Notifier.
type NotifierFunc func(ctx context.Context, ev Event) error

// Notify implements Notifier.
func (f NotifierFunc) Notify(ctx context.Context, ev Event) error { return f(ctx, ev) }

// LogNotifier writes every event to a logger. It is the default when no
// delivery channel is configured.
type LogNotifier struct {
	Logger *slog.Logger
}

// Notify implements Notifier.
func (n LogNotifier) Notify(ctx context.Context, ev Event) error {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}

	attrs := []any{"kind", ev.Kind, "tenant_id", ev.TenantID}
	if r := ev.Reservation; r != nil {
		attrs = append(attrs, "reservation_id", r.ID, "client_id", r.ClientID, "start", r.Start)
	}
	if p := ev.Payment; p != nil {
		attrs = append(attrs, "provider", p.Provider, "external_id", p.ExternalID)
	}
	logger.InfoContext(ctx, "notification", attrs...)
	return nil
}
