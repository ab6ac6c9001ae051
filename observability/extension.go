// Package observability provides a metrics extension for booking that
// records lifecycle event counts through a MetricFactory.
package observability

import (
	"context"
	"time"

	"github.com/xraph/booking/credit"
	"github.com/xraph/booking/payment"
	"github.com/xraph/booking/plugin"
	"github.com/xraph/booking/reservation"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin                   = (*MetricsExtension)(nil)
	_ plugin.OnInit                   = (*MetricsExtension)(nil)
	_ plugin.OnReservationCreated     = (*MetricsExtension)(nil)
	_ plugin.OnReservationConfirmed   = (*MetricsExtension)(nil)
	_ plugin.OnReservationCancelled   = (*MetricsExtension)(nil)
	_ plugin.OnReservationPromoted    = (*MetricsExtension)(nil)
	_ plugin.OnReservationRescheduled = (*MetricsExtension)(nil)
	_ plugin.OnReservationCheckedIn   = (*MetricsExtension)(nil)
	_ plugin.OnReservationCompleted   = (*MetricsExtension)(nil)
	_ plugin.OnReservationNoShow      = (*MetricsExtension)(nil)
	_ plugin.OnCreditEntry            = (*MetricsExtension)(nil)
	_ plugin.OnCreditsExpired         = (*MetricsExtension)(nil)
	_ plugin.OnPaymentApplied         = (*MetricsExtension)(nil)
	_ plugin.OnPaymentIgnored         = (*MetricsExtension)(nil)
	_ plugin.OnWebhookRejected        = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records system-wide lifecycle metrics.
// Register it as a booking plugin to track reservations, credits and payments.
type MetricsExtension struct {
	factory MetricFactory

	// Reservation metrics
	ReservationCreated     Counter
	ReservationWaitlisted  Counter
	ReservationConfirmed   Counter
	ReservationCancelled   Counter
	ReservationLateCancel  Counter
	ReservationPromoted    Counter
	ReservationRescheduled Counter
	ReservationCheckedIn   Counter
	ReservationCompleted   Counter
	ReservationNoShow      Counter

	// Ledger metrics
	CreditsGranted  Counter
	CreditsConsumed Counter
	CreditsExpired  Counter
	ExpirySweep     Histogram

	// Payment metrics
	PaymentApplied  Counter
	PaymentIgnored  Counter
	PaymentAmount   Histogram
	WebhookRejected Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		// Reservation metrics
		ReservationCreated:     factory.Counter("booking.reservation.created"),
		ReservationWaitlisted:  factory.Counter("booking.reservation.waitlisted"),
		ReservationConfirmed:   factory.Counter("booking.reservation.confirmed"),
		ReservationCancelled:   factory.Counter("booking.reservation.cancelled"),
		ReservationLateCancel:  factory.Counter("booking.reservation.late_cancelled"),
		ReservationPromoted:    factory.Counter("booking.reservation.promoted"),
		ReservationRescheduled: factory.Counter("booking.reservation.rescheduled"),
		ReservationCheckedIn:   factory.Counter("booking.reservation.checked_in"),
		ReservationCompleted:   factory.Counter("booking.reservation.completed"),
		ReservationNoShow:      factory.Counter("booking.reservation.no_show"),

		// Ledger metrics
		CreditsGranted:  factory.Counter("booking.credits.granted"),
		CreditsConsumed: factory.Counter("booking.credits.consumed"),
		CreditsExpired:  factory.Counter("booking.credits.expired"),
		ExpirySweep:     factory.Histogram("booking.credits.expiry_sweep.latency_ms"),

		// Payment metrics
		PaymentApplied:  factory.Counter("booking.payment.applied"),
		PaymentIgnored:  factory.Counter("booking.payment.ignored"),
		PaymentAmount:   factory.Histogram("booking.payment.amount"),
		WebhookRejected: factory.Counter("booking.webhook.rejected"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ any) error {
	return nil
}

// ──────────────────────────────────────────────────
// Reservation lifecycle hooks
// ──────────────────────────────────────────────────

// OnReservationCreated implements plugin.OnReservationCreated.
func (m *MetricsExtension) OnReservationCreated(_ context.Context, r *reservation.Reservation) error {
	m.ReservationCreated.Inc()
	if r.IsWaitlisted() {
		m.ReservationWaitlisted.Inc()
	}
	return nil
}

// OnReservationConfirmed implements plugin.OnReservationConfirmed.
func (m *MetricsExtension) OnReservationConfirmed(_ context.Context, _ *reservation.Reservation) error {
	m.ReservationConfirmed.Inc()
	return nil
}

// OnReservationCancelled implements plugin.OnReservationCancelled.
func (m *MetricsExtension) OnReservationCancelled(_ context.Context, r *reservation.Reservation) error {
	m.ReservationCancelled.Inc()
	if r.Cancellation != nil && r.Cancellation.Late {
		m.ReservationLateCancel.Inc()
	}
	return nil
}

// OnReservationPromoted implements plugin.OnReservationPromoted.
func (m *MetricsExtension) OnReservationPromoted(_ context.Context, _ *reservation.Reservation) error {
	m.ReservationPromoted.Inc()
	return nil
}

// OnReservationRescheduled implements plugin.OnReservationRescheduled.
func (m *MetricsExtension) OnReservationRescheduled(_ context.Context, _ *reservation.Reservation, _ time.Time) error {
	m.ReservationRescheduled.Inc()
	return nil
}

// OnReservationCheckedIn implements plugin.OnReservationCheckedIn.
func (m *MetricsExtension) OnReservationCheckedIn(_ context.Context, _ *reservation.Reservation) error {
	m.ReservationCheckedIn.Inc()
	return nil
}

// OnReservationCompleted implements plugin.OnReservationCompleted.
func (m *MetricsExtension) OnReservationCompleted(_ context.Context, _ *reservation.Reservation) error {
	m.ReservationCompleted.Inc()
	return nil
}

// OnReservationNoShow implements plugin.OnReservationNoShow.
func (m *MetricsExtension) OnReservationNoShow(_ context.Context, _ *reservation.Reservation) error {
	m.ReservationNoShow.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Ledger hooks
// ──────────────────────────────────────────────────

// OnCreditEntry implements plugin.OnCreditEntry.
func (m *MetricsExtension) OnCreditEntry(_ context.Context, e *credit.Entry) error {
	switch e.Type {
	case credit.EntryGrant:
		m.CreditsGranted.Add(float64(e.Amount))
	case credit.EntryConsume:
		m.CreditsConsumed.Add(float64(-e.Amount))
	case credit.EntryExpire:
		m.CreditsExpired.Add(float64(-e.Amount))
	}
	return nil
}

// OnCreditsExpired implements plugin.OnCreditsExpired.
func (m *MetricsExtension) OnCreditsExpired(_ context.Context, _ int, elapsed time.Duration) error {
	m.ExpirySweep.Observe(float64(elapsed.Milliseconds()))
	return nil
}

// ──────────────────────────────────────────────────
// Payment hooks
// ──────────────────────────────────────────────────

// OnPaymentApplied implements plugin.OnPaymentApplied.
func (m *MetricsExtension) OnPaymentApplied(_ context.Context, ev *payment.Event) error {
	m.PaymentApplied.Inc()
	if ev.Amount.Amount > 0 {
		m.PaymentAmount.Observe(float64(ev.Amount.Amount))
	}
	return nil
}

// OnPaymentIgnored implements plugin.OnPaymentIgnored.
func (m *MetricsExtension) OnPaymentIgnored(_ context.Context, _ *payment.Event, _ string) error {
	m.PaymentIgnored.Inc()
	return nil
}

// OnWebhookRejected implements plugin.OnWebhookRejected.
func (m *MetricsExtension) OnWebhookRejected(_ context.Context, _, _ string, _ error) error {
	m.WebhookRejected.Inc()
	return nil
}
