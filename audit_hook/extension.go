// Package audithook bridges booking lifecycle events to an audit trail backend.
//
// It defines a local Recorder interface so the package does not import any
// audit backend directly. Callers inject a RecorderFunc adapter at wiring
// time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/booking/credit"
	"github.com/xraph/booking/payment"
	"github.com/xraph/booking/plugin"
	"github.com/xraph/booking/reservation"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin                   = (*Extension)(nil)
	_ plugin.OnReservationCreated     = (*Extension)(nil)
	_ plugin.OnReservationConfirmed   = (*Extension)(nil)
	_ plugin.OnReservationCancelled   = (*Extension)(nil)
	_ plugin.OnReservationPromoted    = (*Extension)(nil)
	_ plugin.OnReservationRescheduled = (*Extension)(nil)
	_ plugin.OnReservationCheckedIn   = (*Extension)(nil)
	_ plugin.OnReservationCompleted   = (*Extension)(nil)
	_ plugin.OnReservationNoShow      = (*Extension)(nil)
	_ plugin.OnCreditEntry            = (*Extension)(nil)
	_ plugin.OnCreditsExpired         = (*Extension)(nil)
	_ plugin.OnPaymentApplied         = (*Extension)(nil)
	_ plugin.OnPaymentIgnored         = (*Extension)(nil)
	_ plugin.OnWebhookRejected        = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	TenantID   string         `json:"tenant_id"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges booking lifecycle events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Reservation lifecycle hooks
// ──────────────────────────────────────────────────

// OnReservationCreated implements plugin.OnReservationCreated.
func (e *Extension) OnReservationCreated(ctx context.Context, r *reservation.Reservation) error {
	return e.reservation(ctx, ActionReservationCreated, r,
		"seat", r.Seat,
		"waitlist_position", r.WaitlistPosition,
		"start", r.Start,
	)
}

// OnReservationConfirmed implements plugin.OnReservationConfirmed.
func (e *Extension) OnReservationConfirmed(ctx context.Context, r *reservation.Reservation) error {
	return e.reservation(ctx, ActionReservationConfirmed, r, "payment_state", r.PaymentState)
}

// OnReservationCancelled implements plugin.OnReservationCancelled.
func (e *Extension) OnReservationCancelled(ctx context.Context, r *reservation.Reservation) error {
	kv := []any{"seat", r.Seat}
	if c := r.Cancellation; c != nil {
		kv = append(kv,
			"late", c.Late,
			"penalty", c.Penalty,
			"credits_refunded", c.CreditsRefunded,
			"cancel_reason", c.Reason,
		)
	}
	return e.reservation(ctx, ActionReservationCancelled, r, kv...)
}

// OnReservationPromoted implements plugin.OnReservationPromoted.
func (e *Extension) OnReservationPromoted(ctx context.Context, r *reservation.Reservation) error {
	return e.reservation(ctx, ActionReservationPromoted, r, "start", r.Start)
}

// OnReservationRescheduled implements plugin.OnReservationRescheduled.
func (e *Extension) OnReservationRescheduled(ctx context.Context, r *reservation.Reservation, previousStart time.Time) error {
	return e.reservation(ctx, ActionReservationRescheduled, r,
		"from", previousStart,
		"to", r.Start,
	)
}

// OnReservationCheckedIn implements plugin.OnReservationCheckedIn.
func (e *Extension) OnReservationCheckedIn(ctx context.Context, r *reservation.Reservation) error {
	return e.reservation(ctx, ActionReservationCheckedIn, r)
}

// OnReservationCompleted implements plugin.OnReservationCompleted.
func (e *Extension) OnReservationCompleted(ctx context.Context, r *reservation.Reservation) error {
	return e.reservation(ctx, ActionReservationCompleted, r)
}

// OnReservationNoShow implements plugin.OnReservationNoShow.
func (e *Extension) OnReservationNoShow(ctx context.Context, r *reservation.Reservation) error {
	return e.reservation(ctx, ActionReservationNoShow, r)
}

// ──────────────────────────────────────────────────
// Ledger hooks
// ──────────────────────────────────────────────────

// OnCreditEntry implements plugin.OnCreditEntry.
func (e *Extension) OnCreditEntry(ctx context.Context, entry *credit.Entry) error {
	kv := []any{
		"client_id", entry.ClientID,
		"type", entry.Type,
		"amount", entry.Amount,
		"balance", entry.Balance,
	}
	if !entry.ReservationID.IsNil() {
		kv = append(kv, "reservation_id", entry.ReservationID.String())
	}
	return e.record(ctx, ActionCreditEntry, SeverityInfo, OutcomeSuccess,
		ResourceCredit, entry.TenantID, entry.ID.String(), CategoryLedger, nil,
		kv...,
	)
}

// OnCreditsExpired implements plugin.OnCreditsExpired.
func (e *Extension) OnCreditsExpired(ctx context.Context, count int, elapsed time.Duration) error {
	return e.record(ctx, ActionCreditsExpired, SeverityInfo, OutcomeSuccess,
		ResourceCredit, "", "", CategoryLedger, nil,
		"lots", count,
		"elapsed_ms", elapsed.Milliseconds(),
	)
}

// ──────────────────────────────────────────────────
// Payment hooks
// ──────────────────────────────────────────────────

// OnPaymentApplied implements plugin.OnPaymentApplied.
func (e *Extension) OnPaymentApplied(ctx context.Context, ev *payment.Event) error {
	return e.record(ctx, ActionPaymentApplied, SeverityInfo, OutcomeSuccess,
		ResourcePayment, ev.TenantID, ev.ExternalID, CategoryPayment, nil,
		paymentFields(ev)...,
	)
}

// OnPaymentIgnored implements plugin.OnPaymentIgnored.
func (e *Extension) OnPaymentIgnored(ctx context.Context, ev *payment.Event, reason string) error {
	return e.record(ctx, ActionPaymentIgnored, SeverityInfo, OutcomeSkipped,
		ResourcePayment, ev.TenantID, ev.ExternalID, CategoryPayment, nil,
		append(paymentFields(ev), "ignore_reason", reason)...,
	)
}

// OnWebhookRejected implements plugin.OnWebhookRejected.
func (e *Extension) OnWebhookRejected(ctx context.Context, tenantID, provider string, err error) error {
	return e.record(ctx, ActionWebhookRejected, SeverityWarning, OutcomeFailure,
		ResourceWebhook, tenantID, "", CategoryIntegration, err,
		"provider", provider,
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

func paymentFields(ev *payment.Event) []any {
	kv := []any{
		"provider", ev.Provider,
		"type", ev.Type,
		"amount", ev.Amount.Amount,
		"currency", ev.Amount.Currency,
	}
	if !ev.ReservationID.IsNil() {
		kv = append(kv, "reservation_id", ev.ReservationID.String())
	}
	return kv
}

func (e *Extension) reservation(ctx context.Context, action string, r *reservation.Reservation, kvPairs ...any) error {
	kv := append([]any{
		"client_id", r.ClientID,
		"service_id", r.ServiceID.String(),
		"resource_id", r.ResourceID.String(),
		"state", r.State,
	}, kvPairs...)
	return e.record(ctx, action, SeverityInfo, OutcomeSuccess,
		ResourceReservation, r.TenantID, r.ID.String(), CategoryBooking, nil,
		kv...,
	)
}

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, tenantID, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		TenantID:   tenantID,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
