package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xraph/booking/credit"
	"github.com/xraph/booking/id"
	"github.com/xraph/booking/payment"
	"github.com/xraph/booking/reservation"
	"github.com/xraph/booking/store"
	"github.com/xraph/booking/types"
)

// errDuplicateEvent aborts the transaction of an already recorded event.
var errDuplicateEvent = errors.New("booking: duplicate payment event")

const reasonUnsupported = "unsupported event type"

// ApplyEvent verifies, records and applies a provider webhook payload.
//
// The signature is checked before the store is touched. Recording the event
// and acting on it happen in one transaction, and the event's external id is
// unique per tenant and provider, so a redelivered event is reported as
// ignored without side effects. An event naming an unknown reservation
// fails with a NotFoundError and leaves nothing behind, so a later
// redelivery can still apply it.
func (e *Engine) ApplyEvent(ctx context.Context, tenantID, providerName string, payload []byte, signature string) (*payment.Result, error) {
	if strings.TrimSpace(tenantID) == "" {
		return nil, &ValidationError{Field: "tenant_id", Message: "is required"}
	}
	p, ok := e.providers[providerName]
	if !ok {
		return nil, &ValidationError{Field: "provider", Message: fmt.Sprintf("unknown payment provider %q", providerName)}
	}

	ev, err := p.Decode(ctx, tenantID, payload, signature)
	if err != nil {
		if IsInvalidSignature(err) {
			e.plugins.EmitWebhookRejected(ctx, tenantID, providerName, err)
			e.logger.Warn("payment event rejected",
				"tenant_id", tenantID,
				"provider", providerName,
				"error", err,
			)
		}
		return nil, err
	}

	ev.TenantID = tenantID
	ev.Provider = providerName
	ev.Payload = payload
	return e.apply(ctx, ev)
}

// RecordManualPayment records a front-desk payment for a reservation. The
// reference is the idempotency key; recording the same reference twice is
// reported as ignored.
func (e *Engine) RecordManualPayment(ctx context.Context, actor types.Actor, reservationID id.ReservationID, amount types.Money, reference string) (*payment.Result, error) {
	if err := checkActor(actor); err != nil {
		return nil, err
	}
	if reservationID.IsNil() {
		return nil, &ValidationError{Field: "reservation_id", Message: "is required"}
	}
	if amount.IsNegative() {
		return nil, &ValidationError{Field: "amount", Message: "must not be negative"}
	}
	reference = strings.TrimSpace(reference)
	if reference == "" {
		reference = id.NewPaymentEventID().String()
	}

	return e.apply(ctx, &payment.Event{
		TenantID:      actor.TenantID,
		Provider:      payment.ProviderManual,
		ExternalID:    reference,
		Type:          payment.EventCheckoutCompleted,
		ReservationID: reservationID,
		Amount:        amount,
	})
}

func (e *Engine) apply(ctx context.Context, ev *payment.Event) (*payment.Result, error) {
	now := e.now()
	ev.ID = id.NewPaymentEventID()
	ev.Processed = true
	ev.ProcessedAt = &now
	ev.ReceivedAt = now
	ev.Outcome = string(payment.StatusApplied)
	supported := ev.Type == payment.EventCheckoutCompleted || ev.Type == payment.EventRefund || ev.Type == payment.EventDispute
	if !supported {
		ev.Outcome = string(payment.StatusIgnored) + ": " + reasonUnsupported
	}

	err := e.runTx(ctx, func(ctx context.Context, tx store.Store, h *hooks) error {
		if err := tx.InsertPaymentEvent(ctx, ev); err != nil {
			if errors.Is(err, ErrAlreadyExists) {
				return errDuplicateEvent
			}
			return err
		}
		if !supported {
			return nil
		}

		switch ev.Type {
		case payment.EventCheckoutCompleted:
			if err := e.applyCheckout(ctx, tx, ev, now, h); err != nil {
				return err
			}
		case payment.EventRefund:
			if err := e.applyRefund(ctx, tx, ev, now); err != nil {
				return err
			}
		}
		h.add(func(ctx context.Context) { e.plugins.EmitPaymentApplied(ctx, ev) })
		return nil
	})

	switch {
	case errors.Is(err, errDuplicateEvent):
		recorded, getErr := e.store.GetPaymentEvent(ctx, ev.TenantID, ev.Provider, ev.ExternalID)
		if getErr != nil {
			recorded = ev
		}
		e.plugins.EmitPaymentIgnored(ctx, recorded, "duplicate")
		return &payment.Result{Status: payment.StatusIgnored, Reason: "duplicate", Event: recorded}, nil
	case err != nil:
		return nil, err
	case !supported:
		e.plugins.EmitPaymentIgnored(ctx, ev, reasonUnsupported)
		return &payment.Result{Status: payment.StatusIgnored, Reason: reasonUnsupported, Event: ev}, nil
	}

	e.logger.Info("payment event applied",
		"tenant_id", ev.TenantID,
		"provider", ev.Provider,
		"external_id", ev.ExternalID,
		"type", ev.Type,
	)
	return &payment.Result{Status: payment.StatusApplied, Event: ev}, nil
}

// applyCheckout marks the reservation paid and confirms it when it holds
// a pending seat, then grants purchased credits.
func (e *Engine) applyCheckout(ctx context.Context, tx store.Store, ev *payment.Event, now time.Time, h *hooks) error {
	if !ev.ReservationID.IsNil() {
		r, err := lockReservation(ctx, tx, ev.TenantID, ev.ReservationID)
		if err != nil {
			return err
		}
		if r.PaymentState == reservation.PaymentUnpaid {
			r.PaymentState = reservation.PaymentPaid
			r.Touch(now)
			if r.State == reservation.StatePending && !r.IsWaitlisted() {
				if err := r.Transition(reservation.StateConfirmed, now); err != nil {
					return transitionError(r, err)
				}
				h.add(func(ctx context.Context) { e.plugins.EmitReservationConfirmed(ctx, r) })
			}
			if err := tx.UpdateReservation(ctx, r); err != nil {
				return err
			}
		}
	}

	if ev.Credits > 0 && ev.ClientID != "" {
		if _, err := e.appendCredit(ctx, tx, &credit.Entry{
			TenantID:  ev.TenantID,
			ClientID:  ev.ClientID,
			Type:      credit.EntryGrant,
			Amount:    ev.Credits,
			ExpiresAt: utc(ev.CreditsExpireAt),
			Reason:    "purchase " + ev.Provider + "/" + ev.ExternalID,
		}, now, h); err != nil {
			return err
		}
	}
	return nil
}

// applyRefund only records the refund on the reservation; seats and
// credits are left to the operator.
func (e *Engine) applyRefund(ctx context.Context, tx store.Store, ev *payment.Event, now time.Time) error {
	if ev.ReservationID.IsNil() {
		return nil
	}
	r, err := lockReservation(ctx, tx, ev.TenantID, ev.ReservationID)
	if err != nil {
		return err
	}
	if r.PaymentState == reservation.PaymentRefunded {
		return nil
	}
	r.PaymentState = reservation.PaymentRefunded
	r.Touch(now)
	return tx.UpdateReservation(ctx, r)
}

// GetPaymentEvent returns a recorded event by provider and external id.
func (e *Engine) GetPaymentEvent(ctx context.Context, actor types.Actor, provider, externalID string) (*payment.Event, error) {
	if err := checkActor(actor); err != nil {
		return nil, err
	}
	return e.store.GetPaymentEvent(ctx, actor.TenantID, provider, externalID)
}

// ListPaymentEvents returns the tenant's recorded events, newest first.
func (e *Engine) ListPaymentEvents(ctx context.Context, actor types.Actor, opts payment.ListOpts) ([]*payment.Event, error) {
	if err := checkActor(actor); err != nil {
		return nil, err
	}
	return e.store.ListPaymentEvents(ctx, actor.TenantID, opts)
}
