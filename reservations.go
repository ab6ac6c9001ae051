package booking

import (
	"context"
	"strings"
	"time"

	"github.com/xraph/booking/availability"
	"github.com/xraph/booking/credit"
	"github.com/xraph/booking/id"
	"github.com/xraph/booking/reservation"
	"github.com/xraph/booking/schedule"
	"github.com/xraph/booking/store"
	"github.com/xraph/booking/tenant"
	"github.com/xraph/booking/types"
)

// CreateRequest asks for a seat in one slot.
type CreateRequest struct {
	ServiceID  id.ServiceID  `json:"service_id"`
	ResourceID id.ResourceID `json:"resource_id"`
	ClientID   string        `json:"client_id"`
	Start      time.Time     `json:"start"`
	Note       string        `json:"note,omitempty"`
	// NoWaitlist fails a full slot with a ConflictError instead of queueing.
	NoWaitlist bool `json:"no_waitlist,omitempty"`
}

func (r CreateRequest) validate() error {
	switch {
	case r.ServiceID.IsNil():
		return &ValidationError{Field: "service_id", Message: "is required"}
	case r.ResourceID.IsNil():
		return &ValidationError{Field: "resource_id", Message: "is required"}
	case strings.TrimSpace(r.ClientID) == "":
		return &ValidationError{Field: "client_id", Message: "is required"}
	case r.Start.IsZero():
		return &ValidationError{Field: "start", Message: "is required"}
	}
	return nil
}

// ──────────────────────────────────────────────────
// Create
// ──────────────────────────────────────────────────

// CreateReservation books a seat. The slot is re-validated under the
// resource lock: an open slot yields an active pending reservation, a full
// one a waitlisted pending reservation at the next queue position.
func (e *Engine) CreateReservation(ctx context.Context, actor types.Actor, req CreateRequest) (*reservation.Reservation, error) {
	if err := checkActor(actor); err != nil {
		return nil, err
	}
	if err := req.validate(); err != nil {
		return nil, err
	}
	tenantID := actor.TenantID

	var created *reservation.Reservation
	err := e.runTx(ctx, func(ctx context.Context, tx store.Store, h *hooks) error {
		if err := tx.LockResource(ctx, tenantID, req.ResourceID); err != nil {
			return err
		}

		now := e.now()
		svc, slot, status, err := e.lookup(ctx, tx, tenantID, req.ServiceID, req.ResourceID, req.Start, now, nil)
		if err != nil {
			return err
		}

		r := &reservation.Reservation{
			Entity:         types.NewEntity(now),
			ID:             id.NewReservationID(),
			TenantID:       tenantID,
			ServiceID:      svc.ID,
			ServiceVersion: svc.Version,
			ResourceID:     req.ResourceID,
			ClientID:       req.ClientID,
			Start:          slot.Start.UTC(),
			End:            slot.End.UTC(),
			BufferBefore:   svc.BufferBefore,
			BufferAfter:    svc.BufferAfter,
			Policy:         svc.Policy,
			State:          reservation.StatePending,
			PaymentState:   reservation.PaymentUnpaid,
			Seat:           reservation.SeatActive,
			CreditCost:     svc.CreditCost,
			Note:           req.Note,
		}

		switch status {
		case availability.StatusOpen:
		case availability.StatusFull:
			if req.NoWaitlist {
				return &ConflictError{Resource: "slot", ID: slot.Key().String(), Reason: "slot is full"}
			}
			pos, err := tx.EnqueueWaitlist(ctx, tenantID, r.Key(), r.ID, now)
			if err != nil {
				return err
			}
			r.Seat = reservation.SeatWaitlisted
			r.WaitlistPosition = pos
		case availability.StatusBlocked:
			return &ConflictError{Resource: "slot", ID: slot.Key().String(), Reason: "overlaps another booking on the resource"}
		case availability.StatusPast:
			return &ValidationError{Field: "start", Message: "is in the past"}
		default:
			return &ValidationError{Field: "start", Message: "is not a slot of the service on this resource"}
		}

		if r.Seat == reservation.SeatActive && r.CreditCost > 0 {
			ts, err := settings(ctx, tx, tenantID)
			if err != nil {
				return err
			}
			if ts.CreditTrigger == tenant.TriggerOnCreate {
				if err := e.payWithCredits(ctx, tx, r, now, h); err != nil {
					return err
				}
			}
		}

		if err := tx.InsertReservation(ctx, r); err != nil {
			return err
		}

		h.add(func(ctx context.Context) { e.plugins.EmitReservationCreated(ctx, r) })
		if r.State == reservation.StateConfirmed {
			h.add(func(ctx context.Context) { e.plugins.EmitReservationConfirmed(ctx, r) })
		}
		created = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("reservation created",
		"tenant_id", tenantID,
		"reservation_id", created.ID,
		"seat", created.Seat,
		"state", created.State,
	)
	return created, nil
}

// ──────────────────────────────────────────────────
// Transitions
// ──────────────────────────────────────────────────

// mutate loads a reservation under its resource lock, applies fn and
// stores the result.
func (e *Engine) mutate(
	ctx context.Context,
	actor types.Actor,
	reservationID id.ReservationID,
	fn func(ctx context.Context, tx store.Store, r *reservation.Reservation, now time.Time, h *hooks) error,
) (*reservation.Reservation, error) {
	if err := checkActor(actor); err != nil {
		return nil, err
	}

	var out *reservation.Reservation
	err := e.runTx(ctx, func(ctx context.Context, tx store.Store, h *hooks) error {
		r, err := lockReservation(ctx, tx, actor.TenantID, reservationID)
		if err != nil {
			return err
		}
		if err := fn(ctx, tx, r, e.now(), h); err != nil {
			return err
		}
		out = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// lockReservation locks the resource of a reservation and reads the
// reservation again under that lock.
func lockReservation(ctx context.Context, tx store.Store, tenantID string, reservationID id.ReservationID) (*reservation.Reservation, error) {
	r, err := tx.GetReservation(ctx, tenantID, reservationID)
	if err != nil {
		return nil, err
	}
	if err := tx.LockResource(ctx, tenantID, r.ResourceID); err != nil {
		return nil, err
	}
	return tx.GetReservation(ctx, tenantID, reservationID)
}

// Confirm moves a pending active reservation to confirmed.
func (e *Engine) Confirm(ctx context.Context, actor types.Actor, reservationID id.ReservationID) (*reservation.Reservation, error) {
	return e.mutate(ctx, actor, reservationID, func(ctx context.Context, tx store.Store, r *reservation.Reservation, now time.Time, h *hooks) error {
		if err := r.Transition(reservation.StateConfirmed, now); err != nil {
			return transitionError(r, err)
		}
		if err := tx.UpdateReservation(ctx, r); err != nil {
			return err
		}
		h.add(func(ctx context.Context) { e.plugins.EmitReservationConfirmed(ctx, r) })
		return nil
	})
}

// Cancel cancels a reservation. A cancelled waitlisted reservation leaves
// the queue; a cancelled seat goes to the earliest waiting reservation of
// the slot in the same transaction. Inside the cutoff the late penalty of
// the policy captured at booking is recorded, and consumed credits are
// refunded unless the penalty forfeits them.
func (e *Engine) Cancel(ctx context.Context, actor types.Actor, reservationID id.ReservationID, reason string) (*reservation.Reservation, error) {
	return e.mutate(ctx, actor, reservationID, func(ctx context.Context, tx store.Store, r *reservation.Reservation, now time.Time, h *hooks) error {
		heldSeat := r.HoldsSeat()

		if err := r.Transition(reservation.StateCancelled, now); err != nil {
			return transitionError(r, err)
		}

		c := &reservation.Cancellation{Reason: strings.TrimSpace(reason), Penalty: schedule.PenaltyNone}
		if heldSeat && r.Policy.IsLate(r.Start, now) {
			c.Late = true
			c.Penalty = r.Policy.LatePenalty
			if c.Penalty == schedule.PenaltyFee {
				c.Fee = r.Policy.LateFee
			}
		}
		if r.CreditsConsumed > 0 && c.Penalty != schedule.PenaltyForfeitCredit {
			if _, err := e.appendCredit(ctx, tx, &credit.Entry{
				TenantID:      r.TenantID,
				ClientID:      r.ClientID,
				Type:          credit.EntryAdjust,
				Amount:        r.CreditsConsumed,
				ReservationID: r.ID,
				Reason:        "refund for cancelled reservation " + r.ID.String(),
			}, now, h); err != nil {
				return err
			}
			c.CreditsRefunded = r.CreditsConsumed
		}
		r.Cancellation = c

		if r.IsWaitlisted() {
			if err := tx.SetWaitlistStatus(ctx, r.TenantID, r.ID, reservation.WaitlistWithdrawn); err != nil {
				return err
			}
		}
		if err := tx.UpdateReservation(ctx, r); err != nil {
			return err
		}
		h.add(func(ctx context.Context) { e.plugins.EmitReservationCancelled(ctx, r) })

		if heldSeat {
			return e.promote(ctx, tx, r.TenantID, r.Key(), r.End, now, h)
		}
		return nil
	})
}

// CheckIn records the client's arrival. Under the on_check_in trigger an
// unpaid credit-payable reservation consumes its credits here.
func (e *Engine) CheckIn(ctx context.Context, actor types.Actor, reservationID id.ReservationID) (*reservation.Reservation, error) {
	return e.mutate(ctx, actor, reservationID, func(ctx context.Context, tx store.Store, r *reservation.Reservation, now time.Time, h *hooks) error {
		if err := r.CheckIn(now); err != nil {
			return transitionError(r, err)
		}
		if r.PaymentState == reservation.PaymentUnpaid && r.CreditCost > 0 {
			ts, err := settings(ctx, tx, r.TenantID)
			if err != nil {
				return err
			}
			if ts.CreditTrigger == tenant.TriggerOnCheckIn {
				if err := e.payWithCredits(ctx, tx, r, now, h); err != nil {
					return err
				}
			}
		}
		if err := tx.UpdateReservation(ctx, r); err != nil {
			return err
		}
		h.add(func(ctx context.Context) { e.plugins.EmitReservationCheckedIn(ctx, r) })
		return nil
	})
}

// CheckOut completes a checked-in reservation.
func (e *Engine) CheckOut(ctx context.Context, actor types.Actor, reservationID id.ReservationID) (*reservation.Reservation, error) {
	return e.mutate(ctx, actor, reservationID, func(ctx context.Context, tx store.Store, r *reservation.Reservation, now time.Time, h *hooks) error {
		if err := r.CheckOut(now); err != nil {
			return transitionError(r, err)
		}
		if err := tx.UpdateReservation(ctx, r); err != nil {
			return err
		}
		h.add(func(ctx context.Context) { e.plugins.EmitReservationCompleted(ctx, r) })
		return nil
	})
}

// MarkNoShow closes a confirmed reservation whose slot ended without a
// check-in. Marking a no-show twice returns the reservation unchanged.
func (e *Engine) MarkNoShow(ctx context.Context, actor types.Actor, reservationID id.ReservationID) (*reservation.Reservation, error) {
	return e.mutate(ctx, actor, reservationID, func(ctx context.Context, tx store.Store, r *reservation.Reservation, now time.Time, h *hooks) error {
		changed, err := r.MarkNoShow(now)
		if err != nil {
			return transitionError(r, err)
		}
		if !changed {
			return nil
		}
		if err := tx.UpdateReservation(ctx, r); err != nil {
			return err
		}
		h.add(func(ctx context.Context) { e.plugins.EmitReservationNoShow(ctx, r) })
		return nil
	})
}

// Reschedule moves an active reservation to another slot of its service on
// the same resource. The new slot must have a free seat and the current one
// must be outside the cancellation cutoff. The vacated seat is offered to
// the old slot's waitlist.
func (e *Engine) Reschedule(ctx context.Context, actor types.Actor, reservationID id.ReservationID, newStart time.Time) (*reservation.Reservation, error) {
	if newStart.IsZero() {
		return nil, &ValidationError{Field: "start", Message: "is required"}
	}

	var previous time.Time
	r, err := e.mutate(ctx, actor, reservationID, func(ctx context.Context, tx store.Store, r *reservation.Reservation, now time.Time, h *hooks) error {
		if !r.HoldsSeat() {
			return &ConflictError{Resource: "reservation", ID: r.ID.String(), Reason: "only active pending or confirmed reservations can be rescheduled"}
		}
		if r.Start.Equal(newStart) {
			return &ValidationError{Field: "start", Message: "must differ from the current start"}
		}

		svc, slot, status, err := e.lookup(ctx, tx, r.TenantID, r.ServiceID, r.ResourceID, newStart, now, r)
		if err != nil {
			return err
		}
		if r.Policy.IsLate(r.Start, now) {
			return &ConflictError{Resource: "reservation", ID: r.ID.String(), Reason: "inside the cancellation cutoff"}
		}
		switch status {
		case availability.StatusOpen:
		case availability.StatusFull:
			return &ConflictError{Resource: "slot", ID: slot.Key().String(), Reason: "slot is full"}
		case availability.StatusBlocked:
			return &ConflictError{Resource: "slot", ID: slot.Key().String(), Reason: "overlaps another booking on the resource"}
		case availability.StatusPast:
			return &ValidationError{Field: "start", Message: "is in the past"}
		default:
			return &ValidationError{Field: "start", Message: "is not a slot of the service on this resource"}
		}

		vacated, vacatedEnd := r.Key(), r.End
		previous = r.Start
		r.Start = slot.Start.UTC()
		r.End = slot.End.UTC()
		r.ServiceVersion = svc.Version
		r.BufferBefore = svc.BufferBefore
		r.BufferAfter = svc.BufferAfter
		r.Policy = svc.Policy
		r.Touch(now)
		if err := tx.UpdateReservation(ctx, r); err != nil {
			return err
		}
		h.add(func(ctx context.Context) { e.plugins.EmitReservationRescheduled(ctx, r, previous) })

		return e.promote(ctx, tx, r.TenantID, vacated, vacatedEnd, now, h)
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("reservation rescheduled",
		"tenant_id", r.TenantID,
		"reservation_id", r.ID,
		"from", previous,
		"to", r.Start,
	)
	return r, nil
}

// promote gives a freed seat of slot, ending at end, to the earliest
// waiting reservation. Stale queue rows are withdrawn and skipped.
func (e *Engine) promote(ctx context.Context, tx store.Store, tenantID string, slot reservation.SlotKey, end, now time.Time, h *hooks) error {
	for {
		next, err := tx.NextWaitlisted(ctx, tenantID, slot)
		if err != nil {
			if IsNotFound(err) {
				return nil
			}
			return err
		}

		w, err := tx.GetReservation(ctx, tenantID, next.ReservationID)
		if err != nil {
			return err
		}
		if !w.IsWaitlisted() || w.State != reservation.StatePending {
			if err := tx.SetWaitlistStatus(ctx, tenantID, w.ID, reservation.WaitlistWithdrawn); err != nil {
				return err
			}
			continue
		}

		free, err := e.seatFree(ctx, tx, tenantID, slot, end)
		if err != nil {
			return err
		}
		if !free {
			return nil
		}

		if err := w.Promote(now); err != nil {
			return transitionError(w, err)
		}
		if err := tx.SetWaitlistStatus(ctx, tenantID, w.ID, reservation.WaitlistPromoted); err != nil {
			return err
		}

		if w.PaymentState == reservation.PaymentUnpaid && w.CreditCost > 0 {
			ts, err := settings(ctx, tx, tenantID)
			if err != nil {
				return err
			}
			if ts.CreditTrigger == tenant.TriggerOnCreate {
				if err := e.payWithCredits(ctx, tx, w, now, h); err != nil {
					if !IsInsufficientBalance(err) {
						return err
					}
					e.logger.Warn("promoted reservation left unpaid",
						"tenant_id", tenantID,
						"reservation_id", w.ID,
						"error", err,
					)
				}
			}
		}
		if w.PaymentState == reservation.PaymentPaid && w.State == reservation.StatePending {
			if err := w.Transition(reservation.StateConfirmed, now); err != nil {
				return transitionError(w, err)
			}
		}

		if err := tx.UpdateReservation(ctx, w); err != nil {
			return err
		}
		h.add(func(ctx context.Context) { e.plugins.EmitReservationPromoted(ctx, w) })
		if w.State == reservation.StateConfirmed {
			h.add(func(ctx context.Context) { e.plugins.EmitReservationConfirmed(ctx, w) })
		}
		return nil
	}
}

// seatFree reports whether slot has a seat left. A slot that an edit moved
// off the service's grid, or that new buffers made overlap a neighbour,
// still exists for the reservations booked into it, so its seats are
// counted directly against the current capacity.
func (e *Engine) seatFree(ctx context.Context, tx store.Store, tenantID string, slot reservation.SlotKey, end time.Time) (bool, error) {
	svc, _, status, err := e.lookup(ctx, tx, tenantID, slot.ServiceID, slot.ResourceID, slot.Start, time.Time{}, nil)
	if err != nil {
		return false, err
	}
	switch status {
	case availability.StatusOpen:
		return true, nil
	case availability.StatusInvalid, availability.StatusBlocked:
	default:
		return false, nil
	}

	live, err := tx.ListLiveOnResource(ctx, tenantID, slot.ResourceID, slot.Start, end)
	if err != nil {
		return false, err
	}
	seated := 0
	for _, r := range live {
		if r.ServiceID == slot.ServiceID && r.Start.Equal(slot.Start) && r.HoldsSeat() {
			seated++
		}
	}
	return seated < svc.Capacity, nil
}

// ──────────────────────────────────────────────────
// Queries
// ──────────────────────────────────────────────────

// GetReservation returns a reservation of the actor's tenant.
func (e *Engine) GetReservation(ctx context.Context, actor types.Actor, reservationID id.ReservationID) (*reservation.Reservation, error) {
	if err := checkActor(actor); err != nil {
		return nil, err
	}
	return e.store.GetReservation(ctx, actor.TenantID, reservationID)
}

// ListReservations filters the tenant's reservations.
func (e *Engine) ListReservations(ctx context.Context, actor types.Actor, opts reservation.ListOpts) ([]*reservation.Reservation, error) {
	if err := checkActor(actor); err != nil {
		return nil, err
	}
	return e.store.ListReservations(ctx, actor.TenantID, opts)
}

// ListWaitlist returns the queue rows of a slot in position order.
func (e *Engine) ListWaitlist(ctx context.Context, actor types.Actor, slot reservation.SlotKey) ([]*reservation.WaitlistEntry, error) {
	if err := checkActor(actor); err != nil {
		return nil, err
	}
	return e.store.ListWaitlist(ctx, actor.TenantID, slot)
}
