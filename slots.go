package booking

import (
	"context"
	"iter"
	"slices"
	"time"

	"github.com/xraph/booking/availability"
	"github.com/xraph/booking/id"
	"github.com/xraph/booking/reservation"
	"github.com/xraph/booking/schedule"
	"github.com/xraph/booking/store"
	"github.com/xraph/booking/types"
)

// maxSlotRange bounds a single slot listing.
const maxSlotRange = 62 * 24 * time.Hour

// reservationLookaround widens the reservation query so bookings whose
// buffers reach into the listed range are still seen.
const reservationLookaround = 24 * time.Hour

// SlotQuery selects the slots of one service on one resource whose start
// falls within [From, To).
type SlotQuery struct {
	ServiceID   id.ServiceID
	ResourceID  id.ResourceID
	From        time.Time
	To          time.Time
	IncludeFull bool
}

func (q SlotQuery) validate() error {
	switch {
	case q.ServiceID.IsNil():
		return &ValidationError{Field: "service_id", Message: "is required"}
	case q.ResourceID.IsNil():
		return &ValidationError{Field: "resource_id", Message: "is required"}
	case q.From.IsZero() || q.To.IsZero():
		return &ValidationError{Field: "range", Message: "from and to are required"}
	case !q.From.Before(q.To):
		return &ValidationError{Field: "range", Message: "from must be before to"}
	case q.To.Sub(q.From) > maxSlotRange:
		return &ValidationError{Field: "range", Message: "must not exceed 62 days"}
	}
	return nil
}

// Slots returns a lazy sequence of the bookable slots matching q. The
// state is read once, when Slots is called; iterating does not touch the
// store and may be repeated.
func (e *Engine) Slots(ctx context.Context, actor types.Actor, q SlotQuery) (iter.Seq[availability.Slot], error) {
	if err := checkActor(actor); err != nil {
		return nil, err
	}
	if err := q.validate(); err != nil {
		return nil, err
	}

	snap, err := e.snapshot(ctx, e.store, actor.TenantID, q.ServiceID, q.ResourceID, q.From, q.To, nil)
	if err != nil {
		return nil, err
	}
	snap.NotBefore = e.now()

	all := availability.Slots(snap, availability.Options{IncludeFull: q.IncludeFull})
	return func(yield func(availability.Slot) bool) {
		for slot := range all {
			if slot.Start.Before(q.From) {
				continue
			}
			if !slot.Start.Before(q.To) {
				return
			}
			if !yield(slot) {
				return
			}
		}
	}, nil
}

// ListSlots collects Slots.
func (e *Engine) ListSlots(ctx context.Context, actor types.Actor, q SlotQuery) ([]availability.Slot, error) {
	seq, err := e.Slots(ctx, actor, q)
	if err != nil {
		return nil, err
	}
	return slices.Collect(seq), nil
}

// snapshot reads the state availability needs for slots starting within
// [from, to). Windows are resolved over whole local days around the range
// so the slot grid does not depend on the range boundaries. Reservations
// whose id is in skip are left out.
func (e *Engine) snapshot(
	ctx context.Context,
	s store.Store,
	tenantID string,
	serviceID id.ServiceID,
	resourceID id.ResourceID,
	from, to time.Time,
	skip *reservation.Reservation,
) (availability.Snapshot, error) {
	svc, err := s.GetService(ctx, tenantID, serviceID)
	if err != nil {
		return availability.Snapshot{}, err
	}
	res, err := s.GetResource(ctx, tenantID, resourceID)
	if err != nil {
		return availability.Snapshot{}, err
	}
	ts, err := settings(ctx, s, tenantID)
	if err != nil {
		return availability.Snapshot{}, err
	}
	loc := ts.Location()

	firstDay := schedule.DateOf(from.In(loc)).AddDays(-1)
	lastDay := schedule.DateOf(to.In(loc)).AddDays(1)

	rules, err := s.ListRules(ctx, tenantID, resourceID)
	if err != nil {
		return availability.Snapshot{}, err
	}
	exceptions, err := s.ListExceptions(ctx, tenantID, resourceID, firstDay, lastDay)
	if err != nil {
		return availability.Snapshot{}, err
	}
	cal := schedule.Calendar{Rules: rules, Exceptions: exceptions, Location: loc}
	windows := schedule.ResolveWindows(svc, res, cal, firstDay.At(0, loc), lastDay.At(schedule.EndOfDay, loc))

	margin := reservationLookaround + svc.BufferBefore + svc.BufferAfter
	live, err := s.ListLiveOnResource(ctx, tenantID, resourceID, from.Add(-margin), to.Add(svc.Duration+margin))
	if err != nil {
		return availability.Snapshot{}, err
	}
	if skip != nil {
		live = slices.DeleteFunc(live, func(r *reservation.Reservation) bool { return r.ID == skip.ID })
	}

	return availability.Snapshot{
		Service:      svc,
		Resource:     res,
		Windows:      windows,
		Reservations: live,
	}, nil
}

// lookup evaluates a single start time for the create, promote and
// reschedule paths.
func (e *Engine) lookup(
	ctx context.Context,
	s store.Store,
	tenantID string,
	serviceID id.ServiceID,
	resourceID id.ResourceID,
	start time.Time,
	notBefore time.Time,
	skip *reservation.Reservation,
) (*schedule.Service, availability.Slot, availability.Status, error) {
	snap, err := e.snapshot(ctx, s, tenantID, serviceID, resourceID, start, start.Add(time.Nanosecond), skip)
	if err != nil {
		return nil, availability.Slot{}, availability.StatusInvalid, err
	}
	snap.NotBefore = notBefore
	slot, status := availability.Lookup(snap, start)
	return snap.Service, slot, status, nil
}
