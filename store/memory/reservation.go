package memory

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"time"

	"github.com/xraph/booking"
	"github.com/xraph/booking/id"
	"github.com/xraph/booking/reservation"
)

func copyReservation(r *reservation.Reservation) *reservation.Reservation {
	cp := *r
	if r.Cancellation != nil {
		c := *r.Cancellation
		cp.Cancellation = &c
	}
	return &cp
}

// LockResource is a no-op: transactions already hold the writer lock.
func (s *Store) LockResource(context.Context, string, id.ResourceID) error { return nil }

func (s *Store) InsertReservation(ctx context.Context, r *reservation.Reservation) error {
	return s.write(ctx, func(st *state) error {
		k := key(r.TenantID, r.ID.String())
		if _, ok := st.reservations[k]; ok {
			return booking.ErrAlreadyExists
		}
		st.reservations[k] = copyReservation(r)
		return nil
	})
}

func (s *Store) UpdateReservation(ctx context.Context, r *reservation.Reservation) error {
	return s.write(ctx, func(st *state) error {
		k := key(r.TenantID, r.ID.String())
		if _, ok := st.reservations[k]; !ok {
			return &booking.NotFoundError{Resource: "reservation", ID: r.ID.String()}
		}
		st.reservations[k] = copyReservation(r)
		return nil
	})
}

func (s *Store) GetReservation(_ context.Context, tenantID string, reservationID id.ReservationID) (*reservation.Reservation, error) {
	var out *reservation.Reservation
	err := s.read(func(st *state) error {
		r, ok := st.reservations[key(tenantID, reservationID.String())]
		if !ok {
			return &booking.NotFoundError{Resource: "reservation", ID: reservationID.String()}
		}
		out = copyReservation(r)
		return nil
	})
	return out, err
}

func (s *Store) ListReservations(_ context.Context, tenantID string, opts reservation.ListOpts) ([]*reservation.Reservation, error) {
	var out []*reservation.Reservation
	err := s.read(func(st *state) error {
		for _, r := range st.reservations {
			if r.TenantID != tenantID || !matches(r, opts) {
				continue
			}
			out = append(out, copyReservation(r))
		}
		return nil
	})
	sortReservations(out)
	return page(out, opts.Limit, opts.Offset), err
}

func matches(r *reservation.Reservation, opts reservation.ListOpts) bool {
	switch {
	case opts.ClientID != "" && r.ClientID != opts.ClientID:
		return false
	case !opts.ServiceID.IsNil() && r.ServiceID != opts.ServiceID:
		return false
	case !opts.ResourceID.IsNil() && r.ResourceID != opts.ResourceID:
		return false
	case opts.State != "" && r.State != opts.State:
		return false
	case !opts.From.IsZero() && r.Start.Before(opts.From):
		return false
	case !opts.To.IsZero() && !r.Start.Before(opts.To):
		return false
	}
	return true
}

func sortReservations(rs []*reservation.Reservation) {
	slices.SortFunc(rs, func(a, b *reservation.Reservation) int {
		if c := a.Start.Compare(b.Start); c != 0 {
			return c
		}
		return strings.Compare(a.ID.String(), b.ID.String())
	})
}

func (s *Store) ListLiveOnResource(_ context.Context, tenantID string, resourceID id.ResourceID, from, to time.Time) ([]*reservation.Reservation, error) {
	var out []*reservation.Reservation
	err := s.read(func(st *state) error {
		for _, r := range st.reservations {
			if r.TenantID != tenantID || r.ResourceID != resourceID || !r.IsLive() {
				continue
			}
			if r.Start.Before(to) && r.End.After(from) {
				out = append(out, copyReservation(r))
			}
		}
		return nil
	})
	sortReservations(out)
	return out, err
}

func (s *Store) EnqueueWaitlist(ctx context.Context, tenantID string, slot reservation.SlotKey, reservationID id.ReservationID, at time.Time) (int, error) {
	var pos int
	err := s.write(ctx, func(st *state) error {
		k := key(tenantID, slot.String())
		rows := st.waitlist[k]
		pos = len(rows) + 1
		st.waitlist[k] = append(rows, &reservation.WaitlistEntry{
			TenantID:      tenantID,
			Slot:          slot,
			Position:      pos,
			ReservationID: reservationID,
			Status:        reservation.WaitlistWaiting,
			CreatedAt:     at.UTC(),
		})
		return nil
	})
	return pos, err
}

func (s *Store) NextWaitlisted(_ context.Context, tenantID string, slot reservation.SlotKey) (*reservation.WaitlistEntry, error) {
	var out *reservation.WaitlistEntry
	err := s.read(func(st *state) error {
		for _, e := range st.waitlist[key(tenantID, slot.String())] {
			if e.Status != reservation.WaitlistWaiting {
				continue
			}
			if out == nil || e.Position < out.Position {
				cp := *e
				out = &cp
			}
		}
		if out == nil {
			return &booking.NotFoundError{Resource: "waitlist entry", ID: slot.String()}
		}
		return nil
	})
	return out, err
}

func (s *Store) SetWaitlistStatus(ctx context.Context, tenantID string, reservationID id.ReservationID, status reservation.WaitlistStatus) error {
	return s.write(ctx, func(st *state) error {
		for k, rows := range st.waitlist {
			for i, e := range rows {
				if e.TenantID != tenantID || e.ReservationID != reservationID {
					continue
				}
				cp := *e
				cp.Status = status
				rows[i] = &cp
				st.waitlist[k] = rows
				return nil
			}
		}
		return &booking.NotFoundError{Resource: "waitlist entry", ID: reservationID.String()}
	})
}

func (s *Store) ListWaitlist(_ context.Context, tenantID string, slot reservation.SlotKey) ([]*reservation.WaitlistEntry, error) {
	var out []*reservation.WaitlistEntry
	err := s.read(func(st *state) error {
		for _, e := range st.waitlist[key(tenantID, slot.String())] {
			cp := *e
			out = append(out, &cp)
		}
		return nil
	})
	slices.SortFunc(out, func(a, b *reservation.WaitlistEntry) int { return cmp.Compare(a.Position, b.Position) })
	return out, err
}
