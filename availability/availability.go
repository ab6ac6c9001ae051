// Package availability computes bookable slots from resolved schedule
// windows and the reservations already held on a resource.
//
// The calculation is pure: the caller assembles a Snapshot from persisted
// state and Slots walks it lazily. Iterating the same Snapshot twice yields
// the same slots.
package availability

import (
	"iter"
	"time"

	"github.com/xraph/booking/id"
	"github.com/xraph/booking/reservation"
	"github.com/xraph/booking/schedule"
)

// Slot is a concrete bookable interval of a service on a resource.
type Slot struct {
	TenantID       string        `json:"tenant_id"`
	ServiceID      id.ServiceID  `json:"service_id"`
	ResourceID     id.ResourceID `json:"resource_id"`
	Start          time.Time     `json:"start"`
	End            time.Time     `json:"end"`
	Capacity       int           `json:"capacity"`
	Booked         int           `json:"booked"`
	Remaining      int           `json:"remaining"`
	ServiceVersion int           `json:"service_version"`
}

// Key returns the reservation slot key of s.
func (s Slot) Key() reservation.SlotKey {
	return reservation.SlotKey{ServiceID: s.ServiceID, ResourceID: s.ResourceID, Start: s.Start}
}

// Snapshot is the state a slot listing is computed from.
type Snapshot struct {
	Service  *schedule.Service
	Resource *schedule.Resource
	// Windows are the resolved, merged schedule windows.
	Windows []schedule.Window
	// Reservations are the live reservations on the resource that may
	// intersect the windows. Waitlisted and terminal ones are ignored.
	Reservations []*reservation.Reservation
	// NotBefore drops candidates starting earlier. Zero disables it.
	NotBefore time.Time
}

// Options tunes a listing.
type Options struct {
	// IncludeFull also yields slots without remaining capacity. Blocked
	// candidates are never yielded.
	IncludeFull bool
}

// Status classifies a candidate start time.
type Status int

const (
	// StatusInvalid means the start is not on the slot grid of any window.
	StatusInvalid Status = iota
	// StatusPast means the slot starts before NotBefore.
	StatusPast
	// StatusBlocked means a reservation of another slot overlaps the
	// candidate once buffers are applied.
	StatusBlocked
	// StatusFull means every seat is taken.
	StatusFull
	// StatusOpen means at least one seat remains.
	StatusOpen
)

func (s Status) String() string {
	switch s {
	case StatusPast:
		return "past"
	case StatusBlocked:
		return "blocked"
	case StatusFull:
		return "full"
	case StatusOpen:
		return "open"
	default:
		return "invalid"
	}
}

// Slots yields the bookable slots of snap in start order.
func Slots(snap Snapshot, opts Options) iter.Seq[Slot] {
	return func(yield func(Slot) bool) {
		if snap.Service == nil || snap.Service.Duration <= 0 {
			return
		}
		for _, w := range snap.Windows {
			for start := range candidates(snap.Service, w) {
				if !snap.NotBefore.IsZero() && start.Before(snap.NotBefore) {
					continue
				}
				slot, status := evaluate(snap, start)
				switch status {
				case StatusOpen:
				case StatusFull:
					if !opts.IncludeFull {
						continue
					}
				default:
					continue
				}
				if !yield(slot) {
					return
				}
			}
		}
	}
}

// Lookup evaluates a single candidate start. The returned Slot is only
// meaningful for StatusOpen and StatusFull.
func Lookup(snap Snapshot, start time.Time) (Slot, Status) {
	if snap.Service == nil || snap.Service.Duration <= 0 {
		return Slot{}, StatusInvalid
	}
	onGrid := false
	for _, w := range snap.Windows {
		for s := range candidates(snap.Service, w) {
			if s.Equal(start) {
				onGrid = true
				break
			}
			if s.After(start) {
				break
			}
		}
		if onGrid {
			break
		}
	}
	if !onGrid {
		return Slot{}, StatusInvalid
	}
	if !snap.NotBefore.IsZero() && start.Before(snap.NotBefore) {
		return Slot{}, StatusPast
	}
	return evaluate(snap, start)
}

// candidates yields slot starts inside w after buffers shrink it.
func candidates(svc *schedule.Service, w schedule.Window) iter.Seq[time.Time] {
	return func(yield func(time.Time) bool) {
		first := w.Start.Add(svc.BufferBefore)
		last := w.End.Add(-svc.BufferAfter)
		for start := first; !start.Add(svc.Duration).After(last); start = start.Add(svc.Duration) {
			if !yield(start) {
				return
			}
		}
	}
}

func evaluate(snap Snapshot, start time.Time) (Slot, Status) {
	svc := snap.Service
	slot := Slot{
		TenantID:       svc.TenantID,
		ServiceID:      svc.ID,
		ResourceID:     resourceID(snap),
		Start:          start,
		End:            start.Add(svc.Duration),
		Capacity:       svc.Capacity,
		ServiceVersion: svc.Version,
	}
	key := slot.Key()
	occupied := schedule.Window{Start: slot.Start, End: slot.End}.Expand(svc.BufferBefore, svc.BufferAfter)

	for _, r := range snap.Reservations {
		if !r.HoldsSeat() {
			continue
		}
		if sameKey(r.Key(), key) {
			slot.Booked++
			continue
		}
		if r.Occupied().Overlaps(occupied) {
			return slot, StatusBlocked
		}
	}

	slot.Remaining = max(0, slot.Capacity-slot.Booked)
	if slot.Remaining == 0 {
		return slot, StatusFull
	}
	return slot, StatusOpen
}

func resourceID(snap Snapshot) id.ResourceID {
	if snap.Resource == nil {
		return id.Nil
	}
	return snap.Resource.ID
}

func sameKey(a, b reservation.SlotKey) bool {
	return a.ServiceID == b.ServiceID && a.ResourceID == b.ResourceID && a.Start.Equal(b.Start)
}
