package availability_test

import (
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/booking/availability"
	"github.com/xraph/booking/id"
	"github.com/xraph/booking/reservation"
	"github.com/xraph/booking/schedule"
)

var day = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

func at(h, m int) time.Time { return day.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute) }

func fixture(capacity int) availability.Snapshot {
	return availability.Snapshot{
		Service: &schedule.Service{
			ID:       id.NewServiceID(),
			TenantID: "studio-1",
			Capacity: capacity,
			Duration: time.Hour,
			Version:  1,
		},
		Resource: &schedule.Resource{ID: id.NewResourceID(), TenantID: "studio-1"},
		Windows:  []schedule.Window{{Start: at(9, 0), End: at(12, 0)}},
	}
}

func book(snap availability.Snapshot, start time.Time, seat reservation.Seat, state reservation.State) *reservation.Reservation {
	return &reservation.Reservation{
		ID:           id.NewReservationID(),
		TenantID:     snap.Service.TenantID,
		ServiceID:    snap.Service.ID,
		ResourceID:   snap.Resource.ID,
		Start:        start,
		End:          start.Add(snap.Service.Duration),
		BufferBefore: snap.Service.BufferBefore,
		BufferAfter:  snap.Service.BufferAfter,
		State:        state,
		Seat:         seat,
	}
}

func starts(slots []availability.Slot) []time.Time {
	out := make([]time.Time, len(slots))
	for i, s := range slots {
		out[i] = s.Start
	}
	return out
}

func TestSlotsDiscretizeWindow(t *testing.T) {
	snap := fixture(1)
	got := slices.Collect(availability.Slots(snap, availability.Options{}))
	assert.Equal(t, []time.Time{at(9, 0), at(10, 0), at(11, 0)}, starts(got))
	for _, s := range got {
		assert.Equal(t, 1, s.Remaining)
		assert.Equal(t, s.Start.Add(time.Hour), s.End)
	}
}

func TestSlotsApplyBuffersToWindowEdges(t *testing.T) {
	snap := fixture(1)
	snap.Service.Duration = 45 * time.Minute
	snap.Service.BufferBefore = 15 * time.Minute
	snap.Service.BufferAfter = 15 * time.Minute

	got := slices.Collect(availability.Slots(snap, availability.Options{}))
	// bookable range is 09:15-11:45, stepped by 45m
	assert.Equal(t, []time.Time{at(9, 15), at(10, 0), at(10, 45)}, starts(got))
}

func TestClassCapacity(t *testing.T) {
	snap := fixture(3)
	snap.Reservations = []*reservation.Reservation{
		book(snap, at(9, 0), reservation.SeatActive, reservation.StateConfirmed),
		book(snap, at(9, 0), reservation.SeatActive, reservation.StatePending),
		book(snap, at(9, 0), reservation.SeatWaitlisted, reservation.StatePending),
		book(snap, at(9, 0), reservation.SeatActive, reservation.StateCancelled),
	}

	slot, status := availability.Lookup(snap, at(9, 0))
	require.Equal(t, availability.StatusOpen, status)
	assert.Equal(t, 2, slot.Booked)
	assert.Equal(t, 1, slot.Remaining)

	// same-slot reservations never block the class itself
	got := slices.Collect(availability.Slots(snap, availability.Options{}))
	assert.Len(t, got, 3)
}

func TestFullSlotsHiddenUnlessRequested(t *testing.T) {
	snap := fixture(1)
	snap.Reservations = []*reservation.Reservation{
		book(snap, at(10, 0), reservation.SeatActive, reservation.StatePending),
	}

	open := slices.Collect(availability.Slots(snap, availability.Options{}))
	assert.Equal(t, []time.Time{at(9, 0), at(11, 0)}, starts(open))

	all := slices.Collect(availability.Slots(snap, availability.Options{IncludeFull: true}))
	require.Len(t, all, 3)
	assert.Equal(t, 0, all[1].Remaining)

	_, status := availability.Lookup(snap, at(10, 0))
	assert.Equal(t, availability.StatusFull, status)
}

func TestOtherServiceBlocksWithBuffers(t *testing.T) {
	snap := fixture(1)
	snap.Service.BufferAfter = 15 * time.Minute
	snap.Windows = []schedule.Window{{Start: at(9, 0), End: at(13, 0)}}

	// a different service on the same resource, 10:30-11:00 with no buffers
	other := &reservation.Reservation{
		ID:         id.NewReservationID(),
		ServiceID:  id.NewServiceID(),
		ResourceID: snap.Resource.ID,
		Start:      at(10, 30),
		End:        at(11, 0),
		State:      reservation.StateConfirmed,
		Seat:       reservation.SeatActive,
	}
	snap.Reservations = []*reservation.Reservation{other}

	got := slices.Collect(availability.Slots(snap, availability.Options{IncludeFull: true}))
	// candidates are 09:00, 10:00 and 11:00; 10:00 runs into 10:30 and
	// 11:00 starts exactly when the other booking ends
	assert.Equal(t, []time.Time{at(9, 0), at(11, 0)}, starts(got))

	_, status := availability.Lookup(snap, at(10, 0))
	assert.Equal(t, availability.StatusBlocked, status)
}

func TestLookupRejectsOffGrid(t *testing.T) {
	snap := fixture(1)

	_, status := availability.Lookup(snap, at(9, 30))
	assert.Equal(t, availability.StatusInvalid, status)

	_, status = availability.Lookup(snap, at(12, 0))
	assert.Equal(t, availability.StatusInvalid, status)
}

func TestNotBefore(t *testing.T) {
	snap := fixture(1)
	snap.NotBefore = at(9, 30)

	got := slices.Collect(availability.Slots(snap, availability.Options{}))
	assert.Equal(t, []time.Time{at(10, 0), at(11, 0)}, starts(got))

	_, status := availability.Lookup(snap, at(9, 0))
	assert.Equal(t, availability.StatusPast, status)
}

func TestSlotsRestartable(t *testing.T) {
	seq := availability.Slots(fixture(2), availability.Options{})
	first := slices.Collect(seq)
	second := slices.Collect(seq)
	assert.Equal(t, first, second)

	// early exit stops the walk
	n := 0
	for range seq {
		n++
		break
	}
	assert.Equal(t, 1, n)
}
