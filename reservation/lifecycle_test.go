package reservation_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/booking/id"
	"github.com/xraph/booking/reservation"
)

var slotStart = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

func newReservation(state reservation.State) *reservation.Reservation {
	return &reservation.Reservation{
		ID:           id.NewReservationID(),
		TenantID:     "studio-1",
		ServiceID:    id.NewServiceID(),
		ResourceID:   id.NewResourceID(),
		ClientID:     "client-1",
		Start:        slotStart,
		End:          slotStart.Add(time.Hour),
		State:        state,
		PaymentState: reservation.PaymentUnpaid,
		Seat:         reservation.SeatActive,
	}
}

func TestCanTransition(t *testing.T) {
	allowed := map[reservation.State][]reservation.State{
		reservation.StatePending:   {reservation.StateConfirmed, reservation.StateCancelled},
		reservation.StateConfirmed: {reservation.StateCompleted, reservation.StateCancelled, reservation.StateNoShow},
	}
	states := []reservation.State{
		reservation.StatePending, reservation.StateConfirmed, reservation.StateCancelled,
		reservation.StateCompleted, reservation.StateNoShow,
	}

	for _, from := range states {
		for _, to := range states {
			want := false
			for _, s := range allowed[from] {
				if s == to {
					want = true
				}
			}
			assert.Equal(t, want, reservation.CanTransition(from, to), "%s -> %s", from, to)
		}
	}

	assert.True(t, reservation.StateCompleted.IsTerminal())
	assert.True(t, reservation.StateCancelled.IsTerminal())
	assert.False(t, reservation.StatePending.IsTerminal())
}

func TestTransitionStampsTimes(t *testing.T) {
	now := slotStart.Add(-time.Hour)
	r := newReservation(reservation.StatePending)

	require.NoError(t, r.Transition(reservation.StateConfirmed, now))
	require.NotNil(t, r.ConfirmedAt)
	assert.Equal(t, now, *r.ConfirmedAt)
	assert.Equal(t, now, r.UpdatedAt)

	require.NoError(t, r.Transition(reservation.StateCancelled, now))
	require.NotNil(t, r.CancelledAt)

	var te *reservation.TransitionError
	require.ErrorAs(t, r.Transition(reservation.StateConfirmed, now), &te)
	assert.Equal(t, reservation.StateCancelled, te.From)
	assert.Equal(t, reservation.StateConfirmed, te.To)
}

func TestConfirmWaitlistedRejected(t *testing.T) {
	r := newReservation(reservation.StatePending)
	r.Seat = reservation.SeatWaitlisted

	err := r.Transition(reservation.StateConfirmed, slotStart)
	var te *reservation.TransitionError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, reservation.StatePending, r.State)

	require.NoError(t, r.Promote(slotStart))
	assert.False(t, r.IsWaitlisted())
	require.NoError(t, r.Transition(reservation.StateConfirmed, slotStart))
}

func TestPromoteRequiresWaitlistedPending(t *testing.T) {
	r := newReservation(reservation.StatePending)
	assert.Error(t, r.Promote(slotStart))
}

func TestCheckInCheckOut(t *testing.T) {
	r := newReservation(reservation.StatePending)
	assert.Error(t, r.CheckIn(slotStart), "pending cannot check in")

	require.NoError(t, r.Transition(reservation.StateConfirmed, slotStart))
	assert.Error(t, r.CheckOut(slotStart), "check-out before check-in")

	require.NoError(t, r.CheckIn(slotStart))
	assert.Error(t, r.CheckIn(slotStart), "second check-in")

	require.NoError(t, r.CheckOut(slotStart.Add(time.Hour)))
	assert.Equal(t, reservation.StateCompleted, r.State)
	require.NotNil(t, r.CheckedOutAt)
}

func TestMarkNoShow(t *testing.T) {
	r := newReservation(reservation.StateConfirmed)

	_, err := r.MarkNoShow(slotStart.Add(30 * time.Minute))
	assert.Error(t, err, "slot still running")

	changed, err := r.MarkNoShow(r.End)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, reservation.StateNoShow, r.State)

	changed, err = r.MarkNoShow(r.End.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, changed, "second call is a no-op")

	checkedIn := newReservation(reservation.StateConfirmed)
	require.NoError(t, checkedIn.CheckIn(slotStart))
	_, err = checkedIn.MarkNoShow(checkedIn.End)
	assert.Error(t, err)

	pending := newReservation(reservation.StatePending)
	_, err = pending.MarkNoShow(pending.End)
	assert.Error(t, err)
}

func TestOccupiedIncludesBuffers(t *testing.T) {
	r := newReservation(reservation.StatePending)
	r.BufferBefore = 10 * time.Minute
	r.BufferAfter = 15 * time.Minute

	w := r.Occupied()
	assert.Equal(t, slotStart.Add(-10*time.Minute), w.Start)
	assert.Equal(t, slotStart.Add(75*time.Minute), w.End)
	assert.True(t, r.HoldsSeat())

	r.Seat = reservation.SeatWaitlisted
	assert.False(t, r.HoldsSeat())
}

func TestSlotKeyString(t *testing.T) {
	r := newReservation(reservation.StatePending)
	same := *r
	same.Start = slotStart.In(time.FixedZone("UTC-6", -6*3600))
	assert.Equal(t, r.Key().String(), same.Key().String())
}
