package booking_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/booking"
	"github.com/xraph/booking/availability"
	"github.com/xraph/booking/schedule"
	"github.com/xraph/booking/tenant"
)

func (f *fixture) slots(q booking.SlotQuery) []availability.Slot {
	f.t.Helper()
	if q.ServiceID.IsNil() {
		q.ServiceID = f.svc.ID
	}
	if q.ResourceID.IsNil() {
		q.ResourceID = f.res.ID
	}
	out, err := f.engine.ListSlots(f.ctx, f.actor, q)
	require.NoError(f.t, err)
	return out
}

func starts(slots []availability.Slot) []time.Time {
	out := make([]time.Time, len(slots))
	for i, s := range slots {
		out[i] = s.Start.UTC()
	}
	return out
}

func TestListSlots(t *testing.T) {
	f := newFixture(t, 2)

	got := f.slots(booking.SlotQuery{From: monday, To: monday.Add(7 * 24 * time.Hour)})
	assert.Equal(t, []time.Time{at(9), at(10), at(11)}, starts(got))
	for _, s := range got {
		assert.Equal(t, 2, s.Capacity)
		assert.Equal(t, 2, s.Remaining)
		assert.Equal(t, f.svc.Version, s.ServiceVersion)
	}
}

func TestListSlotsCountsSeats(t *testing.T) {
	f := newFixture(t, 2)
	f.book("ana", 9)
	f.book("ben", 10)
	f.book("cara", 10)

	got := f.slots(booking.SlotQuery{From: monday, To: monday.Add(24 * time.Hour)})
	require.Len(t, got, 2)
	assert.Equal(t, at(9), got[0].Start.UTC())
	assert.Equal(t, 1, got[0].Remaining)
	assert.Equal(t, at(11), got[1].Start.UTC())

	full := f.slots(booking.SlotQuery{From: monday, To: monday.Add(24 * time.Hour), IncludeFull: true})
	require.Len(t, full, 3)
	assert.Equal(t, 0, full[1].Remaining)
	assert.Equal(t, 2, full[1].Booked)
}

func TestListSlotsRangeBoundaries(t *testing.T) {
	f := newFixture(t, 1)

	got := f.slots(booking.SlotQuery{From: at(10), To: at(11)})
	assert.Equal(t, []time.Time{at(10)}, starts(got), "from is inclusive and to exclusive")

	got = f.slots(booking.SlotQuery{From: at(9).Add(30 * time.Minute), To: at(12)})
	assert.Equal(t, []time.Time{at(10), at(11)}, starts(got), "the grid does not shift with the range")
}

func TestListSlotsSkipsPast(t *testing.T) {
	f := newFixture(t, 1)
	f.clock.Set(at(10).Add(time.Minute))

	got := f.slots(booking.SlotQuery{From: monday, To: monday.Add(24 * time.Hour)})
	assert.Equal(t, []time.Time{at(11)}, starts(got))
}

func TestListSlotsValidation(t *testing.T) {
	f := newFixture(t, 1)

	tests := []struct {
		name string
		q    booking.SlotQuery
	}{
		{"missing service", booking.SlotQuery{ResourceID: f.res.ID, From: monday, To: at(12)}},
		{"reversed range", booking.SlotQuery{ServiceID: f.svc.ID, ResourceID: f.res.ID, From: at(12), To: monday}},
		{"range too long", booking.SlotQuery{ServiceID: f.svc.ID, ResourceID: f.res.ID, From: monday, To: monday.Add(90 * 24 * time.Hour)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.engine.ListSlots(f.ctx, f.actor, tt.q)
			assert.True(t, booking.IsValidation(err))
		})
	}
}

func TestListSlotsTenantTimezone(t *testing.T) {
	f := newFixture(t, 1)
	require.NoError(t, f.engine.UpdateSettings(f.ctx, f.actor, &tenant.Settings{Timezone: "America/Mexico_City"}))

	// Mexico City has no daylight saving time: 09:00 local is 15:00 UTC.
	got := f.slots(booking.SlotQuery{From: monday, To: monday.Add(48 * time.Hour)})
	assert.Equal(t, []time.Time{at(15), at(16), at(17)}, starts(got))
}

func TestAdditionOpensExtraWindow(t *testing.T) {
	f := newFixture(t, 1)
	tuesday := schedule.DateOf(monday).AddDays(1)

	require.NoError(t, f.engine.AddException(f.ctx, f.actor, &schedule.Exception{
		ResourceID: f.res.ID,
		Date:       tuesday,
		Kind:       schedule.ExceptionAddition,
		Start:      schedule.Clock(18, 0),
		End:        schedule.Clock(19, 0),
	}))

	got := f.slots(booking.SlotQuery{From: monday.Add(24 * time.Hour), To: monday.Add(48 * time.Hour)})
	assert.Equal(t, []time.Time{at(24 + 18)}, starts(got))
}
