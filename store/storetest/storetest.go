// Package storetest is a conformance suite shared by the store backends.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/booking"
	"github.com/xraph/booking/credit"
	"github.com/xraph/booking/id"
	"github.com/xraph/booking/payment"
	"github.com/xraph/booking/reservation"
	"github.com/xraph/booking/schedule"
	"github.com/xraph/booking/store"
	"github.com/xraph/booking/tenant"
	"github.com/xraph/booking/types"
)

// Factory returns an empty, migrated store. It should register cleanup.
type Factory func(t *testing.T) store.Store

var base = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

// Run executes the suite against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("Catalog", func(t *testing.T) { testCatalog(t, newStore(t)) })
	t.Run("Reservations", func(t *testing.T) { testReservations(t, newStore(t)) })
	t.Run("Waitlist", func(t *testing.T) { testWaitlist(t, newStore(t)) })
	t.Run("Credits", func(t *testing.T) { testCredits(t, newStore(t)) })
	t.Run("Payments", func(t *testing.T) { testPayments(t, newStore(t)) })
	t.Run("Settings", func(t *testing.T) { testSettings(t, newStore(t)) })
	t.Run("Rollback", func(t *testing.T) { testRollback(t, newStore(t)) })
}

// Fixture seeds a service and a resource for tenant.
func Fixture(t *testing.T, s store.Store, tenantID string) (*schedule.Service, *schedule.Resource) {
	t.Helper()
	ctx := context.Background()

	svc := &schedule.Service{
		Entity:   types.NewEntity(base),
		ID:       id.NewServiceID(),
		TenantID: tenantID,
		Name:     "Reformer",
		Capacity: 2,
		Duration: time.Hour,
		Policy:   schedule.Policy{CancelCutoff: 2 * time.Hour, LatePenalty: schedule.PenaltyForfeitCredit},
		Price:    types.MXN(35000),
		Version:  1,
		Metadata: map[string]string{"level": "beginner"},
	}
	require.NoError(t, s.CreateService(ctx, svc))

	res := &schedule.Resource{Entity: types.NewEntity(base), ID: id.NewResourceID(), TenantID: tenantID, Name: "Room A"}
	require.NoError(t, s.CreateResource(ctx, res))
	return svc, res
}

func testCatalog(t *testing.T, s store.Store) {
	ctx := context.Background()
	svc, res := Fixture(t, s, "t1")

	got, err := s.GetService(ctx, "t1", svc.ID)
	require.NoError(t, err)
	assert.Equal(t, svc.Name, got.Name)
	assert.Equal(t, svc.Duration, got.Duration)
	assert.Equal(t, svc.Policy, got.Policy)
	assert.Equal(t, "beginner", got.Metadata["level"])

	_, err = s.GetService(ctx, "t2", svc.ID)
	assert.True(t, booking.IsNotFound(err), "services are tenant scoped")

	got.Capacity = 4
	got.Version = 2
	require.NoError(t, s.UpdateService(ctx, got))
	again, err := s.GetService(ctx, "t1", svc.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, again.Capacity)
	assert.Equal(t, 2, again.Version)

	list, err := s.ListServices(ctx, "t1", schedule.ListOpts{})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	rule := &schedule.Rule{
		Entity: types.NewEntity(base), ID: id.NewRuleID(), TenantID: "t1", ResourceID: res.ID,
		Kind: schedule.RuleWeekly, Weekday: time.Monday, Start: schedule.Clock(9, 0), End: schedule.Clock(12, 0),
	}
	require.NoError(t, s.CreateRule(ctx, rule))
	rules, err := s.ListRules(ctx, "t1", res.ID)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, schedule.Clock(12, 0), rules[0].End)
	assert.True(t, rules[0].ServiceID.IsNil())

	day := schedule.DateOf(base)
	exc := &schedule.Exception{
		Entity: types.NewEntity(base), ID: id.NewExceptionID(), TenantID: "t1", ResourceID: res.ID,
		Date: day, Kind: schedule.ExceptionBlackout, Reason: "holiday",
	}
	require.NoError(t, s.CreateException(ctx, exc))

	excs, err := s.ListExceptions(ctx, "t1", res.ID, day, day)
	require.NoError(t, err)
	require.Len(t, excs, 1)
	assert.Equal(t, day, excs[0].Date)

	excs, err = s.ListExceptions(ctx, "t1", res.ID, day.AddDays(1), day.AddDays(7))
	require.NoError(t, err)
	assert.Empty(t, excs)

	require.NoError(t, s.DeleteRule(ctx, "t1", rule.ID))
	require.NoError(t, s.DeleteException(ctx, "t1", exc.ID))
	assert.True(t, booking.IsNotFound(s.DeleteRule(ctx, "t1", rule.ID)))
}

func newReservation(svc *schedule.Service, res *schedule.Resource, client string, start time.Time) *reservation.Reservation {
	return &reservation.Reservation{
		Entity:         types.NewEntity(base),
		ID:             id.NewReservationID(),
		TenantID:       svc.TenantID,
		ServiceID:      svc.ID,
		ServiceVersion: svc.Version,
		ResourceID:     res.ID,
		ClientID:       client,
		Start:          start,
		End:            start.Add(svc.Duration),
		BufferAfter:    10 * time.Minute,
		State:          reservation.StatePending,
		PaymentState:   reservation.PaymentUnpaid,
		Seat:           reservation.SeatActive,
		CreditCost:     1,
		Policy: schedule.Policy{
			CancelCutoff: 12 * time.Hour,
			LatePenalty:  schedule.PenaltyFee,
			LateFee:      types.MXN(15000),
		},
	}
}

func testReservations(t *testing.T, s store.Store) {
	ctx := context.Background()
	svc, res := Fixture(t, s, "t1")

	r1 := newReservation(svc, res, "ana", base)
	r2 := newReservation(svc, res, "ben", base.Add(2*time.Hour))
	require.NoError(t, s.InsertReservation(ctx, r1))
	require.NoError(t, s.InsertReservation(ctx, r2))

	got, err := s.GetReservation(ctx, "t1", r1.ID)
	require.NoError(t, err)
	assert.Equal(t, r1.ClientID, got.ClientID)
	assert.True(t, got.Start.Equal(base))
	assert.Equal(t, r1.Policy, got.Policy)
	assert.Equal(t, 10*time.Minute, got.BufferAfter)

	moved, err := s.GetReservation(ctx, "t1", r2.ID)
	require.NoError(t, err)
	moved.ServiceVersion = svc.Version + 1
	moved.BufferBefore = 5 * time.Minute
	moved.Policy = schedule.Policy{LatePenalty: schedule.PenaltyNone}
	require.NoError(t, s.UpdateReservation(ctx, moved))
	moved, err = s.GetReservation(ctx, "t1", r2.ID)
	require.NoError(t, err)
	assert.Equal(t, svc.Version+1, moved.ServiceVersion)
	assert.Equal(t, 5*time.Minute, moved.BufferBefore)
	assert.Equal(t, schedule.Policy{LatePenalty: schedule.PenaltyNone}, moved.Policy)

	now := base.Add(-time.Hour)
	got.State = reservation.StateCancelled
	got.CancelledAt = &now
	got.Cancellation = &reservation.Cancellation{Reason: "sick", Late: true, Penalty: schedule.PenaltyForfeitCredit}
	require.NoError(t, s.UpdateReservation(ctx, got))

	again, err := s.GetReservation(ctx, "t1", r1.ID)
	require.NoError(t, err)
	assert.Equal(t, reservation.StateCancelled, again.State)
	require.NotNil(t, again.Cancellation)
	assert.True(t, again.Cancellation.Late)
	assert.Equal(t, "sick", again.Cancellation.Reason)

	live, err := s.ListLiveOnResource(ctx, "t1", res.ID, base.Add(-time.Hour), base.Add(4*time.Hour))
	require.NoError(t, err)
	require.Len(t, live, 1)
	assert.Equal(t, r2.ID, live[0].ID)

	byClient, err := s.ListReservations(ctx, "t1", reservation.ListOpts{ClientID: "ben"})
	require.NoError(t, err)
	require.Len(t, byClient, 1)

	all, err := s.ListReservations(ctx, "t1", reservation.ListOpts{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, r1.ID, all[0].ID, "ordered by start")

	_, err = s.GetReservation(ctx, "t2", r1.ID)
	assert.True(t, booking.IsNotFound(err))
}

func testWaitlist(t *testing.T, s store.Store) {
	ctx := context.Background()
	svc, res := Fixture(t, s, "t1")
	slot := reservation.SlotKey{ServiceID: svc.ID, ResourceID: res.ID, Start: base}

	a, b := id.NewReservationID(), id.NewReservationID()
	pa, err := s.EnqueueWaitlist(ctx, "t1", slot, a, base)
	require.NoError(t, err)
	pb, err := s.EnqueueWaitlist(ctx, "t1", slot, b, base)
	require.NoError(t, err)
	assert.Equal(t, 1, pa)
	assert.Equal(t, 2, pb)

	next, err := s.NextWaitlisted(ctx, "t1", slot)
	require.NoError(t, err)
	assert.Equal(t, a, next.ReservationID)

	require.NoError(t, s.SetWaitlistStatus(ctx, "t1", a, reservation.WaitlistPromoted))
	next, err = s.NextWaitlisted(ctx, "t1", slot)
	require.NoError(t, err)
	assert.Equal(t, b, next.ReservationID)

	require.NoError(t, s.SetWaitlistStatus(ctx, "t1", b, reservation.WaitlistWithdrawn))
	_, err = s.NextWaitlisted(ctx, "t1", slot)
	assert.True(t, booking.IsNotFound(err))

	// positions keep growing after rows leave the queue
	pc, err := s.EnqueueWaitlist(ctx, "t1", slot, id.NewReservationID(), base)
	require.NoError(t, err)
	assert.Equal(t, 3, pc)

	rows, err := s.ListWaitlist(ctx, "t1", slot)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, reservation.WaitlistPromoted, rows[0].Status)
}

func testCredits(t *testing.T, s store.Store) {
	ctx := context.Background()
	expires := base.Add(24 * time.Hour)

	grant := &credit.Entry{
		ID: id.NewCreditEntryID(), TenantID: "t1", ClientID: "ana", Type: credit.EntryGrant,
		Amount: 5, Balance: 5, ExpiresAt: &expires, Reason: "pack", CreatedAt: base,
	}
	consume := &credit.Entry{
		ID: id.NewCreditEntryID(), TenantID: "t1", ClientID: "ana", Type: credit.EntryConsume,
		Amount: -2, Balance: 3, ReservationID: id.NewReservationID(), CreatedAt: base.Add(time.Minute),
	}
	other := &credit.Entry{
		ID: id.NewCreditEntryID(), TenantID: "t2", ClientID: "ana", Type: credit.EntryGrant,
		Amount: 1, Balance: 1, CreatedAt: base,
	}
	require.NoError(t, s.RunInTx(ctx, func(ctx context.Context, tx store.Store) error {
		if err := tx.LockCreditAccount(ctx, "t1", "ana"); err != nil {
			return err
		}
		if err := tx.InsertCreditEntry(ctx, grant); err != nil {
			return err
		}
		return tx.InsertCreditEntry(ctx, consume)
	}))
	require.NoError(t, s.InsertCreditEntry(ctx, other))

	entries, err := s.ListCreditEntries(ctx, "t1", "ana")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, grant.ID, entries[0].ID)
	assert.Equal(t, consume.ReservationID, entries[1].ReservationID)
	assert.Equal(t, int64(3), credit.Balance(entries, base.Add(time.Hour)))

	expired, err := s.ListExpiredGrants(ctx, base.Add(time.Hour), credit.ExpiryCursor{}, 10)
	require.NoError(t, err)
	assert.Empty(t, expired)

	expired, err = s.ListExpiredGrants(ctx, expires, credit.ExpiryCursor{}, 10)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, grant.ID, expired[0].ID)

	later := expires.Add(30 * time.Minute)
	second := &credit.Entry{
		ID: id.NewCreditEntryID(), TenantID: "t2", ClientID: "ana", Type: credit.EntryGrant,
		Amount: 2, Balance: 3, ExpiresAt: &later, CreatedAt: base,
	}
	require.NoError(t, s.InsertCreditEntry(ctx, second))

	expired, err = s.ListExpiredGrants(ctx, expires.Add(time.Hour), credit.ExpiryCursor{}, 10)
	require.NoError(t, err)
	require.Len(t, expired, 2)
	assert.Equal(t, grant.ID, expired[0].ID, "earliest expiry first")

	expired, err = s.ListExpiredGrants(ctx, expires.Add(time.Hour), credit.ExpiryCursor{ExpiresAt: expires, GrantID: grant.ID}, 10)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, second.ID, expired[0].ID)

	require.NoError(t, s.InsertCreditEntry(ctx, &credit.Entry{
		ID: id.NewCreditEntryID(), TenantID: "t2", ClientID: "ana", Type: credit.EntryExpire,
		Amount: -2, Balance: 1, GrantID: second.ID, CreatedAt: later,
	}))
	require.NoError(t, s.InsertCreditEntry(ctx, &credit.Entry{
		ID: id.NewCreditEntryID(), TenantID: "t1", ClientID: "ana", Type: credit.EntryExpire,
		Amount: -3, Balance: 0, GrantID: grant.ID, CreatedAt: expires,
	}))
	expired, err = s.ListExpiredGrants(ctx, expires.Add(time.Hour), credit.ExpiryCursor{}, 10)
	require.NoError(t, err)
	assert.Empty(t, expired)
}

func testPayments(t *testing.T, s store.Store) {
	ctx := context.Background()
	now := base

	ev := &payment.Event{
		ID: id.NewPaymentEventID(), TenantID: "t1", Provider: "stripe", ExternalID: "evt_1",
		Type: payment.EventCheckoutCompleted, ReservationID: id.NewReservationID(),
		Amount: types.MXN(35000), Processed: true, ProcessedAt: &now, Outcome: "applied",
		Payload: []byte(`{"id":"evt_1"}`), ReceivedAt: now,
	}
	require.NoError(t, s.InsertPaymentEvent(ctx, ev))

	dup := *ev
	dup.ID = id.NewPaymentEventID()
	err := s.InsertPaymentEvent(ctx, &dup)
	require.Error(t, err)
	assert.True(t, errors.Is(err, booking.ErrAlreadyExists))

	// same external id under another tenant is a different event
	other := *ev
	other.ID = id.NewPaymentEventID()
	other.TenantID = "t2"
	require.NoError(t, s.InsertPaymentEvent(ctx, &other))

	got, err := s.GetPaymentEvent(ctx, "t1", "stripe", "evt_1")
	require.NoError(t, err)
	assert.Equal(t, ev.ReservationID, got.ReservationID)
	assert.Equal(t, int64(35000), got.Amount.Amount)
	assert.True(t, got.Processed)

	list, err := s.ListPaymentEvents(ctx, "t1", payment.ListOpts{Provider: "stripe"})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func testSettings(t *testing.T, s store.Store) {
	ctx := context.Background()

	_, err := s.GetSettings(ctx, "t1")
	assert.True(t, booking.IsNotFound(err))

	ts := &tenant.Settings{TenantID: "t1", CreditTrigger: tenant.TriggerOnCreate, Timezone: "America/Mexico_City", UpdatedAt: base}
	require.NoError(t, s.PutSettings(ctx, ts))
	ts.CreditTrigger = tenant.TriggerOnCheckIn
	require.NoError(t, s.PutSettings(ctx, ts))

	got, err := s.GetSettings(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, tenant.TriggerOnCheckIn, got.CreditTrigger)
	assert.Equal(t, "America/Mexico_City", got.Timezone)
}

func testRollback(t *testing.T, s store.Store) {
	ctx := context.Background()
	svc, res := Fixture(t, s, "t1")
	r := newReservation(svc, res, "ana", base)
	boom := errors.New("boom")

	err := s.RunInTx(ctx, func(ctx context.Context, tx store.Store) error {
		if err := tx.LockResource(ctx, "t1", res.ID); err != nil {
			return err
		}
		if err := tx.InsertReservation(ctx, r); err != nil {
			return err
		}
		if _, err := tx.GetReservation(ctx, "t1", r.ID); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = s.GetReservation(ctx, "t1", r.ID)
	assert.True(t, booking.IsNotFound(err), "rolled back insert must not be visible")

	require.NoError(t, s.Ping(ctx))
}
