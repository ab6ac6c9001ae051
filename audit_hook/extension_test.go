package audithook_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audithook "github.com/xraph/booking/audit_hook"
	"github.com/xraph/booking/id"
	"github.com/xraph/booking/payment"
	"github.com/xraph/booking/reservation"
	"github.com/xraph/booking/schedule"
)

type memRecorder struct {
	mu     sync.Mutex
	events []*audithook.AuditEvent
}

func (m *memRecorder) Record(_ context.Context, ev *audithook.AuditEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
	return nil
}

func cancelled() *reservation.Reservation {
	return &reservation.Reservation{
		ID:       id.NewReservationID(),
		TenantID: "studio-1",
		ClientID: "ana",
		State:    reservation.StateCancelled,
		Cancellation: &reservation.Cancellation{
			Late:    true,
			Penalty: schedule.PenaltyForfeitCredit,
		},
	}
}

func TestReservationEvents(t *testing.T) {
	rec := &memRecorder{}
	ext := audithook.New(rec)

	r := cancelled()
	require.NoError(t, ext.OnReservationCancelled(context.Background(), r))

	require.Len(t, rec.events, 1)
	ev := rec.events[0]
	assert.Equal(t, audithook.ActionReservationCancelled, ev.Action)
	assert.Equal(t, audithook.ResourceReservation, ev.Resource)
	assert.Equal(t, "studio-1", ev.TenantID)
	assert.Equal(t, r.ID.String(), ev.ResourceID)
	assert.Equal(t, true, ev.Metadata["late"])
	assert.Equal(t, schedule.PenaltyForfeitCredit, ev.Metadata["penalty"])
}

func TestDisabledActions(t *testing.T) {
	rec := &memRecorder{}
	ext := audithook.New(rec, audithook.WithDisabledActions(audithook.ActionPaymentIgnored))

	ev := &payment.Event{TenantID: "studio-1", Provider: "stripe", ExternalID: "evt_1"}
	require.NoError(t, ext.OnPaymentIgnored(context.Background(), ev, "duplicate"))
	require.NoError(t, ext.OnPaymentApplied(context.Background(), ev))

	require.Len(t, rec.events, 1)
	assert.Equal(t, audithook.ActionPaymentApplied, rec.events[0].Action)
}

func TestRecorderFailureIsNotFatal(t *testing.T) {
	ext := audithook.New(audithook.RecorderFunc(func(context.Context, *audithook.AuditEvent) error {
		return errors.New("backend down")
	}))

	err := ext.OnWebhookRejected(context.Background(), "studio-1", "stripe", errors.New("bad signature"))
	assert.NoError(t, err)
}
