package notify_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/booking/id"
	"github.com/xraph/booking/notify"
	"github.com/xraph/booking/payment"
	"github.com/xraph/booking/reservation"
)

type sink struct {
	mu       sync.Mutex
	failures int
	calls    int
	events   []notify.Event
}

func (s *sink) Notify(_ context.Context, ev notify.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.failures > 0 {
		s.failures--
		return errors.New("smtp unavailable")
	}
	s.events = append(s.events, ev)
	return nil
}

func (s *sink) kinds() []notify.Kind {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]notify.Kind, len(s.events))
	for i, ev := range s.events {
		out[i] = ev.Kind
	}
	return out
}

func rsv() *reservation.Reservation {
	return &reservation.Reservation{ID: id.NewReservationID(), TenantID: "studio-1", ClientID: "ana"}
}

func closeNow(t *testing.T, d *notify.Dispatcher) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, d.Close(ctx))
}

func TestDispatcherDeliversInOrder(t *testing.T) {
	s := &sink{}
	d := notify.NewDispatcher(s)
	ctx := context.Background()

	require.NoError(t, d.OnReservationCreated(ctx, rsv()))
	require.NoError(t, d.OnReservationCancelled(ctx, rsv()))
	require.NoError(t, d.OnReservationPromoted(ctx, rsv()))
	require.NoError(t, d.OnPaymentApplied(ctx, &payment.Event{TenantID: "studio-1", Type: payment.EventRefund}))
	require.NoError(t, d.OnPaymentApplied(ctx, &payment.Event{TenantID: "studio-1", Type: payment.EventCheckoutCompleted}))
	closeNow(t, d)

	assert.Equal(t, []notify.Kind{
		notify.KindReservationCreated,
		notify.KindReservationCancelled,
		notify.KindReservationPromoted,
		notify.KindPaymentConfirmed,
	}, s.kinds())

	delivered, failed, dropped := d.Stats()
	assert.Equal(t, int64(4), delivered)
	assert.Zero(t, failed)
	assert.Zero(t, dropped)
}

func TestDispatcherRetriesFailedDelivery(t *testing.T) {
	s := &sink{failures: 2}
	d := notify.NewDispatcher(s, notify.WithRetry(3, time.Millisecond, 5*time.Millisecond))

	require.NoError(t, d.Enqueue(notify.Event{Kind: notify.KindReservationCreated, TenantID: "studio-1"}))
	closeNow(t, d)

	assert.Equal(t, 3, s.calls)
	assert.Len(t, s.kinds(), 1)
}

func TestDispatcherGivesUp(t *testing.T) {
	s := &sink{failures: 10}
	d := notify.NewDispatcher(s, notify.WithRetry(1, 0, 0))

	require.NoError(t, d.Enqueue(notify.Event{Kind: notify.KindReservationCreated}))
	closeNow(t, d)

	assert.Equal(t, 2, s.calls)
	_, failed, _ := d.Stats()
	assert.Equal(t, int64(1), failed)
}

func TestDispatcherRejectsAfterClose(t *testing.T) {
	d := notify.NewDispatcher(notify.LogNotifier{})
	closeNow(t, d)

	err := d.Enqueue(notify.Event{Kind: notify.KindReservationCreated})
	assert.ErrorIs(t, err, notify.ErrClosed)
}

func TestDispatcherQueueFull(t *testing.T) {
	release := make(chan struct{})
	blocking := notify.NotifierFunc(func(context.Context, notify.Event) error {
		<-release
		return nil
	})
	d := notify.NewDispatcher(blocking, notify.WithQueueSize(1))

	// The worker holds at most one event; the buffer one more.
	var full error
	for range 5 {
		if err := d.Enqueue(notify.Event{Kind: notify.KindReservationCreated}); err != nil {
			full = err
		}
	}
	assert.ErrorIs(t, full, notify.ErrQueueFull)

	close(release)
	closeNow(t, d)
	_, _, dropped := d.Stats()
	assert.Positive(t, dropped)
}
