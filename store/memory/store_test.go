package memory_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/booking"
	"github.com/xraph/booking/id"
	"github.com/xraph/booking/reservation"
	"github.com/xraph/booking/store"
	"github.com/xraph/booking/store/memory"
	"github.com/xraph/booking/store/storetest"
)

func TestConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store { return memory.New() })
}

func TestTransactionsSerialize(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	svc, res := storetest.Fixture(t, s, "t1")
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	// read-count-insert under the writer lock must never exceed capacity
	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.RunInTx(ctx, func(ctx context.Context, tx store.Store) error {
				live, err := tx.ListLiveOnResource(ctx, "t1", res.ID, start, start.Add(time.Hour))
				if err != nil {
					return err
				}
				if len(live) >= svc.Capacity {
					return booking.ErrConflict
				}
				return tx.InsertReservation(ctx, &reservation.Reservation{
					ID: id.NewReservationID(), TenantID: "t1", ServiceID: svc.ID, ResourceID: res.ID,
					Start: start, End: start.Add(time.Hour),
					State: reservation.StatePending, Seat: reservation.SeatActive,
				})
			})
		}()
	}
	wg.Wait()

	live, err := s.ListLiveOnResource(ctx, "t1", res.ID, start, start.Add(time.Hour))
	require.NoError(t, err)
	assert.Len(t, live, svc.Capacity)
}

func TestCopiesAreIsolated(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	svc, _ := storetest.Fixture(t, s, "t1")

	got, err := s.GetService(ctx, "t1", svc.ID)
	require.NoError(t, err)
	got.Metadata["level"] = "advanced"
	got.Capacity = 99

	again, err := s.GetService(ctx, "t1", svc.ID)
	require.NoError(t, err)
	assert.Equal(t, "beginner", again.Metadata["level"])
	assert.Equal(t, svc.Capacity, again.Capacity)
}

func TestClosed(t *testing.T) {
	s := memory.New()
	require.NoError(t, s.Close())
	assert.ErrorIs(t, s.Ping(context.Background()), booking.ErrStoreClosed)
	err := s.RunInTx(context.Background(), func(context.Context, store.Store) error { return nil })
	assert.ErrorIs(t, err, booking.ErrStoreClosed)
}
