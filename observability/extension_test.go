package observability_test

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/booking/credit"
	"github.com/xraph/booking/observability"
	"github.com/xraph/booking/reservation"
)

func TestMetricsExtensionCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := observability.NewMetricsExtension(observability.NewPrometheusFactory(reg))
	ctx := context.Background()

	require.NoError(t, m.OnReservationCreated(ctx, &reservation.Reservation{Seat: reservation.SeatActive}))
	require.NoError(t, m.OnReservationCreated(ctx, &reservation.Reservation{Seat: reservation.SeatWaitlisted}))
	require.NoError(t, m.OnReservationCancelled(ctx, &reservation.Reservation{
		Cancellation: &reservation.Cancellation{Late: true},
	}))
	require.NoError(t, m.OnCreditEntry(ctx, &credit.Entry{Type: credit.EntryConsume, Amount: -2}))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ReservationCreated.(prometheus.Counter)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ReservationWaitlisted.(prometheus.Counter)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ReservationLateCancel.(prometheus.Counter)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CreditsConsumed.(prometheus.Counter)))
}

func TestPrometheusFactoryReusesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()

	first := observability.NewPrometheusFactory(reg).Counter("booking.reservation.created")
	second := observability.NewPrometheusFactory(reg).Counter("booking.reservation.created")
	first.Inc()
	second.Inc()

	n, err := testutil.GatherAndCount(reg, "booking_reservation_created_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 2.0, testutil.ToFloat64(first.(prometheus.Counter)))
}
