package postgres_test

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xraph/booking/store"
	"github.com/xraph/booking/store/postgres"
	"github.com/xraph/booking/store/storetest"
)

func TestConformance(t *testing.T) {
	dsn := os.Getenv("BOOKING_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("BOOKING_TEST_POSTGRES_DSN not set")
	}

	storetest.Run(t, func(t *testing.T) store.Store {
		ctx := context.Background()
		s, err := postgres.Open(ctx, dsn)
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })

		require.NoError(t, s.Migrate(ctx))
		_, err = s.Pool().Exec(ctx, `TRUNCATE booking_services, booking_resources, booking_rules,
			booking_exceptions, booking_reservations, booking_waitlist, booking_credit_accounts,
			booking_credit_entries, booking_payment_events, booking_tenant_settings`)
		require.NoError(t, err)
		return s
	})
}
