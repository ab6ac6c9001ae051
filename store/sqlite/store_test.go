package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xraph/booking/store"
	"github.com/xraph/booking/store/sqlite"
	"github.com/xraph/booking/store/storetest"
)

func newStore(t *testing.T) store.Store {
	t.Helper()
	ctx := context.Background()
	s, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "booking.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(ctx))
	return s
}

func TestConformance(t *testing.T) {
	storetest.Run(t, newStore)
}

func TestMigrateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	require.NoError(t, s.Migrate(ctx))

	var n int
	require.NoError(t, s.(*sqlite.Store).DB().QueryRowContext(ctx,
		`SELECT COUNT(*) FROM booking_migrations`).Scan(&n))
	require.Equal(t, len(sqlite.Migrations), n)
}
