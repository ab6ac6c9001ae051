package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Migration is one forward schema step.
type Migration struct {
	Name    string
	Version string
	Up      string
}

// Migrations lists the schema of the booking store in apply order.
var Migrations = []Migration{
	{
		Name:    "create_booking_catalog",
		Version: "20260101000001",
		Up: `
CREATE TABLE IF NOT EXISTS booking_services (
    id                TEXT PRIMARY KEY,
    tenant_id         TEXT NOT NULL,
    name              TEXT NOT NULL DEFAULT '',
    capacity          INT NOT NULL,
    duration_ns       BIGINT NOT NULL,
    buffer_before_ns  BIGINT NOT NULL DEFAULT 0,
    buffer_after_ns   BIGINT NOT NULL DEFAULT 0,
    cancel_cutoff_ns  BIGINT NOT NULL DEFAULT 0,
    late_penalty      TEXT NOT NULL DEFAULT 'none',
    late_fee_amount   BIGINT NOT NULL DEFAULT 0,
    late_fee_currency TEXT NOT NULL DEFAULT '',
    credit_cost       BIGINT NOT NULL DEFAULT 0,
    price_amount      BIGINT NOT NULL DEFAULT 0,
    price_currency    TEXT NOT NULL DEFAULT '',
    version           INT NOT NULL DEFAULT 1,
    metadata          JSONB NOT NULL DEFAULT '{}',
    created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_booking_services_tenant ON booking_services (tenant_id);

CREATE TABLE IF NOT EXISTS booking_resources (
    id         TEXT PRIMARY KEY,
    tenant_id  TEXT NOT NULL,
    name       TEXT NOT NULL DEFAULT '',
    metadata   JSONB NOT NULL DEFAULT '{}',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_booking_resources_tenant ON booking_resources (tenant_id);

CREATE TABLE IF NOT EXISTS booking_rules (
    id          TEXT PRIMARY KEY,
    tenant_id   TEXT NOT NULL,
    resource_id TEXT NOT NULL,
    service_id  TEXT,
    kind        TEXT NOT NULL,
    weekday     INT NOT NULL DEFAULT 0,
    date        TEXT,
    start_min   INT NOT NULL,
    end_min     INT NOT NULL,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_booking_rules_resource ON booking_rules (tenant_id, resource_id);

CREATE TABLE IF NOT EXISTS booking_exceptions (
    id          TEXT PRIMARY KEY,
    tenant_id   TEXT NOT NULL,
    resource_id TEXT NOT NULL,
    service_id  TEXT,
    date        TEXT NOT NULL,
    kind        TEXT NOT NULL,
    start_min   INT NOT NULL DEFAULT 0,
    end_min     INT NOT NULL DEFAULT 0,
    reason      TEXT NOT NULL DEFAULT '',
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_booking_exceptions_date ON booking_exceptions (tenant_id, resource_id, date);
`,
	},
	{
		Name:    "create_booking_reservations",
		Version: "20260101000002",
		Up: `
CREATE TABLE IF NOT EXISTS booking_reservations (
    id                TEXT PRIMARY KEY,
    tenant_id         TEXT NOT NULL,
    service_id        TEXT NOT NULL,
    service_version   INT NOT NULL,
    resource_id       TEXT NOT NULL,
    client_id         TEXT NOT NULL,
    start_at          TIMESTAMPTZ NOT NULL,
    end_at            TIMESTAMPTZ NOT NULL,
    buffer_before_ns  BIGINT NOT NULL DEFAULT 0,
    buffer_after_ns   BIGINT NOT NULL DEFAULT 0,
    cancel_cutoff_ns  BIGINT NOT NULL DEFAULT 0,
    late_penalty      TEXT NOT NULL DEFAULT 'none',
    late_fee_amount   BIGINT NOT NULL DEFAULT 0,
    late_fee_currency TEXT NOT NULL DEFAULT '',
    state             TEXT NOT NULL,
    payment_state     TEXT NOT NULL,
    seat              TEXT NOT NULL,
    waitlist_position INT NOT NULL DEFAULT 0,
    credit_cost       BIGINT NOT NULL DEFAULT 0,
    credits_consumed  BIGINT NOT NULL DEFAULT 0,
    confirmed_at      TIMESTAMPTZ,
    checked_in_at     TIMESTAMPTZ,
    checked_out_at    TIMESTAMPTZ,
    cancelled_at      TIMESTAMPTZ,
    cancellation      JSONB,
    note              TEXT NOT NULL DEFAULT '',
    created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_booking_reservations_resource ON booking_reservations (tenant_id, resource_id, start_at);
CREATE INDEX IF NOT EXISTS idx_booking_reservations_client ON booking_reservations (tenant_id, client_id);

CREATE TABLE IF NOT EXISTS booking_waitlist (
    tenant_id      TEXT NOT NULL,
    slot_key       TEXT NOT NULL,
    position       INT NOT NULL,
    reservation_id TEXT NOT NULL,
    service_id     TEXT NOT NULL,
    resource_id    TEXT NOT NULL,
    slot_start     TIMESTAMPTZ NOT NULL,
    status         TEXT NOT NULL,
    created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (tenant_id, slot_key, position)
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_booking_waitlist_reservation ON booking_waitlist (tenant_id, reservation_id);
`,
	},
	{
		Name:    "create_booking_ledger",
		Version: "20260101000003",
		Up: `
CREATE TABLE IF NOT EXISTS booking_credit_accounts (
    tenant_id TEXT NOT NULL,
    client_id TEXT NOT NULL,
    PRIMARY KEY (tenant_id, client_id)
);

CREATE TABLE IF NOT EXISTS booking_credit_entries (
    seq            BIGSERIAL,
    id             TEXT PRIMARY KEY,
    tenant_id      TEXT NOT NULL,
    client_id      TEXT NOT NULL,
    type           TEXT NOT NULL,
    amount         BIGINT NOT NULL,
    balance        BIGINT NOT NULL,
    reservation_id TEXT,
    grant_id       TEXT,
    expires_at     TIMESTAMPTZ,
    reason         TEXT NOT NULL DEFAULT '',
    created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_booking_credit_entries_client ON booking_credit_entries (tenant_id, client_id, created_at, seq);
CREATE INDEX IF NOT EXISTS idx_booking_credit_entries_expiry ON booking_credit_entries (expires_at) WHERE expires_at IS NOT NULL;
CREATE INDEX IF NOT EXISTS idx_booking_credit_entries_grant ON booking_credit_entries (grant_id) WHERE grant_id IS NOT NULL;

CREATE TABLE IF NOT EXISTS booking_payment_events (
    seq               BIGSERIAL,
    id                TEXT PRIMARY KEY,
    tenant_id         TEXT NOT NULL,
    provider          TEXT NOT NULL,
    external_id       TEXT NOT NULL,
    type              TEXT NOT NULL,
    reservation_id    TEXT,
    subscription_ref  TEXT NOT NULL DEFAULT '',
    client_id         TEXT NOT NULL DEFAULT '',
    credits           BIGINT NOT NULL DEFAULT 0,
    credits_expire_at TIMESTAMPTZ,
    amount            BIGINT NOT NULL DEFAULT 0,
    currency          TEXT NOT NULL DEFAULT '',
    processed         BOOLEAN NOT NULL DEFAULT FALSE,
    processed_at      TIMESTAMPTZ,
    outcome           TEXT NOT NULL DEFAULT '',
    payload           BYTEA,
    received_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_booking_payment_events_external ON booking_payment_events (tenant_id, provider, external_id);

CREATE TABLE IF NOT EXISTS booking_tenant_settings (
    tenant_id      TEXT PRIMARY KEY,
    credit_trigger TEXT NOT NULL DEFAULT 'manual',
    timezone       TEXT NOT NULL DEFAULT 'UTC',
    updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`,
	},
}

// Migrate creates the required tables and indexes. Applied versions are
// recorded in booking_migrations and skipped on later runs.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS booking_migrations (
    version    TEXT PRIMARY KEY,
    name       TEXT NOT NULL,
    applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`); err != nil {
		return fmt.Errorf("booking/postgres: create migrations table: %w", err)
	}

	for _, m := range Migrations {
		err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
			var applied bool
			if err := tx.QueryRow(ctx,
				`SELECT EXISTS (SELECT 1 FROM booking_migrations WHERE version = $1)`, m.Version,
			).Scan(&applied); err != nil {
				return err
			}
			if applied {
				return nil
			}
			if _, err := tx.Exec(ctx, m.Up); err != nil {
				return err
			}
			_, err := tx.Exec(ctx, `INSERT INTO booking_migrations (version, name) VALUES ($1, $2)`, m.Version, m.Name)
			return err
		})
		if err != nil {
			return fmt.Errorf("booking/postgres: migration %s failed: %w", m.Name, err)
		}
	}
	return nil
}
