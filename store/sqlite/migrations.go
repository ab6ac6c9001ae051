package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// Migration is one forward schema step.
type Migration struct {
	Name    string
	Version string
	Up      string
}

// Migrations lists the schema of the booking store (SQLite) in apply
// order. Timestamps are stored as unix nanoseconds in UTC.
var Migrations = []Migration{
	{
		Name:    "create_booking_catalog",
		Version: "20260101000001",
		Up: `
CREATE TABLE IF NOT EXISTS booking_services (
    id                TEXT PRIMARY KEY,
    tenant_id         TEXT NOT NULL,
    name              TEXT NOT NULL DEFAULT '',
    capacity          INTEGER NOT NULL,
    duration_ns       INTEGER NOT NULL,
    buffer_before_ns  INTEGER NOT NULL DEFAULT 0,
    buffer_after_ns   INTEGER NOT NULL DEFAULT 0,
    cancel_cutoff_ns  INTEGER NOT NULL DEFAULT 0,
    late_penalty      TEXT NOT NULL DEFAULT 'none',
    late_fee_amount   INTEGER NOT NULL DEFAULT 0,
    late_fee_currency TEXT NOT NULL DEFAULT '',
    credit_cost       INTEGER NOT NULL DEFAULT 0,
    price_amount      INTEGER NOT NULL DEFAULT 0,
    price_currency    TEXT NOT NULL DEFAULT '',
    version           INTEGER NOT NULL DEFAULT 1,
    metadata          TEXT NOT NULL DEFAULT '{}',
    created_at        INTEGER NOT NULL,
    updated_at        INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_booking_services_tenant ON booking_services (tenant_id);

CREATE TABLE IF NOT EXISTS booking_resources (
    id         TEXT PRIMARY KEY,
    tenant_id  TEXT NOT NULL,
    name       TEXT NOT NULL DEFAULT '',
    metadata   TEXT NOT NULL DEFAULT '{}',
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_booking_resources_tenant ON booking_resources (tenant_id);

CREATE TABLE IF NOT EXISTS booking_rules (
    id          TEXT PRIMARY KEY,
    tenant_id   TEXT NOT NULL,
    resource_id TEXT NOT NULL,
    service_id  TEXT,
    kind        TEXT NOT NULL,
    weekday     INTEGER NOT NULL DEFAULT 0,
    date        TEXT,
    start_min   INTEGER NOT NULL,
    end_min     INTEGER NOT NULL,
    created_at  INTEGER NOT NULL,
    updated_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_booking_rules_resource ON booking_rules (tenant_id, resource_id);

CREATE TABLE IF NOT EXISTS booking_exceptions (
    id          TEXT PRIMARY KEY,
    tenant_id   TEXT NOT NULL,
    resource_id TEXT NOT NULL,
    service_id  TEXT,
    date        TEXT NOT NULL,
    kind        TEXT NOT NULL,
    start_min   INTEGER NOT NULL DEFAULT 0,
    end_min     INTEGER NOT NULL DEFAULT 0,
    reason      TEXT NOT NULL DEFAULT '',
    created_at  INTEGER NOT NULL,
    updated_at  INTEGER NOT NULL
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
    service_version   INTEGER NOT NULL,
    resource_id       TEXT NOT NULL,
    client_id         TEXT NOT NULL,
    start_at          INTEGER NOT NULL,
    end_at            INTEGER NOT NULL,
    buffer_before_ns  INTEGER NOT NULL DEFAULT 0,
    buffer_after_ns   INTEGER NOT NULL DEFAULT 0,
    cancel_cutoff_ns  INTEGER NOT NULL DEFAULT 0,
    late_penalty      TEXT NOT NULL DEFAULT 'none',
    late_fee_amount   INTEGER NOT NULL DEFAULT 0,
    late_fee_currency TEXT NOT NULL DEFAULT '',
    state             TEXT NOT NULL,
    payment_state     TEXT NOT NULL,
    seat              TEXT NOT NULL,
    waitlist_position INTEGER NOT NULL DEFAULT 0,
    credit_cost       INTEGER NOT NULL DEFAULT 0,
    credits_consumed  INTEGER NOT NULL DEFAULT 0,
    confirmed_at      INTEGER,
    checked_in_at     INTEGER,
    checked_out_at    INTEGER,
    cancelled_at      INTEGER,
    cancellation      TEXT,
    note              TEXT NOT NULL DEFAULT '',
    created_at        INTEGER NOT NULL,
    updated_at        INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_booking_reservations_resource ON booking_reservations (tenant_id, resource_id, start_at);
CREATE INDEX IF NOT EXISTS idx_booking_reservations_client ON booking_reservations (tenant_id, client_id);

CREATE TABLE IF NOT EXISTS booking_waitlist (
    tenant_id      TEXT NOT NULL,
    slot_key       TEXT NOT NULL,
    position       INTEGER NOT NULL,
    reservation_id TEXT NOT NULL,
    service_id     TEXT NOT NULL,
    resource_id    TEXT NOT NULL,
    slot_start     INTEGER NOT NULL,
    status         TEXT NOT NULL,
    created_at     INTEGER NOT NULL,
    PRIMARY KEY (tenant_id, slot_key, position)
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_booking_waitlist_reservation ON booking_waitlist (tenant_id, reservation_id);
`,
	},
	{
		Name:    "create_booking_ledger",
		Version: "20260101000003",
		Up: `
CREATE TABLE IF NOT EXISTS booking_credit_entries (
    seq            INTEGER PRIMARY KEY AUTOINCREMENT,
    id             TEXT NOT NULL UNIQUE,
    tenant_id      TEXT NOT NULL,
    client_id      TEXT NOT NULL,
    type           TEXT NOT NULL,
    amount         INTEGER NOT NULL,
    balance        INTEGER NOT NULL,
    reservation_id TEXT,
    grant_id       TEXT,
    expires_at     INTEGER,
    reason         TEXT NOT NULL DEFAULT '',
    created_at     INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_booking_credit_entries_client ON booking_credit_entries (tenant_id, client_id, created_at, seq);
CREATE INDEX IF NOT EXISTS idx_booking_credit_entries_expiry ON booking_credit_entries (expires_at);
CREATE INDEX IF NOT EXISTS idx_booking_credit_entries_grant ON booking_credit_entries (grant_id);

CREATE TABLE IF NOT EXISTS booking_payment_events (
    seq               INTEGER PRIMARY KEY AUTOINCREMENT,
    id                TEXT NOT NULL UNIQUE,
    tenant_id         TEXT NOT NULL,
    provider          TEXT NOT NULL,
    external_id       TEXT NOT NULL,
    type              TEXT NOT NULL,
    reservation_id    TEXT,
    subscription_ref  TEXT NOT NULL DEFAULT '',
    client_id         TEXT NOT NULL DEFAULT '',
    credits           INTEGER NOT NULL DEFAULT 0,
    credits_expire_at INTEGER,
    amount            INTEGER NOT NULL DEFAULT 0,
    currency          TEXT NOT NULL DEFAULT '',
    processed         INTEGER NOT NULL DEFAULT 0,
    processed_at      INTEGER,
    outcome           TEXT NOT NULL DEFAULT '',
    payload           BLOB,
    received_at       INTEGER NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_booking_payment_events_external ON booking_payment_events (tenant_id, provider, external_id);

CREATE TABLE IF NOT EXISTS booking_tenant_settings (
    tenant_id      TEXT PRIMARY KEY,
    credit_trigger TEXT NOT NULL DEFAULT 'manual',
    timezone       TEXT NOT NULL DEFAULT 'UTC',
    updated_at     INTEGER NOT NULL
);
`,
	},
}

// Migrate creates the required tables and indexes. Applied versions are
// recorded in booking_migrations and skipped on later runs.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS booking_migrations (
    version    TEXT PRIMARY KEY,
    name       TEXT NOT NULL,
    applied_at INTEGER NOT NULL DEFAULT (unixepoch())
)`); err != nil {
		return fmt.Errorf("booking/sqlite: create migrations table: %w", err)
	}

	for _, m := range Migrations {
		if err := s.applyMigration(ctx, m); err != nil {
			return fmt.Errorf("booking/sqlite: migration %s failed: %w", m.Name, err)
		}
	}
	return nil
}

func (s *Store) applyMigration(ctx context.Context, m Migration) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	var applied int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM booking_migrations WHERE version = ?`, m.Version,
	).Scan(&applied); err != nil && err != sql.ErrNoRows {
		return err
	}
	if applied > 0 {
		return nil
	}
	if _, err := tx.ExecContext(ctx, m.Up); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO booking_migrations (version, name) VALUES (?, ?)`, m.Version, m.Name); err != nil {
		return err
	}
	return tx.Commit()
}
