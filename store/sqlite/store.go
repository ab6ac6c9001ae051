// Package sqlite implements store.Store on SQLite via modernc.org/sqlite.
//
// Transactions begin IMMEDIATE, taking the database write lock up front,
// so writers are serialized by SQLite itself and the lock methods are
// no-ops. A busy database surfaces as booking.ErrTransactionFailed.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"

	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/xraph/booking"
	"github.com/xraph/booking/id"
	"github.com/xraph/booking/schedule"
	"github.com/xraph/booking/store"
	"github.com/xraph/booking/tenant"
)

// compile-time interface check
var _ store.Store = (*Store)(nil)

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store implements store.Store using SQLite.
type Store struct {
	db *sql.DB
	q  querier
	tx *sql.Tx // non-nil inside RunInTx
}

// New creates a store on an open database. The handle should have been
// opened with Open or carry _txlock=immediate.
func New(db *sql.DB) *Store {
	return &Store{db: db, q: db}
}

// Open opens the database file at path and checks that it is usable.
func Open(ctx context.Context, path string) (*Store, error) {
	q := url.Values{}
	q.Add("_pragma", "busy_timeout(5000)")
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "foreign_keys(1)")
	q.Set("_txlock", "immediate")

	db, err := sql.Open("sqlite", "file:"+path+"?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("booking/sqlite: open: %w", err)
	}
	// A single connection keeps transactions and plain reads from
	// contending for the file lock.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("booking/sqlite: ping: %w", err)
	}
	return New(db), nil
}

// DB returns the underlying database handle.
func (s *Store) DB() *sql.DB { return s.db }

// RunInTx implements store.Store.
func (s *Store) RunInTx(ctx context.Context, fn store.TxFunc) error {
	if s.tx != nil {
		return fn(ctx, s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return mapErr(fmt.Errorf("booking/sqlite: begin: %w", err))
	}

	if err := fn(ctx, &Store{db: s.db, q: tx, tx: tx}); err != nil {
		_ = tx.Rollback() //nolint:errcheck // the fn error is what matters
		return mapErr(err)
	}

	if err := tx.Commit(); err != nil {
		return mapErr(fmt.Errorf("booking/sqlite: commit: %w", err))
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// mapErr translates driver failures into booking sentinels.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED, sqlite3.SQLITE_BUSY_SNAPSHOT:
			return fmt.Errorf("%w: %w", booking.ErrTransactionFailed, err)
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			if errors.Is(err, booking.ErrAlreadyExists) {
				return err
			}
			return fmt.Errorf("%w: %w", booking.ErrAlreadyExists, err)
		}
	}
	return err
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

func (s *Store) exec(ctx context.Context, op, query string, args ...any) (sql.Result, error) {
	res, err := s.q.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, mapErr(fmt.Errorf("booking/sqlite: %s: %w", op, err))
	}
	return res, nil
}

func (s *Store) execAffecting(ctx context.Context, op string, notFound error, query string, args ...any) error {
	res, err := s.exec(ctx, op, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("booking/sqlite: %s: %w", op, err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func collect[T any](ctx context.Context, s *Store, op string, scan func(row) (*T, error), query string, args ...any) ([]*T, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapErr(fmt.Errorf("booking/sqlite: %s: %w", op, err))
	}
	defer rows.Close()

	var out []*T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("booking/sqlite: %s: %w", op, err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr(fmt.Errorf("booking/sqlite: %s: %w", op, err))
	}
	return out, nil
}

func limitArg(limit int) int {
	if limit <= 0 {
		return -1
	}
	return limit
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

// ==================== Catalog ====================

func (s *Store) CreateService(ctx context.Context, svc *schedule.Service) error {
	_, err := s.exec(ctx, "insert service",
		`INSERT INTO booking_services (`+serviceColumns+`) VALUES (`+placeholders(18)+`)`,
		serviceArgs(svc)...)
	return err
}

func (s *Store) GetService(ctx context.Context, tenantID string, serviceID id.ServiceID) (*schedule.Service, error) {
	svc, err := scanService(s.q.QueryRowContext(ctx,
		`SELECT `+serviceColumns+` FROM booking_services WHERE tenant_id = ? AND id = ?`, tenantID, serviceID))
	if err != nil {
		if isNoRows(err) {
			return nil, &booking.NotFoundError{Resource: "service", ID: serviceID.String()}
		}
		return nil, mapErr(fmt.Errorf("booking/sqlite: get service: %w", err))
	}
	return svc, nil
}

func (s *Store) UpdateService(ctx context.Context, svc *schedule.Service) error {
	return s.execAffecting(ctx, "update service",
		&booking.NotFoundError{Resource: "service", ID: svc.ID.String()},
		`UPDATE booking_services SET name = ?, capacity = ?, duration_ns = ?, buffer_before_ns = ?,
		 buffer_after_ns = ?, cancel_cutoff_ns = ?, late_penalty = ?, late_fee_amount = ?,
		 late_fee_currency = ?, credit_cost = ?, price_amount = ?, price_currency = ?,
		 version = ?, metadata = ?, updated_at = ?
		 WHERE id = ? AND tenant_id = ?`,
		svc.Name, svc.Capacity, int64(svc.Duration), int64(svc.BufferBefore),
		int64(svc.BufferAfter), int64(svc.Policy.CancelCutoff), string(svc.Policy.LatePenalty), svc.Policy.LateFee.Amount,
		svc.Policy.LateFee.Currency, svc.CreditCost, svc.Price.Amount, svc.Price.Currency,
		svc.Version, metadataJSON(svc.Metadata), nanos(svc.UpdatedAt),
		svc.ID, svc.TenantID)
}

func (s *Store) ListServices(ctx context.Context, tenantID string, opts schedule.ListOpts) ([]*schedule.Service, error) {
	return collect(ctx, s, "list services", scanService,
		`SELECT `+serviceColumns+` FROM booking_services WHERE tenant_id = ?
		 ORDER BY id LIMIT ? OFFSET ?`, tenantID, limitArg(opts.Limit), opts.Offset)
}

func (s *Store) CreateResource(ctx context.Context, r *schedule.Resource) error {
	_, err := s.exec(ctx, "insert resource",
		`INSERT INTO booking_resources (`+resourceColumns+`) VALUES (`+placeholders(6)+`)`,
		r.ID, r.TenantID, r.Name, metadataJSON(r.Metadata), nanos(r.CreatedAt), nanos(r.UpdatedAt))
	return err
}

func (s *Store) GetResource(ctx context.Context, tenantID string, resourceID id.ResourceID) (*schedule.Resource, error) {
	r, err := scanResource(s.q.QueryRowContext(ctx,
		`SELECT `+resourceColumns+` FROM booking_resources WHERE tenant_id = ? AND id = ?`, tenantID, resourceID))
	if err != nil {
		if isNoRows(err) {
			return nil, &booking.NotFoundError{Resource: "resource", ID: resourceID.String()}
		}
		return nil, mapErr(fmt.Errorf("booking/sqlite: get resource: %w", err))
	}
	return r, nil
}

func (s *Store) ListResources(ctx context.Context, tenantID string, opts schedule.ListOpts) ([]*schedule.Resource, error) {
	return collect(ctx, s, "list resources", scanResource,
		`SELECT `+resourceColumns+` FROM booking_resources WHERE tenant_id = ?
		 ORDER BY id LIMIT ? OFFSET ?`, tenantID, limitArg(opts.Limit), opts.Offset)
}

func (s *Store) CreateRule(ctx context.Context, r *schedule.Rule) error {
	_, err := s.exec(ctx, "insert rule",
		`INSERT INTO booking_rules (`+ruleColumns+`) VALUES (`+placeholders(11)+`)`,
		r.ID, r.TenantID, r.ResourceID, r.ServiceID, string(r.Kind), int(r.Weekday), r.Date,
		r.Start, r.End, nanos(r.CreatedAt), nanos(r.UpdatedAt))
	return err
}

func (s *Store) DeleteRule(ctx context.Context, tenantID string, ruleID id.RuleID) error {
	return s.execAffecting(ctx, "delete rule",
		&booking.NotFoundError{Resource: "rule", ID: ruleID.String()},
		`DELETE FROM booking_rules WHERE tenant_id = ? AND id = ?`, tenantID, ruleID)
}

func (s *Store) ListRules(ctx context.Context, tenantID string, resourceID id.ResourceID) ([]*schedule.Rule, error) {
	return collect(ctx, s, "list rules", scanRule,
		`SELECT `+ruleColumns+` FROM booking_rules WHERE tenant_id = ? AND resource_id = ? ORDER BY id`,
		tenantID, resourceID)
}

func (s *Store) CreateException(ctx context.Context, e *schedule.Exception) error {
	_, err := s.exec(ctx, "insert exception",
		`INSERT INTO booking_exceptions (`+exceptionColumns+`) VALUES (`+placeholders(11)+`)`,
		e.ID, e.TenantID, e.ResourceID, e.ServiceID, e.Date, string(e.Kind),
		e.Start, e.End, e.Reason, nanos(e.CreatedAt), nanos(e.UpdatedAt))
	return err
}

func (s *Store) DeleteException(ctx context.Context, tenantID string, exceptionID id.ExceptionID) error {
	return s.execAffecting(ctx, "delete exception",
		&booking.NotFoundError{Resource: "exception", ID: exceptionID.String()},
		`DELETE FROM booking_exceptions WHERE tenant_id = ? AND id = ?`, tenantID, exceptionID)
}

func (s *Store) ListExceptions(ctx context.Context, tenantID string, resourceID id.ResourceID, from, to schedule.Date) ([]*schedule.Exception, error) {
	return collect(ctx, s, "list exceptions", scanException,
		`SELECT `+exceptionColumns+` FROM booking_exceptions
		 WHERE tenant_id = ? AND resource_id = ? AND date >= ? AND date <= ? ORDER BY date, id`,
		tenantID, resourceID, from.String(), to.String())
}

// ==================== Tenant settings ====================

func (s *Store) GetSettings(ctx context.Context, tenantID string) (*tenant.Settings, error) {
	ts, err := scanSettings(s.q.QueryRowContext(ctx,
		`SELECT tenant_id, credit_trigger, timezone, updated_at FROM booking_tenant_settings WHERE tenant_id = ?`, tenantID))
	if err != nil {
		if isNoRows(err) {
			return nil, &booking.NotFoundError{Resource: "tenant settings", ID: tenantID}
		}
		return nil, mapErr(fmt.Errorf("booking/sqlite: get settings: %w", err))
	}
	return ts, nil
}

func (s *Store) PutSettings(ctx context.Context, ts *tenant.Settings) error {
	_, err := s.exec(ctx, "put settings",
		`INSERT INTO booking_tenant_settings (tenant_id, credit_trigger, timezone, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (tenant_id) DO UPDATE
		 SET credit_trigger = excluded.credit_trigger, timezone = excluded.timezone, updated_at = excluded.updated_at`,
		ts.TenantID, string(ts.CreditTrigger), ts.Timezone, nanos(ts.UpdatedAt))
	return err
}
