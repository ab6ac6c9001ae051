// Package postgres implements store.Store on PostgreSQL with pgx.
//
// Transactions run at SERIALIZABLE isolation. Writers that must not
// interleave additionally take row locks: the resource row for reservation
// changes and a per-client account row for ledger writes. Serialization
// and deadlock failures surface as booking.ErrTransactionFailed.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xraph/booking"
	"github.com/xraph/booking/id"
	"github.com/xraph/booking/schedule"
	"github.com/xraph/booking/store"
	"github.com/xraph/booking/tenant"
)

// compile-time interface check
var _ store.Store = (*Store)(nil)

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store implements store.Store using PostgreSQL via pgx.
type Store struct {
	pool *pgxpool.Pool
	q    querier
	tx   pgx.Tx // non-nil inside RunInTx
}

// New creates a store on an existing pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, q: pool}
}

// Open connects to dsn and verifies the connection.
func Open(ctx context.Context, dsn string) (*Store, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("booking/postgres: parse dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("booking/postgres: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("booking/postgres: ping: %w", err)
	}
	return New(pool), nil
}

// Pool returns the underlying connection pool.
func (s *Store) Pool() *pgxpool.Pool { return s.pool }

// RunInTx implements store.Store.
func (s *Store) RunInTx(ctx context.Context, fn store.TxFunc) error {
	if s.tx != nil {
		return fn(ctx, s)
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return mapErr(fmt.Errorf("booking/postgres: begin: %w", err))
	}

	if err := fn(ctx, &Store{pool: s.pool, q: tx, tx: tx}); err != nil {
		_ = tx.Rollback(ctx) //nolint:errcheck // the fn error is what matters
		return mapErr(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return mapErr(fmt.Errorf("booking/postgres: commit: %w", err))
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// mapErr translates driver failures into booking sentinels.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01":
			return fmt.Errorf("%w: %w", booking.ErrTransactionFailed, err)
		case "23505":
			if errors.Is(err, booking.ErrAlreadyExists) {
				return err
			}
			return fmt.Errorf("%w: %w", booking.ErrAlreadyExists, err)
		}
	}
	return err
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

func (s *Store) exec(ctx context.Context, op, sql string, args ...any) (pgconn.CommandTag, error) {
	tag, err := s.q.Exec(ctx, sql, args...)
	if err != nil {
		return tag, mapErr(fmt.Errorf("booking/postgres: %s: %w", op, err))
	}
	return tag, nil
}

func collect[T any](ctx context.Context, s *Store, op string, scan func(pgx.Row) (*T, error), sql string, args ...any) ([]*T, error) {
	rows, err := s.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, mapErr(fmt.Errorf("booking/postgres: %s: %w", op, err))
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*T, error) {
		return scan(row)
	})
	if err != nil {
		return nil, mapErr(fmt.Errorf("booking/postgres: %s: %w", op, err))
	}
	return out, nil
}

func limitArg(limit int) any {
	if limit <= 0 {
		return nil
	}
	return limit
}

// ==================== Catalog ====================

func (s *Store) CreateService(ctx context.Context, svc *schedule.Service) error {
	_, err := s.exec(ctx, "insert service",
		`INSERT INTO booking_services (`+serviceColumns+`)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)`,
		serviceArgs(svc)...)
	return err
}

func (s *Store) GetService(ctx context.Context, tenantID string, serviceID id.ServiceID) (*schedule.Service, error) {
	svc, err := scanService(s.q.QueryRow(ctx,
		`SELECT `+serviceColumns+` FROM booking_services WHERE tenant_id = $1 AND id = $2`, tenantID, serviceID))
	if err != nil {
		if isNoRows(err) {
			return nil, &booking.NotFoundError{Resource: "service", ID: serviceID.String()}
		}
		return nil, mapErr(fmt.Errorf("booking/postgres: get service: %w", err))
	}
	return svc, nil
}

func (s *Store) UpdateService(ctx context.Context, svc *schedule.Service) error {
	tag, err := s.exec(ctx, "update service",
		`UPDATE booking_services SET name = $3, capacity = $4, duration_ns = $5, buffer_before_ns = $6,
		 buffer_after_ns = $7, cancel_cutoff_ns = $8, late_penalty = $9, late_fee_amount = $10,
		 late_fee_currency = $11, credit_cost = $12, price_amount = $13, price_currency = $14,
		 version = $15, metadata = $16, updated_at = $17
		 WHERE id = $1 AND tenant_id = $2`,
		svc.ID, svc.TenantID, svc.Name, svc.Capacity, int64(svc.Duration), int64(svc.BufferBefore),
		int64(svc.BufferAfter), int64(svc.Policy.CancelCutoff), string(svc.Policy.LatePenalty), svc.Policy.LateFee.Amount,
		svc.Policy.LateFee.Currency, svc.CreditCost, svc.Price.Amount, svc.Price.Currency,
		svc.Version, metadataJSON(svc.Metadata), svc.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return &booking.NotFoundError{Resource: "service", ID: svc.ID.String()}
	}
	return nil
}

func (s *Store) ListServices(ctx context.Context, tenantID string, opts schedule.ListOpts) ([]*schedule.Service, error) {
	return collect(ctx, s, "list services", scanService,
		`SELECT `+serviceColumns+` FROM booking_services WHERE tenant_id = $1
		 ORDER BY id LIMIT $2 OFFSET $3`, tenantID, limitArg(opts.Limit), opts.Offset)
}

func (s *Store) CreateResource(ctx context.Context, r *schedule.Resource) error {
	_, err := s.exec(ctx, "insert resource",
		`INSERT INTO booking_resources (`+resourceColumns+`) VALUES ($1,$2,$3,$4,$5,$6)`,
		r.ID, r.TenantID, r.Name, metadataJSON(r.Metadata), r.CreatedAt, r.UpdatedAt)
	return err
}

func (s *Store) GetResource(ctx context.Context, tenantID string, resourceID id.ResourceID) (*schedule.Resource, error) {
	r, err := scanResource(s.q.QueryRow(ctx,
		`SELECT `+resourceColumns+` FROM booking_resources WHERE tenant_id = $1 AND id = $2`, tenantID, resourceID))
	if err != nil {
		if isNoRows(err) {
			return nil, &booking.NotFoundError{Resource: "resource", ID: resourceID.String()}
		}
		return nil, mapErr(fmt.Errorf("booking/postgres: get resource: %w", err))
	}
	return r, nil
}

func (s *Store) ListResources(ctx context.Context, tenantID string, opts schedule.ListOpts) ([]*schedule.Resource, error) {
	return collect(ctx, s, "list resources", scanResource,
		`SELECT `+resourceColumns+` FROM booking_resources WHERE tenant_id = $1
		 ORDER BY id LIMIT $2 OFFSET $3`, tenantID, limitArg(opts.Limit), opts.Offset)
}

func (s *Store) CreateRule(ctx context.Context, r *schedule.Rule) error {
	_, err := s.exec(ctx, "insert rule",
		`INSERT INTO booking_rules (`+ruleColumns+`) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		r.ID, r.TenantID, r.ResourceID, r.ServiceID, string(r.Kind), int(r.Weekday), r.Date,
		r.Start, r.End, r.CreatedAt, r.UpdatedAt)
	return err
}

func (s *Store) DeleteRule(ctx context.Context, tenantID string, ruleID id.RuleID) error {
	tag, err := s.exec(ctx, "delete rule",
		`DELETE FROM booking_rules WHERE tenant_id = $1 AND id = $2`, tenantID, ruleID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return &booking.NotFoundError{Resource: "rule", ID: ruleID.String()}
	}
	return nil
}

func (s *Store) ListRules(ctx context.Context, tenantID string, resourceID id.ResourceID) ([]*schedule.Rule, error) {
	return collect(ctx, s, "list rules", scanRule,
		`SELECT `+ruleColumns+` FROM booking_rules WHERE tenant_id = $1 AND resource_id = $2 ORDER BY id`,
		tenantID, resourceID)
}

func (s *Store) CreateException(ctx context.Context, e *schedule.Exception) error {
	_, err := s.exec(ctx, "insert exception",
		`INSERT INTO booking_exceptions (`+exceptionColumns+`) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		e.ID, e.TenantID, e.ResourceID, e.ServiceID, e.Date, string(e.Kind),
		e.Start, e.End, e.Reason, e.CreatedAt, e.UpdatedAt)
	return err
}

func (s *Store) DeleteException(ctx context.Context, tenantID string, exceptionID id.ExceptionID) error {
	tag, err := s.exec(ctx, "delete exception",
		`DELETE FROM booking_exceptions WHERE tenant_id = $1 AND id = $2`, tenantID, exceptionID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return &booking.NotFoundError{Resource: "exception", ID: exceptionID.String()}
	}
	return nil
}

func (s *Store) ListExceptions(ctx context.Context, tenantID string, resourceID id.ResourceID, from, to schedule.Date) ([]*schedule.Exception, error) {
	// ISO dates compare correctly as text.
	return collect(ctx, s, "list exceptions", scanException,
		`SELECT `+exceptionColumns+` FROM booking_exceptions
		 WHERE tenant_id = $1 AND resource_id = $2 AND date >= $3 AND date <= $4 ORDER BY date, id`,
		tenantID, resourceID, from.String(), to.String())
}

// ==================== Tenant settings ====================

func (s *Store) GetSettings(ctx context.Context, tenantID string) (*tenant.Settings, error) {
	ts, err := scanSettings(s.q.QueryRow(ctx,
		`SELECT tenant_id, credit_trigger, timezone, updated_at FROM booking_tenant_settings WHERE tenant_id = $1`, tenantID))
	if err != nil {
		if isNoRows(err) {
			return nil, &booking.NotFoundError{Resource: "tenant settings", ID: tenantID}
		}
		return nil, mapErr(fmt.Errorf("booking/postgres: get settings: %w", err))
	}
	return ts, nil
}

func (s *Store) PutSettings(ctx context.Context, ts *tenant.Settings) error {
	_, err := s.exec(ctx, "put settings",
		`INSERT INTO booking_tenant_settings (tenant_id, credit_trigger, timezone, updated_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (tenant_id) DO UPDATE
		 SET credit_trigger = EXCLUDED.credit_trigger, timezone = EXCLUDED.timezone, updated_at = EXCLUDED.updated_at`,
		ts.TenantID, string(ts.CreditTrigger), ts.Timezone, ts.UpdatedAt)
	return err
}
