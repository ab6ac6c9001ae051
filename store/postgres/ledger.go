package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xraph/booking"
	"github.com/xraph/booking/credit"
	"github.com/xraph/booking/payment"
)

// ==================== Credits ====================

// LockCreditAccount creates the client's account row on first use and
// locks it for the rest of the transaction.
func (s *Store) LockCreditAccount(ctx context.Context, tenantID, clientID string) error {
	if s.tx == nil {
		return nil
	}
	if _, err := s.exec(ctx, "create credit account",
		`INSERT INTO booking_credit_accounts (tenant_id, client_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		tenantID, clientID); err != nil {
		return err
	}
	var locked string
	if err := s.q.QueryRow(ctx,
		`SELECT client_id FROM booking_credit_accounts WHERE tenant_id = $1 AND client_id = $2 FOR UPDATE`,
		tenantID, clientID).Scan(&locked); err != nil {
		return mapErr(fmt.Errorf("booking/postgres: lock credit account: %w", err))
	}
	return nil
}

func (s *Store) InsertCreditEntry(ctx context.Context, e *credit.Entry) error {
	_, err := s.exec(ctx, "insert credit entry",
		`INSERT INTO booking_credit_entries (`+creditColumns+`) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		e.ID, e.TenantID, e.ClientID, string(e.Type), e.Amount, e.Balance,
		e.ReservationID, e.GrantID, e.ExpiresAt, e.Reason, e.CreatedAt)
	return err
}

func (s *Store) ListCreditEntries(ctx context.Context, tenantID, clientID string) ([]*credit.Entry, error) {
	return collect(ctx, s, "list credit entries", scanCredit,
		`SELECT `+creditColumns+` FROM booking_credit_entries
		 WHERE tenant_id = $1 AND client_id = $2 ORDER BY created_at, seq`, tenantID, clientID)
}

func (s *Store) ListExpiredGrants(ctx context.Context, asOf time.Time, after credit.ExpiryCursor, limit int) ([]*credit.Entry, error) {
	cols := "g." + strings.ReplaceAll(creditColumns, ", ", ", g.")
	args := []any{asOf, limitArg(limit)}
	cursor := ""
	if !after.GrantID.IsNil() {
		cursor = `AND (g.expires_at, g.id) > ($3, $4)`
		args = append(args, after.ExpiresAt, after.GrantID.String())
	}
	return collect(ctx, s, "list expired grants", scanCredit,
		`SELECT `+cols+` FROM booking_credit_entries g
		 WHERE g.expires_at IS NOT NULL AND g.expires_at <= $1 AND g.amount > 0 `+cursor+`
		   AND NOT EXISTS (
		     SELECT 1 FROM booking_credit_entries x
		     WHERE x.type = 'expire' AND x.tenant_id = g.tenant_id AND x.grant_id = g.id)
		 ORDER BY g.expires_at, g.id LIMIT $2`, args...)
}

// ==================== Payment events ====================

func (s *Store) InsertPaymentEvent(ctx context.Context, ev *payment.Event) error {
	_, err := s.exec(ctx, "insert payment event",
		`INSERT INTO booking_payment_events (`+paymentColumns+`)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)`,
		paymentArgs(ev)...)
	return err
}

func (s *Store) GetPaymentEvent(ctx context.Context, tenantID, provider, externalID string) (*payment.Event, error) {
	ev, err := scanPayment(s.q.QueryRow(ctx,
		`SELECT `+paymentColumns+` FROM booking_payment_events
		 WHERE tenant_id = $1 AND provider = $2 AND external_id = $3`, tenantID, provider, externalID))
	if err != nil {
		if isNoRows(err) {
			return nil, &booking.NotFoundError{Resource: "payment event", ID: provider + "/" + externalID}
		}
		return nil, mapErr(fmt.Errorf("booking/postgres: get payment event: %w", err))
	}
	return ev, nil
}

func (s *Store) ListPaymentEvents(ctx context.Context, tenantID string, opts payment.ListOpts) ([]*payment.Event, error) {
	where := []string{"tenant_id = $1"}
	args := []any{tenantID}
	if opts.Provider != "" {
		args = append(args, opts.Provider)
		where = append(where, fmt.Sprintf("provider = $%d", len(args)))
	}
	if opts.Type != "" {
		args = append(args, string(opts.Type))
		where = append(where, fmt.Sprintf("type = $%d", len(args)))
	}
	args = append(args, limitArg(opts.Limit), opts.Offset)

	query := fmt.Sprintf(`SELECT %s FROM booking_payment_events WHERE %s ORDER BY seq DESC LIMIT $%d OFFSET $%d`,
		paymentColumns, strings.Join(where, " AND "), len(args)-1, len(args))
	return collect(ctx, s, "list payment events", scanPayment, query, args...)
}
