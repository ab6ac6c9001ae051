package sqlite

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

// LockCreditAccount is a no-op for the same reason as LockResource.
func (s *Store) LockCreditAccount(context.Context, string, string) error { return nil }

func (s *Store) InsertCreditEntry(ctx context.Context, e *credit.Entry) error {
	_, err := s.exec(ctx, "insert credit entry",
		`INSERT INTO booking_credit_entries (`+creditColumns+`) VALUES (`+placeholders(11)+`)`,
		e.ID, e.TenantID, e.ClientID, string(e.Type), e.Amount, e.Balance,
		e.ReservationID, e.GrantID, nullNanos(e.ExpiresAt), e.Reason, nanos(e.CreatedAt))
	return err
}

func (s *Store) ListCreditEntries(ctx context.Context, tenantID, clientID string) ([]*credit.Entry, error) {
	return collect(ctx, s, "list credit entries", scanCredit,
		`SELECT `+creditColumns+` FROM booking_credit_entries
		 WHERE tenant_id = ? AND client_id = ? ORDER BY created_at, seq`, tenantID, clientID)
}

func (s *Store) ListExpiredGrants(ctx context.Context, asOf time.Time, after credit.ExpiryCursor, limit int) ([]*credit.Entry, error) {
	cols := "g." + strings.ReplaceAll(creditColumns, ", ", ", g.")
	args := []any{nanos(asOf)}
	cursor := ""
	if !after.GrantID.IsNil() {
		cursor = `AND (g.expires_at > ? OR (g.expires_at = ? AND g.id > ?))`
		args = append(args, nanos(after.ExpiresAt), nanos(after.ExpiresAt), after.GrantID.String())
	}
	args = append(args, limitArg(limit))
	return collect(ctx, s, "list expired grants", scanCredit,
		`SELECT `+cols+` FROM booking_credit_entries g
		 WHERE g.expires_at IS NOT NULL AND g.expires_at <= ? AND g.amount > 0 `+cursor+`
		   AND NOT EXISTS (
		     SELECT 1 FROM booking_credit_entries x
		     WHERE x.type = 'expire' AND x.tenant_id = g.tenant_id AND x.grant_id = g.id)
		 ORDER BY g.expires_at, g.id LIMIT ?`, args...)
}

// ==================== Payment events ====================

func (s *Store) InsertPaymentEvent(ctx context.Context, ev *payment.Event) error {
	_, err := s.exec(ctx, "insert payment event",
		`INSERT INTO booking_payment_events (`+paymentColumns+`) VALUES (`+placeholders(17)+`)`,
		paymentArgs(ev)...)
	return err
}

func (s *Store) GetPaymentEvent(ctx context.Context, tenantID, provider, externalID string) (*payment.Event, error) {
	ev, err := scanPayment(s.q.QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM booking_payment_events
		 WHERE tenant_id = ? AND provider = ? AND external_id = ?`, tenantID, provider, externalID))
	if err != nil {
		if isNoRows(err) {
			return nil, &booking.NotFoundError{Resource: "payment event", ID: provider + "/" + externalID}
		}
		return nil, mapErr(fmt.Errorf("booking/sqlite: get payment event: %w", err))
	}
	return ev, nil
}

func (s *Store) ListPaymentEvents(ctx context.Context, tenantID string, opts payment.ListOpts) ([]*payment.Event, error) {
	where := []string{"tenant_id = ?"}
	args := []any{tenantID}
	if opts.Provider != "" {
		where = append(where, "provider = ?")
		args = append(args, opts.Provider)
	}
	if opts.Type != "" {
		where = append(where, "type = ?")
		args = append(args, string(opts.Type))
	}
	args = append(args, limitArg(opts.Limit), opts.Offset)

	query := `SELECT ` + paymentColumns + ` FROM booking_payment_events WHERE ` +
		strings.Join(where, " AND ") + ` ORDER BY seq DESC LIMIT ? OFFSET ?`
	return collect(ctx, s, "list payment events", scanPayment, query, args...)
}
