package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xraph/booking"
	"github.com/xraph/booking/id"
	"github.com/xraph/booking/reservation"
)

// LockResource is a no-op: the IMMEDIATE transaction already holds the
// database write lock.
func (s *Store) LockResource(context.Context, string, id.ResourceID) error { return nil }

func (s *Store) InsertReservation(ctx context.Context, r *reservation.Reservation) error {
	_, err := s.exec(ctx, "insert reservation",
		`INSERT INTO booking_reservations (`+reservationColumns+`) VALUES (`+placeholders(28)+`)`,
		reservationArgs(r)...)
	return err
}

func (s *Store) UpdateReservation(ctx context.Context, r *reservation.Reservation) error {
	return s.execAffecting(ctx, "update reservation",
		&booking.NotFoundError{Resource: "reservation", ID: r.ID.String()},
		`UPDATE booking_reservations SET start_at = ?, end_at = ?, state = ?, payment_state = ?,
		 seat = ?, waitlist_position = ?, credits_consumed = ?, confirmed_at = ?, checked_in_at = ?,
		 checked_out_at = ?, cancelled_at = ?, cancellation = ?, note = ?, updated_at = ?,
		 service_version = ?, buffer_before_ns = ?, buffer_after_ns = ?, cancel_cutoff_ns = ?,
		 late_penalty = ?, late_fee_amount = ?, late_fee_currency = ?
		 WHERE id = ? AND tenant_id = ?`,
		nanos(r.Start), nanos(r.End), string(r.State), string(r.PaymentState),
		string(r.Seat), r.WaitlistPosition, r.CreditsConsumed, nullNanos(r.ConfirmedAt), nullNanos(r.CheckedInAt),
		nullNanos(r.CheckedOutAt), nullNanos(r.CancelledAt), cancellationJSON(r.Cancellation), r.Note, nanos(r.UpdatedAt),
		r.ServiceVersion, int64(r.BufferBefore), int64(r.BufferAfter), int64(r.Policy.CancelCutoff),
		string(r.Policy.LatePenalty), r.Policy.LateFee.Amount, r.Policy.LateFee.Currency,
		r.ID, r.TenantID)
}

func (s *Store) GetReservation(ctx context.Context, tenantID string, reservationID id.ReservationID) (*reservation.Reservation, error) {
	r, err := scanReservation(s.q.QueryRowContext(ctx,
		`SELECT `+reservationColumns+` FROM booking_reservations WHERE tenant_id = ? AND id = ?`,
		tenantID, reservationID))
	if err != nil {
		if isNoRows(err) {
			return nil, &booking.NotFoundError{Resource: "reservation", ID: reservationID.String()}
		}
		return nil, mapErr(fmt.Errorf("booking/sqlite: get reservation: %w", err))
	}
	return r, nil
}

func (s *Store) ListReservations(ctx context.Context, tenantID string, opts reservation.ListOpts) ([]*reservation.Reservation, error) {
	where := []string{"tenant_id = ?"}
	args := []any{tenantID}
	add := func(cond string, v any) {
		where = append(where, cond)
		args = append(args, v)
	}
	if opts.ClientID != "" {
		add("client_id = ?", opts.ClientID)
	}
	if !opts.ServiceID.IsNil() {
		add("service_id = ?", opts.ServiceID)
	}
	if !opts.ResourceID.IsNil() {
		add("resource_id = ?", opts.ResourceID)
	}
	if opts.State != "" {
		add("state = ?", string(opts.State))
	}
	if !opts.From.IsZero() {
		add("start_at >= ?", nanos(opts.From))
	}
	if !opts.To.IsZero() {
		add("start_at < ?", nanos(opts.To))
	}
	args = append(args, limitArg(opts.Limit), opts.Offset)

	query := `SELECT ` + reservationColumns + ` FROM booking_reservations WHERE ` +
		strings.Join(where, " AND ") + ` ORDER BY start_at, id LIMIT ? OFFSET ?`
	return collect(ctx, s, "list reservations", scanReservation, query, args...)
}

func (s *Store) ListLiveOnResource(ctx context.Context, tenantID string, resourceID id.ResourceID, from, to time.Time) ([]*reservation.Reservation, error) {
	return collect(ctx, s, "list live reservations", scanReservation,
		`SELECT `+reservationColumns+` FROM booking_reservations
		 WHERE tenant_id = ? AND resource_id = ? AND state IN ('pending', 'confirmed')
		   AND start_at < ? AND end_at > ?
		 ORDER BY start_at, id`,
		tenantID, resourceID, nanos(to), nanos(from))
}

func (s *Store) EnqueueWaitlist(ctx context.Context, tenantID string, slot reservation.SlotKey, reservationID id.ReservationID, at time.Time) (int, error) {
	var pos int
	err := s.q.QueryRowContext(ctx,
		`INSERT INTO booking_waitlist (tenant_id, slot_key, position, reservation_id, service_id, resource_id, slot_start, status, created_at)
		 SELECT ?, ?, COALESCE(MAX(position), 0) + 1, ?, ?, ?, ?, 'waiting', ?
		 FROM booking_waitlist WHERE tenant_id = ? AND slot_key = ?
		 RETURNING position`,
		tenantID, slot.String(), reservationID, slot.ServiceID, slot.ResourceID, nanos(slot.Start), nanos(at),
		tenantID, slot.String()).Scan(&pos)
	if err != nil {
		return 0, mapErr(fmt.Errorf("booking/sqlite: enqueue waitlist: %w", err))
	}
	return pos, nil
}

func (s *Store) NextWaitlisted(ctx context.Context, tenantID string, slot reservation.SlotKey) (*reservation.WaitlistEntry, error) {
	e, err := scanWaitlist(s.q.QueryRowContext(ctx,
		`SELECT `+waitlistColumns+` FROM booking_waitlist
		 WHERE tenant_id = ? AND slot_key = ? AND status = 'waiting'
		 ORDER BY position LIMIT 1`, tenantID, slot.String()))
	if err != nil {
		if isNoRows(err) {
			return nil, &booking.NotFoundError{Resource: "waitlist entry", ID: slot.String()}
		}
		return nil, mapErr(fmt.Errorf("booking/sqlite: next waitlisted: %w", err))
	}
	return e, nil
}

func (s *Store) SetWaitlistStatus(ctx context.Context, tenantID string, reservationID id.ReservationID, status reservation.WaitlistStatus) error {
	return s.execAffecting(ctx, "set waitlist status",
		&booking.NotFoundError{Resource: "waitlist entry", ID: reservationID.String()},
		`UPDATE booking_waitlist SET status = ? WHERE tenant_id = ? AND reservation_id = ?`,
		string(status), tenantID, reservationID)
}

func (s *Store) ListWaitlist(ctx context.Context, tenantID string, slot reservation.SlotKey) ([]*reservation.WaitlistEntry, error) {
	return collect(ctx, s, "list waitlist", scanWaitlist,
		`SELECT `+waitlistColumns+` FROM booking_waitlist WHERE tenant_id = ? AND slot_key = ? ORDER BY position`,
		tenantID, slot.String())
}
