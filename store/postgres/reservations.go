package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xraph/booking"
	"github.com/xraph/booking/id"
	"github.com/xraph/booking/reservation"
)

// LockResource takes a row lock on the resource for the rest of the
// transaction. Outside a transaction it is a no-op.
func (s *Store) LockResource(ctx context.Context, tenantID string, resourceID id.ResourceID) error {
	if s.tx == nil {
		return nil
	}
	var locked string
	err := s.q.QueryRow(ctx,
		`SELECT id FROM booking_resources WHERE tenant_id = $1 AND id = $2 FOR UPDATE`,
		tenantID, resourceID).Scan(&locked)
	if err != nil {
		if isNoRows(err) {
			return &booking.NotFoundError{Resource: "resource", ID: resourceID.String()}
		}
		return mapErr(fmt.Errorf("booking/postgres: lock resource: %w", err))
	}
	return nil
}

func (s *Store) InsertReservation(ctx context.Context, r *reservation.Reservation) error {
	_, err := s.exec(ctx, "insert reservation",
		`INSERT INTO booking_reservations (`+reservationColumns+`)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26,$27,$28)`,
		reservationArgs(r)...)
	return err
}

func (s *Store) UpdateReservation(ctx context.Context, r *reservation.Reservation) error {
	tag, err := s.exec(ctx, "update reservation",
		`UPDATE booking_reservations SET start_at = $3, end_at = $4, state = $5, payment_state = $6,
		 seat = $7, waitlist_position = $8, credits_consumed = $9, confirmed_at = $10, checked_in_at = $11,
		 checked_out_at = $12, cancelled_at = $13, cancellation = $14, note = $15, updated_at = $16,
		 service_version = $17, buffer_before_ns = $18, buffer_after_ns = $19, cancel_cutoff_ns = $20,
		 late_penalty = $21, late_fee_amount = $22, late_fee_currency = $23
		 WHERE id = $1 AND tenant_id = $2`,
		r.ID, r.TenantID, r.Start, r.End, string(r.State), string(r.PaymentState),
		string(r.Seat), r.WaitlistPosition, r.CreditsConsumed, r.ConfirmedAt, r.CheckedInAt,
		r.CheckedOutAt, r.CancelledAt, cancellationJSON(r.Cancellation), r.Note, r.UpdatedAt,
		r.ServiceVersion, int64(r.BufferBefore), int64(r.BufferAfter), int64(r.Policy.CancelCutoff),
		string(r.Policy.LatePenalty), r.Policy.LateFee.Amount, r.Policy.LateFee.Currency)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return &booking.NotFoundError{Resource: "reservation", ID: r.ID.String()}
	}
	return nil
}

func (s *Store) GetReservation(ctx context.Context, tenantID string, reservationID id.ReservationID) (*reservation.Reservation, error) {
	r, err := scanReservation(s.q.QueryRow(ctx,
		`SELECT `+reservationColumns+` FROM booking_reservations WHERE tenant_id = $1 AND id = $2`,
		tenantID, reservationID))
	if err != nil {
		if isNoRows(err) {
			return nil, &booking.NotFoundError{Resource: "reservation", ID: reservationID.String()}
		}
		return nil, mapErr(fmt.Errorf("booking/postgres: get reservation: %w", err))
	}
	return r, nil
}

func (s *Store) ListReservations(ctx context.Context, tenantID string, opts reservation.ListOpts) ([]*reservation.Reservation, error) {
	where := []string{"tenant_id = $1"}
	args := []any{tenantID}
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if opts.ClientID != "" {
		add("client_id = $%d", opts.ClientID)
	}
	if !opts.ServiceID.IsNil() {
		add("service_id = $%d", opts.ServiceID)
	}
	if !opts.ResourceID.IsNil() {
		add("resource_id = $%d", opts.ResourceID)
	}
	if opts.State != "" {
		add("state = $%d", string(opts.State))
	}
	if !opts.From.IsZero() {
		add("start_at >= $%d", opts.From)
	}
	if !opts.To.IsZero() {
		add("start_at < $%d", opts.To)
	}
	args = append(args, limitArg(opts.Limit), opts.Offset)

	query := fmt.Sprintf(`SELECT %s FROM booking_reservations WHERE %s ORDER BY start_at, id LIMIT $%d OFFSET $%d`,
		reservationColumns, strings.Join(where, " AND "), len(args)-1, len(args))
	return collect(ctx, s, "list reservations", scanReservation, query, args...)
}

func (s *Store) ListLiveOnResource(ctx context.Context, tenantID string, resourceID id.ResourceID, from, to time.Time) ([]*reservation.Reservation, error) {
	return collect(ctx, s, "list live reservations", scanReservation,
		`SELECT `+reservationColumns+` FROM booking_reservations
		 WHERE tenant_id = $1 AND resource_id = $2 AND state IN ('pending', 'confirmed')
		   AND start_at < $4 AND end_at > $3
		 ORDER BY start_at, id`,
		tenantID, resourceID, from, to)
}

func (s *Store) EnqueueWaitlist(ctx context.Context, tenantID string, slot reservation.SlotKey, reservationID id.ReservationID, at time.Time) (int, error) {
	var pos int
	err := s.q.QueryRow(ctx,
		`INSERT INTO booking_waitlist (tenant_id, slot_key, position, reservation_id, service_id, resource_id, slot_start, status, created_at)
		 SELECT $1::text, $2::text, COALESCE(MAX(position), 0) + 1, $3::text, $4::text, $5::text, $6::timestamptz, 'waiting', $7::timestamptz
		 FROM booking_waitlist WHERE tenant_id = $1 AND slot_key = $2
		 RETURNING position`,
		tenantID, slot.String(), reservationID, slot.ServiceID, slot.ResourceID, slot.Start, at).Scan(&pos)
	if err != nil {
		return 0, mapErr(fmt.Errorf("booking/postgres: enqueue waitlist: %w", err))
	}
	return pos, nil
}

func (s *Store) NextWaitlisted(ctx context.Context, tenantID string, slot reservation.SlotKey) (*reservation.WaitlistEntry, error) {
	e, err := scanWaitlist(s.q.QueryRow(ctx,
		`SELECT `+waitlistColumns+` FROM booking_waitlist
		 WHERE tenant_id = $1 AND slot_key = $2 AND status = 'waiting'
		 ORDER BY position LIMIT 1`, tenantID, slot.String()))
	if err != nil {
		if isNoRows(err) {
			return nil, &booking.NotFoundError{Resource: "waitlist entry", ID: slot.String()}
		}
		return nil, mapErr(fmt.Errorf("booking/postgres: next waitlisted: %w", err))
	}
	return e, nil
}

func (s *Store) SetWaitlistStatus(ctx context.Context, tenantID string, reservationID id.ReservationID, status reservation.WaitlistStatus) error {
	tag, err := s.exec(ctx, "set waitlist status",
		`UPDATE booking_waitlist SET status = $3 WHERE tenant_id = $1 AND reservation_id = $2`,
		tenantID, reservationID, string(status))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return &booking.NotFoundError{Resource: "waitlist entry", ID: reservationID.String()}
	}
	return nil
}

func (s *Store) ListWaitlist(ctx context.Context, tenantID string, slot reservation.SlotKey) ([]*reservation.WaitlistEntry, error) {
	return collect(ctx, s, "list waitlist", scanWaitlist,
		`SELECT `+waitlistColumns+` FROM booking_waitlist WHERE tenant_id = $1 AND slot_key = $2 ORDER BY position`,
		tenantID, slot.String())
}
