package sqlite

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/xraph/booking/credit"
	"github.com/xraph/booking/payment"
	"github.com/xraph/booking/reservation"
	"github.com/xraph/booking/schedule"
	"github.com/xraph/booking/tenant"
	"github.com/xraph/booking/types"
)

// row is satisfied by *sql.Row and *sql.Rows.
type row interface {
	Scan(dest ...any) error
}

// ==================== Catalog rows ====================

const serviceColumns = `id, tenant_id, name, capacity, duration_ns, buffer_before_ns, buffer_after_ns,
	cancel_cutoff_ns, late_penalty, late_fee_amount, late_fee_currency, credit_cost,
	price_amount, price_currency, version, metadata, created_at, updated_at`

func serviceArgs(s *schedule.Service) []any {
	return []any{
		s.ID, s.TenantID, s.Name, s.Capacity, int64(s.Duration), int64(s.BufferBefore), int64(s.BufferAfter),
		int64(s.Policy.CancelCutoff), string(s.Policy.LatePenalty), s.Policy.LateFee.Amount, s.Policy.LateFee.Currency, s.CreditCost,
		s.Price.Amount, s.Price.Currency, s.Version, metadataJSON(s.Metadata), nanos(s.CreatedAt), nanos(s.UpdatedAt),
	}
}

func scanService(r row) (*schedule.Service, error) {
	var (
		s                               schedule.Service
		duration, before, after, cutoff int64
		penalty, metadata               string
		created, updated                int64
	)
	if err := r.Scan(
		&s.ID, &s.TenantID, &s.Name, &s.Capacity, &duration, &before, &after,
		&cutoff, &penalty, &s.Policy.LateFee.Amount, &s.Policy.LateFee.Currency, &s.CreditCost,
		&s.Price.Amount, &s.Price.Currency, &s.Version, &metadata, &created, &updated,
	); err != nil {
		return nil, err
	}
	s.Duration = time.Duration(duration)
	s.BufferBefore = time.Duration(before)
	s.BufferAfter = time.Duration(after)
	s.Policy.CancelCutoff = time.Duration(cutoff)
	s.Policy.LatePenalty = schedule.Penalty(penalty)
	s.Metadata = parseMetadata(metadata)
	s.Entity = entity(created, updated)
	return &s, nil
}

const resourceColumns = `id, tenant_id, name, metadata, created_at, updated_at`

func scanResource(r row) (*schedule.Resource, error) {
	var (
		res              schedule.Resource
		metadata         string
		created, updated int64
	)
	if err := r.Scan(&res.ID, &res.TenantID, &res.Name, &metadata, &created, &updated); err != nil {
		return nil, err
	}
	res.Metadata = parseMetadata(metadata)
	res.Entity = entity(created, updated)
	return &res, nil
}

const ruleColumns = `id, tenant_id, resource_id, service_id, kind, weekday, date, start_min, end_min, created_at, updated_at`

func scanRule(r row) (*schedule.Rule, error) {
	var (
		rule             schedule.Rule
		kind             string
		weekday          int
		created, updated int64
	)
	if err := r.Scan(&rule.ID, &rule.TenantID, &rule.ResourceID, &rule.ServiceID, &kind, &weekday, &rule.Date,
		&rule.Start, &rule.End, &created, &updated); err != nil {
		return nil, err
	}
	rule.Kind = schedule.RuleKind(kind)
	rule.Weekday = time.Weekday(weekday)
	rule.Entity = entity(created, updated)
	return &rule, nil
}

const exceptionColumns = `id, tenant_id, resource_id, service_id, date, kind, start_min, end_min, reason, created_at, updated_at`

func scanException(r row) (*schedule.Exception, error) {
	var (
		e                schedule.Exception
		kind             string
		created, updated int64
	)
	if err := r.Scan(&e.ID, &e.TenantID, &e.ResourceID, &e.ServiceID, &e.Date, &kind,
		&e.Start, &e.End, &e.Reason, &created, &updated); err != nil {
		return nil, err
	}
	e.Kind = schedule.ExceptionKind(kind)
	e.Entity = entity(created, updated)
	return &e, nil
}

// ==================== Reservation rows ====================

const reservationColumns = `id, tenant_id, service_id, service_version, resource_id, client_id,
	start_at, end_at, buffer_before_ns, buffer_after_ns, cancel_cutoff_ns, late_penalty, late_fee_amount,
	late_fee_currency, state, payment_state, seat, waitlist_position, credit_cost, credits_consumed, confirmed_at, checked_in_at, checked_out_at, cancelled_at,
	cancellation, note, created_at, updated_at`

func reservationArgs(r *reservation.Reservation) []any {
	return []any{
		r.ID, r.TenantID, r.ServiceID, r.ServiceVersion, r.ResourceID, r.ClientID,
		nanos(r.Start), nanos(r.End), int64(r.BufferBefore), int64(r.BufferAfter), int64(r.Policy.CancelCutoff), string(r.Policy.LatePenalty), r.Policy.LateFee.Amount,
		r.Policy.LateFee.Currency, string(r.State), string(r.PaymentState), string(r.Seat), r.WaitlistPosition,
		r.CreditCost, r.CreditsConsumed, nullNanos(r.ConfirmedAt), nullNanos(r.CheckedInAt), nullNanos(r.CheckedOutAt), nullNanos(r.CancelledAt),
		cancellationJSON(r.Cancellation), r.Note, nanos(r.CreatedAt), nanos(r.UpdatedAt),
	}
}

func scanReservation(r row) (*reservation.Reservation, error) {
	var (
		rsv                                        reservation.Reservation
		start, end, before, after, cutoff          int64
		penalty, state, paid, seat                 string
		confirmed, checkedIn, checkedOut, canceled sql.NullInt64
		cancellation                               sql.NullString
		created, updated                           int64
	)
	if err := r.Scan(
		&rsv.ID, &rsv.TenantID, &rsv.ServiceID, &rsv.ServiceVersion, &rsv.ResourceID, &rsv.ClientID,
		&start, &end, &before, &after, &cutoff, &penalty, &rsv.Policy.LateFee.Amount,
		&rsv.Policy.LateFee.Currency, &state, &paid, &seat, &rsv.WaitlistPosition,
		&rsv.CreditCost, &rsv.CreditsConsumed, &confirmed, &checkedIn, &checkedOut, &canceled,
		&cancellation, &rsv.Note, &created, &updated,
	); err != nil {
		return nil, err
	}
	rsv.Start, rsv.End = fromNanos(start), fromNanos(end)
	rsv.BufferBefore, rsv.BufferAfter = time.Duration(before), time.Duration(after)
	rsv.Policy.CancelCutoff = time.Duration(cutoff)
	rsv.Policy.LatePenalty = schedule.Penalty(penalty)
	rsv.State = reservation.State(state)
	rsv.PaymentState = reservation.PaymentState(paid)
	rsv.Seat = reservation.Seat(seat)
	rsv.ConfirmedAt = timePtr(confirmed)
	rsv.CheckedInAt = timePtr(checkedIn)
	rsv.CheckedOutAt = timePtr(checkedOut)
	rsv.CancelledAt = timePtr(canceled)
	if cancellation.Valid && cancellation.String != "" {
		var c reservation.Cancellation
		if err := json.Unmarshal([]byte(cancellation.String), &c); err != nil {
			return nil, err
		}
		rsv.Cancellation = &c
	}
	rsv.Entity = entity(created, updated)
	return &rsv, nil
}

const waitlistColumns = `tenant_id, position, reservation_id, service_id, resource_id, slot_start, status, created_at`

func scanWaitlist(r row) (*reservation.WaitlistEntry, error) {
	var (
		e              reservation.WaitlistEntry
		status         string
		start, created int64
	)
	if err := r.Scan(&e.TenantID, &e.Position, &e.ReservationID, &e.Slot.ServiceID, &e.Slot.ResourceID,
		&start, &status, &created); err != nil {
		return nil, err
	}
	e.Slot.Start = fromNanos(start)
	e.Status = reservation.WaitlistStatus(status)
	e.CreatedAt = fromNanos(created)
	return &e, nil
}

// ==================== Ledger rows ====================

const creditColumns = `id, tenant_id, client_id, type, amount, balance, reservation_id, grant_id, expires_at, reason, created_at`

func scanCredit(r row) (*credit.Entry, error) {
	var (
		e       credit.Entry
		typ     string
		expires sql.NullInt64
		created int64
	)
	if err := r.Scan(&e.ID, &e.TenantID, &e.ClientID, &typ, &e.Amount, &e.Balance,
		&e.ReservationID, &e.GrantID, &expires, &e.Reason, &created); err != nil {
		return nil, err
	}
	e.Type = credit.EntryType(typ)
	e.ExpiresAt = timePtr(expires)
	e.CreatedAt = fromNanos(created)
	return &e, nil
}

const paymentColumns = `id, tenant_id, provider, external_id, type, reservation_id, subscription_ref,
	client_id, credits, credits_expire_at, amount, currency, processed, processed_at, outcome, payload, received_at`

func paymentArgs(ev *payment.Event) []any {
	return []any{
		ev.ID, ev.TenantID, ev.Provider, ev.ExternalID, string(ev.Type), ev.ReservationID, ev.SubscriptionRef,
		ev.ClientID, ev.Credits, nullNanos(ev.CreditsExpireAt), ev.Amount.Amount, ev.Amount.Currency, ev.Processed,
		nullNanos(ev.ProcessedAt), ev.Outcome, ev.Payload, nanos(ev.ReceivedAt),
	}
}

func scanPayment(r row) (*payment.Event, error) {
	var (
		ev                   payment.Event
		typ                  string
		expires, processedAt sql.NullInt64
		received             int64
	)
	if err := r.Scan(&ev.ID, &ev.TenantID, &ev.Provider, &ev.ExternalID, &typ, &ev.ReservationID, &ev.SubscriptionRef,
		&ev.ClientID, &ev.Credits, &expires, &ev.Amount.Amount, &ev.Amount.Currency, &ev.Processed,
		&processedAt, &ev.Outcome, &ev.Payload, &received); err != nil {
		return nil, err
	}
	ev.Type = payment.EventType(typ)
	ev.CreditsExpireAt = timePtr(expires)
	ev.ProcessedAt = timePtr(processedAt)
	ev.ReceivedAt = fromNanos(received)
	return &ev, nil
}

func scanSettings(r row) (*tenant.Settings, error) {
	var (
		ts      tenant.Settings
		trigger string
		updated int64
	)
	if err := r.Scan(&ts.TenantID, &trigger, &ts.Timezone, &updated); err != nil {
		return nil, err
	}
	ts.CreditTrigger = tenant.CreditTrigger(trigger)
	ts.UpdatedAt = fromNanos(updated)
	return &ts, nil
}

// ==================== helpers ====================

func nanos(t time.Time) int64 { return t.UTC().UnixNano() }

func fromNanos(n int64) time.Time { return time.Unix(0, n).UTC() }

func nullNanos(t *time.Time) any {
	if t == nil {
		return nil
	}
	return nanos(*t)
}

func timePtr(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := fromNanos(n.Int64)
	return &t
}

func entity(created, updated int64) types.Entity {
	return types.Entity{CreatedAt: fromNanos(created), UpdatedAt: fromNanos(updated)}
}

func metadataJSON(m map[string]string) string {
	if len(m) == 0 {
		return "{}"
	}
	data, _ := json.Marshal(m) //nolint:errcheck // map[string]string always marshals
	return string(data)
}

func parseMetadata(data string) map[string]string {
	var m map[string]string
	if err := json.Unmarshal([]byte(data), &m); err != nil || len(m) == 0 {
		return nil
	}
	return m
}

func cancellationJSON(c *reservation.Cancellation) any {
	if c == nil {
		return nil
	}
	data, _ := json.Marshal(c) //nolint:errcheck // plain struct always marshals
	return string(data)
}
