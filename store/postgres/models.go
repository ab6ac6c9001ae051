package postgres

import (
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/xraph/booking/credit"
	"github.com/xraph/booking/payment"
	"github.com/xraph/booking/reservation"
	"github.com/xraph/booking/schedule"
	"github.com/xraph/booking/tenant"
	"github.com/xraph/booking/types"
)

// ==================== Catalog rows ====================

const serviceColumns = `id, tenant_id, name, capacity, duration_ns, buffer_before_ns, buffer_after_ns,
	cancel_cutoff_ns, late_penalty, late_fee_amount, late_fee_currency, credit_cost,
	price_amount, price_currency, version, metadata, created_at, updated_at`

func serviceArgs(s *schedule.Service) []any {
	return []any{
		s.ID, s.TenantID, s.Name, s.Capacity, int64(s.Duration), int64(s.BufferBefore), int64(s.BufferAfter),
		int64(s.Policy.CancelCutoff), string(s.Policy.LatePenalty), s.Policy.LateFee.Amount, s.Policy.LateFee.Currency, s.CreditCost,
		s.Price.Amount, s.Price.Currency, s.Version, metadataJSON(s.Metadata), s.CreatedAt, s.UpdatedAt,
	}
}

func scanService(row pgx.Row) (*schedule.Service, error) {
	var (
		s                               schedule.Service
		duration, before, after, cutoff int64
		penalty                         string
		metadata                        []byte
	)
	if err := row.Scan(
		&s.ID, &s.TenantID, &s.Name, &s.Capacity, &duration, &before, &after,
		&cutoff, &penalty, &s.Policy.LateFee.Amount, &s.Policy.LateFee.Currency, &s.CreditCost,
		&s.Price.Amount, &s.Price.Currency, &s.Version, &metadata, &s.CreatedAt, &s.UpdatedAt,
	); err != nil {
		return nil, err
	}
	s.Duration = time.Duration(duration)
	s.BufferBefore = time.Duration(before)
	s.BufferAfter = time.Duration(after)
	s.Policy.CancelCutoff = time.Duration(cutoff)
	s.Policy.LatePenalty = schedule.Penalty(penalty)
	s.Metadata = parseMetadata(metadata)
	s.Entity = utcEntity(s.Entity)
	return &s, nil
}

const resourceColumns = `id, tenant_id, name, metadata, created_at, updated_at`

func scanResource(row pgx.Row) (*schedule.Resource, error) {
	var (
		r        schedule.Resource
		metadata []byte
	)
	if err := row.Scan(&r.ID, &r.TenantID, &r.Name, &metadata, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	r.Metadata = parseMetadata(metadata)
	r.Entity = utcEntity(r.Entity)
	return &r, nil
}

const ruleColumns = `id, tenant_id, resource_id, service_id, kind, weekday, date, start_min, end_min, created_at, updated_at`

func scanRule(row pgx.Row) (*schedule.Rule, error) {
	var (
		r       schedule.Rule
		kind    string
		weekday int
	)
	if err := row.Scan(&r.ID, &r.TenantID, &r.ResourceID, &r.ServiceID, &kind, &weekday, &r.Date,
		&r.Start, &r.End, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	r.Kind = schedule.RuleKind(kind)
	r.Weekday = time.Weekday(weekday)
	r.Entity = utcEntity(r.Entity)
	return &r, nil
}

const exceptionColumns = `id, tenant_id, resource_id, service_id, date, kind, start_min, end_min, reason, created_at, updated_at`

func scanException(row pgx.Row) (*schedule.Exception, error) {
	var (
		e    schedule.Exception
		kind string
	)
	if err := row.Scan(&e.ID, &e.TenantID, &e.ResourceID, &e.ServiceID, &e.Date, &kind,
		&e.Start, &e.End, &e.Reason, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	e.Kind = schedule.ExceptionKind(kind)
	e.Entity = utcEntity(e.Entity)
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
		r.Start, r.End, int64(r.BufferBefore), int64(r.BufferAfter), int64(r.Policy.CancelCutoff), string(r.Policy.LatePenalty), r.Policy.LateFee.Amount,
		r.Policy.LateFee.Currency, string(r.State), string(r.PaymentState), string(r.Seat), r.WaitlistPosition,
		r.CreditCost, r.CreditsConsumed, r.ConfirmedAt, r.CheckedInAt, r.CheckedOutAt, r.CancelledAt,
		cancellationJSON(r.Cancellation), r.Note, r.CreatedAt, r.UpdatedAt,
	}
}

func scanReservation(row pgx.Row) (*reservation.Reservation, error) {
	var (
		r                          reservation.Reservation
		before, after, cutoff      int64
		penalty, state, paid, seat string
		cancellation               []byte
	)
	if err := row.Scan(
		&r.ID, &r.TenantID, &r.ServiceID, &r.ServiceVersion, &r.ResourceID, &r.ClientID,
		&r.Start, &r.End, &before, &after, &cutoff, &penalty, &r.Policy.LateFee.Amount,
		&r.Policy.LateFee.Currency, &state, &paid, &seat, &r.WaitlistPosition,
		&r.CreditCost, &r.CreditsConsumed, &r.ConfirmedAt, &r.CheckedInAt, &r.CheckedOutAt, &r.CancelledAt,
		&cancellation, &r.Note, &r.CreatedAt, &r.UpdatedAt,
	); err != nil {
		return nil, err
	}
	r.Start, r.End = r.Start.UTC(), r.End.UTC()
	r.BufferBefore, r.BufferAfter = time.Duration(before), time.Duration(after)
	r.Policy.CancelCutoff = time.Duration(cutoff)
	r.Policy.LatePenalty = schedule.Penalty(penalty)
	r.State = reservation.State(state)
	r.PaymentState = reservation.PaymentState(paid)
	r.Seat = reservation.Seat(seat)
	r.ConfirmedAt = utcPtr(r.ConfirmedAt)
	r.CheckedInAt = utcPtr(r.CheckedInAt)
	r.CheckedOutAt = utcPtr(r.CheckedOutAt)
	r.CancelledAt = utcPtr(r.CancelledAt)
	if len(cancellation) > 0 {
		var c reservation.Cancellation
		if err := json.Unmarshal(cancellation, &c); err != nil {
			return nil, err
		}
		r.Cancellation = &c
	}
	r.Entity = utcEntity(r.Entity)
	return &r, nil
}

const waitlistColumns = `tenant_id, position, reservation_id, service_id, resource_id, slot_start, status, created_at`

func scanWaitlist(row pgx.Row) (*reservation.WaitlistEntry, error) {
	var (
		e      reservation.WaitlistEntry
		status string
	)
	if err := row.Scan(&e.TenantID, &e.Position, &e.ReservationID, &e.Slot.ServiceID, &e.Slot.ResourceID,
		&e.Slot.Start, &status, &e.CreatedAt); err != nil {
		return nil, err
	}
	e.Slot.Start = e.Slot.Start.UTC()
	e.Status = reservation.WaitlistStatus(status)
	e.CreatedAt = e.CreatedAt.UTC()
	return &e, nil
}

// ==================== Ledger rows ====================

const creditColumns = `id, tenant_id, client_id, type, amount, balance, reservation_id, grant_id, expires_at, reason, created_at`

func scanCredit(row pgx.Row) (*credit.Entry, error) {
	var (
		e   credit.Entry
		typ string
	)
	if err := row.Scan(&e.ID, &e.TenantID, &e.ClientID, &typ, &e.Amount, &e.Balance,
		&e.ReservationID, &e.GrantID, &e.ExpiresAt, &e.Reason, &e.CreatedAt); err != nil {
		return nil, err
	}
	e.Type = credit.EntryType(typ)
	e.ExpiresAt = utcPtr(e.ExpiresAt)
	e.CreatedAt = e.CreatedAt.UTC()
	return &e, nil
}

const paymentColumns = `id, tenant_id, provider, external_id, type, reservation_id, subscription_ref,
	client_id, credits, credits_expire_at, amount, currency, processed, processed_at, outcome, payload, received_at`

func paymentArgs(ev *payment.Event) []any {
	return []any{
		ev.ID, ev.TenantID, ev.Provider, ev.ExternalID, string(ev.Type), ev.ReservationID, ev.SubscriptionRef,
		ev.ClientID, ev.Credits, ev.CreditsExpireAt, ev.Amount.Amount, ev.Amount.Currency, ev.Processed, ev.ProcessedAt, ev.Outcome, ev.Payload, ev.ReceivedAt,
	}
}

func scanPayment(row pgx.Row) (*payment.Event, error) {
	var (
		ev  payment.Event
		typ string
	)
	if err := row.Scan(&ev.ID, &ev.TenantID, &ev.Provider, &ev.ExternalID, &typ, &ev.ReservationID, &ev.SubscriptionRef,
		&ev.ClientID, &ev.Credits, &ev.CreditsExpireAt, &ev.Amount.Amount, &ev.Amount.Currency, &ev.Processed,
		&ev.ProcessedAt, &ev.Outcome, &ev.Payload, &ev.ReceivedAt); err != nil {
		return nil, err
	}
	ev.Type = payment.EventType(typ)
	ev.CreditsExpireAt = utcPtr(ev.CreditsExpireAt)
	ev.ProcessedAt = utcPtr(ev.ProcessedAt)
	ev.ReceivedAt = ev.ReceivedAt.UTC()
	return &ev, nil
}

func scanSettings(row pgx.Row) (*tenant.Settings, error) {
	var (
		ts      tenant.Settings
		trigger string
	)
	if err := row.Scan(&ts.TenantID, &trigger, &ts.Timezone, &ts.UpdatedAt); err != nil {
		return nil, err
	}
	ts.CreditTrigger = tenant.CreditTrigger(trigger)
	ts.UpdatedAt = ts.UpdatedAt.UTC()
	return &ts, nil
}

// ==================== helpers ====================

func metadataJSON(m map[string]string) []byte {
	if len(m) == 0 {
		return []byte("{}")
	}
	data, _ := json.Marshal(m) //nolint:errcheck // map[string]string always marshals
	return data
}

func parseMetadata(data []byte) map[string]string {
	if len(data) == 0 {
		return nil
	}
	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil || len(m) == 0 {
		return nil
	}
	return m
}

func cancellationJSON(c *reservation.Cancellation) []byte {
	if c == nil {
		return nil
	}
	data, _ := json.Marshal(c) //nolint:errcheck // plain struct always marshals
	return data
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func utcEntity(e types.Entity) types.Entity {
	return types.Entity{CreatedAt: e.CreatedAt.UTC(), UpdatedAt: e.UpdatedAt.UTC()}
}
