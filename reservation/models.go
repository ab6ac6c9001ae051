// Package reservation defines reservations, their lifecycle table and the
// per-slot waitlist index.
package reservation

import (
	"fmt"
	"time"

	"github.com/xraph/booking/id"
	"github.com/xraph/booking/schedule"
	"github.com/xraph/booking/types"
)

// State is the lifecycle state of a reservation.
type State string

const (
	StatePending   State = "pending"
	StateConfirmed State = "confirmed"
	StateCancelled State = "cancelled"
	StateCompleted State = "completed"
	StateNoShow    State = "no_show"
)

// PaymentState tracks money received for a reservation.
type PaymentState string

const (
	PaymentUnpaid   PaymentState = "unpaid"
	PaymentPaid     PaymentState = "paid"
	PaymentRefunded PaymentState = "refunded"
)

// Seat says whether a reservation holds capacity or waits for it.
type Seat string

const (
	SeatActive     Seat = "active"
	SeatWaitlisted Seat = "waitlisted"
)

// SlotKey identifies one slot of one service on one resource.
type SlotKey struct {
	ServiceID  id.ServiceID  `json:"service_id"`
	ResourceID id.ResourceID `json:"resource_id"`
	Start      time.Time     `json:"start"`
}

// String renders the key as a stable index value.
func (k SlotKey) String() string {
	return fmt.Sprintf("%s/%s/%d", k.ServiceID, k.ResourceID, k.Start.UTC().Unix())
}

// Reservation is a client's claim on a slot. Reservations are never
// deleted; they end in a terminal state.
type Reservation struct {
	types.Entity
	ID             id.ReservationID `json:"id"`
	TenantID       string           `json:"tenant_id"`
	ServiceID      id.ServiceID     `json:"service_id"`
	ServiceVersion int              `json:"service_version"`
	ResourceID     id.ResourceID    `json:"resource_id"`
	ClientID       string           `json:"client_id"`
	Start          time.Time        `json:"start"`
	End            time.Time        `json:"end"`
	BufferBefore   time.Duration    `json:"buffer_before"`
	BufferAfter    time.Duration    `json:"buffer_after"`

	// Policy is the service's cancellation policy when the reservation
	// was made or last rescheduled.
	Policy schedule.Policy `json:"policy"`

	State        State        `json:"state"`
	PaymentState PaymentState `json:"payment_state"`

	Seat             Seat `json:"seat"`
	WaitlistPosition int  `json:"waitlist_position,omitempty"`

	CreditCost      int64 `json:"credit_cost"`
	CreditsConsumed int64 `json:"credits_consumed"`

	ConfirmedAt  *time.Time    `json:"confirmed_at,omitempty"`
	CheckedInAt  *time.Time    `json:"checked_in_at,omitempty"`
	CheckedOutAt *time.Time    `json:"checked_out_at,omitempty"`
	CancelledAt  *time.Time    `json:"cancelled_at,omitempty"`
	Cancellation *Cancellation `json:"cancellation,omitempty"`
	Note         string        `json:"note,omitempty"`
}

// Cancellation records how a cancellation was settled.
type Cancellation struct {
	Reason          string           `json:"reason,omitempty"`
	Late            bool             `json:"late"`
	Penalty         schedule.Penalty `json:"penalty"`
	Fee             types.Money      `json:"fee"`
	CreditsRefunded int64            `json:"credits_refunded"`
}

// Key returns the slot the reservation belongs to.
func (r *Reservation) Key() SlotKey {
	return SlotKey{ServiceID: r.ServiceID, ResourceID: r.ResourceID, Start: r.Start}
}

// Window returns the booked interval without buffers.
func (r *Reservation) Window() schedule.Window {
	return schedule.Window{Start: r.Start, End: r.End}
}

// Occupied returns the booked interval widened by the buffers captured at
// booking time.
func (r *Reservation) Occupied() schedule.Window {
	return r.Window().Expand(r.BufferBefore, r.BufferAfter)
}

// IsWaitlisted reports whether the reservation waits for a seat.
func (r *Reservation) IsWaitlisted() bool { return r.Seat == SeatWaitlisted }

// IsLive reports whether the reservation is pending or confirmed.
func (r *Reservation) IsLive() bool {
	return r.State == StatePending || r.State == StateConfirmed
}

// HoldsSeat reports whether the reservation counts against capacity.
func (r *Reservation) HoldsSeat() bool {
	return r.IsLive() && r.Seat == SeatActive
}

// ListOpts filters reservation listings.
type ListOpts struct {
	ClientID   string
	ServiceID  id.ServiceID
	ResourceID id.ResourceID
	State      State
	From       time.Time
	To         time.Time
	Limit      int
	Offset     int
}

// WaitlistStatus is the state of a waitlist index row.
type WaitlistStatus string

const (
	WaitlistWaiting   WaitlistStatus = "waiting"
	WaitlistPromoted  WaitlistStatus = "promoted"
	WaitlistWithdrawn WaitlistStatus = "withdrawn"
)

// WaitlistEntry is a row of the per-slot FIFO index. Rows are kept after
// promotion or withdrawal so positions never repeat within a slot.
type WaitlistEntry struct {
	TenantID      string           `json:"tenant_id"`
	Slot          SlotKey          `json:"slot"`
	Position      int              `json:"position"`
	ReservationID id.ReservationID `json:"reservation_id"`
	Status        WaitlistStatus   `json:"status"`
	CreatedAt     time.Time        `json:"created_at"`
}
