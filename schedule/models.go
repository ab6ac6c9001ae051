// Package schedule models what can be booked and when: services, the
// resources they run on, recurring availability rules and date exceptions.
//
// The package is policy-free. ResolveWindows turns rules and exceptions
// into raw time windows; buffers, capacity and existing reservations are
// applied by the availability package.
package schedule

import (
	"time"

	"github.com/xraph/booking/id"
	"github.com/xraph/booking/types"
)

// Service is something a client books: a one-on-one session (Capacity 1)
// or a class (Capacity N).
//
// Edits bump Version. Reservations copy the fields they depend on at
// creation, so an edit never rewrites an existing booking.
type Service struct {
	types.Entity
	ID           id.ServiceID      `json:"id"`
	TenantID     string            `json:"tenant_id"`
	Name         string            `json:"name"`
	Capacity     int               `json:"capacity"`
	Duration     time.Duration     `json:"duration"`
	BufferBefore time.Duration     `json:"buffer_before"`
	BufferAfter  time.Duration     `json:"buffer_after"`
	Policy       Policy            `json:"policy"`
	CreditCost   int64             `json:"credit_cost"`
	Price        types.Money       `json:"price"`
	Version      int               `json:"version"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// IsSession reports whether the service seats a single client per slot.
func (s *Service) IsSession() bool { return s.Capacity == 1 }

// Penalty is what a late cancellation costs the client.
type Penalty string

const (
	PenaltyNone          Penalty = "none"
	PenaltyForfeitCredit Penalty = "forfeit_credit"
	PenaltyFee           Penalty = "fee"
)

// Policy is the cancellation and rescheduling policy of a service.
type Policy struct {
	CancelCutoff time.Duration `json:"cancel_cutoff"`
	LatePenalty  Penalty       `json:"late_penalty"`
	LateFee      types.Money   `json:"late_fee"`
}

// IsLate reports whether acting at now on a booking starting at start
// falls inside the cutoff window.
func (p Policy) IsLate(start, now time.Time) bool {
	return p.CancelCutoff > 0 && now.After(start.Add(-p.CancelCutoff))
}

// Resource is the room, instructor or court a service is delivered on.
// Bookings on one resource never overlap once buffers are applied.
type Resource struct {
	types.Entity
	ID       id.ResourceID     `json:"id"`
	TenantID string            `json:"tenant_id"`
	Name     string            `json:"name"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// RuleKind selects how a Rule matches dates.
type RuleKind string

const (
	RuleWeekly RuleKind = "weekly"
	RuleDate   RuleKind = "date"
)

// Rule opens a window on a resource either every week on Weekday or once
// on Date. A Nil ServiceID applies the rule to every service.
type Rule struct {
	types.Entity
	ID         id.RuleID     `json:"id"`
	TenantID   string        `json:"tenant_id"`
	ResourceID id.ResourceID `json:"resource_id"`
	ServiceID  id.ServiceID  `json:"service_id"`
	Kind       RuleKind      `json:"kind"`
	Weekday    time.Weekday  `json:"weekday"`
	Date       Date          `json:"date"`
	Start      TimeOfDay     `json:"start"`
	End        TimeOfDay     `json:"end"`
}

// AppliesTo reports whether the rule covers serviceID.
func (r *Rule) AppliesTo(serviceID id.ServiceID) bool {
	return r.ServiceID.IsNil() || r.ServiceID == serviceID
}

// Matches reports whether the rule opens a window on d.
func (r *Rule) Matches(d Date) bool {
	switch r.Kind {
	case RuleWeekly:
		return d.Weekday() == r.Weekday
	case RuleDate:
		return d == r.Date
	default:
		return false
	}
}

// ExceptionKind selects what an Exception does to its date.
type ExceptionKind string

const (
	ExceptionBlackout ExceptionKind = "blackout"
	ExceptionAddition ExceptionKind = "addition"
)

// Exception overrides the recurring rules of a resource on one date.
type Exception struct {
	types.Entity
	ID         id.ExceptionID `json:"id"`
	TenantID   string         `json:"tenant_id"`
	ResourceID id.ResourceID  `json:"resource_id"`
	ServiceID  id.ServiceID   `json:"service_id"`
	Date       Date           `json:"date"`
	Kind       ExceptionKind  `json:"kind"`
	Start      TimeOfDay      `json:"start"`
	End        TimeOfDay      `json:"end"`
	Reason     string         `json:"reason,omitempty"`
}

// AppliesTo reports whether the exception covers serviceID.
func (e *Exception) AppliesTo(serviceID id.ServiceID) bool {
	return e.ServiceID.IsNil() || e.ServiceID == serviceID
}

// Window is a half-open [Start, End) interval.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Duration returns the length of the window.
func (w Window) Duration() time.Duration { return w.End.Sub(w.Start) }

// Overlaps reports whether two half-open windows intersect.
func (w Window) Overlaps(o Window) bool {
	return w.Start.Before(o.End) && o.Start.Before(w.End)
}

// Expand widens the window by before and after.
func (w Window) Expand(before, after time.Duration) Window {
	return Window{Start: w.Start.Add(-before), End: w.End.Add(after)}
}
