package reservation

import (
	"fmt"
	"slices"
	"time"
)

var transitions = map[State][]State{
	StatePending:   {StateConfirmed, StateCancelled},
	StateConfirmed: {StateCompleted, StateCancelled, StateNoShow},
}

// TransitionError is returned for a move the lifecycle does not allow.
type TransitionError struct {
	From   State
	To     State
	Reason string
}

func (e *TransitionError) Error() string {
	msg := fmt.Sprintf("reservation: cannot move from %s to %s", e.From, e.To)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// CanTransition reports whether from may move to to.
func CanTransition(from, to State) bool {
	return slices.Contains(transitions[from], to)
}

// IsTerminal reports whether s has no outgoing transitions.
func (s State) IsTerminal() bool {
	return len(transitions[s]) == 0
}

// Transition moves r to state to at now.
func (r *Reservation) Transition(to State, now time.Time) error {
	if !CanTransition(r.State, to) {
		return &TransitionError{From: r.State, To: to}
	}
	if to == StateConfirmed && r.IsWaitlisted() {
		return &TransitionError{From: r.State, To: to, Reason: "waitlisted reservations are confirmed only after promotion"}
	}

	switch to {
	case StateConfirmed:
		r.ConfirmedAt = &now
	case StateCancelled:
		r.CancelledAt = &now
	case StateCompleted:
		r.CheckedOutAt = &now
	}
	r.State = to
	r.Touch(now)
	return nil
}

// Promote gives a waitlisted reservation the seat it waited for.
func (r *Reservation) Promote(now time.Time) error {
	if !r.IsWaitlisted() || r.State != StatePending {
		return &TransitionError{From: r.State, To: StatePending, Reason: "only waitlisted pending reservations can be promoted"}
	}
	r.Seat = SeatActive
	r.Touch(now)
	return nil
}

// CheckIn records arrival. Only confirmed reservations check in, once.
func (r *Reservation) CheckIn(now time.Time) error {
	if r.State != StateConfirmed {
		return &TransitionError{From: r.State, To: StateConfirmed, Reason: "check-in requires a confirmed reservation"}
	}
	if r.CheckedInAt != nil {
		return &TransitionError{From: r.State, To: StateConfirmed, Reason: "already checked in"}
	}
	r.CheckedInAt = &now
	r.Touch(now)
	return nil
}

// CheckOut completes a checked-in reservation.
func (r *Reservation) CheckOut(now time.Time) error {
	if r.State == StateConfirmed && r.CheckedInAt == nil {
		return &TransitionError{From: r.State, To: StateCompleted, Reason: "check-out requires a prior check-in"}
	}
	return r.Transition(StateCompleted, now)
}

// MarkNoShow closes a confirmed reservation whose slot ended without a
// check-in. It returns false when the reservation already is a no-show.
func (r *Reservation) MarkNoShow(now time.Time) (bool, error) {
	if r.State == StateNoShow {
		return false, nil
	}
	if r.State == StateConfirmed {
		if now.Before(r.End) {
			return false, &TransitionError{From: r.State, To: StateNoShow, Reason: "slot has not ended"}
		}
		if r.CheckedInAt != nil {
			return false, &TransitionError{From: r.State, To: StateNoShow, Reason: "client checked in"}
		}
	}
	if err := r.Transition(StateNoShow, now); err != nil {
		return false, err
	}
	return true, nil
}
