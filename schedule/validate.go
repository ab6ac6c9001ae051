package schedule

import (
	"fmt"
	"strings"
	"time"
)

// FieldError names the first invalid field of a schedule entity.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("schedule: %s: %s", e.Field, e.Message)
}

func invalid(field, msg string) error {
	return &FieldError{Field: field, Message: msg}
}

// Validate checks a service definition.
func (s *Service) Validate() error {
	switch {
	case strings.TrimSpace(s.Name) == "":
		return invalid("name", "is required")
	case s.Capacity < 1:
		return invalid("capacity", "must be at least 1")
	case s.Duration < time.Minute:
		return invalid("duration", "must be at least one minute")
	case s.Duration%time.Minute != 0:
		return invalid("duration", "must be a whole number of minutes")
	case s.BufferBefore < 0 || s.BufferAfter < 0:
		return invalid("buffer", "must not be negative")
	case s.CreditCost < 0:
		return invalid("credit_cost", "must not be negative")
	case s.Policy.CancelCutoff < 0:
		return invalid("policy.cancel_cutoff", "must not be negative")
	}

	switch s.Policy.LatePenalty {
	case "", PenaltyNone, PenaltyForfeitCredit:
	case PenaltyFee:
		if s.Policy.LateFee.Amount <= 0 {
			return invalid("policy.late_fee", "must be positive for a fee penalty")
		}
	default:
		return invalid("policy.late_penalty", fmt.Sprintf("unknown penalty %q", s.Policy.LatePenalty))
	}
	return nil
}

// Validate checks a resource definition.
func (r *Resource) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return invalid("name", "is required")
	}
	return nil
}

// Validate checks a rule definition.
func (r *Rule) Validate() error {
	if r.ResourceID.IsNil() {
		return invalid("resource_id", "is required")
	}
	switch r.Kind {
	case RuleWeekly:
		if r.Weekday < time.Sunday || r.Weekday > time.Saturday {
			return invalid("weekday", "must be between 0 and 6")
		}
	case RuleDate:
		if r.Date.IsZero() {
			return invalid("date", "is required for a date rule")
		}
	default:
		return invalid("kind", fmt.Sprintf("unknown rule kind %q", r.Kind))
	}
	return validRange(r.Start, r.End)
}

// Validate checks an exception definition.
func (e *Exception) Validate() error {
	if e.ResourceID.IsNil() {
		return invalid("resource_id", "is required")
	}
	if e.Date.IsZero() {
		return invalid("date", "is required")
	}
	switch e.Kind {
	case ExceptionBlackout:
		return nil
	case ExceptionAddition:
		return validRange(e.Start, e.End)
	default:
		return invalid("kind", fmt.Sprintf("unknown exception kind %q", e.Kind))
	}
}

func validRange(start, end TimeOfDay) error {
	if !start.Valid() || start == EndOfDay {
		return invalid("start", "must be between 00:00 and 23:59")
	}
	if !end.Valid() {
		return invalid("end", "must be between 00:01 and 24:00")
	}
	if end <= start {
		return invalid("end", "must be after start")
	}
	return nil
}
