package booking

import (
	"errors"
	"fmt"
)

// Sentinel errors. Typed errors below unwrap to one of these so callers
// can branch with errors.Is.
var (
	// General errors
	ErrNotFound      = errors.New("booking: not found")
	ErrAlreadyExists = errors.New("booking: already exists")
	ErrInvalidInput  = errors.New("booking: invalid input")

	// Lifecycle and capacity
	ErrConflict = errors.New("booking: conflict")

	// Ledger and reconciliation
	ErrInsufficientBalance = errors.New("booking: insufficient credit balance")
	ErrInvalidSignature    = errors.New("booking: invalid event signature")

	// Store errors
	ErrStoreClosed       = errors.New("booking: store is closed")
	ErrTransactionFailed = errors.New("booking: transaction failed")
)

// ValidationError reports malformed caller input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("booking: validation failed for %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// ConflictError reports an illegal state transition or a lost capacity race.
// Current and Requested are set for transitions; Reason explains the rest.
type ConflictError struct {
	Resource  string
	ID        string
	Current   string
	Requested string
	Reason    string
}

func (e *ConflictError) Error() string {
	switch {
	case e.Current != "" && e.Requested != "":
		msg := fmt.Sprintf("booking: %s %s cannot move from %s to %s", e.Resource, e.ID, e.Current, e.Requested)
		if e.Reason != "" {
			msg += ": " + e.Reason
		}
		return msg
	case e.ID != "":
		return fmt.Sprintf("booking: conflict on %s %s: %s", e.Resource, e.ID, e.Reason)
	default:
		return fmt.Sprintf("booking: conflict on %s: %s", e.Resource, e.Reason)
	}
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// NotFoundError reports an unknown tenant-scoped identifier.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("booking: %s %s not found", e.Resource, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// InsufficientBalanceError reports a rejected consumption. No ledger entry
// is written when it is returned.
type InsufficientBalanceError struct {
	ClientID  string
	Available int64
	Requested int64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("booking: client %s has %d credits, %d requested", e.ClientID, e.Available, e.Requested)
}

func (e *InsufficientBalanceError) Unwrap() error { return ErrInsufficientBalance }

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsConflict reports whether err is a conflict error.
func IsConflict(err error) bool { return errors.Is(err, ErrConflict) }

// IsValidation reports whether err is caused by invalid input.
func IsValidation(err error) bool { return errors.Is(err, ErrInvalidInput) }

// IsInsufficientBalance reports whether err is a rejected credit consumption.
func IsInsufficientBalance(err error) bool { return errors.Is(err, ErrInsufficientBalance) }

// IsInvalidSignature reports whether err is a rejected payment event.
func IsInvalidSignature(err error) bool { return errors.Is(err, ErrInvalidSignature) }

// IsRetryable reports whether the operation can be retried unchanged.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransactionFailed)
}
