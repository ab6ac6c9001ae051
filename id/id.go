// Package id defines TypeID-based identifiers for booking entities.
//
// Every entity uses the same ID struct; the prefix names the entity kind.
// IDs are K-sortable (UUIDv7-based) and render as "prefix_suffix", which
// keeps them readable in logs and URL paths.
package id

import (
	"database/sql/driver"
	"fmt"

	"go.jetify.com/typeid/v2"
)

// Prefix identifies the entity kind encoded in a TypeID.
type Prefix string

// Entity prefixes.
const (
	PrefixService      Prefix = "svc"  // bookable service (class or session)
	PrefixResource     Prefix = "rsrc" // room, instructor, court
	PrefixRule         Prefix = "rule" // recurring schedule window
	PrefixException    Prefix = "exc"  // blackout or one-off addition
	PrefixReservation  Prefix = "rsv"
	PrefixCreditEntry  Prefix = "crd"
	PrefixPaymentEvent Prefix = "pevt"
)

// ID is the identifier for every booking entity.
//
//nolint:recvcheck // Value receivers for read-only methods, pointer receivers for UnmarshalText/Scan.
type ID struct {
	inner typeid.TypeID
	valid bool
}

// Nil is the zero-value ID.
var Nil ID

// New generates an ID with the given prefix. It panics on an invalid
// prefix, which is a programming error.
func New(prefix Prefix) ID {
	tid, err := typeid.Generate(string(prefix))
	if err != nil {
		panic(fmt.Sprintf("id: invalid prefix %q: %v", prefix, err))
	}

	return ID{inner: tid, valid: true}
}

// Parse parses a TypeID string such as "rsv_01h2xcejqtf2nbrexx3vqjhp41".
func Parse(s string) (ID, error) {
	if s == "" {
		return Nil, fmt.Errorf("id: parse %q: empty string", s)
	}

	tid, err := typeid.Parse(s)
	if err != nil {
		return Nil, fmt.Errorf("id: parse %q: %w", s, err)
	}

	return ID{inner: tid, valid: true}, nil
}

// ParseWithPrefix parses s and checks that its prefix is expected.
func ParseWithPrefix(s string, expected Prefix) (ID, error) {
	parsed, err := Parse(s)
	if err != nil {
		return Nil, err
	}

	if parsed.Prefix() != expected {
		return Nil, fmt.Errorf("id: expected prefix %q, got %q", expected, parsed.Prefix())
	}

	return parsed, nil
}

// MustParse is like Parse but panics on error.
func MustParse(s string) ID {
	parsed, err := Parse(s)
	if err != nil {
		panic(fmt.Sprintf("id: must parse %q: %v", s, err))
	}

	return parsed
}

// ──────────────────────────────────────────────────
// Named aliases
// ──────────────────────────────────────────────────

// ServiceID identifies a service (prefix: "svc").
type ServiceID = ID

// ResourceID identifies a resource (prefix: "rsrc").
type ResourceID = ID

// RuleID identifies a schedule rule (prefix: "rule").
type RuleID = ID

// ExceptionID identifies a schedule exception (prefix: "exc").
type ExceptionID = ID

// ReservationID identifies a reservation (prefix: "rsv").
type ReservationID = ID

// CreditEntryID identifies a credit ledger entry (prefix: "crd").
type CreditEntryID = ID

// PaymentEventID identifies a recorded payment event (prefix: "pevt").
type PaymentEventID = ID

// NewServiceID generates a service ID.
func NewServiceID() ID { return New(PrefixService) }

// NewResourceID generates a resource ID.
func NewResourceID() ID { return New(PrefixResource) }

// NewRuleID generates a schedule rule ID.
func NewRuleID() ID { return New(PrefixRule) }

// NewExceptionID generates a schedule exception ID.
func NewExceptionID() ID { return New(PrefixException) }

// NewReservationID generates a reservation ID.
func NewReservationID() ID { return New(PrefixReservation) }

// NewCreditEntryID generates a credit entry ID.
func NewCreditEntryID() ID { return New(PrefixCreditEntry) }

// NewPaymentEventID generates a payment event ID.
func NewPaymentEventID() ID { return New(PrefixPaymentEvent) }

func ParseServiceID(s string) (ID, error)      { return ParseWithPrefix(s, PrefixService) }
func ParseResourceID(s string) (ID, error)     { return ParseWithPrefix(s, PrefixResource) }
func ParseRuleID(s string) (ID, error)         { return ParseWithPrefix(s, PrefixRule) }
func ParseExceptionID(s string) (ID, error)    { return ParseWithPrefix(s, PrefixException) }
func ParseReservationID(s string) (ID, error)  { return ParseWithPrefix(s, PrefixReservation) }
func ParseCreditEntryID(s string) (ID, error)  { return ParseWithPrefix(s, PrefixCreditEntry) }
func ParsePaymentEventID(s string) (ID, error) { return ParseWithPrefix(s, PrefixPaymentEvent) }

// ──────────────────────────────────────────────────
// ID methods
// ──────────────────────────────────────────────────

// String returns "prefix_suffix", or "" for Nil.
func (i ID) String() string {
	if !i.valid {
		return ""
	}

	return i.inner.String()
}

// Prefix returns the prefix component of this ID.
func (i ID) Prefix() Prefix {
	if !i.valid {
		return ""
	}

	return Prefix(i.inner.Prefix())
}

// IsNil reports whether this ID is the zero value.
func (i ID) IsNil() bool {
	return !i.valid
}

// MarshalText implements encoding.TextMarshaler.
func (i ID) MarshalText() ([]byte, error) {
	if !i.valid {
		return []byte{}, nil
	}

	return []byte(i.inner.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (i *ID) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*i = Nil

		return nil
	}

	parsed, err := Parse(string(data))
	if err != nil {
		return err
	}

	*i = parsed

	return nil
}

// Value implements driver.Valuer. Nil is stored as NULL so optional
// references (a credit entry without a reservation) stay NULL.
func (i ID) Value() (driver.Value, error) {
	if !i.valid {
		return nil, nil //nolint:nilnil // nil is the canonical NULL for driver.Valuer
	}

	return i.inner.String(), nil
}

// Scan implements sql.Scanner.
func (i *ID) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*i = Nil
		return nil
	case string:
		return i.UnmarshalText([]byte(v))
	case []byte:
		return i.UnmarshalText(v)
	default:
		return fmt.Errorf("id: cannot scan %T into ID", src)
	}
}
