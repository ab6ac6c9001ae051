package id_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/xraph/booking/id"
)

var constructors = []struct {
	name    string
	newFn   func() id.ID
	parseFn func(string) (id.ID, error)
	prefix  string
}{
	{"ServiceID", id.NewServiceID, id.ParseServiceID, "svc_"},
	{"ResourceID", id.NewResourceID, id.ParseResourceID, "rsrc_"},
	{"RuleID", id.NewRuleID, id.ParseRuleID, "rule_"},
	{"ExceptionID", id.NewExceptionID, id.ParseExceptionID, "exc_"},
	{"ReservationID", id.NewReservationID, id.ParseReservationID, "rsv_"},
	{"CreditEntryID", id.NewCreditEntryID, id.ParseCreditEntryID, "crd_"},
	{"PaymentEventID", id.NewPaymentEventID, id.ParsePaymentEventID, "pevt_"},
}

func TestConstructors(t *testing.T) {
	for _, tt := range constructors {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.newFn().String()
			if !strings.HasPrefix(got, tt.prefix) {
				t.Errorf("expected prefix %q, got %q", tt.prefix, got)
			}
		})
	}
}

func TestParseRoundTrip(t *testing.T) {
	for _, tt := range constructors {
		t.Run(tt.name, func(t *testing.T) {
			original := tt.newFn()
			parsed, err := tt.parseFn(original.String())
			if err != nil {
				t.Fatalf("parse failed: %v", err)
			}
			if parsed != original {
				t.Errorf("round-trip mismatch: %q != %q", parsed, original)
			}
		})
	}
}

func TestCrossTypeRejection(t *testing.T) {
	for i, tt := range constructors {
		other := constructors[(i+1)%len(constructors)]
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.parseFn(other.newFn().String()); err == nil {
				t.Errorf("%s accepted a %s", tt.name, other.name)
			}
		})
	}
}

func TestParseEmpty(t *testing.T) {
	if _, err := id.Parse(""); err == nil {
		t.Error("expected error for empty string")
	}
}

func TestNilID(t *testing.T) {
	var i id.ID
	if !i.IsNil() {
		t.Error("zero-value ID should be nil")
	}
	if i.String() != "" {
		t.Errorf("expected empty string, got %q", i.String())
	}
	v, err := i.Value()
	if err != nil || v != nil {
		t.Errorf("expected NULL value, got %v (%v)", v, err)
	}
}

func TestScan(t *testing.T) {
	original := id.NewReservationID()

	var fromString id.ID
	if err := fromString.Scan(original.String()); err != nil {
		t.Fatalf("scan string: %v", err)
	}
	if fromString != original {
		t.Errorf("mismatch: %q != %q", fromString, original)
	}

	var fromNull id.ID
	if err := fromNull.Scan(nil); err != nil {
		t.Fatalf("scan nil: %v", err)
	}
	if !fromNull.IsNil() {
		t.Error("expected nil after scanning NULL")
	}

	var bad id.ID
	if err := bad.Scan(42); err == nil {
		t.Error("expected error scanning int")
	}
}

func TestJSON(t *testing.T) {
	type wrapper struct {
		Reservation id.ID `json:"reservation"`
		Ref         id.ID `json:"ref"`
	}

	in := wrapper{Reservation: id.NewReservationID()}
	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var out wrapper
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.Reservation != in.Reservation {
		t.Errorf("mismatch: %q != %q", out.Reservation, in.Reservation)
	}
	if !out.Ref.IsNil() {
		t.Error("expected empty ref to decode as nil")
	}
}
