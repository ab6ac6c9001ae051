package types

import (
	"encoding/json"
	"testing"
	"time"
)

func TestMoneyDisplay(t *testing.T) {
	tests := []struct {
		name    string
		money   Money
		display string
	}{
		{"USD", USD(4900), "$49.00"},
		{"EUR", EUR(19900), "€199.00"},
		{"MXN", MXN(35000), "$350.00"},
		{"negative", USD(-150), "$-1.50"},
		{"zero decimal", NewMoney(1500, "CLP"), "$1500"},
		{"unknown currency", NewMoney(1234, "chf"), "CHF 12.34"},
		{"normalized code", NewMoney(100, "EUR"), "€1.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.money.String(); got != tt.display {
				t.Errorf("got %s, want %s", got, tt.display)
			}
		})
	}
}

func TestMoneyAdd(t *testing.T) {
	if got := MXN(100).Add(MXN(250)); !got.Equal(MXN(350)) {
		t.Errorf("got %v, want %v", got, MXN(350))
	}

	defer func() {
		if recover() == nil {
			t.Error("expected panic on currency mismatch")
		}
	}()
	_ = USD(1).Add(EUR(1))
}

func TestMoneyJSON(t *testing.T) {
	data, err := json.Marshal(MXN(35000))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal raw: %v", err)
	}
	if raw["display"] != "$350.00" {
		t.Errorf("display: got %v", raw["display"])
	}

	var back Money
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !back.Equal(MXN(35000)) {
		t.Errorf("round trip: got %v", back)
	}
}

func TestManualClock(t *testing.T) {
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	c := NewManualClock(start)

	if !c.Now().Equal(start) {
		t.Fatalf("got %v, want %v", c.Now(), start)
	}

	c.Advance(90 * time.Minute)
	if want := start.Add(90 * time.Minute); !c.Now().Equal(want) {
		t.Errorf("after advance: got %v, want %v", c.Now(), want)
	}

	c.Set(start)
	if !c.Now().Equal(start) {
		t.Errorf("after set: got %v", c.Now())
	}
}

func TestActorValid(t *testing.T) {
	if (Actor{}).Valid() {
		t.Error("empty actor should be invalid")
	}
	if (Actor{TenantID: "  "}).Valid() {
		t.Error("blank tenant should be invalid")
	}
	if !System("studio-1").Valid() {
		t.Error("system actor should be valid")
	}
}
