package tenant_test

import (
	"testing"
	"time"

	"github.com/xraph/booking/tenant"
)

func TestDefault(t *testing.T) {
	s := tenant.Default("studio-1")
	if s.CreditTrigger != tenant.TriggerManual {
		t.Errorf("expected manual trigger, got %q", s.CreditTrigger)
	}
	if s.Location() != time.UTC {
		t.Errorf("expected UTC, got %v", s.Location())
	}
	if err := s.Validate(); err != nil {
		t.Errorf("default settings should validate: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		s       tenant.Settings
		wantErr bool
	}{
		{"ok", tenant.Settings{TenantID: "t", CreditTrigger: tenant.TriggerOnCheckIn, Timezone: "America/Mexico_City"}, false},
		{"missing tenant", tenant.Settings{CreditTrigger: tenant.TriggerManual, Timezone: "UTC"}, true},
		{"bad trigger", tenant.Settings{TenantID: "t", CreditTrigger: "whenever", Timezone: "UTC"}, true},
		{"bad timezone", tenant.Settings{TenantID: "t", CreditTrigger: tenant.TriggerManual, Timezone: "Mars/Olympus"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.s.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLocationFallback(t *testing.T) {
	var nilSettings *tenant.Settings
	if nilSettings.Location() != time.UTC {
		t.Error("nil settings should resolve to UTC")
	}
	s := &tenant.Settings{Timezone: "nowhere"}
	if s.Location() != time.UTC {
		t.Error("unknown timezone should resolve to UTC")
	}
}
