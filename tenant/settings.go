// Package tenant holds per-tenant engine settings.
package tenant

import (
	"context"
	"fmt"
	"time"
)

// CreditTrigger decides when a credit-payable reservation consumes credits.
type CreditTrigger string

const (
	// TriggerManual consumes only through an explicit pay-with-credits call.
	TriggerManual CreditTrigger = "manual"
	// TriggerOnCreate consumes when an active seat is created or promoted.
	TriggerOnCreate CreditTrigger = "on_create"
	// TriggerOnCheckIn consumes at check-in if the reservation is unpaid.
	TriggerOnCheckIn CreditTrigger = "on_check_in"
)

// Valid reports whether t is a known trigger.
func (t CreditTrigger) Valid() bool {
	switch t {
	case TriggerManual, TriggerOnCreate, TriggerOnCheckIn:
		return true
	}
	return false
}

// Settings configures engine behavior for a single tenant.
type Settings struct {
	TenantID      string        `json:"tenant_id"`
	CreditTrigger CreditTrigger `json:"credit_trigger"`
	Timezone      string        `json:"timezone"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// Default returns the settings used when a tenant has none stored.
func Default(tenantID string) *Settings {
	return &Settings{
		TenantID:      tenantID,
		CreditTrigger: TriggerManual,
		Timezone:      "UTC",
	}
}

// Validate checks trigger and timezone.
func (s *Settings) Validate() error {
	if s.TenantID == "" {
		return fmt.Errorf("tenant_id: is required")
	}
	if !s.CreditTrigger.Valid() {
		return fmt.Errorf("credit_trigger: unknown trigger %q", s.CreditTrigger)
	}
	if _, err := time.LoadLocation(s.Timezone); err != nil {
		return fmt.Errorf("timezone: %w", err)
	}
	return nil
}

// Location resolves Timezone, falling back to UTC.
func (s *Settings) Location() *time.Location {
	if s == nil || s.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Store persists tenant settings.
type Store interface {
	// GetSettings returns the stored settings or ErrNotFound.
	GetSettings(ctx context.Context, tenantID string) (*Settings, error)

	// PutSettings creates or replaces the tenant's settings.
	PutSettings(ctx context.Context, s *Settings) error
}
