// Package payment models payment provider events and the port providers
// implement to verify and decode them.
package payment

import (
	"context"
	"time"

	"github.com/xraph/booking/id"
	"github.com/xraph/booking/types"
)

// EventType is the normalized kind of a provider event.
type EventType string

const (
	EventCheckoutCompleted EventType = "checkout_completed"
	EventRefund            EventType = "refund"
	EventDispute           EventType = "dispute"
)

// ProviderManual names front-desk payments recorded without a provider.
const ProviderManual = "manual"

// Event is a provider event as recorded in the append-only event log.
// ExternalID is the provider's event id and the idempotency key: it is
// unique per tenant and provider.
type Event struct {
	ID              id.PaymentEventID `json:"id"`
	TenantID        string            `json:"tenant_id"`
	Provider        string            `json:"provider"`
	ExternalID      string            `json:"external_id"`
	Type            EventType         `json:"type"`
	ReservationID   id.ReservationID  `json:"reservation_id"`
	SubscriptionRef string            `json:"subscription_ref,omitempty"`
	ClientID        string            `json:"client_id,omitempty"`
	Credits         int64             `json:"credits,omitempty"`
	CreditsExpireAt *time.Time        `json:"credits_expire_at,omitempty"`
	Amount          types.Money       `json:"amount"`
	Processed       bool              `json:"processed"`
	ProcessedAt     *time.Time        `json:"processed_at,omitempty"`
	Outcome         string            `json:"outcome,omitempty"`
	Payload         []byte            `json:"-"`
	ReceivedAt      time.Time         `json:"received_at"`
}

// Status is the result of applying an event.
type Status string

const (
	StatusApplied Status = "applied"
	StatusIgnored Status = "ignored"
)

// Result reports what applying an event did.
type Result struct {
	Status Status `json:"status"`
	Reason string `json:"reason,omitempty"`
	Event  *Event `json:"event,omitempty"`
}

// Applied reports whether the event changed state.
func (r *Result) Applied() bool { return r.Status == StatusApplied }

// Provider verifies and decodes the raw webhook payload of one payment
// provider. Decode must check the signature before returning anything and
// wrap booking.ErrInvalidSignature when it does not match.
type Provider interface {
	Name() string
	// SignatureHeader is the HTTP header carrying the signature.
	SignatureHeader() string
	Decode(ctx context.Context, tenantID string, payload []byte, signature string) (*Event, error)
}

// SecretFunc resolves the shared webhook secret of a tenant.
type SecretFunc func(ctx context.Context, tenantID string) (string, error)

// StaticSecrets serves secrets from a fixed tenant map, falling back to
// the "*" entry when present.
func StaticSecrets(secrets map[string]string) SecretFunc {
	return func(_ context.Context, tenantID string) (string, error) {
		if s, ok := secrets[tenantID]; ok {
			return s, nil
		}
		if s, ok := secrets["*"]; ok {
			return s, nil
		}
		return "", ErrNoSecret
	}
}
