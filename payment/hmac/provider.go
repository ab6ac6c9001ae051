// Package hmac is a payment provider for gateways that sign a JSON body
// with HMAC-SHA256 over a shared secret: regional gateways, point-of-sale
// terminals and internal billing services.
//
// The body is the normalized event itself:
//
//	{"id": "...", "type": "checkout_completed", "reservation_id": "rsv_...",
//	 "client_id": "...", "credits": 10, "amount": 35000, "currency": "mxn"}
//
// and the signature header carries the hex digest, optionally prefixed
// with "sha256=".
package hmac

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/xraph/booking"
	"github.com/xraph/booking/id"
	"github.com/xraph/booking/payment"
	"github.com/xraph/booking/types"
)

// DefaultHeader is the signature header used when none is configured.
const DefaultHeader = "X-Signature"

// Provider implements payment.Provider for HMAC-signed JSON events.
type Provider struct {
	name    string
	header  string
	secrets payment.SecretFunc
}

// New creates a provider registered under name.
func New(name string, secrets payment.SecretFunc) *Provider {
	return &Provider{name: name, header: DefaultHeader, secrets: secrets}
}

// WithHeader overrides the signature header.
func (p *Provider) WithHeader(header string) *Provider {
	p.header = header
	return p
}

var _ payment.Provider = (*Provider)(nil)

// Name implements payment.Provider.
func (p *Provider) Name() string { return p.name }

// SignatureHeader implements payment.Provider.
func (p *Provider) SignatureHeader() string { return p.header }

type body struct {
	ID              string     `json:"id"`
	Type            string     `json:"type"`
	ReservationID   string     `json:"reservation_id"`
	SubscriptionRef string     `json:"subscription_ref"`
	ClientID        string     `json:"client_id"`
	Credits         int64      `json:"credits"`
	CreditsExpireAt *time.Time `json:"credits_expire_at"`
	Amount          int64      `json:"amount"`
	Currency        string     `json:"currency"`
}

// Decode implements payment.Provider.
func (p *Provider) Decode(ctx context.Context, tenantID string, payload []byte, signature string) (*payment.Event, error) {
	secret, err := p.secrets(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", booking.ErrInvalidSignature, err)
	}
	if !Verify(payload, signature, secret) {
		return nil, fmt.Errorf("%w: %s digest mismatch", booking.ErrInvalidSignature, p.name)
	}

	var b body
	if err := json.Unmarshal(payload, &b); err != nil {
		return nil, &booking.ValidationError{Field: "body", Message: err.Error()}
	}
	if b.ID == "" {
		return nil, &booking.ValidationError{Field: "id", Message: "is required"}
	}
	if b.Credits < 0 {
		return nil, &booking.ValidationError{Field: "credits", Message: "must not be negative"}
	}

	ev := &payment.Event{
		TenantID:        tenantID,
		Provider:        p.name,
		ExternalID:      b.ID,
		Type:            payment.EventType(b.Type),
		SubscriptionRef: b.SubscriptionRef,
		ClientID:        b.ClientID,
		Credits:         b.Credits,
		CreditsExpireAt: b.CreditsExpireAt,
		Amount:          types.NewMoney(b.Amount, b.Currency),
		Payload:         payload,
	}
	if b.ReservationID != "" {
		ev.ReservationID, err = id.ParseReservationID(b.ReservationID)
		if err != nil {
			return nil, &booking.ValidationError{Field: "reservation_id", Message: err.Error()}
		}
	}
	return ev, nil
}

// Sign returns the hex HMAC-SHA256 of payload under secret.
func Sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks signature against payload in constant time.
func Verify(payload []byte, signature, secret string) bool {
	if signature == "" || secret == "" {
		return false
	}
	got, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(signature), "sha256="))
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hmac.Equal(got, mac.Sum(nil))
}
