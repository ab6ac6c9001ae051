// Package stripe verifies and decodes Stripe webhook events into payment
// events.
//
// Checkout sessions carry the booking references in their metadata:
//
//	reservation_id     reservation paid by the session
//	client_id          client receiving a credit package (or client_reference_id)
//	credits            number of credits bought
//	credits_expire_at  RFC 3339 expiry of the bought credits
//
// Refunds and disputes are read from charge.refunded and
// charge.dispute.created, whose metadata is expected to repeat
// reservation_id.
package stripe

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/xraph/booking"
	"github.com/xraph/booking/id"
	"github.com/xraph/booking/payment"
	"github.com/xraph/booking/types"
)

// ProviderName is the name events from this provider are recorded under.
const ProviderName = "stripe"

// Stripe event types the provider maps.
const (
	typeCheckoutCompleted = "checkout.session.completed"
	typeChargeRefunded    = "charge.refunded"
	typeDisputeCreated    = "charge.dispute.created"
)

// Provider implements payment.Provider for Stripe.
type Provider struct {
	secrets   payment.SecretFunc
	tolerance time.Duration
}

// Option configures a Provider.
type Option func(*Provider)

// WithTolerance sets how old a signed timestamp may be.
func WithTolerance(d time.Duration) Option {
	return func(p *Provider) { p.tolerance = d }
}

// New creates a Stripe provider resolving webhook secrets with secrets.
func New(secrets payment.SecretFunc, opts ...Option) *Provider {
	p := &Provider{secrets: secrets, tolerance: webhook.DefaultTolerance}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var _ payment.Provider = (*Provider)(nil)

// Name implements payment.Provider.
func (p *Provider) Name() string { return ProviderName }

// SignatureHeader implements payment.Provider.
func (p *Provider) SignatureHeader() string { return "Stripe-Signature" }

// Decode implements payment.Provider.
func (p *Provider) Decode(ctx context.Context, tenantID string, payload []byte, signature string) (*payment.Event, error) {
	secret, err := p.secrets(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", booking.ErrInvalidSignature, err)
	}

	evt, err := webhook.ConstructEventWithOptions(payload, signature, secret, webhook.ConstructEventOptions{
		Tolerance:                p.tolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", booking.ErrInvalidSignature, err)
	}
	if evt.Data == nil {
		return nil, &booking.ValidationError{Field: "data", Message: "event has no data object"}
	}

	out := &payment.Event{
		TenantID:   tenantID,
		Provider:   ProviderName,
		ExternalID: evt.ID,
		Type:       payment.EventType(evt.Type),
		Payload:    payload,
	}

	switch string(evt.Type) {
	case typeCheckoutCompleted:
		out.Type = payment.EventCheckoutCompleted
		err = decodeCheckout(evt.Data.Raw, out)
	case typeChargeRefunded:
		out.Type = payment.EventRefund
		err = decodeCharge(evt.Data.Raw, out, func(c chargeObject) int64 { return c.AmountRefunded })
	case typeDisputeCreated:
		out.Type = payment.EventDispute
		err = decodeCharge(evt.Data.Raw, out, func(c chargeObject) int64 { return c.Amount })
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

type checkoutObject struct {
	ID                string            `json:"id"`
	AmountTotal       int64             `json:"amount_total"`
	Currency          string            `json:"currency"`
	ClientReferenceID string            `json:"client_reference_id"`
	Subscription      string            `json:"subscription"`
	Metadata          map[string]string `json:"metadata"`
}

type chargeObject struct {
	ID             string            `json:"id"`
	Amount         int64             `json:"amount"`
	AmountRefunded int64             `json:"amount_refunded"`
	Currency       string            `json:"currency"`
	Metadata       map[string]string `json:"metadata"`
}

func decodeCheckout(raw json.RawMessage, out *payment.Event) error {
	var obj checkoutObject
	if err := json.Unmarshal(raw, &obj); err != nil {
		return &booking.ValidationError{Field: "data.object", Message: err.Error()}
	}

	out.Amount = types.NewMoney(obj.AmountTotal, obj.Currency)
	out.SubscriptionRef = obj.Subscription
	out.ClientID = obj.Metadata["client_id"]
	if out.ClientID == "" {
		out.ClientID = obj.ClientReferenceID
	}

	if err := decodeReservation(obj.Metadata, out); err != nil {
		return err
	}

	if s := obj.Metadata["credits"]; s != "" {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil || n < 0 {
			return &booking.ValidationError{Field: "metadata.credits", Message: fmt.Sprintf("invalid credit count %q", s)}
		}
		out.Credits = n
	}
	if s := obj.Metadata["credits_expire_at"]; s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return &booking.ValidationError{Field: "metadata.credits_expire_at", Message: err.Error()}
		}
		out.CreditsExpireAt = &t
	}
	return nil
}

func decodeCharge(raw json.RawMessage, out *payment.Event, amount func(chargeObject) int64) error {
	var obj chargeObject
	if err := json.Unmarshal(raw, &obj); err != nil {
		return &booking.ValidationError{Field: "data.object", Message: err.Error()}
	}
	out.Amount = types.NewMoney(amount(obj), obj.Currency)
	return decodeReservation(obj.Metadata, out)
}

func decodeReservation(meta map[string]string, out *payment.Event) error {
	s := meta["reservation_id"]
	if s == "" {
		return nil
	}
	rid, err := id.ParseReservationID(s)
	if err != nil {
		return &booking.ValidationError{Field: "metadata.reservation_id", Message: err.Error()}
	}
	out.ReservationID = rid
	return nil
}
