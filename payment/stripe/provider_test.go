package stripe_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/xraph/booking"
	"github.com/xraph/booking/id"
	"github.com/xraph/booking/payment"
	"github.com/xraph/booking/payment/stripe"
)

const secret = "whsec_test_secret"

func sign(t *testing.T, payload string, key string) string {
	t.Helper()
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte(payload),
		Secret:    key,
		Timestamp: time.Now(),
	})
	return signed.Header
}

func provider() *stripe.Provider {
	return stripe.New(payment.StaticSecrets(map[string]string{"studio-1": secret}))
}

func TestDecodeCheckout(t *testing.T) {
	rid := id.NewReservationID()
	payload := fmt.Sprintf(`{
		"id": "evt_checkout_1",
		"object": "event",
		"type": "checkout.session.completed",
		"data": {"object": {
			"id": "cs_test_1",
			"amount_total": 35000,
			"currency": "mxn",
			"client_reference_id": "client-7",
			"metadata": {"reservation_id": %q, "credits": "10", "credits_expire_at": "2026-12-31T00:00:00Z"}
		}}
	}`, rid)

	ev, err := provider().Decode(context.Background(), "studio-1", []byte(payload), sign(t, payload, secret))
	require.NoError(t, err)

	assert.Equal(t, "evt_checkout_1", ev.ExternalID)
	assert.Equal(t, stripe.ProviderName, ev.Provider)
	assert.Equal(t, payment.EventCheckoutCompleted, ev.Type)
	assert.Equal(t, rid, ev.ReservationID)
	assert.Equal(t, "client-7", ev.ClientID)
	assert.Equal(t, int64(10), ev.Credits)
	require.NotNil(t, ev.CreditsExpireAt)
	assert.Equal(t, int64(35000), ev.Amount.Amount)
	assert.Equal(t, "mxn", ev.Amount.Currency)
}

func TestDecodeRefund(t *testing.T) {
	rid := id.NewReservationID()
	payload := fmt.Sprintf(`{
		"id": "evt_refund_1",
		"object": "event",
		"type": "charge.refunded",
		"data": {"object": {"id": "ch_1", "amount": 35000, "amount_refunded": 35000, "currency": "mxn",
			"metadata": {"reservation_id": %q}}}
	}`, rid)

	ev, err := provider().Decode(context.Background(), "studio-1", []byte(payload), sign(t, payload, secret))
	require.NoError(t, err)
	assert.Equal(t, payment.EventRefund, ev.Type)
	assert.Equal(t, rid, ev.ReservationID)
	assert.Equal(t, int64(35000), ev.Amount.Amount)
}

func TestDecodeUnknownTypeKeepsRawType(t *testing.T) {
	payload := `{"id": "evt_x", "object": "event", "type": "customer.created", "data": {"object": {"id": "cus_1"}}}`

	ev, err := provider().Decode(context.Background(), "studio-1", []byte(payload), sign(t, payload, secret))
	require.NoError(t, err)
	assert.Equal(t, payment.EventType("customer.created"), ev.Type)
}

func TestDecodeRejectsBadSignature(t *testing.T) {
	payload := `{"id": "evt_1", "object": "event", "type": "checkout.session.completed", "data": {"object": {}}}`

	tests := []struct {
		name      string
		tenant    string
		signature string
	}{
		{"wrong secret", "studio-1", sign(t, payload, "whsec_other")},
		{"missing header", "studio-1", ""},
		{"garbage header", "studio-1", "t=1,v1=deadbeef"},
		{"unknown tenant", "studio-2", sign(t, payload, secret)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := provider().Decode(context.Background(), tt.tenant, []byte(payload), tt.signature)
			require.Error(t, err)
			assert.True(t, booking.IsInvalidSignature(err))
		})
	}
}

func TestDecodeRejectsTamperedPayload(t *testing.T) {
	payload := `{"id": "evt_1", "object": "event", "type": "checkout.session.completed", "data": {"object": {"amount_total": 100}}}`
	header := sign(t, payload, secret)
	tampered := `{"id": "evt_1", "object": "event", "type": "checkout.session.completed", "data": {"object": {"amount_total": 1}}}`

	_, err := provider().Decode(context.Background(), "studio-1", []byte(tampered), header)
	assert.True(t, booking.IsInvalidSignature(err))
}

func TestDecodeInvalidReservationReference(t *testing.T) {
	payload := `{"id": "evt_2", "object": "event", "type": "checkout.session.completed",
		"data": {"object": {"metadata": {"reservation_id": "not-an-id"}}}}`

	_, err := provider().Decode(context.Background(), "studio-1", []byte(payload), sign(t, payload, secret))
	assert.True(t, booking.IsValidation(err))
}
