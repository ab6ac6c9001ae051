package hmac_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/booking"
	"github.com/xraph/booking/id"
	"github.com/xraph/booking/payment"
	"github.com/xraph/booking/payment/hmac"
)

func TestDecode(t *testing.T) {
	p := hmac.New("mercadopago", payment.StaticSecrets(map[string]string{"*": "s3cret"}))
	rid := id.NewReservationID()
	payload := []byte(fmt.Sprintf(`{"id":"mp-1","type":"checkout_completed","reservation_id":%q,"amount":35000,"currency":"MXN"}`, rid))

	ev, err := p.Decode(context.Background(), "studio-1", payload, "sha256="+hmac.Sign(payload, "s3cret"))
	require.NoError(t, err)
	assert.Equal(t, "mercadopago", ev.Provider)
	assert.Equal(t, "mp-1", ev.ExternalID)
	assert.Equal(t, payment.EventCheckoutCompleted, ev.Type)
	assert.Equal(t, rid, ev.ReservationID)
	assert.Equal(t, "mxn", ev.Amount.Currency)
}

func TestDecodeRejectsForgery(t *testing.T) {
	p := hmac.New("pos", payment.StaticSecrets(map[string]string{"studio-1": "s3cret"}))
	payload := []byte(`{"id":"pos-1","type":"checkout_completed"}`)

	tests := []struct {
		name   string
		tenant string
		sig    string
	}{
		{"wrong secret", "studio-1", hmac.Sign(payload, "other")},
		{"not hex", "studio-1", "zz"},
		{"empty", "studio-1", ""},
		{"no secret for tenant", "studio-9", hmac.Sign(payload, "s3cret")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Decode(context.Background(), tt.tenant, payload, tt.sig)
			assert.True(t, booking.IsInvalidSignature(err), "got %v", err)
		})
	}
}

func TestDecodeValidatesBody(t *testing.T) {
	p := hmac.New("pos", payment.StaticSecrets(map[string]string{"*": "k"}))
	payload := []byte(`{"type":"checkout_completed"}`)

	_, err := p.Decode(context.Background(), "studio-1", payload, hmac.Sign(payload, "k"))
	assert.True(t, booking.IsValidation(err))
}

func TestVerifyHeaderOverride(t *testing.T) {
	p := hmac.New("pos", nil).WithHeader("X-Pos-Signature")
	assert.Equal(t, "X-Pos-Signature", p.SignatureHeader())
	assert.True(t, hmac.Verify([]byte("x"), hmac.Sign([]byte("x"), "k"), "k"))
}
