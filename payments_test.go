package booking_test

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/booking"
	"github.com/xraph/booking/payment"
	"github.com/xraph/booking/payment/hmac"
	"github.com/xraph/booking/reservation"
)

const gatewaySecret = "whsec_test"

func newGatewayFixture(t *testing.T) *fixture {
	t.Helper()
	secrets := payment.StaticSecrets(map[string]string{"studio-1": gatewaySecret})
	return newFixture(t, 1, booking.WithPaymentProvider(hmac.New("gateway", secrets)))
}

func signed(t *testing.T, body map[string]any) ([]byte, string) {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	return payload, hmac.Sign(payload, gatewaySecret)
}

func TestApplyCheckoutConfirmsReservation(t *testing.T) {
	f := newGatewayFixture(t)
	r := f.book("ana", 9)

	payload, sig := signed(t, map[string]any{
		"id":             "evt_1",
		"type":           "checkout_completed",
		"reservation_id": r.ID.String(),
		"amount":         35000,
		"currency":       "mxn",
	})
	res, err := f.engine.ApplyEvent(f.ctx, "studio-1", "gateway", payload, sig)
	require.NoError(t, err)
	assert.True(t, res.Applied())

	got := f.get(r)
	assert.Equal(t, reservation.StateConfirmed, got.State)
	assert.Equal(t, reservation.PaymentPaid, got.PaymentState)

	ev, err := f.engine.GetPaymentEvent(f.ctx, f.actor, "gateway", "evt_1")
	require.NoError(t, err)
	assert.True(t, ev.Processed)
	assert.Equal(t, payment.EventCheckoutCompleted, ev.Type)
}

func TestApplyEventIsIdempotent(t *testing.T) {
	f := newGatewayFixture(t)
	r := f.book("ana", 9)

	payload, sig := signed(t, map[string]any{
		"id":             "evt_replayed",
		"type":           "checkout_completed",
		"reservation_id": r.ID.String(),
		"client_id":      "ana",
		"credits":        5,
	})

	const deliveries = 8
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		statuses = make(map[payment.Status]int)
	)
	for range deliveries {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := f.engine.ApplyEvent(f.ctx, "studio-1", "gateway", payload, sig)
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			statuses[res.Status]++
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, statuses[payment.StatusApplied])
	assert.Equal(t, deliveries-1, statuses[payment.StatusIgnored])
	assert.Equal(t, int64(5), f.balance("ana"), "credits are granted once")

	events, err := f.engine.ListPaymentEvents(f.ctx, f.actor, payment.ListOpts{Provider: "gateway"})
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestApplyEventRejectsBadSignature(t *testing.T) {
	f := newGatewayFixture(t)
	r := f.book("ana", 9)

	payload, _ := signed(t, map[string]any{
		"id":             "evt_forged",
		"type":           "checkout_completed",
		"reservation_id": r.ID.String(),
	})
	_, err := f.engine.ApplyEvent(f.ctx, "studio-1", "gateway", payload, hmac.Sign(payload, "wrong"))
	assert.True(t, booking.IsInvalidSignature(err))

	_, err = f.engine.GetPaymentEvent(f.ctx, f.actor, "gateway", "evt_forged")
	assert.True(t, booking.IsNotFound(err), "rejected events are not recorded")
	assert.Equal(t, reservation.PaymentUnpaid, f.get(r).PaymentState)
}

func TestApplyEventUnknownProvider(t *testing.T) {
	f := newGatewayFixture(t)
	_, err := f.engine.ApplyEvent(f.ctx, "studio-1", "paypal", []byte(`{}`), "")
	assert.True(t, booking.IsValidation(err))
}

func TestApplyEventUnknownReservation(t *testing.T) {
	f := newGatewayFixture(t)
	r := f.book("ana", 9)

	other := newGatewayFixture(t)
	payload, sig := signed(t, map[string]any{
		"id":             "evt_missing",
		"type":           "checkout_completed",
		"reservation_id": other.book("ben", 9).ID.String(),
	})
	_, err := f.engine.ApplyEvent(f.ctx, "studio-1", "gateway", payload, sig)
	assert.True(t, booking.IsNotFound(err))

	_, err = f.engine.GetPaymentEvent(f.ctx, f.actor, "gateway", "evt_missing")
	assert.True(t, booking.IsNotFound(err), "nothing is recorded for a failed event")
	assert.Equal(t, reservation.PaymentUnpaid, f.get(r).PaymentState)
}

func TestApplyEventUnsupportedType(t *testing.T) {
	f := newGatewayFixture(t)

	payload, sig := signed(t, map[string]any{"id": "evt_sub", "type": "subscription_renewed"})
	res, err := f.engine.ApplyEvent(f.ctx, "studio-1", "gateway", payload, sig)
	require.NoError(t, err)
	assert.Equal(t, payment.StatusIgnored, res.Status)

	ev, err := f.engine.GetPaymentEvent(f.ctx, f.actor, "gateway", "evt_sub")
	require.NoError(t, err)
	assert.Contains(t, ev.Outcome, "unsupported")
}

func TestApplyRefund(t *testing.T) {
	f := newGatewayFixture(t)
	r := f.book("ana", 9)

	_, err := f.engine.RecordManualPayment(f.ctx, f.actor, r.ID, f.svc.Price, "desk-1")
	require.NoError(t, err)

	payload, sig := signed(t, map[string]any{
		"id":             "evt_refund",
		"type":           "refund",
		"reservation_id": r.ID.String(),
	})
	res, err := f.engine.ApplyEvent(f.ctx, "studio-1", "gateway", payload, sig)
	require.NoError(t, err)
	assert.True(t, res.Applied())

	got := f.get(r)
	assert.Equal(t, reservation.PaymentRefunded, got.PaymentState)
	assert.Equal(t, reservation.StateConfirmed, got.State, "refunds do not cancel")
}

func TestManualPaymentReferenceIsIdempotent(t *testing.T) {
	f := newFixture(t, 1)
	r := f.book("ana", 9)

	first, err := f.engine.RecordManualPayment(f.ctx, f.actor, r.ID, f.svc.Price, "receipt-42")
	require.NoError(t, err)
	assert.True(t, first.Applied())

	second, err := f.engine.RecordManualPayment(f.ctx, f.actor, r.ID, f.svc.Price, "receipt-42")
	require.NoError(t, err)
	assert.Equal(t, payment.StatusIgnored, second.Status)
	assert.Equal(t, "duplicate", second.Reason)
}
