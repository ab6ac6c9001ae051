package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/booking"
	"github.com/xraph/booking/api"
	"github.com/xraph/booking/availability"
	"github.com/xraph/booking/credit"
	"github.com/xraph/booking/payment"
	"github.com/xraph/booking/payment/hmac"
	"github.com/xraph/booking/reservation"
	"github.com/xraph/booking/schedule"
	"github.com/xraph/booking/store/memory"
	"github.com/xraph/booking/types"
)

const (
	tenantID = "studio-1"
	secret   = "whsec_api"
)

var monday = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

type server struct {
	t      *testing.T
	engine *booking.Engine
	router *gin.Engine
	svc    *schedule.Service
	res    *schedule.Resource
}

func newServer(t *testing.T) *server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ctx := context.Background()
	secrets := payment.StaticSecrets(map[string]string{tenantID: secret})
	engine := booking.New(memory.New(),
		booking.WithClock(types.NewManualClock(monday.Add(-16*time.Hour))),
		booking.WithExpirySweepInterval(0),
		booking.WithPaymentProvider(hmac.New("gateway", secrets)),
	)
	staff := types.Actor{TenantID: tenantID, Role: types.RoleStaff}

	svc := &schedule.Service{Name: "Reformer", Capacity: 1, Duration: time.Hour, CreditCost: 2, Price: types.MXN(35000)}
	require.NoError(t, engine.CreateService(ctx, staff, svc))
	res := &schedule.Resource{Name: "Room A"}
	require.NoError(t, engine.CreateResource(ctx, staff, res))
	require.NoError(t, engine.AddRule(ctx, staff, &schedule.Rule{
		ResourceID: res.ID,
		Kind:       schedule.RuleWeekly,
		Weekday:    time.Monday,
		Start:      schedule.Clock(9, 0),
		End:        schedule.Clock(11, 0),
	}))

	return &server{t: t, engine: engine, router: api.New(engine).Router(), svc: svc, res: res}
}

func (s *server) do(method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case []byte:
		buf.Write(b)
	default:
		require.NoError(s.t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

// call sends an authorized staff request.
func (s *server) call(method, path string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	return s.do(method, path, body, map[string]string{api.HeaderTenant: tenantID})
}

func (s *server) book(client string, hour int) *reservation.Reservation {
	s.t.Helper()
	w := s.call(http.MethodPost, "/v1/reservations", map[string]any{
		"service_id":  s.svc.ID.String(),
		"resource_id": s.res.ID.String(),
		"client_id":   client,
		"start":       monday.Add(time.Duration(hour) * time.Hour),
	})
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())
	var r reservation.Reservation
	decode(s.t, w, &r)
	return &r
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
		Code  string `json:"code"`
	}
	decode(t, w, &body)
	assert.NotEmpty(t, body.Error)
	return body.Code
}

func TestHealthz(t *testing.T) {
	s := newServer(t)
	w := s.do(http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestMissingTenantHeader(t *testing.T) {
	s := newServer(t)
	w := s.do(http.MethodGet, "/v1/services", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, api.CodeInvalidInput, errorCode(t, w))
}

func TestListSlots(t *testing.T) {
	s := newServer(t)
	path := "/v1/services/" + s.svc.ID.String() + "/resources/" + s.res.ID.String() +
		"/slots?from=2026-03-02T00:00:00Z&to=2026-03-03T00:00:00Z"

	w := s.call(http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body struct {
		Slots []availability.Slot `json:"slots"`
	}
	decode(t, w, &body)
	require.Len(t, body.Slots, 2)
	assert.True(t, body.Slots[0].Start.Equal(monday.Add(9*time.Hour)))
	assert.Equal(t, 1, body.Slots[0].Remaining)
}

func TestListSlotsRequiresRange(t *testing.T) {
	s := newServer(t)
	path := "/v1/services/" + s.svc.ID.String() + "/resources/" + s.res.ID.String() + "/slots?from=tomorrow"

	w := s.call(http.MethodGet, path, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReservationLifecycle(t *testing.T) {
	s := newServer(t)
	r := s.book("ana", 9)
	assert.Equal(t, reservation.StatePending, r.State)

	w := s.call(http.MethodPost, "/v1/reservations/"+r.ID.String()+"/confirm", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var got reservation.Reservation
	decode(t, w, &got)
	assert.Equal(t, reservation.StateConfirmed, got.State)

	// Confirming twice is a lifecycle conflict.
	w = s.call(http.MethodPost, "/v1/reservations/"+r.ID.String()+"/confirm", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, api.CodeConflict, errorCode(t, w))

	w = s.call(http.MethodPost, "/v1/reservations/"+r.ID.String()+"/cancel", map[string]string{"reason": "sick"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, w, &got)
	assert.Equal(t, reservation.StateCancelled, got.State)
	require.NotNil(t, got.Cancellation)
	assert.Equal(t, "sick", got.Cancellation.Reason)
}

func TestFullSlotWaitlists(t *testing.T) {
	s := newServer(t)
	s.book("ana", 9)
	second := s.book("ben", 9)
	assert.True(t, second.IsWaitlisted())

	path := "/v1/services/" + s.svc.ID.String() + "/resources/" + s.res.ID.String() +
		"/waitlist?start=2026-03-02T09:00:00Z"
	w := s.call(http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var body struct {
		Waitlist []reservation.WaitlistEntry `json:"waitlist"`
	}
	decode(t, w, &body)
	require.Len(t, body.Waitlist, 1)
	assert.Equal(t, second.ID, body.Waitlist[0].ReservationID)

	w = s.call(http.MethodPost, "/v1/reservations", map[string]any{
		"service_id":  s.svc.ID.String(),
		"resource_id": s.res.ID.String(),
		"client_id":   "cid",
		"start":       monday.Add(9 * time.Hour),
		"no_waitlist": true,
	})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestGetReservationErrors(t *testing.T) {
	s := newServer(t)

	w := s.call(http.MethodGet, "/v1/reservations/not-an-id", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	r := s.book("ana", 9)
	w = s.do(http.MethodGet, "/v1/reservations/"+r.ID.String(), nil, map[string]string{api.HeaderTenant: "studio-2"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, api.CodeNotFound, errorCode(t, w))
}

func TestCredits(t *testing.T) {
	s := newServer(t)

	w := s.call(http.MethodPost, "/v1/clients/ana/credits/grant", map[string]any{"amount": 3, "reason": "pack"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	r := s.book("ana", 9)
	w = s.call(http.MethodPost, "/v1/reservations/"+r.ID.String()+"/pay-with-credits", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.call(http.MethodGet, "/v1/clients/ana/credits", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var sum credit.Summary
	decode(t, w, &sum)
	assert.Equal(t, int64(1), sum.Balance)

	w = s.call(http.MethodPost, "/v1/clients/ana/credits/consume", map[string]any{"amount": 5})
	assert.Equal(t, http.StatusPaymentRequired, w.Code)
	assert.Equal(t, api.CodeInsufficientBalance, errorCode(t, w))

	w = s.call(http.MethodPost, "/v1/clients/ana/credits/transfer", map[string]any{"to_client_id": "ben", "amount": 1})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.call(http.MethodGet, "/v1/clients/ana/credits/history", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var history struct {
		Entries []credit.Entry `json:"entries"`
	}
	decode(t, w, &history)
	assert.Len(t, history.Entries, 3)
}

func TestWebhook(t *testing.T) {
	s := newServer(t)
	r := s.book("ana", 9)

	payload, err := json.Marshal(map[string]any{
		"id":             "evt_1",
		"type":           "checkout_completed",
		"reservation_id": r.ID.String(),
		"amount":         35000,
		"currency":       "mxn",
	})
	require.NoError(t, err)
	path := "/v1/tenants/" + tenantID + "/webhooks/gateway"

	w := s.do(http.MethodPost, path, payload, map[string]string{hmac.DefaultHeader: "bogus"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, api.CodeInvalidSignature, errorCode(t, w))

	sig := hmac.Sign(payload, secret)
	w = s.do(http.MethodPost, path, payload, map[string]string{hmac.DefaultHeader: sig})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"status":"applied","reason":""}`, w.Body.String())

	w = s.do(http.MethodPost, path, payload, map[string]string{hmac.DefaultHeader: sig})
	require.Equal(t, http.StatusOK, w.Code)
	var res payment.Result
	decode(t, w, &res)
	assert.Equal(t, payment.StatusIgnored, res.Status)

	w = s.call(http.MethodGet, "/v1/reservations/"+r.ID.String(), nil)
	var got reservation.Reservation
	decode(t, w, &got)
	assert.Equal(t, reservation.StateConfirmed, got.State)

	w = s.call(http.MethodGet, "/v1/payments?provider=gateway", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var events struct {
		Events []payment.Event `json:"events"`
	}
	decode(t, w, &events)
	assert.Len(t, events.Events, 1)

	w = s.do(http.MethodPost, "/v1/tenants/"+tenantID+"/webhooks/unknown", payload, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWebhookRejectsOversizedBody(t *testing.T) {
	s := newServer(t)
	payload := bytes.Repeat([]byte("x"), 1<<20+1)

	w := s.do(http.MethodPost, "/v1/tenants/"+tenantID+"/webhooks/gateway", payload,
		map[string]string{hmac.DefaultHeader: hmac.Sign(payload, secret)})
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Equal(t, api.CodePayloadTooLarge, errorCode(t, w))

	w = s.call(http.MethodGet, "/v1/payments", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var events struct {
		Events []payment.Event `json:"events"`
	}
	decode(t, w, &events)
	assert.Empty(t, events.Events)
}

func TestCatalogRoutes(t *testing.T) {
	s := newServer(t)

	w := s.call(http.MethodPost, "/v1/services", map[string]any{
		"name":     "Private",
		"capacity": 1,
		"duration": int64(30 * time.Minute),
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var svc schedule.Service
	decode(t, w, &svc)
	assert.False(t, svc.ID.IsNil())

	w = s.call(http.MethodPost, "/v1/services", map[string]any{"name": "Broken", "capacity": 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.call(http.MethodGet, "/v1/services", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Services []schedule.Service `json:"services"`
	}
	decode(t, w, &list)
	assert.Len(t, list.Services, 2)

	w = s.call(http.MethodPost, "/v1/resources/"+s.res.ID.String()+"/exceptions", map[string]any{
		"date":   "2026-03-02",
		"kind":   "blackout",
		"start":  "09:00",
		"end":    "11:00",
		"reason": "maintenance",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.call(http.MethodGet, "/v1/resources/"+s.res.ID.String()+"/exceptions", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var excs struct {
		Exceptions []schedule.Exception `json:"exceptions"`
	}
	decode(t, w, &excs)
	require.Len(t, excs.Exceptions, 1)

	w = s.call(http.MethodDelete, "/v1/exceptions/"+excs.Exceptions[0].ID.String(), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = s.call(http.MethodPut, "/v1/settings", map[string]any{"credit_trigger": "on_create", "timezone": "America/Mexico_City"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.call(http.MethodPut, "/v1/settings", map[string]any{"timezone": "Mars/Olympus"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
