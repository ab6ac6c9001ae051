package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xraph/booking"
	"github.com/xraph/booking/id"
	"github.com/xraph/booking/reservation"
	"github.com/xraph/booking/types"
)

// ── Slots and waitlist ──────────────────────────────

func (h *Handler) listSlots(c *gin.Context) {
	serviceID, ok := h.pathID(c, "service", id.ParseServiceID)
	if !ok {
		return
	}
	resourceID, ok := h.pathID(c, "resource", id.ParseResourceID)
	if !ok {
		return
	}
	from, ok := h.queryTime(c, "from", true)
	if !ok {
		return
	}
	to, ok := h.queryTime(c, "to", true)
	if !ok {
		return
	}

	slots, err := h.engine.ListSlots(c.Request.Context(), actor(c), booking.SlotQuery{
		ServiceID:   serviceID,
		ResourceID:  resourceID,
		From:        from,
		To:          to,
		IncludeFull: c.Query("include_full") == "true",
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"slots": slots})
}

func (h *Handler) listWaitlist(c *gin.Context) {
	serviceID, ok := h.pathID(c, "service", id.ParseServiceID)
	if !ok {
		return
	}
	resourceID, ok := h.pathID(c, "resource", id.ParseResourceID)
	if !ok {
		return
	}
	start, ok := h.queryTime(c, "start", true)
	if !ok {
		return
	}

	entries, err := h.engine.ListWaitlist(c.Request.Context(), actor(c), reservation.SlotKey{
		ServiceID:  serviceID,
		ResourceID: resourceID,
		Start:      start,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"waitlist": entries})
}

// ── Reservations ────────────────────────────────────

func (h *Handler) createReservation(c *gin.Context) {
	var req booking.CreateRequest
	if !h.bind(c, &req) {
		return
	}
	r, err := h.engine.CreateReservation(c.Request.Context(), actor(c), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, r)
}

func (h *Handler) getReservation(c *gin.Context) {
	rsvID, ok := h.pathID(c, "id", id.ParseReservationID)
	if !ok {
		return
	}
	r, err := h.engine.GetReservation(c.Request.Context(), actor(c), rsvID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

func (h *Handler) listReservations(c *gin.Context) {
	opts := reservation.ListOpts{
		ClientID: c.Query("client_id"),
		State:    reservation.State(c.Query("state")),
	}
	if raw := c.Query("service_id"); raw != "" {
		v, err := id.ParseServiceID(raw)
		if err != nil {
			h.invalid(c, "service_id", err.Error())
			return
		}
		opts.ServiceID = v
	}
	if raw := c.Query("resource_id"); raw != "" {
		v, err := id.ParseResourceID(raw)
		if err != nil {
			h.invalid(c, "resource_id", err.Error())
			return
		}
		opts.ResourceID = v
	}
	var ok bool
	if opts.From, ok = h.queryTime(c, "from", false); !ok {
		return
	}
	if opts.To, ok = h.queryTime(c, "to", false); !ok {
		return
	}
	if opts.Limit, ok = h.queryInt(c, "limit"); !ok {
		return
	}
	if opts.Offset, ok = h.queryInt(c, "offset"); !ok {
		return
	}

	list, err := h.engine.ListReservations(c.Request.Context(), actor(c), opts)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reservations": list})
}

type transition func(ctx context.Context, a types.Actor, rsvID id.ReservationID) (*reservation.Reservation, error)

// apply runs a body-less lifecycle transition on the :id reservation.
func (h *Handler) apply(fn transition) gin.HandlerFunc {
	return func(c *gin.Context) {
		rsvID, ok := h.pathID(c, "id", id.ParseReservationID)
		if !ok {
			return
		}
		r, err := fn(c.Request.Context(), actor(c), rsvID)
		if err != nil {
			h.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, r)
	}
}

func (h *Handler) confirm(c *gin.Context)        { h.apply(h.engine.Confirm)(c) }
func (h *Handler) checkIn(c *gin.Context)        { h.apply(h.engine.CheckIn)(c) }
func (h *Handler) checkOut(c *gin.Context)       { h.apply(h.engine.CheckOut)(c) }
func (h *Handler) markNoShow(c *gin.Context)     { h.apply(h.engine.MarkNoShow)(c) }
func (h *Handler) payWithCredits(c *gin.Context) { h.apply(h.engine.PayWithCredits)(c) }

type cancelRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) cancel(c *gin.Context) {
	rsvID, ok := h.pathID(c, "id", id.ParseReservationID)
	if !ok {
		return
	}
	var req cancelRequest
	// The body is optional.
	if c.Request.ContentLength != 0 && !h.bind(c, &req) {
		return
	}
	r, err := h.engine.Cancel(c.Request.Context(), actor(c), rsvID, req.Reason)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

type rescheduleRequest struct {
	Start time.Time `json:"start" binding:"required"`
}

func (h *Handler) reschedule(c *gin.Context) {
	rsvID, ok := h.pathID(c, "id", id.ParseReservationID)
	if !ok {
		return
	}
	var req rescheduleRequest
	if !h.bind(c, &req) {
		return
	}
	r, err := h.engine.Reschedule(c.Request.Context(), actor(c), rsvID, req.Start)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

type manualPaymentRequest struct {
	Amount    types.Money `json:"amount"`
	Reference string      `json:"reference"`
}

func (h *Handler) manualPayment(c *gin.Context) {
	rsvID, ok := h.pathID(c, "id", id.ParseReservationID)
	if !ok {
		return
	}
	var req manualPaymentRequest
	if !h.bind(c, &req) {
		return
	}
	res, err := h.engine.RecordManualPayment(c.Request.Context(), actor(c), rsvID, req.Amount, req.Reference)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
