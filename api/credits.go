package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xraph/booking"
	"github.com/xraph/booking/id"
)

func (h *Handler) creditBalance(c *gin.Context) {
	sum, err := h.engine.CreditBalance(c.Request.Context(), actor(c), c.Param("client"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

func (h *Handler) creditHistory(c *gin.Context) {
	entries, err := h.engine.CreditHistory(c.Request.Context(), actor(c), c.Param("client"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

type grantRequest struct {
	Amount    int64      `json:"amount"`
	ExpiresAt *time.Time `json:"expires_at"`
	Reason    string     `json:"reason"`
}

func (h *Handler) grantCredits(c *gin.Context) {
	var req grantRequest
	if !h.bind(c, &req) {
		return
	}
	entry, err := h.engine.GrantCredits(c.Request.Context(), actor(c), booking.GrantRequest{
		ClientID:  c.Param("client"),
		Amount:    req.Amount,
		ExpiresAt: req.ExpiresAt,
		Reason:    req.Reason,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

type consumeRequest struct {
	Amount        int64  `json:"amount"`
	ReservationID string `json:"reservation_id"`
	Reason        string `json:"reason"`
}

func (h *Handler) consumeCredits(c *gin.Context) {
	var req consumeRequest
	if !h.bind(c, &req) {
		return
	}
	rsvID := id.Nil
	if req.ReservationID != "" {
		v, err := id.ParseReservationID(req.ReservationID)
		if err != nil {
			h.invalid(c, "reservation_id", err.Error())
			return
		}
		rsvID = v
	}
	entry, err := h.engine.ConsumeCredits(c.Request.Context(), actor(c), booking.ConsumeRequest{
		ClientID:      c.Param("client"),
		Amount:        req.Amount,
		ReservationID: rsvID,
		Reason:        req.Reason,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

type adjustRequest struct {
	Amount int64  `json:"amount"`
	Reason string `json:"reason"`
}

func (h *Handler) adjustCredits(c *gin.Context) {
	var req adjustRequest
	if !h.bind(c, &req) {
		return
	}
	entry, err := h.engine.AdjustCredits(c.Request.Context(), actor(c), c.Param("client"), req.Amount, req.Reason)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

type transferRequest struct {
	ToClientID string `json:"to_client_id"`
	Amount     int64  `json:"amount"`
	Reason     string `json:"reason"`
}

func (h *Handler) transferCredits(c *gin.Context) {
	var req transferRequest
	if !h.bind(c, &req) {
		return
	}
	entries, err := h.engine.TransferCredits(c.Request.Context(), actor(c), booking.TransferRequest{
		FromClientID: c.Param("client"),
		ToClientID:   req.ToClientID,
		Amount:       req.Amount,
		Reason:       req.Reason,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"entries": entries})
}
