package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/xraph/booking/payment"
)

// maxWebhookBody bounds the payload read from a provider.
const maxWebhookBody = 1 << 20

// receiveWebhook verifies and applies one provider event. Replays answer
// 200 with status "ignored" so providers stop retrying.
func (h *Handler) receiveWebhook(c *gin.Context) {
	name := c.Param("provider")
	prov, ok := h.engine.Provider(name)
	if !ok {
		h.invalid(c, "provider", "unknown provider "+name)
		return
	}
	payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, errorBody{
				Error: "body exceeds " + strconv.FormatInt(tooLarge.Limit, 10) + " bytes",
				Code:  CodePayloadTooLarge,
			})
			return
		}
		h.invalid(c, "body", err.Error())
		return
	}

	res, err := h.engine.ApplyEvent(c.Request.Context(), c.Param("tenant"), name, payload, c.GetHeader(prov.SignatureHeader()))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": res.Status, "reason": res.Reason})
}

func (h *Handler) listPayments(c *gin.Context) {
	opts := payment.ListOpts{
		Provider: c.Query("provider"),
		Type:     payment.EventType(c.Query("type")),
	}
	var ok bool
	if opts.Limit, ok = h.queryInt(c, "limit"); !ok {
		return
	}
	if opts.Offset, ok = h.queryInt(c, "offset"); !ok {
		return
	}
	events, err := h.engine.ListPaymentEvents(c.Request.Context(), actor(c), opts)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

func (h *Handler) getPayment(c *gin.Context) {
	ev, err := h.engine.GetPaymentEvent(c.Request.Context(), actor(c), c.Param("provider"), c.Param("external_id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ev)
}
