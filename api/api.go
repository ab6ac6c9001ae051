// Package api exposes the booking engine over HTTP with gin.
//
// Every route under /v1 except the webhook receiver requires an
// X-Tenant-ID header naming the caller's tenant, plus an optional
// X-Actor-Role. Authentication happens in front of this package; the
// headers are trusted as already authorized.
//
// Errors render as {"error": "...", "code": "..."}.
package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/xraph/booking"
)

// Handler serves the booking HTTP API.
type Handler struct {
	engine *booking.Engine
	logger *slog.Logger
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the logger for unexpected errors.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) { h.logger = logger }
}

// New creates a Handler for engine.
func New(engine *booking.Engine, opts ...Option) *Handler {
	h := &Handler{engine: engine, logger: engine.Logger()}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Router returns a gin engine with recovery and every route registered.
func (h *Handler) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	h.Register(r)
	return r
}

// Register mounts the API on r.
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/healthz", h.health)

	// Webhooks authenticate by signature, not by actor headers.
	r.POST("/v1/tenants/:tenant/webhooks/:provider", h.receiveWebhook)

	v1 := r.Group("/v1")
	v1.Use(requireActor())
	{
		v1.POST("/services", h.createService)
		v1.GET("/services", h.listServices)
		v1.GET("/services/:service", h.getService)
		v1.PUT("/services/:service", h.updateService)
		v1.GET("/services/:service/resources/:resource/slots", h.listSlots)
		v1.GET("/services/:service/resources/:resource/waitlist", h.listWaitlist)

		v1.POST("/resources", h.createResource)
		v1.GET("/resources", h.listResources)
		v1.GET("/resources/:resource", h.getResource)
		v1.POST("/resources/:resource/rules", h.addRule)
		v1.GET("/resources/:resource/rules", h.listRules)
		v1.DELETE("/rules/:rule", h.deleteRule)
		v1.POST("/resources/:resource/exceptions", h.addException)
		v1.GET("/resources/:resource/exceptions", h.listExceptions)
		v1.DELETE("/exceptions/:exception", h.deleteException)

		v1.GET("/settings", h.getSettings)
		v1.PUT("/settings", h.updateSettings)

		v1.POST("/reservations", h.createReservation)
		v1.GET("/reservations", h.listReservations)
		v1.GET("/reservations/:id", h.getReservation)
		v1.POST("/reservations/:id/confirm", h.confirm)
		v1.POST("/reservations/:id/cancel", h.cancel)
		v1.POST("/reservations/:id/check-in", h.checkIn)
		v1.POST("/reservations/:id/check-out", h.checkOut)
		v1.POST("/reservations/:id/no-show", h.markNoShow)
		v1.POST("/reservations/:id/reschedule", h.reschedule)
		v1.POST("/reservations/:id/pay-with-credits", h.payWithCredits)
		v1.POST("/reservations/:id/manual-payment", h.manualPayment)

		v1.GET("/clients/:client/credits", h.creditBalance)
		v1.GET("/clients/:client/credits/history", h.creditHistory)
		v1.POST("/clients/:client/credits/grant", h.grantCredits)
		v1.POST("/clients/:client/credits/consume", h.consumeCredits)
		v1.POST("/clients/:client/credits/adjust", h.adjustCredits)
		v1.POST("/clients/:client/credits/transfer", h.transferCredits)

		v1.GET("/payments", h.listPayments)
		v1.GET("/payments/:provider/:external_id", h.getPayment)
	}
}

func (h *Handler) health(c *gin.Context) {
	if err := h.engine.Store().Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
