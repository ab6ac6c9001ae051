package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xraph/booking/id"
	"github.com/xraph/booking/schedule"
	"github.com/xraph/booking/tenant"
)

func (h *Handler) listOpts(c *gin.Context) (schedule.ListOpts, bool) {
	limit, ok := h.queryInt(c, "limit")
	if !ok {
		return schedule.ListOpts{}, false
	}
	offset, ok := h.queryInt(c, "offset")
	if !ok {
		return schedule.ListOpts{}, false
	}
	return schedule.ListOpts{Limit: limit, Offset: offset}, true
}

// ── Services ────────────────────────────────────────

func (h *Handler) createService(c *gin.Context) {
	var svc schedule.Service
	if !h.bind(c, &svc) {
		return
	}
	if err := h.engine.CreateService(c.Request.Context(), actor(c), &svc); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, svc)
}

func (h *Handler) getService(c *gin.Context) {
	serviceID, ok := h.pathID(c, "service", id.ParseServiceID)
	if !ok {
		return
	}
	svc, err := h.engine.GetService(c.Request.Context(), actor(c), serviceID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, svc)
}

func (h *Handler) updateService(c *gin.Context) {
	serviceID, ok := h.pathID(c, "service", id.ParseServiceID)
	if !ok {
		return
	}
	var svc schedule.Service
	if !h.bind(c, &svc) {
		return
	}
	svc.ID = serviceID
	updated, err := h.engine.UpdateService(c.Request.Context(), actor(c), &svc)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *Handler) listServices(c *gin.Context) {
	opts, ok := h.listOpts(c)
	if !ok {
		return
	}
	services, err := h.engine.ListServices(c.Request.Context(), actor(c), opts)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"services": services})
}

// ── Resources ───────────────────────────────────────

func (h *Handler) createResource(c *gin.Context) {
	var res schedule.Resource
	if !h.bind(c, &res) {
		return
	}
	if err := h.engine.CreateResource(c.Request.Context(), actor(c), &res); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) getResource(c *gin.Context) {
	resourceID, ok := h.pathID(c, "resource", id.ParseResourceID)
	if !ok {
		return
	}
	res, err := h.engine.GetResource(c.Request.Context(), actor(c), resourceID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) listResources(c *gin.Context) {
	opts, ok := h.listOpts(c)
	if !ok {
		return
	}
	resources, err := h.engine.ListResources(c.Request.Context(), actor(c), opts)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"resources": resources})
}

// ── Rules and exceptions ────────────────────────────

func (h *Handler) addRule(c *gin.Context) {
	resourceID, ok := h.pathID(c, "resource", id.ParseResourceID)
	if !ok {
		return
	}
	var rule schedule.Rule
	if !h.bind(c, &rule) {
		return
	}
	rule.ResourceID = resourceID
	if err := h.engine.AddRule(c.Request.Context(), actor(c), &rule); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, rule)
}

func (h *Handler) listRules(c *gin.Context) {
	resourceID, ok := h.pathID(c, "resource", id.ParseResourceID)
	if !ok {
		return
	}
	rules, err := h.engine.ListRules(c.Request.Context(), actor(c), resourceID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rules": rules})
}

func (h *Handler) deleteRule(c *gin.Context) {
	ruleID, ok := h.pathID(c, "rule", id.ParseRuleID)
	if !ok {
		return
	}
	if err := h.engine.DeleteRule(c.Request.Context(), actor(c), ruleID); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) addException(c *gin.Context) {
	resourceID, ok := h.pathID(c, "resource", id.ParseResourceID)
	if !ok {
		return
	}
	var exc schedule.Exception
	if !h.bind(c, &exc) {
		return
	}
	exc.ResourceID = resourceID
	if err := h.engine.AddException(c.Request.Context(), actor(c), &exc); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, exc)
}

func (h *Handler) listExceptions(c *gin.Context) {
	resourceID, ok := h.pathID(c, "resource", id.ParseResourceID)
	if !ok {
		return
	}
	// Open-ended unless bounded by the query.
	from, to := schedule.Date{}, schedule.Date{Year: 9999, Month: time.December, Day: 31}
	if raw := c.Query("from"); raw != "" {
		d, err := schedule.ParseDate(raw)
		if err != nil {
			h.invalid(c, "from", "must be a YYYY-MM-DD date")
			return
		}
		from = d
	}
	if raw := c.Query("to"); raw != "" {
		d, err := schedule.ParseDate(raw)
		if err != nil {
			h.invalid(c, "to", "must be a YYYY-MM-DD date")
			return
		}
		to = d
	}
	excs, err := h.engine.ListExceptions(c.Request.Context(), actor(c), resourceID, from, to)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"exceptions": excs})
}

func (h *Handler) deleteException(c *gin.Context) {
	exceptionID, ok := h.pathID(c, "exception", id.ParseExceptionID)
	if !ok {
		return
	}
	if err := h.engine.DeleteException(c.Request.Context(), actor(c), exceptionID); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ── Settings ────────────────────────────────────────

func (h *Handler) getSettings(c *gin.Context) {
	ts, err := h.engine.GetSettings(c.Request.Context(), actor(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ts)
}

func (h *Handler) updateSettings(c *gin.Context) {
	var ts tenant.Settings
	if !h.bind(c, &ts) {
		return
	}
	if err := h.engine.UpdateSettings(c.Request.Context(), actor(c), &ts); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ts)
}
