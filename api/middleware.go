package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xraph/booking/id"
	"github.com/xraph/booking/types"
)

// Header names carrying the already-authorized caller.
const (
	HeaderTenant = "X-Tenant-ID"
	HeaderRole   = "X-Actor-Role"
)

const actorKey = "booking.actor"

// requireActor reads the actor headers and rejects requests without a
// tenant.
func requireActor() gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID := strings.TrimSpace(c.GetHeader(HeaderTenant))
		if tenantID == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, errorBody{
				Error: "missing " + HeaderTenant + " header",
				Code:  CodeInvalidInput,
			})
			return
		}
		role := types.Role(strings.ToLower(strings.TrimSpace(c.GetHeader(HeaderRole))))
		if role == "" {
			role = types.RoleStaff
		}
		c.Set(actorKey, types.Actor{TenantID: tenantID, Role: role})
		c.Next()
	}
}

func actor(c *gin.Context) types.Actor {
	a, _ := c.Get(actorKey)
	v, _ := a.(types.Actor)
	return v
}

// ──────────────────────────────────────────────────
// Parameter parsing
// ──────────────────────────────────────────────────

func (h *Handler) pathID(c *gin.Context, param string, parse func(string) (id.ID, error)) (id.ID, bool) {
	v, err := parse(c.Param(param))
	if err != nil {
		h.invalid(c, param, err.Error())
		return id.Nil, false
	}
	return v, true
}

func (h *Handler) queryTime(c *gin.Context, name string, required bool) (time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		if required {
			h.invalid(c, name, "is required")
			return time.Time{}, false
		}
		return time.Time{}, true
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		h.invalid(c, name, "must be an RFC 3339 timestamp")
		return time.Time{}, false
	}
	return t, true
}

func (h *Handler) queryInt(c *gin.Context, name string) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		h.invalid(c, name, "must be a non-negative integer")
		return 0, false
	}
	return n, true
}

func (h *Handler) bind(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		h.invalid(c, "body", err.Error())
		return false
	}
	return true
}
