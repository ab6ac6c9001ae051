package types

import "strings"

// Role is the already-authorized role of the caller. The engine does not
// authorize by role; it records it for audit.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleStaff  Role = "staff"
	RoleClient Role = "client"
	RoleSystem Role = "system"
)

// Actor identifies who is calling and for which tenant. Every engine call
// receives one explicitly; there is no ambient tenant.
type Actor struct {
	TenantID string `json:"tenant_id"`
	Role     Role   `json:"role"`
}

// Valid reports whether the actor names a tenant.
func (a Actor) Valid() bool {
	return strings.TrimSpace(a.TenantID) != ""
}

// System returns the actor used by background workers for tenantID.
func System(tenantID string) Actor {
	return Actor{TenantID: tenantID, Role: RoleSystem}
}
