package payment

import "errors"

// ErrNoSecret is returned by a SecretFunc that has no secret for a tenant.
// Events for such tenants cannot be verified and are rejected.
var ErrNoSecret = errors.New("payment: no webhook secret configured for tenant")
