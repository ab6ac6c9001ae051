package schedule

import (
	"context"

	"github.com/xraph/booking/id"
)

// Store persists the schedule catalog. Every method is scoped to a tenant.
type Store interface {
	CreateService(ctx context.Context, s *Service) error
	GetService(ctx context.Context, tenantID string, serviceID id.ServiceID) (*Service, error)
	UpdateService(ctx context.Context, s *Service) error
	ListServices(ctx context.Context, tenantID string, opts ListOpts) ([]*Service, error)

	CreateResource(ctx context.Context, r *Resource) error
	GetResource(ctx context.Context, tenantID string, resourceID id.ResourceID) (*Resource, error)
	ListResources(ctx context.Context, tenantID string, opts ListOpts) ([]*Resource, error)

	CreateRule(ctx context.Context, r *Rule) error
	DeleteRule(ctx context.Context, tenantID string, ruleID id.RuleID) error
	ListRules(ctx context.Context, tenantID string, resourceID id.ResourceID) ([]*Rule, error)

	CreateException(ctx context.Context, e *Exception) error
	DeleteException(ctx context.Context, tenantID string, exceptionID id.ExceptionID) error
	// ListExceptions returns exceptions dated within [from, to] inclusive.
	ListExceptions(ctx context.Context, tenantID string, resourceID id.ResourceID, from, to Date) ([]*Exception, error)
}

// ListOpts pages catalog listings.
type ListOpts struct {
	Limit  int
	Offset int
}
