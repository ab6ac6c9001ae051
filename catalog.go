package booking

import (
	"context"
	"strings"

	"github.com/xraph/booking/id"
	"github.com/xraph/booking/schedule"
	"github.com/xraph/booking/store"
	"github.com/xraph/booking/tenant"
	"github.com/xraph/booking/types"
)

// ──────────────────────────────────────────────────
// Services and resources
// ──────────────────────────────────────────────────

// CreateService validates and stores a new service at version 1.
func (e *Engine) CreateService(ctx context.Context, actor types.Actor, svc *schedule.Service) error {
	if err := checkActor(actor); err != nil {
		return err
	}
	if svc.ID.IsNil() {
		svc.ID = id.NewServiceID()
	}
	svc.TenantID = actor.TenantID
	svc.Version = 1
	if svc.Policy.LatePenalty == "" {
		svc.Policy.LatePenalty = schedule.PenaltyNone
	}
	if err := svc.Validate(); err != nil {
		return fieldError(err)
	}
	svc.Entity = types.NewEntity(e.now())

	return e.store.CreateService(ctx, svc)
}

// UpdateService replaces the editable fields of a service and bumps its
// version. Existing reservations keep the values they were created with.
func (e *Engine) UpdateService(ctx context.Context, actor types.Actor, svc *schedule.Service) (*schedule.Service, error) {
	if err := checkActor(actor); err != nil {
		return nil, err
	}

	var updated *schedule.Service
	err := e.runTx(ctx, func(ctx context.Context, tx store.Store, _ *hooks) error {
		cur, err := tx.GetService(ctx, actor.TenantID, svc.ID)
		if err != nil {
			return err
		}

		next := *cur
		next.Name = svc.Name
		next.Capacity = svc.Capacity
		next.Duration = svc.Duration
		next.BufferBefore = svc.BufferBefore
		next.BufferAfter = svc.BufferAfter
		next.Policy = svc.Policy
		if next.Policy.LatePenalty == "" {
			next.Policy.LatePenalty = schedule.PenaltyNone
		}
		next.CreditCost = svc.CreditCost
		next.Price = svc.Price
		next.Metadata = svc.Metadata
		if err := next.Validate(); err != nil {
			return fieldError(err)
		}
		next.Version = cur.Version + 1
		next.Touch(e.now())

		if err := tx.UpdateService(ctx, &next); err != nil {
			return err
		}
		updated = &next
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("service updated", "tenant_id", actor.TenantID, "service_id", updated.ID, "version", updated.Version)
	return updated, nil
}

// GetService returns a service of the actor's tenant.
func (e *Engine) GetService(ctx context.Context, actor types.Actor, serviceID id.ServiceID) (*schedule.Service, error) {
	if err := checkActor(actor); err != nil {
		return nil, err
	}
	return e.store.GetService(ctx, actor.TenantID, serviceID)
}

// ListServices pages the tenant's services.
func (e *Engine) ListServices(ctx context.Context, actor types.Actor, opts schedule.ListOpts) ([]*schedule.Service, error) {
	if err := checkActor(actor); err != nil {
		return nil, err
	}
	return e.store.ListServices(ctx, actor.TenantID, opts)
}

// CreateResource validates and stores a resource.
func (e *Engine) CreateResource(ctx context.Context, actor types.Actor, res *schedule.Resource) error {
	if err := checkActor(actor); err != nil {
		return err
	}
	if res.ID.IsNil() {
		res.ID = id.NewResourceID()
	}
	res.TenantID = actor.TenantID
	if err := res.Validate(); err != nil {
		return fieldError(err)
	}
	res.Entity = types.NewEntity(e.now())

	return e.store.CreateResource(ctx, res)
}

// GetResource returns a resource of the actor's tenant.
func (e *Engine) GetResource(ctx context.Context, actor types.Actor, resourceID id.ResourceID) (*schedule.Resource, error) {
	if err := checkActor(actor); err != nil {
		return nil, err
	}
	return e.store.GetResource(ctx, actor.TenantID, resourceID)
}

// ListResources pages the tenant's resources.
func (e *Engine) ListResources(ctx context.Context, actor types.Actor, opts schedule.ListOpts) ([]*schedule.Resource, error) {
	if err := checkActor(actor); err != nil {
		return nil, err
	}
	return e.store.ListResources(ctx, actor.TenantID, opts)
}

// ──────────────────────────────────────────────────
// Rules and exceptions
// ──────────────────────────────────────────────────

// AddRule stores a recurring or dated availability window.
func (e *Engine) AddRule(ctx context.Context, actor types.Actor, rule *schedule.Rule) error {
	if err := checkActor(actor); err != nil {
		return err
	}
	if rule.ID.IsNil() {
		rule.ID = id.NewRuleID()
	}
	rule.TenantID = actor.TenantID
	if err := rule.Validate(); err != nil {
		return fieldError(err)
	}
	if err := e.checkScope(ctx, actor.TenantID, rule.ResourceID, rule.ServiceID); err != nil {
		return err
	}
	rule.Entity = types.NewEntity(e.now())

	return e.store.CreateRule(ctx, rule)
}

// DeleteRule removes a rule. Reservations already made are kept.
func (e *Engine) DeleteRule(ctx context.Context, actor types.Actor, ruleID id.RuleID) error {
	if err := checkActor(actor); err != nil {
		return err
	}
	return e.store.DeleteRule(ctx, actor.TenantID, ruleID)
}

// ListRules returns the rules of a resource.
func (e *Engine) ListRules(ctx context.Context, actor types.Actor, resourceID id.ResourceID) ([]*schedule.Rule, error) {
	if err := checkActor(actor); err != nil {
		return nil, err
	}
	return e.store.ListRules(ctx, actor.TenantID, resourceID)
}

// AddException stores a blackout or an extra window for one date.
func (e *Engine) AddException(ctx context.Context, actor types.Actor, exc *schedule.Exception) error {
	if err := checkActor(actor); err != nil {
		return err
	}
	if exc.ID.IsNil() {
		exc.ID = id.NewExceptionID()
	}
	exc.TenantID = actor.TenantID
	exc.Reason = strings.TrimSpace(exc.Reason)
	if err := exc.Validate(); err != nil {
		return fieldError(err)
	}
	if err := e.checkScope(ctx, actor.TenantID, exc.ResourceID, exc.ServiceID); err != nil {
		return err
	}
	exc.Entity = types.NewEntity(e.now())

	return e.store.CreateException(ctx, exc)
}

// DeleteException removes an exception.
func (e *Engine) DeleteException(ctx context.Context, actor types.Actor, exceptionID id.ExceptionID) error {
	if err := checkActor(actor); err != nil {
		return err
	}
	return e.store.DeleteException(ctx, actor.TenantID, exceptionID)
}

// ListExceptions returns a resource's exceptions dated within [from, to].
func (e *Engine) ListExceptions(ctx context.Context, actor types.Actor, resourceID id.ResourceID, from, to schedule.Date) ([]*schedule.Exception, error) {
	if err := checkActor(actor); err != nil {
		return nil, err
	}
	return e.store.ListExceptions(ctx, actor.TenantID, resourceID, from, to)
}

// checkScope verifies that the resource, and the service when set, belong
// to the tenant.
func (e *Engine) checkScope(ctx context.Context, tenantID string, resourceID id.ResourceID, serviceID id.ServiceID) error {
	if _, err := e.store.GetResource(ctx, tenantID, resourceID); err != nil {
		return err
	}
	if serviceID.IsNil() {
		return nil
	}
	_, err := e.store.GetService(ctx, tenantID, serviceID)
	return err
}

// ──────────────────────────────────────────────────
// Tenant settings
// ──────────────────────────────────────────────────

// GetSettings returns the tenant's settings, defaults included.
func (e *Engine) GetSettings(ctx context.Context, actor types.Actor) (*tenant.Settings, error) {
	if err := checkActor(actor); err != nil {
		return nil, err
	}
	return settings(ctx, e.store, actor.TenantID)
}

// UpdateSettings validates and stores the tenant's settings.
func (e *Engine) UpdateSettings(ctx context.Context, actor types.Actor, ts *tenant.Settings) error {
	if err := checkActor(actor); err != nil {
		return err
	}
	ts.TenantID = actor.TenantID
	if ts.CreditTrigger == "" {
		ts.CreditTrigger = tenant.TriggerManual
	}
	if ts.Timezone == "" {
		ts.Timezone = "UTC"
	}
	if err := ts.Validate(); err != nil {
		field, msg, _ := strings.Cut(err.Error(), ": ")
		return &ValidationError{Field: field, Message: msg}
	}
	ts.UpdatedAt = e.now()

	if err := e.store.PutSettings(ctx, ts); err != nil {
		return err
	}

	e.logger.Info("tenant settings updated",
		"tenant_id", ts.TenantID,
		"credit_trigger", ts.CreditTrigger,
		"timezone", ts.Timezone,
	)
	return nil
}
