package memory

import (
	"context"
	"maps"
	"slices"
	"strings"

	"github.com/xraph/booking"
	"github.com/xraph/booking/id"
	"github.com/xraph/booking/schedule"
)

func copyService(s *schedule.Service) *schedule.Service {
	cp := *s
	cp.Metadata = maps.Clone(s.Metadata)
	return &cp
}

func copyResource(r *schedule.Resource) *schedule.Resource {
	cp := *r
	cp.Metadata = maps.Clone(r.Metadata)
	return &cp
}

func (s *Store) CreateService(ctx context.Context, svc *schedule.Service) error {
	return s.write(ctx, func(st *state) error {
		k := key(svc.TenantID, svc.ID.String())
		if _, ok := st.services[k]; ok {
			return booking.ErrAlreadyExists
		}
		st.services[k] = copyService(svc)
		return nil
	})
}

func (s *Store) GetService(_ context.Context, tenantID string, serviceID id.ServiceID) (*schedule.Service, error) {
	var out *schedule.Service
	err := s.read(func(st *state) error {
		svc, ok := st.services[key(tenantID, serviceID.String())]
		if !ok {
			return &booking.NotFoundError{Resource: "service", ID: serviceID.String()}
		}
		out = copyService(svc)
		return nil
	})
	return out, err
}

func (s *Store) UpdateService(ctx context.Context, svc *schedule.Service) error {
	return s.write(ctx, func(st *state) error {
		k := key(svc.TenantID, svc.ID.String())
		if _, ok := st.services[k]; !ok {
			return &booking.NotFoundError{Resource: "service", ID: svc.ID.String()}
		}
		st.services[k] = copyService(svc)
		return nil
	})
}

func (s *Store) ListServices(_ context.Context, tenantID string, opts schedule.ListOpts) ([]*schedule.Service, error) {
	var out []*schedule.Service
	err := s.read(func(st *state) error {
		for _, svc := range st.services {
			if svc.TenantID == tenantID {
				out = append(out, copyService(svc))
			}
		}
		return nil
	})
	slices.SortFunc(out, func(a, b *schedule.Service) int { return strings.Compare(a.ID.String(), b.ID.String()) })
	return page(out, opts.Limit, opts.Offset), err
}

func (s *Store) CreateResource(ctx context.Context, r *schedule.Resource) error {
	return s.write(ctx, func(st *state) error {
		k := key(r.TenantID, r.ID.String())
		if _, ok := st.resources[k]; ok {
			return booking.ErrAlreadyExists
		}
		st.resources[k] = copyResource(r)
		return nil
	})
}

func (s *Store) GetResource(_ context.Context, tenantID string, resourceID id.ResourceID) (*schedule.Resource, error) {
	var out *schedule.Resource
	err := s.read(func(st *state) error {
		r, ok := st.resources[key(tenantID, resourceID.String())]
		if !ok {
			return &booking.NotFoundError{Resource: "resource", ID: resourceID.String()}
		}
		out = copyResource(r)
		return nil
	})
	return out, err
}

func (s *Store) ListResources(_ context.Context, tenantID string, opts schedule.ListOpts) ([]*schedule.Resource, error) {
	var out []*schedule.Resource
	err := s.read(func(st *state) error {
		for _, r := range st.resources {
			if r.TenantID == tenantID {
				out = append(out, copyResource(r))
			}
		}
		return nil
	})
	slices.SortFunc(out, func(a, b *schedule.Resource) int { return strings.Compare(a.ID.String(), b.ID.String()) })
	return page(out, opts.Limit, opts.Offset), err
}

func (s *Store) CreateRule(ctx context.Context, r *schedule.Rule) error {
	return s.write(ctx, func(st *state) error {
		k := key(r.TenantID, r.ID.String())
		if _, ok := st.rules[k]; ok {
			return booking.ErrAlreadyExists
		}
		cp := *r
		st.rules[k] = &cp
		return nil
	})
}

func (s *Store) DeleteRule(ctx context.Context, tenantID string, ruleID id.RuleID) error {
	return s.write(ctx, func(st *state) error {
		k := key(tenantID, ruleID.String())
		if _, ok := st.rules[k]; !ok {
			return &booking.NotFoundError{Resource: "rule", ID: ruleID.String()}
		}
		delete(st.rules, k)
		return nil
	})
}

func (s *Store) ListRules(_ context.Context, tenantID string, resourceID id.ResourceID) ([]*schedule.Rule, error) {
	var out []*schedule.Rule
	err := s.read(func(st *state) error {
		for _, r := range st.rules {
			if r.TenantID == tenantID && r.ResourceID == resourceID {
				cp := *r
				out = append(out, &cp)
			}
		}
		return nil
	})
	slices.SortFunc(out, func(a, b *schedule.Rule) int { return strings.Compare(a.ID.String(), b.ID.String()) })
	return out, err
}

func (s *Store) CreateException(ctx context.Context, e *schedule.Exception) error {
	return s.write(ctx, func(st *state) error {
		k := key(e.TenantID, e.ID.String())
		if _, ok := st.exceptions[k]; ok {
			return booking.ErrAlreadyExists
		}
		cp := *e
		st.exceptions[k] = &cp
		return nil
	})
}

func (s *Store) DeleteException(ctx context.Context, tenantID string, exceptionID id.ExceptionID) error {
	return s.write(ctx, func(st *state) error {
		k := key(tenantID, exceptionID.String())
		if _, ok := st.exceptions[k]; !ok {
			return &booking.NotFoundError{Resource: "exception", ID: exceptionID.String()}
		}
		delete(st.exceptions, k)
		return nil
	})
}

func (s *Store) ListExceptions(_ context.Context, tenantID string, resourceID id.ResourceID, from, to schedule.Date) ([]*schedule.Exception, error) {
	var out []*schedule.Exception
	err := s.read(func(st *state) error {
		for _, e := range st.exceptions {
			if e.TenantID != tenantID || e.ResourceID != resourceID {
				continue
			}
			if e.Date.Before(from) || to.Before(e.Date) {
				continue
			}
			cp := *e
			out = append(out, &cp)
		}
		return nil
	})
	slices.SortFunc(out, func(a, b *schedule.Exception) int { return strings.Compare(a.ID.String(), b.ID.String()) })
	return out, err
}
