package memory

import (
	"context"

	"github.com/xraph/booking"
	"github.com/xraph/booking/tenant"
)

func (s *Store) GetSettings(_ context.Context, tenantID string) (*tenant.Settings, error) {
	var out *tenant.Settings
	err := s.read(func(st *state) error {
		ts, ok := st.settings[tenantID]
		if !ok {
			return &booking.NotFoundError{Resource: "tenant settings", ID: tenantID}
		}
		cp := *ts
		out = &cp
		return nil
	})
	return out, err
}

func (s *Store) PutSettings(ctx context.Context, ts *tenant.Settings) error {
	return s.write(ctx, func(st *state) error {
		cp := *ts
		st.settings[ts.TenantID] = &cp
		return nil
	})
}
