package memory

import (
	"context"
	"sort"
	"time"

	"github.com/xraph/booking"
	"github.com/xraph/booking/credit"
)

// LockCreditAccount is a no-op: transactions already hold the writer lock.
func (s *Store) LockCreditAccount(context.Context, string, string) error { return nil }

func (s *Store) InsertCreditEntry(ctx context.Context, e *credit.Entry) error {
	return s.write(ctx, func(st *state) error {
		for _, existing := range st.credits {
			if existing.ID == e.ID {
				return booking.ErrAlreadyExists
			}
		}
		cp := *e
		st.credits = append(st.credits, &cp)
		return nil
	})
}

func (s *Store) ListCreditEntries(_ context.Context, tenantID, clientID string) ([]*credit.Entry, error) {
	var out []*credit.Entry
	err := s.read(func(st *state) error {
		for _, e := range st.credits {
			if e.TenantID == tenantID && e.ClientID == clientID {
				cp := *e
				out = append(out, &cp)
			}
		}
		return nil
	})
	return out, err
}

func (s *Store) ListExpiredGrants(_ context.Context, asOf time.Time, after credit.ExpiryCursor, limit int) ([]*credit.Entry, error) {
	var out []*credit.Entry
	err := s.read(func(st *state) error {
		settled := make(map[string]bool)
		for _, e := range st.credits {
			if e.Type == credit.EntryExpire {
				settled[e.GrantID.String()] = true
			}
		}
		for _, e := range st.credits {
			if e.ExpiresAt == nil || e.Amount <= 0 || e.ExpiresAt.After(asOf) || settled[e.ID.String()] {
				continue
			}
			if !after.After(*e.ExpiresAt, e.ID) {
				continue
			}
			cp := *e
			out = append(out, &cp)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ExpiresAt.Equal(*out[j].ExpiresAt) {
			return out[i].ExpiresAt.Before(*out[j].ExpiresAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, err
}
