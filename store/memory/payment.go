package memory

import (
	"context"
	"fmt"

	"github.com/xraph/booking"
	"github.com/xraph/booking/payment"
)

func copyEvent(ev *payment.Event) *payment.Event {
	cp := *ev
	return &cp
}

func (s *Store) InsertPaymentEvent(ctx context.Context, ev *payment.Event) error {
	return s.write(ctx, func(st *state) error {
		k := key(ev.TenantID, ev.Provider, ev.ExternalID)
		if _, ok := st.payments[k]; ok {
			return fmt.Errorf("%w: payment event %s/%s", booking.ErrAlreadyExists, ev.Provider, ev.ExternalID)
		}
		st.payments[k] = copyEvent(ev)
		st.paymentLog = append(st.paymentLog, k)
		return nil
	})
}

func (s *Store) GetPaymentEvent(_ context.Context, tenantID, provider, externalID string) (*payment.Event, error) {
	var out *payment.Event
	err := s.read(func(st *state) error {
		ev, ok := st.payments[key(tenantID, provider, externalID)]
		if !ok {
			return &booking.NotFoundError{Resource: "payment event", ID: provider + "/" + externalID}
		}
		out = copyEvent(ev)
		return nil
	})
	return out, err
}

// ListPaymentEvents returns events newest first.
func (s *Store) ListPaymentEvents(_ context.Context, tenantID string, opts payment.ListOpts) ([]*payment.Event, error) {
	var out []*payment.Event
	err := s.read(func(st *state) error {
		for i := len(st.paymentLog) - 1; i >= 0; i-- {
			ev := st.payments[st.paymentLog[i]]
			if ev.TenantID != tenantID {
				continue
			}
			if opts.Provider != "" && ev.Provider != opts.Provider {
				continue
			}
			if opts.Type != "" && ev.Type != opts.Type {
				continue
			}
			out = append(out, copyEvent(ev))
		}
		return nil
	})
	return page(out, opts.Limit, opts.Offset), err
}
