// Package memory implements store.Store in process memory.
//
// Transactions are serialized by a single writer lock and run against a
// copy of the state that replaces the live state on commit, so a failed
// transaction leaves no trace. Records are copied on the way in and out;
// callers never share pointers with the store.
package memory

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/xraph/booking"
	"github.com/xraph/booking/credit"
	"github.com/xraph/booking/payment"
	"github.com/xraph/booking/reservation"
	"github.com/xraph/booking/schedule"
	"github.com/xraph/booking/store"
	"github.com/xraph/booking/tenant"
)

// Compile-time interface check.
var _ store.Store = (*Store)(nil)

type db struct {
	txMu   sync.Mutex   // one writer at a time
	mu     sync.RWMutex // guards state and closed
	state  *state
	closed bool
}

type state struct {
	services     map[string]*schedule.Service
	resources    map[string]*schedule.Resource
	rules        map[string]*schedule.Rule
	exceptions   map[string]*schedule.Exception
	reservations map[string]*reservation.Reservation
	waitlist     map[string][]*reservation.WaitlistEntry
	credits      []*credit.Entry
	payments     map[string]*payment.Event
	paymentLog   []string
	settings     map[string]*tenant.Settings
}

func newState() *state {
	return &state{
		services:     make(map[string]*schedule.Service),
		resources:    make(map[string]*schedule.Resource),
		rules:        make(map[string]*schedule.Rule),
		exceptions:   make(map[string]*schedule.Exception),
		reservations: make(map[string]*reservation.Reservation),
		waitlist:     make(map[string][]*reservation.WaitlistEntry),
		payments:     make(map[string]*payment.Event),
		settings:     make(map[string]*tenant.Settings),
	}
}

// clone copies the containers. Stored records are replaced, never
// mutated, so they can be shared between the copies.
func (st *state) clone() *state {
	wl := make(map[string][]*reservation.WaitlistEntry, len(st.waitlist))
	for k, v := range st.waitlist {
		wl[k] = slices.Clone(v)
	}
	return &state{
		services:     maps.Clone(st.services),
		resources:    maps.Clone(st.resources),
		rules:        maps.Clone(st.rules),
		exceptions:   maps.Clone(st.exceptions),
		reservations: maps.Clone(st.reservations),
		waitlist:     wl,
		credits:      slices.Clone(st.credits),
		payments:     maps.Clone(st.payments),
		paymentLog:   slices.Clone(st.paymentLog),
		settings:     maps.Clone(st.settings),
	}
}

// Store is an in-memory store. The zero value is not usable; call New.
type Store struct {
	db *db
	tx *state // non-nil inside RunInTx
}

// New returns an empty store.
func New() *Store {
	return &Store{db: &db{state: newState()}}
}

// RunInTx implements store.Store.
func (s *Store) RunInTx(ctx context.Context, fn store.TxFunc) error {
	if s.tx != nil {
		return fn(ctx, s)
	}

	s.db.txMu.Lock()
	defer s.db.txMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	s.db.mu.RLock()
	if s.db.closed {
		s.db.mu.RUnlock()
		return booking.ErrStoreClosed
	}
	work := s.db.state.clone()
	s.db.mu.RUnlock()

	if err := fn(ctx, &Store{db: s.db, tx: work}); err != nil {
		return err
	}

	s.db.mu.Lock()
	s.db.state = work
	s.db.mu.Unlock()
	return nil
}

func (s *Store) read(fn func(st *state) error) error {
	if s.tx != nil {
		return fn(s.tx)
	}
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	if s.db.closed {
		return booking.ErrStoreClosed
	}
	return fn(s.db.state)
}

func (s *Store) write(ctx context.Context, fn func(st *state) error) error {
	if s.tx != nil {
		return fn(s.tx)
	}
	return s.RunInTx(ctx, func(_ context.Context, tx store.Store) error {
		return fn(tx.(*Store).tx)
	})
}

// Migrate is a no-op.
func (s *Store) Migrate(context.Context) error { return nil }

// Ping reports whether the store is open.
func (s *Store) Ping(context.Context) error {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	if s.db.closed {
		return booking.ErrStoreClosed
	}
	return nil
}

// Close marks the store closed. Later calls fail with ErrStoreClosed.
func (s *Store) Close() error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	s.db.closed = true
	return nil
}

func key(tenantID string, parts ...string) string {
	k := tenantID
	for _, p := range parts {
		k += "|" + p
	}
	return k
}

// page applies offset and limit to a sorted result.
func page[T any](items []T, limit, offset int) []T {
	if offset > len(items) {
		offset = len(items)
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}
