// Package store defines the transactional storage contract of the booking
// engine. Backends live in the memory, postgres and sqlite subpackages.
package store

import (
	"context"

	"github.com/xraph/booking/credit"
	"github.com/xraph/booking/payment"
	"github.com/xraph/booking/reservation"
	"github.com/xraph/booking/schedule"
	"github.com/xraph/booking/tenant"
)

// TxFunc is the body of a transaction. It must use tx, not the outer
// store, for every read and write that belongs to the transaction.
type TxFunc func(ctx context.Context, tx Store) error

// Store is the unified storage interface for all booking entities.
//
// Not-found lookups return errors wrapping booking.ErrNotFound; unique
// violations wrap booking.ErrAlreadyExists. Serialization failures wrap
// booking.ErrTransactionFailed so callers can retry the whole transaction.
type Store interface {
	schedule.Store
	reservation.Store
	credit.Store
	payment.Store
	tenant.Store

	// RunInTx runs fn in a single transaction. The transaction commits when
	// fn returns nil and rolls back otherwise. Nested calls on the tx store
	// join the outer transaction.
	RunInTx(ctx context.Context, fn TxFunc) error

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
