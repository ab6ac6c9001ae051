package reservation

import (
	"context"
	"time"

	"github.com/xraph/booking/id"
)

// Store persists reservations and the waitlist index. Every method is
// scoped to a tenant.
type Store interface {
	// LockResource serializes writers on one resource until the enclosing
	// transaction ends. Outside a transaction it is a no-op.
	LockResource(ctx context.Context, tenantID string, resourceID id.ResourceID) error

	InsertReservation(ctx context.Context, r *Reservation) error
	UpdateReservation(ctx context.Context, r *Reservation) error
	GetReservation(ctx context.Context, tenantID string, reservationID id.ReservationID) (*Reservation, error)
	ListReservations(ctx context.Context, tenantID string, opts ListOpts) ([]*Reservation, error)
	// ListLiveOnResource returns pending and confirmed reservations on a
	// resource whose booked interval intersects [from, to).
	ListLiveOnResource(ctx context.Context, tenantID string, resourceID id.ResourceID, from, to time.Time) ([]*Reservation, error)

	// EnqueueWaitlist appends a waiting row for the slot and returns its
	// position, one past the highest position ever issued for the slot.
	EnqueueWaitlist(ctx context.Context, tenantID string, slot SlotKey, reservationID id.ReservationID, at time.Time) (int, error)
	// NextWaitlisted returns the waiting row with the lowest position.
	NextWaitlisted(ctx context.Context, tenantID string, slot SlotKey) (*WaitlistEntry, error)
	SetWaitlistStatus(ctx context.Context, tenantID string, reservationID id.ReservationID, status WaitlistStatus) error
	ListWaitlist(ctx context.Context, tenantID string, slot SlotKey) ([]*WaitlistEntry, error)
}
