package payment

import "context"

// Store persists the payment event log.
type Store interface {
	// InsertPaymentEvent records an event. It returns an error wrapping
	// booking.ErrAlreadyExists when (tenant, provider, external id) is
	// already recorded.
	InsertPaymentEvent(ctx context.Context, ev *Event) error
	GetPaymentEvent(ctx context.Context, tenantID, provider, externalID string) (*Event, error)
	ListPaymentEvents(ctx context.Context, tenantID string, opts ListOpts) ([]*Event, error)
}

// ListOpts filters event listings.
type ListOpts struct {
	Provider string
	Type     EventType
	Limit    int
	Offset   int
}
