// Package booking provides a multi-tenant reservation and ledger engine for
// appointment and class based businesses.
//
// Booking is designed as a library, not a service. Import it into your Go
// application, or run the bundled bookingd binary in front of it. It provides:
//
//   - Real-time availability from schedules, buffers, blackouts and capacity
//   - A reservation lifecycle with FIFO waitlist promotion
//   - An append-only credits ledger with expiring lots
//   - Idempotent reconciliation of payment provider webhooks (Stripe built-in)
//   - Lifecycle hooks for audit trails, metrics and notifications
//
// # Quick Start
//
// Create an engine on the store of your choice:
//
//	import (
//	    "github.com/xraph/booking"
//	    "github.com/xraph/booking/store/postgres"
//	)
//
//	store, err := postgres.Open(ctx, databaseURL)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	engine := booking.New(store,
//	    booking.WithPaymentProvider(stripe.New(payment.StaticSecrets(secrets))),
//	)
//
//	// Migrate and start the credit expiry worker
//	if err := engine.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer engine.Stop()
//
// # Core Concepts
//
// Services describe what is booked and resources where it happens. Rules and
// exceptions open windows on a resource:
//
//	svc := &schedule.Service{Name: "Reformer", Capacity: 8, Duration: time.Hour}
//	engine.CreateService(ctx, actor, svc)
//
// Slots are computed on demand from the schedule and the live reservations:
//
//	slots, err := engine.ListSlots(ctx, actor, booking.SlotQuery{...})
//
// Reservations take a seat, or join the slot's waitlist when it is full:
//
//	r, err := engine.CreateReservation(ctx, actor, booking.CreateRequest{...})
//
// Every call receives a types.Actor naming the tenant. Reads and writes never
// cross tenants.
//
// # Consistency
//
// Capacity, credit consumption and payment application are enforced by store
// transactions, not in-process locks. Writers on one resource, or on one
// client's credits, are serialized by the store. A transaction that loses a
// serialization race is retried and surfaces as a ConflictError once the
// retries are exhausted.
//
// All monetary amounts use integer arithmetic in the smallest currency unit.
//
// # TypeID
//
// All entities use TypeID for globally unique, type-safe identifiers:
//
//	svc_01h2xcejqtf2nbrexx3vqjhp41   // Service ID
//	rsv_01h2xcejqtf2nbrexx3vqjhp41   // Reservation ID
//	crd_01h455vb4pex5vsknk084sn02q   // Credit entry ID
package booking
