package booking_test

import (
	"context"
	"log"
	"log/slog"
	"testing"
	"time"

	"github.com/xraph/booking"
	"github.com/xraph/booking/schedule"
	"github.com/xraph/booking/store/memory"
	"github.com/xraph/booking/types"
)

// TestDocumentationExamples verifies that all examples in the documentation compile
func TestDocumentationExamples(t *testing.T) {
	// Test Quick Start example from README
	t.Run("QuickStartExample", func(t *testing.T) {
		// Create store (memory for demo, use PostgreSQL in production)
		store := memory.New()

		engine := booking.New(store,
			booking.WithLogger(slog.Default()),
			booking.WithExpirySweepInterval(time.Minute),
		)

		// Start the engine
		ctx := context.Background()
		if err := engine.Start(ctx); err != nil {
			t.Fatal(err)
		}
		defer engine.Stop()

		actor := booking.Actor{TenantID: "studio_123", Role: types.RoleOwner}

		// A class of eight, one credit per seat
		svc := &schedule.Service{
			Name:        "Reformer Pilates",
			Capacity:    8,
			Duration:    50 * time.Minute,
			BufferAfter: 10 * time.Minute,
			CreditCost:  1,
			Price:       types.MXN(35000), // $350.00
			Policy: schedule.Policy{
				CancelCutoff: 12 * time.Hour,
				LatePenalty:  schedule.PenaltyForfeitCredit,
			},
		}
		if err := engine.CreateService(ctx, actor, svc); err != nil {
			t.Fatal(err)
		}

		room := &schedule.Resource{Name: "Studio A"}
		if err := engine.CreateResource(ctx, actor, room); err != nil {
			t.Fatal(err)
		}

		// Open every weekday of next week from 07:00 to 21:00
		for wd := time.Monday; wd <= time.Friday; wd++ {
			if err := engine.AddRule(ctx, actor, &schedule.Rule{
				ResourceID: room.ID,
				Kind:       schedule.RuleWeekly,
				Weekday:    wd,
				Start:      schedule.Clock(7, 0),
				End:        schedule.Clock(21, 0),
			}); err != nil {
				t.Fatal(err)
			}
		}

		from := time.Now().UTC().Truncate(24*time.Hour).Add(24 * time.Hour)
		slots, err := engine.ListSlots(ctx, actor, booking.SlotQuery{
			ServiceID:  svc.ID,
			ResourceID: room.ID,
			From:       from,
			To:         from.Add(7 * 24 * time.Hour),
		})
		if err != nil {
			t.Fatal(err)
		}
		if len(slots) == 0 {
			t.Fatal("expected open slots next week")
		}

		// Sell a pack of ten credits valid for 90 days
		expires := time.Now().Add(90 * 24 * time.Hour)
		if _, err := engine.GrantCredits(ctx, actor, booking.GrantRequest{
			ClientID:  "client_42",
			Amount:    10,
			ExpiresAt: &expires,
			Reason:    "10-class pack",
		}); err != nil {
			t.Fatal(err)
		}

		// Book the first slot and pay with a credit
		r, err := engine.CreateReservation(ctx, actor, booking.CreateRequest{
			ServiceID:  svc.ID,
			ResourceID: room.ID,
			ClientID:   "client_42",
			Start:      slots[0].Start,
		})
		if err != nil {
			t.Fatal(err)
		}
		if r, err = engine.PayWithCredits(ctx, actor, r.ID); err != nil {
			t.Fatal(err)
		}
		log.Printf("Reservation %s is %s\n", r.ID, r.State)

		balance, err := engine.CreditBalance(ctx, actor, "client_42")
		if err != nil {
			t.Fatal(err)
		}
		if balance.Balance != 9 {
			t.Fatalf("balance = %d, want 9", balance.Balance)
		}
	})

	// Test Money type examples
	t.Run("MoneyExamples", func(t *testing.T) {
		// Constructors
		_ = booking.MXN(35000)  // $350.00
		_ = booking.EUR(9900)   // €99.00
		_ = booking.Zero("usd") // $0.00

		// Arithmetic
		m1 := booking.USD(100)
		m2 := booking.USD(200)
		if !m1.Add(m2).Equal(booking.USD(300)) {
			t.Fatal("expected $3.00")
		}

		// Formatting
		_ = m1.String()      // "$1.00"
		_ = m1.FormatMajor() // "1.00"
	})
}
