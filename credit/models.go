// Package credit implements the prepaid credits ledger: append-only entries
// and the lot accounting that turns them into a balance.
package credit

import (
	"time"

	"github.com/xraph/booking/id"
)

// EntryType classifies a ledger entry.
type EntryType string

const (
	EntryGrant   EntryType = "grant"
	EntryConsume EntryType = "consume"
	EntryAdjust  EntryType = "adjust"
	EntryExpire  EntryType = "expire"
)

// Entry is an immutable ledger row. Amount is signed: grants and positive
// adjustments add credits, everything else removes them. Balance is the
// client's live balance right after the entry.
type Entry struct {
	ID            id.CreditEntryID `json:"id"`
	TenantID      string           `json:"tenant_id"`
	ClientID      string           `json:"client_id"`
	Type          EntryType        `json:"type"`
	Amount        int64            `json:"amount"`
	Balance       int64            `json:"balance"`
	ReservationID id.ReservationID `json:"reservation_id"`
	GrantID       id.CreditEntryID `json:"grant_id"`
	ExpiresAt     *time.Time       `json:"expires_at,omitempty"`
	Reason        string           `json:"reason,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
}

// Lot is a batch of credits added by one entry, drawn down by later
// consumption, adjustment or expiry.
type Lot struct {
	GrantID   id.CreditEntryID `json:"grant_id"`
	Granted   int64            `json:"granted"`
	Remaining int64            `json:"remaining"`
	ExpiresAt *time.Time       `json:"expires_at,omitempty"`
}

// ExpiredAt reports whether the lot is unusable at now.
func (l Lot) ExpiredAt(now time.Time) bool {
	return l.ExpiresAt != nil && !now.Before(*l.ExpiresAt)
}

// Summary is a client's balance at a point in time.
type Summary struct {
	ClientID string `json:"client_id"`
	Balance  int64  `json:"balance"`
	// Lots lists every lot with credits left, usable or not.
	Lots []Lot `json:"lots"`
	// Expired lists lots that expired with credits left and have no expire
	// entry yet.
	Expired []Lot `json:"expired,omitempty"`
}
