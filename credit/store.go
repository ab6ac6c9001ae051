package credit

import (
	"context"
	"time"

	"github.com/xraph/booking/id"
)

// ExpiryCursor resumes ListExpiredGrants after the last grant a sweep has
// seen. Grants are ordered by expiry, then by ID. The zero value starts at
// the oldest expiry.
type ExpiryCursor struct {
	ExpiresAt time.Time
	GrantID   id.CreditEntryID
}

// After reports whether a grant expiring at expiresAt with ID grantID
// sorts after the cursor.
func (c ExpiryCursor) After(expiresAt time.Time, grantID id.CreditEntryID) bool {
	if c.GrantID.IsNil() {
		return true
	}
	if !expiresAt.Equal(c.ExpiresAt) {
		return expiresAt.After(c.ExpiresAt)
	}
	return grantID.String() > c.GrantID.String()
}

// Store persists ledger entries. Entries are only ever inserted.
type Store interface {
	// LockCreditAccount serializes writers on one client's ledger until the
	// enclosing transaction ends.
	LockCreditAccount(ctx context.Context, tenantID, clientID string) error
	InsertCreditEntry(ctx context.Context, e *Entry) error
	// ListCreditEntries returns a client's entries oldest first.
	ListCreditEntries(ctx context.Context, tenantID, clientID string) ([]*Entry, error)
	// ListExpiredGrants returns, across tenants and past the cursor, entries
	// carrying an expiry at or before asOf that no expire entry references
	// yet, in cursor order.
	ListExpiredGrants(ctx context.Context, asOf time.Time, after ExpiryCursor, limit int) ([]*Entry, error)
}
