package credit_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/booking/credit"
	"github.com/xraph/booking/id"
)

var t0 = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

type ledger struct {
	entries []*credit.Entry
	clock   time.Time
}

func (l *ledger) add(typ credit.EntryType, amount int64, expires *time.Time) *credit.Entry {
	l.clock = l.clock.Add(time.Minute)
	e := &credit.Entry{
		ID:        id.NewCreditEntryID(),
		ClientID:  "client-1",
		Type:      typ,
		Amount:    amount,
		ExpiresAt: expires,
		CreatedAt: l.clock,
	}
	l.entries = append(l.entries, e)
	return e
}

func (l *ledger) expire(grant *credit.Entry, amount int64) {
	e := l.add(credit.EntryExpire, -amount, nil)
	e.GrantID = grant.ID
}

func sum(entries []*credit.Entry) int64 {
	var total int64
	for _, e := range entries {
		total += e.Amount
	}
	return total
}

func TestBalanceWithoutExpiryIsSum(t *testing.T) {
	l := &ledger{clock: t0}
	l.add(credit.EntryGrant, 5, nil)
	l.add(credit.EntryConsume, -3, nil)
	l.add(credit.EntryAdjust, 2, nil)
	l.add(credit.EntryAdjust, -1, nil)

	got := credit.Compute(l.entries, l.clock)
	assert.Equal(t, int64(3), got.Balance)
	assert.Equal(t, sum(l.entries), got.Balance)
	assert.Empty(t, got.Expired)
}

func TestExpiredGrantExcludedBeforeSweep(t *testing.T) {
	l := &ledger{clock: t0}
	expiry := t0.Add(24 * time.Hour)
	grant := l.add(credit.EntryGrant, 5, &expiry)
	l.add(credit.EntryGrant, 2, nil)
	l.add(credit.EntryConsume, -3, nil)

	before := credit.Compute(l.entries, t0.Add(time.Hour))
	assert.Equal(t, int64(4), before.Balance)

	after := credit.Compute(l.entries, expiry)
	assert.Equal(t, int64(2), after.Balance, "expiring lot was drawn first, its remaining 2 drop out")
	require.Len(t, after.Expired, 1)
	assert.Equal(t, grant.ID, after.Expired[0].GrantID)
	assert.Equal(t, int64(2), after.Expired[0].Remaining)

	l.clock = expiry
	l.expire(grant, after.Expired[0].Remaining)

	swept := credit.Compute(l.entries, expiry.Add(time.Hour))
	assert.Equal(t, int64(2), swept.Balance)
	assert.Empty(t, swept.Expired)
	assert.Equal(t, sum(l.entries), swept.Balance)
}

func TestConsumeDrawsEarliestExpiryFirst(t *testing.T) {
	l := &ledger{clock: t0}
	late := t0.Add(30 * 24 * time.Hour)
	early := t0.Add(7 * 24 * time.Hour)
	l.add(credit.EntryGrant, 3, nil)
	l.add(credit.EntryGrant, 3, &late)
	earlyGrant := l.add(credit.EntryGrant, 3, &early)
	l.add(credit.EntryConsume, -4, nil)

	got := credit.Compute(l.entries, t0.Add(time.Hour))
	assert.Equal(t, int64(5), got.Balance)

	for _, lot := range got.Lots {
		assert.NotEqual(t, earlyGrant.ID, lot.GrantID, "early lot should be fully used")
	}

	afterEarly := credit.Compute(l.entries, early)
	assert.Equal(t, int64(5), afterEarly.Balance, "nothing left in the early lot to lose")
}

func TestConsumeSkipsLotsExpiredAtWriteTime(t *testing.T) {
	l := &ledger{clock: t0}
	expiry := t0.Add(2 * time.Minute)
	l.add(credit.EntryGrant, 2, &expiry)
	l.add(credit.EntryGrant, 5, nil)
	l.clock = expiry
	l.add(credit.EntryConsume, -1, nil)

	got := credit.Compute(l.entries, l.clock)
	assert.Equal(t, int64(4), got.Balance)
	require.Len(t, got.Expired, 1)
	assert.Equal(t, int64(2), got.Expired[0].Remaining)
}

func TestExpireIsIdempotentPerGrant(t *testing.T) {
	l := &ledger{clock: t0}
	expiry := t0.Add(time.Hour)
	grant := l.add(credit.EntryGrant, 4, &expiry)
	l.clock = expiry
	l.expire(grant, 4)

	got := credit.Compute(l.entries, expiry.Add(time.Hour))
	assert.Equal(t, int64(0), got.Balance)
	assert.Empty(t, got.Expired)
	assert.Empty(t, got.Lots)
}

func TestLotExpiredAt(t *testing.T) {
	expiry := t0.Add(time.Hour)
	lot := credit.Lot{Remaining: 1, ExpiresAt: &expiry}
	assert.False(t, lot.ExpiredAt(t0))
	assert.True(t, lot.ExpiredAt(expiry))
	assert.False(t, credit.Lot{Remaining: 1}.ExpiredAt(expiry))
}
