package credit

import (
	"slices"
	"time"

	"github.com/xraph/booking/id"
)

// Compute replays entries in order and returns the balance at now.
//
// Every positive entry opens a lot. Negative entries draw from lots that
// were usable when the entry was written, earliest expiry first, lots
// without expiry last. An expire entry closes the lot it names. A lot that
// expired before now contributes nothing, so an expired grant drops out of
// the balance before the sweep writes its expire entry. After the sweep the
// balance equals the plain sum of all entries.
func Compute(entries []*Entry, now time.Time) Summary {
	ordered := slices.Clone(entries)
	slices.SortStableFunc(ordered, func(a, b *Entry) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})

	var (
		lots    []*Lot
		byGrant = make(map[id.CreditEntryID]*Lot)
		deficit int64
	)

	for _, e := range ordered {
		switch {
		case e.Type == EntryExpire:
			if l, ok := byGrant[e.GrantID]; ok {
				l.Remaining = max(0, l.Remaining+e.Amount)
			}
		case e.Amount > 0:
			l := &Lot{GrantID: e.ID, Granted: e.Amount, Remaining: e.Amount, ExpiresAt: e.ExpiresAt}
			lots = append(lots, l)
			byGrant[e.ID] = l
		case e.Amount < 0:
			deficit += draw(lots, -e.Amount, e.CreatedAt)
		}
	}

	sum := Summary{}
	if len(entries) > 0 {
		sum.ClientID = entries[0].ClientID
	}
	for _, l := range lots {
		if l.Remaining == 0 {
			continue
		}
		sum.Lots = append(sum.Lots, *l)
		if l.ExpiredAt(now) {
			sum.Expired = append(sum.Expired, *l)
			continue
		}
		sum.Balance += l.Remaining
	}
	sum.Balance -= deficit
	return sum
}

// Balance is Compute(entries, now).Balance.
func Balance(entries []*Entry, now time.Time) int64 {
	return Compute(entries, now).Balance
}

// draw takes need credits from the usable lots at t and returns what could
// not be covered.
func draw(lots []*Lot, need int64, t time.Time) int64 {
	usable := make([]*Lot, 0, len(lots))
	for _, l := range lots {
		if l.Remaining > 0 && !l.ExpiredAt(t) {
			usable = append(usable, l)
		}
	}
	slices.SortStableFunc(usable, func(a, b *Lot) int {
		switch {
		case a.ExpiresAt == nil && b.ExpiresAt == nil:
			return 0
		case a.ExpiresAt == nil:
			return 1
		case b.ExpiresAt == nil:
			return -1
		default:
			return a.ExpiresAt.Compare(*b.ExpiresAt)
		}
	})

	for _, l := range usable {
		if need == 0 {
			break
		}
		take := min(need, l.Remaining)
		l.Remaining -= take
		need -= take
	}
	return need
}
