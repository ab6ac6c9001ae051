package booking

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/xraph/booking/credit"
	"github.com/xraph/booking/id"
	"github.com/xraph/booking/reservation"
	"github.com/xraph/booking/store"
	"github.com/xraph/booking/types"
)

// GrantRequest adds credits to a client's balance.
type GrantRequest struct {
	ClientID  string     `json:"client_id"`
	Amount    int64      `json:"amount"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Reason    string     `json:"reason,omitempty"`
}

// ConsumeRequest spends credits, optionally on behalf of a reservation.
type ConsumeRequest struct {
	ClientID      string           `json:"client_id"`
	Amount        int64            `json:"amount"`
	ReservationID id.ReservationID `json:"reservation_id"`
	Reason        string           `json:"reason,omitempty"`
}

// TransferRequest moves credits between two clients of a tenant.
type TransferRequest struct {
	FromClientID string `json:"from_client_id"`
	ToClientID   string `json:"to_client_id"`
	Amount       int64  `json:"amount"`
	Reason       string `json:"reason,omitempty"`
}

func requireClient(clientID string) error {
	if strings.TrimSpace(clientID) == "" {
		return &ValidationError{Field: "client_id", Message: "is required"}
	}
	return nil
}

// ──────────────────────────────────────────────────
// Ledger writes
// ──────────────────────────────────────────────────

// GrantCredits appends a grant entry. A grant with ExpiresAt forms a lot
// that stops counting once it expires.
func (e *Engine) GrantCredits(ctx context.Context, actor types.Actor, req GrantRequest) (*credit.Entry, error) {
	if err := checkActor(actor); err != nil {
		return nil, err
	}
	if err := requireClient(req.ClientID); err != nil {
		return nil, err
	}
	if req.Amount <= 0 {
		return nil, &ValidationError{Field: "amount", Message: "must be positive"}
	}
	now := e.now()
	if req.ExpiresAt != nil && !req.ExpiresAt.After(now) {
		return nil, &ValidationError{Field: "expires_at", Message: "must be in the future"}
	}

	return e.writeCredit(ctx, &credit.Entry{
		TenantID:  actor.TenantID,
		ClientID:  req.ClientID,
		Type:      credit.EntryGrant,
		Amount:    req.Amount,
		ExpiresAt: utc(req.ExpiresAt),
		Reason:    req.Reason,
	})
}

// ConsumeCredits spends credits. It fails with an InsufficientBalanceError,
// writing nothing, when the live balance does not cover the amount. A
// reservation's credits are consumed at most once.
func (e *Engine) ConsumeCredits(ctx context.Context, actor types.Actor, req ConsumeRequest) (*credit.Entry, error) {
	if err := checkActor(actor); err != nil {
		return nil, err
	}
	if err := requireClient(req.ClientID); err != nil {
		return nil, err
	}
	if req.Amount <= 0 {
		return nil, &ValidationError{Field: "amount", Message: "must be positive"}
	}

	return e.writeCredit(ctx, &credit.Entry{
		TenantID:      actor.TenantID,
		ClientID:      req.ClientID,
		Type:          credit.EntryConsume,
		Amount:        -req.Amount,
		ReservationID: req.ReservationID,
		Reason:        req.Reason,
	})
}

// AdjustCredits appends a signed correction. A negative adjustment may not
// take the balance below zero.
func (e *Engine) AdjustCredits(ctx context.Context, actor types.Actor, clientID string, amount int64, reason string) (*credit.Entry, error) {
	if err := checkActor(actor); err != nil {
		return nil, err
	}
	if err := requireClient(clientID); err != nil {
		return nil, err
	}
	if amount == 0 {
		return nil, &ValidationError{Field: "amount", Message: "must not be zero"}
	}
	if strings.TrimSpace(reason) == "" {
		return nil, &ValidationError{Field: "reason", Message: "is required for an adjustment"}
	}

	return e.writeCredit(ctx, &credit.Entry{
		TenantID: actor.TenantID,
		ClientID: clientID,
		Type:     credit.EntryAdjust,
		Amount:   amount,
		Reason:   reason,
	})
}

// TransferCredits debits one client and grants the same amount to another
// in one transaction.
func (e *Engine) TransferCredits(ctx context.Context, actor types.Actor, req TransferRequest) ([]*credit.Entry, error) {
	if err := checkActor(actor); err != nil {
		return nil, err
	}
	if err := requireClient(req.FromClientID); err != nil {
		return nil, err
	}
	if err := requireClient(req.ToClientID); err != nil {
		return nil, err
	}
	if req.FromClientID == req.ToClientID {
		return nil, &ValidationError{Field: "to_client_id", Message: "must differ from the source client"}
	}
	if req.Amount <= 0 {
		return nil, &ValidationError{Field: "amount", Message: "must be positive"}
	}
	reason := req.Reason
	if reason == "" {
		reason = "transfer from " + req.FromClientID + " to " + req.ToClientID
	}

	var out []*credit.Entry
	err := e.runTx(ctx, func(ctx context.Context, tx store.Store, h *hooks) error {
		// Lock in a fixed order so opposite transfers cannot deadlock.
		clients := []string{req.FromClientID, req.ToClientID}
		slices.Sort(clients)
		for _, c := range clients {
			if err := tx.LockCreditAccount(ctx, actor.TenantID, c); err != nil {
				return err
			}
		}

		now := e.now()
		debit, err := e.appendCredit(ctx, tx, &credit.Entry{
			TenantID: actor.TenantID,
			ClientID: req.FromClientID,
			Type:     credit.EntryAdjust,
			Amount:   -req.Amount,
			Reason:   reason,
		}, now, h)
		if err != nil {
			return err
		}
		grant, err := e.appendCredit(ctx, tx, &credit.Entry{
			TenantID: actor.TenantID,
			ClientID: req.ToClientID,
			Type:     credit.EntryGrant,
			Amount:   req.Amount,
			Reason:   reason,
		}, now, h)
		if err != nil {
			return err
		}
		out = []*credit.Entry{debit, grant}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("credits transferred",
		"tenant_id", actor.TenantID,
		"from", req.FromClientID,
		"to", req.ToClientID,
		"amount", req.Amount,
	)
	return out, nil
}

// PayWithCredits pays an unpaid reservation from the client's balance. An
// active pending reservation is confirmed; a waitlisted one stays pending
// and is confirmed when promoted.
func (e *Engine) PayWithCredits(ctx context.Context, actor types.Actor, reservationID id.ReservationID) (*reservation.Reservation, error) {
	return e.mutate(ctx, actor, reservationID, func(ctx context.Context, tx store.Store, r *reservation.Reservation, now time.Time, h *hooks) error {
		wasConfirmed := r.State == reservation.StateConfirmed
		if err := e.payWithCredits(ctx, tx, r, now, h); err != nil {
			return err
		}
		if err := tx.UpdateReservation(ctx, r); err != nil {
			return err
		}
		if !wasConfirmed && r.State == reservation.StateConfirmed {
			h.add(func(ctx context.Context) { e.plugins.EmitReservationConfirmed(ctx, r) })
		}
		return nil
	})
}

// payWithCredits consumes r's credit cost and marks it paid. The caller
// stores r.
func (e *Engine) payWithCredits(ctx context.Context, tx store.Store, r *reservation.Reservation, now time.Time, h *hooks) error {
	switch {
	case !r.IsLive():
		return &ConflictError{Resource: "reservation", ID: r.ID.String(), Reason: "reservation is " + string(r.State)}
	case r.CreditCost <= 0:
		return &ConflictError{Resource: "reservation", ID: r.ID.String(), Reason: "service is not payable with credits"}
	case r.PaymentState != reservation.PaymentUnpaid || r.CreditsConsumed > 0:
		return &ConflictError{Resource: "reservation", ID: r.ID.String(), Reason: "reservation is already paid"}
	}

	if _, err := e.appendCredit(ctx, tx, &credit.Entry{
		TenantID:      r.TenantID,
		ClientID:      r.ClientID,
		Type:          credit.EntryConsume,
		Amount:        -r.CreditCost,
		ReservationID: r.ID,
		Reason:        "reservation " + r.ID.String(),
	}, now, h); err != nil {
		return err
	}

	r.CreditsConsumed = r.CreditCost
	r.PaymentState = reservation.PaymentPaid
	r.Touch(now)
	if r.State == reservation.StatePending && !r.IsWaitlisted() {
		if err := r.Transition(reservation.StateConfirmed, now); err != nil {
			return transitionError(r, err)
		}
	}
	return nil
}

// writeCredit appends a single entry in its own transaction.
func (e *Engine) writeCredit(ctx context.Context, entry *credit.Entry) (*credit.Entry, error) {
	var out *credit.Entry
	err := e.runTx(ctx, func(ctx context.Context, tx store.Store, h *hooks) error {
		// Retried attempts start from a fresh copy.
		attempt := *entry
		written, err := e.appendCredit(ctx, tx, &attempt, e.now(), h)
		if err != nil {
			return err
		}
		out = written
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// appendCredit locks the client's account, checks that a debit is covered
// by the live balance and inserts entry with its running balance.
func (e *Engine) appendCredit(ctx context.Context, tx store.Store, entry *credit.Entry, now time.Time, h *hooks) (*credit.Entry, error) {
	if err := tx.LockCreditAccount(ctx, entry.TenantID, entry.ClientID); err != nil {
		return nil, err
	}
	entries, err := tx.ListCreditEntries(ctx, entry.TenantID, entry.ClientID)
	if err != nil {
		return nil, err
	}

	if entry.Type == credit.EntryConsume && !entry.ReservationID.IsNil() {
		for _, prev := range entries {
			if prev.Type == credit.EntryConsume && prev.ReservationID == entry.ReservationID {
				return nil, &ConflictError{Resource: "reservation", ID: entry.ReservationID.String(), Reason: "credits already consumed"}
			}
		}
	}

	balance := credit.Balance(entries, now)
	if entry.Amount < 0 && entry.Type != credit.EntryExpire && balance+entry.Amount < 0 {
		return nil, &InsufficientBalanceError{ClientID: entry.ClientID, Available: balance, Requested: -entry.Amount}
	}

	entry.ID = id.NewCreditEntryID()
	entry.CreatedAt = now
	entry.Balance = credit.Balance(append(entries, entry), now)
	if err := tx.InsertCreditEntry(ctx, entry); err != nil {
		return nil, err
	}

	h.add(func(ctx context.Context) { e.plugins.EmitCreditEntry(ctx, entry) })
	return entry, nil
}

// ──────────────────────────────────────────────────
// Ledger reads
// ──────────────────────────────────────────────────

// CreditBalance returns the client's live balance and open lots.
func (e *Engine) CreditBalance(ctx context.Context, actor types.Actor, clientID string) (*credit.Summary, error) {
	if err := checkActor(actor); err != nil {
		return nil, err
	}
	if err := requireClient(clientID); err != nil {
		return nil, err
	}
	entries, err := e.store.ListCreditEntries(ctx, actor.TenantID, clientID)
	if err != nil {
		return nil, err
	}
	sum := credit.Compute(entries, e.now())
	sum.ClientID = clientID
	return &sum, nil
}

// CreditHistory returns the client's entries oldest first.
func (e *Engine) CreditHistory(ctx context.Context, actor types.Actor, clientID string) ([]*credit.Entry, error) {
	if err := checkActor(actor); err != nil {
		return nil, err
	}
	if err := requireClient(clientID); err != nil {
		return nil, err
	}
	return e.store.ListCreditEntries(ctx, actor.TenantID, clientID)
}

// ──────────────────────────────────────────────────
// Expiry
// ──────────────────────────────────────────────────

// ExpireCredits writes an expire entry for every expired lot that still
// held credits and has none yet, across all tenants, and returns how many
// it wrote. Each entry removes what was left of its lot, so after a sweep
// the balance is the plain sum of the entries. Lots used up before they
// expired get no entry. Running it again writes nothing.
func (e *Engine) ExpireCredits(ctx context.Context) (int, error) {
	start := time.Now()
	now := e.now()

	count := 0
	var cursor credit.ExpiryCursor
	for {
		grants, err := e.store.ListExpiredGrants(ctx, now, cursor, e.expiryBatchSize)
		if err != nil {
			return count, err
		}
		for _, g := range grants {
			wrote, err := e.expireLot(ctx, g, now)
			if err != nil {
				return count, err
			}
			if wrote {
				count++
			}
			cursor = credit.ExpiryCursor{ExpiresAt: *g.ExpiresAt, GrantID: g.ID}
		}
		if len(grants) < e.expiryBatchSize {
			break
		}
	}

	if count > 0 {
		elapsed := time.Since(start)
		e.plugins.EmitCreditsExpired(ctx, count, elapsed)
		e.logger.Info("expired credit lots", "count", count, "elapsed_ms", elapsed.Milliseconds())
	}
	return count, nil
}

func (e *Engine) expireLot(ctx context.Context, grant *credit.Entry, now time.Time) (bool, error) {
	wrote := false
	err := e.runTx(ctx, func(ctx context.Context, tx store.Store, h *hooks) error {
		wrote = false
		if err := tx.LockCreditAccount(ctx, grant.TenantID, grant.ClientID); err != nil {
			return err
		}
		entries, err := tx.ListCreditEntries(ctx, grant.TenantID, grant.ClientID)
		if err != nil {
			return err
		}
		for _, prev := range entries {
			if prev.Type == credit.EntryExpire && prev.GrantID == grant.ID {
				return nil
			}
		}

		var remaining int64
		for _, lot := range credit.Compute(entries, now).Lots {
			if lot.GrantID == grant.ID {
				remaining = lot.Remaining
			}
		}
		if remaining == 0 {
			return nil
		}

		if _, err := e.appendCredit(ctx, tx, &credit.Entry{
			TenantID: grant.TenantID,
			ClientID: grant.ClientID,
			Type:     credit.EntryExpire,
			Amount:   -remaining,
			GrantID:  grant.ID,
			Reason:   "lot expired",
		}, now, h); err != nil {
			return err
		}
		wrote = true
		return nil
	})
	return wrote, err
}

// expiryWorker runs ExpireCredits on every tick until Stop.
func (e *Engine) expiryWorker(ctx context.Context) {
	defer e.wg.Done()

	ticker := time.NewTicker(e.expirySweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.stopChan:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := e.ExpireCredits(ctx); err != nil {
				e.logger.Error("credit expiry sweep failed", "error", err)
			}
		}
	}
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
