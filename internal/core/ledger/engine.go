// Package ledger implements the transfer engine: the only code path allowed
// to move money between accounts.
package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/payflowhq/payd/internal/core/domain"
)

// Engine executes transfers as single units of work against the store.
// It keeps no state of its own between calls; all coordination happens
// through the store's row locks and transaction isolation.
type Engine struct {
	store Store
}

func NewEngine(store Store) *Engine {
	return &Engine{store: store}
}

// Transfer moves amount from one account to another and returns the
// finalized transaction record.
//
// The returned record always carries a terminal status:
//   - Completed: balances were mutated, money is conserved.
//   - Failed: insufficient funds; balances untouched, but the attempt is
//     still committed for audit.
//
// Request-rejected conditions (unknown account, self-transfer, bad amount)
// return an error and leave no record at all. Infrastructure errors abort
// the whole unit of work, so the caller can retry safely.
func (e *Engine) Transfer(ctx context.Context, fromID, toID uuid.UUID, amount decimal.Decimal, description string) (*domain.Transaction, error) {
	// Fail fast before touching the store; the same conditions are
	// guaranteed again under lock by the re-read below.
	if err := domain.ValidateTransfer(fromID, toID, amount); err != nil {
		return nil, err
	}

	var txn *domain.Transaction
	err := e.store.WithinTx(ctx, func(tx Tx) error {
		// Lock both rows in a fixed global order so that two transfers
		// touching the same pair, in either direction, always request
		// the locks in the same sequence. No circular wait can form.
		first, second := orderAccounts(fromID, toID)

		accounts := make(map[uuid.UUID]*domain.Account, 2)
		for _, id := range []uuid.UUID{first, second} {
			acc, err := tx.GetAccountForUpdate(ctx, id)
			if err != nil {
				return err
			}
			accounts[id] = acc
		}
		source := accounts[fromID]
		dest := accounts[toID]

		now := time.Now().UTC()
		record := &domain.Transaction{
			ID:            uuid.New(),
			FromAccountID: fromID,
			ToAccountID:   toID,
			Amount:        amount,
			Status:        domain.StatusPending,
			Description:   description,
			CreatedAt:     now,
		}

		if source.Balance.LessThan(amount) {
			// Expected business failure: commit the audit record,
			// leave both balances untouched.
			record.Status = domain.StatusFailed
			record.CompletedAt = &now
			if err := tx.InsertTransaction(ctx, record); err != nil {
				return err
			}
			txn = record
			return nil
		}

		if err := tx.UpdateAccountBalance(ctx, fromID, source.Balance.Sub(amount)); err != nil {
			return err
		}
		if err := tx.UpdateAccountBalance(ctx, toID, dest.Balance.Add(amount)); err != nil {
			return err
		}

		record.Status = domain.StatusCompleted
		record.CompletedAt = &now
		if err := tx.InsertTransaction(ctx, record); err != nil {
			return err
		}
		txn = record
		return nil
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}

// GetTransaction returns a single transaction by ID.
func (e *Engine) GetTransaction(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	return e.store.GetTransaction(ctx, id)
}

// ListTransactionsForAccount returns transactions where the account is
// either side, newest first.
func (e *Engine) ListTransactionsForAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]domain.Transaction, error) {
	return e.store.ListTransactionsForAccount(ctx, accountID, limit, offset)
}

// orderAccounts returns the two IDs in their canonical lock order: the
// lexicographically smaller UUID string first. The order is total and does
// not depend on which side is the source.
func orderAccounts(a, b uuid.UUID) (uuid.UUID, uuid.UUID) {
	if a.String() < b.String() {
		return a, b
	}
	return b, a
}
