package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/payflowhq/payd/internal/core/domain"
)

// Store is the engine's view of the backing database. WithinTx opens one
// atomic unit of work: if fn returns an error everything is rolled back,
// otherwise everything commits together.
type Store interface {
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
	GetTransaction(ctx context.Context, id uuid.UUID) (*domain.Transaction, error)
	ListTransactionsForAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]domain.Transaction, error)
}

// Tx exposes the operations available inside an open unit of work.
// GetAccountForUpdate takes a row-level exclusive lock; the balance it
// returns is authoritative against concurrent writers until commit.
type Tx interface {
	GetAccountForUpdate(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	UpdateAccountBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal) error
	InsertTransaction(ctx context.Context, txn *domain.Transaction) error
}
