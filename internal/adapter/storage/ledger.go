package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/payflowhq/payd/internal/core/domain"
	"github.com/payflowhq/payd/internal/core/ledger"
)

// LedgerStore is the Postgres unit-of-work store behind the transfer
// engine. Row locks come from SELECT ... FOR UPDATE; everything inside
// WithinTx commits or rolls back as one.
type LedgerStore struct {
	db *pgxpool.Pool
}

func NewLedgerStore(db *pgxpool.Pool) *LedgerStore {
	return &LedgerStore{db: db}
}

var _ ledger.Store = (*LedgerStore)(nil)

func (s *LedgerStore) WithinTx(ctx context.Context, fn func(tx ledger.Tx) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin unit of work: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&ledgerTx{tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

type ledgerTx struct {
	tx pgx.Tx
}

func (t *ledgerTx) GetAccountForUpdate(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	var acc domain.Account
	err := t.tx.QueryRow(ctx, `
		SELECT id, name, email, balance, is_agent, created_at, updated_at
		FROM accounts WHERE id = $1
		FOR UPDATE`, id).Scan(
		&acc.ID, &acc.Name, &acc.Email, &acc.Balance, &acc.IsAgent, &acc.CreatedAt, &acc.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock account %s: %w", id, err)
	}
	return &acc, nil
}

func (t *ledgerTx) UpdateAccountBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE accounts SET balance = $2, updated_at = now() WHERE id = $1`, id, balance)
	if err != nil {
		return fmt.Errorf("update balance for %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

func (t *ledgerTx) InsertTransaction(ctx context.Context, txn *domain.Transaction) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO transactions (id, from_account_id, to_account_id, amount, status, description, created_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8)`,
		txn.ID, txn.FromAccountID, txn.ToAccountID, txn.Amount, txn.Status, txn.Description, txn.CreatedAt, txn.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("insert transaction %s: %w", txn.ID, err)
	}
	return nil
}

func (s *LedgerStore) GetTransaction(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	var txn domain.Transaction
	err := s.db.QueryRow(ctx, `
		SELECT id, from_account_id, to_account_id, amount, status, COALESCE(description, ''), created_at, completed_at
		FROM transactions WHERE id = $1`, id).Scan(
		&txn.ID, &txn.FromAccountID, &txn.ToAccountID, &txn.Amount, &txn.Status, &txn.Description, &txn.CreatedAt, &txn.CompletedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrTransactionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get transaction %s: %w", id, err)
	}
	return &txn, nil
}

func (s *LedgerStore) ListTransactionsForAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]domain.Transaction, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, from_account_id, to_account_id, amount, status, COALESCE(description, ''), created_at, completed_at
		FROM transactions
		WHERE from_account_id = $1 OR to_account_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, accountID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list transactions for %s: %w", accountID, err)
	}
	defer rows.Close()

	var out []domain.Transaction
	for rows.Next() {
		var txn domain.Transaction
		if err := rows.Scan(
			&txn.ID, &txn.FromAccountID, &txn.ToAccountID, &txn.Amount, &txn.Status, &txn.Description, &txn.CreatedAt, &txn.CompletedAt,
		); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, txn)
	}
	return out, rows.Err()
}
