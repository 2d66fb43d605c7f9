package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/payflowhq/payd/internal/core/domain"
)

// AccountRepository manages account records. It never touches balances
// outside of account creation; transfers go through the ledger engine.
type AccountRepository struct {
	db *pgxpool.Pool
}

func NewAccountRepository(db *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{db: db}
}

const uniqueViolation = "23505"

func (r *AccountRepository) CreateAccount(ctx context.Context, name, email string, balance decimal.Decimal, isAgent bool) (*domain.Account, error) {
	var acc domain.Account
	err := r.db.QueryRow(ctx, `
		INSERT INTO accounts (id, name, email, balance, is_agent)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, name, email, balance, is_agent, created_at, updated_at`,
		uuid.New(), name, email, balance, isAgent).Scan(
		&acc.ID, &acc.Name, &acc.Email, &acc.Balance, &acc.IsAgent, &acc.CreatedAt, &acc.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return nil, domain.ErrEmailExists
	}
	if err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}
	return &acc, nil
}

func (r *AccountRepository) GetAccount(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	var acc domain.Account
	err := r.db.QueryRow(ctx, `
		SELECT id, name, email, balance, is_agent, created_at, updated_at
		FROM accounts WHERE id = $1`, id).Scan(
		&acc.ID, &acc.Name, &acc.Email, &acc.Balance, &acc.IsAgent, &acc.CreatedAt, &acc.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get account %s: %w", id, err)
	}
	return &acc, nil
}

func (r *AccountRepository) ListAccounts(ctx context.Context, limit, offset int) ([]domain.Account, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, name, email, balance, is_agent, created_at, updated_at
		FROM accounts ORDER BY created_at LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var out []domain.Account
	for rows.Next() {
		var acc domain.Account
		if err := rows.Scan(&acc.ID, &acc.Name, &acc.Email, &acc.Balance, &acc.IsAgent, &acc.CreatedAt, &acc.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		out = append(out, acc)
	}
	return out, rows.Err()
}

// UpdateAccount patches name and/or email; nil means leave unchanged.
// The balance column is not reachable from this query on purpose.
func (r *AccountRepository) UpdateAccount(ctx context.Context, id uuid.UUID, name, email *string) (*domain.Account, error) {
	var acc domain.Account
	err := r.db.QueryRow(ctx, `
		UPDATE accounts
		SET name = COALESCE($2, name), email = COALESCE($3, email), updated_at = now()
		WHERE id = $1
		RETURNING id, name, email, balance, is_agent, created_at, updated_at`,
		id, name, email).Scan(
		&acc.ID, &acc.Name, &acc.Email, &acc.Balance, &acc.IsAgent, &acc.CreatedAt, &acc.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrAccountNotFound
	}
	if isUniqueViolation(err) {
		return nil, domain.ErrEmailExists
	}
	if err != nil {
		return nil, fmt.Errorf("update account %s: %w", id, err)
	}
	return &acc, nil
}

func (r *AccountRepository) AccountExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check account %s: %w", id, err)
	}
	return exists, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
