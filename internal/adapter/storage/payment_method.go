package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/payflowhq/payd/internal/core/domain"
)

const foreignKeyViolation = "23503"

// PaymentMethodRepository stores tokenized payment methods.
type PaymentMethodRepository struct {
	db *pgxpool.Pool
}

func NewPaymentMethodRepository(db *pgxpool.Pool) *PaymentMethodRepository {
	return &PaymentMethodRepository{db: db}
}

func (r *PaymentMethodRepository) CreatePaymentMethod(ctx context.Context, accountID uuid.UUID, methodType, tokenID string) (*domain.PaymentMethod, error) {
	var method domain.PaymentMethod
	err := r.db.QueryRow(ctx, `
		INSERT INTO payment_methods (id, account_id, method_type, token_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, account_id, method_type, token_id, is_active, created_at`,
		uuid.New(), accountID, methodType, tokenID).Scan(
		&method.ID, &method.AccountID, &method.MethodType, &method.TokenID, &method.IsActive, &method.CreatedAt,
	)
	if isUniqueViolation(err) {
		return nil, domain.ErrTokenExists
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
		return nil, domain.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("create payment method: %w", err)
	}
	return &method, nil
}

func (r *PaymentMethodRepository) GetPaymentMethod(ctx context.Context, id uuid.UUID) (*domain.PaymentMethod, error) {
	var method domain.PaymentMethod
	err := r.db.QueryRow(ctx, `
		SELECT id, account_id, method_type, token_id, is_active, created_at
		FROM payment_methods WHERE id = $1`, id).Scan(
		&method.ID, &method.AccountID, &method.MethodType, &method.TokenID, &method.IsActive, &method.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrPaymentMethodNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get payment method %s: %w", id, err)
	}
	return &method, nil
}

func (r *PaymentMethodRepository) ListPaymentMethods(ctx context.Context, accountID uuid.UUID) ([]domain.PaymentMethod, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, account_id, method_type, token_id, is_active, created_at
		FROM payment_methods WHERE account_id = $1 ORDER BY created_at`, accountID)
	if err != nil {
		return nil, fmt.Errorf("list payment methods for %s: %w", accountID, err)
	}
	defer rows.Close()

	var out []domain.PaymentMethod
	for rows.Next() {
		var method domain.PaymentMethod
		if err := rows.Scan(&method.ID, &method.AccountID, &method.MethodType, &method.TokenID, &method.IsActive, &method.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan payment method: %w", err)
		}
		out = append(out, method)
	}
	return out, rows.Err()
}
