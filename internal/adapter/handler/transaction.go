package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/payflowhq/payd/internal/core/domain"
	"github.com/payflowhq/payd/internal/core/ledger"
)

// AccountChecker is the lightweight existence check used outside the
// engine's locked path.
type AccountChecker interface {
	AccountExists(ctx context.Context, id uuid.UUID) (bool, error)
}

// JobQueue enqueues webhook events for background delivery.
type JobQueue interface {
	Enqueue(ctx context.Context, url string, payload any) error
}

type TransactionHandler struct {
	Engine   *ledger.Engine
	Accounts AccountChecker

	// Optional webhook fan-out; nil Jobs or empty URL disables it.
	Jobs       JobQueue
	WebhookURL string
}

type TransferRequest struct {
	FromAccountID string          `json:"from_account_id"`
	ToAccountID   string          `json:"to_account_id"`
	Amount        decimal.Decimal `json:"amount"`
	Description   string          `json:"description"`
}

// CreateTransfer executes a transfer and returns the finalized record.
// A Failed record (insufficient funds) is a valid outcome, not an error:
// the caller reads the status field.
func (h *TransactionHandler) CreateTransfer(c *fiber.Ctx) error {
	var req TransferRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	fromID, err := uuid.Parse(req.FromAccountID)
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Invalid from_account_id"})
	}
	toID, err := uuid.Parse(req.ToAccountID)
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Invalid to_account_id"})
	}

	txn, err := h.Engine.Transfer(c.Context(), fromID, toID, req.Amount, req.Description)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrAccountNotFound):
		return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, domain.ErrSameAccount), errors.Is(err, domain.ErrInvalidAmount):
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	default:
		slog.Error("Transfer aborted", "error", err, "from", fromID, "to", toID)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "Transfer aborted, nothing was committed. Safe to retry."})
	}

	slog.Info("Transfer finalized", "transaction_id", txn.ID, "status", txn.Status, "amount", txn.Amount)
	h.notify(c.Context(), txn)

	return c.Status(http.StatusCreated).JSON(txn)
}

func (h *TransactionHandler) GetTransaction(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Invalid transaction ID"})
	}

	txn, err := h.Engine.GetTransaction(c.Context(), id)
	if errors.Is(err, domain.ErrTransactionNotFound) {
		return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}
	if err != nil {
		slog.Error("Failed to fetch transaction", "error", err, "transaction_id", id)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "Could not fetch transaction"})
	}
	return c.JSON(txn)
}

// ListForAccount returns the account's transactions, newest first.
func (h *TransactionHandler) ListForAccount(c *fiber.Ctx) error {
	accountID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Invalid account ID"})
	}

	exists, err := h.Accounts.AccountExists(c.Context(), accountID)
	if err != nil {
		slog.Error("Failed to check account", "error", err, "account_id", accountID)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "Could not fetch transactions"})
	}
	if !exists {
		return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": domain.ErrAccountNotFound.Error()})
	}

	limit, offset := pagination(c)
	txns, err := h.Engine.ListTransactionsForAccount(c.Context(), accountID, limit, offset)
	if err != nil {
		slog.Error("Failed to list transactions", "error", err, "account_id", accountID)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "Could not fetch transactions"})
	}
	if txns == nil {
		txns = []domain.Transaction{}
	}
	return c.JSON(fiber.Map{"transactions": txns})
}

type transferEvent struct {
	Event     string              `json:"event"`
	Timestamp time.Time           `json:"timestamp"`
	Data      *domain.Transaction `json:"data"`
}

func (h *TransactionHandler) notify(ctx context.Context, txn *domain.Transaction) {
	if h.Jobs == nil || h.WebhookURL == "" {
		return
	}
	event := "transfer.completed"
	if txn.Status == domain.StatusFailed {
		event = "transfer.failed"
	}
	payload := transferEvent{Event: event, Timestamp: time.Now().UTC(), Data: txn}
	if err := h.Jobs.Enqueue(ctx, h.WebhookURL, payload); err != nil {
		// Delivery is best-effort; the transfer itself already committed.
		slog.Error("Failed to enqueue webhook", "error", err, "transaction_id", txn.ID)
	}
}

func pagination(c *fiber.Ctx) (limit, offset int) {
	limit = c.QueryInt("limit", 50)
	if limit < 1 || limit > 100 {
		limit = 50
	}
	offset = c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
