package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/payflowhq/payd/internal/core/domain"
)

// AccountStore is what the handler needs from account storage. Balance is
// absent on purpose: it only moves through the ledger engine.
type AccountStore interface {
	CreateAccount(ctx context.Context, name, email string, balance decimal.Decimal, isAgent bool) (*domain.Account, error)
	GetAccount(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	ListAccounts(ctx context.Context, limit, offset int) ([]domain.Account, error)
	UpdateAccount(ctx context.Context, id uuid.UUID, name, email *string) (*domain.Account, error)
}

type AccountHandler struct {
	Repo AccountStore
}

type CreateAccountRequest struct {
	Name           string          `json:"name"`
	Email          string          `json:"email"`
	IsAgent        bool            `json:"is_agent"`
	InitialBalance decimal.Decimal `json:"initial_balance"`
}

type UpdateAccountRequest struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
}

func (h *AccountHandler) CreateAccount(c *fiber.Ctx) error {
	var req CreateAccountRequest
	if err := c.BodyParser(&req); err != nil {
		slog.Warn("Invalid account body", "error", err)
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if req.Name == "" {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Name is required"})
	}
	if !validEmail(req.Email) {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "A valid email is required"})
	}
	if req.InitialBalance.IsNegative() || req.InitialBalance.Exponent() < -2 {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "initial_balance must be non-negative with at most two decimal places"})
	}

	account, err := h.Repo.CreateAccount(c.Context(), req.Name, req.Email, req.InitialBalance, req.IsAgent)
	if errors.Is(err, domain.ErrEmailExists) {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if err != nil {
		slog.Error("Failed to create account", "error", err, "email", req.Email)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "Could not create account"})
	}

	slog.Info("✅ Account created", "id", account.ID, "is_agent", account.IsAgent)
	return c.Status(http.StatusCreated).JSON(account)
}

func (h *AccountHandler) GetAccount(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Invalid account ID"})
	}

	account, err := h.Repo.GetAccount(c.Context(), id)
	if errors.Is(err, domain.ErrAccountNotFound) {
		return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}
	if err != nil {
		slog.Error("Failed to fetch account", "error", err, "account_id", id)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "Could not fetch account"})
	}
	return c.JSON(account)
}

func (h *AccountHandler) ListAccounts(c *fiber.Ctx) error {
	limit, offset := pagination(c)
	accounts, err := h.Repo.ListAccounts(c.Context(), limit, offset)
	if err != nil {
		slog.Error("Failed to list accounts", "error", err)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "Could not list accounts"})
	}
	if accounts == nil {
		accounts = []domain.Account{}
	}
	return c.JSON(fiber.Map{"accounts": accounts})
}

// UpdateAccount patches name and/or email. Balance updates are rejected by
// omission: the request shape has no balance field.
func (h *AccountHandler) UpdateAccount(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Invalid account ID"})
	}

	var req UpdateAccountRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.Name == nil && req.Email == nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Nothing to update"})
	}
	if req.Name != nil && *req.Name == "" {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Name must not be empty"})
	}
	if req.Email != nil && !validEmail(*req.Email) {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "A valid email is required"})
	}

	account, err := h.Repo.UpdateAccount(c.Context(), id, req.Name, req.Email)
	if errors.Is(err, domain.ErrAccountNotFound) {
		return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}
	if errors.Is(err, domain.ErrEmailExists) {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if err != nil {
		slog.Error("Failed to update account", "error", err, "account_id", id)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "Could not update account"})
	}
	return c.JSON(account)
}

func validEmail(email string) bool {
	at := strings.Index(email, "@")
	return at > 0 && at < len(email)-1 && !strings.Contains(email, " ")
}
