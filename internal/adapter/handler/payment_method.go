package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/payflowhq/payd/internal/core/domain"
)

type PaymentMethodStore interface {
	CreatePaymentMethod(ctx context.Context, accountID uuid.UUID, methodType, tokenID string) (*domain.PaymentMethod, error)
	GetPaymentMethod(ctx context.Context, id uuid.UUID) (*domain.PaymentMethod, error)
	ListPaymentMethods(ctx context.Context, accountID uuid.UUID) ([]domain.PaymentMethod, error)
}

type PaymentMethodHandler struct {
	Repo PaymentMethodStore
}

type CreatePaymentMethodRequest struct {
	AccountID  string `json:"account_id"`
	MethodType string `json:"method_type"`
	TokenID    string `json:"token_id"`
}

// CreatePaymentMethod registers a tokenized payment method. We only ever
// see network tokens here, never raw card numbers.
func (h *PaymentMethodHandler) CreatePaymentMethod(c *fiber.Ctx) error {
	var req CreatePaymentMethodRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	accountID, err := uuid.Parse(req.AccountID)
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Invalid account_id"})
	}
	if req.MethodType == "" || req.TokenID == "" {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "method_type and token_id are required"})
	}

	method, err := h.Repo.CreatePaymentMethod(c.Context(), accountID, req.MethodType, req.TokenID)
	if errors.Is(err, domain.ErrAccountNotFound) {
		return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}
	if errors.Is(err, domain.ErrTokenExists) {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if err != nil {
		slog.Error("Failed to create payment method", "error", err, "account_id", accountID)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "Could not create payment method"})
	}

	return c.Status(http.StatusCreated).JSON(method)
}

func (h *PaymentMethodHandler) GetPaymentMethod(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Invalid payment method ID"})
	}

	method, err := h.Repo.GetPaymentMethod(c.Context(), id)
	if errors.Is(err, domain.ErrPaymentMethodNotFound) {
		return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}
	if err != nil {
		slog.Error("Failed to fetch payment method", "error", err, "method_id", id)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "Could not fetch payment method"})
	}
	return c.JSON(method)
}

func (h *PaymentMethodHandler) ListForAccount(c *fiber.Ctx) error {
	accountID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Invalid account ID"})
	}

	methods, err := h.Repo.ListPaymentMethods(c.Context(), accountID)
	if err != nil {
		slog.Error("Failed to list payment methods", "error", err, "account_id", accountID)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "Could not list payment methods"})
	}
	if methods == nil {
		methods = []domain.PaymentMethod{}
	}
	return c.JSON(fiber.Map{"payment_methods": methods})
}
