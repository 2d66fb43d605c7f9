package handler_test

import (
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/payflowhq/payd/internal/core/domain"
)

func TestCreatePaymentMethod(t *testing.T) {
	app, store, _ := newTestApp(t)
	acc := seed(t, store, "alice", "0.00")

	resp := doJSON(t, app, fiber.MethodPost, "/v1/methods", fiber.Map{
		"account_id":  acc.ID,
		"method_type": "Apple Pay",
		"token_id":    "tok_abc123",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	method := decodeBody[domain.PaymentMethod](t, resp)
	assert.Equal(t, acc.ID, method.AccountID)
	assert.Equal(t, "Apple Pay", method.MethodType)
	assert.True(t, method.IsActive)

	// Duplicate token is rejected.
	resp = doJSON(t, app, fiber.MethodPost, "/v1/methods", fiber.Map{
		"account_id":  acc.ID,
		"method_type": "Card Token",
		"token_id":    "tok_abc123",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Unknown account is a 404.
	resp = doJSON(t, app, fiber.MethodPost, "/v1/methods", fiber.Map{
		"account_id":  uuid.New(),
		"method_type": "Card Token",
		"token_id":    "tok_other",
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGetAndListPaymentMethods(t *testing.T) {
	app, store, _ := newTestApp(t)
	acc := seed(t, store, "alice", "0.00")

	created := decodeBody[domain.PaymentMethod](t, doJSON(t, app, fiber.MethodPost, "/v1/methods", fiber.Map{
		"account_id":  acc.ID,
		"method_type": "Stablecoin",
		"token_id":    "tok_xyz",
	}))

	resp := doJSON(t, app, fiber.MethodGet, "/v1/methods/"+created.ID.String(), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	fetched := decodeBody[domain.PaymentMethod](t, resp)
	assert.Equal(t, created.ID, fetched.ID)

	resp = doJSON(t, app, fiber.MethodGet, "/v1/methods/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = doJSON(t, app, fiber.MethodGet, "/v1/accounts/"+acc.ID.String()+"/methods", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody[struct {
		PaymentMethods []domain.PaymentMethod `json:"payment_methods"`
	}](t, resp)
	require.Len(t, body.PaymentMethods, 1)
	assert.Equal(t, "tok_xyz", body.PaymentMethods[0].TokenID)
}
