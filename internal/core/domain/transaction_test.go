package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateTransfer(t *testing.T) {
	a := uuid.New()
	b := uuid.New()

	cases := []struct {
		name    string
		from    uuid.UUID
		to      uuid.UUID
		amount  string
		wantErr error
	}{
		{"valid", a, b, "10.00", nil},
		{"valid whole number", a, b, "10", nil},
		{"valid single decimal", a, b, "10.5", nil},
		{"same account", a, a, "10.00", ErrSameAccount},
		{"zero", a, b, "0", ErrInvalidAmount},
		{"negative", a, b, "-0.01", ErrInvalidAmount},
		{"three decimal places", a, b, "10.005", ErrInvalidAmount},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateTransfer(tc.from, tc.to, decimal.RequireFromString(tc.amount))
			if tc.wantErr == nil {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, tc.wantErr)
			}
		})
	}
}

func TestStatusTerminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusFailed.Terminal())
}
