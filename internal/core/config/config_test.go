package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg := LoadConfig()
	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, "development", cfg.Env)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("DATABASE_URL", "postgres://localhost/payd_test")
	t.Setenv("WEBHOOK_URL", "https://example.com/hooks")
	t.Setenv("WEBHOOK_SECRET", "whsec_abc")
	t.Setenv("ENV", "production")

	cfg := LoadConfig()
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "postgres://localhost/payd_test", cfg.DatabaseURL)
	assert.Equal(t, "https://example.com/hooks", cfg.WebhookURL)
	assert.Equal(t, "whsec_abc", cfg.WebhookSecret)
	assert.Equal(t, "production", cfg.Env)
}
