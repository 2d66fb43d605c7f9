package notifications

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/payflowhq/payd/internal/core/security"
)

func TestSendWebhook(t *testing.T) {
	payload := []byte(`{"event":"transfer.completed","data":{}}`)
	secret := "whsec_test"

	var received []byte
	var signature string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		received = body
		signature = r.Header.Get("X-Payd-Signature")
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	require.NoError(t, SendWebhook(srv.URL, payload, secret))
	assert.Equal(t, payload, received)
	assert.True(t, security.Verify(received, secret, signature), "receiver must be able to verify the signature")
}

func TestSendWebhookReceiverError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := SendWebhook(srv.URL, []byte(`{}`), "whsec_test")
	require.Error(t, err)
}
