package notifications

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/payflowhq/payd/internal/core/security"
)

// SendWebhook posts the raw JSON payload to the receiver's URL, signed with
// the shared secret. Slow receivers get cut off by the client timeout so
// they can't block the worker.
func SendWebhook(url string, payload []byte, secret string) error {
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Payd-Webhook/1.0")
	req.Header.Set("X-Payd-Signature", security.Sign(payload, secret))

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return fmt.Errorf("receiver returned status %d", resp.StatusCode)
}
