package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const webhookTimeout = 10 * time.Second

// HTTPWebhook posts assignment payloads to a configured automation
// endpoint. Every delivery carries a fresh delivery id so the receiver can
// deduplicate retries.
type HTTPWebhook struct {
	url    string
	client *http.Client
}

// NewHTTPWebhook creates the webhook transport, or nil when no URL is
// configured.
func NewHTTPWebhook(url string) *HTTPWebhook {
	if url == "" {
		return nil
	}

	return &HTTPWebhook{
		url:    url,
		client: &http.Client{Timeout: webhookTimeout},
	}
}

// Post delivers one payload as JSON.
func (h *HTTPWebhook) Post(ctx context.Context, payload WebhookPayload) error {
	payload.DeliveryID = uuid.New().String()

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create webhook request: %w", err)
	}

	request.Header.Set("Content-Type", "application/json")

	response, err := h.client.Do(request)
	if err != nil {
		return fmt.Errorf("failed to call webhook: %w", err)
	}

	defer func() { _ = response.Body.Close() }()

	if response.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(response.Body, 2048))

		return fmt.Errorf("webhook returned status %d: %s", response.StatusCode, detail)
	}

	return nil
}
