package sender

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/lessslie/olimpo-checkin/types"
)

// WebhookSender posts every outcome as JSON, for a front desk display or a
// door controller.
type WebhookSender struct {
	client *http.Client
	url    *url.URL
}

func NewWebhook(u *url.URL) *WebhookSender {
	return &WebhookSender{url: u, client: &http.Client{Timeout: 2 * time.Second}}
}

func (w *WebhookSender) Post(ctx context.Context, o types.Outcome) error {
	b, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("error encoding outcome: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url.String(), bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("error building webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("error sending webhook request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook request returned: %s", resp.Status)
	}
	return nil
}
