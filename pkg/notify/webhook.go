package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// WebhookConfig holds webhook configuration.
type WebhookConfig struct {
	URL     string            `yaml:"url" json:"url"`
	Headers map[string]string `yaml:"headers" json:"headers"`
}

// WebhookNotifier sends notifications to a generic JSON webhook.
type WebhookNotifier struct {
	config WebhookConfig
	http   *http.Client
}

// NewWebhookNotifier creates a new webhook notifier.
func NewWebhookNotifier(cfg WebhookConfig, client *http.Client) *WebhookNotifier {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &WebhookNotifier{
		config: cfg,
		http:   client,
	}
}

func (w *WebhookNotifier) Channel() Channel { return ChannelWebhook }

// Send posts title, body and format as a flat JSON object.
func (w *WebhookNotifier) Send(ctx context.Context, msg Message) error {
	payload := map[string]string{
		"title":  msg.Title,
		"body":   msg.Body,
		"format": msg.Format,
	}
	headers := map[string]string{"Content-Type": "application/json"}
	for k, v := range w.config.Headers {
		headers[k] = v
	}
	return postJSON(ctx, w.http, w.config.URL, ChannelWebhook, headers, payload)
}

// postJSON performs one POST and maps anything but HTTP 200 to *StatusError.
// The response body is drained but not inspected.
func postJSON(ctx context.Context, client *http.Client, url string, ch Channel, headers map[string]string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("send %s webhook: %w", ch, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))

	if resp.StatusCode != http.StatusOK {
		return &StatusError{Channel: ch, StatusCode: resp.StatusCode}
	}
	return nil
}
