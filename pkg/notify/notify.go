// Package notify delivers a composed message to a single outbound chat webhook.
package notify

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// Channel represents a notification channel type.
type Channel string

const (
	ChannelFeishu  Channel = "feishu"
	ChannelWebhook Channel = "webhook"
)

// Message represents a notification message.
type Message struct {
	Title  string `json:"title"`
	Body   string `json:"body"`
	Format string `json:"format"` // "text" or "post"
	Post   *Post  `json:"post,omitempty"`
}

// Post is a Feishu rich-text message body: one inner slice per rendered line.
type Post struct {
	Title   string          `json:"title"`
	Content [][]PostElement `json:"content"`
}

// PostElement is a single inline element of a Post line.
type PostElement struct {
	Tag   string   `json:"tag"` // "text" or "a"
	Text  string   `json:"text"`
	Href  string   `json:"href,omitempty"`
	Style []string `json:"style,omitempty"`
}

// Notifier defines the interface for sending notifications.
// Send returns nil only when the endpoint acknowledged with HTTP 200.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
	Channel() Channel
}

// StatusError reports a non-200 acknowledgement.
type StatusError struct {
	Channel    Channel
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s webhook returned status %d", e.Channel, e.StatusCode)
}

// Config selects and configures the outbound notifier.
type Config struct {
	Kind    Channel           `yaml:"kind" env:"HOTPUSH_WEBHOOK_KIND"`
	URL     string            `yaml:"url" env:"FEISHU_WEBHOOK_URL"`
	Format  string            `yaml:"format" env:"HOTPUSH_MESSAGE_FORMAT"`
	Timeout time.Duration     `yaml:"timeout"`
	Headers map[string]string `yaml:"headers"`
}

// New builds the notifier named by cfg.Kind. An empty kind means Feishu.
func New(cfg Config) (Notifier, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("notify: webhook url is required")
	}
	client := &http.Client{Timeout: cfg.Timeout}
	if cfg.Timeout <= 0 {
		client.Timeout = 10 * time.Second
	}

	switch cfg.Kind {
	case "", ChannelFeishu:
		return NewFeishuNotifier(cfg.URL, client), nil
	case ChannelWebhook, "generic":
		return NewWebhookNotifier(WebhookConfig{URL: cfg.URL, Headers: cfg.Headers}, client), nil
	default:
		return nil, fmt.Errorf("notify: unknown webhook kind %q", cfg.Kind)
	}
}
