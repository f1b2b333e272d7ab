package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	rfhttp "github.com/randalmurphal/reportflow/http"
)

// =============================================================================
// WebhookNotifier
// =============================================================================

// WebhookNotifier posts messages as JSON to an HTTP endpoint. A JSON reply
// with an "id" field becomes the Ack ID.
type WebhookNotifier struct {
	URL     string
	Headers map[string]string
	client  *rfhttp.Client
}

// NewWebhookNotifier creates a webhook notifier.
func NewWebhookNotifier(url string, headers map[string]string, opts ...WebhookOption) *WebhookNotifier {
	var cfg webhookConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return &WebhookNotifier{
		URL:     url,
		Headers: headers,
		client: rfhttp.NewClient(rfhttp.ClientConfig{
			BaseURL:     url,
			ServiceName: "webhook",
			Logger:      cfg.logger,
		}),
	}
}

type webhookConfig struct {
	logger *slog.Logger
}

// WebhookOption configures NewWebhookNotifier.
type WebhookOption func(*webhookConfig)

// WithWebhookLogger sets the logger of the HTTP client.
func WithWebhookLogger(logger *slog.Logger) WebhookOption {
	return func(c *webhookConfig) { c.logger = logger }
}

// WithClient replaces the HTTP client.
func (n *WebhookNotifier) WithClient(c *rfhttp.Client) *WebhookNotifier {
	n.client = c
	return n
}

// Send implements Notifier.
func (n *WebhookNotifier) Send(ctx context.Context, msg Message) (Ack, error) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}

	_, body, err := n.client.PostRaw(ctx, "", msg, n.Headers)
	if err != nil {
		return Ack{}, fmt.Errorf("send webhook: %w", err)
	}

	var reply struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(body, &reply)

	return Ack{Channel: "webhook", ID: reply.ID, DeliveredAt: time.Now().UTC()}, nil
}
