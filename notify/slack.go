package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	rfhttp "github.com/randalmurphal/reportflow/http"
)

// slackTextLimit keeps attachment text below Slack's message size cap.
const slackTextLimit = 3500

// =============================================================================
// SlackNotifier
// =============================================================================

// SlackNotifier posts messages to a Slack incoming webhook.
type SlackNotifier struct {
	WebhookURL string
	Channel    string
	Username   string
	client     *rfhttp.Client
	logger     *slog.Logger
}

// NewSlackNotifier creates a Slack webhook notifier.
func NewSlackNotifier(webhookURL string, opts ...SlackOption) *SlackNotifier {
	n := &SlackNotifier{
		WebhookURL: webhookURL,
		Username:   "reportflow",
	}
	for _, opt := range opts {
		opt(n)
	}
	if n.client == nil {
		n.client = rfhttp.NewClient(rfhttp.ClientConfig{
			BaseURL:     webhookURL,
			ServiceName: "slack",
			RetryWait:   500 * time.Millisecond,
			Logger:      n.logger,
		})
	}
	return n
}

// SlackOption configures SlackNotifier.
type SlackOption func(*SlackNotifier)

// WithSlackChannel sets the channel to post to.
func WithSlackChannel(channel string) SlackOption {
	return func(n *SlackNotifier) { n.Channel = channel }
}

// WithSlackUsername sets the bot username.
func WithSlackUsername(username string) SlackOption {
	return func(n *SlackNotifier) { n.Username = username }
}

// WithSlackLogger sets the logger of the default HTTP client.
func WithSlackLogger(logger *slog.Logger) SlackOption {
	return func(n *SlackNotifier) { n.logger = logger }
}

// WithSlackClient replaces the HTTP client.
func WithSlackClient(c *rfhttp.Client) SlackOption {
	return func(n *SlackNotifier) { n.client = c }
}

// Send implements Notifier.
func (n *SlackNotifier) Send(ctx context.Context, msg Message) (Ack, error) {
	payload := slackPayload{
		Username: n.Username,
		Channel:  n.Channel,
		Text:     fmt.Sprintf("*%s*", msg.Subject),
		Attachments: []slackAttachment{
			{
				Color:     colorForSeverity(msg.Severity),
				Text:      truncateText(msg.Body, slackTextLimit),
				Footer:    footer(msg),
				Timestamp: msg.Timestamp.Unix(),
				MrkdwnIn:  []string{"text"},
			},
		},
	}

	_, body, err := n.client.PostRaw(ctx, "", payload, nil)
	if err != nil {
		return Ack{}, fmt.Errorf("send slack message: %w", err)
	}
	if reply := strings.TrimSpace(string(body)); reply != "" && reply != "ok" {
		return Ack{}, fmt.Errorf("slack rejected message: %s", reply)
	}

	ack := Ack{Channel: "slack", DeliveredAt: time.Now().UTC()}
	if n.Channel != "" {
		ack.Recipients = []string{n.Channel}
	}
	return ack, nil
}

func colorForSeverity(severity string) string {
	switch severity {
	case SeverityError:
		return "danger"
	case SeverityWarning:
		return "warning"
	default:
		return "good"
	}
}

func footer(msg Message) string {
	parts := make([]string, 0, 2)
	if msg.PropertyRef != "" {
		parts = append(parts, "Property: "+msg.PropertyRef)
	}
	if msg.RunID != "" {
		parts = append(parts, "Run: "+msg.RunID)
	}
	return strings.Join(parts, " | ")
}

func truncateText(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := strings.LastIndex(s[:limit], "\n")
	if cut <= 0 {
		cut = limit
	}
	return s[:cut] + "\n_(truncated)_"
}

// Slack webhook payload types
type slackPayload struct {
	Username    string            `json:"username,omitempty"`
	Channel     string            `json:"channel,omitempty"`
	Text        string            `json:"text"`
	Attachments []slackAttachment `json:"attachments"`
}

type slackAttachment struct {
	Color     string   `json:"color,omitempty"`
	Text      string   `json:"text"`
	Footer    string   `json:"footer,omitempty"`
	Timestamp int64    `json:"ts,omitempty"`
	MrkdwnIn  []string `json:"mrkdwn_in,omitempty"`
}
