package notify

import (
	"context"
	"time"
)

// =============================================================================
// Message Types
// =============================================================================

// DefaultSubject is the subject of a delivered report.
const DefaultSubject = "Analytics Performance Report"

// Severity constants.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
	SeverityInfo    = "info"
)

// Message is what a Notifier delivers: usually a compiled report.
type Message struct {
	Subject     string         `json:"subject"`
	Body        string         `json:"body"`
	RunID       string         `json:"run_id,omitempty"`
	PropertyRef string         `json:"property_ref,omitempty"`
	Severity    string         `json:"severity,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
	Metadata    map[string]any `json:"metadata,omitempty"`

	// Delivered lists the MultiNotifier members, by position, that already
	// accepted this message on an earlier attempt. They are skipped.
	Delivered []int `json:"-"`
}

// NewReport builds the message that delivers a finished report.
func NewReport(runID, propertyRef, document string) Message {
	return Message{
		Subject:     DefaultSubject,
		Body:        document,
		RunID:       runID,
		PropertyRef: propertyRef,
		Severity:    SeverityInfo,
		Timestamp:   time.Now().UTC(),
	}
}

// Ack confirms a delivery.
type Ack struct {
	// Channel names the notifier kind ("email", "slack", ...).
	Channel string `json:"channel"`
	// ID is a provider reference such as a Message-ID, when available.
	ID          string    `json:"id,omitempty"`
	Recipients  []string  `json:"recipients,omitempty"`
	DeliveredAt time.Time `json:"delivered_at"`
	// Delivered lists the MultiNotifier members, by position, that hold
	// the message after this attempt, including skipped ones. It is set
	// on failure too; pass it back as Message.Delivered to retry only the
	// members that failed.
	Delivered []int `json:"delivered,omitempty"`
}

// =============================================================================
// Notifier Interface
// =============================================================================

// Notifier delivers messages. Send returns an error only when the message
// was not delivered.
type Notifier interface {
	Send(ctx context.Context, msg Message) (Ack, error)
}

// Func adapts a function to Notifier.
type Func func(ctx context.Context, msg Message) (Ack, error)

// Send calls f.
func (f Func) Send(ctx context.Context, msg Message) (Ack, error) { return f(ctx, msg) }

// =============================================================================
// Context Injection
// =============================================================================

type serviceContextKey string

const notifierServiceKey serviceContextKey = "reportflow.notifier"

// WithNotifier adds a Notifier to the context.
func WithNotifier(ctx context.Context, n Notifier) context.Context {
	return context.WithValue(ctx, notifierServiceKey, n)
}

// NotifierFromContext extracts the Notifier from context.
// Returns nil if no notifier is configured.
func NotifierFromContext(ctx context.Context) Notifier {
	if n, ok := ctx.Value(notifierServiceKey).(Notifier); ok {
		return n
	}
	return nil
}

// MustNotifierFromContext extracts the Notifier or panics.
func MustNotifierFromContext(ctx context.Context) Notifier {
	n := NotifierFromContext(ctx)
	if n == nil {
		panic("reportflow: Notifier not found in context")
	}
	return n
}
