package notify

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"time"
)

// =============================================================================
// MultiNotifier
// =============================================================================

// MultiNotifier sends every message to several notifiers.
type MultiNotifier struct {
	Notifiers []Notifier
	Logger    *slog.Logger
}

// NewMultiNotifier creates a notifier that fans out to multiple notifiers.
// Every notifier is attempted; failures are logged and joined.
func NewMultiNotifier(notifiers ...Notifier) *MultiNotifier {
	return &MultiNotifier{
		Notifiers: notifiers,
		Logger:    slog.Default(),
	}
}

// Send implements Notifier. Members listed in msg.Delivered are skipped.
// The Ack lists the channels that succeeded and, in Delivered, every member
// that now holds the message; the error joins every failure.
func (n *MultiNotifier) Send(ctx context.Context, msg Message) (Ack, error) {
	ack := Ack{Channel: "multi", DeliveredAt: time.Now().UTC()}
	inner := msg
	inner.Delivered = nil

	var errs []error
	for i, notifier := range n.Notifiers {
		if slices.Contains(msg.Delivered, i) {
			ack.Delivered = append(ack.Delivered, i)
			continue
		}
		a, err := notifier.Send(ctx, inner)
		if err != nil {
			errs = append(errs, err)
			if n.Logger != nil {
				n.Logger.WarnContext(ctx, "notifier failed",
					"error", err,
					"run_id", msg.RunID,
				)
			}
			continue
		}
		ack.Recipients = append(ack.Recipients, a.Channel)
		ack.Delivered = append(ack.Delivered, i)
	}
	return ack, errors.Join(errs...)
}

// =============================================================================
// NopNotifier
// =============================================================================

// NopNotifier discards all messages.
type NopNotifier struct{}

// Send implements Notifier.
func (NopNotifier) Send(context.Context, Message) (Ack, error) {
	return Ack{Channel: "nop", DeliveredAt: time.Now().UTC()}, nil
}
