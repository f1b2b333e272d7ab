package notify

import (
	"context"
	"log/slog"
	"time"
)

// =============================================================================
// LogNotifier
// =============================================================================

// LogNotifier writes messages to a slog logger instead of delivering them.
type LogNotifier struct {
	Logger *slog.Logger
	// IncludeBody logs the full body at debug level.
	IncludeBody bool
}

// NewLogNotifier creates a notifier that logs to the given logger.
// If logger is nil, uses the default slog logger.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{Logger: logger}
}

// Send implements Notifier.
func (n *LogNotifier) Send(ctx context.Context, msg Message) (Ack, error) {
	level := slog.LevelInfo
	switch msg.Severity {
	case SeverityWarning:
		level = slog.LevelWarn
	case SeverityError:
		level = slog.LevelError
	}

	n.Logger.Log(ctx, level, msg.Subject,
		"run_id", msg.RunID,
		"property", msg.PropertyRef,
		"body_bytes", len(msg.Body),
	)
	if n.IncludeBody {
		n.Logger.DebugContext(ctx, "report body", "run_id", msg.RunID, "body", msg.Body)
	}
	return Ack{Channel: "log", DeliveredAt: time.Now().UTC()}, nil
}
