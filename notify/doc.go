// Package notify delivers finished reports.
//
// Core types:
//   - Notifier: Send(ctx, Message) (Ack, error)
//   - Message: subject, body and run labels
//   - Ack: delivery confirmation
//
// Implementations:
//   - EmailNotifier: SMTP with mandatory STARTTLS
//   - SlackNotifier: Slack incoming webhooks
//   - WebhookNotifier: generic JSON webhooks
//   - LogNotifier: logs instead of delivering
//   - MultiNotifier: fans out to several notifiers
//   - NopNotifier: discards everything
//
// Example usage:
//
//	n := notify.NewSlackNotifier(webhookURL, notify.WithSlackChannel("#analytics"))
//	ack, err := n.Send(ctx, notify.NewReport(runID, "123456789", document))
package notify
