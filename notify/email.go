package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	nanoid "github.com/matoous/go-nanoid/v2"
)

// =============================================================================
// EmailNotifier
// =============================================================================

// EmailConfig configures SMTP delivery.
type EmailConfig struct {
	Host     string
	Port     int // default 587
	Username string
	Password string
	From     string
	To       []string
	Timeout  time.Duration // default 30s
	// InsecureSkipVerify disables certificate checks (test servers only).
	InsecureSkipVerify bool
}

// Validate checks the required fields.
func (c EmailConfig) Validate() error {
	var missing []string
	if c.Host == "" {
		missing = append(missing, "smtp_host")
	}
	if c.From == "" {
		missing = append(missing, "email_from")
	}
	if len(c.To) == 0 {
		missing = append(missing, "email_to")
	}
	if len(missing) > 0 {
		return fmt.Errorf("email notifier: missing %s", strings.Join(missing, ", "))
	}
	return nil
}

// SendFunc transmits a fully formed RFC 5322 message.
type SendFunc func(ctx context.Context, cfg EmailConfig, from string, to []string, msg []byte) error

// EmailNotifier delivers messages as plain-text email over SMTP with
// mandatory STARTTLS.
type EmailNotifier struct {
	cfg  EmailConfig
	send SendFunc
	now  func() time.Time
}

// EmailOption configures EmailNotifier.
type EmailOption func(*EmailNotifier)

// WithSendFunc replaces the SMTP transport.
func WithSendFunc(f SendFunc) EmailOption {
	return func(n *EmailNotifier) { n.send = f }
}

// NewEmailNotifier creates an SMTP notifier.
func NewEmailNotifier(cfg EmailConfig, opts ...EmailOption) (*EmailNotifier, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	n := &EmailNotifier{cfg: cfg, send: sendSTARTTLS, now: time.Now}
	for _, opt := range opts {
		opt(n)
	}
	return n, nil
}

// Send implements Notifier.
func (n *EmailNotifier) Send(ctx context.Context, msg Message) (Ack, error) {
	messageID, err := nanoid.New()
	if err != nil {
		return Ack{}, fmt.Errorf("generate message id: %w", err)
	}
	messageID = fmt.Sprintf("<%s@%s>", messageID, domainOf(n.cfg.From))

	raw := buildMessage(n.cfg.From, n.cfg.To, msg, messageID, n.now())
	if err := n.send(ctx, n.cfg, n.cfg.From, n.cfg.To, raw); err != nil {
		return Ack{}, fmt.Errorf("send email: %w", err)
	}

	return Ack{
		Channel:     "email",
		ID:          messageID,
		Recipients:  append([]string(nil), n.cfg.To...),
		DeliveredAt: n.now().UTC(),
	}, nil
}

// buildMessage renders a plain-text UTF-8 message with a base64 body.
func buildMessage(from string, to []string, msg Message, messageID string, now time.Time) []byte {
	subject := msg.Subject
	if subject == "" {
		subject = DefaultSubject
	}

	var b bytes.Buffer
	header := func(k, v string) { fmt.Fprintf(&b, "%s: %s\r\n", k, v) }
	header("From", from)
	header("To", strings.Join(to, ", "))
	header("Subject", mime.QEncoding.Encode("utf-8", subject))
	header("Date", now.Format(time.RFC1123Z))
	header("Message-ID", messageID)
	header("MIME-Version", "1.0")
	header("Content-Type", `text/plain; charset="utf-8"`)
	header("Content-Transfer-Encoding", "base64")
	if msg.RunID != "" {
		header("X-Reportflow-Run", msg.RunID)
	}
	b.WriteString("\r\n")

	encoded := base64.StdEncoding.EncodeToString([]byte(msg.Body))
	for len(encoded) > 76 {
		b.WriteString(encoded[:76])
		b.WriteString("\r\n")
		encoded = encoded[76:]
	}
	b.WriteString(encoded)
	b.WriteString("\r\n")
	return b.Bytes()
}

func domainOf(addr string) string {
	if i := strings.LastIndex(addr, "@"); i >= 0 {
		return strings.Trim(addr[i+1:], "> ")
	}
	return "localhost"
}

// sendSTARTTLS dials the server, upgrades with STARTTLS and authenticates
// with PLAIN when credentials are set. Servers without STARTTLS are refused.
func sendSTARTTLS(ctx context.Context, cfg EmailConfig, from string, to []string, msg []byte) error {
	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))

	dialer := &net.Dialer{Timeout: cfg.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	deadline := time.Now().Add(cfg.Timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetDeadline(deadline)

	c, err := smtp.NewClient(conn, cfg.Host)
	if err != nil {
		conn.Close()
		return err
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); !ok {
		return errors.New("smtp server does not support STARTTLS")
	}
	if err := c.StartTLS(&tls.Config{
		ServerName:         cfg.Host,
		InsecureSkipVerify: cfg.InsecureSkipVerify, //nolint:gosec // opt-in for test servers
		MinVersion:         tls.VersionTLS12,
	}); err != nil {
		return fmt.Errorf("starttls: %w", err)
	}

	if cfg.Username != "" {
		if err := c.Auth(smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}

	if err := c.Mail(from); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := c.Rcpt(rcpt); err != nil {
			return fmt.Errorf("rcpt %s: %w", rcpt, err)
		}
	}

	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}
