package errors

import (
	"errors"
	"fmt"
	"strings"
)

// CLIError wraps an error with user-friendly context and suggestions.
type CLIError struct {
	// Err is the underlying error
	Err error

	// Message is a user-friendly description of what went wrong
	Message string

	// Suggestion is an actionable hint for the user
	Suggestion string

	// Details provides additional context (optional)
	Details string
}

func (e *CLIError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Message)

	if e.Details != "" {
		sb.WriteString("\n")
		sb.WriteString(e.Details)
	}

	if e.Suggestion != "" {
		sb.WriteString("\n\n")
		sb.WriteString(e.Suggestion)
	}

	return sb.String()
}

func (e *CLIError) Unwrap() error {
	return e.Err
}

// ErrorMessenger provides customizable error messages.
// Implement this interface to customize suggestions for your CLI.
type ErrorMessenger interface {
	// AuthErrorMessage returns the message and suggestion for missing credentials.
	AuthErrorMessage() (message, suggestion string)

	// SessionExpiredMessage returns the message and suggestion for expired tokens.
	SessionExpiredMessage() (message, suggestion string)

	// PermissionDeniedMessage returns the message and suggestion for permission errors.
	PermissionDeniedMessage() (message, suggestion string)

	// ConnectionErrorMessage returns the message and suggestion for connection errors.
	// The service parameter names the endpoint that failed.
	ConnectionErrorMessage(service string) (message, suggestion string)

	// TLSErrorMessage returns the message and suggestion for TLS/certificate errors.
	TLSErrorMessage(service string) (message, suggestion string)

	// TimeoutErrorMessage returns the message and suggestion for timeout errors.
	TimeoutErrorMessage(service string) (message, suggestion string)

	// RateLimitMessage returns the message and suggestion for quota errors.
	RateLimitMessage(service string) (message, suggestion string)

	// NoPropertyMessage returns the message and suggestion when no property is set.
	NoPropertyMessage() (message, suggestion string)

	// PropertyNotFoundMessage returns the message and suggestion for unknown properties.
	PropertyNotFoundMessage(propertyRef string) (message, suggestion string)
}

// DefaultMessenger provides default error messages.
type DefaultMessenger struct{}

func (m DefaultMessenger) AuthErrorMessage() (string, string) {
	return "Google Analytics credentials are missing or were rejected.",
		"Set ga_client_id, ga_client_secret and ga_refresh_token, or run 'reportflow config set'."
}

func (m DefaultMessenger) SessionExpiredMessage() (string, string) {
	return "Your Google OAuth refresh token has expired or was revoked.",
		"Generate a new refresh token and update ga_refresh_token."
}

func (m DefaultMessenger) PermissionDeniedMessage() (string, string) {
	return "The credentials do not have access to this property.",
		"Grant the account Viewer access to the property in Google Analytics."
}

func (m DefaultMessenger) ConnectionErrorMessage(service string) (string, string) {
	return fmt.Sprintf("Cannot connect to %s", service),
		"Check that:\n  - The service is reachable\n  - Any base URL override is correct\n  - Your network connection is working"
}

func (m DefaultMessenger) TLSErrorMessage(service string) (string, string) {
	return fmt.Sprintf("TLS/certificate error connecting to %s", service),
		"Check that the server certificate is valid."
}

func (m DefaultMessenger) TimeoutErrorMessage(service string) (string, string) {
	return fmt.Sprintf("Request to %s timed out", service),
		"The service may be overloaded.\nTry again in a moment."
}

func (m DefaultMessenger) RateLimitMessage(service string) (string, string) {
	return fmt.Sprintf("%s rate limit or quota exceeded", service),
		"Lower requests_per_minute or max_concurrency, or wait for the quota to reset."
}

func (m DefaultMessenger) NoPropertyMessage() (string, string) {
	return "No Google Analytics property is configured.",
		"Pass --property or run 'reportflow config set property_id <id>'."
}

func (m DefaultMessenger) PropertyNotFoundMessage(propertyRef string) (string, string) {
	return fmt.Sprintf("Property %q was not found.", propertyRef),
		"Check the numeric property ID in the Google Analytics admin panel."
}

// WrapConfig configures error wrapping behavior.
type WrapConfig struct {
	Messenger ErrorMessenger
}

// Option configures WrapConfig.
type Option func(*WrapConfig)

// WithMessenger sets a custom error messenger.
func WithMessenger(m ErrorMessenger) Option {
	return func(c *WrapConfig) {
		c.Messenger = m
	}
}

func getMessenger(opts []Option) ErrorMessenger {
	cfg := &WrapConfig{
		Messenger: DefaultMessenger{},
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg.Messenger
}

// WrapAuthError wraps authentication-related errors with helpful guidance.
func WrapAuthError(err error, opts ...Option) error {
	if err == nil {
		return nil
	}

	errStr := strings.ToLower(err.Error())
	messenger := getMessenger(opts)

	if strings.Contains(errStr, "invalid_grant") ||
		(strings.Contains(errStr, "token") && (strings.Contains(errStr, "expired") || strings.Contains(errStr, "revoked"))) {
		msg, suggestion := messenger.SessionExpiredMessage()
		return &CLIError{
			Err:        ErrSessionExpired,
			Message:    msg,
			Suggestion: suggestion,
		}
	}

	if IsAuthError(err) {
		msg, suggestion := messenger.AuthErrorMessage()
		return &CLIError{
			Err:        ErrNotAuthenticated,
			Message:    msg,
			Details:    err.Error(),
			Suggestion: suggestion,
		}
	}

	if IsPermissionError(err) {
		msg, suggestion := messenger.PermissionDeniedMessage()
		return &CLIError{
			Err:        ErrPermissionDenied,
			Message:    msg,
			Suggestion: suggestion,
		}
	}

	return err
}

// WrapConnectionError wraps connection-related errors with helpful guidance.
func WrapConnectionError(err error, service string, opts ...Option) error {
	if err == nil {
		return nil
	}

	errStr := strings.ToLower(err.Error())
	messenger := getMessenger(opts)

	if strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "no such host") ||
		strings.Contains(errStr, "network is unreachable") ||
		strings.Contains(errStr, "dial tcp") {
		msg, suggestion := messenger.ConnectionErrorMessage(service)
		return &CLIError{
			Err:        ErrConnectionFailed,
			Message:    msg,
			Suggestion: suggestion,
		}
	}

	if strings.Contains(errStr, "certificate") || strings.Contains(errStr, "tls") ||
		strings.Contains(errStr, "x509") {
		msg, suggestion := messenger.TLSErrorMessage(service)
		return &CLIError{
			Err:        ErrConnectionFailed,
			Message:    msg,
			Details:    err.Error(),
			Suggestion: suggestion,
		}
	}

	if strings.Contains(errStr, "timeout") || strings.Contains(errStr, "deadline exceeded") {
		msg, suggestion := messenger.TimeoutErrorMessage(service)
		return &CLIError{
			Err:        ErrConnectionFailed,
			Message:    msg,
			Suggestion: suggestion,
		}
	}

	if IsRateLimitError(err) {
		msg, suggestion := messenger.RateLimitMessage(service)
		return &CLIError{
			Err:        ErrRateLimited,
			Message:    msg,
			Details:    err.Error(),
			Suggestion: suggestion,
		}
	}

	return err
}

// WrapPropertyError wraps property lookup errors with helpful guidance.
func WrapPropertyError(err error, propertyRef string, opts ...Option) error {
	if err == nil {
		return nil
	}

	messenger := getMessenger(opts)

	if errors.Is(err, ErrNoProperty) {
		msg, suggestion := messenger.NoPropertyMessage()
		return &CLIError{Err: ErrNoProperty, Message: msg, Suggestion: suggestion}
	}

	errStr := strings.ToLower(err.Error())
	if errors.Is(err, ErrPropertyNotFound) || strings.Contains(errStr, "not found") ||
		strings.Contains(errStr, "404") {
		msg, suggestion := messenger.PropertyNotFoundMessage(propertyRef)
		return &CLIError{
			Err:        ErrPropertyNotFound,
			Message:    msg,
			Details:    err.Error(),
			Suggestion: suggestion,
		}
	}

	return err
}

// Wrap applies every wrapper in turn and returns the first that produced a
// CLIError, or err unchanged.
func Wrap(err error, service, propertyRef string, opts ...Option) error {
	if err == nil {
		return nil
	}
	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		return err
	}
	for _, w := range []func(error) error{
		func(e error) error { return WrapPropertyError(e, propertyRef, opts...) },
		func(e error) error { return WrapAuthError(e, opts...) },
		func(e error) error { return WrapConnectionError(e, service, opts...) },
	} {
		if wrapped := w(err); errors.As(wrapped, &cliErr) {
			return wrapped
		}
	}
	return err
}

// NewNoPropertyError creates an error when no property is configured.
func NewNoPropertyError(opts ...Option) error {
	messenger := getMessenger(opts)
	msg, suggestion := messenger.NoPropertyMessage()
	return &CLIError{
		Err:        ErrNoProperty,
		Message:    msg,
		Suggestion: suggestion,
	}
}

// NewNotAuthenticatedError creates an error for missing credentials.
func NewNotAuthenticatedError(opts ...Option) error {
	messenger := getMessenger(opts)
	msg, suggestion := messenger.AuthErrorMessage()
	return &CLIError{
		Err:        ErrNotAuthenticated,
		Message:    msg,
		Suggestion: suggestion,
	}
}
