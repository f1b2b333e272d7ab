// Package errors provides error sentinels, classification predicates and
// CLI error wrapping with user-friendly messaging.
//
// Core types:
//   - CLIError: Wraps errors with message, suggestion, and details
//   - ErrorMessenger: Interface for customizing error messages
//
// Sentinel errors:
//   - ErrNotAuthenticated: Credentials missing or rejected
//   - ErrSessionExpired: OAuth token expired or revoked
//   - ErrNoProperty: No analytics property configured
//   - ErrPropertyNotFound: Property unknown to the credentials
//   - ErrConnectionFailed: Remote service unreachable
//   - ErrPermissionDenied: Insufficient permissions
//   - ErrRateLimited: Provider quota exhausted
//
// The predicates (IsAuthError, IsConnectionError, IsRateLimitError,
// IsRetryable, ...) classify both wrapped sentinels and raw provider
// errors by message, since the GA4 and LLM client libraries do not expose
// typed errors for every failure.
//
// Example usage:
//
//	if err := source.Fetch(ctx, q); err != nil {
//	    return errors.WrapAuthError(err)
//	}
//
//	if errors.IsRetryable(err) {
//	    // back off and try again
//	}
package errors
