package errors

import "errors"

// Common errors with actionable guidance.
var (
	// ErrNotAuthenticated indicates missing or rejected credentials.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrSessionExpired indicates an OAuth token expired or was revoked.
	ErrSessionExpired = errors.New("session expired")

	// ErrNoProperty indicates no analytics property is configured.
	ErrNoProperty = errors.New("no analytics property configured")

	// ErrPropertyNotFound indicates the analytics property does not exist
	// or is not visible to the credentials.
	ErrPropertyNotFound = errors.New("analytics property not found")

	// ErrConnectionFailed indicates a remote service is unreachable.
	ErrConnectionFailed = errors.New("connection failed")

	// ErrPermissionDenied indicates insufficient permissions.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrRateLimited indicates a provider quota or rate limit was hit.
	ErrRateLimited = errors.New("rate limited")
)
