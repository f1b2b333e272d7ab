package auth

import "errors"

// Authentication errors.
var (
	// ErrMissingAPIKey indicates no key was presented.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidAPIKey indicates the API key format is invalid.
	ErrInvalidAPIKey = errors.New("invalid API key format")

	// ErrUnknownAPIKey indicates a well-formed key that matches no stored hash.
	ErrUnknownAPIKey = errors.New("unknown API key")
)
