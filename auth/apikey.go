package auth

import (
	"fmt"
	"strings"

	nanoid "github.com/matoous/go-nanoid/v2"
)

// API key defaults for the report service.
const (
	DefaultAPIKeyPrefix       = "rf_live_"
	DefaultAPIKeyLength       = 32
	DefaultAPIKeyPrefixLength = 12
)

const apiKeyAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// APIKeyConfig holds configuration for API key generation.
type APIKeyConfig struct {
	// Prefix is prepended to all keys. Defaults to "rf_live_".
	Prefix string

	// RandomLength is the length of the random part. Defaults to 32.
	RandomLength int

	// PrefixLength is how many characters the display prefix shows.
	// Defaults to 12.
	PrefixLength int
}

// withDefaults fills zero fields.
func (c APIKeyConfig) withDefaults() APIKeyConfig {
	if c.Prefix == "" {
		c.Prefix = DefaultAPIKeyPrefix
	}
	if c.RandomLength <= 0 {
		c.RandomLength = DefaultAPIKeyLength
	}
	if c.PrefixLength <= 0 {
		c.PrefixLength = DefaultAPIKeyPrefixLength
	}
	return c
}

// APIKey is a freshly generated key. Secret is shown once; only Hash is
// stored (as api_key_hash in the config).
type APIKey struct {
	ID     string
	Secret string
	Prefix string
	Hash   string
}

// GenerateAPIKey creates a new API key.
func GenerateAPIKey(cfg APIKeyConfig) (*APIKey, error) {
	cfg = cfg.withDefaults()
	random, err := nanoid.Generate(apiKeyAlphabet, cfg.RandomLength)
	if err != nil {
		return nil, fmt.Errorf("generate api key: %w", err)
	}
	secret := cfg.Prefix + random

	id, err := nanoid.New()
	if err != nil {
		return nil, fmt.Errorf("generate api key id: %w", err)
	}

	return &APIKey{
		ID:     "key_" + id,
		Secret: secret,
		Prefix: ExtractAPIKeyPrefix(secret, cfg),
		Hash:   HashToken(secret),
	}, nil
}

// ValidateAPIKeyFormat reports whether key has the configured prefix and
// length. It says nothing about whether the key is accepted.
func ValidateAPIKeyFormat(key string, cfg APIKeyConfig) bool {
	cfg = cfg.withDefaults()
	return strings.HasPrefix(key, cfg.Prefix) && len(key) == len(cfg.Prefix)+cfg.RandomLength
}

// ExtractAPIKeyPrefix returns the part of key safe to show in listings,
// such as "rf_live_AbCd...".
func ExtractAPIKeyPrefix(key string, cfg APIKeyConfig) string {
	n := cfg.withDefaults().PrefixLength
	if len(key) <= n {
		return key
	}
	return key[:n] + "..."
}
