package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// HashToken creates a SHA-256 hash of a token for storage.
func HashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// Verifier checks presented API keys against stored hashes.
type Verifier struct {
	cfg    APIKeyConfig
	hashes []string
}

// NewVerifier accepts keys whose hash is one of hashes. Empty hashes are
// ignored.
func NewVerifier(cfg APIKeyConfig, hashes ...string) *Verifier {
	v := &Verifier{cfg: cfg}
	for _, h := range hashes {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			v.hashes = append(v.hashes, h)
		}
	}
	return v
}

// Enabled reports whether any key is configured.
func (v *Verifier) Enabled() bool {
	return v != nil && len(v.hashes) > 0
}

// Verify returns nil when key is well formed and matches a stored hash.
func (v *Verifier) Verify(key string) error {
	if key == "" {
		return ErrMissingAPIKey
	}
	if !ValidateAPIKeyFormat(key, v.cfg) {
		return ErrInvalidAPIKey
	}
	got := []byte(HashToken(key))
	for _, h := range v.hashes {
		if subtle.ConstantTimeCompare(got, []byte(h)) == 1 {
			return nil
		}
	}
	return ErrUnknownAPIKey
}
