package auth

import (
	"errors"
	"strings"
	"testing"
)

func TestGenerateAPIKey(t *testing.T) {
	t.Run("default config", func(t *testing.T) {
		key, err := GenerateAPIKey(APIKeyConfig{})
		if err != nil {
			t.Fatalf("GenerateAPIKey() error = %v", err)
		}
		if !strings.HasPrefix(key.Secret, DefaultAPIKeyPrefix) {
			t.Errorf("Secret %q should start with %q", key.Secret, DefaultAPIKeyPrefix)
		}
		if !ValidateAPIKeyFormat(key.Secret, APIKeyConfig{}) {
			t.Errorf("Secret %q does not match expected format", key.Secret)
		}
		if HashToken(key.Secret) != key.Hash {
			t.Error("hash mismatch")
		}
		if key.Prefix != key.Secret[:DefaultAPIKeyPrefixLength]+"..." {
			t.Errorf("Prefix = %q", key.Prefix)
		}
		if !strings.HasPrefix(key.ID, "key_") {
			t.Errorf("ID = %q", key.ID)
		}
	})

	t.Run("uniqueness", func(t *testing.T) {
		seen := make(map[string]bool)
		for i := 0; i < 10; i++ {
			key, err := GenerateAPIKey(APIKeyConfig{Prefix: "rf_test_"})
			if err != nil {
				t.Fatalf("GenerateAPIKey() error = %v", err)
			}
			if seen[key.Secret] {
				t.Errorf("duplicate key generated: %s", key.Secret)
			}
			seen[key.Secret] = true
		}
	})
}

func TestValidateAPIKeyFormat(t *testing.T) {
	cfg := APIKeyConfig{Prefix: "rf_live_", RandomLength: 8}

	tests := []struct {
		key  string
		want bool
	}{
		{"rf_live_abcd1234", true},
		{"rf_live_abcd123", false},
		{"rf_test_abcd1234", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := ValidateAPIKeyFormat(tt.key, cfg); got != tt.want {
			t.Errorf("ValidateAPIKeyFormat(%q) = %v, want %v", tt.key, got, tt.want)
		}
	}
}

func TestHashToken(t *testing.T) {
	if HashToken("a") != HashToken("a") {
		t.Error("HashToken not deterministic")
	}
	if HashToken("a") == HashToken("b") {
		t.Error("different tokens should have different hashes")
	}
	if len(HashToken("")) != 64 {
		t.Errorf("hash length = %d, want 64", len(HashToken("")))
	}
}

func TestVerifier(t *testing.T) {
	key, err := GenerateAPIKey(APIKeyConfig{})
	if err != nil {
		t.Fatal(err)
	}
	other, err := GenerateAPIKey(APIKeyConfig{})
	if err != nil {
		t.Fatal(err)
	}

	v := NewVerifier(APIKeyConfig{}, "", " "+strings.ToUpper(key.Hash)+" ")
	if !v.Enabled() {
		t.Fatal("verifier with a hash should be enabled")
	}

	tests := []struct {
		name string
		key  string
		want error
	}{
		{"valid", key.Secret, nil},
		{"missing", "", ErrMissingAPIKey},
		{"malformed", "not-a-key", ErrInvalidAPIKey},
		{"unknown", other.Secret, ErrUnknownAPIKey},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := v.Verify(tt.key); !errors.Is(err, tt.want) {
				t.Errorf("Verify() = %v, want %v", err, tt.want)
			}
		})
	}

	if NewVerifier(APIKeyConfig{}).Enabled() {
		t.Error("verifier without hashes should be disabled")
	}
	var nilVerifier *Verifier
	if nilVerifier.Enabled() {
		t.Error("nil verifier should be disabled")
	}
}
