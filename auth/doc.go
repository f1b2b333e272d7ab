// Package auth provides API key authentication for the report HTTP API.
//
// Keys are generated once and only their SHA-256 hash is kept:
//
//	key, err := auth.GenerateAPIKey(auth.APIKeyConfig{})
//	// key.Secret: "rf_live_aBc123..." (shown once)
//	// key.Hash:   stored as api_key_hash
//
// Requests are checked with a Verifier:
//
//	v := auth.NewVerifier(auth.APIKeyConfig{}, settings.APIKeyHash)
//	if err := v.Verify(presented); err != nil { ... }
package auth
