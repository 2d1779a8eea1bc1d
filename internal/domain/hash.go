package domain

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// NewVerificationHash generates a fresh opaque test token for a snippet.
// It is not a security mechanism; it only exists so end-to-end tests can
// confirm that a specific snippet body reached the model context.
func NewVerificationHash() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate verification hash: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// ConfigHash creates a deterministic hash of a merged config. It allows
// tracking which config produced a given injection.
func ConfigHash(cfg MergedConfig) (string, error) {
	data, err := json.Marshal(cfg.Entries())
	if err != nil {
		return "", fmt.Errorf("marshal config for hashing: %w", err)
	}
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:]), nil
}

// HashPrompt creates a stable digest of raw prompt text. History records
// store the digest, never the prompt itself.
func HashPrompt(text string) string {
	hash := sha256.Sum256([]byte(text))
	return hex.EncodeToString(hash[:])
}
