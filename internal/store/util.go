package store

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// GenerateEventID creates a unique, time-ordered injection event ID.
// Format: inj-<timestamp>-<hash>
// Example: inj-20260824T143052Z-a3f9c2
func GenerateEventID(timestamp time.Time, promptHash string) string {
	// Use UTC timestamp in ISO format for consistent ordering
	ts := timestamp.UTC().Format("20060102T150405Z")

	// Short hash from the prompt digest and nanoseconds for uniqueness
	input := fmt.Sprintf("%s|%d", promptHash, timestamp.UnixNano())
	hash := sha256.Sum256([]byte(input))
	shortHash := hex.EncodeToString(hash[:3])

	return fmt.Sprintf("inj-%s-%s", ts, shortHash)
}
