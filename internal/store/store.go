package store

import (
	"context"
	"time"
)

// Store defines the persistence layer interface for injection history.
// History is observability only: the hook records events best-effort and
// never fails a prompt over a store error.
type Store interface {
	// RecordInjection persists one injection event.
	RecordInjection(ctx context.Context, event InjectionEvent) error

	// ListInjections returns the most recent events, newest first.
	ListInjections(ctx context.Context, limit int) ([]InjectionEvent, error)

	// Close releases the underlying database handle.
	Close() error
}

// InjectionEvent records one prompt that received injected context.
// Only the prompt digest is stored, never the prompt text itself.
type InjectionEvent struct {
	EventID       string    `json:"eventId"`
	Timestamp     time.Time `json:"timestamp"`
	PromptHash    string    `json:"promptHash"`
	ConfigHash    string    `json:"configHash"`
	Matched       []string  `json:"matched"` // entry names in match order
	InjectedBytes int       `json:"injectedBytes"`
}
