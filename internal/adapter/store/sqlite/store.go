package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/bkyoung/snipctx/internal/store"
)

const defaultListLimit = 50

// Store implements the store.Store interface using SQLite.
type Store struct {
	db *sql.DB
}

// NewStore creates a new SQLite store at the given path.
// Use ":memory:" for in-memory database (useful for testing).
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return s, nil
}

// createSchema creates all tables and indexes if they don't exist.
func (s *Store) createSchema() error {
	schema := `
	-- One row per prompt that received injected context
	CREATE TABLE IF NOT EXISTS injections (
		event_id TEXT PRIMARY KEY,
		timestamp INTEGER NOT NULL,
		prompt_hash TEXT NOT NULL,
		config_hash TEXT NOT NULL,
		matched TEXT NOT NULL,
		injected_bytes INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_injections_timestamp ON injections(timestamp);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("exec schema: %w", err)
	}
	return nil
}

// RecordInjection persists one injection event.
func (s *Store) RecordInjection(ctx context.Context, event store.InjectionEvent) error {
	matched, err := json.Marshal(event.Matched)
	if err != nil {
		return fmt.Errorf("marshal matched names: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO injections (event_id, timestamp, prompt_hash, config_hash, matched, injected_bytes)
		VALUES (?, ?, ?, ?, ?, ?)`,
		event.EventID,
		event.Timestamp.UnixNano(),
		event.PromptHash,
		event.ConfigHash,
		string(matched),
		event.InjectedBytes,
	)
	if err != nil {
		return fmt.Errorf("insert injection event: %w", err)
	}
	return nil
}

// ListInjections returns the most recent events, newest first.
func (s *Store) ListInjections(ctx context.Context, limit int) ([]store.InjectionEvent, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT event_id, timestamp, prompt_hash, config_hash, matched, injected_bytes
		FROM injections
		ORDER BY timestamp DESC, event_id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query injections: %w", err)
	}
	defer rows.Close()

	var events []store.InjectionEvent
	for rows.Next() {
		var (
			event   store.InjectionEvent
			ts      int64
			matched string
		)
		if err := rows.Scan(&event.EventID, &ts, &event.PromptHash, &event.ConfigHash, &matched, &event.InjectedBytes); err != nil {
			return nil, fmt.Errorf("scan injection event: %w", err)
		}
		event.Timestamp = time.Unix(0, ts).UTC()
		if err := json.Unmarshal([]byte(matched), &event.Matched); err != nil {
			return nil, fmt.Errorf("unmarshal matched names: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate injections: %w", err)
	}
	return events, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
