// Package history persists spoken commentary to SQLite so lines survive
// process restarts. The in-memory ring in the speech queue answers the hot
// /history endpoint; this store is the durable record behind it.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Entry is one persisted commentary line.
type Entry struct {
	ID       int64     `json:"id"`
	Text     string    `json:"text"`
	CacheKey string    `json:"cacheKey"`
	Provider string    `json:"provider"`
	SpokenAt time.Time `json:"spokenAt"`
}

// Store records spoken utterances in a SQLite database.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS utterances (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	text       TEXT NOT NULL,
	cache_key  TEXT NOT NULL,
	provider   TEXT NOT NULL,
	spoken_at  TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_utterances_spoken_at ON utterances (spoken_at DESC);
`

// Open opens (creating if needed) the store at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history: open database: %w", err)
	}
	// SQLite serialises writers; a single connection avoids busy errors.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record persists one spoken utterance.
func (s *Store) Record(ctx context.Context, e Entry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO utterances (text, cache_key, provider, spoken_at) VALUES (?, ?, ?, ?)`,
		e.Text, e.CacheKey, e.Provider, e.SpokenAt.UTC())
	if err != nil {
		return fmt.Errorf("history: record utterance: %w", err)
	}
	return nil
}

// Recent returns up to limit utterances, most recent first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, text, cache_key, provider, spoken_at
		 FROM utterances ORDER BY spoken_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("history: query utterances: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Text, &e.CacheKey, &e.Provider, &e.SpokenAt); err != nil {
			return nil, fmt.Errorf("history: scan utterance: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: iterate utterances: %w", err)
	}
	return entries, nil
}
