// Package sqlite provides a durable ConversationStore backed by SQLite.
// Conversations are stored as JSON documents with the version held in its own
// column so the optimistic concurrency check runs inside a single UPDATE.
package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/hupe1980/supportmesh/core"
)

const schema = `
CREATE TABLE IF NOT EXISTS conversations (
	discussion_id TEXT PRIMARY KEY,
	version INTEGER NOT NULL,
	state TEXT NOT NULL
);`

// Store is a SQLite-backed ConversationStore. It is safe for concurrent use;
// the connection pool is capped at one writer as SQLite requires.
type Store struct {
	db *sql.DB
}

// Open creates (or opens) the database at path and ensures the schema exists.
// WAL mode and a busy timeout keep concurrent readers responsive.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", fmt.Sprintf(
		"file:%s?_journal_mode=WAL&_busy_timeout=5000", path,
	))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// Get returns the stored conversation or core.ErrNotFound.
func (s *Store) Get(discussionID string) (*core.Conversation, error) {
	var state string
	err := s.db.QueryRow(
		`SELECT state FROM conversations WHERE discussion_id = ?`, discussionID,
	).Scan(&state)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query conversation: %w", err)
	}
	var conv core.Conversation
	if err := json.Unmarshal([]byte(state), &conv); err != nil {
		return nil, fmt.Errorf("decode conversation: %w", err)
	}
	return &conv, nil
}

// Put inserts or updates the conversation subject to the optimistic version
// check: version 1 inserts a new row, version n+1 replaces version n.
func (s *Store) Put(conv *core.Conversation) error {
	state, err := json.Marshal(conv.Clone())
	if err != nil {
		return fmt.Errorf("encode conversation: %w", err)
	}

	if conv.Version == 1 {
		_, err := s.db.Exec(
			`INSERT INTO conversations (discussion_id, version, state) VALUES (?, ?, ?)`,
			conv.DiscussionID, conv.Version, string(state),
		)
		if err != nil {
			// Unique constraint violation means someone already created it.
			return core.ErrConcurrentModification
		}
		return nil
	}

	res, err := s.db.Exec(
		`UPDATE conversations SET version = ?, state = ? WHERE discussion_id = ? AND version = ?`,
		conv.Version, string(state), conv.DiscussionID, conv.Version-1,
	)
	if err != nil {
		return fmt.Errorf("update conversation: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update conversation: %w", err)
	}
	if affected == 0 {
		return core.ErrConcurrentModification
	}
	return nil
}

// Delete removes a conversation or returns core.ErrNotFound.
func (s *Store) Delete(discussionID string) error {
	res, err := s.db.Exec(`DELETE FROM conversations WHERE discussion_id = ?`, discussionID)
	if err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	if affected == 0 {
		return core.ErrNotFound
	}
	return nil
}

// List returns all stored discussion ids.
func (s *Store) List() ([]string, error) {
	rows, err := s.db.Query(`SELECT discussion_id FROM conversations ORDER BY discussion_id`)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("list conversations: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
