// Package store persists lead conversation history in a local SQLite
// database so a REPL session can be resumed after restart.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/nextlevelbuilder/crew/internal/providers"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	name       TEXT PRIMARY KEY,
	messages   TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
`

// SessionInfo is one row of the session listing.
type SessionInfo struct {
	Name      string
	Messages  int
	UpdatedAt time.Time
}

// SessionStore wraps the sessions database.
type SessionStore struct {
	db *sql.DB
}

// Open creates the database (and parent directory) if needed.
func Open(path string) (*SessionStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("store: create dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: init schema: %w", err)
	}
	return &SessionStore{db: db}, nil
}

func (s *SessionStore) Close() error { return s.db.Close() }

// SaveHistory upserts the full message history for a session.
func (s *SessionStore) SaveHistory(name string, messages []providers.Message) error {
	data, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("store: encode history: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO sessions (name, messages, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET messages = excluded.messages, updated_at = excluded.updated_at`,
		name, string(data), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("store: save session %s: %w", name, err)
	}
	return nil
}

// LoadHistory returns the saved history, or nil when the session is new.
func (s *SessionStore) LoadHistory(name string) ([]providers.Message, error) {
	var data string
	err := s.db.QueryRow(`SELECT messages FROM sessions WHERE name = ?`, name).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: load session %s: %w", name, err)
	}
	var messages []providers.Message
	if err := json.Unmarshal([]byte(data), &messages); err != nil {
		return nil, fmt.Errorf("store: session %s corrupt: %w", name, err)
	}
	return messages, nil
}

// List returns all sessions, most recently updated first.
func (s *SessionStore) List() ([]SessionInfo, error) {
	rows, err := s.db.Query(`SELECT name, messages, updated_at FROM sessions ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("store: list sessions: %w", err)
	}
	defer rows.Close()

	var infos []SessionInfo
	for rows.Next() {
		var name, data, updated string
		if err := rows.Scan(&name, &data, &updated); err != nil {
			return nil, err
		}
		var messages []providers.Message
		json.Unmarshal([]byte(data), &messages)
		ts, _ := time.Parse(time.RFC3339, updated)
		infos = append(infos, SessionInfo{Name: name, Messages: len(messages), UpdatedAt: ts})
	}
	return infos, rows.Err()
}

// Delete removes a session.
func (s *SessionStore) Delete(name string) error {
	_, err := s.db.Exec(`DELETE FROM sessions WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("store: delete session %s: %w", name, err)
	}
	return nil
}
