// Package sqlite provides SQLite-backed persistence for change cursors.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/ocrhook/internal/core/domain"
	"github.com/custodia-labs/ocrhook/internal/core/ports/driven"
)

const schema = `
CREATE TABLE IF NOT EXISTS change_cursors (
	list_id    TEXT PRIMARY KEY,
	token      TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
`

// Ensure CursorStore implements the interface.
var _ driven.CursorStore = (*CursorStore)(nil)

// CursorStore persists the last processed change token per list.
type CursorStore struct {
	db   *sql.DB
	path string
}

// NewCursorStore creates a SQLite cursor store at the specified data
// directory. If dataDir is empty, defaults to ~/.ocrhook/data/cursors.db.
func NewCursorStore(dataDir string) (*CursorStore, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".ocrhook", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "cursors.db")

	// WAL mode for better concurrency between serve and CLI invocations
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &CursorStore{db: db, path: dbPath}, nil
}

// Get retrieves the stored token for a list.
func (s *CursorStore) Get(ctx context.Context, listID string) (string, error) {
	var token string
	err := s.db.QueryRowContext(ctx,
		`SELECT token FROM change_cursors WHERE list_id = ?`, listID,
	).Scan(&token)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("cursor for %s: %w", listID, domain.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("querying cursor: %w", err)
	}
	return token, nil
}

// Save stores or replaces the token for a list.
func (s *CursorStore) Save(ctx context.Context, listID, token string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO change_cursors (list_id, token, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(list_id) DO UPDATE SET
			token = excluded.token,
			updated_at = excluded.updated_at
	`, listID, token, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("saving cursor: %w", err)
	}
	return nil
}

// Delete removes the cursor for a list.
func (s *CursorStore) Delete(ctx context.Context, listID string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM change_cursors WHERE list_id = ?`, listID,
	); err != nil {
		return fmt.Errorf("deleting cursor: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *CursorStore) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *CursorStore) Path() string {
	return s.path
}
