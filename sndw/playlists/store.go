// Package playlists stores opaque, user-scoped playlist documents.
package playlists

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

var (
	// ErrNotFound is returned by Load when a user has never saved playlists.
	ErrNotFound = errors.New("playlists not found")
	// ErrEmptyUserID rejects saves and loads without an owner.
	ErrEmptyUserID = errors.New("user id is required")
)

// Store saves and loads one playlist document per user. The document is opaque.
type Store interface {
	Save(ctx context.Context, userID string, data json.RawMessage) error
	Load(ctx context.Context, userID string) (json.RawMessage, error)
}

// LibSQLStore implements Store on the playlists table created by db.Migrate.
type LibSQLStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewLibSQLStore creates a playlist store.
func NewLibSQLStore(db *sql.DB) *LibSQLStore {
	return &LibSQLStore{db: db, now: time.Now}
}

// Save replaces the user's document.
func (s *LibSQLStore) Save(ctx context.Context, userID string, data json.RawMessage) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return ErrEmptyUserID
	}
	if !json.Valid(data) {
		return fmt.Errorf("playlists for %s are not valid JSON", userID)
	}

	query := `
		INSERT INTO playlists (user_id, data, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at
	`

	if _, err := s.db.ExecContext(ctx, query, userID, string(data), s.now().UTC().Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("failed to save playlists: %w", err)
	}
	return nil
}

// Load returns the user's document or ErrNotFound.
func (s *LibSQLStore) Load(ctx context.Context, userID string) (json.RawMessage, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrEmptyUserID
	}

	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM playlists WHERE user_id = ?`, userID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load playlists: %w", err)
	}

	return json.RawMessage(data), nil
}

var _ Store = (*LibSQLStore)(nil)
