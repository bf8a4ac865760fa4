package adapters

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"time"

	ports "github.com/ZanzyTHEbar/soundware/sndw/recommend/ports"
)

// LibSQLTranscriptStore implements TranscriptStore on the conversation_turns table.
type LibSQLTranscriptStore struct {
	db *sql.DB
}

// NewLibSQLTranscriptStore creates a new LibSQL transcript store. The schema is
// created by db.Migrate.
func NewLibSQLTranscriptStore(db *sql.DB) *LibSQLTranscriptStore {
	return &LibSQLTranscriptStore{
		db: db,
	}
}

// SaveTurn appends a turn to a session transcript.
func (s *LibSQLTranscriptStore) SaveTurn(ctx context.Context, sessionID string, turn ports.Turn) error {
	createdAt := turn.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	query := `
		INSERT INTO conversation_turns (session_id, role, content, created_at)
		VALUES (?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query, sessionID, string(turn.Role), turn.Content, createdAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to save turn: %w", err)
	}

	return nil
}

// LoadTurns loads the last k turns for a session, oldest first. k <= 0 loads all.
func (s *LibSQLTranscriptStore) LoadTurns(ctx context.Context, sessionID string, k int) ([]ports.Turn, error) {
	if k <= 0 {
		k = -1 // no limit in SQLite
	}

	query := `
		SELECT role, content, created_at FROM conversation_turns
		WHERE session_id = ?
		ORDER BY id DESC
		LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query, sessionID, k)
	if err != nil {
		return nil, fmt.Errorf("failed to query turns: %w", err)
	}
	defer rows.Close()

	var turns []ports.Turn
	for rows.Next() {
		var (
			role, content, created string
		)
		if err := rows.Scan(&role, &content, &created); err != nil {
			return nil, fmt.Errorf("failed to scan turn: %w", err)
		}

		createdAt, err := time.Parse(time.RFC3339Nano, created)
		if err != nil {
			return nil, fmt.Errorf("failed to parse turn timestamp %q: %w", created, err)
		}

		turns = append(turns, ports.Turn{
			Role:      ports.Role(role),
			Content:   content,
			CreatedAt: createdAt,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating turns: %w", err)
	}

	slices.Reverse(turns) // oldest first

	return turns, nil
}

// Ensure LibSQLTranscriptStore implements the TranscriptStore interface.
var _ ports.TranscriptStore = (*LibSQLTranscriptStore)(nil)
