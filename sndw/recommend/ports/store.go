package recommendports

import "context"

// TranscriptStore persists conversation turns outside process memory.
type TranscriptStore interface {
	SaveTurn(ctx context.Context, sessionID string, turn Turn) error
	LoadTurns(ctx context.Context, sessionID string, k int) ([]Turn, error) // last-k turns, oldest first
}
