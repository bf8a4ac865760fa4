package adapters

import (
	"context"

	ports "github.com/ZanzyTHEbar/soundware/sndw/recommend/ports"
)

// NoopCache never stores anything.
type NoopCache struct{}

func (NoopCache) Get(ctx context.Context, key string) ([]byte, bool) { return nil, false }
func (NoopCache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	return nil
}
func (NoopCache) Delete(ctx context.Context, key string) error { return nil }

// NoopRateLimiter admits every turn.
type NoopRateLimiter struct{}

func (NoopRateLimiter) Acquire(ctx context.Context, key string) (release func(), err error) {
	return func() {}, nil
}

// NoopTracer discards spans and events.
type NoopTracer struct{}

func (NoopTracer) StartSpan(ctx context.Context, name string, attrs map[string]any) (context.Context, func(err error)) {
	return ctx, func(err error) {}
}

func (NoopTracer) Event(ctx context.Context, name string, attrs map[string]any) {}

// NoopTranscriptStore keeps transcripts in memory only.
type NoopTranscriptStore struct{}

func (NoopTranscriptStore) SaveTurn(ctx context.Context, sessionID string, turn ports.Turn) error {
	return nil
}

func (NoopTranscriptStore) LoadTurns(ctx context.Context, sessionID string, k int) ([]ports.Turn, error) {
	return nil, nil
}

var (
	_ ports.Cache           = NoopCache{}
	_ ports.RateLimiter     = NoopRateLimiter{}
	_ ports.Tracer          = NoopTracer{}
	_ ports.TranscriptStore = NoopTranscriptStore{}
)
