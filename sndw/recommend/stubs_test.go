package recommend

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	ports "github.com/ZanzyTHEbar/soundware/sndw/recommend/ports"
)

// StubGenerator implements Generator for testing.
type StubGenerator struct {
	completeFunc func(ctx context.Context, req ports.GenerateRequest) (ports.Completion, error)

	mu       sync.Mutex
	requests []ports.GenerateRequest
}

func (g *StubGenerator) Complete(ctx context.Context, req ports.GenerateRequest) (ports.Completion, error) {
	g.mu.Lock()
	g.requests = append(g.requests, req)
	g.mu.Unlock()

	if g.completeFunc != nil {
		return g.completeFunc(ctx, req)
	}
	return ports.Completion{
		Text: sevenLines,
		Usage: &ports.Usage{
			PromptTokens:     10,
			CompletionTokens: 5,
			TotalTokens:      15,
		},
	}, nil
}

func (g *StubGenerator) lastRequest() ports.GenerateRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.requests[len(g.requests)-1]
}

// StubLookup implements Lookup for testing. With no searchFunc every query resolves.
type StubLookup struct {
	searchFunc func(ctx context.Context, req ports.LookupRequest) (ports.LookupResult, error)

	calls    atomic.Int32
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (l *StubLookup) Search(ctx context.Context, req ports.LookupRequest) (ports.LookupResult, error) {
	l.calls.Add(1)
	n := l.inFlight.Add(1)
	defer l.inFlight.Add(-1)
	for {
		p := l.peak.Load()
		if n <= p || l.peak.CompareAndSwap(p, n) {
			break
		}
	}

	if l.searchFunc != nil {
		return l.searchFunc(ctx, req)
	}
	return ports.LookupResult{Link: linkFor(req.Query), Found: true}, nil
}

// linkFor derives a deterministic link from a query.
func linkFor(query string) string {
	return "https://youtu.be/" + strings.ReplaceAll(strings.TrimSuffix(query, " official"), " ", "_")
}

// stubTranscriptStore implements TranscriptStore for testing.
type stubTranscriptStore struct {
	mu    sync.Mutex
	turns map[string][]ports.Turn
	err   error
}

func (s *stubTranscriptStore) SaveTurn(ctx context.Context, sessionID string, turn ports.Turn) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.turns == nil {
		s.turns = make(map[string][]ports.Turn)
	}
	s.turns[sessionID] = append(s.turns[sessionID], turn)
	return nil
}

func (s *stubTranscriptStore) LoadTurns(ctx context.Context, sessionID string, k int) ([]ports.Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	turns := s.turns[sessionID]
	if k <= 0 || k >= len(turns) {
		return turns, nil
	}
	return turns[len(turns)-k:], nil
}

// delayedLookup resolves each query after the delay chosen for it.
func delayedLookup(delays map[string]time.Duration) func(ctx context.Context, req ports.LookupRequest) (ports.LookupResult, error) {
	return func(ctx context.Context, req ports.LookupRequest) (ports.LookupResult, error) {
		select {
		case <-time.After(delays[req.Query]):
		case <-ctx.Done():
			return ports.LookupResult{}, ctx.Err()
		}
		return ports.LookupResult{Link: linkFor(req.Query), Found: true}, nil
	}
}

const sevenLines = `{"songTitle": "Super Shy", "artist": "NewJeans"}
{"songTitle": "Street by Street", "artist": "Laufey"}
{"songTitle": "WE GO", "artist": "fromis_9"}
{"songTitle": "Supernova", "artist": "aespa"}
{"songTitle": "Glue Song", "artist": "beabadoobee"}
{"songTitle": "Ditto", "artist": "NewJeans"}
{"songTitle": "From The Start", "artist": "Laufey"}`
