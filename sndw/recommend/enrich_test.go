package recommend

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ZanzyTHEbar/soundware/sndw/metrics"
	"github.com/ZanzyTHEbar/soundware/sndw/recommend/adapters"
	ports "github.com/ZanzyTHEbar/soundware/sndw/recommend/ports"
)

func candidates(n int) []RawCandidate {
	out := make([]RawCandidate, n)
	for i := range out {
		out[i] = RawCandidate{SongTitle: fmt.Sprintf("Song %d", i), Artist: fmt.Sprintf("Artist %d", i)}
	}
	return out
}

func TestBuildQuery(t *testing.T) {
	assert.Equal(t, "Ditto NewJeans official", BuildQuery(RawCandidate{SongTitle: "Ditto", Artist: "NewJeans"}))
}

func TestEnricher_AllResolve(t *testing.T) {
	defer goleak.VerifyNone(t)

	lookup := &StubLookup{}
	var seen sync.Map
	lookup.searchFunc = func(ctx context.Context, req ports.LookupRequest) (ports.LookupResult, error) {
		seen.Store(req.Query, req)
		return ports.LookupResult{Link: linkFor(req.Query), Found: true}, nil
	}
	e := NewEnricher(lookup, nil, EnrichPolicy{}, nil, zerolog.Nop())

	in := candidates(7)
	res := e.Enrich(context.Background(), in)

	require.Len(t, res.Recommendations, 7)
	assert.Equal(t, 7, res.Hits)
	for i, rec := range res.Recommendations {
		assert.Equal(t, in[i].SongTitle, rec.SongTitle)
		assert.Equal(t, in[i].Artist, rec.Artist)
		assert.NotEmpty(t, rec.Link)
	}

	v, ok := seen.Load("Song 0 Artist 0 official")
	require.True(t, ok)
	req := v.(ports.LookupRequest)
	assert.Equal(t, 1, req.MaxResults)
	assert.True(t, req.EmbeddableOnly)
}

func TestEnricher_DropsMissesAndErrors(t *testing.T) {
	defer goleak.VerifyNone(t)

	lookup := &StubLookup{searchFunc: func(ctx context.Context, req ports.LookupRequest) (ports.LookupResult, error) {
		switch req.Query {
		case "Song 1 Artist 1 official":
			return ports.LookupResult{}, nil
		case "Song 2 Artist 2 official":
			return ports.LookupResult{}, errors.New("quota exceeded")
		case "Song 3 Artist 3 official":
			return ports.LookupResult{Link: "  ", Found: true}, nil
		}
		return ports.LookupResult{Link: linkFor(req.Query), Found: true}, nil
	}}
	reg := prometheus.NewRegistry()
	m := metrics.NewPipeline(reg)
	e := NewEnricher(lookup, nil, EnrichPolicy{}, m, zerolog.Nop())

	in := append(candidates(5), RawCandidate{SongTitle: "", Artist: "Nobody"})
	res := e.Enrich(context.Background(), in)

	require.Len(t, res.Recommendations, 2)
	assert.Equal(t, "Song 0", res.Recommendations[0].SongTitle)
	assert.Equal(t, "Song 4", res.Recommendations[1].SongTitle)
	assert.Equal(t, 2, res.Hits)
	assert.Equal(t, 3, res.Misses)
	assert.Equal(t, 1, res.Errors)
	assert.Equal(t, int32(5), lookup.calls.Load(), "blank candidates are not looked up")

	assert.Equal(t, float64(2), testutil.ToFloat64(m.Lookups.WithLabelValues(metrics.LookupHit)))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.Lookups.WithLabelValues(metrics.LookupMiss)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Lookups.WithLabelValues(metrics.LookupError)))
}

func TestEnricher_InputOrderUnderReversedCompletion(t *testing.T) {
	defer goleak.VerifyNone(t)

	in := candidates(5)
	delays := make(map[string]time.Duration, len(in))
	for i, c := range in {
		// The first candidate finishes last.
		delays[BuildQuery(c)] = time.Duration(len(in)-i) * 20 * time.Millisecond
	}
	e := NewEnricher(&StubLookup{searchFunc: delayedLookup(delays)}, nil, EnrichPolicy{}, nil, zerolog.Nop())

	res := e.Enrich(context.Background(), in)

	require.Len(t, res.Recommendations, len(in))
	for i, rec := range res.Recommendations {
		assert.Equal(t, in[i].SongTitle, rec.SongTitle)
	}
}

func TestEnricher_ConcurrencyCap(t *testing.T) {
	defer goleak.VerifyNone(t)

	lookup := &StubLookup{searchFunc: func(ctx context.Context, req ports.LookupRequest) (ports.LookupResult, error) {
		time.Sleep(10 * time.Millisecond)
		return ports.LookupResult{Link: linkFor(req.Query), Found: true}, nil
	}}
	e := NewEnricher(lookup, nil, EnrichPolicy{MaxConcurrency: 3}, nil, zerolog.Nop())

	res := e.Enrich(context.Background(), candidates(12))

	assert.Len(t, res.Recommendations, 12)
	assert.LessOrEqual(t, lookup.peak.Load(), int32(3))
	assert.Equal(t, int32(12), lookup.calls.Load())
}

func TestEnricher_PerCallTimeout(t *testing.T) {
	defer goleak.VerifyNone(t)

	in := candidates(3)
	delays := map[string]time.Duration{
		BuildQuery(in[0]): 0,
		BuildQuery(in[1]): time.Minute,
		BuildQuery(in[2]): 0,
	}
	e := NewEnricher(&StubLookup{searchFunc: delayedLookup(delays)}, nil, EnrichPolicy{LookupTimeout: 50 * time.Millisecond}, nil, zerolog.Nop())

	start := time.Now()
	res := e.Enrich(context.Background(), in)

	assert.Less(t, time.Since(start), 5*time.Second)
	require.Len(t, res.Recommendations, 2)
	assert.Equal(t, "Song 0", res.Recommendations[0].SongTitle)
	assert.Equal(t, "Song 2", res.Recommendations[1].SongTitle)
	assert.Equal(t, 1, res.Errors)
}

func TestEnricher_CachesHitsOnly(t *testing.T) {
	defer goleak.VerifyNone(t)

	misses := map[string]bool{"Song 1 Artist 1 official": true}
	lookup := &StubLookup{searchFunc: func(ctx context.Context, req ports.LookupRequest) (ports.LookupResult, error) {
		if misses[req.Query] {
			return ports.LookupResult{}, nil
		}
		return ports.LookupResult{Link: linkFor(req.Query), Found: true}, nil
	}}
	cache := adapters.NewLRUCache(10)
	e := NewEnricher(lookup, cache, EnrichPolicy{CacheTTLSeconds: 60}, nil, zerolog.Nop())

	first := e.Enrich(context.Background(), candidates(2))
	second := e.Enrich(context.Background(), candidates(2))

	assert.Equal(t, first.Recommendations, second.Recommendations)
	assert.Equal(t, 1, cache.Len())
	// Song 0 twice would be 4 calls; the cached hit saves one.
	assert.Equal(t, int32(3), lookup.calls.Load())
}

func TestEnricher_Empty(t *testing.T) {
	e := NewEnricher(&StubLookup{}, nil, EnrichPolicy{}, nil, zerolog.Nop())

	res := e.Enrich(context.Background(), nil)

	assert.Empty(t, res.Recommendations)
	assert.Zero(t, res.Hits+res.Misses+res.Errors)
}
