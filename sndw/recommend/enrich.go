package recommend

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"

	"github.com/ZanzyTHEbar/soundware/sndw/metrics"
	"github.com/ZanzyTHEbar/soundware/sndw/recommend/adapters"
	ports "github.com/ZanzyTHEbar/soundware/sndw/recommend/ports"
)

// Defaults for the enrichment fan-out.
const (
	DefaultMaxConcurrency = 8
	DefaultLookupTimeout  = 10 * time.Second
)

// BuildQuery composes the lookup query for a candidate.
func BuildQuery(c RawCandidate) string {
	return strings.TrimSpace(c.SongTitle + " " + c.Artist + " official")
}

// EnrichPolicy bounds the fan-out.
type EnrichPolicy struct {
	MaxConcurrency  int           // concurrent lookups per turn
	LookupTimeout   time.Duration // per lookup; 0 relies on the caller's context
	CacheTTLSeconds int
}

// EnrichResult carries resolved recommendations in candidate order plus outcome counts.
type EnrichResult struct {
	Recommendations []Recommendation
	Hits            int
	Misses          int
	Errors          int
}

// Enricher resolves candidates to playable links concurrently.
type Enricher struct {
	lookup  ports.Lookup
	cache   ports.Cache
	policy  EnrichPolicy
	metrics *metrics.Pipeline
	logger  zerolog.Logger
}

// NewEnricher creates an enricher. cache may be nil.
func NewEnricher(lookup ports.Lookup, cache ports.Cache, policy EnrichPolicy, m *metrics.Pipeline, logger zerolog.Logger) *Enricher {
	if policy.MaxConcurrency < 1 {
		policy.MaxConcurrency = DefaultMaxConcurrency
	}
	if cache == nil {
		cache = adapters.NoopCache{}
	}
	return &Enricher{
		lookup:  lookup,
		cache:   cache,
		policy:  policy,
		metrics: m,
		logger:  logger,
	}
}

type lookupOutcome struct {
	link string
	kind string // metrics.LookupHit, LookupMiss, LookupError
}

// Enrich looks up every candidate and waits for all of them. Misses and lookup
// errors drop the candidate; they never fail the stage.
func (e *Enricher) Enrich(ctx context.Context, candidates []RawCandidate) EnrichResult {
	outcomes := make([]lookupOutcome, len(candidates))

	p := pool.New().WithMaxGoroutines(e.policy.MaxConcurrency)
	for i, c := range candidates {
		p.Go(func() {
			outcomes[i] = e.resolve(ctx, c)
		})
	}
	p.Wait()

	// Assemble in candidate order, not completion order.
	var res EnrichResult
	for i, o := range outcomes {
		switch o.kind {
		case metrics.LookupHit:
			res.Hits++
			res.Recommendations = append(res.Recommendations, Recommendation{
				SongTitle: candidates[i].SongTitle,
				Artist:    candidates[i].Artist,
				Link:      o.link,
			})
		case metrics.LookupMiss:
			res.Misses++
		default:
			res.Errors++
		}
	}

	return res
}

func (e *Enricher) resolve(ctx context.Context, c RawCandidate) lookupOutcome {
	start := time.Now()
	out := e.search(ctx, c)
	e.metrics.ObserveLookup(out.kind, time.Since(start))
	return out
}

func (e *Enricher) search(ctx context.Context, c RawCandidate) lookupOutcome {
	if strings.TrimSpace(c.SongTitle) == "" || strings.TrimSpace(c.Artist) == "" {
		return lookupOutcome{kind: metrics.LookupMiss}
	}

	query := BuildQuery(c)
	key := "lookup:" + strings.ToLower(query)
	if cached, ok := e.cache.Get(ctx, key); ok && len(cached) > 0 {
		return lookupOutcome{link: string(cached), kind: metrics.LookupHit}
	}

	lookupCtx := ctx
	if e.policy.LookupTimeout > 0 {
		var cancel context.CancelFunc
		lookupCtx, cancel = context.WithTimeout(ctx, e.policy.LookupTimeout)
		defer cancel()
	}

	res, err := e.lookup.Search(lookupCtx, ports.LookupRequest{
		Query:          query,
		MaxResults:     1,
		EmbeddableOnly: true,
	})
	if err != nil {
		e.logger.Warn().Err(err).Str("query", query).Msg("Lookup failed")
		return lookupOutcome{kind: metrics.LookupError}
	}

	link := strings.TrimSpace(res.Link)
	if !res.Found || link == "" {
		e.logger.Debug().Str("query", query).Msg("Lookup found no match")
		return lookupOutcome{kind: metrics.LookupMiss}
	}

	if err := e.cache.Set(ctx, key, []byte(link), e.policy.CacheTTLSeconds); err != nil {
		e.logger.Debug().Err(err).Str("query", query).Msg("Failed to cache lookup")
	}

	return lookupOutcome{link: link, kind: metrics.LookupHit}
}
