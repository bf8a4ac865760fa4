package recommend

import (
	"database/sql"
	"errors"

	"github.com/rs/zerolog"

	"github.com/ZanzyTHEbar/soundware/sndw/config"
	"github.com/ZanzyTHEbar/soundware/sndw/metrics"
	"github.com/ZanzyTHEbar/soundware/sndw/recommend/adapters"
	ports "github.com/ZanzyTHEbar/soundware/sndw/recommend/ports"
)

// Factory creates and wires pipeline components from configuration.
type Factory struct {
	cfg     *config.Config
	db      *sql.DB // optional, for transcripts
	metrics *metrics.Pipeline
	logger  zerolog.Logger
}

// NewFactory creates a new pipeline factory.
func NewFactory(cfg *config.Config, db *sql.DB, m *metrics.Pipeline, logger zerolog.Logger) *Factory {
	return &Factory{
		cfg:     cfg,
		db:      db,
		metrics: m,
		logger:  logger,
	}
}

// CreateOrchestrator wires a TurnOrchestrator around the given backends. The
// backends are provider specific and built by the caller.
func (f *Factory) CreateOrchestrator(generator ports.Generator, lookup ports.Lookup) (*TurnOrchestrator, error) {
	if generator == nil || lookup == nil {
		return nil, errors.New("generator and lookup are required")
	}

	validator, err := NewCandidateValidator()
	if err != nil {
		return nil, err
	}

	pc := f.cfg.Pipeline
	limiter := f.createRateLimiter()
	sessions := f.CreateSessions()
	if tb, ok := limiter.(*adapters.TokenBucket); ok {
		sessions.OnEvict(tb.Forget)
	}

	temperature := pc.Temperature
	if f.cfg.LLM.Temperature > 0 {
		temperature = f.cfg.LLM.Temperature
	}

	return NewTurnOrchestrator(Components{
		Generator: generator,
		Builder:   NewPromptBuilder(temperature, f.cfg.LLM.MaxTokens),
		Parser:    NewCandidateParser(validator, f.logger.With().Str("stage", "parse").Logger()),
		Output:    OutputPolicy{MaxOutputSize: pc.MaxOutputSize},
		Enricher: NewEnricher(lookup, f.createCache(), EnrichPolicy{
			MaxConcurrency:  pc.MaxConcurrency,
			LookupTimeout:   f.cfg.Lookup.Timeout,
			CacheTTLSeconds: f.cfg.Harness.CacheTTLSeconds,
		}, f.metrics, f.logger.With().Str("stage", "enrich").Logger()),
		Gate:     QualityGate{MinResults: pc.MinResults},
		Sessions: sessions,
		Store:    f.CreateStore(),
		Limiter:  limiter,
		Tracer:   f.createTracer(),
		Metrics:  f.metrics,
		Logger:   f.logger,
	})
}

// CreateSessions builds the session registry seeded with the system instruction.
func (f *Factory) CreateSessions() *SessionRegistry {
	system := f.cfg.Pipeline.SystemPrompt
	if system == "" {
		system = SystemInstruction
	}
	window := Window{
		MaxTurns:         f.cfg.Pipeline.MaxTurns,
		MaxContextTokens: f.cfg.Pipeline.MaxContextTokens,
	}

	return NewSessionRegistry(
		func() *ConversationContext { return NewConversationContext(system, window) },
		SessionPolicy{TTL: f.cfg.Sessions.TTL, MaxSessions: f.cfg.Sessions.MaxSessions},
		f.metrics,
		f.logger.With().Str("component", "sessions").Logger(),
	)
}

// CreateStore returns the transcript store; without a database or with persistence
// disabled, turns live in memory only.
func (f *Factory) CreateStore() ports.TranscriptStore {
	if f.db == nil || !f.cfg.Harness.PersistTranscripts {
		return adapters.NoopTranscriptStore{}
	}
	return adapters.NewLibSQLTranscriptStore(f.db)
}

func (f *Factory) createCache() ports.Cache {
	if !f.cfg.Harness.CacheEnabled {
		return adapters.NoopCache{}
	}
	return adapters.NewLRUCache(f.cfg.Harness.CacheCapacity)
}

func (f *Factory) createRateLimiter() ports.RateLimiter {
	if !f.cfg.Harness.RateLimitEnabled {
		return adapters.NoopRateLimiter{}
	}
	return adapters.NewTokenBucket(f.cfg.Harness.RateLimitCapacity, f.cfg.Harness.RateLimitRefillRate)
}

func (f *Factory) createTracer() ports.Tracer {
	if !f.cfg.Harness.EnableTracing {
		return adapters.NoopTracer{}
	}
	return adapters.NewZerologTracer(f.logger.With().Str("component", "tracer").Logger())
}
