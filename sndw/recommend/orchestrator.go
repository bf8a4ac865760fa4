package recommend

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	internal "github.com/ZanzyTHEbar/soundware/sndw"
	"github.com/ZanzyTHEbar/soundware/sndw/metrics"
	"github.com/ZanzyTHEbar/soundware/sndw/recommend/adapters"
	ports "github.com/ZanzyTHEbar/soundware/sndw/recommend/ports"
)

// Components are the collaborators of a TurnOrchestrator. Generator, Parser,
// Enricher and Sessions are required; the ports fall back to no-ops when nil.
type Components struct {
	Generator ports.Generator
	Builder   *PromptBuilder
	Parser    *CandidateParser
	Output    OutputPolicy
	Enricher  *Enricher
	Gate      QualityGate
	Sessions  *SessionRegistry
	Store     ports.TranscriptStore
	Limiter   ports.RateLimiter
	Tracer    ports.Tracer
	Metrics   *metrics.Pipeline
	Logger    zerolog.Logger
}

// TurnOrchestrator runs one recommendation turn:
// received → generated → parsed → enriched → gated → completed | failed.
type TurnOrchestrator struct {
	generator ports.Generator
	builder   *PromptBuilder
	parser    *CandidateParser
	output    OutputPolicy
	enricher  *Enricher
	gate      QualityGate
	sessions  *SessionRegistry
	store     ports.TranscriptStore
	limiter   ports.RateLimiter
	tracer    ports.Tracer
	metrics   *metrics.Pipeline
	logger    zerolog.Logger
	now       func() time.Time
}

// NewTurnOrchestrator validates c and returns an orchestrator.
func NewTurnOrchestrator(c Components) (*TurnOrchestrator, error) {
	switch {
	case c.Generator == nil:
		return nil, errors.New("turn orchestrator requires a generator")
	case c.Parser == nil:
		return nil, errors.New("turn orchestrator requires a candidate parser")
	case c.Enricher == nil:
		return nil, errors.New("turn orchestrator requires an enricher")
	case c.Sessions == nil:
		return nil, errors.New("turn orchestrator requires a session registry")
	}

	if c.Builder == nil {
		c.Builder = NewPromptBuilder(DefaultTemperature, 0)
	}
	if c.Store == nil {
		c.Store = adapters.NoopTranscriptStore{}
	}
	if c.Limiter == nil {
		c.Limiter = adapters.NoopRateLimiter{}
	}
	if c.Tracer == nil {
		c.Tracer = adapters.NoopTracer{}
	}

	return &TurnOrchestrator{
		generator: c.Generator,
		builder:   c.Builder,
		parser:    c.Parser,
		output:    c.Output,
		enricher:  c.Enricher,
		gate:      c.Gate,
		sessions:  c.Sessions,
		store:     c.Store,
		limiter:   c.Limiter,
		tracer:    c.Tracer,
		metrics:   c.Metrics,
		logger:    c.Logger,
		now:       time.Now,
	}, nil
}

// Sessions exposes the registry backing this orchestrator.
func (o *TurnOrchestrator) Sessions() *SessionRegistry { return o.sessions }

// RunTurn runs one turn for sessionID. An empty sessionID uses the shared default
// conversation. Failures are *GenerationError or *InsufficientResultsError; input
// and admission errors are returned before the pipeline starts.
func (o *TurnOrchestrator) RunTurn(ctx context.Context, sessionID, message string) (*TurnResult, error) {
	start := o.now()

	message = strings.TrimSpace(message)
	if message == "" {
		o.metrics.ObserveTurn(metrics.OutcomeRejected, 0)
		return nil, ErrEmptyMessage
	}
	if sessionID == "" {
		sessionID = internal.DefaultSessionID
	}

	release, err := o.limiter.Acquire(ctx, sessionID)
	if err != nil {
		o.metrics.ObserveTurn(metrics.OutcomeRejected, 0)
		return nil, fmt.Errorf("rate limit exceeded: %w", err)
	}
	defer release()

	ctx, finish := o.tracer.StartSpan(ctx, "turn", map[string]any{
		"session_id": sessionID,
	})

	session, done := o.sessions.Acquire(sessionID)
	defer done()

	stats := TurnStats{FinalState: StateReceived}
	recs, err := o.run(ctx, session, message, &stats)
	stats.Duration = o.now().Sub(start)

	finish(err)

	outcome := outcomeOf(err)
	o.metrics.ObserveTurn(outcome, stats.Duration)

	log := o.logger.With().
		Str("session_id", sessionID).
		Str("state", string(stats.FinalState)).
		Int("candidates", stats.Candidates).
		Int("dropped", stats.Dropped).
		Int("hits", stats.Hits).
		Int("misses", stats.Misses).
		Int("lookup_errors", stats.LookupErrors).
		Dur("duration", stats.Duration).
		Logger()

	if err != nil {
		log.Error().Err(err).Str("outcome", outcome).Msg("Turn failed")
		return nil, err
	}

	log.Info().Int("recommendations", len(recs)).Msg("Turn completed")

	return &TurnResult{
		SessionID:       sessionID,
		Recommendations: recs,
		Stats:           stats,
	}, nil
}

func (o *TurnOrchestrator) run(ctx context.Context, session *Session, message string, stats *TurnStats) ([]Recommendation, error) {
	fail := func(err error) ([]Recommendation, error) {
		o.transition(ctx, stats, StateFailed, map[string]any{"error": err.Error()})
		return nil, err
	}

	// Generated
	pending := ports.Turn{Role: ports.RoleUser, Content: message, CreatedAt: o.now()}
	req := o.builder.Build(session.context.Snapshot(), pending)

	genCtx, endGen := o.tracer.StartSpan(ctx, "generate", map[string]any{
		"turns": len(req.Turns),
	})
	completion, err := o.generator.Complete(genCtx, req)
	if err == nil {
		err = o.output.Check(completion.Text)
	}
	endGen(err)
	if err != nil {
		// Nothing was appended, so the conversation is exactly as before the turn.
		return fail(&GenerationError{Cause: err})
	}

	reply := ports.Turn{Role: ports.RoleAssistant, Content: completion.Text, CreatedAt: o.now()}
	if err := o.record(session, pending, reply); err != nil {
		return fail(&GenerationError{Cause: err})
	}
	stats.PrunedTurns = session.context.Prune()
	stats.ContextLength = session.context.Len()
	o.persist(ctx, session.ID, pending, reply)

	attrs := map[string]any{"pruned": stats.PrunedTurns, "context_length": stats.ContextLength}
	if completion.Usage != nil {
		attrs["total_tokens"] = completion.Usage.TotalTokens
	}
	o.transition(ctx, stats, StateGenerated, attrs)

	// Parsed
	parsed := o.parser.Parse(completion.Text)
	stats.Candidates = len(parsed.Candidates)
	stats.Dropped = len(parsed.Dropped)
	o.metrics.ObserveParse(stats.Candidates, stats.Dropped)
	o.transition(ctx, stats, StateParsed, map[string]any{
		"candidates": stats.Candidates,
		"dropped":    stats.Dropped,
	})

	// Enriched
	enrichCtx, endEnrich := o.tracer.StartSpan(ctx, "enrich", map[string]any{
		"candidates": stats.Candidates,
	})
	enriched := o.enricher.Enrich(enrichCtx, parsed.Candidates)
	endEnrich(nil)
	stats.Hits = enriched.Hits
	stats.Misses = enriched.Misses
	stats.LookupErrors = enriched.Errors
	o.transition(ctx, stats, StateEnriched, map[string]any{
		"hits":   stats.Hits,
		"misses": stats.Misses,
		"errors": stats.LookupErrors,
	})

	// Gated
	if err := o.gate.Check(enriched.Recommendations); err != nil {
		return fail(err)
	}
	o.transition(ctx, stats, StateGated, map[string]any{"recommendations": len(enriched.Recommendations)})

	o.transition(ctx, stats, StateCompleted, nil)
	return enriched.Recommendations, nil
}

// record appends the user turn and its reply together.
func (o *TurnOrchestrator) record(session *Session, user, reply ports.Turn) error {
	if err := session.context.Append(user); err != nil {
		return err
	}
	return session.context.Append(reply)
}

// persist writes both turns to the transcript store. Failures are logged only.
func (o *TurnOrchestrator) persist(ctx context.Context, sessionID string, turns ...ports.Turn) {
	for _, t := range turns {
		if err := o.store.SaveTurn(ctx, sessionID, t); err != nil {
			o.logger.Warn().Err(err).Str("session_id", sessionID).Str("role", string(t.Role)).Msg("Failed to persist turn")
			o.tracer.Event(ctx, "store_error", map[string]any{"error": err.Error()})
			return
		}
	}
}

func (o *TurnOrchestrator) transition(ctx context.Context, stats *TurnStats, state TurnState, attrs map[string]any) {
	stats.FinalState = state
	if attrs == nil {
		attrs = map[string]any{}
	}
	attrs["state"] = string(state)
	o.tracer.Event(ctx, "turn_state", attrs)
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeCompleted
	case errors.Is(err, ErrGeneration):
		return metrics.OutcomeGeneration
	case errors.Is(err, ErrInsufficientResults):
		return metrics.OutcomeInsufficient
	default:
		return metrics.OutcomeRejected
	}
}
