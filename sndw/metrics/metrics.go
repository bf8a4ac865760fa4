// Package metrics exposes Prometheus instrumentation for the recommendation pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Lookup outcomes.
const (
	LookupHit   = "hit"
	LookupMiss  = "miss"
	LookupError = "error"
)

// Turn outcomes.
const (
	OutcomeCompleted    = "completed"
	OutcomeGeneration   = "generation_failure"
	OutcomeInsufficient = "insufficient_results"
	OutcomeRejected     = "rejected"
)

// Pipeline groups the collectors recorded by a turn. A nil *Pipeline records nothing.
type Pipeline struct {
	Turns           *prometheus.CounterVec
	TurnDuration    *prometheus.HistogramVec
	ParsedLines     *prometheus.CounterVec
	Lookups         *prometheus.CounterVec
	LookupDuration  prometheus.Histogram
	LiveSessions    prometheus.Gauge
	EvictedSessions prometheus.Counter
	BreakerState    *prometheus.GaugeVec
}

// NewPipeline registers the pipeline collectors with reg.
func NewPipeline(reg prometheus.Registerer) *Pipeline {
	factory := promauto.With(reg)

	return &Pipeline{
		Turns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "soundware_turns_total",
				Help: "Recommendation turns by outcome",
			},
			[]string{"outcome"},
		),
		TurnDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "soundware_turn_duration_seconds",
				Help:    "Duration of recommendation turns in seconds",
				Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
			},
			[]string{"outcome"},
		),
		ParsedLines: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "soundware_parsed_lines_total",
				Help: "Generated lines by parse result",
			},
			[]string{"result"}, // "accepted", "dropped"
		),
		Lookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "soundware_lookups_total",
				Help: "Candidate lookups by outcome",
			},
			[]string{"outcome"},
		),
		LookupDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "soundware_lookup_duration_seconds",
				Help:    "Duration of single candidate lookups in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		LiveSessions: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "soundware_sessions_live",
				Help: "Conversation sessions currently held in memory",
			},
		),
		EvictedSessions: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "soundware_sessions_evicted_total",
				Help: "Conversation sessions evicted by expiry or capacity",
			},
		),
		BreakerState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "soundware_circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
			},
			[]string{"name"},
		),
	}
}

// ObserveTurn records a finished turn.
func (p *Pipeline) ObserveTurn(outcome string, d time.Duration) {
	if p == nil {
		return
	}
	p.Turns.WithLabelValues(outcome).Inc()
	p.TurnDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

// ObserveParse records accepted and dropped line counts for one parse.
func (p *Pipeline) ObserveParse(accepted, dropped int) {
	if p == nil {
		return
	}
	p.ParsedLines.WithLabelValues("accepted").Add(float64(accepted))
	p.ParsedLines.WithLabelValues("dropped").Add(float64(dropped))
}

// ObserveLookup records one candidate lookup.
func (p *Pipeline) ObserveLookup(outcome string, d time.Duration) {
	if p == nil {
		return
	}
	p.Lookups.WithLabelValues(outcome).Inc()
	p.LookupDuration.Observe(d.Seconds())
}

// SetLiveSessions records the number of sessions held in memory.
func (p *Pipeline) SetLiveSessions(n int) {
	if p == nil {
		return
	}
	p.LiveSessions.Set(float64(n))
}

// AddEvictedSessions counts evicted sessions.
func (p *Pipeline) AddEvictedSessions(n int) {
	if p == nil || n <= 0 {
		return
	}
	p.EvictedSessions.Add(float64(n))
}

// SetBreakerState records a circuit breaker state.
func (p *Pipeline) SetBreakerState(name string, state float64) {
	if p == nil {
		return
	}
	p.BreakerState.WithLabelValues(name).Set(state)
}
