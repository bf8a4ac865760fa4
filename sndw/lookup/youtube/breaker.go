package youtube

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/ZanzyTHEbar/soundware/sndw/metrics"
	ports "github.com/ZanzyTHEbar/soundware/sndw/recommend/ports"
)

// BreakerName labels the lookup circuit breaker in logs and metrics.
const BreakerName = "youtube-search"

// BreakerSettings configures the circuit breaker. Zero values take the defaults.
type BreakerSettings struct {
	MaxRequests  uint32        // requests allowed while half-open
	Interval     time.Duration // closed-state count reset period
	Timeout      time.Duration // open duration before probing
	MinRequests  uint32        // requests before the failure ratio counts
	FailureRatio float64
}

func (s BreakerSettings) withDefaults() BreakerSettings {
	if s.MaxRequests == 0 {
		s.MaxRequests = 3
	}
	if s.Interval <= 0 {
		s.Interval = time.Minute
	}
	if s.Timeout <= 0 {
		s.Timeout = 30 * time.Second
	}
	if s.MinRequests == 0 {
		s.MinRequests = 10
	}
	if s.FailureRatio <= 0 {
		s.FailureRatio = 0.6
	}
	return s
}

// BreakerLookup guards a Lookup with a circuit breaker. While open, searches fail
// fast instead of spending quota on a failing API.
type BreakerLookup struct {
	next ports.Lookup
	cb   *gobreaker.CircuitBreaker[ports.LookupResult]
}

// NewBreakerLookup wraps next.
func NewBreakerLookup(next ports.Lookup, settings BreakerSettings, m *metrics.Pipeline, logger zerolog.Logger) *BreakerLookup {
	s := settings.withDefaults()
	m.SetBreakerState(BreakerName, stateToFloat(gobreaker.StateClosed))

	cb := gobreaker.NewCircuitBreaker[ports.LookupResult](gobreaker.Settings{
		Name:        BreakerName,
		MaxRequests: s.MaxRequests,
		Interval:    s.Interval,
		Timeout:     s.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < s.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			if ratio >= s.FailureRatio {
				logger.Warn().Uint32("failures", counts.TotalFailures).Float64("failure_rate", ratio*100).Msg("Opening lookup circuit")
				return true
			}
			return false
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("Circuit breaker state transition")
			m.SetBreakerState(name, stateToFloat(to))
		},
		// A caller giving up says nothing about the API's health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})

	return &BreakerLookup{next: next, cb: cb}
}

// Search runs the wrapped search through the breaker.
func (b *BreakerLookup) Search(ctx context.Context, req ports.LookupRequest) (ports.LookupResult, error) {
	return b.cb.Execute(func() (ports.LookupResult, error) {
		return b.next.Search(ctx, req)
	})
}

// State reports the current breaker state.
func (b *BreakerLookup) State() gobreaker.State { return b.cb.State() }

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

var _ ports.Lookup = (*BreakerLookup)(nil)
