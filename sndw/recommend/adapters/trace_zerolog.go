package adapters

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	ports "github.com/ZanzyTHEbar/soundware/sndw/recommend/ports"
)

type spanKey struct{}

// span is the active span carried in a context.
type span struct {
	id     string
	logger zerolog.Logger
}

// ZerologTracer writes spans and events as structured log lines. Nested spans carry
// their parent's id and attributes.
type ZerologTracer struct {
	logger zerolog.Logger
	now    func() time.Time
}

// NewZerologTracer returns a tracer writing to logger.
func NewZerologTracer(logger zerolog.Logger) *ZerologTracer {
	return &ZerologTracer{logger: logger, now: time.Now}
}

// StartSpan opens a span named name. Span boundaries log at debug; a span finished
// with an error logs at warn.
func (t *ZerologTracer) StartSpan(ctx context.Context, name string, attrs map[string]any) (context.Context, func(err error)) {
	parent, nested := ctx.Value(spanKey{}).(span)
	base := t.logger
	if nested {
		base = parent.logger
	}

	id := uuid.NewString()[:8]
	lc := base.With().Str("span", name).Str("span_id", id)
	if nested {
		lc = lc.Str("parent_span_id", parent.id)
	}
	if len(attrs) > 0 {
		lc = lc.Fields(attrs)
	}
	s := span{id: id, logger: lc.Logger()}

	start := t.now()
	s.logger.Debug().Msg("Span started")

	return context.WithValue(ctx, spanKey{}, s), func(err error) {
		ev := s.logger.Debug()
		if err != nil {
			ev = s.logger.Warn().Err(err)
		}
		ev.Dur("duration", t.now().Sub(start)).Msg("Span finished")
	}
}

// Event logs name with attrs inside the current span, if any.
func (t *ZerologTracer) Event(ctx context.Context, name string, attrs map[string]any) {
	logger := t.logger
	if s, ok := ctx.Value(spanKey{}).(span); ok {
		logger = s.logger
	}
	logger.Info().Fields(attrs).Str("event", name).Msg("Trace event")
}

var _ ports.Tracer = (*ZerologTracer)(nil)
