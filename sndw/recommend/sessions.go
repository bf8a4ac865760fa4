package recommend

import (
	"context"
	"sync"
	"time"

	internal "github.com/ZanzyTHEbar/soundware/sndw"
	"github.com/ZanzyTHEbar/soundware/sndw/metrics"
	ports "github.com/ZanzyTHEbar/soundware/sndw/recommend/ports"
	"github.com/rs/zerolog"
)

// Session is one conversation. Its mutex serializes turns of the same conversation.
type Session struct {
	ID string

	mu      sync.Mutex
	context *ConversationContext

	// guarded by the registry mutex
	lastUsed time.Time
	inUse    int
}

// SessionPolicy controls session lifetime.
type SessionPolicy struct {
	TTL         time.Duration // idle time before a session expires; 0 never expires
	MaxSessions int           // live session cap; 0 is unbounded
}

// SessionRegistry maps session ids to conversations, creating them on first use and
// evicting idle ones.
type SessionRegistry struct {
	mu         sync.Mutex
	sessions   map[string]*Session
	newContext func() *ConversationContext
	policy     SessionPolicy
	onEvict    func(id string)
	now        func() time.Time
	metrics    *metrics.Pipeline
	logger     zerolog.Logger
}

// NewSessionRegistry creates a registry whose sessions open with newContext.
func NewSessionRegistry(newContext func() *ConversationContext, policy SessionPolicy, m *metrics.Pipeline, logger zerolog.Logger) *SessionRegistry {
	return &SessionRegistry{
		sessions:   make(map[string]*Session),
		newContext: newContext,
		policy:     policy,
		now:        time.Now,
		metrics:    m,
		logger:     logger,
	}
}

// OnEvict registers a callback run (outside the registry lock) for each evicted session.
func (r *SessionRegistry) OnEvict(fn func(id string)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onEvict = fn
}

// Acquire returns the session for id, creating it on first use, and locks it.
// The returned release func must be called exactly once.
func (r *SessionRegistry) Acquire(id string) (*Session, func()) {
	if id == "" {
		id = internal.DefaultSessionID
	}

	r.mu.Lock()
	s, ok := r.sessions[id]
	var evicted []string
	if !ok {
		evicted = r.evictForCapacityLocked()
		s = &Session{ID: id, context: r.newContext()}
		r.sessions[id] = s
		r.logger.Debug().Str("session_id", id).Msg("Session created")
	}
	s.inUse++
	s.lastUsed = r.now()
	live := len(r.sessions)
	onEvict := r.onEvict
	r.mu.Unlock()

	r.metrics.SetLiveSessions(live)
	r.metrics.AddEvictedSessions(len(evicted))
	notify(onEvict, evicted)

	s.mu.Lock()

	var once sync.Once
	return s, func() {
		once.Do(func() {
			s.mu.Unlock()

			r.mu.Lock()
			s.inUse--
			s.lastUsed = r.now()
			r.mu.Unlock()
		})
	}
}

// evictForCapacityLocked makes room for one more session by dropping the least
// recently used idle sessions. Busy sessions are never evicted, so the cap can be
// exceeded while every session is mid-turn.
func (r *SessionRegistry) evictForCapacityLocked() []string {
	if r.policy.MaxSessions <= 0 {
		return nil
	}

	var evicted []string
	for len(r.sessions) >= r.policy.MaxSessions {
		var oldest *Session
		for _, s := range r.sessions {
			if s.inUse > 0 {
				continue
			}
			if oldest == nil || s.lastUsed.Before(oldest.lastUsed) {
				oldest = s
			}
		}
		if oldest == nil {
			break
		}
		delete(r.sessions, oldest.ID)
		evicted = append(evicted, oldest.ID)
	}
	return evicted
}

// Sweep evicts sessions idle for longer than the TTL and returns how many were removed.
func (r *SessionRegistry) Sweep(now time.Time) int {
	if r.policy.TTL <= 0 {
		return 0
	}

	r.mu.Lock()
	var evicted []string
	for id, s := range r.sessions {
		if s.inUse == 0 && now.Sub(s.lastUsed) > r.policy.TTL {
			delete(r.sessions, id)
			evicted = append(evicted, id)
		}
	}
	live := len(r.sessions)
	onEvict := r.onEvict
	r.mu.Unlock()

	r.metrics.SetLiveSessions(live)
	r.metrics.AddEvictedSessions(len(evicted))
	notify(onEvict, evicted)

	if len(evicted) > 0 {
		r.logger.Info().Int("evicted", len(evicted)).Int("live", live).Msg("Expired idle sessions")
	}
	return len(evicted)
}

// StartJanitor sweeps expired sessions every interval until ctx is done.
func (r *SessionRegistry) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 || r.policy.TTL <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.Sweep(r.now())
			}
		}
	}()
}

// Drop removes a session regardless of its idle time. Busy sessions finish their turn
// on the detached context.
func (r *SessionRegistry) Drop(id string) bool {
	r.mu.Lock()
	_, ok := r.sessions[id]
	delete(r.sessions, id)
	live := len(r.sessions)
	onEvict := r.onEvict
	r.mu.Unlock()

	if ok {
		r.metrics.SetLiveSessions(live)
		notify(onEvict, []string{id})
	}
	return ok
}

// Restore appends stored turns to the session's context and prunes it to the window.
// System turns and unknown roles are skipped. Returns the number of turns held after
// pruning, not counting the system turn.
func (r *SessionRegistry) Restore(id string, turns []ports.Turn) int {
	s, release := r.Acquire(id)
	defer release()

	for _, t := range turns {
		if err := s.context.Append(t); err != nil {
			r.logger.Debug().Err(err).Str("session_id", s.ID).Msg("Skipped stored turn")
		}
	}
	s.context.Prune()
	return s.context.Len() - 1
}

// Len returns the number of live sessions.
func (r *SessionRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func notify(fn func(string), ids []string) {
	if fn == nil {
		return
	}
	for _, id := range ids {
		fn(id)
	}
}
