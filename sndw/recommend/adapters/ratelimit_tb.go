package adapters

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	ports "github.com/ZanzyTHEbar/soundware/sndw/recommend/ports"
)

// ErrRateLimitExceeded matches every *RateLimitError.
var ErrRateLimitExceeded = errors.New("rate limit exceeded")

// RateLimitError reports a session that has spent its turns. RetryAfter is the time
// until the next token, zero when the bucket never refills.
type RateLimitError struct {
	Key        string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("session %q: no turns left, retry in %s", e.Key, e.RetryAfter)
	}
	return fmt.Sprintf("session %q: no turns left", e.Key)
}

func (e *RateLimitError) Is(target error) bool { return target == ErrRateLimitExceeded }

// TokenBucket admits turns per session. Each session starts with capacity tokens,
// a turn spends one, and one token returns every refill interval.
type TokenBucket struct {
	mu       sync.Mutex
	sessions map[string]*tokens
	capacity int
	refill   time.Duration // 0 never refills
	now      func() time.Time
}

type tokens struct {
	left    int
	updated time.Time
}

// NewTokenBucket returns a limiter with capacity tokens per session (minimum 1).
func NewTokenBucket(capacity int, refill time.Duration) *TokenBucket {
	return &TokenBucket{
		sessions: make(map[string]*tokens),
		capacity: max(capacity, 1),
		refill:   refill,
		now:      time.Now,
	}
}

// Acquire spends one token for key. The returned release is a no-op; spent tokens
// only come back through refill.
func (tb *TokenBucket) Acquire(ctx context.Context, key string) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := tb.now()
	t, ok := tb.sessions[key]
	if !ok {
		t = &tokens{left: tb.capacity, updated: now}
		tb.sessions[key] = t
	}
	tb.topUp(t, now)

	if t.left == 0 {
		var wait time.Duration
		if tb.refill > 0 {
			wait = tb.refill - now.Sub(t.updated)
		}
		return nil, &RateLimitError{Key: key, RetryAfter: wait}
	}
	t.left--
	return func() {}, nil
}

// topUp credits whole refill intervals elapsed since the last update.
func (tb *TokenBucket) topUp(t *tokens, now time.Time) {
	if tb.refill <= 0 {
		return
	}
	if t.left >= tb.capacity {
		t.updated = now
		return
	}
	n := int(now.Sub(t.updated) / tb.refill)
	if n == 0 {
		return
	}
	t.left = min(t.left+n, tb.capacity)
	t.updated = t.updated.Add(time.Duration(n) * tb.refill)
}

// Forget drops the bucket for key. Wired to session eviction.
func (tb *TokenBucket) Forget(key string) {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	delete(tb.sessions, key)
}

var _ ports.RateLimiter = (*TokenBucket)(nil)
