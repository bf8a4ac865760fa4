package recommendports

import "context"

// RateLimiter admits turns per key (session).
type RateLimiter interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}
