package auth

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter decides whether a caller identified by key may proceed
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// idleAfter is how long an unused key keeps its bucket
const idleAfter = 10 * time.Minute

// TokenBucketLimiter keeps one token bucket per key
type TokenBucketLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	limit     rate.Limit
	burst     int
	now       func() time.Time
	lastPrune time.Time
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewTokenBucketLimiter allows requestsPerMinute per key with bursts of
// the same size.
func NewTokenBucketLimiter(requestsPerMinute int) *TokenBucketLimiter {
	return &TokenBucketLimiter{
		buckets: make(map[string]*bucket),
		limit:   rate.Limit(float64(requestsPerMinute) / 60),
		burst:   requestsPerMinute,
		now:     time.Now,
	}
}

// Allow checks if a request is allowed
func (l *TokenBucketLimiter) Allow(ctx context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastPrune) > idleAfter {
		l.prune(now)
	}

	b, exists := l.buckets[key]
	if !exists {
		b = &bucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[key] = b
	}
	b.lastSeen = now
	return b.limiter.AllowN(now, 1), nil
}

// Len returns the number of tracked keys
func (l *TokenBucketLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

func (l *TokenBucketLimiter) prune(now time.Time) {
	for key, b := range l.buckets {
		if now.Sub(b.lastSeen) > idleAfter {
			delete(l.buckets, key)
		}
	}
	l.lastPrune = now
}
