package policy

import (
	"sync"
	"time"
)

// RateLimiter is a token bucket per key (a client address for the HTTP API)
type RateLimiter struct {
	// perSecond is both the bucket capacity and its refill rate
	perSecond int
	buckets   map[string]*tokenBucket
	mu        sync.Mutex
}

type tokenBucket struct {
	tokens     int
	lastRefill time.Time
}

// NewRateLimiter creates a limiter; a non-positive rate disables it
func NewRateLimiter(perSecond int) *RateLimiter {
	return &RateLimiter{
		perSecond: perSecond,
		buckets:   make(map[string]*tokenBucket),
	}
}

func (l *RateLimiter) Enabled() bool {
	return l != nil && l.perSecond > 0
}

func (l *RateLimiter) Name() string {
	return "rate_limiting"
}

// bucket returns the refilled bucket for key; the caller holds the lock
func (l *RateLimiter) bucket(key string, now time.Time) *tokenBucket {
	b, ok := l.buckets[key]
	if !ok {
		b = &tokenBucket{tokens: l.perSecond, lastRefill: now}
		l.buckets[key] = b
		return b
	}
	tokensToAdd := int(now.Sub(b.lastRefill).Seconds() * float64(l.perSecond))
	if tokensToAdd > 0 {
		b.tokens = min(b.tokens+tokensToAdd, l.perSecond)
		b.lastRefill = now
	}
	return b
}

// Allow takes one token for key and reports whether one was available
func (l *RateLimiter) Allow(key string, now time.Time) bool {
	if !l.Enabled() {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	b := l.bucket(key, now)
	if b.tokens > 0 {
		b.tokens--
		return true
	}
	return false
}

// Remaining returns the tokens left for key, -1 when unlimited
func (l *RateLimiter) Remaining(key string, now time.Time) int {
	if !l.Enabled() {
		return -1
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.bucket(key, now).tokens
}
