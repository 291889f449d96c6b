// Package ratelimit provides a keyed token-bucket rate limiter.
//
// Each key (a client IP for the auth endpoints) gets its own bucket. Buckets
// that have not been used for the idle TTL are evicted by a background
// sweeper so that the map does not grow with every client ever seen.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const defaultIdleTTL = 10 * time.Minute

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// KeyedRateLimiter manages per-key rate limiting.
type KeyedRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*entry
	limit    rate.Limit
	burst    int
	idleTTL  time.Duration
	now      func() time.Time

	done     chan struct{}
	stopOnce sync.Once
}

// Option configures a KeyedRateLimiter.
type Option func(*KeyedRateLimiter)

// WithIdleTTL sets how long an unused bucket is kept.
func WithIdleTTL(d time.Duration) Option {
	return func(k *KeyedRateLimiter) { k.idleTTL = d }
}

// New creates a limiter allowing perMinute events per key per minute with
// the given burst.
func New(perMinute, burst int, opts ...Option) *KeyedRateLimiter {
	krl := &KeyedRateLimiter{
		limiters: make(map[string]*entry),
		limit:    rate.Limit(float64(perMinute) / 60),
		burst:    burst,
		idleTTL:  defaultIdleTTL,
		now:      time.Now,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(krl)
	}

	go krl.sweep()

	return krl
}

// Allow reports whether an event for key may happen now and consumes a token
// if so.
func (krl *KeyedRateLimiter) Allow(key string) bool {
	krl.mu.Lock()
	e, ok := krl.limiters[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(krl.limit, krl.burst)}
		krl.limiters[key] = e
	}
	e.lastSeen = krl.now()
	krl.mu.Unlock()

	return e.limiter.Allow()
}

// RetryAfter is the time until one token is refilled.
func (krl *KeyedRateLimiter) RetryAfter() time.Duration {
	if krl.limit <= 0 {
		return time.Minute
	}
	return time.Duration(float64(time.Second) / float64(krl.limit))
}

// Len returns the number of tracked keys.
func (krl *KeyedRateLimiter) Len() int {
	krl.mu.Lock()
	defer krl.mu.Unlock()
	return len(krl.limiters)
}

// evictIdle drops buckets unused for longer than the idle TTL.
func (krl *KeyedRateLimiter) evictIdle() {
	cutoff := krl.now().Add(-krl.idleTTL)

	krl.mu.Lock()
	defer krl.mu.Unlock()
	for key, e := range krl.limiters {
		if e.lastSeen.Before(cutoff) {
			delete(krl.limiters, key)
		}
	}
}

func (krl *KeyedRateLimiter) sweep() {
	ticker := time.NewTicker(krl.idleTTL)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			krl.evictIdle()
		case <-krl.done:
			return
		}
	}
}

// Stop shuts down the sweeper. It is safe to call on a nil limiter.
func (krl *KeyedRateLimiter) Stop() {
	if krl == nil {
		return
	}
	krl.stopOnce.Do(func() {
		close(krl.done)
	})
}

// Shutdown stops the sweeper when the injector shuts down.
func (krl *KeyedRateLimiter) Shutdown() error {
	krl.Stop()
	return nil
}
