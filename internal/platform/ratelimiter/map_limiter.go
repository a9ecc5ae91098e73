// Package ratelimiter throttles password attempts per key: a token bucket
// bounds the attempt rate and a lockout backs off after failures.
package ratelimiter

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// MapLimiter keeps one token bucket per key. A bucket that has refilled to
// its burst behaves like a fresh one, so the periodic sweep drops it.
type MapLimiter struct {
	limit rate.Limit
	burst int
	// refill is the time an empty bucket needs to fill up again.
	refill time.Duration

	mu        sync.Mutex
	buckets   map[string]*rate.Limiter
	nextSweep time.Time
}

// New returns nil when rps or burst is not positive; a nil limiter allows
// everything.
func New(rps float64, burst int) *MapLimiter {
	if rps <= 0 || burst <= 0 {
		return nil
	}
	return &MapLimiter{
		limit:   rate.Limit(rps),
		burst:   burst,
		refill:  time.Duration(float64(burst) / rps * float64(time.Second)),
		buckets: make(map[string]*rate.Limiter),
	}
}

// Allow takes one token from key's bucket at now.
func (l *MapLimiter) Allow(key string, now time.Time) bool {
	if l == nil || key == "" {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if !now.Before(l.nextSweep) {
		l.sweep(now)
	}
	b := l.buckets[key]
	if b == nil {
		b = rate.NewLimiter(l.limit, l.burst)
		l.buckets[key] = b
	}
	return b.AllowN(now, 1)
}

// Forget drops key's bucket once the guarded object is gone.
func (l *MapLimiter) Forget(key string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	delete(l.buckets, key)
	l.mu.Unlock()
}

func (l *MapLimiter) Len() int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

func (l *MapLimiter) sweep(now time.Time) {
	for key, b := range l.buckets {
		if b.TokensAt(now) >= float64(l.burst) {
			delete(l.buckets, key)
		}
	}
	l.nextSweep = now.Add(l.refill)
}
