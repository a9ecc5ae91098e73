package ratelimiter

import (
	"sync"
	"time"
)

// Lockout tracks consecutive failures per key and locks the key for an
// exponentially growing period: base, 2*base, 4*base... capped at max.
type Lockout struct {
	mu    sync.Mutex
	base  time.Duration
	max   time.Duration
	byKey map[string]*failures
}

type failures struct {
	count       int
	lockedUntil time.Time
}

func NewLockout(base, max time.Duration) *Lockout {
	if base <= 0 {
		base = time.Second
	}
	if max < base {
		max = 32 * base
	}
	return &Lockout{base: base, max: max, byKey: make(map[string]*failures)}
}

// Locked reports whether key is locked at now and for how much longer.
func (l *Lockout) Locked(key string, now time.Time) (bool, time.Duration) {
	if l == nil {
		return false, 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	f, ok := l.byKey[key]
	if !ok || !now.Before(f.lockedUntil) {
		return false, 0
	}
	return true, f.lockedUntil.Sub(now)
}

// Fail records a failure and returns the new lock period.
func (l *Lockout) Fail(key string, now time.Time) time.Duration {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	f, ok := l.byKey[key]
	if !ok {
		f = &failures{}
		l.byKey[key] = f
	}
	f.count++
	backoff := l.backoff(f.count)
	f.lockedUntil = now.Add(backoff)
	return backoff
}

// Reset clears the failure history of key after a success.
func (l *Lockout) Reset(key string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.byKey, key)
}

func (l *Lockout) backoff(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	d := l.base
	for i := 1; i < attempt && d < l.max; i++ {
		d *= 2
	}
	return min(d, l.max)
}
