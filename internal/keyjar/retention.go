package keyjar

import (
	"time"

	"ots/go-core/internal/handle"
)

// RetentionPolicy decides whether a released entry may be evicted. Entries
// whose holder has not released them are never offered.
type RetentionPolicy interface {
	Evict(info EntryInfo, now time.Time) bool
}

type RetentionFunc func(info EntryInfo, now time.Time) bool

func (f RetentionFunc) Evict(info EntryInfo, now time.Time) bool { return f(info, now) }

// IdleRetention evicts released entries not accessed for longer than idle.
func IdleRetention(idle time.Duration) RetentionPolicy {
	return RetentionFunc(func(info EntryInfo, now time.Time) bool {
		return now.Sub(info.LastAccess) > idle
	})
}

// Release gives up the caller's claim on h without wiping the entry. The
// handle keeps working until the retention policy evicts the entry, the
// entry is removed or the jar is closed.
func (j *KeyJar) Release(h handle.Handle) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	e, ok := j.entries[h]
	if !ok {
		return false
	}
	e.released = true
	return true
}

// Sweep runs the retention policy now and returns the number of evicted
// entries. Store sweeps opportunistically.
func (j *KeyJar) Sweep() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.sweepLocked(j.now())
}

func (j *KeyJar) sweepLocked(now time.Time) int {
	if j.retention == nil {
		return 0
	}
	evicted := 0
	for h, e := range j.entries {
		if !e.released || !j.retention.Evict(e.info(h), now) {
			continue
		}
		j.dropLocked(h, e)
		j.metrics.evicted.Inc()
		evicted++
	}
	if evicted > 0 {
		j.logger.Debug("released keys evicted", "count", evicted)
	}
	return evicted
}
