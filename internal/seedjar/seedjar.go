// Package seedjar is the handle table for decoded seeds, indexed by handle
// and by fingerprint. Storing an equal seed twice returns the first handle.
package seedjar

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"ots/go-core/internal/handle"
	"ots/go-core/internal/otserr"
	"ots/go-core/internal/seed"
)

var (
	ErrSeedNotFound = otserr.New(otserr.ErrNotFound, "seed not found")
	ErrClosed       = otserr.New(otserr.ErrDomain, "seed jar is closed")
	ErrNilSeed      = otserr.New(otserr.ErrInvalidArgument, "seed is nil")
)

type SeedJar struct {
	mu      sync.Mutex
	byID    map[handle.Handle]*seed.Seed
	byFP    map[string]handle.Handle
	gen     *handle.Generator
	closed  bool
	logger  *slog.Logger
	metrics *metrics

	rand       io.Reader
	registerer prometheus.Registerer
}

type Option func(*SeedJar)

func WithLogger(l *slog.Logger) Option {
	return func(j *SeedJar) {
		if l != nil {
			j.logger = l
		}
	}
}

func WithRegisterer(reg prometheus.Registerer) Option {
	return func(j *SeedJar) { j.registerer = reg }
}

func WithRand(r io.Reader) Option {
	return func(j *SeedJar) { j.rand = r }
}

func New(opts ...Option) *SeedJar {
	j := &SeedJar{
		byID:   make(map[handle.Handle]*seed.Seed),
		byFP:   make(map[string]handle.Handle),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(j)
	}
	j.gen = handle.NewGenerator(j.rand)
	j.metrics = newMetrics(j.registerer)
	return j
}

// Store takes ownership of s. When an equal seed is already held, s is
// wiped and the existing handle is returned.
func (j *SeedJar) Store(s *seed.Seed) (handle.Handle, error) {
	if s == nil {
		return handle.Invalid, ErrNilSeed
	}
	fp := s.Fingerprint()

	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return handle.Invalid, ErrClosed
	}
	if h, ok := j.byFP[fp]; ok {
		if j.byID[h] != s {
			s.Wipe()
		}
		j.metrics.dedups.Inc()
		j.logger.Debug("seed already stored", "seed_handle", h.String(), "fingerprint", fp)
		return h, nil
	}
	h, err := j.gen.Next(func(h handle.Handle) bool {
		_, ok := j.byID[h]
		return ok
	})
	if err != nil {
		return handle.Invalid, err
	}
	j.byID[h] = s
	j.byFP[fp] = h
	j.metrics.entries.Set(float64(len(j.byID)))
	j.logger.Debug("seed stored", "seed_handle", h.String(), "fingerprint", fp, "family", s.Family().String())
	return h, nil
}

// Get returns a clone of the stored seed; the caller wipes it.
func (j *SeedJar) Get(h handle.Handle) (*seed.Seed, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	s, ok := j.byID[h]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSeedNotFound, h)
	}
	return s.Clone(), nil
}

// ByFingerprint resolves a fingerprint to its handle.
func (j *SeedJar) ByFingerprint(fp string) (handle.Handle, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	h, ok := j.byFP[fp]
	if !ok {
		return handle.Invalid, fmt.Errorf("%w: fingerprint %s", ErrSeedNotFound, fp)
	}
	return h, nil
}

func (j *SeedJar) Has(h handle.Handle) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	_, ok := j.byID[h]
	return ok
}

// Remove wipes and deletes the seed; it reports whether one existed.
func (j *SeedJar) Remove(h handle.Handle) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	s, ok := j.byID[h]
	if !ok {
		return false
	}
	j.dropLocked(h, s)
	return true
}

func (j *SeedJar) dropLocked(h handle.Handle, s *seed.Seed) {
	if j.byFP[s.Fingerprint()] == h {
		delete(j.byFP, s.Fingerprint())
	}
	s.Wipe()
	delete(j.byID, h)
	j.metrics.entries.Set(float64(len(j.byID)))
}

// Update applies fn to a clone of the seed outside the lock and swaps the
// result in. When the new fingerprint already belongs to another entry, the
// updated seed is dropped and that entry's handle is returned instead.
func (j *SeedJar) Update(h handle.Handle, fn func(s *seed.Seed) error) (handle.Handle, error) {
	work, err := j.Get(h)
	if err != nil {
		return handle.Invalid, err
	}
	if err := fn(work); err != nil {
		work.Wipe()
		return handle.Invalid, err
	}
	fp := work.Fingerprint()

	j.mu.Lock()
	defer j.mu.Unlock()
	old, ok := j.byID[h]
	if !ok {
		work.Wipe()
		return handle.Invalid, fmt.Errorf("%w: %s removed during update", ErrSeedNotFound, h)
	}
	if other, dup := j.byFP[fp]; dup && other != h {
		j.dropLocked(h, old)
		work.Wipe()
		j.metrics.dedups.Inc()
		j.logger.Debug("updated seed merged", "seed_handle", h.String(), "handle", other.String())
		return other, nil
	}
	if j.byFP[old.Fingerprint()] == h {
		delete(j.byFP, old.Fingerprint())
	}
	old.Wipe()
	j.byID[h] = work
	j.byFP[fp] = h
	return h, nil
}

func (j *SeedJar) Len() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.byID)
}

// Close wipes every seed.
func (j *SeedJar) Close() {
	j.mu.Lock()
	defer j.mu.Unlock()
	for h, s := range j.byID {
		j.dropLocked(h, s)
	}
	j.closed = true
}
