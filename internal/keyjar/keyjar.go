// Package keyjar is the handle table for secret keys. Entries are sealed in
// memory and only unsealed, outside the table lock, for the duration of a
// Use callback.
package keyjar

import (
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"ots/go-core/internal/chain"
	"ots/go-core/internal/handle"
	"ots/go-core/internal/keystore"
	"ots/go-core/internal/otserr"
	"ots/go-core/internal/primitives"
	"ots/go-core/internal/securestore"
	"ots/go-core/internal/wallet"
)

var (
	ErrKeyNotFound = otserr.New(otserr.ErrNotFound, "key handle not found")
	ErrClosed      = otserr.New(otserr.ErrDomain, "key jar is closed")
)

type entry struct {
	sealed      []byte
	label       string
	seed        handle.Handle
	network     chain.Network
	accessCount uint64
	created     time.Time
	lastAccess  time.Time
	released    bool
}

// EntryInfo is the non-secret view of an entry.
type EntryInfo struct {
	Handle      handle.Handle
	Label       string
	Seed        handle.Handle
	Network     chain.Network
	AccessCount uint64
	Created     time.Time
	LastAccess  time.Time
	Released    bool
}

func (e *entry) info(h handle.Handle) EntryInfo {
	return EntryInfo{
		Handle:      h,
		Label:       e.label,
		Seed:        e.seed,
		Network:     e.network,
		AccessCount: e.accessCount,
		Created:     e.created,
		LastAccess:  e.lastAccess,
		Released:    e.released,
	}
}

type KeyJar struct {
	mu        sync.Mutex
	entries   map[handle.Handle]*entry
	closed    bool
	gen       *handle.Generator
	sealer    *securestore.Sealer
	retention RetentionPolicy
	prim      primitives.Provider
	now       func() time.Time
	logger    *slog.Logger
	metrics   *metrics
	lookahead wallet.Lookahead

	rand       io.Reader
	registerer prometheus.Registerer
}

type Option func(*KeyJar)

func WithLogger(l *slog.Logger) Option {
	return func(j *KeyJar) {
		if l != nil {
			j.logger = l
		}
	}
}

// WithRegisterer registers the jar's collectors; without it metrics are
// kept but not exported.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(j *KeyJar) { j.registerer = reg }
}

// WithRand replaces crypto/rand for handles and sealing nonces.
func WithRand(r io.Reader) Option {
	return func(j *KeyJar) { j.rand = r }
}

func WithClock(now func() time.Time) Option {
	return func(j *KeyJar) {
		if now != nil {
			j.now = now
		}
	}
}

// WithRetention installs the cleanup policy. The default is none: released
// entries stay until removed or the jar is closed.
func WithRetention(p RetentionPolicy) Option {
	return func(j *KeyJar) { j.retention = p }
}

func WithPrimitives(p primitives.Provider) Option {
	return func(j *KeyJar) {
		if p != nil {
			j.prim = p
		}
	}
}

// WithLookahead sets the address lookahead of wallets opened through the jar.
func WithLookahead(l wallet.Lookahead) Option {
	return func(j *KeyJar) { j.lookahead = l }
}

func New(opts ...Option) (*KeyJar, error) {
	j := &KeyJar{
		entries: make(map[handle.Handle]*entry),
		prim:    primitives.Default,
		now:     time.Now,
		logger:  slog.Default(),

		lookahead: wallet.DefaultLookahead,
	}
	for _, opt := range opts {
		opt(j)
	}
	sealer, err := securestore.NewSealer(j.rand)
	if err != nil {
		return nil, fmt.Errorf("key jar sealer: %w", err)
	}
	j.sealer = sealer
	j.gen = handle.NewGenerator(j.rand)
	j.metrics = newMetrics(j.registerer)
	return j, nil
}

type StoreOption func(*entry)

func WithLabel(label string) StoreOption {
	return func(e *entry) { e.label = label }
}

// WithSeed links the key to the seed jar entry it was derived from.
func WithSeed(h handle.Handle) StoreOption {
	return func(e *entry) { e.seed = h }
}

func WithNetwork(net chain.Network) StoreOption {
	return func(e *entry) { e.network = net }
}

func slot(h handle.Handle) []byte {
	var ad [8]byte
	binary.BigEndian.PutUint64(ad[:], uint64(h))
	return ad[:]
}

// Store copies key into the jar and returns a fresh handle. The caller
// keeps ownership of key and wipes it.
func (j *KeyJar) Store(key []byte, opts ...StoreOption) (handle.Handle, error) {
	if len(key) != keystore.Size {
		return handle.Invalid, fmt.Errorf("%w: got %d", keystore.ErrKeySize, len(key))
	}
	if !j.prim.IsCanonical(key) {
		return handle.Invalid, primitives.ErrInvalidScalar
	}
	now := j.now()
	e := &entry{created: now, lastAccess: now}
	for _, opt := range opts {
		opt(e)
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return handle.Invalid, ErrClosed
	}
	h, err := j.gen.Next(func(h handle.Handle) bool {
		_, ok := j.entries[h]
		return ok
	})
	if err != nil {
		return handle.Invalid, err
	}
	e.sealed, err = j.sealer.Seal(key, slot(h))
	if err != nil {
		return handle.Invalid, err
	}
	j.entries[h] = e
	j.sweepLocked(now)
	j.metrics.stores.Inc()
	j.metrics.entries.Set(float64(len(j.entries)))
	j.logger.Debug("key stored", "key_handle", h.String(), "label", e.label, "network", e.network.String())
	return h, nil
}

// Use lends the key behind h to fn. The access count is bumped even when fn
// fails; the temporary key store is wiped when fn returns.
func (j *KeyJar) Use(h handle.Handle, fn func(ks *keystore.KeyStore) error) error {
	j.mu.Lock()
	if j.closed {
		j.mu.Unlock()
		return ErrClosed
	}
	e, ok := j.entries[h]
	if !ok {
		j.mu.Unlock()
		j.metrics.misses.Inc()
		return fmt.Errorf("%w: %s", ErrKeyNotFound, h)
	}
	e.accessCount++
	e.lastAccess = j.now()
	blob := append([]byte(nil), e.sealed...)
	j.mu.Unlock()
	j.metrics.accesses.Inc()

	plain, err := j.sealer.Open(blob, slot(h))
	if err != nil {
		return fmt.Errorf("unseal key: %w", err)
	}
	ks, err := keystore.New(plain)
	securestore.ZeroBytes(plain)
	if err != nil {
		return err
	}
	defer ks.Wipe()
	return fn(ks)
}

// Get returns a private copy of the key for trusted in-process callers.
// The caller wipes it.
func (j *KeyJar) Get(h handle.Handle) (*keystore.KeyStore, error) {
	var out *keystore.KeyStore
	err := j.Use(h, func(ks *keystore.KeyStore) error {
		out = ks.Clone()
		return nil
	})
	return out, err
}

// Export returns the raw key bytes. It is the only path by which key bytes
// leave the jar and is logged.
func (j *KeyJar) Export(h handle.Handle) ([]byte, error) {
	var out []byte
	err := j.Use(h, func(ks *keystore.KeyStore) error {
		var err error
		out, err = ks.Bytes()
		return err
	})
	if err == nil {
		j.logger.Warn("key exported", "key_handle", h.String())
	}
	return out, err
}

func (j *KeyJar) Has(h handle.Handle) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	_, ok := j.entries[h]
	return ok
}

// Remove wipes and deletes the entry; it reports whether one existed.
func (j *KeyJar) Remove(h handle.Handle) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	e, ok := j.entries[h]
	if !ok {
		return false
	}
	j.dropLocked(h, e)
	j.metrics.removes.Inc()
	j.logger.Debug("key removed", "key_handle", h.String())
	return true
}

func (j *KeyJar) dropLocked(h handle.Handle, e *entry) {
	securestore.ZeroBytes(e.sealed)
	e.sealed = nil
	delete(j.entries, h)
	j.metrics.entries.Set(float64(len(j.entries)))
}

// Info returns the entry metadata without touching the access count.
func (j *KeyJar) Info(h handle.Handle) (EntryInfo, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	e, ok := j.entries[h]
	if !ok {
		j.metrics.misses.Inc()
		return EntryInfo{}, fmt.Errorf("%w: %s", ErrKeyNotFound, h)
	}
	return e.info(h), nil
}

func (j *KeyJar) Label(h handle.Handle) (string, error) {
	info, err := j.Info(h)
	return info.Label, err
}

func (j *KeyJar) Seed(h handle.Handle) (handle.Handle, error) {
	info, err := j.Info(h)
	return info.Seed, err
}

func (j *KeyJar) Network(h handle.Handle) (chain.Network, error) {
	info, err := j.Info(h)
	return info.Network, err
}

func (j *KeyJar) AccessCount(h handle.Handle) (uint64, error) {
	info, err := j.Info(h)
	return info.AccessCount, err
}

// Wallet returns a non-owning wallet over h on the entry's network.
func (j *KeyJar) Wallet(h handle.Handle, height uint64, engine wallet.Engine) (*wallet.Wallet, error) {
	net, err := j.Network(h)
	if err != nil {
		return nil, err
	}
	return wallet.FromSource(j, h, height,
		wallet.WithNetwork(net),
		wallet.WithEngine(engine),
		wallet.WithPrimitives(j.prim),
		wallet.WithLookahead(j.lookahead),
	)
}

func (j *KeyJar) Len() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.entries)
}

// Close wipes every entry and the sealing key. Later calls fail with
// ErrClosed or report absence.
func (j *KeyJar) Close() {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return
	}
	for h, e := range j.entries {
		j.dropLocked(h, e)
	}
	j.closed = true
	j.sealer.Close()
}
