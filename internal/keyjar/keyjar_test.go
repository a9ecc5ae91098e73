package keyjar

import (
	"bytes"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"ots/go-core/internal/chain"
	"ots/go-core/internal/handle"
	"ots/go-core/internal/keystore"
	"ots/go-core/internal/otserr"
	"ots/go-core/internal/primitives"
)

func newJar(t *testing.T, opts ...Option) *KeyJar {
	t.Helper()
	j, err := New(opts...)
	if err != nil {
		t.Fatalf("new jar: %v", err)
	}
	t.Cleanup(j.Close)
	return j
}

func randomKey(t *testing.T) []byte {
	t.Helper()
	k, err := primitives.Default.RandomScalar()
	if err != nil {
		t.Fatal(err)
	}
	return k[:]
}

func TestStoreGetRemove(t *testing.T) {
	j := newJar(t)
	key := randomKey(t)
	h, err := j.Store(key, WithLabel("main"), WithNetwork(chain.Test), WithSeed(9))
	if err != nil {
		t.Fatalf("store failed: %v", err)
	}
	if !h.Valid() {
		t.Fatal("handle must be non-zero")
	}
	ks, err := j.Get(h)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	got, _ := ks.Bytes()
	ks.Wipe()
	if !bytes.Equal(got, key) {
		t.Fatal("stored key mismatch")
	}
	if label, _ := j.Label(h); label != "main" {
		t.Fatalf("unexpected label %q", label)
	}
	if net, _ := j.Network(h); net != chain.Test {
		t.Fatalf("unexpected network %s", net)
	}
	if seed, _ := j.Seed(h); seed != 9 {
		t.Fatalf("unexpected seed handle %s", seed)
	}
	if !j.Remove(h) {
		t.Fatal("remove must report the entry")
	}
	if j.Has(h) || j.Remove(h) {
		t.Fatal("entry must be gone")
	}
	if _, err := j.Get(h); !errors.Is(err, ErrKeyNotFound) || otserr.KindOf(err) != otserr.KindNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestStoreCopiesAndValidates(t *testing.T) {
	j := newJar(t)
	key := randomKey(t)
	h, _ := j.Store(key)
	want := append([]byte(nil), key...)
	for i := range key {
		key[i] = 0
	}
	got, _ := j.Export(h)
	if !bytes.Equal(got, want) {
		t.Fatal("jar must own a copy of the key")
	}
	if _, err := j.Store(key[:16]); !errors.Is(err, keystore.ErrKeySize) {
		t.Fatalf("expected ErrKeySize, got %v", err)
	}
	if _, err := j.Store(bytes.Repeat([]byte{0xff}, 32)); !errors.Is(err, primitives.ErrInvalidScalar) {
		t.Fatalf("expected ErrInvalidScalar, got %v", err)
	}
}

func TestAccessCountTracksUse(t *testing.T) {
	j := newJar(t)
	h, _ := j.Store(randomKey(t))
	for range 3 {
		if err := j.Use(h, func(*keystore.KeyStore) error { return nil }); err != nil {
			t.Fatal(err)
		}
	}
	if n, _ := j.AccessCount(h); n != 3 {
		t.Fatalf("expected 3 accesses, got %d", n)
	}
	boom := errors.New("boom")
	if err := j.Use(h, func(*keystore.KeyStore) error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("callback error must propagate, got %v", err)
	}
}

func TestUseWipesLentKey(t *testing.T) {
	j := newJar(t)
	h, _ := j.Store(randomKey(t))
	var lent *keystore.KeyStore
	_ = j.Use(h, func(ks *keystore.KeyStore) error {
		lent = ks
		return nil
	})
	if lent.Valid() {
		t.Fatal("lent key store must be wiped after use")
	}
}

func TestConcurrentStoresYieldDistinctHandles(t *testing.T) {
	j := newJar(t)
	const workers, per = 8, 50
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		all = make(map[handle.Handle]bool)
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			k, _ := primitives.Default.RandomScalar()
			for i := 0; i < per; i++ {
				h, err := j.Store(k[:])
				if err != nil {
					t.Errorf("store failed: %v", err)
					return
				}
				mu.Lock()
				if h == handle.Invalid || all[h] {
					t.Errorf("duplicate or invalid handle %s", h)
				}
				all[h] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if j.Len() != workers*per || len(all) != workers*per {
		t.Fatalf("expected %d entries, got %d/%d", workers*per, j.Len(), len(all))
	}
}

func TestRetentionOnlyEvictsReleased(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	clock := func() time.Time { return now }
	j := newJar(t, WithClock(clock), WithRetention(IdleRetention(time.Minute)))
	kept, _ := j.Store(randomKey(t))
	released, _ := j.Store(randomKey(t))
	if !j.Release(released) {
		t.Fatal("release must find the entry")
	}
	now = now.Add(2 * time.Minute)
	if n := j.Sweep(); n != 1 {
		t.Fatalf("expected one eviction, got %d", n)
	}
	if !j.Has(kept) || j.Has(released) {
		t.Fatal("only the released idle entry may be evicted")
	}
}

func TestNoRetentionByDefault(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	j := newJar(t, WithClock(func() time.Time { return now }))
	h, _ := j.Store(randomKey(t))
	j.Release(h)
	now = now.Add(24 * time.Hour)
	if j.Sweep() != 0 || !j.Has(h) {
		t.Fatal("without a policy nothing is evicted")
	}
}

func TestCloseWipesEverything(t *testing.T) {
	j, err := New()
	if err != nil {
		t.Fatal(err)
	}
	h, _ := j.Store(randomKey(t))
	j.Close()
	j.Close()
	if j.Has(h) || j.Len() != 0 {
		t.Fatal("closed jar must be empty")
	}
	if _, err := j.Store(randomKey(t)); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestWalletResolvesThroughJar(t *testing.T) {
	j := newJar(t)
	h, _ := j.Store(randomKey(t), WithNetwork(chain.Stage))
	w, err := j.Wallet(h, 42, nil)
	if err != nil {
		t.Fatalf("wallet failed: %v", err)
	}
	if w.Network() != chain.Stage || w.RestoreHeight() != 42 {
		t.Fatal("wallet must carry the entry network and height")
	}
	if _, err := w.PublicSpendKey(); err != nil {
		t.Fatalf("public key: %v", err)
	}
	j.Remove(h)
	if _, err := w.PublicSpendKey(); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("wallet must not outlive the entry, got %v", err)
	}
	if _, err := j.Wallet(h, 0, nil); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	j := newJar(t, WithRegisterer(reg))
	h, _ := j.Store(randomKey(t))
	_, _ = j.Get(h)
	_, _ = j.Get(handle.Handle(12345))
	j.Remove(h)
	if got := testutil.ToFloat64(j.metrics.stores); got != 1 {
		t.Fatalf("stores = %v", got)
	}
	if got := testutil.ToFloat64(j.metrics.accesses); got != 1 {
		t.Fatalf("accesses = %v", got)
	}
	if got := testutil.ToFloat64(j.metrics.misses); got != 1 {
		t.Fatalf("misses = %v", got)
	}
	if got := testutil.ToFloat64(j.metrics.entries); got != 0 {
		t.Fatalf("entries = %v", got)
	}
	if n, err := testutil.GatherAndCount(reg); err != nil || n != 6 {
		t.Fatalf("expected 6 registered series, got %d %v", n, err)
	}
}
