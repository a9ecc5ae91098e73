package abi

import (
	"bytes"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"ots/go-core/internal/chain"
	"ots/go-core/internal/keyjar"
	"ots/go-core/internal/platform/ratelimiter"
	"ots/go-core/internal/primitives"
	"ots/go-core/internal/seedjar"
	"ots/go-core/internal/seedlang"
)

type testClock struct{ t time.Time }

func (c *testClock) now() time.Time { return c.t }

func newBridge(t *testing.T, opts ...Option) *Bridge {
	t.Helper()
	keys, err := keyjar.New()
	if err != nil {
		t.Fatalf("key jar: %v", err)
	}
	seeds := seedjar.New()
	t.Cleanup(func() {
		keys.Close()
		seeds.Close()
	})
	return New(keys, seeds, opts...)
}

func requireOK(t *testing.T, rec ErrorRecord) {
	t.Helper()
	if !rec.OK() {
		t.Fatalf("unexpected failure: %v", rec.Err())
	}
}

func requireCode(t *testing.T, rec ErrorRecord, want Code) {
	t.Helper()
	if Code(rec.Code) != want {
		t.Fatalf("code = %s (%s), want %s", Code(rec.Code), rec.MessageString(), want)
	}
}

func TestKeyHandleLifecycle(t *testing.T) {
	b := newBridge(t)
	secret, err := primitives.Default.RandomScalar()
	if err != nil {
		t.Fatal(err)
	}
	stored := b.StoreKey(secret[:], "hot", int32(chain.Main))
	requireOK(t, stored.Error)
	if stored.Handle == 0 {
		t.Fatalf("zero handle issued")
	}
	if !b.IsValidHandle(stored.Handle).Value {
		t.Fatalf("stored handle not valid")
	}

	msg := []byte("withdraw 1 XMR")
	sig := b.SignMessage(stored.Handle, msg)
	requireOK(t, sig.Error)
	pub, err := primitives.Default.PublicKey(secret[:])
	if err != nil {
		t.Fatal(err)
	}
	if !primitives.Default.Verify(primitives.Default.FastHash(msg), pub[:], sig.Signature) {
		t.Fatalf("signature does not verify")
	}

	exported := b.ExportKey(stored.Handle)
	requireOK(t, exported.Error)
	if !bytes.Equal(exported.Key[:], secret[:]) {
		t.Fatalf("exported key differs")
	}

	if !b.RemoveKey(stored.Handle).Value {
		t.Fatalf("remove reported missing entry")
	}
	if b.IsValidHandle(stored.Handle).Value {
		t.Fatalf("removed handle still valid")
	}
	gone := b.SignMessage(stored.Handle, msg)
	requireCode(t, gone.Error, CodeNotFound)
	if gone.Signature != ([64]byte{}) {
		t.Fatalf("failed call leaked a signature")
	}
}

func TestSharedSecretIsSymmetric(t *testing.T) {
	b := newBridge(t)
	p := primitives.Default
	a, _ := p.RandomScalar()
	c, _ := p.RandomScalar()
	aPub, _ := p.PublicKey(a[:])
	cPub, _ := p.PublicKey(c[:])

	ha := b.StoreKey(a[:], "", 0)
	hc := b.StoreKey(c[:], "", 0)
	requireOK(t, ha.Error)
	requireOK(t, hc.Error)
	ab := b.DeriveSharedSecret(ha.Handle, cPub[:])
	ba := b.DeriveSharedSecret(hc.Handle, aPub[:])
	requireOK(t, ab.Error)
	requireOK(t, ba.Error)
	if ab.Key != ba.Key {
		t.Fatalf("shared secrets differ")
	}
	bad := b.DeriveSharedSecret(ha.Handle, []byte{1, 2, 3})
	requireCode(t, bad.Error, CodeInvalidArgument)
}

func TestFailuresBecomeRecords(t *testing.T) {
	b := newBridge(t)
	short := b.StoreKey([]byte{1, 2, 3}, "", 0)
	requireCode(t, short.Error, CodeInvalidArgument)
	if short.Error.LocationString() != "StoreKey" {
		t.Fatalf("location = %q", short.Error.LocationString())
	}
	if short.Error.MessageString() == "" {
		t.Fatalf("empty message")
	}

	key, _ := primitives.Default.RandomScalar()
	badNet := b.StoreKey(key[:], "", 9)
	requireCode(t, badNet.Error, CodeInvalidArgument)

	words := strings.TrimSpace(strings.Repeat("zzzz ", 25))
	requireCode(t, b.DecodeSeed(words, SeedParams{}).Error, CodeInvalidArgument)
	requireCode(t, b.GenerateSeed(SeedParams{Family: 7}).Error, CodeInvalidArgument)
	requireCode(t, b.SeedInfo(12345).Error, CodeNotFound)
	requireCode(t, b.GenerateSeed(SeedParams{Family: int32(seedlang.Legacy), Language: "fr"}).Error, CodeInvalidArgument)
	requireCode(t, b.GenerateSeed(SeedParams{Family: int32(seedlang.Standard), Height: 1 << 60}).Error, CodeInvalidArgument)
	requireCode(t, b.SeedFromHash(nil, SeedParams{}).Error, CodeInvalidArgument)
}

func TestSeedFromHash(t *testing.T) {
	b := newBridge(t)
	data := []byte("recovery data")
	first := b.SeedFromHash(data, SeedParams{Network: int32(chain.Stage)})
	requireOK(t, first.Error)
	again := b.SeedFromHash(data, SeedParams{Network: int32(chain.Stage)})
	requireOK(t, again.Error)
	if first.Handle != again.Handle {
		t.Fatalf("same data gave handles %#x and %#x", first.Handle, again.Handle)
	}
	info := b.SeedInfo(first.Handle)
	requireOK(t, info.Error)
	if seedlang.Family(info.Family) != seedlang.Standard || chain.Network(info.Network) != chain.Stage || info.HasBirthday {
		t.Fatalf("info = %+v", info)
	}
	other := b.SeedFromHash([]byte("recovery datb"), SeedParams{Network: int32(chain.Stage)})
	requireOK(t, other.Error)
	if other.Handle == first.Handle {
		t.Fatalf("different data shared a handle")
	}
}

func TestNetworkDefault(t *testing.T) {
	b := newBridge(t, WithNetwork(chain.Test))
	gen := b.GenerateSeed(SeedParams{Family: int32(seedlang.Standard), Network: NetworkDefault})
	requireOK(t, gen.Error)
	info := b.SeedInfo(gen.Handle)
	requireOK(t, info.Error)
	if chain.Network(info.Network) != chain.Test {
		t.Fatalf("network = %s, want test", chain.Network(info.Network))
	}

	explicit := b.GenerateSeed(SeedParams{Family: int32(seedlang.Standard), Network: int32(chain.Main)})
	requireOK(t, explicit.Error)
	if info := b.SeedInfo(explicit.Handle); chain.Network(info.Network) != chain.Main {
		t.Fatalf("explicit main became %s", chain.Network(info.Network))
	}

	key, _ := primitives.Default.RandomScalar()
	stored := b.StoreKey(key[:], "", NetworkDefault)
	requireOK(t, stored.Error)
}

func TestSeedLifecycle(t *testing.T) {
	clock := &testClock{t: time.Unix(1_700_000_000, 0)}
	b := newBridge(t,
		WithClock(clock.now),
		WithDecryptLimits(nil, ratelimiter.NewLockout(time.Second, time.Minute)),
	)

	gen := b.GenerateSeed(SeedParams{Family: int32(seedlang.Standard), Network: int32(chain.Stage)})
	requireOK(t, gen.Error)

	info := b.SeedInfo(gen.Handle)
	requireOK(t, info.Error)
	if info.Family != int32(seedlang.Standard) || info.Network != int32(chain.Stage) || info.Encrypted {
		t.Fatalf("info = %+v", info)
	}
	if !info.HasBirthday || info.Birthday != uint64(clock.t.Unix()) {
		t.Fatalf("birthday = %d/%v", info.Birthday, info.HasBirthday)
	}
	if CString(info.Language[:]) != "en" || CString(info.Fingerprint[:]) == "" {
		t.Fatalf("language/fingerprint missing: %+v", info)
	}

	phrase := b.SeedPhrase(gen.Handle, "")
	requireOK(t, phrase.Error)
	if n := len(strings.Fields(phrase.String())); n != 25 {
		t.Fatalf("phrase has %d words", n)
	}
	again := b.DecodeSeed(phrase.String(), SeedParams{Network: int32(chain.Stage)})
	requireOK(t, again.Error)
	if again.Handle != gen.Handle {
		t.Fatalf("duplicate seed got a new handle")
	}
	french := b.SeedPhrase(gen.Handle, "French")
	requireOK(t, french.Error)
	if french.String() == phrase.String() {
		t.Fatalf("french phrase equals english phrase")
	}

	enc := b.EncryptSeed(gen.Handle, "correct horse")
	requireOK(t, enc.Error)
	h := enc.Handle
	if info := b.SeedInfo(h); !info.Encrypted {
		t.Fatalf("seed not encrypted")
	}
	requireCode(t, b.SeedStoreKey(h, "").Error, CodeDomain)
	protected := b.SeedPhrase(h, "")
	requireOK(t, protected.Error)
	if protected.String() == phrase.String() {
		t.Fatalf("encrypted phrase equals plaintext phrase")
	}

	wrong := b.DecryptSeed(h, "battery staple")
	requireCode(t, wrong.Error, CodeDomain)
	locked := b.DecryptSeed(h, "correct horse")
	requireCode(t, locked.Error, CodeRateLimited)

	clock.t = clock.t.Add(2 * time.Second)
	dec := b.DecryptSeed(h, "correct horse")
	requireOK(t, dec.Error)
	h = dec.Handle

	restored := b.SeedPhrase(h, "")
	requireOK(t, restored.Error)
	if restored.String() != phrase.String() {
		t.Fatalf("decrypted phrase differs")
	}

	kh := b.SeedStoreKey(h, "main")
	requireOK(t, kh.Error)
	keys := b.WalletKeys(kh.Handle, 0)
	requireOK(t, keys.Error)
	for _, field := range [][]byte{keys.PublicSpend[:], keys.PublicView[:], keys.SecretView[:]} {
		if n := len(CString(field)); n != 64 {
			t.Fatalf("hex key has %d chars", n)
		}
	}

	if !b.RemoveSeed(h).Value {
		t.Fatalf("remove seed reported missing entry")
	}
	if b.IsValidHandle(h).Value {
		t.Fatalf("removed seed still valid")
	}
	if !b.IsValidHandle(kh.Handle).Value {
		t.Fatalf("key should outlive its seed")
	}
}

type panickingPrimitives struct{ primitives.Ed25519 }

func (panickingPrimitives) FastHash(...[]byte) [32]byte { panic("hash unit offline") }

func TestBridgeNeverPanics(t *testing.T) {
	empty := New(nil, nil)
	records := []ErrorRecord{
		empty.StoreKey(make([]byte, 32), "", 0).Error,
		empty.RemoveKey(1).Error,
		empty.ReleaseKey(1).Error,
		empty.SignMessage(1, nil).Error,
		empty.DeriveSharedSecret(1, nil).Error,
		empty.ExportKey(1).Error,
		empty.GenerateSeed(SeedParams{}).Error,
		empty.DecodeSeed("", SeedParams{}).Error,
		empty.SeedPhrase(1, "").Error,
		empty.SeedInfo(1).Error,
		empty.EncryptSeed(1, "pw").Error,
		empty.DecryptSeed(1, "pw").Error,
		empty.SeedStoreKey(1, "").Error,
		empty.RemoveSeed(1).Error,
		empty.WalletKeys(1, 0).Error,
	}
	for i := range records {
		if records[i].OK() {
			t.Fatalf("call %d on an empty bridge succeeded", i)
		}
	}
	if empty.IsValidHandle(1).Value {
		t.Fatalf("empty bridge reports a valid handle")
	}

	b := newBridge(t, WithPrimitives(panickingPrimitives{}))
	key, _ := primitives.Default.RandomScalar()
	h := b.StoreKey(key[:], "", 0)
	requireOK(t, h.Error)
	res := b.SignMessage(h.Handle, []byte("x"))
	requireCode(t, res.Error, CodeInternal)
	if !strings.Contains(res.Error.MessageString(), "hash unit offline") {
		t.Fatalf("panic message lost: %q", res.Error.MessageString())
	}
}

func TestRecordTruncatesOnRuneBoundary(t *testing.T) {
	var rec ErrorRecord
	rec.set(CodeDomain, strings.Repeat("l", 100), strings.Repeat("é", 300))
	msg := rec.MessageString()
	if !utf8.ValidString(msg) || len(msg) > len(rec.Message)-1 {
		t.Fatalf("message not truncated cleanly: %d bytes", len(msg))
	}
	if rec.Message[len(rec.Message)-1] != 0 || rec.Location[len(rec.Location)-1] != 0 {
		t.Fatalf("missing terminator")
	}
	if len(rec.LocationString()) != len(rec.Location)-1 {
		t.Fatalf("location length = %d", len(rec.LocationString()))
	}
}

func TestVersion(t *testing.T) {
	v := New(nil, nil).Version()
	requireOK(t, v.Error)
	if CString(v.Version[:]) != "1.0.0" || v.Major != VersionMajor {
		t.Fatalf("version = %+v", v)
	}
}
