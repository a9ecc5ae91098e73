package abi

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"ots/go-core/internal/chain"
	"ots/go-core/internal/handle"
	"ots/go-core/internal/keyjar"
	"ots/go-core/internal/keystore"
	"ots/go-core/internal/mnemonic"
	"ots/go-core/internal/otserr"
	"ots/go-core/internal/platform/ratelimiter"
	"ots/go-core/internal/primitives"
	"ots/go-core/internal/seed"
	"ots/go-core/internal/seedjar"
	"ots/go-core/internal/seedlang"
)

const (
	VersionMajor = 1
	VersionMinor = 0
	VersionPatch = 0
)

var (
	ErrTextTooLong = otserr.New(otserr.ErrInvalidArgument, "text does not fit the result buffer")
	ErrNoJar       = otserr.New(otserr.ErrDomain, "bridge has no jar")
)

// NetworkDefault selects the bridge's configured network.
const NetworkDefault int32 = -1

// SeedParams are the optional inputs of GenerateSeed and DecodeSeed. Zero
// Height and Birthday mean unknown; an empty Language means the family
// default (generate) or auto-detection (decode).
type SeedParams struct {
	Family    int32
	Language  string
	Network   int32
	Height    uint64
	Birthday  uint64
	Encrypted bool
}

type Option func(*Bridge)

func WithRegistry(r *seedlang.Registry) Option {
	return func(b *Bridge) {
		if r != nil {
			b.reg = r
		}
	}
}

func WithPrimitives(p primitives.Provider) Option {
	return func(b *Bridge) {
		if p != nil {
			b.prim = p
		}
	}
}

// WithNetwork sets the network used when a call passes NetworkDefault.
func WithNetwork(n chain.Network) Option {
	return func(b *Bridge) { b.network = n }
}

func WithEstimator(e chain.Estimator) Option {
	return func(b *Bridge) { b.estimator = e }
}

// WithDecryptLimits throttles DecryptSeed per seed handle.
func WithDecryptLimits(limiter *ratelimiter.MapLimiter, lockout *ratelimiter.Lockout) Option {
	return func(b *Bridge) {
		b.limiter = limiter
		b.lockout = lockout
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(b *Bridge) {
		if l != nil {
			b.logger = l
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(b *Bridge) {
		if now != nil {
			b.now = now
		}
	}
}

// Bridge exposes the key and seed jars through handle-based calls. It is
// safe for concurrent use.
type Bridge struct {
	keys      *keyjar.KeyJar
	seeds     *seedjar.SeedJar
	reg       *seedlang.Registry
	prim      primitives.Provider
	network   chain.Network
	estimator chain.Estimator
	limiter   *ratelimiter.MapLimiter
	lockout   *ratelimiter.Lockout
	logger    *slog.Logger
	now       func() time.Time
}

func New(keys *keyjar.KeyJar, seeds *seedjar.SeedJar, opts ...Option) *Bridge {
	b := &Bridge{
		keys:   keys,
		seeds:  seeds,
		reg:    seedlang.Builtin(),
		prim:   primitives.Default,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Bridge) report(rec *ErrorRecord, loc string, err error) {
	rec.fail(loc, err)
	b.logger.Debug("bridge call failed", "op", loc, "code", Code(rec.Code).String())
}

func (b *Bridge) keyJar() (*keyjar.KeyJar, error) {
	if b.keys == nil {
		return nil, fmt.Errorf("%w: keys", ErrNoJar)
	}
	return b.keys, nil
}

func (b *Bridge) seedJar() (*seedjar.SeedJar, error) {
	if b.seeds == nil {
		return nil, fmt.Errorf("%w: seeds", ErrNoJar)
	}
	return b.seeds, nil
}

func (b *Bridge) networkOf(raw int32) (chain.Network, error) {
	if raw == NetworkDefault {
		return b.network, nil
	}
	n := chain.Network(raw)
	if !n.Valid() {
		return n, fmt.Errorf("%w: %d", chain.ErrUnknownNetwork, raw)
	}
	return n, nil
}

func putText(dst []byte, s string) error {
	if len(s) >= len(dst) {
		return fmt.Errorf("%w: %d bytes", ErrTextTooLong, len(s))
	}
	putString(dst, s)
	return nil
}

// StoreKey copies key into the key jar. The caller wipes its buffer.
func (b *Bridge) StoreKey(key []byte, label string, net int32) (res HandleResult) {
	const loc = "StoreKey"
	defer guard(loc, &res.Error)
	jar, err := b.keyJar()
	if err == nil {
		var n chain.Network
		if n, err = b.networkOf(net); err == nil {
			var h handle.Handle
			h, err = jar.Store(key, keyjar.WithLabel(label), keyjar.WithNetwork(n))
			res.Handle = uint64(h)
		}
	}
	if err != nil {
		b.report(&res.Error, loc, err)
	}
	return res
}

func (b *Bridge) RemoveKey(h uint64) (res BoolResult) {
	const loc = "RemoveKey"
	defer guard(loc, &res.Error)
	jar, err := b.keyJar()
	if err != nil {
		b.report(&res.Error, loc, err)
		return res
	}
	res.Value = jar.Remove(handle.Handle(h))
	return res
}

// ReleaseKey tells the jar the caller no longer holds h, making the entry
// eligible for the retention policy.
func (b *Bridge) ReleaseKey(h uint64) (res BoolResult) {
	const loc = "ReleaseKey"
	defer guard(loc, &res.Error)
	jar, err := b.keyJar()
	if err != nil {
		b.report(&res.Error, loc, err)
		return res
	}
	res.Value = jar.Release(handle.Handle(h))
	return res
}

// IsValidHandle reports whether h names a live key or seed.
func (b *Bridge) IsValidHandle(h uint64) (res BoolResult) {
	defer guard("IsValidHandle", &res.Error)
	id := handle.Handle(h)
	if !id.Valid() {
		return res
	}
	res.Value = (b.keys != nil && b.keys.Has(id)) || (b.seeds != nil && b.seeds.Has(id))
	return res
}

// SignMessage signs keccak(msg) with the key behind h.
func (b *Bridge) SignMessage(h uint64, msg []byte) (res SignatureResult) {
	const loc = "SignMessage"
	defer guard(loc, &res.Error)
	jar, err := b.keyJar()
	if err == nil {
		hash := b.prim.FastHash(msg)
		err = jar.Use(handle.Handle(h), func(ks *keystore.KeyStore) error {
			return ks.With(func(k []byte) error {
				sig, err := b.prim.Sign(hash, k)
				res.Signature = sig
				return err
			})
		})
	}
	if err != nil {
		res.Signature = [64]byte{}
		b.report(&res.Error, loc, err)
	}
	return res
}

// DeriveSharedSecret multiplies peer's public key by the key behind h.
func (b *Bridge) DeriveSharedSecret(h uint64, peer []byte) (res KeyResult) {
	const loc = "DeriveSharedSecret"
	defer guard(loc, &res.Error)
	jar, err := b.keyJar()
	if err == nil {
		err = jar.Use(handle.Handle(h), func(ks *keystore.KeyStore) error {
			return ks.With(func(k []byte) error {
				shared, err := b.prim.SharedSecret(k, peer)
				res.Key = shared
				return err
			})
		})
	}
	if err != nil {
		res.Key = [keystore.Size]byte{}
		b.report(&res.Error, loc, err)
	}
	return res
}

// ExportKey is the one call that returns raw key bytes.
func (b *Bridge) ExportKey(h uint64) (res KeyResult) {
	const loc = "ExportKey"
	defer guard(loc, &res.Error)
	jar, err := b.keyJar()
	if err == nil {
		var raw []byte
		raw, err = jar.Export(handle.Handle(h))
		if err == nil {
			copy(res.Key[:], raw)
			clear(raw)
		}
	}
	if err != nil {
		b.report(&res.Error, loc, err)
	}
	return res
}

func (b *Bridge) seedOptions(p SeedParams) ([]seed.Option, error) {
	net, err := b.networkOf(p.Network)
	if err != nil {
		return nil, err
	}
	opts := []seed.Option{seed.WithRegistry(b.reg), seed.WithNetwork(net), seed.WithPrimitives(b.prim), seed.WithClock(b.now)}
	if b.estimator != nil {
		opts = append(opts, seed.WithEstimator(b.estimator))
	}
	if p.Language != "" {
		lang, err := b.reg.Lookup(p.Language)
		if err != nil {
			return nil, err
		}
		opts = append(opts, seed.WithLanguage(lang))
	}
	if p.Height != 0 {
		opts = append(opts, seed.WithHeight(p.Height))
	}
	if p.Birthday != 0 {
		opts = append(opts, seed.WithBirthday(p.Birthday))
	}
	if p.Encrypted {
		opts = append(opts, seed.WithEncrypted(true))
	}
	return opts, nil
}

func (b *Bridge) storeSeed(s *seed.Seed, err error) (handle.Handle, error) {
	if err != nil {
		return handle.Invalid, err
	}
	jar, err := b.seedJar()
	if err != nil {
		s.Wipe()
		return handle.Invalid, err
	}
	return jar.Store(s)
}

func (b *Bridge) GenerateSeed(p SeedParams) (res HandleResult) {
	const loc = "GenerateSeed"
	defer guard(loc, &res.Error)
	family := seedlang.Family(p.Family)
	opts, err := b.seedOptions(p)
	if err == nil && !family.Valid() {
		err = fmt.Errorf("%w: %d", seedlang.ErrUnknownFamily, p.Family)
	}
	if err == nil {
		var h handle.Handle
		h, err = b.storeSeed(seed.Generate(family, opts...))
		res.Handle = uint64(h)
	}
	if err != nil {
		b.report(&res.Error, loc, err)
	}
	return res
}

// SeedFromHash derives a standard seed from data through hash-to-scalar;
// the same data always yields the same seed and handle.
func (b *Bridge) SeedFromHash(data []byte, p SeedParams) (res HandleResult) {
	const loc = "SeedFromHash"
	defer guard(loc, &res.Error)
	opts, err := b.seedOptions(p)
	if err == nil && len(data) == 0 {
		err = fmt.Errorf("%w: empty data", otserr.ErrInvalidArgument)
	}
	if err == nil {
		var h handle.Handle
		h, err = b.storeSeed(seed.FromHash(data, opts...))
		res.Handle = uint64(h)
	}
	if err != nil {
		b.report(&res.Error, loc, err)
	}
	return res
}

// DecodeSeed parses phrase; the family follows from the word count and
// p.Family is ignored.
func (b *Bridge) DecodeSeed(phrase string, p SeedParams) (res HandleResult) {
	const loc = "DecodeSeed"
	defer guard(loc, &res.Error)
	opts, err := b.seedOptions(p)
	if err == nil {
		var h handle.Handle
		h, err = b.storeSeed(seed.Decode(b.reg, phrase, opts...))
		res.Handle = uint64(h)
	}
	if err != nil {
		b.report(&res.Error, loc, err)
	}
	return res
}

func (b *Bridge) withSeed(h uint64, fn func(s *seed.Seed) error) error {
	jar, err := b.seedJar()
	if err != nil {
		return err
	}
	s, err := jar.Get(handle.Handle(h))
	if err != nil {
		return err
	}
	defer s.Wipe()
	return fn(s)
}

// SeedPhrase renders the seed in lang, or its own language when lang is
// empty. Encrypted seeds render their protected phrase.
func (b *Bridge) SeedPhrase(h uint64, lang string) (res TextResult) {
	const loc = "SeedPhrase"
	defer guard(loc, &res.Error)
	err := b.withSeed(h, func(s *seed.Seed) error {
		var (
			phrase string
			err    error
		)
		switch {
		case s.Encrypted():
			phrase, err = s.EncryptedPhrase()
		case lang != "":
			var l *seedlang.Language
			if l, err = b.reg.Lookup(lang); err == nil {
				phrase, err = s.PhraseIn(l)
			}
		default:
			phrase, err = s.Phrase()
		}
		if err != nil {
			return err
		}
		return putText(res.Text[:], phrase)
	})
	if err != nil {
		clear(res.Text[:])
		b.report(&res.Error, loc, err)
	}
	return res
}

func (b *Bridge) SeedInfo(h uint64) (res SeedInfoResult) {
	const loc = "SeedInfo"
	defer guard(loc, &res.Error)
	err := b.withSeed(h, func(s *seed.Seed) error {
		res.Family = int32(s.Family())
		res.Network = int32(s.Network())
		res.Encrypted = s.Encrypted()
		res.Birthday, res.HasBirthday = s.Birthday()
		res.Height, res.HasHeight = s.Height()
		putString(res.Language[:], s.Language().Code())
		return putText(res.Fingerprint[:], s.Fingerprint())
	})
	if err != nil {
		b.report(&res.Error, loc, err)
	}
	return res
}

// EncryptSeed returns the seed's handle afterwards; it differs from h when
// the encrypted seed already existed in the jar.
func (b *Bridge) EncryptSeed(h uint64, password string) (res HandleResult) {
	const loc = "EncryptSeed"
	defer guard(loc, &res.Error)
	jar, err := b.seedJar()
	if err == nil {
		var next handle.Handle
		next, err = jar.Update(handle.Handle(h), func(s *seed.Seed) error { return s.Encrypt(password) })
		res.Handle = uint64(next)
	}
	if err != nil {
		b.report(&res.Error, loc, err)
	}
	return res
}

// DecryptSeed is throttled per handle and locks the handle out with an
// exponential backoff after each wrong password.
func (b *Bridge) DecryptSeed(h uint64, password string) (res HandleResult) {
	const loc = "DecryptSeed"
	defer guard(loc, &res.Error)
	jar, err := b.seedJar()
	if err != nil {
		b.report(&res.Error, loc, err)
		return res
	}
	id := handle.Handle(h)
	key := "seed:" + id.String()
	now := b.now()
	if locked, wait := b.lockout.Locked(key, now); locked {
		b.report(&res.Error, loc, fmt.Errorf("%w: retry in %s", ErrRateLimited, wait.Round(time.Millisecond)))
		return res
	}
	if !b.limiter.Allow(key, now) {
		b.report(&res.Error, loc, ErrRateLimited)
		return res
	}
	next, err := jar.Update(id, func(s *seed.Seed) error { return s.Decrypt(password) })
	switch {
	case errors.Is(err, mnemonic.ErrWrongPassword):
		wait := b.lockout.Fail(key, now)
		b.logger.Warn("seed decrypt failed", "seed_handle", id.String(), "lockout", wait.String())
		b.report(&res.Error, loc, err)
	case err != nil:
		b.report(&res.Error, loc, err)
	default:
		b.lockout.Reset(key)
		res.Handle = uint64(next)
	}
	return res
}

// SeedStoreKey puts the seed's spend key into the key jar, linked to h.
func (b *Bridge) SeedStoreKey(h uint64, label string) (res HandleResult) {
	const loc = "SeedStoreKey"
	defer guard(loc, &res.Error)
	keys, err := b.keyJar()
	if err == nil {
		err = b.withSeed(h, func(s *seed.Seed) error {
			kh, err := s.StoreKey(keys, keyjar.WithSeed(handle.Handle(h)), keyjar.WithLabel(label))
			res.Handle = uint64(kh)
			return err
		})
	}
	if err != nil {
		res.Handle = 0
		b.report(&res.Error, loc, err)
	}
	return res
}

func (b *Bridge) RemoveSeed(h uint64) (res BoolResult) {
	const loc = "RemoveSeed"
	defer guard(loc, &res.Error)
	jar, err := b.seedJar()
	if err != nil {
		b.report(&res.Error, loc, err)
		return res
	}
	id := handle.Handle(h)
	res.Value = jar.Remove(id)
	b.lockout.Reset("seed:" + id.String())
	b.limiter.Forget("seed:" + id.String())
	return res
}

// WalletKeys derives the public keys and the view key of the key behind h.
func (b *Bridge) WalletKeys(h uint64, height uint64) (res WalletKeysResult) {
	const loc = "WalletKeys"
	defer guard(loc, &res.Error)
	err := b.walletKeys(handle.Handle(h), height, &res)
	if err != nil {
		res = WalletKeysResult{}
		b.report(&res.Error, loc, err)
	}
	return res
}

func (b *Bridge) walletKeys(h handle.Handle, height uint64, res *WalletKeysResult) error {
	jar, err := b.keyJar()
	if err != nil {
		return err
	}
	w, err := jar.Wallet(h, height, nil)
	if err != nil {
		return err
	}
	defer w.Close()
	fields := []struct {
		dst []byte
		get func() (string, error)
	}{
		{res.PublicSpend[:], w.PublicSpendKey},
		{res.PublicView[:], w.PublicViewKey},
		{res.SecretView[:], w.SecretViewKey},
	}
	for _, f := range fields {
		v, err := f.get()
		if err != nil {
			return err
		}
		if err := putText(f.dst, v); err != nil {
			return err
		}
	}
	return nil
}

func (b *Bridge) Version() (res VersionResult) {
	defer guard("Version", &res.Error)
	res.Major, res.Minor, res.Patch = VersionMajor, VersionMinor, VersionPatch
	putString(res.Version[:], fmt.Sprintf("%d.%d.%d", VersionMajor, VersionMinor, VersionPatch))
	return res
}
