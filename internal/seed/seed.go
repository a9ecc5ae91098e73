// Package seed is the family-independent seed value: decoded or created
// from key material, it renders phrases, derives the spend key, carries the
// restore anchor and moves between plaintext and encrypted states.
package seed

import (
	"fmt"
	"slices"

	"ots/go-core/internal/chain"
	"ots/go-core/internal/handle"
	"ots/go-core/internal/keyjar"
	"ots/go-core/internal/keystore"
	"ots/go-core/internal/mnemonic"
	"ots/go-core/internal/otserr"
	"ots/go-core/internal/primitives"
	"ots/go-core/internal/seedlang"
)

var (
	ErrEncrypted        = otserr.New(otserr.ErrDomain, "seed is encrypted")
	ErrNotEncrypted     = otserr.New(otserr.ErrDomain, "seed is not encrypted")
	ErrNonCanonicalKey  = otserr.New(otserr.ErrDomain, "seed key is not a canonical scalar")
	ErrAnchorConflict   = otserr.New(otserr.ErrInvalidArgument, "birthday and height are mutually exclusive")
	ErrWiped            = otserr.New(otserr.ErrDomain, "seed has been wiped")
	ErrKeyMaterialSize  = otserr.New(otserr.ErrInvalidArgument, "wrong key material size for seed family")
	ErrPolySecretTooBig = otserr.New(otserr.ErrInvalidArgument, "poly secret exceeds 150 bits")
)

type anchor int

const (
	anchorNone anchor = iota
	anchorBirthday
	anchorHeight
)

// Seed is not safe for concurrent mutation; share it through a SeedJar.
type Seed struct {
	family    seedlang.Family
	lang      *seedlang.Language
	values    []int
	encrypted bool
	coin      mnemonic.Coin
	network   chain.Network
	anchor    anchor
	birthday  uint64
	height    uint64
	key       *keystore.KeyStore
	estimator chain.Estimator
	prim      primitives.Provider
}

func familyForWords(n int) (seedlang.Family, error) {
	for _, f := range seedlang.Families() {
		if f.WordCount() == n {
			return f, nil
		}
	}
	return 0, fmt.Errorf("%w: %d words match no seed family", mnemonic.ErrWordCount, n)
}

// Decode parses a phrase of any family; the family follows from the word
// count.
func Decode(reg *seedlang.Registry, phrase string, opts ...Option) (*Seed, error) {
	o := newOptions(append([]Option{WithRegistry(reg)}, opts...))
	family, err := familyForWords(len(mnemonic.Split(phrase)))
	if err != nil {
		return nil, err
	}
	d, err := mnemonic.Decode(o.registry, family, phrase, mnemonic.DecodeOptions{
		Language:  o.lang,
		Encrypted: o.encrypted,
		Coin:      o.coin,
	})
	if err != nil {
		return nil, err
	}
	return build(d.Family, d.Language, d.Values, d.Encrypted, o)
}

// FromValues builds a seed from phrase word indices in the pinned or
// default language.
func FromValues(reg *seedlang.Registry, family seedlang.Family, values []int, opts ...Option) (*Seed, error) {
	o := newOptions(append([]Option{WithRegistry(reg)}, opts...))
	if !family.Valid() {
		return nil, seedlang.ErrUnknownFamily
	}
	if len(values) != family.WordCount() {
		return nil, fmt.Errorf("%w: got %d, %s needs %d", mnemonic.ErrWordCount, len(values), family, family.WordCount())
	}
	lang, err := o.language(family)
	if err != nil {
		return nil, err
	}
	phrase, err := mnemonic.Join(values, lang)
	if err != nil {
		return nil, err
	}
	d, err := mnemonic.Decode(o.registry, family, phrase, mnemonic.DecodeOptions{
		Language:  lang,
		Encrypted: o.encrypted,
		Coin:      o.coin,
	})
	if err != nil {
		return nil, err
	}
	return build(d.Family, d.Language, d.Values, d.Encrypted, o)
}

func (o *options) language(family seedlang.Family) (*seedlang.Language, error) {
	if o.lang != nil {
		if !o.lang.Supported(family) {
			return nil, fmt.Errorf("%w: %s/%s", mnemonic.ErrUnsupportedFamily, o.lang.Code(), family)
		}
		return o.lang, nil
	}
	return o.registry.Default(family)
}

// build derives the key and anchor for validated internal values.
func build(family seedlang.Family, lang *seedlang.Language, values []int, encrypted bool, o *options) (*Seed, error) {
	if err := o.checkAnchors(); err != nil {
		return nil, err
	}
	s := &Seed{
		family:    family,
		lang:      lang,
		values:    slices.Clone(values),
		encrypted: encrypted,
		coin:      o.coin,
		network:   o.network,
		estimator: o.estimator,
		prim:      o.prim,
	}
	if err := s.deriveKey(); err != nil {
		s.Wipe()
		return nil, err
	}
	switch {
	case o.birthday != nil:
		s.anchor, s.birthday = anchorBirthday, *o.birthday
	case o.height != nil:
		s.anchor, s.height = anchorHeight, *o.height
	}
	return s, nil
}

// deriveKey sets the spend key of a plaintext seed and, for poly seeds, the
// embedded birthday.
func (s *Seed) deriveKey() error {
	switch s.family {
	case seedlang.Legacy:
		entropy, err := mnemonic.LegacyEntropy(s.values, s.lang)
		if err != nil {
			return err
		}
		k := s.prim.HashToScalar(entropy[:])
		wipeBytes(entropy[:])
		defer wipeBytes(k[:])
		s.key, err = keystore.New(k[:])
		return err
	case seedlang.Standard:
		if s.encrypted {
			return nil
		}
		k, err := mnemonic.StandardKey(s.values, s.lang)
		if err != nil {
			return err
		}
		defer wipeBytes(k[:])
		if !s.prim.IsCanonical(k[:]) {
			return ErrNonCanonicalKey
		}
		s.key, err = keystore.New(k[:])
		return err
	case seedlang.Poly:
		data, err := mnemonic.PolyDecode(s.values)
		if err != nil {
			return err
		}
		defer data.Wipe()
		s.anchor, s.birthday = anchorBirthday, mnemonic.PolyBirthdayDecode(data.Birthday)
		s.encrypted = data.Encrypted()
		if s.encrypted {
			return nil
		}
		raw := mnemonic.PolyKey(&data, s.coin)
		k := s.prim.Reduce(raw)
		wipeBytes(raw)
		defer wipeBytes(k[:])
		s.key, err = keystore.New(k[:])
		return err
	}
	return seedlang.ErrUnknownFamily
}

func (s *Seed) Family() seedlang.Family      { return s.family }
func (s *Seed) Language() *seedlang.Language { return s.lang }
func (s *Seed) Network() chain.Network       { return s.network }
func (s *Seed) Coin() mnemonic.Coin          { return s.coin }
func (s *Seed) Encrypted() bool              { return s.encrypted }

// Encryptable reports whether the family supports password protection.
func (s *Seed) Encryptable() bool { return s.family.Encryptable() }

// Birthday is the creation time in unix seconds, derived from the height
// when only the height is known.
func (s *Seed) Birthday() (uint64, bool) {
	switch s.anchor {
	case anchorBirthday:
		return s.birthday, true
	case anchorHeight:
		return s.estimator.TimestampFromHeight(s.height, s.network), true
	}
	return 0, false
}

// Height is the restore height, derived from the birthday when only the
// birthday is known.
func (s *Seed) Height() (uint64, bool) {
	switch s.anchor {
	case anchorHeight:
		return s.height, true
	case anchorBirthday:
		return s.estimator.HeightFromTimestamp(s.birthday, s.network), true
	}
	return 0, false
}

func (s *Seed) plaintext() error {
	if s.values == nil {
		return ErrWiped
	}
	if s.encrypted {
		return ErrEncrypted
	}
	return nil
}

// Phrase renders the seed in its language.
func (s *Seed) Phrase() (string, error) {
	if err := s.plaintext(); err != nil {
		return "", err
	}
	return mnemonic.Phrase(s.family, s.values, s.lang, s.coin)
}

// PhraseIn renders the same seed in another language.
func (s *Seed) PhraseIn(lang *seedlang.Language) (string, error) {
	if err := s.plaintext(); err != nil {
		return "", err
	}
	if !lang.Supported(s.family) {
		return "", fmt.Errorf("%w: %s/%s", mnemonic.ErrUnsupportedFamily, lang.Code(), s.family)
	}
	values := s.values
	if s.family != seedlang.Poly {
		values = mnemonic.Reseal(s.values, lang)
	}
	return mnemonic.Phrase(s.family, values, lang, s.coin)
}

// EncryptedPhrase renders the password-protected form of an encrypted seed.
func (s *Seed) EncryptedPhrase() (string, error) {
	if s.values == nil {
		return "", ErrWiped
	}
	if !s.encrypted {
		return "", ErrNotEncrypted
	}
	return mnemonic.Phrase(s.family, s.values, s.lang, s.coin)
}

// Values returns the word indices of Phrase.
func (s *Seed) Values() ([]int, error) {
	if err := s.plaintext(); err != nil {
		return nil, err
	}
	if s.family == seedlang.Poly {
		return mnemonic.PolyApplyCoin(s.values, s.coin), nil
	}
	return slices.Clone(s.values), nil
}

// Key returns a copy of the spend key; the caller wipes it.
func (s *Seed) Key() (*keystore.KeyStore, error) {
	if err := s.plaintext(); err != nil {
		return nil, err
	}
	return s.key.Clone(), nil
}

// StoreKey puts the spend key into jar on the seed's network.
func (s *Seed) StoreKey(jar *keyjar.KeyJar, opts ...keyjar.StoreOption) (handle.Handle, error) {
	if err := s.plaintext(); err != nil {
		return handle.Invalid, err
	}
	var h handle.Handle
	err := s.key.With(func(k []byte) error {
		var err error
		h, err = jar.Store(k, append([]keyjar.StoreOption{keyjar.WithNetwork(s.network)}, opts...)...)
		return err
	})
	return h, err
}

// Encrypt protects the word values with password and drops the key.
func (s *Seed) Encrypt(password string) error {
	if !s.Encryptable() {
		return mnemonic.ErrNotEncryptable
	}
	if err := s.plaintext(); err != nil {
		return err
	}
	var (
		enc []int
		err error
	)
	if s.family == seedlang.Standard {
		enc, err = mnemonic.StandardEncrypt(s.values, s.lang, password)
	} else {
		enc, err = mnemonic.PolyEncrypt(s.values, password)
	}
	if err != nil {
		return err
	}
	wipeInts(s.values)
	s.values = enc
	s.encrypted = true
	s.key.Wipe()
	s.key = nil
	return nil
}

// Decrypt restores the plaintext values. A wrong password leaves the seed
// encrypted and fails with mnemonic.ErrWrongPassword.
func (s *Seed) Decrypt(password string) error {
	if s.values == nil {
		return ErrWiped
	}
	if !s.encrypted {
		return ErrNotEncrypted
	}
	var (
		plain []int
		err   error
	)
	if s.family == seedlang.Standard {
		plain, err = mnemonic.StandardDecrypt(s.values, s.lang, password)
	} else {
		plain, err = mnemonic.PolyDecrypt(s.values, password)
	}
	if err != nil {
		return err
	}
	next := *s
	next.values, next.encrypted = plain, false
	if err := next.deriveKey(); err != nil {
		wipeInts(plain)
		if otserr.KindOf(err) == otserr.KindDomain {
			return fmt.Errorf("%w: %v", mnemonic.ErrWrongPassword, err)
		}
		return err
	}
	next.anchor, next.birthday, next.height = s.anchor, s.birthday, s.height
	wipeInts(s.values)
	*s = next
	return nil
}

func (s *Seed) Clone() *Seed {
	out := *s
	out.values = slices.Clone(s.values)
	if s.key != nil {
		out.key = s.key.Clone()
	}
	return &out
}

// Wipe destroys the key and values; the seed is unusable afterwards.
func (s *Seed) Wipe() {
	s.key.Wipe()
	s.key = nil
	wipeInts(s.values)
	s.values = nil
}

func wipeBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

func wipeInts(v []int) {
	for i := range v {
		v[i] = 0
	}
}
