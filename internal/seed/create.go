package seed

import (
	"fmt"

	"ots/go-core/internal/mnemonic"
	"ots/go-core/internal/primitives"
	"ots/go-core/internal/seedlang"
)

// Generate creates a seed from fresh randomness. Its birthday is now unless
// a birthday or height is supplied.
func Generate(family seedlang.Family, opts ...Option) (*Seed, error) {
	o := newOptions(opts)
	var material []byte
	switch family {
	case seedlang.Legacy:
		material = make([]byte, mnemonic.LegacyEntropySize)
		if err := o.prim.Read(material); err != nil {
			return nil, err
		}
	case seedlang.Standard:
		k, err := o.prim.RandomScalar()
		if err != nil {
			return nil, err
		}
		material = k[:]
	case seedlang.Poly:
		material = make([]byte, mnemonic.PolySecretSize)
		if err := o.prim.Read(material); err != nil {
			return nil, err
		}
		material[len(material)-1] &= 0xff >> (mnemonic.PolySecretSize*8 - mnemonic.PolySecretBits)
	default:
		return nil, seedlang.ErrUnknownFamily
	}
	defer wipeBytes(material)
	if o.birthday == nil && o.height == nil {
		now := uint64(o.now().Unix())
		o.birthday = &now
	}
	return create(family, material, o)
}

// FromHash derives a standard seed deterministically from data through
// hash-to-scalar. No birthday is set unless one is supplied.
func FromHash(data []byte, opts ...Option) (*Seed, error) {
	o := newOptions(opts)
	k := o.prim.HashToScalar(data)
	defer wipeBytes(k[:])
	return create(seedlang.Standard, k[:], o)
}

// Create encodes existing key material: 16 bytes of entropy for legacy, a
// canonical 32-byte scalar for standard and a 150-bit secret (19 bytes) for
// poly. Poly seeds embed the supplied birthday, or now.
func Create(family seedlang.Family, material []byte, opts ...Option) (*Seed, error) {
	return create(family, material, newOptions(opts))
}

func create(family seedlang.Family, material []byte, o *options) (*Seed, error) {
	if err := o.checkAnchors(); err != nil {
		return nil, err
	}
	lang, err := o.language(family)
	if err != nil {
		return nil, err
	}
	var values []int
	switch family {
	case seedlang.Legacy:
		values, err = mnemonic.LegacyValues(material, lang)
	case seedlang.Standard:
		if len(material) == mnemonic.StandardKeySize && !o.prim.IsCanonical(material) {
			return nil, primitives.ErrInvalidScalar
		}
		values, err = mnemonic.StandardValues(material, lang)
	case seedlang.Poly:
		values, err = polyValues(material, o)
	default:
		return nil, seedlang.ErrUnknownFamily
	}
	if err != nil {
		return nil, err
	}
	defer wipeInts(values)
	o.encrypted = false
	return build(family, lang, values, false, o)
}

func polyValues(secret []byte, o *options) ([]int, error) {
	if len(secret) != mnemonic.PolySecretSize {
		return nil, fmt.Errorf("%w: poly secret is %d bytes", ErrKeyMaterialSize, mnemonic.PolySecretSize)
	}
	if secret[len(secret)-1]>>(mnemonic.PolySecretBits-(mnemonic.PolySecretSize-1)*8) != 0 {
		return nil, ErrPolySecretTooBig
	}
	var ts uint64
	switch {
	case o.birthday != nil:
		ts = *o.birthday
	case o.height != nil:
		ts = o.estimator.TimestampFromHeight(*o.height, o.network)
	default:
		ts = uint64(o.now().Unix())
	}
	var d mnemonic.PolyData
	copy(d.Secret[:], secret)
	d.Birthday = mnemonic.PolyBirthdayEncode(ts)
	defer d.Wipe()
	return mnemonic.PolyValues(d)
}
