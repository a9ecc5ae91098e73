// Package keystore holds a single 32-byte secret scalar. It is the only
// value type in the core that carries key bytes in the clear.
package keystore

import (
	"crypto/subtle"
	"fmt"

	"ots/go-core/internal/otserr"
	"ots/go-core/internal/primitives"
)

const Size = primitives.ScalarSize

var (
	ErrKeySize = otserr.New(otserr.ErrInvalidArgument, "secret key must be 32 bytes")
	ErrWiped   = otserr.New(otserr.ErrDomain, "key store has been wiped")
)

// KeyStore owns one secret key. The zero value is empty; use New or
// Generate. A KeyStore must not be copied after first use.
type KeyStore struct {
	key   [Size]byte
	valid bool
}

// New copies b; the caller keeps ownership of (and wipes) b.
func New(b []byte) (*KeyStore, error) {
	if len(b) != Size {
		return nil, fmt.Errorf("%w: got %d", ErrKeySize, len(b))
	}
	ks := &KeyStore{valid: true}
	copy(ks.key[:], b)
	return ks, nil
}

// NewScalar is New restricted to canonical scalars.
func NewScalar(b []byte, p primitives.Provider) (*KeyStore, error) {
	if p == nil {
		p = primitives.Default
	}
	if !p.IsCanonical(b) {
		return nil, primitives.ErrInvalidScalar
	}
	return New(b)
}

// Generate returns a fresh random scalar.
func Generate(p primitives.Provider) (*KeyStore, error) {
	if p == nil {
		p = primitives.Default
	}
	k, err := p.RandomScalar()
	if err != nil {
		return nil, err
	}
	defer wipe(k[:])
	return New(k[:])
}

func (ks *KeyStore) Valid() bool { return ks != nil && ks.valid }

// Bytes returns a copy of the key. The caller must wipe it.
func (ks *KeyStore) Bytes() ([]byte, error) {
	if !ks.Valid() {
		return nil, ErrWiped
	}
	return append([]byte(nil), ks.key[:]...), nil
}

// With lends the key to fn without copying it out.
func (ks *KeyStore) With(fn func(key []byte) error) error {
	if !ks.Valid() {
		return ErrWiped
	}
	return fn(ks.key[:])
}

// Public derives the public key for the stored scalar.
func (ks *KeyStore) Public(p primitives.Provider) ([primitives.PointSize]byte, error) {
	if p == nil {
		p = primitives.Default
	}
	var pub [primitives.PointSize]byte
	err := ks.With(func(key []byte) error {
		var err error
		pub, err = p.PublicKey(key)
		return err
	})
	return pub, err
}

// Equal compares keys in constant time. Wiped stores are never equal.
func (ks *KeyStore) Equal(other *KeyStore) bool {
	if !ks.Valid() || !other.Valid() {
		return false
	}
	return subtle.ConstantTimeCompare(ks.key[:], other.key[:]) == 1
}

func (ks *KeyStore) Clone() *KeyStore {
	if !ks.Valid() {
		return &KeyStore{}
	}
	out := &KeyStore{valid: true}
	out.key = ks.key
	return out
}

// Move transfers the key into a new store and wipes ks.
func (ks *KeyStore) Move() *KeyStore {
	out := ks.Clone()
	ks.Wipe()
	return out
}

// Wipe overwrites the key. It is safe to call more than once.
func (ks *KeyStore) Wipe() {
	if ks == nil {
		return
	}
	wipe(ks.key[:])
	ks.valid = false
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
