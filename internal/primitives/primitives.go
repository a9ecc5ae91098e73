// Package primitives is the boundary to the primitive-crypto collaborator:
// randomness, hash-to-scalar, scalar validation and the few group operations
// the key handles need. The core never implements curve arithmetic itself;
// Ed25519 adapts filippo.io/edwards25519.
package primitives

import (
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"

	"filippo.io/edwards25519"
	"golang.org/x/crypto/sha3"

	"ots/go-core/internal/otserr"
)

const (
	ScalarSize    = 32
	PointSize     = 32
	SignatureSize = 64
)

var (
	ErrInvalidScalar = otserr.New(otserr.ErrInvalidArgument, "not a canonical scalar")
	ErrInvalidPoint  = otserr.New(otserr.ErrInvalidArgument, "not a valid curve point")
)

type Provider interface {
	Read(b []byte) error
	RandomScalar() ([ScalarSize]byte, error)
	FastHash(parts ...[]byte) [32]byte
	HashToScalar(parts ...[]byte) [ScalarSize]byte
	Reduce(b []byte) [ScalarSize]byte
	IsCanonical(b []byte) bool
	PublicKey(secret []byte) ([PointSize]byte, error)
	Sign(hash [32]byte, secret []byte) ([SignatureSize]byte, error)
	Verify(hash [32]byte, public []byte, sig [SignatureSize]byte) bool
	SharedSecret(secret, public []byte) ([PointSize]byte, error)
}

// Ed25519 implements Provider over the ed25519 group with keccak-256 as the
// fast hash. A nil Rand reads from crypto/rand.
type Ed25519 struct {
	Rand io.Reader
}

// Default is the provider used when none is injected.
var Default Provider = Ed25519{}

func (p Ed25519) Read(b []byte) error {
	r := p.Rand
	if r == nil {
		r = rand.Reader
	}
	if _, err := io.ReadFull(r, b); err != nil {
		return fmt.Errorf("read random bytes: %w", err)
	}
	return nil
}

func (p Ed25519) RandomScalar() ([ScalarSize]byte, error) {
	var wide [64]byte
	defer zeroBytes(wide[:])
	if err := p.Read(wide[:]); err != nil {
		return [ScalarSize]byte{}, err
	}
	s, err := edwards25519.NewScalar().SetUniformBytes(wide[:])
	if err != nil {
		return [ScalarSize]byte{}, err
	}
	return toArray(s.Bytes()), nil
}

func (Ed25519) FastHash(parts ...[]byte) [32]byte {
	h := sha3.NewLegacyKeccak256()
	for _, part := range parts {
		h.Write(part)
	}
	var out [32]byte
	h.Sum(out[:0])
	return out
}

func (p Ed25519) HashToScalar(parts ...[]byte) [ScalarSize]byte {
	sum := p.FastHash(parts...)
	defer zeroBytes(sum[:])
	return p.Reduce(sum[:])
}

// Reduce interprets up to 64 little-endian bytes as an integer and reduces it
// modulo the group order.
func (Ed25519) Reduce(b []byte) [ScalarSize]byte {
	var wide [64]byte
	defer zeroBytes(wide[:])
	copy(wide[:], b)
	s, err := edwards25519.NewScalar().SetUniformBytes(wide[:])
	if err != nil {
		return [ScalarSize]byte{}
	}
	return toArray(s.Bytes())
}

func (Ed25519) IsCanonical(b []byte) bool {
	if len(b) != ScalarSize {
		return false
	}
	_, err := edwards25519.NewScalar().SetCanonicalBytes(b)
	return err == nil
}

func (Ed25519) PublicKey(secret []byte) ([PointSize]byte, error) {
	s, err := scalar(secret)
	if err != nil {
		return [PointSize]byte{}, err
	}
	return toArray(new(edwards25519.Point).ScalarBaseMult(s).Bytes()), nil
}

// Sign produces a Schnorr signature (c || r) over hash for the key pair
// (secret, secret*G).
func (p Ed25519) Sign(hash [32]byte, secret []byte) ([SignatureSize]byte, error) {
	s, err := scalar(secret)
	if err != nil {
		return [SignatureSize]byte{}, err
	}
	public := new(edwards25519.Point).ScalarBaseMult(s).Bytes()

	kBytes, err := p.RandomScalar()
	if err != nil {
		return [SignatureSize]byte{}, err
	}
	defer zeroBytes(kBytes[:])
	k, err := edwards25519.NewScalar().SetCanonicalBytes(kBytes[:])
	if err != nil {
		return [SignatureSize]byte{}, err
	}
	commitment := new(edwards25519.Point).ScalarBaseMult(k).Bytes()

	cBytes := p.HashToScalar(hash[:], public, commitment)
	c, err := edwards25519.NewScalar().SetCanonicalBytes(cBytes[:])
	if err != nil {
		return [SignatureSize]byte{}, err
	}
	negC := edwards25519.NewScalar().Negate(c)
	r := edwards25519.NewScalar().MultiplyAdd(negC, s, k)

	var sig [SignatureSize]byte
	copy(sig[:ScalarSize], c.Bytes())
	copy(sig[ScalarSize:], r.Bytes())
	return sig, nil
}

func (p Ed25519) Verify(hash [32]byte, public []byte, sig [SignatureSize]byte) bool {
	if len(public) != PointSize {
		return false
	}
	point, err := new(edwards25519.Point).SetBytes(public)
	if err != nil {
		return false
	}
	c, err := edwards25519.NewScalar().SetCanonicalBytes(sig[:ScalarSize])
	if err != nil {
		return false
	}
	r, err := edwards25519.NewScalar().SetCanonicalBytes(sig[ScalarSize:])
	if err != nil {
		return false
	}
	commitment := new(edwards25519.Point).VarTimeDoubleScalarBaseMult(c, point, r).Bytes()
	expected := p.HashToScalar(hash[:], public, commitment)
	return subtle.ConstantTimeCompare(expected[:], sig[:ScalarSize]) == 1
}

// SharedSecret returns 8*secret*public, the cofactor-cleared key derivation.
func (Ed25519) SharedSecret(secret, public []byte) ([PointSize]byte, error) {
	s, err := scalar(secret)
	if err != nil {
		return [PointSize]byte{}, err
	}
	if len(public) != PointSize {
		return [PointSize]byte{}, ErrInvalidPoint
	}
	point, err := new(edwards25519.Point).SetBytes(public)
	if err != nil {
		return [PointSize]byte{}, fmt.Errorf("%w: %v", ErrInvalidPoint, err)
	}
	shared := new(edwards25519.Point).ScalarMult(s, point)
	shared.MultByCofactor(shared)
	return toArray(shared.Bytes()), nil
}

func scalar(b []byte) (*edwards25519.Scalar, error) {
	if len(b) != ScalarSize {
		return nil, ErrInvalidScalar
	}
	s, err := edwards25519.NewScalar().SetCanonicalBytes(b)
	if err != nil {
		return nil, errors.Join(ErrInvalidScalar, err)
	}
	return s, nil
}

func toArray(b []byte) [32]byte {
	var out [32]byte
	copy(out[:], b)
	return out
}

func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
