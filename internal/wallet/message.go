package wallet

import (
	"strings"

	"github.com/mr-tron/base58"

	"ots/go-core/internal/otserr"
	"ots/go-core/internal/primitives"
)

const signaturePrefix = "SigV1"

var ErrBadSignature = otserr.New(otserr.ErrInvalidArgument, "malformed message signature")

// SignData signs keccak(data) with the spend key and renders the signature
// as "SigV1" followed by base58.
func (w *Wallet) SignData(data []byte) (string, error) {
	hash := w.prim.FastHash(data)
	var sig [primitives.SignatureSize]byte
	err := w.withKeys(func(k *Keys) error {
		var err error
		sig, err = w.prim.Sign(hash, k.SpendSecret[:])
		return err
	})
	if err != nil {
		return "", err
	}
	return signaturePrefix + base58.Encode(sig[:]), nil
}

// VerifyData checks a SignData signature against this wallet's spend key.
func (w *Wallet) VerifyData(data []byte, signature string) (bool, error) {
	var public [primitives.PointSize]byte
	err := w.withKeys(func(k *Keys) error {
		public = k.SpendPublic
		return nil
	})
	if err != nil {
		return false, err
	}
	return VerifyData(w.prim, data, public[:], signature)
}

// VerifyData checks a SignData signature against a public spend key.
func VerifyData(p primitives.Provider, data, public []byte, signature string) (bool, error) {
	if p == nil {
		p = primitives.Default
	}
	encoded, ok := strings.CutPrefix(signature, signaturePrefix)
	if !ok {
		return false, ErrBadSignature
	}
	raw, err := base58.Decode(encoded)
	if err != nil || len(raw) != primitives.SignatureSize {
		return false, ErrBadSignature
	}
	var sig [primitives.SignatureSize]byte
	copy(sig[:], raw)
	return p.Verify(p.FastHash(data), public, sig), nil
}
