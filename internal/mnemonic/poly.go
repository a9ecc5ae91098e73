package mnemonic

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/text/unicode/norm"

	"ots/go-core/internal/seedlang"
)

// Poly phrases are 16 coefficients of a polynomial over GF(2^11). The first
// coefficient is a check digit; each of the other 15 carries 10 secret bits
// and one bit of the 15-bit (features, birthday) field.
const (
	PolyWords      = 16
	PolySecretBits = 150
	PolySecretSize = 19
	polyCheck      = 1
	polyDataWords  = PolyWords - polyCheck
	polyShareBits  = 10
	polyDateBits   = 10
	polyDateMask   = 1<<polyDateBits - 1
	polyFeatBits   = 5
	polyFeatMask   = 1<<polyFeatBits - 1
	polyClearMask  = 0xff >> (PolySecretSize*8 - PolySecretBits)

	PolyEncryptedMask = 16
	polySupported     = PolyEncryptedMask

	// PolyEpoch is 1 November 2021; birthdays count ~1 month steps from it.
	PolyEpoch    = 1635768000
	PolyTimeStep = 2629746

	polyKDFIterations = 10000

	gfSize = 2048
	gfMask = gfSize - 1
	gfPoly = 0x805
)

// Coin domain-separates polyseed phrases between chains.
type Coin uint16

const CoinMonero Coin = 0

// PolyData is the decoded content of a poly phrase.
type PolyData struct {
	Secret   [32]byte
	Birthday uint16
	Features uint8
}

func (d *PolyData) Encrypted() bool {
	return d.Features&PolyEncryptedMask != 0
}

func (d *PolyData) Wipe() {
	zero(d.Secret[:])
}

// PolyBirthdayEncode packs a unix time into the 10-bit birthday field.
func PolyBirthdayEncode(ts uint64) uint16 {
	if ts < PolyEpoch {
		return 0
	}
	return uint16((ts - PolyEpoch) / PolyTimeStep & polyDateMask)
}

func PolyBirthdayDecode(b uint16) uint64 {
	return PolyEpoch + uint64(b&polyDateMask)*PolyTimeStep
}

func gfMul2(x int) int {
	if x&(gfSize>>1) != 0 {
		return (x << 1) ^ gfPoly
	}
	return x << 1
}

func gfEval(coeff []int) int {
	result := coeff[len(coeff)-1]
	for i := len(coeff) - 2; i >= 0; i-- {
		result = gfMul2(result) ^ coeff[i]
	}
	return result
}

func secretBit(secret []byte, i int) int {
	last := PolySecretSize - 1
	if i/8 < last {
		return int(secret[i/8]>>(7-i%8)) & 1
	}
	tail := PolySecretBits - last*8
	return int(secret[last]>>(tail-1-(i-last*8))) & 1
}

func setSecretBit(secret []byte, i int) {
	last := PolySecretSize - 1
	if i/8 < last {
		secret[i/8] |= 1 << (7 - i%8)
		return
	}
	tail := PolySecretBits - last*8
	secret[last] |= 1 << (tail - 1 - (i - last*8))
}

// polyCoefficients lays out d without the check digit.
func polyCoefficients(d *PolyData) []int {
	coeff := make([]int, PolyWords)
	extra := int(d.Features&polyFeatMask)<<polyDateBits | int(d.Birthday&polyDateMask)
	extraBits := polyFeatBits + polyDateBits
	for w := 0; w < polyDataWords; w++ {
		v := 0
		for b := 0; b < polyShareBits; b++ {
			v = v<<1 | secretBit(d.Secret[:], w*polyShareBits+b)
		}
		extraBits--
		coeff[polyCheck+w] = v<<1 | (extra>>extraBits)&1
	}
	return coeff
}

func polyData(values []int) PolyData {
	var d PolyData
	extra := 0
	for w := 0; w < polyDataWords; w++ {
		v := values[polyCheck+w]
		extra = extra<<1 | v&1
		v >>= 1
		for b := 0; b < polyShareBits; b++ {
			if (v>>(polyShareBits-1-b))&1 == 1 {
				setSecretBit(d.Secret[:], w*polyShareBits+b)
			}
		}
	}
	d.Birthday = uint16(extra & polyDateMask)
	d.Features = uint8(extra >> polyDateBits)
	return d
}

// PolyValues encodes plaintext data, computing the check digit.
func PolyValues(d PolyData) ([]int, error) {
	if d.Encrypted() {
		return nil, fmt.Errorf("%w: cannot encode encrypted data without its check digit", ErrInvalidEncoding)
	}
	if d.Features&^polySupported != 0 {
		return nil, ErrUnsupportedFeatures
	}
	d.Secret[PolySecretSize-1] &= polyClearMask
	for i := PolySecretSize; i < len(d.Secret); i++ {
		d.Secret[i] = 0
	}
	coeff := polyCoefficients(&d)
	coeff[0] = gfEval(coeff)
	d.Wipe()
	return coeff, nil
}

// PolyDecode parses values into data. Plaintext values must satisfy the
// check digit; encrypted values are only checked once decrypted.
func PolyDecode(values []int) (PolyData, error) {
	if len(values) != PolyWords {
		return PolyData{}, ErrWordCount
	}
	if err := checkRange(values, gfSize); err != nil {
		return PolyData{}, err
	}
	d := polyData(values)
	if d.Features&^polySupported != 0 {
		d.Wipe()
		return PolyData{}, ErrUnsupportedFeatures
	}
	if !d.Encrypted() && gfEval(values) != 0 {
		d.Wipe()
		return PolyData{}, ErrChecksum
	}
	return d, nil
}

// PolyApplyCoin toggles the coin domain separator on a copy of values. It
// is an involution: the same call maps phrase values to internal values and
// back.
func PolyApplyCoin(values []int, coin Coin) []int {
	out := append([]int(nil), values...)
	if len(out) > polyCheck {
		out[polyCheck] ^= int(coin) & gfMask
	}
	return out
}

func polyMask(password string) []byte {
	salt := append([]byte("POLYSEED mask"), 0xff, 0xff)
	return pbkdf2.Key([]byte(norm.NFKD.String(password)), salt, polyKDFIterations, 32, sha256.New)
}

// PolyEncrypt masks the secret bits and sets the encrypted feature; the
// check digit keeps covering the plaintext.
func PolyEncrypt(values []int, password string) ([]int, error) {
	if password == "" {
		return nil, ErrPasswordRequired
	}
	d, err := PolyDecode(values)
	if err != nil {
		return nil, err
	}
	defer d.Wipe()
	if d.Encrypted() {
		return nil, fmt.Errorf("%w: already encrypted", ErrInvalidEncoding)
	}
	polyCrypt(&d, password)
	out := polyCoefficients(&d)
	out[0] = values[0]
	return out, nil
}

// PolyDecrypt unmasks the secret and re-validates the check digit; a
// mismatch means the password was wrong.
func PolyDecrypt(values []int, password string) ([]int, error) {
	if password == "" {
		return nil, ErrPasswordRequired
	}
	d, err := PolyDecode(values)
	if err != nil {
		return nil, err
	}
	defer d.Wipe()
	if !d.Encrypted() {
		return nil, fmt.Errorf("%w: not encrypted", ErrInvalidEncoding)
	}
	polyCrypt(&d, password)
	out := polyCoefficients(&d)
	out[0] = values[0]
	if gfEval(out) != 0 {
		zeroInts(out)
		return nil, ErrWrongPassword
	}
	return out, nil
}

func polyCrypt(d *PolyData, password string) {
	mask := polyMask(password)
	defer zero(mask)
	for i := 0; i < PolySecretSize; i++ {
		d.Secret[i] ^= mask[i]
	}
	d.Secret[PolySecretSize-1] &= polyClearMask
	d.Features ^= PolyEncryptedMask
}

// PolyKey derives the 32-byte key material of plaintext data. Callers reduce
// it to a scalar.
func PolyKey(d *PolyData, coin Coin) []byte {
	salt := make([]byte, 32)
	copy(salt, "POLYSEED key")
	salt[13], salt[14], salt[15] = 0xff, 0xff, 0xff
	binary.LittleEndian.PutUint32(salt[16:], uint32(coin))
	binary.LittleEndian.PutUint32(salt[20:], uint32(d.Birthday))
	binary.LittleEndian.PutUint32(salt[24:], uint32(d.Features))
	return pbkdf2.Key(d.Secret[:], salt, polyKDFIterations, 32, sha256.New)
}

// PolyLanguageCheck reports whether lang can render poly phrases.
func PolyLanguageCheck(lang *seedlang.Language) error {
	if !lang.Supported(seedlang.Poly) || lang.Len() != gfSize {
		return fmt.Errorf("%w: %s/%s", ErrUnsupportedFamily, lang.Code(), seedlang.Poly)
	}
	return nil
}
