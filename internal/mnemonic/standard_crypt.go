package mnemonic

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/crypto/argon2"

	"ots/go-core/internal/seedlang"
)

// Standard seed encryption offsets every word value (checksum included) by a
// password-derived keystream. The salt is fixed because a phrase has no room
// to carry one.
const (
	standardCryptSalt    = "ots standard seed v1"
	standardArgonTime    = uint32(2)
	standardArgonMemKB   = uint32(64 * 1024)
	standardArgonThreads = uint8(1)
)

func standardKeystream(password string, count, n int) []int {
	raw := argon2.IDKey([]byte(password), []byte(standardCryptSalt), standardArgonTime, standardArgonMemKB, standardArgonThreads, uint32(count*2))
	defer zero(raw)
	out := make([]int, count)
	for i := range out {
		out[i] = int(binary.BigEndian.Uint16(raw[i*2:])) % n
	}
	return out
}

// StandardEncrypt shifts plaintext values under password. The input must
// already be valid for lang.
func StandardEncrypt(values []int, lang *seedlang.Language, password string) ([]int, error) {
	if password == "" {
		return nil, ErrPasswordRequired
	}
	if len(values) != seedlang.Standard.WordCount() {
		return nil, ErrWordCount
	}
	n := lang.Len()
	if err := checkRange(values, n); err != nil {
		return nil, err
	}
	ks := standardKeystream(password, len(values), n)
	defer zeroInts(ks)
	out := make([]int, len(values))
	for i, v := range values {
		out[i] = (v + ks[i]) % n
	}
	return out, nil
}

// StandardDecrypt reverses StandardEncrypt and re-validates the checksum
// and word triples; a mismatch means the password was wrong.
func StandardDecrypt(values []int, lang *seedlang.Language, password string) ([]int, error) {
	if password == "" {
		return nil, ErrPasswordRequired
	}
	if len(values) != seedlang.Standard.WordCount() {
		return nil, ErrWordCount
	}
	n := lang.Len()
	if err := checkRange(values, n); err != nil {
		return nil, err
	}
	ks := standardKeystream(password, len(values), n)
	defer zeroInts(ks)
	out := make([]int, len(values))
	for i, v := range values {
		out[i] = (v - ks[i] + n) % n
	}
	key, err := StandardKey(out, lang)
	zero(key[:])
	if err != nil {
		zeroInts(out)
		return nil, fmt.Errorf("%w: %v", ErrWrongPassword, err)
	}
	return out, nil
}

func zeroInts(v []int) {
	for i := range v {
		v[i] = 0
	}
}
