package mnemonic

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"strings"

	"ots/go-core/internal/seedlang"
)

// Legacy and standard phrases carry 32-bit little-endian chunks as three
// words each, followed by one checksum word: the dictionary entry at the
// CRC32 of the data words' unique prefixes, modulo the dictionary size.

const (
	LegacyEntropySize = 16
	StandardKeySize   = 32
)

func encodeTriples(src []byte, n int) []int {
	out := make([]int, 0, len(src)/4*3+1)
	un := uint64(n)
	for i := 0; i+4 <= len(src); i += 4 {
		x := uint64(binary.LittleEndian.Uint32(src[i:]))
		w1 := x % un
		w2 := (x/un + w1) % un
		w3 := (x/un/un + w2) % un
		out = append(out, int(w1), int(w2), int(w3))
	}
	return out
}

func decodeTriples(values []int, n int, dst []byte) error {
	if len(values)*4 != len(dst)*3 {
		return fmt.Errorf("%w: %d values for %d bytes", ErrInvalidEncoding, len(values), len(dst))
	}
	if err := checkRange(values, n); err != nil {
		return err
	}
	un := uint64(n)
	for i := 0; i < len(values); i += 3 {
		w1, w2, w3 := uint64(values[i]), uint64(values[i+1]), uint64(values[i+2])
		x := w1 + un*((un-w1+w2)%un) + un*un*((un-w2+w3)%un)
		if x > 0xffffffff || x%un != w1 {
			return fmt.Errorf("%w: words %d-%d", ErrInvalidEncoding, i+1, i+3)
		}
		binary.LittleEndian.PutUint32(dst[i/3*4:], uint32(x))
	}
	return nil
}

func checksumWord(data []int, lang *seedlang.Language) int {
	var b strings.Builder
	for _, v := range data {
		b.WriteString(lang.ChecksumPrefix(v))
	}
	return int(crc32.ChecksumIEEE([]byte(b.String())) % uint32(lang.Len()))
}

func appendChecksum(data []int, lang *seedlang.Language) []int {
	return append(data, checksumWord(data, lang))
}

func verifyChecksum(values []int, lang *seedlang.Language) error {
	if values[len(values)-1] != checksumWord(values[:len(values)-1], lang) {
		return ErrChecksum
	}
	return nil
}

// LegacyValues encodes 16 bytes of entropy as 13 values.
func LegacyValues(entropy []byte, lang *seedlang.Language) ([]int, error) {
	if len(entropy) != LegacyEntropySize {
		return nil, fmt.Errorf("%w: legacy entropy is %d bytes", ErrKeySize, LegacyEntropySize)
	}
	if !lang.Supported(seedlang.Legacy) {
		return nil, fmt.Errorf("%w: %s/%s", ErrUnsupportedFamily, lang.Code(), seedlang.Legacy)
	}
	return appendChecksum(encodeTriples(entropy, lang.Len()), lang), nil
}

// LegacyEntropy validates 13 values and recovers the entropy.
func LegacyEntropy(values []int, lang *seedlang.Language) ([LegacyEntropySize]byte, error) {
	var out [LegacyEntropySize]byte
	if len(values) != seedlang.Legacy.WordCount() {
		return out, ErrWordCount
	}
	if err := checkRange(values, lang.Len()); err != nil {
		return out, err
	}
	if err := verifyChecksum(values, lang); err != nil {
		return out, err
	}
	if err := decodeTriples(values[:len(values)-1], lang.Len(), out[:]); err != nil {
		zero(out[:])
		return out, err
	}
	return out, nil
}

// StandardValues encodes a 32-byte key as 25 values.
func StandardValues(key []byte, lang *seedlang.Language) ([]int, error) {
	if len(key) != StandardKeySize {
		return nil, fmt.Errorf("%w: standard key is %d bytes", ErrKeySize, StandardKeySize)
	}
	if !lang.Supported(seedlang.Standard) {
		return nil, fmt.Errorf("%w: %s/%s", ErrUnsupportedFamily, lang.Code(), seedlang.Standard)
	}
	return appendChecksum(encodeTriples(key, lang.Len()), lang), nil
}

// StandardKey validates 25 plaintext values and recovers the key.
func StandardKey(values []int, lang *seedlang.Language) ([StandardKeySize]byte, error) {
	var out [StandardKeySize]byte
	if len(values) != seedlang.Standard.WordCount() {
		return out, ErrWordCount
	}
	if err := checkRange(values, lang.Len()); err != nil {
		return out, err
	}
	if err := verifyChecksum(values, lang); err != nil {
		return out, err
	}
	if err := decodeTriples(values[:len(values)-1], lang.Len(), out[:]); err != nil {
		zero(out[:])
		return out, err
	}
	return out, nil
}

// Reseal recomputes the checksum word of plaintext legacy or standard
// values for another language.
func Reseal(values []int, lang *seedlang.Language) []int {
	data := append([]int(nil), values[:len(values)-1]...)
	return appendChecksum(data, lang)
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
