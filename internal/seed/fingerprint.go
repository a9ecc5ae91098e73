package seed

import (
	"encoding/binary"

	"github.com/mr-tron/base58"
	"golang.org/x/crypto/blake2b"

	"ots/go-core/internal/seedlang"
)

const (
	fingerprintKey  = "ots seed fingerprint v1"
	fingerprintSize = 8
)

// Fingerprint identifies the seed by its data words, so the same seed
// rendered in different languages shares one fingerprint. Checksum words
// are excluded; the encrypted state and coin are not.
func (s *Seed) Fingerprint() string {
	// New256 only fails for keys over 64 bytes.
	h, _ := blake2b.New256([]byte(fingerprintKey))
	var header [4]byte
	header[0] = byte(s.family)
	if s.encrypted {
		header[1] = 1
	}
	binary.BigEndian.PutUint16(header[2:], uint16(s.coin))
	h.Write(header[:])
	var buf [2]byte
	for _, v := range s.dataValues() {
		binary.BigEndian.PutUint16(buf[:], uint16(v))
		h.Write(buf[:])
	}
	return base58.Encode(h.Sum(nil)[:fingerprintSize])
}

func (s *Seed) dataValues() []int {
	if len(s.values) == 0 {
		return nil
	}
	if s.family == seedlang.Poly {
		return s.values[1:]
	}
	return s.values[:len(s.values)-1]
}
