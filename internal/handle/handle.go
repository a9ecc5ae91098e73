// Package handle defines the opaque capability tokens handed out by the key
// and seed jars.
package handle

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// Handle names a jar entry without exposing it. Zero is never issued.
type Handle uint64

const Invalid Handle = 0

// maxDraws bounds collision retries; with 2^64 values a live table never
// gets close.
const maxDraws = 64

var ErrExhausted = errors.New("handle space exhausted")

func (h Handle) Valid() bool { return h != Invalid }

func (h Handle) String() string {
	return "0x" + strconv.FormatUint(uint64(h), 16)
}

// Parse accepts decimal or 0x-prefixed hexadecimal handles.
func Parse(raw string) (Handle, error) {
	v, err := strconv.ParseUint(raw, 0, 64)
	if err != nil {
		return Invalid, fmt.Errorf("parse handle %q: %w", raw, err)
	}
	return Handle(v), nil
}

// Generator draws handles from a cryptographically strong source.
type Generator struct {
	rand io.Reader
}

// NewGenerator reads from r, or crypto/rand when r is nil.
func NewGenerator(r io.Reader) *Generator {
	if r == nil {
		r = rand.Reader
	}
	return &Generator{rand: r}
}

// Next returns a fresh non-zero handle for which taken reports false.
// Callers hold their table lock while calling it.
func (g *Generator) Next(taken func(Handle) bool) (Handle, error) {
	var buf [8]byte
	for range maxDraws {
		if _, err := io.ReadFull(g.rand, buf[:]); err != nil {
			return Invalid, fmt.Errorf("draw handle: %w", err)
		}
		h := Handle(binary.LittleEndian.Uint64(buf[:]))
		if h == Invalid || (taken != nil && taken(h)) {
			continue
		}
		return h, nil
	}
	return Invalid, ErrExhausted
}
