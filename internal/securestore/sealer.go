// Package securestore seals secrets held in process memory so long-lived
// tables never keep clear key bytes.
package securestore

import (
	"crypto/rand"
	"errors"
	"io"
	"sync"

	"golang.org/x/crypto/chacha20poly1305"
)

var (
	ErrAuthFailed = errors.New("securestore authentication failed")
	ErrInvalid    = errors.New("securestore blob is invalid")
	ErrClosed     = errors.New("securestore sealer is closed")
)

// Sealer encrypts blobs under a random per-instance XChaCha20-Poly1305 key.
// Associated data binds a blob to its slot so blobs cannot be swapped.
type Sealer struct {
	mu   sync.RWMutex
	key  []byte
	rand io.Reader
}

// NewSealer draws a fresh key from r, or crypto/rand when r is nil.
func NewSealer(r io.Reader) (*Sealer, error) {
	if r == nil {
		r = rand.Reader
	}
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, err
	}
	return &Sealer{key: key, rand: r}, nil
}

// Seal returns nonce || ciphertext.
func (s *Sealer) Seal(plaintext, ad []byte) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.key == nil {
		return nil, ErrClosed
	}
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return nil, err
	}
	out := make([]byte, chacha20poly1305.NonceSizeX, chacha20poly1305.NonceSizeX+len(plaintext)+aead.Overhead())
	if _, err := io.ReadFull(s.rand, out); err != nil {
		return nil, err
	}
	return aead.Seal(out, out, plaintext, ad), nil
}

// Open authenticates and decrypts a blob produced by Seal with the same ad.
// The caller wipes the result.
func (s *Sealer) Open(blob, ad []byte) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.key == nil {
		return nil, ErrClosed
	}
	if len(blob) < chacha20poly1305.NonceSizeX+chacha20poly1305.Overhead {
		return nil, ErrInvalid
	}
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return nil, err
	}
	nonce, ciphertext := blob[:chacha20poly1305.NonceSizeX], blob[chacha20poly1305.NonceSizeX:]
	plaintext, err := aead.Open(nil, nonce, ciphertext, ad)
	if err != nil {
		return nil, ErrAuthFailed
	}
	return plaintext, nil
}

// Close wipes the sealing key; later calls fail with ErrClosed.
func (s *Sealer) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	ZeroBytes(s.key)
	s.key = nil
}

// ZeroBytes overwrites b.
func ZeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
