// Package privacylog wraps a slog handler so secrets never reach the log and
// handles, fingerprints and labels only appear as per-process fingerprints.
package privacylog

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"strings"

	"golang.org/x/crypto/blake2b"
)

const redacted = "[REDACTED]"

type action uint8

const (
	keep action = iota
	redact
	fingerprint
)

// Keys naming an identifier of a key or seed; their values are linkable
// across log lines, so they are replaced by a keyed hash.
var identifiers = map[string]bool{
	"handle":      true,
	"key_handle":  true,
	"seed_handle": true,
	"fingerprint": true,
	"label":       true,
	"address":     true,
}

// Any key containing one of these is dropped to a placeholder.
var secretMarkers = []string{
	"secret", "password", "passphrase", "phrase", "mnemonic",
	"private", "spend_key", "view_key", "key_bytes",
}

// fingerprintKey is drawn once per process.
var fingerprintKey = func() []byte {
	k := make([]byte, 32)
	_, _ = rand.Read(k)
	return k
}()

func classify(key string) action {
	k := strings.ToLower(strings.TrimSpace(key))
	for _, m := range secretMarkers {
		if strings.Contains(k, m) {
			return redact
		}
	}
	if identifiers[k] {
		return fingerprint
	}
	return keep
}

// Handler filters every attribute, including those bound with WithAttrs and
// nested in groups, before passing the record on.
type Handler struct {
	next slog.Handler
}

func WrapHandler(next slog.Handler) slog.Handler {
	if next == nil {
		return nil
	}
	return &Handler{next: next}
}

func (h *Handler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *Handler) Handle(ctx context.Context, rec slog.Record) error {
	clean := slog.NewRecord(rec.Time, rec.Level, rec.Message, rec.PC)
	rec.Attrs(func(a slog.Attr) bool {
		clean.AddAttrs(SanitizeAttr(a))
		return true
	})
	return h.next.Handle(ctx, clean)
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clean := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		clean[i] = SanitizeAttr(a)
	}
	return &Handler{next: h.next.WithAttrs(clean)}
}

func (h *Handler) WithGroup(name string) slog.Handler {
	return &Handler{next: h.next.WithGroup(name)}
}

// SanitizeAttr applies the redaction rules to a and, for groups, to every
// member.
func SanitizeAttr(a slog.Attr) slog.Attr {
	a.Value = a.Value.Resolve()
	switch classify(a.Key) {
	case redact:
		return slog.String(a.Key, redacted)
	case fingerprint:
		name := a.Key
		if !strings.HasSuffix(strings.ToLower(name), "_fp") {
			name += "_fp"
		}
		return slog.String(name, FingerprintID(a.Value.String()))
	}
	if a.Value.Kind() != slog.KindGroup {
		return a
	}
	members := a.Value.Group()
	clean := make([]slog.Attr, len(members))
	for i, m := range members {
		clean[i] = SanitizeAttr(m)
	}
	return slog.Attr{Key: a.Key, Value: slog.GroupValue(clean...)}
}

// FingerprintID is stable within a process and unlinkable across runs.
func FingerprintID(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	mac, _ := blake2b.New(8, fingerprintKey)
	mac.Write([]byte(value))
	return "fp_" + hex.EncodeToString(mac.Sum(nil))
}
