package privacylog

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestSanitizeAttrFingerprintsHandles(t *testing.T) {
	got := SanitizeAttr(slog.String("key_handle", "0x2a"))
	if got.Key != "key_handle_fp" || !strings.HasPrefix(got.Value.String(), "fp_") {
		t.Fatalf("handle attr = %v", got)
	}
	if again := SanitizeAttr(slog.String("key_handle_fp", "0x2a")); again.Key != "key_handle_fp" {
		t.Fatalf("suffix doubled: %s", again.Key)
	}
	if n := SanitizeAttr(slog.Uint64("handle", 42)); n.Value.String() != FingerprintID("42") {
		t.Fatalf("numeric handle = %v", n)
	}
	if plain := SanitizeAttr(slog.String("family", "poly")); plain.Value.String() != "poly" {
		t.Fatalf("plain attr changed: %v", plain)
	}
}

func TestFingerprintIDIsStableWithinProcess(t *testing.T) {
	a, b := FingerprintID("0x2a"), FingerprintID(" 0x2a ")
	if a != b || a == FingerprintID("0x2b") {
		t.Fatalf("fingerprints must be stable and distinct: %s %s", a, b)
	}
	if FingerprintID("  ") != "" {
		t.Fatal("blank values have no fingerprint")
	}
}

func TestHandlerRedactsSecrets(t *testing.T) {
	var buf bytes.Buffer
	base := slog.NewJSONHandler(&buf, nil)
	logger := slog.New(WrapHandler(base))
	logger.Info("test", "seed_handle", "0x01", "password", "hunter2", "phrase", "abandon abandon", "status", "ok")

	var payload map[string]any
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		t.Fatalf("decode log json: %v", err)
	}
	if _, ok := payload["seed_handle"]; ok {
		t.Fatal("seed_handle should not be present")
	}
	if _, ok := payload["seed_handle_fp"]; !ok {
		t.Fatal("seed_handle_fp should be present")
	}
	for _, key := range []string{"password", "phrase"} {
		if got, _ := payload[key].(string); got != redacted {
			t.Fatalf("expected redacted %s, got %q", key, got)
		}
	}
	if strings.Contains(buf.String(), "hunter2") || strings.Contains(buf.String(), "abandon") {
		t.Fatalf("secret leaked: %s", buf.String())
	}
}

func TestHandlerImplementsSlogHandlerContract(t *testing.T) {
	var buf bytes.Buffer
	h := WrapHandler(slog.NewJSONHandler(&buf, nil))
	if !h.Enabled(context.Background(), slog.LevelInfo) {
		t.Fatal("expected handler enabled for info")
	}
	rec := slog.NewRecord(time.Now().UTC(), slog.LevelInfo, "msg", 0)
	rec.AddAttrs(slog.String("label", "savings"))
	if err := h.Handle(context.Background(), rec); err != nil {
		t.Fatalf("handle failed: %v", err)
	}
	if !strings.Contains(buf.String(), "label_fp") || strings.Contains(buf.String(), "savings") {
		t.Fatalf("expected sanitized label, got %s", buf.String())
	}
}

func TestWithAttrsAndGroupsAreSanitized(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(WrapHandler(slog.NewJSONHandler(&buf, nil))).With("secret_view_key", "abcd")
	logger.Info("grouped", slog.Group("seed", slog.String("mnemonic", "zoo zoo"), slog.Int("words", 25)))
	out := buf.String()
	if strings.Contains(out, "abcd") || strings.Contains(out, "zoo zoo") {
		t.Fatalf("secret leaked: %s", out)
	}
	if !strings.Contains(out, `"seed":{`) || !strings.Contains(out, `"words":25`) {
		t.Fatalf("plain group attrs must survive: %s", out)
	}
}
