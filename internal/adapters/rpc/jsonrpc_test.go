package rpc

import (
	"bufio"
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"ots/go-core/internal/abi"
	"ots/go-core/internal/chain"
	"ots/go-core/internal/keyjar"
	"ots/go-core/internal/primitives"
	"ots/go-core/internal/seedjar"
)

type testResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error"`
}

func newTestServer(t *testing.T, opts ...abi.Option) *Server {
	t.Helper()
	keys, err := keyjar.New()
	if err != nil {
		t.Fatalf("key jar: %v", err)
	}
	seeds := seedjar.New()
	t.Cleanup(func() {
		keys.Close()
		seeds.Close()
	})
	return NewServer(abi.New(keys, seeds, opts...))
}

func roundTrip(t *testing.T, s *Server, lines ...string) []testResponse {
	t.Helper()
	var out bytes.Buffer
	in := strings.NewReader(strings.Join(lines, "\n") + "\n")
	if err := s.Serve(context.Background(), in, &out); err != nil {
		t.Fatalf("serve: %v", err)
	}
	var responses []testResponse
	sc := bufio.NewScanner(&out)
	for sc.Scan() {
		var resp testResponse
		if err := json.Unmarshal(sc.Bytes(), &resp); err != nil {
			t.Fatalf("decode response %q: %v", sc.Text(), err)
		}
		responses = append(responses, resp)
	}
	return responses
}

func call(t *testing.T, s *Server, method string, params any) testResponse {
	t.Helper()
	raw, err := json.Marshal(map[string]any{"jsonrpc": "2.0", "id": 1, "method": method, "params": params})
	if err != nil {
		t.Fatal(err)
	}
	responses := roundTrip(t, s, string(raw))
	if len(responses) != 1 {
		t.Fatalf("got %d responses", len(responses))
	}
	return responses[0]
}

func result[T any](t *testing.T, resp testResponse) T {
	t.Helper()
	if resp.Error != nil {
		t.Fatalf("rpc error %d: %s", resp.Error.Code, resp.Error.Message)
	}
	var out T
	if err := json.Unmarshal(resp.Result, &out); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	return out
}

func TestProtocolErrors(t *testing.T) {
	s := newTestServer(t)
	responses := roundTrip(t, s,
		`{not json`,
		`{"jsonrpc":"1.0","id":1,"method":"health_check"}`,
		`{"jsonrpc":"2.0","id":2,"method":"no.such"}`,
		`{"jsonrpc":"2.0","id":3,"method":"key.export","params":{"handle":"nope"}}`,
		`{"jsonrpc":"2.0","id":4,"method":"health_check","api_version":9}`,
		`{"jsonrpc":"2.0","method":"health_check"}`,
		``,
		`{"jsonrpc":"2.0","id":5,"method":"health_check"}`,
	)
	want := []int{-32700, -32600, -32601, -32602, -32080, 0}
	if len(responses) != len(want) {
		t.Fatalf("got %d responses, want %d", len(responses), len(want))
	}
	for i, code := range want {
		got := 0
		if responses[i].Error != nil {
			got = responses[i].Error.Code
		}
		if got != code {
			t.Fatalf("response %d code = %d, want %d", i, got, code)
		}
	}
}

func TestKeyMethods(t *testing.T) {
	s := newTestServer(t)
	p := primitives.Default
	secret, _ := p.RandomScalar()

	stored := result[map[string]string](t, call(t, s, "key.store", map[string]string{
		"key": hex.EncodeToString(secret[:]), "label": "cold", "network": "testnet",
	}))
	h := stored["handle"]
	if !strings.HasPrefix(h, "0x") {
		t.Fatalf("handle = %q", h)
	}

	sig := result[map[string]string](t, call(t, s, "key.sign", map[string]string{"handle": h, "message": "hello"}))
	raw, err := hex.DecodeString(sig["signature"])
	if err != nil || len(raw) != primitives.SignatureSize {
		t.Fatalf("signature = %q", sig["signature"])
	}
	var arr [primitives.SignatureSize]byte
	copy(arr[:], raw)
	pub, _ := p.PublicKey(secret[:])
	if !p.Verify(p.FastHash([]byte("hello")), pub[:], arr) {
		t.Fatalf("signature does not verify")
	}

	exported := result[map[string]string](t, call(t, s, "key.export", map[string]string{"handle": h}))
	if exported["key"] != hex.EncodeToString(secret[:]) {
		t.Fatalf("export mismatch")
	}
	keys := result[map[string]string](t, call(t, s, "wallet.keys", map[string]any{"handle": h, "height": 10}))
	if len(keys["public_spend_key"]) != 64 || keys["public_spend_key"] != hex.EncodeToString(pub[:]) {
		t.Fatalf("wallet keys = %v", keys)
	}

	removed := result[map[string]bool](t, call(t, s, "key.remove", map[string]string{"handle": h}))
	if !removed["ok"] {
		t.Fatalf("remove failed")
	}
	missing := call(t, s, "key.export", map[string]string{"handle": h})
	if missing.Error == nil || missing.Error.Code != -32004 {
		t.Fatalf("expected not-found, got %+v", missing.Error)
	}
}

func TestSeedMethods(t *testing.T) {
	s := newTestServer(t)
	gen := result[map[string]string](t, call(t, s, "seed.generate", map[string]any{"family": "poly", "network": "stagenet"}))
	h := gen["handle"]

	info := result[seedInfo](t, call(t, s, "seed.info", map[string]string{"handle": h}))
	if info.Family != "poly" || info.Network != "stage" || info.Encrypted || info.Birthday == nil {
		t.Fatalf("info = %+v", info)
	}
	phrase := result[map[string]string](t, call(t, s, "seed.phrase", map[string]string{"handle": h}))["phrase"]
	if n := len(strings.Fields(phrase)); n != 16 {
		t.Fatalf("phrase has %d words", n)
	}
	decoded := result[map[string]string](t, call(t, s, "seed.decode", map[string]string{"phrase": phrase, "network": "stagenet"}))
	if decoded["handle"] != h {
		t.Fatalf("decoded duplicate got handle %s, want %s", decoded["handle"], h)
	}

	key := result[map[string]string](t, call(t, s, "seed.store_key", map[string]string{"handle": h, "label": "main"}))
	valid := result[map[string]bool](t, call(t, s, "handle.valid", map[string]string{"handle": key["handle"]}))
	if !valid["ok"] {
		t.Fatalf("derived key handle not valid")
	}

	bad := call(t, s, "seed.generate", map[string]any{"family": "poly", "surprise": true})
	if bad.Error == nil || bad.Error.Code != -32602 {
		t.Fatalf("unknown field accepted: %+v", bad.Error)
	}
}

func TestSeedFromHash(t *testing.T) {
	s := newTestServer(t)
	data := hex.EncodeToString([]byte("wallet recovery data"))
	first := result[map[string]string](t, call(t, s, "seed.from_hash", map[string]string{"data": data}))
	again := result[map[string]string](t, call(t, s, "seed.from_hash", map[string]string{"data": data}))
	if first["handle"] != again["handle"] {
		t.Fatalf("same data gave handles %s and %s", first["handle"], again["handle"])
	}
	info := result[seedInfo](t, call(t, s, "seed.info", map[string]string{"handle": first["handle"]}))
	if info.Family != "standard" || info.Birthday != nil || info.Height != nil {
		t.Fatalf("info = %+v", info)
	}
	other := result[map[string]string](t, call(t, s, "seed.from_hash", map[string]string{"data": hex.EncodeToString([]byte("other"))}))
	if other["handle"] == first["handle"] {
		t.Fatalf("different data shared a handle")
	}

	for _, params := range []map[string]string{
		{"data": ""},
		{"data": "zz"},
		{"data": data, "phrase": "abbey"},
		{"data": data, "family": "poly"},
	} {
		resp := call(t, s, "seed.from_hash", params)
		if resp.Error == nil || resp.Error.Code != -32602 {
			t.Fatalf("params %v: error = %+v", params, resp.Error)
		}
	}
}

func TestEmptyNetworkUsesBridgeDefault(t *testing.T) {
	s := newTestServer(t, abi.WithNetwork(chain.Test))
	gen := result[map[string]string](t, call(t, s, "seed.generate", map[string]string{"family": "standard"}))
	info := result[seedInfo](t, call(t, s, "seed.info", map[string]string{"handle": gen["handle"]}))
	if info.Network != "test" {
		t.Fatalf("network = %q, want test", info.Network)
	}
	gen = result[map[string]string](t, call(t, s, "seed.generate", map[string]string{"family": "standard", "network": "main"}))
	info = result[seedInfo](t, call(t, s, "seed.info", map[string]string{"handle": gen["handle"]}))
	if info.Network != "main" {
		t.Fatalf("explicit network = %q, want main", info.Network)
	}
}

func TestVersionAndAPIPinning(t *testing.T) {
	s := newTestServer(t)
	info := result[versionInfo](t, call(t, s, "rpc.version", nil))
	if info.API != apiVersion || info.Core != "1.0.0" || info.Major != abi.VersionMajor {
		t.Fatalf("version = %+v", info)
	}
	responses := roundTrip(t, s,
		`{"jsonrpc":"2.0","id":1,"method":"health_check","api_version":0}`,
		`{"jsonrpc":"2.0","id":2,"method":"health_check","api_version":1}`,
	)
	if len(responses) != 2 {
		t.Fatalf("got %d responses", len(responses))
	}
	if responses[0].Error == nil || responses[0].Error.Code != -32081 {
		t.Fatalf("retired version: %+v", responses[0].Error)
	}
	if responses[1].Error != nil {
		t.Fatalf("current version rejected: %+v", responses[1].Error)
	}
}

func TestServeStopsOnCancel(t *testing.T) {
	s := newTestServer(t)
	r, w := io.Pipe()
	defer w.Close()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, r, io.Discard) }()
	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("serve err = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("serve did not stop")
	}
}
