package rpc

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"

	"ots/go-core/internal/abi"
	"ots/go-core/internal/chain"
	"ots/go-core/internal/handle"
	"ots/go-core/internal/seedlang"
)

var errInvalidParams = errors.New("invalid params")

// decodeParams reads an object into T and rejects unknown fields.
func decodeParams[T any](raw json.RawMessage) (T, error) {
	var out T
	if len(raw) == 0 {
		return out, errInvalidParams
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&out); err != nil {
		return out, errInvalidParams
	}
	return out, nil
}

func decodeHandle(raw string) (uint64, error) {
	h, err := handle.Parse(raw)
	if err != nil || !h.Valid() {
		return 0, errInvalidParams
	}
	return uint64(h), nil
}

func decodeHex(raw string) ([]byte, error) {
	b, err := hex.DecodeString(raw)
	if err != nil {
		return nil, errInvalidParams
	}
	return b, nil
}

// decodeNetwork leaves the choice to the bridge when raw is empty.
func decodeNetwork(raw string) (int32, error) {
	if strings.TrimSpace(raw) == "" {
		return abi.NetworkDefault, nil
	}
	n, err := chain.ParseNetwork(raw)
	if err != nil {
		return 0, errInvalidParams
	}
	return int32(n), nil
}

func decodeFamily(raw string) (int32, error) {
	f, err := seedlang.ParseFamily(raw)
	if err != nil {
		return 0, errInvalidParams
	}
	return int32(f), nil
}

func encodeHandle(h uint64) string { return handle.Handle(h).String() }
