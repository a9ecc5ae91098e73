package rpc

import (
	"encoding/json"

	"ots/go-core/internal/abi"
	"ots/go-core/internal/chain"
	"ots/go-core/internal/seedlang"
)

type seedParams struct {
	Family    string `json:"family"`
	Phrase    string `json:"phrase"`
	Data      string `json:"data"`
	Language  string `json:"language"`
	Network   string `json:"network"`
	Height    uint64 `json:"height"`
	Birthday  uint64 `json:"birthday"`
	Encrypted bool   `json:"encrypted"`
}

type seedPhraseParams struct {
	Handle   string `json:"handle"`
	Language string `json:"language"`
}

type seedPasswordParams struct {
	Handle   string `json:"handle"`
	Password string `json:"password"`
}

type seedStoreKeyParams struct {
	Handle string `json:"handle"`
	Label  string `json:"label"`
}

type seedInfo struct {
	Family      string  `json:"family"`
	Network     string  `json:"network"`
	Language    string  `json:"language"`
	Fingerprint string  `json:"fingerprint"`
	Encrypted   bool    `json:"encrypted"`
	Birthday    *uint64 `json:"birthday,omitempty"`
	Height      *uint64 `json:"height,omitempty"`
}

func (p seedParams) toBridge() (abi.SeedParams, error) {
	out := abi.SeedParams{
		Language:  p.Language,
		Height:    p.Height,
		Birthday:  p.Birthday,
		Encrypted: p.Encrypted,
	}
	var err error
	if out.Network, err = decodeNetwork(p.Network); err != nil {
		return out, err
	}
	if p.Family != "" {
		if out.Family, err = decodeFamily(p.Family); err != nil {
			return out, err
		}
	}
	return out, nil
}

func handleResult(res abi.HandleResult) (any, *rpcError) {
	if rpcErr := rpcRecordError(&res.Error); rpcErr != nil {
		return nil, rpcErr
	}
	return map[string]string{"handle": encodeHandle(res.Handle)}, nil
}

func (s *Server) dispatchSeedRPC(method string, rawParams json.RawMessage) (any, *rpcError, bool) {
	switch method {
	case "seed.generate", "seed.decode":
		p, err := decodeParams[seedParams](rawParams)
		if err != nil {
			return nil, rpcInvalidParams(), true
		}
		bp, err := p.toBridge()
		if err != nil {
			return nil, rpcInvalidParams(), true
		}
		if method == "seed.generate" {
			if p.Family == "" || p.Data != "" {
				return nil, rpcInvalidParams(), true
			}
			result, rpcErr := handleResult(s.bridge.GenerateSeed(bp))
			return result, rpcErr, true
		}
		if p.Phrase == "" || p.Data != "" {
			return nil, rpcInvalidParams(), true
		}
		result, rpcErr := handleResult(s.bridge.DecodeSeed(p.Phrase, bp))
		return result, rpcErr, true
	case "seed.from_hash":
		p, err := decodeParams[seedParams](rawParams)
		if err != nil || p.Phrase != "" || p.Family != "" {
			return nil, rpcInvalidParams(), true
		}
		bp, err := p.toBridge()
		if err != nil {
			return nil, rpcInvalidParams(), true
		}
		data, err := decodeHex(p.Data)
		if err != nil || len(data) == 0 {
			return nil, rpcInvalidParams(), true
		}
		defer clear(data)
		result, rpcErr := handleResult(s.bridge.SeedFromHash(data, bp))
		return result, rpcErr, true
	case "seed.phrase":
		p, err := decodeParams[seedPhraseParams](rawParams)
		if err != nil {
			return nil, rpcInvalidParams(), true
		}
		h, err := decodeHandle(p.Handle)
		if err != nil {
			return nil, rpcInvalidParams(), true
		}
		res := s.bridge.SeedPhrase(h, p.Language)
		defer clear(res.Text[:])
		if rpcErr := rpcRecordError(&res.Error); rpcErr != nil {
			return nil, rpcErr, true
		}
		return map[string]string{"phrase": res.String()}, nil, true
	case "seed.info":
		p, err := decodeParams[handleParams](rawParams)
		if err != nil {
			return nil, rpcInvalidParams(), true
		}
		h, err := decodeHandle(p.Handle)
		if err != nil {
			return nil, rpcInvalidParams(), true
		}
		res := s.bridge.SeedInfo(h)
		if rpcErr := rpcRecordError(&res.Error); rpcErr != nil {
			return nil, rpcErr, true
		}
		info := seedInfo{
			Family:      seedlang.Family(res.Family).String(),
			Network:     chain.Network(res.Network).String(),
			Language:    abi.CString(res.Language[:]),
			Fingerprint: abi.CString(res.Fingerprint[:]),
			Encrypted:   res.Encrypted,
		}
		if res.HasBirthday {
			info.Birthday = &res.Birthday
		}
		if res.HasHeight {
			info.Height = &res.Height
		}
		return info, nil, true
	case "seed.encrypt", "seed.decrypt":
		p, err := decodeParams[seedPasswordParams](rawParams)
		if err != nil {
			return nil, rpcInvalidParams(), true
		}
		h, err := decodeHandle(p.Handle)
		if err != nil {
			return nil, rpcInvalidParams(), true
		}
		res := s.bridge.EncryptSeed
		if method == "seed.decrypt" {
			res = s.bridge.DecryptSeed
		}
		result, rpcErr := handleResult(res(h, p.Password))
		return result, rpcErr, true
	case "seed.store_key":
		p, err := decodeParams[seedStoreKeyParams](rawParams)
		if err != nil {
			return nil, rpcInvalidParams(), true
		}
		h, err := decodeHandle(p.Handle)
		if err != nil {
			return nil, rpcInvalidParams(), true
		}
		result, rpcErr := handleResult(s.bridge.SeedStoreKey(h, p.Label))
		return result, rpcErr, true
	case "seed.remove":
		p, err := decodeParams[handleParams](rawParams)
		if err != nil {
			return nil, rpcInvalidParams(), true
		}
		h, err := decodeHandle(p.Handle)
		if err != nil {
			return nil, rpcInvalidParams(), true
		}
		res := s.bridge.RemoveSeed(h)
		if rpcErr := rpcRecordError(&res.Error); rpcErr != nil {
			return nil, rpcErr, true
		}
		return map[string]bool{"ok": res.Value}, nil, true
	default:
		return nil, nil, false
	}
}
