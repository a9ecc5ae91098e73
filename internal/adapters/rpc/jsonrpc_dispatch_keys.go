package rpc

import (
	"encoding/hex"
	"encoding/json"

	"ots/go-core/internal/abi"
)

type handleParams struct {
	Handle string `json:"handle"`
}

type storeKeyParams struct {
	Key     string `json:"key"`
	Label   string `json:"label"`
	Network string `json:"network"`
}

type signParams struct {
	Handle  string `json:"handle"`
	Message string `json:"message"`
}

type sharedSecretParams struct {
	Handle string `json:"handle"`
	Public string `json:"public"`
}

type walletKeysParams struct {
	Handle string `json:"handle"`
	Height uint64 `json:"height"`
}

func (s *Server) dispatchKeyRPC(method string, rawParams json.RawMessage) (any, *rpcError, bool) {
	switch method {
	case "key.store":
		p, err := decodeParams[storeKeyParams](rawParams)
		if err != nil {
			return nil, rpcInvalidParams(), true
		}
		key, err := decodeHex(p.Key)
		if err != nil {
			return nil, rpcInvalidParams(), true
		}
		defer clear(key)
		net, err := decodeNetwork(p.Network)
		if err != nil {
			return nil, rpcInvalidParams(), true
		}
		res := s.bridge.StoreKey(key, p.Label, net)
		if rpcErr := rpcRecordError(&res.Error); rpcErr != nil {
			return nil, rpcErr, true
		}
		return map[string]string{"handle": encodeHandle(res.Handle)}, nil, true
	case "key.remove", "key.release", "handle.valid":
		p, err := decodeParams[handleParams](rawParams)
		if err != nil {
			return nil, rpcInvalidParams(), true
		}
		h, err := decodeHandle(p.Handle)
		if err != nil {
			return nil, rpcInvalidParams(), true
		}
		var res abi.BoolResult
		switch method {
		case "key.remove":
			res = s.bridge.RemoveKey(h)
		case "key.release":
			res = s.bridge.ReleaseKey(h)
		default:
			res = s.bridge.IsValidHandle(h)
		}
		if rpcErr := rpcRecordError(&res.Error); rpcErr != nil {
			return nil, rpcErr, true
		}
		return map[string]bool{"ok": res.Value}, nil, true
	case "key.sign":
		p, err := decodeParams[signParams](rawParams)
		if err != nil {
			return nil, rpcInvalidParams(), true
		}
		h, err := decodeHandle(p.Handle)
		if err != nil {
			return nil, rpcInvalidParams(), true
		}
		res := s.bridge.SignMessage(h, []byte(p.Message))
		if rpcErr := rpcRecordError(&res.Error); rpcErr != nil {
			return nil, rpcErr, true
		}
		return map[string]string{"signature": hex.EncodeToString(res.Signature[:])}, nil, true
	case "key.shared_secret":
		p, err := decodeParams[sharedSecretParams](rawParams)
		if err != nil {
			return nil, rpcInvalidParams(), true
		}
		h, err := decodeHandle(p.Handle)
		if err != nil {
			return nil, rpcInvalidParams(), true
		}
		public, err := decodeHex(p.Public)
		if err != nil {
			return nil, rpcInvalidParams(), true
		}
		res := s.bridge.DeriveSharedSecret(h, public)
		defer clear(res.Key[:])
		if rpcErr := rpcRecordError(&res.Error); rpcErr != nil {
			return nil, rpcErr, true
		}
		return map[string]string{"secret": hex.EncodeToString(res.Key[:])}, nil, true
	case "key.export":
		p, err := decodeParams[handleParams](rawParams)
		if err != nil {
			return nil, rpcInvalidParams(), true
		}
		h, err := decodeHandle(p.Handle)
		if err != nil {
			return nil, rpcInvalidParams(), true
		}
		res := s.bridge.ExportKey(h)
		defer clear(res.Key[:])
		if rpcErr := rpcRecordError(&res.Error); rpcErr != nil {
			return nil, rpcErr, true
		}
		return map[string]string{"key": hex.EncodeToString(res.Key[:])}, nil, true
	case "wallet.keys":
		p, err := decodeParams[walletKeysParams](rawParams)
		if err != nil {
			return nil, rpcInvalidParams(), true
		}
		h, err := decodeHandle(p.Handle)
		if err != nil {
			return nil, rpcInvalidParams(), true
		}
		res := s.bridge.WalletKeys(h, p.Height)
		defer clear(res.SecretView[:])
		if rpcErr := rpcRecordError(&res.Error); rpcErr != nil {
			return nil, rpcErr, true
		}
		return map[string]string{
			"public_spend_key": abi.CString(res.PublicSpend[:]),
			"public_view_key":  abi.CString(res.PublicView[:]),
			"secret_view_key":  abi.CString(res.SecretView[:]),
		}, nil, true
	default:
		return nil, nil, false
	}
}
