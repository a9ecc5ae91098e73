package rpc

import "ots/go-core/internal/abi"

func rpcInvalidParams() *rpcError {
	return &rpcError{Code: -32602, Message: "invalid params"}
}

// rpcRecordError maps a bridge record onto a JSON-RPC error, or nil on
// success.
func rpcRecordError(rec *abi.ErrorRecord) *rpcError {
	if rec.OK() {
		return nil
	}
	code := -32603
	switch abi.Code(rec.Code) {
	case abi.CodeInvalidArgument:
		code = -32602
	case abi.CodeNotFound:
		code = -32004
	case abi.CodeDomain:
		code = -32010
	case abi.CodeNotImplemented:
		code = -32011
	case abi.CodeRateLimited:
		code = -32029
	}
	return &rpcError{Code: code, Message: rec.MessageString()}
}
