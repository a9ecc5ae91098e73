// Package rpc serves the bridge as line-delimited JSON-RPC 2.0 over a byte
// stream, normally the signer's stdin and stdout.
package rpc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"ots/go-core/internal/abi"
)

type rpcRequest struct {
	JSONRPC    string          `json:"jsonrpc"`
	ID         json.RawMessage `json:"id"`
	Method     string          `json:"method"`
	Params     json.RawMessage `json:"params"`
	APIVersion *int            `json:"api_version,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  any             `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

const maxRPCLineBytes = 1 << 20 // 1 MiB

type Option func(*Server)

func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// Server answers one request per input line, in order.
type Server struct {
	bridge *abi.Bridge
	logger *slog.Logger
}

func NewServer(bridge *abi.Bridge, opts ...Option) *Server {
	s := &Server{bridge: bridge, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Serve reads requests from r until EOF or ctx is done and writes one
// response line per request that carries an id.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	lines := make(chan []byte)
	scanErr := make(chan error, 1)
	done := make(chan struct{})
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(r)
		sc.Buffer(make([]byte, 64*1024), maxRPCLineBytes)
		for sc.Scan() {
			line := append([]byte(nil), sc.Bytes()...)
			select {
			case lines <- line:
			case <-done:
				return
			}
		}
		scanErr <- sc.Err()
	}()
	defer func() {
		close(done)
		if c, ok := r.(io.Closer); ok && ctx.Err() != nil {
			_ = c.Close()
		}
	}()

	enc := json.NewEncoder(w)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				if err := <-scanErr; err != nil && !errors.Is(err, io.EOF) {
					return fmt.Errorf("read rpc input: %w", err)
				}
				return nil
			}
			resp, reply := s.handleLine(line)
			if !reply {
				continue
			}
			if err := enc.Encode(resp); err != nil {
				return fmt.Errorf("write rpc response: %w", err)
			}
		}
	}
}

func (s *Server) handleLine(line []byte) (rpcResponse, bool) {
	if len(line) == 0 {
		return rpcResponse{}, false
	}
	var req rpcRequest
	if err := json.Unmarshal(line, &req); err != nil {
		return rpcResponse{JSONRPC: "2.0", Error: &rpcError{Code: -32700, Message: "parse error"}}, true
	}
	if req.JSONRPC != "2.0" || req.Method == "" {
		return invalidRequest(req.ID), true
	}
	if rpcErr := checkAPIVersion(req.APIVersion); rpcErr != nil {
		return rpcResponse{JSONRPC: "2.0", ID: req.ID, Error: rpcErr}, len(req.ID) > 0
	}

	started := time.Now()
	result, rpcErr := s.dispatchRPC(req.Method, req.Params)
	if rpcErr != nil {
		s.logger.Warn("rpc failed", "method", req.Method, "rpc_code", rpcErr.Code, "latency_ms", time.Since(started).Milliseconds())
	} else {
		s.logger.Debug("rpc response", "method", req.Method, "latency_ms", time.Since(started).Milliseconds())
	}
	// Requests without an id are notifications and get no response.
	if len(req.ID) == 0 {
		return rpcResponse{}, false
	}
	return rpcResponse{JSONRPC: "2.0", ID: req.ID, Result: result, Error: rpcErr}, true
}

func (s *Server) dispatchRPC(method string, rawParams json.RawMessage) (any, *rpcError) {
	if method == "health_check" {
		return map[string]string{"status": "ok"}, nil
	}
	if s.bridge == nil {
		return nil, &rpcError{Code: -32099, Message: "bridge is not initialized"}
	}
	if result, rpcErr, ok := s.dispatchKeyRPC(method, rawParams); ok {
		return result, rpcErr
	}
	if result, rpcErr, ok := s.dispatchSeedRPC(method, rawParams); ok {
		return result, rpcErr
	}
	if method == "rpc.version" {
		return newVersionInfo(s.bridge.Version()), nil
	}
	return nil, &rpcError{Code: -32601, Message: "method not found"}
}

func invalidRequest(id json.RawMessage) rpcResponse {
	return rpcResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &rpcError{Code: -32600, Message: "invalid request"},
	}
}
