// Package server exposes the JSON-RPC 2.0 dispatch endpoint and the
// live task-log websocket stream spec.md §6 defines as the system's
// only external contract.
package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/sneakpeek-dev/sneakpeek-go/pkg/logger"
	"github.com/sneakpeek-dev/sneakpeek-go/pkg/model"
)

var log = logger.Component("server")

type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
	ID      json.RawMessage `json:"id"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  interface{}     `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
	ID      json.RawMessage `json:"id"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeInternalError  = -32603
	// codeAppError is the base for taxonomy-tagged application errors,
	// distinguished by rpcError.Message carrying the model.Kind.
	codeAppError = -32000
)

// methodFunc decodes params, runs the method, and returns a
// JSON-marshalable result or a model.Error.
type methodFunc func(ctx context.Context, params json.RawMessage) (interface{}, error)

// Server is the JSON-RPC 2.0 dispatcher: one HTTP POST endpoint
// fanning out to a fixed method table built at construction time.
type Server struct {
	methods map[string]methodFunc
}

func New() *Server {
	return &Server{methods: make(map[string]methodFunc)}
}

func (s *Server) register(name string, fn methodFunc) {
	s.methods[name] = fn
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeResponse(w, rpcResponse{JSONRPC: "2.0", Error: &rpcError{Code: codeParseError, Message: "parse error"}})
		return
	}
	if req.JSONRPC != "2.0" || req.Method == "" {
		writeResponse(w, rpcResponse{JSONRPC: "2.0", ID: req.ID, Error: &rpcError{Code: codeInvalidRequest, Message: "invalid request"}})
		return
	}

	fn, ok := s.methods[req.Method]
	if !ok {
		writeResponse(w, rpcResponse{JSONRPC: "2.0", ID: req.ID, Error: &rpcError{Code: codeMethodNotFound, Message: "method not found"}})
		return
	}

	result, err := fn(r.Context(), req.Params)
	if err != nil {
		writeResponse(w, rpcResponse{JSONRPC: "2.0", ID: req.ID, Error: toRPCError(err)})
		return
	}
	writeResponse(w, rpcResponse{JSONRPC: "2.0", ID: req.ID, Result: result})
}

func writeResponse(w http.ResponseWriter, resp rpcResponse) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Warn().Err(err).Msg("failed to encode rpc response")
	}
}

func toRPCError(err error) *rpcError {
	kind := model.KindOf(err)
	if kind == "" {
		return &rpcError{Code: codeInternalError, Message: err.Error()}
	}
	return &rpcError{Code: codeForKind(kind), Message: string(kind) + ": " + err.Error()}
}

func codeForKind(kind model.Kind) int {
	switch kind {
	case model.KindValidationError:
		return codeInvalidParams
	default:
		return codeAppError
	}
}

func decodeParams(raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return model.NewError(model.KindValidationError, "invalid params", err)
	}
	return nil
}
