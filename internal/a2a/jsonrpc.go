package a2a

import (
	"encoding/json"
	"fmt"
)

// JSONRPCVersion is the only protocol version accepted on the wire.
const JSONRPCVersion = "2.0"

// Methods the advisor agent answers.
const (
	MethodSendMessage = "message/send"
	MethodGetTask     = "tasks/get"
)

// JSON-RPC error codes. The -320xx range is reserved for A2A itself.
const (
	ErrCodeParse          = -32700
	ErrCodeInvalidRequest = -32600
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternal       = -32603

	ErrCodeTaskNotFound = -32001
)

// JSONRPCRequest is the envelope around a method call.
type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// JSONRPCResponse carries either Result or Error, never both.
type JSONRPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *JSONRPCError   `json:"error,omitempty"`
}

type JSONRPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// newRequest wraps params for method.
func newRequest(id any, method string, params any) (JSONRPCRequest, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return JSONRPCRequest{}, fmt.Errorf("a2a: marshal %s params: %w", method, err)
	}
	return JSONRPCRequest{JSONRPC: JSONRPCVersion, ID: id, Method: method, Params: raw}, nil
}

// resultResponse answers id with result, or with an internal error when
// result cannot be encoded.
func resultResponse(id any, result any) JSONRPCResponse {
	raw, err := json.Marshal(result)
	if err != nil {
		return errorResponse(id, ErrCodeInternal, "Failed to marshal result: "+err.Error())
	}
	return JSONRPCResponse{JSONRPC: JSONRPCVersion, ID: id, Result: raw}
}

func errorResponse(id any, code int, message string) JSONRPCResponse {
	return JSONRPCResponse{
		JSONRPC: JSONRPCVersion,
		ID:      id,
		Error:   &JSONRPCError{Code: code, Message: message},
	}
}

// decodeResult unpacks resp into out, turning an error member into *RPCError.
func (resp JSONRPCResponse) decodeResult(method string, out any) error {
	if e := resp.Error; e != nil {
		return &RPCError{Method: method, Code: e.Code, Message: e.Message, Data: e.Data}
	}
	if out == nil || resp.Result == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Result, out); err != nil {
		return fmt.Errorf("a2a: decode %s result: %w", method, err)
	}
	return nil
}

// RPCError is a JSON-RPC error returned by a remote agent. Transport
// failures are plain errors, never RPCError.
type RPCError struct {
	Method  string
	Code    int
	Message string
	Data    json.RawMessage
}

func (e *RPCError) Error() string {
	msg := fmt.Sprintf("a2a: %s: rpc error %d: %s", e.Method, e.Code, e.Message)
	if len(e.Data) > 0 {
		msg += " (data: " + string(e.Data) + ")"
	}
	return msg
}
