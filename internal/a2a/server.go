package a2a

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

// Handler answers incoming messages for an agent.
type Handler interface {
	// HandleSendMessage processes an incoming message and returns a terminal task.
	HandleSendMessage(ctx context.Context, req SendMessageRequest) (*Task, error)
}

// Server exposes a Handler over HTTP. Answered tasks are retained in a
// TaskStore and served back through tasks/get.
type Server struct {
	card    AgentCard
	handler Handler
	tasks   *TaskStore
	http    *http.Server
}

// NewServer creates a server for the given agent.
func NewServer(card AgentCard, handler Handler) *Server {
	return &Server{
		card:    card,
		handler: handler,
		tasks:   NewTaskStore(0),
	}
}

// Handler returns the routing mux, for mounting or httptest.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /.well-known/agent-card.json", s.handleAgentCard)
	mux.HandleFunc("POST /", s.handleJSONRPC)
	return mux
}

// Start binds addr and serves in a background goroutine. It returns the bound
// address, which differs from addr when addr uses port 0.
func (s *Server) Start(ctx context.Context, addr string) (string, error) {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return "", fmt.Errorf("a2a: listen %s: %w", addr, err)
	}
	s.http = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go s.http.Serve(ln)
	return ln.Addr().String(), nil
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

// handleAgentCard serves the agent card as JSON at the well-known endpoint.
func (s *Server) handleAgentCard(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(s.card); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// handleJSONRPC decodes a JSON-RPC 2.0 request and dispatches it by method.
func (s *Server) handleJSONRPC(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var req JSONRPCRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONRPCError(w, nil, ErrCodeParse, "Parse error: "+err.Error())
		return
	}
	if req.JSONRPC != JSONRPCVersion {
		writeJSONRPCError(w, req.ID, ErrCodeInvalidRequest, "Invalid request: jsonrpc must be \"2.0\"")
		return
	}

	switch req.Method {
	case MethodSendMessage:
		s.dispatchSendMessage(r.Context(), w, &req)
	case MethodGetTask:
		s.dispatchGetTask(w, &req)
	default:
		writeJSONRPCError(w, req.ID, ErrCodeMethodNotFound, fmt.Sprintf("Method not found: %s", req.Method))
	}
}

// dispatchSendMessage unmarshals params, calls HandleSendMessage and retains the task.
func (s *Server) dispatchSendMessage(ctx context.Context, w http.ResponseWriter, req *JSONRPCRequest) {
	var params SendMessageRequest
	if err := json.Unmarshal(req.Params, &params); err != nil {
		writeJSONRPCError(w, req.ID, ErrCodeInvalidParams, "Invalid params: "+err.Error())
		return
	}

	task, err := s.handler.HandleSendMessage(ctx, params)
	if err != nil {
		writeJSONRPCError(w, req.ID, ErrCodeInternal, err.Error())
		return
	}
	if task.ID == "" {
		task.ID = NewTaskID()
	}
	s.tasks.Put(*task)

	writeJSONRPCResult(w, req.ID, task)
}

// dispatchGetTask serves a retained task.
func (s *Server) dispatchGetTask(w http.ResponseWriter, req *JSONRPCRequest) {
	var params GetTaskRequest
	if err := json.Unmarshal(req.Params, &params); err != nil {
		writeJSONRPCError(w, req.ID, ErrCodeInvalidParams, "Invalid params: "+err.Error())
		return
	}

	task, err := s.tasks.Get(params.ID)
	if errors.Is(err, ErrTaskNotFound) {
		writeJSONRPCError(w, req.ID, ErrCodeTaskNotFound, err.Error())
		return
	}
	if err != nil {
		writeJSONRPCError(w, req.ID, ErrCodeInternal, err.Error())
		return
	}

	writeJSONRPCResult(w, req.ID, task)
}

func writeJSONRPCResult(w http.ResponseWriter, id any, result any) {
	json.NewEncoder(w).Encode(resultResponse(id, result))
}

func writeJSONRPCError(w http.ResponseWriter, id any, code int, message string) {
	json.NewEncoder(w).Encode(errorResponse(id, code, message))
}
