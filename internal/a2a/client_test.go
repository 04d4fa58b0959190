package a2a

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rpcHandler decodes a JSONRPCRequest and writes back whatever fn returns.
func rpcHandler(t *testing.T, fn func(req JSONRPCRequest) JSONRPCResponse) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req JSONRPCRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, JSONRPCVersion, req.JSONRPC)

		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(fn(req)))
	}
}

func resultOf(t *testing.T, id any, v any) JSONRPCResponse {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return JSONRPCResponse{JSONRPC: JSONRPCVersion, ID: id, Result: b}
}

func TestSendMessage_HappyPath(t *testing.T) {
	ts := httptest.NewServer(rpcHandler(t, func(req JSONRPCRequest) JSONRPCResponse {
		assert.Equal(t, MethodSendMessage, req.Method)

		var params SendMessageRequest
		require.NoError(t, json.Unmarshal(req.Params, &params))
		assert.Equal(t, "Current task: Identify Font", params.Message.Text())

		decision, err := DataPart(map[string]string{"action": "proceed"})
		require.NoError(t, err)
		return resultOf(t, req.ID, Task{
			ID:     "task-001",
			Status: TaskStatus{State: TaskStateCompleted, Timestamp: time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)},
			Artifacts: []Artifact{
				{ArtifactID: "art-1", Name: "decision", Parts: []Part{decision}},
			},
		})
	}))
	defer ts.Close()

	client := NewHTTPClient()
	task, err := client.SendMessage(context.Background(), ts.URL, SendMessageRequest{
		Message: NewMessage(RoleUser, TextPart("Current task: Identify Font")),
	})

	require.NoError(t, err)
	assert.Equal(t, "task-001", task.ID)
	assert.True(t, task.Status.State.IsTerminal())
	require.Len(t, task.Artifacts, 1)
	assert.JSONEq(t, `{"action":"proceed"}`, string(task.Artifacts[0].Parts[0].Data))
}

func TestSendMessage_RPCError(t *testing.T) {
	ts := httptest.NewServer(rpcHandler(t, func(req JSONRPCRequest) JSONRPCResponse {
		return JSONRPCResponse{
			JSONRPC: JSONRPCVersion,
			ID:      req.ID,
			Error: &JSONRPCError{
				Code:    ErrCodeInvalidParams,
				Message: "missing prompt",
				Data:    json.RawMessage(`{"field":"message"}`),
			},
		}
	}))
	defer ts.Close()

	task, err := NewHTTPClient().SendMessage(context.Background(), ts.URL, SendMessageRequest{})

	require.Error(t, err)
	assert.Nil(t, task)
	var rpcErr *RPCError
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, MethodSendMessage, rpcErr.Method)
	assert.Equal(t, ErrCodeInvalidParams, rpcErr.Code)
	assert.Contains(t, rpcErr.Error(), `{"field":"message"}`)
}

func TestSendMessage_IncrementsRequestID(t *testing.T) {
	var (
		mu  sync.Mutex
		ids []float64
	)
	ts := httptest.NewServer(rpcHandler(t, func(req JSONRPCRequest) JSONRPCResponse {
		mu.Lock()
		ids = append(ids, req.ID.(float64))
		mu.Unlock()
		return resultOf(t, req.ID, Task{ID: "t"})
	}))
	defer ts.Close()

	client := NewHTTPClient()
	for i := 0; i < 2; i++ {
		_, err := client.SendMessage(context.Background(), ts.URL, SendMessageRequest{})
		require.NoError(t, err)
	}
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []float64{1, 2}, ids)
}

func TestGetTask(t *testing.T) {
	ts := httptest.NewServer(rpcHandler(t, func(req JSONRPCRequest) JSONRPCResponse {
		assert.Equal(t, MethodGetTask, req.Method)
		var params GetTaskRequest
		require.NoError(t, json.Unmarshal(req.Params, &params))
		return resultOf(t, req.ID, Task{ID: params.ID, Status: TaskStatus{State: TaskStateCompleted}})
	}))
	defer ts.Close()

	task, err := NewHTTPClient().GetTask(context.Background(), ts.URL, GetTaskRequest{ID: "task-42"})
	require.NoError(t, err)
	assert.Equal(t, "task-42", task.ID)
}

func TestContextTimeout(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	task, err := NewHTTPClient().SendMessage(ctx, ts.URL, SendMessageRequest{})
	require.Error(t, err)
	assert.Nil(t, task)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNon200HTTPStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	}))
	defer ts.Close()

	_, err := NewHTTPClient().SendMessage(context.Background(), ts.URL, SendMessageRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 502")
	var rpcErr *RPCError
	assert.False(t, errors.As(err, &rpcErr), "transport failures are not RPC errors")
}

func TestDiscoverAgent_TrailingSlash(t *testing.T) {
	card := AgentCard{Name: "advisor", Version: "1.0.0", Skills: []AgentSkill{{ID: "advise", Name: "Advise"}}}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/.well-known/agent-card.json", r.URL.Path)
		require.NoError(t, json.NewEncoder(w).Encode(card))
	}))
	defer ts.Close()

	got, err := NewHTTPClient().DiscoverAgent(context.Background(), ts.URL+"/")
	require.NoError(t, err)
	assert.Equal(t, card, *got)
}

func TestWithTimeout_Option(t *testing.T) {
	c := NewHTTPClient(WithTimeout(5 * time.Second))
	assert.Equal(t, 5*time.Second, c.http.Timeout)

	hc := &http.Client{}
	c = NewHTTPClient(WithHTTPClient(hc))
	assert.Same(t, hc, c.http)
}
