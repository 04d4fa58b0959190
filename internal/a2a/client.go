package a2a

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"
)

// Client sends advice requests to a remote agent.
type Client interface {
	// SendMessage posts a prompt and returns the agent's terminal task.
	SendMessage(ctx context.Context, endpoint string, req SendMessageRequest) (*Task, error)

	// GetTask fetches a task the agent answered earlier.
	GetTask(ctx context.Context, endpoint string, req GetTaskRequest) (*Task, error)

	// DiscoverAgent reads the agent card published under baseURL.
	DiscoverAgent(ctx context.Context, baseURL string) (*AgentCard, error)
}

var _ Client = (*HTTPClient)(nil)

// DefaultTimeout bounds one advice round trip, including the agent's thinking time.
const DefaultTimeout = 30 * time.Second

// agentCardPath is where an agent publishes its card.
const agentCardPath = "/.well-known/agent-card.json"

// HTTPClient speaks JSON-RPC 2.0 over HTTP POST. Safe for concurrent use.
type HTTPClient struct {
	http *http.Client
	seq  atomic.Int64
}

// ClientOption configures an HTTPClient.
type ClientOption func(*HTTPClient)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) { c.http.Timeout = d }
}

// WithHTTPClient swaps in a caller-owned *http.Client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *HTTPClient) { c.http = hc }
}

// NewHTTPClient returns a client with DefaultTimeout, adjusted by opts.
func NewHTTPClient(opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{http: &http.Client{Timeout: DefaultTimeout}}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SendMessage calls message/send. The advisor answers synchronously, so the
// returned task is already terminal.
func (c *HTTPClient) SendMessage(ctx context.Context, endpoint string, req SendMessageRequest) (*Task, error) {
	return callTask(ctx, c, endpoint, MethodSendMessage, req)
}

// GetTask calls tasks/get.
func (c *HTTPClient) GetTask(ctx context.Context, endpoint string, req GetTaskRequest) (*Task, error) {
	return callTask(ctx, c, endpoint, MethodGetTask, req)
}

func callTask(ctx context.Context, c *HTTPClient, endpoint, method string, params any) (*Task, error) {
	var task Task
	if err := c.call(ctx, endpoint, method, params, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// DiscoverAgent fetches the agent card. A trailing slash on baseURL is ignored.
func (c *HTTPClient) DiscoverAgent(ctx context.Context, baseURL string) (*AgentCard, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(baseURL, "/")+agentCardPath, nil)
	if err != nil {
		return nil, fmt.Errorf("a2a: create request: %w", err)
	}
	body, err := c.do(req, "discover agent")
	if err != nil {
		return nil, err
	}
	var card AgentCard
	if err := json.Unmarshal(body, &card); err != nil {
		return nil, fmt.Errorf("a2a: decode agent card: %w", err)
	}
	return &card, nil
}

// call posts one JSON-RPC request and decodes its result into out.
func (c *HTTPClient) call(ctx context.Context, endpoint, method string, params, out any) error {
	rpcReq, err := newRequest(c.seq.Add(1), method, params)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(rpcReq)
	if err != nil {
		return fmt.Errorf("a2a: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("a2a: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	body, err := c.do(req, method)
	if err != nil {
		return err
	}
	var resp JSONRPCResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("a2a: decode %s response: %w", method, err)
	}
	return resp.decodeResult(method, out)
}

// do sends req and returns the body of a 200 response. Any other status is
// reported with the body text so agent-side failures stay readable.
func (c *HTTPClient) do(req *http.Request, op string) ([]byte, error) {
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("a2a: %s: %w", op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("a2a: %s: read body: %w", op, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("a2a: %s: HTTP %d: %s", op, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}
