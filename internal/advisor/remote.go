package advisor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/clocksmith/benzo/internal/a2a"
)

// DefaultPollInterval spaces tasks/get calls while an agent is still working.
const DefaultPollInterval = 250 * time.Millisecond

// Remote asks an A2A agent for decisions. The prompt travels as a text part
// of a message/send request; the decision is read from the first artifact.
type Remote struct {
	client   a2a.Client
	endpoint string
	poll     time.Duration
}

// NewRemote returns a Remote that posts to endpoint through client.
func NewRemote(client a2a.Client, endpoint string) *Remote {
	return &Remote{client: client, endpoint: endpoint, poll: DefaultPollInterval}
}

// WithPollInterval sets how often a pending task is re-fetched.
func (r *Remote) WithPollInterval(d time.Duration) *Remote {
	if d > 0 {
		r.poll = d
	}
	return r
}

// ResolveEndpoint reads the agent card under baseURL and returns the first
// JSON-RPC interface it declares, or baseURL when it declares none.
func ResolveEndpoint(ctx context.Context, client a2a.Client, baseURL string) (string, *a2a.AgentCard, error) {
	card, err := client.DiscoverAgent(ctx, baseURL)
	if err != nil {
		return baseURL, nil, err
	}
	for _, iface := range card.Interfaces {
		if iface.URL != "" && strings.EqualFold(iface.ProtocolBinding, "JSONRPC") {
			return iface.URL, card, nil
		}
	}
	return baseURL, card, nil
}

// Advise sends prompt to the agent and decodes its decision.
func (r *Remote) Advise(ctx context.Context, prompt string) (Decision, error) {
	task, err := r.client.SendMessage(ctx, r.endpoint, a2a.SendMessageRequest{
		Message: a2a.NewMessage(a2a.RoleUser, a2a.TextPart(prompt)),
	})
	if err != nil {
		return Decision{}, err
	}
	for pending(task.Status.State) {
		select {
		case <-ctx.Done():
			return Decision{}, ctx.Err()
		case <-time.After(r.poll):
		}
		task, err = r.client.GetTask(ctx, r.endpoint, a2a.GetTaskRequest{ID: task.ID})
		if err != nil {
			return Decision{}, err
		}
	}
	if task.Status.State == a2a.TaskStateFailed || task.Status.State == a2a.TaskStateRejected {
		reason := string(task.Status.State)
		if task.Status.Message != nil {
			reason = task.Status.Message.Text()
		}
		return Decision{}, fmt.Errorf("advisor task %s: %s", task.ID, reason)
	}
	return DecisionFromTask(task)
}

func pending(s a2a.TaskState) bool {
	return s == a2a.TaskStateSubmitted || s == a2a.TaskStateWorking
}

// DecisionFromTask decodes the decision carried by the first part of the
// first artifact, as JSON data or as JSON text.
func DecisionFromTask(task *a2a.Task) (Decision, error) {
	if len(task.Artifacts) == 0 || len(task.Artifacts[0].Parts) == 0 {
		return Decision{}, errors.New("advisor task has no decision artifact")
	}
	part := task.Artifacts[0].Parts[0]
	raw := []byte(part.Data)
	if len(raw) == 0 {
		raw = []byte(strings.TrimSpace(part.Text))
	}
	var d Decision
	if err := json.Unmarshal(raw, &d); err != nil {
		return Decision{}, fmt.Errorf("decode decision: %w", err)
	}
	return d, nil
}
