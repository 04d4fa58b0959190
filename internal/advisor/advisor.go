// Package advisor provides the decision-making collaborators consulted while
// walking a task graph: an LLM-style advisor that picks the next action and a
// human feedback source. Real backends are reached over A2A; the mocks
// reproduce the canned behavior used for demos and tests.
package advisor

import (
	"context"
	"errors"
	"fmt"

	"github.com/clocksmith/benzo/internal/graph"
)

// ErrDeliberationFailed marks a failed or malformed advisor consultation.
// Callers fall back to ActionProceed.
var ErrDeliberationFailed = errors.New("deliberation failed")

// Action is what the advisor wants done at the current node.
type Action string

const (
	ActionProceed         Action = "proceed"
	ActionAddTask         Action = "add_task"
	ActionReevaluate      Action = "re-evaluate"
	ActionTriggerSubgraph Action = "trigger_subgraph"
)

// Valid reports whether a is one of the known actions.
func (a Action) Valid() bool {
	switch a {
	case ActionProceed, ActionAddTask, ActionReevaluate, ActionTriggerSubgraph:
		return true
	}
	return false
}

// Decision is an advisor's answer to a prompt.
type Decision struct {
	Action         Action                       `json:"action"`
	SuggestedTask  string                       `json:"suggestedTask,omitempty"`
	Feedback       string                       `json:"feedback,omitempty"`
	UpdatedWeights map[string]graph.WeightPatch `json:"updatedWeights,omitempty"`
	SubgraphGoal   string                       `json:"subgraphGoal,omitempty"`
}

// Advisor answers a prompt with a Decision. Implementations must honor ctx.
type Advisor interface {
	Advise(ctx context.Context, prompt string) (Decision, error)
}

// Func adapts a function to Advisor.
type Func func(ctx context.Context, prompt string) (Decision, error)

// Advise calls f.
func (f Func) Advise(ctx context.Context, prompt string) (Decision, error) {
	return f(ctx, prompt)
}

// Persona is a point of view an advisor is asked to adopt during deliberation.
type Persona struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
}

// DefaultPersonas are consulted when a node calls for deliberation.
var DefaultPersonas = []Persona{
	{Name: "EfficiencyExpert", Description: "Focuses on minimizing time and effort."},
	{Name: "QualityAdvocate", Description: "Prioritizes design quality."},
}

// Prompt prefixes prompt with the persona's name and role.
func (p Persona) Prompt(prompt string) string {
	return fmt.Sprintf("Persona: %s\nRole: %s\n\n%s", p.Name, p.Description, prompt)
}
