package advisor

import (
	"context"
	"fmt"

	"github.com/clocksmith/benzo/internal/graph"
)

var _ graph.TaskSuggester = (*Suggester)(nil)

// Suggester drafts new tasks by consulting an advisor. The advisor's answer
// is only a go-ahead: the returned data is always graph.TaskTemplate(name).
type Suggester struct {
	adv Advisor
}

// NewSuggester returns a Suggester backed by adv.
func NewSuggester(adv Advisor) *Suggester {
	return &Suggester{adv: adv}
}

// TaskPrompt is the request sent when drafting a task.
func TaskPrompt(name string) string {
	return fmt.Sprintf("Create a JSON object for a new design task named %q. "+
		"Include title, description, potential solutions (at least 'manual_human'), "+
		"and initial estimates (1-7 scale) for time, pain, complexity, and human_in_loop_feedback_initial/refined.", name)
}

// SuggestTask consults the advisor and returns the task template for name.
func (s *Suggester) SuggestTask(ctx context.Context, name string) (graph.NodeData, error) {
	if _, err := s.adv.Advise(ctx, TaskPrompt(name)); err != nil {
		return graph.NodeData{}, fmt.Errorf("%w: %w", ErrDeliberationFailed, err)
	}
	return graph.TaskTemplate(name), nil
}
