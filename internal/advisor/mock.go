package advisor

import (
	"context"
	"math/rand"
	"sync"

	"github.com/clocksmith/benzo/internal/graph"
)

// CannedDecisions are the answers Mock chooses from.
func CannedDecisions() []Decision {
	return []Decision{
		{Action: ActionProceed},
		{Action: ActionAddTask, SuggestedTask: "localize_text"},
		{
			Action:   ActionReevaluate,
			Feedback: "AI response was not helpful",
			UpdatedWeights: map[string]graph.WeightPatch{
				"task_xyz": {HumanFeedbackRefined: graph.Float(5)},
			},
		},
		{Action: ActionTriggerSubgraph, SubgraphGoal: "Explore localization options"},
	}
}

// Mock picks one of CannedDecisions at random. Safe for concurrent use.
type Mock struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewMock returns a Mock seeded with seed, so runs are reproducible.
func NewMock(seed int64) *Mock {
	return &Mock{rng: rand.New(rand.NewSource(seed))}
}

// Advise returns a random canned decision.
func (m *Mock) Advise(ctx context.Context, _ string) (Decision, error) {
	if err := ctx.Err(); err != nil {
		return Decision{}, err
	}
	canned := CannedDecisions()
	m.mu.Lock()
	i := m.rng.Intn(len(canned))
	m.mu.Unlock()
	return canned[i], nil
}

// FeedbackSource asks a human how an executed node went.
type FeedbackSource interface {
	RequestFeedback(ctx context.Context, node graph.Node) (graph.Feedback, error)
}

// CannedFeedback are the answers MockFeedback chooses from.
func CannedFeedback() []graph.Feedback {
	return []graph.Feedback{
		{Type: graph.FeedbackRating, Scale: graph.FieldHumanFeedbackRefined, Value: 4.0},
		{Type: graph.FeedbackBoolean, Question: "Was the task successful?", Value: true},
		{Type: graph.FeedbackText, Question: "Describe any issues encountered", Value: "Minor adjustments needed"},
	}
}

// MockFeedback answers with a random canned feedback. Safe for concurrent use.
type MockFeedback struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewMockFeedback returns a MockFeedback seeded with seed.
func NewMockFeedback(seed int64) *MockFeedback {
	return &MockFeedback{rng: rand.New(rand.NewSource(seed))}
}

// RequestFeedback returns a random canned feedback.
func (m *MockFeedback) RequestFeedback(ctx context.Context, _ graph.Node) (graph.Feedback, error) {
	if err := ctx.Err(); err != nil {
		return graph.Feedback{}, err
	}
	canned := CannedFeedback()
	m.mu.Lock()
	i := m.rng.Intn(len(canned))
	m.mu.Unlock()
	return canned[i], nil
}
