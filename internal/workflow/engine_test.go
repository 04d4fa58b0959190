package workflow

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/clocksmith/benzo/internal/advisor"
	"github.com/clocksmith/benzo/internal/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type feedbackFunc func(ctx context.Context, n graph.Node) (graph.Feedback, error)

func (f feedbackFunc) RequestFeedback(ctx context.Context, n graph.Node) (graph.Feedback, error) {
	return f(ctx, n)
}

func decide(d advisor.Decision) advisor.Func {
	return func(context.Context, string) (advisor.Decision, error) { return d, nil }
}

func designTask() graph.NodeData {
	return graph.NodeData{
		Title:       "Design",
		Description: "Sketch the screens",
		PotentialSolutions: map[string]graph.NodeData{
			"manual_human": {Name: "Manual", Description: "By hand", TimeEstimate: graph.Float(1), PainLevel: graph.Float(2), Complexity: graph.Float(3), HumanFeedbackRefined: graph.Float(1)},
			"ai_assist":    {Name: "AI", Description: "With a model", TimeEstimate: graph.Float(2)},
		},
	}
}

func TestSelectAction_ProceedExpandsSolutions(t *testing.T) {
	s := graph.NewStore()
	s.AddNode("t", designTask(), graph.KindTask)
	e := New(s, decide(advisor.Decision{Action: advisor.ActionProceed}))

	sel, err := e.SelectAction(context.Background(), "t")
	require.NoError(t, err)
	assert.NoError(t, sel.Err)
	assert.False(t, sel.Deliberated)
	assert.Equal(t, "t_ai_assist", sel.Next)

	n, ok := s.Node("t_manual_human")
	require.True(t, ok)
	assert.Equal(t, graph.KindSolution, n.Kind)
	edge, ok := s.Edge("t", "t_manual_human")
	require.True(t, ok)
	assert.Equal(t, graph.EdgeSolutionSelection, edge.Type)
}

func TestSelectAction_ProceedFromNonTaskFollowsFirstEdge(t *testing.T) {
	s := graph.NewStore()
	s.AddNode("start", graph.NodeData{}, graph.KindStart)
	s.AddNode("t", designTask(), graph.KindTask)
	s.AddEdge("start", "t")
	e := New(s, decide(advisor.Decision{Action: advisor.ActionProceed}))

	sel, err := e.SelectAction(context.Background(), "start")
	require.NoError(t, err)
	assert.Equal(t, "t", sel.Next)
	assert.Equal(t, 2, s.Len())
}

func TestSelectAction_ProceedSkipsRemovedTargets(t *testing.T) {
	s := graph.NewStore()
	s.AddNode("start", graph.NodeData{}, graph.KindStart)
	s.AddNode("gone", graph.NodeData{}, graph.KindTask)
	s.AddNode("next", graph.NodeData{}, graph.KindTask)
	s.AddEdge("start", "gone")
	s.AddEdge("start", "next")
	require.True(t, s.RemoveNodeByID("gone"))
	e := New(s, decide(advisor.Decision{Action: advisor.ActionProceed}))

	sel, err := e.SelectAction(context.Background(), "start")
	require.NoError(t, err)
	assert.Equal(t, "next", sel.Next)

	require.True(t, s.RemoveNodeByID("next"))
	sel, err = e.SelectAction(context.Background(), "start")
	require.NoError(t, err)
	assert.Empty(t, sel.Next)
}

func TestSelectAction_DeliberatesOnComplexNodes(t *testing.T) {
	var calls atomic.Int32
	adv := advisor.Func(func(_ context.Context, prompt string) (advisor.Decision, error) {
		calls.Add(1)
		assert.True(t, strings.HasPrefix(prompt, "Persona: "))
		return advisor.Decision{Action: advisor.ActionProceed}, nil
	})
	s := graph.NewStore()
	s.AddNode("hard", graph.NodeData{Title: "Hard", Complexity: graph.Float(6)}, graph.KindTask)
	s.AddNode("pick", graph.NodeData{Title: "Pick"}, graph.KindDecision)
	e := New(s, adv)

	sel, err := e.SelectAction(context.Background(), "hard")
	require.NoError(t, err)
	assert.True(t, sel.Deliberated)
	assert.Equal(t, int32(2), calls.Load())

	sel, err = e.SelectAction(context.Background(), "pick")
	require.NoError(t, err)
	assert.True(t, sel.Deliberated)
	assert.Equal(t, int32(4), calls.Load())
}

func TestSelectAction_AdvisorFailureProceeds(t *testing.T) {
	s := graph.NewStore()
	s.AddNode("t", designTask(), graph.KindTask)
	e := New(s, advisor.Func(func(context.Context, string) (advisor.Decision, error) {
		return advisor.Decision{}, errors.New("offline")
	}))

	sel, err := e.SelectAction(context.Background(), "t")
	require.NoError(t, err)
	assert.ErrorIs(t, sel.Err, advisor.ErrDeliberationFailed)
	assert.Equal(t, advisor.ActionProceed, sel.Decision.Action)
	assert.Equal(t, "t_ai_assist", sel.Next)
}

func TestSelectAction_AddTask(t *testing.T) {
	s := graph.NewStore()
	s.AddNode("t", designTask(), graph.KindTask)
	e := New(s, decide(advisor.Decision{Action: advisor.ActionAddTask, SuggestedTask: "localize_text"}))

	sel, err := e.SelectAction(context.Background(), "t")
	require.NoError(t, err)
	assert.Equal(t, "localize_text", sel.Next)

	edge, ok := s.Edge("t", "localize_text")
	require.True(t, ok)
	assert.Equal(t, graph.EdgeLLMSuggested, edge.Type)
	assert.True(t, s.Has("localize_text_manual_human"))
}

func TestSelectAction_Reevaluate(t *testing.T) {
	s := graph.NewStore()
	s.AddNode("start", graph.NodeData{}, graph.KindStart)
	s.AddNode("a", graph.NodeData{Title: "A"}, graph.KindTask)
	s.AddNode("end", graph.NodeData{}, graph.KindEnd)
	s.AddEdge("start", "a")
	s.AddEdge("a", "end")
	e := New(s, decide(advisor.Decision{
		Action:   advisor.ActionReevaluate,
		Feedback: "too slow",
		UpdatedWeights: map[string]graph.WeightPatch{
			"a":       {HumanFeedbackRefined: graph.Float(5)},
			"missing": {HumanFeedbackRefined: graph.Float(2)},
		},
	}))

	sel, err := e.SelectAction(context.Background(), "start")
	require.NoError(t, err)
	assert.Equal(t, "a", sel.Next)
	n, _ := s.Node("a")
	assert.Equal(t, 5.0, *n.Data.HumanFeedbackRefined)
}

func TestSelectAction_TriggerSubgraph(t *testing.T) {
	s := graph.NewStore()
	s.AddNode("t", designTask(), graph.KindTask)
	e := New(s, decide(advisor.Decision{Action: advisor.ActionTriggerSubgraph, SubgraphGoal: "explore"}))

	sel, err := e.SelectAction(context.Background(), "t")
	require.NoError(t, err)
	assert.Empty(t, sel.Next)
	require.NotNil(t, sel.Subgraph)
	assert.Equal(t, "explore", sel.Subgraph.Goal)
	assert.True(t, sel.Subgraph.Store.Has(graph.SubStartID))
}

func TestSelectAction_MissingNode(t *testing.T) {
	e := New(graph.NewStore(), decide(advisor.Decision{Action: advisor.ActionProceed}))
	_, err := e.SelectAction(context.Background(), "ghost")
	assert.ErrorIs(t, err, graph.ErrNodeNotFound)
}

func TestPrompt(t *testing.T) {
	n := graph.Node{ID: "t", Data: designTask()}
	p := Prompt(n)
	assert.True(t, strings.HasPrefix(p, "Current task: Design\nDescription: Sketch the screens\nAvailable solutions:\n"))
	assert.Contains(t, p, "ai_assist: With a model (Time: 2, Pain: unknown, Complexity: unknown, Human: unknown)\n")
	assert.Contains(t, p, "manual_human: By hand (Time: 1, Pain: 2, Complexity: 3, Human: 1)")
	assert.True(t, strings.HasSuffix(p, "Choose the best solution or suggest a new task:"))
}

func TestExecuteWorkflow_ExecutesSolutionAndAppliesFeedback(t *testing.T) {
	s := graph.NewStore()
	data := designTask()
	delete(data.PotentialSolutions, "ai_assist")
	s.AddNode("t", data, graph.KindTask)
	s.AddNode("end", graph.NodeData{}, graph.KindEnd)

	var asked string
	fb := feedbackFunc(func(_ context.Context, n graph.Node) (graph.Feedback, error) {
		asked = n.ID
		return graph.Feedback{Type: graph.FeedbackRating, Scale: graph.FieldHumanFeedbackRefined, Value: 4.0}, nil
	})
	e := New(s, decide(advisor.Decision{Action: advisor.ActionProceed}), WithFeedback(fb), WithExecUnit(time.Millisecond))

	next, err := e.ExecuteWorkflow(context.Background(), "t", "end")
	require.NoError(t, err)
	assert.Empty(t, next)
	assert.Equal(t, "t_manual_human", asked)

	n, _ := s.Node("t_manual_human")
	assert.Equal(t, 4.0, *n.Data.HumanFeedbackRefined)
}

func TestExecuteWorkflow_CancelledDuringExecution(t *testing.T) {
	s := graph.NewStore()
	s.AddNode("t", designTask(), graph.KindTask)
	e := New(s, decide(advisor.Decision{Action: advisor.ActionProceed}), WithExecUnit(time.Hour))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := e.ExecuteWorkflow(ctx, "t", "end")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRun_WalksToEnd(t *testing.T) {
	s := graph.NewStore()
	s.AddNode("start", graph.NodeData{}, graph.KindStart)
	s.AddNode("a", graph.NodeData{Title: "A"}, graph.KindTask)
	s.AddNode("end", graph.NodeData{}, graph.KindEnd)
	s.AddEdge("start", "a")
	s.AddEdge("a", "end")
	e := New(s, decide(advisor.Decision{Action: advisor.ActionProceed}))

	visited, err := e.Run(context.Background(), "start", "end", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"start", "a", "end"}, visited)
}
