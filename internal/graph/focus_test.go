package graph

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopyMoveToFocus_DeepCopy(t *testing.T) {
	s, rec := newTestStore(t)
	s.AddNode("x", NodeData{Title: "X", Complexity: Float(2), Extra: map[string]any{"owner": "me"}}, KindTask)
	s.AddNode("y", NodeData{Title: "Y"}, KindSolution)
	s.SelectPath([]string{"x", "y"})
	rec.Clear()

	s.CopyMoveToFocus()

	assert.Equal(t, []string{"focus_x", "focus_y"}, s.FocusArea())
	fy, ok := s.Node("focus_y")
	require.True(t, ok)
	assert.Equal(t, KindSolution, fy.Kind)

	// Mutating the copy through the store must not reach the source node.
	s.UpdateWeights(map[string]WeightPatch{"focus_x": {HumanFeedbackRefined: Float(7)}})
	require.NoError(t, s.ApplyFeedback("focus_x", Feedback{Type: FeedbackRating, Scale: FieldComplexity, Value: 9.0}))
	x, _ := s.Node("x")
	fx, _ := s.Node("focus_x")
	assert.Equal(t, 2.0, *x.Data.Complexity)
	assert.Nil(t, x.Data.HumanFeedbackRefined)
	assert.Equal(t, 9.0, *fx.Data.Complexity)
	assert.Equal(t, "me", fx.Data.Extra["owner"])

	assert.Equal(t, []EventName{EventAddNode, EventAddNode, EventCopyMoveToFocus}, rec.Names())
	assert.Equal(t, NodeIDsParams{NodeIDs: []string{"focus_x", "focus_y"}}, rec.Events()[2].Params)
}

func TestCopyMoveToFocus_EmptySelection(t *testing.T) {
	s, rec := newTestStore(t)
	s.AddNode("x", NodeData{}, KindTask)
	rec.Clear()

	s.CopyMoveToFocus()

	assert.Empty(t, s.FocusArea())
	assert.Empty(t, rec.Events())
}

func TestStraightenAndCompressPath_Signals(t *testing.T) {
	s, rec := newTestStore(t)
	for _, id := range []string{"a", "b", "c"} {
		s.AddNode(id, NodeData{}, KindTask)
	}
	s.StraightenPath()
	s.CompressPath()
	assert.Len(t, rec.Events(), 3, "no focus yet, so only the add_node events")

	s.SelectPath([]string{"a", "b", "c"})
	s.CopyMoveToFocus()
	rec.Clear()
	before := s.Len()

	s.StraightenPath()
	s.CompressPath()

	assert.Equal(t, before, s.Len())
	events := rec.Events()
	require.Len(t, events, 2)
	assert.Equal(t, NodeIDsParams{NodeIDs: []string{"focus_a", "focus_b", "focus_c"}}, events[0].Params)
	assert.Equal(t, CompressPathParams{
		StartNodeID:       "focus_a",
		EndNodeID:         "focus_c",
		IntermediateNodes: []string{"focus_b"},
	}, events[1].Params)
}

func TestCompressPath_SingleFocusNode(t *testing.T) {
	s, rec := newTestStore(t)
	s.AddNode("a", NodeData{}, KindTask)
	s.SelectPath([]string{"a"})
	s.CopyMoveToFocus()
	rec.Clear()

	s.CompressPath()
	assert.Empty(t, rec.Events())
}

// focusedLine builds node-0..node-3 with unit weights and focuses all of them.
func focusedLine(t *testing.T) (*Store, *Recorder) {
	t.Helper()
	rec := &Recorder{}
	s := lineGraph(t, 4, WithSink(rec))
	for i, id := range s.NodeIDs() {
		n, _ := s.Node(id)
		n.Data.Title = []string{"Zero", "One", "Two", "Three"}[i]
		s.AddNode(id, n.Data, n.Kind)
	}
	for i := 0; i < 3; i++ {
		s.AddEdge(s.NodeIDs()[i], s.NodeIDs()[i+1], WithWeight(1))
	}
	s.SelectPath(s.NodeIDs())
	s.CopyMoveToFocus()
	rec.Clear()
	return s, rec
}

func TestAddCompressedPathToGraph(t *testing.T) {
	s, rec := focusedLine(t)

	res, err := s.AddCompressedPathToGraph(context.Background(), CompressOptions{})
	require.NoError(t, err)
	require.NotNil(t, res)

	assert.Equal(t, "node-0", res.StartNodeID)
	assert.Equal(t, "node-3", res.EndNodeID)
	assert.Equal(t, "compressed_zero_to_three", res.CompressedNodeID)
	assert.Equal(t, 3.0, res.CompressedWeight)

	in, ok := s.Edge("node-0", res.CompressedNodeID)
	require.True(t, ok)
	assert.Equal(t, 3.0, in.Weight)
	assert.Equal(t, EdgeCompressed, in.Type)

	out, ok := s.Edge(res.CompressedNodeID, "node-3")
	require.True(t, ok)
	assert.Equal(t, 0.0, out.Weight)
	assert.Equal(t, EdgeCompressed, out.Type)

	task, _ := s.Node(res.CompressedNodeID)
	assert.Equal(t, "Compressed_Zero_to_Three", task.Data.Title)
	assert.Equal(t, "LLM-suggested task: Compressed_Zero_to_Three", task.Data.Description)
	assert.True(t, s.Has(res.CompressedNodeID+"_manual_human"))

	events := rec.Events()
	last := events[len(events)-1]
	assert.Equal(t, EventAddCompressedPathToGraph, last.Name)
	assert.Equal(t, CompressedPathParams(*res), last.Params)
}

func TestAddCompressedPathToGraph_ExplicitEndpoints(t *testing.T) {
	s, _ := focusedLine(t)

	res, err := s.AddCompressedPathToGraph(context.Background(), CompressOptions{StartNodeID: "node-1", EndNodeID: "node-3"})
	require.NoError(t, err)
	assert.Equal(t, "compressed_one_to_three", res.CompressedNodeID)
	assert.Equal(t, 2.0, res.CompressedWeight)
}

func TestAddCompressedPathToGraph_UniqueIDs(t *testing.T) {
	s, _ := focusedLine(t)
	ctx := context.Background()

	first, err := s.AddCompressedPathToGraph(ctx, CompressOptions{})
	require.NoError(t, err)
	second, err := s.AddCompressedPathToGraph(ctx, CompressOptions{})
	require.NoError(t, err)

	assert.Equal(t, first.CompressedNodeID+"_1", second.CompressedNodeID)
}

func TestAddCompressedPathToGraph_NoPathAborts(t *testing.T) {
	s, rec := newTestStore(t)
	s.AddNode("a", NodeData{}, KindTask)
	s.AddNode("b", NodeData{}, KindTask)
	s.SelectPath([]string{"a", "b"})
	s.CopyMoveToFocus()
	rec.Clear()
	before := s.Len()

	res, err := s.AddCompressedPathToGraph(context.Background(), CompressOptions{})

	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrNoPath)
	assert.Equal(t, before, s.Len())
	assert.Empty(t, rec.Events())
}

func TestAddCompressedPathToGraph_MissingEndpoint(t *testing.T) {
	s, _ := focusedLine(t)
	s.RemoveNodeByID("node-3")

	res, err := s.AddCompressedPathToGraph(context.Background(), CompressOptions{})
	assert.NoError(t, err)
	assert.Nil(t, res)
}

func TestAddCompressedPathToGraph_NotEnoughFocus(t *testing.T) {
	s, _ := newTestStore(t)
	res, err := s.AddCompressedPathToGraph(context.Background(), CompressOptions{})
	assert.NoError(t, err)
	assert.Nil(t, res)
}

type failingSuggester struct{ err error }

func (f failingSuggester) SuggestTask(context.Context, string) (NodeData, error) {
	return NodeData{}, f.err
}

func TestAddCompressedPathToGraph_SuggesterError(t *testing.T) {
	boom := errors.New("boom")
	rec := &Recorder{}
	s := lineGraph(t, 2, WithSink(rec), WithTaskSuggester(failingSuggester{err: boom}))
	s.SelectPath([]string{"node-0", "node-1"})
	s.CopyMoveToFocus()
	before := s.Len()

	_, err := s.AddCompressedPathToGraph(context.Background(), CompressOptions{})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, before, s.Len())
}

func TestAddCompressedPathToGraph_Cancelled(t *testing.T) {
	s, _ := focusedLine(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.AddCompressedPathToGraph(ctx, CompressOptions{})
	assert.ErrorIs(t, err, context.Canceled)
}
