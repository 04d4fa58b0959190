package script

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/clocksmith/benzo/internal/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func apply(t *testing.T, store *graph.Store, cmd Command, params string) error {
	t.Helper()
	var raw json.RawMessage
	if params != "" {
		raw = json.RawMessage(params)
	}
	return Apply(context.Background(), store, Step{Key: "k", Command: cmd, Params: raw})
}

func TestApply_AddNodeShortForm(t *testing.T) {
	store := graph.NewStore()
	require.NoError(t, apply(t, store, CmdAddNode, `{"id": "start", "type": "start", "data": {"title": "Start"}}`))
	n, ok := store.Node("start")
	require.True(t, ok)
	assert.Equal(t, graph.KindStart, n.Kind)
	assert.Equal(t, "Start", n.Data.Title)

	require.NoError(t, apply(t, store, CmdAddNode, `{"nodeId": "t"}`))
	n, _ = store.Node("t")
	assert.Equal(t, graph.KindTask, n.Kind)
}

func TestApply_ConnectNodes(t *testing.T) {
	store := graph.NewStore()
	store.AddNode("a", graph.NodeData{}, graph.KindTask)
	store.AddNode("b", graph.NodeData{}, graph.KindTask)

	require.NoError(t, apply(t, store, CmdConnectNodes, `{"node1": "a", "node2": "b", "weight": 2, "edgeType": "llm_suggested"}`))
	e, ok := store.Edge("a", "b")
	require.True(t, ok)
	assert.Equal(t, 2.0, e.Weight)
	assert.Equal(t, graph.EdgeLLMSuggested, e.Type)

	err := apply(t, store, CmdConnectNodes, `{"node1": "a", "node2": "b", "weight": -1}`)
	assert.ErrorIs(t, err, ErrInvalidParams)

	err = apply(t, store, CmdConnectNodes, `{"node1": "a"}`)
	assert.ErrorIs(t, err, ErrInvalidParams)
	assert.Contains(t, err.Error(), "node2 is required")
}

func TestApply_RemoveNode(t *testing.T) {
	store := graph.NewStore()
	store.AddNode("a", graph.NodeData{}, "")
	store.AddNode("b", graph.NodeData{}, "")
	store.AddNode("c", graph.NodeData{}, "")

	require.NoError(t, apply(t, store, CmdRemoveNode, ""))
	assert.Equal(t, []string{"a", "b"}, store.NodeIDs())

	require.NoError(t, apply(t, store, CmdRemoveNode, `{"nodeId": "a"}`))
	assert.Equal(t, []string{"b"}, store.NodeIDs())

	assert.ErrorIs(t, apply(t, store, CmdRemoveNode, `{"nodeId": "zzz"}`), graph.ErrNodeNotFound)
	require.NoError(t, apply(t, store, CmdRemoveNode, "null"))
	assert.ErrorIs(t, apply(t, store, CmdRemoveNode, "null"), graph.ErrNodeNotFound)
}

func TestApply_SelectFocusAndCompress(t *testing.T) {
	store := graph.NewStore()
	for _, id := range []string{"node-0", "node-1", "node-2"} {
		store.AddNode(id, graph.NodeData{Title: id}, graph.KindTask)
	}
	store.AddEdge("node-0", "node-1", graph.WithWeight(1))
	store.AddEdge("node-1", "node-2", graph.WithWeight(2))

	require.NoError(t, apply(t, store, CmdSelectPath, `["node-0", "ghost", "node-1", "node-2"]`))
	assert.Equal(t, []string{"node-0", "node-1", "node-2"}, store.SelectedPath())

	require.NoError(t, apply(t, store, CmdCopyMoveToFocus, "null"))
	require.NoError(t, apply(t, store, CmdStraightenPath, "null"))
	require.NoError(t, apply(t, store, CmdCompressPath, "null"))
	assert.Equal(t, []string{"focus_node-0", "focus_node-1", "focus_node-2"}, store.FocusArea())

	require.NoError(t, apply(t, store, CmdAddCompressedPathToGraph, `{"message": "go"}`))
	e, ok := store.Edge("node-0", "compressed_node_0_to_node_2")
	require.True(t, ok)
	assert.Equal(t, 3.0, e.Weight)
}

func TestApply_CompressWithoutFocus(t *testing.T) {
	err := apply(t, graph.NewStore(), CmdAddCompressedPathToGraph, "")
	assert.ErrorIs(t, err, graph.ErrNodeNotFound)
}

func TestApply_CompressDisconnected(t *testing.T) {
	store := graph.NewStore()
	store.AddNode("a", graph.NodeData{}, "")
	store.AddNode("b", graph.NodeData{}, "")
	err := apply(t, store, CmdAddCompressedPathToGraph, `{"startNodeId": "a", "endNodeId": "b"}`)
	assert.ErrorIs(t, err, graph.ErrNoPath)
	assert.Equal(t, 2, store.Len())
}

func TestApply_Layouts(t *testing.T) {
	store := graph.NewStore()
	require.NoError(t, apply(t, store, CmdAddCircularRings, `{"ringSizes": [3, 5]}`))
	assert.Equal(t, 8, store.Len())

	require.NoError(t, apply(t, store, CmdAddTriangularGrid, `2`))
	assert.Equal(t, 15, store.Len())

	assert.ErrorIs(t, apply(t, store, CmdAddTriangularGrid, `{"numRings": 0}`), ErrInvalidParams)
	assert.ErrorIs(t, apply(t, store, CmdAddCircularRings, `[]`), ErrInvalidParams)
	assert.ErrorIs(t, apply(t, store, CmdAddCircularRings, `"six"`), ErrInvalidParams)
}

func TestApply_Subgraphs(t *testing.T) {
	store := graph.NewStore()
	store.AddNode("p", graph.NodeData{}, graph.KindTask)

	require.NoError(t, apply(t, store, CmdCreateSubgraph, `{"parentNodeId": "p", "subGraphId": "Explore"}`))
	sg, ok := store.Subgraph("p")
	require.True(t, ok)
	assert.Equal(t, "Explore", sg.Goal)

	require.NoError(t, apply(t, store, CmdMergeSubgraph, `{"parentNodeId": "p"}`))
	assert.ErrorIs(t, apply(t, store, CmdMergeSubgraph, `{"parentNodeId": "p", "mergeStrategy": "shuffle"}`), ErrInvalidParams)
	assert.ErrorIs(t, apply(t, store, CmdCreateSubgraph, `{"parentNodeId": "ghost"}`), graph.ErrNodeNotFound)
}

func TestApply_MessageOnlyEmits(t *testing.T) {
	rec := &graph.Recorder{}
	store := graph.NewStore(graph.WithSink(rec))
	require.NoError(t, Apply(context.Background(), store, Step{Command: CmdMessageOnly, Message: "hello"}))
	events := rec.Events()
	require.Len(t, events, 1)
	assert.Equal(t, graph.MessageParams{Message: "hello"}, events[0].Params)
}

func TestCommand_Known(t *testing.T) {
	assert.True(t, CmdMergeSubgraph.Known())
	assert.False(t, Command("message").Known())
	assert.Len(t, Commands, 14)
}

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "live.json")
	require.NoError(t, os.WriteFile(p, []byte(`{"1": {"reset": null}}`), 0o644))

	reloaded := make(chan Library, 4)
	w := NewWatcher(p, 10*time.Millisecond, func(l Library, err error) {
		if err == nil {
			reloaded <- l
		}
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errc := make(chan error, 1)
	go func() { errc <- w.Run(ctx) }()

	// The watch is registered asynchronously; keep writing until it is seen.
	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case l := <-reloaded:
			require.Contains(t, l, "live")
			assert.Equal(t, 2, l["live"].Len())
			cancel()
			assert.NoError(t, <-errc)
			return
		case <-tick.C:
			require.NoError(t, os.WriteFile(p, []byte(`{"1": {"reset": null}, "2": {"message": "x"}}`), 0o644))
		case <-deadline:
			t.Fatal("no reload observed")
		}
	}
}
