package export

import (
	"encoding/json"
	"time"

	"github.com/clocksmith/benzo/internal/graph"
)

// GraphExport is the top-level JSON export structure.
type GraphExport struct {
	Script     string           `json:"script,omitempty"`
	ExportedAt string           `json:"exportedAt"`
	Nodes      []NodeExport     `json:"nodes"`
	Edges      []graph.Edge     `json:"edges"`
	Selected   []string         `json:"selectedPath,omitempty"`
	Focus      []string         `json:"focusArea,omitempty"`
	Stats      graph.GraphStats `json:"stats"`
}

// NodeExport describes one node without its outgoing edges, which are
// listed once in GraphExport.Edges.
type NodeExport struct {
	ID   string         `json:"id"`
	Kind graph.NodeKind `json:"kind"`
	Data graph.NodeData `json:"data"`
}

// ExportGraph snapshots the store. script names the loaded script, if any.
func ExportGraph(store *graph.Store, script string) *GraphExport {
	out := &GraphExport{
		Script:     script,
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		Edges:      store.Edges(),
		Selected:   store.SelectedPath(),
		Focus:      store.FocusArea(),
		Stats:      store.Stats(),
	}
	if out.Edges == nil {
		out.Edges = []graph.Edge{}
	}
	for _, n := range store.Nodes() {
		out.Nodes = append(out.Nodes, NodeExport{ID: n.ID, Kind: n.Kind, Data: n.Data})
	}
	if out.Nodes == nil {
		out.Nodes = []NodeExport{}
	}
	return out
}

// MarshalGraph renders ExportGraph as indented JSON.
func MarshalGraph(store *graph.Store, script string) ([]byte, error) {
	return json.MarshalIndent(ExportGraph(store, script), "", "  ")
}
