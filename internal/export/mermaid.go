package export

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/clocksmith/benzo/internal/graph"
)

// GenerateMermaid produces a Mermaid graph TD diagram from a graph store.
// Focus copies are grouped in an "observatory" subgraph, the selected path is
// highlighted and edges carry their weights. Edges to removed nodes are
// left out.
func GenerateMermaid(store *graph.Store) string {
	nodes := store.Nodes()
	edges := store.Edges()

	// Build node → ID mapping for Mermaid (alphanumeric only).
	nodeIDs := make(map[string]string, len(nodes))
	for i, n := range nodes {
		nodeIDs[n.ID] = fmt.Sprintf("N%d", i)
	}

	focus := make(map[string]bool)
	for _, id := range store.FocusArea() {
		focus[id] = true
	}

	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, n := range nodes {
		if focus[n.ID] {
			continue
		}
		sb.WriteString(fmt.Sprintf("  %s[\"%s\"]\n", nodeIDs[n.ID], label(n)))
	}

	if len(focus) > 0 {
		sb.WriteString("  subgraph observatory[\"observatory\"]\n")
		for _, n := range nodes {
			if focus[n.ID] {
				sb.WriteString(fmt.Sprintf("    %s[\"%s\"]\n", nodeIDs[n.ID], label(n)))
			}
		}
		sb.WriteString("  end\n")
	}

	for _, e := range edges {
		arrow := "-->"
		if e.Type == graph.EdgeLLMSuggested || e.Type == graph.EdgeCompressed {
			arrow = "-.->"
		}
		sb.WriteString(fmt.Sprintf("  %s %s|%s| %s\n",
			nodeIDs[e.From], arrow, formatWeight(e.Weight), nodeIDs[e.To]))
	}

	if sel := store.SelectedPath(); len(sel) > 0 {
		ids := make([]string, 0, len(sel))
		for _, id := range sel {
			ids = append(ids, nodeIDs[id])
		}
		sb.WriteString("  classDef selected stroke-width:3px\n")
		sb.WriteString(fmt.Sprintf("  class %s selected\n", strings.Join(ids, ",")))
	}

	return sb.String()
}

// label is the node's display name when it has one, else its id, with
// characters Mermaid treats specially escaped.
func label(n graph.Node) string {
	l := n.Data.DisplayName()
	if l == "" {
		l = n.ID
	}
	return strings.ReplaceAll(l, `"`, "#quot;")
}

func formatWeight(w float64) string {
	return strconv.FormatFloat(w, 'f', -1, 64)
}
