package graph

import (
	"errors"
	"math"
)

// --- Enums ---

// NodeKind classifies nodes in the task graph. Scripts may use kinds outside
// the constants below; they are carried through unchanged.
type NodeKind string

const (
	KindStart    NodeKind = "start"
	KindEnd      NodeKind = "end"
	KindTask     NodeKind = "task"
	KindSolution NodeKind = "solution"
	KindDecision NodeKind = "decision"
	KindRing     NodeKind = "ring"
	KindTrigrid  NodeKind = "trigrid"
)

// EdgeType labels why an edge exists. The empty type is a plain connection.
type EdgeType string

const (
	EdgeSequence          EdgeType = "sequence"
	EdgeSolutionSelection EdgeType = "solution_selection"
	EdgeLLMSuggested      EdgeType = "llm_suggested"
	EdgeCompressed        EdgeType = "compressed"
)

// Well-known node ids.
const (
	StartID     = "start"
	EndID       = "end"
	FocusPrefix = "focus_"
)

// --- Errors ---

var (
	// ErrNodeNotFound is returned when an operation names a node the store does not hold.
	ErrNodeNotFound = errors.New("node not found")

	// ErrNoPath is returned when a compression cannot be priced because the
	// endpoints are not connected.
	ErrNoPath = errors.New("no path between nodes")

	// ErrInvalidLayout is returned for empty, non-positive or oversized layout requests.
	ErrInvalidLayout = errors.New("invalid layout parameters")
)

// --- Models ---

// Node is a read-only snapshot of a stored node and its outgoing edges.
type Node struct {
	ID    string   `json:"id"`
	Kind  NodeKind `json:"kind"`
	Data  NodeData `json:"data"`
	Edges []Edge   `json:"edges,omitempty"`
}

// Edge is a directed, weighted connection. Edges live on their source node.
type Edge struct {
	From   string   `json:"from"`
	To     string   `json:"to"`
	Weight float64  `json:"weight"`
	Type   EdgeType `json:"edgeType,omitempty"`
}

// PathResult is the outcome of a path search. A failed search has an empty
// path and an infinite cost.
type PathResult struct {
	Path []string
	Cost float64
}

// Found reports whether the search reached its target.
func (r *PathResult) Found() bool {
	return r != nil && len(r.Path) > 0 && !math.IsInf(r.Cost, 1)
}

func noPath() *PathResult {
	return &PathResult{Path: []string{}, Cost: math.Inf(1)}
}

// GraphStats summarizes store contents.
type GraphStats struct {
	NodeCount     int `json:"nodeCount"`
	EdgeCount     int `json:"edgeCount"`
	DanglingEdges int `json:"danglingEdges"`
	FocusCount    int `json:"focusCount"`
	SubgraphCount int `json:"subgraphCount"`
}
