package graph

import (
	"fmt"

	"go.uber.org/zap"
)

// Sentinel node ids inside every subgraph.
const (
	SubStartID = "sub_start"
	SubEndID   = "sub_end"
)

// MergeStrategy selects how a subgraph is folded into its parent.
type MergeStrategy string

const (
	MergeAddNodes     MergeStrategy = "add_nodes"
	MergeUpdateParent MergeStrategy = "update_parent"
	MergeCompress     MergeStrategy = "compress"
)

// Subgraph is a child store spawned to explore one node's goal.
type Subgraph struct {
	Goal         string
	ParentNodeID string
	Store        *Store
}

// CreateSubgraph spawns a child store for parentID with sub_start and sub_end
// sentinels. The child shares this store's sink, logger and suggester and
// inherits the parent node's design context. The subgraph replaces any earlier
// one registered for the same parent.
func (s *Store) CreateSubgraph(parentID, goal string) (*Subgraph, error) {
	parent, ok := s.Node(parentID)
	if !ok {
		s.logger.Warn("create subgraph: parent node not found", zap.String("parentNodeId", parentID))
		return nil, fmt.Errorf("create subgraph for %q: %w", parentID, ErrNodeNotFound)
	}

	child := NewStore(
		WithSink(s.sink),
		WithLogger(s.logger),
		WithTaskSuggester(s.suggester),
		WithCanvas(s.canvas),
	)
	child.AddNode(SubStartID, NodeData{Title: fmt.Sprintf("Sub-Graph Start (%s)", goal)}, KindStart)
	child.AddNode(SubEndID, NodeData{Title: "Sub-Graph End"}, KindEnd)
	if parent.Data.DesignContext != nil {
		child.designContext = cloneMap(parent.Data.DesignContext)
	}

	sg := &Subgraph{Goal: goal, ParentNodeID: parentID, Store: child}
	s.mu.Lock()
	s.subgraphs[parentID] = sg
	s.mu.Unlock()

	s.emit(Event{Name: EventCreateSubgraph, Params: CreateSubgraphParams{ParentNodeID: parentID, SubgraphID: goal}})
	return sg, nil
}

// Subgraph returns the subgraph registered for parentID.
func (s *Store) Subgraph(parentID string) (*Subgraph, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sg, ok := s.subgraphs[parentID]
	return sg, ok
}

// DesignContext returns a copy of the design context inherited at creation.
func (s *Store) DesignContext() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.designContext == nil {
		return nil
	}
	return cloneMap(s.designContext)
}

// MergeSubgraph folds the subgraph registered for parentID back into this store.
//
// With MergeAddNodes every non-sentinel child node is copied in as
// "<parent>_<id>" and linked from the parent, then child edges that avoid
// both sentinels are copied with their weight and type. The other strategies
// are accepted but only logged. An empty strategy means MergeAddNodes.
func (s *Store) MergeSubgraph(parentID string, strategy MergeStrategy) error {
	if strategy == "" {
		strategy = MergeAddNodes
	}
	sg, ok := s.Subgraph(parentID)
	if !ok {
		s.logger.Warn("merge subgraph: no subgraph for parent", zap.String("parentNodeId", parentID))
		return fmt.Errorf("merge subgraph for %q: %w", parentID, ErrNodeNotFound)
	}
	if !s.Has(parentID) {
		s.logger.Warn("merge subgraph: parent node not found", zap.String("parentNodeId", parentID))
		return fmt.Errorf("merge subgraph for %q: %w", parentID, ErrNodeNotFound)
	}

	switch strategy {
	case MergeAddNodes:
		prefixed := func(id string) string { return parentID + "_" + id }
		for _, n := range sg.Store.Nodes() {
			if isSentinel(n.ID) {
				continue
			}
			s.AddNode(prefixed(n.ID), n.Data, n.Kind)
			s.AddEdge(parentID, prefixed(n.ID))
		}
		for _, e := range sg.Store.Edges() {
			if isSentinel(e.From) || isSentinel(e.To) {
				continue
			}
			s.AddEdge(prefixed(e.From), prefixed(e.To), WithWeight(e.Weight), WithEdgeType(e.Type))
		}
	case MergeUpdateParent, MergeCompress:
		s.logger.Warn("merge strategy not implemented yet", zap.String("strategy", string(strategy)))
	default:
		s.logger.Warn("unknown merge strategy", zap.String("strategy", string(strategy)))
	}

	s.emit(Event{Name: EventMergeSubgraph, Params: MergeSubgraphParams{
		ParentNodeID:  parentID,
		SubgraphID:    sg.Goal,
		MergeStrategy: string(strategy),
	}})
	return nil
}

func isSentinel(id string) bool {
	return id == SubStartID || id == SubEndID
}
