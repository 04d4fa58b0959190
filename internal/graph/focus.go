package graph

import (
	"context"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"
)

// CopyMoveToFocus copies every selected node into the focus area as
// "focus_<id>" with deep-copied data and the same kind. The focus area is
// replaced. Each copy is added through the store, so one add_node event is
// emitted per copy, followed by a single copy_move_to_focus event.
// An empty selection is a no-op.
func (s *Store) CopyMoveToFocus() {
	s.mu.Lock()
	if len(s.selected) == 0 {
		s.mu.Unlock()
		return
	}
	s.focus = nil
	var events []Event
	for _, id := range s.selected {
		src, ok := s.nodes[id]
		if !ok {
			continue
		}
		focusID := FocusPrefix + id
		data := src.data.Clone()
		s.addNodeLocked(focusID, data, src.kind)
		s.focus = append(s.focus, focusID)
		events = append(events, Event{Name: EventAddNode, Params: AddNodeParams{
			NodeID: focusID, Data: data.Clone(), Kind: src.kind,
		}})
	}
	events = append(events, Event{Name: EventCopyMoveToFocus, Params: NodeIDsParams{
		NodeIDs: append([]string(nil), s.focus...),
	}})
	s.mu.Unlock()
	s.emit(events...)
}

// StraightenPath signals that the focus area should be laid out on a line.
// It does not change topology. An empty focus area is a no-op.
func (s *Store) StraightenPath() {
	focus := s.FocusArea()
	if len(focus) == 0 {
		return
	}
	s.emit(Event{Name: EventStraightenPath, Params: NodeIDsParams{NodeIDs: focus}})
}

// CompressPath signals that the focus area's interior should be collapsed for
// display. No nodes are removed. Fewer than two focus nodes is a no-op.
func (s *Store) CompressPath() {
	focus := s.FocusArea()
	if len(focus) < 2 {
		return
	}
	s.emit(Event{Name: EventCompressPath, Params: CompressPathParams{
		StartNodeID:       focus[0],
		EndNodeID:         focus[len(focus)-1],
		IntermediateNodes: append([]string{}, focus[1:len(focus)-1]...),
	}})
}

// CompressOptions overrides the endpoints AddCompressedPathToGraph derives
// from the focus area.
type CompressOptions struct {
	StartNodeID string
	EndNodeID   string
}

// CompressResult describes a compressed node folded back into the graph.
type CompressResult struct {
	StartNodeID      string  `json:"startNodeId"`
	EndNodeID        string  `json:"endNodeId"`
	CompressedNodeID string  `json:"compressedNodeId"`
	CompressedWeight float64 `json:"compressedWeight"`
}

// AddCompressedPathToGraph summarizes the path between the first and last
// focus nodes as one synthesized task. The "focus_" prefix is stripped to
// recover the main-graph endpoints. The start is connected to the new task
// with the path's A* cost and the task to the end with weight 0, both as
// compressed edges.
//
// It returns (nil, nil) when there is nothing to compress or an endpoint is
// missing, and ErrNoPath without mutating anything when the endpoints are not
// connected.
func (s *Store) AddCompressedPathToGraph(ctx context.Context, opts CompressOptions) (*CompressResult, error) {
	startID, endID := opts.StartNodeID, opts.EndNodeID
	if startID == "" || endID == "" {
		focus := s.FocusArea()
		if len(focus) < 2 {
			return nil, nil
		}
		if startID == "" {
			startID = strings.TrimPrefix(focus[0], FocusPrefix)
		}
		if endID == "" {
			endID = strings.TrimPrefix(focus[len(focus)-1], FocusPrefix)
		}
	}

	start, ok1 := s.Node(startID)
	end, ok2 := s.Node(endID)
	if !ok1 || !ok2 {
		s.logger.Warn("compress: start/end node not found",
			zap.String("start", startID), zap.String("end", endID))
		return nil, nil
	}

	path := s.AStar(startID, endID)
	if math.IsInf(path.Cost, 1) {
		s.logger.Warn("compress: endpoints not connected",
			zap.String("start", startID), zap.String("end", endID))
		return nil, fmt.Errorf("compress %s to %s: %w", startID, endID, ErrNoPath)
	}

	name := fmt.Sprintf("Compressed_%s_to_%s", titleOrID(start), titleOrID(end))
	data, err := s.suggester.SuggestTask(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("compress %s to %s: suggest task: %w", startID, endID, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	compressedID := s.AddTask(data)
	s.AddEdge(startID, compressedID, WithWeight(path.Cost), WithEdgeType(EdgeCompressed))
	s.AddEdge(compressedID, endID, WithWeight(0), WithEdgeType(EdgeCompressed))

	res := &CompressResult{
		StartNodeID:      startID,
		EndNodeID:        endID,
		CompressedNodeID: compressedID,
		CompressedWeight: path.Cost,
	}
	s.emit(Event{Name: EventAddCompressedPathToGraph, Params: CompressedPathParams(*res)})
	return res, nil
}

func titleOrID(n Node) string {
	if n.Data.Title != "" {
		return n.Data.Title
	}
	return n.ID
}
