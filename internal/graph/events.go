package graph

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

// EventName identifies a mutation event. The names double as script command names.
type EventName string

const (
	EventReset                    EventName = "reset"
	EventAddNode                  EventName = "add_node"
	EventRemoveNode               EventName = "remove_node"
	EventConnectNodes             EventName = "connect_nodes"
	EventSelectPath               EventName = "select_path"
	EventCopyMoveToFocus          EventName = "copy_move_to_focus"
	EventStraightenPath           EventName = "straighten_path"
	EventCompressPath             EventName = "compress_path"
	EventAddCompressedPathToGraph EventName = "add_compressed_path_to_graph"
	EventAddCircularRings         EventName = "add_circular_rings"
	EventAddTriangularGrid        EventName = "add_triangular_grid"
	EventCreateSubgraph           EventName = "create_subgraph"
	EventMergeSubgraph            EventName = "merge_subgraph"
	EventMessageOnly              EventName = "message_only"
)

// Event is one notification from the store. It encodes as {"<name>": params}.
type Event struct {
	Name   EventName
	Params any
}

// MarshalJSON encodes the event as a single-key object.
func (e Event) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{string(e.Name): e.Params})
}

// --- Event payloads ---

type AddNodeParams struct {
	NodeID string   `json:"nodeId"`
	Data   NodeData `json:"data"`
	Kind   NodeKind `json:"kind"`
}

type RemoveNodeParams struct {
	NodeID string `json:"nodeId"`
}

type ConnectNodesParams struct {
	Node1    string   `json:"node1"`
	Node2    string   `json:"node2"`
	Weight   float64  `json:"weight"`
	EdgeType EdgeType `json:"edgeType,omitempty"`
}

type NodeIDsParams struct {
	NodeIDs []string `json:"nodeIds"`
}

type CompressPathParams struct {
	StartNodeID       string   `json:"startNodeId"`
	EndNodeID         string   `json:"endNodeId"`
	IntermediateNodes []string `json:"intermediateNodes"`
}

type CompressedPathParams struct {
	StartNodeID      string  `json:"startNodeId"`
	EndNodeID        string  `json:"endNodeId"`
	CompressedNodeID string  `json:"compressedNodeId"`
	CompressedWeight float64 `json:"compressedWeight"`
}

type RingsParams struct {
	RingSizes []int `json:"ringSizes"`
}

type GridParams struct {
	NumRings int `json:"numRings"`
}

type CreateSubgraphParams struct {
	ParentNodeID string `json:"parentNodeId"`
	SubgraphID   string `json:"subGraphId"`
}

type MergeSubgraphParams struct {
	ParentNodeID  string `json:"parentNodeId"`
	SubgraphID    string `json:"subGraphId"`
	MergeStrategy string `json:"mergeStrategy"`
}

type MessageParams struct {
	Message string `json:"message"`
}

// --- Sinks ---

// Sink receives mutation events. Implementations must not call mutating
// Store methods from Emit.
type Sink interface {
	Emit(Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Event)

// Emit calls f(e).
func (f SinkFunc) Emit(e Event) { f(e) }

// MultiSink fans one event out to several sinks in order.
type MultiSink []Sink

// Emit forwards e to every non-nil sink.
func (m MultiSink) Emit(e Event) {
	for _, s := range m {
		if s != nil {
			s.Emit(e)
		}
	}
}

type discard struct{}

func (discard) Emit(Event) {}

// Recorder keeps every event it receives. Safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Emit appends e.
func (r *Recorder) Emit(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Names returns the recorded event names in order.
func (r *Recorder) Names() []EventName {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventName, len(r.events))
	for i, e := range r.events {
		out[i] = e.Name
	}
	return out
}

// Clear drops everything recorded so far.
func (r *Recorder) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

// LogSink writes each event to logger at debug level.
func LogSink(logger *zap.Logger) Sink {
	return SinkFunc(func(e Event) {
		logger.Debug("graph event", zap.String("event", string(e.Name)), zap.Any("params", e.Params))
	})
}
