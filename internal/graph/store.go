package graph

import (
	"math"
	"sync"

	"go.uber.org/zap"
)

// node is the mutable record behind a Node snapshot. Outgoing edges keep
// their insertion order because traversal and "first edge" decisions rely on it.
type node struct {
	id    string
	kind  NodeKind
	data  NodeData
	edges map[string]Edge
	order []string
}

func (n *node) setEdge(e Edge) {
	if _, ok := n.edges[e.To]; !ok {
		n.order = append(n.order, e.To)
	}
	n.edges[e.To] = e
}

func (n *node) outgoing() []Edge {
	out := make([]Edge, 0, len(n.order))
	for _, to := range n.order {
		out = append(out, n.edges[to])
	}
	return out
}

func (n *node) snapshot() Node {
	return Node{ID: n.id, Kind: n.kind, Data: n.data.Clone(), Edges: n.outgoing()}
}

// Store holds one task graph: its nodes, the current selection and focus
// area, the path memo and any spawned subgraphs. Every mutation is reported
// to the configured Sink once the store lock has been released.
// Thread-safe via sync.RWMutex.
type Store struct {
	mu sync.RWMutex

	nodes map[string]*node
	order []string

	memo     map[string]*PathResult // keyed by start id only
	pairMemo map[string]*PathResult // keyed by start and end

	selected []string
	focus    []string

	subgraphs     map[string]*Subgraph
	designContext map[string]any
	layoutSeq     int

	sink      Sink
	logger    *zap.Logger
	suggester TaskSuggester
	canvas    Canvas
	onLookup  func(hit bool)
}

// Option configures a Store.
type Option func(*Store)

// WithSink sets the event consumer.
func WithSink(s Sink) Option {
	return func(st *Store) {
		if s != nil {
			st.sink = s
		}
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(l *zap.Logger) Option {
	return func(st *Store) {
		if l != nil {
			st.logger = l
		}
	}
}

// WithTaskSuggester sets the collaborator that drafts compressed tasks.
func WithTaskSuggester(ts TaskSuggester) Option {
	return func(st *Store) {
		if ts != nil {
			st.suggester = ts
		}
	}
}

// WithCanvas sets the canvas used by layout generators.
func WithCanvas(c Canvas) Option {
	return func(st *Store) {
		if c.Width > 0 && c.Height > 0 {
			st.canvas = c
		}
	}
}

// WithCacheObserver registers a callback invoked on every memoized path
// lookup with whether the memo already held a result.
func WithCacheObserver(fn func(hit bool)) Option {
	return func(st *Store) {
		st.onLookup = fn
	}
}

// NewStore returns an empty store ready for use.
func NewStore(opts ...Option) *Store {
	s := &Store{
		sink:      discard{},
		logger:    zap.NewNop(),
		suggester: TemplateSuggester{},
		canvas:    DefaultCanvas,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.clearLocked()
	return s
}

func (s *Store) clearLocked() {
	s.nodes = make(map[string]*node)
	s.order = nil
	s.memo = make(map[string]*PathResult)
	s.pairMemo = make(map[string]*PathResult)
	s.selected = nil
	s.focus = nil
	s.subgraphs = make(map[string]*Subgraph)
	s.layoutSeq = 0
}

func (s *Store) emit(events ...Event) {
	for _, e := range events {
		s.sink.Emit(e)
	}
}

// Canvas returns the layout canvas.
func (s *Store) Canvas() Canvas {
	return s.canvas
}

// Reset clears all nodes, the memo, selection, focus area, subgraphs and the
// layout id counter.
func (s *Store) Reset() {
	s.mu.Lock()
	s.clearLocked()
	s.mu.Unlock()
	s.emit(Event{Name: EventReset, Params: struct{}{}})
}

// AddNode inserts a node, or overwrites an existing one in place (its outgoing
// edges are discarded, its position in insertion order is kept). An empty kind
// means KindTask.
func (s *Store) AddNode(id string, data NodeData, kind NodeKind) {
	if id == "" {
		s.logger.Warn("add node: empty id ignored")
		return
	}
	if kind == "" {
		kind = KindTask
	}
	s.mu.Lock()
	s.addNodeLocked(id, data.Clone(), kind)
	s.mu.Unlock()
	s.emit(Event{Name: EventAddNode, Params: AddNodeParams{NodeID: id, Data: data.Clone(), Kind: kind}})
}

func (s *Store) addNodeLocked(id string, data NodeData, kind NodeKind) {
	if _, exists := s.nodes[id]; !exists {
		s.order = append(s.order, id)
	}
	s.nodes[id] = &node{id: id, kind: kind, data: data, edges: make(map[string]Edge)}
}

// EdgeOption customizes AddEdge.
type EdgeOption func(*edgeConfig)

type edgeConfig struct {
	weight    float64
	hasWeight bool
	edgeType  EdgeType
}

// WithWeight sets an explicit edge weight.
func WithWeight(w float64) EdgeOption {
	return func(c *edgeConfig) {
		c.weight = w
		c.hasWeight = true
	}
}

// WithEdgeType labels the edge.
func WithEdgeType(t EdgeType) EdgeOption {
	return func(c *edgeConfig) {
		if t != "" {
			c.edgeType = t
		}
	}
}

// AddEdge connects from to to. Without WithWeight the weight is
// CalculateWeight of the target's data at call time; without WithEdgeType the
// edge is a sequence edge. If either endpoint is missing nothing happens.
// Reports whether the edge was added.
func (s *Store) AddEdge(from, to string, opts ...EdgeOption) bool {
	cfg := edgeConfig{edgeType: EdgeSequence}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.hasWeight && (cfg.weight < 0 || math.IsNaN(cfg.weight)) {
		s.logger.Warn("add edge: weight must be non-negative",
			zap.String("from", from), zap.String("to", to), zap.Float64("weight", cfg.weight))
		return false
	}

	s.mu.Lock()
	e, ok := s.addEdgeLocked(from, to, cfg)
	s.mu.Unlock()
	if !ok {
		s.logger.Debug("add edge: endpoint missing", zap.String("from", from), zap.String("to", to))
		return false
	}
	s.emit(Event{Name: EventConnectNodes, Params: ConnectNodesParams{
		Node1: e.From, Node2: e.To, Weight: e.Weight, EdgeType: e.Type,
	}})
	return true
}

func (s *Store) addEdgeLocked(from, to string, cfg edgeConfig) (Edge, bool) {
	src, ok := s.nodes[from]
	if !ok {
		return Edge{}, false
	}
	dst, ok := s.nodes[to]
	if !ok {
		return Edge{}, false
	}
	w := cfg.weight
	if !cfg.hasWeight {
		w = CalculateWeight(dst.data)
	}
	e := Edge{From: from, To: to, Weight: w, Type: cfg.edgeType}
	src.setEdge(e)
	return e, true
}

// RemoveNode removes the most recently inserted node, undoing the last
// AddNode. It returns the removed id, or false if the store is empty.
// Edges that other nodes hold toward the removed node are left in place.
func (s *Store) RemoveNode() (string, bool) {
	s.mu.Lock()
	if len(s.order) == 0 {
		s.mu.Unlock()
		return "", false
	}
	id := s.order[len(s.order)-1]
	s.removeLocked(id)
	s.mu.Unlock()
	s.emit(Event{Name: EventRemoveNode, Params: RemoveNodeParams{NodeID: id}})
	return id, true
}

// RemoveNodeByID removes a specific node with the same cascade as RemoveNode.
// A missing id is a no-op.
func (s *Store) RemoveNodeByID(id string) bool {
	s.mu.Lock()
	if _, ok := s.nodes[id]; !ok {
		s.mu.Unlock()
		s.logger.Warn("remove node: not found", zap.String("nodeId", id))
		return false
	}
	s.removeLocked(id)
	s.mu.Unlock()
	s.emit(Event{Name: EventRemoveNode, Params: RemoveNodeParams{NodeID: id}})
	return true
}

func (s *Store) removeLocked(id string) {
	delete(s.nodes, id)
	s.order = without(s.order, id)
	s.selected = without(s.selected, id)
	s.focus = without(s.focus, id)
}

func without(ids []string, id string) []string {
	out := ids[:0:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

// SelectPath records the selection, keeping only ids that exist, in input
// order. It emits no event.
func (s *Store) SelectPath(ids []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = s.selected[:0:0]
	for _, id := range ids {
		if _, ok := s.nodes[id]; ok {
			s.selected = append(s.selected, id)
		}
	}
}

// Message forwards a user-facing message to the sink. The graph is untouched.
func (s *Store) Message(msg string) {
	s.emit(Event{Name: EventMessageOnly, Params: MessageParams{Message: msg}})
}

// --- Read API ---

// Node returns a snapshot of the node with the given id.
func (s *Store) Node(id string) (Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.nodes[id]
	if !ok {
		return Node{}, false
	}
	return n.snapshot(), true
}

// Has reports whether id is present.
func (s *Store) Has(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.nodes[id]
	return ok
}

// Nodes returns snapshots of all nodes in insertion order.
func (s *Store) Nodes() []Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Node, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.nodes[id].snapshot())
	}
	return out
}

// NodeIDs returns all node ids in insertion order.
func (s *Store) NodeIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.order...)
}

// Edges returns every edge whose target still exists, grouped by source in
// node insertion order.
func (s *Store) Edges() []Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Edge
	for _, id := range s.order {
		for _, e := range s.nodes[id].outgoing() {
			if _, ok := s.nodes[e.To]; ok {
				out = append(out, e)
			}
		}
	}
	return out
}

// Edge returns the edge from -> to, if both the source and edge exist.
func (s *Store) Edge(from, to string) (Edge, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.nodes[from]
	if !ok {
		return Edge{}, false
	}
	e, ok := n.edges[to]
	return e, ok
}

// SelectedPath returns a copy of the current selection.
func (s *Store) SelectedPath() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.selected...)
}

// FocusArea returns a copy of the focus area ids.
func (s *Store) FocusArea() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.focus...)
}

// Len returns the node count.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Stats returns summary counts. Dangling edges are counted separately.
func (s *Store) Stats() GraphStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := GraphStats{
		NodeCount:     len(s.order),
		FocusCount:    len(s.focus),
		SubgraphCount: len(s.subgraphs),
	}
	for _, n := range s.nodes {
		for to := range n.edges {
			if _, ok := s.nodes[to]; ok {
				st.EdgeCount++
			} else {
				st.DanglingEdges++
			}
		}
	}
	return st
}
