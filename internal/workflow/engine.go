// Package workflow walks a task graph one decision at a time: the advisor
// picks an action for the current node, solutions are "executed", human
// feedback reshapes the weights and A* chooses where to go next.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/clocksmith/benzo/internal/advisor"
	"github.com/clocksmith/benzo/internal/graph"
	"go.uber.org/zap"
)

// DefaultExecUnit is how long one unit of time_estimate takes when a
// solution is executed.
const DefaultExecUnit = 500 * time.Millisecond

// DeliberationComplexity is the complexity at which a node is put to every
// persona instead of a single advisor call.
const DeliberationComplexity = 6

// Engine drives decisions over a Store.
type Engine struct {
	store     *graph.Store
	adv       advisor.Advisor
	feedback  advisor.FeedbackSource
	suggester graph.TaskSuggester
	personas  []advisor.Persona
	execUnit  time.Duration
	logger    *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithFeedback sets the human feedback source. Default: a MockFeedback seeded with 1.
func WithFeedback(f advisor.FeedbackSource) Option {
	return func(e *Engine) { e.feedback = f }
}

// WithPersonas replaces the personas consulted during deliberation.
func WithPersonas(p []advisor.Persona) Option {
	return func(e *Engine) { e.personas = p }
}

// WithSuggester sets how suggested tasks are drafted. Default: an
// advisor.Suggester over the engine's advisor.
func WithSuggester(s graph.TaskSuggester) Option {
	return func(e *Engine) { e.suggester = s }
}

// WithExecUnit sets the duration of one time_estimate unit.
func WithExecUnit(d time.Duration) Option {
	return func(e *Engine) { e.execUnit = d }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// New returns an Engine over store consulting adv.
func New(store *graph.Store, adv advisor.Advisor, opts ...Option) *Engine {
	e := &Engine{
		store:    store,
		adv:      adv,
		personas: advisor.DefaultPersonas,
		execUnit: DefaultExecUnit,
		logger:   zap.NewNop(),
	}
	for _, o := range opts {
		o(e)
	}
	if e.feedback == nil {
		e.feedback = advisor.NewMockFeedback(1)
	}
	if e.suggester == nil {
		e.suggester = advisor.NewSuggester(adv)
	}
	return e
}

// Selection reports what SelectAction decided.
type Selection struct {
	NodeID      string
	Decision    advisor.Decision
	Deliberated bool
	// Next is the node to continue from; empty when the walk stops here.
	Next     string
	Subgraph *graph.Subgraph
	// Err holds a failed consultation. The decision then defaults to proceed.
	Err error
}

// ShouldDeliberate reports whether n is put to every persona.
func ShouldDeliberate(n graph.Node) bool {
	if n.Kind == graph.KindDecision {
		return true
	}
	c, ok := n.Data.Number(graph.FieldComplexity)
	return ok && c >= DeliberationComplexity
}

// Prompt describes n and its potential solutions for the advisor.
func Prompt(n graph.Node) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Current task: %s\nDescription: %s\n", n.Data.Title, n.Data.Description)
	b.WriteString("Available solutions:\n")
	for i, key := range solutionKeys(n.Data) {
		if i > 0 {
			b.WriteByte('\n')
		}
		sol := n.Data.PotentialSolutions[key]
		fmt.Fprintf(&b, "%s: %s (Time: %s, Pain: %s, Complexity: %s, Human: %s)",
			key, sol.Description,
			number(sol.TimeEstimate), number(sol.PainLevel), number(sol.Complexity), number(sol.HumanFeedbackRefined))
	}
	b.WriteString("\nChoose the best solution or suggest a new task:")
	return b.String()
}

func number(p *float64) string {
	if p == nil {
		return "unknown"
	}
	return strconv.FormatFloat(*p, 'g', -1, 64)
}

func solutionKeys(d graph.NodeData) []string {
	keys := make([]string, 0, len(d.PotentialSolutions))
	for k := range d.PotentialSolutions {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SelectAction consults the advisor about nodeID and applies its decision.
func (e *Engine) SelectAction(ctx context.Context, nodeID string) (*Selection, error) {
	n, ok := e.store.Node(nodeID)
	if !ok {
		return nil, fmt.Errorf("select action at %q: %w", nodeID, graph.ErrNodeNotFound)
	}

	sel := &Selection{NodeID: nodeID, Deliberated: ShouldDeliberate(n)}
	var personas []advisor.Persona
	if sel.Deliberated {
		personas = e.personas
	}
	d, err := advisor.Consult(ctx, e.adv, Prompt(n), personas)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		e.logger.Warn("advisor unavailable, proceeding", zap.String("nodeId", nodeID), zap.Error(err))
		sel.Err = err
		d = advisor.Decision{Action: advisor.ActionProceed}
	}
	sel.Decision = d

	switch d.Action {
	case advisor.ActionProceed:
		sel.Next = e.proceed(n)

	case advisor.ActionAddTask:
		data, err := e.suggester.SuggestTask(ctx, d.SuggestedTask)
		if err != nil {
			return nil, fmt.Errorf("suggest task %q: %w", d.SuggestedTask, err)
		}
		id := e.store.AddTask(data)
		e.store.AddEdge(nodeID, id, graph.WithEdgeType(graph.EdgeLLMSuggested))
		sel.Next = id

	case advisor.ActionReevaluate:
		e.logger.Info("advisor feedback", zap.String("nodeId", nodeID), zap.String("feedback", d.Feedback))
		e.store.UpdateWeights(d.UpdatedWeights)
		if res := e.store.AStar(nodeID, graph.EndID); len(res.Path) > 1 {
			sel.Next = res.Path[1]
		}

	case advisor.ActionTriggerSubgraph:
		sg, err := e.store.CreateSubgraph(nodeID, d.SubgraphGoal)
		if err != nil {
			return nil, err
		}
		sel.Subgraph = sg
	}
	return sel, nil
}

// proceed expands a task's potential solutions into solution nodes and
// returns the target of the node's first outgoing edge that still exists.
func (e *Engine) proceed(n graph.Node) string {
	if n.Kind == graph.KindTask {
		for _, key := range solutionKeys(n.Data) {
			id := n.ID + "_" + key
			e.store.AddNode(id, n.Data.PotentialSolutions[key], graph.KindSolution)
			e.store.AddEdge(n.ID, id, graph.WithEdgeType(graph.EdgeSolutionSelection))
		}
	}
	cur, ok := e.store.Node(n.ID)
	if !ok {
		return ""
	}
	for _, edge := range cur.Edges {
		if e.store.Has(edge.To) {
			return edge.To
		}
	}
	return ""
}

// ExecuteWorkflow performs one step from start towards end and returns the
// node to continue from, or "" when the walk is complete or stuck. When the
// chosen node is a solution it is executed, feedback is applied and the walk
// follows the cheapest path onwards.
func (e *Engine) ExecuteWorkflow(ctx context.Context, start, end string) (string, error) {
	sel, err := e.SelectAction(ctx, start)
	if err != nil {
		return "", err
	}
	if sel.Next == "" {
		e.logger.Info("workflow completed (or no path found)", zap.String("nodeId", start))
		return "", nil
	}

	next, ok := e.store.Node(sel.Next)
	if !ok || next.Kind != graph.KindSolution {
		return sel.Next, nil
	}

	if err := e.execute(ctx, next); err != nil {
		return "", err
	}

	fb, err := e.feedback.RequestFeedback(ctx, next)
	if err != nil {
		return "", fmt.Errorf("feedback for %q: %w", next.ID, err)
	}
	e.logger.Debug("feedback received", zap.String("nodeId", next.ID), zap.String("type", string(fb.Type)))
	if err := e.store.ApplyFeedback(next.ID, fb); err != nil && !errors.Is(err, graph.ErrNodeNotFound) {
		e.logger.Warn("feedback not applied", zap.String("nodeId", next.ID), zap.Error(err))
	}

	res := e.store.AStar(next.ID, end)
	if len(res.Path) < 2 {
		e.logger.Info("workflow completed (or no path found)", zap.String("nodeId", next.ID))
		return "", nil
	}
	return res.Path[1], nil
}

// Run repeats ExecuteWorkflow until the walk stops, end is reached or
// maxSteps steps were taken. It returns the visited nodes.
func (e *Engine) Run(ctx context.Context, start, end string, maxSteps int) ([]string, error) {
	visited := []string{start}
	cur := start
	for i := 0; i < maxSteps && cur != end; i++ {
		next, err := e.ExecuteWorkflow(ctx, cur, end)
		if err != nil {
			return visited, err
		}
		if next == "" {
			break
		}
		visited = append(visited, next)
		cur = next
	}
	return visited, nil
}

func (e *Engine) execute(ctx context.Context, n graph.Node) error {
	units, ok := n.Data.Number(graph.FieldTimeEstimate)
	if !ok || units <= 0 || e.execUnit <= 0 {
		return nil
	}
	e.logger.Info("executing solution", zap.String("nodeId", n.ID), zap.String("name", n.Data.DisplayName()))
	t := time.NewTimer(time.Duration(units * float64(e.execUnit)))
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
