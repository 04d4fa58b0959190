package graph

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// ManualSolutionKey is the potential solution every synthesized task carries.
const ManualSolutionKey = "manual_human"

// TaskSuggester drafts the data for a new task given its name. Implementations
// may call out to a remote model; they must honor ctx.
type TaskSuggester interface {
	SuggestTask(ctx context.Context, name string) (NodeData, error)
}

// TemplateSuggester returns TaskTemplate without consulting anyone.
type TemplateSuggester struct{}

// SuggestTask returns TaskTemplate(name).
func (TemplateSuggester) SuggestTask(ctx context.Context, name string) (NodeData, error) {
	if err := ctx.Err(); err != nil {
		return NodeData{}, err
	}
	return TaskTemplate(name), nil
}

// TaskTemplate is the fixed shape of a synthesized task: a title, a
// description and a single manual solution with mid-scale estimates.
func TaskTemplate(name string) NodeData {
	return NodeData{
		Title:       name,
		Description: "LLM-suggested task: " + name,
		PotentialSolutions: map[string]NodeData{
			ManualSolutionKey: {
				Name:                 "Manual " + name,
				Description:          "Manually perform " + name,
				PainLevel:            Float(4),
				Complexity:           Float(4),
				TimeEstimate:         Float(4),
				HumanFeedbackInitial: Float(1),
				HumanFeedbackRefined: Float(1),
			},
		},
	}
}

var nonIDChars = regexp.MustCompile(`[^a-z0-9]+`)

// TaskIDBase derives an id stem from a title: lowercased, with every run of
// characters outside [a-z0-9] collapsed to an underscore.
func TaskIDBase(title string) string {
	return nonIDChars.ReplaceAllString(strings.ToLower(title), "_")
}

func (s *Store) uniqueIDLocked(title string) string {
	base := TaskIDBase(title)
	id := base
	for i := 1; ; i++ {
		if _, taken := s.nodes[id]; !taken {
			return id
		}
		id = fmt.Sprintf("%s_%d", base, i)
	}
}

// AddTask inserts a task node under an id derived from its title, plus a
// "<id>_manual_human" solution node and the edge between them. It returns the
// task id.
func (s *Store) AddTask(data NodeData) string {
	title := data.Title
	if title == "" {
		title = data.Name
	}
	if title == "" {
		title = string(KindTask)
	}

	solution := data.PotentialSolutions[ManualSolutionKey].Clone()

	s.mu.Lock()
	id := s.uniqueIDLocked(title)
	solutionID := id + "_" + ManualSolutionKey
	s.addNodeLocked(id, data.Clone(), KindTask)
	s.addNodeLocked(solutionID, solution.Clone(), KindSolution)
	e, _ := s.addEdgeLocked(id, solutionID, edgeConfig{edgeType: EdgeSequence})
	s.mu.Unlock()

	s.emit(
		Event{Name: EventAddNode, Params: AddNodeParams{NodeID: id, Data: data.Clone(), Kind: KindTask}},
		Event{Name: EventAddNode, Params: AddNodeParams{NodeID: solutionID, Data: solution, Kind: KindSolution}},
		Event{Name: EventConnectNodes, Params: ConnectNodesParams{Node1: id, Node2: solutionID, Weight: e.Weight, EdgeType: e.Type}},
	)
	return id
}

// TaskEntry is one task handed to LoadTasks.
type TaskEntry struct {
	ID   string   `json:"id"`
	Data NodeData `json:"data"`
}

// LoadTasks adds start and end nodes and chains the given tasks between them
// with sequence edges, in order.
func (s *Store) LoadTasks(tasks []TaskEntry) {
	s.AddNode(StartID, NodeData{Title: "Start Project"}, KindStart)
	s.AddNode(EndID, NodeData{Title: "End Project"}, KindEnd)
	prev := StartID
	for _, t := range tasks {
		s.AddNode(t.ID, t.Data, KindTask)
		s.AddEdge(prev, t.ID, WithEdgeType(EdgeSequence))
		prev = t.ID
	}
	s.AddEdge(prev, EndID)
}
