package mcptools

import (
	"context"
	"fmt"

	"github.com/clocksmith/benzo/internal/export"
	"github.com/clocksmith/benzo/internal/script"
	"github.com/clocksmith/benzo/internal/workflow"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// GraphService holds the script session (and through it the graph store)
// used by MCP tool handlers.
type GraphService struct {
	session *script.Session
	engine  *workflow.Engine // optional; select_action is only registered when set
}

// NewGraphService creates a GraphService over the given session. engine may be nil.
func NewGraphService(session *script.Session, engine *workflow.Engine) *GraphService {
	return &GraphService{session: session, engine: engine}
}

// ListScripts returns every script the session can load, by name.
func (s *GraphService) ListScripts(
	_ context.Context,
	_ *mcp.CallToolRequest,
	_ ListScriptsInput,
) (*mcp.CallToolResult, ListScriptsOutput, error) {
	lib := s.session.Library()
	out := ListScriptsOutput{Scripts: make([]ScriptInfo, 0, len(lib))}
	for _, name := range lib.Names() {
		out.Scripts = append(out.Scripts, ScriptInfo{Name: name, Steps: lib[name].Len()})
	}
	return nil, out, nil
}

// LoadScript resets the graph and executes the first step of the named script.
func (s *GraphService) LoadScript(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input LoadScriptInput,
) (*mcp.CallToolResult, StepOutput, error) {
	if input.Name == "" {
		return nil, StepOutput{}, fmt.Errorf("name is required")
	}
	rep, err := s.session.LoadScript(ctx, input.Name)
	if err != nil {
		return nil, StepOutput{}, err
	}
	return nil, s.stepOutput(rep), nil
}

// StepForward executes the next step of the loaded script.
func (s *GraphService) StepForward(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ StepInput,
) (*mcp.CallToolResult, StepOutput, error) {
	rep, err := s.session.StepForward(ctx)
	if err != nil {
		return nil, StepOutput{}, err
	}
	return nil, s.stepOutput(rep), nil
}

// StepBackward moves back one step and executes it again.
func (s *GraphService) StepBackward(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ StepInput,
) (*mcp.CallToolResult, StepOutput, error) {
	rep, err := s.session.StepBackward(ctx)
	if err != nil {
		return nil, StepOutput{}, err
	}
	return nil, s.stepOutput(rep), nil
}

// GetState reports the session position and graph summary.
func (s *GraphService) GetState(
	_ context.Context,
	_ *mcp.CallToolRequest,
	_ GetStateInput,
) (*mcp.CallToolResult, GetStateOutput, error) {
	store := s.session.Store()
	return nil, GetStateOutput{
		State:    s.session.State(),
		Stats:    store.Stats(),
		Selected: store.SelectedPath(),
		Focus:    store.FocusArea(),
	}, nil
}

// FindPath runs A* between two nodes of the current graph.
func (s *GraphService) FindPath(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input FindPathInput,
) (*mcp.CallToolResult, FindPathOutput, error) {
	if input.Start == "" || input.End == "" {
		return nil, FindPathOutput{}, fmt.Errorf("start and end are required")
	}
	res := s.session.Store().ShortestPath(input.Start, input.End)
	out := FindPathOutput{Found: res.Found(), Path: res.Path}
	if out.Found {
		cost := res.Cost
		out.Cost = &cost
	}
	return nil, out, nil
}

// ExportMermaid renders the current graph as a Mermaid diagram.
func (s *GraphService) ExportMermaid(
	_ context.Context,
	_ *mcp.CallToolRequest,
	_ ExportMermaidInput,
) (*mcp.CallToolResult, ExportMermaidOutput, error) {
	return nil, ExportMermaidOutput{Diagram: export.GenerateMermaid(s.session.Store())}, nil
}

// SelectAction asks the advisor what to do at a node and applies the answer.
func (s *GraphService) SelectAction(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SelectActionInput,
) (*mcp.CallToolResult, SelectActionOutput, error) {
	if s.engine == nil {
		return nil, SelectActionOutput{}, fmt.Errorf("no workflow engine configured")
	}
	if input.NodeID == "" {
		return nil, SelectActionOutput{}, fmt.Errorf("nodeId is required")
	}
	sel, err := s.engine.SelectAction(ctx, input.NodeID)
	if err != nil {
		return nil, SelectActionOutput{}, err
	}
	out := SelectActionOutput{
		NodeID:      sel.NodeID,
		Action:      string(sel.Decision.Action),
		Feedback:    sel.Decision.Feedback,
		Deliberated: sel.Deliberated,
		Next:        sel.Next,
		Subgraph:    sel.Subgraph != nil,
	}
	if sel.Err != nil {
		out.AdvisorErr = sel.Err.Error()
	}
	return nil, out, nil
}

func (s *GraphService) stepOutput(rep *script.StepReport) StepOutput {
	out := StepOutput{State: s.session.State()}
	if rep == nil {
		return out
	}
	out.Step = &StepResult{
		Index:   rep.Index,
		Key:     rep.Key,
		Command: string(rep.Command),
		Message: rep.Message,
	}
	if rep.Skipped() {
		out.Step.Skipped = true
		out.Step.SkipReason = script.SkipReason(rep.Err)
		out.Step.Error = rep.Err.Error()
	}
	return out
}
