package mcptools

import (
	"github.com/clocksmith/benzo/internal/graph"
	"github.com/clocksmith/benzo/internal/script"
)

// --- MCP Tool Input Types ---
// These structs define the JSON schema for each MCP tool's input.
// The MCP Go SDK auto-generates JSON schemas from struct tags.

// ListScriptsInput is the input for the list_scripts MCP tool.
type ListScriptsInput struct{}

// ListScriptsOutput is the result of the list_scripts MCP tool.
type ListScriptsOutput struct {
	Scripts []ScriptInfo `json:"scripts"`
}

// ScriptInfo names one loadable script.
type ScriptInfo struct {
	Name  string `json:"name"`
	Steps int    `json:"steps"`
}

// LoadScriptInput is the input for the load_script MCP tool.
type LoadScriptInput struct {
	Name string `json:"name" jsonschema:"name of the script to load, as returned by list_scripts"`
}

// StepInput is the input for the step_forward and step_backward MCP tools.
type StepInput struct{}

// StepOutput is the result of load_script, step_forward and step_backward.
type StepOutput struct {
	Step  *StepResult  `json:"step,omitempty"`
	State script.State `json:"state"`
}

// StepResult describes the step that just ran.
type StepResult struct {
	Index      int    `json:"index"`
	Key        string `json:"key"`
	Command    string `json:"command,omitempty"`
	Message    string `json:"message,omitempty"`
	Skipped    bool   `json:"skipped,omitempty"`
	SkipReason string `json:"skipReason,omitempty"`
	Error      string `json:"error,omitempty"`
}

// GetStateInput is the input for the get_state MCP tool.
type GetStateInput struct{}

// GetStateOutput is the result of the get_state MCP tool.
type GetStateOutput struct {
	State    script.State     `json:"state"`
	Stats    graph.GraphStats `json:"stats"`
	Selected []string         `json:"selectedPath,omitempty"`
	Focus    []string         `json:"focusArea,omitempty"`
}

// FindPathInput is the input for the find_path MCP tool.
type FindPathInput struct {
	Start string `json:"start" jsonschema:"id of the node to start from"`
	End   string `json:"end" jsonschema:"id of the target node"`
}

// FindPathOutput is the result of the find_path MCP tool. Cost is omitted
// when no path exists.
type FindPathOutput struct {
	Found bool     `json:"found"`
	Path  []string `json:"path"`
	Cost  *float64 `json:"cost,omitempty"`
}

// ExportMermaidInput is the input for the export_mermaid MCP tool.
type ExportMermaidInput struct{}

// ExportMermaidOutput is the result of the export_mermaid MCP tool.
type ExportMermaidOutput struct {
	Diagram string `json:"diagram"`
}

// SelectActionInput is the input for the select_action MCP tool.
type SelectActionInput struct {
	NodeID string `json:"nodeId" jsonschema:"id of the node to decide the next action for"`
}

// SelectActionOutput is the result of the select_action MCP tool.
type SelectActionOutput struct {
	NodeID      string `json:"nodeId"`
	Action      string `json:"action"`
	Feedback    string `json:"feedback,omitempty"`
	Deliberated bool   `json:"deliberated"`
	Next        string `json:"next,omitempty"`
	Subgraph    bool   `json:"subgraph,omitempty"`
	AdvisorErr  string `json:"advisorError,omitempty"`
}
