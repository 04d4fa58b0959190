package mcptools

import (
	"context"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// version is set by the linker at build time.
var version = "dev"

// NewGraphMCPServer creates an MCP server with the script and graph tools
// registered. select_action is added only when the service has an engine.
func NewGraphMCPServer(svc *GraphService) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "benzo",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_scripts",
		Description: "List the step scripts that can be loaded, with their step counts.",
	}, svc.ListScripts)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "load_script",
		Description: "Reset the graph, load a script by name and execute its first step.",
	}, svc.LoadScript)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "step_forward",
		Description: "Execute the next step of the loaded script. Stops any running playback.",
	}, svc.StepForward)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "step_backward",
		Description: "Move back one step and execute it again. Stepping back from the first step clears the graph.",
	}, svc.StepBackward)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_state",
		Description: "Return the session position, recent messages, graph counts, selection and focus area.",
	}, svc.GetState)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "find_path",
		Description: "Find the cheapest path between two nodes with A*. Returns found=false when the nodes are not connected.",
	}, svc.FindPath)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "export_mermaid",
		Description: "Render the current graph as a Mermaid flowchart.",
	}, svc.ExportMermaid)

	if svc.engine != nil {
		mcp.AddTool(server, &mcp.Tool{
			Name:        "select_action",
			Description: "Ask the advisor what to do at a node (proceed, add_task, re-evaluate or trigger_subgraph) and apply it to the graph.",
		}, svc.SelectAction)
	}

	return server
}

// RunMCPServer starts an HTTP server exposing the MCP tools.
func RunMCPServer(ctx context.Context, svc *GraphService, addr string) error {
	server := NewGraphMCPServer(svc)

	handler := mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server { return server },
		nil,
	)

	httpServer := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	// Shutdown gracefully when context is cancelled.
	go func() {
		<-ctx.Done()
		httpServer.Shutdown(context.Background())
	}()

	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// RunMCPServerStdio runs the MCP server on stdio transport, blocking
// until stdin is closed or the context is cancelled.
func RunMCPServerStdio(ctx context.Context, svc *GraphService) error {
	return NewGraphMCPServer(svc).Run(ctx, &mcp.StdioTransport{})
}
