package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/bull/idea-toc-server/internal/toc"
)

// TOC serves the table of contents.
type TOC interface {
	Cached(ctx context.Context) (toc.Tree, error)
	BuildWithLimit(ctx context.Context, maxItems int) (toc.Tree, error)
}

// Ideas is the idea store write and search surface.
type Ideas interface {
	Add(ctx context.Context, title, content string) error
	Update(ctx context.Context, title, content string) error
	Remove(ctx context.Context, title string) error
	Similar(ctx context.Context, query string, n int) ([]string, error)
}

// Server wraps the MCP server with dependencies.
type Server struct {
	server *mcp.Server
}

// Config holds server dependencies.
type Config struct {
	TOC     TOC
	Ideas   Ideas
	Version string
}

// NewServer creates a configured MCP server with tools registered.
func NewServer(cfg *Config) *Server {
	version := cfg.Version
	if version == "" {
		version = "v0.1.0"
	}
	impl := &mcp.Implementation{
		Name:    "idea-toc-server",
		Version: version,
	}

	server := mcp.NewServer(impl, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_toc",
		Description: "Get the hierarchical table of contents of the idea corpus. Similar ideas are grouped under generated headings; every heading and idea carries an originality percentage.",
	}, makeGetTOCHandler(cfg.TOC))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "rebuild_toc",
		Description: "Recompute the table of contents from the current idea corpus and replace the cached one. Use after adding or removing ideas.",
	}, makeRebuildHandler(cfg.TOC))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "find_similar_ideas",
		Description: "Find the titles of the ideas semantically closest to a text, nearest first.",
	}, makeSimilarHandler(cfg.Ideas))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "add_idea",
		Description: "Add a new idea to the corpus. Fails if an idea with the same title exists. The table of contents is not updated until rebuild_toc runs.",
	}, makeAddIdeaHandler(cfg.Ideas))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "update_idea",
		Description: "Replace the content of an existing idea.",
	}, makeUpdateIdeaHandler(cfg.Ideas))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "remove_idea",
		Description: "Remove an idea from the corpus by title.",
	}, makeRemoveIdeaHandler(cfg.Ideas))

	return &Server{server: server}
}

// Run starts the server with stdio transport (blocks until client disconnects).
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// MCPServer returns the underlying MCP server instance.
// Used by transport handlers that need to wrap the server.
func (s *Server) MCPServer() *mcp.Server {
	return s.server
}
