package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/server"

	"github.com/ziadkadry99/evodex/internal/evolution"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Searcher looks up species by name fragment.
type Searcher interface {
	Search(ctx context.Context, query string) ([]evolution.SpeciesRef, error)
}

// TreeBuilder builds evolution trees.
type TreeBuilder interface {
	Build(ctx context.Context, root string, expanded evolution.ExpansionSet) (*evolution.Result, error)
}

// Server wraps an MCP server that exposes species search and evolution
// tree tools.
type Server struct {
	searcher Searcher
	builder  TreeBuilder
	mcp      *server.MCPServer
}

// NewServer creates a new MCP server with the given dependencies.
func NewServer(searcher Searcher, builder TreeBuilder) *Server {
	s := &Server{
		searcher: searcher,
		builder:  builder,
	}

	s.mcp = server.NewMCPServer(
		"evodex",
		Version,
		server.WithToolCapabilities(false),
	)

	s.registerTools()

	return s
}

// registerTools adds all tool definitions and their handlers to the MCP server.
func (s *Server) registerTools() {
	s.mcp.AddTool(searchSpeciesTool, s.handleSearchSpecies)
	s.mcp.AddTool(evolutionTreeTool, s.handleEvolutionTree)
}

// Serve starts the MCP server on stdio. Stdout is used for MCP protocol
// messages; all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}
