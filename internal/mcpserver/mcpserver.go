// Package mcpserver exposes class pattern analysis to MCP clients over stdio.
package mcpserver

import (
	"context"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/panbanda/clasp/pkg/config"
)

// Server wraps the MCP server and registers the clasp tools.
type Server struct {
	server *mcp.Server
	config *config.Config
}

// NewServer creates a new MCP server with all clasp tools registered.
// A nil cfg uses the defaults.
func NewServer(version string, cfg *config.Config) *Server {
	if version == "" {
		version = "dev"
	}
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "clasp",
			Version: version,
		},
		nil,
	)

	s := &Server{server: server, config: cfg}
	s.registerTools()
	if err := s.registerPrompts(); err != nil {
		slog.Warn("mcp prompts unavailable", "error", err)
	}
	return s
}

// Run starts the MCP server over stdio transport.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "analyze_class_patterns",
		Description: describeClassPatterns(),
	}, s.handleAnalyzeClassPatterns)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "analyze_class_source",
		Description: describeClassSource(),
	}, s.handleAnalyzeClassSource)
}
