// Package mcp exposes the panel over the Model Context Protocol so AI
// agents can list scripts, execute commands, and inspect the audit log
// through the same engine and store as the HTTP API.
package mcp

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/shellboard/shellboard/internal/engine"
	"github.com/shellboard/shellboard/internal/registry"
	"github.com/shellboard/shellboard/internal/store"
)

// MCPServer wraps the mcp-go server with the panel's tool registrations.
type MCPServer struct {
	store    *store.Store
	engine   *engine.Engine
	registry *registry.Registry
	logger   *slog.Logger
	server   *server.MCPServer
}

// NewMCPServer creates an MCPServer pre-loaded with all panel tools. The
// returned server is ready to serve over stdio or HTTP.
func NewMCPServer(st *store.Store, eng *engine.Engine, reg *registry.Registry, logger *slog.Logger) *MCPServer {
	s := &MCPServer{
		store:    st,
		engine:   eng,
		registry: reg,
		logger:   logger,
	}

	mcpServer := server.NewMCPServer(
		"Shellboard Control Panel",
		"0.1.0",
		server.WithToolCapabilities(true),
	)
	s.registerTools(mcpServer)

	s.server = mcpServer
	return s
}

// Server returns the underlying mcp-go server, mainly for tests.
func (s *MCPServer) Server() *server.MCPServer {
	return s.server
}

// ServeStdio starts the MCP server in stdio mode, the integration path for
// clients that launch the server as a subprocess.
func (s *MCPServer) ServeStdio() error {
	s.logger.Info("starting MCP server in stdio mode")
	return server.ServeStdio(s.server)
}

// ServeHTTP starts the MCP server in Streamable HTTP mode on addr.
func (s *MCPServer) ServeHTTP(addr string) error {
	httpServer := server.NewStreamableHTTPServer(s.server)
	s.logger.Info("MCP HTTP server starting", "addr", addr)
	return httpServer.Start(addr)
}

func readOnlyAnnotation() mcp.ToolAnnotation {
	return mcp.ToolAnnotation{ReadOnlyHint: boolPtr(true)}
}

func mutatingAnnotation() mcp.ToolAnnotation {
	return mcp.ToolAnnotation{ReadOnlyHint: boolPtr(false)}
}

func boolPtr(b bool) *bool {
	return &b
}
