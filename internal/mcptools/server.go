package mcptools

import (
	"github.com/mark3labs/mcp-go/server"

	"envswitch/internal/manager"
	"envswitch/pkg/logging"
)

// NewServer assembles the MCP server with all environment tools registered.
func NewServer(mgr *manager.Manager, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"envswitch",
		version,
		server.WithToolCapabilities(true),
	)
	s.AddTools(New(mgr).ServerTools()...)
	return s
}

// ServeStdio runs the MCP server over stdin/stdout until the client
// disconnects. This is the transport editors and agents spawn the tool with.
func ServeStdio(mgr *manager.Manager, version string) error {
	logging.Info(logSubsystem, "Serving environment tools over MCP stdio")
	return server.ServeStdio(NewServer(mgr, version))
}
