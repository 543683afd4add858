package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/server"
	"github.com/urmzd/tuyamon/pkg/db"
	"github.com/urmzd/tuyamon/pkg/device"
	"github.com/urmzd/tuyamon/pkg/device/schema"
	"github.com/urmzd/tuyamon/pkg/dps"
)

// Pinger reports database reachability.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Deps are the services the tools read from.
type Deps struct {
	Catalog   *device.Catalog
	Statuses  db.StatusStore
	DB        Pinger
	Validator *schema.Validator
	Format    dps.Format
}

// Server exposes the device catalog, saved statuses and the decoder as MCP tools.
type Server struct {
	mcpServer *server.MCPServer
	deps      Deps
}

// NewServer creates a new MCP server
func NewServer(deps Deps) *Server {
	s := &Server{deps: deps}

	s.mcpServer = server.NewMCPServer(
		"tuyamon",
		"1.0.0",
		server.WithToolCapabilities(true),
	)
	s.registerTools()

	return s
}

// ServeStdio starts the MCP server using stdio transport
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}
