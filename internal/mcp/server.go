package mcp

import (
	"context"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/dshills/gocontext-rag/internal/app"
)

const (
	// ServerName is the MCP server name
	ServerName = "gocontext-rag"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server exposes an App over MCP
type Server struct {
	mcp *server.MCPServer
	app *app.App
}

// NewServer creates an MCP server for a. The caller keeps ownership of a
// and closes it after Serve returns.
func NewServer(a *app.App) *Server {
	s := &Server{
		mcp: server.NewMCPServer(ServerName, ServerVersion),
		app: a,
	}
	s.registerTools()
	return s
}

// Serve runs the server on stdio until ctx is cancelled or stdin closes
func (s *Server) Serve(ctx context.Context) error {
	return server.NewStdioServer(s.mcp).Listen(ctx, os.Stdin, os.Stdout)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(retrieveContextTool(), s.handleRetrieveContext)
	s.mcp.AddTool(recordEditTool(), s.handleRecordEdit)
	s.mcp.AddTool(setOpenFilesTool(), s.handleSetOpenFiles)
	s.mcp.AddTool(indexFilesTool(), s.handleIndexFiles)
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)
}
