package mcp

import (
	"context"
	"io"
	"log/slog"

	"github.com/mark3labs/mcp-go/server"

	"github.com/dshills/forester-mcp/internal/cache"
	"github.com/dshills/forester-mcp/internal/logging"
	"github.com/dshills/forester-mcp/internal/provider"
	"github.com/dshills/forester-mcp/internal/storage"
)

const (
	// ServerName is the MCP server name
	ServerName = "forester-mcp"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// RootResolver resolves the workspace root for a request
type RootResolver interface {
	Root() (string, error)
}

// Deps are the components the tools are served from
type Deps struct {
	Coordinator *cache.Coordinator
	Tracker     *cache.Tracker
	Provider    *provider.Provider
	Creator     *provider.Creator
	Roots       RootResolver
	Journal     storage.Storage // Nil when the journal is disabled
	Logger      *slog.Logger
}

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp         *server.MCPServer
	coordinator *cache.Coordinator
	tracker     *cache.Tracker
	provider    *provider.Provider
	creator     *provider.Creator
	roots       RootResolver
	journal     storage.Storage
	logger      *slog.Logger
	inflight    *inflightCalls
}

// NewServer creates a new MCP server instance
func NewServer(deps Deps) *Server {
	s := &Server{
		coordinator: deps.Coordinator,
		tracker:     deps.Tracker,
		provider:    deps.Provider,
		creator:     deps.Creator,
		roots:       deps.Roots,
		journal:     deps.Journal,
		logger:      logging.OrDiscard(deps.Logger),
		inflight:    newInflightCalls(),
	}

	hooks := &server.Hooks{}
	hooks.AddBeforeCallTool(tagRequest)

	s.mcp = server.NewMCPServer(
		ServerName,
		ServerVersion,
		server.WithToolCapabilities(false),
		server.WithHooks(hooks),
		server.WithToolHandlerMiddleware(s.cancellable),
	)
	s.mcp.AddNotificationHandler(methodCancelled, s.handleCancelled)
	s.registerTools()
	return s
}

// Serve runs the MCP protocol over in and out until ctx is cancelled or
// in is closed
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(slog.NewLogLogger(s.logger.Handler(), slog.LevelError))

	s.logger.Info("mcp server listening", "name", ServerName, "version", ServerVersion)
	return stdio.Listen(ctx, in, out)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	// Editor features
	s.mcp.AddTool(definitionTool(), s.handleDefinition)
	s.mcp.AddTool(hoverTool(), s.handleHover)
	s.mcp.AddTool(workspaceSymbolsTool(), s.handleWorkspaceSymbols)
	s.mcp.AddTool(completeTool(), s.handleComplete)

	// Document creation
	s.mcp.AddTool(newDocumentTool(), s.handleNewDocument)
	s.mcp.AddTool(listPrefixesTool(), s.handleListPrefixes)
	s.mcp.AddTool(listTemplatesTool(), s.handleListTemplates)

	// Cache control
	s.mcp.AddTool(invalidateTool(), s.handleInvalidate)
	s.mcp.AddTool(statusTool(), s.handleStatus)
}
