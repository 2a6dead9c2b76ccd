package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/forester-mcp/internal/indexer"
	"github.com/dshills/forester-mcp/internal/provider"
	"github.com/dshills/forester-mcp/internal/storage"
	"github.com/dshills/forester-mcp/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams     = -32602 // Invalid method parameters
	ErrorCodeInternalError     = -32603 // Internal JSON-RPC error
	ErrorCodeNoWorkspaceRoot   = -32001 // No workspace root is open
	ErrorCodeCommandInProgress = -32002 // Another forester command is already running
	ErrorCodeConfig            = -32005 // forest.toml missing or malformed
)

// handleDefinition handles the definition tool invocation
func (s *Server) handleDefinition(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, pos, err := documentArgs(request)
	if err != nil {
		return nil, err
	}

	loc, err := s.provider.Definition(ctx, text, pos)
	if err != nil {
		return nil, toolError("definition failed", err)
	}
	if loc == nil {
		return mcp.NewToolResultText(formatJSON(map[string]interface{}{"found": false})), nil
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"found":    true,
		"location": loc,
	})), nil
}

// handleHover handles the hover tool invocation
func (s *Server) handleHover(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, pos, err := documentArgs(request)
	if err != nil {
		return nil, err
	}

	hover, err := s.provider.Hover(ctx, text, pos)
	if err != nil {
		return nil, toolError("hover failed", err)
	}
	if hover == nil {
		return mcp.NewToolResultText(formatJSON(map[string]interface{}{"found": false})), nil
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"found":    true,
		"contents": hover.Contents,
		"range":    hover.Range,
	})), nil
}

// handleWorkspaceSymbols handles the workspace_symbols tool invocation
func (s *Server) handleWorkspaceSymbols(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}
	query := getStringDefault(args, "query", "")

	symbols, err := s.provider.WorkspaceSymbols(ctx, query)
	if err != nil {
		return nil, toolError("workspace symbol search failed", err)
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"count":   len(symbols),
		"symbols": symbols,
	})), nil
}

// handleComplete handles the complete tool invocation
func (s *Server) handleComplete(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, pos, err := documentArgs(request)
	if err != nil {
		return nil, err
	}

	items, err := s.provider.Complete(ctx, text, pos)
	if err != nil {
		return nil, toolError("completion failed", err)
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"count": len(items),
		"items": items,
	})), nil
}

// handleNewDocument handles the new_document tool invocation
func (s *Server) handleNewDocument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}

	prefix, ok := args["prefix"].(string)
	if !ok || prefix == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "prefix parameter is required", map[string]interface{}{
			"param":  "prefix",
			"reason": "missing or empty",
		})
	}

	req := provider.CreateRequest{
		Prefix:   prefix,
		Dest:     getStringDefault(args, "dest", ""),
		Template: getStringDefault(args, "template", ""),
	}
	if random, ok := args["random"].(bool); ok {
		req.Random = &random
	}

	path, err := s.creator.CreateDocument(ctx, req)
	if err != nil {
		return nil, toolError("document creation failed", err)
	}

	// The new tree is not in the index yet
	s.tracker.Invalidate()

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"created": true,
		"path":    path,
	})), nil
}

// handleListPrefixes handles the list_prefixes tool invocation
func (s *Server) handleListPrefixes(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	prefixes, err := s.creator.Prefixes()
	if err != nil {
		return nil, toolError("failed to read prefixes", err)
	}
	if prefixes == nil {
		prefixes = []string{}
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"prefixes": prefixes,
	})), nil
}

// handleListTemplates handles the list_templates tool invocation
func (s *Server) handleListTemplates(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	templates, err := s.creator.Templates()
	if err != nil {
		return nil, toolError("failed to list templates", err)
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"templates": templates,
	})), nil
}

// handleInvalidate handles the invalidate tool invocation
func (s *Server) handleInvalidate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}

	s.tracker.Invalidate()
	response := map[string]interface{}{"invalidated": true}

	if getBoolDefault(args, "warm", false) {
		if err := s.coordinator.Warm(); err != nil {
			return nil, toolError("failed to start rebuild", err)
		}
		response["rebuilding"] = true
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleStatus handles the status tool invocation
func (s *Server) handleStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}

	history := getIntDefault(args, "history", 5)
	if history < 0 || history > 100 {
		return nil, newMCPError(ErrorCodeInvalidParams, "history must be between 0 and 100", map[string]interface{}{
			"param": "history",
			"value": history,
		})
	}

	snap := s.coordinator.State().Snapshot()
	index := map[string]interface{}{
		"phase":      snap.Phase.String(),
		"stale":      snap.Stale,
		"generation": snap.Generation,
		"entries":    snap.Entries,
	}
	if snap.Root != "" {
		index["root"] = snap.Root
	}
	if snap.Err != nil {
		index["error"] = snap.Err.Error()
	}
	if !snap.StartedAt.IsZero() {
		index["started_at"] = snap.StartedAt.Format(time.RFC3339)
	}
	if !snap.FinishedAt.IsZero() {
		index["finished_at"] = snap.FinishedAt.Format(time.RFC3339)
	}

	response := map[string]interface{}{"index": index}

	root, err := s.roots.Root()
	if err != nil {
		response["workspace_error"] = err.Error()
	} else {
		response["root"] = root
	}

	if s.journal == nil {
		response["journal"] = map[string]interface{}{"enabled": false}
	} else if root != "" {
		journal, err := s.journalStatus(ctx, root, history)
		if err != nil {
			return nil, newMCPError(ErrorCodeInternalError, "failed to read journal", map[string]interface{}{
				"error": err.Error(),
			})
		}
		response["journal"] = journal
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

func (s *Server) journalStatus(ctx context.Context, root string, history int) (map[string]interface{}, error) {
	ws, err := s.journal.GetWorkspace(ctx, root)
	if errors.Is(err, storage.ErrNotFound) {
		return map[string]interface{}{"enabled": true, "rebuilds": 0}, nil
	}
	if err != nil {
		return nil, err
	}

	status, err := s.journal.GetStatus(ctx, ws.ID)
	if err != nil {
		return nil, err
	}
	journal := map[string]interface{}{
		"enabled":  true,
		"rebuilds": status.Rebuilds,
		"failures": status.Failures,
		"aborted":  status.Aborted,
	}
	if status.LastReady != nil {
		journal["last_ready"] = formatRebuild(status.LastReady)
	}
	if status.LastFailure != nil {
		journal["last_failure"] = formatRebuild(status.LastFailure)
	}

	if history > 0 {
		records, err := s.journal.ListRebuilds(ctx, ws.ID, history)
		if err != nil {
			return nil, err
		}
		recent := make([]map[string]interface{}, 0, len(records))
		for _, rec := range records {
			recent = append(recent, formatRebuild(rec))
		}
		journal["recent"] = recent
	}
	return journal, nil
}

func formatRebuild(rec *storage.RebuildRecord) map[string]interface{} {
	out := map[string]interface{}{
		"generation":  rec.Generation,
		"outcome":     rec.Outcome,
		"entries":     rec.EntryCount,
		"finished_at": rec.FinishedAt.Format(time.RFC3339),
		"duration_ms": rec.Duration().Milliseconds(),
	}
	if rec.Outcome == storage.OutcomeReady {
		out["fingerprint"] = fmt.Sprintf("%016x", rec.Fingerprint)
		out["changed"] = rec.Changed
	}
	if rec.Error != nil {
		out["error"] = *rec.Error
	}
	return out
}

// Helper functions

// toolError maps a domain error to an MCP error
func toolError(message string, err error) error {
	data := map[string]interface{}{"error": err.Error()}

	var cfgErr *types.ConfigError
	switch {
	case errors.Is(err, types.ErrNoWorkspaceRoot):
		return newMCPError(ErrorCodeNoWorkspaceRoot, "no workspace root is open", data)
	case errors.As(err, &cfgErr):
		data["path"] = cfgErr.Path
		return newMCPError(ErrorCodeConfig, "invalid workspace configuration", data)
	case errors.Is(err, types.ErrInvalidPrefix), errors.Is(err, types.ErrUnknownTemplate):
		return newMCPError(ErrorCodeInvalidParams, message, data)
	case errors.Is(err, indexer.ErrCommandInProgress):
		return newMCPError(ErrorCodeCommandInProgress, message, data)
	default:
		return newMCPError(ErrorCodeInternalError, message, data)
	}
}

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// arguments returns the tool arguments as a map
func arguments(request mcp.CallToolRequest) (map[string]interface{}, error) {
	if request.Params.Arguments == nil {
		return map[string]interface{}{}, nil
	}
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}
	return args, nil
}

// documentArgs extracts the document text and cursor position
func documentArgs(request mcp.CallToolRequest) (string, provider.Position, error) {
	args, err := arguments(request)
	if err != nil {
		return "", provider.Position{}, err
	}

	line, lineOK := getInt(args, "line")
	character, charOK := getInt(args, "character")
	if !lineOK || !charOK || line < 0 || character < 0 {
		return "", provider.Position{}, newMCPError(ErrorCodeInvalidParams, "line and character are required", map[string]interface{}{
			"param":  "line, character",
			"reason": "missing or negative",
		})
	}
	pos := provider.Position{Line: line, Character: character}

	if text, ok := args["text"].(string); ok {
		return text, pos, nil
	}

	path, ok := args["path"].(string)
	if !ok || path == "" {
		return "", pos, newMCPError(ErrorCodeInvalidParams, "text or path parameter is required", map[string]interface{}{
			"param":  "text",
			"reason": "missing",
		})
	}
	if !filepath.IsAbs(path) {
		return "", pos, newMCPError(ErrorCodeInvalidParams, "path must be absolute", map[string]interface{}{
			"param": "path",
			"value": path,
		})
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", pos, newMCPError(ErrorCodeInvalidParams, "failed to read document", map[string]interface{}{
			"param":  "path",
			"reason": err.Error(),
		})
	}
	return string(data), pos, nil
}

// formatJSON formats a value as indented JSON
func formatJSON(data interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getInt extracts an integer parameter; JSON numbers arrive as float64
func getInt(args map[string]interface{}, key string) (int, bool) {
	switch val := args[key].(type) {
	case float64:
		return int(val), true
	case int:
		return val, true
	}
	return 0, false
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := getInt(args, key); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}
