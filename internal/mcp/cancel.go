package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	// methodCancelled is the client notification that abandons a request
	methodCancelled = "notifications/cancelled"

	// metaRequestKey carries the JSON-RPC id from the call hook to the
	// tool middleware through the request's _meta
	metaRequestKey = "forester-mcp/requestId"
)

// inflightCalls tracks the cancel functions of running tool calls by
// JSON-RPC request id
type inflightCalls struct {
	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

func newInflightCalls() *inflightCalls {
	return &inflightCalls{cancels: make(map[string]context.CancelFunc)}
}

func (c *inflightCalls) add(key string, cancel context.CancelFunc) {
	c.mu.Lock()
	c.cancels[key] = cancel
	c.mu.Unlock()
}

func (c *inflightCalls) remove(key string) {
	c.mu.Lock()
	delete(c.cancels, key)
	c.mu.Unlock()
}

// cancel cancels the call with the given key and reports whether it was running
func (c *inflightCalls) cancel(key string) bool {
	c.mu.Lock()
	cancel, ok := c.cancels[key]
	delete(c.cancels, key)
	c.mu.Unlock()

	if ok {
		cancel()
	}
	return ok
}

func (c *inflightCalls) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.cancels)
}

// tagRequest stamps the call with its JSON-RPC id before the handler runs
func tagRequest(_ context.Context, id any, message *mcp.CallToolRequest) {
	if message.Params.Meta == nil {
		message.Params.Meta = &mcp.Meta{}
	}
	if message.Params.Meta.AdditionalFields == nil {
		message.Params.Meta.AdditionalFields = make(map[string]any)
	}
	message.Params.Meta.AdditionalFields[metaRequestKey] = requestKey(id)
}

func taggedRequest(request mcp.CallToolRequest) (string, bool) {
	if request.Params.Meta == nil {
		return "", false
	}
	key, ok := request.Params.Meta.AdditionalFields[metaRequestKey].(string)
	return key, ok && key != ""
}

// cancellable gives every tool call its own context, cancelled by a
// notifications/cancelled naming the call's id
func (s *Server) cancellable(next server.ToolHandlerFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		key, ok := taggedRequest(request)
		if !ok {
			return next(ctx, request)
		}

		ctx, cancel := context.WithCancel(ctx)
		defer cancel()
		s.inflight.add(key, cancel)
		defer s.inflight.remove(key)

		return next(ctx, request)
	}
}

// handleCancelled cancels the tool call named by the notification.
// Unknown or finished requests are ignored.
func (s *Server) handleCancelled(_ context.Context, notification mcp.JSONRPCNotification) {
	id, ok := notification.Params.AdditionalFields["requestId"]
	if !ok {
		return
	}
	key := requestKey(id)
	if s.inflight.cancel(key) {
		s.logger.Debug("tool call cancelled by client",
			"request_id", key,
			"reason", notification.Params.AdditionalFields["reason"])
	}
}

// requestKey normalizes a JSON-RPC id so that the id seen by the call hook
// and the one decoded from a notification compare equal
func requestKey(id any) string {
	if v, ok := id.(interface{ Value() any }); ok {
		id = v.Value()
	}
	switch v := id.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	case json.Number:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}
