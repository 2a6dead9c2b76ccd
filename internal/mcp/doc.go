// Package mcp implements the Model Context Protocol (MCP) server for forester
// corpora.
//
// The server exposes the editor features of a forest to AI assistants:
//   - definition: find the document defining the tree id under the cursor
//   - hover: taxon and title of the tree id under the cursor
//   - workspace_symbols: search trees by id, title or taxon
//   - complete: suggest tree ids inside \transclude{, \ref{, [[ and friends
//   - new_document, list_prefixes, list_templates: create trees
//   - invalidate: force the next query to rebuild the index
//   - status: index phase and rebuild history
//
// # Protocol Overview
//
// MCP is a JSON-RPC 2.0 protocol over stdio transport:
//
//	Client → Server: {"method": "tools/call", "params": {...}}
//	Server → Client: {"result": {...}}
//
// Stdout carries protocol messages only; all logging goes to stderr.
//
// # Basic Usage
//
//	forester-mcp serve --root ~/forest
//
// # Tool: hover
//
//	Request:
//	{
//	  "name": "hover",
//	  "arguments": {
//	    "text": "\\transclude{jms-0001}",
//	    "line": 0,
//	    "character": 14
//	  }
//	}
//
//	Response:
//	{
//	  "found": true,
//	  "contents": "_Definition._ Sheaves on a site",
//	  "range": {"start": {"line": 0, "character": 12}, "end": {"line": 0, "character": 20}}
//	}
//
// The document can be passed as text or read from an absolute path.
//
// # Tool: complete
//
//	Request:
//	{
//	  "name": "complete",
//	  "arguments": {"text": "see [[jms", "line": 0, "character": 9}
//	}
//
//	Response:
//	{
//	  "count": 1,
//	  "items": [{
//	    "label": "Sheaves on a site",
//	    "description": "Definition",
//	    "insertText": "jms-0001",
//	    "range": {"start": {"line": 0, "character": 6}, "end": {"line": 0, "character": 9}},
//	    ...
//	  }]
//	}
//
// # Cancellation
//
// Every tool that reads the index waits on the shared rebuild through the
// request context. Each tool call gets its own context, cancelled when the
// client sends notifications/cancelled with the call's id. A cancelled
// request gets an empty answer, never an error, and leaves the index marked
// stale.
//
// # Error Codes
//
//   - -32602: Invalid parameters
//   - -32603: Internal error
//   - -32001: No workspace root is open
//   - -32002: Another forester command is already running
//   - -32005: forest.toml missing or malformed
//
// A failed rebuild is not an error for the feature tools: they answer from
// an empty index until the corpus changes. The failure shows up in status.
package mcp
