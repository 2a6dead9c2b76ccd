package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// documentProperties are the arguments locating a cursor in a document
func documentProperties() map[string]interface{} {
	return map[string]interface{}{
		"text": map[string]interface{}{
			"type":        "string",
			"description": "Full text of the document. Read from path when omitted",
		},
		"path": map[string]interface{}{
			"type":        "string",
			"description": "Absolute path of the document, used when text is omitted",
		},
		"line": map[string]interface{}{
			"type":        "integer",
			"description": "Zero-based line of the cursor",
			"minimum":     0,
		},
		"character": map[string]interface{}{
			"type":        "integer",
			"description": "Zero-based character of the cursor within the line",
			"minimum":     0,
		},
	}
}

// definitionTool returns the tool definition for definition
func definitionTool() mcp.Tool {
	return mcp.Tool{
		Name:        "definition",
		Description: "Find the document that defines the tree id under the cursor",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: documentProperties(),
			Required:   []string{"line", "character"},
		},
	}
}

// hoverTool returns the tool definition for hover
func hoverTool() mcp.Tool {
	return mcp.Tool{
		Name:        "hover",
		Description: "Describe the tree id under the cursor by taxon and title",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: documentProperties(),
			Required:   []string{"line", "character"},
		},
	}
}

// workspaceSymbolsTool returns the tool definition for workspace_symbols
func workspaceSymbolsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "workspace_symbols",
		Description: "List trees whose id, title or taxon contains the query, ignoring case",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Substring to look for; empty lists every tree",
					"default":     "",
				},
			},
		},
	}
}

// completeTool returns the tool definition for complete
func completeTool() mcp.Tool {
	return mcp.Tool{
		Name: "complete",
		Description: "Suggest tree ids at the cursor. Only offered after \\transclude{, \\import{, " +
			"\\export{, \\ref{, \\citek{, \\citet{..}{, [text]( and [[",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: documentProperties(),
			Required:   []string{"line", "character"},
		},
	}
}

// newDocumentTool returns the tool definition for new_document
func newDocumentTool() mcp.Tool {
	return mcp.Tool{
		Name:        "new_document",
		Description: "Create a new tree with forester new and return its path",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"prefix": map[string]interface{}{
					"type":        "string",
					"description": "Id prefix, one of list_prefixes or a new one",
				},
				"dest": map[string]interface{}{
					"type":        "string",
					"description": "Destination directory, relative to the workspace root when not absolute",
				},
				"template": map[string]interface{}{
					"type":        "string",
					"description": "Template name from list_templates; omit for none",
				},
				"random": map[string]interface{}{
					"type":        "boolean",
					"description": "Allocate a random id instead of the next sequential one",
				},
			},
			Required: []string{"prefix"},
		},
	}
}

// listPrefixesTool returns the tool definition for list_prefixes
func listPrefixesTool() mcp.Tool {
	return mcp.Tool{
		Name:        "list_prefixes",
		Description: "List the id prefixes declared in forest.toml",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

// listTemplatesTool returns the tool definition for list_templates
func listTemplatesTool() mcp.Tool {
	return mcp.Tool{
		Name:        "list_templates",
		Description: "List the templates available to new_document",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

// invalidateTool returns the tool definition for invalidate
func invalidateTool() mcp.Tool {
	return mcp.Tool{
		Name:        "invalidate",
		Description: "Mark the tree index stale so the next query rebuilds it",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"warm": map[string]interface{}{
					"type":        "boolean",
					"description": "Start the rebuild now instead of on the next query",
					"default":     false,
				},
			},
		},
	}
}

// statusTool returns the tool definition for status
func statusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "status",
		Description: "Report the state of the tree index and recent rebuild history",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"history": map[string]interface{}{
					"type":        "integer",
					"description": "Number of recent rebuilds to include (0-100)",
					"default":     5,
					"minimum":     0,
					"maximum":     100,
				},
			},
		},
	}
}
