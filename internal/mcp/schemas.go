package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// scopeTagsSchema describes the tags argument shared by several tools
func scopeTagsSchema(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "array",
		"description": description,
		"items": map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"branch": map[string]interface{}{
					"type":        "string",
					"description": "Branch name, e.g. main",
				},
				"directory": map[string]interface{}{
					"type":        "string",
					"description": "Absolute repository root the branch belongs to",
				},
			},
			"required": []string{"branch", "directory"},
		},
	}
}

// retrieveContextTool returns the tool definition for retrieve_context
func retrieveContextTool() mcp.Tool {
	return mcp.Tool{
		Name:        "retrieve_context",
		Description: "Retrieve the code chunks most relevant to a query, fusing full-text, embedding and recently edited file signals and reranking them",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Natural language or code-like query. May be empty, in which case only embedding and recency signals are used",
				},
				"tags": scopeTagsSchema("Branches and directories to search. Omit to search every indexed scope"),
				"filter_directory": map[string]interface{}{
					"type":        "string",
					"description": "Optional absolute path prefix restricting full-text results",
				},
				"descending": map[string]interface{}{
					"type":        "boolean",
					"description": "Return the best chunk first. By default chunks are in ascending score order with the best chunk last",
					"default":     false,
				},
			},
			Required: []string{"query"},
		},
	}
}

// recordEditTool returns the tool definition for record_edit
func recordEditTool() mcp.Tool {
	return mcp.Tool{
		Name:        "record_edit",
		Description: "Record that a file was just edited so it is favoured as context",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "File path, absolute or relative to the workspace root",
				},
			},
			Required: []string{"path"},
		},
	}
}

// setOpenFilesTool returns the tool definition for set_open_files
func setOpenFilesTool() mcp.Tool {
	return mcp.Tool{
		Name:        "set_open_files",
		Description: "Replace the list of files open in the editor, most relevant first",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"paths": map[string]interface{}{
					"type":        "array",
					"description": "File paths, absolute or relative to the workspace root",
					"items": map[string]interface{}{
						"type": "string",
					},
				},
			},
			Required: []string{"paths"},
		},
	}
}

// indexFilesTool returns the tool definition for index_files
func indexFilesTool() mcp.Tool {
	return mcp.Tool{
		Name:        "index_files",
		Description: "Chunk workspace files and store them for full-text and embedding retrieval",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"paths": map[string]interface{}{
					"type":        "array",
					"description": "Files or directories inside the workspace. Omit to index the whole workspace",
					"items": map[string]interface{}{
						"type": "string",
					},
				},
				"branch": map[string]interface{}{
					"type":        "string",
					"description": "Branch to tag the chunks with",
					"default":     "main",
				},
			},
		},
	}
}

// getStatusTool returns the tool definition for get_status
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Report index statistics and retrieval pipeline configuration",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
