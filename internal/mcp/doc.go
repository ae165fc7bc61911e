// Package mcp implements the Model Context Protocol (MCP) server for gocontext-rag.
//
// The server exposes five tools to AI coding assistants:
//   - retrieve_context: Run the retrieval pipeline for a query
//   - record_edit: Mark a file as just edited
//   - set_open_files: Replace the editor's open file list
//   - index_files: Chunk and store workspace files
//   - get_status: Report index statistics and pipeline configuration
//
// # Protocol Overview
//
// MCP is a JSON-RPC 2.0 protocol over stdio transport:
//
//	Client → Server: {"method": "tools/call", "params": {...}}
//	Server → Client: {"result": {...}}
//
// The server is typically started via the serve command:
//
//	gocontext-rag serve
//
// # Tool: retrieve_context
//
//	Request:
//	{
//	  "name": "retrieve_context",
//	  "arguments": {
//	    "query": "where is the config file parsed",
//	    "tags": [{"branch": "main", "directory": "/src/project"}],
//	    "filter_directory": "/src/project/internal",
//	    "descending": false
//	  }
//	}
//
//	Response:
//	{
//	  "query": "where is the config file parsed",
//	  "order": "ascending",
//	  "count": 2,
//	  "chunks": [
//	    {"filepath": "/src/project/cmd/main.go", "digest": "/src/project/cmd/main.go",
//	     "index": 0, "start_line": 1, "end_line": 14, "content": "..."},
//	    {"filepath": "/src/project/internal/config/load.go", ...}
//	  ]
//	}
//
// Chunks are in ascending relevance order, so the best chunk is last, unless
// descending is set.
//
// # Tools: record_edit and set_open_files
//
// Editors report activity so recently touched files are offered as context
// even before they are indexed:
//
//	{"name": "record_edit", "arguments": {"path": "internal/config/load.go"}}
//	{"name": "set_open_files", "arguments": {"paths": ["cmd/main.go", "go.mod"]}}
//
// Paths may be relative to the workspace root. Paths outside the root are
// rejected by record_edit and dropped by set_open_files.
//
// # MCP Client Configuration
//
//	{
//	  "mcpServers": {
//	    "gocontext-rag": {
//	      "command": "/usr/local/bin/gocontext-rag",
//	      "args": ["serve", "--workspace", "/src/project"],
//	      "env": {
//	        "JINA_API_KEY": "your-api-key",
//	        "GOCONTEXT_RERANKER": "jina"
//	      }
//	    }
//	  }
//	}
//
// # Error Handling
//
// Error codes:
//   - -32602: Invalid params (missing/invalid arguments)
//   - -32603: Internal error (database, embedder, relevance model)
//   - -32001: Path outside the workspace root
//   - -32005: No relevance model configured
//
// The server logs to stderr; stdout is reserved for the protocol.
package mcp
