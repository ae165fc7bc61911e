package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/gocontext-rag/internal/reranker"
	"github.com/dshills/gocontext-rag/internal/workspace"
	"github.com/dshills/gocontext-rag/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams    = -32602 // Invalid method parameters
	ErrorCodeInternalError    = -32603 // Internal JSON-RPC error
	ErrorCodeOutsideWorkspace = -32001 // Path resolves outside the workspace root
	ErrorCodeNoRelevanceModel = -32005 // Retrieval requested without a relevance model
)

// chunkResult is the wire form of a retrieved chunk
type chunkResult struct {
	Filepath  string `json:"filepath"`
	Digest    string `json:"digest"`
	Index     int    `json:"index"`
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`
	Content   string `json:"content"`
}

// handleRetrieveContext handles the retrieve_context tool invocation
func (s *Server) handleRetrieveContext(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}

	query, ok := args["query"].(string)
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "query parameter is required", map[string]interface{}{
			"param":  "query",
			"reason": "missing or not a string",
		})
	}

	tags, err := parseTags(args["tags"])
	if err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid tags", map[string]interface{}{
			"param":  "tags",
			"reason": err.Error(),
		})
	}

	filterDirectory := getStringDefault(args, "filter_directory", "")
	descending := getBoolDefault(args, "descending", false)

	chunks, err := s.app.Retrieve(ctx, query, tags, filterDirectory)
	if errors.Is(err, reranker.ErrNoRelevanceModel) {
		return nil, newMCPError(ErrorCodeNoRelevanceModel, "no relevance model configured", map[string]interface{}{
			"hint": "set GOCONTEXT_RERANKER to jina or embedding",
		})
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "retrieval failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	results := make([]chunkResult, 0, len(chunks))
	for _, c := range chunks {
		results = append(results, chunkResult{
			Filepath:  c.Filepath,
			Digest:    c.DocumentID(),
			Index:     c.Index,
			StartLine: c.StartLine,
			EndLine:   c.EndLine,
			Content:   c.Content,
		})
	}
	order := "ascending"
	if descending {
		slices.Reverse(results)
		order = "descending"
	}

	response := map[string]interface{}{
		"query":  query,
		"order":  order,
		"count":  len(results),
		"chunks": results,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleRecordEdit handles the record_edit tool invocation
func (s *Server) handleRecordEdit(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}

	path, ok := args["path"].(string)
	if !ok || path == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "path parameter is required", map[string]interface{}{
			"param":  "path",
			"reason": "missing or empty",
		})
	}

	abs, err := s.app.RecordEdit(path)
	if err != nil {
		return nil, pathError(path, err)
	}

	response := map[string]interface{}{
		"recorded":     abs,
		"recent_files": s.app.Recent.Len(),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleSetOpenFiles handles the set_open_files tool invocation
func (s *Server) handleSetOpenFiles(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}

	paths, err := getStringSlice(args, "paths")
	if err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "paths must be an array of strings", map[string]interface{}{
			"param":  "paths",
			"reason": err.Error(),
		})
	}

	open := s.app.Workspace.SetOpenFiles(paths)
	response := map[string]interface{}{
		"open_files": open,
		"dropped":    len(paths) - len(open),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleIndexFiles handles the index_files tool invocation
func (s *Server) handleIndexFiles(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}

	paths, err := getStringSlice(args, "paths")
	if err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "paths must be an array of strings", map[string]interface{}{
			"param":  "paths",
			"reason": err.Error(),
		})
	}
	scope := s.app.DefaultScope(getStringDefault(args, "branch", ""))

	stats, err := s.app.Ingest(ctx, scope, paths)
	if errors.Is(err, workspace.ErrOutsideRoot) {
		return nil, pathError(fmt.Sprint(paths), err)
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "indexing failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"indexed":        true,
		"scope":          map[string]interface{}{"branch": scope.Branch, "directory": scope.Directory},
		"files_indexed":  stats.FilesIndexed,
		"files_skipped":  stats.FilesSkipped,
		"files_failed":   stats.FilesFailed,
		"chunks_created": stats.ChunksCreated,
		"duration_ms":    stats.Duration.Milliseconds(),
	}

	if len(stats.ErrorMessages) > 0 {
		// Include first few errors
		errorCount := len(stats.ErrorMessages)
		if errorCount > 5 {
			response["errors"] = stats.ErrorMessages[:5]
			response["error_count"] = errorCount
		} else {
			response["errors"] = stats.ErrorMessages
		}
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if _, err := arguments(request); err != nil {
		return nil, err
	}

	status, err := s.app.Store.GetStatus(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get status", map[string]interface{}{
			"error": err.Error(),
		})
	}

	open, _ := s.app.Workspace.OpenFiles(ctx)
	opts := s.app.Pipeline.Options()

	response := map[string]interface{}{
		"statistics": map[string]interface{}{
			"chunks_count":     status.ChunksCount,
			"embeddings_count": status.EmbeddingsCount,
			"paths_count":      status.PathsCount,
			"scopes_count":     status.ScopesCount,
			"index_size_mb":    fmt.Sprintf("%.2f", status.IndexSizeMB),
			"schema_version":   status.SchemaVersion,
			"build_mode":       status.BuildMode,
		},
		"health": map[string]interface{}{
			"database_accessible":  status.Health.DatabaseAccessible,
			"embeddings_available": status.Health.EmbeddingsAvailable,
			"fts_indexes_built":    status.Health.FTSIndexesBuilt,
			"vector_extension":     status.Health.VectorExtension,
		},
		"pipeline": map[string]interface{}{
			"n_retrieve":      opts.NRetrieve,
			"n_final":         opts.NFinal,
			"max_chunk_size":  opts.MaxChunkSize,
			"expansion":       opts.Expansion.Enabled,
			"relevance_model": s.app.RelevanceModelName(),
			"threshold":       s.app.Reranker.Threshold.Enabled,
			"embedder":        s.app.Embedder.Provider() + "/" + s.app.Embedder.Model(),
		},
		"workspace": map[string]interface{}{
			"root":         s.app.Workspace.Root(),
			"recent_files": s.app.Recent.Len(),
			"open_files":   len(open),
		},
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

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

// pathError maps a workspace path failure to an MCP error
func pathError(path string, err error) error {
	code := ErrorCodeInvalidParams
	if errors.Is(err, workspace.ErrOutsideRoot) {
		code = ErrorCodeOutsideWorkspace
	}
	return newMCPError(code, "invalid path", map[string]interface{}{
		"param":  "path",
		"value":  path,
		"reason": err.Error(),
	})
}

// arguments returns the request arguments; a call without arguments yields an empty map
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

// parseTags decodes the tags argument. A missing argument means no restriction.
func parseTags(raw interface{}) ([]types.ScopeTag, error) {
	if raw == nil {
		return nil, nil
	}
	items, ok := raw.([]interface{})
	if !ok {
		return nil, errors.New("tags must be an array")
	}

	tags := make([]types.ScopeTag, 0, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("tag %d is not an object", i)
		}
		branch, _ := obj["branch"].(string)
		directory, _ := obj["directory"].(string)
		if branch == "" || directory == "" {
			return nil, fmt.Errorf("tag %d needs branch and directory", i)
		}
		tags = append(tags, types.ScopeTag{Branch: branch, Directory: directory})
	}
	return tags, nil
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
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

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}

// getStringSlice extracts an optional array of strings
func getStringSlice(args map[string]interface{}, key string) ([]string, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return nil, nil
	}
	switch v := raw.(type) {
	case []string:
		return v, nil
	case []interface{}:
		out := make([]string, 0, len(v))
		for i, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("element %d is not a string", i)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%s must be an array", key)
	}
}
