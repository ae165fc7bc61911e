// Package types provides the shared type definitions of the retrieval pipeline.
//
// # Core Types
//
// Chunk is the atomic unit of retrieval, a span of lines from one document:
//
//	chunk := types.Chunk{
//	    Filepath:  "internal/auth/session.go",
//	    Digest:    "internal/auth/session.go",
//	    Content:   body,
//	    StartLine: 12,
//	    EndLine:   48,
//	}
//
// Two chunks overlap when they share a digest and their line spans intersect:
//
//	if a.Overlaps(b) {
//	    // keep only one of them
//	}
//
// ScopeTag restricts a retrieval to one (branch, directory) snapshot of the
// workspace, and RetrievalRequest bundles the query text, tags, optional
// directory filter and requested result count.
package types
