package retrieval

import (
	"context"
	"iter"

	"github.com/dshills/gocontext-rag/pkg/types"
)

// LexicalIndex runs a disjunctive term query against a full-text index
type LexicalIndex interface {
	Search(ctx context.Context, query string, tags []types.ScopeTag, directory string, limit int) ([]types.Chunk, error)
}

// VectorIndex returns chunks ordered by descending similarity to the query text
type VectorIndex interface {
	Search(ctx context.Context, query string, tags []types.ScopeTag, limit int) ([]types.Chunk, error)
}

// Chunker splits one document into chunks in document order. The returned
// sequence may be iterated more than once.
type Chunker interface {
	Split(path, contents string, maxChunkSize int, digest string) iter.Seq[types.Chunk]
}

// Workspace reads files and reports which ones are open, most relevant first
type Workspace interface {
	ReadFile(ctx context.Context, path string) (string, error)
	OpenFiles(ctx context.Context) ([]string, error)
}

// RecentEdits lists recently edited file identifiers, most recent first.
// It must be safe to call while edits are being recorded.
type RecentEdits interface {
	Recent(n int) []string
}
