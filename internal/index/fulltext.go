package index

import (
	"context"
	"fmt"

	"github.com/dshills/gocontext-rag/internal/storage"
	"github.com/dshills/gocontext-rag/pkg/types"
)

// FullText searches chunk content through the store's FTS5 trigram index
type FullText struct {
	store storage.Storage
}

// NewFullText creates a full-text index over store
func NewFullText(store storage.Storage) *FullText {
	return &FullText{store: store}
}

// Search runs an FTS5 match expression (typically an OR-joined list of quoted
// trigrams) restricted to tags and directory. Results are best match first.
func (f *FullText) Search(ctx context.Context, query string, tags []types.ScopeTag, directory string, limit int) ([]types.Chunk, error) {
	results, err := f.store.SearchText(ctx, query, tags, directory, limit)
	if err != nil {
		return nil, fmt.Errorf("full-text search: %w", err)
	}

	chunks := make([]types.Chunk, 0, len(results))
	for _, r := range results {
		chunks = append(chunks, r.Chunk.ToTypesChunk())
	}
	return chunks, nil
}
