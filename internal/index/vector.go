package index

import (
	"context"
	"fmt"
	"strings"

	"github.com/dshills/gocontext-rag/internal/embedder"
	"github.com/dshills/gocontext-rag/internal/storage"
	"github.com/dshills/gocontext-rag/pkg/types"
)

// Vector embeds the query text and returns the most similar stored chunks
type Vector struct {
	store    storage.Storage
	embedder embedder.Embedder
}

// NewVector creates a vector index over store using emb for query embeddings
func NewVector(store storage.Storage, emb embedder.Embedder) *Vector {
	return &Vector{store: store, embedder: emb}
}

// Search returns up to limit chunks ordered by descending cosine similarity.
// A blank query has nothing to embed and matches nothing.
func (v *Vector) Search(ctx context.Context, query string, tags []types.ScopeTag, limit int) ([]types.Chunk, error) {
	if v.embedder == nil {
		return nil, fmt.Errorf("embedder not initialized")
	}
	if limit <= 0 || strings.TrimSpace(query) == "" {
		return []types.Chunk{}, nil
	}

	embedding, err := v.embedder.GenerateEmbedding(ctx, embedder.EmbeddingRequest{Text: query})
	if err != nil {
		return nil, fmt.Errorf("failed to generate query embedding: %w", err)
	}

	results, err := v.store.SearchVector(ctx, embedding.Vector, tags, limit)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	chunks := make([]types.Chunk, 0, len(results))
	for _, r := range results {
		chunks = append(chunks, r.Chunk.ToTypesChunk())
	}
	return chunks, nil
}
