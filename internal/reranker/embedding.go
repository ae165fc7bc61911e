package reranker

import (
	"context"
	"fmt"

	"github.com/dshills/gocontext-rag/internal/embedder"
	"github.com/dshills/gocontext-rag/pkg/types"
)

// EmbeddingModel scores chunks by cosine similarity between the query
// embedding and each chunk embedding.
type EmbeddingModel struct {
	embedder embedder.Embedder
}

// NewEmbeddingModel creates a bi-encoder relevance model
func NewEmbeddingModel(emb embedder.Embedder) *EmbeddingModel {
	return &EmbeddingModel{embedder: emb}
}

// Name returns the provider and model of the underlying embedder
func (m *EmbeddingModel) Name() string {
	return "embedding:" + m.embedder.Provider() + "/" + m.embedder.Model()
}

func (m *EmbeddingModel) Score(ctx context.Context, query string, chunks []types.Chunk) ([]float64, error) {
	scores := make([]float64, len(chunks))
	if len(chunks) == 0 {
		return scores, nil
	}
	if query == "" {
		// Nothing to compare against; every chunk is equally relevant
		return scores, nil
	}

	q, err := m.embedder.GenerateEmbedding(ctx, embedder.EmbeddingRequest{Text: query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	// Empty chunks are not sent; they keep a zero score
	embs, err := embedder.EmbedTexts(ctx, m.embedder, texts, embedder.MaxBatchSize)
	if err != nil {
		return nil, fmt.Errorf("embed chunks: %w", err)
	}
	for i, emb := range embs {
		if emb != nil {
			scores[i] = embedder.CosineSimilarity(q.Vector, emb.Vector)
		}
	}
	return scores, nil
}
