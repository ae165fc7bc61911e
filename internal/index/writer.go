package index

import (
	"context"
	"fmt"

	"github.com/dshills/gocontext-rag/internal/embedder"
	"github.com/dshills/gocontext-rag/internal/storage"
	"github.com/dshills/gocontext-rag/pkg/types"
)

// Writer replaces the stored chunks of a document and, when an embedder is
// configured, their embeddings.
type Writer struct {
	store     storage.Storage
	embedder  embedder.Embedder
	batchSize int
}

// NewWriter creates a writer. emb may be nil to store chunks without embeddings.
func NewWriter(store storage.Storage, emb embedder.Embedder) *Writer {
	return &Writer{store: store, embedder: emb, batchSize: embedder.DefaultBatchSize}
}

// Replace swaps the chunks of path in scope for chunks in one transaction.
// Embeddings are generated before the transaction starts.
func (w *Writer) Replace(ctx context.Context, scope types.ScopeTag, path string, chunks []types.Chunk) error {
	for i, c := range chunks {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("chunk %d of %s: %w", i, path, err)
		}
	}

	vectors, err := w.embed(ctx, chunks)
	if err != nil {
		return err
	}

	tx, err := w.store.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.DeleteChunksByPath(ctx, scope, path); err != nil {
		return fmt.Errorf("delete old chunks: %w", err)
	}

	for i, c := range chunks {
		row := storage.FromTypesChunk(c, scope)
		row.Path = path
		if err := tx.UpsertChunk(ctx, row); err != nil {
			return err
		}
		if vectors == nil || vectors[i] == nil {
			continue
		}
		emb := vectors[i]
		err := tx.UpsertEmbedding(ctx, &storage.Embedding{
			ChunkID:   row.ID,
			Vector:    storage.SerializeVector(emb.Vector),
			Dimension: len(emb.Vector),
			Provider:  emb.Provider,
			Model:     emb.Model,
		})
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (w *Writer) embed(ctx context.Context, chunks []types.Chunk) ([]*embedder.Embedding, error) {
	if w.embedder == nil || len(chunks) == 0 {
		return nil, nil
	}
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	vectors, err := embedder.EmbedTexts(ctx, w.embedder, texts, w.batchSize)
	if err != nil {
		return nil, fmt.Errorf("embed %s: %w", chunks[0].Filepath, err)
	}
	return vectors, nil
}
