package index

import (
	"context"
	"errors"
	"testing"

	"github.com/dshills/gocontext-rag/internal/embedder"
	"github.com/dshills/gocontext-rag/internal/normalizer"
	"github.com/dshills/gocontext-rag/internal/storage"
	"github.com/dshills/gocontext-rag/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var scope = types.ScopeTag{Branch: "main", Directory: "/repo"}

func setupStore(t *testing.T) *storage.SQLiteStorage {
	t.Helper()
	store, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func seed(t *testing.T, store storage.Storage, emb embedder.Embedder) {
	t.Helper()
	w := NewWriter(store, emb)
	ctx := context.Background()

	require.NoError(t, w.Replace(ctx, scope, "/repo/config/load.go", []types.Chunk{
		{Filepath: "/repo/config/load.go", Index: 0, Content: "func LoadConfig(path string) (*Config, error)", StartLine: 1, EndLine: 3},
		{Filepath: "/repo/config/load.go", Index: 1, Content: "func parseEnvironment() map[string]string", StartLine: 5, EndLine: 9},
	}))
	require.NoError(t, w.Replace(ctx, scope, "/repo/http/router.go", []types.Chunk{
		{Filepath: "/repo/http/router.go", Index: 0, Content: "func NewRouter() *Router { return &Router{} }", StartLine: 1, EndLine: 1},
	}))
}

func TestFullText_Search(t *testing.T) {
	store := setupStore(t)
	seed(t, store, nil)
	ctx := context.Background()
	ft := NewFullText(store)

	match := normalizer.Disjunction(normalizer.Normalize("load config"))
	chunks, err := ft.Search(ctx, match, []types.ScopeTag{scope}, "", 10)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	assert.Equal(t, "/repo/config/load.go", chunks[0].Filepath)
	assert.Equal(t, 0, chunks[0].Index)
	assert.Equal(t, "/repo/config/load.go", chunks[0].Digest)

	chunks, err = ft.Search(ctx, match, []types.ScopeTag{scope}, "/repo/http", 10)
	require.NoError(t, err)
	for _, c := range chunks {
		assert.Equal(t, "/repo/http/router.go", c.Filepath)
	}

	_, err = ft.Search(ctx, "", nil, "", 10)
	assert.ErrorIs(t, err, storage.ErrEmptyMatch)
}

func TestVector_Search(t *testing.T) {
	if storage.VectorExtensionAvailable {
		t.Skip("requires the sqlite-vec extension to be loaded")
	}

	store := setupStore(t)
	emb := embedder.NewHashProvider(0)
	seed(t, store, emb)
	ctx := context.Background()

	v := NewVector(store, emb)
	chunks, err := v.Search(ctx, "func NewRouter() *Router { return &Router{} }", []types.ScopeTag{scope}, 2)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "/repo/http/router.go", chunks[0].Filepath)

	chunks, err = v.Search(ctx, "anything", []types.ScopeTag{{Branch: "other", Directory: "/repo"}}, 5)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

type failingEmbedder struct {
	embedder.Embedder
}

func (failingEmbedder) GenerateEmbedding(ctx context.Context, req embedder.EmbeddingRequest) (*embedder.Embedding, error) {
	return nil, errors.New("boom")
}

func TestVector_EmbedderFailure(t *testing.T) {
	store := setupStore(t)
	v := NewVector(store, failingEmbedder{})
	_, err := v.Search(context.Background(), "q", nil, 5)
	assert.Error(t, err)

	v = NewVector(store, nil)
	_, err = v.Search(context.Background(), "q", nil, 5)
	assert.Error(t, err)
}

func TestWriter_Replace(t *testing.T) {
	store := setupStore(t)
	emb := embedder.NewHashProvider(16)
	seed(t, store, emb)
	ctx := context.Background()
	w := NewWriter(store, emb)

	// Replacing with fewer chunks removes the stale ones
	require.NoError(t, w.Replace(ctx, scope, "/repo/config/load.go", []types.Chunk{
		{Filepath: "/repo/config/load.go", Content: "func LoadConfig() {}", StartLine: 1, EndLine: 1},
	}))

	rows, err := store.ListChunksByPath(ctx, scope, "/repo/config/load.go")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "func LoadConfig() {}", rows[0].Content)

	e, err := store.GetEmbedding(ctx, rows[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 16, e.Dimension)
	assert.Equal(t, embedder.ProviderHash, e.Provider)

	status, err := store.GetStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, status.ChunksCount)
	assert.Equal(t, 2, status.EmbeddingsCount)
}

func TestWriter_RejectsInvalidChunk(t *testing.T) {
	store := setupStore(t)
	w := NewWriter(store, nil)
	err := w.Replace(context.Background(), scope, "/repo/a.go", []types.Chunk{
		{Filepath: "/repo/a.go", Content: "", StartLine: 1, EndLine: 1},
	})
	assert.ErrorIs(t, err, types.ErrEmptyContent)
}

func TestVector_SearchBlankQuery(t *testing.T) {
	store := setupStore(t)
	v := NewVector(store, embedder.NewHashProvider(0))

	chunks, err := v.Search(context.Background(), "  ", []types.ScopeTag{scope}, 5)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}
