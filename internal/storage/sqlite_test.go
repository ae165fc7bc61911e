package storage

import (
	"context"
	"fmt"
	"testing"

	"github.com/dshills/gocontext-rag/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	mainScope    = types.ScopeTag{Branch: "main", Directory: "/src/app"}
	featureScope = types.ScopeTag{Branch: "feature", Directory: "/src/app"}
)

func setupTestDB(t *testing.T) *SQLiteStorage {
	t.Helper()
	// Use in-memory database for testing
	storage, err := NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	require.NotNil(t, storage)
	t.Cleanup(func() { _ = storage.Close() })
	return storage
}

func insertChunk(t *testing.T, s *SQLiteStorage, scope types.ScopeTag, path string, index int, content string) *Chunk {
	t.Helper()
	row := FromTypesChunk(types.Chunk{
		Filepath:  path,
		Index:     index,
		Content:   content,
		StartLine: index*10 + 1,
		EndLine:   index*10 + 10,
	}, scope)
	require.NoError(t, s.UpsertChunk(context.Background(), row))
	return row
}

func TestNewSQLiteStorage(t *testing.T) {
	storage := setupTestDB(t)
	assert.NotNil(t, storage.db)

	version, err := CurrentVersion(context.Background(), storage.db)
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, version.String())
}

func TestUpsertChunk(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	first := insertChunk(t, storage, mainScope, "/src/app/a.go", 0, "func Alpha() {}")
	assert.Greater(t, first.ID, int64(0))
	assert.Equal(t, "/src/app/a.go", first.Digest)
	assert.Len(t, first.ContentHash, 64)

	// Same key updates in place
	second := insertChunk(t, storage, mainScope, "/src/app/a.go", 0, "func Bravo() {}")
	assert.Equal(t, first.ID, second.ID)

	got, err := storage.GetChunk(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "func Bravo() {}", got.Content)
	assert.Equal(t, mainScope, got.Scope())

	// FTS follows the update
	results, err := storage.SearchText(ctx, `"alp"`, nil, "", 10)
	require.NoError(t, err)
	assert.Empty(t, results)
	results, err = storage.SearchText(ctx, `"bra"`, nil, "", 10)
	require.NoError(t, err)
	assert.Len(t, results, 1)

	// Another scope is a different row
	other := insertChunk(t, storage, featureScope, "/src/app/a.go", 0, "func Bravo() {}")
	assert.NotEqual(t, first.ID, other.ID)
}

func TestGetChunk_NotFound(t *testing.T) {
	storage := setupTestDB(t)
	_, err := storage.GetChunk(context.Background(), 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListAndDeleteChunksByPath(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	c0 := insertChunk(t, storage, mainScope, "/src/app/a.go", 0, "zero")
	insertChunk(t, storage, mainScope, "/src/app/a.go", 1, "one")
	insertChunk(t, storage, featureScope, "/src/app/a.go", 0, "zero")

	require.NoError(t, storage.UpsertEmbedding(ctx, &Embedding{
		ChunkID: c0.ID, Vector: SerializeVector([]float32{1, 0}), Dimension: 2, Provider: "hash", Model: "hash-2",
	}))

	chunks, err := storage.ListChunksByPath(ctx, mainScope, "/src/app/a.go")
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, 0, chunks[0].ChunkIndex)
	assert.Equal(t, 1, chunks[1].ChunkIndex)

	n, err := storage.DeleteChunksByPath(ctx, mainScope, "/src/app/a.go")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = storage.GetEmbedding(ctx, c0.ID)
	assert.ErrorIs(t, err, ErrNotFound, "embedding should cascade")

	chunks, err = storage.ListChunksByPath(ctx, featureScope, "/src/app/a.go")
	require.NoError(t, err)
	assert.Len(t, chunks, 1)
}

func TestUpsertEmbedding(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()
	c := insertChunk(t, storage, mainScope, "/src/app/a.go", 0, "content")

	emb := &Embedding{ChunkID: c.ID, Vector: SerializeVector([]float32{1, 2}), Dimension: 2, Provider: "p", Model: "m1"}
	require.NoError(t, storage.UpsertEmbedding(ctx, emb))
	assert.Greater(t, emb.ID, int64(0))

	emb2 := &Embedding{ChunkID: c.ID, Vector: SerializeVector([]float32{3, 4}), Dimension: 2, Provider: "p", Model: "m2"}
	require.NoError(t, storage.UpsertEmbedding(ctx, emb2))

	got, err := storage.GetEmbedding(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "m2", got.Model)
	assert.Equal(t, []float32{3, 4}, DeserializeVector(got.Vector))
}

func TestSearchText(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	insertChunk(t, storage, mainScope, "/src/app/http/server.go", 0, "func StartServer() { listen() }")
	insertChunk(t, storage, mainScope, "/src/app/db/store.go", 0, "func OpenStore() { connect() }")
	insertChunk(t, storage, featureScope, "/src/app/http/server.go", 0, "func StartServer() { listenTLS() }")
	insertChunk(t, storage, mainScope, "/src/app/http_old/server.go", 0, "func StartServer() {}")

	match := `"ser" OR "erv"`

	t.Run("all scopes", func(t *testing.T) {
		results, err := storage.SearchText(ctx, match, nil, "", 10)
		require.NoError(t, err)
		assert.Len(t, results, 3)
		for _, r := range results {
			assert.Greater(t, r.BM25Score, 0.0)
			assert.LessOrEqual(t, r.BM25Score, 1.0)
		}
	})

	t.Run("tag filter", func(t *testing.T) {
		results, err := storage.SearchText(ctx, match, []types.ScopeTag{featureScope}, "", 10)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Contains(t, results[0].Chunk.Content, "listenTLS")
	})

	t.Run("directory filter", func(t *testing.T) {
		results, err := storage.SearchText(ctx, match, []types.ScopeTag{mainScope}, "/src/app/http/", 10)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "/src/app/http/server.go", results[0].Chunk.Path)
	})

	t.Run("underscore is literal", func(t *testing.T) {
		results, err := storage.SearchText(ctx, match, nil, "/src/app/http_old", 10)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "/src/app/http_old/server.go", results[0].Chunk.Path)
	})

	t.Run("limit", func(t *testing.T) {
		results, err := storage.SearchText(ctx, match, nil, "", 2)
		require.NoError(t, err)
		assert.Len(t, results, 2)

		results, err = storage.SearchText(ctx, match, nil, "", 0)
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("best match first", func(t *testing.T) {
		results, err := storage.SearchText(ctx, `"sto" OR "ore" OR "con"`, nil, "", 10)
		require.NoError(t, err)
		require.NotEmpty(t, results)
		assert.Equal(t, "/src/app/db/store.go", results[0].Chunk.Path)
	})

	t.Run("empty match", func(t *testing.T) {
		_, err := storage.SearchText(ctx, "  ", nil, "", 10)
		assert.ErrorIs(t, err, ErrEmptyMatch)
	})
}

func TestSearchVector(t *testing.T) {
	if VectorExtensionAvailable {
		t.Skip("requires the sqlite-vec extension to be loaded")
	}

	storage := setupTestDB(t)
	ctx := context.Background()

	vectors := map[string][]float32{
		"east":      {1, 0},
		"northeast": {0.7, 0.7},
		"north":     {0, 1},
	}
	for i, name := range []string{"north", "east", "northeast"} {
		c := insertChunk(t, storage, mainScope, fmt.Sprintf("/src/app/%s.go", name), 0, name)
		require.NoError(t, storage.UpsertEmbedding(ctx, &Embedding{
			ChunkID: c.ID, Vector: SerializeVector(vectors[name]), Dimension: 2, Provider: "test", Model: fmt.Sprint(i),
		}))
	}
	// Different dimension is ignored
	odd := insertChunk(t, storage, mainScope, "/src/app/odd.go", 0, "odd")
	require.NoError(t, storage.UpsertEmbedding(ctx, &Embedding{
		ChunkID: odd.ID, Vector: SerializeVector([]float32{1, 0, 0}), Dimension: 3, Provider: "test", Model: "x",
	}))
	// Out of scope
	other := insertChunk(t, storage, featureScope, "/src/app/east.go", 0, "east")
	require.NoError(t, storage.UpsertEmbedding(ctx, &Embedding{
		ChunkID: other.ID, Vector: SerializeVector([]float32{1, 0}), Dimension: 2, Provider: "test", Model: "x",
	}))

	results, err := storage.SearchVector(ctx, []float32{1, 0}, []types.ScopeTag{mainScope}, 10)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "east", results[0].Chunk.Content)
	assert.Equal(t, "northeast", results[1].Chunk.Content)
	assert.Equal(t, "north", results[2].Chunk.Content)
	assert.InDelta(t, 1.0, results[0].SimilarityScore, 1e-6)

	results, err = storage.SearchVector(ctx, []float32{1, 0}, nil, 2)
	require.NoError(t, err)
	assert.Len(t, results, 2)

	results, err = storage.SearchVector(ctx, []float32{}, nil, 2)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestBeginTx_CommitRollback(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	tx, err := storage.BeginTx(ctx)
	require.NoError(t, err)
	rolled := FromTypesChunk(types.Chunk{Filepath: "/src/app/r.go", Content: "rolled", StartLine: 1, EndLine: 1}, mainScope)
	require.NoError(t, tx.UpsertChunk(ctx, rolled))
	require.NoError(t, tx.Rollback())

	_, err = storage.GetChunk(ctx, rolled.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	tx, err = storage.BeginTx(ctx)
	require.NoError(t, err)
	kept := FromTypesChunk(types.Chunk{Filepath: "/src/app/k.go", Content: "kept", StartLine: 1, EndLine: 1}, mainScope)
	require.NoError(t, tx.UpsertChunk(ctx, kept))
	results, err := tx.SearchText(ctx, `"kep"`, nil, "", 5)
	require.NoError(t, err)
	assert.Len(t, results, 1)
	_, err = tx.BeginTx(ctx)
	assert.ErrorIs(t, err, ErrInTx)
	_, err = tx.GetStatus(ctx)
	assert.ErrorIs(t, err, ErrInTx)
	require.NoError(t, tx.Commit())

	got, err := storage.GetChunk(ctx, kept.ID)
	require.NoError(t, err)
	assert.Equal(t, "kept", got.Content)
}

func TestGetStatus(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	c := insertChunk(t, storage, mainScope, "/src/app/a.go", 0, "a")
	insertChunk(t, storage, mainScope, "/src/app/a.go", 1, "b")
	insertChunk(t, storage, featureScope, "/src/app/b.go", 0, "c")
	require.NoError(t, storage.UpsertEmbedding(ctx, &Embedding{
		ChunkID: c.ID, Vector: SerializeVector([]float32{1}), Dimension: 1, Provider: "p", Model: "m",
	}))

	status, err := storage.GetStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, status.ChunksCount)
	assert.Equal(t, 2, status.PathsCount)
	assert.Equal(t, 2, status.ScopesCount)
	assert.Equal(t, 1, status.EmbeddingsCount)
	assert.Equal(t, CurrentSchemaVersion, status.SchemaVersion)
	assert.Equal(t, BuildMode, status.BuildMode)
	assert.True(t, status.Health.EmbeddingsAvailable)
}
