package embedder

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dshills/gocontext-rag/internal/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetry() retry.Config {
	return retry.Config{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Multiplier: 2}
}

// embeddingServer answers every request with one 3-dim vector per input text,
// filled with the text's index + 1. Responses are returned in reverse order.
func embeddingServer(t *testing.T, calls *int32, failFirst int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(calls, 1)
		if n <= failFirst {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}

		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var body struct {
			Input []string `json:"input"`
			Model string   `json:"model"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		data := make([]map[string]interface{}, 0, len(body.Input))
		for i := len(body.Input) - 1; i >= 0; i-- {
			v := float32(i + 1)
			data = append(data, map[string]interface{}{
				"index":     i,
				"embedding": []float32{v, v, v},
			})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"model": body.Model, "data": data})
	}))
}

func TestHTTPProvider(t *testing.T) {
	ctx := context.Background()

	t.Run("batch preserves input order", func(t *testing.T) {
		var calls int32
		server := embeddingServer(t, &calls, 0)
		defer server.Close()

		p, err := NewJinaProvider("test-key", NewCache(10), WithEndpoint(server.URL), WithRetry(fastRetry()))
		require.NoError(t, err)
		defer p.Close()

		resp, err := p.GenerateBatch(ctx, BatchEmbeddingRequest{Texts: []string{"a", "b", "c"}})
		require.NoError(t, err)
		require.Len(t, resp.Embeddings, 3)
		for i, emb := range resp.Embeddings {
			assert.Equal(t, float32(i+1), emb.Vector[0])
			assert.Equal(t, ProviderJina, emb.Provider)
		}
		assert.Equal(t, DefaultJinaModel, resp.Model)
	})

	t.Run("single embedding is cached", func(t *testing.T) {
		var calls int32
		server := embeddingServer(t, &calls, 0)
		defer server.Close()

		p, err := NewOpenAIProvider("test-key", NewCache(10), WithEndpoint(server.URL), WithRetry(fastRetry()))
		require.NoError(t, err)

		first, err := p.GenerateEmbedding(ctx, EmbeddingRequest{Text: "hello"})
		require.NoError(t, err)
		second, err := p.GenerateEmbedding(ctx, EmbeddingRequest{Text: "hello"})
		require.NoError(t, err)

		assert.Equal(t, first.Vector, second.Vector)
		assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
		assert.Equal(t, ComputeHash("hello"), second.Hash)
	})

	t.Run("batch sends only cache misses", func(t *testing.T) {
		var calls int32
		server := embeddingServer(t, &calls, 0)
		defer server.Close()

		p, err := NewJinaProvider("test-key", NewCache(10), WithEndpoint(server.URL), WithRetry(fastRetry()))
		require.NoError(t, err)

		_, err = p.GenerateBatch(ctx, BatchEmbeddingRequest{Texts: []string{"a", "b"}})
		require.NoError(t, err)

		resp, err := p.GenerateBatch(ctx, BatchEmbeddingRequest{Texts: []string{"a", "c", "b"}})
		require.NoError(t, err)
		require.Len(t, resp.Embeddings, 3)
		assert.Equal(t, int32(2), atomic.LoadInt32(&calls))

		assert.Equal(t, float32(1), resp.Embeddings[0].Vector[0], "a from cache")
		assert.Equal(t, float32(1), resp.Embeddings[1].Vector[0], "c sent alone")
		assert.Equal(t, float32(2), resp.Embeddings[2].Vector[0], "b from cache")
		assert.Equal(t, ComputeHash("c"), resp.Embeddings[1].Hash)

		// A model override is never served from the cache
		_, err = p.GenerateBatch(ctx, BatchEmbeddingRequest{Texts: []string{"a"}, Model: "other"})
		require.NoError(t, err)
		assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	})

	t.Run("retries transient failures", func(t *testing.T) {
		var calls int32
		server := embeddingServer(t, &calls, 2)
		defer server.Close()

		p, err := NewJinaProvider("test-key", nil, WithEndpoint(server.URL), WithRetry(fastRetry()))
		require.NoError(t, err)

		_, err = p.GenerateEmbedding(ctx, EmbeddingRequest{Text: "x"})
		require.NoError(t, err)
		assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		var calls int32
		server := embeddingServer(t, &calls, 100)
		defer server.Close()

		p, err := NewJinaProvider("test-key", nil, WithEndpoint(server.URL), WithRetry(fastRetry()))
		require.NoError(t, err)

		_, err = p.GenerateEmbedding(ctx, EmbeddingRequest{Text: "x"})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrProviderFailed))
		assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	})

	t.Run("validation", func(t *testing.T) {
		p, err := NewJinaProvider("test-key", nil)
		require.NoError(t, err)

		_, err = p.GenerateEmbedding(ctx, EmbeddingRequest{Text: ""})
		assert.ErrorIs(t, err, ErrEmptyText)

		_, err = p.GenerateBatch(ctx, BatchEmbeddingRequest{})
		assert.ErrorIs(t, err, ErrInvalidInput)

		_, err = p.GenerateBatch(ctx, BatchEmbeddingRequest{Texts: make([]string, MaxBatchSize+1)})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("missing api key", func(t *testing.T) {
		t.Setenv(EnvJinaAPIKey, "")
		_, err := NewJinaProvider("", nil)
		assert.ErrorIs(t, err, ErrNoProviderEnabled)
	})

	t.Run("metadata", func(t *testing.T) {
		p, err := NewOpenAIProvider("test-key", nil, WithModel("text-embedding-3-large"))
		require.NoError(t, err)
		assert.Equal(t, ProviderOpenAI, p.Provider())
		assert.Equal(t, "text-embedding-3-large", p.Model())
		assert.Equal(t, OpenAIDimension, p.Dimension())
	})
}

func TestHashProvider(t *testing.T) {
	ctx := context.Background()
	p := NewHashProvider(0)

	a, err := p.GenerateEmbedding(ctx, EmbeddingRequest{Text: "parse config file"})
	require.NoError(t, err)
	b, err := p.GenerateEmbedding(ctx, EmbeddingRequest{Text: "parse config file"})
	require.NoError(t, err)
	c, err := p.GenerateEmbedding(ctx, EmbeddingRequest{Text: "render html template"})
	require.NoError(t, err)
	d, err := p.GenerateEmbedding(ctx, EmbeddingRequest{Text: "parse the config"})
	require.NoError(t, err)

	assert.Len(t, a.Vector, HashDimension)
	assert.Equal(t, a.Vector, b.Vector)
	assert.InDelta(t, 1.0, CosineSimilarity(a.Vector, b.Vector), 1e-6)
	assert.Greater(t, CosineSimilarity(a.Vector, d.Vector), CosineSimilarity(a.Vector, c.Vector))

	resp, err := p.GenerateBatch(ctx, BatchEmbeddingRequest{Texts: []string{"x", "y"}})
	require.NoError(t, err)
	assert.Len(t, resp.Embeddings, 2)
	assert.Equal(t, ProviderHash, resp.Provider)
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 0}, []float32{1, 0}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"zero vector", []float32{0, 0}, []float32{1, 0}, 0},
		{"dimension mismatch", []float32{1}, []float32{1, 0}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, CosineSimilarity(tt.a, tt.b), 1e-9)
		})
	}
}
