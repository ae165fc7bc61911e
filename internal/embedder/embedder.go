package embedder

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"slices"

	lru "github.com/hashicorp/golang-lru/v2"
)

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrProviderFailed    = errors.New("embedding provider failed")
	ErrUnsupportedModel  = errors.New("unsupported model")
	ErrEmptyText         = errors.New("text cannot be empty")
	ErrBatchTooLarge     = errors.New("batch size exceeds limit")
	ErrNoProviderEnabled = errors.New("no embedding provider configured")
)

// Embedding is one vector together with the model that produced it
type Embedding struct {
	Vector    []float32
	Dimension int
	Provider  string
	Model     string
	Hash      string // ComputeHash of the embedded text
}

type EmbeddingRequest struct {
	Text  string
	Model string // Overrides the provider default when set
}

type BatchEmbeddingRequest struct {
	Texts []string
	Model string
}

type BatchEmbeddingResponse struct {
	Embeddings []*Embedding
	Provider   string
	Model      string
}

// Embedder turns text into vectors. Chunks are embedded at ingest time and
// queries at retrieval time, so both sides must use the same Embedder.
type Embedder interface {
	GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*Embedding, error)

	// GenerateBatch returns exactly one embedding per text, in order
	GenerateBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error)

	Dimension() int
	Provider() string
	Model() string
	Close() error
}

// EmbedTexts embeds texts in batches of at most batchSize and returns one
// entry per text. Empty texts are never sent and get a nil entry.
func EmbedTexts(ctx context.Context, e Embedder, texts []string, batchSize int) ([]*Embedding, error) {
	if batchSize <= 0 || batchSize > MaxBatchSize {
		batchSize = MaxBatchSize
	}
	out := make([]*Embedding, len(texts))

	pending := make([]int, 0, len(texts))
	for i, text := range texts {
		if text != "" {
			pending = append(pending, i)
		}
	}

	for batch := range slices.Chunk(pending, batchSize) {
		req := BatchEmbeddingRequest{Texts: make([]string, len(batch))}
		for k, i := range batch {
			req.Texts[k] = texts[i]
		}

		resp, err := e.GenerateBatch(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("embed texts %d-%d: %w", batch[0], batch[len(batch)-1], err)
		}
		if len(resp.Embeddings) != len(batch) {
			return nil, fmt.Errorf("%w: got %d embeddings for %d texts", ErrProviderFailed, len(resp.Embeddings), len(batch))
		}
		for k, i := range batch {
			out[i] = resp.Embeddings[k]
		}
	}
	return out, nil
}

// Cache is an LRU of embeddings keyed by ComputeHash of the text. A nil
// *Cache is valid and caches nothing.
type Cache struct {
	cache *lru.Cache[string, *Embedding]
}

func NewCache(maxLen int) *Cache {
	if maxLen <= 0 {
		maxLen = DefaultCacheSize
	}
	cache, err := lru.New[string, *Embedding](maxLen)
	if err != nil {
		cache, _ = lru.New[string, *Embedding](DefaultCacheSize)
	}
	return &Cache{cache: cache}
}

// Get returns a copy of a cached embedding so callers cannot corrupt the cache
func (c *Cache) Get(hash string) (*Embedding, bool) {
	if c == nil {
		return nil, false
	}
	emb, ok := c.cache.Get(hash)
	if !ok {
		return nil, false
	}
	cp := *emb
	cp.Vector = slices.Clone(emb.Vector)
	return &cp, true
}

func (c *Cache) Set(hash string, emb *Embedding) {
	if c == nil {
		return
	}
	c.cache.Add(hash, emb)
}

func (c *Cache) Size() int {
	if c == nil {
		return 0
	}
	return c.cache.Len()
}

func (c *Cache) Clear() {
	if c == nil {
		return
	}
	c.cache.Purge()
}

// ComputeHash returns the hex SHA-256 of text
func ComputeHash(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}

// validateTexts rejects an empty batch or any empty text
func validateTexts(texts ...string) error {
	if len(texts) == 0 {
		return fmt.Errorf("%w: no texts provided", ErrInvalidInput)
	}
	for i, text := range texts {
		if text == "" {
			if len(texts) == 1 {
				return ErrEmptyText
			}
			return fmt.Errorf("%w: text at index %d is empty", ErrInvalidInput, i)
		}
	}
	return nil
}
