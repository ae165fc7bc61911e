package embedder

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"strings"
	"unicode"
)

// HashDimension is the vector size produced by HashProvider
const HashDimension = 256

// HashProvider is a deterministic offline embedder. Every lowercase word of the
// input is hashed into a bucket, so texts sharing words point in similar
// directions. Vectors are unit length.
type HashProvider struct {
	dimension int
}

// NewHashProvider creates a hash embedder with the given dimension (HashDimension if <= 0)
func NewHashProvider(dimension int) *HashProvider {
	if dimension <= 0 {
		dimension = HashDimension
	}
	return &HashProvider{dimension: dimension}
}

func (h *HashProvider) embed(text string) []float32 {
	vector := make([]float32, h.dimension)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
	for _, w := range words {
		sum := sha256.Sum256([]byte(w))
		bucket := binary.LittleEndian.Uint64(sum[:8]) % uint64(h.dimension)
		if sum[8]&1 == 0 {
			vector[bucket]++
		} else {
			vector[bucket]--
		}
	}
	return NormalizeVector(vector)
}

func (h *HashProvider) GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*Embedding, error) {
	if err := validateTexts(req.Text); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Embedding{
		Vector:    h.embed(req.Text),
		Dimension: h.dimension,
		Provider:  ProviderHash,
		Model:     h.Model(),
		Hash:      ComputeHash(req.Text),
	}, nil
}

func (h *HashProvider) GenerateBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error) {
	if err := validateTexts(req.Texts...); err != nil {
		return nil, err
	}

	embeddings := make([]*Embedding, len(req.Texts))
	for i, text := range req.Texts {
		emb, err := h.GenerateEmbedding(ctx, EmbeddingRequest{Text: text})
		if err != nil {
			return nil, fmt.Errorf("embedding text %d: %w", i, err)
		}
		embeddings[i] = emb
	}

	return &BatchEmbeddingResponse{
		Embeddings: embeddings,
		Provider:   ProviderHash,
		Model:      h.Model(),
	}, nil
}

func (h *HashProvider) Dimension() int {
	return h.dimension
}

func (h *HashProvider) Provider() string {
	return ProviderHash
}

func (h *HashProvider) Model() string {
	return fmt.Sprintf("hash-%d", h.dimension)
}

func (h *HashProvider) Close() error {
	return nil
}
