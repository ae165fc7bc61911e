package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"slices"
	"time"

	"github.com/dshills/gocontext-rag/internal/retry"
)

// Provider configuration
const (
	ProviderJina   = "jina"
	ProviderOpenAI = "openai"
	ProviderHugot  = "hugot"
	ProviderHash   = "hash"

	// API key environment variables
	EnvJinaAPIKey   = "JINA_API_KEY"
	EnvOpenAIAPIKey = "OPENAI_API_KEY"

	// Endpoints
	JinaEmbeddingsURL   = "https://api.jina.ai/v1/embeddings"
	OpenAIEmbeddingsURL = "https://api.openai.com/v1/embeddings"

	// Default models
	DefaultJinaModel   = "jina-embeddings-v3"
	DefaultOpenAIModel = "text-embedding-3-small"

	// Dimensions
	JinaDimension   = 1024
	OpenAIDimension = 1536

	// Batch limits
	DefaultBatchSize = 50
	MaxBatchSize     = 100

	DefaultCacheSize   = 10000
	DefaultHTTPTimeout = 30 * time.Second
)

// HTTPProvider implements Embedder against an OpenAI-compatible embeddings endpoint.
// Jina AI and OpenAI share the same request and response shape.
type HTTPProvider struct {
	name       string
	apiKey     string
	model      string
	endpoint   string
	dimension  int
	httpClient *http.Client
	cache      *Cache
	retry      retry.Config
}

// HTTPOption customizes an HTTPProvider
type HTTPOption func(*HTTPProvider)

// WithEndpoint overrides the API endpoint (used for proxies and tests)
func WithEndpoint(url string) HTTPOption {
	return func(p *HTTPProvider) { p.endpoint = url }
}

// WithModel overrides the default model
func WithModel(model string) HTTPOption {
	return func(p *HTTPProvider) {
		if model != "" {
			p.model = model
		}
	}
}

// WithRetry overrides the retry policy
func WithRetry(cfg retry.Config) HTTPOption {
	return func(p *HTTPProvider) { p.retry = cfg }
}

// WithHTTPClient overrides the HTTP client
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(p *HTTPProvider) { p.httpClient = c }
}

// NewJinaProvider creates a new Jina AI embedder
func NewJinaProvider(apiKey string, cache *Cache, opts ...HTTPOption) (*HTTPProvider, error) {
	return newHTTPProvider(ProviderJina, apiKey, EnvJinaAPIKey, JinaEmbeddingsURL, DefaultJinaModel, JinaDimension, cache, opts)
}

// NewOpenAIProvider creates a new OpenAI embedder
func NewOpenAIProvider(apiKey string, cache *Cache, opts ...HTTPOption) (*HTTPProvider, error) {
	return newHTTPProvider(ProviderOpenAI, apiKey, EnvOpenAIAPIKey, OpenAIEmbeddingsURL, DefaultOpenAIModel, OpenAIDimension, cache, opts)
}

func newHTTPProvider(name, apiKey, envKey, endpoint, model string, dim int, cache *Cache, opts []HTTPOption) (*HTTPProvider, error) {
	if apiKey == "" {
		apiKey = os.Getenv(envKey)
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%w: %s not set", ErrNoProviderEnabled, envKey)
	}

	p := &HTTPProvider{
		name:      name,
		apiKey:    apiKey,
		model:     model,
		endpoint:  endpoint,
		dimension: dim,
		httpClient: &http.Client{
			Timeout: DefaultHTTPTimeout,
		},
		cache: cache,
		retry: retry.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func (p *HTTPProvider) GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*Embedding, error) {
	if err := validateTexts(req.Text); err != nil {
		return nil, err
	}

	if emb, ok := p.cache.Get(ComputeHash(req.Text)); ok {
		return emb, nil
	}

	// Use batch API for consistency
	resp, err := p.GenerateBatch(ctx, BatchEmbeddingRequest{
		Texts: []string{req.Text},
		Model: req.Model,
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Embeddings) == 0 {
		return nil, fmt.Errorf("%w: no embeddings returned", ErrProviderFailed)
	}

	return resp.Embeddings[0], nil
}

// GenerateBatch embeds texts, sending only those missing from the cache.
// The cache is bypassed when req.Model overrides the provider model.
func (p *HTTPProvider) GenerateBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error) {
	if err := validateTexts(req.Texts...); err != nil {
		return nil, err
	}
	if len(req.Texts) > MaxBatchSize {
		return nil, fmt.Errorf("%w: max %d texts allowed", ErrBatchTooLarge, MaxBatchSize)
	}

	model := req.Model
	if model == "" {
		model = p.model
	}
	cached := model == p.model

	out := make([]*Embedding, len(req.Texts))
	hashes := make([]string, len(req.Texts))
	var misses []int
	for i, text := range req.Texts {
		hashes[i] = ComputeHash(text)
		if cached {
			if emb, ok := p.cache.Get(hashes[i]); ok {
				out[i] = emb
				continue
			}
		}
		misses = append(misses, i)
	}
	if len(misses) == 0 {
		return &BatchEmbeddingResponse{Embeddings: out, Provider: p.name, Model: model}, nil
	}

	texts := make([]string, len(misses))
	for k, i := range misses {
		texts[k] = req.Texts[i]
	}
	embeddings, err := retry.Do(ctx, p.retry, func() ([]*Embedding, error) {
		return p.callAPI(ctx, texts, model)
	})
	if err != nil {
		return nil, fmt.Errorf("%w after %d attempts: %v", ErrProviderFailed, p.retry.MaxAttempts, err)
	}
	if len(embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d texts", ErrProviderFailed, len(embeddings), len(texts))
	}

	for k, i := range misses {
		emb := embeddings[k]
		emb.Hash = hashes[i]
		if cached {
			p.cache.Set(emb.Hash, emb)
		}
		out[i] = emb
	}
	return &BatchEmbeddingResponse{Embeddings: out, Provider: p.name, Model: model}, nil
}

type embeddingsRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type embeddingsResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Model string `json:"model"`
}

func (p *HTTPProvider) callAPI(ctx context.Context, texts []string, model string) ([]*Embedding, error) {
	body, err := json.Marshal(embeddingsRequest{Input: texts, Model: model})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s api call: %w", p.name, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%s api error %d: %s", p.name, resp.StatusCode, msg)
	}

	var apiResp embeddingsResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	// Items may arrive out of order; index is authoritative when valid
	embeddings := make([]*Embedding, len(apiResp.Data))
	for i, data := range apiResp.Data {
		pos := data.Index
		if pos < 0 || pos >= len(embeddings) || embeddings[pos] != nil {
			pos = i
		}
		embeddings[pos] = &Embedding{
			Vector:    data.Embedding,
			Dimension: len(data.Embedding),
			Provider:  p.name,
			Model:     apiResp.Model,
		}
	}
	if i := slices.Index(embeddings, nil); i >= 0 {
		return nil, fmt.Errorf("missing embedding at index %d", i)
	}
	return embeddings, nil
}

func (p *HTTPProvider) Dimension() int {
	return p.dimension
}

func (p *HTTPProvider) Provider() string {
	return p.name
}

func (p *HTTPProvider) Model() string {
	return p.model
}

func (p *HTTPProvider) Close() error {
	p.httpClient.CloseIdleConnections()
	return nil
}

// NormalizeVector normalizes a vector to unit length (for cosine similarity)
func NormalizeVector(v []float32) []float32 {
	var sum float64
	for _, val := range v {
		sum += float64(val * val)
	}

	if sum == 0 {
		return v
	}

	norm := float32(math.Sqrt(sum))
	result := make([]float32, len(v))
	for i, val := range v {
		result[i] = val / norm
	}

	return result
}

// CosineSimilarity returns the cosine of the angle between a and b, or 0 when
// either vector is zero or the dimensions differ.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
