package embedder

import (
	"fmt"
	"os"
	"strings"
)

// EnvEmbeddingProvider selects the embedding provider
const EnvEmbeddingProvider = "GOCONTEXT_EMBEDDING_PROVIDER"

// Config holds embedder configuration
type Config struct {
	Provider  string
	APIKey    string
	Model     string
	Endpoint  string // HTTP providers only
	ModelDir  string // hugot only
	CacheSize int
}

// Providers lists the provider names New accepts
func Providers() []string {
	return []string{ProviderJina, ProviderOpenAI, ProviderHugot, ProviderHash}
}

// NewFromEnv creates an embedder based on environment variables
// Priority:
// 1. GOCONTEXT_EMBEDDING_PROVIDER (jina, openai, hugot, hash)
// 2. Check for API keys: JINA_API_KEY, OPENAI_API_KEY
// 3. Default to the local hugot model if no API keys found
func NewFromEnv() (Embedder, error) {
	return New(Config{Provider: DetectProvider(), CacheSize: DefaultCacheSize})
}

// New creates an embedder with explicit configuration
func New(cfg Config) (Embedder, error) {
	var cache *Cache
	if cfg.CacheSize > 0 {
		cache = NewCache(cfg.CacheSize)
	}

	var opts []HTTPOption
	if cfg.Endpoint != "" {
		opts = append(opts, WithEndpoint(cfg.Endpoint))
	}
	if cfg.Model != "" {
		opts = append(opts, WithModel(cfg.Model))
	}

	switch strings.ToLower(cfg.Provider) {
	case ProviderJina, ProviderOpenAI:
		newProvider := NewJinaProvider
		if strings.EqualFold(cfg.Provider, ProviderOpenAI) {
			newProvider = NewOpenAIProvider
		}
		p, err := newProvider(cfg.APIKey, cache, opts...)
		if err != nil {
			return nil, err
		}
		return p, nil
	case ProviderHugot:
		return NewHugotProvider(cfg.Model, cfg.ModelDir, cache), nil
	case ProviderHash:
		return NewHashProvider(0), nil
	default:
		return nil, fmt.Errorf("%w: unknown provider %s", ErrUnsupportedModel, cfg.Provider)
	}
}

// DetectProvider returns the provider that would be used based on current environment
func DetectProvider() string {
	provider := os.Getenv(EnvEmbeddingProvider)
	if provider != "" {
		return strings.ToLower(provider)
	}

	if os.Getenv(EnvJinaAPIKey) != "" {
		return ProviderJina
	}
	if os.Getenv(EnvOpenAIAPIKey) != "" {
		return ProviderOpenAI
	}

	return ProviderHugot
}
