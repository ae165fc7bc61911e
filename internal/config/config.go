// Package config loads gocontext-rag settings from a YAML file, an optional
// .env file and GOCONTEXT_* environment variables, in that order of
// increasing precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/dshills/gocontext-rag/internal/embedder"
	"github.com/dshills/gocontext-rag/internal/recent"
	"github.com/dshills/gocontext-rag/internal/reranker"
	"github.com/dshills/gocontext-rag/internal/retrieval"
)

// Environment variables overriding the file configuration
const (
	EnvDBPath          = "GOCONTEXT_DB_PATH"
	EnvWorkspace       = "GOCONTEXT_WORKSPACE"
	EnvLogLevel        = "GOCONTEXT_LOG_LEVEL"
	EnvReranker        = "GOCONTEXT_RERANKER"
	EnvRerankerModel   = "GOCONTEXT_RERANKER_MODEL"
	EnvEmbeddingModel  = "GOCONTEXT_EMBEDDING_MODEL"
	EnvNRetrieve       = "GOCONTEXT_N_RETRIEVE"
	EnvNFinal          = "GOCONTEXT_N_FINAL"
	EnvMaxChunkSize    = "GOCONTEXT_MAX_CHUNK_SIZE"
	EnvRerankThreshold = "GOCONTEXT_RERANK_THRESHOLD"
	EnvExpand          = "GOCONTEXT_EXPAND"
)

// DefaultDBPath is the database location when none is configured
const DefaultDBPath = "~/.gocontext/rag.db"

// ErrInvalidConfig wraps every validation failure
var ErrInvalidConfig = errors.New("invalid configuration")

// LogConfig controls logging output
type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// EmbeddingConfig selects the embedder used by the vector index
type EmbeddingConfig struct {
	Provider  string `yaml:"provider"` // empty selects from the environment
	Model     string `yaml:"model"`
	Endpoint  string `yaml:"endpoint"`
	ModelDir  string `yaml:"model_dir"`
	CacheSize int    `yaml:"cache_size"`
}

// ThresholdConfig is the optional minimum relevance score gate
type ThresholdConfig struct {
	Enabled  bool    `yaml:"enabled"`
	MinScore float64 `yaml:"min_score"`
}

// RerankerConfig selects the relevance model
type RerankerConfig struct {
	Name         string          `yaml:"name"`
	Model        string          `yaml:"model"`
	Endpoint     string          `yaml:"endpoint"`
	MaxDocuments int             `yaml:"max_documents"`
	Threshold    ThresholdConfig `yaml:"threshold"`
}

// ExpansionConfig controls the second fusion round
type ExpansionConfig struct {
	Enabled          bool `yaml:"enabled"`
	NResultsToExpand int  `yaml:"n_results_to_expand"`
	NExpandTo        int  `yaml:"n_expand_to"`
}

// RetrievalConfig holds the pipeline budgets
type RetrievalConfig struct {
	NRetrieve      int             `yaml:"n_retrieve"`
	NFinal         int             `yaml:"n_final"`
	MaxChunkSize   int             `yaml:"max_chunk_size"`
	RecentCapacity int             `yaml:"recent_capacity"`
	Expansion      ExpansionConfig `yaml:"expansion"`
}

// Config is the root configuration
type Config struct {
	DBPath    string          `yaml:"db_path"`
	Workspace string          `yaml:"workspace"`
	Log       LogConfig       `yaml:"log"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Reranker  RerankerConfig  `yaml:"reranker"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
}

// Default returns the built-in configuration
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Load reads path (skipped when empty or missing), applies defaults and
// environment overrides, and validates the result.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	applyDefaults(cfg)
	if err := applyEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDotEnv loads variables from a .env file without overriding ones that
// are already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Save writes cfg as YAML, creating parent directories
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func applyDefaults(cfg *Config) {
	if cfg.DBPath == "" {
		cfg.DBPath = DefaultDBPath
	}
	if cfg.Workspace == "" {
		cfg.Workspace = "."
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = embedder.DefaultCacheSize
	}
	if cfg.Reranker.Name == "" {
		cfg.Reranker.Name = reranker.ModelEmbedding
	}
	if cfg.Reranker.Threshold.Enabled && cfg.Reranker.Threshold.MinScore == 0 {
		cfg.Reranker.Threshold.MinScore = reranker.DefaultMinScore
	}

	r := &cfg.Retrieval
	if r.NRetrieve == 0 {
		r.NRetrieve = retrieval.DefaultNRetrieve
	}
	if r.NFinal == 0 {
		r.NFinal = retrieval.DefaultNFinal
	}
	if r.MaxChunkSize == 0 {
		r.MaxChunkSize = retrieval.DefaultMaxChunkSize
	}
	if r.RecentCapacity == 0 {
		r.RecentCapacity = recent.DefaultCapacity
	}
	if r.Expansion.NResultsToExpand == 0 {
		r.Expansion.NResultsToExpand = retrieval.DefaultNResultsToExpand
	}
	if r.Expansion.NExpandTo == 0 {
		r.Expansion.NExpandTo = retrieval.DefaultNExpandTo
	}
}

// applyEnv overrides cfg from GOCONTEXT_* variables
func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not an integer", ErrInvalidConfig, key, v)
		}
		*dst = n
		return nil
	}

	str(EnvDBPath, &cfg.DBPath)
	str(EnvWorkspace, &cfg.Workspace)
	str(EnvLogLevel, &cfg.Log.Level)
	str(embedder.EnvEmbeddingProvider, &cfg.Embedding.Provider)
	str(EnvEmbeddingModel, &cfg.Embedding.Model)
	str(EnvReranker, &cfg.Reranker.Name)
	str(EnvRerankerModel, &cfg.Reranker.Model)

	for key, dst := range map[string]*int{
		EnvNRetrieve:    &cfg.Retrieval.NRetrieve,
		EnvNFinal:       &cfg.Retrieval.NFinal,
		EnvMaxChunkSize: &cfg.Retrieval.MaxChunkSize,
	} {
		if err := num(key, dst); err != nil {
			return err
		}
	}

	if v, ok := lookup(EnvRerankThreshold); ok && v != "" {
		score, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not a number", ErrInvalidConfig, EnvRerankThreshold, v)
		}
		cfg.Reranker.Threshold = ThresholdConfig{Enabled: true, MinScore: score}
	}
	if v, ok := lookup(EnvExpand); ok && v != "" {
		enabled, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not a boolean", ErrInvalidConfig, EnvExpand, v)
		}
		cfg.Retrieval.Expansion.Enabled = enabled
	}
	return nil
}

// Validate reports the first invalid setting
func (c *Config) Validate() error {
	r := c.Retrieval
	switch {
	case r.NRetrieve <= 0:
		return fmt.Errorf("%w: n_retrieve must be positive, got %d", ErrInvalidConfig, r.NRetrieve)
	case r.NFinal <= 0:
		return fmt.Errorf("%w: n_final must be positive, got %d", ErrInvalidConfig, r.NFinal)
	case r.MaxChunkSize <= 0:
		return fmt.Errorf("%w: max_chunk_size must be positive, got %d", ErrInvalidConfig, r.MaxChunkSize)
	case r.RecentCapacity < 0:
		return fmt.Errorf("%w: recent_capacity must not be negative", ErrInvalidConfig)
	case r.Expansion.Enabled && (r.Expansion.NResultsToExpand <= 0 || r.Expansion.NExpandTo <= 0):
		return fmt.Errorf("%w: expansion counts must be positive", ErrInvalidConfig)
	case c.Reranker.Threshold.MinScore < 0:
		return fmt.Errorf("%w: threshold min_score must not be negative", ErrInvalidConfig)
	}

	if !slices.Contains(reranker.Names(), strings.ToLower(c.Reranker.Name)) {
		return fmt.Errorf("%w: unknown reranker %q (want one of %s)", ErrInvalidConfig, c.Reranker.Name, strings.Join(reranker.Names(), ", "))
	}
	if p := strings.ToLower(c.Embedding.Provider); p != "" && !slices.Contains(embedder.Providers(), p) {
		return fmt.Errorf("%w: unknown embedding provider %q", ErrInvalidConfig, c.Embedding.Provider)
	}
	return nil
}

// ExpandedDBPath returns DBPath with a leading ~ replaced by the home directory
func (c *Config) ExpandedDBPath() (string, error) {
	if c.DBPath == ":memory:" || !strings.HasPrefix(c.DBPath, "~") {
		return c.DBPath, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(c.DBPath, "~")), nil
}

// EmbedderConfig returns the embedder factory configuration. An empty
// provider is resolved from the environment.
func (c *Config) EmbedderConfig() embedder.Config {
	provider := c.Embedding.Provider
	if provider == "" {
		provider = embedder.DetectProvider()
	}
	return embedder.Config{
		Provider:  provider,
		Model:     c.Embedding.Model,
		Endpoint:  c.Embedding.Endpoint,
		ModelDir:  c.Embedding.ModelDir,
		CacheSize: c.Embedding.CacheSize,
	}
}

// RerankerConfig returns the relevance model factory configuration
func (c *Config) RerankerConfig(emb embedder.Embedder) reranker.Config {
	return reranker.Config{
		Name:         c.Reranker.Name,
		Model:        c.Reranker.Model,
		Endpoint:     c.Reranker.Endpoint,
		MaxDocuments: c.Reranker.MaxDocuments,
		Embedder:     emb,
	}
}

// Threshold returns the reranker threshold policy
func (c *Config) Threshold() reranker.ThresholdPolicy {
	return reranker.ThresholdPolicy{
		Enabled:  c.Reranker.Threshold.Enabled,
		MinScore: c.Reranker.Threshold.MinScore,
	}
}

// PipelineOptions returns the retrieval pipeline options
func (c *Config) PipelineOptions(logger *slog.Logger) retrieval.Options {
	return retrieval.Options{
		NRetrieve:    c.Retrieval.NRetrieve,
		NFinal:       c.Retrieval.NFinal,
		MaxChunkSize: c.Retrieval.MaxChunkSize,
		Expansion: retrieval.ExpansionOptions{
			Enabled:          c.Retrieval.Expansion.Enabled,
			NResultsToExpand: c.Retrieval.Expansion.NResultsToExpand,
			NExpandTo:        c.Retrieval.Expansion.NExpandTo,
		},
		Logger: logger,
	}
}
