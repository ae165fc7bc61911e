package reranker

import (
	"fmt"
	"strings"

	"github.com/dshills/gocontext-rag/internal/embedder"
)

// Relevance model names
const (
	ModelJina      = "jina"
	ModelEmbedding = "embedding"
	ModelNone      = "none"
)

// Config selects and configures a relevance model
type Config struct {
	Name         string
	APIKey       string
	Model        string
	Endpoint     string
	MaxDocuments int
	Embedder     embedder.Embedder // required for ModelEmbedding
}

// Names lists the accepted model names
func Names() []string {
	return []string{ModelJina, ModelEmbedding, ModelNone}
}

// New builds the configured model. ModelNone (or an empty name) yields a nil
// model; an Adapter built from it fails every Rerank call.
func New(cfg Config) (RelevanceModel, error) {
	switch strings.ToLower(cfg.Name) {
	case "", ModelNone:
		return nil, nil
	case ModelJina:
		var opts []JinaOption
		if cfg.Endpoint != "" {
			opts = append(opts, WithJinaEndpoint(cfg.Endpoint))
		}
		opts = append(opts, WithJinaModel(cfg.Model), WithMaxDocuments(cfg.MaxDocuments))
		m, err := NewJinaModel(cfg.APIKey, opts...)
		if err != nil {
			return nil, err
		}
		return m, nil
	case ModelEmbedding:
		if cfg.Embedder == nil {
			return nil, fmt.Errorf("%w: embedding model requires an embedder", ErrNoRelevanceModel)
		}
		return NewEmbeddingModel(cfg.Embedder), nil
	default:
		return nil, fmt.Errorf("unknown relevance model %q (want one of %s)", cfg.Name, strings.Join(Names(), ", "))
	}
}
