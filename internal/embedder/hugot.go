package embedder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/knights-analytics/hugot"
)

// Local model defaults
const (
	DefaultHugotModel    = "sentence-transformers/all-MiniLM-L6-v2"
	DefaultHugotModelDir = "./models"
	HugotDimension       = 384
)

// HugotProvider runs a sentence-transformer model in-process using the hugot Go backend.
// The model is downloaded into ModelDir and loaded on first use.
type HugotProvider struct {
	model    string
	modelDir string
	cache    *Cache

	mu      sync.Mutex
	session *hugot.Session
	run     func(texts []string) ([][]float32, error)
}

// NewHugotProvider creates a local embedder. No I/O happens until the first embedding.
func NewHugotProvider(model, modelDir string, cache *Cache) *HugotProvider {
	if model == "" {
		model = DefaultHugotModel
	}
	if modelDir == "" {
		modelDir = DefaultHugotModelDir
	}
	return &HugotProvider{model: model, modelDir: modelDir, cache: cache}
}

// prepareModel downloads the model if it doesn't exist and returns the model path
func prepareModel(modelName, modelDir string) (string, error) {
	modelPath := filepath.Join(modelDir, strings.ReplaceAll(modelName, "/", "_"))
	if _, err := os.Stat(modelPath); err == nil {
		return modelPath, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("stat model: %w", err)
	}

	if err := os.MkdirAll(modelDir, 0755); err != nil {
		return "", fmt.Errorf("create model directory: %w", err)
	}
	downloadOptions := hugot.NewDownloadOptions()
	downloadOptions.OnnxFilePath = "onnx/model.onnx"
	downloadedPath, err := hugot.DownloadModel(modelName, modelDir, downloadOptions)
	if err != nil {
		return "", fmt.Errorf("download model: %w", err)
	}
	return downloadedPath, nil
}

// load must be called with h.mu held.
func (h *HugotProvider) load() error {
	if h.run != nil {
		return nil
	}

	modelPath, err := prepareModel(h.model, h.modelDir)
	if err != nil {
		return err
	}

	session, err := hugot.NewGoSession()
	if err != nil {
		return fmt.Errorf("create hugot session: %w", err)
	}

	config := hugot.FeatureExtractionConfig{
		ModelPath: modelPath,
		Name:      "gocontext-embedder",
	}
	pipeline, err := hugot.NewPipeline(session, config)
	if err != nil {
		if destroyErr := session.Destroy(); destroyErr != nil {
			return fmt.Errorf("create feature extraction pipeline: %w (cleanup error: %v)", err, destroyErr)
		}
		return fmt.Errorf("create feature extraction pipeline: %w", err)
	}

	h.session = session
	h.run = func(texts []string) ([][]float32, error) {
		result, err := pipeline.RunPipeline(texts)
		if err != nil {
			return nil, err
		}
		return result.Embeddings, nil
	}
	return nil
}

func (h *HugotProvider) GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*Embedding, error) {
	if err := validateTexts(req.Text); err != nil {
		return nil, err
	}
	if emb, ok := h.cache.Get(ComputeHash(req.Text)); ok {
		return emb, nil
	}

	resp, err := h.GenerateBatch(ctx, BatchEmbeddingRequest{Texts: []string{req.Text}})
	if err != nil {
		return nil, err
	}
	return resp.Embeddings[0], nil
}

func (h *HugotProvider) GenerateBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error) {
	if err := validateTexts(req.Texts...); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.load(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderFailed, err)
	}

	vectors, err := h.run(req.Texts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderFailed, err)
	}
	if len(vectors) != len(req.Texts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d texts", ErrProviderFailed, len(vectors), len(req.Texts))
	}

	embeddings := make([]*Embedding, len(vectors))
	for i, v := range vectors {
		hash := ComputeHash(req.Texts[i])
		embeddings[i] = &Embedding{
			Vector:    v,
			Dimension: len(v),
			Provider:  ProviderHugot,
			Model:     h.model,
			Hash:      hash,
		}
		h.cache.Set(hash, embeddings[i])
	}

	return &BatchEmbeddingResponse{
		Embeddings: embeddings,
		Provider:   ProviderHugot,
		Model:      h.model,
	}, nil
}

func (h *HugotProvider) Dimension() int {
	return HugotDimension
}

func (h *HugotProvider) Provider() string {
	return ProviderHugot
}

func (h *HugotProvider) Model() string {
	return h.model
}

// Close destroys the hugot session if one was created
func (h *HugotProvider) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.session == nil {
		return nil
	}
	err := h.session.Destroy()
	h.session = nil
	h.run = nil
	return err
}
