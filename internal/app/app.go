// Package app assembles the retrieval pipeline and its reference
// collaborators from a configuration. The MCP server and the command line
// both run on top of an App.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dshills/gocontext-rag/internal/chunker"
	"github.com/dshills/gocontext-rag/internal/config"
	"github.com/dshills/gocontext-rag/internal/embedder"
	"github.com/dshills/gocontext-rag/internal/index"
	"github.com/dshills/gocontext-rag/internal/recent"
	"github.com/dshills/gocontext-rag/internal/reranker"
	"github.com/dshills/gocontext-rag/internal/retrieval"
	"github.com/dshills/gocontext-rag/internal/storage"
	"github.com/dshills/gocontext-rag/internal/workspace"
	"github.com/dshills/gocontext-rag/pkg/types"
)

// DefaultBranch tags chunks ingested without an explicit branch
const DefaultBranch = "main"

// App owns every long-lived component. Close releases the store and the embedder.
type App struct {
	Config    *config.Config
	Store     storage.Storage
	Embedder  embedder.Embedder
	Recent    *recent.Cache
	Workspace *workspace.Local
	Chunker   *chunker.Chunker
	Writer    *index.Writer
	Reranker  *reranker.Adapter
	Pipeline  *retrieval.Pipeline
	Logger    *slog.Logger
}

// Open builds an App from cfg. A configuration without a relevance model
// opens successfully; retrieval then fails with reranker.ErrNoRelevanceModel.
func Open(cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	dbPath, err := cfg.ExpandedDBPath()
	if err != nil {
		return nil, err
	}
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	ws, err := workspace.NewLocal(cfg.Workspace)
	if err != nil {
		return nil, err
	}

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	emb, err := embedder.New(cfg.EmbedderConfig())
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	model, err := reranker.New(cfg.RerankerConfig(emb))
	if err != nil {
		_ = emb.Close()
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize relevance model: %w", err)
	}
	adapter := reranker.NewAdapter(model)
	adapter.Threshold = cfg.Threshold()
	if model == nil {
		logger.Warn("no relevance model configured, retrieval requests will be rejected")
	}

	a := &App{
		Config:    cfg,
		Store:     store,
		Embedder:  emb,
		Recent:    recent.New(cfg.Retrieval.RecentCapacity),
		Workspace: ws,
		Chunker:   chunker.New(),
		Writer:    index.NewWriter(store, emb),
		Reranker:  adapter,
		Logger:    logger,
	}
	a.Pipeline = retrieval.New(retrieval.Dependencies{
		Lexical:   index.NewFullText(store),
		Vector:    index.NewVector(store, emb),
		Chunker:   a.Chunker,
		Workspace: ws,
		Recent:    a.Recent,
		Reranker:  adapter,
	}, cfg.PipelineOptions(logger))

	logger.Info("retrieval pipeline ready",
		"db", dbPath,
		"workspace", ws.Root(),
		"embedder", emb.Provider()+"/"+emb.Model(),
		"relevance_model", a.RelevanceModelName(),
		"build_mode", storage.BuildMode)
	return a, nil
}

// Retrieve runs the pipeline
func (a *App) Retrieve(ctx context.Context, query string, tags []types.ScopeTag, filterDirectory string) ([]types.Chunk, error) {
	return a.Pipeline.Run(ctx, query, tags, filterDirectory)
}

// RecordEdit marks path as just edited. Paths are resolved against the
// workspace root so they match the identifiers used for reading.
func (a *App) RecordEdit(path string) (string, error) {
	abs, err := a.Workspace.Resolve(path)
	if err != nil {
		return "", err
	}
	a.Recent.Touch(abs)
	return abs, nil
}

// DefaultScope returns the tag for the workspace root on branch
func (a *App) DefaultScope(branch string) types.ScopeTag {
	if branch == "" {
		branch = DefaultBranch
	}
	return types.ScopeTag{Branch: branch, Directory: a.Workspace.Root()}
}

// RelevanceModelName returns the configured model name, or "none"
func (a *App) RelevanceModelName() string {
	if !a.Reranker.Configured() {
		return reranker.ModelNone
	}
	return a.Reranker.Model.Name()
}

// Close releases the embedder and the store
func (a *App) Close() error {
	var errs []error
	if a.Embedder != nil {
		errs = append(errs, a.Embedder.Close())
	}
	if a.Store != nil {
		errs = append(errs, a.Store.Close())
	}
	return errors.Join(errs...)
}
