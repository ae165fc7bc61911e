package app

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/gocontext-rag/pkg/types"
)

// DefaultIngestWorkers bounds concurrent file ingestion
const DefaultIngestWorkers = 4

// IngestStats summarizes one Ingest call
type IngestStats struct {
	FilesIndexed  int
	FilesSkipped  int
	FilesFailed   int
	ChunksCreated int
	ErrorMessages []string
	Duration      time.Duration
}

// Ingest chunks every file under paths (files or directories inside the
// workspace) and replaces their stored chunks in scope. Hidden directories
// and vendor/ are skipped, as are files that look binary. Per-file failures
// are collected in the stats; only cancellation aborts the call.
func (a *App) Ingest(ctx context.Context, scope types.ScopeTag, paths []string) (*IngestStats, error) {
	start := time.Now()
	stats := &IngestStats{}

	files, err := a.collectFiles(paths)
	if err != nil {
		return nil, err
	}

	var indexed, skipped, failed, chunks int32
	var mu sync.Mutex // protects stats.ErrorMessages

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(DefaultIngestWorkers)
	for _, file := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			n, err := a.ingestFile(gctx, scope, file)
			switch {
			case err != nil:
				atomic.AddInt32(&failed, 1)
				mu.Lock()
				stats.ErrorMessages = append(stats.ErrorMessages, fmt.Sprintf("%s: %v", file, err))
				mu.Unlock()
			case n == 0:
				atomic.AddInt32(&skipped, 1)
			default:
				atomic.AddInt32(&indexed, 1)
				atomic.AddInt32(&chunks, int32(n))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stats.FilesIndexed = int(indexed)
	stats.FilesSkipped = int(skipped)
	stats.FilesFailed = int(failed)
	stats.ChunksCreated = int(chunks)
	stats.Duration = time.Since(start)

	a.Logger.Info("ingest complete",
		"scope", scope.String(),
		"files", stats.FilesIndexed,
		"skipped", stats.FilesSkipped,
		"failed", stats.FilesFailed,
		"chunks", stats.ChunksCreated,
		"duration", stats.Duration)
	return stats, nil
}

// ingestFile returns the number of chunks stored for path; 0 means skipped
func (a *App) ingestFile(ctx context.Context, scope types.ScopeTag, path string) (int, error) {
	contents, err := a.Workspace.ReadFile(ctx, path)
	if err != nil {
		return 0, err
	}
	if looksBinary(contents) {
		return 0, nil
	}

	chunks := a.Chunker.Collect(path, contents, a.Config.Retrieval.MaxChunkSize, path)
	if err := a.Writer.Replace(ctx, scope, path, chunks); err != nil {
		return 0, err
	}
	return len(chunks), nil
}

// collectFiles resolves paths and expands directories
func (a *App) collectFiles(paths []string) ([]string, error) {
	if len(paths) == 0 {
		paths = []string{a.Workspace.Root()}
	}

	var files []string
	seen := make(map[string]bool)
	for _, p := range paths {
		abs, err := a.Workspace.Resolve(p)
		if err != nil {
			return nil, err
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", p, err)
		}
		if !info.IsDir() {
			if !seen[abs] {
				seen[abs] = true
				files = append(files, abs)
			}
			continue
		}

		err = filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if d.IsDir() {
				if path != abs && skipDir(d.Name()) {
					return filepath.SkipDir
				}
				return nil
			}
			if d.Type().IsRegular() && !seen[path] {
				seen[path] = true
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", p, err)
		}
	}
	return files, nil
}

func skipDir(name string) bool {
	return strings.HasPrefix(name, ".") || name == "vendor" || name == "node_modules"
}

// looksBinary reports whether the first KiB holds a NUL byte
func looksBinary(contents string) bool {
	head := contents[:min(len(contents), 1024)]
	return strings.IndexByte(head, 0) >= 0
}
