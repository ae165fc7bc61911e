package retrieval

import (
	"context"
	"fmt"

	"github.com/dshills/gocontext-rag/internal/normalizer"
	"github.com/dshills/gocontext-rag/pkg/types"
)

// Result is the outcome of one retriever. A failed retriever carries Err;
// the pipeline logs it and continues with no chunks from that source.
type Result struct {
	Chunks []types.Chunk
	Err    error
}

// OrEmpty returns the chunks, or nil when the retriever failed
func (r Result) OrEmpty() []types.Chunk {
	if r.Err != nil {
		return nil
	}
	return r.Chunks
}

// RetrieveLexical normalizes the query into trigrams and runs them as one
// OR query. An empty query or one with no usable terms yields no chunks.
func (p *Pipeline) RetrieveLexical(ctx context.Context, req types.RetrievalRequest) Result {
	if p.deps.Lexical == nil || req.N <= 0 {
		return Result{}
	}

	trigrams := normalizer.Normalize(req.Query)
	if len(trigrams) == 0 {
		return Result{}
	}

	chunks, err := p.deps.Lexical.Search(ctx, normalizer.Disjunction(trigrams), req.Tags, req.FilterDirectory, req.N)
	if err != nil {
		return Result{Err: fmt.Errorf("lexical retrieval: %w", err)}
	}
	return Result{Chunks: truncate(chunks, req.N)}
}

// RetrieveVector passes the raw query text, even an empty one, to the vector
// index.
func (p *Pipeline) RetrieveVector(ctx context.Context, req types.RetrievalRequest) Result {
	if p.deps.Vector == nil || req.N <= 0 {
		return Result{}
	}

	chunks, err := p.deps.Vector.Search(ctx, req.Query, req.Tags, req.N)
	if err != nil {
		return Result{Err: fmt.Errorf("vector retrieval: %w", err)}
	}
	return Result{Chunks: truncate(chunks, req.N)}
}

// RetrieveRecent chunks up to n files: recently edited ones first, then open
// files until n identifiers are collected. Files that cannot be read are
// skipped.
func (p *Pipeline) RetrieveRecent(ctx context.Context, n int) Result {
	if n <= 0 || p.deps.Chunker == nil || p.deps.Workspace == nil {
		return Result{}
	}

	paths := p.recentPaths(ctx, n)

	var chunks []types.Chunk
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return Result{Err: err}
		}

		contents, err := p.deps.Workspace.ReadFile(ctx, path)
		if err != nil {
			p.logger.Warn("skipping unreadable file", "path", path, "error", err)
			continue
		}
		for c := range p.deps.Chunker.Split(path, contents, p.opts.MaxChunkSize, path) {
			chunks = append(chunks, c)
		}
	}
	return Result{Chunks: chunks}
}

// recentPaths collects up to n distinct identifiers from the edit cache,
// padded with open files.
func (p *Pipeline) recentPaths(ctx context.Context, n int) []string {
	paths := make([]string, 0, n)
	seen := make(map[string]bool, n)
	add := func(path string) {
		if len(paths) < n && path != "" && !seen[path] {
			seen[path] = true
			paths = append(paths, path)
		}
	}

	if p.deps.Recent != nil {
		for _, path := range p.deps.Recent.Recent(n) {
			add(path)
		}
	}
	if len(paths) >= n {
		return paths
	}

	open, err := p.deps.Workspace.OpenFiles(ctx)
	if err != nil {
		p.logger.Warn("listing open files failed", "error", err)
		return paths
	}
	for _, path := range open {
		add(path)
	}
	return paths
}

func truncate(chunks []types.Chunk, n int) []types.Chunk {
	if len(chunks) > n {
		return chunks[:n]
	}
	return chunks
}
