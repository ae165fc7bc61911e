package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/gocontext-rag/internal/chunker"
	"github.com/dshills/gocontext-rag/internal/reranker"
	"github.com/dshills/gocontext-rag/pkg/types"
)

// Default pipeline budgets
const (
	DefaultNRetrieve        = 50
	DefaultNFinal           = 20
	DefaultMaxChunkSize     = chunker.DefaultMaxChunkSize
	DefaultNResultsToExpand = 5
	DefaultNExpandTo        = 5
)

// State is a stage of one Run call
type State int

const (
	StateIdle State = iota
	StateRetrieving
	StateDeduplicating
	StateReranking
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRetrieving:
		return "retrieving"
	case StateDeduplicating:
		return "deduplicating"
	case StateReranking:
		return "reranking"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Event reports a state transition. Candidates is the size of the set the
// stage starts with (the result size for StateDone).
type Event struct {
	RunID      string
	State      State
	Candidates int
}

// Observer is called synchronously on every state transition
type Observer func(Event)

// ExpansionOptions controls the optional second fusion round, where the best
// chunks are used as queries for more vector results.
type ExpansionOptions struct {
	Enabled          bool
	NResultsToExpand int // Number of top chunks used as new queries
	NExpandTo        int // Vector results fetched per expanded chunk
}

// Options configures a Pipeline
type Options struct {
	NRetrieve    int // Per-source retrieval cap
	NFinal       int // Output budget
	MaxChunkSize int // Token budget per chunk for recent files
	Expansion    ExpansionOptions
	Logger       *slog.Logger
	Observer     Observer
}

func (o Options) withDefaults() Options {
	if o.NRetrieve <= 0 {
		o.NRetrieve = DefaultNRetrieve
	}
	if o.NFinal <= 0 {
		o.NFinal = DefaultNFinal
	}
	if o.MaxChunkSize <= 0 {
		o.MaxChunkSize = DefaultMaxChunkSize
	}
	if o.Expansion.NResultsToExpand <= 0 {
		o.Expansion.NResultsToExpand = DefaultNResultsToExpand
	}
	if o.Expansion.NExpandTo <= 0 {
		o.Expansion.NExpandTo = DefaultNExpandTo
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Dependencies are the collaborators a Pipeline reads from. Any retriever
// source may be nil, in which case it contributes nothing. Reranker must be
// configured before Run is called.
type Dependencies struct {
	Lexical   LexicalIndex
	Vector    VectorIndex
	Chunker   Chunker
	Workspace Workspace
	Recent    RecentEdits
	Reranker  *reranker.Adapter
}

// Pipeline fuses lexical, vector and recency retrieval into one ranked,
// budget-limited chunk list. A Pipeline is safe for concurrent Run calls.
type Pipeline struct {
	deps   Dependencies
	opts   Options
	logger *slog.Logger
}

// New creates a pipeline. Zero option values are replaced by defaults.
func New(deps Dependencies, opts Options) *Pipeline {
	opts = opts.withDefaults()
	return &Pipeline{
		deps:   deps,
		opts:   opts,
		logger: opts.Logger,
	}
}

// Options returns the effective options
func (p *Pipeline) Options() Options {
	return p.opts
}

// Run returns at most NFinal chunks relevant to query within tags, ordered by
// ascending relevance score (best chunk last). filterDirectory optionally
// restricts lexical results to a path prefix.
//
// Retriever failures are logged and the run continues without that source.
// A missing relevance model fails the run before any retrieval happens.
func (p *Pipeline) Run(ctx context.Context, query string, tags []types.ScopeTag, filterDirectory string) ([]types.Chunk, error) {
	runID := uuid.NewString()
	log := p.logger.With("run_id", runID)
	start := time.Now()

	p.emit(runID, StateIdle, 0)
	if !p.deps.Reranker.Configured() {
		p.emit(runID, StateFailed, 0)
		return nil, fmt.Errorf("retrieval pipeline: %w", reranker.ErrNoRelevanceModel)
	}

	req := types.RetrievalRequest{
		Query:           query,
		Tags:            append([]types.ScopeTag(nil), tags...),
		FilterDirectory: filterDirectory,
		N:               p.opts.NRetrieve,
	}

	p.emit(runID, StateRetrieving, 0)
	var recentRes, lexicalRes, vectorRes Result
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		recentRes = p.RetrieveRecent(gctx, req.N)
		return nil
	})
	g.Go(func() error {
		lexicalRes = p.RetrieveLexical(gctx, req)
		return nil
	})
	g.Go(func() error {
		vectorRes = p.RetrieveVector(gctx, req)
		return nil
	})
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		p.emit(runID, StateFailed, 0)
		return nil, err
	}

	// Fusion order decides which duplicate survives
	var candidates []types.Chunk
	candidates = append(candidates, unwrap(log, "recency", recentRes)...)
	candidates = append(candidates, unwrap(log, "lexical", lexicalRes)...)
	candidates = append(candidates, unwrap(log, "vector", vectorRes)...)

	p.emit(runID, StateDeduplicating, len(candidates))
	deduped := Dedupe(candidates)

	p.emit(runID, StateReranking, len(deduped))
	ranked, err := p.deps.Reranker.Rerank(ctx, query, deduped, p.opts.NFinal)
	if err != nil {
		p.emit(runID, StateFailed, len(deduped))
		return nil, fmt.Errorf("rerank: %w", err)
	}

	if p.opts.Expansion.Enabled {
		ranked, err = p.expand(ctx, log, req, ranked)
		if err != nil {
			p.emit(runID, StateFailed, len(ranked))
			return nil, fmt.Errorf("expansion rerank: %w", err)
		}
	}

	p.emit(runID, StateDone, len(ranked))
	log.Debug("retrieval complete",
		"recency", len(recentRes.Chunks),
		"lexical", len(lexicalRes.Chunks),
		"vector", len(vectorRes.Chunks),
		"candidates", len(deduped),
		"results", len(ranked),
		"duration", time.Since(start))
	return ranked, nil
}

// expand uses each of the best ranked chunks as a vector query, then
// dedupes and reranks the combined set.
func (p *Pipeline) expand(ctx context.Context, log *slog.Logger, req types.RetrievalRequest, ranked []types.Chunk) ([]types.Chunk, error) {
	if p.deps.Vector == nil || len(ranked) == 0 {
		return ranked, nil
	}

	// Ranked is ascending, so the best chunks are at the end
	top := ranked[max(0, len(ranked)-p.opts.Expansion.NResultsToExpand):]
	results := make([]Result, len(top))

	g, gctx := errgroup.WithContext(ctx)
	for i, c := range top {
		g.Go(func() error {
			results[i] = p.RetrieveVector(gctx, req.WithQuery(c.Content).WithLimit(p.opts.Expansion.NExpandTo))
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	candidates := append([]types.Chunk(nil), ranked...)
	for _, r := range results {
		candidates = append(candidates, unwrap(log, "expansion", r)...)
	}

	deduped := Dedupe(candidates)
	log.Debug("expanded candidates", "seeds", len(top), "candidates", len(deduped))
	return p.deps.Reranker.Rerank(ctx, req.Query, deduped, p.opts.NFinal)
}

func (p *Pipeline) emit(runID string, state State, candidates int) {
	p.logger.Debug("pipeline state", "run_id", runID, "state", state.String(), "candidates", candidates)
	if p.opts.Observer != nil {
		p.opts.Observer(Event{RunID: runID, State: state, Candidates: candidates})
	}
}

// unwrap logs a failed retriever and substitutes no chunks
func unwrap(log *slog.Logger, source string, r Result) []types.Chunk {
	if r.Err != nil {
		log.Warn("retriever failed, continuing without it", "source", source, "error", r.Err)
	}
	return r.OrEmpty()
}
