package reranker

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/dshills/gocontext-rag/pkg/types"
)

var (
	// ErrNoRelevanceModel is returned when reranking is attempted without a model.
	// It is a configuration error, never a transient one.
	ErrNoRelevanceModel = errors.New("no relevance model configured")
	// ErrScoreMismatch is returned when a model returns a score count that differs from its input
	ErrScoreMismatch = errors.New("relevance model returned wrong number of scores")
)

// DefaultMinScore is the threshold used when the threshold gate is enabled without a value
const DefaultMinScore = 0.3

// RelevanceModel scores chunks against a query. Scores are returned in input
// order, one per chunk; higher means more relevant.
type RelevanceModel interface {
	Score(ctx context.Context, query string, chunks []types.Chunk) ([]float64, error)
	Name() string
}

// ThresholdPolicy optionally discards candidates scoring below MinScore
type ThresholdPolicy struct {
	Enabled  bool
	MinScore float64
}

// Adapter turns relevance scores into a budget-limited ranking
type Adapter struct {
	Model     RelevanceModel
	Threshold ThresholdPolicy
}

// NewAdapter creates an adapter with the threshold gate off
func NewAdapter(model RelevanceModel) *Adapter {
	return &Adapter{Model: model}
}

// Configured reports whether a relevance model is present
func (a *Adapter) Configured() bool {
	return a != nil && a.Model != nil
}

// Rerank scores chunks once and returns the budget highest scoring ones in
// ascending score order, so the best chunk is last. When scores tie at the
// budget boundary the earlier chunk is kept, and tied chunks in the output
// keep their input order.
func (a *Adapter) Rerank(ctx context.Context, query string, chunks []types.Chunk, budget int) ([]types.Chunk, error) {
	if !a.Configured() {
		return nil, ErrNoRelevanceModel
	}
	if budget <= 0 || len(chunks) == 0 {
		return []types.Chunk{}, nil
	}

	scores, err := a.Model.Score(ctx, query, chunks)
	if err != nil {
		return nil, fmt.Errorf("%s relevance scoring: %w", a.Model.Name(), err)
	}
	if len(scores) != len(chunks) {
		return nil, fmt.Errorf("%w: %s returned %d scores for %d chunks", ErrScoreMismatch, a.Model.Name(), len(scores), len(chunks))
	}

	candidates := make([]scoredCandidate, 0, len(chunks))
	for i, s := range scores {
		if math.IsNaN(s) {
			s = math.Inf(-1)
		}
		if a.Threshold.Enabled && s < a.Threshold.MinScore {
			continue
		}
		candidates = append(candidates, scoredCandidate{chunk: chunks[i], score: s, pos: i})
	}

	// Best first, earliest first among equals, then cut to budget
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})
	if len(candidates) > budget {
		candidates = candidates[:budget]
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score < candidates[j].score
		}
		return candidates[i].pos < candidates[j].pos
	})

	result := make([]types.Chunk, len(candidates))
	for i, c := range candidates {
		result[i] = c.chunk
	}
	return result, nil
}

// scoredCandidate is a chunk with its score for one Rerank call
type scoredCandidate struct {
	chunk types.Chunk
	score float64
	pos   int
}
