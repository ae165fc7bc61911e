package storage

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/dshills/gocontext-rag/pkg/types"
)

// searchVector performs vector similarity search using cosine similarity
func searchVector(ctx context.Context, q querier, queryVector []float32, tags []types.ScopeTag, limit int) ([]VectorResult, error) {
	if limit <= 0 || len(queryVector) == 0 {
		return []VectorResult{}, nil
	}
	// Use optimized SQL-based search when sqlite-vec is available
	if VectorExtensionAvailable {
		return searchVectorOptimized(ctx, q, queryVector, tags, limit)
	}
	// Fall back to Go-based computation for purego builds
	return searchVectorFallback(ctx, q, queryVector, tags, limit)
}

// searchVectorOptimized uses sqlite-vec extension for SQL-based vector similarity search
func searchVectorOptimized(ctx context.Context, q querier, queryVector []float32, tags []types.ScopeTag, limit int) ([]VectorResult, error) {
	// vec_distance_cosine returns distance (lower is better); convert to similarity
	query := `
		SELECT ` + chunkColumns + `,
			1.0 - vec_distance_cosine(e.vector, ?) AS similarity
		FROM chunks c
		INNER JOIN embeddings e ON c.id = e.chunk_id
		WHERE e.dimension = ?
	`
	args := []interface{}{serializeVector(queryVector), len(queryVector)}
	query, args = applyScopeFilters(query, args, tags, "")

	query += " ORDER BY similarity DESC, c.id LIMIT ?"
	args = append(args, limit)

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute vector search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	results := make([]VectorResult, 0, limit)
	for rows.Next() {
		var score float64
		chunk, err := scanChunk(rows, &score)
		if err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		results = append(results, VectorResult{Chunk: chunk, SimilarityScore: score})
	}

	return results, rows.Err()
}

// searchVectorFallback performs vector search using Go-based cosine similarity computation
// This is used when sqlite-vec extension is not available (purego builds)
func searchVectorFallback(ctx context.Context, q querier, queryVector []float32, tags []types.ScopeTag, limit int) ([]VectorResult, error) {
	query := `
		SELECT ` + chunkColumns + `, e.vector
		FROM chunks c
		INNER JOIN embeddings e ON c.id = e.chunk_id
		WHERE e.dimension = ?
	`
	args := []interface{}{len(queryVector)}
	query, args = applyScopeFilters(query, args, tags, "")
	query += " ORDER BY c.id"

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query embeddings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	candidates := make([]VectorResult, 0)
	for rows.Next() {
		var blob []byte
		chunk, err := scanChunk(rows, &blob)
		if err != nil {
			return nil, err
		}
		vector := deserializeVector(blob)
		if len(vector) != len(queryVector) {
			continue // Dimension mismatch, skip
		}
		candidates = append(candidates, VectorResult{
			Chunk:           chunk,
			SimilarityScore: cosineSimilarity(queryVector, vector),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sortCandidates(candidates)
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates, nil
}

// searchText performs BM25 full-text search using FTS5. match is an FTS5
// query expression; callers quote their terms.
func searchText(ctx context.Context, q querier, match string, tags []types.ScopeTag, directory string, limit int) ([]TextResult, error) {
	if strings.TrimSpace(match) == "" {
		return nil, ErrEmptyMatch
	}
	if limit <= 0 {
		return []TextResult{}, nil
	}

	sqlQuery := `
		SELECT ` + chunkColumns + `, bm25(chunks_fts) AS score
		FROM chunks_fts
		INNER JOIN chunks c ON c.id = chunks_fts.rowid
		WHERE chunks_fts MATCH ?
	`
	args := []interface{}{match}
	sqlQuery, args = applyScopeFilters(sqlQuery, args, tags, directory)

	// Order by BM25 score (lower is better) and limit
	sqlQuery += " ORDER BY score, c.id LIMIT ?"
	args = append(args, limit)

	rows, err := q.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute FTS search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	results := make([]TextResult, 0)
	for rows.Next() {
		var bm25 float64
		chunk, err := scanChunk(rows, &bm25)
		if err != nil {
			return nil, err
		}
		results = append(results, TextResult{Chunk: chunk, BM25Score: normalizeBM25(bm25)})
	}

	return results, rows.Err()
}

// Helper functions

// applyScopeFilters restricts a query over chunks c to the given scope tags
// (any of them) and, when directory is set, to paths under directory.
func applyScopeFilters(query string, args []interface{}, tags []types.ScopeTag, directory string) (string, []interface{}) {
	if len(tags) > 0 {
		conds := make([]string, len(tags))
		for i, tag := range tags {
			conds[i] = "(c.branch = ? AND c.directory = ?)"
			args = append(args, tag.Branch, tag.Directory)
		}
		query += " AND (" + strings.Join(conds, " OR ") + ")"
	}

	if dir := strings.TrimSuffix(directory, "/"); dir != "" {
		query += ` AND (c.path = ? OR c.path LIKE ? ESCAPE '\')`
		args = append(args, dir, escapeLike(dir)+"/%")
	}

	return query, args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike escapes LIKE wildcards so s matches literally
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// normalizeBM25 converts a BM25 score (negative, lower is better) to (0, 1]
// BM25 scores are typically in range [-50, 0]
func normalizeBM25(score float64) float64 {
	return 1.0 / (1.0 + math.Abs(score)/50.0)
}

// serializeVector converts a float32 slice to a byte blob (little-endian)
func serializeVector(vector []float32) []byte {
	blob := make([]byte, len(vector)*4)
	for i, v := range vector {
		binary.LittleEndian.PutUint32(blob[i*4:], math.Float32bits(v))
	}
	return blob
}

// deserializeVector converts a byte blob back to a float32 slice
func deserializeVector(blob []byte) []float32 {
	vector := make([]float32, len(blob)/4)
	for i := range vector {
		bits := binary.LittleEndian.Uint32(blob[i*4:])
		vector[i] = math.Float32frombits(bits)
	}
	return vector
}

// cosineSimilarity computes the cosine similarity between two vectors
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// sortCandidates sorts by score descending; ties keep row order
func sortCandidates(candidates []VectorResult) {
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].SimilarityScore > candidates[j].SimilarityScore
	})
}

// SerializeVector encodes a vector for Embedding.Vector
func SerializeVector(vector []float32) []byte {
	return serializeVector(vector)
}

// DeserializeVector decodes Embedding.Vector
func DeserializeVector(blob []byte) []float32 {
	return deserializeVector(blob)
}
