package storage

import (
	"context"
	"time"

	"github.com/dshills/gocontext-rag/pkg/types"
)

// Storage defines the interface for persisting and querying indexed chunks
type Storage interface {
	// Chunk operations
	UpsertChunk(ctx context.Context, chunk *Chunk) error
	GetChunk(ctx context.Context, chunkID int64) (*Chunk, error)
	ListChunksByPath(ctx context.Context, scope types.ScopeTag, path string) ([]*Chunk, error)
	DeleteChunksByPath(ctx context.Context, scope types.ScopeTag, path string) (int, error)

	// Embedding operations
	UpsertEmbedding(ctx context.Context, embedding *Embedding) error
	GetEmbedding(ctx context.Context, chunkID int64) (*Embedding, error)

	// Search operations
	SearchText(ctx context.Context, match string, tags []types.ScopeTag, directory string, limit int) ([]TextResult, error)
	SearchVector(ctx context.Context, vector []float32, tags []types.ScopeTag, limit int) ([]VectorResult, error)

	// Status operations
	GetStatus(ctx context.Context) (*Status, error)

	// Database operations
	Close() error
	BeginTx(ctx context.Context) (Tx, error)
}

// Tx represents a database transaction
type Tx interface {
	Commit() error
	Rollback() error
	Storage // Embed Storage interface for transaction operations
}

// Chunk is a stored chunk row. A chunk is unique per (branch, directory, path, chunk_index).
type Chunk struct {
	ID          int64
	Path        string
	Branch      string
	Directory   string
	Digest      string
	ChunkIndex  int
	StartLine   int
	EndLine     int
	Content     string
	ContentHash string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Embedding represents a vector embedding for a chunk
type Embedding struct {
	ID        int64
	ChunkID   int64
	Vector    []byte // Serialized float32 array
	Dimension int
	Provider  string
	Model     string
	CreatedAt time.Time
}

// TextResult is a full-text match. Score is the normalized bm25 score in (0, 1], higher is better.
type TextResult struct {
	Chunk     *Chunk
	BM25Score float64
}

// VectorResult is a vector match ordered by cosine similarity
type VectorResult struct {
	Chunk           *Chunk
	SimilarityScore float64
}

// Status contains statistics about the store
type Status struct {
	ChunksCount     int
	EmbeddingsCount int
	PathsCount      int
	ScopesCount     int
	IndexSizeMB     float64
	SchemaVersion   string
	BuildMode       string
	Health          HealthStatus
}

// HealthStatus represents the health of the index
type HealthStatus struct {
	DatabaseAccessible  bool
	EmbeddingsAvailable bool
	FTSIndexesBuilt     bool
	VectorExtension     bool
}

// Scope returns the scope tag the chunk was indexed under
func (c *Chunk) Scope() types.ScopeTag {
	return types.ScopeTag{Branch: c.Branch, Directory: c.Directory}
}

// ToTypesChunk converts a stored chunk to types.Chunk
func (c *Chunk) ToTypesChunk() types.Chunk {
	return types.Chunk{
		Filepath:  c.Path,
		Digest:    c.Digest,
		Index:     c.ChunkIndex,
		Content:   c.Content,
		StartLine: c.StartLine,
		EndLine:   c.EndLine,
	}
}

// FromTypesChunk converts types.Chunk to a storage Chunk under the given scope
func FromTypesChunk(c types.Chunk, scope types.ScopeTag) *Chunk {
	return &Chunk{
		Path:        c.Filepath,
		Branch:      scope.Branch,
		Directory:   scope.Directory,
		Digest:      c.DocumentID(),
		ChunkIndex:  c.Index,
		StartLine:   c.StartLine,
		EndLine:     c.EndLine,
		Content:     c.Content,
		ContentHash: c.ContentHash(),
	}
}
