package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dshills/gocontext-rag/pkg/types"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrEmptyMatch is returned when a full-text search has no match expression
	ErrEmptyMatch = errors.New("empty match expression")
	ErrInTx       = errors.New("operation not available inside a transaction")
)

// querier is satisfied by both *sql.DB and *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// queries holds every statement shared by the store and its transactions
type queries struct {
	q querier
}

// SQLiteStorage implements Storage on a single SQLite connection
type SQLiteStorage struct {
	queries
	db *sql.DB
}

var (
	_ Storage = (*SQLiteStorage)(nil)
	_ Tx      = (*sqliteTx)(nil)
)

// NewSQLiteStorage opens dbPath (":memory:" for a private in-memory database)
// and migrates it to the latest schema.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One writer; this also keeps an in-memory database alive across calls
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA foreign_keys=ON"} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}
	return &SQLiteStorage{queries: queries{q: db}, db: db}, nil
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func (s *SQLiteStorage) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqliteTx{queries: queries{q: tx}, tx: tx}, nil
}

func (s *SQLiteStorage) GetStatus(ctx context.Context) (*Status, error) {
	status := &Status{BuildMode: BuildMode}

	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM chunks),
			(SELECT COUNT(DISTINCT path) FROM chunks),
			(SELECT COUNT(*) FROM (SELECT DISTINCT branch, directory FROM chunks)),
			(SELECT COUNT(*) FROM embeddings)
	`).Scan(&status.ChunksCount, &status.PathsCount, &status.ScopesCount, &status.EmbeddingsCount)
	if err != nil {
		return nil, err
	}

	version, err := CurrentVersion(ctx, s.db)
	if err != nil {
		return nil, err
	}
	status.SchemaVersion = version.String()

	var pageCount, pageSize int
	if err := s.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount); err == nil {
		_ = s.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize)
		status.IndexSizeMB = float64(pageCount*pageSize) / (1024 * 1024)
	}

	status.Health = HealthStatus{
		DatabaseAccessible:  true,
		EmbeddingsAvailable: status.EmbeddingsCount > 0,
		FTSIndexesBuilt:     true, // created by migration 1.0.0
		VectorExtension:     VectorExtensionAvailable,
	}
	return status, nil
}

// sqliteTx routes every statement through one transaction
type sqliteTx struct {
	queries
	tx *sql.Tx
}

func (t *sqliteTx) Commit() error   { return t.tx.Commit() }
func (t *sqliteTx) Rollback() error { return t.tx.Rollback() }

// Close is a no-op; the store owns the connection
func (t *sqliteTx) Close() error { return nil }

func (t *sqliteTx) BeginTx(context.Context) (Tx, error) {
	return nil, fmt.Errorf("nested transaction: %w", ErrInTx)
}

// GetStatus would wait on the connection the transaction holds
func (t *sqliteTx) GetStatus(context.Context) (*Status, error) {
	return nil, fmt.Errorf("status: %w", ErrInTx)
}

const chunkColumns = `c.id, c.path, c.branch, c.directory, c.digest, c.chunk_index,
		       c.start_line, c.end_line, c.content, c.content_hash, c.created_at, c.updated_at`

// rowScanner is implemented by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

// scanChunk reads chunkColumns followed by extra destinations
func scanChunk(r rowScanner, extra ...any) (*Chunk, error) {
	var c Chunk
	dest := []any{
		&c.ID, &c.Path, &c.Branch, &c.Directory, &c.Digest, &c.ChunkIndex,
		&c.StartLine, &c.EndLine, &c.Content, &c.ContentHash,
		&c.CreatedAt, &c.UpdatedAt,
	}
	if err := r.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return &c, nil
}

// UpsertChunk inserts chunk or updates the row at the same
// (branch, directory, path, chunk_index), and sets chunk.ID.
func (x queries) UpsertChunk(ctx context.Context, chunk *Chunk) error {
	if chunk.Digest == "" {
		chunk.Digest = chunk.Path
	}
	if chunk.ContentHash == "" {
		chunk.ContentHash = chunk.ToTypesChunk().ContentHash()
	}

	now := time.Now()
	err := x.q.QueryRowContext(ctx, `
		INSERT INTO chunks (
			path, branch, directory, digest, chunk_index, start_line, end_line,
			content, content_hash, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(branch, directory, path, chunk_index)
		DO UPDATE SET
			digest = excluded.digest,
			start_line = excluded.start_line,
			end_line = excluded.end_line,
			content = excluded.content,
			content_hash = excluded.content_hash,
			updated_at = excluded.updated_at
		RETURNING id`,
		chunk.Path, chunk.Branch, chunk.Directory, chunk.Digest, chunk.ChunkIndex,
		chunk.StartLine, chunk.EndLine, chunk.Content, chunk.ContentHash,
		now, now,
	).Scan(&chunk.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert chunk %s#%d: %w", chunk.Path, chunk.ChunkIndex, err)
	}

	if chunk.CreatedAt.IsZero() {
		chunk.CreatedAt = now
	}
	chunk.UpdatedAt = now
	return nil
}

func (x queries) GetChunk(ctx context.Context, chunkID int64) (*Chunk, error) {
	c, err := scanChunk(x.q.QueryRowContext(ctx, `SELECT `+chunkColumns+` FROM chunks c WHERE c.id = ?`, chunkID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return c, err
}

// ListChunksByPath returns the chunks of path in scope ordered by chunk index
func (x queries) ListChunksByPath(ctx context.Context, scope types.ScopeTag, path string) ([]*Chunk, error) {
	rows, err := x.q.QueryContext(ctx, `SELECT `+chunkColumns+`
		FROM chunks c
		WHERE c.branch = ? AND c.directory = ? AND c.path = ?
		ORDER BY c.chunk_index`,
		scope.Branch, scope.Directory, path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	chunks := make([]*Chunk, 0)
	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// DeleteChunksByPath removes every chunk of path in scope; embeddings cascade
func (x queries) DeleteChunksByPath(ctx context.Context, scope types.ScopeTag, path string) (int, error) {
	result, err := x.q.ExecContext(ctx,
		`DELETE FROM chunks WHERE branch = ? AND directory = ? AND path = ?`,
		scope.Branch, scope.Directory, path)
	if err != nil {
		return 0, err
	}
	n, err := result.RowsAffected()
	return int(n), err
}

func (x queries) UpsertEmbedding(ctx context.Context, embedding *Embedding) error {
	now := time.Now()
	err := x.q.QueryRowContext(ctx, `
		INSERT INTO embeddings (chunk_id, vector, dimension, provider, model, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(chunk_id) DO UPDATE SET
			vector = excluded.vector,
			dimension = excluded.dimension,
			provider = excluded.provider,
			model = excluded.model
		RETURNING id`,
		embedding.ChunkID, embedding.Vector, embedding.Dimension,
		embedding.Provider, embedding.Model, now,
	).Scan(&embedding.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert embedding for chunk %d: %w", embedding.ChunkID, err)
	}
	embedding.CreatedAt = now
	return nil
}

func (x queries) GetEmbedding(ctx context.Context, chunkID int64) (*Embedding, error) {
	var e Embedding
	err := x.q.QueryRowContext(ctx, `
		SELECT id, chunk_id, vector, dimension, provider, model, created_at
		FROM embeddings
		WHERE chunk_id = ?`, chunkID,
	).Scan(&e.ID, &e.ChunkID, &e.Vector, &e.Dimension, &e.Provider, &e.Model, &e.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (x queries) SearchText(ctx context.Context, match string, tags []types.ScopeTag, directory string, limit int) ([]TextResult, error) {
	return searchText(ctx, x.q, match, tags, directory, limit)
}

func (x queries) SearchVector(ctx context.Context, vector []float32, tags []types.ScopeTag, limit int) ([]VectorResult, error) {
	return searchVector(ctx, x.q, vector, tags, limit)
}
