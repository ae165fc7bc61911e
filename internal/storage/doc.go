// Package storage provides SQLite-based persistence for scoped chunks and their
// embeddings, and the two searches the retrieval pipeline runs against them.
//
// # Database Schema
//
// Tables:
//   - chunks: chunk content and line span, unique per (branch, directory, path, chunk_index)
//   - chunks_fts: FTS5 index over chunk content using the trigram tokenizer
//   - embeddings: one little-endian float32 vector per chunk
//   - schema_version: applied migrations (semantic versions)
//
// Triggers keep chunks_fts in sync with chunks. Deleting a chunk cascades to its
// embedding.
//
// # Basic Usage
//
//	db, err := storage.NewSQLiteStorage("~/.gocontext/rag.db")
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	scope := types.ScopeTag{Branch: "main", Directory: "/src/app"}
//	row := storage.FromTypesChunk(chunk, scope)
//	if err := db.UpsertChunk(ctx, row); err != nil {
//	    return err
//	}
//
// # Searching
//
// SearchText takes an FTS5 match expression and returns chunks ordered by bm25
// (best first) with scores normalized to (0, 1]. SearchVector returns chunks
// ordered by cosine similarity. Both accept scope tags; a chunk matches when
// its (branch, directory) equals any tag. No tags means every scope.
// SearchText also accepts a directory that restricts results to paths under it.
//
// # Build Modes
//
// With the sqlite_vec build tag the cgo driver (mattn/go-sqlite3) is used and
// similarity is computed in SQL with vec_distance_cosine. Otherwise the pure Go
// driver (modernc.org/sqlite) is used and similarity is computed in Go.
//
// # Transactions
//
//	tx, err := db.BeginTx(ctx)
//	if err != nil {
//	    return err
//	}
//	defer tx.Rollback()
//
//	if _, err := tx.DeleteChunksByPath(ctx, scope, path); err != nil {
//	    return err
//	}
//	// ... upsert the new chunks
//	return tx.Commit()
package storage
