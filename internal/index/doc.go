// Package index adapts the SQLite store to the lexical and vector index
// contracts the retrieval pipeline consumes, and provides Writer to seed the
// store with chunks and their embeddings.
package index
