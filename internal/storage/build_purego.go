//go:build !sqlite_vec

package storage

// Default build. modernc.org/sqlite needs no C toolchain and ships FTS5 with
// the trigram tokenizer; cosine similarity is computed in Go over the
// scoped embedding rows.

import (
	_ "modernc.org/sqlite"
)

const (
	DriverName = "sqlite"

	// VectorExtensionAvailable reports whether vec_distance_cosine can be used
	VectorExtensionAvailable = false

	BuildMode = "purego"
)
