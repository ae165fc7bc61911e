//go:build sqlite_vec

package storage

// Built with:
//
//	CGO_ENABLED=1 go build -tags "sqlite_vec,fts5" ./...
//
// The cgo driver loads sqlite-vec, so SearchVector ranks with
// vec_distance_cosine inside the query instead of scanning rows in Go.

import (
	_ "github.com/mattn/go-sqlite3"
)

const (
	DriverName = "sqlite3"

	// VectorExtensionAvailable reports whether vec_distance_cosine can be used
	VectorExtensionAvailable = true

	BuildMode = "cgo"
)
