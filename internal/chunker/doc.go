// Package chunker divides documents into line-aligned chunks for retrieval.
//
// Go files are split at top-level declaration boundaries so that a function,
// type or const/var group stays in one chunk together with its doc comment.
// The package clause and imports form the first chunk. Files that are not Go,
// or that do not parse, are split into line windows.
//
// Any segment whose estimated size exceeds the token budget is further cut
// into line windows. Token counts use the chars/4 heuristic.
//
// # Basic Usage
//
//	c := chunker.New()
//	for chunk := range c.Split("internal/app/run.go", contents, chunker.DefaultMaxChunkSize, "") {
//	    fmt.Printf("#%d lines %d-%d\n", chunk.Index, chunk.StartLine, chunk.EndLine)
//	}
//
// Chunks of one document never overlap, are numbered from zero and carry the
// digest passed to Split (the path when empty).
package chunker
