package retrieval

import "github.com/dshills/gocontext-rag/pkg/types"

// Dedupe drops every chunk whose line span intersects an earlier kept chunk
// of the same document. The first-seen chunk of an overlapping group is kept
// and input order is preserved.
func Dedupe(chunks []types.Chunk) []types.Chunk {
	kept := make([]types.Chunk, 0, len(chunks))
	byDocument := make(map[string][]types.Chunk)

	for _, c := range chunks {
		id := c.DocumentID()
		duplicate := false
		for _, prev := range byDocument[id] {
			if prev.Overlaps(c) {
				duplicate = true
				break
			}
		}
		if duplicate {
			continue
		}
		byDocument[id] = append(byDocument[id], c)
		kept = append(kept, c)
	}
	return kept
}
