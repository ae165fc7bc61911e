// Package retrieval fuses several retrieval signals into one ranked list of
// code chunks.
//
// A Pipeline fans out to three retrievers concurrently:
//
//   - recency: recently edited files, padded with open files, split by a Chunker
//   - lexical: the query normalized into trigrams and OR-joined for a full-text index
//   - vector:  the raw query sent to an embedding index
//
// Their results are concatenated in that order, deduplicated (earliest
// overlapping chunk wins) and reranked by a relevance model down to the
// output budget:
//
//	p := retrieval.New(retrieval.Dependencies{
//	    Lexical:   index.NewFullText(store),
//	    Vector:    index.NewVector(store, emb),
//	    Chunker:   chunker.New(),
//	    Workspace: ws,
//	    Recent:    edits,
//	    Reranker:  reranker.NewAdapter(model),
//	}, retrieval.Options{NFinal: 10})
//
//	chunks, err := p.Run(ctx, "parse config file", tags, "")
//
// Results are ordered by ascending score; the most relevant chunk is last.
//
// Retriever failures degrade to an empty contribution and a warning. Running
// without a relevance model returns reranker.ErrNoRelevanceModel before any
// retrieval is attempted.
package retrieval
