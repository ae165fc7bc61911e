// Package reranker orders retrieval candidates with a relevance model.
//
// Adapter.Rerank asks the model for one score per chunk, optionally drops
// chunks under a minimum score, and keeps the highest scoring chunks up to a
// budget. The result is in ascending score order: the most relevant chunk is
// the last element. Callers that want best-first order reverse it.
//
// Two models are provided. JinaModel calls a hosted cross-encoder rerank API.
// EmbeddingModel scores by cosine similarity between query and chunk
// embeddings from any embedder.Embedder, including the offline hugot and
// hash providers.
//
// An Adapter without a model returns ErrNoRelevanceModel instead of passing
// candidates through unranked.
package reranker
