// Package embedder turns text into vector embeddings for the vector index and
// the embedding-similarity relevance model.
//
// Four providers implement Embedder:
//
//   - jina and openai call an OpenAI-compatible /v1/embeddings endpoint with
//     bearer authentication, exponential backoff and an LRU cache keyed by the
//     SHA-256 of the text.
//   - hugot runs a sentence-transformer (all-MiniLM-L6-v2 by default) in-process.
//     The ONNX model is downloaded on first use.
//   - hash buckets words into a fixed-size unit vector. It needs no network or
//     model and is deterministic, which makes it suitable for tests.
//
// # Provider Selection
//
// NewFromEnv picks a provider from the environment:
//
//  1. If GOCONTEXT_EMBEDDING_PROVIDER is set, use it
//  2. Else if JINA_API_KEY is set, use Jina AI
//  3. Else if OPENAI_API_KEY is set, use OpenAI
//  4. Else fall back to the local hugot model
//
// Explicit configuration:
//
//	emb, err := embedder.New(embedder.Config{
//	    Provider:  "jina",
//	    APIKey:    "your-api-key",
//	    CacheSize: 10000,
//	})
//	if err != nil {
//	    return err
//	}
//	defer emb.Close()
//
//	result, err := emb.GenerateEmbedding(ctx, embedder.EmbeddingRequest{
//	    Text: "func ParseFile(path string) error { ... }",
//	})
//
// Batch requests are limited to MaxBatchSize texts and return one embedding per
// text in input order.
package embedder
