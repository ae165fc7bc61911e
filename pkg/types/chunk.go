package types

import (
	"crypto/sha256"
	"encoding/hex"
)

// Chunk is a contiguous span of text extracted from one file. Chunks are
// produced by a retriever or the chunker and passed by value; they are never
// mutated once created.
type Chunk struct {
	// Identification
	Filepath string
	Digest   string // Identity of the source document, usually the filepath
	Index    int    // Position of the chunk within its document (0-based)

	// Content
	Content string

	// Location (1-based, inclusive)
	StartLine int
	EndLine   int
}

// DocumentID returns the identity used to decide whether two chunks come
// from the same document.
func (c Chunk) DocumentID() string {
	if c.Digest != "" {
		return c.Digest
	}
	return c.Filepath
}

// Overlaps reports whether c and other belong to the same document and
// their line spans intersect.
func (c Chunk) Overlaps(other Chunk) bool {
	if c.DocumentID() != other.DocumentID() {
		return false
	}
	return c.StartLine <= other.EndLine && other.StartLine <= c.EndLine
}

// Validate checks that the chunk carries a usable location and content
func (c Chunk) Validate() error {
	if c.Filepath == "" {
		return ErrMissingFilepath
	}
	if c.Content == "" {
		return ErrEmptyContent
	}
	if c.StartLine <= 0 || c.EndLine < c.StartLine {
		return ErrInvalidSpan
	}
	return nil
}

// EstimateTokens estimates the number of tokens in the chunk content
// Uses a simple heuristic: characters / 4
func (c Chunk) EstimateTokens() int {
	return EstimateTokens(c.Content)
}

// ContentHash returns the hex encoded SHA-256 of the chunk content
func (c Chunk) ContentHash() string {
	h := sha256.Sum256([]byte(c.Content))
	return hex.EncodeToString(h[:])
}

// EstimateTokens estimates the token count of text using chars/4
func EstimateTokens(text string) int {
	return len(text) / 4
}
