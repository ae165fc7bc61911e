// Package normalizer turns raw natural-language or code-like queries into
// lexical search terms.
//
// The cleaning steps are: collapse whitespace, keep word tokens, drop English
// stop words, stem (Snowball), de-duplicate, join, and expand the joined
// string into character trigrams:
//
//	normalizer.Normalize("running the tests")
//	// terms "run test" -> ["run" "un " "n t" " te" "tes" "est"]
//
// Disjunction quotes the trigrams for an FTS5 trigram index and ORs them.
package normalizer
