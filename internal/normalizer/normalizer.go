package normalizer

import (
	"strings"
	"unicode"

	"github.com/kljensen/snowball/english"
)

// TrigramSize is the window width used to expand the cleaned term string
const TrigramSize = 3

// Terms reduces a raw query to its stemmed, stop-word free, de-duplicated
// word terms in first-seen order.
func Terms(query string) []string {
	words := tokenize(collapseWhitespace(query))

	seen := make(map[string]struct{}, len(words))
	terms := make([]string, 0, len(words))
	for _, w := range words {
		// Stem first: "others" is kept as a word but stems to "other"
		stem := english.Stem(w, false)
		if stem == "" || isStopWord(w) || isStopWord(stem) {
			continue
		}
		if _, dup := seen[stem]; dup {
			continue
		}
		seen[stem] = struct{}{}
		terms = append(terms, stem)
	}
	return terms
}

// Normalize turns a raw query into the character trigrams of its cleaned
// term string. An empty result means the query carries no lexical signal.
func Normalize(query string) []string {
	terms := Terms(query)
	if len(terms) == 0 {
		return []string{}
	}
	return ngrams(strings.Join(terms, " "), TrigramSize)
}

// Disjunction builds an FTS5 match expression that ORs the quoted terms.
// Returns "" when terms is empty.
func Disjunction(terms []string) string {
	quoted := make([]string, 0, len(terms))
	for _, t := range terms {
		if t == "" {
			continue
		}
		quoted = append(quoted, `"`+strings.ReplaceAll(t, `"`, `""`)+`"`)
	}
	return strings.Join(quoted, " OR ")
}

// collapseWhitespace trims the query and folds whitespace runs into one space
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// tokenize splits text into lower-cased word tokens. Tokens made only of
// digits or punctuation are dropped; identifiers such as snake_case names
// survive as a single token.
func tokenize(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_')
	})

	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, "_")
		if !hasLetter(f) {
			continue
		}
		tokens = append(tokens, strings.ToLower(f))
	}
	return tokens
}

func hasLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

// ngrams returns every contiguous window of size runes over s, dropping
// repeats while keeping first-seen order.
func ngrams(s string, size int) []string {
	runes := []rune(s)
	if size <= 0 || len(runes) < size {
		return []string{}
	}

	seen := make(map[string]struct{}, len(runes))
	out := make([]string, 0, len(runes)-size+1)
	for i := 0; i+size <= len(runes); i++ {
		g := string(runes[i : i+size])
		if _, dup := seen[g]; dup {
			continue
		}
		seen[g] = struct{}{}
		out = append(out, g)
	}
	return out
}
