package chunker

import (
	"go/ast"
	"go/parser"
	"go/token"
	"iter"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/dshills/gocontext-rag/pkg/types"
)

const (
	// DefaultMaxChunkSize is the default token budget per chunk
	DefaultMaxChunkSize = 500

	// TokensPerChar is the heuristic for estimating tokens (chars/4)
	TokensPerChar = 4
)

// Chunker splits documents into line-aligned chunks
type Chunker struct {
	// DisableSyntax forces plain line windows even for Go files
	DisableSyntax bool
}

// New creates a new Chunker instance
func New() *Chunker {
	return &Chunker{}
}

// span is a 1-based inclusive line range
type span struct {
	start, end int
}

// Split returns the chunks of contents in document order. Go sources are cut at
// top-level declaration boundaries (doc comments stay with their declaration);
// everything else, and any segment over maxChunkSize tokens, is cut into line
// windows. Whitespace-only segments produce no chunk. digest defaults to path.
//
// The sequence is lazy and may be iterated more than once.
func (c *Chunker) Split(path, contents string, maxChunkSize int, digest string) iter.Seq[types.Chunk] {
	if maxChunkSize <= 0 {
		maxChunkSize = DefaultMaxChunkSize
	}
	if digest == "" {
		digest = path
	}

	return func(yield func(types.Chunk) bool) {
		if strings.TrimSpace(contents) == "" {
			return
		}

		lines := splitLines(contents)
		segments := []span{{1, len(lines)}}
		if !c.DisableSyntax && isGoFile(path) {
			if decls := goSegments(path, contents, len(lines)); len(decls) > 0 {
				segments = decls
			}
		}

		maxChars := maxChunkSize * TokensPerChar
		index := 0
		for _, seg := range segments {
			for _, w := range lineWindows(lines, seg, maxChunkSize) {
				for _, content := range cutBytes(strings.Join(lines[w.start-1:w.end], "\n"), maxChars) {
					if strings.TrimSpace(content) == "" {
						continue
					}
					chunk := types.Chunk{
						Filepath:  path,
						Digest:    digest,
						Index:     index,
						Content:   content,
						StartLine: w.start,
						EndLine:   w.end,
					}
					if !yield(chunk) {
						return
					}
					index++
				}
			}
		}
	}
}

// Collect materializes Split into a slice
func (c *Chunker) Collect(path, contents string, maxChunkSize int, digest string) []types.Chunk {
	var chunks []types.Chunk
	for chunk := range c.Split(path, contents, maxChunkSize, digest) {
		chunks = append(chunks, chunk)
	}
	return chunks
}

func splitLines(contents string) []string {
	lines := strings.Split(contents, "\n")
	if len(lines) > 1 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func isGoFile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".go")
}

// goSegments partitions the file at the first line of every top-level
// declaration. The package clause and anything before the first declaration
// form the first segment. Returns nil when the file does not parse.
func goSegments(path, contents string, lineCount int) []span {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, contents, parser.ParseComments)
	if err != nil || file == nil {
		return nil
	}

	starts := []int{1}
	for _, decl := range file.Decls {
		line := fset.Position(declStart(decl)).Line
		if line > starts[len(starts)-1] {
			starts = append(starts, line)
		}
	}

	segments := make([]span, 0, len(starts))
	for i, start := range starts {
		end := lineCount
		if i+1 < len(starts) {
			end = starts[i+1] - 1
		}
		segments = append(segments, span{start, end})
	}
	return segments
}

func declStart(decl ast.Decl) token.Pos {
	switch d := decl.(type) {
	case *ast.FuncDecl:
		if d.Doc != nil {
			return d.Doc.Pos()
		}
	case *ast.GenDecl:
		if d.Doc != nil {
			return d.Doc.Pos()
		}
	}
	return decl.Pos()
}

// lineWindows cuts seg into consecutive windows whose estimated token count
// stays within maxTokens. A single line longer than the budget becomes its
// own window and is cut further by cutBytes.
func lineWindows(lines []string, seg span, maxTokens int) []span {
	maxChars := maxTokens * TokensPerChar
	var windows []span

	start, chars := seg.start, 0
	for line := seg.start; line <= seg.end; line++ {
		n := len(lines[line-1]) + 1
		if chars > 0 && chars+n-1 > maxChars {
			windows = append(windows, span{start, line - 1})
			start, chars = line, 0
		}
		chars += n
	}
	if start <= seg.end {
		windows = append(windows, span{start, seg.end})
	}
	return windows
}

// cutBytes splits s into pieces of at most maxChars bytes without breaking a
// UTF-8 sequence. maxChars must be at least utf8.UTFMax.
func cutBytes(s string, maxChars int) []string {
	if len(s) <= maxChars {
		return []string{s}
	}
	pieces := make([]string, 0, len(s)/maxChars+1)
	for len(s) > maxChars {
		cut := maxChars
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		pieces = append(pieces, s[:cut])
		s = s[cut:]
	}
	return append(pieces, s)
}

// EstimateTokenCount estimates the number of tokens in a string
func EstimateTokenCount(text string) int {
	return len(text) / TokensPerChar
}
