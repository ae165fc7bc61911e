package retrieval

import (
	"context"
	"errors"
	"io"
	"iter"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/dshills/gocontext-rag/pkg/types"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func chunk(path string, start, end int, content string) types.Chunk {
	return types.Chunk{Filepath: path, Digest: path, StartLine: start, EndLine: end, Content: content}
}

type fakeLexical struct {
	chunks  []types.Chunk
	err     error
	calls   atomic.Int32
	queries chan string
	before  func(ctx context.Context) error
}

func (f *fakeLexical) Search(ctx context.Context, query string, _ []types.ScopeTag, _ string, limit int) ([]types.Chunk, error) {
	f.calls.Add(1)
	if f.queries != nil {
		f.queries <- query
	}
	if f.before != nil {
		if err := f.before(ctx); err != nil {
			return nil, err
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return truncate(f.chunks, limit), nil
}

type fakeVector struct {
	chunks  []types.Chunk
	byQuery map[string][]types.Chunk
	err     error
	calls   atomic.Int32
	before  func(ctx context.Context) error
}

func (f *fakeVector) Search(ctx context.Context, query string, _ []types.ScopeTag, limit int) ([]types.Chunk, error) {
	f.calls.Add(1)
	if f.before != nil {
		if err := f.before(ctx); err != nil {
			return nil, err
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	if res, ok := f.byQuery[query]; ok {
		return truncate(res, limit), nil
	}
	return truncate(f.chunks, limit), nil
}

// lineChunker yields one chunk per line, digest as given
type lineChunker struct{}

func (lineChunker) Split(path, contents string, _ int, digest string) iter.Seq[types.Chunk] {
	return func(yield func(types.Chunk) bool) {
		for i, line := range strings.Split(contents, "\n") {
			if line == "" {
				continue
			}
			c := types.Chunk{Filepath: path, Digest: digest, Index: i, StartLine: i + 1, EndLine: i + 1, Content: line}
			if !yield(c) {
				return
			}
		}
	}
}

type fakeWorkspace struct {
	files   map[string]string
	open    []string
	openErr error
	reads   atomic.Int32
	before  func(ctx context.Context) error
}

func (f *fakeWorkspace) ReadFile(ctx context.Context, path string) (string, error) {
	f.reads.Add(1)
	if f.before != nil {
		if err := f.before(ctx); err != nil {
			return "", err
		}
	}
	contents, ok := f.files[path]
	if !ok {
		return "", errors.New("no such file: " + path)
	}
	return contents, nil
}

func (f *fakeWorkspace) OpenFiles(context.Context) ([]string, error) {
	return f.open, f.openErr
}

type fakeRecent []string

func (f fakeRecent) Recent(n int) []string {
	if len(f) > n {
		return f[:n]
	}
	return f
}

// contentModel scores chunks from a table keyed by content; unknown content scores 0
type contentModel struct {
	scores map[string]float64
	calls  atomic.Int32
	seen   [][]types.Chunk
	mu     sync.Mutex
}

func (m *contentModel) Name() string { return "content" }

func (m *contentModel) Score(_ context.Context, _ string, chunks []types.Chunk) ([]float64, error) {
	m.calls.Add(1)
	m.mu.Lock()
	m.seen = append(m.seen, append([]types.Chunk(nil), chunks...))
	m.mu.Unlock()
	out := make([]float64, len(chunks))
	for i, c := range chunks {
		out[i] = m.scores[c.Content]
	}
	return out, nil
}

// barrier blocks each arriving caller until parties callers have arrived or
// the context ends.
type barrier struct {
	remaining atomic.Int32
	done      chan struct{}
	once      sync.Once
}

func newBarrier(parties int) *barrier {
	b := &barrier{done: make(chan struct{})}
	b.remaining.Store(int32(parties))
	return b
}

func (b *barrier) wait(ctx context.Context) error {
	if b.remaining.Add(-1) == 0 {
		b.once.Do(func() { close(b.done) })
	}
	select {
	case <-b.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
