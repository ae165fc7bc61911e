// Package workspace gives the retrieval pipeline read access to files under a
// root directory and tracks which files the editor has open.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
)

var (
	// ErrOutsideRoot is returned for paths that resolve outside the workspace root
	ErrOutsideRoot = errors.New("path outside workspace root")
	// ErrNotRegular is returned when the path is a directory or device
	ErrNotRegular = errors.New("not a regular file")
)

// DefaultMaxFileSize bounds how much of a file ReadFile will load
const DefaultMaxFileSize = 4 << 20

// Local is a workspace backed by the local filesystem
type Local struct {
	root        string
	maxFileSize int64

	mu        sync.RWMutex
	openFiles []string
}

// NewLocal creates a workspace rooted at root
func NewLocal(root string) (*Local, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve workspace root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("stat workspace root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("workspace root %s is not a directory", abs)
	}
	return &Local{root: abs, maxFileSize: DefaultMaxFileSize}, nil
}

// Root returns the absolute workspace root
func (l *Local) Root() string {
	return l.root
}

// Resolve maps path (absolute, or relative to the root) to an absolute path
// inside the root.
func (l *Local) Resolve(path string) (string, error) {
	if !filepath.IsAbs(path) {
		path = filepath.Join(l.root, path)
	}
	path = filepath.Clean(path)

	rel, err := filepath.Rel(l.root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, path)
	}
	return path, nil
}

// ReadFile returns the contents of path
func (l *Local) ReadFile(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	abs, err := l.Resolve(path)
	if err != nil {
		return "", err
	}

	info, err := os.Stat(abs)
	if err != nil {
		return "", err
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("%w: %s", ErrNotRegular, abs)
	}
	if info.Size() > l.maxFileSize {
		return "", fmt.Errorf("file %s is %d bytes, limit is %d", abs, info.Size(), l.maxFileSize)
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// OpenFiles returns the open files, most relevant first
func (l *Local) OpenFiles(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.openFiles), nil
}

// SetOpenFiles replaces the open file list. Paths outside the root and
// duplicates are dropped; order is kept.
func (l *Local) SetOpenFiles(paths []string) []string {
	files := make([]string, 0, len(paths))
	seen := make(map[string]bool, len(paths))
	for _, p := range paths {
		abs, err := l.Resolve(p)
		if err != nil || seen[abs] {
			continue
		}
		seen[abs] = true
		files = append(files, abs)
	}

	l.mu.Lock()
	l.openFiles = files
	l.mu.Unlock()
	return slices.Clone(files)
}
