// Package recent tracks recently edited files in a bounded, concurrency-safe
// LRU ordered by last edit.
package recent

import (
	"slices"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCapacity is the number of files remembered when none is given
const DefaultCapacity = 100

// Cache maps file identifiers to their last edit time. The least recently
// edited entry is evicted once the capacity is reached.
type Cache struct {
	entries *lru.Cache[string, time.Time]
	now     func() time.Time
}

// New creates a cache holding up to capacity files (DefaultCapacity if <= 0)
func New(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	entries, err := lru.New[string, time.Time](capacity)
	if err != nil {
		// lru.New only fails for a non-positive size
		panic(err)
	}
	return &Cache{entries: entries, now: time.Now}
}

// Touch records an edit of path, making it the most recent entry
func (c *Cache) Touch(path string) {
	if path == "" {
		return
	}
	c.entries.Add(path, c.now())
}

// Recent returns up to n identifiers, most recently edited first.
// n <= 0 returns every entry.
func (c *Cache) Recent(n int) []string {
	keys := c.entries.Keys() // oldest to newest
	slices.Reverse(keys)
	if n > 0 && len(keys) > n {
		keys = keys[:n]
	}
	return keys
}

// EditedAt returns when path was last touched
func (c *Cache) EditedAt(path string) (time.Time, bool) {
	return c.entries.Peek(path)
}

// Remove forgets path
func (c *Cache) Remove(path string) {
	c.entries.Remove(path)
}

// Len returns the number of tracked files
func (c *Cache) Len() int {
	return c.entries.Len()
}

// Purge forgets every file
func (c *Cache) Purge() {
	c.entries.Purge()
}
