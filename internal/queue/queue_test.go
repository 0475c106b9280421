package queue

import (
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jav-tidy/javtidy/internal/pipeline"
)

// newTestDriver lets the pool tests exercise worker fan-out without a real
// pipeline.Driver; pipeline.Driver has no interface seam, so these
// tests drive Pool directly against a always-skips outcome by pointing
// every item at a nonexistent source path (locking a missing file's
// sibling lock succeeds, but parsing then fails to resolve a catalog
// id, landing on Skipped deterministically without touching a network
// or filesystem fixture).
func newTestDriver() *pipeline.Driver {
	return &pipeline.Driver{}
}

func TestPoolRunsEveryItemExactlyOnce(t *testing.T) {
	dir := t.TempDir()
	var mu sync.Mutex
	seen := make(map[string]bool)

	pool := NewPool(newTestDriver(), 3, 10, func(item Item, outcome pipeline.Outcome) {
		mu.Lock()
		seen[item.SourcePath] = true
		mu.Unlock()
	})

	names := []string{"a.mp4", "b.mp4", "c.mp4", "d.mp4", "e.mp4"}
	for _, name := range names {
		pool.Submit(Item{SourcePath: filepath.Join(dir, name)})
	}
	pool.Close()

	assert.Len(t, seen, len(names))
	for _, name := range names {
		assert.True(t, seen[filepath.Join(dir, name)])
	}
}

func TestPoolCloseWaitsForInFlightWork(t *testing.T) {
	dir := t.TempDir()
	var completed int
	var mu sync.Mutex

	pool := NewPool(newTestDriver(), 2, 10, func(item Item, outcome pipeline.Outcome) {
		mu.Lock()
		completed++
		mu.Unlock()
	})

	for i := 0; i < 8; i++ {
		pool.Submit(Item{SourcePath: filepath.Join(dir, "x.mp4")})
	}
	pool.Close()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 8, completed)
}
