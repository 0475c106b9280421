package watcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcherEmitsCoalescedCreateEvent(t *testing.T) {
	dir := t.TempDir()
	w, err := New(dir, []string{".mp4"}, "", 50*time.Millisecond)
	require.NoError(t, err)
	defer w.Close()

	target := filepath.Join(dir, "movie.mp4")

	go func() {
		f, _ := os.Create(target)
		f.WriteString("a")
		f.Close()
		time.Sleep(5 * time.Millisecond)
		f2, _ := os.OpenFile(target, os.O_APPEND|os.O_WRONLY, 0o644)
		f2.WriteString("bb")
		f2.Close()
	}()

	select {
	case ev := <-w.Events():
		assert.Equal(t, target, ev.Path)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for coalesced event")
	}
}

func TestWatcherIgnoresNonMatchingExtension(t *testing.T) {
	dir := t.TempDir()
	w, err := New(dir, []string{".mp4"}, "", 30*time.Millisecond)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	select {
	case ev := <-w.Events():
		t.Fatalf("unexpected event for filtered-out extension: %+v", ev)
	case <-time.After(200 * time.Millisecond):
	}
}
