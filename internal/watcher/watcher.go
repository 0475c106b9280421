// Package watcher wraps fsnotify to emit coalesced file events for
// input_dir, restricted to the configured extension allow-list and an
// optional .javtidyignore file (SPEC_FULL §4.11).
package watcher

import (
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	gitignore "github.com/sabhiram/go-gitignore"
)

// EventKind classifies a coalesced filesystem event.
type EventKind int

const (
	Create EventKind = iota
	Write
	Rename
)

// Event is one coalesced, filtered filesystem notification.
type Event struct {
	Path string
	Kind EventKind
}

// Watcher emits Events on Events() for files under root matching
// extensions, debounced so a burst of writes to the same path collapses
// into one event (spec §5's ordering guarantee).
type Watcher struct {
	fsw        *fsnotify.Watcher
	extensions map[string]bool
	ignore     *gitignore.GitIgnore
	debounce   time.Duration

	out chan Event

	mu      sync.Mutex
	pending map[string]*pendingEvent
}

type pendingEvent struct {
	kind  EventKind
	timer *time.Timer
}

// New creates a Watcher rooted at dir. extensions is the migrate_files
// allow-list (empty matches every file); ignoreFile, if non-empty and
// present, is loaded as a .javtidyignore (gitignore-syntax) filter.
func New(dir string, extensions []string, ignoreFile string, debounce time.Duration) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watcher: create: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watcher: watch %s: %w", dir, err)
	}

	ext := make(map[string]bool, len(extensions))
	for _, e := range extensions {
		ext[strings.ToLower(e)] = true
	}

	var ig *gitignore.GitIgnore
	if ignoreFile != "" {
		if compiled, err := gitignore.CompileIgnoreFile(ignoreFile); err == nil {
			ig = compiled
		}
		// A missing or unparsable .javtidyignore is not fatal: it simply
		// means nothing is suppressed.
	}

	if debounce <= 0 {
		debounce = 300 * time.Millisecond
	}

	w := &Watcher{
		fsw:        fsw,
		extensions: ext,
		ignore:     ig,
		debounce:   debounce,
		out:        make(chan Event, 256),
		pending:    make(map[string]*pendingEvent),
	}
	go w.loop()
	return w, nil
}

// Events returns the channel of coalesced, filtered events.
func (w *Watcher) Events() <-chan Event { return w.out }

// Close stops watching and releases the underlying fsnotify watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

func (w *Watcher) loop() {
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				close(w.out)
				return
			}
			w.handle(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Printf("watcher: fsnotify error: %v", err)
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	if !w.accepts(ev.Name) {
		return
	}

	var kind EventKind
	switch {
	case ev.Op&fsnotify.Create != 0:
		kind = Create
	case ev.Op&fsnotify.Write != 0:
		kind = Write
	case ev.Op&fsnotify.Rename != 0:
		kind = Rename
	default:
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if p, ok := w.pending[ev.Name]; ok {
		p.kind = kind
		p.timer.Reset(w.debounce)
		return
	}

	path := ev.Name
	p := &pendingEvent{kind: kind}
	p.timer = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		w.out <- Event{Path: path, Kind: p.kind}
	})
	w.pending[ev.Name] = p
}

func (w *Watcher) accepts(path string) bool {
	if len(w.extensions) > 0 && !w.extensions[strings.ToLower(filepath.Ext(path))] {
		return false
	}
	if w.ignore != nil && w.ignore.MatchesPath(path) {
		return false
	}
	return true
}
