// Package dirscan performs the startup sweep of input_dir, so files
// already present before the watcher started are not missed
// (SPEC_FULL §4.10).
package dirscan

import (
	"os"
	"path/filepath"
	"strings"
)

// ScanOptions configures the sweep.
type ScanOptions struct {
	// IgnoreDirs is a set of directory names never descended into.
	IgnoreDirs map[string]bool

	// IgnoreHidden skips files and directories starting with ".".
	IgnoreHidden bool

	// Extensions is the migrate_files allow-list; a file is only
	// reported if its lowercased extension (with leading dot) is a
	// member. An empty set matches every extension.
	Extensions map[string]bool
}

// DefaultOptions mirrors the usual set of directories that should never
// be treated as video sources even if nested under input_dir.
func DefaultOptions(extensions []string) ScanOptions {
	ext := make(map[string]bool, len(extensions))
	for _, e := range extensions {
		ext[strings.ToLower(e)] = true
	}
	return ScanOptions{
		IgnoreDirs: map[string]bool{
			".git": true,
			"lost+found": true,
		},
		IgnoreHidden: true,
		Extensions:   ext,
	}
}

// Scan walks root and returns the absolute path of every file matching
// opts.Extensions, in walk order: each directory's entries by name, with
// a subdirectory's files listed at the point where it sorts. Unreadable
// subdirectories are skipped rather than aborting the whole sweep —
// a startup sweep racing against files still being written should not
// fail the process.
func Scan(root string, opts ScanOptions) ([]string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	var found []string
	walk(absRoot, opts, &found)
	return found, nil
}

func walk(dir string, opts ScanOptions, found *[]string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		name := entry.Name()
		if opts.IgnoreHidden && strings.HasPrefix(name, ".") {
			continue
		}
		path := filepath.Join(dir, name)
		if entry.IsDir() {
			if opts.IgnoreDirs[name] {
				continue
			}
			walk(path, opts, found)
			continue
		}
		if matchesExtension(name, opts.Extensions) {
			*found = append(*found, path)
		}
	}
}

func matchesExtension(name string, allow map[string]bool) bool {
	if len(allow) == 0 {
		return true
	}
	return allow[strings.ToLower(filepath.Ext(name))]
}
