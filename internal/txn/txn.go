// Package txn implements the staged file-operation transaction manager
// described in spec §4.9: an ordered batch of filesystem operations
// committed with a backup-and-rename discipline, reversible on abort.
package txn

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "golang.org/x/image/webp"
)

// LinkKind selects the multi-actor linking strategy for an additional
// actor entry (spec §6 naming.multi_actor_strategy).
type LinkKind int

const (
	LinkSymlink LinkKind = iota
	LinkHardlink
)

type opKind int

const (
	opCreateDir opKind = iota
	opWriteFile
	opMoveFile
	opLink
)

// op is one staged operation plus the closure to undo it, set only
// after the operation has actually executed.
type op struct {
	kind opKind

	dirPath string

	filePath string
	fileData []byte

	moveSrc, moveDst string

	linkTarget, linkPath string
	linkKind             LinkKind

	undo func() error
}

// Substitution records a staged hardlink that fell back to a symlink
// (spec §4.9's "record the substitution").
type Substitution struct {
	LinkPath string
	Fallback LinkKind
}

// Transaction is an ordered batch of staged operations. Operations run
// in the order they were added; Commit executes them in order and
// Abort reverses whatever has already run.
type Transaction struct {
	ops           []*op
	applied       []*op
	Substitutions []Substitution
}

// New starts an empty transaction.
func New() *Transaction { return &Transaction{} }

// AddCreateDir stages directory creation (and any missing parents).
func (t *Transaction) AddCreateDir(path string) {
	t.ops = append(t.ops, &op{kind: opCreateDir, dirPath: path})
}

// AddWriteFile stages writing data to path via the temp-file-then-
// rename discipline (spec §4.9's write-file contract).
func (t *Transaction) AddWriteFile(path string, data []byte) {
	t.ops = append(t.ops, &op{kind: opWriteFile, filePath: path, fileData: data})
}

// AddMoveFile stages moving src to dst, with backup-and-rename if dst
// already exists.
func (t *Transaction) AddMoveFile(src, dst string) {
	t.ops = append(t.ops, &op{kind: opMoveFile, moveSrc: src, moveDst: dst})
}

// AddLink stages a hard link (falling back to a symlink on failure) or
// a symlink outright from linkPath to target.
func (t *Transaction) AddLink(target, linkPath string, kind LinkKind) {
	t.ops = append(t.ops, &op{kind: opLink, linkTarget: target, linkPath: linkPath, linkKind: kind})
}

// ImageFetcher fetches raw bytes for a URL, e.g. the workflow runner's
// shared HTTP client.
type ImageFetcher func(url string) ([]byte, error)

// StageImage fetches and validates url as a real, non-truncated image
// before adding its write as a staged operation. Cover art pulled from
// catalog sites is routinely WebP rather than JPEG/PNG/GIF, so the
// blank golang.org/x/image/webp import above registers a decoder for
// it alongside the standard library's three. Per spec §4.9.1 this is a
// soft miss: fetch or decode failure simply skips the image without
// staging anything or returning an error — image availability is
// cosmetic, unlike the video file itself.
func (t *Transaction) StageImage(fetch ImageFetcher, url, dst string) {
	if url == "" {
		return
	}
	data, err := fetch(url)
	if err != nil {
		return
	}
	if _, _, err := image.Decode(bytes.NewReader(data)); err != nil {
		return
	}
	t.AddWriteFile(dst, data)
}

// Commit executes every staged operation in order. On the first
// failure it aborts (reversing completed operations) and returns the
// original error wrapped with the abort outcome.
func (t *Transaction) Commit() error {
	for _, o := range t.ops {
		if err := t.run(o); err != nil {
			if abortErr := t.Abort(); abortErr != nil {
				return fmt.Errorf("txn: commit failed (%w); abort also failed: %v", err, abortErr)
			}
			return fmt.Errorf("txn: commit failed: %w", err)
		}
		t.applied = append(t.applied, o)
	}
	return nil
}

// Abort reverses every operation applied so far, most recent first.
func (t *Transaction) Abort() error {
	for i := len(t.applied) - 1; i >= 0; i-- {
		if t.applied[i].undo == nil {
			continue
		}
		if err := t.applied[i].undo(); err != nil {
			return fmt.Errorf("txn: undo step %d: %w", i, err)
		}
	}
	t.applied = nil
	return nil
}

func (t *Transaction) run(o *op) error {
	switch o.kind {
	case opCreateDir:
		return t.runCreateDir(o)
	case opWriteFile:
		return t.runWriteFile(o)
	case opMoveFile:
		return t.runMoveFile(o)
	case opLink:
		return t.runLink(o)
	default:
		return fmt.Errorf("txn: unknown operation kind %d", o.kind)
	}
}

func (t *Transaction) runCreateDir(o *op) error {
	if _, err := os.Stat(o.dirPath); err == nil {
		o.undo = func() error { return nil } // already existed, nothing to undo
		return nil
	}
	// Every level MkdirAll is about to create, deepest first, so undo
	// removes created parents as well as the leaf.
	var created []string
	for p := o.dirPath; ; p = filepath.Dir(p) {
		if _, err := os.Stat(p); !os.IsNotExist(err) {
			break
		}
		created = append(created, p)
		if filepath.Dir(p) == p {
			break
		}
	}
	if err := os.MkdirAll(o.dirPath, 0o755); err != nil {
		return fmt.Errorf("txn: mkdir %s: %w", o.dirPath, err)
	}
	o.undo = func() error {
		for _, p := range created {
			if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
				return err
			}
		}
		return nil
	}
	return nil
}

func (t *Transaction) runWriteFile(o *op) error {
	dir := filepath.Dir(o.filePath)
	tmp, err := os.CreateTemp(dir, ".javtidy-tmp-*")
	if err != nil {
		return fmt.Errorf("txn: create temp in %s: %w", dir, err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(o.fileData); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("txn: write temp %s: %w", tmpPath, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("txn: fsync temp %s: %w", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("txn: close temp %s: %w", tmpPath, err)
	}

	existed := fileExists(o.filePath)
	var priorData []byte
	if existed {
		priorData, err = os.ReadFile(o.filePath)
		if err != nil {
			os.Remove(tmpPath)
			return fmt.Errorf("txn: read existing %s for undo: %w", o.filePath, err)
		}
	}

	if err := os.Rename(tmpPath, o.filePath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("txn: rename %s into place: %w", o.filePath, err)
	}

	o.undo = func() error {
		if existed {
			return os.WriteFile(o.filePath, priorData, 0o644)
		}
		err := os.Remove(o.filePath)
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return nil
}

func (t *Transaction) runMoveFile(o *op) error {
	var backupPath string
	dstExisted := fileExists(o.moveDst)
	if dstExisted {
		backupPath = fmt.Sprintf("%s.backup.%d", o.moveDst, time.Now().Unix())
		if err := os.Rename(o.moveDst, backupPath); err != nil {
			return fmt.Errorf("txn: back up existing %s: %w", o.moveDst, err)
		}
	}

	if err := os.Rename(o.moveSrc, o.moveDst); err != nil {
		if dstExisted {
			if restoreErr := os.Rename(backupPath, o.moveDst); restoreErr != nil {
				return fmt.Errorf("txn: move %s to %s failed (%v); restoring backup also failed: %w", o.moveSrc, o.moveDst, err, restoreErr)
			}
		}
		return fmt.Errorf("txn: move %s to %s: %w", o.moveSrc, o.moveDst, err)
	}

	if dstExisted {
		if err := os.Remove(backupPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("txn: remove backup %s: %w", backupPath, err)
		}
	}

	o.undo = func() error {
		if err := os.Rename(o.moveDst, o.moveSrc); err != nil {
			return err
		}
		if dstExisted {
			return os.Rename(backupPath, o.moveDst)
		}
		return nil
	}
	return nil
}

func (t *Transaction) runLink(o *op) error {
	if o.linkKind == LinkHardlink {
		if err := os.Link(o.linkTarget, o.linkPath); err == nil {
			o.undo = func() error { return removeIfExists(o.linkPath) }
			return nil
		}
		t.Substitutions = append(t.Substitutions, Substitution{LinkPath: o.linkPath, Fallback: LinkSymlink})
	}
	if err := os.Symlink(o.linkTarget, o.linkPath); err != nil {
		return fmt.Errorf("txn: symlink %s -> %s: %w", o.linkPath, o.linkTarget, err)
	}
	o.undo = func() error { return removeIfExists(o.linkPath) }
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func removeIfExists(path string) error {
	err := os.Remove(path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// RecoverBackups walks dir recursively, removing leftover `.backup.*`
// files older than grace, per spec §4.9's crash-recovery sweep. The
// walk is recursive because output_dir's naming template nests
// committed files under per-actor subdirectories, so a crashed commit's
// backup can sit several levels below dir.
func RecoverBackups(dir string, grace time.Duration) error {
	cutoff := time.Now().Add(-grace)
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			// A vanished or unreadable entry mid-walk isn't fatal to the
			// sweep; skip it and keep going.
			return nil
		}
		if d.IsDir() || !isBackupName(d.Name()) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		if info.ModTime().Before(cutoff) {
			_ = os.Remove(path)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("txn: recovering backups under %s: %w", dir, err)
	}
	return nil
}

func isBackupName(name string) bool {
	return strings.Contains(name, ".backup.")
}
