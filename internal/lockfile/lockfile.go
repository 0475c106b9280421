// Package lockfile implements the cross-process processing lock and the
// mid-run integrity witness described in spec §4.8.
package lockfile

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/shirou/gopsutil/v3/process"
)

// Suffix is appended to the source path to name its lock file.
const Suffix = ".javtidy.lock"

// ErrContended is returned when another live process already owns the
// lock for this path.
var ErrContended = errors.New("lockfile: contended")

// Lock represents one acquired processing lock. Release must be called
// exactly once, regardless of how the driver run ends.
type Lock struct {
	path    string // the lock file's own path, source+Suffix
	pid     int
	created int64
}

// info is the three-line on-disk lock file format (spec §6).
type info struct {
	pid     int
	created int64
	source  string
}

func lockPath(source string) string { return source + Suffix }

func writeInfo(path string, i info) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = fmt.Fprintf(f, "%d\n%d\n%s\n", i.pid, i.created, i.source)
	return err
}

func readInfo(path string) (info, error) {
	f, err := os.Open(path)
	if err != nil {
		return info{}, err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	var lines []string
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return info{}, err
	}
	if len(lines) < 3 {
		return info{}, fmt.Errorf("lockfile: malformed lock file %s", path)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(lines[0]))
	if err != nil {
		return info{}, fmt.Errorf("lockfile: malformed pid in %s: %w", path, err)
	}
	created, err := strconv.ParseInt(strings.TrimSpace(lines[1]), 10, 64)
	if err != nil {
		return info{}, fmt.Errorf("lockfile: malformed timestamp in %s: %w", path, err)
	}
	return info{pid: pid, created: created, source: lines[2]}, nil
}

// Acquire attempts to create the lock file for source exclusively. If a
// lock file already exists, a live owner within timeout yields
// ErrContended; a dead or stale owner is replaced.
func Acquire(source string, timeout time.Duration) (*Lock, error) {
	abs, err := filepath.Abs(source)
	if err != nil {
		return nil, fmt.Errorf("lockfile: resolve %s: %w", source, err)
	}
	path := lockPath(source)

	me := info{pid: os.Getpid(), created: time.Now().Unix(), source: abs}

	for {
		err := writeInfo(path, me)
		if err == nil {
			return &Lock{path: path, pid: me.pid, created: me.created}, nil
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("lockfile: create %s: %w", path, err)
		}

		existing, readErr := readInfo(path)
		if readErr != nil {
			// Unreadable lock file; treat as stale and try to replace it.
			if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
				return nil, fmt.Errorf("lockfile: remove malformed lock %s: %w", path, rmErr)
			}
			continue
		}

		if isStale(existing, timeout) {
			if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
				return nil, fmt.Errorf("lockfile: remove stale lock %s: %w", path, rmErr)
			}
			continue
		}

		return nil, ErrContended
	}
}

func isStale(i info, timeout time.Duration) bool {
	live, err := process.PidExists(int32(i.pid))
	if err == nil && !live {
		return true
	}
	age := time.Since(time.Unix(i.created, 0))
	return age > timeout
}

// Release removes the lock file. A lock file already missing at release
// time is logged here and is not an error.
func (l *Lock) Release() error {
	err := os.Remove(l.path)
	if os.IsNotExist(err) {
		log.Printf("lockfile: release %s: lock file already missing", l.path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("lockfile: release %s: %w", l.path, err)
	}
	return nil
}

// Witness is the (size, mtime) tuple captured at acquire time, plus the
// content hash consulted only on suspicion (spec §4.8, §3): the fast
// path never looks at Hash, only Verify's fallback does.
type Witness struct {
	Path  string
	Size  int64
	MTime time.Time
	Hash  uint64
}

// Capture snapshots the witness for path, including its content hash —
// cheap relative to the scrape/stage work the driver does between
// Capture and Verify, and the only baseline Verify's fallback has to
// compare a same-size, same-or-later-mtime rewrite against.
func Capture(path string) (Witness, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return Witness{}, fmt.Errorf("lockfile: stat %s: %w", path, err)
	}
	hash, err := ContentHash(path)
	if err != nil {
		return Witness{}, err
	}
	return Witness{Path: path, Size: fi.Size(), MTime: fi.ModTime(), Hash: hash}, nil
}

// ErrIntegrityLost means the file changed since the witness was
// captured; the driver treats this as a fatal, non-recoverable error
// for the current run.
var ErrIntegrityLost = errors.New("lockfile: integrity lost")

// Verify re-stats the file and compares against w. When size and mtime
// both still match, that is decisive and no hash is computed. When
// either disagrees — the "suspicion" spec §3 describes — Verify falls
// back to recomputing the content hash before declaring the witness
// lost, so a bare `touch` (mtime changes, bytes don't) isn't reported
// as corruption.
func (w Witness) Verify() error {
	fi, err := os.Stat(w.Path)
	if err != nil {
		return fmt.Errorf("lockfile: stat %s: %w", w.Path, err)
	}
	if fi.Size() == w.Size && fi.ModTime().Equal(w.MTime) {
		return nil
	}
	hash, err := ContentHash(w.Path)
	if err != nil {
		return fmt.Errorf("lockfile: recomputing hash for %s: %w", w.Path, err)
	}
	if hash == w.Hash {
		return nil
	}
	return ErrIntegrityLost
}

// ContentHash computes the xxhash digest of a file's full contents —
// the fallback Verify consults when the (size, mtime) fast path
// disagrees (spec §3, §4.8).
func ContentHash(path string) (uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("lockfile: open %s: %w", path, err)
	}
	defer f.Close()

	h := xxhash.New()
	if _, err := io.Copy(h, f); err != nil {
		return 0, fmt.Errorf("lockfile: hash %s: %w", path, err)
	}
	return h.Sum64(), nil
}
