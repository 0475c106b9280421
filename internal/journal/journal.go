// Package journal implements the crash-recovery transaction journal:
// the pipeline driver records a commit_begin entry before a transaction
// commits and a commit_done entry after its post-commit check, so a
// later startup sweep can find runs that crashed in between (spec §4.9,
// SPEC_FULL §4.9). Individual staged operations are not recorded.
package journal

import (
	"bufio"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
)

// Entry is one recorded staged operation.
type Entry struct {
	RunID      string    `json:"run_id"`
	WorkItemID string    `json:"work_item_id"`
	Op         string    `json:"op"`
	Detail     string    `json:"detail"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewRunID generates a correlation ID grouping every entry recorded
// for one driver.Run call, so a crash-recovery sweep can tell two
// commit_begin/commit_done pairs for the same catalog ID (a retry
// after a prior failure) apart.
func NewRunID() string {
	return uuid.NewString()
}

// Journal appends entries to a local NDJSON file and, when a Postgres
// DSN is configured, mirrors them to a table for multi-host recovery
// visibility. The local file is authoritative; the Postgres mirror is
// best-effort.
type Journal struct {
	mu   sync.Mutex
	path string
	db   *sql.DB
}

// Open opens (creating if absent) the local journal file at path. If
// postgresDSN is non-empty, entries are additionally mirrored there;
// a failure to connect is logged by the caller via the returned error,
// but callers may choose to proceed local-only.
func Open(path, postgresDSN string) (*Journal, error) {
	j := &Journal{path: path}

	if postgresDSN != "" {
		db, err := sql.Open("postgres", postgresDSN)
		if err != nil {
			return nil, fmt.Errorf("journal: open postgres: %w", err)
		}
		if err := db.Ping(); err != nil {
			db.Close()
			return nil, fmt.Errorf("journal: ping postgres: %w", err)
		}
		if _, err := db.Exec(createTableSQL); err != nil {
			db.Close()
			return nil, fmt.Errorf("journal: create table: %w", err)
		}
		j.db = db
	}

	return j, nil
}

const createTableSQL = `
CREATE TABLE IF NOT EXISTS javtidy_journal (
	id SERIAL PRIMARY KEY,
	run_id TEXT NOT NULL,
	work_item_id TEXT NOT NULL,
	op TEXT NOT NULL,
	detail TEXT NOT NULL,
	recorded_at TIMESTAMPTZ NOT NULL
)`

// Record appends one entry to the local file and, if configured, the
// Postgres mirror.
func (j *Journal) Record(e Entry) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	f, err := os.OpenFile(j.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("journal: open %s: %w", j.path, err)
	}
	defer f.Close()

	line, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("journal: marshal entry: %w", err)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("journal: append %s: %w", j.path, err)
	}

	if j.db != nil {
		_, err := j.db.Exec(
			`INSERT INTO javtidy_journal (run_id, work_item_id, op, detail, recorded_at) VALUES ($1, $2, $3, $4, $5)`,
			e.RunID, e.WorkItemID, e.Op, e.Detail, e.Timestamp,
		)
		if err != nil {
			// The local file already has the entry; the mirror is
			// best-effort and must not block local recovery.
			return fmt.Errorf("journal: postgres mirror write failed (local entry recorded): %w", err)
		}
	}

	return nil
}

// ReadAll reads every entry recorded in the local journal file, in
// append order, for the startup recovery sweep.
func ReadAll(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("journal: open %s: %w", path, err)
	}
	defer f.Close()

	var entries []Entry
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		var e Entry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			return nil, fmt.Errorf("journal: decode entry in %s: %w", path, err)
		}
		entries = append(entries, e)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("journal: scan %s: %w", path, err)
	}
	return entries, nil
}

// Close releases the Postgres connection, if one was opened.
func (j *Journal) Close() error {
	if j.db != nil {
		return j.db.Close()
	}
	return nil
}
