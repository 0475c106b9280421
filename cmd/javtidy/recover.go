package main

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/jav-tidy/javtidy/internal/config"
	"github.com/jav-tidy/javtidy/internal/journal"
	"github.com/jav-tidy/javtidy/internal/txn"
)

// backupGrace is how long a `.backup.*` file is left alone before the
// startup sweep treats it as abandoned rather than mid-commit.
const backupGrace = time.Hour

// runStartupRecovery performs the crash-recovery sweep spec §4.9
// describes: read the journal for commit_begin entries with no
// matching commit_done (logged for operator visibility — the
// backup-and-rename discipline in internal/txn already guarantees each
// staged file op is independently pre- or post-commit, so there is
// nothing left to replay), then clean up leftover `.backup.*` files
// under output_dir older than backupGrace.
func runStartupRecovery(cfg config.Config) error {
	entries, err := journal.ReadAll(cfg.Journal.Path)
	if err != nil {
		return fmt.Errorf("recovery: reading journal %s: %w", cfg.Journal.Path, err)
	}
	for _, key := range incompleteCommits(entries) {
		runID, workItemID, _ := strings.Cut(key, "/")
		log.Printf("recovery: %s (run %s): commit_begin recorded with no matching commit_done; verify output_dir manually", workItemID, runID)
	}

	if cfg.OutputDir != "" {
		if err := txn.RecoverBackups(cfg.OutputDir, backupGrace); err != nil {
			return fmt.Errorf("recovery: cleaning backups under %s: %w", cfg.OutputDir, err)
		}
	}
	return nil
}

// incompleteCommits returns, in first-seen order, the "runID/workItemID"
// keys whose most recent commit_begin has no later commit_done for the
// same run — i.e. a run that crashed between staging and the post-commit
// check (pipeline.Run's Committing state).
func incompleteCommits(entries []journal.Entry) []string {
	begun := make(map[string]bool)
	var order []string
	for _, e := range entries {
		key := e.RunID + "/" + e.WorkItemID
		switch e.Op {
		case "commit_begin":
			if !begun[key] {
				order = append(order, key)
			}
			begun[key] = true
		case "commit_done":
			begun[key] = false
		}
	}

	var incomplete []string
	for _, key := range order {
		if begun[key] {
			incomplete = append(incomplete, key)
		}
	}
	return incomplete
}
