package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jav-tidy/javtidy/internal/journal"
)

func TestIncompleteCommitsFindsUnmatchedBegin(t *testing.T) {
	entries := []journal.Entry{
		{RunID: "run-1", WorkItemID: "IPX-001", Op: "commit_begin"},
		{RunID: "run-1", WorkItemID: "IPX-001", Op: "commit_done"},
		{RunID: "run-2", WorkItemID: "IPX-002", Op: "commit_begin"},
	}

	got := incompleteCommits(entries)

	assert.Equal(t, []string{"run-2/IPX-002"}, got)
}

func TestIncompleteCommitsIgnoresFullyCompletedRuns(t *testing.T) {
	entries := []journal.Entry{
		{RunID: "run-1", WorkItemID: "IPX-001", Op: "commit_begin"},
		{RunID: "run-1", WorkItemID: "IPX-001", Op: "commit_done"},
	}

	assert.Empty(t, incompleteCommits(entries))
}
