package tui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jav-tidy/javtidy/internal/pipeline"
)

func TestUpdateTracksRowsInArrivalOrder(t *testing.T) {
	updates := make(chan RowUpdate)
	m := New(updates)

	next, _ := m.Update(rowMsg(RowUpdate{SourcePath: "b.mp4", State: pipeline.Scraping}))
	model := next.(Model)
	next, _ = model.Update(rowMsg(RowUpdate{SourcePath: "a.mp4", State: pipeline.Done}))
	model = next.(Model)

	require.Equal(t, []string{"b.mp4", "a.mp4"}, model.order)
}

func TestUpdateOverwritesExistingRowWithoutDuplicatingOrder(t *testing.T) {
	updates := make(chan RowUpdate)
	m := New(updates)

	next, _ := m.Update(rowMsg(RowUpdate{SourcePath: "a.mp4", State: pipeline.Queued}))
	model := next.(Model)
	next, _ = model.Update(rowMsg(RowUpdate{SourcePath: "a.mp4", State: pipeline.Done}))
	model = next.(Model)

	require.Equal(t, []string{"a.mp4"}, model.order)
	assert.Equal(t, pipeline.Done, model.rows["a.mp4"].State)
}

func TestUpdateQuitsOnQKeypress(t *testing.T) {
	updates := make(chan RowUpdate)
	m := New(updates)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestViewRendersStateAndError(t *testing.T) {
	updates := make(chan RowUpdate)
	m := New(updates)

	next, _ := m.Update(rowMsg(RowUpdate{SourcePath: "a.mp4", State: pipeline.Failed, Err: errors.New("lock contended")}))
	model := next.(Model)

	out := model.View()
	assert.True(t, strings.Contains(out, "a.mp4"))
	assert.True(t, strings.Contains(out, "failed"))
	assert.True(t, strings.Contains(out, "lock contended"))
}
