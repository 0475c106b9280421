// Package tui implements the optional live worker-pool dashboard (spec
// §5, "--ui" mode): one row per in-flight or recently finished work
// item, refreshed on a tick.
//
// The Model/Update/View wiring below is grounded on a sibling repo's
// dashboard implementation, the one actual bubbletea consumer
// available for reference: a struct of lipgloss.Style fields set once
// at construction, a periodic tea.Tick-driven refresh message, and
// Update's type switch over tea.Msg. The in-flight spinner is a plain
// bubbles/spinner.Model driven the same way. See DESIGN.md.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jav-tidy/javtidy/internal/pipeline"
)

// RowUpdate reports one item's current state for the dashboard.
type RowUpdate struct {
	SourcePath string
	State      pipeline.State
	Err        error
}

type tickMsg time.Time

type rowMsg RowUpdate

// Model is the bubbletea model driving the dashboard.
type Model struct {
	updates <-chan RowUpdate
	rows    map[string]RowUpdate
	order   []string
	spinner spinner.Model

	headerStyle lipgloss.Style
	doneStyle   lipgloss.Style
	failStyle   lipgloss.Style
	activeStyle lipgloss.Style
}

// New builds a dashboard Model that reads row updates from updates
// until the channel closes.
func New(updates <-chan RowUpdate) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))

	return Model{
		updates:     updates,
		rows:        make(map[string]RowUpdate),
		spinner:     sp,
		headerStyle: lipgloss.NewStyle().Bold(true).Underline(true),
		doneStyle:   lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		failStyle:   lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
		activeStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
	}
}

// Init starts the periodic tick, the spinner animation, and the first
// read from updates.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.tick(), m.spinner.Tick, m.readNext())
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) readNext() tea.Cmd {
	return func() tea.Msg {
		u, ok := <-m.updates
		if !ok {
			return nil
		}
		return rowMsg(u)
	}
}

// Update handles tick, spinner and row-update messages. q or ctrl+c
// quits the dashboard; every other key press is ignored.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch v := msg.(type) {
	case tea.KeyMsg:
		if v.String() == "q" || v.String() == "ctrl+c" {
			return m, tea.Quit
		}
		return m, nil

	case rowMsg:
		u := RowUpdate(v)
		if _, seen := m.rows[u.SourcePath]; !seen {
			m.order = append(m.order, u.SourcePath)
		}
		m.rows[u.SourcePath] = u
		return m, m.readNext()

	case tickMsg:
		return m, m.tick()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(v)
		return m, cmd

	default:
		return m, nil
	}
}

// View renders one row per tracked source path, in the order each path
// was first seen; a later update for a path replaces its row in place.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(m.headerStyle.Render("javtidy") + "\n")

	for _, path := range m.order {
		row := m.rows[path]
		style := m.activeStyle
		prefix := "  "
		switch row.State {
		case pipeline.Done:
			style = m.doneStyle
		case pipeline.Failed, pipeline.Skipped:
			style = m.failStyle
		default:
			prefix = m.spinner.View() + " "
		}
		line := fmt.Sprintf("%s%-12s %s", prefix, row.State, path)
		if row.Err != nil {
			line += fmt.Sprintf(" (%v)", row.Err)
		}
		b.WriteString(style.Render(line) + "\n")
	}

	b.WriteString("\npress q to quit\n")
	return b.String()
}

// Run starts the dashboard program and blocks until the user quits with
// q or ctrl+c. Closing updates stops row updates but does not end the
// program.
func Run(updates <-chan RowUpdate) error {
	_, err := tea.NewProgram(New(updates)).Run()
	return err
}
