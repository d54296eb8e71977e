// ABOUTME: Run list view for the TUI
// ABOUTME: Shows recent runs in a table and triggers new pipeline runs
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/harperreed/dealbridge/db"
	"github.com/harperreed/dealbridge/sync"
)

// RunCompleteMsg is sent when a pipeline run triggered from the TUI finishes.
type RunCompleteMsg struct {
	Report *sync.Report
	Error  error
}

func (m *Model) loadRuns() {
	runs, err := db.ListRuns(m.db, 100)
	if err != nil {
		m.err = err
		return
	}
	m.runs = runs
	m.err = nil
	if m.selectedRow >= len(m.runs) {
		m.selectedRow = max(len(m.runs)-1, 0)
	}
}

func (m Model) renderListView() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("DEALBRIDGE RUNS"))
	s.WriteString("\n\n")

	if m.err != nil {
		s.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		s.WriteString("\n\n")
	}

	if len(m.runs) == 0 {
		s.WriteString(messageStyle.Render("No runs recorded yet."))
	} else {
		s.WriteString(m.renderRunsTable())
	}
	s.WriteString("\n")

	if m.running {
		s.WriteString(messageStyle.Render("⟳ Processing deals..."))
		s.WriteString("\n")
	} else if m.message != "" {
		s.WriteString(messageStyle.Render(m.message))
		s.WriteString("\n")
	}

	s.WriteString(m.renderListHelp())
	return s.String()
}

func (m Model) renderRunsTable() string {
	columns := []table.Column{
		{Title: "Run", Width: 28},
		{Title: "Started", Width: 17},
		{Title: "Status", Width: 10},
		{Title: "Processed", Width: 10},
		{Title: "Skipped", Width: 8},
	}

	rows := make([]table.Row, 0, len(m.runs))
	for _, run := range m.runs {
		rows = append(rows, table.Row{
			run.ID,
			run.StartedAt.Local().Format("2006-01-02 15:04"),
			run.Status,
			fmt.Sprintf("%d", run.Processed),
			fmt.Sprintf("%d", run.Skipped),
		})
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(max(m.height-10, 3)),
	)
	if m.selectedRow < len(rows) {
		t.SetCursor(m.selectedRow)
	}
	return t.View()
}

func (m Model) renderListHelp() string {
	help := []string{
		"↑/↓: Navigate",
		"Enter: View",
		"r: Refresh",
		"s: Sync state",
	}
	if m.run != nil {
		help = append(help, "p: Process deals")
	}
	help = append(help, "q: Quit")
	return helpStyle.Render(strings.Join(help, " • "))
}

func (m Model) handleListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.selectedRow > 0 {
			m.selectedRow--
		}
	case "down", "j":
		if m.selectedRow < len(m.runs)-1 {
			m.selectedRow++
		}
	case "enter":
		if m.selectedRow < len(m.runs) {
			m.selectedID = m.runs[m.selectedRow].ID
			m.loadRunDetail()
			m.viewMode = ViewDetail
		}
	case "r":
		m.loadRuns()
	case "s":
		m.viewMode = ViewSync
	case "p":
		if m.run == nil || m.running {
			return m, nil
		}
		m.running = true
		m.message = ""
		return m, m.triggerRun()
	}
	return m, nil
}

func (m Model) triggerRun() tea.Cmd {
	run := m.run
	return func() tea.Msg {
		report, err := run(context.Background())
		return RunCompleteMsg{Report: report, Error: err}
	}
}

func (m Model) handleRunComplete(msg RunCompleteMsg) (tea.Model, tea.Cmd) {
	m.running = false
	switch {
	case msg.Error != nil:
		m.message = fmt.Sprintf("✗ Run failed: %v", msg.Error)
	case msg.Report != nil:
		m.message = fmt.Sprintf("✓ Run %s: %d processed, %d skipped",
			msg.Report.RunID, msg.Report.Processed(), msg.Report.Skipped())
	}
	m.loadRuns()
	return m, nil
}
