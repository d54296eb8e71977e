// ABOUTME: Terminal User Interface using bubbletea framework
// ABOUTME: Browses pipeline runs, their deal outcomes, run graphs, and sync state
package tui

import (
	"context"
	"database/sql"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/harperreed/dealbridge/models"
	"github.com/harperreed/dealbridge/sync"
)

// ViewMode represents the current TUI view
type ViewMode int

const (
	ViewList ViewMode = iota
	ViewDetail
	ViewGraph
	ViewSync
)

// RunFunc triggers one pipeline run from the TUI.
type RunFunc func(ctx context.Context) (*sync.Report, error)

// Model is the main bubbletea model
type Model struct {
	db       *sql.DB
	run      RunFunc
	viewMode ViewMode

	// List view state
	runs        []models.Run
	selectedRow int

	// Detail view state
	selectedID string
	runDeals   []models.RunDeal
	runLinks   []models.SyncLog

	// Graph view state
	graphDOT string

	// Pipeline trigger state
	running bool
	message string

	// UI state
	width  int
	height int
	err    error
}

// NewModel creates a new TUI model. run may be nil, which disables the "p" key.
func NewModel(db *sql.DB, run RunFunc) Model {
	m := Model{
		db:       db,
		run:      run,
		viewMode: ViewList,
		width:    80,
		height:   24,
	}
	m.loadRuns()
	return m
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case RunCompleteMsg:
		return m.handleRunComplete(msg)
	}
	return m, nil
}

func (m Model) View() string {
	switch m.viewMode {
	case ViewList:
		return m.renderListView()
	case ViewDetail:
		return m.renderDetailView()
	case ViewGraph:
		return m.renderGraphView()
	case ViewSync:
		return m.renderSyncView()
	}
	return ""
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	}

	// Delegate to view-specific handlers
	switch m.viewMode {
	case ViewList:
		return m.handleListKeys(msg)
	case ViewDetail:
		return m.handleDetailKeys(msg)
	case ViewGraph:
		return m.handleGraphKeys(msg)
	case ViewSync:
		return m.handleSyncKeys(msg)
	}

	return m, nil
}

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170")).
			MarginBottom(1)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			MarginTop(1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9"))

	messageStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)
)
