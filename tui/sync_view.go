// ABOUTME: TUI view for the hubspot sync state
// ABOUTME: Shows the last successful run, current status, and last error
package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/harperreed/dealbridge/db"
	"github.com/harperreed/dealbridge/models"
)

var (
	syncServiceStyle = lipgloss.NewStyle().
				Bold(true).
				Width(12)

	syncIdleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10"))

	syncSyncingStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("11")).
				Bold(true)
)

func (m Model) renderSyncView() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("Sync State"))
	s.WriteString("\n\n")

	states, err := db.GetAllSyncStates(m.db)
	if err != nil {
		s.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", err)))
		s.WriteString("\n")
	} else if len(states) == 0 {
		s.WriteString(messageStyle.Render("No sync data found. Run 'dealbridge process' first."))
		s.WriteString("\n")
	}

	for _, state := range states {
		s.WriteString(syncServiceStyle.Render(state.Service))
		switch state.Status {
		case models.SyncStatusSyncing:
			s.WriteString(syncSyncingStyle.Render("  ⟳ Syncing..."))
		case models.SyncStatusError:
			s.WriteString(errorStyle.Render("  ✗ Error"))
			if state.ErrorMessage != nil {
				s.WriteString(errorStyle.Render(": " + *state.ErrorMessage))
			}
		default:
			s.WriteString(syncIdleStyle.Render("  ✓ Idle"))
		}

		if state.LastSyncTime != nil {
			s.WriteString(messageStyle.Render("  last success " + formatTimeSince(*state.LastSyncTime)))
		}
		if state.LastSyncToken != nil {
			s.WriteString(messageStyle.Render(" (run " + *state.LastSyncToken + ")"))
		}
		s.WriteString("\n")
	}

	s.WriteString("\n")
	s.WriteString(helpStyle.Render("Esc: Back • q: Quit"))
	return s.String()
}

func (m Model) handleSyncKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "esc" {
		m.viewMode = ViewList
	}
	return m, nil
}

func formatTimeSince(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
