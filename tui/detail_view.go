// ABOUTME: Run detail view for the TUI
// ABOUTME: Lists deal outcomes and the HubSpot records created during the selected run
package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/harperreed/dealbridge/db"
	"github.com/harperreed/dealbridge/models"
)

var (
	fieldLabelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170")).
			Width(12)

	fieldValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	processedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10"))

	skippedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("11"))
)

func (m *Model) loadRunDetail() {
	deals, err := db.ListRunDeals(m.db, m.selectedID)
	if err != nil {
		m.err = err
		return
	}
	links, err := db.ListRunLinks(m.db, m.selectedID)
	if err != nil {
		m.err = err
		return
	}
	m.runDeals = deals
	m.runLinks = links
}

func (m Model) renderDetailView() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("RUN " + m.selectedID))
	s.WriteString("\n\n")

	run, err := db.GetRun(m.db, m.selectedID)
	if err != nil {
		return errorStyle.Render(fmt.Sprintf("Error: %v", err))
	}
	if run == nil {
		return errorStyle.Render("Run not found")
	}

	s.WriteString(fieldLabelStyle.Render("Status:") + " " + fieldValueStyle.Render(run.Status) + "\n")
	s.WriteString(fieldLabelStyle.Render("Started:") + " " + fieldValueStyle.Render(run.StartedAt.Local().Format("2006-01-02 15:04:05")) + "\n")
	if run.FinishedAt != nil {
		s.WriteString(fieldLabelStyle.Render("Finished:") + " " + fieldValueStyle.Render(run.FinishedAt.Local().Format("2006-01-02 15:04:05")) + "\n")
	}
	if run.Error != "" {
		s.WriteString(fieldLabelStyle.Render("Error:") + " " + errorStyle.Render(run.Error) + "\n")
	}
	s.WriteString("\n")

	if len(m.runDeals) == 0 {
		s.WriteString(messageStyle.Render("No deals were ready in this run."))
		s.WriteString("\n")
	}

	projects := make(map[string][]string)
	for _, link := range m.runLinks {
		if link.EntityType == models.EntityProject {
			projects[link.SourceID] = append(projects[link.SourceID], link.Metadata)
		}
	}

	for _, deal := range m.runDeals {
		if deal.Outcome == models.OutcomeSkipped {
			s.WriteString(skippedStyle.Render("⏭  " + deal.DealName))
			s.WriteString(fmt.Sprintf("  (%s) skipped: %s\n", deal.DealID, deal.Reason))
			continue
		}
		s.WriteString(processedStyle.Render("✓ " + deal.DealName))
		s.WriteString(fmt.Sprintf("  (%s) company %s, contract %s", deal.DealID, deal.CompanyID, deal.ContractID))
		if skus := projects[deal.DealID]; len(skus) > 0 {
			s.WriteString(", projects " + strings.Join(skus, ", "))
		}
		s.WriteString("\n")
	}

	s.WriteString("\n")
	s.WriteString(m.renderDetailHelp())
	return s.String()
}

func (m Model) renderDetailHelp() string {
	help := []string{
		"g: Graph",
		"Esc: Back",
		"q: Quit",
	}
	return helpStyle.Render(strings.Join(help, " • "))
}

func (m Model) handleDetailKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.viewMode = ViewList
		m.selectedID = ""
		m.runDeals = nil
		m.runLinks = nil
	case "g":
		if err := m.generateGraph(); err != nil {
			m.err = err
			return m, nil
		}
		m.viewMode = ViewGraph
	}
	return m, nil
}
