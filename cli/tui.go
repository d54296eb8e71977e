// ABOUTME: TUI subcommand
// ABOUTME: Launches the bubbletea run browser
package cli

import (
	"context"
	"database/sql"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/harperreed/dealbridge/charm"
	"github.com/harperreed/dealbridge/handlers"
	"github.com/harperreed/dealbridge/sync"
	"github.com/harperreed/dealbridge/tui"
)

// TUICommand opens the interactive run browser. pipeline may be nil to browse without
// triggering runs.
func TUICommand(database *sql.DB, pipeline handlers.Pipeline, outbox *charm.Client) error {
	p := tea.NewProgram(tui.NewModel(database, tuiRunFunc(pipeline, outbox)), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

// tuiRunFunc processes deals and queues the payloads like the process command does.
func tuiRunFunc(pipeline handlers.Pipeline, outbox *charm.Client) tui.RunFunc {
	if pipeline == nil {
		return nil
	}
	return func(ctx context.Context) (*sync.Report, error) {
		report, err := pipeline.ProcessDeals(ctx)
		if report != nil && outbox != nil {
			if _, qErr := outbox.PutReport(report.RunID, report.Payloads); qErr != nil && err == nil {
				err = fmt.Errorf("failed to queue payloads: %w", qErr)
			}
		}
		return report, err
	}
}
