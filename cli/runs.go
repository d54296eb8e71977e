// ABOUTME: Run ledger CLI commands
// ABOUTME: Lists pipeline runs and shows per-deal outcomes and created records for one run
package cli

import (
	"database/sql"
	"flag"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/harperreed/dealbridge/db"
)

// ListRunsCommand prints the most recent runs.
func ListRunsCommand(database *sql.DB, out io.Writer, args []string) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	limit := fs.Int("limit", 20, "Maximum number of runs")
	if err := fs.Parse(args); err != nil {
		return err
	}

	runs, err := db.ListRuns(database, *limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		_, _ = fmt.Fprintln(out, "No runs yet")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tSTARTED\tSTATUS\tPROCESSED\tSKIPPED")
	_, _ = fmt.Fprintln(w, "--\t-------\t------\t---------\t-------")
	for _, run := range runs {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\n",
			run.ID, run.StartedAt.Local().Format(time.DateTime), run.Status, run.Processed, run.Skipped)
	}
	_ = w.Flush()

	_, _ = fmt.Fprintf(out, "\nTotal: %d run(s)\n", len(runs))
	return nil
}

// ShowRunCommand prints one run with its deal outcomes and the HubSpot records it created.
func ShowRunCommand(database *sql.DB, out io.Writer, args []string) error {
	fs := flag.NewFlagSet("runs show", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("run ID required")
	}

	runID := fs.Arg(0)
	run, err := db.GetRun(database, runID)
	if err != nil {
		return err
	}
	if run == nil {
		return fmt.Errorf("run %s not found", runID)
	}

	_, _ = fmt.Fprintf(out, "Run:       %s\n", run.ID)
	_, _ = fmt.Fprintf(out, "Status:    %s\n", run.Status)
	_, _ = fmt.Fprintf(out, "Started:   %s\n", run.StartedAt.Local().Format(time.DateTime))
	if run.FinishedAt != nil {
		_, _ = fmt.Fprintf(out, "Finished:  %s\n", run.FinishedAt.Local().Format(time.DateTime))
	}
	if run.Error != "" {
		_, _ = fmt.Fprintf(out, "Error:     %s\n", run.Error)
	}
	_, _ = fmt.Fprintf(out, "Processed: %d\n", run.Processed)
	_, _ = fmt.Fprintf(out, "Skipped:   %d\n", run.Skipped)

	deals, err := db.ListRunDeals(database, runID)
	if err != nil {
		return err
	}
	if len(deals) > 0 {
		_, _ = fmt.Fprintln(out)
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "DEAL\tNAME\tOUTCOME\tREASON\tCONTRACT")
		for _, d := range deals {
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", d.DealID, d.DealName, d.Outcome, orDash(d.Reason), orDash(d.ContractID))
		}
		_ = w.Flush()
	}

	links, err := db.ListRunLinks(database, runID)
	if err != nil {
		return err
	}
	if len(links) > 0 {
		_, _ = fmt.Fprintln(out)
		_, _ = fmt.Fprintln(out, "Created records:")
		for _, l := range links {
			if l.Metadata != "" {
				_, _ = fmt.Fprintf(out, "  deal %s -> %s %s (%s)\n", l.SourceID, l.EntityType, l.EntityID, l.Metadata)
			} else {
				_, _ = fmt.Fprintf(out, "  deal %s -> %s %s\n", l.SourceID, l.EntityType, l.EntityID)
			}
		}
	}
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// formatTimeSince renders a duration from t to now in words.
func formatTimeSince(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return plural(int(d.Minutes()), "minute") + " ago"
	case d < 24*time.Hour:
		return plural(int(d.Hours()), "hour") + " ago"
	default:
		return plural(int(d.Hours()/24), "day") + " ago"
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
