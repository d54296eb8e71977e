// ABOUTME: Visualization CLI commands
// ABOUTME: Handles the run graph and the text dashboard
package cli

import (
	"database/sql"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/harperreed/dealbridge/viz"
)

// VizRunCommand renders the graph of what a run created.
func VizRunCommand(database *sql.DB, out io.Writer, args []string) error {
	fs := flag.NewFlagSet("viz run", flag.ContinueOnError)
	output := fs.String("output", "", "Output file (default: stdout)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("run ID required")
	}

	generator := viz.NewGraphGenerator(database)
	dot, err := generator.GenerateRunGraph(fs.Arg(0))
	if err != nil {
		return err
	}

	if *output != "" {
		return os.WriteFile(*output, []byte(dot), 0644)
	}

	_, _ = fmt.Fprintln(out, dot)
	return nil
}

// VizDashboardCommand prints run totals and skip reasons.
func VizDashboardCommand(database *sql.DB, out io.Writer, args []string) error {
	fs := flag.NewFlagSet("viz dashboard", flag.ContinueOnError)
	limit := fs.Int("limit", 50, "Number of recent runs to aggregate")
	if err := fs.Parse(args); err != nil {
		return err
	}

	stats, err := viz.GenerateDashboardStats(database, *limit)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprint(out, viz.RenderDashboard(stats))
	return nil
}
