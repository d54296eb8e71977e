// ABOUTME: Pipeline CLI commands
// ABOUTME: Runs the deal pipeline once or on an interval and queues payloads in the outbox
package cli

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/harperreed/dealbridge/charm"
	"github.com/harperreed/dealbridge/db"
	"github.com/harperreed/dealbridge/handlers"
	"github.com/harperreed/dealbridge/sync"
	"github.com/rs/zerolog"
)

// MinDaemonInterval keeps the daemon from hammering the HubSpot rate limit.
const MinDaemonInterval = 5 * time.Minute

// ProcessCommand runs the pipeline once and prints the payloads as JSON.
func ProcessCommand(ctx context.Context, pipeline handlers.Pipeline, outbox *charm.Client, out io.Writer, args []string) error {
	fs := flag.NewFlagSet("process", flag.ContinueOnError)
	output := fs.String("output", "", "Write payload JSON to file instead of stdout")
	skipOutbox := fs.Bool("skip-outbox", false, "Do not queue payloads in the outbox")
	if err := fs.Parse(args); err != nil {
		return err
	}

	// A failed run still returns the payloads of the deals whose records it created.
	report, runErr := pipeline.ProcessDeals(ctx)
	if report == nil {
		return fmt.Errorf("failed to process deals: %w", runErr)
	}

	queued := 0
	if outbox != nil && !*skipOutbox {
		n, err := outbox.PutReport(report.RunID, report.Payloads)
		if err != nil {
			return errors.Join(wrapRunErr(runErr), fmt.Errorf("failed to queue payloads: %w", err))
		}
		queued = n
	}

	data, err := json.MarshalIndent(report.Payloads, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal payloads: %w", err)
	}

	if *output != "" {
		if err := os.WriteFile(*output, append(data, '\n'), 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", *output, err)
		}
	} else {
		_, _ = fmt.Fprintln(out, string(data))
	}

	if runErr != nil {
		_, _ = fmt.Fprintf(os.Stderr, "✗ Run %s stopped: %d processed, %d skipped, %d queued\n",
			report.RunID, report.Processed(), report.Skipped(), queued)
		return wrapRunErr(runErr)
	}

	_, _ = fmt.Fprintf(os.Stderr, "✓ Run %s: %d processed, %d skipped, %d queued\n",
		report.RunID, report.Processed(), report.Skipped(), queued)
	return nil
}

func wrapRunErr(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("failed to process deals: %w", err)
}

// AlreadyHandled builds the check that keeps repeated runs from recreating HubSpot records: a
// deal is handled when its payload is still queued or a previous run processed it. outbox
// may be nil.
func AlreadyHandled(database *sql.DB, outbox *charm.Client) func(ctx context.Context, dealID string) (bool, error) {
	return func(ctx context.Context, dealID string) (bool, error) {
		if outbox != nil {
			entry, err := outbox.GetPayload(dealID)
			if err != nil {
				return false, err
			}
			if entry != nil {
				return true, nil
			}
		}
		return db.DealProcessed(database, dealID)
	}
}

// parseInterval validates the daemon interval.
func parseInterval(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid interval %q: %w", s, err)
	}
	if d < MinDaemonInterval {
		return 0, fmt.Errorf("interval must be at least %s", MinDaemonInterval)
	}
	return d, nil
}

// DaemonCommand runs the pipeline immediately and then on every tick until SIGINT/SIGTERM.
func DaemonCommand(ctx context.Context, pipeline handlers.Pipeline, outbox *charm.Client, log zerolog.Logger, args []string) error {
	fs := flag.NewFlagSet("daemon", flag.ContinueOnError)
	intervalStr := fs.String("interval", "15m", "Time between runs (minimum 5m)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	interval, err := parseInterval(*intervalStr)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Dur("interval", interval).Msg("daemon started")
	runDaemon(ctx, interval, func(ctx context.Context) {
		runOnce(ctx, pipeline, outbox, log)
	})
	log.Info().Msg("daemon stopped")
	return nil
}

// runDaemon calls tick immediately and then every interval until ctx is done.
func runDaemon(ctx context.Context, interval time.Duration, tick func(context.Context)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				return
			}
			tick(ctx)
		}
	}
}

// runOnce processes deals and queues payloads. Failures are logged so the daemon keeps going.
func runOnce(ctx context.Context, pipeline handlers.Pipeline, outbox *charm.Client, log zerolog.Logger) *sync.Report {
	report, err := pipeline.ProcessDeals(ctx)
	if err != nil {
		log.Error().Err(err).Msg("run failed")
	}
	if report == nil {
		return nil
	}

	if outbox != nil && len(report.Payloads) > 0 {
		if _, err := outbox.PutReport(report.RunID, report.Payloads); err != nil {
			log.Error().Err(err).Str("run_id", report.RunID).Msg("failed to queue payloads")
		}
	}
	return report
}
