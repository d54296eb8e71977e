// ABOUTME: Outbox CLI commands
// ABOUTME: Lists queued ClickUp payloads and acknowledges them once ClickUp has the task
package cli

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/harperreed/dealbridge/charm"
	"github.com/harperreed/dealbridge/handlers"
)

// OutboxListCommand prints queued payloads, oldest first.
func OutboxListCommand(outbox *charm.Client, out io.Writer, args []string) error {
	fs := flag.NewFlagSet("outbox list", flag.ContinueOnError)
	asJSON := fs.Bool("json", false, "Print full payloads as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	entries, err := outbox.ListPayloads()
	if err != nil {
		return err
	}

	if *asJSON {
		data, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal outbox: %w", err)
		}
		_, _ = fmt.Fprintln(out, string(data))
		return nil
	}

	if len(entries) == 0 {
		_, _ = fmt.Fprintln(out, "Outbox is empty")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "DEAL\tNAME\tCS OWNER\tPRODUCTS\tQUEUED")
	_, _ = fmt.Fprintln(w, "----\t----\t--------\t--------\t------")
	for _, e := range entries {
		owner := e.Payload.CSOwner
		if owner == "" {
			owner = "-"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
			e.DealID, e.Payload.Name, owner, len(e.Payload.Products), formatTimeSince(e.QueuedAt))
	}
	_ = w.Flush()

	_, _ = fmt.Fprintf(out, "\nTotal: %d payload(s)\n", len(entries))
	return nil
}

// OutboxAckCommand marks deals as added to ClickUp in HubSpot and drops their payloads.
func OutboxAckCommand(ctx context.Context, pipeline handlers.Pipeline, outbox *charm.Client, out io.Writer, args []string) error {
	fs := flag.NewFlagSet("outbox ack", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("at least one deal id is required")
	}

	for _, dealID := range fs.Args() {
		if err := pipeline.MarkDealAdded(ctx, dealID); err != nil {
			return err
		}
		acked, err := outbox.AckPayload(dealID)
		if err != nil {
			return err
		}
		if acked {
			_, _ = fmt.Fprintf(out, "✓ Deal %s marked as added\n", dealID)
		} else {
			_, _ = fmt.Fprintf(out, "✓ Deal %s marked as added (not queued)\n", dealID)
		}
	}
	return nil
}
