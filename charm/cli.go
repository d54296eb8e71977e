// ABOUTME: CLI commands for the Charm-backed outbox: status, manual sync, and wipe
// ABOUTME: Charm authenticates with SSH keys so no login step is needed

package charm

import (
	"flag"
	"fmt"
	"io"
)

// StatusCommand shows the charm server, link state, and queued payload count.
func StatusCommand(c *Client, out io.Writer, args []string) error {
	fs := flag.NewFlagSet("outbox status", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := c.Config()
	_, _ = fmt.Fprintln(out, "Outbox Status")
	_, _ = fmt.Fprintln(out, "─────────────")
	_, _ = fmt.Fprintf(out, "Server:    %s\n", cfg.Host)
	_, _ = fmt.Fprintf(out, "Auto-sync: %v\n", cfg.AutoSync)

	if id, err := c.ID(); err != nil {
		_, _ = fmt.Fprintln(out, "Status:    Not linked")
	} else {
		_, _ = fmt.Fprintf(out, "Status:    Linked (%s)\n", id)
	}

	entries, err := c.ListPayloads()
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(out, "Queued:    %d\n", len(entries))
	return nil
}

// SyncCommand performs an immediate sync.
func SyncCommand(c *Client, out io.Writer, args []string) error {
	fs := flag.NewFlagSet("outbox sync", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := c.Sync(); err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}
	_, _ = fmt.Fprintln(out, "✓ Synced")
	return nil
}

// WipeCommand deletes every queued payload.
func WipeCommand(c *Client, out io.Writer, args []string) error {
	fs := flag.NewFlagSet("outbox wipe", flag.ContinueOnError)
	confirm := fs.Bool("confirm", false, "Confirm outbox wipe")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if !*confirm {
		_, _ = fmt.Fprintln(out, "WARNING: This will delete ALL queued payloads!")
		_, _ = fmt.Fprintln(out)
		_, _ = fmt.Fprintln(out, "To confirm, run:")
		_, _ = fmt.Fprintln(out, "  dealbridge outbox wipe --confirm")
		return nil
	}

	if err := c.Reset(); err != nil {
		return fmt.Errorf("failed to reset KV store: %w", err)
	}
	_, _ = fmt.Fprintln(out, "✓ Outbox wiped")
	return nil
}
