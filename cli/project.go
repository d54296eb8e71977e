// ABOUTME: Project CLI commands
// ABOUTME: Writes ClickUp ids, links, and statuses back onto HubSpot projects
package cli

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/harperreed/dealbridge/handlers"
	"github.com/harperreed/dealbridge/sync"
)

// ProjectUpdateCommand writes ClickUp fields onto one HubSpot project.
func ProjectUpdateCommand(ctx context.Context, pipeline handlers.Pipeline, out io.Writer, args []string) error {
	fs := flag.NewFlagSet("project update", flag.ContinueOnError)
	hubspotID := fs.String("hubspot-id", "", "HubSpot project id (required)")
	clickUpID := fs.String("clickup-id", "", "ClickUp task id")
	link := fs.String("link", "", "ClickUp task URL")
	status := fs.String("status", "", "ClickUp status")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *hubspotID == "" {
		return fmt.Errorf("--hubspot-id is required")
	}

	err := pipeline.UpdateProject(ctx, sync.ProjectUpdate{
		HubSpotID:     *hubspotID,
		ClickUpID:     *clickUpID,
		ClickUpLink:   *link,
		ClickUpStatus: *status,
	})
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(out, "✓ Updated project %s\n", *hubspotID)
	return nil
}

// ProjectStatusCommand applies a ClickUp status to every project linked to a ClickUp task.
func ProjectStatusCommand(ctx context.Context, pipeline handlers.Pipeline, out io.Writer, args []string) error {
	fs := flag.NewFlagSet("project status", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 2 {
		return fmt.Errorf("usage: project status <clickup-id> <status>")
	}

	updated, err := pipeline.SetClickUpStatus(ctx, fs.Arg(0), fs.Arg(1))
	if err != nil {
		return err
	}
	if updated == 0 {
		_, _ = fmt.Fprintf(out, "No project linked to ClickUp task %s\n", fs.Arg(0))
		return nil
	}

	_, _ = fmt.Fprintf(out, "✓ Set status %q on %d project(s)\n", fs.Arg(1), updated)
	return nil
}
