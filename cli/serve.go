// ABOUTME: Web server subcommand
// ABOUTME: Serves the run dashboard and receives ClickUp status webhooks
package cli

import (
	"context"
	"database/sql"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/harperreed/dealbridge/web"
	"github.com/rs/zerolog"
)

// ServeCommand runs the web server until SIGINT/SIGTERM.
func ServeCommand(ctx context.Context, database *sql.DB, projects web.StatusSetter, secret string, log zerolog.Logger, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	port := fs.Int("port", 8080, "Port to listen on")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if secret == "" {
		log.Warn().Msg("CLICKUP_WEBHOOK_SECRET is not set, webhook signatures are not checked")
	}

	return web.NewServer(database, projects, secret, log).Start(ctx, *port)
}
