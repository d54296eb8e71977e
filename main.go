// ABOUTME: Entry point for the dealbridge CLI, daemon, MCP server, and web server
// ABOUTME: Routes commands, wiring config, logging, the run ledger, HubSpot, and the outbox
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/harperreed/dealbridge/charm"
	"github.com/harperreed/dealbridge/cli"
	"github.com/harperreed/dealbridge/config"
	"github.com/harperreed/dealbridge/db"
	"github.com/harperreed/dealbridge/hubspot"
	"github.com/harperreed/dealbridge/logging"
	"github.com/harperreed/dealbridge/sync"
	"github.com/rs/zerolog"
)

const version = "0.1.0"

// app holds what every command may need. Fields are opened lazily.
type app struct {
	ctx    context.Context
	cfg    *config.Config
	log    zerolog.Logger
	dbPath string

	database *sql.DB
	outbox   *charm.Client
}

func main() {
	// Global flags
	showVersion := flag.Bool("version", false, "Show version and exit")
	dbPath := flag.String("db-path", "", "Run ledger path (default: ~/.local/share/dealbridge/dealbridge.db)")
	envFile := flag.String("env-file", ".env", "Environment file to load")
	initOnly := flag.Bool("init", false, "Initialize the run ledger and exit")

	// Parse global flags but don't fail on unknown (for subcommands)
	_ = flag.CommandLine.Parse(os.Args[1:])

	if *showVersion {
		fmt.Printf("dealbridge version %s\n", version)
		os.Exit(0)
	}

	cfg, err := config.Load(*envFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	a := &app{
		ctx:    context.Background(),
		cfg:    cfg,
		log:    logging.New(cfg.LogLevel),
		dbPath: *dbPath,
	}
	if a.dbPath == "" {
		a.dbPath = config.DatabasePath()
	}

	if *initOnly {
		a.openDatabase()
		a.log.Info().Str("path", a.dbPath).Msg("run ledger initialized")
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(0)
	}

	if err := a.run(args[0], args[1:]); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func (a *app) run(command string, args []string) error {
	out := os.Stdout

	switch command {
	case "process":
		return cli.ProcessCommand(a.ctx, a.processor(), a.openOutbox(), out, args)

	case "daemon":
		return cli.DaemonCommand(a.ctx, a.processor(), a.openOutbox(), a.log, args)

	case "pick-owner":
		return cli.PickOwnerCommand(a.cfg.Roster, out, args)

	case "project":
		if len(args) == 0 {
			return fmt.Errorf("project requires a subcommand (update, status)")
		}
		switch args[0] {
		case "update":
			return cli.ProjectUpdateCommand(a.ctx, a.processor(), out, args[1:])
		case "status":
			return cli.ProjectStatusCommand(a.ctx, a.processor(), out, args[1:])
		default:
			return fmt.Errorf("unknown project command: %s", args[0])
		}

	case "outbox":
		if len(args) == 0 {
			return fmt.Errorf("outbox requires a subcommand (list, ack, status, sync, wipe)")
		}
		outbox := a.openOutbox()
		if outbox == nil {
			return fmt.Errorf("outbox is not available")
		}
		switch args[0] {
		case "list":
			return cli.OutboxListCommand(outbox, out, args[1:])
		case "ack":
			return cli.OutboxAckCommand(a.ctx, a.processor(), outbox, out, args[1:])
		case "status":
			return charm.StatusCommand(outbox, out, args[1:])
		case "sync":
			return charm.SyncCommand(outbox, out, args[1:])
		case "wipe":
			return charm.WipeCommand(outbox, out, args[1:])
		default:
			return fmt.Errorf("unknown outbox command: %s", args[0])
		}

	case "runs":
		if len(args) > 0 && args[0] == "show" {
			return cli.ShowRunCommand(a.openDatabase(), out, args[1:])
		}
		return cli.ListRunsCommand(a.openDatabase(), out, args)

	case "viz":
		if len(args) == 0 {
			return fmt.Errorf("viz requires a subcommand (run, dashboard)")
		}
		switch args[0] {
		case "run":
			return cli.VizRunCommand(a.openDatabase(), out, args[1:])
		case "dashboard":
			return cli.VizDashboardCommand(a.openDatabase(), out, args[1:])
		default:
			return fmt.Errorf("unknown viz command: %s", args[0])
		}

	case "mcp":
		return cli.MCPCommand(a.ctx, a.processor(), a.openDatabase(), a.openOutbox(), a.cfg.Roster, version, a.log)

	case "serve":
		return cli.ServeCommand(a.ctx, a.openDatabase(), a.processor(), a.cfg.ClickUpWebhookSecret, a.log, args)

	case "tui":
		// Browsing works without HubSpot credentials; the run key needs them.
		if a.cfg.Validate() != nil {
			return cli.TUICommand(a.openDatabase(), nil, nil)
		}
		return cli.TUICommand(a.openDatabase(), a.processor(), a.openOutbox())

	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
	return nil
}

func (a *app) openDatabase() *sql.DB {
	if a.database == nil {
		database, err := db.OpenDatabase(a.dbPath)
		if err != nil {
			log.Fatalf("Failed to open database: %v", err)
		}
		a.database = database
	}
	return a.database
}

// openOutbox returns nil when charm is unavailable so pipeline commands still run.
func (a *app) openOutbox() *charm.Client {
	if a.outbox == nil {
		outbox, err := charm.Open()
		if err != nil {
			a.log.Warn().Err(err).Msg("outbox unavailable, payloads will not be queued")
			return nil
		}
		a.outbox = outbox
	}
	return a.outbox
}

func (a *app) processor() *sync.Processor {
	if err := a.cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	client, err := hubspot.NewClient(a.ctx, a.cfg.HubSpotBaseURL, a.cfg.HubSpotToken, a.log)
	if err != nil {
		log.Fatalf("Failed to create HubSpot client: %v", err)
	}

	return sync.NewProcessor(client, sync.Options{
		ContractObjectType: a.cfg.ContractObjectType,
		ProjectObjectType:  a.cfg.ProjectObjectType,
		PortalID:           a.cfg.HubSpotPortalID,
		Roster:             a.cfg.Roster,
		Recorder:           db.NewRunRecorder(a.openDatabase()),
		Logger:             a.log,
		AlreadyHandled:     cli.AlreadyHandled(a.openDatabase(), a.openOutbox()),
	})
}

func printUsage() {
	fmt.Printf(`dealbridge v%s - HubSpot to ClickUp deal bridge

USAGE:
  dealbridge [global flags] <command> [subcommand] [flags]

GLOBAL FLAGS:
  --version              Show version and exit
  --db-path <path>       Run ledger path (default: ~/.local/share/dealbridge/dealbridge.db)
  --env-file <path>      Environment file (default: .env)
  --init                 Initialize the run ledger and exit

PIPELINE:
  dealbridge process     Process every deal marked listo and print ClickUp payloads
    --output <file>          Write payload JSON to a file
    --skip-outbox            Do not queue payloads in the outbox

  dealbridge daemon      Run the pipeline on an interval
    --interval <duration>    Time between runs (default: 15m, minimum: 5m)

  dealbridge pick-owner [--sku <sku>]... [sku...]
                         Show the CS owner the roster heuristic picks

PROJECTS:
  dealbridge project update --hubspot-id <id> [--clickup-id <id>] [--link <url>] [--status <status>]
  dealbridge project status <clickup-id> <status>

OUTBOX:
  dealbridge outbox list [--json]     List queued ClickUp payloads
  dealbridge outbox ack <deal-id>...  Mark deals as added to ClickUp and drop their payloads
  dealbridge outbox status            Show charm link and queue size
  dealbridge outbox sync              Sync the outbox with the charm server
  dealbridge outbox wipe --confirm    Delete every queued payload

RUN LEDGER:
  dealbridge runs [--limit <n>]       List recent runs
  dealbridge runs show <run-id>       Show deal outcomes and created records
  dealbridge viz run <run-id> [--output <file>]
                                      Graph what a run created (DOT)
  dealbridge viz dashboard [--limit <n>]

SERVERS:
  dealbridge mcp                      Start MCP server on stdio
  dealbridge serve [--port <n>]       Dashboard and ClickUp webhook receiver
  dealbridge tui                      Interactive run browser

ENVIRONMENT:
  HUBSPOT_ACCESS_TOKEN             Private app token (required for HubSpot commands)
  HUBSPOT_USER_ID                  Portal id used in record links (required)
  HUBSPOT_BASE_URL                 API base URL (default: https://api.hubapi.com)
  HUBSPOT_CONTRACT_OBJECT_TYPE     Contract custom object type (default: contracts)
  HUBSPOT_PROJECT_OBJECT_TYPE      Project custom object type (default: projects)
  DEALBRIDGE_CS_OWNERS             CS owner roster (default: ~/.config/dealbridge/cs-owners.json)
  DEALBRIDGE_LOG_LEVEL             Log level (default: info)
  CLICKUP_WEBHOOK_SECRET           Verifies X-Signature on ClickUp webhooks
  CHARM_HOST                       Charm server for the outbox
`, version)
}
