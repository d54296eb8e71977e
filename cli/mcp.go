// ABOUTME: MCP server subcommand
// ABOUTME: Starts the MCP server exposing the pipeline tools on stdio
package cli

import (
	"context"
	"database/sql"

	"github.com/harperreed/dealbridge/charm"
	"github.com/harperreed/dealbridge/handlers"
	"github.com/harperreed/dealbridge/models"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"
)

// MCPCommand starts the MCP server on stdio
func MCPCommand(ctx context.Context, pipeline handlers.Pipeline, database *sql.DB, outbox *charm.Client, roster []models.CSOwner, version string, log zerolog.Logger) error {
	log.Info().Msg("starting dealbridge MCP server")

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "dealbridge",
		Version: version,
	}, nil)

	handlers.NewPipelineHandlers(pipeline, database, outbox, roster).Register(server)

	return server.Run(ctx, &mcp.StdioTransport{})
}
