// ABOUTME: MCP tool handlers for the deal pipeline
// ABOUTME: Implements process_deals, pick_cs_owner, set_project_status, update_project, and mark_deal_added
package handlers

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/harperreed/dealbridge/charm"
	"github.com/harperreed/dealbridge/db"
	"github.com/harperreed/dealbridge/models"
	"github.com/harperreed/dealbridge/sync"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Pipeline is the part of sync.Processor the tools drive.
type Pipeline interface {
	ProcessDeals(ctx context.Context) (*sync.Report, error)
	SetClickUpStatus(ctx context.Context, clickUpID, status string) (int, error)
	UpdateProject(ctx context.Context, u sync.ProjectUpdate) error
	MarkDealAdded(ctx context.Context, dealID string) error
}

type PipelineHandlers struct {
	pipeline Pipeline
	db       *sql.DB
	outbox   *charm.Client
	roster   []models.CSOwner
}

// NewPipelineHandlers wires the tools. outbox may be nil, in which case payloads are only
// returned to the caller.
func NewPipelineHandlers(pipeline Pipeline, database *sql.DB, outbox *charm.Client, roster []models.CSOwner) *PipelineHandlers {
	return &PipelineHandlers{pipeline: pipeline, db: database, outbox: outbox, roster: roster}
}

type ProcessDealsInput struct {
	SkipOutbox bool `json:"skip_outbox,omitempty" jsonschema:"Do not queue payloads in the outbox"`
}

type ProcessDealsOutput struct {
	RunID     string                  `json:"run_id"`
	Processed int                     `json:"processed"`
	Skipped   int                     `json:"skipped"`
	Queued    int                     `json:"queued"`
	Payloads  []models.ClickUpPayload `json:"payloads"`
	Outcomes  []models.DealOutcome    `json:"outcomes"`
}

func (h *PipelineHandlers) ProcessDeals(ctx context.Context, request *mcp.CallToolRequest, input ProcessDealsInput) (*mcp.CallToolResult, ProcessDealsOutput, error) {
	report, runErr := h.pipeline.ProcessDeals(ctx)
	if report == nil {
		return nil, ProcessDealsOutput{}, fmt.Errorf("failed to process deals: %w", runErr)
	}

	out := ProcessDealsOutput{
		RunID:     report.RunID,
		Processed: report.Processed(),
		Skipped:   report.Skipped(),
		Payloads:  report.Payloads,
		Outcomes:  report.Outcomes,
	}

	if h.outbox != nil && !input.SkipOutbox {
		queued, err := h.outbox.PutReport(report.RunID, report.Payloads)
		if err != nil {
			return nil, ProcessDealsOutput{}, fmt.Errorf("failed to queue payloads: %w", err)
		}
		out.Queued = queued
	}

	// Payloads from a run that stopped early are queued above; the caller still sees the failure.
	if runErr != nil {
		return nil, out, fmt.Errorf("failed to process deals after %d processed, %d queued: %w", out.Processed, out.Queued, runErr)
	}
	return nil, out, nil
}

type PickCSOwnerInput struct {
	SKUs []string `json:"skus" jsonschema:"Line item SKUs of the quote, in order"`
}

type PickCSOwnerOutput struct {
	Email string `json:"email,omitempty"`
	Found bool   `json:"found"`
}

// PickCSOwner runs the owner heuristic against the roster without calling HubSpot.
func (h *PipelineHandlers) PickCSOwner(_ context.Context, request *mcp.CallToolRequest, input PickCSOwnerInput) (*mcp.CallToolResult, PickCSOwnerOutput, error) {
	email, ok := sync.PickCSOwnerEmail(input.SKUs, h.roster, nil)
	return nil, PickCSOwnerOutput{Email: email, Found: ok}, nil
}

type SetProjectStatusInput struct {
	ClickUpID string `json:"clickup_id" jsonschema:"ClickUp task id linked to the HubSpot project (required)"`
	Status    string `json:"status" jsonschema:"ClickUp status to store on the project (required)"`
}

type SetProjectStatusOutput struct {
	Updated int `json:"updated"`
}

func (h *PipelineHandlers) SetProjectStatus(ctx context.Context, request *mcp.CallToolRequest, input SetProjectStatusInput) (*mcp.CallToolResult, SetProjectStatusOutput, error) {
	if input.ClickUpID == "" {
		return nil, SetProjectStatusOutput{}, fmt.Errorf("clickup_id is required")
	}
	if input.Status == "" {
		return nil, SetProjectStatusOutput{}, fmt.Errorf("status is required")
	}

	n, err := h.pipeline.SetClickUpStatus(ctx, input.ClickUpID, input.Status)
	if err != nil {
		return nil, SetProjectStatusOutput{}, err
	}
	return nil, SetProjectStatusOutput{Updated: n}, nil
}

type UpdateProjectInput struct {
	HubSpotID     string `json:"hubspot_id" jsonschema:"HubSpot project record id (required)"`
	ClickUpID     string `json:"clickup_id,omitempty" jsonschema:"ClickUp task id"`
	ClickUpLink   string `json:"clickup_link,omitempty" jsonschema:"ClickUp task URL"`
	ClickUpStatus string `json:"clickup_status,omitempty" jsonschema:"ClickUp status"`
}

type UpdateProjectOutput struct {
	HubSpotID string `json:"hubspot_id"`
}

func (h *PipelineHandlers) UpdateProject(ctx context.Context, request *mcp.CallToolRequest, input UpdateProjectInput) (*mcp.CallToolResult, UpdateProjectOutput, error) {
	err := h.pipeline.UpdateProject(ctx, sync.ProjectUpdate{
		HubSpotID:     input.HubSpotID,
		ClickUpID:     input.ClickUpID,
		ClickUpLink:   input.ClickUpLink,
		ClickUpStatus: input.ClickUpStatus,
	})
	if err != nil {
		return nil, UpdateProjectOutput{}, err
	}
	return nil, UpdateProjectOutput{HubSpotID: input.HubSpotID}, nil
}

type MarkDealAddedInput struct {
	DealID string `json:"deal_id" jsonschema:"HubSpot deal id handed over to ClickUp (required)"`
}

type MarkDealAddedOutput struct {
	DealID string `json:"deal_id"`
	Acked  bool   `json:"acked"`
}

// MarkDealAdded flags the deal in HubSpot and drops its payload from the outbox.
func (h *PipelineHandlers) MarkDealAdded(ctx context.Context, request *mcp.CallToolRequest, input MarkDealAddedInput) (*mcp.CallToolResult, MarkDealAddedOutput, error) {
	if input.DealID == "" {
		return nil, MarkDealAddedOutput{}, fmt.Errorf("deal_id is required")
	}
	if err := h.pipeline.MarkDealAdded(ctx, input.DealID); err != nil {
		return nil, MarkDealAddedOutput{}, err
	}

	out := MarkDealAddedOutput{DealID: input.DealID}
	if h.outbox != nil {
		acked, err := h.outbox.AckPayload(input.DealID)
		if err != nil {
			return nil, MarkDealAddedOutput{}, err
		}
		out.Acked = acked
	}
	return nil, out, nil
}

type ListRunsInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"Maximum runs to return (default 20)"`
}

type ListRunsOutput struct {
	Runs []models.Run `json:"runs"`
}

func (h *PipelineHandlers) ListRuns(_ context.Context, request *mcp.CallToolRequest, input ListRunsInput) (*mcp.CallToolResult, ListRunsOutput, error) {
	runs, err := db.ListRuns(h.db, input.Limit)
	if err != nil {
		return nil, ListRunsOutput{}, err
	}
	if runs == nil {
		runs = []models.Run{}
	}
	return nil, ListRunsOutput{Runs: runs}, nil
}

type ListOutboxInput struct{}

type ListOutboxOutput struct {
	Entries []charm.OutboxEntry `json:"entries"`
}

func (h *PipelineHandlers) ListOutbox(_ context.Context, request *mcp.CallToolRequest, input ListOutboxInput) (*mcp.CallToolResult, ListOutboxOutput, error) {
	if h.outbox == nil {
		return nil, ListOutboxOutput{}, fmt.Errorf("outbox is not configured")
	}
	entries, err := h.outbox.ListPayloads()
	if err != nil {
		return nil, ListOutboxOutput{}, err
	}
	return nil, ListOutboxOutput{Entries: entries}, nil
}

// Register adds every pipeline tool to the server.
func (h *PipelineHandlers) Register(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "process_deals",
		Description: "Process every HubSpot deal marked listo and queue one ClickUp payload per processed deal",
	}, h.ProcessDeals)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "pick_cs_owner",
		Description: "Choose the customer success owner for a list of product SKUs using the roster",
	}, h.PickCSOwner)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "set_project_status",
		Description: "Store a ClickUp status on every HubSpot project linked to a ClickUp task",
	}, h.SetProjectStatus)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "update_project",
		Description: "Write ClickUp id, link, or status onto a HubSpot project",
	}, h.UpdateProject)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "mark_deal_added",
		Description: "Mark a deal as added to ClickUp and remove its payload from the outbox",
	}, h.MarkDealAdded)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_runs",
		Description: "List recent pipeline runs with processed and skipped counts",
	}, h.ListRuns)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_outbox",
		Description: "List ClickUp payloads waiting in the outbox",
	}, h.ListOutbox)
}
