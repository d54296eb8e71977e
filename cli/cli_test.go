// ABOUTME: Tests for the pipeline CLI commands
// ABOUTME: Drive commands with a stub pipeline, in-memory SQLite, and the badger-backed outbox
package cli

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/harperreed/dealbridge/charm"
	"github.com/harperreed/dealbridge/db"
	"github.com/harperreed/dealbridge/models"
	"github.com/harperreed/dealbridge/sync"
	"github.com/rs/zerolog"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPipeline struct {
	report   *sync.Report
	err      error
	calls    int
	status   [2]string
	updated  int
	projects []sync.ProjectUpdate
	added    []string
}

func (s *stubPipeline) ProcessDeals(ctx context.Context) (*sync.Report, error) {
	s.calls++
	return s.report, s.err
}

func (s *stubPipeline) SetClickUpStatus(ctx context.Context, clickUpID, status string) (int, error) {
	s.status = [2]string{clickUpID, status}
	return s.updated, s.err
}

func (s *stubPipeline) UpdateProject(ctx context.Context, u sync.ProjectUpdate) error {
	s.projects = append(s.projects, u)
	return s.err
}

func (s *stubPipeline) MarkDealAdded(ctx context.Context, dealID string) error {
	s.added = append(s.added, dealID)
	return s.err
}

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	database, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	database.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = database.Close() })
	require.NoError(t, db.InitSchema(database))
	return database
}

func sampleReport() *sync.Report {
	return &sync.Report{
		RunID: "run-1",
		Payloads: []models.ClickUpPayload{
			{Name: "Acme SL", HubSpotDealID: "d1", HubSpotCompanyID: "c1", CSOwner: "42"},
		},
		Outcomes: []models.DealOutcome{
			{DealID: "d1", Outcome: models.OutcomeProcessed},
			{DealID: "d2", Outcome: models.OutcomeSkipped, Reason: models.SkipNoQuote},
		},
	}
}

func TestProcessCommandPrintsAndQueues(t *testing.T) {
	outbox := charm.NewTestClient(t)
	var out bytes.Buffer

	err := ProcessCommand(t.Context(), &stubPipeline{report: sampleReport()}, outbox, &out, nil)
	require.NoError(t, err)

	var payloads []models.ClickUpPayload
	require.NoError(t, json.Unmarshal(out.Bytes(), &payloads))
	require.Len(t, payloads, 1)
	assert.Equal(t, "d1", payloads[0].HubSpotDealID)

	entry, err := outbox.GetPayload("d1")
	require.NoError(t, err)
	require.NotNil(t, entry)
}

func TestProcessCommandSkipOutboxWritesFile(t *testing.T) {
	outbox := charm.NewTestClient(t)
	path := filepath.Join(t.TempDir(), "payloads.json")
	var out bytes.Buffer

	err := ProcessCommand(t.Context(), &stubPipeline{report: sampleReport()}, outbox, &out, []string{"--skip-outbox", "--output", path})
	require.NoError(t, err)
	assert.Empty(t, out.String())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"hubspot_deal_id": "d1"`)

	entries, err := outbox.ListPayloads()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestProcessCommandError(t *testing.T) {
	var out bytes.Buffer
	err := ProcessCommand(t.Context(), &stubPipeline{err: errors.New("boom")}, nil, &out, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to process deals")
}

func TestProcessCommandQueuesPartialReport(t *testing.T) {
	outbox := charm.NewTestClient(t)
	pipeline := &stubPipeline{report: sampleReport(), err: errors.New("rate limited")}
	var out bytes.Buffer

	err := ProcessCommand(t.Context(), pipeline, outbox, &out, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to process deals: rate limited")
	assert.Contains(t, out.String(), `"hubspot_deal_id": "d1"`)

	entry, err := outbox.GetPayload("d1")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "run-1", entry.RunID)
}

func TestAlreadyHandled(t *testing.T) {
	database := setupTestDB(t)
	outbox := charm.NewTestClient(t)
	ctx := t.Context()

	check := AlreadyHandled(database, outbox)
	handled, err := check(ctx, "d1")
	require.NoError(t, err)
	assert.False(t, handled)

	_, err = outbox.PutReport("run-1", sampleReport().Payloads)
	require.NoError(t, err)
	handled, err = check(ctx, "d1")
	require.NoError(t, err)
	assert.True(t, handled, "queued payload")

	// Ledger alone is enough once the payload has left the outbox.
	seedRun(t, database)
	handled, err = AlreadyHandled(database, nil)(ctx, "d1")
	require.NoError(t, err)
	assert.True(t, handled)

	handled, err = AlreadyHandled(database, nil)(ctx, "d2")
	require.NoError(t, err)
	assert.False(t, handled, "skipped deals may be retried")
}

func TestParseInterval(t *testing.T) {
	tests := []struct {
		input   string
		want    time.Duration
		wantErr bool
	}{
		{input: "5m", want: 5 * time.Minute},
		{input: "1h", want: time.Hour},
		{input: "90m", want: 90 * time.Minute},
		{input: "4m59s", wantErr: true},
		{input: "30s", wantErr: true},
		{input: "soon", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseInterval(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDaemonCommandRejectsShortInterval(t *testing.T) {
	err := DaemonCommand(t.Context(), &stubPipeline{}, nil, zerolog.Nop(), []string{"--interval", "1m"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least")
}

func TestRunDaemonTicksUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	ticks := 0

	done := make(chan struct{})
	go func() {
		runDaemon(ctx, 10*time.Millisecond, func(context.Context) {
			ticks++
			if ticks == 3 {
				cancel()
			}
		})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("daemon did not stop after cancel")
	}
	assert.Equal(t, 3, ticks)
}

func TestRunOnceQueuesPartialReport(t *testing.T) {
	outbox := charm.NewTestClient(t)
	pipeline := &stubPipeline{report: sampleReport(), err: errors.New("rate limited")}

	report := runOnce(t.Context(), pipeline, outbox, zerolog.Nop())
	require.NotNil(t, report)

	entries, err := outbox.ListPayloads()
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestRunOnceNilReport(t *testing.T) {
	pipeline := &stubPipeline{err: errors.New("boom")}
	assert.Nil(t, runOnce(t.Context(), pipeline, nil, zerolog.Nop()))
}

func TestPickOwnerCommand(t *testing.T) {
	roster := []models.CSOwner{
		{Email: "ana@example.com", Products: []string{"CRM"}},
		{Email: "bea@example.com", Products: []string{"ERP", "BI", "WEB"}},
	}

	var out bytes.Buffer
	require.NoError(t, PickOwnerCommand(roster, &out, []string{"--sku", "ERP", "--sku", "BI,WEB"}))
	assert.Equal(t, "bea@example.com\n", out.String())

	out.Reset()
	require.NoError(t, PickOwnerCommand(roster, &out, []string{"HR"}))
	assert.Contains(t, out.String(), "No CS owner")
}

func TestProjectUpdateCommand(t *testing.T) {
	pipeline := &stubPipeline{}
	var out bytes.Buffer

	err := ProjectUpdateCommand(t.Context(), pipeline, &out, []string{
		"--hubspot-id", "p1", "--clickup-id", "cu1", "--link", "https://app.clickup.com/t/cu1", "--status", "in progress",
	})
	require.NoError(t, err)
	require.Len(t, pipeline.projects, 1)
	assert.Equal(t, sync.ProjectUpdate{
		HubSpotID:     "p1",
		ClickUpID:     "cu1",
		ClickUpLink:   "https://app.clickup.com/t/cu1",
		ClickUpStatus: "in progress",
	}, pipeline.projects[0])
	assert.Contains(t, out.String(), "✓ Updated project p1")

	assert.Error(t, ProjectUpdateCommand(t.Context(), pipeline, &out, []string{"--status", "done"}))
}

func TestProjectStatusCommand(t *testing.T) {
	pipeline := &stubPipeline{updated: 2}
	var out bytes.Buffer

	require.NoError(t, ProjectStatusCommand(t.Context(), pipeline, &out, []string{"cu1", "done"}))
	assert.Equal(t, [2]string{"cu1", "done"}, pipeline.status)
	assert.Contains(t, out.String(), "2 project(s)")

	pipeline.updated = 0
	out.Reset()
	require.NoError(t, ProjectStatusCommand(t.Context(), pipeline, &out, []string{"cu9", "done"}))
	assert.Contains(t, out.String(), "No project linked")

	assert.Error(t, ProjectStatusCommand(t.Context(), pipeline, &out, []string{"cu1"}))
}

func TestOutboxListAndAck(t *testing.T) {
	outbox := charm.NewTestClient(t)
	_, err := outbox.PutReport("run-1", sampleReport().Payloads)
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, OutboxListCommand(outbox, &out, nil))
	assert.Contains(t, out.String(), "Acme SL")
	assert.Contains(t, out.String(), "Total: 1 payload(s)")

	pipeline := &stubPipeline{}
	out.Reset()
	require.NoError(t, OutboxAckCommand(t.Context(), pipeline, outbox, &out, []string{"d1", "d9"}))
	assert.Equal(t, []string{"d1", "d9"}, pipeline.added)
	assert.Contains(t, out.String(), "✓ Deal d1 marked as added\n")
	assert.Contains(t, out.String(), "d9 marked as added (not queued)")

	out.Reset()
	require.NoError(t, OutboxListCommand(outbox, &out, nil))
	assert.Contains(t, out.String(), "Outbox is empty")
}

func TestOutboxAckStopsOnHubSpotError(t *testing.T) {
	outbox := charm.NewTestClient(t)
	_, err := outbox.PutReport("run-1", sampleReport().Payloads)
	require.NoError(t, err)

	pipeline := &stubPipeline{err: errors.New("boom")}
	var out bytes.Buffer
	require.Error(t, OutboxAckCommand(t.Context(), pipeline, outbox, &out, []string{"d1"}))

	entry, err := outbox.GetPayload("d1")
	require.NoError(t, err)
	assert.NotNil(t, entry)
}

func seedRun(t *testing.T, database *sql.DB) {
	t.Helper()
	require.NoError(t, db.StartRun(database, "run-1", time.Now().Add(-time.Minute)))
	require.NoError(t, db.RecordDealOutcome(database, "run-1", &models.DealOutcome{
		DealID:     "d1",
		DealName:   "Acme",
		Outcome:    models.OutcomeProcessed,
		CompanyID:  "c1",
		ContractID: "k1",
		Projects:   []models.ClickUpProduct{{ID: "p1", SKU: "CRM"}},
	}))
	require.NoError(t, db.RecordDealOutcome(database, "run-1", &models.DealOutcome{
		DealID:   "d2",
		DealName: "Globex",
		Outcome:  models.OutcomeSkipped,
		Reason:   models.SkipNoQuote,
	}))
	require.NoError(t, db.FinishRun(database, "run-1", nil, time.Now()))
}

func TestRunsCommands(t *testing.T) {
	database := setupTestDB(t)
	var out bytes.Buffer

	require.NoError(t, ListRunsCommand(database, &out, nil))
	assert.Contains(t, out.String(), "No runs yet")

	seedRun(t, database)

	out.Reset()
	require.NoError(t, ListRunsCommand(database, &out, []string{"--limit", "5"}))
	assert.Contains(t, out.String(), "run-1")
	assert.Contains(t, out.String(), "Total: 1 run(s)")

	out.Reset()
	require.NoError(t, ShowRunCommand(database, &out, []string{"run-1"}))
	assert.Contains(t, out.String(), "Processed: 1")
	assert.Contains(t, out.String(), models.SkipNoQuote)
	assert.Contains(t, out.String(), "deal d1 -> project p1 (CRM)")

	assert.Error(t, ShowRunCommand(database, &out, []string{"missing"}))
	assert.Error(t, ShowRunCommand(database, &out, nil))
}

func TestVizCommands(t *testing.T) {
	database := setupTestDB(t)
	seedRun(t, database)

	var out bytes.Buffer
	require.NoError(t, VizRunCommand(database, &out, []string{"run-1"}))
	assert.Contains(t, out.String(), "deal_d1")

	out.Reset()
	require.NoError(t, VizDashboardCommand(database, &out, nil))
	assert.Contains(t, out.String(), "DEALBRIDGE DASHBOARD")
}

func TestFormatTimeSince(t *testing.T) {
	assert.Equal(t, "just now", formatTimeSince(time.Now()))
	assert.Equal(t, "1 minute ago", formatTimeSince(time.Now().Add(-90*time.Second)))
	assert.Equal(t, "3 hours ago", formatTimeSince(time.Now().Add(-3*time.Hour-time.Minute)))
	assert.Equal(t, "2 days ago", formatTimeSince(time.Now().Add(-49*time.Hour)))
}

func TestTUIRunFuncQueuesPayloads(t *testing.T) {
	assert.Nil(t, tuiRunFunc(nil, nil))

	outbox := charm.NewTestClient(t)
	run := tuiRunFunc(&stubPipeline{report: sampleReport()}, outbox)
	require.NotNil(t, run)

	report, err := run(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "run-1", report.RunID)

	entry, err := outbox.GetPayload("d1")
	require.NoError(t, err)
	assert.NotNil(t, entry)
}
