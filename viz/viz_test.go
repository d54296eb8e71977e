// ABOUTME: Tests for run graph and dashboard rendering
// ABOUTME: Seeds an in-memory ledger with one processed and one skipped deal
package viz

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/harperreed/dealbridge/db"
	"github.com/harperreed/dealbridge/models"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seededDB(t *testing.T) *sql.DB {
	t.Helper()

	database, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	database.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = database.Close() })
	require.NoError(t, db.InitSchema(database))

	rec := db.NewRunRecorder(database)
	require.NoError(t, db.StartRun(database, "run-1", time.Now()))
	require.NoError(t, db.RecordDealOutcome(database, "run-1", &models.DealOutcome{
		DealID: "d1", DealName: "Acme", Outcome: models.OutcomeProcessed,
		CompanyID: "c1", ContractID: "k1",
		Projects: []models.ClickUpProduct{{ID: "p1", SKU: "CRM"}},
	}))
	require.NoError(t, db.RecordDealOutcome(database, "run-1", &models.DealOutcome{
		DealID: "d2", DealName: "Globex", Outcome: models.OutcomeSkipped, Reason: models.SkipDraftQuote,
	}))
	require.NoError(t, rec.FinishRun(t.Context(), "run-1", nil))
	return database
}

func TestGenerateRunGraph(t *testing.T) {
	g := NewGraphGenerator(seededDB(t))

	dot, err := g.GenerateRunGraph("run-1")
	require.NoError(t, err)
	assert.Contains(t, dot, "deal_d1")
	assert.Contains(t, dot, "company_c1")
	assert.Contains(t, dot, "contract_k1")
	assert.Contains(t, dot, "project_p1")
	assert.Contains(t, dot, "CRM")
	assert.Contains(t, dot, "draft_quote")
}

func TestGenerateRunGraphUnknownRun(t *testing.T) {
	g := NewGraphGenerator(seededDB(t))

	_, err := g.GenerateRunGraph("missing")
	assert.Error(t, err)
}

func TestDashboard(t *testing.T) {
	database := seededDB(t)
	require.NoError(t, db.StartRun(database, "run-2", time.Now()))
	require.NoError(t, db.NewRunRecorder(database).FinishRun(t.Context(), "run-2", errors.New("hubspot down")))

	stats, err := GenerateDashboardStats(database, 10)
	require.NoError(t, err)
	assert.Len(t, stats.Runs, 2)
	assert.Equal(t, 1, stats.Processed)
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, map[string]int{models.SkipDraftQuote: 1}, stats.SkipReasons)

	out := RenderDashboard(stats)
	assert.Contains(t, out, "DEALBRIDGE DASHBOARD")
	assert.Contains(t, out, "hubspot down")
	assert.Contains(t, out, "draft_quote")
}

func TestDashboardEmpty(t *testing.T) {
	database, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	defer func() { _ = database.Close() }()
	require.NoError(t, db.InitSchema(database))

	stats, err := GenerateDashboardStats(database, 10)
	require.NoError(t, err)
	assert.Contains(t, RenderDashboard(stats), "never run")
}
