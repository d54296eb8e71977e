// ABOUTME: Database operations for pipeline runs, per-deal outcomes, and created record links
// ABOUTME: Provides RunRecorder which stores a run as the pipeline reports it
package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/dealbridge/models"
)

// StartRun inserts a run in the running state.
func StartRun(db *sql.DB, runID string, startedAt time.Time) error {
	_, err := db.Exec(`
		INSERT INTO runs (id, started_at, status)
		VALUES (?, ?, ?)
	`, runID, startedAt.UTC(), models.RunStatusRunning)
	if err != nil {
		return fmt.Errorf("failed to start run: %w", err)
	}
	return nil
}

// FinishRun closes a run. A nil runErr marks it complete, otherwise failed.
func FinishRun(db *sql.DB, runID string, runErr error, finishedAt time.Time) error {
	status := models.RunStatusComplete
	var errMsg sql.NullString
	if runErr != nil {
		status = models.RunStatusFailed
		errMsg = sql.NullString{String: runErr.Error(), Valid: true}
	}

	res, err := db.Exec(`
		UPDATE runs SET finished_at = ?, status = ?, error_message = ?
		WHERE id = ?
	`, finishedAt.UTC(), status, errMsg, runID)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("run %s not found", runID)
	}
	return nil
}

// RecordDealOutcome stores the outcome of one deal, bumps the run counters, and logs every
// HubSpot record created for a processed deal.
func RecordDealOutcome(db *sql.DB, runID string, outcome *models.DealOutcome) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	_, err = tx.Exec(`
		INSERT INTO run_deals (run_id, deal_id, deal_name, outcome, reason, company_id, contract_id, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, runID, outcome.DealID, outcome.DealName, outcome.Outcome,
		nullString(outcome.Reason), nullString(outcome.CompanyID), nullString(outcome.ContractID), now)
	if err != nil {
		return fmt.Errorf("failed to insert run deal: %w", err)
	}

	counter := "processed"
	if outcome.Skipped() {
		counter = "skipped"
	}
	if _, err := tx.Exec(`UPDATE runs SET `+counter+` = `+counter+` + 1 WHERE id = ?`, runID); err != nil {
		return fmt.Errorf("failed to update run counters: %w", err)
	}

	for _, link := range linksFor(runID, outcome, now) {
		_, err := tx.Exec(`
			INSERT INTO sync_log (id, run_id, source_service, source_id, entity_type, entity_id, imported_at, metadata)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, link.ID.String(), link.RunID, link.SourceService, link.SourceID, link.EntityType, link.EntityID, link.ImportedAt, nullString(link.Metadata))
		if err != nil {
			return fmt.Errorf("failed to create sync log: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit deal outcome: %w", err)
	}
	return nil
}

func linksFor(runID string, outcome *models.DealOutcome, at time.Time) []models.SyncLog {
	if outcome.Skipped() {
		return nil
	}

	link := func(entityType, entityID, metadata string) models.SyncLog {
		return models.SyncLog{
			ID:            uuid.New(),
			RunID:         runID,
			SourceService: ServiceHubSpot,
			SourceID:      outcome.DealID,
			EntityType:    entityType,
			EntityID:      entityID,
			ImportedAt:    at,
			Metadata:      metadata,
		}
	}

	var links []models.SyncLog
	if outcome.CompanyID != "" {
		links = append(links, link(models.EntityCompany, outcome.CompanyID, ""))
	}
	if outcome.ContractID != "" {
		links = append(links, link(models.EntityContract, outcome.ContractID, ""))
	}
	for _, p := range outcome.Projects {
		links = append(links, link(models.EntityProject, p.ID, p.SKU))
	}
	return links
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

const runColumns = `id, started_at, finished_at, status, error_message, processed, skipped`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*models.Run, error) {
	var run models.Run
	var finishedAt sql.NullTime
	var errMsg sql.NullString

	if err := row.Scan(&run.ID, &run.StartedAt, &finishedAt, &run.Status, &errMsg, &run.Processed, &run.Skipped); err != nil {
		return nil, err
	}
	if finishedAt.Valid {
		run.FinishedAt = &finishedAt.Time
	}
	run.Error = errMsg.String
	return &run, nil
}

// GetRun retrieves a run by id, or nil when it does not exist.
func GetRun(db *sql.DB, runID string) (*models.Run, error) {
	run, err := scanRun(db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE id = ?`, runID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// ListRuns returns the most recent runs first.
func ListRuns(db *sql.DB, limit int) ([]models.Run, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := db.Query(`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []models.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return runs, nil
}

// ListRunDeals returns the deal outcomes of a run in the order they were recorded.
func ListRunDeals(db *sql.DB, runID string) ([]models.RunDeal, error) {
	rows, err := db.Query(`
		SELECT run_id, deal_id, deal_name, outcome, reason, company_id, contract_id, recorded_at
		FROM run_deals
		WHERE run_id = ?
		ORDER BY recorded_at, rowid
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query run deals: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var deals []models.RunDeal
	for rows.Next() {
		var d models.RunDeal
		var reason, companyID, contractID sql.NullString
		if err := rows.Scan(&d.RunID, &d.DealID, &d.DealName, &d.Outcome, &reason, &companyID, &contractID, &d.RecordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run deal: %w", err)
		}
		d.Reason = reason.String
		d.CompanyID = companyID.String
		d.ContractID = contractID.String
		deals = append(deals, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating run deals: %w", err)
	}
	return deals, nil
}

// ListRunLinks returns the HubSpot records created during a run.
func ListRunLinks(db *sql.DB, runID string) ([]models.SyncLog, error) {
	rows, err := db.Query(`
		SELECT id, run_id, source_service, source_id, entity_type, entity_id, imported_at, metadata
		FROM sync_log
		WHERE run_id = ?
		ORDER BY imported_at, rowid
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync log: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var links []models.SyncLog
	for rows.Next() {
		var l models.SyncLog
		var id string
		var metadata sql.NullString
		if err := rows.Scan(&id, &l.RunID, &l.SourceService, &l.SourceID, &l.EntityType, &l.EntityID, &l.ImportedAt, &metadata); err != nil {
			return nil, fmt.Errorf("failed to scan sync log: %w", err)
		}
		l.ID, err = uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("invalid sync log id %q: %w", id, err)
		}
		l.Metadata = metadata.String
		links = append(links, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sync log: %w", err)
	}
	return links, nil
}

// DealProcessed reports whether any run has processed the deal.
func DealProcessed(db *sql.DB, dealID string) (bool, error) {
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM run_deals WHERE deal_id = ? AND outcome = ?`,
		dealID, models.OutcomeProcessed).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check deal %s: %w", dealID, err)
	}
	return n > 0, nil
}

// RunRecorder stores pipeline runs in the ledger and keeps the hubspot sync_state current.
type RunRecorder struct {
	DB *sql.DB
}

func NewRunRecorder(db *sql.DB) *RunRecorder {
	return &RunRecorder{DB: db}
}

func (r *RunRecorder) StartRun(ctx context.Context, runID string) error {
	if err := StartRun(r.DB, runID, time.Now()); err != nil {
		return err
	}
	return UpdateSyncStatus(r.DB, ServiceHubSpot, models.SyncStatusSyncing, nil)
}

func (r *RunRecorder) RecordDealOutcome(ctx context.Context, runID string, outcome *models.DealOutcome) error {
	return RecordDealOutcome(r.DB, runID, outcome)
}

func (r *RunRecorder) FinishRun(ctx context.Context, runID string, runErr error) error {
	if err := FinishRun(r.DB, runID, runErr, time.Now()); err != nil {
		return err
	}
	if runErr != nil {
		msg := runErr.Error()
		return UpdateSyncStatus(r.DB, ServiceHubSpot, models.SyncStatusError, &msg)
	}
	return UpdateSyncToken(r.DB, ServiceHubSpot, runID)
}
