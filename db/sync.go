// ABOUTME: Health of the two feeds dealbridge tracks: HubSpot pipeline runs and ClickUp webhooks
// ABOUTME: One sync_state row per feed holds its status, last good run or task, and last error
package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/harperreed/dealbridge/models"
)

// Feeds stored in sync_state.
const (
	ServiceHubSpot = "hubspot"
	ServiceClickUp = "clickup"
)

// SyncState is one feed's row. For hubspot LastSyncToken is the last run id that finished
// cleanly; for clickup it is the last task whose status was applied.
type SyncState struct {
	Service       string
	LastSyncTime  *time.Time
	LastSyncToken *string
	Status        string
	ErrorMessage  *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

const syncStateColumns = `service, last_sync_time, last_sync_token, status, error_message, created_at, updated_at`

func scanSyncState(row rowScanner) (*SyncState, error) {
	var s SyncState
	var at sql.NullTime
	var token, errMsg sql.NullString
	if err := row.Scan(&s.Service, &at, &token, &s.Status, &errMsg, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	if at.Valid {
		s.LastSyncTime = &at.Time
	}
	if token.Valid {
		s.LastSyncToken = &token.String
	}
	if errMsg.Valid {
		s.ErrorMessage = &errMsg.String
	}
	return &s, nil
}

// GetSyncState returns the feed's row, or nil before its first run or webhook.
func GetSyncState(db *sql.DB, service string) (*SyncState, error) {
	s, err := scanSyncState(db.QueryRow(`SELECT `+syncStateColumns+` FROM sync_state WHERE service = ?`, service))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s feed state: %w", service, err)
	}
	return s, nil
}

// UpdateSyncStatus moves a feed to status (syncing or error) without touching its last good run.
func UpdateSyncStatus(db *sql.DB, service, status string, errorMsg *string) error {
	msg := sql.NullString{}
	if errorMsg != nil {
		msg = sql.NullString{String: *errorMsg, Valid: true}
	}

	_, err := db.Exec(`
		INSERT INTO sync_state (service, status, error_message) VALUES (?, ?, ?)
		ON CONFLICT(service) DO UPDATE SET
			status = excluded.status, error_message = excluded.error_message, updated_at = CURRENT_TIMESTAMP
	`, service, status, msg)
	if err != nil {
		return fmt.Errorf("failed to set %s feed to %s: %w", service, status, err)
	}
	return nil
}

// UpdateSyncToken marks the feed idle after a clean run (hubspot) or applied webhook (clickup)
// and clears any earlier error.
func UpdateSyncToken(db *sql.DB, service, token string) error {
	_, err := db.Exec(`
		INSERT INTO sync_state (service, last_sync_time, last_sync_token, status)
		VALUES (?, CURRENT_TIMESTAMP, ?, ?)
		ON CONFLICT(service) DO UPDATE SET
			last_sync_time = CURRENT_TIMESTAMP, last_sync_token = excluded.last_sync_token,
			status = excluded.status, error_message = NULL, updated_at = CURRENT_TIMESTAMP
	`, service, token, models.SyncStatusIdle)
	if err != nil {
		return fmt.Errorf("failed to record %s success %s: %w", service, token, err)
	}
	return nil
}

// GetAllSyncStates returns every feed that has reported at least once.
func GetAllSyncStates(db *sql.DB) ([]SyncState, error) {
	rows, err := db.Query(`SELECT ` + syncStateColumns + ` FROM sync_state ORDER BY service`)
	if err != nil {
		return nil, fmt.Errorf("failed to list feed states: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var states []SyncState
	for rows.Next() {
		s, err := scanSyncState(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan feed state: %w", err)
		}
		states = append(states, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list feed states: %w", err)
	}
	return states, nil
}
