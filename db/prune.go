// ABOUTME: Retention for the run ledger
// ABOUTME: Counts and deletes finished runs older than a cutoff together with their outcomes and links
package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/harperreed/dealbridge/models"
)

const prunableRuns = `SELECT id FROM runs WHERE status != ? AND started_at < ?`

// CountRunsBefore returns how many finished runs started before cutoff.
func CountRunsBefore(db *sql.DB, cutoff time.Time) (int, error) {
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM runs WHERE status != ? AND started_at < ?`,
		models.RunStatusRunning, cutoff.UTC()).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count runs: %w", err)
	}
	return n, nil
}

// PruneRuns deletes finished runs started before cutoff. Runs still in progress are kept.
func PruneRuns(db *sql.DB, cutoff time.Time) (int64, error) {
	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	args := []any{models.RunStatusRunning, cutoff.UTC()}
	for _, table := range []string{"sync_log", "run_deals"} {
		if _, err := tx.Exec(`DELETE FROM `+table+` WHERE run_id IN (`+prunableRuns+`)`, args...); err != nil {
			return 0, fmt.Errorf("failed to prune %s: %w", table, err)
		}
	}

	res, err := tx.Exec(`DELETE FROM runs WHERE status != ? AND started_at < ?`, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to prune runs: %w", err)
	}
	n, _ := res.RowsAffected()

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit prune: %w", err)
	}
	return n, nil
}
