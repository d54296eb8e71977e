// ABOUTME: Terminal dashboard statistics and rendering for pipeline runs
// ABOUTME: Summarises recent runs, skip reasons, and the hubspot sync state
package viz

import (
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/harperreed/dealbridge/db"
	"github.com/harperreed/dealbridge/models"
)

type DashboardStats struct {
	Runs      []models.Run
	Processed int
	Skipped   int
	Failed    int

	// Skip reason -> count across the listed runs
	SkipReasons map[string]int

	SyncState *db.SyncState
}

// GenerateDashboardStats aggregates the last limit runs.
func GenerateDashboardStats(database *sql.DB, limit int) (*DashboardStats, error) {
	runs, err := db.ListRuns(database, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch runs: %w", err)
	}

	stats := &DashboardStats{
		Runs:        runs,
		SkipReasons: make(map[string]int),
	}

	for _, run := range runs {
		stats.Processed += run.Processed
		stats.Skipped += run.Skipped
		if run.Status == models.RunStatusFailed {
			stats.Failed++
		}
		if run.Skipped == 0 {
			continue
		}

		deals, err := db.ListRunDeals(database, run.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch run deals: %w", err)
		}
		for _, d := range deals {
			if d.Outcome == models.OutcomeSkipped {
				stats.SkipReasons[d.Reason]++
			}
		}
	}

	stats.SyncState, err = db.GetSyncState(database, db.ServiceHubSpot)
	if err != nil {
		return nil, err
	}

	return stats, nil
}

func RenderDashboard(stats *DashboardStats) string {
	var out strings.Builder

	out.WriteString("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
	out.WriteString("  DEALBRIDGE DASHBOARD\n")
	out.WriteString("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")

	out.WriteString("SYNC\n")
	if stats.SyncState == nil {
		out.WriteString("  never run\n\n")
	} else {
		last := "never"
		if stats.SyncState.LastSyncTime != nil {
			last = stats.SyncState.LastSyncTime.Format("2006-01-02 15:04")
		}
		out.WriteString(fmt.Sprintf("  status: %s  last success: %s\n", stats.SyncState.Status, last))
		if stats.SyncState.ErrorMessage != nil {
			out.WriteString(fmt.Sprintf("  ⚠️  %s\n", *stats.SyncState.ErrorMessage))
		}
		out.WriteString("\n")
	}

	out.WriteString("RUNS\n")
	out.WriteString(fmt.Sprintf("  🔁 %d runs  ✅ %d deals processed  ⏭  %d skipped  ❌ %d failed runs\n\n",
		len(stats.Runs), stats.Processed, stats.Skipped, stats.Failed))

	if len(stats.SkipReasons) > 0 {
		out.WriteString("SKIP REASONS\n")
		renderReasons(&out, stats.SkipReasons)
	}

	return out.String()
}

func renderReasons(out *strings.Builder, reasons map[string]int) {
	keys := make([]string, 0, len(reasons))
	maxCount := 1
	for k, n := range reasons {
		keys = append(keys, k)
		if n > maxCount {
			maxCount = n
		}
	}
	sort.Strings(keys)

	for _, reason := range keys {
		count := reasons[reason]
		barLength := (count * 10) / maxCount
		bar := strings.Repeat("█", barLength) + strings.Repeat("░", 10-barLength)
		out.WriteString(fmt.Sprintf("  %-18s %s  %2d\n", reason, bar, count))
	}
}
