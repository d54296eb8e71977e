// ABOUTME: Retention utility for the dealbridge run ledger.
// ABOUTME: Deletes old finished runs with dry-run and backup support.

package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/harperreed/dealbridge/config"
	"github.com/harperreed/dealbridge/db"
)

func main() {
	dbPath := flag.String("db", "", "Path to database file (default: XDG data dir)")
	olderThan := flag.Duration("older-than", 90*24*time.Hour, "Delete finished runs started before this age")
	dryRun := flag.Bool("dry-run", false, "Show what would happen without making changes")
	backup := flag.Bool("backup", true, "Create backup before pruning")
	flag.Parse()

	if *dbPath == "" {
		*dbPath = config.DatabasePath()
	}

	if err := prune(*dbPath, time.Now().Add(-*olderThan), *dryRun, *backup); err != nil {
		log.Fatalf("Prune failed: %v", err)
	}
}

func prune(dbPath string, cutoff time.Time, dryRun, createBackup bool) error {
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return fmt.Errorf("database file does not exist: %s", dbPath)
	}

	database, err := db.OpenDatabase(dbPath)
	if err != nil {
		return err
	}
	defer func() { _ = database.Close() }()

	count, err := db.CountRunsBefore(database, cutoff)
	if err != nil {
		return err
	}

	if count == 0 {
		log.Printf("No finished runs before %s", cutoff.Format(time.DateTime))
		return nil
	}

	if dryRun {
		log.Printf("[DRY RUN] Would delete %d run(s) started before %s", count, cutoff.Format(time.DateTime))
		return nil
	}

	if createBackup {
		backupPath := fmt.Sprintf("%s.backup.%s", dbPath, time.Now().Format("20060102-150405"))
		log.Printf("Creating backup: %s", backupPath)

		// VACUUM INTO copies a consistent snapshot even with WAL enabled.
		if _, err := database.Exec(`VACUUM INTO ?`, backupPath); err != nil {
			return fmt.Errorf("failed to create backup: %w", err)
		}
	}

	n, err := db.PruneRuns(database, cutoff)
	if err != nil {
		return err
	}
	log.Printf("Deleted %d run(s)", n)
	return nil
}
