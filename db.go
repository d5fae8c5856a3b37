package main

import (
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// ReportRun is one journal entry: the outcome of a single pipeline run.
// Only run metadata is stored; fetched order data is never persisted and
// every run re-fetches from scratch.
type ReportRun struct {
	ID        int64
	Kind      string
	Trigger   string // "command" or "schedule"
	Stores    int
	Total     int
	Status    string // "ok", "empty", or "error"
	Error     string
	CreatedAt time.Time
}

func InitDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS report_runs (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		kind        TEXT NOT NULL,
		trigger_src TEXT NOT NULL,
		stores      INTEGER NOT NULL DEFAULT 0,
		total       INTEGER NOT NULL DEFAULT 0,
		status      TEXT NOT NULL,
		error       TEXT DEFAULT '',
		created_at  DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_report_runs_created_at ON report_runs(created_at);
	`
	if _, err := db.Exec(schema); err != nil {
		return nil, err
	}

	return db, nil
}

func InsertReportRun(db *sql.DB, run ReportRun) error {
	_, err := db.Exec(
		`INSERT INTO report_runs (kind, trigger_src, stores, total, status, error)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		run.Kind, run.Trigger, run.Stores, run.Total, run.Status, run.Error,
	)
	return err
}

func RecentReportRuns(db *sql.DB, limit int) ([]ReportRun, error) {
	rows, err := db.Query(
		`SELECT id, kind, trigger_src, stores, total, status, error, created_at
		 FROM report_runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []ReportRun
	for rows.Next() {
		var run ReportRun
		if err := rows.Scan(&run.ID, &run.Kind, &run.Trigger, &run.Stores,
			&run.Total, &run.Status, &run.Error, &run.CreatedAt); err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// recordRun journals a pipeline outcome; journal failures are logged by the
// caller and never fail the run itself.
func recordRun(db *sql.DB, kind ReportKind, trigger string, report *OrderReport, runErr error) error {
	run := ReportRun{Kind: kind.String(), Trigger: trigger}
	switch {
	case runErr != nil:
		run.Status = "error"
		run.Error = runErr.Error()
	case report.Empty():
		run.Status = "empty"
	default:
		run.Status = "ok"
		run.Stores = len(report.Stores)
		run.Total = report.Total()
	}
	return InsertReportRun(db, run)
}
