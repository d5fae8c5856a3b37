package main

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := InitDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("InitDB() error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestReportRunJournal(t *testing.T) {
	db := testDB(t)

	report := sampleReport(ReportOverdue)
	if err := recordRun(db, ReportOverdue, "command", report, nil); err != nil {
		t.Fatalf("recordRun(ok) error: %v", err)
	}
	if err := recordRun(db, ReportPending, "schedule", newOrderReport(ReportPending), nil); err != nil {
		t.Fatalf("recordRun(empty) error: %v", err)
	}
	if err := recordRun(db, ReportOverdue, "schedule", nil, errors.New("boom")); err != nil {
		t.Fatalf("recordRun(error) error: %v", err)
	}

	runs, err := RecentReportRuns(db, 10)
	if err != nil {
		t.Fatalf("RecentReportRuns() error: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("runs = %d, want 3", len(runs))
	}

	// Newest first.
	if runs[0].Status != "error" || runs[0].Error != "boom" {
		t.Errorf("runs[0] = %+v, want error/boom", runs[0])
	}
	if runs[1].Status != "empty" || runs[1].Kind != "pending" || runs[1].Trigger != "schedule" {
		t.Errorf("runs[1] = %+v, want empty pending/schedule", runs[1])
	}
	if runs[2].Status != "ok" || runs[2].Total != 3 || runs[2].Stores != 2 {
		t.Errorf("runs[2] = %+v, want ok with 3 orders in 2 stores", runs[2])
	}
}

func TestRecentReportRunsLimit(t *testing.T) {
	db := testDB(t)

	for i := 0; i < 5; i++ {
		if err := recordRun(db, ReportOverdue, "command", sampleReport(ReportOverdue), nil); err != nil {
			t.Fatalf("recordRun() error: %v", err)
		}
	}

	runs, err := RecentReportRuns(db, 2)
	if err != nil {
		t.Fatalf("RecentReportRuns() error: %v", err)
	}
	if len(runs) != 2 {
		t.Errorf("runs = %d, want 2", len(runs))
	}
}
