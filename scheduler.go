package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/robfig/cron/v3"
)

// StartReportScheduler registers the two daily unattended triggers: the
// pending report in the morning and the overdue report in the evening.
// Times are evaluated in the business zone regardless of the host zone.
// Scheduled failures are logged only; no one is alerted.
func StartReportScheduler(cfg Config, db *sql.DB) {
	if !cfg.EmailConfigured() {
		log.Println("Scheduled reports disabled (email_to not set)")
		return
	}

	scheduleDaily(cfg, db, ReportOverdue, cfg.OverdueReportTime)
	scheduleDaily(cfg, db, ReportPending, cfg.PendingReportTime)
}

func scheduleDaily(cfg Config, db *sql.DB, kind ReportKind, clock string) {
	hour, min, err := parseClock(clock)
	if err != nil {
		log.Printf("Invalid %s report time '%s': %v — trigger disabled", kind, clock, err)
		return
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	sched, err := parser.Parse(fmt.Sprintf("%d %d * * *", min, hour))
	if err != nil {
		log.Printf("Invalid %s report schedule: %v — trigger disabled", kind, err)
		return
	}

	log.Printf("%s report scheduled daily at %02d:%02d UTC+5", kind, hour, min)

	go func() {
		for {
			now := time.Now().In(businessZone)
			next := sched.Next(now)
			wait := next.Sub(now)
			log.Printf("Next %s report at %s (in %s)", kind, next.Format("Mon Jan 2 15:04"), wait.Round(time.Minute))

			time.Sleep(wait)
			runScheduledReport(cfg, db, kind)
		}
	}()
}

func runScheduledReport(cfg Config, db *sql.DB, kind ReportKind) {
	log.Printf("scheduled report starting kind=%s", kind)

	report, err := RunReport(cfg, kind)
	if jErr := recordRun(db, kind, "schedule", report, err); jErr != nil {
		log.Printf("journal error kind=%s: %v", kind, jErr)
	}
	if err != nil {
		log.Printf("scheduled report kind=%s error: %v", kind, err)
		return
	}
	if report.Empty() {
		log.Printf("scheduled report kind=%s: nothing to report", kind)
		return
	}

	if err := deliverReportEmail(cfg, report); err != nil {
		log.Printf("scheduled report kind=%s delivery error: %v", kind, err)
		return
	}
	log.Printf("scheduled report kind=%s delivered total=%d", kind, report.Total())
}

// deliverReportEmail materializes the export pair and emails it. Temp files
// are removed regardless of outcome.
func deliverReportEmail(cfg Config, report *OrderReport) error {
	now := time.Now().In(businessZone)

	xlsxPath, err := writeOrdersWorkbook(report, cfg.StoreMapping, cfg.ExportDir, now)
	if err != nil {
		return fmt.Errorf("building export: %w", err)
	}
	defer os.Remove(xlsxPath)

	pngPath, err := renderStatisticsImage(report, cfg.StoreMapping, cfg.ExportDir, now)
	if err != nil {
		return fmt.Errorf("rendering statistics: %w", err)
	}
	defer os.Remove(pngPath)

	return sendReportEmail(cfg, report.Kind, xlsxPath, pngPath)
}
