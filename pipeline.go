package main

import "log"

// RunReport executes one fetch-classify-aggregate pass for the given kind.
// A run is self-contained: it derives its own window from the current time
// and shares no state with other runs. An empty report (Total() == 0) is a
// valid outcome distinct from an error; callers check Empty(), never the
// error text.
func RunReport(cfg Config, kind ReportKind) (*OrderReport, error) {
	w := currentReportWindow()
	log.Printf("report run kind=%s window=%s..%s", kind,
		w.Start.Format("2006-01-02 15:04"), w.Now.Format("2006-01-02 15:04"))

	orders, err := fetchOrders(cfg, w)
	if err != nil {
		return nil, err
	}

	report := buildReport(kind, orders, w, cfg.StoreMapping)
	log.Printf("report run kind=%s fetched=%d matched=%d stores=%d",
		kind, len(orders), report.Total(), len(report.Stores))
	return report, nil
}
