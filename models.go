package main

import "time"

// businessZone is the fixed merchant timezone (UTC+5). All cutoffs and
// schedule times are evaluated here, never in the host's local zone.
var businessZone = time.FixedZone("UTC+5", 5*60*60)

// Order is one order record as consumed from the Kaspi API.
// PlannedAt and HandedAt are zero when the API omits them.
type Order struct {
	Code      string
	StoreID   string
	PlannedAt time.Time // courierTransmissionPlanningDate
	HandedAt  time.Time // courierTransmissionDate
}

// ReportWindow holds the per-run reference instants derived from "now" in
// the business zone: a rolling 14-day creation window plus the two fixed
// time-of-day cutoffs the classification rules compare against.
type ReportWindow struct {
	Start    time.Time // now - 14 days
	Now      time.Time
	Cutoff   time.Time // today 23:00:00
	EndOfDay time.Time // today 23:59:59
}

func reportWindowAt(now time.Time) ReportWindow {
	now = now.In(businessZone)
	return ReportWindow{
		Start:    now.AddDate(0, 0, -14),
		Now:      now,
		Cutoff:   time.Date(now.Year(), now.Month(), now.Day(), 23, 0, 0, 0, businessZone),
		EndOfDay: time.Date(now.Year(), now.Month(), now.Day(), 23, 59, 59, 0, businessZone),
	}
}

func currentReportWindow() ReportWindow {
	return reportWindowAt(time.Now().In(businessZone))
}

// ReportKind selects which classification rule a pipeline run applies.
type ReportKind int

const (
	ReportOverdue ReportKind = iota
	ReportPending
)

func (k ReportKind) String() string {
	if k == ReportPending {
		return "pending"
	}
	return "overdue"
}

// SheetName is the title of the order-list sheet in the Excel export.
func (k ReportKind) SheetName() string {
	if k == ReportPending {
		return "Pending Orders"
	}
	return "Overdue Orders"
}

func (k ReportKind) Title() string {
	if k == ReportPending {
		return "Orders pending courier handover"
	}
	return "Overdue orders"
}

func (k ReportKind) EmailSubject() string {
	if k == ReportPending {
		return "Pending orders OMS"
	}
	return "Delayed orders OMS"
}

func (k ReportKind) EmailBody() string {
	if k == ReportPending {
		return "Қайырлы таң, Төменде бүгін курьерге жіберілуі керек тапсырыс саны.\n\n" +
			"Good morning, Attached are all the pending orders for courier handover today."
	}
	return "Good evening, There are delayed orders that were supposed to be handed over to the courier today. " +
		"Please find these orders.\n\n" +
		"Қайырлы кеш, Төменде кешіккен тапсырыс саны."
}

// OrderReport is the aggregation result of one pipeline run: order codes
// grouped by display store name, in first-seen order on both axes.
type OrderReport struct {
	Kind   ReportKind
	Stores []string
	Orders map[string][]string
}

func newOrderReport(kind ReportKind) *OrderReport {
	return &OrderReport{Kind: kind, Orders: make(map[string][]string)}
}

func (r *OrderReport) add(store, code string) {
	if _, seen := r.Orders[store]; !seen {
		r.Stores = append(r.Stores, store)
	}
	r.Orders[store] = append(r.Orders[store], code)
}

// Total is the grand total across stores; it always equals the sum of the
// per-store list lengths.
func (r *OrderReport) Total() int {
	total := 0
	for _, codes := range r.Orders {
		total += len(codes)
	}
	return total
}

func (r *OrderReport) Empty() bool {
	return r.Total() == 0
}
