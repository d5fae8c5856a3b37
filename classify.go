package main

import "time"

// isOverdue reports whether the order's planned courier handover has passed
// (or passes today before the 23:00 cutoff) with no actual handover recorded.
// Orders without a planning date carry no deadline and never match.
func isOverdue(o Order, w ReportWindow) bool {
	if o.PlannedAt.IsZero() || !o.HandedAt.IsZero() {
		return false
	}
	if o.PlannedAt.Before(w.Now) {
		return true
	}
	return sameDay(o.PlannedAt, w.Now) && o.PlannedAt.Before(w.Cutoff)
}

// isPending reports whether the planned handover falls inside the closed
// interval [window start, today 23:59:59] with no actual handover recorded.
func isPending(o Order, w ReportWindow) bool {
	if o.PlannedAt.IsZero() || !o.HandedAt.IsZero() {
		return false
	}
	return !o.PlannedAt.Before(w.Start) && !o.PlannedAt.After(w.EndOfDay)
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.In(businessZone).Date()
	by, bm, bd := b.In(businessZone).Date()
	return ay == by && am == bm && ad == bd
}

func (k ReportKind) matches(o Order, w ReportWindow) bool {
	if k == ReportPending {
		return isPending(o, w)
	}
	return isOverdue(o, w)
}

// resolveStore translates a raw pickup-point id through the mapping.
// Lookup is exact-match; unmapped ids pass through unchanged.
func resolveStore(mapping map[string]string, id string) string {
	if name, ok := mapping[id]; ok {
		return name
	}
	return id
}

// buildReport classifies every fetched order against the kind's rule and
// groups the surviving codes by resolved store name. Order is first-seen on
// both axes; duplicate codes in the raw feed are appended twice.
func buildReport(kind ReportKind, orders []Order, w ReportWindow, mapping map[string]string) *OrderReport {
	report := newOrderReport(kind)
	for _, o := range orders {
		if !kind.matches(o, w) {
			continue
		}
		report.add(resolveStore(mapping, o.StoreID), o.Code)
	}
	return report
}
