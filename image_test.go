package main

import (
	"image/png"
	"os"
	"testing"
	"time"
)

func TestRenderStatisticsImage(t *testing.T) {
	dir := t.TempDir()
	mapping := map[string]string{totalRowKey: "Total"}
	now := time.Date(2025, 6, 16, 18, 0, 0, 0, businessZone)

	path, err := renderStatisticsImage(sampleReport(ReportOverdue), mapping, dir, now)
	if err != nil {
		t.Fatalf("renderStatisticsImage() error: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("opening image: %v", err)
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decoding image: %v", err)
	}

	// Header + 2 store rows + total row.
	wantHeight := 4*tableCellHeight + 2*tablePadding
	if got := img.Bounds().Dy(); got != wantHeight {
		t.Errorf("image height = %d, want %d", got, wantHeight)
	}
	wantWidth := 2*tableCellWidth + 2*tablePadding
	if got := img.Bounds().Dx(); got != wantWidth {
		t.Errorf("image width = %d, want %d", got, wantWidth)
	}
}

func TestRenderStatisticsImageCyrillicLabels(t *testing.T) {
	report := newOrderReport(ReportPending)
	report.add("Караганда Таир", "ORD-1")

	// Empty mapping: the store name and the total label both pass through
	// in Cyrillic.
	path, err := renderStatisticsImage(report, map[string]string{}, t.TempDir(), time.Now().In(businessZone))
	if err != nil {
		t.Fatalf("renderStatisticsImage() error: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("opening image: %v", err)
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decoding image: %v", err)
	}

	// Header + 1 store row + total row.
	wantHeight := 3*tableCellHeight + 2*tablePadding
	if got := img.Bounds().Dy(); got != wantHeight {
		t.Errorf("image height = %d, want %d", got, wantHeight)
	}
}
