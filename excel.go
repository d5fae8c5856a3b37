package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// writeOrdersWorkbook materializes a report as a two-sheet xlsx file: the
// raw order list and a per-store statistics sheet with a final total row.
// The file name is unique per invocation so concurrent runs cannot collide.
func writeOrdersWorkbook(report *OrderReport, mapping map[string]string, outputDir string, now time.Time) (string, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	orderSheet := report.Kind.SheetName()
	if err := f.SetSheetName("Sheet1", orderSheet); err != nil {
		return "", err
	}

	f.SetCellValue(orderSheet, "A1", "Store")
	f.SetCellValue(orderSheet, "B1", "Order Number")
	row := 2
	for _, store := range report.Stores {
		for _, code := range report.Orders[store] {
			f.SetCellValue(orderSheet, fmt.Sprintf("A%d", row), store)
			f.SetCellValue(orderSheet, fmt.Sprintf("B%d", row), code)
			row++
		}
	}

	if _, err := f.NewSheet("Statistics"); err != nil {
		return "", err
	}
	for i, r := range statisticsRows(report, mapping) {
		f.SetCellValue("Statistics", fmt.Sprintf("A%d", i+1), r[0])
		f.SetCellValue("Statistics", fmt.Sprintf("B%d", i+1), r[1])
	}

	path := filepath.Join(outputDir, exportFileName(report.Kind, "xlsx", now))
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("saving workbook: %w", err)
	}
	return path, nil
}

// statisticsRows is the statistics table as rendered in both the xlsx sheet
// and the PNG snapshot: header, one row per store, then the total row with
// its label resolved through the store mapping.
func statisticsRows(report *OrderReport, mapping map[string]string) [][2]string {
	rows := [][2]string{{"Store", "Number of Orders"}}
	for _, store := range report.Stores {
		rows = append(rows, [2]string{store, fmt.Sprintf("%d", len(report.Orders[store]))})
	}
	rows = append(rows, [2]string{resolveStore(mapping, totalRowKey), fmt.Sprintf("%d", report.Total())})
	return rows
}

func exportFileName(kind ReportKind, ext string, now time.Time) string {
	slug := strings.ReplaceAll(strings.ToLower(kind.SheetName()), " ", "_")
	return fmt.Sprintf("%s_%s_%06d.%s", slug, now.Format("20060102_150405"), now.Nanosecond()/1000, ext)
}
