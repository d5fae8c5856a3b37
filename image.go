package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

const (
	tableCellWidth  = 220
	tableCellHeight = 28
	tablePadding    = 10
)

// tableFace renders store names and the total label; Go Regular covers
// Cyrillic, so mapped and unmapped ids both draw with real glyphs.
func tableFace() (font.Face, error) {
	f, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parsing table font: %w", err)
	}
	return truetype.NewFace(f, &truetype.Options{Size: 13}), nil
}

// renderStatisticsImage draws the statistics table (header, per-store rows,
// total row) to a PNG for embedding in emails and chat messages.
func renderStatisticsImage(report *OrderReport, mapping map[string]string, outputDir string, now time.Time) (string, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", err
	}

	face, err := tableFace()
	if err != nil {
		return "", err
	}

	rows := statisticsRows(report, mapping)
	width := 2*tableCellWidth + 2*tablePadding
	height := len(rows)*tableCellHeight + 2*tablePadding

	dc := gg.NewContext(width, height)
	dc.SetRGB(1, 1, 1)
	dc.Clear()
	dc.SetFontFace(face)

	for i, r := range rows {
		y := float64(tablePadding + i*tableCellHeight)
		for col := 0; col < 2; col++ {
			x := float64(tablePadding + col*tableCellWidth)
			if i == 0 {
				dc.SetRGB(0.88, 0.88, 0.88)
				dc.DrawRectangle(x, y, tableCellWidth, tableCellHeight)
				dc.Fill()
			}
			dc.SetRGB(0.4, 0.4, 0.4)
			dc.DrawRectangle(x, y, tableCellWidth, tableCellHeight)
			dc.Stroke()
			dc.SetRGB(0, 0, 0)
			dc.DrawStringAnchored(r[col], x+tableCellWidth/2, y+tableCellHeight/2, 0.5, 0.35)
		}
	}

	path := filepath.Join(outputDir, exportFileName(report.Kind, "png", now))
	if err := dc.SavePNG(path); err != nil {
		return "", fmt.Errorf("saving statistics image: %w", err)
	}
	return path, nil
}
