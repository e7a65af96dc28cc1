// Package xlsx renders a dashboard snapshot as an Excel workbook, either
// streamed to a writer or saved to a file by the export job.
package xlsx

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"findash/internal/core"
	ports "findash/internal/sheets"
)

// SheetName is the single worksheet of the workbook.
const SheetName = "Dashboard"

// ContentType is the MIME type of the written workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var _ ports.DashboardExporter = (*Exporter)(nil)

// Build lays the snapshot tables out side by side, one empty column apart,
// with bold header rows.
func Build(snap core.DashboardSnapshot) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("create header style: %w", err)
	}

	col := 1
	for _, t := range ports.Tables(snap) {
		for i, row := range t.Values() {
			cell, err := excelize.CoordinatesToCellName(col, i+1)
			if err != nil {
				_ = f.Close()
				return nil, err
			}
			if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
				_ = f.Close()
				return nil, fmt.Errorf("write %s row %d: %w", t.Title, i+1, err)
			}
		}

		first, _ := excelize.CoordinatesToCellName(col, 1)
		last, _ := excelize.CoordinatesToCellName(col+len(t.Header)-1, 1)
		if err := f.SetCellStyle(SheetName, first, last, bold); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("style %s header: %w", t.Title, err)
		}
		col += len(t.Header) + 1
	}
	return f, nil
}

// Write streams the workbook to w.
func Write(w io.Writer, snap core.DashboardSnapshot) error {
	f, err := Build(snap)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// Exporter saves the workbook to a fixed path, replacing the previous one.
type Exporter struct {
	path string
}

func NewExporter(path string) *Exporter {
	return &Exporter{path: path}
}

func (e *Exporter) ExportDashboard(ctx context.Context, snap core.DashboardSnapshot) error {
	if err := os.MkdirAll(filepath.Dir(e.path), 0o755); err != nil {
		return fmt.Errorf("create export directory: %w", err)
	}

	f, err := Build(snap)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	if err := f.SaveAs(e.path); err != nil {
		return fmt.Errorf("save %s: %w", e.path, err)
	}
	slog.InfoContext(ctx, "Dashboard written to workbook", "path", e.path)
	return nil
}
