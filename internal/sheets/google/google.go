// Package google exports dashboard snapshots to a Google Sheets tab.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"findash/internal/core"
	ports "findash/internal/sheets"
)

var _ ports.DashboardExporter = (*Exporter)(nil)

type Config struct {
	SpreadsheetID string

	// SheetName is the tab base name; the snapshot year is prefixed
	// ("2025 Dashboard").
	SheetName string

	CredentialsJSON string
	CredentialsFile string
}

// Exporter writes the summary, cash flow and client tables side by side
// on one tab, clearing the tab first.
type Exporter struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetBase     string
}

// NewExporter builds a Sheets client from service account credentials.
// Extra client options are appended; tests point the endpoint at a local
// server.
func NewExporter(ctx context.Context, cfg Config, opts ...goption.ClientOption) (*Exporter, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	base := strings.TrimSpace(cfg.SheetName)
	if base == "" {
		base = "Dashboard"
	}

	if len(opts) == 0 {
		creds, err := credentials(cfg)
		if err != nil {
			return nil, err
		}
		opts = []goption.ClientOption{
			goption.WithCredentialsJSON(creds),
			goption.WithScopes(gsheet.SpreadsheetsScope),
		}
	}

	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	slog.InfoContext(ctx, "Google Sheets exporter ready", "spreadsheet_id", cfg.SpreadsheetID, "sheet", base)
	return &Exporter{svc: svc, spreadsheetID: cfg.SpreadsheetID, sheetBase: base}, nil
}

func credentials(cfg Config) ([]byte, error) {
	switch {
	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		return []byte(cfg.CredentialsJSON), nil
	case cfg.CredentialsFile != "":
		b, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
	}
}

func (e *Exporter) ExportDashboard(ctx context.Context, snap core.DashboardSnapshot) error {
	generated := snap.GeneratedAt
	if generated.IsZero() {
		generated = time.Now()
	}
	sheet := quoteSheet(yearPrefixedName(e.sheetBase, generated.UTC().Year()))

	_, err := e.svc.Spreadsheets.Values.BatchClear(e.spreadsheetID, &gsheet.BatchClearValuesRequest{
		Ranges: []string{sheet + "!A:Z"},
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("clear %s: %w", sheet, err)
	}

	data := layout(sheet, ports.Tables(snap))
	_, err = e.svc.Spreadsheets.Values.BatchUpdate(e.spreadsheetID, &gsheet.BatchUpdateValuesRequest{
		ValueInputOption: "USER_ENTERED",
		Data:             data,
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write %s: %w", sheet, err)
	}

	slog.InfoContext(ctx, "Dashboard written to Google Sheets", "sheet", sheet, "ranges", len(data))
	return nil
}

// layout places each table in its own column block, separated by one empty
// column.
func layout(sheet string, tables []ports.Table) []*gsheet.ValueRange {
	out := make([]*gsheet.ValueRange, 0, len(tables))
	col := 1
	for _, t := range tables {
		out = append(out, &gsheet.ValueRange{
			Range:  fmt.Sprintf("%s!%s1", sheet, columnName(col)),
			Values: t.Values(),
		})
		col += len(t.Header) + 1
	}
	return out
}

// columnName converts a 1-based column index to A1 letters.
func columnName(n int) string {
	var b []byte
	for n > 0 {
		n--
		b = append([]byte{byte('A' + n%26)}, b...)
		n /= 26
	}
	return string(b)
}

func quoteSheet(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}
