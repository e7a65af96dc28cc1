package sheets

import (
	"time"

	"findash/internal/core"
)

// Table is a header row plus data rows, the shape both spreadsheet
// exporters write.
type Table struct {
	Title  string
	Header []any
	Rows   [][]any
}

// Values returns the header followed by the rows.
func (t Table) Values() [][]any {
	out := make([][]any, 0, len(t.Rows)+1)
	out = append(out, t.Header)
	return append(out, t.Rows...)
}

// Amounts are written as plain decimal numbers so spreadsheet formulas can
// use them.
func amount(m core.Money) float64 {
	f, _ := m.Decimal().Float64()
	return f
}

// SummaryTable holds the headline figures: MRR and the year-to-date block.
func SummaryTable(snap core.DashboardSnapshot) Table {
	ytd := snap.YTD
	return Table{
		Title:  "Summary",
		Header: []any{"Metric", "Value"},
		Rows: [][]any{
			{"Generated At", snap.GeneratedAt.UTC().Format(time.RFC3339)},
			{"MRR", amount(snap.MRR)},
			{"YTD Since", ytd.Since.String()},
			{"YTD Collected", amount(ytd.Collected)},
			{"YTD Outflows", amount(ytd.Outflows)},
			{"YTD Owner Distributions", amount(ytd.OwnerDistributions)},
			{"Last Month Collected", amount(ytd.LastMonthCollected)},
			{"Run-Rate ARR", amount(ytd.RunRateARR)},
		},
	}
}

func FlowsTable(snap core.DashboardSnapshot) Table {
	t := Table{
		Title:  "Cash Flow",
		Header: []any{"Month", "Inflow", "Outflow", "Owner Distribution", "Net"},
		Rows:   make([][]any, 0, len(snap.Flows)),
	}
	for _, f := range snap.Flows {
		t.Rows = append(t.Rows, []any{
			f.Month,
			amount(f.Inflow),
			amount(f.Outflow),
			amount(f.OwnerDistribution),
			amount(f.Inflow.Sub(f.Outflow)),
		})
	}
	return t
}

func ClientsTable(snap core.DashboardSnapshot) Table {
	t := Table{
		Title:  "Active Clients",
		Header: []any{"Client", "Monthly Revenue"},
		Rows:   make([][]any, 0, len(snap.Clients)),
	}
	for _, c := range snap.Clients {
		t.Rows = append(t.Rows, []any{c.Name, amount(c.Amount)})
	}
	return t
}

// Tables returns every table of a snapshot in display order.
func Tables(snap core.DashboardSnapshot) []Table {
	return []Table{SummaryTable(snap), FlowsTable(snap), ClientsTable(snap)}
}
