package analytics

import (
	"context"
	"fmt"
	"time"

	"findash/internal/core"
)

// TopCount caps the customer and category rankings in period reports.
const TopCount = 5

func (e *Engine) checkRange(start, end core.Date) error {
	if start.IsZero() || end.IsZero() {
		return fmt.Errorf("period bounds are required")
	}
	if end.Before(start) {
		return fmt.Errorf("period end %s is before start %s", end, start)
	}
	return nil
}

func stampWithin(t time.Time, start, end core.Date) bool {
	return !t.IsZero() && core.DateOf(t).Within(start, end)
}

// PeriodSummary backs the weekly summary for the inclusive range
// [start, end]. Top customers rank invoices created in the range by amount
// paid; the late count is open invoices already due at end.
func (e *Engine) PeriodSummary(ctx context.Context, start, end core.Date) (core.PeriodSummary, error) {
	if err := e.checkRange(start, end); err != nil {
		return core.PeriodSummary{}, err
	}
	txs, err := e.store.ListTransactions(ctx, start)
	if err != nil {
		return core.PeriodSummary{}, fmt.Errorf("period summary: %w", err)
	}
	in, out := e.flowsBetween(txs, start, end)

	late, err := e.store.ListOverdueInvoices(ctx, end)
	if err != nil {
		return core.PeriodSummary{}, fmt.Errorf("period summary: %w", err)
	}

	invs, err := e.store.ListInvoices(ctx)
	if err != nil {
		return core.PeriodSummary{}, fmt.Errorf("period summary: %w", err)
	}
	paid := map[string]core.Money{}
	for _, inv := range invs {
		if inv.CustomerName == "" || !inv.AmountPaid.IsPositive() || !stampWithin(inv.CreatedAt, start, end) {
			continue
		}
		paid[inv.CustomerName] = paid[inv.CustomerName].Add(inv.AmountPaid)
	}

	return core.PeriodSummary{
		Start:        start,
		End:          end,
		Inflows:      in,
		Outflows:     out,
		Net:          in.Sub(out),
		LateCount:    len(late),
		TopCustomers: topN(paid, nil, TopCount),
	}, nil
}

// PreviousPeriod returns the range of equal length ending the day before
// start.
func PreviousPeriod(start, end core.Date) (core.Date, core.Date) {
	days := int(end.Sub(start.Time).Hours()/24) + 1
	prevEnd := start.AddDays(-1)
	return prevEnd.AddDays(-(days - 1)), prevEnd
}

// PeriodReport builds the month-to-date composite for [start, end].
func (e *Engine) PeriodReport(ctx context.Context, start, end core.Date) (core.PeriodReport, error) {
	if err := e.checkRange(start, end); err != nil {
		return core.PeriodReport{}, err
	}
	prevStart, prevEnd := PreviousPeriod(start, end)

	txs, err := e.store.ListTransactions(ctx, prevStart)
	if err != nil {
		return core.PeriodReport{}, fmt.Errorf("period report: %w", err)
	}
	in, out := e.flowsBetween(txs, start, end)
	prevIn, prevOut := e.flowsBetween(txs, prevStart, prevEnd)

	invs, err := e.store.ListInvoices(ctx)
	if err != nil {
		return core.PeriodReport{}, fmt.Errorf("period report: %w", err)
	}

	report := core.PeriodReport{
		Start:    start,
		End:      end,
		Inflows:  in,
		Outflows: out,
		Net:      in.Sub(out),
		Previous: core.PeriodMetrics{Start: prevStart, End: prevEnd, Inflows: prevIn, Outflows: prevOut},
	}

	paid := map[string]core.Money{}
	for _, inv := range invs {
		if inv.AmountDue.IsPositive() && stampWithin(inv.CreatedAt, start, end) {
			report.InvoicesSent.Count++
			report.InvoicesSent.Amount = report.InvoicesSent.Amount.Add(inv.AmountDue)
		}
		if !inv.AmountPaid.IsPositive() || !stampWithin(inv.PaidAt, start, end) {
			continue
		}
		report.InvoicesPaid.Count++
		report.InvoicesPaid.Amount = report.InvoicesPaid.Amount.Add(inv.AmountPaid)
		if inv.CustomerName != "" {
			paid[inv.CustomerName] = paid[inv.CustomerName].Add(inv.AmountPaid)
		}
		if report.LargestPayment == nil || inv.AmountPaid.Cents > report.LargestPayment.Amount.Cents {
			report.LargestPayment = &core.Payment{
				CustomerName:  inv.CustomerName,
				InvoiceNumber: inv.Number,
				Amount:        inv.AmountPaid,
				PaidAt:        inv.PaidAt,
			}
		}
	}
	report.TopCustomers = topN(paid, nil, TopCount)

	overdue, err := e.store.ListOverdueInvoices(ctx, end)
	if err != nil {
		return core.PeriodReport{}, fmt.Errorf("period report: %w", err)
	}
	for _, inv := range overdue {
		report.Overdue.Count++
		report.Overdue.Amount = report.Overdue.Amount.Add(inv.AmountDue)
	}

	spend, err := e.SpendBetween(ctx, start, end)
	if err != nil {
		return core.PeriodReport{}, fmt.Errorf("period report: %w", err)
	}
	report.TopCategories = spend.TopCategories(TopCount)

	return report, nil
}

// MonthToDate is PeriodReport from the first of the current month through
// today.
func (e *Engine) MonthToDate(ctx context.Context) (core.PeriodReport, error) {
	today := e.Today()
	return e.PeriodReport(ctx, core.NewDate(today.Year(), int(today.Month()), 1), today)
}

// YTD returns the year-to-date figures floored at the configured year start,
// plus last calendar month's collections and the run rate they imply.
func (e *Engine) YTD(ctx context.Context) (core.YTDFigures, error) {
	since := e.yearStartDate()
	today := e.Today()
	thisMonth := core.NewDate(today.Year(), int(today.Month()), 1)
	lastMonth := core.DateOf(thisMonth.AddDate(0, -1, 0))

	from := since
	if lastMonth.Before(from) {
		from = lastMonth
	}
	txs, err := e.store.ListTransactions(ctx, from)
	if err != nil {
		return core.YTDFigures{}, fmt.Errorf("year to date: %w", err)
	}

	fig := core.YTDFigures{Since: since}
	for _, t := range txs {
		d := t.EffectiveDate()
		if d.IsZero() || isVoided(t.Status) {
			continue
		}
		if !d.Before(since) {
			fig.OwnerDistributions = fig.OwnerDistributions.Add(e.ownerDistribution(t))
		}
		if !cashFlowEligible(t) {
			continue
		}
		if !d.Before(since) {
			fig.Collected = fig.Collected.Add(e.inflow(t))
			fig.Outflows = fig.Outflows.Add(e.outflow(t))
		}
		if !d.Before(lastMonth) && d.Before(thisMonth) {
			fig.LastMonthCollected = fig.LastMonthCollected.Add(e.inflow(t))
		}
	}
	fig.RunRateARR = fig.LastMonthCollected.Mul(12)
	return fig, nil
}

// Snapshot gathers the figures pushed to the dashboard export.
func (e *Engine) Snapshot(ctx context.Context) (core.DashboardSnapshot, error) {
	flows, err := e.MonthlyFlows(ctx)
	if err != nil {
		return core.DashboardSnapshot{}, err
	}
	clients, err := e.ActiveClientRevenue(ctx)
	if err != nil {
		return core.DashboardSnapshot{}, err
	}
	ytd, err := e.YTD(ctx)
	if err != nil {
		return core.DashboardSnapshot{}, err
	}
	var mrr core.Money
	for _, c := range clients {
		mrr = mrr.Add(c.Amount)
	}
	return core.DashboardSnapshot{
		GeneratedAt: e.now().UTC(),
		Flows:       flows,
		Clients:     clients,
		MRR:         mrr,
		YTD:         ytd,
	}, nil
}
