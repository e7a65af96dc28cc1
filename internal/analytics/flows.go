package analytics

import (
	"context"
	"fmt"

	"findash/internal/core"
)

// MonthlyFlows returns inflow, outflow and owner distribution per month.
// Internal transfers are excluded from inflow and outflow; owner transfers
// are reported only in their own bucket.
func (e *Engine) MonthlyFlows(ctx context.Context) ([]core.MonthlyFlow, error) {
	txs, err := e.store.ListTransactions(ctx, core.Date{})
	if err != nil {
		return nil, fmt.Errorf("monthly flows: %w", err)
	}

	byMonth := map[string]*core.MonthlyFlow{}
	seen := map[string]bool{}
	for _, t := range txs {
		if !cashFlowEligible(t) {
			continue
		}
		m := t.Month()
		seen[m] = true
		f, ok := byMonth[m]
		if !ok {
			f = &core.MonthlyFlow{Month: m}
			byMonth[m] = f
		}
		f.Inflow = f.Inflow.Add(e.inflow(t))
		f.Outflow = f.Outflow.Add(e.outflow(t))
		f.OwnerDistribution = f.OwnerDistribution.Add(e.ownerDistribution(t))
	}

	months := e.monthSeries(seen)
	out := make([]core.MonthlyFlow, 0, len(months))
	for _, m := range months {
		if f, ok := byMonth[m]; ok {
			out = append(out, *f)
			continue
		}
		out = append(out, core.MonthlyFlow{Month: m})
	}
	return out, nil
}

// MonthlyInflows is the external inflow trend, one point per month.
func (e *Engine) MonthlyInflows(ctx context.Context) ([]core.MonthAmount, error) {
	flows, err := e.MonthlyFlows(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]core.MonthAmount, 0, len(flows))
	for _, f := range flows {
		out = append(out, core.MonthAmount{Month: f.Month, Amount: f.Inflow})
	}
	return out, nil
}
