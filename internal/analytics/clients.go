package analytics

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"findash/internal/core"
)

// ActiveClientIDs returns customer ids considered active. Active
// subscriptions win when any exist; otherwise customers with a paid or
// open invoice created in the trailing window count.
func (e *Engine) ActiveClientIDs(ctx context.Context) ([]string, error) {
	subs, err := e.store.ListActiveSubscriptions(ctx)
	if err != nil {
		return nil, fmt.Errorf("active clients: %w", err)
	}

	ids := map[string]bool{}
	if len(subs) > 0 {
		for _, s := range subs {
			if s.CustomerID != "" {
				ids[s.CustomerID] = true
			}
		}
	} else {
		invs, err := e.store.ListInvoices(ctx)
		if err != nil {
			return nil, fmt.Errorf("active clients: %w", err)
		}
		cutoff := e.Today().AddDays(-ActiveWindowDays)
		for _, inv := range invs {
			if inv.Status != core.InvoicePaid && inv.Status != core.InvoiceOpen {
				continue
			}
			if inv.CustomerID == "" || core.DateOf(inv.CreatedAt).Before(cutoff) || inv.CreatedAt.IsZero() {
				continue
			}
			ids[inv.CustomerID] = true
		}
	}

	out := make([]string, 0, len(ids))
	for id := range ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

func daysBetween(from, to time.Time) decimal.Decimal {
	return decimal.NewFromInt(int64(to.Sub(from) / time.Second)).Div(decimal.NewFromInt(86400))
}

func paidWithTimestamps(inv core.Invoice) bool {
	return inv.IsPaid() && !inv.CreatedAt.IsZero()
}

// AvgDaysToPay returns, for active clients, the mean days from invoice
// creation to payment, slowest payers first.
func (e *Engine) AvgDaysToPay(ctx context.Context) ([]core.ClientDaysToPay, error) {
	active, err := e.ActiveClientIDs(ctx)
	if err != nil {
		return nil, err
	}
	if len(active) == 0 {
		return []core.ClientDaysToPay{}, nil
	}
	activeSet := make(map[string]bool, len(active))
	for _, id := range active {
		activeSet[id] = true
	}

	invs, err := e.store.ListInvoices(ctx)
	if err != nil {
		return nil, fmt.Errorf("days to pay: %w", err)
	}

	sums := map[string]decimal.Decimal{}
	counts := map[string]int{}
	for _, inv := range invs {
		if !paidWithTimestamps(inv) || inv.CustomerName == "" || !activeSet[inv.CustomerID] {
			continue
		}
		sums[inv.CustomerName] = sums[inv.CustomerName].Add(daysBetween(inv.CreatedAt, inv.PaidAt))
		counts[inv.CustomerName]++
	}

	out := make([]core.ClientDaysToPay, 0, len(sums))
	for name, sum := range sums {
		out = append(out, core.ClientDaysToPay{
			CustomerName: name,
			AvgDays:      sum.Div(decimal.NewFromInt(int64(counts[name]))).Round(1),
			InvoiceCount: counts[name],
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].AvgDays.Cmp(out[j].AvgDays); c != 0 {
			return c > 0
		}
		return out[i].CustomerName < out[j].CustomerName
	})
	return out, nil
}

// OverallAvgDaysToPay averages days-to-pay across every paid invoice.
func (e *Engine) OverallAvgDaysToPay(ctx context.Context) (decimal.Decimal, int, error) {
	invs, err := e.store.ListInvoices(ctx)
	if err != nil {
		return decimal.Zero, 0, fmt.Errorf("overall days to pay: %w", err)
	}
	sum := decimal.Zero
	n := 0
	for _, inv := range invs {
		if !paidWithTimestamps(inv) {
			continue
		}
		sum = sum.Add(daysBetween(inv.CreatedAt, inv.PaidAt))
		n++
	}
	if n == 0 {
		return decimal.Zero, 0, nil
	}
	return sum.Div(decimal.NewFromInt(int64(n))).Round(1), n, nil
}

// ActiveClientRevenue maps each current client to monthly revenue, merging
// active subscriptions with direct payers seen in bank inflows.
//
// A direct payer's monthly figure is its trailing-window inflow divided by
// the number of distinct months it paid in (at least one). One large
// payment therefore reads as a full month of revenue; this is a known
// approximation and is kept as is.
func (e *Engine) ActiveClientRevenue(ctx context.Context) ([]core.ClientAmount, error) {
	subs, err := e.store.ListActiveSubscriptions(ctx)
	if err != nil {
		return nil, fmt.Errorf("active client revenue: %w", err)
	}

	clients := map[string]core.Money{}
	subTotals := map[string]core.Money{}
	for _, s := range subs {
		if s.CustomerName == "" {
			continue
		}
		subTotals[s.CustomerName] = subTotals[s.CustomerName].Add(s.MonthlyAmount)
	}
	for name, amt := range subTotals {
		if amt.IsPositive() {
			clients[name] = amt
		}
	}

	payers, err := e.directPayers(ctx)
	if err != nil {
		return nil, err
	}
	for name, monthly := range payers {
		clients[name] = clients[name].Add(monthly)
	}

	return topN(clients, nil, 0), nil
}

// directPayers finds counterparties paying by wire or ACH outside the
// invoicing provider.
func (e *Engine) directPayers(ctx context.Context) (map[string]core.Money, error) {
	cutoff := e.Today().AddDays(-ActiveWindowDays)
	txs, err := e.store.ListTransactions(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("direct payers: %w", err)
	}

	totals := map[string]core.Money{}
	months := map[string]map[string]bool{}
	for _, t := range txs {
		name := t.CounterpartyName
		if !cashFlowEligible(t) || !t.Amount.IsPositive() || name == "" {
			continue
		}
		if t.EffectiveDate().Before(cutoff) || e.payerExclusions.Match(name) || e.matcher.IsInternal(name) {
			continue
		}
		totals[name] = totals[name].Add(t.Amount)
		if months[name] == nil {
			months[name] = map[string]bool{}
		}
		months[name][t.Month()] = true
	}

	out := map[string]core.Money{}
	for name, total := range totals {
		if total.Cents < DirectPayerMinimum.Cents {
			continue
		}
		out[name] = total.Div(int64(len(months[name])))
	}
	return out, nil
}

// MRR is the total monthly revenue across active clients.
func (e *Engine) MRR(ctx context.Context) (core.Money, error) {
	clients, err := e.ActiveClientRevenue(ctx)
	if err != nil {
		return core.Money{}, err
	}
	var total core.Money
	for _, c := range clients {
		total = total.Add(c.Amount)
	}
	return total, nil
}
