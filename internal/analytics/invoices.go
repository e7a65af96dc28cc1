package analytics

import (
	"context"
	"fmt"
	"sort"

	"findash/internal/core"
)

// LateInvoices returns open, past-due invoices that have not been notified
// yet. Once marked notified an invoice never appears here again.
func (e *Engine) LateInvoices(ctx context.Context) ([]core.Invoice, error) {
	invs, err := e.store.ListLateInvoices(ctx, e.Today())
	if err != nil {
		return nil, fmt.Errorf("late invoices: %w", err)
	}
	if invs == nil {
		invs = []core.Invoice{}
	}
	return invs, nil
}

// AllOverdueInvoices returns every open, past-due invoice regardless of
// notification history.
func (e *Engine) AllOverdueInvoices(ctx context.Context) ([]core.Invoice, error) {
	invs, err := e.store.ListOverdueInvoices(ctx, e.Today())
	if err != nil {
		return nil, fmt.Errorf("overdue invoices: %w", err)
	}
	if invs == nil {
		invs = []core.Invoice{}
	}
	return invs, nil
}

// RevenueByClient sums amount paid per customer, largest first.
func (e *Engine) RevenueByClient(ctx context.Context) ([]core.ClientAmount, error) {
	invs, err := e.store.ListInvoices(ctx)
	if err != nil {
		return nil, fmt.Errorf("revenue by client: %w", err)
	}
	totals := map[string]core.Money{}
	counts := map[string]int{}
	for _, inv := range invs {
		if !inv.AmountPaid.IsPositive() || inv.CustomerName == "" {
			continue
		}
		totals[inv.CustomerName] = totals[inv.CustomerName].Add(inv.AmountPaid)
		counts[inv.CustomerName]++
	}
	return topN(totals, counts, 0), nil
}

// OpenInvoicesByClient splits each customer's open balance into amounts not
// yet due (or with no due date) and amounts overdue.
func (e *Engine) OpenInvoicesByClient(ctx context.Context) ([]core.ClientOpenInvoices, error) {
	open, err := e.store.ListOpenInvoices(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("open invoices by client: %w", err)
	}
	today := e.Today()

	byClient := map[string]*core.ClientOpenInvoices{}
	for _, inv := range open {
		if inv.CustomerName == "" {
			continue
		}
		c, ok := byClient[inv.CustomerName]
		if !ok {
			c = &core.ClientOpenInvoices{CustomerName: inv.CustomerName}
			byClient[inv.CustomerName] = c
		}
		if !inv.DueDate.IsZero() && inv.DueDate.Before(today) {
			c.Overdue = c.Overdue.Add(inv.AmountDue)
		} else {
			c.Outstanding = c.Outstanding.Add(inv.AmountDue)
		}
	}

	out := make([]core.ClientOpenInvoices, 0, len(byClient))
	for _, c := range byClient {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		ti, tj := out[i].Total().Cents, out[j].Total().Cents
		if ti != tj {
			return ti > tj
		}
		return out[i].CustomerName < out[j].CustomerName
	})
	return out, nil
}

// OpenInvoicesForClient lists one customer's open invoices with whether a
// reminder email already went out.
func (e *Engine) OpenInvoicesForClient(ctx context.Context, customerName string) ([]core.OpenInvoice, error) {
	if customerName == "" {
		return []core.OpenInvoice{}, nil
	}
	open, err := e.store.ListOpenInvoices(ctx, customerName)
	if err != nil {
		return nil, fmt.Errorf("open invoices for %s: %w", customerName, err)
	}
	if open == nil {
		open = []core.OpenInvoice{}
	}
	return open, nil
}
