package analytics

import (
	"context"
	"fmt"
	"sort"

	"findash/internal/classify"
	"findash/internal/core"
)

// UnknownVendor labels spend rows with no counterparty name.
const UnknownVendor = "Unknown"

// CategoryTotals holds one amount per spend category.
type CategoryTotals map[classify.Category]core.Money

// MonthlySpend is keyed by YYYY-MM.
type MonthlySpend map[string]CategoryTotals

// MonthlySpendDetail breaks each month and category down by vendor, largest
// first.
type MonthlySpendDetail map[string]map[classify.Category][]core.VendorAmount

type spendRow struct {
	month    string
	vendor   string
	category classify.Category
	amount   core.Money
}

func newCategoryTotals() CategoryTotals {
	out := make(CategoryTotals, len(classify.Categories()))
	for _, c := range classify.Categories() {
		out[c] = core.Money{}
	}
	return out
}

func newVendorBuckets() map[classify.Category][]core.VendorAmount {
	out := make(map[classify.Category][]core.VendorAmount, len(classify.Categories()))
	for _, c := range classify.Categories() {
		out[c] = []core.VendorAmount{}
	}
	return out
}

// Total sums every category.
func (c CategoryTotals) Total() core.Money {
	var total core.Money
	for _, amt := range c {
		total = total.Add(amt)
	}
	return total
}

// isSpend decides whether t is a qualifying outflow. It belongs to exactly
// one of three subsets: card purchases, labor payments, or checking-account
// operations matching the allow list.
func (e *Engine) isSpend(t core.BankTransaction) bool {
	if t.Status != core.TxSent || !t.Amount.IsNegative() || t.EffectiveDate().IsZero() {
		return false
	}
	name := t.CounterpartyName
	if e.matcher.IsInternal(name) || e.cardSettlement.Match(name) {
		return false
	}
	switch {
	case isCardKind(t.Kind):
		return true
	case t.Kind == core.KindOutgoingPayment:
		return true
	case t.Kind == core.KindOther:
		return e.checkingOps.Match(name)
	}
	return false
}

// spendRows classifies qualifying outflows and groups them by month, vendor
// and category. A zero start or end leaves that side of the range open.
func (e *Engine) spendRows(ctx context.Context, start, end core.Date) ([]spendRow, error) {
	txs, err := e.store.ListTransactions(ctx, start)
	if err != nil {
		return nil, fmt.Errorf("spend rows: %w", err)
	}

	type key struct {
		month    string
		vendor   string
		category classify.Category
	}
	grouped := map[key]core.Money{}
	for _, t := range txs {
		if !e.isSpend(t) {
			continue
		}
		d := t.EffectiveDate()
		if (!start.IsZero() && d.Before(start)) || (!end.IsZero() && d.After(end)) {
			continue
		}
		vendor := t.CounterpartyName
		if vendor == "" {
			vendor = UnknownVendor
		}
		k := key{month: t.Month(), vendor: vendor, category: classify.Classify(t.CounterpartyName, t.Kind)}
		grouped[k] = grouped[k].Add(t.Amount.Abs())
	}

	rows := make([]spendRow, 0, len(grouped))
	for k, amt := range grouped {
		rows = append(rows, spendRow{month: k.month, vendor: k.vendor, category: k.category, amount: amt})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].month != rows[j].month {
			return rows[i].month < rows[j].month
		}
		if rows[i].amount.Cents != rows[j].amount.Cents {
			return rows[i].amount.Cents > rows[j].amount.Cents
		}
		return rows[i].vendor < rows[j].vendor
	})
	return rows, nil
}

// spendMonths is the dense month range padded with zero totals. Data months
// before the chart start are still reported, outside the padded range.
func (e *Engine) spendMonths(rows []spendRow) []string {
	seen := map[string]bool{}
	for _, r := range rows {
		seen[r.month] = true
	}
	return e.monthSeries(seen)
}

// SpendByCategory totals qualifying outflows per month and category. Every
// month carries every category.
func (e *Engine) SpendByCategory(ctx context.Context) (MonthlySpend, error) {
	rows, err := e.spendRows(ctx, core.Date{}, core.Date{})
	if err != nil {
		return nil, err
	}

	out := MonthlySpend{}
	for _, m := range e.spendMonths(rows) {
		out[m] = newCategoryTotals()
	}
	for _, r := range rows {
		totals, ok := out[r.month]
		if !ok {
			totals = newCategoryTotals()
			out[r.month] = totals
		}
		totals[r.category] = totals[r.category].Add(r.amount)
	}
	return out, nil
}

// SpendDetail lists the vendors behind each month and category total.
func (e *Engine) SpendDetail(ctx context.Context) (MonthlySpendDetail, error) {
	rows, err := e.spendRows(ctx, core.Date{}, core.Date{})
	if err != nil {
		return nil, err
	}

	out := MonthlySpendDetail{}
	for _, m := range e.spendMonths(rows) {
		out[m] = newVendorBuckets()
	}
	for _, r := range rows {
		cats, ok := out[r.month]
		if !ok {
			cats = newVendorBuckets()
			out[r.month] = cats
		}
		cats[r.category] = append(cats[r.category], core.VendorAmount{Vendor: r.vendor, Amount: r.amount})
	}
	return out, nil
}

// SpendBetween totals qualifying outflows per category for [start, end].
func (e *Engine) SpendBetween(ctx context.Context, start, end core.Date) (CategoryTotals, error) {
	rows, err := e.spendRows(ctx, start, end)
	if err != nil {
		return nil, err
	}
	out := newCategoryTotals()
	for _, r := range rows {
		out[r.category] = out[r.category].Add(r.amount)
	}
	return out, nil
}

// TopCategories returns the n largest non-zero categories.
func (c CategoryTotals) TopCategories(n int) []core.CategoryAmount {
	out := make([]core.CategoryAmount, 0, len(c))
	for cat, amt := range c {
		if amt.IsZero() {
			continue
		}
		out = append(out, core.CategoryAmount{Name: cat.String(), Amount: amt})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Amount.Cents != out[j].Amount.Cents {
			return out[i].Amount.Cents > out[j].Amount.Cents
		}
		return out[i].Name < out[j].Name
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
