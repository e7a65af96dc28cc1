// Package analytics derives the dashboard and report figures from the local
// cache.
//
// Every aggregation that touches bank transactions goes through the same
// eligibility predicates defined here, so totals agree across the cash-flow
// series, period reports and spend breakdowns. Aggregations never fail for
// lack of data; they return empty, non-nil results.
package analytics

import (
	"context"
	"fmt"
	"sort"
	"time"

	"findash/internal/config"
	"findash/internal/core"
)

// Store is the read side of the cache the engine needs.
type Store interface {
	ListTransactions(ctx context.Context, since core.Date) ([]core.BankTransaction, error)
	ListInvoices(ctx context.Context) ([]core.Invoice, error)
	ListLateInvoices(ctx context.Context, today core.Date) ([]core.Invoice, error)
	ListOverdueInvoices(ctx context.Context, today core.Date) ([]core.Invoice, error)
	ListOpenInvoices(ctx context.Context, customerName string) ([]core.OpenInvoice, error)
	ListActiveSubscriptions(ctx context.Context) ([]core.Subscription, error)
}

type Options struct {
	Rules config.CounterpartyRules

	// YearStart floors the year-to-date figures. Zero means January 1st of
	// the current year.
	YearStart time.Time

	// ChartStart is the first month of dense monthly series. Zero starts at
	// the earliest month with data.
	ChartStart time.Time

	// Now is the clock; nil uses time.Now.
	Now func() time.Time
}

// ActiveWindowDays bounds the "recent activity" lookbacks.
const ActiveWindowDays = 90

// DirectPayerMinimum is the trailing-window inflow a counterparty needs to
// count as a direct-paying client.
var DirectPayerMinimum = core.Money{Cents: 100000}

type Engine struct {
	store           Store
	matcher         *Matcher
	checkingOps     *PatternSet
	payerExclusions *PatternSet
	cardSettlement  *PatternSet
	yearStart       time.Time
	chartStart      time.Time
	now             func() time.Time
}

func NewEngine(store Store, opts Options) (*Engine, error) {
	matcher, err := NewMatcher(opts.Rules)
	if err != nil {
		return nil, fmt.Errorf("counterparty rules: %w", err)
	}

	checkingOps := defaultCheckingOps
	if len(opts.Rules.CheckingOps) > 0 {
		checkingOps = opts.Rules.CheckingOps
	}
	ops, err := CompilePatterns(checkingOps)
	if err != nil {
		return nil, fmt.Errorf("checking ops: %w", err)
	}

	exclusions := defaultDirectPayerExclusions
	if len(opts.Rules.DirectPayerExclusions) > 0 {
		exclusions = opts.Rules.DirectPayerExclusions
	}
	payers, err := CompilePatterns(exclusions)
	if err != nil {
		return nil, fmt.Errorf("direct payer exclusions: %w", err)
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Engine{
		store:           store,
		matcher:         matcher,
		checkingOps:     ops,
		payerExclusions: payers,
		cardSettlement:  mustCompile(cardSettlement),
		yearStart:       opts.YearStart,
		chartStart:      opts.ChartStart,
		now:             now,
	}, nil
}

func (e *Engine) Matcher() *Matcher { return e.matcher }

// Today is the current UTC calendar day.
func (e *Engine) Today() core.Date {
	return core.DateOf(e.now())
}

func (e *Engine) yearStartDate() core.Date {
	if !e.yearStart.IsZero() {
		return core.DateOf(e.yearStart)
	}
	return core.NewDate(e.now().UTC().Year(), 1, 1)
}

func isCardKind(kind string) bool {
	return kind == core.KindCreditCardTransaction || kind == core.KindCardInternationalFee
}

func isVoided(status string) bool {
	return status == core.TxCancelled || status == core.TxFailed
}

// cashFlowEligible keeps checking-account movements that actually happened.
// Card kinds are dropped because the lump card settlement already shows up
// as a checking outflow.
func cashFlowEligible(t core.BankTransaction) bool {
	return !t.EffectiveDate().IsZero() && !isVoided(t.Status) && !isCardKind(t.Kind)
}

// inflow returns the amount t contributes to external inflows.
func (e *Engine) inflow(t core.BankTransaction) core.Money {
	if t.Amount.IsPositive() && !e.matcher.IsInternal(t.CounterpartyName) {
		return t.Amount
	}
	return core.Money{}
}

// outflow returns the absolute amount t contributes to external outflows.
func (e *Engine) outflow(t core.BankTransaction) core.Money {
	if t.Amount.IsNegative() && !e.matcher.IsInternal(t.CounterpartyName) {
		return t.Amount.Abs()
	}
	return core.Money{}
}

func (e *Engine) ownerDistribution(t core.BankTransaction) core.Money {
	if t.Amount.IsNegative() && e.matcher.IsOwner(t.CounterpartyName) {
		return t.Amount.Abs()
	}
	return core.Money{}
}

// flowsBetween sums external inflows and outflows for eligible
// transactions effective within [start, end].
func (e *Engine) flowsBetween(txs []core.BankTransaction, start, end core.Date) (in, out core.Money) {
	for _, t := range txs {
		if !cashFlowEligible(t) || !t.EffectiveDate().Within(start, end) {
			continue
		}
		in = in.Add(e.inflow(t))
		out = out.Add(e.outflow(t))
	}
	return in, out
}

// monthSeries lists YYYY-MM keys from the chart start (or the earliest data
// month) through the later of the current month and the last data month.
func (e *Engine) monthSeries(dataMonths map[string]bool) []string {
	var first, last string
	for m := range dataMonths {
		if first == "" || m < first {
			first = m
		}
		if m > last {
			last = m
		}
	}
	if !e.chartStart.IsZero() {
		first = e.chartStart.UTC().Format("2006-01")
	}
	if current := e.now().UTC().Format("2006-01"); current > last {
		last = current
	}
	if first == "" || first > last {
		return []string{}
	}

	start, _ := time.Parse("2006-01", first)
	end, _ := time.Parse("2006-01", last)
	months := []string{}
	for m := start; !m.After(end); m = m.AddDate(0, 1, 0) {
		months = append(months, m.Format("2006-01"))
	}
	return months
}

// topN sorts totals descending (ties by name) and keeps the first n.
func topN(totals map[string]core.Money, counts map[string]int, n int) []core.ClientAmount {
	out := make([]core.ClientAmount, 0, len(totals))
	for name, amt := range totals {
		out = append(out, core.ClientAmount{Name: name, Amount: amt, Count: counts[name]})
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
