package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"findash/internal/classify"
	"findash/internal/config"
	"findash/internal/core"
)

type fakeStore struct {
	txs      []core.BankTransaction
	invs     []core.Invoice
	subs     []core.Subscription
	notified map[string]bool
}

func (f *fakeStore) ListTransactions(_ context.Context, since core.Date) ([]core.BankTransaction, error) {
	var out []core.BankTransaction
	for _, t := range f.txs {
		if !since.IsZero() && t.EffectiveDate().Before(since) {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (f *fakeStore) ListInvoices(context.Context) ([]core.Invoice, error) { return f.invs, nil }

func (f *fakeStore) overdue(today core.Date, skipNotified bool) []core.Invoice {
	var out []core.Invoice
	for _, inv := range f.invs {
		if inv.Status != core.InvoiceOpen || inv.DueDate.IsZero() || !inv.DueDate.Before(today) || !inv.AmountDue.IsPositive() {
			continue
		}
		if skipNotified && f.notified[inv.ID] {
			continue
		}
		out = append(out, inv)
	}
	return out
}

func (f *fakeStore) ListLateInvoices(_ context.Context, today core.Date) ([]core.Invoice, error) {
	return f.overdue(today, true), nil
}

func (f *fakeStore) ListOverdueInvoices(_ context.Context, today core.Date) ([]core.Invoice, error) {
	return f.overdue(today, false), nil
}

func (f *fakeStore) ListOpenInvoices(_ context.Context, name string) ([]core.OpenInvoice, error) {
	var out []core.OpenInvoice
	for _, inv := range f.invs {
		if inv.Status != core.InvoiceOpen || !inv.AmountDue.IsPositive() {
			continue
		}
		if name != "" && inv.CustomerName != name {
			continue
		}
		out = append(out, core.OpenInvoice{Invoice: inv})
	}
	return out, nil
}

func (f *fakeStore) ListActiveSubscriptions(context.Context) ([]core.Subscription, error) {
	var out []core.Subscription
	for _, s := range f.subs {
		if s.Status == core.SubscriptionActive {
			out = append(out, s)
		}
	}
	return out, nil
}

func usd(units int64) core.Money { return core.Money{Cents: units * 100} }

func day(y, m, d int) core.Date { return core.NewDate(y, m, d) }

func at(y, m, d, h int) time.Time { return time.Date(y, time.Month(m), d, h, 0, 0, 0, time.UTC) }

func tx(id, name, kind, status string, amount core.Money, posted core.Date) core.BankTransaction {
	return core.BankTransaction{ID: id, CounterpartyName: name, Kind: kind, Status: status, Amount: amount, PostedDate: posted}
}

var testRules = config.CounterpartyRules{
	InternalTransfers: []config.CounterpartyPattern{
		{Pattern: "Mercury Checking%", Match: config.MatchLike},
		{Pattern: "%Chase%", Match: config.MatchLike},
	},
	Owners: []config.CounterpartyPattern{
		{Pattern: "Alex Fine", Match: config.MatchExact},
	},
}

func newTestEngine(t *testing.T, store Store, now time.Time, chartStart time.Time) *Engine {
	t.Helper()
	e, err := NewEngine(store, Options{
		Rules:      testRules,
		ChartStart: chartStart,
		Now:        func() time.Time { return now },
	})
	require.NoError(t, err)
	return e
}

func TestMonthlyFlows(t *testing.T) {
	store := &fakeStore{txs: []core.BankTransaction{
		tx("1", "Acme Corp", core.KindOther, core.TxSent, usd(1000), day(2025, 4, 3)),
		tx("2", "Some Vendor", core.KindOutgoingPayment, core.TxSent, usd(-200), day(2025, 4, 8)),
		tx("3", "Mercury Checking ••1234", core.KindInternalTransfer, core.TxSent, usd(500), day(2025, 4, 9)),
		tx("4", "Alex Fine", core.KindOutgoingPayment, core.TxSent, usd(-300), day(2025, 4, 20)),
		tx("5", "Some Vendor", core.KindOutgoingPayment, core.TxCancelled, usd(-100), day(2025, 6, 1)),
		tx("6", "GITHUB", core.KindCreditCardTransaction, core.TxSent, usd(-50), day(2025, 6, 2)),
		{ID: "7", CounterpartyName: "Acme Corp", Kind: core.KindOther, Status: core.TxSent, Amount: usd(40), CreatedAt: at(2025, 6, 5, 12)},
	}}
	e := newTestEngine(t, store, at(2025, 6, 15, 10), at(2025, 4, 1, 0))

	flows, err := e.MonthlyFlows(context.Background())
	require.NoError(t, err)
	require.Len(t, flows, 3)

	assert.Equal(t, core.MonthlyFlow{Month: "2025-04", Inflow: usd(1000), Outflow: usd(200), OwnerDistribution: usd(300)}, flows[0])
	assert.Equal(t, core.MonthlyFlow{Month: "2025-05"}, flows[1])
	assert.Equal(t, core.MonthlyFlow{Month: "2025-06", Inflow: usd(40)}, flows[2])

	inflows, err := e.MonthlyInflows(context.Background())
	require.NoError(t, err)
	require.Len(t, inflows, 3)
	assert.Equal(t, usd(0), inflows[1].Amount)
}

func TestMonthlyFlowsEmpty(t *testing.T) {
	e := newTestEngine(t, &fakeStore{}, at(2025, 6, 15, 10), time.Time{})

	flows, err := e.MonthlyFlows(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, flows)
	assert.Empty(t, flows)
}

func TestActiveClientRevenue(t *testing.T) {
	store := &fakeStore{
		txs: []core.BankTransaction{
			tx("a", "Big Client", core.KindIncomingDomesticWire, core.TxSent, usd(1000), day(2025, 4, 10)),
			tx("b", "Big Client", core.KindIncomingDomesticWire, core.TxSent, usd(1000), day(2025, 5, 10)),
			tx("c", "Big Client", core.KindIncomingDomesticWire, core.TxSent, usd(1000), day(2025, 6, 10)),
			tx("d", "One Shot LLC", core.KindIncomingDomesticWire, core.TxSent, usd(3000), day(2025, 6, 12)),
			tx("e", "STRIPE", core.KindOther, core.TxSent, usd(5000), day(2025, 6, 12)),
			tx("f", "Tiny Payer", core.KindOther, core.TxSent, usd(500), day(2025, 6, 12)),
			tx("g", "Chase Savings", core.KindOther, core.TxSent, usd(9000), day(2025, 6, 12)),
			tx("h", "Old Client", core.KindOther, core.TxSent, usd(9000), day(2025, 1, 12)),
		},
		subs: []core.Subscription{
			{ID: "sub1", CustomerID: "cus_1", CustomerName: "Sub Co", Status: core.SubscriptionActive, MonthlyAmount: usd(250)},
			{ID: "sub2", CustomerID: "cus_2", CustomerName: "Gone Co", Status: "canceled", MonthlyAmount: usd(900)},
		},
	}
	e := newTestEngine(t, store, at(2025, 6, 30, 10), time.Time{})

	clients, err := e.ActiveClientRevenue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []core.ClientAmount{
		{Name: "One Shot LLC", Amount: usd(3000)},
		{Name: "Big Client", Amount: usd(1000)},
		{Name: "Sub Co", Amount: usd(250)},
	}, clients)

	mrr, err := e.MRR(context.Background())
	require.NoError(t, err)
	assert.Equal(t, usd(4250), mrr)
}

func TestActiveClientIDs(t *testing.T) {
	now := at(2025, 6, 30, 10)

	t.Run("subscriptions win", func(t *testing.T) {
		store := &fakeStore{
			subs: []core.Subscription{{ID: "s", CustomerID: "cus_b", Status: core.SubscriptionActive}},
			invs: []core.Invoice{{ID: "i", CustomerID: "cus_a", Status: core.InvoicePaid, CreatedAt: at(2025, 6, 1, 0)}},
		}
		ids, err := newTestEngine(t, store, now, time.Time{}).ActiveClientIDs(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{"cus_b"}, ids)
	})

	t.Run("recent invoices", func(t *testing.T) {
		store := &fakeStore{invs: []core.Invoice{
			{ID: "1", CustomerID: "cus_recent", Status: core.InvoicePaid, CreatedAt: at(2025, 6, 1, 0)},
			{ID: "2", CustomerID: "cus_open", Status: core.InvoiceOpen, CreatedAt: at(2025, 5, 1, 0)},
			{ID: "3", CustomerID: "cus_stale", Status: core.InvoicePaid, CreatedAt: at(2024, 12, 1, 0)},
			{ID: "4", CustomerID: "cus_draft", Status: core.InvoiceDraft, CreatedAt: at(2025, 6, 1, 0)},
		}}
		ids, err := newTestEngine(t, store, now, time.Time{}).ActiveClientIDs(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{"cus_open", "cus_recent"}, ids)
	})
}

func TestAvgDaysToPay(t *testing.T) {
	store := &fakeStore{
		subs: []core.Subscription{
			{ID: "s1", CustomerID: "c1", CustomerName: "Alpha", Status: core.SubscriptionActive},
			{ID: "s2", CustomerID: "c2", CustomerName: "Beta", Status: core.SubscriptionActive},
		},
		invs: []core.Invoice{
			{ID: "1", CustomerID: "c1", CustomerName: "Alpha", Status: core.InvoicePaid, CreatedAt: at(2025, 5, 1, 0), PaidAt: at(2025, 5, 11, 0)},
			{ID: "2", CustomerID: "c1", CustomerName: "Alpha", Status: core.InvoicePaid, CreatedAt: at(2025, 5, 1, 0), PaidAt: at(2025, 5, 21, 0)},
			{ID: "3", CustomerID: "c2", CustomerName: "Beta", Status: core.InvoicePaid, CreatedAt: at(2025, 5, 1, 0), PaidAt: at(2025, 5, 11, 12)},
			{ID: "4", CustomerID: "c3", CustomerName: "Gamma", Status: core.InvoicePaid, CreatedAt: at(2025, 5, 1, 0), PaidAt: at(2025, 8, 1, 0)},
			{ID: "5", CustomerID: "c2", CustomerName: "Beta", Status: core.InvoiceOpen, CreatedAt: at(2025, 5, 1, 0)},
		},
	}
	e := newTestEngine(t, store, at(2025, 6, 30, 10), time.Time{})

	got, err := e.AvgDaysToPay(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "Alpha", got[0].CustomerName)
	assert.True(t, decimal.NewFromInt(15).Equal(got[0].AvgDays), "got %s", got[0].AvgDays)
	assert.Equal(t, 2, got[0].InvoiceCount)
	assert.Equal(t, "Beta", got[1].CustomerName)
	assert.True(t, decimal.RequireFromString("10.5").Equal(got[1].AvgDays), "got %s", got[1].AvgDays)

	overall, n, err := e.OverallAvgDaysToPay(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	// (10 + 20 + 10.5 + 92) / 4
	assert.True(t, decimal.RequireFromString("33.1").Equal(overall), "got %s", overall)
}

func spendFixture() *fakeStore {
	june := day(2025, 6, 10)
	return &fakeStore{txs: []core.BankTransaction{
		tx("card", "GITHUB", core.KindCreditCardTransaction, core.TxSent, usd(-100), june),
		tx("card-fee", "GITHUB", core.KindCardInternationalFee, core.TxSent, usd(-3), june),
		tx("settle", "Mercury Checking ••1234", core.KindCreditCardTransaction, core.TxSent, usd(-1000), june),
		tx("labor", "Jane Contractor", core.KindOutgoingPayment, core.TxSent, usd(-500), june),
		tx("payroll", "ADP PAYROLL", core.KindOther, core.TxSent, usd(-2000), june),
		tx("tax", "IRS USATAXPYMT", core.KindOther, core.TxSent, usd(-300), june),
		tx("random", "Random LLC", core.KindOther, core.TxSent, usd(-50), june),
		tx("owner", "Alex Fine", core.KindOutgoingPayment, core.TxSent, usd(-700), june),
		tx("pending", "Pending Co", core.KindOutgoingPayment, core.TxPending, usd(-40), june),
		tx("inflow", "Acme Corp", core.KindOther, core.TxSent, usd(999), june),
		tx("early", "GITHUB", core.KindCreditCardTransaction, core.TxSent, usd(-10), day(2025, 5, 10)),
	}}
}

func TestSpendByCategory(t *testing.T) {
	e := newTestEngine(t, spendFixture(), at(2025, 6, 30, 10), at(2025, 6, 1, 0))

	spend, err := e.SpendByCategory(context.Background())
	require.NoError(t, err)
	require.Len(t, spend, 2)
	may, ok := spend["2025-05"]
	require.True(t, ok, "data months before the chart start are kept")
	assert.Len(t, may, len(classify.Categories()))
	assert.Equal(t, usd(10), may[classify.TechVendors])

	june := spend["2025-06"]
	assert.Len(t, june, len(classify.Categories()))
	assert.Equal(t, usd(103), june[classify.TechVendors])
	assert.Equal(t, usd(500), june[classify.Labor])
	assert.Equal(t, usd(2000), june[classify.Salaries])
	assert.Equal(t, usd(300), june[classify.Taxes])
	assert.Equal(t, usd(0), june[classify.Travel])

	// Every qualifying outflow lands in exactly one bucket.
	assert.Equal(t, usd(103+500+2000+300), june.Total())
}

func TestSpendDetail(t *testing.T) {
	e := newTestEngine(t, spendFixture(), at(2025, 6, 30, 10), at(2025, 6, 1, 0))

	detail, err := e.SpendDetail(context.Background())
	require.NoError(t, err)

	june := detail["2025-06"]
	assert.Equal(t, []core.VendorAmount{{Vendor: "GITHUB", Amount: usd(103)}}, june[classify.TechVendors])
	assert.Equal(t, []core.VendorAmount{{Vendor: "GITHUB", Amount: usd(10)}}, detail["2025-05"][classify.TechVendors])
	assert.NotNil(t, detail["2025-05"][classify.Travel])
	assert.Equal(t, []core.VendorAmount{{Vendor: "Jane Contractor", Amount: usd(500)}}, june[classify.Labor])
	assert.Empty(t, june[classify.Travel])
	assert.NotNil(t, june[classify.Travel])

	var detailTotal core.Money
	for _, vendors := range june {
		for _, v := range vendors {
			detailTotal = detailTotal.Add(v.Amount)
		}
	}
	spend, err := e.SpendByCategory(context.Background())
	require.NoError(t, err)
	assert.Equal(t, spend["2025-06"].Total(), detailTotal)
}

func TestLateAndOverdueInvoices(t *testing.T) {
	store := &fakeStore{
		invs: []core.Invoice{
			{ID: "late", Status: core.InvoiceOpen, AmountDue: usd(100), DueDate: day(2025, 6, 1)},
			{ID: "notified", Status: core.InvoiceOpen, AmountDue: usd(100), DueDate: day(2025, 6, 1)},
			{ID: "due-today", Status: core.InvoiceOpen, AmountDue: usd(100), DueDate: day(2025, 6, 15)},
			{ID: "paid", Status: core.InvoicePaid, AmountDue: usd(0), DueDate: day(2025, 6, 1)},
		},
		notified: map[string]bool{"notified": true},
	}
	e := newTestEngine(t, store, at(2025, 6, 15, 10), time.Time{})

	late, err := e.LateInvoices(context.Background())
	require.NoError(t, err)
	require.Len(t, late, 1)
	assert.Equal(t, "late", late[0].ID)

	overdue, err := e.AllOverdueInvoices(context.Background())
	require.NoError(t, err)
	assert.Len(t, overdue, 2)
}

func TestOpenInvoicesByClient(t *testing.T) {
	store := &fakeStore{invs: []core.Invoice{
		{ID: "1", CustomerName: "Alpha", Status: core.InvoiceOpen, AmountDue: usd(100), DueDate: day(2025, 6, 1)},
		{ID: "2", CustomerName: "Alpha", Status: core.InvoiceOpen, AmountDue: usd(50), DueDate: day(2025, 7, 1)},
		{ID: "3", CustomerName: "Beta", Status: core.InvoiceOpen, AmountDue: usd(400)},
		{ID: "4", CustomerName: "Beta", Status: core.InvoicePaid, AmountDue: usd(0)},
	}}
	e := newTestEngine(t, store, at(2025, 6, 15, 10), time.Time{})

	got, err := e.OpenInvoicesByClient(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []core.ClientOpenInvoices{
		{CustomerName: "Beta", Outstanding: usd(400)},
		{CustomerName: "Alpha", Outstanding: usd(50), Overdue: usd(100)},
	}, got)
}

func TestRevenueByClient(t *testing.T) {
	store := &fakeStore{invs: []core.Invoice{
		{ID: "1", CustomerName: "Alpha", AmountPaid: usd(100)},
		{ID: "2", CustomerName: "Alpha", AmountPaid: usd(200)},
		{ID: "3", CustomerName: "Beta", AmountPaid: usd(250)},
		{ID: "4", CustomerName: "Beta", AmountPaid: usd(0)},
	}}
	e := newTestEngine(t, store, at(2025, 6, 15, 10), time.Time{})

	got, err := e.RevenueByClient(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []core.ClientAmount{
		{Name: "Alpha", Amount: usd(300), Count: 2},
		{Name: "Beta", Amount: usd(250), Count: 1},
	}, got)
}

func TestPreviousPeriod(t *testing.T) {
	start, end := PreviousPeriod(day(2025, 6, 1), day(2025, 6, 30))
	assert.Equal(t, "2025-05-02", start.String())
	assert.Equal(t, "2025-05-31", end.String())

	start, end = PreviousPeriod(day(2025, 6, 9), day(2025, 6, 15))
	assert.Equal(t, "2025-06-02", start.String())
	assert.Equal(t, "2025-06-08", end.String())
}

func TestPeriodReport(t *testing.T) {
	store := &fakeStore{
		txs: []core.BankTransaction{
			tx("in", "Acme Corp", core.KindOther, core.TxSent, usd(1000), day(2025, 6, 5)),
			tx("out", "Jane Contractor", core.KindOutgoingPayment, core.TxSent, usd(-400), day(2025, 6, 6)),
			tx("prev", "Acme Corp", core.KindOther, core.TxSent, usd(500), day(2025, 5, 20)),
			tx("after", "Acme Corp", core.KindOther, core.TxSent, usd(700), day(2025, 6, 16)),
		},
		invs: []core.Invoice{
			{ID: "1", Number: "INV-1", CustomerName: "Alpha", Status: core.InvoicePaid, AmountDue: usd(1000), AmountPaid: usd(1000), CreatedAt: at(2025, 6, 2, 9), PaidAt: at(2025, 6, 10, 9)},
			{ID: "2", Number: "INV-2", CustomerName: "Beta", Status: core.InvoiceOpen, AmountDue: usd(300), CreatedAt: at(2025, 5, 1, 9), DueDate: day(2025, 5, 15)},
			{ID: "3", Number: "INV-3", CustomerName: "Gamma", Status: core.InvoicePaid, AmountDue: usd(2500), AmountPaid: usd(2500), CreatedAt: at(2025, 6, 3, 9), PaidAt: at(2025, 6, 15, 23)},
		},
	}
	e := newTestEngine(t, store, at(2025, 6, 15, 10), time.Time{})

	r, err := e.PeriodReport(context.Background(), day(2025, 6, 1), day(2025, 6, 15))
	require.NoError(t, err)

	assert.Equal(t, usd(1000), r.Inflows)
	assert.Equal(t, usd(400), r.Outflows)
	assert.Equal(t, usd(600), r.Net)
	assert.Equal(t, core.InvoiceTally{Count: 2, Amount: usd(3500)}, r.InvoicesSent)
	assert.Equal(t, core.InvoiceTally{Count: 2, Amount: usd(3500)}, r.InvoicesPaid)
	assert.Equal(t, core.InvoiceTally{Count: 1, Amount: usd(300)}, r.Overdue)
	require.NotNil(t, r.LargestPayment)
	assert.Equal(t, "INV-3", r.LargestPayment.InvoiceNumber)
	assert.Equal(t, []core.ClientAmount{{Name: "Gamma", Amount: usd(2500)}, {Name: "Alpha", Amount: usd(1000)}}, r.TopCustomers)
	assert.Equal(t, []core.CategoryAmount{{Name: "Labor", Amount: usd(400)}}, r.TopCategories)
	assert.Equal(t, "2025-05-17", r.Previous.Start.String())
	assert.Equal(t, usd(500), r.Previous.Inflows)

	pct, ok := core.PercentChange(r.Inflows, r.Previous.Inflows)
	assert.True(t, ok)
	assert.True(t, decimal.NewFromInt(100).Equal(pct), "got %s", pct)

	_, err = e.PeriodReport(context.Background(), day(2025, 6, 15), day(2025, 6, 1))
	assert.Error(t, err)
}

func TestPeriodSummary(t *testing.T) {
	store := &fakeStore{
		txs: []core.BankTransaction{
			tx("in", "Acme Corp", core.KindOther, core.TxSent, usd(800), day(2025, 6, 10)),
			tx("out", "Jane Contractor", core.KindOutgoingPayment, core.TxSent, usd(-100), day(2025, 6, 11)),
		},
		invs: []core.Invoice{
			{ID: "1", CustomerName: "Alpha", Status: core.InvoicePaid, AmountPaid: usd(600), CreatedAt: at(2025, 6, 9, 9)},
			{ID: "2", CustomerName: "Beta", Status: core.InvoiceOpen, AmountDue: usd(300), DueDate: day(2025, 6, 1), CreatedAt: at(2025, 5, 1, 9)},
		},
	}
	e := newTestEngine(t, store, at(2025, 6, 15, 10), time.Time{})

	s, err := e.PeriodSummary(context.Background(), day(2025, 6, 8), day(2025, 6, 14))
	require.NoError(t, err)
	assert.Equal(t, usd(800), s.Inflows)
	assert.Equal(t, usd(100), s.Outflows)
	assert.Equal(t, usd(700), s.Net)
	assert.Equal(t, 1, s.LateCount)
	assert.Equal(t, []core.ClientAmount{{Name: "Alpha", Amount: usd(600)}}, s.TopCustomers)
}

func TestYTD(t *testing.T) {
	store := &fakeStore{txs: []core.BankTransaction{
		tx("last-year", "Acme Corp", core.KindOther, core.TxSent, usd(100), day(2024, 12, 20)),
		tx("jan-owner", "Alex Fine", core.KindOutgoingPayment, core.TxSent, usd(-200), day(2025, 1, 5)),
		tx("jan-out", "Some Vendor", core.KindOutgoingPayment, core.TxSent, usd(-300), day(2025, 1, 6)),
		tx("feb-in", "Acme Corp", core.KindIncomingDomesticWire, core.TxSent, usd(1000), day(2025, 2, 10)),
		tx("mar-in", "Acme Corp", core.KindIncomingDomesticWire, core.TxSent, usd(50), day(2025, 3, 1)),
		tx("failed", "Acme Corp", core.KindIncomingDomesticWire, core.TxFailed, usd(5000), day(2025, 2, 11)),
	}}
	e := newTestEngine(t, store, at(2025, 3, 15, 10), time.Time{})

	ytd, err := e.YTD(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2025-01-01", ytd.Since.String())
	assert.Equal(t, usd(200), ytd.OwnerDistributions)
	assert.Equal(t, usd(300), ytd.Outflows)
	assert.Equal(t, usd(1050), ytd.Collected)
	assert.Equal(t, usd(1000), ytd.LastMonthCollected)
	assert.Equal(t, usd(12000), ytd.RunRateARR)
}

func TestNewEngineRejectsBadRules(t *testing.T) {
	_, err := NewEngine(&fakeStore{}, Options{Rules: config.CounterpartyRules{
		Owners: []config.CounterpartyPattern{{Pattern: "x", Match: "regex"}},
	}})
	assert.Error(t, err)
}
