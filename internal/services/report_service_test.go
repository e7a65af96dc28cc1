package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"findash/internal/core"
	"findash/internal/notify"
)

type fakeExporter struct {
	got *core.DashboardSnapshot
}

func (f *fakeExporter) ExportDashboard(_ context.Context, snap core.DashboardSnapshot) error {
	f.got = &snap
	return nil
}

type fakeBankBalance struct {
	total core.Money
	err   error
}

func (f fakeBankBalance) TotalBalance(context.Context) (core.Money, error) { return f.total, f.err }

func TestPostWeeklySummary(t *testing.T) {
	engine := &fakeEngine{
		today:   core.NewDate(2025, 6, 9),
		summary: core.PeriodSummary{Inflows: core.Money{Cents: 100000}},
	}
	poster := &fakePoster{}
	svc := NewReportService(engine, poster, nil, nil, nil)

	require.NoError(t, svc.PostWeeklySummary(context.Background()))
	assert.Equal(t, core.NewDate(2025, 6, 2), engine.summaryStart)
	assert.Equal(t, core.NewDate(2025, 6, 9), engine.summaryEnd)
	require.Len(t, poster.posted, 1)
	assert.Equal(t, notify.KindWeeklySummary, poster.posted[0].Kind)
}

func TestPostMonthToDate(t *testing.T) {
	engine := &fakeEngine{report: core.PeriodReport{Start: core.NewDate(2025, 6, 1), End: core.NewDate(2025, 6, 9)}}
	poster := &fakePoster{}
	svc := NewReportService(engine, poster, nil, nil, nil)

	require.NoError(t, svc.PostMonthToDate(context.Background()))
	require.Len(t, poster.posted, 1)
	assert.Equal(t, notify.KindMonthToDate, poster.posted[0].Kind)

	svc = NewReportService(engine, &fakePoster{err: errors.New("boom")}, nil, nil, nil)
	assert.ErrorContains(t, svc.PostMonthToDate(context.Background()), "boom")
}

func TestPostOverdueReport(t *testing.T) {
	poster := &fakePoster{}
	svc := NewReportService(&fakeEngine{overdue: lateInvoices()}, poster, nil, nil, nil)
	require.NoError(t, svc.PostOverdueReport(context.Background()))
	assert.Equal(t, notify.KindOverdueReport, poster.posted[0].Kind)

	poster = &fakePoster{}
	svc = NewReportService(&fakeEngine{}, poster, nil, nil, nil)
	require.NoError(t, svc.PostOverdueReport(context.Background()))
	assert.Equal(t, notify.KindText, poster.posted[0].Kind)
	assert.Contains(t, poster.posted[0].Title, "No overdue invoices")
}

func TestExportDashboard(t *testing.T) {
	engine := &fakeEngine{snapshot: core.DashboardSnapshot{MRR: core.Money{Cents: 425000}}}

	svc := NewReportService(engine, &fakePoster{}, nil, nil, nil)
	assert.ErrorIs(t, svc.ExportDashboard(context.Background()), ErrExportDisabled)

	exp := &fakeExporter{}
	svc = NewReportService(engine, &fakePoster{}, exp, nil, nil)
	require.NoError(t, svc.ExportDashboard(context.Background()))
	require.NotNil(t, exp.got)
	assert.Equal(t, int64(425000), exp.got.MRR.Cents)
}

func TestBalances(t *testing.T) {
	invoicing := &fakeInvoicing{available: core.Money{Cents: 1250}, pending: core.Money{Cents: 75}}
	svc := NewReportService(&fakeEngine{}, &fakePoster{}, nil, fakeBankBalance{total: core.Money{Cents: 15025}}, invoicing)

	b, err := svc.Balances(context.Background())
	require.NoError(t, err)
	assert.Equal(t, core.Balances{
		Bank:               core.Money{Cents: 15025},
		InvoicingAvailable: core.Money{Cents: 1250},
		InvoicingPending:   core.Money{Cents: 75},
	}, b)

	svc = NewReportService(&fakeEngine{}, &fakePoster{}, nil, fakeBankBalance{err: errors.New("401")}, invoicing)
	b, err = svc.Balances(context.Background())
	assert.ErrorContains(t, err, "bank balance")
	assert.Equal(t, int64(1250), b.InvoicingAvailable.Cents)
}
