package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"findash/internal/core"
	"findash/internal/notify"
	"findash/internal/sheets"
)

// WeeklyWindowDays is how far back the weekly summary reaches from today.
const WeeklyWindowDays = 7

var ErrExportDisabled = errors.New("dashboard export is not configured")

type (
	Reporter interface {
		Today() core.Date
		PeriodSummary(ctx context.Context, start, end core.Date) (core.PeriodSummary, error)
		MonthToDate(ctx context.Context) (core.PeriodReport, error)
		AllOverdueInvoices(ctx context.Context) ([]core.Invoice, error)
		Snapshot(ctx context.Context) (core.DashboardSnapshot, error)
	}

	BankBalance interface {
		TotalBalance(ctx context.Context) (core.Money, error)
	}

	InvoicingBalance interface {
		Balance(ctx context.Context) (available, pending core.Money, err error)
	}
)

// ReportService builds the scheduled chat reports and the dashboard export.
type ReportService struct {
	engine    Reporter
	poster    notify.Poster
	exporter  sheets.DashboardExporter
	bank      BankBalance
	invoicing InvoicingBalance
}

// NewReportService wires the reports. exporter and the balance sources may
// be nil.
func NewReportService(engine Reporter, poster notify.Poster, exporter sheets.DashboardExporter, bank BankBalance, invoicing InvoicingBalance) *ReportService {
	return &ReportService{
		engine:    engine,
		poster:    poster,
		exporter:  exporter,
		bank:      bank,
		invoicing: invoicing,
	}
}

// PostWeeklySummary posts the summary for the trailing week ending today.
func (s *ReportService) PostWeeklySummary(ctx context.Context) error {
	end := s.engine.Today()
	start := end.AddDays(-WeeklyWindowDays)
	summary, err := s.engine.PeriodSummary(ctx, start, end)
	if err != nil {
		return fmt.Errorf("weekly summary: %w", err)
	}
	if err := s.poster.Post(ctx, notify.WeeklySummary(summary)); err != nil {
		return fmt.Errorf("post weekly summary: %w", err)
	}
	slog.InfoContext(ctx, "Weekly summary posted", "start", start, "end", end)
	return nil
}

func (s *ReportService) PostMonthToDate(ctx context.Context) error {
	report, err := s.engine.MonthToDate(ctx)
	if err != nil {
		return fmt.Errorf("month to date report: %w", err)
	}
	if err := s.poster.Post(ctx, notify.MonthToDate(report)); err != nil {
		return fmt.Errorf("post month to date report: %w", err)
	}
	slog.InfoContext(ctx, "Month to date report posted", "start", report.Start, "end", report.End)
	return nil
}

// PostOverdueReport posts every overdue invoice grouped by client. With
// nothing overdue it posts a short all-clear instead.
func (s *ReportService) PostOverdueReport(ctx context.Context) error {
	invs, err := s.engine.AllOverdueInvoices(ctx)
	if err != nil {
		return fmt.Errorf("overdue report: %w", err)
	}
	msg := notify.OverdueReport(invs)
	if len(invs) == 0 {
		msg = notify.Note(":white_check_mark: No overdue invoices found.")
	}
	if err := s.poster.Post(ctx, msg); err != nil {
		return fmt.Errorf("post overdue report: %w", err)
	}
	slog.InfoContext(ctx, "Overdue report posted", "invoices", len(invs))
	return nil
}

func (s *ReportService) ExportDashboard(ctx context.Context) error {
	if s.exporter == nil {
		return ErrExportDisabled
	}
	snap, err := s.engine.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("dashboard snapshot: %w", err)
	}
	if err := s.exporter.ExportDashboard(ctx, snap); err != nil {
		return fmt.Errorf("export dashboard: %w", err)
	}
	slog.InfoContext(ctx, "Dashboard exported", "months", len(snap.Flows), "clients", len(snap.Clients))
	return nil
}

// Balances reads live balances from both providers. A provider that is not
// configured contributes zero; a provider that fails is reported in the
// joined error alongside whatever the other returned.
func (s *ReportService) Balances(ctx context.Context) (core.Balances, error) {
	var b core.Balances
	var errs []error
	if s.bank != nil {
		total, err := s.bank.TotalBalance(ctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("bank balance: %w", err))
		}
		b.Bank = total
	}
	if s.invoicing != nil {
		available, pending, err := s.invoicing.Balance(ctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("invoicing balance: %w", err))
		}
		b.InvoicingAvailable, b.InvoicingPending = available, pending
	}
	return b, errors.Join(errs...)
}
