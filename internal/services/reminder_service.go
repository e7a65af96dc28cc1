package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"findash/internal/core"
	"findash/internal/notify"
)

type (
	// InvoiceFetcher reads an invoice fresh from the invoicing provider.
	InvoiceFetcher interface {
		GetInvoice(ctx context.Context, id string) (core.Invoice, error)
	}

	OverdueFinder interface {
		AllOverdueInvoices(ctx context.Context) ([]core.Invoice, error)
	}

	// ReminderStore flags reminder sends on existing late-payment
	// notifications.
	ReminderStore interface {
		MarkEmailSent(ctx context.Context, invoiceID string, at time.Time) (bool, error)
	}
)

// ReminderService emails payment reminders for overdue invoices.
type ReminderService struct {
	invoices InvoiceFetcher
	overdue  OverdueFinder
	mailer   notify.Mailer
	store    ReminderStore
	now      func() time.Time
}

func NewReminderService(invoices InvoiceFetcher, overdue OverdueFinder, mailer notify.Mailer, store ReminderStore) *ReminderService {
	return &ReminderService{
		invoices: invoices,
		overdue:  overdue,
		mailer:   mailer,
		store:    store,
		now:      time.Now,
	}
}

// SendReminder fetches the invoice from the provider so the email carries
// the current amount and payment link, sends it to the customer and records
// the send. It returns core.ErrMissingEmail when the customer has no
// address on file.
func (s *ReminderService) SendReminder(ctx context.Context, invoiceID string) (core.Invoice, error) {
	inv, err := s.invoices.GetInvoice(ctx, invoiceID)
	if err != nil {
		return core.Invoice{}, fmt.Errorf("fetch invoice %s: %w", invoiceID, err)
	}
	if inv.CustomerEmail == "" {
		return inv, core.ErrMissingEmail
	}
	if err := s.mailer.SendReminder(ctx, inv.CustomerEmail, inv); err != nil {
		return inv, fmt.Errorf("send reminder for %s: %w", invoiceID, err)
	}

	// The email went out; failing to record it must not report a failed send.
	found, err := s.store.MarkEmailSent(ctx, invoiceID, s.now())
	switch {
	case err != nil:
		slog.ErrorContext(ctx, "Failed to record reminder email", "invoice_id", invoiceID, "error", err)
	case !found:
		// Not alerted yet; the late alert must still fire once it is overdue.
		slog.DebugContext(ctx, "No late notification to flag", "invoice_id", invoiceID)
	}
	slog.InfoContext(ctx, "Reminder sent", "invoice_id", invoiceID, "customer", inv.CustomerName)
	return inv, nil
}

// RemindAllOverdue sends a reminder for every overdue invoice. Invoices the
// provider no longer returns or that have no email are skipped; send
// failures are counted and do not stop the run.
func (s *ReminderService) RemindAllOverdue(ctx context.Context) (core.BulkReminderResult, error) {
	invs, err := s.overdue.AllOverdueInvoices(ctx)
	if err != nil {
		return core.BulkReminderResult{}, fmt.Errorf("remind all overdue: %w", err)
	}

	result := core.BulkReminderResult{Results: make([]core.ReminderResult, 0, len(invs))}
	for _, cached := range invs {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		r := core.ReminderResult{InvoiceID: cached.ID, CustomerName: cached.CustomerName}

		inv, err := s.SendReminder(ctx, cached.ID)
		switch {
		case err == nil:
			r.Status = core.ReminderSent
			r.CustomerName = inv.CustomerName
			result.Sent++
		case errors.Is(err, core.ErrMissingEmail), errors.Is(err, core.ErrNotFound):
			r.Status = core.ReminderSkipped
			r.Error = err.Error()
			result.Skipped++
		default:
			r.Status = core.ReminderFailed
			r.Error = err.Error()
			result.Failed++
			slog.ErrorContext(ctx, "Reminder failed", "invoice_id", cached.ID, "error", err)
		}
		result.Results = append(result.Results, r)
	}

	slog.InfoContext(ctx, "Bulk reminders finished",
		"sent", result.Sent,
		"failed", result.Failed,
		"skipped", result.Skipped)
	return result, nil
}
