package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"findash/internal/core"
	"findash/internal/notify"
)

type LateInvoiceFinder interface {
	LateInvoices(ctx context.Context) ([]core.Invoice, error)
	Today() core.Date
}

type NotificationMarker interface {
	MarkNotified(ctx context.Context, invoiceID string, at time.Time) error
}

// AlertService posts one chat alert per newly late invoice.
type AlertService struct {
	finder LateInvoiceFinder
	marker NotificationMarker
	poster notify.Poster
	now    func() time.Time
}

func NewAlertService(finder LateInvoiceFinder, marker NotificationMarker, poster notify.Poster) *AlertService {
	return &AlertService{
		finder: finder,
		marker: marker,
		poster: poster,
		now:    time.Now,
	}
}

// CheckLatePayments alerts on every late invoice not yet notified and
// marks each one notified after the attempt, whether or not the post went
// through. It returns how many alerts were delivered.
func (s *AlertService) CheckLatePayments(ctx context.Context) (int, error) {
	late, err := s.finder.LateInvoices(ctx)
	if err != nil {
		return 0, fmt.Errorf("check late payments: %w", err)
	}
	if len(late) == 0 {
		slog.InfoContext(ctx, "No new late payments found")
		return 0, nil
	}

	slog.InfoContext(ctx, "Found new late invoices", "count", len(late))
	today := s.finder.Today()
	delivered := 0
	for _, inv := range late {
		if err := s.poster.Post(ctx, notify.LatePaymentAlert(inv, today)); err != nil {
			slog.ErrorContext(ctx, "Failed to post late payment alert", "invoice_id", inv.ID, "error", err)
		} else {
			delivered++
		}
		if err := s.marker.MarkNotified(ctx, inv.ID, s.now()); err != nil {
			slog.ErrorContext(ctx, "Failed to mark invoice notified", "invoice_id", inv.ID, "error", err)
		}
	}
	return delivered, nil
}
