// Package services holds the application operations that sit between the
// providers, the local cache and the delivery ports: syncing, alerting,
// reports and reminders.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"findash/internal/core"
)

// DefaultFetchConcurrency bounds concurrent per-account bank fetches.
const DefaultFetchConcurrency = 4

type (
	// BankSource lists bank accounts and their transactions.
	BankSource interface {
		AccountIDs(ctx context.Context) ([]string, error)
		ListTransactions(ctx context.Context, accountID string) ([]core.BankTransaction, error)
	}

	// InvoicingSource streams invoices and active subscriptions page by
	// page. Records handed to fn before an error are kept.
	InvoicingSource interface {
		ListInvoices(ctx context.Context, fn func(core.Invoice) error) error
		ListActiveSubscriptions(ctx context.Context, fn func(core.Subscription) error) error
	}

	SyncStore interface {
		UpsertTransaction(ctx context.Context, t core.BankTransaction) error
		UpsertInvoice(ctx context.Context, inv core.Invoice) error
		UpsertSubscription(ctx context.Context, s core.Subscription) error
		LogSync(ctx context.Context, e core.SyncLogEntry) error
	}
)

// SyncService pulls provider data into the local cache. Sub-syncs are
// independent: a failure in one never stops the others, and records
// upserted before a failure stay in place.
type SyncService struct {
	bank        BankSource
	invoicing   InvoicingSource
	store       SyncStore
	concurrency int
	onSynced    func(context.Context)
	now         func() time.Time
}

// NewSyncService wires the sources to the store. Either source may be nil
// when its provider is not configured; that sub-sync is then skipped.
func NewSyncService(bank BankSource, invoicing InvoicingSource, store SyncStore) *SyncService {
	return &SyncService{
		bank:        bank,
		invoicing:   invoicing,
		store:       store,
		concurrency: DefaultFetchConcurrency,
		now:         time.Now,
	}
}

// OnSynced registers a hook run after every SyncAll, typically to drop
// cached read responses.
func (s *SyncService) OnSynced(fn func(context.Context)) {
	s.onSynced = fn
}

// SyncAll runs every sub-sync under one run id and joins their errors.
func (s *SyncService) SyncAll(ctx context.Context) (core.SyncCounts, error) {
	runID := uuid.NewString()
	start := s.now()
	slog.InfoContext(ctx, "Sync run started", "run_id", runID)

	var counts core.SyncCounts
	var errs []error

	n, err := s.syncTransactions(ctx, runID)
	counts.Transactions = n
	errs = append(errs, err)

	n, err = s.syncInvoices(ctx, runID)
	counts.Invoices = n
	errs = append(errs, err)

	n, err = s.syncSubscriptions(ctx, runID)
	counts.Subscriptions = n
	errs = append(errs, err)

	if s.onSynced != nil {
		s.onSynced(ctx)
	}

	err = errors.Join(errs...)
	slog.InfoContext(ctx, "Sync run finished",
		"run_id", runID,
		"transactions", counts.Transactions,
		"invoices", counts.Invoices,
		"subscriptions", counts.Subscriptions,
		"duration_ms", s.now().Sub(start).Milliseconds(),
		"success", err == nil)
	return counts, err
}

func (s *SyncService) SyncTransactions(ctx context.Context) (int, error) {
	return s.syncTransactions(ctx, uuid.NewString())
}

func (s *SyncService) SyncInvoices(ctx context.Context) (int, error) {
	return s.syncInvoices(ctx, uuid.NewString())
}

func (s *SyncService) SyncSubscriptions(ctx context.Context) (int, error) {
	return s.syncSubscriptions(ctx, uuid.NewString())
}

func (s *SyncService) syncTransactions(ctx context.Context, runID string) (int, error) {
	if s.bank == nil {
		slog.WarnContext(ctx, "Bank provider not configured, skipping", "source", core.SourceMercury)
		return 0, nil
	}
	slog.InfoContext(ctx, "Syncing bank transactions", "run_id", runID)

	accounts, err := s.bank.AccountIDs(ctx)
	if err != nil {
		err = fmt.Errorf("list bank accounts: %w", err)
		s.logSync(ctx, runID, core.SourceMercury, 0, err)
		return 0, err
	}

	// Fetch concurrently, upsert sequentially in account order.
	pages := make([][]core.BankTransaction, len(accounts))
	fetchErrs := make([]error, len(accounts))
	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, id := range accounts {
		g.Go(func() error {
			txs, err := s.bank.ListTransactions(ctx, id)
			pages[i] = txs
			if err != nil {
				fetchErrs[i] = fmt.Errorf("account %s: %w", id, err)
			}
			return nil
		})
	}
	_ = g.Wait()

	count := 0
	for _, txs := range pages {
		for _, t := range txs {
			if err := s.store.UpsertTransaction(ctx, t); err != nil {
				slog.WarnContext(ctx, "Skipping bank transaction", "id", t.ID, "error", err)
				continue
			}
			count++
		}
	}

	err = errors.Join(fetchErrs...)
	if err != nil {
		err = fmt.Errorf("sync bank transactions: %w", err)
	}
	s.logSync(ctx, runID, core.SourceMercury, count, err)
	return count, err
}

func (s *SyncService) syncInvoices(ctx context.Context, runID string) (int, error) {
	if s.invoicing == nil {
		slog.WarnContext(ctx, "Invoicing provider not configured, skipping", "source", core.SourceStripe)
		return 0, nil
	}
	slog.InfoContext(ctx, "Syncing invoices", "run_id", runID)

	count := 0
	err := s.invoicing.ListInvoices(ctx, func(inv core.Invoice) error {
		if err := s.store.UpsertInvoice(ctx, inv); err != nil {
			slog.WarnContext(ctx, "Skipping invoice", "invoice_id", inv.ID, "error", err)
			return nil
		}
		count++
		return nil
	})
	if err != nil {
		err = fmt.Errorf("sync invoices: %w", err)
	}
	s.logSync(ctx, runID, core.SourceStripe, count, err)
	return count, err
}

func (s *SyncService) syncSubscriptions(ctx context.Context, runID string) (int, error) {
	if s.invoicing == nil {
		slog.WarnContext(ctx, "Invoicing provider not configured, skipping", "source", core.SourceStripeSubscriptions)
		return 0, nil
	}
	slog.InfoContext(ctx, "Syncing subscriptions", "run_id", runID)

	count := 0
	err := s.invoicing.ListActiveSubscriptions(ctx, func(sub core.Subscription) error {
		if err := s.store.UpsertSubscription(ctx, sub); err != nil {
			slog.WarnContext(ctx, "Skipping subscription", "id", sub.ID, "error", err)
			return nil
		}
		count++
		return nil
	})
	if err != nil {
		err = fmt.Errorf("sync subscriptions: %w", err)
	}
	s.logSync(ctx, runID, core.SourceStripeSubscriptions, count, err)
	return count, err
}

// logSync records the outcome of one sub-sync. A failure to write the log
// row is logged and otherwise ignored.
func (s *SyncService) logSync(ctx context.Context, runID, source string, records int, syncErr error) {
	entry := core.SyncLogEntry{
		RunID:        runID,
		Source:       source,
		SyncedAt:     s.now(),
		RecordsCount: records,
		Status:       core.SyncSuccess,
	}
	if syncErr != nil {
		entry.Status = core.SyncError
		entry.ErrorMessage = syncErr.Error()
		slog.ErrorContext(ctx, "Sync failed", "source", source, "records", records, "error", syncErr)
	} else {
		slog.InfoContext(ctx, "Sync completed", "source", source, "records", records)
	}
	// The run outcome must be recorded even when ctx was cancelled mid-sync.
	if err := s.store.LogSync(context.WithoutCancel(ctx), entry); err != nil {
		slog.ErrorContext(ctx, "Failed to write sync log", "source", source, "error", err)
	}
}
