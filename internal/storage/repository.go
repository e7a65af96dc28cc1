package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"findash/internal/core"

	_ "modernc.org/sqlite"
)

const timestampLayout = time.RFC3339

// SQLiteRepository is the local cache of provider data. Every write is a
// single upsert statement, so readers never see a half-written record.
type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	path    string
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// Migrations run before the pool opens so WAL is switched on against
	// an up-to-date schema.
	if err := RunMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		path:    dbPath,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Path() string { return r.path }

func (r *SQLiteRepository) UpsertTransaction(ctx context.Context, t core.BankTransaction) error {
	if err := t.Validate(); err != nil {
		return fmt.Errorf("%w: %v", core.ErrInvalidRecord, err)
	}
	err := r.queries.UpsertBankTransaction(ctx, BankTransaction{
		ID:               t.ID,
		AmountCents:      t.Amount.Cents,
		CounterpartyName: nullString(t.CounterpartyName),
		Note:             nullString(t.Note),
		Kind:             nullString(t.Kind),
		Status:           nullString(t.Status),
		CreatedAt:        nullTime(t.CreatedAt),
		PostedDate:       nullDate(t.PostedDate),
		AccountID:        nullString(t.AccountID),
	})
	if err != nil {
		return fmt.Errorf("upsert transaction %s: %w", t.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) UpsertInvoice(ctx context.Context, inv core.Invoice) error {
	if err := inv.Validate(); err != nil {
		return fmt.Errorf("%w: %v", core.ErrInvalidRecord, err)
	}
	currency := inv.Currency
	if currency == "" {
		currency = "usd"
	}
	err := r.queries.UpsertInvoice(ctx, Invoice{
		ID:               inv.ID,
		Number:           nullString(inv.Number),
		CustomerID:       nullString(inv.CustomerID),
		CustomerName:     nullString(inv.CustomerName),
		CustomerEmail:    nullString(inv.CustomerEmail),
		AmountDueCents:   inv.AmountDue.Cents,
		AmountPaidCents:  inv.AmountPaid.Cents,
		Currency:         currency,
		Status:           nullString(inv.Status),
		DueDate:          nullDate(inv.DueDate),
		CreatedAt:        nullTime(inv.CreatedAt),
		HostedInvoiceUrl: nullString(inv.HostedInvoiceURL),
		PaidAt:           nullTime(inv.PaidAt),
	})
	if err != nil {
		return fmt.Errorf("upsert invoice %s: %w", inv.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) UpsertSubscription(ctx context.Context, s core.Subscription) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("%w: %v", core.ErrInvalidRecord, err)
	}
	currency := s.Currency
	if currency == "" {
		currency = "usd"
	}
	err := r.queries.UpsertSubscription(ctx, Subscription{
		ID:                 s.ID,
		CustomerID:         nullString(s.CustomerID),
		CustomerName:       nullString(s.CustomerName),
		Status:             nullString(s.Status),
		MonthlyAmountCents: s.MonthlyAmount.Cents,
		Currency:           currency,
		CurrentPeriodStart: nullDate(s.CurrentPeriodStart),
		CurrentPeriodEnd:   nullDate(s.CurrentPeriodEnd),
	})
	if err != nil {
		return fmt.Errorf("upsert subscription %s: %w", s.ID, err)
	}
	return nil
}

// MarkNotified records the first late notice for an invoice. Later calls
// keep the original timestamp.
func (r *SQLiteRepository) MarkNotified(ctx context.Context, invoiceID string, at time.Time) error {
	if err := r.queries.InsertNotification(ctx, invoiceID, at.UTC().Format(timestampLayout)); err != nil {
		return fmt.Errorf("mark invoice %s notified: %w", invoiceID, err)
	}
	return nil
}

// MarkEmailSent flags that a reminder email went out. It only updates an
// existing notification row and reports whether one was found.
func (r *SQLiteRepository) MarkEmailSent(ctx context.Context, invoiceID string, at time.Time) (bool, error) {
	n, err := r.queries.MarkEmailSent(ctx, MarkEmailSentParams{
		EmailSentAt: at.UTC().Format(timestampLayout),
		InvoiceID:   invoiceID,
	})
	if err != nil {
		return false, fmt.Errorf("mark invoice %s email sent: %w", invoiceID, err)
	}
	return n > 0, nil
}

func (r *SQLiteRepository) GetNotification(ctx context.Context, invoiceID string) (core.LatePaymentNotification, error) {
	row, err := r.queries.GetNotification(ctx, invoiceID)
	if errors.Is(err, sql.ErrNoRows) {
		return core.LatePaymentNotification{}, core.ErrNotFound
	}
	if err != nil {
		return core.LatePaymentNotification{}, fmt.Errorf("get notification %s: %w", invoiceID, err)
	}
	return core.LatePaymentNotification{
		InvoiceID:   row.InvoiceID,
		NotifiedAt:  parseTime(row.NotifiedAt),
		EmailSent:   row.EmailSent != 0,
		EmailSentAt: parseTime(row.EmailSentAt.String),
	}, nil
}

func (r *SQLiteRepository) LogSync(ctx context.Context, e core.SyncLogEntry) error {
	syncedAt := e.SyncedAt
	if syncedAt.IsZero() {
		syncedAt = time.Now()
	}
	id, err := r.queries.InsertSyncLog(ctx, InsertSyncLogParams{
		RunID:        nullString(e.RunID),
		Source:       e.Source,
		SyncedAt:     syncedAt.UTC().Format(timestampLayout),
		RecordsCount: int64(e.RecordsCount),
		Status:       e.Status,
		ErrorMessage: nullString(e.ErrorMessage),
	})
	if err != nil {
		return fmt.Errorf("log sync for %s: %w", e.Source, err)
	}

	slog.InfoContext(ctx, "Sync logged",
		"id", id,
		"source", e.Source,
		"status", e.Status,
		"records", e.RecordsCount)

	return nil
}

func (r *SQLiteRepository) RecentSyncs(ctx context.Context, limit int) ([]core.SyncLogEntry, error) {
	rows, err := r.queries.ListSyncLog(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("list sync log: %w", err)
	}
	out := make([]core.SyncLogEntry, 0, len(rows))
	for _, row := range rows {
		out = append(out, core.SyncLogEntry{
			ID:           row.ID,
			RunID:        row.RunID.String,
			Source:       row.Source,
			SyncedAt:     parseTime(row.SyncedAt),
			RecordsCount: int(row.RecordsCount),
			Status:       row.Status,
			ErrorMessage: row.ErrorMessage.String,
		})
	}
	return out, nil
}

// ListTransactions returns bank transactions effective on or after since.
// A zero since returns the full history.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, since core.Date) ([]core.BankTransaction, error) {
	rows, err := r.queries.ListBankTransactionsSince(ctx, since.String())
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	out := make([]core.BankTransaction, 0, len(rows))
	for _, row := range rows {
		out = append(out, core.BankTransaction{
			ID:               row.ID,
			Amount:           core.Money{Cents: row.AmountCents},
			CounterpartyName: row.CounterpartyName.String,
			Note:             row.Note.String,
			Kind:             row.Kind.String,
			Status:           row.Status.String,
			CreatedAt:        parseTime(row.CreatedAt.String),
			PostedDate:       parseDate(row.PostedDate.String),
			AccountID:        row.AccountID.String,
		})
	}
	return out, nil
}

func (r *SQLiteRepository) ListInvoices(ctx context.Context) ([]core.Invoice, error) {
	rows, err := r.queries.ListInvoices(ctx)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	return toInvoices(rows), nil
}

func (r *SQLiteRepository) GetInvoice(ctx context.Context, id string) (core.Invoice, error) {
	row, err := r.queries.GetInvoice(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Invoice{}, core.ErrNotFound
	}
	if err != nil {
		return core.Invoice{}, fmt.Errorf("get invoice %s: %w", id, err)
	}
	return toInvoice(row), nil
}

func (r *SQLiteRepository) ListLateInvoices(ctx context.Context, today core.Date) ([]core.Invoice, error) {
	rows, err := r.queries.ListLateInvoices(ctx, today.String())
	if err != nil {
		return nil, fmt.Errorf("list late invoices: %w", err)
	}
	return toInvoices(rows), nil
}

func (r *SQLiteRepository) ListOverdueInvoices(ctx context.Context, today core.Date) ([]core.Invoice, error) {
	rows, err := r.queries.ListOverdueInvoices(ctx, today.String())
	if err != nil {
		return nil, fmt.Errorf("list overdue invoices: %w", err)
	}
	return toInvoices(rows), nil
}

func (r *SQLiteRepository) ListOpenInvoices(ctx context.Context, customerName string) ([]core.OpenInvoice, error) {
	rows, err := r.queries.ListOpenInvoices(ctx, customerName)
	if err != nil {
		return nil, fmt.Errorf("list open invoices: %w", err)
	}
	out := make([]core.OpenInvoice, 0, len(rows))
	for _, row := range rows {
		out = append(out, core.OpenInvoice{Invoice: toInvoice(row.Invoice), EmailSent: row.EmailSent != 0})
	}
	return out, nil
}

func (r *SQLiteRepository) ListActiveSubscriptions(ctx context.Context) ([]core.Subscription, error) {
	rows, err := r.queries.ListActiveSubscriptions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active subscriptions: %w", err)
	}
	out := make([]core.Subscription, 0, len(rows))
	for _, row := range rows {
		out = append(out, core.Subscription{
			ID:                 row.ID,
			CustomerID:         row.CustomerID.String,
			CustomerName:       row.CustomerName.String,
			Status:             row.Status.String,
			MonthlyAmount:      core.Money{Cents: row.MonthlyAmountCents},
			Currency:           row.Currency,
			CurrentPeriodStart: parseDate(row.CurrentPeriodStart.String),
			CurrentPeriodEnd:   parseDate(row.CurrentPeriodEnd.String),
		})
	}
	return out, nil
}

// Counts reports how many records of each kind are cached.
func (r *SQLiteRepository) Counts(ctx context.Context) (core.SyncCounts, error) {
	row, err := r.queries.CountRecords(ctx)
	if err != nil {
		return core.SyncCounts{}, fmt.Errorf("count records: %w", err)
	}
	return core.SyncCounts{
		Transactions:  int(row.Transactions),
		Invoices:      int(row.Invoices),
		Subscriptions: int(row.Subscriptions),
	}, nil
}

func toInvoices(rows []Invoice) []core.Invoice {
	out := make([]core.Invoice, 0, len(rows))
	for _, row := range rows {
		out = append(out, toInvoice(row))
	}
	return out
}

func toInvoice(row Invoice) core.Invoice {
	return core.Invoice{
		ID:               row.ID,
		Number:           row.Number.String,
		CustomerID:       row.CustomerID.String,
		CustomerName:     row.CustomerName.String,
		CustomerEmail:    row.CustomerEmail.String,
		AmountDue:        core.Money{Cents: row.AmountDueCents},
		AmountPaid:       core.Money{Cents: row.AmountPaidCents},
		Currency:         row.Currency,
		Status:           row.Status.String,
		DueDate:          parseDate(row.DueDate.String),
		CreatedAt:        parseTime(row.CreatedAt.String),
		PaidAt:           parseTime(row.PaidAt.String),
		HostedInvoiceURL: row.HostedInvoiceUrl.String,
	}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(timestampLayout), Valid: true}
}

func nullDate(d core.Date) sql.NullString {
	return nullString(d.String())
}

// parseTime accepts RFC 3339 and bare dates; anything else reads as absent.
func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(timestampLayout, s); err == nil {
		return t
	}
	if d, err := core.ParseDate(s); err == nil {
		return d.Time
	}
	return time.Time{}
}

func parseDate(s string) core.Date {
	d, err := core.ParseDate(s)
	if err != nil {
		return core.Date{}
	}
	return d
}
