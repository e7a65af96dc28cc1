package storage

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"findash/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "nested", "findash.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestMigrations_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "findash.db")
	require.NoError(t, RunMigrations(path))
	require.NoError(t, RunMigrations(path))

	v, dirty, err := SchemaVersion(path)
	require.NoError(t, err)
	assert.False(t, dirty)
	assert.Equal(t, uint(3), v)
}

func TestMigrations_AddColumnKeepsRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.db")

	// Simulate a cache created before paid_at existed.
	m, closeFn, err := newMigrator(path)
	require.NoError(t, err)
	require.NoError(t, m.Steps(1))
	closeFn()

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO invoices (id, customer_name, amount_due_cents, status) VALUES ('in_old', 'Acme', 5000, 'open')`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	repo, err := NewSQLiteRepository(path)
	require.NoError(t, err)
	defer repo.Close()

	inv, err := repo.GetInvoice(context.Background(), "in_old")
	require.NoError(t, err)
	assert.Equal(t, "Acme", inv.CustomerName)
	assert.Equal(t, int64(5000), inv.AmountDue.Cents)
	assert.True(t, inv.PaidAt.IsZero())
}

func TestUpsertTransaction_Idempotent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	tx := core.BankTransaction{
		ID:               "tx_1",
		Amount:           core.Money{Cents: -12345},
		CounterpartyName: "OpenAI",
		Kind:             core.KindCreditCardTransaction,
		Status:           core.TxPending,
		CreatedAt:        time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC),
		AccountID:        "acc_1",
	}
	require.NoError(t, repo.UpsertTransaction(ctx, tx))

	tx.Status = core.TxSent
	tx.PostedDate = core.NewDate(2025, 5, 2)
	tx.Amount = core.Money{Cents: -12000}
	require.NoError(t, repo.UpsertTransaction(ctx, tx))

	got, err := repo.ListTransactions(ctx, core.Date{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, core.TxSent, got[0].Status)
	assert.Equal(t, int64(-12000), got[0].Amount.Cents)
	assert.Equal(t, "2025-05-02", got[0].PostedDate.String())
	assert.True(t, tx.CreatedAt.Equal(got[0].CreatedAt))

	counts, err := repo.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts.Transactions)
}

func TestUpsertTransaction_RejectsMissingID(t *testing.T) {
	repo := newTestRepo(t)
	err := repo.UpsertTransaction(context.Background(), core.BankTransaction{})
	assert.ErrorIs(t, err, core.ErrInvalidRecord)
}

func TestListTransactions_Since(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.UpsertTransaction(ctx, core.BankTransaction{ID: "old", PostedDate: core.NewDate(2024, 12, 31)}))
	require.NoError(t, repo.UpsertTransaction(ctx, core.BankTransaction{ID: "new", PostedDate: core.NewDate(2025, 1, 1)}))
	require.NoError(t, repo.UpsertTransaction(ctx, core.BankTransaction{ID: "created-only", CreatedAt: time.Date(2025, 1, 5, 8, 0, 0, 0, time.UTC)}))

	got, err := repo.ListTransactions(ctx, core.NewDate(2025, 1, 1))
	require.NoError(t, err)
	ids := []string{}
	for _, tx := range got {
		ids = append(ids, tx.ID)
	}
	assert.Equal(t, []string{"new", "created-only"}, ids)
}

func TestUpsertInvoiceAndSubscription_Idempotent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	inv := core.Invoice{
		ID:           "in_1",
		CustomerName: "Acme",
		AmountDue:    core.Money{Cents: 100000},
		Status:       core.InvoiceOpen,
		DueDate:      core.NewDate(2025, 2, 1),
		CreatedAt:    time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, repo.UpsertInvoice(ctx, inv))

	inv.Status = core.InvoicePaid
	inv.AmountPaid = core.Money{Cents: 100000}
	inv.PaidAt = time.Date(2025, 1, 11, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.UpsertInvoice(ctx, inv))

	all, err := repo.ListInvoices(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, core.InvoicePaid, all[0].Status)
	assert.Equal(t, "usd", all[0].Currency)
	assert.True(t, all[0].IsPaid())

	sub := core.Subscription{ID: "sub_1", CustomerName: "Acme", Status: core.SubscriptionActive, MonthlyAmount: core.Money{Cents: 50000}}
	require.NoError(t, repo.UpsertSubscription(ctx, sub))
	sub.MonthlyAmount = core.Money{Cents: 60000}
	require.NoError(t, repo.UpsertSubscription(ctx, sub))

	subs, err := repo.ListActiveSubscriptions(ctx)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, int64(60000), subs[0].MonthlyAmount.Cents)
}

func TestLateInvoices_NotifiedOnce(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	today := core.NewDate(2025, 3, 10)

	for _, inv := range []core.Invoice{
		{ID: "late", CustomerName: "Acme", AmountDue: core.Money{Cents: 1000}, Status: core.InvoiceOpen, DueDate: core.NewDate(2025, 3, 1)},
		{ID: "due-today", CustomerName: "Acme", AmountDue: core.Money{Cents: 1000}, Status: core.InvoiceOpen, DueDate: today},
		{ID: "zero", CustomerName: "Acme", Status: core.InvoiceOpen, DueDate: core.NewDate(2025, 3, 1)},
		{ID: "paid", CustomerName: "Acme", AmountDue: core.Money{Cents: 1000}, Status: core.InvoicePaid, DueDate: core.NewDate(2025, 3, 1)},
		{ID: "no-due", CustomerName: "Acme", AmountDue: core.Money{Cents: 1000}, Status: core.InvoiceOpen},
	} {
		require.NoError(t, repo.UpsertInvoice(ctx, inv))
	}

	late, err := repo.ListLateInvoices(ctx, today)
	require.NoError(t, err)
	require.Len(t, late, 1)
	assert.Equal(t, "late", late[0].ID)

	notifiedAt := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	require.NoError(t, repo.MarkNotified(ctx, "late", notifiedAt))
	require.NoError(t, repo.MarkNotified(ctx, "late", notifiedAt.Add(time.Hour)))

	late, err = repo.ListLateInvoices(ctx, today)
	require.NoError(t, err)
	assert.Empty(t, late)

	overdue, err := repo.ListOverdueInvoices(ctx, today)
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, "late", overdue[0].ID)

	n, err := repo.GetNotification(ctx, "late")
	require.NoError(t, err)
	assert.True(t, notifiedAt.Equal(n.NotifiedAt), "first notification time is kept")
	assert.False(t, n.EmailSent)
}

func TestMarkEmailSent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.UpsertInvoice(ctx, core.Invoice{ID: "in_1", CustomerName: "Acme", AmountDue: core.Money{Cents: 1}, Status: core.InvoiceOpen}))

	found, err := repo.MarkEmailSent(ctx, "in_1", time.Now())
	require.NoError(t, err)
	assert.False(t, found, "no notification row yet")

	require.NoError(t, repo.MarkNotified(ctx, "in_1", time.Now()))
	found, err = repo.MarkEmailSent(ctx, "in_1", time.Now())
	require.NoError(t, err)
	assert.True(t, found)

	open, err := repo.ListOpenInvoices(ctx, "Acme")
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.True(t, open[0].EmailSent)

	none, err := repo.ListOpenInvoices(ctx, "Globex")
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = repo.GetNotification(ctx, "missing")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestLogSync(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.LogSync(ctx, core.SyncLogEntry{RunID: "run-1", Source: core.SourceMercury, RecordsCount: 12, Status: core.SyncSuccess}))
	require.NoError(t, repo.LogSync(ctx, core.SyncLogEntry{RunID: "run-1", Source: core.SourceStripe, RecordsCount: 3, Status: core.SyncError, ErrorMessage: "boom"}))

	entries, err := repo.RecentSyncs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, core.SourceStripe, entries[0].Source)
	assert.Equal(t, "boom", entries[0].ErrorMessage)
	assert.Equal(t, "run-1", entries[1].RunID)
	assert.Equal(t, 12, entries[1].RecordsCount)
	assert.False(t, entries[1].SyncedAt.IsZero())
}

func TestGetInvoice_NotFound(t *testing.T) {
	repo := newTestRepo(t)
	_, err := repo.GetInvoice(context.Background(), "nope")
	assert.ErrorIs(t, err, core.ErrNotFound)
}
