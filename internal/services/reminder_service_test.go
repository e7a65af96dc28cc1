package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"findash/internal/analytics"
	"findash/internal/core"
	"findash/internal/storage"
)

type fakeMailer struct {
	sent map[string]string
	fail map[string]error
}

func (f *fakeMailer) SendReminder(_ context.Context, to string, inv core.Invoice) error {
	if err := f.fail[inv.ID]; err != nil {
		return err
	}
	if f.sent == nil {
		f.sent = map[string]string{}
	}
	f.sent[inv.ID] = to
	return nil
}

func TestSendReminder(t *testing.T) {
	invoicing := &fakeInvoicing{fetched: map[string]core.Invoice{
		"in_1": {ID: "in_1", CustomerName: "Acme", CustomerEmail: "ap@acme.test"},
	}}
	mailer := &fakeMailer{}
	store := newFakeNotifications()
	svc := NewReminderService(invoicing, &fakeEngine{}, mailer, store)

	inv, err := svc.SendReminder(context.Background(), "in_1")
	require.NoError(t, err)
	assert.Equal(t, "Acme", inv.CustomerName)
	assert.Equal(t, "ap@acme.test", mailer.sent["in_1"])

	// No prior late alert: nothing to flag, and no alert marker is written.
	assert.NotContains(t, store.notified, "in_1")
	assert.NotContains(t, store.emailSent, "in_1")
}

func TestSendReminderFlagsAlertedInvoice(t *testing.T) {
	invoicing := &fakeInvoicing{fetched: map[string]core.Invoice{
		"in_1": {ID: "in_1", CustomerName: "Acme", CustomerEmail: "ap@acme.test"},
	}}
	store := newFakeNotifications()
	require.NoError(t, store.MarkNotified(context.Background(), "in_1", time.Now()))
	svc := NewReminderService(invoicing, &fakeEngine{}, &fakeMailer{}, store)

	_, err := svc.SendReminder(context.Background(), "in_1")
	require.NoError(t, err)
	assert.Contains(t, store.emailSent, "in_1")
}

func TestReminderBeforeDueKeepsLateAlert(t *testing.T) {
	ctx := context.Background()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "findash.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	inv := core.Invoice{
		ID:            "in_1",
		Number:        "INV-1",
		CustomerName:  "Acme",
		CustomerEmail: "ap@acme.test",
		AmountDue:     core.Money{Cents: 100000},
		Status:        core.InvoiceOpen,
		DueDate:       core.NewDate(2025, 6, 20),
		CreatedAt:     time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, repo.UpsertInvoice(ctx, inv))

	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	engine, err := analytics.NewEngine(repo, analytics.Options{Now: func() time.Time { return now }})
	require.NoError(t, err)

	svc := NewReminderService(&fakeInvoicing{fetched: map[string]core.Invoice{"in_1": inv}}, engine, &fakeMailer{}, repo)
	_, err = svc.SendReminder(ctx, "in_1")
	require.NoError(t, err)

	now = time.Date(2025, 6, 25, 12, 0, 0, 0, time.UTC)
	late, err := engine.LateInvoices(ctx)
	require.NoError(t, err)
	require.Len(t, late, 1)
	assert.Equal(t, "in_1", late[0].ID)

	// After the alert, a second reminder is recorded on its row.
	require.NoError(t, repo.MarkNotified(ctx, "in_1", now))
	_, err = svc.SendReminder(ctx, "in_1")
	require.NoError(t, err)
	n, err := repo.GetNotification(ctx, "in_1")
	require.NoError(t, err)
	assert.True(t, n.EmailSent)
}

func TestSendReminderMissingEmail(t *testing.T) {
	invoicing := &fakeInvoicing{fetched: map[string]core.Invoice{"in_1": {ID: "in_1"}}}
	mailer := &fakeMailer{}
	svc := NewReminderService(invoicing, &fakeEngine{}, mailer, newFakeNotifications())

	_, err := svc.SendReminder(context.Background(), "in_1")
	assert.ErrorIs(t, err, core.ErrMissingEmail)
	assert.Empty(t, mailer.sent)
}

func TestSendReminderKeepsSuccessWhenRecordingFails(t *testing.T) {
	invoicing := &fakeInvoicing{fetched: map[string]core.Invoice{
		"in_1": {ID: "in_1", CustomerEmail: "ap@acme.test"},
	}}
	store := newFakeNotifications()
	store.markErr = errors.New("disk full")
	svc := NewReminderService(invoicing, &fakeEngine{}, &fakeMailer{}, store)

	_, err := svc.SendReminder(context.Background(), "in_1")
	assert.NoError(t, err)
}

func TestRemindAllOverdue(t *testing.T) {
	overdue := []core.Invoice{
		{ID: "in_ok", CustomerName: "Acme"},
		{ID: "in_noemail", CustomerName: "Globex"},
		{ID: "in_gone", CustomerName: "Initech"},
		{ID: "in_fail", CustomerName: "Umbrella"},
	}
	invoicing := &fakeInvoicing{fetched: map[string]core.Invoice{
		"in_ok":      {ID: "in_ok", CustomerName: "Acme Corp", CustomerEmail: "ap@acme.test"},
		"in_noemail": {ID: "in_noemail", CustomerName: "Globex"},
		"in_fail":    {ID: "in_fail", CustomerName: "Umbrella", CustomerEmail: "ap@umbrella.test"},
	}}
	mailer := &fakeMailer{fail: map[string]error{"in_fail": errors.New("smtp 550")}}
	svc := NewReminderService(invoicing, &fakeEngine{overdue: overdue}, mailer, newFakeNotifications())

	res, err := svc.RemindAllOverdue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Sent)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, 2, res.Skipped)
	require.Len(t, res.Results, 4)

	assert.Equal(t, core.ReminderResult{InvoiceID: "in_ok", CustomerName: "Acme Corp", Status: core.ReminderSent}, res.Results[0])
	assert.Equal(t, core.ReminderSkipped, res.Results[1].Status)
	assert.Equal(t, core.ReminderSkipped, res.Results[2].Status)
	assert.Equal(t, core.ReminderFailed, res.Results[3].Status)
	assert.Contains(t, res.Results[3].Error, "smtp 550")
}

func TestRemindAllOverdueNone(t *testing.T) {
	svc := NewReminderService(&fakeInvoicing{}, &fakeEngine{}, &fakeMailer{}, newFakeNotifications())

	res, err := svc.RemindAllOverdue(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, res.Results)
	assert.Empty(t, res.Results)
}
