package storage

import (
	"context"
	"database/sql"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

const upsertBankTransaction = `
INSERT INTO bank_transactions (
    id, amount_cents, counterparty_name, note, kind, status, created_at, posted_date, account_id
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    amount_cents      = excluded.amount_cents,
    counterparty_name = excluded.counterparty_name,
    note              = excluded.note,
    kind              = excluded.kind,
    status            = excluded.status,
    created_at        = excluded.created_at,
    posted_date       = excluded.posted_date,
    account_id        = excluded.account_id
`

func (q *Queries) UpsertBankTransaction(ctx context.Context, arg BankTransaction) error {
	_, err := q.db.ExecContext(ctx, upsertBankTransaction,
		arg.ID,
		arg.AmountCents,
		arg.CounterpartyName,
		arg.Note,
		arg.Kind,
		arg.Status,
		arg.CreatedAt,
		arg.PostedDate,
		arg.AccountID,
	)
	return err
}

const upsertInvoice = `
INSERT INTO invoices (
    id, number, customer_id, customer_name, customer_email, amount_due_cents, amount_paid_cents,
    currency, status, due_date, created_at, hosted_invoice_url, paid_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    number             = excluded.number,
    customer_id        = excluded.customer_id,
    customer_name      = excluded.customer_name,
    customer_email     = excluded.customer_email,
    amount_due_cents   = excluded.amount_due_cents,
    amount_paid_cents  = excluded.amount_paid_cents,
    currency           = excluded.currency,
    status             = excluded.status,
    due_date           = excluded.due_date,
    created_at         = excluded.created_at,
    hosted_invoice_url = excluded.hosted_invoice_url,
    paid_at            = excluded.paid_at
`

func (q *Queries) UpsertInvoice(ctx context.Context, arg Invoice) error {
	_, err := q.db.ExecContext(ctx, upsertInvoice,
		arg.ID,
		arg.Number,
		arg.CustomerID,
		arg.CustomerName,
		arg.CustomerEmail,
		arg.AmountDueCents,
		arg.AmountPaidCents,
		arg.Currency,
		arg.Status,
		arg.DueDate,
		arg.CreatedAt,
		arg.HostedInvoiceUrl,
		arg.PaidAt,
	)
	return err
}

const upsertSubscription = `
INSERT INTO subscriptions (
    id, customer_id, customer_name, status, monthly_amount_cents, currency,
    current_period_start, current_period_end
) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    customer_id          = excluded.customer_id,
    customer_name        = excluded.customer_name,
    status               = excluded.status,
    monthly_amount_cents = excluded.monthly_amount_cents,
    currency             = excluded.currency,
    current_period_start = excluded.current_period_start,
    current_period_end   = excluded.current_period_end
`

func (q *Queries) UpsertSubscription(ctx context.Context, arg Subscription) error {
	_, err := q.db.ExecContext(ctx, upsertSubscription,
		arg.ID,
		arg.CustomerID,
		arg.CustomerName,
		arg.Status,
		arg.MonthlyAmountCents,
		arg.Currency,
		arg.CurrentPeriodStart,
		arg.CurrentPeriodEnd,
	)
	return err
}

const insertNotification = `
INSERT INTO late_payment_notifications (invoice_id, notified_at)
VALUES (?, ?)
ON CONFLICT(invoice_id) DO NOTHING
`

func (q *Queries) InsertNotification(ctx context.Context, invoiceID, notifiedAt string) error {
	_, err := q.db.ExecContext(ctx, insertNotification, invoiceID, notifiedAt)
	return err
}

const markEmailSent = `
UPDATE late_payment_notifications
SET email_sent = 1, email_sent_at = ?
WHERE invoice_id = ?
`

type MarkEmailSentParams struct {
	EmailSentAt string
	InvoiceID   string
}

func (q *Queries) MarkEmailSent(ctx context.Context, arg MarkEmailSentParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, markEmailSent, arg.EmailSentAt, arg.InvoiceID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const getNotification = `
SELECT invoice_id, notified_at, email_sent, email_sent_at
FROM late_payment_notifications
WHERE invoice_id = ?
`

func (q *Queries) GetNotification(ctx context.Context, invoiceID string) (LatePaymentNotification, error) {
	row := q.db.QueryRowContext(ctx, getNotification, invoiceID)
	var i LatePaymentNotification
	err := row.Scan(&i.InvoiceID, &i.NotifiedAt, &i.EmailSent, &i.EmailSentAt)
	return i, err
}

const insertSyncLog = `
INSERT INTO sync_log (run_id, source, synced_at, records_count, status, error_message)
VALUES (?, ?, ?, ?, ?, ?)
RETURNING id
`

type InsertSyncLogParams struct {
	RunID        sql.NullString
	Source       string
	SyncedAt     string
	RecordsCount int64
	Status       string
	ErrorMessage sql.NullString
}

func (q *Queries) InsertSyncLog(ctx context.Context, arg InsertSyncLogParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, insertSyncLog,
		arg.RunID,
		arg.Source,
		arg.SyncedAt,
		arg.RecordsCount,
		arg.Status,
		arg.ErrorMessage,
	)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const listSyncLog = `
SELECT id, source, synced_at, records_count, status, error_message, run_id
FROM sync_log
ORDER BY id DESC
LIMIT ?
`

func (q *Queries) ListSyncLog(ctx context.Context, limit int64) ([]SyncLog, error) {
	rows, err := q.db.QueryContext(ctx, listSyncLog, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []SyncLog
	for rows.Next() {
		var i SyncLog
		if err := rows.Scan(
			&i.ID,
			&i.Source,
			&i.SyncedAt,
			&i.RecordsCount,
			&i.Status,
			&i.ErrorMessage,
			&i.RunID,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listBankTransactionsSince = `
SELECT id, amount_cents, counterparty_name, note, kind, status, created_at, posted_date, account_id
FROM bank_transactions
WHERE ? = '' OR COALESCE(posted_date, substr(created_at, 1, 10)) >= ?
ORDER BY COALESCE(posted_date, substr(created_at, 1, 10)), id
`

// ListBankTransactionsSince returns transactions whose effective day is on or
// after since (YYYY-MM-DD). An empty since returns everything.
func (q *Queries) ListBankTransactionsSince(ctx context.Context, since string) ([]BankTransaction, error) {
	rows, err := q.db.QueryContext(ctx, listBankTransactionsSince, since, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []BankTransaction
	for rows.Next() {
		var i BankTransaction
		if err := rows.Scan(
			&i.ID,
			&i.AmountCents,
			&i.CounterpartyName,
			&i.Note,
			&i.Kind,
			&i.Status,
			&i.CreatedAt,
			&i.PostedDate,
			&i.AccountID,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const invoiceColumns = `i.id, i.number, i.customer_id, i.customer_name, i.customer_email,
    i.amount_due_cents, i.amount_paid_cents, i.currency, i.status, i.due_date,
    i.created_at, i.hosted_invoice_url, i.paid_at`

func scanInvoice(s interface{ Scan(...interface{}) error }, extra ...interface{}) (Invoice, error) {
	var i Invoice
	dest := []interface{}{
		&i.ID,
		&i.Number,
		&i.CustomerID,
		&i.CustomerName,
		&i.CustomerEmail,
		&i.AmountDueCents,
		&i.AmountPaidCents,
		&i.Currency,
		&i.Status,
		&i.DueDate,
		&i.CreatedAt,
		&i.HostedInvoiceUrl,
		&i.PaidAt,
	}
	err := s.Scan(append(dest, extra...)...)
	return i, err
}

func (q *Queries) listInvoices(ctx context.Context, query string, args ...interface{}) ([]Invoice, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Invoice
	for rows.Next() {
		i, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listInvoices = `SELECT ` + invoiceColumns + ` FROM invoices i ORDER BY i.created_at, i.id`

func (q *Queries) ListInvoices(ctx context.Context) ([]Invoice, error) {
	return q.listInvoices(ctx, listInvoices)
}

const getInvoice = `SELECT ` + invoiceColumns + ` FROM invoices i WHERE i.id = ?`

func (q *Queries) GetInvoice(ctx context.Context, id string) (Invoice, error) {
	return scanInvoice(q.db.QueryRowContext(ctx, getInvoice, id))
}

const listLateInvoices = `
SELECT ` + invoiceColumns + `
FROM invoices i
LEFT JOIN late_payment_notifications n ON n.invoice_id = i.id
WHERE i.status = 'open'
  AND i.due_date IS NOT NULL AND i.due_date <> ''
  AND i.due_date < ?
  AND i.amount_due_cents > 0
  AND n.invoice_id IS NULL
ORDER BY i.due_date, i.id
`

// ListLateInvoices returns open, past-due invoices that were never notified.
func (q *Queries) ListLateInvoices(ctx context.Context, today string) ([]Invoice, error) {
	return q.listInvoices(ctx, listLateInvoices, today)
}

const listOverdueInvoices = `
SELECT ` + invoiceColumns + `
FROM invoices i
WHERE i.status = 'open'
  AND i.due_date IS NOT NULL AND i.due_date <> ''
  AND i.due_date < ?
  AND i.amount_due_cents > 0
ORDER BY i.due_date, i.id
`

func (q *Queries) ListOverdueInvoices(ctx context.Context, today string) ([]Invoice, error) {
	return q.listInvoices(ctx, listOverdueInvoices, today)
}

const listOpenInvoices = `
SELECT ` + invoiceColumns + `, COALESCE(n.email_sent, 0)
FROM invoices i
LEFT JOIN late_payment_notifications n ON n.invoice_id = i.id
WHERE i.status = 'open'
  AND i.amount_due_cents > 0
  AND (? = '' OR i.customer_name = ?)
ORDER BY i.due_date IS NULL, i.due_date, i.id
`

// ListOpenInvoices returns open invoices with a balance, optionally for one
// customer name.
func (q *Queries) ListOpenInvoices(ctx context.Context, customerName string) ([]OpenInvoiceRow, error) {
	rows, err := q.db.QueryContext(ctx, listOpenInvoices, customerName, customerName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []OpenInvoiceRow
	for rows.Next() {
		var sent int64
		inv, err := scanInvoice(rows, &sent)
		if err != nil {
			return nil, err
		}
		items = append(items, OpenInvoiceRow{Invoice: inv, EmailSent: sent})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listActiveSubscriptions = `
SELECT id, customer_id, customer_name, status, monthly_amount_cents, currency,
    current_period_start, current_period_end
FROM subscriptions
WHERE status = 'active'
ORDER BY customer_name, id
`

func (q *Queries) ListActiveSubscriptions(ctx context.Context) ([]Subscription, error) {
	rows, err := q.db.QueryContext(ctx, listActiveSubscriptions)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Subscription
	for rows.Next() {
		var i Subscription
		if err := rows.Scan(
			&i.ID,
			&i.CustomerID,
			&i.CustomerName,
			&i.Status,
			&i.MonthlyAmountCents,
			&i.Currency,
			&i.CurrentPeriodStart,
			&i.CurrentPeriodEnd,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const countRecords = `
SELECT
    (SELECT COUNT(*) FROM bank_transactions),
    (SELECT COUNT(*) FROM invoices),
    (SELECT COUNT(*) FROM subscriptions)
`

type CountRecordsRow struct {
	Transactions  int64
	Invoices      int64
	Subscriptions int64
}

func (q *Queries) CountRecords(ctx context.Context) (CountRecordsRow, error) {
	row := q.db.QueryRowContext(ctx, countRecords)
	var i CountRecordsRow
	err := row.Scan(&i.Transactions, &i.Invoices, &i.Subscriptions)
	return i, err
}
