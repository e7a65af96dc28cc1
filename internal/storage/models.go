package storage

import (
	"database/sql"
)

type BankTransaction struct {
	ID               string
	AmountCents      int64
	CounterpartyName sql.NullString
	Note             sql.NullString
	Kind             sql.NullString
	Status           sql.NullString
	CreatedAt        sql.NullString
	PostedDate       sql.NullString
	AccountID        sql.NullString
}

type Invoice struct {
	ID               string
	Number           sql.NullString
	CustomerID       sql.NullString
	CustomerName     sql.NullString
	CustomerEmail    sql.NullString
	AmountDueCents   int64
	AmountPaidCents  int64
	Currency         string
	Status           sql.NullString
	DueDate          sql.NullString
	CreatedAt        sql.NullString
	HostedInvoiceUrl sql.NullString
	PaidAt           sql.NullString
}

type OpenInvoiceRow struct {
	Invoice
	EmailSent int64
}

type Subscription struct {
	ID                 string
	CustomerID         sql.NullString
	CustomerName       sql.NullString
	Status             sql.NullString
	MonthlyAmountCents int64
	Currency           string
	CurrentPeriodStart sql.NullString
	CurrentPeriodEnd   sql.NullString
}

type LatePaymentNotification struct {
	InvoiceID   string
	NotifiedAt  string
	EmailSent   int64
	EmailSentAt sql.NullString
}

type SyncLog struct {
	ID           int64
	Source       string
	SyncedAt     string
	RecordsCount int64
	Status       string
	ErrorMessage sql.NullString
	RunID        sql.NullString
}
