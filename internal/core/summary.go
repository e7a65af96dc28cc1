package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// MonthlyFlow is one row of the cash-flow series.
type MonthlyFlow struct {
	Month             string `json:"month"`
	Inflow            Money  `json:"inflow"`
	Outflow           Money  `json:"outflow"`
	OwnerDistribution Money  `json:"owner_distribution"`
}

// MonthAmount is one point of a dense monthly series.
type MonthAmount struct {
	Month  string `json:"month"`
	Amount Money  `json:"amount"`
}

// ClientAmount is a per-customer total, optionally with the number of
// records that produced it.
type ClientAmount struct {
	Name   string `json:"name"`
	Amount Money  `json:"amount"`
	Count  int    `json:"count,omitempty"`
}

type ClientDaysToPay struct {
	CustomerName string          `json:"customer_name"`
	AvgDays      decimal.Decimal `json:"avg_days"`
	InvoiceCount int             `json:"invoice_count"`
}

type ClientOpenInvoices struct {
	CustomerName string `json:"customer_name"`
	Outstanding  Money  `json:"outstanding"`
	Overdue      Money  `json:"overdue"`
}

func (c ClientOpenInvoices) Total() Money { return c.Outstanding.Add(c.Overdue) }

// OpenInvoice is an open invoice annotated with its reminder state.
type OpenInvoice struct {
	Invoice
	EmailSent bool `json:"email_sent"`
}

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string `json:"name"`
	Amount Money  `json:"amount"`
}

type VendorAmount struct {
	Vendor string `json:"vendor"`
	Amount Money  `json:"amount"`
}

// InvoiceTally counts invoices and sums an amount over them.
type InvoiceTally struct {
	Count  int   `json:"count"`
	Amount Money `json:"amount"`
}

// Payment is a single invoice payment.
type Payment struct {
	CustomerName  string    `json:"customer_name"`
	InvoiceNumber string    `json:"invoice_number"`
	Amount        Money     `json:"amount"`
	PaidAt        time.Time `json:"paid_at"`
}

// PeriodSummary backs the weekly chat summary.
type PeriodSummary struct {
	Start        Date           `json:"start"`
	End          Date           `json:"end"`
	Inflows      Money          `json:"inflows"`
	Outflows     Money          `json:"outflows"`
	Net          Money          `json:"net"`
	LateCount    int            `json:"late_count"`
	TopCustomers []ClientAmount `json:"top_customers"`
}

type PeriodMetrics struct {
	Start    Date  `json:"start"`
	End      Date  `json:"end"`
	Inflows  Money `json:"inflows"`
	Outflows Money `json:"outflows"`
}

// PeriodReport is the month-to-date composite, carrying the preceding
// period of equal length for comparison.
type PeriodReport struct {
	Start          Date             `json:"start"`
	End            Date             `json:"end"`
	Inflows        Money            `json:"inflows"`
	Outflows       Money            `json:"outflows"`
	Net            Money            `json:"net"`
	InvoicesSent   InvoiceTally     `json:"invoices_sent"`
	InvoicesPaid   InvoiceTally     `json:"invoices_paid"`
	Overdue        InvoiceTally     `json:"overdue"`
	LargestPayment *Payment         `json:"largest_payment,omitempty"`
	TopCustomers   []ClientAmount   `json:"top_customers"`
	TopCategories  []CategoryAmount `json:"top_categories"`
	Previous       PeriodMetrics    `json:"previous"`
}

type YTDFigures struct {
	Since              Date  `json:"since"`
	OwnerDistributions Money `json:"owner_distributions"`
	Outflows           Money `json:"outflows"`
	Collected          Money `json:"collected"`
	LastMonthCollected Money `json:"last_month_collected"`
	RunRateARR         Money `json:"run_rate_arr"`
}

type SyncCounts struct {
	Transactions  int `json:"transactions"`
	Invoices      int `json:"invoices"`
	Subscriptions int `json:"subscriptions"`
}

type Balances struct {
	Bank               Money `json:"bank"`
	InvoicingAvailable Money `json:"invoicing_available"`
	InvoicingPending   Money `json:"invoicing_pending"`
}

// DashboardSnapshot is what gets pushed to the spreadsheet export.
type DashboardSnapshot struct {
	GeneratedAt time.Time      `json:"generated_at"`
	Flows       []MonthlyFlow  `json:"flows"`
	Clients     []ClientAmount `json:"clients"`
	MRR         Money          `json:"mrr"`
	YTD         YTDFigures     `json:"ytd"`
}

// Reminder outcomes.
const (
	ReminderSent    = "sent"
	ReminderFailed  = "failed"
	ReminderSkipped = "skipped"
)

type ReminderResult struct {
	InvoiceID    string `json:"invoice_id"`
	CustomerName string `json:"customer_name"`
	Status       string `json:"status"`
	Error        string `json:"error,omitempty"`
}

type BulkReminderResult struct {
	Sent    int              `json:"sent"`
	Failed  int              `json:"failed"`
	Skipped int              `json:"skipped"`
	Results []ReminderResult `json:"results"`
}
