package notify

import (
	"strings"

	"findash/internal/core"
)

// ReminderData feeds the reminder email templates.
type ReminderData struct {
	CustomerName     string
	Number           string
	AmountDue        string
	Currency         string
	DueDate          string
	HostedInvoiceURL string
}

func NewReminderData(inv core.Invoice) ReminderData {
	due := "upon receipt"
	if !inv.DueDate.IsZero() {
		due = inv.DueDate.Format("January 2, 2006")
	}
	currency := strings.ToUpper(inv.Currency)
	if currency == "" {
		currency = "USD"
	}
	return ReminderData{
		CustomerName:     customerOrUnknown(inv.CustomerName),
		Number:           inv.Number,
		AmountDue:        USD(inv.AmountDue),
		Currency:         currency,
		DueDate:          due,
		HostedInvoiceURL: inv.HostedInvoiceURL,
	}
}

func ReminderSubject(inv core.Invoice) string {
	return strings.TrimSpace("Payment Reminder: Invoice " + inv.Number)
}
