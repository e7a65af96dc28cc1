package notify

import (
	"fmt"
	"sort"
	"strings"

	"findash/internal/core"
)

func customerOrUnknown(name string) string {
	if name == "" {
		return "Unknown"
	}
	return name
}

// LatePaymentAlert announces one newly late invoice with a reminder button.
func LatePaymentAlert(inv core.Invoice, today core.Date) Message {
	label := inv.Number
	if label == "" {
		label = inv.ID
	}
	due := "unknown"
	if !inv.DueDate.IsZero() {
		due = fmt.Sprintf("%s  (%d days overdue)", inv.DueDate, inv.DaysOverdue(today))
	}
	currency := strings.ToUpper(inv.Currency)
	if currency == "" {
		currency = "USD"
	}

	return Message{
		Kind:  KindLatePayment,
		Title: ":warning: Late Payment Detected",
		Fields: []Field{
			{Label: "Customer", Value: customerOrUnknown(inv.CustomerName)},
			{Label: "Invoice", Value: label},
			{Label: "Amount Due", Value: USD(inv.AmountDue) + " " + currency},
			{Label: "Due Date", Value: due},
		},
		Actions: []Action{{
			ID:    ActionSendReminder,
			Label: "Send Reminder Email",
			Value: inv.ID,
			Style: "primary",
		}},
	}
}

func netTrend(net core.Money) string {
	if net.IsNegative() {
		return ":chart_with_downwards_trend:"
	}
	return ":chart_with_upwards_trend:"
}

func customerLines(customers []core.ClientAmount) string {
	if len(customers) == 0 {
		return "_No paid invoices this period_"
	}
	var b strings.Builder
	for _, c := range customers {
		fmt.Fprintf(&b, "• %s: %s\n", c.Name, USD(c.Amount))
	}
	return strings.TrimRight(b.String(), "\n")
}

// WeeklySummary renders the trailing-week period summary.
func WeeklySummary(s core.PeriodSummary) Message {
	return Message{
		Kind:  KindWeeklySummary,
		Title: fmt.Sprintf(":bar_chart: Weekly Financial Summary (%s to %s)", s.Start, s.End),
		Fields: []Field{
			{Label: "Total Inflows", Value: USD(s.Inflows)},
			{Label: "Total Outflows", Value: USD(s.Outflows)},
			{Label: "Net " + netTrend(s.Net), Value: USD(s.Net)},
			{Label: "Late Invoices", Value: fmt.Sprintf("%d", s.LateCount)},
		},
		Sections: []string{"*Top Customers by Revenue:*\n" + customerLines(s.TopCustomers)},
	}
}

func changeVsPrevious(current, previous core.Money) string {
	pct, ok := core.PercentChange(current, previous)
	if !ok {
		return ""
	}
	arrow := ":arrow_up:"
	if pct.IsNegative() {
		arrow = ":arrow_down:"
	}
	return fmt.Sprintf("  %s %s%% vs previous period", arrow, pct.Abs().StringFixed(0))
}

// MonthToDate renders the month-to-date composite report.
func MonthToDate(r core.PeriodReport) Message {
	largest := "_None this period_"
	if p := r.LargestPayment; p != nil {
		number := p.InvoiceNumber
		if number == "" {
			number = "N/A"
		}
		largest = fmt.Sprintf("*%s*: %s (Invoice %s)", customerOrUnknown(p.CustomerName), USD(p.Amount), number)
	}

	categories := "_No spending data this period_"
	if len(r.TopCategories) > 0 {
		var b strings.Builder
		for _, c := range r.TopCategories {
			fmt.Fprintf(&b, "• %s: %s\n", c.Name, USD(c.Amount))
		}
		categories = strings.TrimRight(b.String(), "\n")
	}

	return Message{
		Kind:  KindMonthToDate,
		Title: fmt.Sprintf(":ledger: %s Financial Report (%s to %s)", r.Start.Format("January 2006"), r.Start, r.End),
		Fields: []Field{
			{Label: "Invoices Sent", Value: fmt.Sprintf("%d (%s)", r.InvoicesSent.Count, USD(r.InvoicesSent.Amount))},
			{Label: "Invoices Paid", Value: fmt.Sprintf("%d (%s)", r.InvoicesPaid.Count, USD(r.InvoicesPaid.Amount))},
			{Label: "Overdue", Value: fmt.Sprintf(":warning: %d %s (%s)", r.Overdue.Count, plural(r.Overdue.Count, "invoice", "invoices"), USD(r.Overdue.Amount))},
			{Label: "Largest Payment", Value: largest},
			{Label: "Total Revenue (Inflows)", Value: USD(r.Inflows) + changeVsPrevious(r.Inflows, r.Previous.Inflows)},
			{Label: "Total Outflows", Value: USD(r.Outflows) + changeVsPrevious(r.Outflows, r.Previous.Outflows)},
			{Label: "Net " + netTrend(r.Net), Value: USD(r.Net)},
		},
		Sections: []string{
			"*:trophy: Top Customers by Revenue*\n" + customerLines(r.TopCustomers),
			"*:money_with_wings: Top Spending Categories*\n" + categories,
		},
	}
}

// OverdueReport groups every overdue invoice by customer, largest balance
// first, with a button to remind them all.
func OverdueReport(invs []core.Invoice) Message {
	type group struct {
		name   string
		amount core.Money
		count  int
	}
	var total core.Money
	byCustomer := map[string]*group{}
	for _, inv := range invs {
		name := customerOrUnknown(inv.CustomerName)
		g, ok := byCustomer[name]
		if !ok {
			g = &group{name: name}
			byCustomer[name] = g
		}
		g.amount = g.amount.Add(inv.AmountDue)
		g.count++
		total = total.Add(inv.AmountDue)
	}

	groups := make([]*group, 0, len(byCustomer))
	for _, g := range byCustomer {
		groups = append(groups, g)
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].amount.Cents != groups[j].amount.Cents {
			return groups[i].amount.Cents > groups[j].amount.Cents
		}
		return groups[i].name < groups[j].name
	})

	var b strings.Builder
	b.WriteString("*Breakdown by Client:*")
	for _, g := range groups {
		fmt.Fprintf(&b, "\n• *%s*: %s (%d %s)", g.name, USD(g.amount), g.count, plural(g.count, "invoice", "invoices"))
	}

	return Message{
		Kind:  KindOverdueReport,
		Title: ":rotating_light: Overdue Invoice Report",
		Fields: []Field{
			{Label: "Total Overdue", Value: USD(total)},
			{Label: "Clients", Value: fmt.Sprintf("%d", len(groups))},
		},
		Sections: []string{b.String()},
		Actions: []Action{{
			ID:      ActionRemindAllOverdue,
			Label:   "Send reminder to all overdue",
			Style:   "danger",
			Confirm: fmt.Sprintf("This will send individual reminder emails to all %d overdue clients.", len(groups)),
		}},
	}
}

// Note is a plain one-line message, used for action results.
func Note(text string) Message {
	return Message{Kind: KindText, Title: text}
}

// ReminderResultNote summarizes a bulk reminder run.
func ReminderResultNote(r core.BulkReminderResult) Message {
	msg := Note(fmt.Sprintf("Reminders: %d sent, %d failed, %d skipped", r.Sent, r.Failed, r.Skipped))
	for _, res := range r.Results {
		if res.Status == core.ReminderSent {
			continue
		}
		line := fmt.Sprintf("• %s (%s): %s", customerOrUnknown(res.CustomerName), res.InvoiceID, res.Status)
		if res.Error != "" {
			line += " - " + res.Error
		}
		msg.Sections = append(msg.Sections, line)
	}
	return msg
}
