package stripe

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"findash/internal/core"
)

// UnknownCustomer names subscriptions whose customer has neither name nor
// email.
const UnknownCustomer = "Unknown"

// Customer is an expandable reference: either a bare id or the object.
type Customer struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`

	expanded bool
}

func (c *Customer) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &c.ID)
	}
	type plain Customer
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*c = Customer(p)
	c.expanded = true
	return nil
}

func (c Customer) Expanded() bool { return c.expanded }

// Invoice is the provider's invoice as returned on the wire. Amounts are in
// minor units and timestamps in epoch seconds.
type Invoice struct {
	ID                string   `json:"id"`
	Number            string   `json:"number"`
	Customer          Customer `json:"customer"`
	CustomerName      string   `json:"customer_name"`
	CustomerEmail     string   `json:"customer_email"`
	AmountDue         int64    `json:"amount_due"`
	AmountPaid        int64    `json:"amount_paid"`
	Currency          string   `json:"currency"`
	Status            string   `json:"status"`
	DueDate           *int64   `json:"due_date"`
	Created           int64    `json:"created"`
	HostedInvoiceURL  string   `json:"hosted_invoice_url"`
	StatusTransitions struct {
		PaidAt *int64 `json:"paid_at"`
	} `json:"status_transitions"`
}

func (i Invoice) objectID() string { return i.ID }

func epoch(ts int64) time.Time {
	if ts == 0 {
		return time.Time{}
	}
	return time.Unix(ts, 0).UTC()
}

func epochDate(ts *int64) core.Date {
	if ts == nil || *ts == 0 {
		return core.Date{}
	}
	return core.DateOf(time.Unix(*ts, 0))
}

// Normalize converts i into the cache shape. paid_at comes from the status
// transitions and stays zero until the invoice is paid.
func (i Invoice) Normalize() core.Invoice {
	out := core.Invoice{
		ID:               i.ID,
		Number:           i.Number,
		CustomerID:       i.Customer.ID,
		CustomerName:     i.CustomerName,
		CustomerEmail:    i.CustomerEmail,
		AmountDue:        core.Money{Cents: i.AmountDue},
		AmountPaid:       core.Money{Cents: i.AmountPaid},
		Currency:         i.Currency,
		Status:           i.Status,
		DueDate:          epochDate(i.DueDate),
		CreatedAt:        epoch(i.Created),
		HostedInvoiceURL: i.HostedInvoiceURL,
	}
	if i.StatusTransitions.PaidAt != nil {
		out.PaidAt = epoch(*i.StatusTransitions.PaidAt)
	}
	if out.CustomerName == "" && i.Customer.Expanded() {
		out.CustomerName = i.Customer.Name
	}
	if out.CustomerEmail == "" && i.Customer.Expanded() {
		out.CustomerEmail = i.Customer.Email
	}
	return out
}

type Recurring struct {
	Interval      string `json:"interval"`
	IntervalCount int64  `json:"interval_count"`
}

type Price struct {
	UnitAmount *int64     `json:"unit_amount"`
	Recurring  *Recurring `json:"recurring"`
}

type SubscriptionItem struct {
	Quantity           int64  `json:"quantity"`
	Price              Price  `json:"price"`
	CurrentPeriodStart *int64 `json:"current_period_start"`
	CurrentPeriodEnd   *int64 `json:"current_period_end"`
}

// MonthlyAmount is the item's recurring price normalized to one month, in
// currency units.
func (it SubscriptionItem) MonthlyAmount() decimal.Decimal {
	var unit int64
	if it.Price.UnitAmount != nil {
		unit = *it.Price.UnitAmount
	}
	qty := it.Quantity
	if qty == 0 {
		qty = 1
	}
	interval, count := "month", int64(1)
	if r := it.Price.Recurring; r != nil {
		if r.Interval != "" {
			interval = r.Interval
		}
		if r.IntervalCount > 0 {
			count = r.IntervalCount
		}
	}

	amount := decimal.New(unit*qty, -2)
	switch interval {
	case "year":
		return amount.Div(decimal.NewFromInt(12 * count))
	case "month":
		return amount.Div(decimal.NewFromInt(count))
	case "week":
		return amount.Mul(decimal.NewFromInt(52)).Div(decimal.NewFromInt(12 * count))
	default:
		return amount
	}
}

type Subscription struct {
	ID                 string   `json:"id"`
	Customer           Customer `json:"customer"`
	Status             string   `json:"status"`
	Currency           string   `json:"currency"`
	CurrentPeriodStart *int64   `json:"current_period_start"`
	CurrentPeriodEnd   *int64   `json:"current_period_end"`
	Items              struct {
		Data []SubscriptionItem `json:"data"`
	} `json:"items"`
}

func (s Subscription) objectID() string { return s.ID }

// MonthlyAmount sums the items' monthly equivalents and rounds to the cent.
func (s Subscription) MonthlyAmount() core.Money {
	total := decimal.Zero
	for _, it := range s.Items.Data {
		total = total.Add(it.MonthlyAmount())
	}
	return core.MoneyFromDecimal(total)
}

// Normalize converts s into the cache shape. Billing period bounds fall
// back to the first item's when the subscription does not carry them.
func (s Subscription) Normalize() core.Subscription {
	name := UnknownCustomer
	if s.Customer.Expanded() {
		switch {
		case s.Customer.Name != "":
			name = s.Customer.Name
		case s.Customer.Email != "":
			name = s.Customer.Email
		}
	}

	start, end := s.CurrentPeriodStart, s.CurrentPeriodEnd
	if len(s.Items.Data) > 0 {
		if start == nil {
			start = s.Items.Data[0].CurrentPeriodStart
		}
		if end == nil {
			end = s.Items.Data[0].CurrentPeriodEnd
		}
	}

	return core.Subscription{
		ID:                 s.ID,
		CustomerID:         s.Customer.ID,
		CustomerName:       name,
		Status:             s.Status,
		MonthlyAmount:      s.MonthlyAmount(),
		Currency:           s.Currency,
		CurrentPeriodStart: epochDate(start),
		CurrentPeriodEnd:   epochDate(end),
	}
}
