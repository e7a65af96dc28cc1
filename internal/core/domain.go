package core

import (
	"errors"
	"strings"
	"time"
)

// Bank transaction kinds as reported by the bank provider.
const (
	KindOutgoingPayment          = "outgoingPayment"
	KindCreditCardTransaction    = "creditCardTransaction"
	KindCardInternationalFee     = "cardInternationalTransactionFee"
	KindOther                    = "other"
	KindIncomingDomesticWire     = "incomingDomesticWire"
	KindInternalTransfer         = "internalTransfer"
	KindExternalTransfer         = "externalTransfer"
	KindTreasuryTransfer         = "treasuryTransfer"
	KindCheckDeposit             = "checkDeposit"
	KindDebitCardTransaction     = "debitCardTransaction"
	KindInternationalWire        = "internationalWire"
	KindIncomingInternationalACH = "incomingInternationalACH"
)

// Bank transaction statuses.
const (
	TxPending   = "pending"
	TxSent      = "sent"
	TxCancelled = "cancelled"
	TxFailed    = "failed"
	TxReversed  = "reversed"
	TxBlocked   = "blocked"
)

// Invoice statuses.
const (
	InvoiceDraft         = "draft"
	InvoiceOpen          = "open"
	InvoicePaid          = "paid"
	InvoiceVoid          = "void"
	InvoiceUncollectible = "uncollectible"
)

const SubscriptionActive = "active"

// Sync log sources and outcomes.
const (
	SourceMercury             = "mercury"
	SourceStripe              = "stripe"
	SourceStripeSubscriptions = "stripe_subscriptions"

	SyncSuccess = "success"
	SyncError   = "error"
)

const dateLayout = "2006-01-02"

type (
	// Date is a calendar day in UTC. The zero value means "absent".
	Date struct {
		time.Time
	}

	BankTransaction struct {
		ID               string
		Amount           Money // positive = inflow, negative = outflow
		CounterpartyName string
		Note             string
		Kind             string
		Status           string
		CreatedAt        time.Time
		PostedDate       Date
		AccountID        string
	}

	Invoice struct {
		ID               string
		Number           string
		CustomerID       string
		CustomerName     string
		CustomerEmail    string
		AmountDue        Money
		AmountPaid       Money
		Currency         string
		Status           string
		DueDate          Date
		CreatedAt        time.Time
		PaidAt           time.Time // zero until the provider reports payment
		HostedInvoiceURL string
	}

	Subscription struct {
		ID                 string
		CustomerID         string
		CustomerName       string
		Status             string
		MonthlyAmount      Money
		Currency           string
		CurrentPeriodStart Date
		CurrentPeriodEnd   Date
	}

	LatePaymentNotification struct {
		InvoiceID   string
		NotifiedAt  time.Time
		EmailSent   bool
		EmailSentAt time.Time
	}

	SyncLogEntry struct {
		ID           int64
		RunID        string
		Source       string
		SyncedAt     time.Time
		RecordsCount int
		Status       string
		ErrorMessage string
	}
)

var (
	ErrNotFound      = errors.New("not found")
	ErrMissingEmail  = errors.New("invoice has no customer email")
	ErrInvalidRecord = errors.New("invalid record")
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its UTC calendar day.
func DateOf(t time.Time) Date {
	if t.IsZero() {
		return Date{}
	}
	y, m, d := t.UTC().Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses a YYYY-MM-DD string. Empty input yields the zero Date.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

// String renders the date as YYYY-MM-DD, or "" for the zero value.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

// MonthKey returns the YYYY-MM bucket the date falls in.
func (d Date) MonthKey() string {
	if d.IsZero() {
		return ""
	}
	return d.Format("2006-01")
}

func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

func (d Date) Before(o Date) bool { return d.Time.Before(o.Time) }
func (d Date) After(o Date) bool  { return d.Time.After(o.Time) }

// Within reports whether d lies in the inclusive range [start, end].
func (d Date) Within(start, end Date) bool {
	return !d.IsZero() && !d.Before(start) && !d.After(end)
}

// MarshalJSON overrides the embedded time.Time encoding with YYYY-MM-DD.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.String() + `"`), nil
}

// EffectiveDate is the posted date when present, otherwise the creation day.
func (t BankTransaction) EffectiveDate() Date {
	if !t.PostedDate.IsZero() {
		return t.PostedDate
	}
	return DateOf(t.CreatedAt)
}

func (t BankTransaction) Month() string {
	return t.EffectiveDate().MonthKey()
}

func (t BankTransaction) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return errors.New("transaction id cannot be empty")
	}
	return nil
}

func (i Invoice) Validate() error {
	if strings.TrimSpace(i.ID) == "" {
		return errors.New("invoice id cannot be empty")
	}
	if i.Status == InvoicePaid && i.AmountPaid.IsNegative() {
		return ErrInvalidRecord
	}
	return nil
}

// IsPaid reports whether the provider has reported payment.
func (i Invoice) IsPaid() bool {
	return i.Status == InvoicePaid && !i.PaidAt.IsZero()
}

// DaysOverdue counts whole days between the due date and today.
func (i Invoice) DaysOverdue(today Date) int {
	if i.DueDate.IsZero() || !i.DueDate.Before(today) {
		return 0
	}
	return int(today.Sub(i.DueDate.Time).Hours() / 24)
}

func (s Subscription) Validate() error {
	if strings.TrimSpace(s.ID) == "" {
		return errors.New("subscription id cannot be empty")
	}
	return nil
}
