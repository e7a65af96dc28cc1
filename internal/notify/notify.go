// Package notify defines the delivery ports for chat and email plus the
// builders that turn aggregates into messages.
//
// A Message is transport neutral: the Slack poster renders it as Block Kit,
// the AMQP publisher ships it as JSON, and the log poster prints it.
package notify

import (
	"context"
	"log/slog"
	"strings"

	"findash/internal/core"
)

// Message kinds.
const (
	KindLatePayment   = "late_payment"
	KindWeeklySummary = "weekly_summary"
	KindMonthToDate   = "month_to_date"
	KindOverdueReport = "overdue_report"
	KindText          = "text"
)

// Action ids carried by message buttons.
const (
	ActionSendReminder     = "send_reminder_email"
	ActionRemindAllOverdue = "send_all_overdue_reminders"
)

type Field struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

type Action struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Value string `json:"value,omitempty"`
	Style string `json:"style,omitempty"`

	// Confirm, when set, asks for confirmation with this text first.
	Confirm string `json:"confirm,omitempty"`
}

type Message struct {
	Kind     string   `json:"kind"`
	Title    string   `json:"title"`
	Fields   []Field  `json:"fields,omitempty"`
	Sections []string `json:"sections,omitempty"`
	Actions  []Action `json:"actions,omitempty"`
}

// Text renders m as plain markdown-ish text, used as the chat fallback and
// by the log poster.
func (m Message) Text() string {
	var b strings.Builder
	b.WriteString(m.Title)
	for _, f := range m.Fields {
		b.WriteString("\n")
		b.WriteString(f.Label)
		b.WriteString(": ")
		b.WriteString(strings.ReplaceAll(f.Value, "\n", " "))
	}
	for _, s := range m.Sections {
		b.WriteString("\n")
		b.WriteString(s)
	}
	return b.String()
}

// Poster delivers a chat message.
type Poster interface {
	Post(ctx context.Context, msg Message) error
}

// Mailer sends a payment reminder for inv to the given address.
type Mailer interface {
	SendReminder(ctx context.Context, to string, inv core.Invoice) error
}

// LogPoster writes messages to the log instead of a chat service.
type LogPoster struct {
	Logger *slog.Logger
}

func (p LogPoster) Post(ctx context.Context, msg Message) error {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "Chat message", "kind", msg.Kind, "text", msg.Text())
	return nil
}
