// Package email sends payment reminder emails over SMTP.
package email

import (
	"context"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"log/slog"
	texttemplate "text/template"
	"time"

	"github.com/wneessen/go-mail"

	"findash/internal/core"
	"findash/internal/notify"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var (
	textTemplate = texttemplate.Must(texttemplate.ParseFS(templateFS, "templates/reminder.txt.tmpl"))
	htmlTemplate = htmltemplate.Must(htmltemplate.ParseFS(templateFS, "templates/reminder.html.tmpl"))
)

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	CC       []string
	Timeout  time.Duration
}

type sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// Mailer sends reminders through an authenticated STARTTLS submission
// server.
type Mailer struct {
	cfg    Config
	client sender
}

func NewMailer(cfg Config) (*Mailer, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	client, err := mail.NewClient(cfg.Host,
		mail.WithPort(cfg.Port),
		mail.WithTLSPolicy(mail.TLSMandatory),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.Username),
		mail.WithPassword(cfg.Password),
		mail.WithTimeout(cfg.Timeout),
	)
	if err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}
	return &Mailer{cfg: cfg, client: client}, nil
}

// buildMessage renders the reminder for inv as a text body with an HTML
// alternative.
func (m *Mailer) buildMessage(to string, inv core.Invoice) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(m.cfg.From); err != nil {
		return nil, fmt.Errorf("set from: %w", err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("set to %q: %w", to, err)
	}
	if len(m.cfg.CC) > 0 {
		if err := msg.Cc(m.cfg.CC...); err != nil {
			return nil, fmt.Errorf("set cc: %w", err)
		}
	}
	msg.Subject(notify.ReminderSubject(inv))

	data := notify.NewReminderData(inv)
	if err := msg.SetBodyTextTemplate(textTemplate, data); err != nil {
		return nil, fmt.Errorf("render text body: %w", err)
	}
	if err := msg.AddAlternativeHTMLTemplate(htmlTemplate, data); err != nil {
		return nil, fmt.Errorf("render html body: %w", err)
	}
	return msg, nil
}

func (m *Mailer) SendReminder(ctx context.Context, to string, inv core.Invoice) error {
	if to == "" {
		return core.ErrMissingEmail
	}
	msg, err := m.buildMessage(to, inv)
	if err != nil {
		return err
	}
	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send reminder for %s: %w", inv.ID, err)
	}
	slog.InfoContext(ctx, "Reminder email sent", "invoice_id", inv.ID, "to", to, "cc", len(m.cfg.CC))
	return nil
}
