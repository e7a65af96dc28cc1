package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Chat transports.
const (
	ChatLog   = "log"
	ChatSlack = "slack"
	ChatAMQP  = "amqp"
)

type Config struct {
	LogLevel string

	// HTTP Server
	Port          string
	DashboardUser string
	DashboardPass string
	CacheTTL      time.Duration

	// Database
	SQLiteDBPath string

	// Providers
	MercuryAPIToken string
	MercuryBaseURL  string
	StripeAPIKey    string
	StripeBaseURL   string
	HTTPTimeout     time.Duration

	// Chat delivery
	ChatTransport      string
	SlackBotToken      string
	SlackChannelID     string
	SlackSigningSecret string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Email
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	EmailFrom    string
	EmailCC      []string

	// Google Sheets export
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountFile string
	GoogleServiceAccountJSON string

	// XLSXExportPath is where the export job saves a workbook when no
	// spreadsheet is configured.
	XLSXExportPath string

	// Scheduler
	SyncInterval          time.Duration
	LateCheckHour         int
	WeeklySummaryDay      string
	WeeklySummaryHour     int
	MTDReportSchedule     string
	OverdueReportSchedule string
	SheetsExportSchedule  string

	// Analytics
	YearStart             string
	ChartStart            string
	CounterpartyRulesFile string
}

func Load() *Config {
	cfg := &Config{
		LogLevel: getEnv("LOG_LEVEL", "info"),

		Port:          getEnv("PORT", "8081"),
		DashboardUser: getEnv("DASHBOARD_USER", ""),
		DashboardPass: getEnv("DASHBOARD_PASS", ""),
		CacheTTL:      getEnvDuration("CACHE_TTL", 5*time.Minute),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/findash.db"),

		MercuryAPIToken: getEnv("MERCURY_API_TOKEN", ""),
		MercuryBaseURL:  getEnv("MERCURY_BASE_URL", "https://backend.mercury.com/api/v1"),
		StripeAPIKey:    getEnv("STRIPE_API_KEY", ""),
		StripeBaseURL:   getEnv("STRIPE_BASE_URL", "https://api.stripe.com/v1"),
		HTTPTimeout:     getEnvDuration("HTTP_TIMEOUT", 30*time.Second),

		ChatTransport:      getEnv("CHAT_TRANSPORT", ChatLog),
		SlackBotToken:      getEnv("SLACK_BOT_TOKEN", ""),
		SlackChannelID:     getEnv("SLACK_CHANNEL_ID", ""),
		SlackSigningSecret: getEnv("SLACK_SIGNING_SECRET", ""),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "findash"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "chat_notifications"),

		SMTPHost:     getEnv("SMTP_HOST", "smtp.gmail.com"),
		SMTPPort:     getEnvInt("SMTP_PORT", 587),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		EmailFrom:    getEnv("EMAIL_FROM", ""),
		EmailCC:      getEnvList("EMAIL_CC"),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:          getEnv("GOOGLE_SHEET_NAME", "Dashboard"),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),

		XLSXExportPath: getEnv("XLSX_EXPORT_PATH", ""),

		SyncInterval:          getEnvDuration("SYNC_INTERVAL", 30*time.Minute),
		LateCheckHour:         getEnvInt("LATE_CHECK_HOUR", 9),
		WeeklySummaryDay:      strings.ToLower(getEnv("WEEKLY_SUMMARY_DAY", "mon")),
		WeeklySummaryHour:     getEnvInt("WEEKLY_SUMMARY_HOUR", 9),
		MTDReportSchedule:     getEnv("MTD_REPORT_SCHEDULE", "0 17 * * 5"),
		OverdueReportSchedule: getEnv("OVERDUE_REPORT_SCHEDULE", "0 10 * * 1"),
		SheetsExportSchedule:  getEnv("SHEETS_EXPORT_SCHEDULE", "30 6 * * *"),

		YearStart:             getEnv("YEAR_START", ""),
		ChartStart:            getEnv("CHART_START", "2025-04"),
		CounterpartyRulesFile: getEnv("COUNTERPARTY_RULES_FILE", ""),
	}

	return cfg
}

var weekdays = []string{"sun", "mon", "tue", "wed", "thu", "fri", "sat"}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.SQLiteDBPath == "" {
		errors = append(errors, "SQLite database path cannot be empty")
	} else {
		dir := filepath.Dir(c.SQLiteDBPath)
		if dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	}

	for name, raw := range map[string]string{"Mercury": c.MercuryBaseURL, "Stripe": c.StripeBaseURL} {
		if u, err := url.Parse(raw); err != nil || u.Scheme == "" || u.Host == "" {
			errors = append(errors, fmt.Sprintf("invalid %s base URL '%s'", name, raw))
		}
	}
	if c.HTTPTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid HTTP timeout %v: must be at least 1 second", c.HTTPTimeout))
	}

	switch c.ChatTransport {
	case ChatLog:
	case ChatSlack:
		if c.SlackBotToken == "" || c.SlackChannelID == "" {
			errors = append(errors, "SLACK_BOT_TOKEN and SLACK_CHANNEL_ID are required when CHAT_TRANSPORT is slack")
		}
	case ChatAMQP:
		if c.AMQPURL == "" {
			errors = append(errors, "AMQP URL is required when CHAT_TRANSPORT is amqp")
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid chat transport '%s': must be one of [%s %s %s]", c.ChatTransport, ChatLog, ChatSlack, ChatAMQP))
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.SMTPUsername != "" && c.EmailFrom == "" {
		errors = append(errors, "EMAIL_FROM is required when SMTP credentials are provided")
	}
	if c.SMTPPort < 1 || c.SMTPPort > 65535 {
		errors = append(errors, fmt.Sprintf("invalid SMTP port %d", c.SMTPPort))
	}

	if (c.DashboardUser == "") != (c.DashboardPass == "") {
		errors = append(errors, "DASHBOARD_USER and DASHBOARD_PASS must be set together")
	}

	if c.GoogleSpreadsheetID != "" && c.GoogleServiceAccountFile == "" && c.GoogleServiceAccountJSON == "" {
		errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_SERVICE_ACCOUNT_JSON must be provided for sheets export")
	}
	if c.GoogleServiceAccountFile != "" {
		if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
		}
	}

	if c.XLSXExportPath != "" && !strings.EqualFold(filepath.Ext(c.XLSXExportPath), ".xlsx") {
		errors = append(errors, fmt.Sprintf("invalid XLSX_EXPORT_PATH '%s': must end in .xlsx", c.XLSXExportPath))
	}

	if c.SyncInterval < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at least 1 minute", c.SyncInterval))
	} else if c.SyncInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at most 24 hours", c.SyncInterval))
	}
	for name, h := range map[string]int{"late check hour": c.LateCheckHour, "weekly summary hour": c.WeeklySummaryHour} {
		if h < 0 || h > 23 {
			errors = append(errors, fmt.Sprintf("invalid %s %d: must be between 0 and 23", name, h))
		}
	}
	if !contains(weekdays, c.WeeklySummaryDay) {
		errors = append(errors, fmt.Sprintf("invalid weekly summary day '%s': must be one of %v", c.WeeklySummaryDay, weekdays))
	}
	for name, spec := range map[string]string{
		"MTD_REPORT_SCHEDULE":     c.MTDReportSchedule,
		"OVERDUE_REPORT_SCHEDULE": c.OverdueReportSchedule,
		"SHEETS_EXPORT_SCHEDULE":  c.SheetsExportSchedule,
	} {
		if _, err := cron.ParseStandard(spec); err != nil {
			errors = append(errors, fmt.Sprintf("invalid %s '%s': %v", name, spec, err))
		}
	}

	if c.YearStart != "" {
		if _, err := time.Parse("2006-01-02", c.YearStart); err != nil {
			errors = append(errors, fmt.Sprintf("invalid YEAR_START '%s': must be YYYY-MM-DD", c.YearStart))
		}
	}
	if _, err := time.Parse("2006-01", c.ChartStart); err != nil {
		errors = append(errors, fmt.Sprintf("invalid CHART_START '%s': must be YYYY-MM", c.ChartStart))
	}
	if c.CounterpartyRulesFile != "" {
		if _, err := os.Stat(c.CounterpartyRulesFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("counterparty rules file does not exist: %s", c.CounterpartyRulesFile))
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// WeeklySummarySpec renders the weekly summary trigger as a cron spec.
func (c *Config) WeeklySummarySpec() string {
	return fmt.Sprintf("0 %d * * %s", c.WeeklySummaryHour, c.WeeklySummaryDay)
}

// LateCheckSpec renders the daily late-payment check as a cron spec.
func (c *Config) LateCheckSpec() string {
	return fmt.Sprintf("0 %d * * *", c.LateCheckHour)
}

// YearStartDate resolves YEAR_START, defaulting to January 1st of now's year.
func (c *Config) YearStartDate(now time.Time) time.Time {
	if c.YearStart != "" {
		if t, err := time.Parse("2006-01-02", c.YearStart); err == nil {
			return t
		}
	}
	return time.Date(now.UTC().Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
}

// ExportEnabled reports whether a dashboard export destination is set.
func (c *Config) ExportEnabled() bool {
	return c.GoogleSpreadsheetID != "" || c.XLSXExportPath != ""
}

// ChartStartMonth parses CHART_START. Validate guarantees it is well formed.
func (c *Config) ChartStartMonth() time.Time {
	t, _ := time.Parse("2006-01", c.ChartStart)
	return t
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvList splits a comma separated variable, dropping blanks.
func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
