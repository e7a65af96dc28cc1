package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"findash/internal/amqp"
	"findash/internal/analytics"
	"findash/internal/cache"
	"findash/internal/config"
	apphttp "findash/internal/http"
	"findash/internal/log"
	"findash/internal/notify"
	"findash/internal/notify/email"
	"findash/internal/notify/slack"
	"findash/internal/providers/mercury"
	"findash/internal/providers/stripe"
	"findash/internal/services"
	"findash/internal/sheets"
	gsheet "findash/internal/sheets/google"
	"findash/internal/sheets/xlsx"
	"findash/internal/storage"
	"findash/internal/worker"
)

// cacheCleanupInterval is how often expired cached responses are swept.
const cacheCleanupInterval = time.Minute

// App is the assembled application. Optional collaborators are nil when
// their provider or transport is not configured.
type App struct {
	Config *config.Config
	Logger *log.Logger

	Store     *storage.SQLiteRepository
	Engine    *analytics.Engine
	Sync      *services.SyncService
	Alerts    *services.AlertService
	Reports   *services.ReportService
	Reminders *services.ReminderService
	Scheduler *worker.Scheduler
	Caches    *cache.Manager

	Poster   notify.Poster
	Exporter sheets.DashboardExporter

	closers []func() error
}

// NewApp wires storage, providers, delivery and services from cfg.
func NewApp(ctx context.Context, cfg *config.Config, logger *log.Logger) (*App, error) {
	app := &App{Config: cfg, Logger: logger}

	store, err := InitSQLite(logger.WithComponent(log.ComponentStorage), cfg.SQLiteDBPath)
	if err != nil {
		return nil, err
	}
	app.Store = store
	app.closers = append(app.closers, store.Close)

	rules, err := config.LoadCounterpartyRules(cfg.CounterpartyRulesFile)
	if err != nil {
		app.Close()
		return nil, err
	}
	opts := analytics.Options{Rules: rules, ChartStart: cfg.ChartStartMonth()}
	if cfg.YearStart != "" {
		opts.YearStart = cfg.YearStartDate(time.Now())
	}
	app.Engine, err = analytics.NewEngine(store, opts)
	if err != nil {
		app.Close()
		return nil, err
	}

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	var (
		bank          services.BankSource
		bankBalance   services.BankBalance
		invoicing     services.InvoicingSource
		invoiceSource services.InvoiceFetcher
		invBalance    services.InvoicingBalance
	)
	if cfg.MercuryAPIToken != "" {
		c := mercury.NewClient(cfg.MercuryBaseURL, cfg.MercuryAPIToken, httpClient)
		bank, bankBalance = c, c
	} else {
		logger.Warn("Bank provider disabled - no MERCURY_API_TOKEN provided")
	}
	if cfg.StripeAPIKey != "" {
		c := stripe.NewClient(cfg.StripeBaseURL, cfg.StripeAPIKey, httpClient)
		invoicing, invoiceSource, invBalance = c, c, c
	} else {
		logger.Warn("Invoicing provider disabled - no STRIPE_API_KEY provided")
	}

	app.Poster, err = app.newPoster()
	if err != nil {
		app.Close()
		return nil, err
	}

	app.Exporter, err = app.newExporter(ctx)
	if err != nil {
		app.Close()
		return nil, err
	}

	app.Sync = services.NewSyncService(bank, invoicing, store)
	app.Alerts = services.NewAlertService(app.Engine, store, app.Poster)
	app.Reports = services.NewReportService(app.Engine, app.Poster, app.Exporter, bankBalance, invBalance)

	if invoiceSource != nil && cfg.SMTPUsername != "" {
		mailer, err := email.NewMailer(email.Config{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.EmailFrom,
			CC:       cfg.EmailCC,
		})
		if err != nil {
			app.Close()
			return nil, err
		}
		app.Reminders = services.NewReminderService(invoiceSource, app.Engine, mailer, store)
	} else {
		logger.Warn("Reminder emails disabled - invoicing provider and SMTP credentials are both required")
	}

	app.Caches = cache.NewManager(logger.WithComponent(log.ComponentCache))
	app.Sync.OnSynced(app.Caches.InvalidateAll)

	app.Scheduler = worker.NewScheduler(logger.WithComponent(log.ComponentScheduler))
	err = worker.RegisterStandardJobs(app.Scheduler, worker.Schedules{
		SyncInterval:  cfg.SyncInterval,
		LateCheck:     cfg.LateCheckSpec(),
		WeeklySummary: cfg.WeeklySummarySpec(),
		MonthToDate:   cfg.MTDReportSchedule,
		OverdueReport: cfg.OverdueReportSchedule,
		Export:        cfg.SheetsExportSchedule,
		ExportEnabled: app.Exporter != nil,
	}, app.Sync, app.Alerts, app.Reports)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("register jobs: %w", err)
	}

	return app, nil
}

// newPoster picks the chat transport. With amqp, messages are queued and
// the relay delivers them to Slack.
func (a *App) newPoster() (notify.Poster, error) {
	logger := a.Logger.WithComponent(log.ComponentNotify)
	switch a.Config.ChatTransport {
	case config.ChatSlack:
		logger.Info("Chat messages go to Slack", log.FieldTransport, config.ChatSlack, "channel", a.Config.SlackChannelID)
		return slack.NewPoster(a.Config.SlackBotToken, a.Config.SlackChannelID), nil
	case config.ChatAMQP:
		client, err := amqp.NewClient(a.Config.AMQPURL, a.Config.AMQPExchange, a.Config.AMQPQueue)
		if err != nil {
			return nil, fmt.Errorf("connect to amqp: %w", err)
		}
		a.closers = append(a.closers, client.Close)
		logger.Info("Chat messages go to the broker", log.FieldTransport, config.ChatAMQP, "queue", a.Config.AMQPQueue)
		return client, nil
	default:
		logger.Info("Chat messages go to the log", log.FieldTransport, config.ChatLog)
		return notify.LogPoster{Logger: logger.Logger}, nil
	}
}

// newExporter prefers Google Sheets, then a local workbook. It returns nil
// when neither is configured.
func (a *App) newExporter(ctx context.Context) (sheets.DashboardExporter, error) {
	cfg := a.Config
	switch {
	case cfg.GoogleSpreadsheetID != "":
		exp, err := gsheet.NewExporter(ctx, gsheet.Config{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SheetName:       cfg.GoogleSheetName,
			CredentialsJSON: cfg.GoogleServiceAccountJSON,
			CredentialsFile: cfg.GoogleServiceAccountFile,
		})
		if err != nil {
			return nil, fmt.Errorf("google sheets exporter: %w", err)
		}
		return exp, nil
	case cfg.XLSXExportPath != "":
		a.Logger.Info("Dashboard export writes a workbook", "path", cfg.XLSXExportPath)
		return xlsx.NewExporter(cfg.XLSXExportPath), nil
	default:
		a.Logger.Info("Dashboard export disabled - no GOOGLE_SPREADSHEET_ID or XLSX_EXPORT_PATH provided")
		return nil, nil
	}
}

// NewServer builds the HTTP server over the app's services.
func (a *App) NewServer() *apphttp.Server {
	deps := apphttp.Deps{
		Engine:             a.Engine,
		Balances:           a.Reports,
		Jobs:               a.Scheduler,
		Status:             a.Store,
		Poster:             a.Poster,
		SlackSigningSecret: a.Config.SlackSigningSecret,
		DashboardUser:      a.Config.DashboardUser,
		DashboardPass:      a.Config.DashboardPass,
		Caches:             a.Caches,
		CacheTTL:           a.Config.CacheTTL,
		Logger:             a.Logger,
	}
	if a.Reminders != nil {
		deps.Reminders = a.Reminders
	}
	return apphttp.NewServer(":"+a.Config.Port, deps)
}

// Close releases the broker connection and the database.
func (a *App) Close() error {
	if a.Caches != nil {
		a.Caches.Stop()
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// StartBackground starts the cache sweeper and the job scheduler.
func (a *App) StartBackground(ctx context.Context) error {
	a.Caches.StartCleanup(cacheCleanupInterval)
	return a.Scheduler.Start(ctx)
}
