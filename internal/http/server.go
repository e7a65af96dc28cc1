// Package http serves the dashboard's JSON read API, the manual job
// triggers, reminder actions and the Slack interactivity endpoint.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"findash/internal/analytics"
	"findash/internal/cache"
	"findash/internal/core"
	"findash/internal/log"
	"findash/internal/middleware/ratelimit"
	"findash/internal/middleware/security"
	"findash/internal/middleware/trace"
	"findash/internal/notify"
	"findash/internal/worker"
)

type (
	// Analytics is the read side of the aggregation engine.
	Analytics interface {
		Today() core.Date
		YTD(ctx context.Context) (core.YTDFigures, error)
		MonthlyFlows(ctx context.Context) ([]core.MonthlyFlow, error)
		MonthlyInflows(ctx context.Context) ([]core.MonthAmount, error)
		SpendByCategory(ctx context.Context) (analytics.MonthlySpend, error)
		SpendDetail(ctx context.Context) (analytics.MonthlySpendDetail, error)
		AvgDaysToPay(ctx context.Context) ([]core.ClientDaysToPay, error)
		RevenueByClient(ctx context.Context) ([]core.ClientAmount, error)
		ActiveClientRevenue(ctx context.Context) ([]core.ClientAmount, error)
		OpenInvoicesByClient(ctx context.Context) ([]core.ClientOpenInvoices, error)
		OpenInvoicesForClient(ctx context.Context, customerName string) ([]core.OpenInvoice, error)
		Snapshot(ctx context.Context) (core.DashboardSnapshot, error)
	}

	BalanceReader interface {
		Balances(ctx context.Context) (core.Balances, error)
	}

	Reminders interface {
		SendReminder(ctx context.Context, invoiceID string) (core.Invoice, error)
		RemindAllOverdue(ctx context.Context) (core.BulkReminderResult, error)
	}

	// JobTrigger starts scheduled jobs on demand.
	JobTrigger interface {
		Trigger(name string) error
		Jobs() []worker.JobInfo
	}

	SyncStatus interface {
		RecentSyncs(ctx context.Context, limit int) ([]core.SyncLogEntry, error)
		Counts(ctx context.Context) (core.SyncCounts, error)
	}
)

// Deps are the collaborators the server calls. Engine is required; a nil
// optional dependency turns its endpoints into 503 responses.
type Deps struct {
	Engine    Analytics
	Balances  BalanceReader
	Reminders Reminders
	Jobs      JobTrigger
	Status    SyncStatus

	// Poster receives the outcome of actions started from chat buttons.
	Poster             notify.Poster
	SlackSigningSecret string

	DashboardUser string
	DashboardPass string

	// Caches, when set, owns the response cache so a sync can invalidate it.
	Caches   *cache.Manager
	CacheTTL time.Duration

	Logger *log.Logger
}

type Server struct {
	http.Server
	deps        Deps
	logger      *log.Logger
	responses   *cache.LRUCache[[]byte]
	rateLimiter *ratelimit.Limiter
	tracer      *trace.Middleware
	started     time.Time

	// background tracks action goroutines started from chat buttons.
	background   sync.WaitGroup
	shutdownOnce sync.Once
}

const (
	responseCacheSize = 200
	actionTimeout     = 10 * time.Minute
)

// publicPaths skip basic auth: health probes, and Slack, which signs its
// requests instead.
var publicPaths = []string{"/healthz", "/slack/actions"}

func NewServer(addr string, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	ttl := deps.CacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	s := &Server{
		deps:        deps,
		logger:      logger,
		responses:   cache.NewLRUCache[[]byte](responseCacheSize, ttl),
		rateLimiter: ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		tracer:      trace.NewMiddleware(logger, security.ExtractClientIP),
		started:     time.Now(),
	}
	if deps.Caches != nil {
		deps.Caches.Register("api_responses", s.responses)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/balances", s.handleBalances)
	mux.HandleFunc("GET /api/flows", s.cached(s.flows))
	mux.HandleFunc("GET /api/inflows", s.cached(s.inflows))
	mux.HandleFunc("GET /api/spend", s.cached(s.spend))
	mux.HandleFunc("GET /api/spend/detail", s.cached(s.spendDetail))
	mux.HandleFunc("GET /api/days-to-pay", s.cached(s.daysToPay))
	mux.HandleFunc("GET /api/revenue-by-client", s.cached(s.revenueByClient))
	mux.HandleFunc("GET /api/active-clients", s.cached(s.activeClients))
	mux.HandleFunc("GET /api/invoices/open", s.handleOpenInvoices)
	mux.HandleFunc("GET /api/invoices/open-by-client", s.cached(s.openByClient))
	mux.HandleFunc("GET /api/export.xlsx", s.handleExportXLSX)

	limited := s.rateLimiter.Middleware(security.ExtractClientIP, s.onRateLimit)
	mux.Handle("POST /api/invoices/send-reminder", limited(http.HandlerFunc(s.handleSendReminder)))
	mux.Handle("POST /api/invoices/remind-all-overdue", limited(http.HandlerFunc(s.handleRemindAllOverdue)))
	mux.Handle("POST /api/jobs/{name}", limited(http.HandlerFunc(s.handleTriggerJob)))
	mux.HandleFunc("GET /api/jobs", s.handleListJobs)
	mux.HandleFunc("POST /slack/actions", s.handleSlackAction)

	var handler http.Handler = mux
	handler = security.BasicAuth(deps.DashboardUser, deps.DashboardPass, publicPaths...)(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = s.tracer.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       2 * time.Minute,
	}
	return s
}

// Shutdown stops accepting requests, then waits for chat-button actions
// still in flight.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		err = s.Server.Shutdown(ctx)

		done := make(chan struct{})
		go func() {
			s.background.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			s.logger.Warn("Shutdown timed out waiting for background actions")
		}
	})
	return err
}

// InvalidateCache drops every cached API response.
func (s *Server) InvalidateCache() {
	s.responses.Clear()
}
