package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"findash/internal/classify"
	"findash/internal/core"
	"findash/internal/log"
	"findash/internal/sheets/xlsx"
)

// cached serves fn's JSON encoding from the response cache, keyed by path
// and query. Errors are never cached.
func (s *Server) cached(fn func(r *http.Request) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := r.URL.Path + "?" + r.URL.RawQuery
		if body, ok := s.responses.Get(key); ok {
			w.Header().Set("X-Cache", "HIT")
			writeBody(w, http.StatusOK, body)
			return
		}

		v, err := fn(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		body, err := json.Marshal(v)
		if err != nil {
			writeError(w, r, fmt.Errorf("encode response: %w", err))
			return
		}
		s.responses.Set(key, body)
		w.Header().Set("X-Cache", "MISS")
		writeBody(w, http.StatusOK, body)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleStatus reports cache contents, recent syncs and job state.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	out := map[string]any{
		"http": map[string]any{
			"requests_total":    s.tracer.TotalRequests(),
			"rate_limited":      s.rateLimiter.Hits(),
			"rate_limit_client": s.rateLimiter.ActiveClients(),
		},
	}
	if s.deps.Caches != nil {
		out["caches"] = s.deps.Caches.Sizes()
	}
	if s.deps.Jobs != nil {
		out["jobs"] = s.deps.Jobs.Jobs()
	}
	if s.deps.Status != nil {
		counts, err := s.deps.Status.Counts(r.Context())
		if err != nil {
			writeError(w, r, fmt.Errorf("count records: %w", err))
			return
		}
		syncs, err := s.deps.Status.RecentSyncs(r.Context(), ParseLimit(r.URL.Query(), "limit", 10, 100))
		if err != nil {
			writeError(w, r, fmt.Errorf("recent syncs: %w", err))
			return
		}
		out["records"] = counts
		out["syncs"] = syncLogView(syncs)
	}
	writeJSON(w, http.StatusOK, out)
}

type syncLogJSON struct {
	RunID    string    `json:"run_id"`
	Source   string    `json:"source"`
	SyncedAt time.Time `json:"synced_at"`
	Records  int       `json:"records"`
	Status   string    `json:"status"`
	Error    string    `json:"error,omitempty"`
}

func syncLogView(entries []core.SyncLogEntry) []syncLogJSON {
	out := make([]syncLogJSON, 0, len(entries))
	for _, e := range entries {
		out = append(out, syncLogJSON{
			RunID:    e.RunID,
			Source:   e.Source,
			SyncedAt: e.SyncedAt,
			Records:  e.RecordsCount,
			Status:   e.Status,
			Error:    e.ErrorMessage,
		})
	}
	return out
}

// handleBalances combines live provider balances with the cached
// year-to-date figures. A failing provider is reported under "warnings"
// and contributes zero.
func (s *Server) handleBalances(w http.ResponseWriter, r *http.Request) {
	ytd, err := s.deps.Engine.YTD(r.Context())
	if err != nil {
		writeError(w, r, fmt.Errorf("year to date: %w", err))
		return
	}

	var b core.Balances
	warnings := []string{}
	if s.deps.Balances != nil {
		b, err = s.deps.Balances.Balances(r.Context())
		if err != nil {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Balance lookup incomplete", log.FieldError, err)
			warnings = append(warnings, err.Error())
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"bank":                    b.Bank,
		"invoicing_available":     b.InvoicingAvailable,
		"invoicing_pending":       b.InvoicingPending,
		"run_rate_arr":            ytd.RunRateARR,
		"last_month_collected":    ytd.LastMonthCollected,
		"ytd_since":               ytd.Since,
		"ytd_collected":           ytd.Collected,
		"ytd_outflows":            ytd.Outflows,
		"ytd_owner_distributions": ytd.OwnerDistributions,
		"warnings":                warnings,
	})
}

func (s *Server) flows(r *http.Request) (any, error) {
	return s.deps.Engine.MonthlyFlows(r.Context())
}

func (s *Server) inflows(r *http.Request) (any, error) {
	return s.deps.Engine.MonthlyInflows(r.Context())
}

func (s *Server) spend(r *http.Request) (any, error) {
	return s.deps.Engine.SpendByCategory(r.Context())
}

// spendDetail narrows the vendor breakdown by month, then by category.
func (s *Server) spendDetail(r *http.Request) (any, error) {
	q := r.URL.Query()
	month, err := ParseMonth(q, "month")
	if err != nil {
		return nil, err
	}
	categoryName := strings.TrimSpace(q.Get("category"))

	detail, err := s.deps.Engine.SpendDetail(r.Context())
	if err != nil {
		return nil, err
	}
	if month == "" {
		if categoryName != "" {
			return nil, badRequest("category requires month")
		}
		return detail, nil
	}

	byCategory := detail[month]
	if categoryName == "" {
		if byCategory == nil {
			return map[string][]core.VendorAmount{}, nil
		}
		return byCategory, nil
	}
	category, ok := classify.ParseCategory(categoryName)
	if !ok {
		return nil, badRequest("unknown category " + categoryName)
	}
	vendors := byCategory[category]
	if vendors == nil {
		vendors = []core.VendorAmount{}
	}
	return vendors, nil
}

func (s *Server) daysToPay(r *http.Request) (any, error) {
	return s.deps.Engine.AvgDaysToPay(r.Context())
}

func (s *Server) revenueByClient(r *http.Request) (any, error) {
	return s.deps.Engine.RevenueByClient(r.Context())
}

func (s *Server) activeClients(r *http.Request) (any, error) {
	return s.deps.Engine.ActiveClientRevenue(r.Context())
}

func (s *Server) openByClient(r *http.Request) (any, error) {
	return s.deps.Engine.OpenInvoicesByClient(r.Context())
}

type openInvoiceJSON struct {
	ID               string     `json:"id"`
	Number           string     `json:"number"`
	CustomerEmail    string     `json:"customer_email"`
	AmountDue        core.Money `json:"amount_due"`
	DueDate          core.Date  `json:"due_date"`
	HostedInvoiceURL string     `json:"hosted_invoice_url"`
	IsOverdue        bool       `json:"is_overdue"`
	EmailSent        bool       `json:"email_sent"`
}

// handleOpenInvoices lists one client's open invoices. It bypasses the
// response cache because email_sent changes with every reminder.
func (s *Server) handleOpenInvoices(w http.ResponseWriter, r *http.Request) {
	client := strings.TrimSpace(r.URL.Query().Get("client"))
	if client == "" {
		writeError(w, r, badRequest("client parameter required"))
		return
	}

	invs, err := s.deps.Engine.OpenInvoicesForClient(r.Context(), client)
	if err != nil {
		writeError(w, r, err)
		return
	}

	today := s.deps.Engine.Today()
	out := make([]openInvoiceJSON, 0, len(invs))
	for _, inv := range invs {
		out = append(out, openInvoiceJSON{
			ID:               inv.ID,
			Number:           inv.Number,
			CustomerEmail:    inv.CustomerEmail,
			AmountDue:        inv.AmountDue,
			DueDate:          inv.DueDate,
			HostedInvoiceURL: inv.HostedInvoiceURL,
			IsOverdue:        !inv.DueDate.IsZero() && inv.DueDate.Before(today),
			EmailSent:        inv.EmailSent,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// handleExportXLSX downloads the dashboard snapshot as a workbook.
func (s *Server) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	snap, err := s.deps.Engine.Snapshot(r.Context())
	if err != nil {
		writeError(w, r, fmt.Errorf("dashboard snapshot: %w", err))
		return
	}

	var buf bytes.Buffer
	if err := xlsx.Write(&buf, snap); err != nil {
		writeError(w, r, err)
		return
	}

	name := fmt.Sprintf("findash_%s.xlsx", snap.GeneratedAt.UTC().Format("20060102_150405"))
	w.Header().Set("Content-Type", xlsx.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
