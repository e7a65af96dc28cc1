package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"findash/internal/core"
	"findash/internal/log"
	"findash/internal/middleware/security"
	"findash/internal/notify"
	"findash/internal/notify/slack"
)

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, security.ExtractClientIP(r), log.FieldPath, r.URL.Path)
	writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "rate limit exceeded, try again later"})
}

func (s *Server) handleSendReminder(w http.ResponseWriter, r *http.Request) {
	if s.deps.Reminders == nil {
		writeError(w, r, fmt.Errorf("reminders: %w", errUnavailable))
		return
	}

	body := NewRequestBodyParser(r)
	if err := body.Parse(); err != nil {
		writeError(w, r, badRequest("invalid request body"))
		return
	}
	invoiceID := body.Get("invoice_id")
	if invoiceID == "" {
		writeError(w, r, badRequest("invoice_id required"))
		return
	}

	inv, err := s.deps.Reminders.SendReminder(r.Context(), invoiceID)
	switch {
	case err == nil:
	case errors.Is(err, core.ErrMissingEmail):
		writeError(w, r, badRequest("no email address on file for this customer"))
		return
	case errors.Is(err, core.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "could not fetch invoice " + invoiceID + " from the invoicing provider"})
		return
	default:
		writeError(w, r, fmt.Errorf("failed to send email: %w", err))
		return
	}

	s.InvalidateCache()
	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"invoice_id": inv.ID,
		"email":      inv.CustomerEmail,
	})
}

func (s *Server) handleRemindAllOverdue(w http.ResponseWriter, r *http.Request) {
	if s.deps.Reminders == nil {
		writeError(w, r, fmt.Errorf("reminders: %w", errUnavailable))
		return
	}

	result, err := s.deps.Reminders.RemindAllOverdue(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.InvalidateCache()
	writeJSON(w, http.StatusOK, struct {
		Success bool `json:"success"`
		core.BulkReminderResult
	}{Success: true, BulkReminderResult: result})
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	if s.deps.Jobs == nil {
		writeError(w, r, fmt.Errorf("scheduler: %w", errUnavailable))
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Jobs.Jobs())
}

// handleTriggerJob starts a job in the background and answers 202; the
// outcome lands in the log and in GET /api/jobs.
func (s *Server) handleTriggerJob(w http.ResponseWriter, r *http.Request) {
	if s.deps.Jobs == nil {
		writeError(w, r, fmt.Errorf("scheduler: %w", errUnavailable))
		return
	}
	name := r.PathValue("name")
	if err := s.deps.Jobs.Trigger(name); err != nil {
		writeError(w, r, err)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Job triggered over HTTP",
		log.FieldJob, name, log.FieldOperation, log.OpTrigger)
	writeJSON(w, http.StatusAccepted, map[string]string{"job": name, "status": "started"})
}

// handleSlackAction answers Slack within its three second window and runs
// the requested action afterwards, posting the outcome to chat.
func (s *Server) handleSlackAction(w http.ResponseWriter, r *http.Request) {
	if s.deps.SlackSigningSecret == "" || s.deps.Reminders == nil {
		writeError(w, r, fmt.Errorf("slack actions: %w", errUnavailable))
		return
	}

	press, err := slack.ParseButtonPress(r, s.deps.SlackSigningSecret)
	switch {
	case errors.Is(err, slack.ErrNoAction):
		w.WriteHeader(http.StatusOK)
		return
	case err != nil:
		log.FromContext(r.Context()).WarnContext(r.Context(), "Rejected Slack action", log.FieldError, err)
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid slack request"})
		return
	}

	logger := log.FromContext(r.Context())
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), actionTimeout)
	s.background.Add(1)
	go func() {
		defer s.background.Done()
		defer cancel()
		s.runButtonAction(ctx, logger, press)
	}()
	w.WriteHeader(http.StatusOK)
}

func (s *Server) runButtonAction(ctx context.Context, logger *log.Logger, press slack.ButtonPress) {
	logger.InfoContext(ctx, "Slack action received", "action_id", press.ActionID, "user", press.UserName)

	var msg notify.Message
	switch press.ActionID {
	case notify.ActionSendReminder:
		msg = s.reminderOutcome(ctx, strings.TrimSpace(press.Value))
	case notify.ActionRemindAllOverdue:
		result, err := s.deps.Reminders.RemindAllOverdue(ctx)
		if err != nil {
			msg = notify.Note(fmt.Sprintf(":x: Failed to send reminders: %v", err))
		} else {
			msg = notify.ReminderResultNote(result)
		}
	default:
		logger.WarnContext(ctx, "Unknown Slack action", "action_id", press.ActionID)
		return
	}
	s.InvalidateCache()

	if s.deps.Poster == nil {
		return
	}
	if err := s.deps.Poster.Post(ctx, msg); err != nil {
		logger.ErrorContext(ctx, "Failed to post action result", "action_id", press.ActionID, log.FieldError, err)
	}
}

func (s *Server) reminderOutcome(ctx context.Context, invoiceID string) notify.Message {
	inv, err := s.deps.Reminders.SendReminder(ctx, invoiceID)
	switch {
	case err == nil:
		number := inv.Number
		if number == "" {
			number = invoiceID
		}
		return notify.Note(fmt.Sprintf(":white_check_mark: Reminder email sent to *%s* for invoice *%s*", inv.CustomerEmail, number))
	case errors.Is(err, core.ErrMissingEmail):
		return notify.Note(":x: No email address on file for this customer.")
	case errors.Is(err, core.ErrNotFound):
		return notify.Note(fmt.Sprintf(":x: Could not fetch invoice `%s` from the invoicing provider.", invoiceID))
	default:
		return notify.Note(fmt.Sprintf(":x: Failed to send email: %v", err))
	}
}
