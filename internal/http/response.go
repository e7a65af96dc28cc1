package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"findash/internal/core"
	"findash/internal/log"
	"findash/internal/services"
	"findash/internal/worker"
)

// requestError is a client mistake reported verbatim with a 400.
type requestError struct {
	msg string
}

func (e requestError) Error() string { return e.msg }

func badRequest(msg string) error { return requestError{msg: msg} }

var errUnavailable = errors.New("not configured")

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	var reqErr requestError
	switch {
	case errors.As(err, &reqErr), errors.Is(err, errBadMonth), errors.Is(err, core.ErrMissingEmail):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrNotFound), errors.Is(err, worker.ErrUnknownJob):
		return http.StatusNotFound
	case errors.Is(err, worker.ErrJobBusy):
		return http.StatusConflict
	case errors.Is(err, errUnavailable), errors.Is(err, worker.ErrNotRunning), errors.Is(err, services.ErrExportDisabled):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"encode response"}`, http.StatusInternalServerError)
		return
	}
	writeBody(w, status, body)
}

func writeBody(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// writeError logs server-side failures and writes {"error": msg}.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			log.FieldPath, r.URL.Path, log.FieldError, err, log.FieldStatusCode, status)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
