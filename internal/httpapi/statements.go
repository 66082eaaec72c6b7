package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"medorder/backend/internal/download"
	"medorder/backend/internal/service"
)

func statementRequest(r *http.Request) service.StatementRequest {
	q := r.URL.Query()
	return service.StatementRequest{
		UserID:    q.Get("user_id"),
		StartDate: q.Get("start_date"),
		EndDate:   q.Get("end_date"),
	}
}

func (a *API) handleStatement(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	data, err := a.service.Statement(r.Context(), statementRequest(r))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ok("statement", data))
}

// handleStatementPDF streams the statement as an attachment. Once the PDF
// headers are out the response cannot carry an error body any more.
func (a *API) handleStatementPDF(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	_, err := a.service.StatementPDF(r.Context(), statementRequest(r), download.ResponseSink{W: w})
	if err == nil {
		return
	}
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/pdf") {
		a.logger.Warn("statement stream interrupted", zap.String("path", r.URL.Path), zap.Error(err))
		return
	}
	a.failDownload(w, r, err)
}

type exportInput struct {
	UserID    string `json:"user_id"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

func (a *API) handleStatementExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	actor, _ := service.ActorFromContext(r.Context())
	if !a.exportLimiter.Allow(actor.Username) {
		writeError(w, http.StatusTooManyRequests, errors.New("too many export requests"))
		return
	}
	var in exportInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	res, err := a.service.ExportStatement(r.Context(), service.StatementRequest(in))
	if err != nil {
		a.failDownload(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ok("export", res))
}

// failDownload answers rendering and delivery failures with the end-user
// message. Input problems keep the regular error body.
func (a *API) failDownload(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status < http.StatusInternalServerError && !isPreflightError(err) {
		a.fail(w, r, err)
		return
	}
	if status >= http.StatusInternalServerError {
		a.logger.Error("statement download failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	writeJSON(w, status, map[string]any{
		"success": false,
		"error":   download.FriendlyMessage(err),
	})
}
