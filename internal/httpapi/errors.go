package httpapi

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"medorder/backend/internal/download"
	"medorder/backend/internal/gateway"
	"medorder/backend/internal/pricing"
	"medorder/backend/internal/service"
	"medorder/backend/internal/statement"
	"medorder/backend/internal/store"
	"medorder/backend/internal/wizard"
)

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	var fieldErrs *service.FieldErrors
	switch {
	case errors.Is(err, service.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrAdminRequired):
		return http.StatusForbidden
	case errors.As(err, &fieldErrs):
		return http.StatusUnprocessableEntity
	case errors.Is(err, store.ErrInvalidInput),
		errors.Is(err, statement.ErrInvalidDateRange),
		isPreflightError(err):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrConflict),
		errors.Is(err, wizard.ErrAlreadySubmitted),
		errors.Is(err, wizard.ErrSubmitInProgress),
		errors.Is(err, pricing.ErrPromoUsageExceeded):
		return http.StatusConflict
	case errors.Is(err, gateway.ErrUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, download.ErrRetriesExhausted):
		return http.StatusBadGateway
	default:
		var reqErr *gateway.RequestError
		if errors.As(err, &reqErr) && reqErr.Status >= 400 && reqErr.Status < 500 {
			return http.StatusUnprocessableEntity
		}
		return http.StatusInternalServerError
	}
}

func isPreflightError(err error) bool {
	return errors.Is(err, download.ErrStatementRequired) ||
		errors.Is(err, download.ErrUserIDRequired) ||
		errors.Is(err, download.ErrStartDateRequired) ||
		errors.Is(err, download.ErrOrdersRequired) ||
		errors.Is(err, download.ErrSummaryRequired)
}

// fail writes err with its mapped status. Validation failures carry their
// field list.
func (a *API) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		a.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Error(err),
		)
	}
	var fieldErrs *service.FieldErrors
	if errors.As(err, &fieldErrs) {
		writeJSON(w, status, map[string]any{
			"success": false,
			"error":   "validation failed",
			"fields":  fieldErrs.Fields,
		})
		return
	}
	writeError(w, status, err)
}
