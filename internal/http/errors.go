package http

import (
	"context"
	"errors"
	"net/http"

	"nomina/internal/auth"
	"nomina/internal/blob"
	"nomina/internal/core"
	"nomina/internal/log"
	"nomina/internal/payroll"
	"nomina/internal/records"
)

// apiError is the HTTP rendering of a domain error.
type apiError struct {
	status  int
	code    string
	message string
	field   string
}

// classify maps domain errors onto status codes. Messages for server side
// failures stay generic; details go to the log.
func classify(err error) apiError {
	var verr *core.ValidationError
	var werr *records.StorageWriteError
	var rerr *records.StorageReadError

	switch {
	case errors.As(err, &verr):
		return apiError{http.StatusUnprocessableEntity, "validation", verr.Error(), verr.Field}
	case errors.Is(err, payroll.ErrInvalidSettings):
		return apiError{status: http.StatusUnprocessableEntity, code: "validation", message: err.Error()}
	case errors.Is(err, auth.ErrInvalidCredentials):
		return apiError{status: http.StatusUnauthorized, code: "unauthorized", message: "invalid passphrase"}
	case errors.Is(err, auth.ErrAdminDisabled):
		return apiError{status: http.StatusForbidden, code: "admin_disabled", message: "admin access is not configured"}
	case errors.Is(err, auth.ErrForbidden):
		return apiError{status: http.StatusForbidden, code: "forbidden", message: "administrator session required"}
	case errors.Is(err, blob.ErrVersionConflict):
		return apiError{status: http.StatusConflict, code: "conflict", message: "the data changed since it was read, reload and try again"}
	case errors.Is(err, context.DeadlineExceeded):
		return apiError{status: http.StatusGatewayTimeout, code: "timeout", message: "storage did not answer in time"}
	case errors.As(err, &rerr):
		return apiError{status: http.StatusBadGateway, code: "storage_unreadable", message: "the ledger document cannot be read, writes are disabled"}
	case errors.As(err, &werr):
		return apiError{status: http.StatusBadGateway, code: "storage_write_failed", message: "the ledger could not be saved"}
	default:
		return apiError{status: http.StatusInternalServerError, code: "internal", message: "internal error"}
	}
}

// writeError logs err and renders it as JSON, or as an htmx fragment for the form.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	e := classify(err)
	logger := log.FromContext(r.Context())
	if e.status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "Request failed",
			log.FieldOperation, op,
			log.FieldStatusCode, e.status,
			log.FieldError, err)
	} else {
		logger.WarnContext(r.Context(), "Request rejected",
			log.FieldOperation, op,
			log.FieldStatusCode, e.status,
			log.FieldError, err)
	}

	if wantsHTML(r) {
		ErrorResponse(e.status, e.message).
			TriggerErrorNotification(e.message).
			Write(w)
		return
	}
	writeJSON(w, e.status, errorBody{Error: e.code, Message: e.message, Field: e.field})
}
