package web

// errors.go turns errors into JSON responses.
//
// The technical error is logged with the request ID; the client gets the
// message, action and code from core.MapError.

import (
	"context"
	"errors"
	"net/http"

	"github.com/JonMunkholm/NICValidator/internal/core"
	"github.com/JonMunkholm/NICValidator/internal/logging"
	"github.com/JonMunkholm/NICValidator/internal/nic"
)

// ErrorResponse is the body of every error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// respondError logs err and writes its user-facing form with statusCode.
func respondError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	msg := core.MapError(err)

	log := logging.FromContext(r.Context())
	attrs := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", err.Error(),
		"code", msg.Code,
	}
	if statusCode >= http.StatusInternalServerError {
		log.Error("request error", attrs...)
	} else {
		log.Warn("request error", attrs...)
	}

	writeJSON(w, statusCode, ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	})
}

// statusFor picks the HTTP status for a service error.
func statusFor(err error) int {
	if _, ok := nic.ReasonOf(err); ok {
		return http.StatusUnprocessableEntity
	}
	switch {
	case errors.Is(err, core.ErrInvalidFilter),
		errors.Is(err, core.ErrNoFiles),
		errors.Is(err, core.ErrWrongFileCount),
		errors.Is(err, core.ErrEmptyFile),
		errors.Is(err, core.ErrMissingColumn),
		errors.Is(err, core.ErrInvalidCSV):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, core.ErrTooManyUploads):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
