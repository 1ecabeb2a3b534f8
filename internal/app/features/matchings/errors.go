// internal/app/features/matchings/errors.go
package matchings

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dalemusser/drivehub/internal/domain/matchrules"
	"go.uber.org/zap"
)

type errorBody struct {
	Error   string                  `json:"error"`
	Code    string                  `json:"code"`
	Fields  []matchrules.FieldError `json:"fields,omitempty"`
	Details map[string]any          `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func badRequest(w http.ResponseWriter, msg string, fields ...matchrules.FieldError) {
	writeJSON(w, http.StatusBadRequest, errorBody{Error: msg, Code: "bad_request", Fields: fields})
}

// writeError maps a service error onto an HTTP status and a stable code.
// Anything unrecognised is logged and reported as a 500 without detail.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	body := errorBody{Error: err.Error()}
	status := http.StatusInternalServerError

	var (
		verr *matchrules.ValidationError
		lerr *matchrules.LicenseError
		cerr *matchrules.CapacityError
	)
	switch {
	case errors.As(err, &verr):
		status, body.Code, body.Fields = http.StatusUnprocessableEntity, "validation", verr.Fields
	case errors.As(err, &lerr):
		status, body.Code = http.StatusUnprocessableEntity, "incompatible_license"
		body.Details = map[string]any{"required": lerr.Required, "available": lerr.Available}
	case errors.As(err, &cerr):
		status, body.Code = http.StatusUnprocessableEntity, "capacity_exceeded"
		body.Details = map[string]any{"effective_load": cerr.Load, "max": cerr.Max}
	case errors.Is(err, matchrules.ErrEmptyMatching):
		status, body.Code = http.StatusUnprocessableEntity, "empty_matching"
	case errors.Is(err, matchrules.ErrNotFound):
		status, body.Code = http.StatusNotFound, "not_found"
	case errors.Is(err, matchrules.ErrArchived):
		status, body.Code = http.StatusConflict, "archived"
	case errors.Is(err, matchrules.ErrLocked):
		status, body.Code = http.StatusConflict, "locked"
	case errors.Is(err, matchrules.ErrInvalidTransition):
		status, body.Code = http.StatusConflict, "invalid_transition"
	case errors.Is(err, matchrules.ErrDuplicateStudent):
		status, body.Code = http.StatusConflict, "duplicate_student"
	case errors.Is(err, matchrules.ErrConflict):
		status, body.Code = http.StatusConflict, "conflict"
	case errors.Is(err, context.DeadlineExceeded):
		status, body.Code, body.Error = http.StatusGatewayTimeout, "timeout", "operation timed out"
	default:
		body.Code, body.Error = "internal", "internal error"
	}

	if status >= http.StatusInternalServerError {
		h.Log.Error("matching request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
	}
	writeJSON(w, status, body)
}
