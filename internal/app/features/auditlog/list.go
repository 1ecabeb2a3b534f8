// internal/app/features/auditlog/list.go
package auditlog

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/dalemusser/drivehub/internal/app/store/audit"
	"github.com/dalemusser/drivehub/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const pageSize = 50

const dateLayout = "2006-01-02"

type eventJSON struct {
	ID            primitive.ObjectID  `json:"id"`
	Timestamp     time.Time           `json:"timestamp"`
	Category      string              `json:"category"`
	EventType     string              `json:"event_type"`
	MatchingID    *primitive.ObjectID `json:"matching_id,omitempty"`
	ActorID       string              `json:"actor_id,omitempty"`
	ActorName     string              `json:"actor_name,omitempty"`
	Success       bool                `json:"success"`
	FailureReason string              `json:"failure_reason,omitempty"`
	Details       map[string]string   `json:"details,omitempty"`
}

type listResponse struct {
	Items      []eventJSON `json:"items"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	TotalPages int         `json:"total_pages"`
	HasPrev    bool        `json:"has_prev"`
	HasNext    bool        `json:"has_next"`
}

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// ServeList handles GET /audit - lists audit events, newest first, with
// optional matching_id, actor_id, event_type, success, start_date, end_date
// and page filters.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	filter, page, field, msg := parseFilter(r)
	if msg != "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg, Field: field})
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Read(), h.Log, "audit log list")
	defer cancel()

	events, err := h.Events.Query(ctx, filter)
	if err != nil {
		h.Log.Error("failed to query audit events", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}
	total, err := h.Events.CountByFilter(ctx, filter)
	if err != nil {
		h.Log.Error("failed to count audit events", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}

	items := make([]eventJSON, 0, len(events))
	for _, e := range events {
		items = append(items, eventJSON(e))
	}

	totalPages := int((total + pageSize - 1) / pageSize)
	if totalPages < 1 {
		totalPages = 1
	}

	writeJSON(w, http.StatusOK, listResponse{
		Items:      items,
		Total:      total,
		Page:       page,
		TotalPages: totalPages,
		HasPrev:    page > 1,
		HasNext:    page < totalPages,
	})
}

// parseFilter reads the query string. On bad input it returns the offending
// parameter name and a message.
func parseFilter(r *http.Request) (audit.QueryFilter, int, string, string) {
	f := audit.QueryFilter{
		ActorID:   query.Get(r, "actor_id"),
		EventType: query.Get(r, "event_type"),
		Limit:     pageSize,
	}

	if raw := query.Get(r, "matching_id"); raw != "" {
		id, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			return f, 0, "matching_id", "matching_id must be a 24-character hex id"
		}
		f.MatchingID = &id
	}
	if f.EventType != "" && !knownEventType(f.EventType) {
		return f, 0, "event_type", "unknown event type"
	}
	if raw := query.Get(r, "success"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return f, 0, "success", "success must be true or false"
		}
		f.Success = &b
	}
	if raw := query.Get(r, "start_date"); raw != "" {
		t, err := time.Parse(dateLayout, raw)
		if err != nil {
			return f, 0, "start_date", "start_date must be YYYY-MM-DD"
		}
		f.StartTime = &t
	}
	if raw := query.Get(r, "end_date"); raw != "" {
		t, err := time.Parse(dateLayout, raw)
		if err != nil {
			return f, 0, "end_date", "end_date must be YYYY-MM-DD"
		}
		// End of day
		endOfDay := t.Add(24*time.Hour - time.Nanosecond)
		f.EndTime = &endOfDay
	}

	page := 1
	if p, err := strconv.Atoi(query.Get(r, "page")); err == nil && p > 0 {
		page = p
	}
	f.Offset = int64((page - 1) * pageSize)
	return f, page, "", ""
}

func knownEventType(s string) bool {
	for _, t := range audit.EventTypes() {
		if t == s {
			return true
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
