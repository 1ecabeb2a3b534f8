// internal/app/features/notifications/handler.go
package notifications

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/dalemusser/drivehub/internal/app/system/paging"
	"github.com/dalemusser/drivehub/internal/app/system/timeouts"
	"github.com/dalemusser/drivehub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Inbox reads the notifications sent to a student.
type Inbox interface {
	ListForStudent(ctx context.Context, studentID primitive.ObjectID, limit int64) ([]models.Notification, error)
}

// Handler serves a student's notification inbox.
type Handler struct {
	Inbox Inbox
	Log   *zap.Logger
}

func NewHandler(inbox Inbox, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{Inbox: inbox, Log: logger}
}

// ServeList handles GET /students/{id}/notifications?limit=N, newest first.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	studentID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid student id"})
		return
	}
	limit := paging.ParseLimit(query.Get(r, "limit"))

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Read(), h.Log, "student notifications")
	defer cancel()

	items, err := h.Inbox.ListForStudent(ctx, studentID, int64(limit))
	if err != nil {
		h.Log.Error("failed to list notifications",
			zap.String("student_id", studentID.Hex()),
			zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	if items == nil {
		items = []models.Notification{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
