// internal/app/features/notifications/routes.go
package notifications

import (
	"github.com/dalemusser/drivehub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the inbox under the path where this router is mounted
// (typically "/students" from bootstrap).
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireCaller)
	r.Get("/{id}/notifications", h.ServeList)
	return r
}
