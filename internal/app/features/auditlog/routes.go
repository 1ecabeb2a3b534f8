// internal/app/features/auditlog/routes.go
package auditlog

import (
	"github.com/dalemusser/drivehub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts all audit log routes under the path where this
// router is mounted (typically "/audit" from bootstrap).
//
// Access is restricted to admins.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireCaller)
		pr.Use(auth.RequireRole("admin"))

		pr.Get("/", h.ServeList)
	})

	return r
}
