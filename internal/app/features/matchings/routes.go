// internal/app/features/matchings/routes.go
package matchings

import (
	"github.com/dalemusser/drivehub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the matching API under the path where this router is
// mounted (typically "/matchings" from bootstrap). Every route requires an
// authenticated caller.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireCaller)

	r.Get("/", h.list)
	r.Post("/", h.create)

	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.get)
		r.Patch("/", h.updateDetails)
		r.Delete("/", h.remove)

		r.Post("/apply", h.apply)
		r.Post("/archive", h.archive)
		r.Post("/lock", h.toggleLock)
		r.Post("/swap", h.swap)
		r.Post("/students", h.addStudent)

		r.Get("/available-students", h.availableStudents)
		r.Get("/instructor-loads", h.instructorLoads)
	})

	return r
}
