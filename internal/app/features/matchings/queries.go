// internal/app/features/matchings/queries.go
package matchings

import (
	"net/http"

	"github.com/dalemusser/drivehub/internal/app/system/timeouts"
)

// availableStudents handles GET /{id}/available-students.
func (h *Handler) availableStudents(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	id, ok := matchingID(w, r)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Read(), h.Log, "matching available students")
	defer cancel()

	students, err := h.Svc.ListAvailableStudents(ctx, caller, id, nil)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, students)
}

// instructorLoads handles GET /{id}/instructor-loads.
func (h *Handler) instructorLoads(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	id, ok := matchingID(w, r)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Read(), h.Log, "matching instructor loads")
	defer cancel()

	loads, err := h.Svc.InstructorLoads(ctx, caller, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, loads)
}
