// internal/app/features/matchings/actions.go
package matchings

import (
	"net/http"

	"github.com/dalemusser/drivehub/internal/app/system/timeouts"
)

// apply handles POST /{id}/apply. Delivery failures do not change the
// status code; they are listed in the report.
func (h *Handler) apply(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	id, ok := matchingID(w, r)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Apply(), h.Log, "matching apply")
	defer cancel()

	m, report, err := h.Svc.Apply(ctx, caller, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, applyResponse{
		Matching: toMatchingJSON(m),
		Report:   toReportJSON(report),
	})
}

// archive handles POST /{id}/archive.
func (h *Handler) archive(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	id, ok := matchingID(w, r)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Write(), h.Log, "matching archive")
	defer cancel()

	m, err := h.Svc.Archive(ctx, caller, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toMatchingJSON(m))
}

// toggleLock handles POST /{id}/lock.
func (h *Handler) toggleLock(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	id, ok := matchingID(w, r)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Write(), h.Log, "matching lock")
	defer cancel()

	m, err := h.Svc.ToggleLock(ctx, caller, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toMatchingJSON(m))
}

// swap handles POST /{id}/swap.
func (h *Handler) swap(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	id, ok := matchingID(w, r)
	if !ok {
		return
	}
	var req swapRequest
	if !decode(w, r, &req) {
		return
	}
	var ids idParser
	studentID := ids.parse("student_id", req.StudentID)
	fromID := ids.parse("from_instructor_id", req.FromInstructorID)
	toID := ids.parse("to_instructor_id", req.ToInstructorID)
	if !ids.ok(w) {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Write(), h.Log, "matching swap")
	defer cancel()

	m, err := h.Svc.SwapStudent(ctx, caller, id, studentID, fromID, toID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toMatchingJSON(m))
}

// addStudent handles POST /{id}/students.
func (h *Handler) addStudent(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	id, ok := matchingID(w, r)
	if !ok {
		return
	}
	var req addStudentRequest
	if !decode(w, r, &req) {
		return
	}
	var ids idParser
	studentID := ids.parse("student_id", req.StudentID)
	instructorID := ids.parse("instructor_id", req.InstructorID)
	if !ids.ok(w) {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Write(), h.Log, "matching add student")
	defer cancel()

	m, err := h.Svc.AddStudent(ctx, caller, id, studentID, instructorID, req.LicenseType)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toMatchingJSON(m))
}
