// internal/app/features/matchings/crud.go
package matchings

import (
	"fmt"
	"net/http"

	"github.com/dalemusser/drivehub/internal/app/matching"
	"github.com/dalemusser/drivehub/internal/app/system/paging"
	"github.com/dalemusser/drivehub/internal/app/system/timeouts"
	"github.com/dalemusser/drivehub/internal/domain/matchrules"
	"github.com/dalemusser/drivehub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
)

// list handles GET / with optional ?status=, ?q=, ?after=, ?before=, ?limit=.
func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	var f models.MatchingFilter
	if raw := query.Get(r, "status"); raw != "" {
		st, ok := statusFromWire(raw)
		if !ok {
			badRequest(w, "invalid status", matchrules.FieldError{
				Field: "status", Error: fmt.Sprintf("must be one of %s, %s, %s", wirePending, wireApplied, wireCancelled),
			})
			return
		}
		f.Status = st
	}
	f.Search = query.Get(r, "q")

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Read(), h.Log, "matching list")
	defer cancel()

	page, err := h.Svc.List(ctx, caller, f, paging.FromRequest(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := listResponse{
		Items:      make([]matchingJSON, 0, len(page.Items)),
		PrevCursor: page.Prev,
		NextCursor: page.Next,
		HasPrev:    page.HasPrev,
		HasNext:    page.HasNext,
	}
	for _, m := range page.Items {
		resp.Items = append(resp.Items, toMatchingJSON(m))
	}
	writeJSON(w, http.StatusOK, resp)
}

// get handles GET /{id}.
func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	id, ok := matchingID(w, r)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Read(), h.Log, "matching get")
	defer cancel()

	m, err := h.Svc.Get(ctx, caller, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toMatchingJSON(m))
}

// create handles POST /.
func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	var req createRequest
	if !decode(w, r, &req) {
		return
	}

	var ids idParser
	in := matching.CreateInput{
		Name:         req.Name,
		Description:  req.Description,
		LicenseTypes: req.LicenseTypes,
		Assignments:  make([]matching.NewAssignment, 0, len(req.Assignments)),
	}
	for i, a := range req.Assignments {
		in.Assignments = append(in.Assignments, matching.NewAssignment{
			StudentID:    ids.parse(fmt.Sprintf("assignments[%d].student_id", i), a.StudentID),
			InstructorID: ids.parse(fmt.Sprintf("assignments[%d].instructor_id", i), a.InstructorID),
			LicenseType:  a.LicenseType,
		})
	}
	if !ids.ok(w) {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Write(), h.Log, "matching create")
	defer cancel()

	m, err := h.Svc.Create(ctx, caller, in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toMatchingJSON(m))
}

// updateDetails handles PATCH /{id}.
func (h *Handler) updateDetails(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	id, ok := matchingID(w, r)
	if !ok {
		return
	}
	var req detailsRequest
	if !decode(w, r, &req) {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Write(), h.Log, "matching update")
	defer cancel()

	m, err := h.Svc.UpdateDetails(ctx, caller, id, matching.DetailsInput{
		Name:         req.Name,
		Description:  req.Description,
		LicenseTypes: req.LicenseTypes,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toMatchingJSON(m))
}

// remove handles DELETE /{id}.
func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	id, ok := matchingID(w, r)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Write(), h.Log, "matching delete")
	defer cancel()

	if err := h.Svc.Delete(ctx, caller, id); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
