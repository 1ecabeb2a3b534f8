// internal/app/features/matchings/handler.go
package matchings

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/dalemusser/drivehub/internal/app/matching"
	"github.com/dalemusser/drivehub/internal/app/system/auth"
	"github.com/dalemusser/drivehub/internal/domain/matchrules"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

// Handler serves the matching JSON API.
type Handler struct {
	Svc *matching.Service
	Log *zap.Logger
}

// NewHandler constructs a matchings Handler bound to the service.
func NewHandler(svc *matching.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{Svc: svc, Log: logger}
}

// caller returns the authenticated caller, writing 401 when there is none.
func (h *Handler) caller(w http.ResponseWriter, r *http.Request) (auth.CallerContext, bool) {
	c, ok := auth.CallerFrom(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "authentication required", Code: "unauthorized"})
		return auth.CallerContext{}, false
	}
	return c, true
}

// matchingID parses the {id} URL parameter, writing 400 when it is malformed.
func matchingID(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid matching id")
		return primitive.NilObjectID, false
	}
	return id, true
}

// decode reads a JSON body into v, writing 400 on malformed input.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		badRequest(w, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return true
}

// idParser parses named hex ids, collecting one field error per bad value.
type idParser struct {
	verr matchrules.ValidationError
}

func (p *idParser) parse(field, hex string) primitive.ObjectID {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		p.verr.Add(field, "must be a 24-character hex id")
	}
	return id
}

func (p *idParser) ok(w http.ResponseWriter) bool {
	if len(p.verr.Fields) == 0 {
		return true
	}
	badRequest(w, "invalid id", p.verr.Fields...)
	return false
}
