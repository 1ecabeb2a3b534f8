package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/drivehub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx, _ := r.Context().Value(chi.RouteCtxKey).(*chi.Context)
	if rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateStudent inserts an active student training for licenseType.
func (f *Fixtures) CreateStudent(ctx context.Context, fullName, licenseType string) models.Student {
	f.t.Helper()
	return f.CreateStudentWithStatus(ctx, fullName, licenseType, models.StudentActive)
}

// CreateStudentWithStatus inserts a student with an explicit status.
func (f *Fixtures) CreateStudentWithStatus(ctx context.Context, fullName, licenseType, status string) models.Student {
	f.t.Helper()

	now := time.Now().UTC()
	st := models.Student{
		ID:          primitive.NewObjectID(),
		FullName:    fullName,
		FullNameCI:  text.Fold(fullName),
		LicenseType: licenseType,
		Status:      status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := f.db.Collection("students").InsertOne(ctx, st); err != nil {
		f.t.Fatalf("failed to create test student: %v", err)
	}
	return st
}

// AssignStudent points an existing student at an instructor, as a previous
// apply would have.
func (f *Fixtures) AssignStudent(ctx context.Context, studentID, instructorID primitive.ObjectID) {
	f.t.Helper()

	now := time.Now().UTC()
	_, err := f.db.Collection("students").UpdateByID(ctx, studentID, bson.M{
		"$set": bson.M{
			"instructor_id":          instructorID,
			"instructor_assigned_at": now,
			"updated_at":             now,
		},
	})
	if err != nil {
		f.t.Fatalf("failed to assign test student: %v", err)
	}
}

// CreateInstructor inserts an active instructor. max may be nil to use the
// service default.
func (f *Fixtures) CreateInstructor(ctx context.Context, fullName string, licenseTypes []string, max *int) models.Instructor {
	f.t.Helper()

	now := time.Now().UTC()
	inst := models.Instructor{
		ID:                   primitive.NewObjectID(),
		FullName:             fullName,
		LicenseTypes:         licenseTypes,
		MaxStudentsPerPeriod: max,
		Status:               "active",
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if _, err := f.db.Collection("instructors").InsertOne(ctx, inst); err != nil {
		f.t.Fatalf("failed to create test instructor: %v", err)
	}
	return inst
}

// IntPtr returns a pointer to n.
func IntPtr(n int) *int { return &n }
