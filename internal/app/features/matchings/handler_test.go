package matchings_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dalemusser/drivehub/internal/app/features/matchings"
	"github.com/dalemusser/drivehub/internal/app/matching"
	"github.com/dalemusser/drivehub/internal/app/system/auditlog"
	"github.com/dalemusser/drivehub/internal/app/system/auth"
	"github.com/dalemusser/drivehub/internal/domain/models"
	"github.com/dalemusser/drivehub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

var admin = auth.CallerContext{ActorID: "admin-1", ActorName: "Avery", Role: "admin"}

type fixture struct {
	router      http.Handler
	repo        *testutil.MemMatchings
	students    *testutil.MemStudents
	instructors *testutil.MemInstructors
	notifier    *testutil.MemNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo:        testutil.NewMemMatchings(),
		students:    testutil.NewMemStudents(),
		instructors: testutil.NewMemInstructors(),
		notifier:    &testutil.MemNotifier{},
	}
	clock := func() time.Time { return time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC) }
	svc := matching.New(matching.Deps{
		Repo:        f.repo,
		Students:    f.students,
		Instructors: f.instructors,
		Recorder:    f.students,
		OnApply: matching.RecordAndNotify(matching.HookDeps{
			Recorder:    f.students,
			Instructors: f.instructors,
			Notifier:    f.notifier,
			Clock:       clock,
		}),
		Audit:              auditlog.New(nil, zap.NewNop(), auditlog.Config{Matching: auditlog.ModeOff}),
		Clock:              clock,
		DefaultMaxStudents: 3,
	})
	f.router = matchings.Routes(matchings.NewHandler(svc, zap.NewNop()))
	return f
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req = auth.WithTestCaller(req, admin)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) pair(license string) (models.Student, models.Instructor) {
	st := f.students.Put(models.Student{FullName: "Sam", LicenseType: license, Status: models.StudentActive})
	inst := f.instructors.Put(models.Instructor{FullName: "Ira", LicenseTypes: []string{license}, Status: "active"})
	return st, inst
}

func (f *fixture) draft(licenses []string, as ...models.Assignment) models.Matching {
	return f.repo.Put(models.Matching{
		Name:         "Batch",
		NameCI:       "batch",
		LicenseTypes: licenses,
		Status:       models.MatchingDraft,
		Assignments:  as,
	})
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

type errBody struct {
	Error  string `json:"error"`
	Code   string `json:"code"`
	Fields []struct {
		Field string `json:"field"`
		Error string `json:"error"`
	} `json:"fields"`
	Details map[string]any `json:"details"`
}

type matchingBody struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Status           string `json:"status"`
	IsLocked         bool   `json:"is_locked"`
	TotalStudents    int    `json:"total_students"`
	TotalInstructors int    `json:"total_instructors"`
	Assignments      []struct {
		StudentID            string  `json:"student_id"`
		InstructorID         string  `json:"instructor_id"`
		IsTransferred        bool    `json:"is_transferred"`
		PreviousInstructorID *string `json:"previous_instructor_id"`
	} `json:"assignments"`
}

type listBody struct {
	Items   []matchingBody `json:"items"`
	HasPrev bool           `json:"has_prev"`
	HasNext bool           `json:"has_next"`
}

/*─────────────────────────────────────────────────────────────────────────────*
| Auth                                                                        |
*─────────────────────────────────────────────────────────────────────────────*/

func TestRoutes_RequireCaller(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| Create / read                                                               |
*─────────────────────────────────────────────────────────────────────────────*/

func TestCreate_Returns201WithWireStatus(t *testing.T) {
	f := newFixture(t)
	st, inst := f.pair("B")

	rec := f.do(t, http.MethodPost, "/", map[string]any{
		"name":          "Spring",
		"license_types": []string{"B"},
		"assignments": []map[string]string{
			{"student_id": st.ID.Hex(), "instructor_id": inst.ID.Hex(), "license_type": "B"},
		},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type: %q", ct)
	}

	got := decodeBody[matchingBody](t, rec)
	if got.Status != "PENDING" {
		t.Errorf("status: got %q, want PENDING", got.Status)
	}
	if got.TotalStudents != 1 || got.TotalInstructors != 1 {
		t.Errorf("totals: %d/%d", got.TotalStudents, got.TotalInstructors)
	}
	if _, err := primitive.ObjectIDFromHex(got.ID); err != nil {
		t.Errorf("id %q is not hex: %v", got.ID, err)
	}
}

func TestCreate_BadIDsReport400PerField(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/", map[string]any{
		"name":          "Spring",
		"license_types": []string{"B"},
		"assignments": []map[string]string{
			{"student_id": "nope", "instructor_id": "also-nope", "license_type": "B"},
		},
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	body := decodeBody[errBody](t, rec)
	if len(body.Fields) != 2 || body.Fields[0].Field != "assignments[0].student_id" {
		t.Errorf("fields: %+v", body.Fields)
	}
}

func TestCreate_ValidationIs422(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/", map[string]any{"name": "", "license_types": []string{"B"}})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
	body := decodeBody[errBody](t, rec)
	if body.Code != "validation" {
		t.Errorf("code: %q", body.Code)
	}
	found := false
	for _, fe := range body.Fields {
		if fe.Field == "name" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a name field error, got %+v", body.Fields)
	}
}

func TestCreate_UnknownFieldRejected(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/", map[string]any{"name": "x", "colour": "red"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestGet_NotFoundAndBadID(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/"+primitive.NewObjectID().Hex(), nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing: expected 404, got %d", rec.Code)
	}
	if body := decodeBody[errBody](t, rec); body.Code != "not_found" {
		t.Errorf("code: %q", body.Code)
	}

	rec = f.do(t, http.MethodGet, "/not-an-id", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad id: expected 400, got %d", rec.Code)
	}
}

func TestList_FiltersByWireStatus(t *testing.T) {
	f := newFixture(t)
	f.draft([]string{"B"})
	f.repo.Put(models.Matching{Name: "Done", NameCI: "done", LicenseTypes: []string{"B"}, Status: models.MatchingApplied})

	rec := f.do(t, http.MethodGet, "/?status=applied", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody[listBody](t, rec)
	if len(body.Items) != 1 || body.Items[0].Status != "APPLIED" {
		t.Errorf("items: %+v", body.Items)
	}
	if body.HasNext || body.HasPrev {
		t.Errorf("single page expected: %+v", body)
	}
}

func TestList_UnknownStatusIs400(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/?status=draft", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| Mutations                                                                   |
*─────────────────────────────────────────────────────────────────────────────*/

func TestUpdateDetails_Renames(t *testing.T) {
	f := newFixture(t)
	m := f.draft([]string{"B"})

	rec := f.do(t, http.MethodPatch, "/"+m.ID.Hex(), map[string]any{"name": "Autumn"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := decodeBody[matchingBody](t, rec); got.Name != "Autumn" {
		t.Errorf("name: %q", got.Name)
	}
}

func TestAddStudent_CapacityIs422WithDetails(t *testing.T) {
	f := newFixture(t)
	max := 1
	inst := f.instructors.Put(models.Instructor{FullName: "Ira", LicenseTypes: []string{"B"}, Status: "active", MaxStudentsPerPeriod: &max})
	s1 := f.students.Put(models.Student{FullName: "A", LicenseType: "B", Status: models.StudentActive})
	s2 := f.students.Put(models.Student{FullName: "C", LicenseType: "B", Status: models.StudentActive})
	m := f.draft([]string{"B"}, models.Assignment{StudentID: s1.ID, InstructorID: inst.ID, LicenseType: "B"})

	rec := f.do(t, http.MethodPost, "/"+m.ID.Hex()+"/students", map[string]string{
		"student_id": s2.ID.Hex(), "instructor_id": inst.ID.Hex(),
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody[errBody](t, rec)
	if body.Code != "capacity_exceeded" {
		t.Errorf("code: %q", body.Code)
	}
	if body.Details["max"] != float64(1) || body.Details["effective_load"] != float64(1) {
		t.Errorf("details: %+v", body.Details)
	}
}

func TestAddStudent_IncompatibleLicense(t *testing.T) {
	f := newFixture(t)
	st := f.students.Put(models.Student{FullName: "A", LicenseType: "C", Status: models.StudentActive})
	inst := f.instructors.Put(models.Instructor{FullName: "Ira", LicenseTypes: []string{"B"}, Status: "active"})
	m := f.draft([]string{"B", "C"})

	rec := f.do(t, http.MethodPost, "/"+m.ID.Hex()+"/students", map[string]string{
		"student_id": st.ID.Hex(), "instructor_id": inst.ID.Hex(),
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", rec.Code, rec.Body.String())
	}
	if body := decodeBody[errBody](t, rec); body.Code != "incompatible_license" || body.Details["required"] != "C" {
		t.Errorf("body: %+v", body)
	}
}

func TestAddStudent_DuplicateIs409(t *testing.T) {
	f := newFixture(t)
	st, inst := f.pair("B")
	m := f.draft([]string{"B"}, models.Assignment{StudentID: st.ID, InstructorID: inst.ID, LicenseType: "B"})

	rec := f.do(t, http.MethodPost, "/"+m.ID.Hex()+"/students", map[string]string{
		"student_id": st.ID.Hex(), "instructor_id": inst.ID.Hex(),
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	if body := decodeBody[errBody](t, rec); body.Code != "duplicate_student" {
		t.Errorf("code: %q", body.Code)
	}
}

func TestSwap_MarksTransfer(t *testing.T) {
	f := newFixture(t)
	st, from := f.pair("B")
	to := f.instructors.Put(models.Instructor{FullName: "Jo", LicenseTypes: []string{"B"}, Status: "active"})
	m := f.draft([]string{"B"}, models.Assignment{StudentID: st.ID, InstructorID: from.ID, LicenseType: "B"})

	rec := f.do(t, http.MethodPost, "/"+m.ID.Hex()+"/swap", map[string]string{
		"student_id":         st.ID.Hex(),
		"from_instructor_id": from.ID.Hex(),
		"to_instructor_id":   to.ID.Hex(),
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	got := decodeBody[matchingBody](t, rec)
	a := got.Assignments[0]
	if a.InstructorID != to.ID.Hex() || !a.IsTransferred {
		t.Errorf("assignment: %+v", a)
	}
	if a.PreviousInstructorID == nil || *a.PreviousInstructorID != from.ID.Hex() {
		t.Errorf("previous instructor: %v", a.PreviousInstructorID)
	}
}

func TestLockedMatching_Is409(t *testing.T) {
	f := newFixture(t)
	st, inst := f.pair("B")
	m := f.draft([]string{"B"})

	if rec := f.do(t, http.MethodPost, "/"+m.ID.Hex()+"/lock", nil); rec.Code != http.StatusOK {
		t.Fatalf("lock: %d", rec.Code)
	}
	rec := f.do(t, http.MethodPost, "/"+m.ID.Hex()+"/students", map[string]string{
		"student_id": st.ID.Hex(), "instructor_id": inst.ID.Hex(),
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	if body := decodeBody[errBody](t, rec); body.Code != "locked" {
		t.Errorf("code: %q", body.Code)
	}

	rec = f.do(t, http.MethodDelete, "/"+m.ID.Hex(), nil)
	if rec.Code != http.StatusConflict {
		t.Errorf("delete while locked: expected 409, got %d", rec.Code)
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| Lifecycle                                                                   |
*─────────────────────────────────────────────────────────────────────────────*/

func TestApply_ReportsDeliveryFailures(t *testing.T) {
	f := newFixture(t)
	s1, inst := f.pair("B")
	s2 := f.students.Put(models.Student{FullName: "Kim", LicenseType: "B", Status: models.StudentActive})
	f.notifier.FailFor = map[primitive.ObjectID]error{s2.ID: errors.New("mailbox full")}
	m := f.draft([]string{"B"},
		models.Assignment{StudentID: s1.ID, InstructorID: inst.ID, LicenseType: "B"},
		models.Assignment{StudentID: s2.ID, InstructorID: inst.ID, LicenseType: "B"},
	)

	rec := f.do(t, http.MethodPost, "/"+m.ID.Hex()+"/apply", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Matching matchingBody `json:"matching"`
		Report   struct {
			RunID       string `json:"run_id"`
			Instructors int    `json:"instructors"`
			Students    int    `json:"students"`
			Delivered   int    `json:"delivered"`
			Failures    []struct {
				StudentID string `json:"student_id"`
				Error     string `json:"error"`
			} `json:"failures"`
		} `json:"report"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Matching.Status != "APPLIED" {
		t.Errorf("status: %q", body.Matching.Status)
	}
	if body.Report.RunID == "" || body.Report.Instructors != 1 || body.Report.Students != 2 {
		t.Errorf("report: %+v", body.Report)
	}
	if body.Report.Delivered != 1 || len(body.Report.Failures) != 1 || body.Report.Failures[0].StudentID != s2.ID.Hex() {
		t.Errorf("failures: %+v", body.Report)
	}
}

func TestApply_EmptyIs422(t *testing.T) {
	f := newFixture(t)
	m := f.draft([]string{"B"})

	rec := f.do(t, http.MethodPost, "/"+m.ID.Hex()+"/apply", nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
	if body := decodeBody[errBody](t, rec); body.Code != "empty_matching" {
		t.Errorf("code: %q", body.Code)
	}
}

func TestArchive_FlowAndCancelledStatus(t *testing.T) {
	f := newFixture(t)
	st, inst := f.pair("B")
	m := f.draft([]string{"B"}, models.Assignment{StudentID: st.ID, InstructorID: inst.ID, LicenseType: "B"})
	base := "/" + m.ID.Hex()

	if rec := f.do(t, http.MethodPost, base+"/archive", nil); rec.Code != http.StatusConflict {
		t.Errorf("archive draft: expected 409, got %d", rec.Code)
	}
	if rec := f.do(t, http.MethodPost, base+"/apply", nil); rec.Code != http.StatusOK {
		t.Fatalf("apply: %d", rec.Code)
	}
	if rec := f.do(t, http.MethodPost, base+"/lock", nil); rec.Code != http.StatusOK {
		t.Fatalf("lock: %d", rec.Code)
	}
	rec := f.do(t, http.MethodPost, base+"/archive", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("archive: %d: %s", rec.Code, rec.Body.String())
	}
	if got := decodeBody[matchingBody](t, rec); got.Status != "CANCELLED" {
		t.Errorf("status: %q", got.Status)
	}

	rec = f.do(t, http.MethodPost, base+"/lock", nil)
	if body := decodeBody[errBody](t, rec); rec.Code != http.StatusConflict || body.Code != "archived" {
		t.Errorf("lock archived: %d %q", rec.Code, body.Code)
	}
}

func TestDelete_Returns204(t *testing.T) {
	f := newFixture(t)
	m := f.draft([]string{"B"})

	rec := f.do(t, http.MethodDelete, "/"+m.ID.Hex(), nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if rec := f.do(t, http.MethodGet, "/"+m.ID.Hex(), nil); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", rec.Code)
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| Queries                                                                     |
*─────────────────────────────────────────────────────────────────────────────*/

func TestAvailableStudents(t *testing.T) {
	f := newFixture(t)
	st, inst := f.pair("B")
	free := f.students.Put(models.Student{FullName: "Free", LicenseType: "B", Status: models.StudentActive})
	f.students.Put(models.Student{FullName: "Other", LicenseType: "C", Status: models.StudentActive})
	m := f.draft([]string{"B"}, models.Assignment{StudentID: st.ID, InstructorID: inst.ID, LicenseType: "B"})

	rec := f.do(t, http.MethodGet, "/"+m.ID.Hex()+"/available-students", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	got := decodeBody[[]models.Student](t, rec)
	if len(got) != 1 || got[0].ID != free.ID {
		t.Errorf("available: %+v", got)
	}
}

func TestInstructorLoads(t *testing.T) {
	f := newFixture(t)
	st, inst := f.pair("B")
	m := f.draft([]string{"B"}, models.Assignment{StudentID: st.ID, InstructorID: inst.ID, LicenseType: "B"})

	rec := f.do(t, http.MethodGet, "/"+m.ID.Hex()+"/instructor-loads", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	got := decodeBody[[]matching.InstructorLoad](t, rec)
	if len(got) != 1 {
		t.Fatalf("loads: %+v", got)
	}
	if got[0].InBatch != 1 || got[0].EffectiveLoad != 1 || got[0].Max != 3 || got[0].Remaining != 2 {
		t.Errorf("load: %+v", got[0])
	}
}
