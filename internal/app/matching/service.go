// internal/app/matching/service.go

// Package matching runs the lifecycle of matching batches: creation,
// reassignment, apply, archive, locking and deletion.
//
// Every mutation of one matching runs under that matching's key lock, from
// load through validation to save, so concurrent requests on the same id see
// each other's writes. Different ids proceed in parallel. A failed operation
// saves nothing.
package matching

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dalemusser/drivehub/internal/app/system/auditlog"
	"github.com/dalemusser/drivehub/internal/app/system/auth"
	"github.com/dalemusser/drivehub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/drivehub/internal/app/system/keylock"
	"github.com/dalemusser/drivehub/internal/app/system/paging"
	"github.com/dalemusser/drivehub/internal/domain/matchrules"
	"github.com/dalemusser/drivehub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	maxNameLen        = 200
	maxDescriptionLen = 2000

	defaultApplyConcurrency = 8
)

// Deps wires a Service to its collaborators.
type Deps struct {
	Repo        Repository
	Students    StudentDirectory
	Instructors InstructorDirectory
	// Recorder keeps student records in step with swaps and adds made after
	// a matching is applied. Nil leaves the records to the apply hook.
	Recorder StudentRecorder
	// OnApply runs once per distinct instructor after an apply is saved.
	// Nil skips the fan-out.
	OnApply ApplyHook
	Audit   *auditlog.Logger
	Log     *zap.Logger
	Clock   func() time.Time

	// DefaultMaxStudents is the capacity of instructors whose profile sets none.
	DefaultMaxStudents int
	// ApplyConcurrency bounds how many instructors are served at once.
	ApplyConcurrency int
}

// Service implements the matching operations.
type Service struct {
	repo        Repository
	students    StudentDirectory
	instructors InstructorDirectory
	recorder    StudentRecorder
	onApply     ApplyHook
	audit       *auditlog.Logger
	log         *zap.Logger
	now         func() time.Time
	locks       *keylock.Locker

	defaultMax       int
	applyConcurrency int
}

// New builds a Service.
func New(d Deps) *Service {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Clock == nil {
		d.Clock = func() time.Time { return time.Now().UTC() }
	}
	if d.ApplyConcurrency <= 0 {
		d.ApplyConcurrency = defaultApplyConcurrency
	}
	return &Service{
		repo:             d.Repo,
		students:         d.Students,
		instructors:      d.Instructors,
		recorder:         d.Recorder,
		onApply:          d.OnApply,
		audit:            d.Audit,
		log:              d.Log,
		now:              d.Clock,
		locks:            keylock.New(),
		defaultMax:       d.DefaultMaxStudents,
		applyConcurrency: d.ApplyConcurrency,
	}
}

// mutate loads the matching under its key lock, checks op against the
// status graph, lets fn change a private copy, and saves the copy. When the
// check or fn fails the stored matching is left untouched.
func (s *Service) mutate(ctx context.Context, caller auth.CallerContext, id primitive.ObjectID, op matchrules.Op, fn func(m *models.Matching) error) (models.Matching, error) {
	return s.mutateThen(ctx, caller, id, op, fn, nil)
}

// mutateThen is mutate with an after step that runs on the saved matching
// while the key lock is still held. The after step cannot fail the call.
func (s *Service) mutateThen(ctx context.Context, caller auth.CallerContext, id primitive.ObjectID, op matchrules.Op, fn func(m *models.Matching) error, after func(saved models.Matching)) (models.Matching, error) {
	unlock := s.locks.Lock(id.Hex())
	defer unlock()

	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return models.Matching{}, err
	}

	next, err := matchrules.Transition(current, op)
	if err != nil {
		s.reject(ctx, caller, id, op, err)
		return models.Matching{}, err
	}

	work := current.Clone()
	work.Status = next
	if fn != nil {
		if err := fn(&work); err != nil {
			s.reject(ctx, caller, id, op, err)
			return models.Matching{}, err
		}
	}
	work.Recount()
	work.LastModified = s.now()
	work.ModifiedBy = caller.ActorID

	saved, err := s.repo.Save(ctx, work)
	if err != nil {
		return models.Matching{}, err
	}
	if after != nil {
		after(saved)
	}
	return saved, nil
}

// syncStudent writes one pairing of an applied matching onto the student
// record. Drafts are left alone: their pairings reach the records on apply.
// A failed write is logged and never undoes the saved matching.
func (s *Service) syncStudent(ctx context.Context, m models.Matching, studentID, instructorID primitive.ObjectID) {
	if s.recorder == nil || m.Status != models.MatchingApplied {
		return
	}
	err := s.recorder.RecordInstructor(ctx, m.ID, instructorID, []primitive.ObjectID{studentID}, s.now())
	if err != nil {
		s.log.Warn("record instructor failed",
			zap.String("matching_id", m.ID.Hex()),
			zap.String("instructor_id", instructorID.Hex()),
			zap.String("student_id", studentID.Hex()),
			zap.Error(fmt.Errorf("record instructor: %w", err)))
	}
}

func (s *Service) reject(ctx context.Context, caller auth.CallerContext, id primitive.ObjectID, op matchrules.Op, err error) {
	s.log.Info("matching operation rejected",
		zap.String("matching_id", id.Hex()),
		zap.String("actor_id", caller.ActorID),
		zap.String("op", string(op)),
		zap.Error(err))
	s.audit.MutationRejected(ctx, caller, id, string(op), err)
}

func (s *Service) maxFor(inst models.Instructor) int {
	if inst.MaxStudentsPerPeriod != nil {
		return *inst.MaxStudentsPerPeriod
	}
	return s.defaultMax
}

// checkPlacement loads the instructor and runs the license and capacity
// checks against batch.
func (s *Service) checkPlacement(ctx context.Context, instructorID primitive.ObjectID, license string, batch models.Matching) error {
	inst, err := s.instructors.Get(ctx, instructorID)
	if err != nil {
		return err
	}
	return matchrules.CheckPlacement(matchrules.Placement{
		StudentLicense:     license,
		InstructorID:       instructorID,
		InstructorLicenses: inst.LicenseTypes,
		RealCount:          inst.CurrentRealAssignmentCount,
		Max:                s.maxFor(inst),
	}, batch)
}

/*─────────────────────────────────────────────────────────────────────────────*
| Create / read                                                               |
*─────────────────────────────────────────────────────────────────────────────*/

// NewAssignment is one pairing supplied at creation.
type NewAssignment struct {
	StudentID    primitive.ObjectID
	InstructorID primitive.ObjectID
	LicenseType  string
}

// CreateInput describes a new matching.
type CreateInput struct {
	Name         string
	Description  string
	LicenseTypes []string
	Assignments  []NewAssignment
}

// Create stores a new draft matching. Initial pairings come from an
// upstream matcher and are checked for shape only: unique students and
// license types drawn from the batch's set.
func (s *Service) Create(ctx context.Context, caller auth.CallerContext, in CreateInput) (models.Matching, error) {
	var verr matchrules.ValidationError

	name := cleanName(in.Name, &verr)
	desc := cleanDescription(in.Description)
	lts := normalizeLicenseTypes(in.LicenseTypes)
	if len(lts) == 0 {
		verr.Add("license_types", "at least one license type is required")
	}

	seen := make(map[primitive.ObjectID]int, len(in.Assignments))
	for i, a := range in.Assignments {
		field := fmt.Sprintf("assignments[%d]", i)
		switch j, dup := seen[a.StudentID]; {
		case a.StudentID.IsZero():
			verr.Add(field+".student_id", "is required")
		case dup:
			verr.Add(field+".student_id", fmt.Sprintf("student already assigned in assignments[%d]", j))
		default:
			seen[a.StudentID] = i
		}
		if a.InstructorID.IsZero() {
			verr.Add(field+".instructor_id", "is required")
		}
		if lt := strings.TrimSpace(a.LicenseType); !contains(lts, lt) {
			verr.Add(field+".license_type", fmt.Sprintf("%q is not one of the matching's license types", lt))
		}
	}
	if err := verr.OrNil(); err != nil {
		return models.Matching{}, err
	}

	now := s.now()
	m := models.Matching{
		Name:         name,
		NameCI:       text.Fold(name),
		Description:  desc,
		LicenseTypes: lts,
		Status:       models.MatchingDraft,
		Assignments:  make([]models.Assignment, 0, len(in.Assignments)),
		CreatedAt:    now,
		CreatedBy:    caller.ActorID,
		LastModified: now,
		ModifiedBy:   caller.ActorID,
	}
	for _, a := range in.Assignments {
		m.Assignments = append(m.Assignments, models.Assignment{
			StudentID:    a.StudentID,
			InstructorID: a.InstructorID,
			LicenseType:  strings.TrimSpace(a.LicenseType),
			MatchedAt:    now,
		})
	}
	m.Recount()

	saved, err := s.repo.Save(ctx, m)
	if err != nil {
		return models.Matching{}, err
	}

	s.audit.MatchingCreated(ctx, caller, saved)
	s.log.Info("matching created",
		zap.String("matching_id", saved.ID.Hex()),
		zap.String("actor_id", caller.ActorID),
		zap.Int("students", saved.TotalStudents),
		zap.Int("instructors", saved.TotalInstructors))
	return saved, nil
}

// Get returns one matching.
func (s *Service) Get(ctx context.Context, _ auth.CallerContext, id primitive.ObjectID) (models.Matching, error) {
	return s.repo.Get(ctx, id)
}

// Page is one page of a matching listing.
type Page struct {
	Items   []models.Matching
	Prev    string
	Next    string
	HasPrev bool
	HasNext bool
}

// List returns matchings ordered by name, one keyset page at a time.
func (s *Service) List(ctx context.Context, _ auth.CallerContext, f models.MatchingFilter, req paging.Request) (Page, error) {
	if f.Status != "" && !f.Status.IsValid() {
		return Page{}, matchrules.NewValidationError(matchrules.FieldError{
			Field: "status", Error: fmt.Sprintf("unknown status %q", f.Status),
		})
	}
	f.Search = text.Fold(strings.TrimSpace(f.Search))

	cfg := paging.ConfigureKeyset(req)
	rows, res, err := s.repo.List(ctx, f, cfg)
	if err != nil {
		return Page{}, err
	}

	prev, next := paging.BuildCursors(rows,
		func(m models.Matching) string { return m.NameCI },
		func(m models.Matching) primitive.ObjectID { return m.ID })

	return Page{
		Items:   rows,
		Prev:    prev,
		Next:    next,
		HasPrev: res.HasPrev,
		HasNext: res.HasNext,
	}, nil
}

// DetailsInput carries the editable descriptive fields. Nil fields are left
// unchanged.
type DetailsInput struct {
	Name         *string
	Description  *string
	LicenseTypes []string
}

// UpdateDetails edits name, description and, while the batch has no
// assignments, its license types. Allowed in any non-archived status, even
// while locked.
func (s *Service) UpdateDetails(ctx context.Context, caller auth.CallerContext, id primitive.ObjectID, in DetailsInput) (models.Matching, error) {
	var changed []string

	saved, err := s.mutate(ctx, caller, id, matchrules.OpEdit, func(m *models.Matching) error {
		var verr matchrules.ValidationError

		if in.Name != nil {
			name := cleanName(*in.Name, &verr)
			if name != "" && name != m.Name {
				m.Name = name
				m.NameCI = text.Fold(name)
				changed = append(changed, "name")
			}
		}
		if in.Description != nil {
			if d := cleanDescription(*in.Description); d != m.Description {
				m.Description = d
				changed = append(changed, "description")
			}
		}
		if in.LicenseTypes != nil {
			lts := normalizeLicenseTypes(in.LicenseTypes)
			switch {
			case len(lts) == 0:
				verr.Add("license_types", "at least one license type is required")
			case equalStrings(lts, m.LicenseTypes):
			case len(m.Assignments) > 0:
				verr.Add("license_types", "cannot change once the matching has assignments")
			default:
				m.LicenseTypes = lts
				changed = append(changed, "license_types")
			}
		}
		return verr.OrNil()
	})
	if err != nil {
		return models.Matching{}, err
	}

	if len(changed) > 0 {
		s.audit.MatchingUpdated(ctx, caller, saved, changed)
	}
	return saved, nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| Input helpers                                                               |
*─────────────────────────────────────────────────────────────────────────────*/

func cleanName(raw string, verr *matchrules.ValidationError) string {
	name := htmlsanitize.PlainText(raw)
	switch {
	case name == "":
		verr.Add("name", "is required")
	case utf8.RuneCountInString(name) > maxNameLen:
		verr.Add("name", fmt.Sprintf("must be at most %d characters", maxNameLen))
		return ""
	}
	return name
}

func cleanDescription(raw string) string {
	return htmlsanitize.Truncate(htmlsanitize.PlainText(raw), maxDescriptionLen)
}

// normalizeLicenseTypes trims codes and drops blanks and repeats, keeping
// first-seen order.
func normalizeLicenseTypes(in []string) []string {
	out := make([]string, 0, len(in))
	for _, lt := range in {
		lt = strings.TrimSpace(lt)
		if lt == "" || contains(out, lt) {
			continue
		}
		out = append(out, lt)
	}
	return out
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
