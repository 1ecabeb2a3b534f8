package testutil

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dalemusser/drivehub/internal/app/system/auth"
	"github.com/dalemusser/drivehub/internal/app/system/paging"
	"github.com/dalemusser/drivehub/internal/app/system/runctx"
	"github.com/dalemusser/drivehub/internal/domain/matchrules"
	"github.com/dalemusser/drivehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// In-memory collaborators for service tests that do not need MongoDB.

/*─────────────────────────────────────────────────────────────────────────────*
| Matchings                                                                   |
*─────────────────────────────────────────────────────────────────────────────*/

// MemMatchings is a matching repository held in memory. It enforces the
// same version check as the MongoDB store.
type MemMatchings struct {
	mu    sync.Mutex
	docs  map[primitive.ObjectID]models.Matching
	saves int

	// SaveErr, when set, is returned by every Save.
	SaveErr error
}

// NewMemMatchings returns an empty repository.
func NewMemMatchings() *MemMatchings {
	return &MemMatchings{docs: make(map[primitive.ObjectID]models.Matching)}
}

// Put stores m as-is, bypassing the version check. Returns the stored copy.
func (r *MemMatchings) Put(m models.Matching) models.Matching {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m.ID.IsZero() {
		m.ID = primitive.NewObjectID()
	}
	if m.Version == 0 {
		m.Version = 1
	}
	m.Recount()
	r.docs[m.ID] = m.Clone()
	return m
}

// Saves returns how many Save calls succeeded.
func (r *MemMatchings) Saves() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saves
}

func (r *MemMatchings) Get(_ context.Context, id primitive.ObjectID) (models.Matching, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.docs[id]
	if !ok {
		return models.Matching{}, fmt.Errorf("matching %s: %w", id.Hex(), matchrules.ErrNotFound)
	}
	return m.Clone(), nil
}

func (r *MemMatchings) List(_ context.Context, f models.MatchingFilter, cfg paging.KeysetConfig) ([]models.Matching, paging.Result, error) {
	r.mu.Lock()
	rows := make([]models.Matching, 0, len(r.docs))
	for _, m := range r.docs {
		if f.Status != "" && m.Status != f.Status {
			continue
		}
		if f.Search != "" && !strings.HasPrefix(m.NameCI, f.Search) {
			continue
		}
		rows = append(rows, m.Clone())
	}
	r.mu.Unlock()

	less := func(a, b models.Matching) bool {
		if a.NameCI != b.NameCI {
			return a.NameCI < b.NameCI
		}
		return a.ID.Hex() < b.ID.Hex()
	}
	sort.Slice(rows, func(i, j int) bool {
		if cfg.SortOrder < 0 {
			return less(rows[j], rows[i])
		}
		return less(rows[i], rows[j])
	})

	if c := cfg.Cursor; c != nil {
		pivot := models.Matching{NameCI: c.CI, ID: c.ID}
		kept := rows[:0]
		for _, m := range rows {
			if (cfg.Direction == paging.Forward && less(pivot, m)) ||
				(cfg.Direction == paging.Backward && less(m, pivot)) {
				kept = append(kept, m)
			}
		}
		rows = kept
	}
	if len(rows) > cfg.Limit+1 {
		rows = rows[:cfg.Limit+1]
	}
	res := paging.TrimPage(&rows, cfg)
	return rows, res, nil
}

func (r *MemMatchings) Save(_ context.Context, m models.Matching) (models.Matching, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.SaveErr != nil {
		return models.Matching{}, r.SaveErr
	}

	if m.ID.IsZero() {
		m.ID = primitive.NewObjectID()
		m.Version = 1
	} else {
		cur, ok := r.docs[m.ID]
		if !ok {
			return models.Matching{}, fmt.Errorf("matching %s: %w", m.ID.Hex(), matchrules.ErrNotFound)
		}
		if cur.Version != m.Version {
			return models.Matching{}, fmt.Errorf("matching %s: %w", m.ID.Hex(), matchrules.ErrConflict)
		}
		m.Version++
	}
	r.docs[m.ID] = m.Clone()
	r.saves++
	return m.Clone(), nil
}

func (r *MemMatchings) Delete(_ context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.docs[id]; !ok {
		return fmt.Errorf("matching %s: %w", id.Hex(), matchrules.ErrNotFound)
	}
	delete(r.docs, id)
	return nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| Students / instructors                                                      |
*─────────────────────────────────────────────────────────────────────────────*/

// MemStudents is a student directory and recorder held in memory.
type MemStudents struct {
	mu   sync.Mutex
	docs map[primitive.ObjectID]models.Student
	// order keeps insertion order for ListActive.
	order []primitive.ObjectID

	// FailFor makes RecordInstructor fail for these instructors.
	FailFor map[primitive.ObjectID]error
}

// NewMemStudents returns a directory seeded with students.
func NewMemStudents(students ...models.Student) *MemStudents {
	s := &MemStudents{docs: make(map[primitive.ObjectID]models.Student)}
	for _, st := range students {
		s.Put(st)
	}
	return s
}

// Put adds or replaces a student.
func (s *MemStudents) Put(st models.Student) models.Student {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st.ID.IsZero() {
		st.ID = primitive.NewObjectID()
	}
	if _, ok := s.docs[st.ID]; !ok {
		s.order = append(s.order, st.ID)
	}
	s.docs[st.ID] = st
	return st
}

func (s *MemStudents) Get(_ context.Context, id primitive.ObjectID) (models.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.docs[id]
	if !ok {
		return models.Student{}, fmt.Errorf("student %s: %w", id.Hex(), matchrules.ErrNotFound)
	}
	return st, nil
}

func (s *MemStudents) ListActive(_ context.Context, licenseTypes []string) ([]models.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Student, 0, len(s.order))
	for _, id := range s.order {
		st := s.docs[id]
		if !st.IsActive() {
			continue
		}
		for _, lt := range licenseTypes {
			if st.LicenseType == lt {
				out = append(out, st)
				break
			}
		}
	}
	return out, nil
}

func (s *MemStudents) RecordInstructor(_ context.Context, matchingID, instructorID primitive.ObjectID, studentIDs []primitive.ObjectID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.FailFor[instructorID]; err != nil {
		return err
	}
	for _, id := range studentIDs {
		st, ok := s.docs[id]
		if !ok {
			return fmt.Errorf("student %s: %w", id.Hex(), matchrules.ErrNotFound)
		}
		inst, mid, when := instructorID, matchingID, at
		st.InstructorID = &inst
		st.MatchingID = &mid
		st.InstructorAssigned = &when
		st.UpdatedAt = at
		s.docs[id] = st
	}
	return nil
}

// MemInstructors is an instructor directory held in memory.
type MemInstructors struct {
	mu   sync.Mutex
	docs map[primitive.ObjectID]models.Instructor
}

// NewMemInstructors returns a directory seeded with instructors.
func NewMemInstructors(instructors ...models.Instructor) *MemInstructors {
	d := &MemInstructors{docs: make(map[primitive.ObjectID]models.Instructor)}
	for _, inst := range instructors {
		d.Put(inst)
	}
	return d
}

// Put adds or replaces an instructor, including its real assignment count.
func (d *MemInstructors) Put(inst models.Instructor) models.Instructor {
	d.mu.Lock()
	defer d.mu.Unlock()
	if inst.ID.IsZero() {
		inst.ID = primitive.NewObjectID()
	}
	d.docs[inst.ID] = inst
	return inst
}

func (d *MemInstructors) Get(_ context.Context, id primitive.ObjectID) (models.Instructor, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	inst, ok := d.docs[id]
	if !ok {
		return models.Instructor{}, fmt.Errorf("instructor %s: %w", id.Hex(), matchrules.ErrNotFound)
	}
	return inst, nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| Notifications                                                               |
*─────────────────────────────────────────────────────────────────────────────*/

// MemNotifier records every notification it is asked to send.
type MemNotifier struct {
	mu   sync.Mutex
	sent []models.Notification

	// FailFor makes Send fail for these students.
	FailFor map[primitive.ObjectID]error
}

func (n *MemNotifier) Send(ctx context.Context, caller auth.CallerContext, studentID primitive.ObjectID, title, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.FailFor[studentID]; err != nil {
		return err
	}
	note := models.Notification{
		ID:        primitive.NewObjectID(),
		StudentID: studentID,
		Title:     title,
		Message:   message,
		SentBy:    caller.ActorID,
		CreatedAt: time.Now().UTC(),
	}
	if run, ok := runctx.ApplyFrom(ctx); ok {
		mid := run.MatchingID
		note.MatchingID = &mid
		note.RunID = run.RunID
	}
	n.sent = append(n.sent, note)
	return nil
}

// Sent returns a copy of the notifications delivered so far.
func (n *MemNotifier) Sent() []models.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]models.Notification(nil), n.sent...)
}

// ListForStudent returns the student's notifications, newest first.
func (n *MemNotifier) ListForStudent(_ context.Context, studentID primitive.ObjectID, limit int64) ([]models.Notification, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []models.Notification
	for i := len(n.sent) - 1; i >= 0; i-- {
		if n.sent[i].StudentID != studentID {
			continue
		}
		out = append(out, n.sent[i])
		if limit > 0 && int64(len(out)) >= limit {
			break
		}
	}
	return out, nil
}
