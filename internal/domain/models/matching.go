// internal/domain/models/matching.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MatchingStatus is the approval state of a Matching batch.
type MatchingStatus string

const (
	MatchingDraft    MatchingStatus = "draft"
	MatchingApplied  MatchingStatus = "applied"
	MatchingArchived MatchingStatus = "archived"
)

func (s MatchingStatus) String() string { return string(s) }

// IsValid reports whether s is one of the known statuses.
func (s MatchingStatus) IsValid() bool {
	switch s {
	case MatchingDraft, MatchingApplied, MatchingArchived:
		return true
	}
	return false
}

// Matching is a saved batch of student-to-instructor pairings covering a set
// of license classes. It models a document in the `matchings` collection.
//
// NOTE:
//   - Assignments are embedded; a student appears at most once per batch.
//   - TotalStudents / TotalInstructors are derived from Assignments by
//     Recount and are never edited directly.
//   - Version is bumped by the store on every save (optimistic concurrency).
type Matching struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name         string             `bson:"name" json:"name"`
	NameCI       string             `bson:"name_ci" json:"-"`
	Description  string             `bson:"description" json:"description"`
	LicenseTypes []string           `bson:"license_types" json:"license_types"`

	Status   MatchingStatus `bson:"status" json:"status"`
	IsLocked bool           `bson:"is_locked" json:"is_locked"`

	Assignments      []Assignment `bson:"assignments" json:"assignments"`
	TotalStudents    int          `bson:"total_students" json:"total_students"`
	TotalInstructors int          `bson:"total_instructors" json:"total_instructors"`

	CreatedAt    time.Time `bson:"created_at" json:"created_at"`
	CreatedBy    string    `bson:"created_by" json:"created_by"`
	LastModified time.Time `bson:"last_modified" json:"last_modified"`
	ModifiedBy   string    `bson:"modified_by" json:"modified_by"`

	Version int64 `bson:"version" json:"version"`
}

// MatchingFilter narrows a listing of matchings. Zero fields match all.
type MatchingFilter struct {
	Status MatchingStatus
	// Search is a case-insensitive prefix of the name.
	Search string
}

// Assignment is one student ↔ instructor pairing inside a Matching.
type Assignment struct {
	StudentID            primitive.ObjectID  `bson:"student_id" json:"student_id"`
	InstructorID         primitive.ObjectID  `bson:"instructor_id" json:"instructor_id"`
	LicenseType          string              `bson:"license_type" json:"license_type"`
	IsTransferred        bool                `bson:"is_transferred" json:"is_transferred"`
	PreviousInstructorID *primitive.ObjectID `bson:"previous_instructor_id,omitempty" json:"previous_instructor_id,omitempty"`
	MatchedAt            time.Time           `bson:"matched_at" json:"matched_at"`
}

// Recount recomputes the denormalized student and instructor totals.
func (m *Matching) Recount() {
	instructors := make(map[primitive.ObjectID]struct{}, len(m.Assignments))
	for _, a := range m.Assignments {
		instructors[a.InstructorID] = struct{}{}
	}
	m.TotalStudents = len(m.Assignments)
	m.TotalInstructors = len(instructors)
}

// IndexOfStudent returns the position of the student's assignment, or -1.
func (m *Matching) IndexOfStudent(studentID primitive.ObjectID) int {
	for i, a := range m.Assignments {
		if a.StudentID == studentID {
			return i
		}
	}
	return -1
}

// HasLicenseType reports whether lt is one of the batch's license classes.
func (m *Matching) HasLicenseType(lt string) bool {
	for _, v := range m.LicenseTypes {
		if v == lt {
			return true
		}
	}
	return false
}

// CountFor returns how many assignments in the batch point at instructorID.
func (m *Matching) CountFor(instructorID primitive.ObjectID) int {
	n := 0
	for _, a := range m.Assignments {
		if a.InstructorID == instructorID {
			n++
		}
	}
	return n
}

// InstructorIDs returns the distinct instructors in insertion order.
func (m *Matching) InstructorIDs() []primitive.ObjectID {
	seen := make(map[primitive.ObjectID]struct{}, len(m.Assignments))
	out := make([]primitive.ObjectID, 0, len(m.Assignments))
	for _, a := range m.Assignments {
		if _, ok := seen[a.InstructorID]; ok {
			continue
		}
		seen[a.InstructorID] = struct{}{}
		out = append(out, a.InstructorID)
	}
	return out
}

// AssignmentsFor returns the assignments held by instructorID.
func (m *Matching) AssignmentsFor(instructorID primitive.ObjectID) []Assignment {
	var out []Assignment
	for _, a := range m.Assignments {
		if a.InstructorID == instructorID {
			out = append(out, a)
		}
	}
	return out
}

// Clone returns a deep copy so callers can mutate without touching the original.
func (m Matching) Clone() Matching {
	c := m
	c.LicenseTypes = append([]string(nil), m.LicenseTypes...)
	c.Assignments = make([]Assignment, len(m.Assignments))
	for i, a := range m.Assignments {
		c.Assignments[i] = a
		if a.PreviousInstructorID != nil {
			prev := *a.PreviousInstructorID
			c.Assignments[i].PreviousInstructorID = &prev
		}
	}
	return c
}

// WithoutStudent returns a copy of the batch minus the student's assignment.
func (m Matching) WithoutStudent(studentID primitive.ObjectID) Matching {
	c := m.Clone()
	if i := c.IndexOfStudent(studentID); i >= 0 {
		c.Assignments = append(c.Assignments[:i], c.Assignments[i+1:]...)
	}
	return c
}
