// internal/domain/models/student.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Student statuses.
const (
	StudentActive   = "active"
	StudentInactive = "inactive"
	StudentGraduate = "graduated"
)

// Student is a learner driver. Records are owned by the student admin
// screens; this service only reads them and, after a matching is applied,
// records the assigned instructor.
type Student struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	FullName    string             `bson:"full_name" json:"full_name"`
	FullNameCI  string             `bson:"full_name_ci" json:"-"`
	LicenseType string             `bson:"license_type" json:"license_type"`
	Status      string             `bson:"status" json:"status"`

	InstructorID       *primitive.ObjectID `bson:"instructor_id,omitempty" json:"instructor_id,omitempty"`
	InstructorAssigned *time.Time          `bson:"instructor_assigned_at,omitempty" json:"instructor_assigned_at,omitempty"`
	MatchingID         *primitive.ObjectID `bson:"matching_id,omitempty" json:"matching_id,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// IsActive reports whether the student can be placed in a matching.
func (s Student) IsActive() bool { return s.Status == StudentActive }
