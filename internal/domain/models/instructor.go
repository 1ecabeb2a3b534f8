// internal/domain/models/instructor.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Instructor is a driving instructor profile.
//
// MaxStudentsPerPeriod is optional; when nil the caller supplies the
// configured default. CurrentRealAssignmentCount is not stored: the
// instructors store fills it from the students collection.
type Instructor struct {
	ID                   primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	FullName             string             `bson:"full_name" json:"full_name"`
	LicenseTypes         []string           `bson:"license_types" json:"license_types"`
	MaxStudentsPerPeriod *int               `bson:"max_students_per_period,omitempty" json:"max_students_per_period,omitempty"`
	Status               string             `bson:"status" json:"status"`

	CurrentRealAssignmentCount int `bson:"-" json:"current_real_assignment_count"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
