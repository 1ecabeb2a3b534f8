// internal/domain/matchrules/validator.go
package matchrules

import (
	"github.com/dalemusser/drivehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CheckLicenseCompatibility fails when the instructor's license classes do
// not include the class the student is training for.
func CheckLicenseCompatibility(studentLicense string, instructorLicenses []string) error {
	for _, lt := range instructorLicenses {
		if lt == studentLicense {
			return nil
		}
	}
	return &LicenseError{
		Required:  studentLicense,
		Available: append([]string(nil), instructorLicenses...),
	}
}

// EffectiveLoad returns the number of students the instructor is treated as
// having once this matching is taken into account.
//
// An applied batch is already reflected in the student records, so only the
// batch's own assignments count; adding the external count would count those
// students twice. A draft batch is provisional, so its assignments are added
// on top of the external count.
func EffectiveLoad(instructorID primitive.ObjectID, m models.Matching, realCount int) int {
	inBatch := m.CountFor(instructorID)
	if m.Status == models.MatchingApplied {
		return inBatch
	}
	return realCount + inBatch
}

// CheckCapacity fails when placing one more student would exceed max.
// A load equal to max is already full.
func CheckCapacity(load, max int) error {
	if load >= max {
		return &CapacityError{Load: load, Max: max}
	}
	return nil
}

// Placement is everything needed to decide whether one student may go to
// one instructor.
type Placement struct {
	StudentLicense     string
	InstructorID       primitive.ObjectID
	InstructorLicenses []string
	RealCount          int
	Max                int
}

// CheckPlacement runs the license and capacity checks in order against the
// given batch. For a swap, pass the batch with the moving student removed.
func CheckPlacement(p Placement, m models.Matching) error {
	if err := CheckLicenseCompatibility(p.StudentLicense, p.InstructorLicenses); err != nil {
		return err
	}
	return CheckCapacity(EffectiveLoad(p.InstructorID, m, p.RealCount), p.Max)
}
