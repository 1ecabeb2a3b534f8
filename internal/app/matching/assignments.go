// internal/app/matching/assignments.go
package matching

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dalemusser/drivehub/internal/app/system/auth"
	"github.com/dalemusser/drivehub/internal/domain/matchrules"
	"github.com/dalemusser/drivehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// SwapStudent moves a student from one instructor to another inside the
// batch. The target is checked against the batch without the student, so a
// student already counted for the target never blocks its own move.
func (s *Service) SwapStudent(ctx context.Context, caller auth.CallerContext, id, studentID, fromID, toID primitive.ObjectID) (models.Matching, error) {
	saved, err := s.mutateThen(ctx, caller, id, matchrules.OpMutate, func(m *models.Matching) error {
		if fromID == toID {
			return matchrules.NewValidationError(matchrules.FieldError{
				Field: "to_instructor_id", Error: "must differ from from_instructor_id",
			})
		}
		i := m.IndexOfStudent(studentID)
		if i < 0 || m.Assignments[i].InstructorID != fromID {
			return fmt.Errorf("student %s is not assigned to instructor %s: %w",
				studentID.Hex(), fromID.Hex(), matchrules.ErrNotFound)
		}

		if err := s.checkPlacement(ctx, toID, m.Assignments[i].LicenseType, m.WithoutStudent(studentID)); err != nil {
			return err
		}

		prev := fromID
		a := &m.Assignments[i]
		a.InstructorID = toID
		a.IsTransferred = true
		a.PreviousInstructorID = &prev
		a.MatchedAt = s.now()
		return nil
	}, func(saved models.Matching) {
		s.syncStudent(ctx, saved, studentID, toID)
	})
	if err != nil {
		return models.Matching{}, err
	}

	s.audit.StudentSwapped(ctx, caller, id, studentID, fromID, toID)
	s.log.Info("student swapped",
		zap.String("matching_id", id.Hex()),
		zap.String("student_id", studentID.Hex()),
		zap.String("from_instructor_id", fromID.Hex()),
		zap.String("to_instructor_id", toID.Hex()))
	return saved, nil
}

// AddStudent appends a new pairing. An empty licenseType falls back to the
// student's own license class.
func (s *Service) AddStudent(ctx context.Context, caller auth.CallerContext, id, studentID, instructorID primitive.ObjectID, licenseType string) (models.Matching, error) {
	licenseType = strings.TrimSpace(licenseType)

	saved, err := s.mutateThen(ctx, caller, id, matchrules.OpMutate, func(m *models.Matching) error {
		if m.IndexOfStudent(studentID) >= 0 {
			return fmt.Errorf("student %s: %w", studentID.Hex(), matchrules.ErrDuplicateStudent)
		}

		st, err := s.students.Get(ctx, studentID)
		if err != nil {
			return err
		}
		if licenseType == "" {
			licenseType = st.LicenseType
		}

		var verr matchrules.ValidationError
		if !st.IsActive() {
			verr.Add("student_id", fmt.Sprintf("student is %s", st.Status))
		}
		if st.LicenseType != licenseType {
			verr.Add("license_type", fmt.Sprintf("student trains for %q, not %q", st.LicenseType, licenseType))
		}
		if !m.HasLicenseType(licenseType) {
			verr.Add("license_type", fmt.Sprintf("%q is not one of the matching's license types", licenseType))
		}
		if err := verr.OrNil(); err != nil {
			return err
		}

		if err := s.checkPlacement(ctx, instructorID, licenseType, *m); err != nil {
			return err
		}

		m.Assignments = append(m.Assignments, models.Assignment{
			StudentID:    studentID,
			InstructorID: instructorID,
			LicenseType:  licenseType,
			MatchedAt:    s.now(),
		})
		return nil
	}, func(saved models.Matching) {
		s.syncStudent(ctx, saved, studentID, instructorID)
	})
	if err != nil {
		return models.Matching{}, err
	}

	s.audit.StudentAdded(ctx, caller, id, studentID, instructorID, licenseType)
	s.log.Info("student added",
		zap.String("matching_id", id.Hex()),
		zap.String("student_id", studentID.Hex()),
		zap.String("instructor_id", instructorID.Hex()))
	return saved, nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| Queries                                                                     |
*─────────────────────────────────────────────────────────────────────────────*/

// ListAvailableStudents returns the students that could still be added to
// the matching. When all is nil the active students for the matching's
// license classes are read from the directory.
func (s *Service) ListAvailableStudents(ctx context.Context, _ auth.CallerContext, id primitive.ObjectID, all []models.Student) ([]models.Student, error) {
	m, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if all == nil {
		all, err = s.students.ListActive(ctx, m.LicenseTypes)
		if err != nil {
			return nil, err
		}
	}
	return AvailableStudents(m, all), nil
}

// AvailableStudents keeps the active students of all whose license class is
// in m and who are not already assigned in m. Order is preserved.
func AvailableStudents(m models.Matching, all []models.Student) []models.Student {
	assigned := make(map[primitive.ObjectID]struct{}, len(m.Assignments))
	for _, a := range m.Assignments {
		assigned[a.StudentID] = struct{}{}
	}

	out := make([]models.Student, 0, len(all))
	for _, st := range all {
		if !st.IsActive() || !m.HasLicenseType(st.LicenseType) {
			continue
		}
		if _, ok := assigned[st.ID]; ok {
			continue
		}
		out = append(out, st)
	}
	return out
}

// InstructorLoad is the capacity picture for one instructor in a matching.
type InstructorLoad struct {
	InstructorID  primitive.ObjectID `json:"instructor_id"`
	FullName      string             `json:"full_name"`
	LicenseTypes  []string           `json:"license_types"`
	InBatch       int                `json:"in_batch"`
	RealCount     int                `json:"real_count"`
	EffectiveLoad int                `json:"effective_load"`
	Max           int                `json:"max"`
	Remaining     int                `json:"remaining"`
	// Missing is set when the instructor profile no longer exists.
	Missing bool `json:"missing,omitempty"`
}

// InstructorLoads reports the load of every instructor referenced by the
// matching, in assignment order.
func (s *Service) InstructorLoads(ctx context.Context, _ auth.CallerContext, id primitive.ObjectID) ([]InstructorLoad, error) {
	m, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	ids := m.InstructorIDs()
	out := make([]InstructorLoad, 0, len(ids))
	for _, instID := range ids {
		load := InstructorLoad{InstructorID: instID, InBatch: m.CountFor(instID)}

		inst, err := s.instructors.Get(ctx, instID)
		if errors.Is(err, matchrules.ErrNotFound) {
			load.Missing = true
			out = append(out, load)
			continue
		}
		if err != nil {
			return nil, err
		}

		load.FullName = inst.FullName
		load.LicenseTypes = inst.LicenseTypes
		load.RealCount = inst.CurrentRealAssignmentCount
		load.EffectiveLoad = matchrules.EffectiveLoad(instID, m, inst.CurrentRealAssignmentCount)
		load.Max = s.maxFor(inst)
		load.Remaining = max(0, load.Max-load.EffectiveLoad)
		out = append(out, load)
	}
	return out, nil
}
