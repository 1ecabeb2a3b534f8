// internal/app/features/matchings/types.go
package matchings

import (
	"time"

	"github.com/dalemusser/drivehub/internal/app/matching"
	"github.com/dalemusser/drivehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type assignmentJSON struct {
	StudentID            primitive.ObjectID  `json:"student_id"`
	InstructorID         primitive.ObjectID  `json:"instructor_id"`
	LicenseType          string              `json:"license_type"`
	IsTransferred        bool                `json:"is_transferred"`
	PreviousInstructorID *primitive.ObjectID `json:"previous_instructor_id,omitempty"`
	MatchedAt            time.Time           `json:"matched_at"`
}

type matchingJSON struct {
	ID               primitive.ObjectID `json:"id"`
	Name             string             `json:"name"`
	Description      string             `json:"description"`
	LicenseTypes     []string           `json:"license_types"`
	Status           string             `json:"status"`
	IsLocked         bool               `json:"is_locked"`
	Assignments      []assignmentJSON   `json:"assignments"`
	TotalStudents    int                `json:"total_students"`
	TotalInstructors int                `json:"total_instructors"`
	CreatedAt        time.Time          `json:"created_at"`
	CreatedBy        string             `json:"created_by"`
	LastModified     time.Time          `json:"last_modified"`
	ModifiedBy       string             `json:"modified_by"`
	Version          int64              `json:"version"`
}

func toMatchingJSON(m models.Matching) matchingJSON {
	out := matchingJSON{
		ID:               m.ID,
		Name:             m.Name,
		Description:      m.Description,
		LicenseTypes:     m.LicenseTypes,
		Status:           statusToWire(m.Status),
		IsLocked:         m.IsLocked,
		Assignments:      make([]assignmentJSON, 0, len(m.Assignments)),
		TotalStudents:    m.TotalStudents,
		TotalInstructors: m.TotalInstructors,
		CreatedAt:        m.CreatedAt,
		CreatedBy:        m.CreatedBy,
		LastModified:     m.LastModified,
		ModifiedBy:       m.ModifiedBy,
		Version:          m.Version,
	}
	if out.LicenseTypes == nil {
		out.LicenseTypes = []string{}
	}
	for _, a := range m.Assignments {
		out.Assignments = append(out.Assignments, assignmentJSON(a))
	}
	return out
}

type listResponse struct {
	Items      []matchingJSON `json:"items"`
	PrevCursor string         `json:"prev_cursor,omitempty"`
	NextCursor string         `json:"next_cursor,omitempty"`
	HasPrev    bool           `json:"has_prev"`
	HasNext    bool           `json:"has_next"`
}

type failureJSON struct {
	InstructorID primitive.ObjectID `json:"instructor_id"`
	StudentID    primitive.ObjectID `json:"student_id"`
	Error        string             `json:"error"`
}

type reportJSON struct {
	RunID       string        `json:"run_id"`
	Instructors int           `json:"instructors"`
	Students    int           `json:"students"`
	Delivered   int           `json:"delivered"`
	Failures    []failureJSON `json:"failures"`
}

type applyResponse struct {
	Matching matchingJSON `json:"matching"`
	Report   reportJSON   `json:"report"`
}

func toReportJSON(r matching.ApplyReport) reportJSON {
	out := reportJSON{
		RunID:       r.RunID,
		Instructors: r.Instructors,
		Students:    r.Students,
		Delivered:   r.Delivered(),
		Failures:    make([]failureJSON, 0, len(r.Failures)),
	}
	for _, f := range r.Failures {
		msg := "unknown"
		if f.Err != nil {
			msg = f.Err.Error()
		}
		out.Failures = append(out.Failures, failureJSON{
			InstructorID: f.InstructorID,
			StudentID:    f.StudentID,
			Error:        msg,
		})
	}
	return out
}

/*─────────────────────────────────────────────────────────────────────────────*
| Requests                                                                    |
*─────────────────────────────────────────────────────────────────────────────*/

type newAssignmentRequest struct {
	StudentID    string `json:"student_id"`
	InstructorID string `json:"instructor_id"`
	LicenseType  string `json:"license_type"`
}

type createRequest struct {
	Name         string                 `json:"name"`
	Description  string                 `json:"description"`
	LicenseTypes []string               `json:"license_types"`
	Assignments  []newAssignmentRequest `json:"assignments"`
}

type detailsRequest struct {
	Name         *string  `json:"name"`
	Description  *string  `json:"description"`
	LicenseTypes []string `json:"license_types"`
}

type swapRequest struct {
	StudentID        string `json:"student_id"`
	FromInstructorID string `json:"from_instructor_id"`
	ToInstructorID   string `json:"to_instructor_id"`
}

type addStudentRequest struct {
	StudentID    string `json:"student_id"`
	InstructorID string `json:"instructor_id"`
	LicenseType  string `json:"license_type"`
}
