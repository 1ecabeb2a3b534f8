// internal/app/matching/contracts.go
package matching

import (
	"context"
	"fmt"
	"time"

	"github.com/dalemusser/drivehub/internal/app/system/auth"
	"github.com/dalemusser/drivehub/internal/app/system/paging"
	"github.com/dalemusser/drivehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/multierr"
)

// Repository persists matchings. Get, Save and Delete return an error
// matching matchrules.ErrNotFound for unknown ids; Save returns one matching
// matchrules.ErrConflict when the stored copy changed since it was read.
type Repository interface {
	Get(ctx context.Context, id primitive.ObjectID) (models.Matching, error)
	List(ctx context.Context, f models.MatchingFilter, page paging.KeysetConfig) ([]models.Matching, paging.Result, error)
	Save(ctx context.Context, m models.Matching) (models.Matching, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// StudentDirectory reads student records owned elsewhere.
type StudentDirectory interface {
	Get(ctx context.Context, id primitive.ObjectID) (models.Student, error)
	ListActive(ctx context.Context, licenseTypes []string) ([]models.Student, error)
}

// InstructorDirectory reads instructor profiles, including how many students
// each one currently has outside any draft matching.
type InstructorDirectory interface {
	Get(ctx context.Context, id primitive.ObjectID) (models.Instructor, error)
}

// NotificationDispatcher delivers one message to one student.
type NotificationDispatcher interface {
	Send(ctx context.Context, caller auth.CallerContext, studentID primitive.ObjectID, title, message string) error
}

// StudentRecorder writes an applied pairing onto the student records.
type StudentRecorder interface {
	RecordInstructor(ctx context.Context, matchingID, instructorID primitive.ObjectID, studentIDs []primitive.ObjectID, at time.Time) error
}

// ApplyHook runs the side effects of an apply for one instructor and that
// instructor's assignments. It reports each student it could not serve and
// never fails the apply itself.
type ApplyHook func(ctx context.Context, caller auth.CallerContext, m models.Matching, instructorID primitive.ObjectID, assignments []models.Assignment) []DeliveryFailure

// DeliveryFailure is one student an apply side effect did not reach.
type DeliveryFailure struct {
	InstructorID primitive.ObjectID
	StudentID    primitive.ObjectID
	Err          error
}

func (f DeliveryFailure) Error() string {
	return fmt.Sprintf("instructor %s, student %s: %v", f.InstructorID.Hex(), f.StudentID.Hex(), f.Err)
}

func (f DeliveryFailure) Unwrap() error { return f.Err }

// ApplyReport describes the fan-out that followed a successful apply.
type ApplyReport struct {
	RunID       string
	MatchingID  primitive.ObjectID
	Instructors int
	Students    int
	Failures    []DeliveryFailure
}

// Err combines every delivery failure, or returns nil when all succeeded.
func (r ApplyReport) Err() error {
	var err error
	for _, f := range r.Failures {
		err = multierr.Append(err, f)
	}
	return err
}

// Delivered returns how many students were fully served.
func (r ApplyReport) Delivered() int {
	failed := make(map[primitive.ObjectID]struct{}, len(r.Failures))
	for _, f := range r.Failures {
		failed[f.StudentID] = struct{}{}
	}
	return r.Students - len(failed)
}
