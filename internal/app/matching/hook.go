// internal/app/matching/hook.go
package matching

import (
	"context"
	"fmt"
	"time"

	"github.com/dalemusser/drivehub/internal/app/system/auth"
	"github.com/dalemusser/drivehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// DefaultNotifyTitle is the notification title used when none is configured.
const DefaultNotifyTitle = "Your instructor has been assigned"

// HookDeps wires the default apply hook.
type HookDeps struct {
	Recorder    StudentRecorder
	Instructors InstructorDirectory
	Notifier    NotificationDispatcher
	Title       string
	Log         *zap.Logger
	Clock       func() time.Time
}

// RecordAndNotify returns the apply hook that writes the pairing onto the
// student records and then sends each student one notification. When the
// record step fails no notification is sent for that instructor.
func RecordAndNotify(d HookDeps) ApplyHook {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Clock == nil {
		d.Clock = func() time.Time { return time.Now().UTC() }
	}
	if d.Title == "" {
		d.Title = DefaultNotifyTitle
	}

	return func(ctx context.Context, caller auth.CallerContext, m models.Matching, instructorID primitive.ObjectID, assigned []models.Assignment) []DeliveryFailure {
		if len(assigned) == 0 {
			return nil
		}

		if d.Recorder != nil {
			ids := make([]primitive.ObjectID, len(assigned))
			for i, a := range assigned {
				ids[i] = a.StudentID
			}
			if err := d.Recorder.RecordInstructor(ctx, m.ID, instructorID, ids, d.Clock()); err != nil {
				d.Log.Warn("record instructor failed",
					zap.String("matching_id", m.ID.Hex()),
					zap.String("instructor_id", instructorID.Hex()),
					zap.Error(err))
				return failAll(instructorID, assigned, fmt.Errorf("record instructor: %w", err))
			}
		}

		if d.Notifier == nil {
			return nil
		}

		name := "your new instructor"
		if d.Instructors != nil {
			inst, err := d.Instructors.Get(ctx, instructorID)
			switch {
			case err == nil && inst.FullName != "":
				name = inst.FullName
			case err != nil:
				d.Log.Debug("instructor lookup for notification failed",
					zap.String("instructor_id", instructorID.Hex()),
					zap.Error(err))
			}
		}

		var failures []DeliveryFailure
		for _, a := range assigned {
			msg := fmt.Sprintf("You have been matched with %s for license class %s.", name, a.LicenseType)
			if err := d.Notifier.Send(ctx, caller, a.StudentID, d.Title, msg); err != nil {
				failures = append(failures, DeliveryFailure{
					InstructorID: instructorID,
					StudentID:    a.StudentID,
					Err:          fmt.Errorf("notify: %w", err),
				})
			}
		}
		return failures
	}
}

func failAll(instructorID primitive.ObjectID, assigned []models.Assignment, err error) []DeliveryFailure {
	out := make([]DeliveryFailure, len(assigned))
	for i, a := range assigned {
		out[i] = DeliveryFailure{InstructorID: instructorID, StudentID: a.StudentID, Err: err}
	}
	return out
}
