// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"strconv"
	"strings"

	"github.com/dalemusser/drivehub/internal/app/store/audit"
	"github.com/dalemusser/drivehub/internal/app/system/auth"
	"github.com/dalemusser/drivehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Destinations for audit events.
const (
	ModeAll = "all" // MongoDB + zap
	ModeDB  = "db"  // MongoDB only
	ModeLog = "log" // zap only
	ModeOff = "off"
)

// Config holds audit logging configuration.
type Config struct {
	// Matching controls logging for matching events: "all", "db", "log" or "off".
	Matching string
}

// Logger records matching events to MongoDB (via audit.Store) and to zap.
type Logger struct {
	store  *audit.Store
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger. store may be nil, in which case "db"
// destinations are skipped.
func New(store *audit.Store, zapLog *zap.Logger, config Config) *Logger {
	if zapLog == nil {
		zapLog = zap.NewNop()
	}
	return &Logger{
		store:  store,
		zapLog: zapLog,
		config: config,
	}
}

func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
		zap.String("actor_id", event.ActorID),
	}
	if event.MatchingID != nil {
		fields = append(fields, zap.String("matching_id", event.MatchingID.Hex()))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// Log records an event according to configuration. A nil Logger is a no-op.
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}
	if event.Category == "" {
		event.Category = audit.CategoryMatching
	}

	setting := l.config.Matching
	if setting == "" {
		setting = ModeAll
	}
	if setting == ModeOff {
		return
	}

	if setting == ModeAll || setting == ModeLog {
		l.logToZap(event)
	}
	if (setting == ModeAll || setting == ModeDB) && l.store != nil {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType),
			)
		}
	}
}

func event(caller auth.CallerContext, eventType string, matchingID primitive.ObjectID, details map[string]string) audit.Event {
	id := matchingID
	return audit.Event{
		Category:   audit.CategoryMatching,
		EventType:  eventType,
		MatchingID: &id,
		ActorID:    caller.ActorID,
		ActorName:  caller.ActorName,
		Success:    true,
		Details:    details,
	}
}

// MatchingCreated logs a new matching.
func (l *Logger) MatchingCreated(ctx context.Context, caller auth.CallerContext, m models.Matching) {
	l.Log(ctx, event(caller, audit.EventMatchingCreated, m.ID, map[string]string{
		"name":           m.Name,
		"license_types":  strings.Join(m.LicenseTypes, ","),
		"total_students": strconv.Itoa(m.TotalStudents),
	}))
}

// MatchingUpdated logs a name, description or license type change.
func (l *Logger) MatchingUpdated(ctx context.Context, caller auth.CallerContext, m models.Matching, fieldsChanged []string) {
	l.Log(ctx, event(caller, audit.EventMatchingUpdated, m.ID, map[string]string{
		"fields_changed": strings.Join(fieldsChanged, ","),
	}))
}

// StudentSwapped logs a reassignment within a matching.
func (l *Logger) StudentSwapped(ctx context.Context, caller auth.CallerContext, matchingID, studentID, fromID, toID primitive.ObjectID) {
	l.Log(ctx, event(caller, audit.EventStudentSwapped, matchingID, map[string]string{
		"student_id":         studentID.Hex(),
		"from_instructor_id": fromID.Hex(),
		"to_instructor_id":   toID.Hex(),
	}))
}

// StudentAdded logs a student appended to a matching.
func (l *Logger) StudentAdded(ctx context.Context, caller auth.CallerContext, matchingID, studentID, instructorID primitive.ObjectID, licenseType string) {
	l.Log(ctx, event(caller, audit.EventStudentAdded, matchingID, map[string]string{
		"student_id":    studentID.Hex(),
		"instructor_id": instructorID.Hex(),
		"license_type":  licenseType,
	}))
}

// MatchingApplied logs an apply together with its delivery outcome.
func (l *Logger) MatchingApplied(ctx context.Context, caller auth.CallerContext, matchingID primitive.ObjectID, runID string, instructors, failures int) {
	l.Log(ctx, event(caller, audit.EventMatchingApplied, matchingID, map[string]string{
		"apply_run_id":      runID,
		"instructors":       strconv.Itoa(instructors),
		"delivery_failures": strconv.Itoa(failures),
	}))
}

// MatchingArchived logs the terminal transition.
func (l *Logger) MatchingArchived(ctx context.Context, caller auth.CallerContext, matchingID primitive.ObjectID) {
	l.Log(ctx, event(caller, audit.EventMatchingArchived, matchingID, nil))
}

// MatchingLockToggled logs a lock flip.
func (l *Logger) MatchingLockToggled(ctx context.Context, caller auth.CallerContext, matchingID primitive.ObjectID, locked bool) {
	l.Log(ctx, event(caller, audit.EventMatchingLockToggled, matchingID, map[string]string{
		"is_locked": strconv.FormatBool(locked),
	}))
}

// MatchingDeleted logs a removal.
func (l *Logger) MatchingDeleted(ctx context.Context, caller auth.CallerContext, matchingID primitive.ObjectID, name string) {
	l.Log(ctx, event(caller, audit.EventMatchingDeleted, matchingID, map[string]string{
		"name": name,
	}))
}

// MutationRejected logs an operation refused by the rules.
func (l *Logger) MutationRejected(ctx context.Context, caller auth.CallerContext, matchingID primitive.ObjectID, op string, reason error) {
	ev := event(caller, audit.EventMutationRejected, matchingID, map[string]string{"op": op})
	ev.Success = false
	if reason != nil {
		ev.FailureReason = reason.Error()
	}
	l.Log(ctx, ev)
}
