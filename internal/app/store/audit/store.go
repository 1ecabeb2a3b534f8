// internal/app/store/audit/store.go
package audit

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CategoryMatching covers every change made to a matching batch.
const CategoryMatching = "matching"

// Matching event types
const (
	EventMatchingCreated     = "matching_created"
	EventMatchingUpdated     = "matching_updated"
	EventStudentSwapped      = "student_swapped"
	EventStudentAdded        = "student_added"
	EventMatchingApplied     = "matching_applied"
	EventMatchingArchived    = "matching_archived"
	EventMatchingLockToggled = "matching_lock_toggled"
	EventMatchingDeleted     = "matching_deleted"
	EventMutationRejected    = "mutation_rejected"
)

// EventTypes lists every event type the matching service records.
func EventTypes() []string {
	return []string{
		EventMatchingCreated,
		EventMatchingUpdated,
		EventStudentSwapped,
		EventStudentAdded,
		EventMatchingApplied,
		EventMatchingArchived,
		EventMatchingLockToggled,
		EventMatchingDeleted,
		EventMutationRejected,
	}
}

// Event represents an audit event.
type Event struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Timestamp time.Time          `bson:"timestamp"`

	Category  string `bson:"category"`
	EventType string `bson:"event_type"`

	MatchingID *primitive.ObjectID `bson:"matching_id,omitempty"`
	ActorID    string              `bson:"actor_id,omitempty"`
	ActorName  string              `bson:"actor_name,omitempty"`

	Success       bool   `bson:"success"`
	FailureReason string `bson:"failure_reason,omitempty"`

	// Varies by event type.
	Details map[string]string `bson:"details,omitempty"`
}

// QueryFilter narrows Query and CountByFilter.
type QueryFilter struct {
	MatchingID *primitive.ObjectID
	ActorID    string
	EventType  string
	Success    *bool
	StartTime  *time.Time
	EndTime    *time.Time
	Limit      int64
	Offset     int64
}

// Store manages audit event records.
type Store struct {
	c *mongo.Collection
}

// New creates a new audit Store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("audit_events")}
}

// Log records an audit event.
func (s *Store) Log(ctx context.Context, event Event) error {
	if event.ID.IsZero() {
		event.ID = primitive.NewObjectID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.Category == "" {
		event.Category = CategoryMatching
	}
	_, err := s.c.InsertOne(ctx, event)
	return err
}

func (f QueryFilter) toBSON() bson.M {
	q := bson.M{}
	if f.MatchingID != nil {
		q["matching_id"] = *f.MatchingID
	}
	if f.ActorID != "" {
		q["actor_id"] = f.ActorID
	}
	if f.EventType != "" {
		q["event_type"] = f.EventType
	}
	if f.Success != nil {
		q["success"] = *f.Success
	}
	if f.StartTime != nil || f.EndTime != nil {
		tq := bson.M{}
		if f.StartTime != nil {
			tq["$gte"] = *f.StartTime
		}
		if f.EndTime != nil {
			tq["$lte"] = *f.EndTime
		}
		q["timestamp"] = tq
	}
	return q
}

// Query retrieves events matching filter, newest first.
func (s *Store) Query(ctx context.Context, filter QueryFilter) ([]Event, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(limit).
		SetSkip(filter.Offset)

	cur, err := s.c.Find(ctx, filter.toBSON(), opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var events []Event
	if err := cur.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// CountByFilter returns the number of events matching filter.
func (s *Store) CountByFilter(ctx context.Context, filter QueryFilter) (int64, error) {
	return s.c.CountDocuments(ctx, filter.toBSON())
}

// GetByMatching returns the recent history of one matching.
func (s *Store) GetByMatching(ctx context.Context, matchingID primitive.ObjectID, limit int64) ([]Event, error) {
	return s.Query(ctx, QueryFilter{MatchingID: &matchingID, Limit: limit})
}
