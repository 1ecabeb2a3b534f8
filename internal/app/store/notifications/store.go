// internal/app/store/notifications/store.go
package notificationstore

import (
	"context"
	"time"

	"github.com/dalemusser/drivehub/internal/app/system/auth"
	"github.com/dalemusser/drivehub/internal/app/system/runctx"
	"github.com/dalemusser/drivehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection is the MongoDB collection holding the student inbox.
const Collection = "notifications"

// Store delivers notifications by writing them to the student's in-app inbox.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(Collection)}
}

// Send stores one unread notification. When ctx belongs to an apply run the
// notification is tagged with its matching and run id.
func (s *Store) Send(ctx context.Context, caller auth.CallerContext, studentID primitive.ObjectID, title, message string) error {
	n := models.Notification{
		ID:        primitive.NewObjectID(),
		StudentID: studentID,
		Title:     title,
		Message:   message,
		SentBy:    caller.ActorID,
		CreatedAt: time.Now().UTC(),
	}
	if run, ok := runctx.ApplyFrom(ctx); ok {
		mid := run.MatchingID
		n.MatchingID = &mid
		n.RunID = run.RunID
	}
	_, err := s.c.InsertOne(ctx, n)
	return err
}

// ListForStudent returns a student's notifications, newest first.
func (s *Store) ListForStudent(ctx context.Context, studentID primitive.ObjectID, limit int64) ([]models.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	find := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(limit)

	cur, err := s.c.Find(ctx, bson.M{"student_id": studentID}, find)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Notification{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
