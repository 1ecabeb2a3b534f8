// internal/app/store/students/store.go
package studentstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/drivehub/internal/app/system/txn"
	"github.com/dalemusser/drivehub/internal/domain/matchrules"
	"github.com/dalemusser/drivehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// Collection is the MongoDB collection holding students.
const Collection = "students"

// Store reads student records and writes the instructor chosen by an
// applied matching. Students are created and edited elsewhere.
type Store struct {
	c      *mongo.Collection
	client *mongo.Client
	log    *zap.Logger
}

func New(db *mongo.Database, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{c: db.Collection(Collection), client: db.Client(), log: log}
}

func (s *Store) Get(ctx context.Context, id primitive.ObjectID) (models.Student, error) {
	var st models.Student
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&st); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Student{}, fmt.Errorf("student %s: %w", id.Hex(), matchrules.ErrNotFound)
		}
		return models.Student{}, err
	}
	return st, nil
}

// ListActive returns active students training for any of licenseTypes,
// ordered by name.
func (s *Store) ListActive(ctx context.Context, licenseTypes []string) ([]models.Student, error) {
	out := []models.Student{}
	if len(licenseTypes) == 0 {
		return out, nil
	}

	filter := bson.M{
		"status":       models.StudentActive,
		"license_type": bson.M{"$in": licenseTypes},
	}
	find := options.Find().SetSort(bson.D{{Key: "full_name_ci", Value: 1}, {Key: "_id", Value: 1}})

	cur, err := s.c.Find(ctx, filter, find)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CountByInstructor returns how many active students are currently
// assigned to the instructor.
func (s *Store) CountByInstructor(ctx context.Context, instructorID primitive.ObjectID) (int, error) {
	n, err := s.c.CountDocuments(ctx, bson.M{
		"status":        models.StudentActive,
		"instructor_id": instructorID,
	})
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// RecordInstructor points every listed student at instructorID. All
// students are updated together, inside a transaction when the deployment
// supports one; an unknown student id fails the whole call.
func (s *Store) RecordInstructor(ctx context.Context, matchingID, instructorID primitive.ObjectID, studentIDs []primitive.ObjectID, at time.Time) error {
	if len(studentIDs) == 0 {
		return nil
	}

	return txn.Run(ctx, s.client, s.log, func(ctx context.Context) error {
		res, err := s.c.UpdateMany(ctx,
			bson.M{"_id": bson.M{"$in": studentIDs}},
			bson.M{"$set": bson.M{
				"instructor_id":          instructorID,
				"instructor_assigned_at": at,
				"matching_id":            matchingID,
				"updated_at":             at,
			}})
		if err != nil {
			return err
		}
		if int(res.MatchedCount) != len(studentIDs) {
			return fmt.Errorf("%d of %d students found: %w", res.MatchedCount, len(studentIDs), matchrules.ErrNotFound)
		}
		return nil
	})
}
