// internal/app/store/instructors/store.go
package instructorstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/dalemusser/drivehub/internal/domain/matchrules"
	"github.com/dalemusser/drivehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Collection is the MongoDB collection holding instructor profiles.
const Collection = "instructors"

// AssignmentCounter counts the students an instructor already teaches.
type AssignmentCounter interface {
	CountByInstructor(ctx context.Context, instructorID primitive.ObjectID) (int, error)
}

// Store reads instructor profiles and fills in the live assignment count.
type Store struct {
	c        *mongo.Collection
	students AssignmentCounter
}

func New(db *mongo.Database, students AssignmentCounter) *Store {
	return &Store{c: db.Collection(Collection), students: students}
}

func (s *Store) Get(ctx context.Context, id primitive.ObjectID) (models.Instructor, error) {
	var inst models.Instructor
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&inst); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Instructor{}, fmt.Errorf("instructor %s: %w", id.Hex(), matchrules.ErrNotFound)
		}
		return models.Instructor{}, err
	}

	if s.students != nil {
		n, err := s.students.CountByInstructor(ctx, id)
		if err != nil {
			return models.Instructor{}, fmt.Errorf("count students of instructor %s: %w", id.Hex(), err)
		}
		inst.CurrentRealAssignmentCount = n
	}
	return inst, nil
}
