// internal/app/store/matchings/store.go
package matchingstore

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/dalemusser/drivehub/internal/app/system/paging"
	"github.com/dalemusser/drivehub/internal/domain/matchrules"
	"github.com/dalemusser/drivehub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection is the MongoDB collection holding matchings.
const Collection = "matchings"

// Store persists matchings with their assignments embedded. Every save is
// conditional on the version read, so two writers cannot both commit a
// read-modify-write of the same matching.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(Collection)}
}

func (s *Store) Get(ctx context.Context, id primitive.ObjectID) (models.Matching, error) {
	var m models.Matching
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&m); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Matching{}, fmt.Errorf("matching %s: %w", id.Hex(), matchrules.ErrNotFound)
		}
		return models.Matching{}, err
	}
	return m, nil
}

// List returns one keyset page of matchings ordered by name_ci then _id.
// f.Search must already be folded.
func (s *Store) List(ctx context.Context, f models.MatchingFilter, cfg paging.KeysetConfig) ([]models.Matching, paging.Result, error) {
	filter := bson.M{}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.Search != "" {
		filter["name_ci"] = bson.M{"$regex": "^" + regexp.QuoteMeta(f.Search)}
	}
	if window := cfg.KeysetWindow("name_ci"); window != nil {
		filter = bson.M{"$and": []bson.M{filter, window}}
	}

	find := options.Find()
	cfg.ApplyToFind(find, "name_ci")

	cur, err := s.c.Find(ctx, filter, find)
	if err != nil {
		return nil, paging.Result{}, err
	}
	defer cur.Close(ctx)

	rows := make([]models.Matching, 0, cfg.Limit+1)
	if err := cur.All(ctx, &rows); err != nil {
		return nil, paging.Result{}, err
	}
	res := paging.TrimPage(&rows, cfg)
	return rows, res, nil
}

// Save inserts m when it has no id yet and otherwise replaces the stored
// copy if its version still equals m.Version. Documents written without a
// version field are read as version 0 and match it. The returned matching
// carries the new version.
func (s *Store) Save(ctx context.Context, m models.Matching) (models.Matching, error) {
	m.NameCI = text.Fold(m.Name)
	if m.Assignments == nil {
		m.Assignments = []models.Assignment{}
	}

	if m.ID.IsZero() {
		m.ID = primitive.NewObjectID()
		m.Version = 1
		if _, err := s.c.InsertOne(ctx, m); err != nil {
			return models.Matching{}, err
		}
		return m, nil
	}

	read := m.Version
	filter := bson.M{"_id": m.ID, "version": read}
	if read == 0 {
		filter = bson.M{"_id": m.ID, "$or": bson.A{
			bson.M{"version": 0},
			bson.M{"version": bson.M{"$exists": false}},
		}}
	}
	m.Version++
	res, err := s.c.ReplaceOne(ctx, filter, m)
	if err != nil {
		return models.Matching{}, err
	}
	if res.MatchedCount == 1 {
		return m, nil
	}

	n, err := s.c.CountDocuments(ctx, bson.M{"_id": m.ID})
	if err != nil {
		return models.Matching{}, err
	}
	if n == 0 {
		return models.Matching{}, fmt.Errorf("matching %s: %w", m.ID.Hex(), matchrules.ErrNotFound)
	}
	return models.Matching{}, fmt.Errorf("matching %s at version %d: %w", m.ID.Hex(), read, matchrules.ErrConflict)
}

func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("matching %s: %w", id.Hex(), matchrules.ErrNotFound)
	}
	return nil
}
