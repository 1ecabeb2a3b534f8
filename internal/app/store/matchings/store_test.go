package matchingstore_test

import (
	"errors"
	"testing"
	"time"

	matchingstore "github.com/dalemusser/drivehub/internal/app/store/matchings"
	"github.com/dalemusser/drivehub/internal/app/system/paging"
	"github.com/dalemusser/drivehub/internal/domain/matchrules"
	"github.com/dalemusser/drivehub/internal/domain/models"
	"github.com/dalemusser/drivehub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newMatching(name string, status models.MatchingStatus) models.Matching {
	return models.Matching{
		Name:         name,
		LicenseTypes: []string{"B"},
		Status:       status,
		CreatedAt:    time.Now().UTC().Truncate(time.Millisecond),
	}
}

func TestStore_SaveInsertsAndGet(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := matchingstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	m := newMatching("Spring Batch", models.MatchingDraft)
	m.Assignments = []models.Assignment{{
		StudentID:    primitive.NewObjectID(),
		InstructorID: primitive.NewObjectID(),
		LicenseType:  "B",
	}}
	m.Recount()

	saved, err := store.Save(ctx, m)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if saved.ID.IsZero() {
		t.Error("expected generated ID")
	}
	if saved.Version != 1 {
		t.Errorf("Version: got %d, want 1", saved.Version)
	}
	if saved.NameCI != "spring batch" {
		t.Errorf("NameCI: got %q", saved.NameCI)
	}

	got, err := store.Get(ctx, saved.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Name != "Spring Batch" || len(got.Assignments) != 1 || got.TotalStudents != 1 {
		t.Errorf("round trip: got %+v", got)
	}
}

func TestStore_GetNotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := matchingstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	_, err := store.Get(ctx, primitive.NewObjectID())
	if !errors.Is(err, matchrules.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_SaveVersionCheck(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := matchingstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	saved, err := store.Save(ctx, newMatching("Batch", models.MatchingDraft))
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	first := saved
	first.IsLocked = true
	updated, err := store.Save(ctx, first)
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.Version != 2 {
		t.Errorf("Version: got %d, want 2", updated.Version)
	}

	stale := saved
	stale.Name = "Stale"
	if _, err := store.Save(ctx, stale); !errors.Is(err, matchrules.ErrConflict) {
		t.Errorf("stale save: expected ErrConflict, got %v", err)
	}

	got, _ := store.Get(ctx, saved.ID)
	if got.Name != "Batch" || !got.IsLocked {
		t.Errorf("stale save must not overwrite: %+v", got)
	}

	missing := updated
	missing.ID = primitive.NewObjectID()
	if _, err := store.Save(ctx, missing); !errors.Is(err, matchrules.ErrNotFound) {
		t.Errorf("unknown id: expected ErrNotFound, got %v", err)
	}
}

func TestStore_SaveDocumentWithoutVersion(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := matchingstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	id := primitive.NewObjectID()
	if _, err := db.Collection(matchingstore.Collection).InsertOne(ctx, bson.M{
		"_id":           id,
		"name":          "Seeded",
		"license_types": bson.A{"B"},
		"status":        string(models.MatchingDraft),
		"assignments":   bson.A{},
	}); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	loaded, err := store.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if loaded.Version != 0 {
		t.Fatalf("seeded Version: got %d, want 0", loaded.Version)
	}

	edited := loaded
	edited.IsLocked = true
	saved, err := store.Save(ctx, edited)
	if err != nil {
		t.Fatalf("Save of unversioned document failed: %v", err)
	}
	if saved.ID != id || saved.Version != 1 {
		t.Errorf("saved: id=%s version=%d", saved.ID.Hex(), saved.Version)
	}

	if _, err := store.Save(ctx, loaded); !errors.Is(err, matchrules.ErrConflict) {
		t.Errorf("second save from version 0: expected ErrConflict, got %v", err)
	}
	n, _ := db.Collection(matchingstore.Collection).CountDocuments(ctx, bson.M{"_id": id})
	if n != 1 {
		t.Errorf("expected one stored document, got %d", n)
	}
}

func TestStore_Delete(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := matchingstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	saved, err := store.Save(ctx, newMatching("Batch", models.MatchingDraft))
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := store.Delete(ctx, saved.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := store.Delete(ctx, saved.ID); !errors.Is(err, matchrules.ErrNotFound) {
		t.Errorf("second delete: expected ErrNotFound, got %v", err)
	}
}

func TestStore_ListFilterAndKeyset(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := matchingstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	for _, name := range []string{"Delta", "alpha", "Charlie", "Bravo"} {
		if _, err := store.Save(ctx, newMatching(name, models.MatchingDraft)); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}
	if _, err := store.Save(ctx, newMatching("Archive me", models.MatchingArchived)); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	draft := models.MatchingFilter{Status: models.MatchingDraft}
	cfg := paging.ConfigureKeyset(paging.Request{Limit: 3})
	rows, res, err := store.List(ctx, draft, cfg)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(rows) != 3 || rows[0].Name != "alpha" || rows[2].Name != "Charlie" {
		t.Fatalf("first page: got %v", rows)
	}
	if !res.HasNext || res.HasPrev {
		t.Errorf("first page: %+v", res)
	}

	_, next := paging.BuildCursors(rows,
		func(m models.Matching) string { return m.NameCI },
		func(m models.Matching) primitive.ObjectID { return m.ID })
	rows, res, err = store.List(ctx, draft, paging.ConfigureKeyset(paging.Request{After: next, Limit: 3}))
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(rows) != 1 || rows[0].Name != "Delta" {
		t.Fatalf("second page: got %v", rows)
	}
	if res.HasNext || !res.HasPrev {
		t.Errorf("second page: %+v", res)
	}

	rows, _, err = store.List(ctx, models.MatchingFilter{Search: "ar"}, paging.ConfigureKeyset(paging.Request{Limit: 10}))
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(rows) != 1 || rows[0].Name != "Archive me" {
		t.Errorf("prefix search: got %v", rows)
	}
}
