package matchrules_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/dalemusser/drivehub/internal/domain/matchrules"
	"github.com/dalemusser/drivehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestCheckLicenseCompatibility(t *testing.T) {
	tests := []struct {
		name      string
		student   string
		available []string
		wantErr   bool
	}{
		{name: "exact match", student: "B", available: []string{"B"}},
		{name: "one of several", student: "A2", available: []string{"A2", "B"}},
		{name: "missing class", student: "A2", available: []string{"B"}, wantErr: true},
		{name: "instructor without classes", student: "B", available: nil, wantErr: true},
		{name: "case sensitive", student: "b", available: []string{"B"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := matchrules.CheckLicenseCompatibility(tt.student, tt.available)
			if (err != nil) != tt.wantErr {
				t.Fatalf("CheckLicenseCompatibility() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, matchrules.ErrIncompatibleLicense) {
				t.Errorf("expected ErrIncompatibleLicense, got %v", err)
			}
		})
	}
}

func TestCheckLicenseCompatibility_ReportsBothValues(t *testing.T) {
	err := matchrules.CheckLicenseCompatibility("A2", []string{"B", "C"})

	var le *matchrules.LicenseError
	if !errors.As(err, &le) {
		t.Fatalf("expected *LicenseError, got %T", err)
	}
	if le.Required != "A2" {
		t.Errorf("Required: got %q, want %q", le.Required, "A2")
	}
	if len(le.Available) != 2 || le.Available[0] != "B" || le.Available[1] != "C" {
		t.Errorf("Available: got %v, want [B C]", le.Available)
	}
	msg := err.Error()
	if !strings.Contains(msg, "A2") || !strings.Contains(msg, "B, C") {
		t.Errorf("message should name both values, got %q", msg)
	}
}

func batch(status models.MatchingStatus, instructor primitive.ObjectID, n int) models.Matching {
	m := models.Matching{Status: status, LicenseTypes: []string{"B"}}
	for i := 0; i < n; i++ {
		m.Assignments = append(m.Assignments, models.Assignment{
			StudentID:    primitive.NewObjectID(),
			InstructorID: instructor,
			LicenseType:  "B",
		})
	}
	// an unrelated instructor must never influence the count
	m.Assignments = append(m.Assignments, models.Assignment{
		StudentID:    primitive.NewObjectID(),
		InstructorID: primitive.NewObjectID(),
		LicenseType:  "B",
	})
	return m
}

func TestEffectiveLoad_Draft_AddsRealCount(t *testing.T) {
	inst := primitive.NewObjectID()
	m := batch(models.MatchingDraft, inst, 2)

	if got := matchrules.EffectiveLoad(inst, m, 3); got != 5 {
		t.Errorf("draft load: got %d, want 5 (3 real + 2 batch)", got)
	}
	if got := matchrules.EffectiveLoad(inst, m, 0); got != 2 {
		t.Errorf("draft load without real students: got %d, want 2", got)
	}
}

func TestEffectiveLoad_Applied_UsesBatchOnly(t *testing.T) {
	inst := primitive.NewObjectID()
	m := batch(models.MatchingApplied, inst, 2)

	if got := matchrules.EffectiveLoad(inst, m, 3); got != 2 {
		t.Errorf("applied load: got %d, want 2 (batch only)", got)
	}
}

func TestEffectiveLoad_UnknownInstructor(t *testing.T) {
	m := batch(models.MatchingDraft, primitive.NewObjectID(), 2)
	other := primitive.NewObjectID()

	if got := matchrules.EffectiveLoad(other, m, 4); got != 4 {
		t.Errorf("got %d, want 4", got)
	}
}

func TestCheckCapacity(t *testing.T) {
	tests := []struct {
		name    string
		load    int
		max     int
		wantErr bool
	}{
		{name: "room left", load: 1, max: 2},
		{name: "empty", load: 0, max: 1},
		{name: "at capacity", load: 2, max: 2, wantErr: true},
		{name: "over capacity", load: 3, max: 2, wantErr: true},
		{name: "zero max", load: 0, max: 0, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := matchrules.CheckCapacity(tt.load, tt.max)
			if (err != nil) != tt.wantErr {
				t.Fatalf("CheckCapacity(%d, %d) error = %v, wantErr %v", tt.load, tt.max, err, tt.wantErr)
			}
			if err == nil {
				return
			}
			var ce *matchrules.CapacityError
			if !errors.As(err, &ce) {
				t.Fatalf("expected *CapacityError, got %T", err)
			}
			if ce.Load != tt.load || ce.Max != tt.max {
				t.Errorf("CapacityError: got %d/%d, want %d/%d", ce.Load, ce.Max, tt.load, tt.max)
			}
			if !errors.Is(err, matchrules.ErrCapacityExceeded) {
				t.Error("expected errors.Is(err, ErrCapacityExceeded)")
			}
		})
	}
}

func TestCheckPlacement_LicenseCheckedFirst(t *testing.T) {
	inst := primitive.NewObjectID()
	m := batch(models.MatchingDraft, inst, 5)

	err := matchrules.CheckPlacement(matchrules.Placement{
		StudentLicense:     "A2",
		InstructorID:       inst,
		InstructorLicenses: []string{"B"},
		RealCount:          0,
		Max:                1,
	}, m)
	if !errors.Is(err, matchrules.ErrIncompatibleLicense) {
		t.Errorf("expected license error before capacity error, got %v", err)
	}
}

func TestCheckPlacement_CapacityBranches(t *testing.T) {
	inst := primitive.NewObjectID()
	p := matchrules.Placement{
		StudentLicense:     "B",
		InstructorID:       inst,
		InstructorLicenses: []string{"B"},
		RealCount:          1,
		Max:                2,
	}

	draft := batch(models.MatchingDraft, inst, 1)
	if err := matchrules.CheckPlacement(p, draft); !errors.Is(err, matchrules.ErrCapacityExceeded) {
		t.Errorf("draft: expected capacity exceeded (1 real + 1 batch >= 2), got %v", err)
	}

	applied := batch(models.MatchingApplied, inst, 1)
	if err := matchrules.CheckPlacement(p, applied); err != nil {
		t.Errorf("applied: expected success (1 batch < 2), got %v", err)
	}
}
