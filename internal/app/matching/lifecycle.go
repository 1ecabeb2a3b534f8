// internal/app/matching/lifecycle.go
package matching

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/dalemusser/drivehub/internal/app/system/auth"
	"github.com/dalemusser/drivehub/internal/app/system/runctx"
	"github.com/dalemusser/drivehub/internal/domain/matchrules"
	"github.com/dalemusser/drivehub/internal/domain/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var errUnknownDelivery = errors.New("delivery failed")

// Apply moves a draft matching to applied and then runs the apply hook once
// per distinct instructor. The status change is saved before any side
// effect runs; side-effect failures land in the report and never undo it.
func (s *Service) Apply(ctx context.Context, caller auth.CallerContext, id primitive.ObjectID) (models.Matching, ApplyReport, error) {
	saved, err := s.mutate(ctx, caller, id, matchrules.OpApply, func(m *models.Matching) error {
		if len(m.Assignments) == 0 {
			return fmt.Errorf("cannot apply: %w", matchrules.ErrEmptyMatching)
		}
		return nil
	})
	if err != nil {
		return models.Matching{}, ApplyReport{}, err
	}

	report := s.fanOut(ctx, caller, saved)

	s.audit.MatchingApplied(ctx, caller, saved.ID, report.RunID, report.Instructors, len(report.Failures))
	s.log.Info("matching applied",
		zap.String("matching_id", saved.ID.Hex()),
		zap.String("apply_run_id", report.RunID),
		zap.Int("instructors", report.Instructors),
		zap.Int("students", report.Students),
		zap.Int("delivery_failures", len(report.Failures)))
	return saved, report, nil
}

// fanOut runs the apply hook for each instructor with bounded concurrency.
func (s *Service) fanOut(ctx context.Context, caller auth.CallerContext, m models.Matching) ApplyReport {
	instructors := m.InstructorIDs()
	report := ApplyReport{
		RunID:       uuid.NewString(),
		MatchingID:  m.ID,
		Instructors: len(instructors),
		Students:    len(m.Assignments),
	}
	if s.onApply == nil {
		return report
	}

	ctx = runctx.WithApply(ctx, runctx.Apply{MatchingID: m.ID, RunID: report.RunID})

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(s.applyConcurrency)
	for _, instID := range instructors {
		assigned := m.AssignmentsFor(instID)
		g.Go(func() error {
			failures := s.onApply(ctx, caller, m, instID, assigned)
			for i := range failures {
				if failures[i].Err == nil {
					failures[i].Err = errUnknownDelivery
				}
			}
			if len(failures) > 0 {
				mu.Lock()
				report.Failures = append(report.Failures, failures...)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	sort.SliceStable(report.Failures, func(i, j int) bool {
		a, b := report.Failures[i], report.Failures[j]
		if a.InstructorID != b.InstructorID {
			return a.InstructorID.Hex() < b.InstructorID.Hex()
		}
		return a.StudentID.Hex() < b.StudentID.Hex()
	})
	for _, f := range report.Failures {
		s.log.Warn("apply delivery failed",
			zap.String("matching_id", m.ID.Hex()),
			zap.String("apply_run_id", report.RunID),
			zap.String("instructor_id", f.InstructorID.Hex()),
			zap.String("student_id", f.StudentID.Hex()),
			zap.Error(f.Err))
	}
	return report
}

// Archive retires an applied, locked matching.
func (s *Service) Archive(ctx context.Context, caller auth.CallerContext, id primitive.ObjectID) (models.Matching, error) {
	saved, err := s.mutate(ctx, caller, id, matchrules.OpArchive, nil)
	if err != nil {
		return models.Matching{}, err
	}
	s.audit.MatchingArchived(ctx, caller, id)
	s.log.Info("matching archived", zap.String("matching_id", id.Hex()))
	return saved, nil
}

// ToggleLock flips the lock flag. Two toggles restore the original state.
func (s *Service) ToggleLock(ctx context.Context, caller auth.CallerContext, id primitive.ObjectID) (models.Matching, error) {
	saved, err := s.mutate(ctx, caller, id, matchrules.OpToggleLock, func(m *models.Matching) error {
		m.IsLocked = !m.IsLocked
		return nil
	})
	if err != nil {
		return models.Matching{}, err
	}
	s.audit.MatchingLockToggled(ctx, caller, id, saved.IsLocked)
	s.log.Info("matching lock toggled",
		zap.String("matching_id", id.Hex()),
		zap.Bool("is_locked", saved.IsLocked))
	return saved, nil
}

// Delete removes an unlocked, non-archived matching.
func (s *Service) Delete(ctx context.Context, caller auth.CallerContext, id primitive.ObjectID) error {
	unlock := s.locks.Lock(id.Hex())
	defer unlock()

	m, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := matchrules.Check(m.Status, m.IsLocked, matchrules.OpDelete); err != nil {
		s.reject(ctx, caller, id, matchrules.OpDelete, err)
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.audit.MatchingDeleted(ctx, caller, id, m.Name)
	s.log.Info("matching deleted", zap.String("matching_id", id.Hex()))
	return nil
}
