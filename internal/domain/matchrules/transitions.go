// internal/domain/matchrules/transitions.go

// Package matchrules holds the rules that govern a matching batch: the
// status graph, the lock flag, and the license/capacity checks applied
// before any assignment changes.
//
// Status graph:
//
//	draft ──apply──► applied ──archive (locked)──► archived
//
// archived is terminal. The lock flag is orthogonal to status; while set it
// blocks apply, assignment changes, and delete.
package matchrules

import (
	"fmt"

	"github.com/dalemusser/drivehub/internal/domain/models"
)

// Op is an operation requested on a matching.
type Op string

const (
	OpApply      Op = "apply"
	OpArchive    Op = "archive"
	OpToggleLock Op = "toggle_lock"
	OpMutate     Op = "mutate_assignments"
	OpDelete     Op = "delete"
	OpEdit       Op = "edit"
)

// Check returns nil when op is allowed for a matching in status with the
// given lock flag, or an error describing why it is not.
func Check(status models.MatchingStatus, locked bool, op Op) error {
	if !status.IsValid() {
		return &TransitionError{From: status, Op: op, Reason: "unknown status"}
	}
	if status == models.MatchingArchived {
		return fmt.Errorf("cannot %s: %w", op, ErrArchived)
	}

	switch op {
	case OpApply:
		if status != models.MatchingDraft {
			return &TransitionError{From: status, Op: op}
		}
		if locked {
			return fmt.Errorf("cannot %s: %w", op, ErrLocked)
		}
	case OpArchive:
		if status != models.MatchingApplied {
			return &TransitionError{From: status, Op: op}
		}
		if !locked {
			return &TransitionError{From: status, Op: op, Reason: "matching must be locked first"}
		}
	case OpMutate, OpDelete:
		if locked {
			return fmt.Errorf("cannot %s: %w", op, ErrLocked)
		}
	case OpToggleLock, OpEdit:
		// allowed in every non-archived status
	default:
		return &TransitionError{From: status, Op: op, Reason: "unknown operation"}
	}
	return nil
}

// Next returns the status a matching moves to after op succeeds.
func Next(status models.MatchingStatus, op Op) models.MatchingStatus {
	switch op {
	case OpApply:
		return models.MatchingApplied
	case OpArchive:
		return models.MatchingArchived
	}
	return status
}

// Transition checks op and, when allowed, returns the resulting status.
func Transition(m models.Matching, op Op) (models.MatchingStatus, error) {
	if err := Check(m.Status, m.IsLocked, op); err != nil {
		return m.Status, err
	}
	return Next(m.Status, op), nil
}
