// internal/app/features/matchings/status.go
package matchings

import (
	"strings"

	"github.com/dalemusser/drivehub/internal/domain/models"
)

// Wire names for matching status. The API speaks these; everything below
// the transport uses models.MatchingStatus.
const (
	wirePending   = "PENDING"
	wireApplied   = "APPLIED"
	wireCancelled = "CANCELLED"
)

func statusToWire(s models.MatchingStatus) string {
	switch s {
	case models.MatchingDraft:
		return wirePending
	case models.MatchingApplied:
		return wireApplied
	case models.MatchingArchived:
		return wireCancelled
	}
	return strings.ToUpper(string(s))
}

// statusFromWire accepts a wire name in any letter case.
func statusFromWire(s string) (models.MatchingStatus, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case wirePending:
		return models.MatchingDraft, true
	case wireApplied:
		return models.MatchingApplied, true
	case wireCancelled:
		return models.MatchingArchived, true
	}
	return "", false
}
