// internal/app/features/auditlog/handler.go
package auditlog

import (
	"context"

	"github.com/dalemusser/drivehub/internal/app/store/audit"
	"go.uber.org/zap"
)

// EventQuerier is the read side of the audit store.
type EventQuerier interface {
	Query(ctx context.Context, filter audit.QueryFilter) ([]audit.Event, error)
	CountByFilter(ctx context.Context, filter audit.QueryFilter) (int64, error)
}

type Handler struct {
	Events EventQuerier
	Log    *zap.Logger
}

// NewHandler constructs an Audit Log feature handler bound to the given
// event source and logger.
func NewHandler(events EventQuerier, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		Events: events,
		Log:    logger,
	}
}
