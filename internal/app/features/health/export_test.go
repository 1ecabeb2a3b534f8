package health

import "go.uber.org/zap"

// NewHandlerForTest builds a Handler over any Pinger.
func NewHandlerForTest(p Pinger, logger *zap.Logger) *Handler { return newHandler(p, logger) }
