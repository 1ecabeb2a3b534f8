// Package runctx tags a context with the apply run it belongs to, so
// collaborators invoked during an apply fan-out can stamp their writes
// without widening their call signatures.
package runctx

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Apply identifies one apply of one matching.
type Apply struct {
	MatchingID primitive.ObjectID
	RunID      string
}

type ctxKey string

const applyKey ctxKey = "apply_run"

// WithApply returns a copy of ctx carrying a.
func WithApply(ctx context.Context, a Apply) context.Context {
	return context.WithValue(ctx, applyKey, a)
}

// ApplyFrom returns the apply run on ctx, if any.
func ApplyFrom(ctx context.Context) (Apply, bool) {
	a, ok := ctx.Value(applyKey).(Apply)
	return a, ok
}
