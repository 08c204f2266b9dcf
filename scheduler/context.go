package scheduler

import (
	"context"

	"github.com/google/uuid"
)

type runIDKey struct{}

// WithRunID tags ctx with the run id handed to processors.
func WithRunID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, runIDKey{}, id)
}

// RunIDFromContext returns the id of the run a processing call belongs to.
func RunIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(runIDKey{}).(uuid.UUID)
	return id, ok
}
