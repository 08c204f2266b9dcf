package scheduler

import (
	"context"

	"github.com/google/uuid"

	"github.com/oystub/barbershop/config"
	"github.com/oystub/barbershop/lib"
)

// A Processor gives one customer their haircut. It returns the URLs found
// while doing so, which the producer may offer as new customers later.
type Processor interface {
	Process(ctx context.Context, item lib.WorkItem) ([]string, error)
}

type ProcessorFunc func(ctx context.Context, item lib.WorkItem) ([]string, error)

func (f ProcessorFunc) Process(ctx context.Context, item lib.WorkItem) ([]string, error) {
	return f(ctx, item)
}

// ProcessorFactory builds the processor for a new run.
type ProcessorFactory func(cfg config.Config, runID uuid.UUID) Processor

var noopProcessor = ProcessorFunc(func(ctx context.Context, item lib.WorkItem) ([]string, error) {
	return nil, nil
})
