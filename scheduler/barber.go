package scheduler

import (
	"context"
	"fmt"
	"math/rand"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/oystub/barbershop/lib"
	"github.com/oystub/barbershop/runlog"
)

// Barber serves the customers of the waiting room one at a time. Take is
// where the barber sleeps; returning from it is waking up.
type Barber struct {
	room      *WaitingRoom
	processor Processor
	frontier  *Frontier
	counters  *counters
	log       *logrus.Entry

	delayMin     time.Duration
	delayMax     time.Duration
	maxCustomers int
	rng          *rand.Rand
}

func (b *Barber) Run(ctx context.Context) error {
	b.log.WithFields(logrus.Fields{
		runlog.FieldEvent: runlog.EventState,
		"state":           BS_SLEEPING.String(),
	}).Info(b.sleepingMessage())

	for {
		b.setState(BS_SLEEPING)
		item, ok := b.room.Take()
		if !ok {
			b.setState(BS_STOPPED)
			return nil
		}
		if ctx.Err() != nil {
			b.dismiss(item, "the shop is closing")
			continue
		}
		b.setState(BS_PROCESSING)
		b.serve(ctx, item)
	}
}

func (b *Barber) serve(ctx context.Context, item lib.WorkItem) {
	log := b.log.WithField("url", item.ID)
	if err := b.haircut(ctx); err != nil {
		b.dismiss(item, "the shop closed during the haircut")
		return
	}

	start := time.Now()
	links, err := b.process(ctx, item)
	log = log.WithField("duration", time.Since(start).String())
	switch {
	case err != nil && ctx.Err() != nil:
		b.dismiss(item, "the shop closed during the haircut")
	case err != nil:
		failed := b.counters.inc(&b.counters.failed)
		log.WithError(err).WithFields(logrus.Fields{
			runlog.FieldEvent: runlog.EventFailed,
			"failed":          failed,
		}).Warn("Barber tried to serve this customer, but they vanished!")
	default:
		processed := b.counters.inc(&b.counters.processed)
		stored := 0
		if b.frontier != nil {
			stored = b.frontier.Offer(links)
		}
		log.WithFields(logrus.Fields{
			runlog.FieldEvent: runlog.EventProcessed,
			"processed":       processed,
			"links":           len(links),
			"stored":          stored,
		}).Info(fmt.Sprintf("Barber processed customer, found %d links (processed: %s)", len(links), b.progress(processed)))
	}
}

// process shields the loop from a panicking processor.
func (b *Barber) process(ctx context.Context, item lib.WorkItem) (links []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			b.log.WithField("url", item.ID).Errorf("processor panic: %v\n%s", r, debug.Stack())
			links, err = nil, errors.Errorf("processor panic: %v", r)
		}
	}()
	return b.processor.Process(ctx, item)
}

func (b *Barber) haircut(ctx context.Context) error {
	d := b.delayMin
	if b.delayMax > b.delayMin {
		d += time.Duration(b.rng.Int63n(int64(b.delayMax - b.delayMin)))
	}
	return sleepCtx(ctx, d)
}

func (b *Barber) dismiss(item lib.WorkItem, reason string) {
	dismissed := b.counters.inc(&b.counters.dismissed)
	b.log.WithFields(logrus.Fields{
		runlog.FieldEvent: runlog.EventDismissed,
		"url":             item.ID,
		"dismissed":       dismissed,
	}).Info("Customer sent home unserved: " + reason)
}

func (b *Barber) setState(state BarberState) {
	previous := b.counters.setBarberState(state)
	if previous == state {
		return
	}
	log := b.log.WithFields(logrus.Fields{
		runlog.FieldEvent: runlog.EventState,
		"state":           state.String(),
		"previous":        previous.String(),
	})
	switch state {
	case BS_SLEEPING:
		if b.room.Len() == 0 && !b.room.Closed() {
			log.Info(b.sleepingMessage())
		} else {
			log.Debug("Barber calls the next customer")
		}
	case BS_PROCESSING:
		log.Info("Barber wakes up and starts a haircut")
	case BS_STOPPED:
		log.Info("Barber is done for the day!")
	}
}

func (b *Barber) sleepingMessage() string {
	return fmt.Sprintf("Barber is sleeping... (processed: %s)", b.progress(atomic.LoadInt64(&b.counters.processed)))
}

func (b *Barber) progress(processed int64) string {
	if b.maxCustomers > 0 {
		return fmt.Sprintf("%d/%d", processed, b.maxCustomers)
	}
	return fmt.Sprintf("%d", processed)
}
