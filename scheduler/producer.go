package scheduler

import (
	"context"
	"fmt"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/oystub/barbershop/lib"
	"github.com/oystub/barbershop/runlog"
)

// Producer brings new customers to the waiting room: first the seed URLs,
// then links the barber discovered while serving earlier customers.
type Producer struct {
	room     *WaitingRoom
	frontier *Frontier
	counters *counters
	log      *logrus.Entry

	seeds        []string
	nextSeed     int
	limiter      *rate.Limiter
	jitterMin    time.Duration
	jitterMax    time.Duration
	wakeup       bool
	probability  float64
	maxCustomers int
	rng          *rand.Rand
}

const idleTick = 50 * time.Millisecond

func newLimiter(interval time.Duration) *rate.Limiter {
	if interval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}

// Run offers one candidate per tick until ctx is cancelled or the daily
// customer limit is reached. In the latter case the waiting room is closed
// so the barber finishes the remaining customers and stops.
func (p *Producer) Run(ctx context.Context) error {
	for {
		if err := p.wait(ctx); err != nil {
			return nil
		}
		id, ok := p.next()
		if !ok {
			if err := p.idle(ctx); err != nil {
				return nil
			}
			continue
		}
		p.offer(lib.NewWorkItem(id))

		if p.maxCustomers > 0 && atomic.LoadInt64(&p.counters.admitted) >= int64(p.maxCustomers) {
			p.log.WithField("admitted", p.maxCustomers).Info("No more customers today, closing the waiting room")
			p.room.Close()
			return nil
		}
	}
}

func (p *Producer) offer(item lib.WorkItem) {
	log := p.log.WithField("url", item.ID)
	switch p.room.Admit(item) {
	case AD_ACCEPTED:
		admitted := p.counters.inc(&p.counters.admitted)
		log.WithFields(logrus.Fields{
			runlog.FieldEvent: runlog.EventAdmitted,
			"admitted":        admitted,
		}).Info(fmt.Sprintf("New customer added to queue (queue: %d/%d)", p.room.Len(), p.room.Capacity()))
	case AD_DUPLICATE:
		n := p.counters.inc(&p.counters.rejectedDuplicate)
		log.WithFields(logrus.Fields{
			runlog.FieldEvent:    runlog.EventRejectedDuplicate,
			"rejected_duplicate": n,
		}).Info("Duplicate customer detected, skipping")
	case AD_OVERFLOW:
		n := p.counters.inc(&p.counters.rejectedOverflow)
		log.WithFields(logrus.Fields{
			runlog.FieldEvent:   runlog.EventRejectedOverflow,
			"rejected_overflow": n,
		}).Info("Waiting room is full, the customer leaves")
	}
}

// next picks the next candidate: seeds in order, then, with the configured
// probability, a random stored link.
func (p *Producer) next() (string, bool) {
	for p.nextSeed < len(p.seeds) {
		seed := p.seeds[p.nextSeed]
		p.nextSeed++
		id, err := lib.NormalizeURL(seed)
		if err != nil {
			p.log.WithError(err).Warn("Skipping invalid seed URL")
			continue
		}
		return id, true
	}
	if !p.wakeup || p.frontier == nil || p.rng.Float64() >= p.probability {
		return "", false
	}
	for {
		link, ok := p.frontier.Pick(p.rng)
		if !ok {
			return "", false
		}
		id, err := lib.NormalizeURL(link)
		if err != nil {
			p.log.WithError(err).Debug("Dropping stored link")
			continue
		}
		return id, true
	}
}

// idle keeps an unpaced producer from spinning while it has nothing to offer.
func (p *Producer) idle(ctx context.Context) error {
	if p.limiter.Limit() != rate.Inf || p.jitterMax > 0 {
		return ctx.Err()
	}
	return sleepCtx(ctx, idleTick)
}

func (p *Producer) wait(ctx context.Context) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return err
	}
	d := p.jitterMin
	if p.jitterMax > p.jitterMin {
		d += time.Duration(p.rng.Int63n(int64(p.jitterMax - p.jitterMin)))
	}
	return sleepCtx(ctx, d)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
