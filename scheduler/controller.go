package scheduler

import (
	"context"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/oystub/barbershop/config"
	"github.com/oystub/barbershop/runlog"
)

var (
	ErrAlreadyRunning = errors.New("simulation already running")
	ErrInvalidConfig  = errors.New("invalid configuration")
)

// ConfigError is returned by Start when the configuration does not
// validate. errors.Is(err, ErrInvalidConfig) holds for it.
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string {
	return e.Err.Error()
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

func (e *ConfigError) Is(target error) bool {
	return target == ErrInvalidConfig
}

// Controller starts and stops the producer and the barber as one unit.
type Controller struct {
	log          *logrus.Logger
	newProcessor ProcessorFactory

	mutex     sync.Mutex // Guards run and observers
	run       *run
	observers []func(Status)
}

type run struct {
	id        uuid.UUID
	cfg       config.Config
	room      *WaitingRoom
	frontier  *Frontier
	counters  *counters
	startedAt time.Time
	cancel    context.CancelFunc
	done      chan struct{}
}

func NewController(log *logrus.Logger, newProcessor ProcessorFactory) *Controller {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Controller{log: log, newProcessor: newProcessor}
}

// OnStop registers fn to be called with the final status whenever a run
// ends, whether through Stop or because the day's customers were served.
// Observers run before Stop returns and must not call Stop themselves.
func (c *Controller) OnStop(fn func(Status)) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.observers = append(c.observers, fn)
}

// Start launches a new run with a private copy of cfg.
func (c *Controller) Start(cfg config.Config) (uuid.UUID, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.run != nil && atomic.LoadInt32(&c.run.counters.running) == 1 {
		return uuid.Nil, ErrAlreadyRunning
	}
	if err := cfg.Validate(); err != nil {
		return uuid.Nil, &ConfigError{Err: err}
	}
	cfg = cfg.Clone()

	id := uuid.New()
	ctx, cancel := context.WithCancel(WithRunID(context.Background(), id))
	r := &run{
		id:        id,
		cfg:       cfg,
		room:      NewWaitingRoom(cfg.MaxQueueSize),
		frontier:  NewFrontier(cfg.MaxStoredLinks),
		counters:  &counters{running: 1},
		startedAt: time.Now(),
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	log := c.log.WithField(runlog.FieldRunID, id.String())

	processor := Processor(noopProcessor)
	if c.newProcessor != nil {
		processor = c.newProcessor(cfg, id)
	}
	seed := time.Now().UnixNano()
	barberMin, barberMax := cfg.BarberDelay()
	barber := &Barber{
		room:         r.room,
		processor:    processor,
		frontier:     r.frontier,
		counters:     r.counters,
		log:          log.WithField("role", "barber"),
		delayMin:     barberMin,
		delayMax:     barberMax,
		maxCustomers: cfg.MaxCustomers,
		rng:          rand.New(rand.NewSource(seed)),
	}
	jitterMin, jitterMax := cfg.ProducerDelay()
	producer := &Producer{
		room:         r.room,
		frontier:     r.frontier,
		counters:     r.counters,
		log:          log.WithField("role", "producer"),
		seeds:        cfg.InitialUrls,
		limiter:      newLimiter(cfg.ProducerIntervalDuration()),
		jitterMin:    jitterMin,
		jitterMax:    jitterMax,
		wakeup:       cfg.EnableWakeupFromStoredUrls,
		probability:  cfg.NewCustomerProbability,
		maxCustomers: cfg.MaxCustomers,
		rng:          rand.New(rand.NewSource(seed + 1)),
	}

	log.WithFields(logrus.Fields{
		runlog.FieldEvent: runlog.EventStarted,
		"capacity":        cfg.MaxQueueSize,
		"max_customers":   cfg.MaxCustomers,
		"seeds":           len(cfg.InitialUrls),
	}).Info("Simulation started")

	var g errgroup.Group
	g.Go(func() error { return producer.Run(ctx) })
	g.Go(func() error { return barber.Run(ctx) })
	c.run = r
	go c.supervise(r, &g, log)
	return id, nil
}

// supervise waits for both loops, then marks the run stopped and tells the
// observers before releasing anyone blocked in Stop.
func (c *Controller) supervise(r *run, g *errgroup.Group, log *logrus.Entry) {
	defer close(r.done)
	if err := g.Wait(); err != nil {
		log.WithError(err).Error("Simulation loop failed")
	}
	r.cancel()
	r.room.Close()
	atomic.StoreInt64(&r.counters.stoppedAt, time.Now().UnixNano())
	atomic.StoreInt32(&r.counters.running, 0)

	status := r.snapshot()
	log.WithFields(logrus.Fields{
		runlog.FieldEvent:    runlog.EventStopped,
		"admitted":           status.Admitted,
		"rejected_duplicate": status.RejectedDuplicate,
		"rejected_overflow":  status.RejectedOverflow,
		"processed":          status.Processed,
		"failed":             status.Failed,
		"dismissed":          status.Dismissed,
		"duration":           status.StoppedAt.Sub(status.StartedAt).String(),
	}).Info("Simulation stopped")

	c.mutex.Lock()
	observers := append([]func(Status){}, c.observers...)
	c.mutex.Unlock()
	for _, fn := range observers {
		fn(status)
	}
}

// Stop ends the current run and waits until the producer and the barber
// have exited. Stopping when nothing runs is a no-op.
func (c *Controller) Stop() {
	c.mutex.Lock()
	r := c.run
	c.mutex.Unlock()
	if r == nil {
		return
	}
	r.cancel()
	r.room.Close()
	<-r.done
}

// Wait blocks until the current run, if any, has ended on its own or been
// stopped.
func (c *Controller) Wait() {
	c.mutex.Lock()
	r := c.run
	c.mutex.Unlock()
	if r != nil {
		<-r.done
	}
}

// Status returns a snapshot of the current or most recent run.
func (c *Controller) Status() Status {
	c.mutex.Lock()
	r := c.run
	c.mutex.Unlock()
	if r == nil {
		return Status{BarberState: BS_STOPPED}
	}
	return r.snapshot()
}

func (c *Controller) Running() bool {
	return c.Status().Running
}

// Config returns the configuration of the current or most recent run.
func (c *Controller) Config() (config.Config, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.run == nil {
		return config.Config{}, false
	}
	return c.run.cfg.Clone(), true
}
