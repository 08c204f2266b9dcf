package scheduler

import (
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// counters are written by exactly one goroutine each (the producer owns the
// admission counters, the barber the service counters) and read atomically
// by status queries.
type counters struct {
	admitted          int64
	rejectedDuplicate int64
	rejectedOverflow  int64
	processed         int64
	failed            int64
	dismissed         int64
	stoppedAt         int64 // unix nanos, 0 while running

	barberState int32
	running     int32
}

func (c *counters) inc(field *int64) int64 {
	return atomic.AddInt64(field, 1)
}

func (c *counters) setBarberState(bs BarberState) BarberState {
	return BarberState(atomic.SwapInt32(&c.barberState, int32(bs)))
}

func (c *counters) getBarberState() BarberState {
	return BarberState(atomic.LoadInt32(&c.barberState))
}

// Status is a point-in-time snapshot of a simulation run.
type Status struct {
	RunID       uuid.UUID   `json:"runId"`
	Running     bool        `json:"running"`
	BarberState BarberState `json:"barberState"`

	Admitted          int64 `json:"admitted"`
	RejectedDuplicate int64 `json:"rejectedDuplicate"`
	RejectedOverflow  int64 `json:"rejectedOverflow"`
	Processed         int64 `json:"processed"`
	Failed            int64 `json:"failed"`
	Dismissed         int64 `json:"dismissed"`

	QueueLength   int `json:"queueLength"`
	QueueCapacity int `json:"queueCapacity"`
	SeenCount     int `json:"seenCount"`
	StoredLinks   int `json:"storedLinks"`

	StartedAt time.Time `json:"startedAt"`
	StoppedAt time.Time `json:"stoppedAt"` // zero while running
}

// MarshalJSON leaves stoppedAt out while the run is live.
func (s Status) MarshalJSON() ([]byte, error) {
	type plain Status
	out := struct {
		plain
		StoppedAt *time.Time `json:"stoppedAt,omitempty"`
	}{plain: plain(s)}
	if !s.StoppedAt.IsZero() {
		out.StoppedAt = &s.StoppedAt
	}
	return json.Marshal(out)
}

// snapshot reads the counters atomically; room and frontier sizes are read
// under their own mutexes, which no loop holds while waiting.
func (r *run) snapshot() Status {
	s := Status{
		RunID:             r.id,
		Running:           atomic.LoadInt32(&r.counters.running) == 1,
		BarberState:       r.counters.getBarberState(),
		Admitted:          atomic.LoadInt64(&r.counters.admitted),
		RejectedDuplicate: atomic.LoadInt64(&r.counters.rejectedDuplicate),
		RejectedOverflow:  atomic.LoadInt64(&r.counters.rejectedOverflow),
		Processed:         atomic.LoadInt64(&r.counters.processed),
		Failed:            atomic.LoadInt64(&r.counters.failed),
		Dismissed:         atomic.LoadInt64(&r.counters.dismissed),
		QueueLength:       r.room.Len(),
		QueueCapacity:     r.room.Capacity(),
		SeenCount:         r.room.SeenCount(),
		StoredLinks:       r.frontier.Len(),
		StartedAt:         r.startedAt,
	}
	if stopped := atomic.LoadInt64(&r.counters.stoppedAt); stopped != 0 {
		s.StoppedAt = time.Unix(0, stopped)
	}
	return s
}
