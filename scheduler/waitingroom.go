package scheduler

import (
	"sync"

	"github.com/oystub/barbershop/lib"
)

// WaitingRoom is the bounded queue between the producer and the barber.
// A customer whose URL was admitted once during the run is never admitted
// again, even after the barber has served them.
type WaitingRoom struct {
	capacity int

	cv     sync.Cond // Guards items, seen and closed
	items  []lib.WorkItem
	seen   map[string]struct{}
	closed bool
}

func NewWaitingRoom(capacity int) *WaitingRoom {
	if capacity < 1 {
		capacity = 1
	}
	return &WaitingRoom{
		capacity: capacity,
		cv:       sync.Cond{L: &sync.Mutex{}},
		items:    make([]lib.WorkItem, 0, initialChairs(capacity)),
		seen:     make(map[string]struct{}),
	}
}

// The room grows as customers arrive; max_queue_size is only an upper bound.
func initialChairs(capacity int) int {
	if capacity > 64 {
		return 64
	}
	return capacity
}

// Admit seats the customer if their URL has not been seen this run and a
// chair is free. Once the room is closed every new customer is turned away
// as an overflow.
func (w *WaitingRoom) Admit(item lib.WorkItem) Admission {
	w.cv.L.Lock()
	defer w.cv.L.Unlock()
	if _, ok := w.seen[item.ID]; ok {
		return AD_DUPLICATE
	}
	if w.closed || len(w.items) >= w.capacity {
		return AD_OVERFLOW
	}
	w.items = append(w.items, item)
	w.seen[item.ID] = struct{}{}
	w.cv.Signal()
	return AD_ACCEPTED
}

// Take blocks until a customer is waiting and returns the one who has been
// waiting longest. After Close, the remaining customers are still handed
// out; once none are left Take returns false without blocking.
func (w *WaitingRoom) Take() (lib.WorkItem, bool) {
	w.cv.L.Lock()
	defer w.cv.L.Unlock()
	for len(w.items) == 0 && !w.closed {
		w.cv.Wait()
	}
	if len(w.items) == 0 {
		return lib.WorkItem{}, false
	}
	item := w.items[0]
	w.items[0] = lib.WorkItem{}
	w.items = w.items[1:]
	return item, true
}

func (w *WaitingRoom) Close() {
	w.cv.L.Lock()
	w.closed = true
	w.cv.Broadcast()
	w.cv.L.Unlock()
}

func (w *WaitingRoom) Closed() bool {
	w.cv.L.Lock()
	defer w.cv.L.Unlock()
	return w.closed
}

func (w *WaitingRoom) Len() int {
	w.cv.L.Lock()
	defer w.cv.L.Unlock()
	return len(w.items)
}

func (w *WaitingRoom) Capacity() int {
	return w.capacity
}

func (w *WaitingRoom) SeenCount() int {
	w.cv.L.Lock()
	defer w.cv.L.Unlock()
	return len(w.seen)
}
