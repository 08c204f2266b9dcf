package crawl

import (
	"context"
	"sync"
	"time"
)

// A host is the share of a web server the crawler may use: a number of
// concurrent requests, and a time before which no request may be sent after
// the server asked us to slow down.
type host struct {
	available       int
	prohibitedUntil time.Time
	cv              sync.Cond
}

type HostPool struct {
	mutex      sync.Mutex
	maxPerHost int
	hosts      map[string]*host
}

func NewHostPool(maxPerHost int) *HostPool {
	if maxPerHost < 1 {
		maxPerHost = 1
	}
	return &HostPool{maxPerHost: maxPerHost, hosts: make(map[string]*host)}
}

func (p *HostPool) get(name string) *host {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	if h := p.hosts[name]; h != nil {
		return h
	}
	h := &host{available: p.maxPerHost, cv: sync.Cond{L: &sync.Mutex{}}}
	p.hosts[name] = h
	return h
}

// ProhibitUntil holds back every request to name until t.
func (p *HostPool) ProhibitUntil(name string, t time.Time) {
	h := p.get(name)
	h.cv.L.Lock()
	defer h.cv.L.Unlock()
	if !t.After(h.prohibitedUntil) {
		return
	}
	h.prohibitedUntil = t
	time.AfterFunc(time.Until(t), func() {
		h.cv.L.Lock()
		h.cv.Broadcast()
		h.cv.L.Unlock()
	})
}

// Acquire blocks until a request to name may be sent. The returned function
// gives the slot back.
func (p *HostPool) Acquire(ctx context.Context, name string) (func(), error) {
	h := p.get(name)

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			h.cv.L.Lock()
			h.cv.Broadcast()
			h.cv.L.Unlock()
		case <-stop:
		}
	}()

	h.cv.L.Lock()
	defer h.cv.L.Unlock()
	for h.available == 0 || time.Now().Before(h.prohibitedUntil) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		h.cv.Wait()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	h.available--

	var once sync.Once
	return func() {
		once.Do(func() {
			h.cv.L.Lock()
			h.available++
			h.cv.Signal()
			h.cv.L.Unlock()
		})
	}, nil
}
