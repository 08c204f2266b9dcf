package daemon

import (
	"context"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/oystub/barbershop/rest"
	"github.com/oystub/barbershop/scheduler"
	"github.com/oystub/barbershop/shop"
)

const shutdownTimeout = 5 * time.Second

// Serve runs the REST API on addr until ctx is cancelled. With autoStart a
// run is started right away, otherwise clients start it through the API.
func Serve(ctx context.Context, s *shop.Shop, addr string, autoStart bool) error {
	e := rest.NewServer(s)
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			return errors.Wrapf(err, "serving on %s", addr)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		s.Log.Info("Shutting down")
		s.Stop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})

	if autoStart {
		if _, err := s.Start(); err != nil {
			s.Log.WithError(err).Error("Could not start the simulation")
		}
	}
	return g.Wait()
}

// RunFor starts a run and keeps it going for d, until it ends by itself or
// until ctx is cancelled. A zero d waits for the run to end by itself.
func RunFor(ctx context.Context, s *shop.Shop, d time.Duration) (scheduler.Status, error) {
	if _, err := s.Start(); err != nil {
		return scheduler.Status{}, err
	}
	finished := make(chan struct{})
	go func() {
		s.Controller.Wait()
		close(finished)
	}()

	var timeout <-chan time.Time
	if d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		timeout = timer.C
	}
	select {
	case <-finished:
	case <-timeout:
		s.Log.WithField("after", d.String()).Info("Closing the shop")
	case <-ctx.Done():
	}
	return s.Stop(), nil
}
