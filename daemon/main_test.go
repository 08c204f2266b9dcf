package daemon

import (
	"context"
	"fmt"
	"io/ioutil"
	"net"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"gotest.tools/assert"

	"github.com/oystub/barbershop/config"
	"github.com/oystub/barbershop/shop"
)

func newTestShop(t *testing.T, cfg config.Config) *shop.Shop {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	assert.NilError(t, config.Save(path, cfg))
	logger := logrus.New()
	logger.Out = ioutil.Discard
	s, err := shop.Open(shop.Options{ConfigPath: path, Log: logger})
	assert.NilError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func idleConfig() config.Config {
	cfg := config.Default()
	cfg.BarberDelaySeconds = []float64{0, 0}
	cfg.ProducerDelaySeconds = []float64{0, 0}
	return cfg
}

func freeAddr(t *testing.T) string {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	assert.NilError(t, err)
	defer l.Close()
	return l.Addr().String()
}

func TestRunFor(t *testing.T) {
	t.Run("Timeout", func(t *testing.T) {
		s := newTestShop(t, idleConfig())
		start := time.Now()
		status, err := RunFor(context.Background(), s, 50*time.Millisecond)
		assert.NilError(t, err)
		assert.Assert(t, time.Since(start) >= 50*time.Millisecond)
		assert.Assert(t, !status.Running)
	})

	t.Run("Cancelled", func(t *testing.T) {
		s := newTestShop(t, idleConfig())
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		status, err := RunFor(ctx, s, 0)
		assert.NilError(t, err)
		assert.Assert(t, !status.Running)
	})

	t.Run("InvalidConfig", func(t *testing.T) {
		cfg := idleConfig()
		cfg.NewCustomerProbability = 2
		s := newTestShop(t, idleConfig())
		assert.NilError(t, config.Save(s.ConfigPath, cfg))
		_, err := RunFor(context.Background(), s, time.Second)
		assert.ErrorContains(t, err, "invalid")
	})
}

func TestServe(t *testing.T) {
	s := newTestShop(t, idleConfig())
	addr := freeAddr(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- Serve(ctx, s, addr, true) }()

	var res *http.Response
	var err error
	for i := 0; i < 100; i++ {
		res, err = http.Get(fmt.Sprintf("http://%s/status", addr))
		if err == nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	assert.NilError(t, err)
	res.Body.Close()
	assert.Equal(t, res.StatusCode, http.StatusOK)
	for i := 0; i < 100 && !s.Status().Running; i++ {
		time.Sleep(10 * time.Millisecond)
	}
	assert.Assert(t, s.Status().Running)

	cancel()
	select {
	case err := <-done:
		assert.NilError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shut down")
	}
	assert.Assert(t, !s.Status().Running)
}
