package rest

import (
	"encoding/json"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"gotest.tools/assert"

	"github.com/oystub/barbershop/config"
	"github.com/oystub/barbershop/scheduler"
	"github.com/oystub/barbershop/shop"
)

func newTestServer(t *testing.T) (*echo.Echo, *shop.Shop, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	cfg := config.Default()
	cfg.BarberDelaySeconds = []float64{0, 0}
	cfg.ProducerDelaySeconds = []float64{0, 0}
	assert.NilError(t, config.Save(path, cfg))

	logger := logrus.New()
	logger.Out = ioutil.Discard
	s, err := shop.Open(shop.Options{
		ConfigPath: path,
		DbPath:     filepath.Join(dir, "barbershop.db"),
		Log:        logger,
	})
	assert.NilError(t, err)
	t.Cleanup(func() { s.Close() })
	return NewServer(s), s, path
}

func do(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestStartStop(t *testing.T) {
	e, _, _ := newTestServer(t)

	rec := do(e, http.MethodGet, "/status", "")
	assert.Equal(t, rec.Code, http.StatusOK)
	var status scheduler.Status
	assert.NilError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Assert(t, !status.Running)
	assert.Equal(t, status.BarberState, scheduler.BS_STOPPED)

	rec = do(e, http.MethodPost, "/start", "")
	assert.Equal(t, rec.Code, http.StatusCreated)
	var started StartResponse
	assert.NilError(t, json.Unmarshal(rec.Body.Bytes(), &started))

	rec = do(e, http.MethodPost, "/start", "")
	assert.Equal(t, rec.Code, http.StatusConflict)

	rec = do(e, http.MethodPost, "/stop", "")
	assert.Equal(t, rec.Code, http.StatusOK)
	assert.Assert(t, strings.Contains(rec.Body.String(), `"running":false`))
	assert.Assert(t, strings.Contains(rec.Body.String(), started.RunID.String()))

	rec = do(e, http.MethodGet, "/runs", "")
	assert.Equal(t, rec.Code, http.StatusOK)
	assert.Assert(t, strings.Contains(rec.Body.String(), started.RunID.String()))

	rec = do(e, http.MethodGet, "/customers?run="+started.RunID.String(), "")
	assert.Equal(t, rec.Code, http.StatusOK)
	assert.Equal(t, strings.TrimSpace(rec.Body.String()), "[]")

	rec = do(e, http.MethodGet, "/log", "")
	assert.Equal(t, rec.Code, http.StatusOK)
	assert.Assert(t, strings.Contains(rec.Body.String(), `"event":"started"`))
}

func TestInvalidConfig(t *testing.T) {
	e, _, path := newTestServer(t)
	assert.NilError(t, ioutil.WriteFile(path, []byte("max_queue_size: -1\n"), 0644))

	rec := do(e, http.MethodPost, "/start", "")
	assert.Equal(t, rec.Code, http.StatusUnprocessableEntity)

	rec = do(e, http.MethodGet, "/config", "")
	assert.Equal(t, rec.Code, http.StatusUnprocessableEntity)
}

func TestEditConfig(t *testing.T) {
	e, _, _ := newTestServer(t)

	rec := do(e, http.MethodPost, "/config", `{"key":"max_queue_size","value":"7"}`)
	assert.Equal(t, rec.Code, http.StatusOK)

	rec = do(e, http.MethodGet, "/config", "")
	assert.Equal(t, rec.Code, http.StatusOK)
	var cfg config.Config
	assert.NilError(t, json.Unmarshal(rec.Body.Bytes(), &cfg))
	assert.Equal(t, cfg.MaxQueueSize, 7)

	rec = do(e, http.MethodPost, "/config", `{"key":"colour","value":"red"}`)
	assert.Equal(t, rec.Code, http.StatusBadRequest)

	rec = do(e, http.MethodPost, "/config", `{"key":"max_queue_size","value":"zero"}`)
	assert.Equal(t, rec.Code, http.StatusUnprocessableEntity)
}

func TestCustomersBadRunID(t *testing.T) {
	e, _, _ := newTestServer(t)
	rec := do(e, http.MethodGet, "/customers?run=nope", "")
	assert.Equal(t, rec.Code, http.StatusBadRequest)
}

func TestGraph(t *testing.T) {
	e, s, _ := newTestServer(t)
	assert.NilError(t, s.Graph().AddPage("http://example.com", []string{"http://example.com/a"}))

	rec := do(e, http.MethodGet, "/graph", "")
	assert.Equal(t, rec.Code, http.StatusOK)
	assert.Assert(t, strings.Contains(rec.Body.String(), "digraph"))
	assert.Assert(t, strings.Contains(rec.Body.String(), "http://example.com/a"))
}
