package shell

import (
	"bytes"
	"context"
	"io"
	"io/ioutil"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"gotest.tools/assert"

	"github.com/oystub/barbershop/config"
	"github.com/oystub/barbershop/shop"
)

func newTestShop(t *testing.T) (*shop.Shop, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	cfg := config.Default()
	cfg.BarberDelaySeconds = []float64{0, 0}
	cfg.ProducerDelaySeconds = []float64{0, 0}
	assert.NilError(t, config.Save(path, cfg))

	logger := logrus.New()
	logger.Out = ioutil.Discard
	s, err := shop.Open(shop.Options{ConfigPath: path, DbPath: filepath.Join(dir, "shop.db"), Log: logger})
	assert.NilError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, path
}

func runScript(t *testing.T, s *shop.Shop, script string) string {
	t.Helper()
	var out bytes.Buffer
	sh := New(s, strings.NewReader(script), &out, false)
	done := make(chan error)
	go func() { done <- sh.Run(context.Background()) }()
	select {
	case err := <-done:
		assert.NilError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("shell did not finish the script")
	}
	return out.String()
}

func TestLifecycle(t *testing.T) {
	s, _ := newTestShop(t)
	out := runScript(t, s, "help\nstatus\nstart\nstart\nstatus\nstop\nstop\nhistory\nexit\nstatus\n")

	for _, want := range []string{
		"Enter a command (help for usage):",
		"Available commands:",
		"max_queue_size: 5",
		"Simulation is not running.",
		"Simulation started successfully.",
		"Barber is still working.",
		"Simulation is running.",
		"Waiting room",
		"Simulation stopped successfully.",
		"Barber is not working.",
		"No customers processed.",
		"Exiting the program...",
	} {
		assert.Assert(t, strings.Contains(out, want), "missing %q in\n%s", want, out)
	}
	// Nothing after exit is executed
	assert.Equal(t, strings.Count(out, "Simulation is not running."), 1)
	assert.Assert(t, !s.Status().Running)

	runs, err := s.Runs()
	assert.NilError(t, err)
	assert.Equal(t, len(runs), 1)
	assert.Assert(t, strings.Contains(out, runs[0].ID.String()))
}

func TestEdit(t *testing.T) {
	s, path := newTestShop(t)
	out := runScript(t, s, strings.Join([]string{
		"edit max_queue_size 9",
		"edit",
		"max_customers",
		"abc",
		"4",
		"edit colour red",
		"edit keywords",
		"cancel",
		"edit initial_urls [http://example.com, http://example.org]",
		"exit",
	}, "\n")+"\n")

	assert.Assert(t, strings.Contains(out, "Config key 'max_queue_size' updated to '9'"), out)
	assert.Assert(t, strings.Contains(out, "Enter the config key to edit:"), out)
	assert.Assert(t, strings.Contains(out, "(type 'int')"), out)
	assert.Assert(t, strings.Contains(out, "Invalid input, please try again"), out)
	assert.Assert(t, strings.Contains(out, "Unknown key 'colour'. Edit canceled."), out)
	assert.Assert(t, strings.Contains(out, "Edit canceled."), out)

	cfg, err := config.Load(path)
	assert.NilError(t, err)
	assert.Equal(t, cfg.MaxQueueSize, 9)
	assert.Equal(t, cfg.MaxCustomers, 4)
	assert.DeepEqual(t, cfg.InitialUrls, []string{"http://example.com", "http://example.org"})
	assert.DeepEqual(t, cfg.Keywords, []string{})
}

func TestUnknownAndEmpty(t *testing.T) {
	s, _ := newTestShop(t)
	out := runScript(t, s, "\n   \nDance\ncustomers nope\nexplain\n")
	assert.Assert(t, strings.Contains(out, "Unknown command: dance. Type 'help' for usage."), out)
	assert.Assert(t, strings.Contains(out, `malformed run id "nope"`), out)
	assert.Assert(t, strings.Contains(out, "Config file structure:"), out)
	assert.Assert(t, strings.Contains(out, "fetch.max_retries"), out)
}

func TestInvalidConfigOnStart(t *testing.T) {
	s, path := newTestShop(t)
	assert.NilError(t, ioutil.WriteFile(path, []byte("max_queue_size: 0\n"), 0644))
	out := runScript(t, s, "start\nstatus\n")
	assert.Assert(t, strings.Contains(out, "both main and backup config files are invalid"), out)
	assert.Assert(t, strings.Contains(out, "Simulation is not running."), out)
}

func TestCancel(t *testing.T) {
	s, _ := newTestShop(t)
	in, w := io.Pipe()
	defer w.Close()

	sh := New(s, in, ioutil.Discard, false)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- sh.Run(ctx) }()

	_, err := w.Write([]byte("start\n"))
	assert.NilError(t, err)
	deadline := time.Now().Add(2 * time.Second)
	for !s.Status().Running && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	assert.Assert(t, s.Status().Running)

	cancel()
	select {
	case err := <-done:
		assert.Equal(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("shell ignored the cancelled context")
	}
	assert.Assert(t, !s.Status().Running)
}

func TestCancelDuringEditPrompt(t *testing.T) {
	s, path := newTestShop(t)
	in, w := io.Pipe()
	defer w.Close()

	var out syncBuffer
	sh := New(s, in, &out, false)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- sh.Run(ctx) }()

	_, err := w.Write([]byte("edit\n"))
	assert.NilError(t, err)
	deadline := time.Now().Add(2 * time.Second)
	for !strings.Contains(out.String(), "Enter the config key to edit:") && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	assert.Assert(t, strings.Contains(out.String(), "Enter the config key to edit:"), out.String())

	cancel()
	select {
	case err := <-done:
		assert.Equal(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("shell kept waiting for the edit key after cancel")
	}

	assert.Assert(t, !strings.Contains(out.String(), "updated to"), out.String())
	cfg, err := config.Load(path)
	assert.NilError(t, err)
	assert.Equal(t, cfg.MaxQueueSize, config.Default().MaxQueueSize)
}

type syncBuffer struct {
	mutex sync.Mutex
	buf   bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.buf.String()
}
