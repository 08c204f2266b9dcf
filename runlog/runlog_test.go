package runlog

import (
	"bytes"
	"io/ioutil"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"gotest.tools/assert"
)

func TestBuffer(t *testing.T) {
	logger, buffer := NewLoggerWithBuffer(3)
	for i := 0; i < 5; i++ {
		logger.WithField(FieldEvent, EventAdmitted).WithField("n", i).Info("admitted")
	}
	logger.WithField(FieldEvent, EventFailed).Warn("failed")

	entries := buffer.Entries()
	assert.Equal(t, len(entries), 3)
	assert.Equal(t, entries[0]["n"], float64(3))
	assert.Equal(t, buffer.Count(EventAdmitted), 2)
	assert.Equal(t, buffer.Count(EventFailed), 1)
	assert.Assert(t, strings.Contains(buffer.GetText(), `"level":"warning"`))
}

func TestRunFileHook(t *testing.T) {
	dir := t.TempDir()
	hook := NewRunFileHook(dir)
	defer hook.Close()

	logger := logrus.New()
	logger.Out = ioutil.Discard
	logger.AddHook(hook)

	logger.Info("not part of a run")
	run := logger.WithField(FieldRunID, "0123456789abcdef")
	run.WithField(FieldEvent, EventStarted).Info("started")
	run.WithField(FieldEvent, EventAdmitted).Info("admitted")
	run.WithField(FieldEvent, EventStopped).Info("stopped")

	runDir, ok := hook.Dir("0123456789abcdef")
	assert.Assert(t, ok)
	assert.Assert(t, regexp.MustCompile(`^run_\d{8}_\d{6}_01234567$`).MatchString(filepath.Base(runDir)), runDir)

	data, err := ioutil.ReadFile(filepath.Join(runDir, "events.log"))
	assert.NilError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Equal(t, len(lines), 3)
	assert.Assert(t, strings.Contains(lines[2], `"event":"stopped"`))

	// xattrs are optional on the test filesystem
	if id, err := RunIDOfDir(runDir); err == nil {
		assert.Equal(t, id, "0123456789abcdef")
	}
}

func TestConsoleHook(t *testing.T) {
	var out bytes.Buffer
	logger := logrus.New()
	logger.Out = ioutil.Discard
	logger.SetLevel(logrus.DebugLevel)
	logger.AddHook(NewConsoleHookWriter(&out, false, logrus.InfoLevel))

	logger.Debug("hidden")
	logger.WithField(FieldEvent, EventState).Info("Barber is sleeping...")
	assert.Equal(t, out.String(), "Barber is sleeping...\n")

	out.Reset()
	colored := NewConsoleHookWriter(&out, true, logrus.InfoLevel)
	logger2 := logrus.New()
	logger2.Out = ioutil.Discard
	logger2.AddHook(colored)
	logger2.WithField(FieldEvent, EventProcessed).Info("done")
	assert.Equal(t, out.String(), colorGreen+"done"+colorReset+"\n")
}
