package runlog

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/pkg/xattr"
	"github.com/sirupsen/logrus"
)

const (
	FieldEvent = "event"
	FieldRunID = "run_id"

	// Event names emitted by the simulation
	EventStarted           = "started"
	EventStopped           = "stopped"
	EventAdmitted          = "admitted"
	EventRejectedDuplicate = "rejected_duplicate"
	EventRejectedOverflow  = "rejected_overflow"
	EventProcessed         = "processed"
	EventFailed            = "failed"
	EventDismissed         = "dismissed"
	EventState             = "state"

	runIDAttr = "user.barbershop.run_id"
)

// RunFileHook writes every entry that carries a run_id field into
// <baseDir>/run_YYYYmmdd_HHMMSS_<id8>/events.log, id8 being the first 8
// characters of the run id. The file is opened on the first entry of a run
// and closed on its "stopped" event.
type RunFileHook struct {
	baseDir   string
	formatter logrus.Formatter

	mutex sync.Mutex
	runs  map[string]*os.File
	dirs  map[string]string
}

func NewRunFileHook(baseDir string) *RunFileHook {
	return &RunFileHook{
		baseDir:   baseDir,
		formatter: &logrus.JSONFormatter{},
		runs:      make(map[string]*os.File),
		dirs:      make(map[string]string),
	}
}

func (h *RunFileHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *RunFileHook) Fire(entry *logrus.Entry) error {
	runID, ok := entry.Data[FieldRunID].(string)
	if !ok || runID == "" {
		return nil
	}
	line, err := h.formatter.Format(entry)
	if err != nil {
		return err
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()
	f, err := h.open(runID, entry.Time)
	if err != nil {
		return err
	}
	if _, err := f.Write(line); err != nil {
		return err
	}
	if entry.Data[FieldEvent] == EventStopped {
		delete(h.runs, runID)
		return f.Close()
	}
	return nil
}

// Dir returns the log directory of a run, if the hook has seen it.
func (h *RunFileHook) Dir(runID string) (string, bool) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	dir, ok := h.dirs[runID]
	return dir, ok
}

// Close closes the files of runs that never logged a stop event.
func (h *RunFileHook) Close() {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	for id, f := range h.runs {
		f.Close()
		delete(h.runs, id)
	}
}

func (h *RunFileHook) open(runID string, at time.Time) (*os.File, error) {
	if f, ok := h.runs[runID]; ok {
		return f, nil
	}
	dir, known := h.dirs[runID]
	if !known {
		if at.IsZero() {
			at = time.Now()
		}
		short := runID
		if len(short) > 8 {
			short = short[:8]
		}
		dir = filepath.Join(h.baseDir, fmt.Sprintf("run_%s_%s", at.Format("20060102_150405"), short))
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, errors.Wrap(err, "creating run log directory")
		}
		// Not every filesystem supports user xattrs; the directory name already
		// carries a prefix of the id.
		_ = xattr.Set(dir, runIDAttr, []byte(runID))
	}

	f, err := os.OpenFile(filepath.Join(dir, "events.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, errors.Wrap(err, "opening run log")
	}
	h.runs[runID] = f
	h.dirs[runID] = dir
	return f, nil
}

// RunIDOfDir reads back the run id a log directory was tagged with.
func RunIDOfDir(dir string) (string, error) {
	data, err := xattr.Get(dir, runIDAttr)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
