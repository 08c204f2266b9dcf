package runlog

import (
	"bytes"
	"encoding/json"
	"sync"

	"github.com/sirupsen/logrus"
)

// Buffer keeps the most recent log entries in memory, formatted as JSON
// lines. It is attached to a logger as a hook.
type Buffer struct {
	mutex     sync.Mutex
	lines     [][]byte
	maxLines  int
	formatter logrus.Formatter
}

func NewBuffer(maxLines int) *Buffer {
	if maxLines <= 0 {
		maxLines = 1
	}
	return &Buffer{
		maxLines:  maxLines,
		formatter: &logrus.JSONFormatter{},
	}
}

// NewLoggerWithBuffer returns a logger that only writes into a Buffer.
func NewLoggerWithBuffer(maxLines int) (*logrus.Logger, *Buffer) {
	buffer := NewBuffer(maxLines)
	logger := logrus.New()
	logger.Out = discard{}
	logger.SetLevel(logrus.DebugLevel)
	logger.AddHook(buffer)
	return logger, buffer
}

func (b *Buffer) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (b *Buffer) Fire(entry *logrus.Entry) error {
	line, err := b.formatter.Format(entry)
	if err != nil {
		return err
	}
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.lines = append(b.lines, line)
	if len(b.lines) > b.maxLines {
		b.lines = b.lines[len(b.lines)-b.maxLines:]
	}
	return nil
}

func (b *Buffer) GetText() string {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return string(bytes.Join(b.lines, nil))
}

// Entries decodes the buffered lines back into field maps.
func (b *Buffer) Entries() []map[string]interface{} {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	out := make([]map[string]interface{}, 0, len(b.lines))
	for _, line := range b.lines {
		var fields map[string]interface{}
		if err := json.Unmarshal(line, &fields); err == nil {
			out = append(out, fields)
		}
	}
	return out
}

// Count returns how many buffered entries carry the given event field.
func (b *Buffer) Count(event string) int {
	n := 0
	for _, e := range b.Entries() {
		if e[FieldEvent] == event {
			n++
		}
	}
	return n
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }
