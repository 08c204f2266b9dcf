package runlog

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
)

const (
	colorReset  = "\x1b[0m"
	colorRed    = "\x1b[31m"
	colorGreen  = "\x1b[32m"
	colorYellow = "\x1b[33m"
	colorBlue   = "\x1b[34m"
	colorCyan   = "\x1b[36m"
)

// ConsoleHook narrates the simulation on a terminal: it prints only the
// message of each entry, coloured by event.
type ConsoleHook struct {
	mutex  sync.Mutex
	out    io.Writer
	color  bool
	levels []logrus.Level
}

// NewConsoleHook prints to stdout, in colour when stdout is a terminal.
func NewConsoleHook(level logrus.Level) *ConsoleHook {
	fd := os.Stdout.Fd()
	tty := isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
	return NewConsoleHookWriter(colorable.NewColorableStdout(), tty, level)
}

func NewConsoleHookWriter(out io.Writer, color bool, level logrus.Level) *ConsoleHook {
	var levels []logrus.Level
	for _, l := range logrus.AllLevels {
		if l <= level {
			levels = append(levels, l)
		}
	}
	return &ConsoleHook{out: out, color: color, levels: levels}
}

func (h *ConsoleHook) Levels() []logrus.Level {
	return h.levels
}

func (h *ConsoleHook) Fire(entry *logrus.Entry) error {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if !h.color {
		_, err := fmt.Fprintln(h.out, entry.Message)
		return err
	}
	_, err := fmt.Fprintf(h.out, "%s%s%s\n", colorFor(entry), entry.Message, colorReset)
	return err
}

func colorFor(entry *logrus.Entry) string {
	if entry.Level <= logrus.ErrorLevel {
		return colorRed
	}
	switch entry.Data[FieldEvent] {
	case EventProcessed, EventStarted:
		return colorGreen
	case EventFailed, EventDismissed, EventRejectedOverflow, EventRejectedDuplicate:
		return colorYellow
	case EventAdmitted:
		return colorBlue
	case EventStopped:
		return colorRed
	}
	return colorCyan
}

// Paint wraps msg in the given colour when enabled. Used by the shell for
// its own output so it matches the narration.
func Paint(enabled bool, color, msg string) string {
	if !enabled {
		return msg
	}
	return color + msg + colorReset
}

var (
	Red    = colorRed
	Green  = colorGreen
	Yellow = colorYellow
	Blue   = colorBlue
	Cyan   = colorCyan
)
