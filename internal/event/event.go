package event

import (
	"fmt"
	"strings"
)

// Level is the severity of a Log event.
type Level int

const (
	// LevelInfo reports normal progress.
	LevelInfo Level = iota

	// LevelWarn reports a unit that was skipped or degraded.
	LevelWarn

	// LevelError reports a unit that failed.
	LevelError
)

// String returns the lower case level name.
func (l Level) String() string {
	switch l {
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// Event is either a Log or a Progress.
type Event interface {
	isEvent()
}

// Log is a human readable message.
type Log struct {
	Message string
	Level   Level
}

// Progress reports bytes written for one file.
type Progress struct {
	Path     string
	Complete uint64

	// Total is the expected size. Zero means unknown.
	Total uint64
}

func (Log) isEvent()      {}
func (Progress) isEvent() {}

// String implements fmt.Stringer.
func (l Log) String() string {
	return fmt.Sprintf("[%s] %s", strings.ToUpper(l.Level.String()), l.Message)
}

// Key identifies the file a progress value belongs to.
func (p Progress) Key() ProgressKey {
	return ProgressKey{Path: p.Path, Total: p.Total}
}

// Percent returns the completed share in [0, 100]. ok is false when the
// total is unknown and progress is indeterminate.
func (p Progress) Percent() (percent float64, ok bool) {
	if p.Total == 0 {
		return 0, false
	}

	percent = float64(p.Complete) / float64(p.Total) * 100
	if percent > 100 {
		percent = 100
	}

	return percent, true
}

// Done reports whether a sized download has received every byte.
func (p Progress) Done() bool {
	return p.Total > 0 && p.Complete >= p.Total
}
