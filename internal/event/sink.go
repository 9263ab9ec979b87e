package event

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/tralbum/bandcamp-dl/internal/logger"
)

// Sink is the producer side of an event channel shared by many goroutines.
//
// Log events are sent blocking and are never dropped; the consumer must keep
// draining the channel while a download runs. Progress events are sent
// without blocking and dropped when the channel is full, because a newer
// value for the same file will follow.
//
// A nil channel is allowed: events then only go to the debug log.
type Sink struct {
	ch      chan<- Event
	dropped atomic.Uint64
}

// NewSink wraps ch.
func NewSink(ch chan<- Event) *Sink {
	return &Sink{ch: ch}
}

// Log sends a Log event.
func (s *Sink) Log(ctx context.Context, level Level, message string) {
	logger.DebugKV(ctx, message, "event_level", level.String())

	if s == nil || s.ch == nil {
		return
	}

	s.ch <- Log{Message: message, Level: level}
}

// Infof sends an info Log event.
func (s *Sink) Infof(ctx context.Context, format string, args ...any) {
	s.Log(ctx, LevelInfo, fmt.Sprintf(format, args...))
}

// Warnf sends a warn Log event.
func (s *Sink) Warnf(ctx context.Context, format string, args ...any) {
	s.Log(ctx, LevelWarn, fmt.Sprintf(format, args...))
}

// Errorf sends an error Log event.
func (s *Sink) Errorf(ctx context.Context, format string, args ...any) {
	s.Log(ctx, LevelError, fmt.Sprintf(format, args...))
}

// Progress offers a Progress event and reports whether it was delivered.
func (s *Sink) Progress(p Progress) bool {
	if s == nil || s.ch == nil {
		return false
	}

	select {
	case s.ch <- p:
		return true
	default:
		s.dropped.Add(1)
		return false
	}
}

// Dropped returns how many progress events did not fit in the channel.
func (s *Sink) Dropped() uint64 {
	if s == nil {
		return 0
	}

	return s.dropped.Load()
}
