package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"
)

// ErrIdleTimeout is returned when a response stalls for longer than the
// client timeout. It matches os.ErrDeadlineExceeded, so IsTimeout holds.
var ErrIdleTimeout = fmt.Errorf("no data received: %w", os.ErrDeadlineExceeded)

// idleTimer cancels a request once no progress was made for d.
type idleTimer struct {
	d     time.Duration
	timer *time.Timer
	fired atomic.Bool
}

func newIdleTimer(d time.Duration, cancel context.CancelFunc) *idleTimer {
	t := &idleTimer{d: d}
	t.timer = time.AfterFunc(d, func() {
		t.fired.Store(true)
		cancel()
	})

	return t
}

func (t *idleTimer) reset() { t.timer.Reset(t.d) }

func (t *idleTimer) stop() { t.timer.Stop() }

// wrap replaces the cancellation caused by the timer with ErrIdleTimeout.
func (t *idleTimer) wrap(err error) error {
	if err == nil || errors.Is(err, io.EOF) || !t.fired.Load() {
		return err
	}

	return fmt.Errorf("%w for %s", ErrIdleTimeout, t.d)
}

// idleBody re-arms the idle timer on every read that returns data.
type idleBody struct {
	io.ReadCloser
	idle   *idleTimer
	cancel context.CancelFunc
}

func (b *idleBody) Read(p []byte) (int, error) {
	n, err := b.ReadCloser.Read(p)
	if n > 0 {
		b.idle.reset()
	}

	return n, b.idle.wrap(err)
}

func (b *idleBody) Close() error {
	b.idle.stop()
	err := b.ReadCloser.Close()
	b.cancel()

	return err
}
