package event

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgress_Percent(t *testing.T) {
	t.Parallel()

	percent, ok := Progress{Complete: 50, Total: 200}.Percent()
	require.True(t, ok)
	assert.InDelta(t, 25.0, percent, 0.001)

	_, ok = Progress{Complete: 50}.Percent()
	assert.False(t, ok, "unknown total is indeterminate")

	percent, _ = Progress{Complete: 300, Total: 200}.Percent()
	assert.InDelta(t, 100.0, percent, 0.001)
}

func TestSink_ProgressDropsWhenFull(t *testing.T) {
	t.Parallel()

	ch := make(chan Event, 1)
	sink := NewSink(ch)

	assert.True(t, sink.Progress(Progress{Path: "a", Complete: 1, Total: 2}))
	assert.False(t, sink.Progress(Progress{Path: "a", Complete: 2, Total: 2}))
	assert.Equal(t, uint64(1), sink.Dropped())

	assert.Equal(t, Progress{Path: "a", Complete: 1, Total: 2}, <-ch)
}

func TestSink_LogIsNeverDropped(t *testing.T) {
	t.Parallel()

	ch := make(chan Event)
	sink := NewSink(ch)

	go sink.Warnf(context.Background(), "file %s exists", "x.mp3")

	assert.Equal(t, Log{Message: "file x.mp3 exists", Level: LevelWarn}, <-ch)
}

func TestSink_NilChannel(t *testing.T) {
	t.Parallel()

	sink := NewSink(nil)
	sink.Infof(context.Background(), "nobody listens")
	assert.False(t, sink.Progress(Progress{Path: "a"}))

	var nilSink *Sink
	nilSink.Errorf(context.Background(), "still fine")
	assert.Zero(t, nilSink.Dropped())
}

func TestProgressTable(t *testing.T) {
	t.Parallel()

	table := NewProgressTable()
	table.Update(Progress{Path: "b.mp3", Complete: 10, Total: 100})
	table.Update(Progress{Path: "b.mp3", Complete: 60, Total: 100})
	table.Update(Progress{Path: "b.mp3", Complete: 40, Total: 100})
	table.Update(Progress{Path: "a.mp3", Complete: 5, Total: 5})
	table.Update(Progress{Path: "c.mp3", Complete: 7})

	assert.Equal(t, 3, table.Len())

	complete, total := table.Totals()
	assert.Equal(t, uint64(72), complete)
	assert.Equal(t, uint64(105), total)

	active := table.Active()
	require.Len(t, active, 2)
	assert.Equal(t, "b.mp3", active[0].Path)
	assert.Equal(t, uint64(60), active[0].Complete)
	assert.Equal(t, "c.mp3", active[1].Path)
}
