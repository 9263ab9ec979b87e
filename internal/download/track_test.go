package download

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tralbum/bandcamp-dl/internal/config"
	"github.com/tralbum/bandcamp-dl/internal/event"
	"github.com/tralbum/bandcamp-dl/internal/http"
	"github.com/tralbum/bandcamp-dl/internal/model"
)

func TestFileSizeOK(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		tolerance float64
		declared  float64
		actual    float64
		want      bool
	}{
		{"exact", 0.05, 1000, 1000, true},
		{"lower bound", 0.05, 1000, 950, true},
		{"upper bound", 0.05, 1000, 1050, true},
		{"below", 0.05, 1000, 949, false},
		{"above", 0.05, 1000, 1051, false},
		{"zero tolerance", 0, 1000, 1000, true},
		{"zero tolerance off by one", 0, 1000, 1001, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, FileSizeOK(tt.tolerance, tt.declared, tt.actual))
		})
	}
}

func TestFileSizeOK_Symmetric(t *testing.T) {
	t.Parallel()

	for _, declared := range []float64{1, 100, 12345, 1 << 30} {
		for _, tol := range []float64{0, 0.01, 0.05, 0.5} {
			assert.True(t, FileSizeOK(tol, declared, declared))
			assert.True(t, FileSizeOK(tol, declared, declared*(1-tol)))
			assert.True(t, FileSizeOK(tol, declared, declared*(1+tol)))
			assert.False(t, FileSizeOK(tol, declared, declared*(1+tol)+1))
		}
	}
}

func TestRetryPolicy_Backoff(t *testing.T) {
	t.Parallel()

	settings := config.DefaultSettings()
	policy := newRetryPolicy(settings)

	assert.Equal(t, 200*time.Millisecond, policy.backoff(0))
	assert.Equal(t, 800*time.Millisecond, policy.backoff(1))
	assert.Equal(t, 3200*time.Millisecond, policy.backoff(2))
}

func TestRetryPolicy_Do(t *testing.T) {
	t.Parallel()

	policy := retryPolicy{maxTries: 3, cooldown: time.Millisecond, exponent: 1}
	fatal := errors.New("fatal")

	t.Run("succeeds after retries", func(t *testing.T) {
		t.Parallel()

		calls := 0
		retries, err := policy.do(context.Background(), nil, func(context.Context) error {
			calls++
			if calls < 3 {
				return &http.StatusError{Code: 502}
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 2, retries)
	})

	t.Run("stops on fatal error", func(t *testing.T) {
		t.Parallel()

		calls := 0
		retries, err := policy.do(context.Background(), nil, func(context.Context) error {
			calls++
			return fatal
		})
		require.ErrorIs(t, err, fatal)
		assert.Equal(t, 0, retries)
		assert.Equal(t, 1, calls)
	})

	t.Run("exhausts tries", func(t *testing.T) {
		t.Parallel()

		var waits []time.Duration
		retries, err := policy.do(context.Background(), func(_ int, wait time.Duration, _ error) {
			waits = append(waits, wait)
		}, func(context.Context) error {
			return context.DeadlineExceeded
		})
		require.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Equal(t, 2, retries)
		assert.Len(t, waits, 2)
	})

	t.Run("stops when cancelled", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		retries, err := policy.do(ctx, nil, func(context.Context) error {
			cancel()
			return &http.StatusError{Code: 500}
		})
		require.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 0, retries)
	})
}

func TestTrackDownloader_CreatesMissingFolder(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "gone")
	track := model.Track{Title: "One", Mp3URL: "mem://one", Path: filepath.Join(dir, "01 One.mp3")}

	events, wait := drain()
	d := &trackDownloader{
		client:    memFetcher{"mem://one": []byte("audio")},
		sink:      event.NewSink(events),
		retry:     retryPolicy{maxTries: 1},
		tolerance: 0.05,
	}

	res := d.download(context.Background(), track)
	logs := wait()

	require.NoError(t, res.Err)
	assert.Equal(t, OutcomeDownloaded, res.Outcome)
	assert.Equal(t, int64(5), res.Bytes)
	assert.True(t, hasLog(logs, event.LevelInfo, "Created missing folder"))

	data, err := os.ReadFile(track.Path)
	require.NoError(t, err)
	assert.Equal(t, "audio", string(data))
}

func TestTrackDownloader_ReplacesMismatchedFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "01 One.mp3")
	require.NoError(t, os.WriteFile(path, []byte("truncated"), 0o644))

	body := make([]byte, 1000)
	d := &trackDownloader{
		client:    memFetcher{"mem://one": body},
		retry:     retryPolicy{maxTries: 1},
		tolerance: 0.05,
	}

	res := d.download(context.Background(), model.Track{Title: "One", Mp3URL: "mem://one", Path: path})
	require.NoError(t, res.Err)
	assert.Equal(t, OutcomeDownloaded, res.Outcome)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), info.Size())
}

func TestTrackDownloader_ProgressEvents(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "01 One.mp3")
	events := make(chan event.Event, 64)

	d := &trackDownloader{
		client:    memFetcher{"mem://one": make([]byte, 100_000)},
		sink:      event.NewSink(events),
		retry:     retryPolicy{maxTries: 1},
		tolerance: 0.05,
	}

	res := d.download(context.Background(), model.Track{Title: "One", Mp3URL: "mem://one", Path: path})
	require.NoError(t, res.Err)
	close(events)

	table := event.NewProgressTable()
	for ev := range events {
		if p, ok := ev.(event.Progress); ok {
			table.Update(p)
		}
	}

	complete, total := table.Totals()
	assert.Equal(t, uint64(100_000), total)
	assert.Equal(t, uint64(100_000), complete)
}

func TestTrackDownloader_RetriesStalledStream(t *testing.T) {
	t.Parallel()

	body := make([]byte, 4096)

	var hits atomic.Int32

	srv := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("Content-Length", fmt.Sprint(len(body)))

		if hits.Add(1) == 1 {
			_, _ = w.Write(body[:1024])
			w.(nethttp.Flusher).Flush()
			<-r.Context().Done()

			return
		}

		_, _ = w.Write(body)
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "01 One.mp3")
	d := &trackDownloader{
		client:    http.NewClient(http.WithTimeout(50 * time.Millisecond)),
		retry:     retryPolicy{maxTries: 2, cooldown: time.Millisecond, exponent: 1},
		tolerance: 0.05,
	}

	res := d.download(context.Background(), model.Track{Title: "One", Mp3URL: srv.URL, Path: path})
	require.NoError(t, res.Err)
	assert.Equal(t, OutcomeDownloaded, res.Outcome)
	assert.Equal(t, 1, res.Retries)
	assert.Equal(t, int32(2), hits.Load())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(len(body)), info.Size())
}

func TestTrackState_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "pending", StatePending.String())
	assert.Equal(t, "verifying", StateVerifying.String())
	assert.Equal(t, "failed", StateFailed.String())
	assert.Equal(t, "TrackState(42)", TrackState(42).String())
	assert.Equal(t, "already exists", OutcomeAlreadyExists.String())
}

func TestSummary_String(t *testing.T) {
	t.Parallel()

	s := newSummary("run")
	s.AlbumsFound = 1
	s.add(AlbumResult{Tracks: []TrackResult{
		{Outcome: OutcomeDownloaded, Bytes: 2_500_000, Retries: 1},
		{Outcome: OutcomeAlreadyExists},
		{Outcome: OutcomeFailed},
	}})
	s.Finished = s.Started.Add(1500 * time.Millisecond)

	assert.Equal(t, "1 album(s): 1 downloaded, 1 already present, 1 failed, 1 retries (2.5 MB in 1.5s)", s.String())
	assert.False(t, s.OK())
}

// memFetcher serves bodies from memory with a declared length.
type memFetcher map[string][]byte

func (m memFetcher) Open(_ context.Context, url string) (*http.Response, error) {
	body, ok := m[url]
	if !ok {
		return nil, &http.StatusError{URL: url, Code: 404, Status: "404 Not Found"}
	}

	return &http.Response{
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentLength: int64(len(body)),
	}, nil
}
