package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/tralbum/bandcamp-dl/internal/event"
	"github.com/tralbum/bandcamp-dl/internal/http"
	ioutils "github.com/tralbum/bandcamp-dl/internal/io"
	"github.com/tralbum/bandcamp-dl/internal/logger"
	"github.com/tralbum/bandcamp-dl/internal/model"
)

var (
	// ErrNoURL is returned for a track whose page withheld the audio stream.
	ErrNoURL = errors.New("track has no audio URL")

	// ErrDownload is returned when a file could not be downloaded.
	ErrDownload = errors.New("download failed")
)

// TrackState is a step of a single track download.
type TrackState int

const (
	// StatePending means nothing has been requested yet.
	StatePending TrackState = iota
	// StateFetching means the audio stream is being requested.
	StateFetching
	// StateVerifying means an existing file is compared with the declared size.
	StateVerifying
	// StateWriting means the stream is being written to disk.
	StateWriting
	// StateDone means the file is on disk.
	StateDone
	// StateFailed means the track was given up on.
	StateFailed
)

var trackStateNames = [...]string{"pending", "fetching", "verifying", "writing", "done", "failed"}

// String returns the lower case state name.
func (s TrackState) String() string {
	if s >= 0 && int(s) < len(trackStateNames) {
		return trackStateNames[s]
	}

	return fmt.Sprintf("TrackState(%d)", int(s))
}

// Outcome is how a finished track ended.
type Outcome int

const (
	// OutcomeFailed means the file is missing or incomplete.
	OutcomeFailed Outcome = iota
	// OutcomeDownloaded means the file was written by this run.
	OutcomeDownloaded
	// OutcomeAlreadyExists means a file of the right size was already there.
	OutcomeAlreadyExists
)

// String returns the lower case outcome name.
func (o Outcome) String() string {
	switch o {
	case OutcomeDownloaded:
		return "downloaded"
	case OutcomeAlreadyExists:
		return "already exists"
	default:
		return "failed"
	}
}

// OnDisk reports whether the track file is usable after this outcome.
func (o Outcome) OnDisk() bool {
	return o == OutcomeDownloaded || o == OutcomeAlreadyExists
}

// TrackResult is the outcome of one track download.
type TrackResult struct {
	Track   model.Track
	State   TrackState
	Outcome Outcome
	Bytes   int64
	Retries int
	Err     error
}

// FileSizeOK reports whether actual lies within tolerance of declared,
// bounds included: declared*(1-tolerance) <= actual <= declared*(1+tolerance).
func FileSizeOK(tolerance, declared, actual float64) bool {
	return actual >= declared*(1-tolerance) && actual <= declared*(1+tolerance)
}

// Fetcher opens HTTP response bodies.
type Fetcher interface {
	Open(ctx context.Context, url string) (*http.Response, error)
}

// trackDownloader runs the per-track state machine.
type trackDownloader struct {
	client    Fetcher
	sink      *event.Sink
	retry     retryPolicy
	tolerance float64
}

// download fetches track into track.Path. It never panics on a bad track and
// always returns a result in StateDone or StateFailed.
func (d *trackDownloader) download(ctx context.Context, track model.Track) TrackResult {
	ctx = logger.WithKV(ctx, "track", track.Path)
	res := TrackResult{Track: track, State: StatePending}
	name := filepath.Base(track.Path)

	if !track.HasURL() {
		d.sink.Errorf(ctx, "No audio URL for %q, skipping", track.Title)
		return d.fail(ctx, res, ErrNoURL)
	}

	onRetry := func(retry int, wait time.Duration, err error) {
		d.sink.Warnf(ctx, "Retrying %s in %s (%d/%d): %v", name, wait.Round(time.Millisecond), retry, d.retry.maxTries-1, err)
	}

	retries, err := d.retry.do(ctx, onRetry, func(ctx context.Context) error {
		return d.attempt(ctx, &res)
	})
	res.Retries = retries

	if err != nil {
		if ctx.Err() == nil {
			err = fmt.Errorf("%w: %s: %w", ErrDownload, track.Mp3URL, err)
			d.sink.Errorf(ctx, "Unable to download %s: %v", name, err)
		}

		return d.fail(ctx, res, err)
	}

	d.setState(ctx, &res, StateDone)

	switch res.Outcome {
	case OutcomeAlreadyExists:
		d.sink.Infof(ctx, "File already exists: %s", name)
	default:
		d.sink.Infof(ctx, "Downloaded %s", name)
	}

	return res
}

// attempt makes one request and, unless a matching file exists, writes the body.
func (d *trackDownloader) attempt(ctx context.Context, res *TrackResult) error {
	d.setState(ctx, res, StateFetching)

	resp, err := d.client.Open(ctx, res.Track.Mp3URL)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	d.setState(ctx, res, StateVerifying)

	exists, err := d.matchesExisting(res.Track.Path, resp.ContentLength)
	if err != nil {
		return err
	}

	if exists {
		res.Outcome = OutcomeAlreadyExists
		return nil
	}

	d.setState(ctx, res, StateWriting)

	n, err := d.write(ctx, res.Track.Path, resp)
	if err != nil {
		return err
	}

	res.Outcome = OutcomeDownloaded
	res.Bytes = n

	return nil
}

// matchesExisting reports whether a file at path already has the declared size.
// An unknown declared size never matches.
func (d *trackDownloader) matchesExisting(path string, declared int64) (bool, error) {
	size, exists, err := ioutils.FileSize(path)
	if err != nil || !exists || declared <= 0 {
		return false, err
	}

	return FileSizeOK(d.tolerance, float64(declared), float64(size)), nil
}

func (d *trackDownloader) write(ctx context.Context, path string, resp *http.Response) (int64, error) {
	dir := filepath.Dir(path)

	created, err := ioutils.EnsureDir(ctx, dir)
	if err != nil {
		return 0, err
	}

	if created {
		d.sink.Infof(ctx, "Created missing folder %s", dir)
	}

	f, err := ioutils.CreateFile(ctx, path)
	if err != nil {
		return 0, err
	}

	pw := &http.ProgressWriter{
		Writer: f,
		Total:  resp.ContentLength,
		OnUpdate: func(written, total int64) {
			d.sink.Progress(event.Progress{Path: path, Complete: uint64(written), Total: uint64(total)})
		},
	}

	n, err := io.Copy(pw, &contextReader{ctx: ctx, r: resp.Body})
	if closeErr := f.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("close %s: %w", path, closeErr)
	}

	if err != nil {
		// Never leave a partial file behind.
		_ = os.Remove(path)

		return 0, err
	}

	return n, nil
}

func (d *trackDownloader) setState(ctx context.Context, res *TrackResult, state TrackState) {
	res.State = state
	logger.DebugKV(ctx, "track state", "state", state.String())
}

func (d *trackDownloader) fail(ctx context.Context, res TrackResult, err error) TrackResult {
	d.setState(ctx, &res, StateFailed)
	res.Outcome = OutcomeFailed
	res.Err = err

	return res
}

// contextReader stops a copy as soon as ctx is done.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (r *contextReader) Read(p []byte) (int, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}

	return r.r.Read(p)
}
