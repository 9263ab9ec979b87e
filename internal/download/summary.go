package download

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// Summary collects the outcome of a download run.
type Summary struct {
	RunID    string
	Started  time.Time
	Finished time.Time

	AlbumsFound  int
	AlbumsFailed int

	TracksDownloaded int
	TracksExisting   int
	TracksFailed     int
	Retries          int
	Bytes            int64

	TagsWritten int
	TagErrors   int
	Playlists   int

	// DroppedProgress counts progress events that did not fit in the channel.
	DroppedProgress uint64

	Cancelled bool
	Err       error

	Albums []AlbumResult
}

func newSummary(runID string) *Summary {
	return &Summary{RunID: runID, Started: time.Now()}
}

func (s *Summary) add(r AlbumResult) {
	s.Albums = append(s.Albums, r)

	if r.Err != nil {
		s.AlbumsFailed++
	}

	for _, tr := range r.Tracks {
		switch tr.Outcome {
		case OutcomeDownloaded:
			s.TracksDownloaded++
		case OutcomeAlreadyExists:
			s.TracksExisting++
		default:
			s.TracksFailed++
		}

		s.Retries += tr.Retries
		s.Bytes += tr.Bytes
	}

	s.TagsWritten += r.TagsWritten
	s.TagErrors += r.TagErrors

	if r.Playlist != "" {
		s.Playlists++
	}
}

// OK reports whether every unit of the run succeeded.
func (s *Summary) OK() bool {
	return s.Err == nil && !s.Cancelled && s.AlbumsFailed == 0 && s.TracksFailed == 0 && s.TagErrors == 0
}

// Duration returns how long the run took.
func (s *Summary) Duration() time.Duration {
	if s.Finished.IsZero() {
		return time.Since(s.Started)
	}

	return s.Finished.Sub(s.Started)
}

// String returns a one line report.
func (s *Summary) String() string {
	var b strings.Builder

	fmt.Fprintf(&b, "%d album(s): %d downloaded, %d already present, %d failed",
		s.AlbumsFound, s.TracksDownloaded, s.TracksExisting, s.TracksFailed)

	if s.Retries > 0 {
		fmt.Fprintf(&b, ", %d retries", s.Retries)
	}

	fmt.Fprintf(&b, " (%s in %s)", humanize.Bytes(uint64(max(s.Bytes, 0))), s.Duration().Round(time.Millisecond))

	if s.Cancelled {
		b.WriteString(", cancelled")
	}

	return b.String()
}
