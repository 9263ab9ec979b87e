package download

import (
	"context"
	"fmt"
	"mime"
	"path/filepath"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/tralbum/bandcamp-dl/internal/audio"
	"github.com/tralbum/bandcamp-dl/internal/config"
	"github.com/tralbum/bandcamp-dl/internal/event"
	ioutils "github.com/tralbum/bandcamp-dl/internal/io"
	"github.com/tralbum/bandcamp-dl/internal/logger"
	"github.com/tralbum/bandcamp-dl/internal/model"
)

// AlbumResult is the outcome of one album download.
type AlbumResult struct {
	Album  *model.Album
	Tracks []TrackResult

	// TagsWritten counts files that received a new tag.
	TagsWritten int
	// TagErrors counts files whose tagging failed.
	TagErrors int
	// Playlist is the written playlist path, if any.
	Playlist string

	// Err is set when the album could not be processed at all.
	Err error
}

// albumDownloader downloads, tags and lists the tracks of one album.
type albumDownloader struct {
	settings config.Settings
	client   Client
	sink     *event.Sink
	tracks   *trackDownloader
	trackSem *semaphore.Weighted
	images   *ioutils.ImageService
	tagger   *audio.Tagger
	playlist *audio.PlaylistWriter
}

func newAlbumDownloader(settings config.Settings, client Client, sink *event.Sink, images *ioutils.ImageService) *albumDownloader {
	return &albumDownloader{
		settings: settings,
		client:   client,
		sink:     sink,
		tracks: &trackDownloader{
			client:    client,
			sink:      sink,
			retry:     newRetryPolicy(settings),
			tolerance: settings.AllowedFileSizeDifference,
		},
		trackSem: semaphore.NewWeighted(int64(max(settings.MaxConcurrentTracksDownload, 1))),
		images:   images,
		tagger:   audio.NewTagger(settings.TagConfig()),
		playlist: audio.NewPlaylistWriter(settings.PlaylistFormat, settings.M3UExtended),
	}
}

// download processes album: folder, cover art, tracks, tags, playlist.
func (d *albumDownloader) download(ctx context.Context, album *model.Album) AlbumResult {
	ctx = logger.WithKV(ctx, "album", album.String())
	res := AlbumResult{Album: album}

	if _, err := ioutils.EnsureDir(ctx, album.Path); err != nil {
		d.sink.Errorf(ctx, "Unable to create folder for %s: %v", album, err)
		res.Err = err

		return res
	}

	artwork := d.artwork(ctx, album)

	res.Tracks = d.downloadTracks(ctx, album)

	if d.settings.ModifyTags {
		res.TagsWritten, res.TagErrors = d.tagTracks(ctx, album, res.Tracks, artwork)
	}

	if d.settings.CreatePlaylist && ctx.Err() == nil {
		res.Playlist = d.writePlaylist(ctx, album, res.Tracks)
	}

	ok := 0
	for _, tr := range res.Tracks {
		if tr.Outcome.OnDisk() {
			ok++
		}
	}

	if ok == len(res.Tracks) {
		d.sink.Infof(ctx, "Successfully downloaded album %s", album)
	} else {
		d.sink.Warnf(ctx, "Finished album %s: %d of %d tracks", album, ok, len(res.Tracks))
	}

	return res
}

// downloadTracks runs one task per track. The errgroup bounds the album and
// the shared semaphore bounds the whole run.
func (d *albumDownloader) downloadTracks(ctx context.Context, album *model.Album) []TrackResult {
	results := make([]TrackResult, len(album.Tracks))

	var g errgroup.Group
	g.SetLimit(max(d.settings.MaxConcurrentTracksDownload, 1))

	for i, track := range album.Tracks {
		g.Go(func() error {
			if err := d.trackSem.Acquire(ctx, 1); err != nil {
				results[i] = TrackResult{Track: track, State: StateFailed, Outcome: OutcomeFailed, Err: err}
				return nil
			}
			defer d.trackSem.Release(1)

			results[i] = d.tracks.download(ctx, track)

			return nil
		})
	}

	_ = g.Wait()

	return results
}

// artwork fetches the cover once, without retries, saves it in the album folder when asked to
// and returns the version to embed in tags. Failures are logged and yield nil.
func (d *albumDownloader) artwork(ctx context.Context, album *model.Album) *audio.Artwork {
	if !album.HasArtwork() || !d.settings.NeedsArtwork() {
		return nil
	}

	data, mimeType, err := d.client.GetBytes(ctx, album.ArtworkURL)
	if err != nil {
		if ctx.Err() == nil {
			d.sink.Warnf(ctx, "Unable to download cover art for %s: %v", album, err)
		}

		return nil
	}

	mimeType = imageMimeType(mimeType)

	if d.settings.SaveCoverArtInFolder {
		d.saveArtwork(ctx, album, data, mimeType)
	}

	if !d.settings.TagConfig().Artwork {
		return nil
	}

	tagData, tagMime, err := d.images.Prepare(ctx, data, mimeType, d.settings.TagImageOptions())
	if err != nil {
		d.sink.Warnf(ctx, "Unable to prepare cover art for tags of %s: %v", album, err)
		return nil
	}

	return &audio.Artwork{MimeType: tagMime, Data: tagData}
}

func (d *albumDownloader) saveArtwork(ctx context.Context, album *model.Album, data []byte, mimeType string) {
	folderData, _, err := d.images.Prepare(ctx, data, mimeType, d.settings.FolderImageOptions())
	if err != nil {
		d.sink.Warnf(ctx, "Unable to prepare cover art of %s: %v", album, err)
		return
	}

	if err := ioutils.WriteFile(ctx, album.ArtworkPath, folderData); err != nil {
		d.sink.Warnf(ctx, "Unable to save cover art of %s: %v", album, err)
		return
	}

	d.sink.Infof(ctx, "Saved cover art %s", filepath.Base(album.ArtworkPath))
}

// tagTracks tags every track that is on disk, once all downloads of the album
// have finished.
func (d *albumDownloader) tagTracks(ctx context.Context, album *model.Album, results []TrackResult, artwork *audio.Artwork) (int, int) {
	var (
		written atomic.Int32
		failed  atomic.Int32
		g       errgroup.Group
	)

	g.SetLimit(max(d.settings.MaxConcurrentTracksDownload, 1))

	for i, tr := range results {
		if !tr.Outcome.OnDisk() {
			continue
		}

		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}

			name := filepath.Base(tr.Track.Path)

			ok, err := d.tagger.TagTrack(album, i, artwork)
			switch {
			case err != nil:
				failed.Add(1)
				d.sink.Errorf(ctx, "Unable to tag %s: %v", name, err)
			case ok:
				written.Add(1)
				logger.DebugKV(ctx, "tagged", "file", name)
			default:
				logger.DebugKV(ctx, "already tagged", "file", name)
			}

			return nil
		})
	}

	_ = g.Wait()

	return int(written.Load()), int(failed.Load())
}

func (d *albumDownloader) writePlaylist(ctx context.Context, album *model.Album, results []TrackResult) string {
	tracks := make([]model.Track, 0, len(results))
	for _, tr := range results {
		if tr.Outcome.OnDisk() {
			tracks = append(tracks, tr.Track)
		}
	}

	if len(tracks) == 0 {
		return ""
	}

	path, err := d.playlist.Write(album, tracks)
	if err != nil {
		d.sink.Warnf(ctx, "Unable to create playlist for %s: %v", album, err)
		return ""
	}

	d.sink.Infof(ctx, "Created playlist %s", filepath.Base(path))

	return path
}

// imageMimeType strips parameters from a Content-Type and falls back to JPEG,
// the format of Bandcamp cover art.
func imageMimeType(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil || mediaType == "" || mediaType == "application/octet-stream" {
		return ioutils.MimeJPEG
	}

	return mediaType
}

// String implements fmt.Stringer.
func (r AlbumResult) String() string {
	if r.Album == nil {
		return "<nil album>"
	}

	return fmt.Sprintf("%s (%d tracks)", r.Album, len(r.Tracks))
}
