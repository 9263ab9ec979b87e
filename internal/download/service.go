package download

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/tralbum/bandcamp-dl/internal/bandcamp"
	"github.com/tralbum/bandcamp-dl/internal/config"
	"github.com/tralbum/bandcamp-dl/internal/event"
	"github.com/tralbum/bandcamp-dl/internal/http"
	ioutils "github.com/tralbum/bandcamp-dl/internal/io"
	"github.com/tralbum/bandcamp-dl/internal/logger"
	"github.com/tralbum/bandcamp-dl/internal/model"
)

// defaultFetchLimit bounds concurrent album page requests.
const defaultFetchLimit = 4

// Client is what the service needs from the HTTP layer.
type Client interface {
	PageFetcher
	Fetcher
	GetBytes(ctx context.Context, url string) ([]byte, string, error)
}

// Service coordinates download runs.
//
// A run takes its own copy of the settings, builds an HTTP client from them
// and reports through an event channel. Several runs may be in flight; Cancel
// stops all of them.
//
// Example:
//
//	svc := download.NewService()
//	events := make(chan event.Event, 64)
//	go func() {
//	    summary := svc.StartDownloads(ctx, urls, settings, events)
//	    close(events)
//	}()
//	for ev := range events {
//	    // render ev
//	}
type Service struct {
	newClient func(config.Settings) Client
	images    *ioutils.ImageService

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

// Option configures a Service.
type Option func(*Service)

// WithClientFactory replaces how a run builds its HTTP client.
func WithClientFactory(fn func(config.Settings) Client) Option {
	return func(s *Service) { s.newClient = fn }
}

// WithImageService replaces the cover art processor.
func WithImageService(images *ioutils.ImageService) Option {
	return func(s *Service) { s.images = images }
}

// NewService creates a Service.
func NewService(opts ...Option) *Service {
	s := &Service{
		newClient: NewHTTPClient,
		images:    ioutils.NewImageService(),
		cancels:   make(map[string]context.CancelFunc),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// NewHTTPClient builds the HTTP client a run uses from its settings.
func NewHTTPClient(settings config.Settings) Client {
	return http.NewClient(
		http.WithTimeout(settings.HTTPTimeout),
		http.WithUserAgent(settings.UserAgent),
		http.WithRateLimit(settings.RequestsPerSecond),
		http.WithSystemProxy(settings.UseSystemProxy()),
	)
}

// StartDownloads downloads every album reachable from urls, one URL per line,
// and blocks until the run is over. Log events are sent blocking, so the
// caller must drain events until StartDownloads returns; events may be nil.
func (s *Service) StartDownloads(ctx context.Context, urls string, settings config.Settings, events chan<- event.Event) *Summary {
	ctx, summary, sink, done := s.begin(ctx, settings, events)
	defer done()

	if summary.Err != nil {
		return summary
	}

	client := s.newClient(settings)

	albums := s.fetchAlbums(ctx, client, urls, settings, sink)
	summary.AlbumsFound = len(albums)

	if len(albums) > 0 {
		s.downloadAlbums(ctx, client, albums, settings, sink, summary)
	}

	s.finish(ctx, summary, sink)

	return summary
}

// FetchAlbums resolves and extracts albums from urls without downloading
// anything. It honours DownloadArtistDiscography.
func (s *Service) FetchAlbums(ctx context.Context, urls string, settings config.Settings, events chan<- event.Event) ([]*model.Album, error) {
	ctx, summary, sink, done := s.begin(ctx, settings, events)
	defer done()

	if summary.Err != nil {
		return nil, summary.Err
	}

	albums := s.fetchAlbums(ctx, s.newClient(settings), urls, settings, sink)

	return albums, ctx.Err()
}

// Cancel stops every run in flight. Runs return once their workers noticed.
func (s *Service) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, cancel := range s.cancels {
		cancel()
	}
}

// begin registers a run. The returned func must be deferred.
func (s *Service) begin(ctx context.Context, settings config.Settings, events chan<- event.Event) (context.Context, *Summary, *event.Sink, func()) {
	runID := uuid.NewString()
	ctx, cancel := context.WithCancel(logger.WithKV(ctx, "run_id", runID))

	s.mu.Lock()
	s.cancels[runID] = cancel
	s.mu.Unlock()

	summary := newSummary(runID)
	sink := event.NewSink(events)

	done := func() {
		s.mu.Lock()
		delete(s.cancels, runID)
		s.mu.Unlock()

		cancel()
	}

	if err := settings.Validate(); err != nil {
		sink.Errorf(ctx, "Invalid settings: %v", err)
		summary.Err = err
		summary.Finished = time.Now()

		return ctx, summary, sink, done
	}

	if strings.EqualFold(settings.ProxyType, config.ProxyManual) {
		sink.Warnf(ctx, "Manual proxy is not supported, using the system proxy")
	}

	logger.InfoKV(ctx, "download run started")

	return ctx, summary, sink, done
}

func (s *Service) finish(ctx context.Context, summary *Summary, sink *event.Sink) {
	summary.Finished = time.Now()
	summary.DroppedProgress = sink.Dropped()

	if errors.Is(ctx.Err(), context.Canceled) {
		summary.Cancelled = true
		sink.Warnf(ctx, "Downloads cancelled")
	}

	level := event.LevelInfo
	if !summary.OK() {
		level = event.LevelWarn
	}

	sink.Log(ctx, level, "Done: "+summary.String())
	logger.InfoKV(ctx, "download run finished",
		"albums", summary.AlbumsFound,
		"downloaded", summary.TracksDownloaded,
		"existing", summary.TracksExisting,
		"failed", summary.TracksFailed,
		"bytes", summary.Bytes,
	)
}

// fetchAlbums turns the input into albums, in input order. Albums that cannot
// be retrieved or have no tracks are dropped with a log event.
func (s *Service) fetchAlbums(ctx context.Context, client Client, input string, settings config.Settings, sink *event.Sink) []*model.Album {
	urls := SplitURLs(input)
	if len(urls) == 0 {
		sink.Warnf(ctx, "No URL to download")
		return nil
	}

	if settings.DownloadArtistDiscography {
		urls = NewResolver(client, sink, defaultFetchLimit).ResolveDiscography(ctx, urls)
	}

	parser := bandcamp.NewParser(settings.PathConfig(), settings.TrackConfig())
	albums := make([]*model.Album, len(urls))

	var g errgroup.Group
	g.SetLimit(defaultFetchLimit)

	for i, url := range urls {
		g.Go(func() error {
			albums[i] = s.fetchAlbum(ctx, client, parser, url, sink)
			return nil
		})
	}

	_ = g.Wait()

	found := make([]*model.Album, 0, len(albums))
	for _, album := range albums {
		if album != nil {
			found = append(found, album)
		}
	}

	return found
}

func (s *Service) fetchAlbum(ctx context.Context, client Client, parser *bandcamp.Parser, url string, sink *event.Sink) *model.Album {
	if ctx.Err() != nil {
		return nil
	}

	sink.Infof(ctx, "Retrieving album data for %s", url)

	page, err := client.GetString(ctx, url)
	if err != nil {
		if ctx.Err() == nil {
			sink.Errorf(ctx, "Could not retrieve data for %s: %v", url, err)
		}

		return nil
	}

	album, err := parser.ExtractAlbum(page)
	if err != nil {
		sink.Errorf(ctx, "Could not read album data from %s: %v", url, err)
		return nil
	}

	if len(album.Tracks) == 0 {
		sink.Warnf(ctx, "No tracks found for %s, skipping", album)
		return nil
	}

	sink.Infof(ctx, "Found album %s (%d tracks)", album, len(album.Tracks))

	return album
}

// downloadAlbums runs albums one after another or in parallel. A single
// semaphore caps track downloads across all albums.
func (s *Service) downloadAlbums(
	ctx context.Context,
	client Client,
	albums []*model.Album,
	settings config.Settings,
	sink *event.Sink,
	summary *Summary,
) {
	downloader := newAlbumDownloader(settings, client, sink, s.images)
	results := make([]AlbumResult, len(albums))

	if settings.DownloadOneAlbumAtATime {
		for i, album := range albums {
			if ctx.Err() != nil {
				results[i] = AlbumResult{Album: album, Err: ctx.Err()}
				continue
			}

			results[i] = downloader.download(ctx, album)
		}
	} else {
		var g errgroup.Group
		g.SetLimit(max(settings.MaxConcurrentAlbumsDownload, 1))

		for i, album := range albums {
			g.Go(func() error {
				results[i] = downloader.download(ctx, album)
				return nil
			})
		}

		_ = g.Wait()
	}

	for _, r := range results {
		summary.add(r)
	}
}

// SplitURLs returns the non-blank lines of input, trimmed and deduplicated.
// Lines that do not start with "http" get an "http://" prefix.
func SplitURLs(input string) []string {
	seen := make(map[string]struct{})
	urls := make([]string, 0)

	for line := range strings.Lines(input) {
		url := strings.TrimSpace(line)
		if url == "" {
			continue
		}

		if !strings.HasPrefix(url, "http") {
			url = "http://" + url
		}

		if _, dup := seen[url]; dup {
			continue
		}

		seen[url] = struct{}{}
		urls = append(urls, url)
	}

	return urls
}
