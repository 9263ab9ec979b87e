package download

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/tralbum/bandcamp-dl/internal/bandcamp"
	"github.com/tralbum/bandcamp-dl/internal/event"
)

// PageFetcher returns the HTML of a page.
type PageFetcher interface {
	GetString(ctx context.Context, url string) (string, error)
}

// Resolver expands seed URLs into every release of their artists.
type Resolver struct {
	client PageFetcher
	sink   *event.Sink
	limit  int
}

// NewResolver creates a Resolver running at most limit seeds at once.
func NewResolver(client PageFetcher, sink *event.Sink, limit int) *Resolver {
	return &Resolver{client: client, sink: sink, limit: max(limit, 1)}
}

// ResolveDiscography returns the sorted, distinct album and track URLs of the
// artists behind seeds.
//
// A seed whose page cannot be fetched or has no artist link contributes
// nothing. A seed whose artist has no readable catalog page (typically an
// artist with a single release) contributes itself.
func (r *Resolver) ResolveDiscography(ctx context.Context, seeds []string) []string {
	var (
		mu    sync.Mutex
		found = make(map[string]struct{})
		g     errgroup.Group
	)

	g.SetLimit(r.limit)

	for _, seed := range seeds {
		g.Go(func() error {
			urls := r.resolve(ctx, seed)

			mu.Lock()
			for _, url := range urls {
				found[url] = struct{}{}
			}
			mu.Unlock()

			return nil
		})
	}

	_ = g.Wait()

	return slices.Sorted(maps.Keys(found))
}

func (r *Resolver) resolve(ctx context.Context, seed string) []string {
	if ctx.Err() != nil {
		return nil
	}

	r.sink.Infof(ctx, "Retrieving artist discography from %s", seed)

	page, err := r.client.GetString(ctx, seed)
	if err != nil {
		r.sink.Warnf(ctx, "Could not retrieve data for %s: %v", seed, err)
		return nil
	}

	musicURL, err := bandcamp.FindMusicPageURL(page)
	if err != nil {
		r.sink.Warnf(ctx, "No discography found for %s: %v", seed, err)
		return nil
	}

	catalog, err := r.client.GetString(ctx, musicURL)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}

		r.sink.Warnf(ctx, "Could not retrieve %s, keeping %s only: %v", musicURL, seed, err)

		return []string{seed}
	}

	urls, err := bandcamp.ExtractAlbumURLs(catalog)
	if err != nil {
		if errors.Is(err, bandcamp.ErrNoAlbumFound) {
			r.sink.Infof(ctx, "No other releases listed for %s", seed)
		}

		return []string{seed}
	}

	return urls
}
