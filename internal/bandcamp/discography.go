package bandcamp

import (
	"errors"
	"html"
	"regexp"
	"slices"
	"strings"
)

var (
	// ErrNoDiscography is returned when a page does not link to its artist's music page.
	ErrNoDiscography = errors.New("no discography found on page")

	// ErrNoAlbumFound is returned when no album or track URLs can be found on a page.
	//
	// This typically occurs when:
	//   - The page is not an artist music page
	//   - The artist has a single release and the music page is that release
	//   - The HTML structure has changed unexpectedly
	ErrNoAlbumFound = errors.New("no album found on page")
)

var (
	bandURLRe = regexp.MustCompile(`(?s)"desktop-header">\s*<a href="(?P<url>[^"]*?)"`)

	// Relative links only: href="/album/x" or, inside embedded data,
	// &quot;/album/x&quot;. Absolute links to other artists are skipped.
	albumLinkRe = regexp.MustCompile(`(?:href="|&quot;)(/(?:album|track)/[^"&<>\s?#]+)(?:"|&quot;|\?)`)
)

// FindBandURL returns the artist base URL advertised in the page header,
// without a trailing slash.
func FindBandURL(page string) (string, bool) {
	m := bandURLRe.FindStringSubmatch(page)
	if m == nil {
		return "", false
	}

	url := strings.TrimRight(html.UnescapeString(m[1]), "/")
	if url == "" {
		return "", false
	}

	return url, true
}

// FindMusicPageURL returns the URL of the artist's music catalog page.
//
// Returns ErrNoDiscography if the page header has no artist link.
func FindMusicPageURL(page string) (string, error) {
	base, ok := FindBandURL(page)
	if !ok {
		return "", ErrNoDiscography
	}

	return base + "/music", nil
}

// ExtractAlbumURLs collects every distinct album and track URL of a music
// catalog page. Relative links are prefixed with the artist URL found in the
// page header. Absolute links point to other artists and are ignored. The
// result is sorted.
//
// Returns ErrNoAlbumFound if the header or the links are missing.
//
// Example:
//
//	urls, err := ExtractAlbumURLs(musicPage)
//	if errors.Is(err, ErrNoAlbumFound) {
//	    urls = []string{seedURL}
//	}
func ExtractAlbumURLs(page string) ([]string, error) {
	base, ok := FindBandURL(page)
	if !ok {
		return nil, ErrNoAlbumFound
	}

	seen := make(map[string]struct{})
	urls := make([]string, 0)

	for _, m := range albumLinkRe.FindAllStringSubmatch(page, -1) {
		url := base + m[1]
		if _, dup := seen[url]; dup {
			continue
		}

		seen[url] = struct{}{}
		urls = append(urls, url)
	}

	if len(urls) == 0 {
		return nil, ErrNoAlbumFound
	}

	slices.Sort(urls)

	return urls, nil
}
