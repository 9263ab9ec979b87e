package download

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tralbum/bandcamp-dl/internal/config"
	"github.com/tralbum/bandcamp-dl/internal/event"
)

var testDate = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

// fakeMP3 is large enough that an ID3 tag stays within the size tolerance.
func fakeMP3() []byte {
	frame := append([]byte{0xff, 0xfb, 0x90, 0x00}, make([]byte, 413)...)
	return bytes.Repeat(frame, 500)
}

// albumPage renders a release page. An empty mp3 URL becomes a null stream.
func albumPage(t *testing.T, artist, title string, mp3URLs ...string) string {
	t.Helper()

	tracks := make([]map[string]any, 0, len(mp3URLs))
	for i, url := range mp3URLs {
		var file any
		if url != "" {
			file = map[string]any{"mp3-128": url}
		}

		tracks = append(tracks, map[string]any{
			"track_num": i + 1,
			"title":     fmt.Sprintf("Track %d", i+1),
			"duration":  60.5,
			"file":      file,
		})
	}

	raw, err := json.Marshal(map[string]any{
		"current":            map[string]any{"title": title},
		"artist":             artist,
		"album_release_date": "01 Jan 2020 00:00:00 GMT",
		"trackinfo":          tracks,
	})
	require.NoError(t, err)

	return `<html><script data-tralbum="` + html.EscapeString(string(raw)) + `"></script></html>`
}

// artistPage renders a page whose header links to base.
func artistPage(base string, links ...string) string {
	page := fmt.Sprintf(`<html><div class="desktop-header">
  <a href="%s/"><img></a></div><ol>`, base)
	for _, link := range links {
		page += fmt.Sprintf(`<li><a href="%s">x</a></li>`, link)
	}

	return page + `</ol></html>`
}

func testSettings(t *testing.T) config.Settings {
	t.Helper()

	settings := config.DefaultSettings()
	settings.DownloadsPath = filepath.Join(t.TempDir(), "{artist}", "{album}")
	settings.FileNameFormat = "{tracknum} {title}.mp3"
	settings.DownloadRetryCooldown = time.Millisecond
	settings.DownloadRetryExponent = 1
	settings.HTTPTimeout = 5 * time.Second
	settings.SaveCoverArtInTags = false
	settings.ProxyType = config.ProxyNone

	return settings
}

// drain consumes events until the returned func is called, then returns the
// collected Log events.
func drain() (chan event.Event, func() []event.Log) {
	ch := make(chan event.Event, 16)
	done := make(chan []event.Log)

	go func() {
		var logs []event.Log
		for ev := range ch {
			if l, ok := ev.(event.Log); ok {
				logs = append(logs, l)
			}
		}
		done <- logs
	}()

	return ch, func() []event.Log {
		close(ch)
		return <-done
	}
}

func hasLog(logs []event.Log, level event.Level, substr string) bool {
	for _, l := range logs {
		if l.Level == level && strings.Contains(l.Message, substr) {
			return true
		}
	}

	return false
}
