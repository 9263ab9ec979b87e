package download

import (
	"context"
	"fmt"
	nethttp "net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/dhowden/tag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tralbum/bandcamp-dl/internal/event"
	"github.com/tralbum/bandcamp-dl/internal/model"
)

func serveMP3(w nethttp.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Content-Length", fmt.Sprint(len(data)))
	_, _ = w.Write(data)
}

func TestService_NullStreamFailsOnlyThatTrack(t *testing.T) {
	t.Parallel()

	mp3 := fakeMP3()
	mux := nethttp.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/album/x", func(w nethttp.ResponseWriter, _ *nethttp.Request) {
		fmt.Fprint(w, albumPage(t, "Artist", "Album", srv.URL+"/1.mp3", ""))
	})
	mux.HandleFunc("/1.mp3", func(w nethttp.ResponseWriter, _ *nethttp.Request) { serveMP3(w, mp3) })

	settings := testSettings(t)
	events, wait := drain()

	summary := NewService().StartDownloads(context.Background(), srv.URL+"/album/x", settings, events)
	logs := wait()

	require.NoError(t, summary.Err)
	assert.Equal(t, 1, summary.AlbumsFound)
	assert.Equal(t, 1, summary.TracksDownloaded)
	assert.Equal(t, 1, summary.TracksFailed)
	assert.Equal(t, int64(len(mp3)), summary.Bytes)
	assert.Equal(t, 1, summary.TagsWritten)
	assert.False(t, summary.OK())

	require.Len(t, summary.Albums, 1)
	tracks := summary.Albums[0].Tracks
	require.Len(t, tracks, 2)

	assert.Equal(t, StateDone, tracks[0].State)
	assert.Equal(t, OutcomeDownloaded, tracks[0].Outcome)
	assert.Equal(t, StateFailed, tracks[1].State)
	assert.ErrorIs(t, tracks[1].Err, ErrNoURL)

	_, err := os.Stat(tracks[1].Track.Path)
	assert.True(t, os.IsNotExist(err))

	f, err := os.Open(tracks[0].Track.Path)
	require.NoError(t, err)
	defer f.Close()

	meta, err := tag.ReadFrom(f)
	require.NoError(t, err)
	assert.Equal(t, "Track 1", meta.Title())
	assert.Equal(t, "Album", meta.Album())

	assert.True(t, hasLog(logs, event.LevelError, "No audio URL"))
	assert.True(t, hasLog(logs, event.LevelInfo, "Downloaded 01 Track 1.mp3"))
}

func TestService_RerunKeepsExistingFiles(t *testing.T) {
	t.Parallel()

	mp3 := fakeMP3()
	mux := nethttp.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/album/x", func(w nethttp.ResponseWriter, _ *nethttp.Request) {
		fmt.Fprint(w, albumPage(t, "Artist", "Album", srv.URL+"/1.mp3", srv.URL+"/2.mp3"))
	})
	mux.HandleFunc("/1.mp3", func(w nethttp.ResponseWriter, _ *nethttp.Request) { serveMP3(w, mp3) })
	mux.HandleFunc("/2.mp3", func(w nethttp.ResponseWriter, _ *nethttp.Request) { serveMP3(w, mp3) })

	settings := testSettings(t)
	settings.CreatePlaylist = true
	svc := NewService()

	first := svc.StartDownloads(context.Background(), srv.URL+"/album/x", settings, nil)
	require.True(t, first.OK(), first.String())
	assert.Equal(t, 2, first.TracksDownloaded)
	assert.Equal(t, 1, first.Playlists)

	tagged, err := os.ReadFile(first.Albums[0].Tracks[0].Track.Path)
	require.NoError(t, err)

	second := svc.StartDownloads(context.Background(), srv.URL+"/album/x", settings, nil)
	require.True(t, second.OK(), second.String())
	assert.Equal(t, 0, second.TracksDownloaded)
	assert.Equal(t, 2, second.TracksExisting)
	assert.Equal(t, int64(0), second.Bytes)
	assert.Equal(t, 0, second.Retries)
	assert.Equal(t, 0, second.TagsWritten)

	for _, tr := range second.Albums[0].Tracks {
		assert.Equal(t, OutcomeAlreadyExists, tr.Outcome)
	}

	after, err := os.ReadFile(first.Albums[0].Tracks[0].Track.Path)
	require.NoError(t, err)
	assert.Equal(t, tagged, after, "an already tagged file must stay byte-identical")
}

func TestService_RetriesServerErrors(t *testing.T) {
	t.Parallel()

	mp3 := fakeMP3()
	mux := nethttp.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	var hits atomic.Int32

	mux.HandleFunc("/album/x", func(w nethttp.ResponseWriter, _ *nethttp.Request) {
		fmt.Fprint(w, albumPage(t, "Artist", "Album", srv.URL+"/1.mp3"))
	})
	mux.HandleFunc("/1.mp3", func(w nethttp.ResponseWriter, _ *nethttp.Request) {
		if hits.Add(1) <= 2 {
			nethttp.Error(w, "busy", nethttp.StatusServiceUnavailable)
			return
		}
		serveMP3(w, mp3)
	})

	settings := testSettings(t)
	settings.ModifyTags = false
	events, wait := drain()

	summary := NewService().StartDownloads(context.Background(), srv.URL+"/album/x", settings, events)
	logs := wait()

	require.True(t, summary.OK(), summary.String())
	assert.Equal(t, 2, summary.Retries)
	assert.Equal(t, int32(3), hits.Load())
	assert.True(t, hasLog(logs, event.LevelWarn, "Retrying 01 Track 1.mp3"))
}

func TestService_GivesUpAfterMaxTries(t *testing.T) {
	t.Parallel()

	mux := nethttp.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	var hits atomic.Int32

	mux.HandleFunc("/album/x", func(w nethttp.ResponseWriter, _ *nethttp.Request) {
		fmt.Fprint(w, albumPage(t, "Artist", "Album", srv.URL+"/1.mp3", "http://127.0.0.1:1/refused.mp3"))
	})
	mux.HandleFunc("/1.mp3", func(w nethttp.ResponseWriter, _ *nethttp.Request) {
		hits.Add(1)
		nethttp.Error(w, "boom", nethttp.StatusInternalServerError)
	})

	settings := testSettings(t)
	settings.DownloadMaxTries = 3

	summary := NewService().StartDownloads(context.Background(), srv.URL+"/album/x", settings, nil)

	require.Len(t, summary.Albums, 1)
	tracks := summary.Albums[0].Tracks

	assert.ErrorIs(t, tracks[0].Err, ErrDownload)
	assert.Equal(t, 2, tracks[0].Retries)
	assert.Equal(t, int32(3), hits.Load())

	// Connection errors are not retried.
	assert.ErrorIs(t, tracks[1].Err, ErrDownload)
	assert.Equal(t, 0, tracks[1].Retries)

	assert.Equal(t, 2, summary.TracksFailed)
}

func TestService_Cancel(t *testing.T) {
	t.Parallel()

	mux := nethttp.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	started := make(chan struct{}, 1)

	mux.HandleFunc("/album/x", func(w nethttp.ResponseWriter, _ *nethttp.Request) {
		fmt.Fprint(w, albumPage(t, "Artist", "Album", srv.URL+"/slow.mp3"))
	})
	mux.HandleFunc("/slow.mp3", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		select {
		case started <- struct{}{}:
		default:
		}
		<-r.Context().Done()
	})

	svc := NewService()
	settings := testSettings(t)

	go func() {
		<-started
		svc.Cancel()
	}()

	summary := svc.StartDownloads(context.Background(), srv.URL+"/album/x", settings, nil)

	assert.True(t, summary.Cancelled)
	assert.Equal(t, 1, summary.TracksFailed)
	assert.Equal(t, 0, summary.Retries)
	assert.ErrorIs(t, summary.Albums[0].Tracks[0].Err, context.Canceled)
}

func TestService_InvalidSettings(t *testing.T) {
	t.Parallel()

	settings := testSettings(t)
	settings.DownloadMaxTries = 0

	events, wait := drain()
	summary := NewService().StartDownloads(context.Background(), "https://x.bandcamp.com/album/y", settings, events)
	logs := wait()

	require.Error(t, summary.Err)
	assert.True(t, hasLog(logs, event.LevelError, "Invalid settings"))
}

func TestService_FetchAlbumsSkipsBadPages(t *testing.T) {
	t.Parallel()

	mux := nethttp.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/album/good", func(w nethttp.ResponseWriter, _ *nethttp.Request) {
		fmt.Fprint(w, albumPage(t, "Artist", "Good", srv.URL+"/1.mp3"))
	})
	mux.HandleFunc("/album/empty", func(w nethttp.ResponseWriter, _ *nethttp.Request) {
		fmt.Fprint(w, albumPage(t, "Artist", "Empty"))
	})
	mux.HandleFunc("/album/junk", func(w nethttp.ResponseWriter, _ *nethttp.Request) {
		fmt.Fprint(w, "<html>nothing here</html>")
	})

	input := strings.Join([]string{
		srv.URL + "/album/good",
		"",
		srv.URL + "/album/empty",
		srv.URL + "/album/junk",
		srv.URL + "/album/missing",
	}, "\n")

	albums, err := NewService().FetchAlbums(context.Background(), input, testSettings(t), nil)
	require.NoError(t, err)
	require.Len(t, albums, 1)
	assert.Equal(t, "Good", albums[0].Title)
}

func TestService_CoverArtInFolder(t *testing.T) {
	t.Parallel()

	mp3 := fakeMP3()
	mux := nethttp.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/1.mp3", func(w nethttp.ResponseWriter, _ *nethttp.Request) { serveMP3(w, mp3) })
	mux.HandleFunc("/cover.jpg", func(w nethttp.ResponseWriter, _ *nethttp.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write([]byte("jpeg bytes"))
	})

	settings := testSettings(t)
	settings.SaveCoverArtInFolder = true
	settings.ConvertCoverArtToJPG = false
	settings.CoverArtInFolderResize = false
	settings.ModifyTags = false

	album := model.NewAlbum("Artist", "Album", srv.URL+"/cover.jpg", testDate, settings.PathConfig())
	album.Tracks = []model.Track{
		model.NewTrack(album, 1, "One", 60, "", srv.URL+"/1.mp3", settings.TrackConfig()),
	}

	client := NewHTTPClient(settings)
	downloader := newAlbumDownloader(settings, client, nil, NewService().images)

	res := downloader.download(context.Background(), album)
	require.NoError(t, res.Err)

	data, err := os.ReadFile(album.ArtworkPath)
	require.NoError(t, err)
	assert.Equal(t, "jpeg bytes", string(data))
	assert.Equal(t, "Album.jpg", filepath.Base(album.ArtworkPath))
}

func TestService_MissingCoverArtIsFetchedOnce(t *testing.T) {
	t.Parallel()

	mp3 := fakeMP3()
	mux := nethttp.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	var coverHits atomic.Int32

	mux.HandleFunc("/1.mp3", func(w nethttp.ResponseWriter, _ *nethttp.Request) { serveMP3(w, mp3) })
	mux.HandleFunc("/cover.jpg", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		coverHits.Add(1)
		nethttp.NotFound(w, r)
	})

	settings := testSettings(t)
	settings.SaveCoverArtInFolder = true
	settings.ModifyTags = false

	album := model.NewAlbum("Artist", "Album", srv.URL+"/cover.jpg", testDate, settings.PathConfig())
	album.Tracks = []model.Track{
		model.NewTrack(album, 1, "One", 60, "", srv.URL+"/1.mp3", settings.TrackConfig()),
	}

	events, wait := drain()
	downloader := newAlbumDownloader(settings, NewHTTPClient(settings), event.NewSink(events), NewService().images)

	res := downloader.download(context.Background(), album)
	logs := wait()

	require.NoError(t, res.Err)
	assert.Equal(t, int32(1), coverHits.Load())
	assert.True(t, hasLog(logs, event.LevelWarn, "Unable to download cover art for Artist - Album"))

	require.Len(t, res.Tracks, 1)
	assert.Equal(t, OutcomeDownloaded, res.Tracks[0].Outcome)

	_, err := os.Stat(album.ArtworkPath)
	assert.True(t, os.IsNotExist(err))
}

func TestSplitURLs(t *testing.T) {
	t.Parallel()

	input := "  https://a.bandcamp.com/album/x \n\r\nb.bandcamp.com/album/y\nhttps://a.bandcamp.com/album/x\n\n"

	assert.Equal(t, []string{
		"https://a.bandcamp.com/album/x",
		"http://b.bandcamp.com/album/y",
	}, SplitURLs(input))

	assert.Empty(t, SplitURLs(" \n\t\n"))
}
