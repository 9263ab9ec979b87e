package dto

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tralbum/bandcamp-dl/internal/model"
)

var (
	testPathConfig  = &model.PathConfig{DownloadsPath: "/music/{artist}/{album}", CoverArtFileNameFormat: "cover", PlaylistFileNameFormat: "{album}"}
	testTrackConfig = &model.TrackConfig{FileNameFormat: "{tracknum} {title}.mp3"}
)

func TestParseBandcampTime(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    time.Time
		wantErr bool
	}{
		{
			name:  "two digit day",
			input: "15 May 2023 00:00:00 GMT",
			want:  time.Date(2023, 5, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			name:  "single digit day",
			input: "1 Jan 2020 12:30:45 GMT",
			want:  time.Date(2020, 1, 1, 12, 30, 45, 0, time.UTC),
		},
		{
			name:    "iso date is rejected",
			input:   "2023-05-15",
			wantErr: true,
		},
		{
			name:    "garbage",
			input:   "yesterday",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ParseBandcampTime(tt.input)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrMalformedDate)
				return
			}

			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
			assert.Equal(t, time.UTC, got.Location())
		})
	}
}

func TestJSONAlbum_ToAlbum(t *testing.T) {
	t.Parallel()

	raw := `{
		"current": {"title": "Test Album", "release_date": "01 Jan 2020 00:00:00 GMT"},
		"art_id": 1234567890,
		"artist": "Test Artist",
		"album_release_date": "15 May 2023 00:00:00 GMT",
		"trackinfo": [
			{"title": "One", "track_num": 1, "duration": 180.5, "file": {"mp3-128": "//t4.bcbits.com/one"}, "lyrics": " la la "},
			{"title": "Two", "track_num": 2, "duration": 200, "file": null, "lyrics": null}
		]
	}`

	var ja JSONAlbum
	require.NoError(t, json.Unmarshal([]byte(raw), &ja))

	album, err := ja.ToAlbum(testPathConfig, testTrackConfig)
	require.NoError(t, err)

	assert.Equal(t, "Test Artist", album.Artist)
	assert.Equal(t, "Test Album", album.Title)
	assert.Equal(t, "https://f4.bcbits.com/img/a1234567890_0.jpg", album.ArtworkURL)
	assert.Equal(t, time.Date(2023, 5, 15, 0, 0, 0, 0, time.UTC), album.ReleaseDate)

	require.Len(t, album.Tracks, 2)
	assert.Equal(t, "http://t4.bcbits.com/one", album.Tracks[0].Mp3URL)
	assert.Equal(t, "la la", album.Tracks[0].Lyrics)
	assert.Empty(t, album.Tracks[1].Mp3URL)
	assert.Equal(t, "/music/Test Artist/Test Album/02 Two.mp3", album.Tracks[1].Path)
}

func TestJSONAlbum_ReleaseDateFallback(t *testing.T) {
	t.Parallel()

	raw := `{"current": {"title": "T", "release_date": null, "publish_date": "02 Feb 2019 00:00:00 GMT"},
		"artist": "A", "album_release_date": null, "trackinfo": [{"title": "x", "track_num": null}]}`

	var ja JSONAlbum
	require.NoError(t, json.Unmarshal([]byte(raw), &ja))

	album, err := ja.ToAlbum(testPathConfig, testTrackConfig)
	require.NoError(t, err)

	assert.Equal(t, 2019, album.ReleaseDate.Year())
	assert.Empty(t, album.ArtworkURL)
	require.Len(t, album.Tracks, 1)
	assert.Equal(t, 1, album.Tracks[0].Number)
}

func TestJSONAlbum_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
	}{
		{"no current", `{"artist": "A", "album_release_date": "01 Jan 2020 00:00:00 GMT", "trackinfo": []}`},
		{"no title", `{"current": {}, "artist": "A", "album_release_date": "01 Jan 2020 00:00:00 GMT", "trackinfo": []}`},
		{"no artist", `{"current": {"title": "T"}, "album_release_date": "01 Jan 2020 00:00:00 GMT", "trackinfo": []}`},
		{"no trackinfo", `{"current": {"title": "T"}, "artist": "A", "album_release_date": "01 Jan 2020 00:00:00 GMT"}`},
		{"no date", `{"current": {"title": "T"}, "artist": "A", "trackinfo": []}`},
		{"track without title", `{"current": {"title": "T"}, "artist": "A", "album_release_date": "01 Jan 2020 00:00:00 GMT", "trackinfo": [{}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var ja JSONAlbum
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &ja))

			_, err := ja.ToAlbum(testPathConfig, testTrackConfig)
			assert.ErrorIs(t, err, ErrMissingField)
		})
	}
}

func TestJSONAlbum_MalformedDate(t *testing.T) {
	t.Parallel()

	var ja JSONAlbum
	err := json.Unmarshal([]byte(`{"album_release_date": "someday"}`), &ja)

	assert.ErrorIs(t, err, ErrMalformedDate)
}
