package dto

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tralbum/bandcamp-dl/internal/model"
)

const artworkURLFormat = "https://f4.bcbits.com/img/a%010d_0.jpg"

var (
	// ErrMalformedDate is returned when a date field does not match the Bandcamp format.
	ErrMalformedDate = errors.New("malformed date")

	// ErrMissingField is returned when a required field is absent from the page data.
	ErrMissingField = errors.New("missing required field")
)

// Bandcamp writes dates as "01 Jan 2023 00:00:00 GMT"; the zone is rewritten
// to a numeric offset before parsing.
var bandcampDateLayouts = []string{
	"02 Jan 2006 15:04:05 -0700",
	"2 Jan 2006 15:04:05 -0700",
}

// BandcampTime is a time decoded from Bandcamp's date format.
type BandcampTime struct {
	time.Time
}

// UnmarshalJSON parses "dd Mon yyyy HH:MM:SS GMT". An empty string leaves the zero time.
func (bt *BandcampTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: %s", ErrMalformedDate, data)
	}

	if s == "" {
		bt.Time = time.Time{}
		return nil
	}

	t, err := ParseBandcampTime(s)
	if err != nil {
		return err
	}

	bt.Time = t

	return nil
}

// ParseBandcampTime parses a Bandcamp date string into UTC.
func ParseBandcampTime(s string) (time.Time, error) {
	value := strings.Replace(strings.TrimSpace(s), "GMT", "+0000", 1)
	for _, layout := range bandcampDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}

	return time.Time{}, fmt.Errorf("%w: %q", ErrMalformedDate, s)
}

// IsZero reports whether bt is nil or holds the zero time.
func (bt *BandcampTime) IsZero() bool {
	return bt == nil || bt.Time.IsZero()
}

// JSONAlbum mirrors the album object embedded in Bandcamp pages.
type JSONAlbum struct {
	AlbumData   *JSONAlbumData `json:"current"`
	ArtID       *int64         `json:"art_id"`
	Artist      string         `json:"artist"`
	ReleaseDate *BandcampTime  `json:"album_release_date"`
	Tracks      []JSONTrack    `json:"trackinfo"`
}

// JSONAlbumData contains album metadata.
type JSONAlbumData struct {
	AlbumTitle  string        `json:"title"`
	ReleaseDate *BandcampTime `json:"release_date"`
	PublishDate *BandcampTime `json:"publish_date"`
}

// Validate checks the fields the model cannot do without.
func (ja *JSONAlbum) Validate() error {
	switch {
	case ja.AlbumData == nil:
		return fmt.Errorf("%w: current", ErrMissingField)
	case ja.AlbumData.AlbumTitle == "":
		return fmt.Errorf("%w: current.title", ErrMissingField)
	case ja.Artist == "":
		return fmt.Errorf("%w: artist", ErrMissingField)
	case ja.Tracks == nil:
		return fmt.Errorf("%w: trackinfo", ErrMissingField)
	case ja.releaseDate().IsZero():
		return fmt.Errorf("%w: album_release_date", ErrMissingField)
	}

	for i := range ja.Tracks {
		if ja.Tracks[i].Title == "" {
			return fmt.Errorf("%w: trackinfo[%d].title", ErrMissingField, i)
		}
	}

	return nil
}

// releaseDate picks album_release_date, then current.release_date, then current.publish_date.
func (ja *JSONAlbum) releaseDate() *BandcampTime {
	if !ja.ReleaseDate.IsZero() {
		return ja.ReleaseDate
	}

	if ja.AlbumData == nil {
		return nil
	}

	if !ja.AlbumData.ReleaseDate.IsZero() {
		return ja.AlbumData.ReleaseDate
	}

	return ja.AlbumData.PublishDate
}

// ArtworkURL returns the cover art URL, or "" when the page has no art id.
func (ja *JSONAlbum) ArtworkURL() string {
	if ja.ArtID == nil || *ja.ArtID <= 0 {
		return ""
	}

	return fmt.Sprintf(artworkURLFormat, *ja.ArtID)
}

// ToAlbum validates the record and converts it to a model.Album.
// Tracks without a stream URL are kept; the downloader reports them.
func (ja *JSONAlbum) ToAlbum(pathCfg *model.PathConfig, trackCfg *model.TrackConfig) (*model.Album, error) {
	if err := ja.Validate(); err != nil {
		return nil, err
	}

	album := model.NewAlbum(ja.Artist, ja.AlbumData.AlbumTitle, ja.ArtworkURL(), ja.releaseDate().Time, pathCfg)

	album.Tracks = make([]model.Track, 0, len(ja.Tracks))
	for i := range ja.Tracks {
		album.Tracks = append(album.Tracks, ja.Tracks[i].ToTrack(album, i, trackCfg))
	}

	return album, nil
}
