package dto

import (
	"strings"

	"github.com/tralbum/bandcamp-dl/internal/model"
)

// JSONTrack mirrors one entry of the "trackinfo" array.
type JSONTrack struct {
	Duration float64      `json:"duration"`
	File     *JSONMp3File `json:"file"`
	Lyrics   *string      `json:"lyrics"`
	Number   *int         `json:"track_num"`
	Title    string       `json:"title"`
}

// JSONMp3File holds the stream URLs of a track. Only the free mp3-128 stream is used.
type JSONMp3File struct {
	URL *string `json:"mp3-128"`
}

// MP3URL returns the absolute stream URL, or "" when the page withheld it.
func (jt *JSONTrack) MP3URL() string {
	if jt.File == nil || jt.File.URL == nil {
		return ""
	}

	url := *jt.File.URL
	if strings.HasPrefix(url, "//") {
		url = "http:" + url
	}

	return url
}

// ToTrack converts the record to a model.Track. index is the position in
// trackinfo and numbers tracks whose track_num is null (single track pages).
func (jt *JSONTrack) ToTrack(album *model.Album, index int, cfg *model.TrackConfig) model.Track {
	number := index + 1
	if jt.Number != nil {
		number = *jt.Number
	}

	var lyrics string
	if jt.Lyrics != nil {
		lyrics = strings.TrimSpace(*jt.Lyrics)
	}

	return model.NewTrack(album, number, jt.Title, jt.Duration, lyrics, jt.MP3URL(), cfg)
}
