package bandcamp

import (
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/tralbum/bandcamp-dl/internal/bandcamp/dto"
	"github.com/tralbum/bandcamp-dl/internal/model"
)

var (
	// ErrNoAlbumData is returned when a page carries no embedded album data.
	ErrNoAlbumData = errors.New("no album data found on page")

	// ErrSerialization is returned when the embedded album data cannot be decoded.
	ErrSerialization = errors.New("could not decode album data")
)

var (
	// Newer pages: <script data-tralbum="{&quot;current&quot;:...}">.
	dataTralbumRe = regexp.MustCompile(`data-tralbum="(\{[^"]*\})"`)

	// Older pages: var TralbumData = { current: {...}, ... };
	legacyTralbumRe = regexp.MustCompile(`(?s)var TralbumData\s*=\s*(\{.*?\});`)

	lyricsRowRe = regexp.MustCompile(`(?s)id="lyrics_row_(\d+)".*?<div[^>]*>(.*?)</div>`)
	htmlTagRe   = regexp.MustCompile(`<[^>]*>`)
)

// Parser extracts album information from Bandcamp album and track pages.
//
// Bandcamp embeds album data as a JavaScript object inside the page. The
// Parser locates it, repairs it into JSON, decodes it and computes the local
// paths of the album and its tracks.
//
// Example usage:
//
//	parser := NewParser(pathConfig, trackConfig)
//	album, err := parser.ExtractAlbum(page)
//	if err != nil {
//	    return err
//	}
//	for _, track := range album.Tracks {
//	    fmt.Printf("  %d. %s\n", track.Number, track.Title)
//	}
type Parser struct {
	pathConfig  *model.PathConfig
	trackConfig *model.TrackConfig
}

// NewParser creates a Parser that names albums with pathCfg and tracks with trackCfg.
func NewParser(pathCfg *model.PathConfig, trackCfg *model.TrackConfig) *Parser {
	return &Parser{
		pathConfig:  pathCfg,
		trackConfig: trackCfg,
	}
}

// ExtractAlbum extracts a complete album from the page markup.
//
// The result is either a fully built album or an error wrapping
// ErrNoAlbumData or ErrSerialization.
func (p *Parser) ExtractAlbum(page string) (*model.Album, error) {
	blob, err := extractAlbumData(page)
	if err != nil {
		return nil, err
	}

	var jsonAlbum dto.JSONAlbum
	if err := json.Unmarshal([]byte(repairJSON(blob)), &jsonAlbum); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerialization, err)
	}

	album, err := jsonAlbum.ToAlbum(p.pathConfig, p.trackConfig)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerialization, err)
	}

	fillLyrics(page, album)

	return album, nil
}

// extractAlbumData returns the raw data object, HTML-unescaped when it comes
// from the data-tralbum attribute.
func extractAlbumData(page string) (string, error) {
	if m := dataTralbumRe.FindStringSubmatch(page); m != nil {
		return html.UnescapeString(m[1]), nil
	}

	if m := legacyTralbumRe.FindStringSubmatch(page); m != nil {
		return m[1], nil
	}

	return "", ErrNoAlbumData
}

// fillLyrics reads the lyrics_row_N blocks of the page for tracks whose
// data did not carry lyrics.
func fillLyrics(page string, album *model.Album) {
	rows := make(map[string]string)
	for _, m := range lyricsRowRe.FindAllStringSubmatch(page, -1) {
		text := strings.TrimSpace(html.UnescapeString(htmlTagRe.ReplaceAllString(m[2], "")))
		if text != "" {
			rows[m[1]] = text
		}
	}

	if len(rows) == 0 {
		return
	}

	for i := range album.Tracks {
		if album.Tracks[i].Lyrics != "" {
			continue
		}
		if lyrics, ok := rows[fmt.Sprint(album.Tracks[i].Number)]; ok {
			album.Tracks[i].Lyrics = lyrics
		}
	}
}
