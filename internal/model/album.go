package model

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// Album represents a Bandcamp release with its metadata and tracks.
//
// Paths are computed once by NewAlbum from a PathConfig using placeholders
// like {artist}, {album} and {year}. An Album is not modified after it has
// been built; download and tagging workers share it read-only.
//
// Example:
//
//	cfg := &PathConfig{
//	    DownloadsPath:          "/music/{artist}/{album}",
//	    CoverArtFileNameFormat: "cover",
//	    PlaylistFileNameFormat: "{album}",
//	}
//	album := NewAlbum("The Beatles", "Abbey Road", artURL, releaseDate, cfg)
//	// album.Path = "/music/The Beatles/Abbey Road"
type Album struct {
	// Artist is the album artist name.
	Artist string

	// Title is the album title.
	Title string

	// ArtworkURL is the cover art location. Empty means no artwork.
	ArtworkURL string

	// ReleaseDate is the release date in UTC.
	ReleaseDate time.Time

	// Tracks holds the album tracks in page order.
	Tracks []Track

	// Path is the local directory the album is saved to.
	Path string

	// ArtworkPath is the local cover art file. Empty if the album has no artwork.
	ArtworkPath string

	// PlaylistPath is the playlist file location without extension.
	PlaylistPath string
}

// NewAlbum creates an Album and computes its paths from cfg.
//
// Placeholder values are sanitized, and when cfg.LimitPathLength is set the
// directory is cut at MaxFolderPathLength bytes.
func NewAlbum(artist, title, artworkURL string, releaseDate time.Time, cfg *PathConfig) *Album {
	album := &Album{
		Artist:      artist,
		Title:       title,
		ArtworkURL:  artworkURL,
		ReleaseDate: releaseDate.UTC(),
	}

	album.Path = limitFolderPath(RenderFolderPath(cfg.DownloadsPath, album), cfg.LimitPathLength)
	album.PlaylistPath = joinFilePath(album.Path, RenderFileName(cfg.PlaylistFileNameFormat, album, nil), cfg.LimitPathLength)

	if album.HasArtwork() {
		name := RenderFileName(cfg.CoverArtFileNameFormat, album, nil) + artworkExtension(album.ArtworkURL)
		album.ArtworkPath = joinFilePath(album.Path, name, cfg.LimitPathLength)
	}

	return album
}

// HasArtwork reports whether the album has cover art available for download.
func (a *Album) HasArtwork() bool {
	return a.ArtworkURL != ""
}

// String returns "Artist - Title".
func (a *Album) String() string {
	return a.Artist + " - " + a.Title
}

func artworkExtension(url string) string {
	ext := filepath.Ext(url)
	if ext == "" || strings.ContainsAny(ext, "?&/") {
		return ".jpg"
	}

	return ext
}

// PathConfig holds the album level naming templates.
//
// Templates accept {artist}, {album}, {year}, {month} and {day}.
type PathConfig struct {
	// DownloadsPath is the album directory template, e.g. "/music/{artist}/{album}".
	DownloadsPath string

	// CoverArtFileNameFormat is the cover art file name template without extension.
	CoverArtFileNameFormat string

	// PlaylistFileNameFormat is the playlist file name template without extension.
	PlaylistFileNameFormat string

	// LimitPathLength enables Windows style path truncation.
	LimitPathLength bool
}

// DefaultLimitPathLength is true on platforms with a short MAX_PATH.
var DefaultLimitPathLength = runtime.GOOS == "windows"

// PlaylistFormat represents supported playlist file formats.
type PlaylistFormat int

const (
	// PlaylistFormatM3U creates .m3u playlist files.
	PlaylistFormatM3U PlaylistFormat = iota

	// PlaylistFormatPLS creates .pls playlist files.
	PlaylistFormatPLS

	// PlaylistFormatWPL creates .wpl playlist files (Windows Media Player).
	PlaylistFormatWPL

	// PlaylistFormatZPL creates .zpl playlist files (Zune).
	PlaylistFormatZPL
)

var playlistFormatNames = map[PlaylistFormat]string{
	PlaylistFormatM3U: "m3u",
	PlaylistFormatPLS: "pls",
	PlaylistFormatWPL: "wpl",
	PlaylistFormatZPL: "zpl",
}

// Extension returns the file extension for the playlist format, including the dot.
func (pf PlaylistFormat) Extension() string {
	return "." + pf.String()
}

// String returns the lower case format name.
func (pf PlaylistFormat) String() string {
	if name, ok := playlistFormatNames[pf]; ok {
		return name
	}

	return playlistFormatNames[PlaylistFormatM3U]
}

// UnmarshalText parses "m3u", "pls", "wpl" or "zpl", case-insensitively.
func (pf *PlaylistFormat) UnmarshalText(text []byte) error {
	value := strings.ToLower(strings.TrimSpace(string(text)))
	for format, name := range playlistFormatNames {
		if name == value {
			*pf = format
			return nil
		}
	}

	return fmt.Errorf("unknown playlist format %q", value)
}

// MarshalText implements encoding.TextMarshaler.
func (pf PlaylistFormat) MarshalText() ([]byte, error) {
	return []byte(pf.String()), nil
}
