package model

// Track represents a single track within an album.
//
// Track is a value type: every download or tagging task gets its own copy.
//
// Example:
//
//	cfg := &TrackConfig{FileNameFormat: "{tracknum} {title}.mp3"}
//	track := NewTrack(album, 1, "Song Title", 180.5, "", mp3URL, cfg)
//	// track.Path = "/music/Artist/Album/01 Song Title.mp3"
type Track struct {
	// Number is the 1-based track number. Zero when the page did not give one.
	Number int

	// Title is the track title.
	Title string

	// Duration is the track length in seconds.
	Duration float64

	// Lyrics contains the song lyrics. Empty if none.
	Lyrics string

	// Mp3URL is the stream to download. Empty when the page withheld it,
	// for example on pre-release tracks.
	Mp3URL string

	// Path is the local file path, including the extension.
	Path string
}

// TrackConfig holds the track file name template.
//
// The template accepts every album placeholder plus {title} and {tracknum}
// (2 digits, zero-padded). It must include the file extension.
type TrackConfig struct {
	// FileNameFormat is the template for track file names, e.g. "{tracknum} {artist} - {title}.mp3".
	FileNameFormat string

	// LimitPathLength enables Windows style path truncation.
	LimitPathLength bool
}

// NewTrack creates a Track whose path lives in album.Path.
func NewTrack(album *Album, number int, title string, duration float64, lyrics, mp3URL string, cfg *TrackConfig) Track {
	track := Track{
		Number:   number,
		Title:    title,
		Duration: duration,
		Lyrics:   lyrics,
		Mp3URL:   mp3URL,
	}

	track.Path = joinFilePath(album.Path, RenderFileName(cfg.FileNameFormat, album, &track), cfg.LimitPathLength)

	return track
}

// HasURL reports whether the track can be downloaded.
func (t Track) HasURL() bool {
	return t.Mp3URL != ""
}
