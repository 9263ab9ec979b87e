package audio

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/bogem/id3v2"
	"github.com/dhowden/tag"

	"github.com/tralbum/bandcamp-dl/internal/model"
)

// DefaultComment is written to the COMM frame unless configured otherwise.
const DefaultComment = "Support the artists you enjoy."

var (
	// ErrFileNotFound is returned when the track file does not exist.
	ErrFileNotFound = errors.New("track file not found")

	// ErrWriteTag is returned when the tag could not be written to the file.
	ErrWriteTag = errors.New("could not write tag")

	// ErrTrackIndex is returned for an index outside the album's track list.
	ErrTrackIndex = errors.New("track index out of range")
)

// EditAction defines how a tag field is written.
//
// Tags are only ever written to files that carry no tag yet, so Skip and
// Empty both leave the field out of the new tag.
type EditAction int

const (
	// EditModify writes the value from Bandcamp.
	EditModify EditAction = iota

	// EditEmpty leaves the field empty.
	EditEmpty

	// EditSkip does not touch the field.
	EditSkip
)

var editActionNames = map[EditAction]string{
	EditModify: "modify",
	EditEmpty:  "empty",
	EditSkip:   "skip",
}

// String returns the configuration name of the action.
func (a EditAction) String() string {
	if name, ok := editActionNames[a]; ok {
		return name
	}

	return fmt.Sprintf("EditAction(%d)", int(a))
}

// UnmarshalText parses "modify", "empty" or "skip".
func (a *EditAction) UnmarshalText(text []byte) error {
	value := strings.ToLower(strings.TrimSpace(string(text)))
	for action, name := range editActionNames {
		if name == value {
			*a = action
			return nil
		}
	}

	return fmt.Errorf("unknown tag edit action %q", value)
}

// MarshalText implements encoding.TextMarshaler.
func (a EditAction) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// TagConfig holds the edit action of each ID3 field.
//
// Example:
//
//	cfg := TagConfig{
//	    Artist:      EditModify,
//	    AlbumArtist: EditModify,
//	    Comments:    EditEmpty,
//	    Lyrics:      EditSkip,
//	}
type TagConfig struct {
	// Artist controls TPE1.
	Artist EditAction `mapstructure:"artist"`

	// AlbumArtist controls TPE2.
	AlbumArtist EditAction `mapstructure:"album_artist"`

	// AlbumTitle controls TALB.
	AlbumTitle EditAction `mapstructure:"album_title"`

	// Date controls TDRC (recording time).
	Date EditAction `mapstructure:"date"`

	// TrackNumber controls TRCK, written as "number/total".
	TrackNumber EditAction `mapstructure:"track_number"`

	// TrackTitle controls TIT2.
	TrackTitle EditAction `mapstructure:"track_title"`

	// Lyrics controls USLT. Only written when the track has lyrics.
	Lyrics EditAction `mapstructure:"lyrics"`

	// Comments controls COMM.
	Comments EditAction `mapstructure:"comments"`

	// CommentText is the COMM text. Empty means DefaultComment.
	CommentText string `mapstructure:"comment_text"`

	// Artwork embeds the cover as an APIC front cover picture.
	Artwork bool `mapstructure:"artwork"`
}

// DefaultTagConfig modifies every field and embeds artwork.
func DefaultTagConfig() TagConfig {
	return TagConfig{
		Artist:      EditModify,
		AlbumArtist: EditModify,
		AlbumTitle:  EditModify,
		Date:        EditModify,
		TrackNumber: EditModify,
		TrackTitle:  EditModify,
		Lyrics:      EditModify,
		Comments:    EditModify,
		CommentText: DefaultComment,
		Artwork:     true,
	}
}

// Artwork is a cover image ready to be embedded.
type Artwork struct {
	MimeType string
	Data     []byte
}

// Tagger writes ID3v2.4 tags to downloaded MP3 files.
//
// A file that already carries a readable tag is never rewritten, so running
// a download again over finished files leaves them untouched.
//
// Example:
//
//	tagger := NewTagger(DefaultTagConfig())
//	written, err := tagger.TagTrack(album, 0, artwork)
type Tagger struct {
	config TagConfig
}

// NewTagger creates a Tagger with the given configuration.
func NewTagger(config TagConfig) *Tagger {
	if config.CommentText == "" {
		config.CommentText = DefaultComment
	}

	return &Tagger{config: config}
}

// TagTrack tags album.Tracks[index]. It returns false with a nil error when
// the file already had a tag. artwork may be nil.
func (t *Tagger) TagTrack(album *model.Album, index int, artwork *Artwork) (bool, error) {
	if index < 0 || index >= len(album.Tracks) {
		return false, fmt.Errorf("%w: %d", ErrTrackIndex, index)
	}

	track := album.Tracks[index]

	tagged, err := hasReadableTag(track.Path)
	if err != nil {
		return false, err
	}
	if tagged {
		return false, nil
	}

	// Parsing finds the size of an unreadable leftover tag so Save replaces it.
	id3, err := id3v2.Open(track.Path, id3v2.Options{Parse: true})
	if err != nil {
		return false, fmt.Errorf("%w: open %s: %w", ErrWriteTag, track.Path, err)
	}
	defer id3.Close()

	id3.DeleteAllFrames()
	id3.SetVersion(4)
	id3.SetDefaultEncoding(id3v2.EncodingUTF8)

	t.fillTag(id3, album, track)

	if artwork != nil && t.config.Artwork && len(artwork.Data) > 0 {
		id3.AddAttachedPicture(id3v2.PictureFrame{
			Encoding:    id3v2.EncodingUTF8,
			MimeType:    artwork.MimeType,
			PictureType: id3v2.PTFrontCover,
			Description: "Cover",
			Picture:     artwork.Data,
		})
	}

	if err := id3.Save(); err != nil {
		return false, fmt.Errorf("%w: %s: %w", ErrWriteTag, track.Path, err)
	}

	return true, nil
}

// hasReadableTag reports whether path already starts or ends with a tag
// dhowden/tag can parse.
func hasReadableTag(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}

		return false, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	if _, err := tag.ReadFrom(f); err != nil {
		return false, nil
	}

	return true, nil
}

// fillTag adds one frame per field whose action is EditModify.
func (t *Tagger) fillTag(id3 *id3v2.Tag, album *model.Album, track model.Track) {
	if t.config.Artist == EditModify {
		id3.SetArtist(album.Artist)
	}

	if t.config.AlbumArtist == EditModify {
		id3.AddTextFrame("TPE2", id3v2.EncodingUTF8, album.Artist)
	}

	if t.config.AlbumTitle == EditModify {
		id3.SetAlbum(album.Title)
	}

	if t.config.TrackTitle == EditModify {
		id3.SetTitle(track.Title)
	}

	if t.config.TrackNumber == EditModify {
		id3.AddTextFrame("TRCK", id3v2.EncodingUTF8,
			fmt.Sprintf("%d/%d", track.Number, len(album.Tracks)))
	}

	if t.config.Date == EditModify && !album.ReleaseDate.IsZero() {
		id3.AddTextFrame("TDRC", id3v2.EncodingUTF8, album.ReleaseDate.Format("2006-01-02"))
	}

	if t.config.Lyrics == EditModify && track.Lyrics != "" {
		id3.AddUnsynchronisedLyricsFrame(id3v2.UnsynchronisedLyricsFrame{
			Encoding:          id3v2.EncodingUTF8,
			Language:          "eng",
			ContentDescriptor: "",
			Lyrics:            track.Lyrics,
		})
	}

	if t.config.Comments == EditModify {
		id3.AddCommentFrame(id3v2.CommentFrame{
			Encoding:    id3v2.EncodingUTF8,
			Language:    "eng",
			Description: "",
			Text:        t.config.CommentText,
		})
	}
}
