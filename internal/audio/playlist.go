package audio

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tralbum/bandcamp-dl/internal/model"
)

// PlaylistWriter writes one playlist per album next to its tracks.
//
// Track entries are file names relative to the album directory.
//
// Example:
//
//	w := NewPlaylistWriter(model.PlaylistFormatM3U, true)
//	path, err := w.Write(album, album.Tracks)
//	// #EXTM3U
//	// #EXTINF:180,Artist - Song Title
//	// 01 Artist - Song Title.mp3
type PlaylistWriter struct {
	format   model.PlaylistFormat
	extended bool
}

// NewPlaylistWriter creates a writer. extended adds #EXTINF lines to M3U output.
func NewPlaylistWriter(format model.PlaylistFormat, extended bool) *PlaylistWriter {
	return &PlaylistWriter{
		format:   format,
		extended: extended,
	}
}

// Write renders tracks and saves them at album.PlaylistPath plus the format
// extension. It returns the written path.
func (w *PlaylistWriter) Write(album *model.Album, tracks []model.Track) (string, error) {
	path := album.PlaylistPath + w.format.Extension()
	if err := os.WriteFile(path, []byte(w.Render(album, tracks)), 0o644); err != nil {
		return "", fmt.Errorf("write playlist %s: %w", path, err)
	}

	return path, nil
}

// Render returns the playlist content.
func (w *PlaylistWriter) Render(album *model.Album, tracks []model.Track) string {
	switch w.format {
	case model.PlaylistFormatPLS:
		return renderPLS(tracks)
	case model.PlaylistFormatWPL:
		return renderSMIL(album, tracks, false)
	case model.PlaylistFormatZPL:
		return renderSMIL(album, tracks, true)
	default:
		return w.renderM3U(album, tracks)
	}
}

func (w *PlaylistWriter) renderM3U(album *model.Album, tracks []model.Track) string {
	var sb strings.Builder

	if w.extended {
		sb.WriteString("#EXTM3U\n")
	}

	for _, track := range tracks {
		if w.extended {
			fmt.Fprintf(&sb, "#EXTINF:%d,%s - %s\n", int(track.Duration), album.Artist, track.Title)
		}
		sb.WriteString(filepath.Base(track.Path) + "\n")
	}

	return sb.String()
}

func renderPLS(tracks []model.Track) string {
	var sb strings.Builder

	sb.WriteString("[playlist]\n")

	for i, track := range tracks {
		fmt.Fprintf(&sb, "File%d=%s\n", i+1, filepath.Base(track.Path))
		fmt.Fprintf(&sb, "Title%d=%s\n", i+1, track.Title)
		fmt.Fprintf(&sb, "Length%d=%d\n", i+1, int(track.Duration))
	}

	fmt.Fprintf(&sb, "NumberOfEntries=%d\n", len(tracks))
	sb.WriteString("Version=2\n")

	return sb.String()
}

// renderSMIL writes the WPL layout, or the ZPL one with per-track metadata.
func renderSMIL(album *model.Album, tracks []model.Track, zune bool) string {
	var sb strings.Builder

	if zune {
		sb.WriteString("<?zpl version=\"2.0\"?>\n")
	} else {
		sb.WriteString("<?wpl version=\"1.0\"?>\n")
	}

	sb.WriteString("<smil>\n  <head>\n")
	fmt.Fprintf(&sb, "    <title>%s</title>\n", escapeXML(album.Title))
	if zune {
		fmt.Fprintf(&sb, "    <meta name=\"ItemCount\" content=\"%d\"/>\n", len(tracks))
	}
	sb.WriteString("  </head>\n  <body>\n    <seq>\n")

	for _, track := range tracks {
		src := escapeXML(filepath.Base(track.Path))
		if !zune {
			fmt.Fprintf(&sb, "      <media src=\"%s\"/>\n", src)
			continue
		}

		fmt.Fprintf(&sb, "      <media src=\"%s\" albumTitle=\"%s\" albumArtist=\"%s\" trackTitle=\"%s\" duration=\"%d\"/>\n",
			src, escapeXML(album.Title), escapeXML(album.Artist), escapeXML(track.Title), int(track.Duration*1000))
	}

	sb.WriteString("    </seq>\n  </body>\n</smil>\n")

	return sb.String()
}

func escapeXML(s string) string {
	var sb strings.Builder
	_ = xml.EscapeText(&sb, []byte(s))

	return sb.String()
}
