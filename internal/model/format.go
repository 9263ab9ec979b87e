package model

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	// MaxFolderPathLength is the longest album directory kept when path limiting is on.
	MaxFolderPathLength = 247

	// MaxFilePathLength is the longest full file path kept when path limiting is on.
	MaxFilePathLength = 259
)

var (
	whitespaceRe   = regexp.MustCompile(`\s+`)
	reservedCharRe = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f\x7f]`)
)

// Sanitize makes a single path element safe for common file systems.
//
// Runs of whitespace collapse to one space, reserved characters and control
// characters become underscores, leading spaces and trailing dots or spaces
// are trimmed. Sanitize(Sanitize(s)) == Sanitize(s) for every s.
//
// Example:
//
//	Sanitize("Song: Part 1/2. ") // "Song_ Part 1_2"
func Sanitize(name string) string {
	name = whitespaceRe.ReplaceAllString(name, " ")
	name = reservedCharRe.ReplaceAllString(name, "_")
	name = strings.TrimLeft(name, " ")
	name = strings.TrimRight(name, ". ")

	if name == "" {
		return "_"
	}

	return name
}

// albumReplacer builds the placeholder table shared by every template.
// When sanitizeValues is set, each value is sanitized before substitution.
func albumReplacer(album *Album, track *Track, sanitizeValues bool) *strings.Replacer {
	clean := func(s string) string {
		if sanitizeValues {
			return Sanitize(s)
		}
		return s
	}

	pairs := []string{
		"{year}", album.ReleaseDate.Format("2006"),
		"{month}", album.ReleaseDate.Format("01"),
		"{day}", album.ReleaseDate.Format("02"),
		"{album}", clean(album.Title),
		"{artist}", clean(album.Artist),
	}

	if track != nil {
		pairs = append(pairs,
			"{title}", clean(track.Title),
			"{tracknum}", fmt.Sprintf("%02d", track.Number),
		)
	}

	return strings.NewReplacer(pairs...)
}

// RenderFileName fills a file name template and sanitizes the result.
// Track placeholders are only substituted when track is non-nil.
func RenderFileName(template string, album *Album, track *Track) string {
	return Sanitize(albumReplacer(album, track, false).Replace(template))
}

// RenderFolderPath fills a directory template. Placeholder values are
// sanitized one by one so that separators written in the template survive.
func RenderFolderPath(template string, album *Album) string {
	return albumReplacer(album, nil, true).Replace(template)
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) <= n {
		return s
	}

	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}

	return s[:n]
}

// limitFolderPath applies the folder length guard.
func limitFolderPath(path string, limit bool) string {
	if !limit {
		return path
	}

	return truncate(path, MaxFolderPathLength)
}

// joinFilePath joins dir and fileName, shortening the file stem when the
// combined path is too long. The extension is always kept.
func joinFilePath(dir, fileName string, limit bool) string {
	full := filepath.Join(dir, fileName)
	if !limit || len(full) <= MaxFilePathLength {
		return full
	}

	ext := filepath.Ext(fileName)
	stem := strings.TrimSuffix(fileName, ext)

	room := MaxFilePathLength - len(dir) - len(string(filepath.Separator)) - len(ext)
	if room < 1 {
		// Directory alone eats the budget; keep a one character stem.
		room = 1
	}

	return filepath.Join(dir, truncate(stem, room)+ext)
}
