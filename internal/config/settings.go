package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/tralbum/bandcamp-dl/internal/audio"
	ioutils "github.com/tralbum/bandcamp-dl/internal/io"
	"github.com/tralbum/bandcamp-dl/internal/logger"
	"github.com/tralbum/bandcamp-dl/internal/model"
)

const (
	// DefaultConfigName is the config file base name searched for when no path is given.
	DefaultConfigName = "bandcamp-dl"

	// EnvPrefix prefixes environment overrides, e.g. BANDCAMP_DL_DOWNLOAD_MAX_TRIES.
	EnvPrefix = "BANDCAMP_DL"

	// ProxySystem uses the HTTP_PROXY family of environment variables.
	ProxySystem = "system"

	// ProxyNone connects directly.
	ProxyNone = "none"

	// ProxyManual is accepted for compatibility and behaves like ProxySystem.
	ProxyManual = "manual"
)

var (
	// ErrEmptyDownloadsPath indicates that no album folder template is set.
	ErrEmptyDownloadsPath = errors.New("downloads_path cannot be empty")
	// ErrEmptyFileNameFormat indicates that no track file name template is set.
	ErrEmptyFileNameFormat = errors.New("file_name_format cannot be empty")
	// ErrInvalidMaxTries indicates a download_max_tries below one.
	ErrInvalidMaxTries = errors.New("download_max_tries must be a positive integer")
	// ErrInvalidRetryCooldown indicates a negative retry cooldown.
	ErrInvalidRetryCooldown = errors.New("download_retry_cooldown cannot be negative")
	// ErrInvalidRetryExponent indicates a retry exponent below one.
	ErrInvalidRetryExponent = errors.New("download_retry_exponent must be at least 1")
	// ErrInvalidFileSizeDifference indicates a tolerance outside [0, 1).
	ErrInvalidFileSizeDifference = errors.New("allowed_file_size_difference must be in [0, 1)")
	// ErrInvalidConcurrency indicates a concurrency limit below one.
	ErrInvalidConcurrency = errors.New("concurrency limits must be positive integers")
	// ErrInvalidRequestsPerSecond indicates a negative request rate.
	ErrInvalidRequestsPerSecond = errors.New("requests_per_second cannot be negative")
	// ErrInvalidCoverArtSize indicates a non-positive cover art size.
	ErrInvalidCoverArtSize = errors.New("cover art max size must be positive")
	// ErrUnknownProxyType indicates a proxy_type other than system, none or manual.
	ErrUnknownProxyType = errors.New("unknown proxy_type")
	// ErrUnknownLogLevel indicates that the log level is not recognized.
	ErrUnknownLogLevel = errors.New("unknown log level")
)

// Settings holds all configuration options.
//
// Settings is a plain value: a download run works on its own copy, so
// changing settings while a run is in flight never affects that run.
type Settings struct {
	// Paths and naming
	DownloadsPath          string `mapstructure:"downloads_path"`
	FileNameFormat         string `mapstructure:"file_name_format"`
	CoverArtFileNameFormat string `mapstructure:"cover_art_file_name_format"`
	PlaylistFileNameFormat string `mapstructure:"playlist_file_name_format"`
	LimitPathLength        bool   `mapstructure:"limit_path_length"`

	// Download behaviour
	DownloadMaxTries            int           `mapstructure:"download_max_tries"`
	DownloadRetryCooldown       time.Duration `mapstructure:"download_retry_cooldown"`
	DownloadRetryExponent       float64       `mapstructure:"download_retry_exponent"`
	AllowedFileSizeDifference   float64       `mapstructure:"allowed_file_size_difference"`
	DownloadOneAlbumAtATime     bool          `mapstructure:"download_one_album_at_a_time"`
	MaxConcurrentAlbumsDownload int           `mapstructure:"max_concurrent_albums"`
	MaxConcurrentTracksDownload int           `mapstructure:"max_concurrent_tracks"`
	DownloadArtistDiscography   bool          `mapstructure:"download_artist_discography"`

	// Network
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	HTTPTimeout       time.Duration `mapstructure:"http_timeout"`
	UserAgent         string        `mapstructure:"user_agent"`
	ProxyType         string        `mapstructure:"proxy_type"`

	// Cover art
	SaveCoverArtInFolder    bool `mapstructure:"save_cover_art_in_folder"`
	CoverArtInFolderResize  bool `mapstructure:"cover_art_in_folder_resize"`
	CoverArtInFolderMaxSize int  `mapstructure:"cover_art_in_folder_max_size"`
	SaveCoverArtInTags      bool `mapstructure:"save_cover_art_in_tags"`
	CoverArtInTagsResize    bool `mapstructure:"cover_art_in_tags_resize"`
	CoverArtInTagsMaxSize   int  `mapstructure:"cover_art_in_tags_max_size"`
	ConvertCoverArtToJPG    bool `mapstructure:"convert_cover_art_to_jpg"`

	// Playlist
	CreatePlaylist bool                 `mapstructure:"create_playlist"`
	PlaylistFormat model.PlaylistFormat `mapstructure:"playlist_format"`
	M3UExtended    bool                 `mapstructure:"m3u_extended"`

	// Tags
	ModifyTags bool            `mapstructure:"modify_tags"`
	Tags       audio.TagConfig `mapstructure:"tags"`

	LogLevel string `mapstructure:"log_level"`
}

// DefaultSettings returns settings with default values.
func DefaultSettings() Settings {
	homeDir, _ := os.UserHomeDir()

	return Settings{
		DownloadsPath:          filepath.Join(homeDir, "Music", "Bandcamp", "{artist}", "{album}"),
		FileNameFormat:         "{tracknum} {artist} - {title}.mp3",
		CoverArtFileNameFormat: "{album}",
		PlaylistFileNameFormat: "{album}",
		LimitPathLength:        model.DefaultLimitPathLength,

		DownloadMaxTries:            7,
		DownloadRetryCooldown:       200 * time.Millisecond,
		DownloadRetryExponent:       4.0,
		AllowedFileSizeDifference:   0.05,
		DownloadOneAlbumAtATime:     false,
		MaxConcurrentAlbumsDownload: 2,
		MaxConcurrentTracksDownload: 10,
		DownloadArtistDiscography:   false,

		RequestsPerSecond: 0,
		HTTPTimeout:       60 * time.Second,
		UserAgent:         "BandcampDownloader",
		ProxyType:         ProxySystem,

		SaveCoverArtInFolder:    false,
		CoverArtInFolderResize:  false,
		CoverArtInFolderMaxSize: 1000,
		SaveCoverArtInTags:      true,
		CoverArtInTagsResize:    true,
		CoverArtInTagsMaxSize:   1000,
		ConvertCoverArtToJPG:    true,

		CreatePlaylist: false,
		PlaylistFormat: model.PlaylistFormatM3U,
		M3UExtended:    true,

		ModifyTags: true,
		Tags:       audio.DefaultTagConfig(),

		LogLevel: "info",
	}
}

// Load reads settings from path, falling back to a bandcamp-dl.{yaml,json,toml}
// in the working directory or the user config directory when path is empty.
// A missing file leaves the defaults in place.
//
// Values are resolved in this order: changed flags, BANDCAMP_DL_* environment
// variables, the config file, defaults. flags maps setting keys to the
// command line flags that override them and may be nil.
func Load(path string, flags map[string]*pflag.Flag) (Settings, error) {
	v := viper.New()

	setDefaults(v, DefaultSettings())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, flag := range flags {
		if flag == nil {
			continue
		}

		if err := v.BindPFlag(key, flag); err != nil {
			return Settings{}, fmt.Errorf("bind flag %s: %w", flag.Name, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(DefaultConfigName)
		v.AddConfigPath(".")

		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, DefaultConfigName))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError

		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return Settings{}, fmt.Errorf("failed to read config from file: %w", err)
		}

		logger.Debug(context.Background(), "no config file found, using defaults")
	}

	settings := DefaultSettings()

	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.TextUnmarshallerHookFunc(),
		mapstructure.StringToTimeDurationHookFunc(),
	))

	if err := v.Unmarshal(&settings, hook); err != nil {
		return Settings{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return settings, nil
}

// Save writes settings to path. The format follows the file extension.
func (s Settings) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, ioutils.DefaultFolderPermissions); err != nil {
		return fmt.Errorf("create config dir %s: %w", dir, err)
	}

	v := viper.New()
	for key, value := range keyValues(s) {
		v.Set(key, value)
	}

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}

	return nil
}

// Validate checks the settings for values the download engine cannot use.
//
//nolint:cyclop // Sequential checks.
func (s Settings) Validate() error {
	switch {
	case strings.TrimSpace(s.DownloadsPath) == "":
		return ErrEmptyDownloadsPath
	case strings.TrimSpace(s.FileNameFormat) == "":
		return ErrEmptyFileNameFormat
	case s.DownloadMaxTries < 1:
		return ErrInvalidMaxTries
	case s.DownloadRetryCooldown < 0:
		return ErrInvalidRetryCooldown
	case s.DownloadRetryExponent < 1:
		return ErrInvalidRetryExponent
	case s.AllowedFileSizeDifference < 0 || s.AllowedFileSizeDifference >= 1:
		return ErrInvalidFileSizeDifference
	case s.MaxConcurrentAlbumsDownload < 1 || s.MaxConcurrentTracksDownload < 1:
		return ErrInvalidConcurrency
	case s.RequestsPerSecond < 0:
		return ErrInvalidRequestsPerSecond
	case s.CoverArtInFolderResize && s.CoverArtInFolderMaxSize < 1,
		s.CoverArtInTagsResize && s.CoverArtInTagsMaxSize < 1:
		return ErrInvalidCoverArtSize
	}

	switch strings.ToLower(s.ProxyType) {
	case ProxySystem, ProxyNone, ProxyManual, "":
	default:
		return fmt.Errorf("%w: %q", ErrUnknownProxyType, s.ProxyType)
	}

	if _, ok := logger.ParseLogLevel(s.LogLevel); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownLogLevel, s.LogLevel)
	}

	return nil
}

// UseSystemProxy reports whether requests should honour proxy environment variables.
func (s Settings) UseSystemProxy() bool {
	return !strings.EqualFold(s.ProxyType, ProxyNone)
}

// PathConfig returns the album naming configuration.
func (s Settings) PathConfig() *model.PathConfig {
	return &model.PathConfig{
		DownloadsPath:          s.DownloadsPath,
		CoverArtFileNameFormat: s.CoverArtFileNameFormat,
		PlaylistFileNameFormat: s.PlaylistFileNameFormat,
		LimitPathLength:        s.LimitPathLength,
	}
}

// TrackConfig returns the track naming configuration.
func (s Settings) TrackConfig() *model.TrackConfig {
	return &model.TrackConfig{
		FileNameFormat:  s.FileNameFormat,
		LimitPathLength: s.LimitPathLength,
	}
}

// FolderImageOptions returns how cover art saved next to the tracks is prepared.
func (s Settings) FolderImageOptions() ioutils.ImageOptions {
	return ioutils.ImageOptions{
		Resize:        s.CoverArtInFolderResize,
		MaxWidth:      s.CoverArtInFolderMaxSize,
		MaxHeight:     s.CoverArtInFolderMaxSize,
		ConvertToJPEG: s.ConvertCoverArtToJPG,
	}
}

// TagImageOptions returns how cover art embedded in tags is prepared.
func (s Settings) TagImageOptions() ioutils.ImageOptions {
	return ioutils.ImageOptions{
		Resize:        s.CoverArtInTagsResize,
		MaxWidth:      s.CoverArtInTagsMaxSize,
		MaxHeight:     s.CoverArtInTagsMaxSize,
		ConvertToJPEG: s.ConvertCoverArtToJPG,
	}
}

// TagConfig returns the tag configuration, embedding artwork only when
// SaveCoverArtInTags is set.
func (s Settings) TagConfig() audio.TagConfig {
	tags := s.Tags
	tags.Artwork = tags.Artwork && s.SaveCoverArtInTags

	return tags
}

// NeedsArtwork reports whether the album cover has to be fetched at all.
func (s Settings) NeedsArtwork() bool {
	return s.SaveCoverArtInFolder || (s.ModifyTags && s.TagConfig().Artwork)
}

func setDefaults(v *viper.Viper, s Settings) {
	for key, value := range keyValues(s) {
		v.SetDefault(key, value)
	}
}

// keyValues flattens s into dotted config keys. Typed values are written as
// the strings the decode hooks parse back.
func keyValues(s Settings) map[string]any {
	return map[string]any{
		"downloads_path":               s.DownloadsPath,
		"file_name_format":             s.FileNameFormat,
		"cover_art_file_name_format":   s.CoverArtFileNameFormat,
		"playlist_file_name_format":    s.PlaylistFileNameFormat,
		"limit_path_length":            s.LimitPathLength,
		"download_max_tries":           s.DownloadMaxTries,
		"download_retry_cooldown":      s.DownloadRetryCooldown.String(),
		"download_retry_exponent":      s.DownloadRetryExponent,
		"allowed_file_size_difference": s.AllowedFileSizeDifference,
		"download_one_album_at_a_time": s.DownloadOneAlbumAtATime,
		"max_concurrent_albums":        s.MaxConcurrentAlbumsDownload,
		"max_concurrent_tracks":        s.MaxConcurrentTracksDownload,
		"download_artist_discography":  s.DownloadArtistDiscography,
		"requests_per_second":          s.RequestsPerSecond,
		"http_timeout":                 s.HTTPTimeout.String(),
		"user_agent":                   s.UserAgent,
		"proxy_type":                   s.ProxyType,
		"save_cover_art_in_folder":     s.SaveCoverArtInFolder,
		"cover_art_in_folder_resize":   s.CoverArtInFolderResize,
		"cover_art_in_folder_max_size": s.CoverArtInFolderMaxSize,
		"save_cover_art_in_tags":       s.SaveCoverArtInTags,
		"cover_art_in_tags_resize":     s.CoverArtInTagsResize,
		"cover_art_in_tags_max_size":   s.CoverArtInTagsMaxSize,
		"convert_cover_art_to_jpg":     s.ConvertCoverArtToJPG,
		"create_playlist":              s.CreatePlaylist,
		"playlist_format":              s.PlaylistFormat.String(),
		"m3u_extended":                 s.M3UExtended,
		"modify_tags":                  s.ModifyTags,
		"log_level":                    s.LogLevel,
		"tags.artist":                  s.Tags.Artist.String(),
		"tags.album_artist":            s.Tags.AlbumArtist.String(),
		"tags.album_title":             s.Tags.AlbumTitle.String(),
		"tags.date":                    s.Tags.Date.String(),
		"tags.track_number":            s.Tags.TrackNumber.String(),
		"tags.track_title":             s.Tags.TrackTitle.String(),
		"tags.lyrics":                  s.Tags.Lyrics.String(),
		"tags.comments":                s.Tags.Comments.String(),
		"tags.comment_text":            s.Tags.CommentText,
		"tags.artwork":                 s.Tags.Artwork,
	}
}
