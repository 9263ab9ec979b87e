// Package config provides configuration management for bandcamp-dl.
//
// This package handles:
//   - Loading settings from YAML, JSON or TOML files with viper
//   - BANDCAMP_DL_* environment and command line flag overrides
//   - Default configuration values and validation
//   - Conversion to the naming, image and tag configuration of other packages
//
// # Default Settings
//
//	settings := config.DefaultSettings()
//	// Downloads to ~/Music/Bandcamp/{artist}/{album}
//	// 7 tries per file, 10 tracks at a time
//	// ID3 tagging with embedded cover art
//
// # Loading from File
//
//	settings, err := config.Load("bandcamp-dl.yaml", nil)
//	if err == nil {
//	    err = settings.Validate()
//	}
//
// Tag fields take "modify", "empty" or "skip", the playlist format takes
// "m3u", "pls", "wpl" or "zpl" and durations take Go duration strings:
//
//	download_retry_cooldown: 500ms
//	playlist_format: pls
//	tags:
//	  comments: empty
//
// # Saving Settings
//
//	settings.DownloadsPath = "/custom/path/{artist}/{album}"
//	err := settings.Save("/path/to/bandcamp-dl.yaml")
package config
