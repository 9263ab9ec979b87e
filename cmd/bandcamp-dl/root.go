package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap/zapcore"

	"github.com/tralbum/bandcamp-dl/internal/app"
	"github.com/tralbum/bandcamp-dl/internal/config"
	"github.com/tralbum/bandcamp-dl/internal/download"
	"github.com/tralbum/bandcamp-dl/internal/logger"
)

// settingFlags maps setting keys to the flags that override them.
var settingFlags = map[string]string{ //nolint:gochecknoglobals // Read-only table.
	"download_artist_discography":  "discography",
	"create_playlist":              "playlist",
	"download_one_album_at_a_time": "serial",
	"download_max_tries":           "max-tries",
	"log_level":                    "log-level",
}

type rootOptions struct {
	configPath string
	urls       []string
	output     string
	verbose    bool
	dryRun     bool
	noColor    bool
}

// execute runs the command line and returns the exit code.
func execute(ctx context.Context, args []string) int {
	code := app.ExitOK

	cmd := newRootCommand(os.Stdout, &code)
	cmd.SetArgs(args)

	if err := cmd.ExecuteContext(ctx); err != nil {
		return app.ExitFailure
	}

	return code
}

func newRootCommand(out io.Writer, code *int) *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "bandcamp-dl [flags] {urls}",
		Short: "Download albums, tracks, or an artist's discography from Bandcamp.",
		Long: `bandcamp-dl downloads Bandcamp releases as tagged MP3 files.

Each URL may point to an album, a track or, with --discography, any page of
an artist. Settings are read from bandcamp-dl.yaml and BANDCAMP_DL_*
environment variables; flags take precedence.

For interactive mode, use bandcamp-tui.`,
		SilenceUsage: true,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && len(opts.urls) == 0 {
				return fmt.Errorf("at least one URL is required")
			}

			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings(cmd.Flags(), opts)
			if err != nil {
				return err
			}

			configureLogger(cmd.Context(), settings, opts.verbose)

			colorize := !opts.noColor && app.IsTerminal()
			color.NoColor = !colorize

			console := app.NewConsole(out, app.ConsoleOptions{
				Colorize:     colorize,
				ShowProgress: colorize && !opts.dryRun,
			})

			input := strings.Join(append(splitList(opts.urls), args...), "\n")

			*code = app.Run(cmd.Context(), download.NewService(), settings, app.Options{
				URLs:   input,
				DryRun: opts.dryRun,
			}, console)

			return nil
		},
	}

	registerFlags(cmd.Flags(), opts)

	return cmd
}

func registerFlags(flags *pflag.FlagSet, opts *rootOptions) {
	flags.StringVarP(&opts.configPath, "config", "c", "",
		fmt.Sprintf("path to the configuration file (default is '%s.yaml')", config.DefaultConfigName))
	flags.StringSliceVarP(&opts.urls, "url", "u", nil, "Bandcamp URL(s) to download, comma separated")
	flags.StringVarP(&opts.output, "output", "o", "", "output directory, albums are saved to <output>/{artist}/{album}")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "show debug logs")
	flags.BoolVar(&opts.dryRun, "dry-run", false, "list albums and tracks without downloading")
	flags.BoolVar(&opts.noColor, "no-color", false, "disable colours and the progress bar")
	flags.BoolP("discography", "d", false, "download the whole discography of each artist")
	flags.BoolP("playlist", "p", false, "write a playlist next to each album")
	flags.Bool("serial", false, "download one album at a time")
	flags.Int("max-tries", config.DefaultSettings().DownloadMaxTries, "attempts per file before giving up")
	flags.String("log-level", "", "log level: debug, info, warn or error")
}

// loadSettings merges the configuration file, environment and changed flags.
func loadSettings(flags *pflag.FlagSet, opts *rootOptions) (config.Settings, error) {
	bound := make(map[string]*pflag.Flag, len(settingFlags))
	for key, name := range settingFlags {
		bound[key] = flags.Lookup(name)
	}

	settings, err := config.Load(opts.configPath, bound)
	if err != nil {
		return config.Settings{}, fmt.Errorf("failed to load configuration: %w", err)
	}

	if opts.output != "" {
		settings.DownloadsPath = filepath.Join(opts.output, "{artist}", "{album}")
	}

	return settings, nil
}

func configureLogger(ctx context.Context, settings config.Settings, verbose bool) {
	level, ok := logger.ParseLogLevel(settings.LogLevel)
	if !ok {
		logger.Warnf(ctx, "Unknown log level %q, using info", settings.LogLevel)
	}

	if verbose {
		level = zapcore.DebugLevel
	}

	logger.SetLevel(level)
}

// splitList splits comma and newline separated values.
func splitList(values []string) []string {
	var out []string

	for _, v := range values {
		out = append(out, strings.FieldsFunc(v, func(r rune) bool { return r == ',' || r == '\n' })...)
	}

	return out
}
