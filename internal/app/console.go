package app

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"

	"github.com/tralbum/bandcamp-dl/internal/download"
	"github.com/tralbum/bandcamp-dl/internal/event"
	"github.com/tralbum/bandcamp-dl/internal/model"
)

// IsTerminal reports whether stdout is an interactive terminal.
func IsTerminal() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

// Console prints download events for the command line.
//
// Log events are printed as coloured lines. Progress events feed a single
// byte progress bar covering every file of the run.
type Console struct {
	out   io.Writer
	table *event.ProgressTable
	bar   *progressbar.ProgressBar

	info    *color.Color
	warn    *color.Color
	err     *color.Color
	success *color.Color
	dim     *color.Color
}

// ConsoleOptions configures a Console.
type ConsoleOptions struct {
	// Colorize enables ANSI colours.
	Colorize bool
	// ShowProgress draws the aggregate progress bar.
	ShowProgress bool
}

// NewConsole creates a Console writing to out.
func NewConsole(out io.Writer, opts ConsoleOptions) *Console {
	c := &Console{
		out:     out,
		table:   event.NewProgressTable(),
		info:    color.New(color.FgCyan),
		warn:    color.New(color.FgYellow),
		err:     color.New(color.FgRed),
		success: color.New(color.FgGreen),
		dim:     color.New(color.Faint),
	}

	if !opts.Colorize {
		for _, col := range []*color.Color{c.info, c.warn, c.err, c.success, c.dim} {
			col.DisableColor()
		}
	}

	if opts.ShowProgress {
		c.bar = progressbar.NewOptions64(-1,
			progressbar.OptionSetWriter(out),
			progressbar.OptionSetDescription("Downloading"),
			progressbar.OptionShowBytes(true),
			progressbar.OptionSetWidth(30),
			progressbar.OptionThrottle(100*time.Millisecond),
			progressbar.OptionClearOnFinish(),
			progressbar.OptionEnableColorCodes(opts.Colorize),
		)
	}

	return c
}

// Consume handles events until the channel is closed.
func (c *Console) Consume(events <-chan event.Event) {
	for ev := range events {
		c.Handle(ev)
	}

	if c.bar != nil {
		_ = c.bar.Finish()
	}
}

// Handle prints one event.
func (c *Console) Handle(ev event.Event) {
	switch ev := ev.(type) {
	case event.Log:
		c.printLog(ev)
	case event.Progress:
		c.table.Update(ev)
		c.renderBar()
	}
}

func (c *Console) printLog(l event.Log) {
	if c.bar != nil {
		_ = c.bar.Clear()
	}

	switch l.Level {
	case event.LevelError:
		c.err.Fprintln(c.out, "✗ "+l.Message)
	case event.LevelWarn:
		c.warn.Fprintln(c.out, "! "+l.Message)
	default:
		c.info.Fprintln(c.out, "› "+l.Message)
	}

	c.renderBar()
}

func (c *Console) renderBar() {
	if c.bar == nil || c.table.Len() == 0 {
		return
	}

	complete, total := c.table.Totals()
	if total > 0 && int64(total) != c.bar.GetMax64() {
		c.bar.ChangeMax64(int64(total))
	}

	_ = c.bar.Set64(int64(complete))
}

// PrintAlbums lists albums and their tracks, for dry runs.
func (c *Console) PrintAlbums(albums []*model.Album) {
	for _, album := range albums {
		c.success.Fprintf(c.out, "♪ %s (%d)\n", album, album.ReleaseDate.Year())
		c.dim.Fprintf(c.out, "  %s\n", album.Path)

		for _, track := range album.Tracks {
			status := ""
			if !track.HasURL() {
				status = c.warn.Sprint("  [no stream]")
			}

			fmt.Fprintf(c.out, "  %2d. %s (%s)%s\n", track.Number, filepath.Base(track.Path), formatDuration(track.Duration), status)
		}
	}
}

// PrintSummary prints the outcome of a run.
func (c *Console) PrintSummary(s *download.Summary) {
	fmt.Fprintln(c.out)

	col := c.success
	switch {
	case s.Cancelled:
		col = c.warn
	case !s.OK():
		col = c.err
	}

	col.Fprintf(c.out, "Albums: %d  Downloaded: %d  Already present: %d  Failed: %d\n",
		s.AlbumsFound, s.TracksDownloaded, s.TracksExisting, s.TracksFailed)

	c.dim.Fprintf(c.out, "%s received in %s, %d retries, %d tags written\n",
		humanize.Bytes(uint64(max(s.Bytes, 0))), s.Duration().Round(time.Second), s.Retries, s.TagsWritten)
}

func formatDuration(seconds float64) string {
	d := time.Duration(seconds * float64(time.Second)).Round(time.Second)

	return fmt.Sprintf("%d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}
