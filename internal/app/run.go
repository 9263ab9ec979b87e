package app

import (
	"context"
	"errors"

	"github.com/tralbum/bandcamp-dl/internal/config"
	"github.com/tralbum/bandcamp-dl/internal/download"
	"github.com/tralbum/bandcamp-dl/internal/event"
	"github.com/tralbum/bandcamp-dl/internal/logger"
)

// Process exit codes.
const (
	ExitOK          = 0
	ExitFailure     = 1
	ExitInterrupted = 130
)

const eventBuffer = 64

// Options selects what a command line run does.
type Options struct {
	// URLs holds one Bandcamp URL per line.
	URLs string

	// DryRun lists the albums that would be downloaded and stops.
	DryRun bool
}

// Run executes one command line run, printing through console, and returns
// the process exit code.
func Run(ctx context.Context, svc *download.Service, settings config.Settings, opts Options, console *Console) int {
	if opts.DryRun {
		return dryRun(ctx, svc, settings, opts, console)
	}

	events, wait := consume(console)
	summary := svc.StartDownloads(ctx, opts.URLs, settings, events)
	wait()

	console.PrintSummary(summary)

	switch {
	case summary.Cancelled:
		return ExitInterrupted
	case summary.AlbumsFound == 0, !summary.OK():
		return ExitFailure
	default:
		return ExitOK
	}
}

func dryRun(ctx context.Context, svc *download.Service, settings config.Settings, opts Options, console *Console) int {
	events, wait := consume(console)
	albums, err := svc.FetchAlbums(ctx, opts.URLs, settings, events)
	wait()

	switch {
	case errors.Is(err, context.Canceled):
		return ExitInterrupted
	case err != nil:
		logger.Errorf(ctx, "Dry run failed: %v", err)
		return ExitFailure
	case len(albums) == 0:
		return ExitFailure
	}

	console.PrintAlbums(albums)

	return ExitOK
}

// consume starts printing events. The returned func closes the channel and
// waits until every event has been printed.
func consume(console *Console) (chan event.Event, func()) {
	events := make(chan event.Event, eventBuffer)
	done := make(chan struct{})

	go func() {
		defer close(done)
		console.Consume(events)
	}()

	return events, func() {
		close(events)
		<-done
	}
}
