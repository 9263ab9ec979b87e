// Package download provides the download orchestration logic for
// fetching albums and tracks from Bandcamp.
//
// # Service
//
// The Service coordinates a download run:
//
//  1. Split the input into URLs, one per line
//  2. Optionally expand them into artist discographies (Resolver)
//  3. Fetch and extract album data concurrently
//  4. Per album: create the folder, fetch cover art, download tracks
//  5. Tag MP3 files with ID3 metadata once the album's downloads finished
//  6. Generate playlists (optional)
//
// # Basic Usage
//
//	svc := download.NewService()
//	events := make(chan event.Event, 64)
//
//	go func() {
//	    defer close(events)
//	    summary := svc.StartDownloads(ctx, "https://artist.bandcamp.com/album/name", settings, events)
//	    fmt.Println(summary)
//	}()
//
//	for ev := range events {
//	    fmt.Println(ev)
//	}
//
// # Concurrency
//
// Limits come from the settings snapshot given to StartDownloads:
//   - DownloadOneAlbumAtATime: download albums strictly one after another
//   - MaxConcurrentAlbumsDownload: how many albums run in parallel otherwise
//   - MaxConcurrentTracksDownload: how many tracks download at once, per album
//     and across the whole run
//
// # Retry Logic
//
// HTTP status errors and timeouts are retried up to DownloadMaxTries times,
// waiting DownloadRetryCooldown * DownloadRetryExponent^n between tries.
// Any other error fails the file at once. A file already on disk whose size
// is within AllowedFileSizeDifference of the declared size is kept.
package download
