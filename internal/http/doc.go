// Package http provides the HTTP client used to fetch Bandcamp pages, audio
// streams and cover art.
//
// Requests go through a transport chain that injects the User-Agent and
// logs traffic at debug level, and through a shared rate limiter.
//
//	client := http.NewClient(http.WithRateLimit(5))
//	page, err := client.GetString(ctx, "https://artist.bandcamp.com/album/name")
//
//	resp, err := client.Open(ctx, mp3URL)
//	if http.IsRetryable(err) {
//	    // status error or timeout: try again later
//	}
//
// # Progress Tracking
//
// ProgressWriter wraps any io.Writer and reports the byte count after
// every write:
//
//	pw := &http.ProgressWriter{
//	    Writer:   file,
//	    Total:    resp.ContentLength,
//	    OnUpdate: func(written, total int64) { /* update UI */ },
//	}
package http
