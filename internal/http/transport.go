package http

import (
	"net/http"
	"net/http/httputil"
	"time"

	"github.com/tralbum/bandcamp-dl/internal/logger"
)

const (
	// DefaultTimeout bounds page fetches and how long a download may stall.
	DefaultTimeout = 60 * time.Second

	// DefaultUserAgent is sent when a request has no User-Agent.
	DefaultUserAgent = "BandcampDownloader"

	userAgentHeader = "User-Agent"

	// maxDumpLength caps logged request/response dumps.
	maxDumpLength = 2048
)

// UserAgentInjector sets the User-Agent header on requests that lack one.
type UserAgentInjector struct {
	next      http.RoundTripper
	userAgent string
}

// NewUserAgentInjector wraps next.
func NewUserAgentInjector(next http.RoundTripper, userAgent string) http.RoundTripper {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	return &UserAgentInjector{next: next, userAgent: userAgent}
}

// RoundTrip implements http.RoundTripper.
func (t *UserAgentInjector) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get(userAgentHeader) == "" {
		req = req.Clone(req.Context())
		req.Header.Set(userAgentHeader, t.userAgent)
	}

	return t.next.RoundTrip(req)
}

// LogTransport logs request and response headers at debug level.
type LogTransport struct {
	next http.RoundTripper
}

// NewLogTransport wraps next.
func NewLogTransport(next http.RoundTripper) http.RoundTripper {
	return &LogTransport{next: next}
}

// RoundTrip implements http.RoundTripper.
func (t *LogTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if !logger.IsDebugLevel() {
		return t.next.RoundTrip(req)
	}

	ctx := req.Context()

	if dump, err := httputil.DumpRequestOut(req, false); err == nil {
		logger.DebugKV(ctx, "http request", "dump", clip(dump))
	}

	start := time.Now()
	resp, err := t.next.RoundTrip(req)

	if err != nil {
		logger.DebugKV(ctx, "http request failed", "url", req.URL.String(), "error", err, "duration", time.Since(start))
		return nil, err
	}

	if dump, dumpErr := httputil.DumpResponse(resp, false); dumpErr == nil {
		logger.DebugKV(ctx, "http response", "dump", clip(dump), "duration", time.Since(start))
	}

	return resp, nil
}

func clip(dump []byte) string {
	if len(dump) > maxDumpLength {
		return string(dump[:maxDumpLength]) + "..."
	}

	return string(dump)
}
