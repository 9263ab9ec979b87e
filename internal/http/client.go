package http

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"
)

const defaultPageCacheSize = 64

// Client wraps HTTP operations with Bandcamp-specific configuration.
//
// Client provides:
//   - User-Agent injection and debug logging through its transport chain
//   - a request rate limit shared by every caller
//   - an LRU cache of fetched HTML pages
//   - StatusError for non-2xx responses, see IsRetryable
//
// Example usage:
//
//	client := NewClient(WithRateLimit(5))
//	page, err := client.GetString(ctx, "https://artist.bandcamp.com/album/name")
//	resp, err := client.Open(ctx, mp3URL)
//	defer resp.Body.Close()
type Client struct {
	httpClient *http.Client
	timeout    time.Duration
	limiter    *rate.Limiter
	pages      *lru.Cache[string, string]
}

type clientConfig struct {
	timeout       time.Duration
	userAgent     string
	requestsPerS  float64
	pageCacheSize int
	useProxyEnv   bool
	transport     http.RoundTripper
}

// Option configures a Client.
type Option func(*clientConfig)

// WithTimeout sets how long a response may stall: waiting for headers or
// between two reads of the body. GetBytes and GetString also use it as the
// total budget. Zero keeps DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(c *clientConfig) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *clientConfig) { c.userAgent = ua }
}

// WithRateLimit allows at most rps requests per second. Zero or less means unlimited.
func WithRateLimit(rps float64) Option {
	return func(c *clientConfig) { c.requestsPerS = rps }
}

// WithPageCacheSize sets how many pages GetString keeps. Zero disables the cache.
func WithPageCacheSize(n int) Option {
	return func(c *clientConfig) { c.pageCacheSize = n }
}

// WithSystemProxy makes requests honour the HTTP_PROXY family of variables.
func WithSystemProxy(enabled bool) Option {
	return func(c *clientConfig) { c.useProxyEnv = enabled }
}

// WithTransport replaces the base transport.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *clientConfig) { c.transport = rt }
}

// NewClient creates a Client.
func NewClient(opts ...Option) *Client {
	cfg := clientConfig{
		timeout:       DefaultTimeout,
		userAgent:     DefaultUserAgent,
		pageCacheSize: defaultPageCacheSize,
		useProxyEnv:   true,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	base := cfg.transport
	if base == nil {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		if !cfg.useProxyEnv {
			transport.Proxy = nil
		}
		transport.ResponseHeaderTimeout = cfg.timeout
		base = transport
	}

	limit := rate.Inf
	if cfg.requestsPerS > 0 {
		limit = rate.Limit(cfg.requestsPerS)
	}

	c := &Client{
		httpClient: &http.Client{
			Transport: NewUserAgentInjector(NewLogTransport(base), cfg.userAgent),
		},
		timeout: cfg.timeout,
		limiter: rate.NewLimiter(limit, 1),
	}

	if cfg.pageCacheSize > 0 {
		// Only fails for a non-positive size.
		c.pages, _ = lru.New[string, string](cfg.pageCacheSize)
	}

	return c
}

// Response is an open response body with its declared size and type.
type Response struct {
	Body io.ReadCloser

	// ContentLength is the declared size, 0 when the server did not send one.
	ContentLength int64

	// ContentType is the Content-Type header, possibly empty.
	ContentType string
}

// Open sends a GET request and returns the open body. The caller closes it.
// Non-2xx responses return a *StatusError.
//
// The body has no total deadline, so long downloads on slow links finish.
// Instead the request fails with ErrIdleTimeout once headers or body data
// stall for longer than the client timeout.
func (c *Client) Open(ctx context.Context, url string) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	reqCtx, cancel := context.WithCancel(ctx)

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("build request for %s: %w", url, err)
	}

	idle := newIdleTimer(c.timeout, cancel)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		idle.stop()
		cancel()

		return nil, idle.wrap(err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		idle.stop()
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		cancel()

		return nil, &StatusError{URL: url, Code: resp.StatusCode, Status: resp.Status}
	}

	idle.reset()

	return &Response{
		Body:          &idleBody{ReadCloser: resp.Body, idle: idle, cancel: cancel},
		ContentLength: max(resp.ContentLength, 0),
		ContentType:   resp.Header.Get("Content-Type"),
	}, nil
}

// GetBytes downloads a small resource into memory, returning its content type.
// The whole request, body included, must complete within the client timeout.
func (c *Client) GetBytes(ctx context.Context, url string) ([]byte, string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.Open(ctx, url)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", url, err)
	}

	return data, resp.ContentType, nil
}

// GetString fetches a page as text. Pages are cached by URL, so resolving a
// discography and then extracting the same page costs one request.
func (c *Client) GetString(ctx context.Context, url string) (string, error) {
	if c.pages != nil {
		if page, ok := c.pages.Get(url); ok {
			return page, nil
		}
	}

	data, _, err := c.GetBytes(ctx, url)
	if err != nil {
		return "", err
	}

	page := string(data)
	if c.pages != nil {
		c.pages.Add(url, page)
	}

	return page, nil
}

// ProgressWriter wraps a writer and reports the running byte count after
// every Write.
//
// Example:
//
//	pw := &ProgressWriter{
//	    Writer: file,
//	    Total:  resp.ContentLength,
//	    OnUpdate: func(written, total int64) {
//	        fmt.Printf("%d / %d bytes\n", written, total)
//	    },
//	}
//	io.Copy(pw, resp.Body)
type ProgressWriter struct {
	// Writer is the underlying writer.
	Writer io.Writer

	// Total is the expected size, 0 if unknown.
	Total int64

	// Written is the number of bytes written so far.
	Written int64

	// OnUpdate is called after each Write with (Written, Total).
	OnUpdate func(written, total int64)
}

// Write implements io.Writer.
func (pw *ProgressWriter) Write(p []byte) (int, error) {
	n, err := pw.Writer.Write(p)
	pw.Written += int64(n)

	if pw.OnUpdate != nil && n > 0 {
		pw.OnUpdate(pw.Written, pw.Total)
	}

	return n, err
}
