// Package httpclient issues single timed GET and POST requests for the load
// engine and the network sampler.
package httpclient

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"
)

// Method is an HTTP method supported by the client.
type Method string

const (
	MethodGet  Method = http.MethodGet
	MethodPost Method = http.MethodPost
)

// ParseMethod maps s onto a supported method. Anything other than POST
// (case-insensitive) falls back to GET.
func ParseMethod(s string) (m Method, recognized bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case http.MethodPost:
		return MethodPost, true
	case http.MethodGet:
		return MethodGet, true
	default:
		return MethodGet, false
	}
}

// DefaultTimeout bounds every request issued through a Client.
const DefaultTimeout = 10 * time.Second

// Doer executes HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Options configures a Client.
type Options struct {
	Timeout        time.Duration
	MaxIdleConns   int
	DefaultHeaders http.Header
}

// DefaultHeaders returns the permissive cross-origin headers attached to
// every request.
func DefaultHeaders() http.Header {
	h := make(http.Header)
	h.Set("Access-Control-Allow-Origin", "*")
	return h
}

// Client wraps a Doer with default headers and duration measurement.
type Client struct {
	doer    Doer
	headers http.Header
}

// New creates a Client backed by a pooled *http.Client.
func New(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxIdleConns <= 0 {
		opts.MaxIdleConns = 100
	}
	if opts.DefaultHeaders == nil {
		opts.DefaultHeaders = DefaultHeaders()
	}

	return NewWithDoer(&http.Client{
		Timeout: opts.Timeout,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        opts.MaxIdleConns,
			MaxIdleConnsPerHost: opts.MaxIdleConns,
			IdleConnTimeout:     90 * time.Second,
		},
	}, opts.DefaultHeaders)
}

// NewWithDoer creates a Client on top of an arbitrary Doer.
func NewWithDoer(d Doer, headers http.Header) *Client {
	if headers == nil {
		headers = DefaultHeaders()
	}
	return &Client{doer: d, headers: headers.Clone()}
}

// Outcome is the result of a single request.
type Outcome struct {
	StatusCode int
	Elapsed    time.Duration
	Err        error
}

// OK reports whether the exchange completed without a transport error.
// Non-2xx responses are OK.
func (o Outcome) OK() bool {
	return o.Err == nil
}

// Success reports whether the exchange completed with a 2xx status.
func (o Outcome) Success() bool {
	return o.Err == nil && o.StatusCode >= 200 && o.StatusCode < 300
}

// ElapsedMs returns the elapsed time in fractional milliseconds.
func (o Outcome) ElapsedMs() float64 {
	return float64(o.Elapsed) / float64(time.Millisecond)
}

// Get issues a GET to url.
func (c *Client) Get(ctx context.Context, url string) Outcome {
	return c.Do(ctx, MethodGet, url)
}

// Do issues one request and measures the time until the response headers
// arrive. The body is drained and closed so the connection can be reused.
// There are no retries.
func (c *Client) Do(ctx context.Context, method Method, url string) Outcome {
	req, err := http.NewRequestWithContext(ctx, string(method), url, nil)
	if err != nil {
		return Outcome{Err: err}
	}
	for k, vs := range c.headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	start := time.Now()
	resp, err := c.doer.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		return Outcome{Elapsed: elapsed, Err: err}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	return Outcome{StatusCode: resp.StatusCode, Elapsed: elapsed}
}
