package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/datallboy/segfetch/internal/domain"
)

// Common errors.
var (
	ErrForbidden    = errors.New("source: access forbidden")
	ErrUnauthorized = errors.New("source: unauthorized")
)

// ProbeMethod selects how existence checks are issued.
type ProbeMethod string

const (
	ProbeHead ProbeMethod = "head"
	// ProbeGet asks for the first byte only, for origins that reject HEAD.
	ProbeGet ProbeMethod = "get"
)

// Options configures the HTTP client.
type Options struct {
	// MaxIdleConnsPerHost sets the maximum idle connections per host.
	// Default: 64
	MaxIdleConnsPerHost int

	// Timeout for individual requests.
	// Default: 30s
	Timeout time.Duration

	// ProbeMethod is the request used by Probe.
	// Default: head
	ProbeMethod ProbeMethod

	// UserAgent is sent with every request when set.
	UserAgent string
}

// DefaultOptions returns options with sensible defaults.
func DefaultOptions() Options {
	return Options{
		MaxIdleConnsPerHost: 64,
		Timeout:             30 * time.Second,
		ProbeMethod:         ProbeHead,
	}
}

// Client is a thin HTTP client for segment origins.
type Client struct {
	client *http.Client
	opts   Options
}

// NewClient creates a new HTTP client with the given options.
func NewClient(opts Options) *Client {
	if opts.MaxIdleConnsPerHost <= 0 {
		opts.MaxIdleConnsPerHost = 64
	}
	if opts.ProbeMethod == "" {
		opts.ProbeMethod = ProbeHead
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConnsPerHost: opts.MaxIdleConnsPerHost,
		MaxIdleConns:        opts.MaxIdleConnsPerHost * 2,
		IdleConnTimeout:     90 * time.Second,
		DisableCompression:  true, // segments are stored byte for byte
	}

	return &Client{
		client: &http.Client{
			Transport: transport,
			Timeout:   opts.Timeout,
		},
		opts: opts,
	}
}

// Probe reports whether the resource at url exists.
// (false, nil) is a definitive absence; a non-nil error means the answer is unknown.
func (c *Client) Probe(ctx context.Context, url string) (bool, error) {
	method := http.MethodHead
	if c.opts.ProbeMethod == ProbeGet {
		method = http.MethodGet
	}

	req, err := c.newRequest(ctx, method, url)
	if err != nil {
		return false, err
	}
	if method == http.MethodGet {
		req.Header.Set("Range", "bytes=0-0")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return false, transportError("probe", url, err)
	}
	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))
	resp.Body.Close()

	switch err := checkStatusCode("probe", url, resp.StatusCode); {
	case err == nil:
		return true, nil
	case errors.Is(err, domain.ErrSegmentNotFound):
		return false, nil
	default:
		return false, err
	}
}

// Get fetches the full body of url. The caller must close it.
func (c *Client) Get(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := c.newRequest(ctx, http.MethodGet, url)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, transportError("get", url, err)
	}

	if err := checkStatusCode("get", url, resp.StatusCode); err != nil {
		resp.Body.Close()
		return nil, err
	}

	return resp.Body, nil
}

func (c *Client) newRequest(ctx context.Context, method, url string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if c.opts.UserAgent != "" {
		req.Header.Set("User-Agent", c.opts.UserAgent)
	}
	return req, nil
}

// transportError classifies a failure from http.Client.Do. Cancellation by
// the caller is passed through untouched so it is never retried; everything
// else (timeouts, resets, refused connections) is a network blip.
func transportError(op, url string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	return &domain.TransientError{Op: op, URL: url, Err: err}
}

// checkStatusCode returns an appropriate error for non-success status codes.
func checkStatusCode(op, url string, code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusNotFound || code == http.StatusGone:
		return fmt.Errorf("%w: %s (%d)", domain.ErrSegmentNotFound, url, code)
	case code == http.StatusForbidden:
		return ErrForbidden
	case code == http.StatusUnauthorized:
		return ErrUnauthorized
	case code == http.StatusTooManyRequests || code == http.StatusRequestTimeout || code >= 500:
		return &domain.TransientError{Op: op, URL: url, Status: code, Err: errors.New(http.StatusText(code))}
	default:
		return fmt.Errorf("unexpected status code: %d", code)
	}
}
