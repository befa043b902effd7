// Package download performs single HTTP GET requests and works out a local
// filename for the response.
package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	pkgerrors "github.com/glorpus-work/bulkget/pkg/errors"
)

// DefaultUserAgent is sent when Options.UserAgent is empty.
const DefaultUserAgent = "bulkget/1.0"

// StatusError is returned for responses outside the 2xx range.
type StatusError struct {
	URL    string
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status code: %d", e.URL, e.Code)
}

// Unwrap lets errors.Is(err, errors.ErrRequest) match status failures.
func (e *StatusError) Unwrap() error {
	return pkgerrors.ErrRequest
}

// IsClientError reports whether err carries a 4xx response.
func IsClientError(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code >= 400 && se.Code < 500
	}
	return false
}

// Client is a small HTTP client that downloads whole responses into memory.
// It is safe for concurrent use.
type Client struct {
	client    *http.Client
	userAgent string
}

// NewClient creates a Client with the given options.
func NewClient(opts Options) *Client {
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	return &Client{
		client:    &http.Client{Timeout: opts.Timeout},
		userAgent: opts.UserAgent,
	}
}

// Fetch issues one GET for req and returns the body together with a filename
// hint taken from Content-Disposition or, failing that, the URL path.
func (c *Client) Fetch(ctx context.Context, req Request) (Result, error) {
	if req.URL == nil {
		if req.Raw == "" {
			return Result{}, fmt.Errorf("nil URL: %w", pkgerrors.ErrRequest)
		}
		u, err := url.Parse(req.Raw)
		if err != nil {
			return Result{}, fmt.Errorf("%w: %w", pkgerrors.ErrRequest, err)
		}
		req.URL = u
	}

	resp, err := c.doRequest(ctx, req)
	if err != nil {
		return Result{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("%w: read body of %s: %w", pkgerrors.ErrRequest, req.URL.Redacted(), err)
	}

	name, _ := ResolveFilename(resp.Header, req.URL)
	return Result{Filename: name, Data: data}, nil
}

func (c *Client) doRequest(ctx context.Context, req Request) (*http.Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL.String(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %w", pkgerrors.ErrRequest, err)
	}
	httpReq.Header.Set("User-Agent", c.userAgent)
	if req.Referer != "" {
		httpReq.Header.Set("Referer", req.Referer)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", pkgerrors.ErrRequest, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_ = resp.Body.Close()
		return nil, &StatusError{URL: req.URL.Redacted(), Code: resp.StatusCode, Status: resp.Status}
	}
	return resp, nil
}
