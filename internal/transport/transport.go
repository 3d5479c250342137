// Package transport posts serialized ProcessQuery requests over HTTP.
//
// It owns everything the protocol layer treats as external: TLS, bearer
// authentication, timeouts, retries of transient failures and the mapping
// of non-2xx statuses to *Error. Response bodies are returned unread.
package transport

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// DefaultTimeout bounds one round trip when Options.Timeout is zero.
const DefaultTimeout = 60 * time.Second

// Options configures a Client.
type Options struct {
	AccessToken string
	Timeout     time.Duration
	RetryCount  int
	UserAgent   string
}

// Error reports a request that did not produce a 2xx response.
type Error struct {
	URL        string
	StatusCode int // 0 when no response was received
	Status     string
	Body       string
	Err        error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("POST %s: %v", e.URL, e.Err)
	}
	if e.Body != "" {
		return fmt.Sprintf("POST %s: %s: %s", e.URL, e.Status, truncate(e.Body, 200))
	}
	return fmt.Sprintf("POST %s: %s", e.URL, e.Status)
}

// Unwrap returns the underlying network error, if any.
func (e *Error) Unwrap() error { return e.Err }

// IsAuth reports whether the server refused the credentials.
func (e *Error) IsAuth() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// Client posts request bodies with resty.
type Client struct {
	http *resty.Client
}

// New creates a Client from opts.
func New(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	rc := resty.New().
		SetTimeout(timeout).
		SetRetryCount(opts.RetryCount).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		AddRetryCondition(retryable).
		SetHeader("Content-Type", "text/xml").
		SetHeader("Accept", "application/json")
	if opts.UserAgent != "" {
		rc.SetHeader("User-Agent", opts.UserAgent)
	}
	if opts.AccessToken != "" {
		rc.SetAuthToken(opts.AccessToken)
	}
	return &Client{http: rc}
}

// Post sends body to url and returns the response body of a 2xx reply.
func (c *Client) Post(ctx context.Context, url string, body []byte) ([]byte, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		Post(url)
	if err != nil {
		return nil, &Error{URL: url, Err: err}
	}
	if resp.IsError() || resp.StatusCode() < 200 || resp.StatusCode() > 299 {
		return nil, &Error{
			URL:        url,
			StatusCode: resp.StatusCode(),
			Status:     resp.Status(),
			Body:       string(resp.Body()),
		}
	}
	return resp.Body(), nil
}

// retryable retries throttling and temporary unavailability only. A
// ProcessQuery batch may have side effects, so other failures are final.
func retryable(resp *resty.Response, err error) bool {
	if resp == nil {
		return false
	}
	switch resp.StatusCode() {
	case http.StatusTooManyRequests, http.StatusServiceUnavailable:
		return true
	}
	return false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
