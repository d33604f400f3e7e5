// Package httpapi provides the request plumbing shared by the generation
// provider clients: authentication headers, status code mapping to sentinel
// errors, and optional exponential backoff for transient failures.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Static errors for provider requests.
var (
	// ErrUnauthorized is returned when the server returns 401 or 403.
	ErrUnauthorized = errors.New("httpapi: unauthorized")
	// ErrRateLimited is returned when the server returns a 429 status code.
	ErrRateLimited = errors.New("httpapi: rate limited")
	// ErrNotFound is returned when the server returns a 404 status code.
	ErrNotFound = errors.New("httpapi: not found")
	// ErrRequestFailed is returned when the request fails with another 4xx status code.
	ErrRequestFailed = errors.New("httpapi: request failed")
	// ErrServerError is returned when the server returns a 5xx status code.
	ErrServerError = errors.New("httpapi: server error")
)

// maxErrorBody bounds how much of an error response is kept in messages.
const maxErrorBody = 512

// Request describes one call to a provider.
type Request struct {
	Method string
	// URL is either absolute or a path joined to the client's base URL.
	URL         string
	Body        []byte
	ContentType string
	Accept      string
}

// Client performs authenticated requests against one provider.
type Client struct {
	name        string
	baseURL     string
	httpClient  *http.Client
	auth        func(*http.Request)
	maxRetries  int
	baseBackoff time.Duration
}

// Option is a function that configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(hc *Client) {
		hc.httpClient = c
	}
}

// WithMaxRetries sets the maximum number of retries for transient failures.
// Generation calls default to zero retries.
func WithMaxRetries(n int) Option {
	return func(hc *Client) {
		hc.maxRetries = n
	}
}

// WithBaseBackoff sets the initial backoff duration for retries.
func WithBaseBackoff(d time.Duration) Option {
	return func(hc *Client) {
		hc.baseBackoff = d
	}
}

// BearerAuth sets "Authorization: Bearer <token>".
func BearerAuth(token string) func(*http.Request) {
	return func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
	}
}

// HeaderAuth sets a provider specific API key header.
func HeaderAuth(header, key string) func(*http.Request) {
	return func(r *http.Request) {
		r.Header.Set(header, key)
	}
}

// New creates a Client. name prefixes every error message.
func New(name, baseURL string, auth func(*http.Request), opts ...Option) *Client {
	c := &Client{
		name:        name,
		baseURL:     strings.TrimRight(baseURL, "/"),
		httpClient:  &http.Client{Timeout: 60 * time.Second},
		auth:        auth,
		baseBackoff: 1 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the URL relative paths are joined to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// JSON sends body encoded as JSON and decodes the response into result.
// A nil body sends no payload; a nil result discards the response.
func (c *Client) JSON(ctx context.Context, method, url string, body, result any) error {
	req := Request{Method: method, URL: url, Accept: "application/json"}
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: marshal request: %w", c.name, err)
		}
		req.Body = b
		req.ContentType = "application/json"
	}

	raw, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	if result != nil {
		if err := json.Unmarshal(raw, result); err != nil {
			return fmt.Errorf("%s: unmarshal response: %w", c.name, err)
		}
	}
	return nil
}

// Do performs req with exponential backoff retry and returns the raw body.
func (c *Client) Do(ctx context.Context, req Request) ([]byte, error) {
	var lastErr error
	backoff := c.baseBackoff

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%s: context cancelled: %w", c.name, ctx.Err())
			case <-time.After(backoff):
				backoff *= 2 // Exponential backoff
			}
		}

		body, err := c.doOnce(ctx, req)
		if err == nil {
			return body, nil
		}

		// Check if error is retryable
		if !isRetryable(err) {
			return nil, err
		}

		lastErr = err
	}

	if c.maxRetries == 0 {
		return nil, lastErr
	}
	return nil, fmt.Errorf("%s: max retries exceeded: %w", c.name, lastErr)
}

// doOnce performs a single HTTP request.
func (c *Client) doOnce(ctx context.Context, r Request) ([]byte, error) {
	var bodyReader io.Reader
	if r.Body != nil {
		bodyReader = bytes.NewReader(r.Body)
	}

	url := r.URL
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		url = c.baseURL + "/" + strings.TrimLeft(url, "/")
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("%s: create request: %w", c.name, err)
	}
	if c.auth != nil {
		c.auth(req)
	}
	if r.ContentType != "" {
		req.Header.Set("Content-Type", r.ContentType)
	}
	if r.Accept != "" {
		req.Header.Set("Accept", r.Accept)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &retryableError{err: fmt.Errorf("%s: request failed: %w", c.name, err)}
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &retryableError{err: fmt.Errorf("%s: read response: %w", c.name, err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, c.statusError(resp.StatusCode, respBody)
	}
	return respBody, nil
}

// statusError maps a non-2xx response onto the sentinel errors.
func (c *Client) statusError(code int, body []byte) error {
	msg := string(body)
	if len(msg) > maxErrorBody {
		msg = msg[:maxErrorBody] + "..."
	}
	switch {
	case code >= 500:
		// 5xx errors are retryable
		return &retryableError{err: fmt.Errorf("%s: %w %d: %s", c.name, ErrServerError, code, msg)}
	case code == http.StatusTooManyRequests:
		// 429 (rate limit) is retryable
		return &retryableError{err: fmt.Errorf("%s: %w: %s", c.name, ErrRateLimited, msg)}
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return fmt.Errorf("%s: %w (%d): %s", c.name, ErrUnauthorized, code, msg)
	case code == http.StatusNotFound:
		return fmt.Errorf("%s: %w: %s", c.name, ErrNotFound, msg)
	default:
		return fmt.Errorf("%s: %w with status %d: %s", c.name, ErrRequestFailed, code, msg)
	}
}

// retryableError wraps errors that should be retried.
type retryableError struct {
	err error
}

func (e *retryableError) Error() string {
	return e.err.Error()
}

func (e *retryableError) Unwrap() error {
	return e.err
}

// isRetryable returns true if the error should be retried.
func isRetryable(err error) bool {
	var re *retryableError
	return errors.As(err, &re)
}
