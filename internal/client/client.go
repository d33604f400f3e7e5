// Package client is a Go client for the CharacterCast HTTP API. It is used
// by the command line tool and satisfies poller.Reader.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/maauso/charactercast-api/internal/job"
	"github.com/maauso/charactercast-api/internal/poller"
)

// Compile-time check that Client implements poller.Reader.
var _ poller.Reader = (*Client)(nil)

// APIError is a non-2xx response from the API.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("api error %d (%s): %s", e.StatusCode, e.Code, e.Message)
}

// Is makes a 404 match job.ErrJobNotFound.
func (e *APIError) Is(target error) bool {
	return target == job.ErrJobNotFound && e.StatusCode == http.StatusNotFound
}

// SubmitRequest is the body of POST /api/jobs.
type SubmitRequest struct {
	CharacterType string            `json:"character_type"`
	Topic         string            `json:"topic"`
	Attributes    map[string]string `json:"attributes"`
}

// SubmitResponse acknowledges a new job.
type SubmitResponse struct {
	JobID  string     `json:"job_id"`
	Status job.Status `json:"status"`
}

// ProcessResponse acknowledges POST /api/jobs/{id}/process.
type ProcessResponse struct {
	JobID         string     `json:"job_id"`
	Status        job.Status `json:"status"`
	VideoLaunched bool       `json:"video_launched"`
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// Client calls the API with a bearer token.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithToken sets the bearer token sent with every request.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// New creates a client for the API at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 5 * time.Minute},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Health calls GET /health.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

// Submit creates a job.
func (c *Client) Submit(ctx context.Context, req SubmitRequest) (*SubmitResponse, error) {
	var resp SubmitResponse
	if err := c.do(ctx, http.MethodPost, "/api/jobs", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Process runs the synchronous stages and launches the video stage.
func (c *Client) Process(ctx context.Context, id string) (*ProcessResponse, error) {
	var resp ProcessResponse
	if err := c.do(ctx, http.MethodPost, "/api/jobs/"+url.PathEscape(id)+"/process", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status returns the job projection.
func (c *Client) Status(ctx context.Context, id string) (job.View, error) {
	var v job.View
	err := c.do(ctx, http.MethodGet, "/api/jobs/"+url.PathEscape(id), nil, &v)
	return v, err
}

// RunStage runs a single stage and returns the updated job.
func (c *Client) RunStage(ctx context.Context, id, stage string) (job.View, error) {
	var v job.View
	path := "/api/jobs/" + url.PathEscape(id) + "/stages/" + url.PathEscape(stage)
	err := c.do(ctx, http.MethodPost, path, nil, &v)
	return v, err
}

func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("client: marshal request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("client: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("client: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("client: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
		var eb errorBody
		if json.Unmarshal(raw, &eb) == nil && eb.Error != "" {
			apiErr.Code = eb.Code
			apiErr.Message = eb.Error
		}
		return apiErr
	}

	if result != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, result); err != nil {
			return fmt.Errorf("client: unmarshal response: %w", err)
		}
	}
	return nil
}

// IsNotFound reports whether err means the job does not exist for the caller.
func IsNotFound(err error) bool {
	return errors.Is(err, job.ErrJobNotFound)
}
