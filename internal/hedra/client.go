package hedra

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"strings"

	"github.com/maauso/charactercast-api/internal/httpapi"
)

// Static errors for Hedra client operations.
var (
	// ErrAPIKeyNotSet is returned when no API key is configured.
	ErrAPIKeyNotSet = errors.New("hedra: API key is required")
	// ErrMissingID is returned when a create call answers without an id.
	ErrMissingID = errors.New("hedra: response has no id")
	// ErrEmptyDownload is returned when a downloaded output has no bytes.
	ErrEmptyDownload = errors.New("hedra: empty download")
)

// HTTPClient talks to the Hedra REST API.
type HTTPClient struct {
	apiKey  string
	baseURL string
	modelID string
	apiOpts []httpapi.Option
	api     *httpapi.Client
	// public fetches outputs hosted outside the API, without credentials.
	public *httpapi.Client
}

// ClientOption is a function that configures an HTTPClient.
type ClientOption func(*HTTPClient)

// WithAPIKey sets the API key for authentication.
func WithAPIKey(key string) ClientOption {
	return func(c *HTTPClient) {
		c.apiKey = key
	}
}

// WithBaseURL sets a custom base URL for the Hedra API.
func WithBaseURL(url string) ClientOption {
	return func(c *HTTPClient) {
		c.baseURL = strings.TrimRight(url, "/")
	}
}

// WithModelID overrides the generation model.
func WithModelID(id string) ClientOption {
	return func(c *HTTPClient) {
		if id != "" {
			c.modelID = id
		}
	}
}

// WithHTTPOptions passes transport options to the request plumbing.
func WithHTTPOptions(opts ...httpapi.Option) ClientOption {
	return func(c *HTTPClient) {
		c.apiOpts = append(c.apiOpts, opts...)
	}
}

// NewClient creates a new Hedra HTTP client.
// The API key falls back to the HEDRA_API_KEY environment variable.
func NewClient(opts ...ClientOption) (*HTTPClient, error) {
	c := &HTTPClient{
		baseURL: DefaultBaseURL,
		modelID: DefaultModelID,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.apiKey == "" {
		c.apiKey = strings.TrimSpace(os.Getenv("HEDRA_API_KEY"))
	}
	if c.apiKey == "" {
		return nil, ErrAPIKeyNotSet
	}

	c.api = httpapi.New("hedra", c.baseURL, httpapi.HeaderAuth("X-API-Key", c.apiKey), c.apiOpts...)
	c.public = httpapi.New("hedra", c.baseURL, nil, c.apiOpts...)
	return c, nil
}

// CreateAsset registers a new asset record and returns its id.
func (c *HTTPClient) CreateAsset(ctx context.Context, t AssetType, name string) (string, error) {
	var resp idResponse
	if err := c.api.JSON(ctx, http.MethodPost, "/assets", assetRequest{Type: t, Name: name}, &resp); err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", fmt.Errorf("%w: create %s asset", ErrMissingID, t)
	}
	return resp.ID, nil
}

// UploadAsset attaches file content to an asset record as a multipart "file" part.
func (c *HTTPClient) UploadAsset(ctx context.Context, assetID string, t AssetType, name string, data []byte) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, name))
	h.Set("Content-Type", t.ContentType())
	part, err := mw.CreatePart(h)
	if err != nil {
		return fmt.Errorf("hedra: create form part: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return fmt.Errorf("hedra: write form part: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("hedra: close form: %w", err)
	}

	_, err = c.api.Do(ctx, httpapi.Request{
		Method:      http.MethodPost,
		URL:         "/assets/" + url.PathEscape(assetID) + "/upload",
		Body:        buf.Bytes(),
		ContentType: mw.FormDataContentType(),
		Accept:      "application/json",
	})
	return err
}

// CreateGeneration submits a video generation and returns its id.
func (c *HTTPClient) CreateGeneration(ctx context.Context, req GenerationRequest) (string, error) {
	body := generationBody{
		Type:            "video",
		AIModelID:       c.modelID,
		StartKeyframeID: req.ImageAssetID,
		AudioID:         req.AudioAssetID,
		Inputs: generatedInputs{
			TextPrompt:  req.TextPrompt,
			Resolution:  valueOr(req.Resolution, "720p"),
			AspectRatio: valueOr(req.AspectRatio, "9:16"),
		},
	}

	var resp idResponse
	if err := c.api.JSON(ctx, http.MethodPost, "/generations", body, &resp); err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", fmt.Errorf("%w: create generation", ErrMissingID)
	}
	return resp.ID, nil
}

// Status returns the raw status body of a generation. Use
// ParseStatusResponse to interpret it.
func (c *HTTPClient) Status(ctx context.Context, generationID string) ([]byte, error) {
	return c.api.Do(ctx, httpapi.Request{
		Method: http.MethodGet,
		URL:    "/generations/" + url.PathEscape(generationID) + "/status",
		Accept: "application/json",
	})
}

// OutputURL is the canonical output location of a generation, used when the
// status response never names one.
func (c *HTTPClient) OutputURL(generationID string) string {
	return c.baseURL + "/generations/" + url.PathEscape(generationID) + "/output"
}

// Download fetches a generated output. Credentials are only sent to the API host.
func (c *HTTPClient) Download(ctx context.Context, rawURL string) ([]byte, error) {
	client := c.public
	if strings.HasPrefix(rawURL, c.baseURL+"/") {
		client = c.api
	}

	data, err := client.Do(ctx, httpapi.Request{Method: http.MethodGet, URL: rawURL})
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, ErrEmptyDownload
	}
	return data, nil
}

func valueOr(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
