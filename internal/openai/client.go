package openai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/maauso/charactercast-api/internal/httpapi"
	"github.com/maauso/charactercast-api/internal/llm"
)

// Static errors for OpenAI client operations.
var (
	// ErrAPIKeyNotSet is returned when no API key is configured.
	ErrAPIKeyNotSet = errors.New("openai: API key is required")
	// ErrNoImageData is returned when the image response carries no base64 payload.
	ErrNoImageData = errors.New("openai: no image data returned")
)

// Compile-time check that HTTPClient implements llm.Client.
var _ llm.Client = (*HTTPClient)(nil)

// HTTPClient talks to the OpenAI REST API.
type HTTPClient struct {
	apiKey     string
	baseURL    string
	chatModel  string
	imageModel string
	imageSize  string
	apiOpts    []httpapi.Option
	api        *httpapi.Client
}

// ClientOption is a function that configures an HTTPClient.
type ClientOption func(*HTTPClient)

// WithAPIKey sets the API key for authentication.
func WithAPIKey(key string) ClientOption {
	return func(c *HTTPClient) {
		c.apiKey = key
	}
}

// WithBaseURL sets a custom base URL for the OpenAI API.
func WithBaseURL(url string) ClientOption {
	return func(c *HTTPClient) {
		c.baseURL = url
	}
}

// WithChatModel overrides the model used by Complete.
func WithChatModel(model string) ClientOption {
	return func(c *HTTPClient) {
		if model != "" {
			c.chatModel = model
		}
	}
}

// WithImageModel overrides the model used by GenerateImage.
func WithImageModel(model string) ClientOption {
	return func(c *HTTPClient) {
		if model != "" {
			c.imageModel = model
		}
	}
}

// WithHTTPOptions passes transport options such as retries or a custom
// http.Client to the underlying request plumbing.
func WithHTTPOptions(opts ...httpapi.Option) ClientOption {
	return func(c *HTTPClient) {
		c.apiOpts = append(c.apiOpts, opts...)
	}
}

// NewClient creates a new OpenAI HTTP client.
// The API key can be set via the WithAPIKey option. If not provided,
// it is read from the environment variable OPENAI_API_KEY.
func NewClient(opts ...ClientOption) (*HTTPClient, error) {
	c := &HTTPClient{
		baseURL:    "https://api.openai.com/v1",
		chatModel:  DefaultChatModel,
		imageModel: DefaultImageModel,
		imageSize:  DefaultImageSize,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.apiKey == "" {
		c.apiKey = strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	}
	if c.apiKey == "" {
		return nil, ErrAPIKeyNotSet
	}

	c.api = httpapi.New("openai", c.baseURL, httpapi.BearerAuth(c.apiKey), c.apiOpts...)
	return c, nil
}

// Complete sends a system and user message and returns the first choice.
func (c *HTTPClient) Complete(ctx context.Context, p llm.Prompt) (string, error) {
	req := chatRequest{
		Model:       c.chatModel,
		Temperature: p.Temperature,
		MaxTokens:   p.MaxTokens,
	}
	if p.System != "" {
		req.Messages = append(req.Messages, chatMessage{Role: "system", Content: p.System})
	}
	req.Messages = append(req.Messages, chatMessage{Role: "user", Content: p.User})

	var resp chatResponse
	if err := c.api.JSON(ctx, http.MethodPost, "/chat/completions", req, &resp); err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices", llm.ErrEmptyResponse)
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("%w: empty message", llm.ErrEmptyResponse)
	}
	return text, nil
}

// GenerateImage renders prompt and returns the decoded image bytes.
// Responses that only carry a URL are rejected with ErrNoImageData.
func (c *HTTPClient) GenerateImage(ctx context.Context, prompt string) (*Image, error) {
	req := imageRequest{
		Model:  c.imageModel,
		Prompt: prompt,
		Size:   c.imageSize,
		N:      1,
	}

	var resp imageResponse
	if err := c.api.JSON(ctx, http.MethodPost, "/images/generations", req, &resp); err != nil {
		return nil, err
	}

	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("%w: empty data", ErrNoImageData)
	}
	item := resp.Data[0]
	if item.B64JSON == "" {
		if item.URL != "" {
			return nil, fmt.Errorf("%w: URL responses are not supported", ErrNoImageData)
		}
		return nil, ErrNoImageData
	}

	data, err := base64.StdEncoding.DecodeString(item.B64JSON)
	if err != nil {
		return nil, fmt.Errorf("openai: decode image: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrNoImageData
	}

	return &Image{Data: data, RevisedPrompt: item.RevisedPrompt}, nil
}
