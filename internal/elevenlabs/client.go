// Package elevenlabs provides an HTTP client for the ElevenLabs
// text-to-speech API.
package elevenlabs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/maauso/charactercast-api/internal/httpapi"
)

// DefaultModelID is the speech model used when none is configured.
const DefaultModelID = "eleven_monolingual_v1"

// Static errors for ElevenLabs client operations.
var (
	// ErrAPIKeyNotSet is returned when no API key is configured.
	ErrAPIKeyNotSet = errors.New("elevenlabs: API key is required")
	// ErrEmptyAudio is returned when the provider answers with no audio bytes.
	ErrEmptyAudio = errors.New("elevenlabs: empty audio response")
	// ErrEmptyText is returned when Synthesize is called without text.
	ErrEmptyText = errors.New("elevenlabs: text is required")
	// ErrVoiceRequired is returned when Synthesize is called without a voice.
	ErrVoiceRequired = errors.New("elevenlabs: voice id is required")
)

// VoiceSettings tunes how a voice renders speech.
type VoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

// DefaultVoiceSettings are applied to every synthesis request.
var DefaultVoiceSettings = VoiceSettings{Stability: 0.75, SimilarityBoost: 0.75}

// speechRequest is the body of POST /text-to-speech/{voice_id}.
type speechRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings VoiceSettings `json:"voice_settings"`
}

// HTTPClient talks to the ElevenLabs REST API.
type HTTPClient struct {
	apiKey   string
	baseURL  string
	modelID  string
	settings VoiceSettings
	apiOpts  []httpapi.Option
	api      *httpapi.Client
}

// ClientOption is a function that configures an HTTPClient.
type ClientOption func(*HTTPClient)

// WithAPIKey sets the API key for authentication.
func WithAPIKey(key string) ClientOption {
	return func(c *HTTPClient) {
		c.apiKey = key
	}
}

// WithBaseURL sets a custom base URL for the ElevenLabs API.
func WithBaseURL(url string) ClientOption {
	return func(c *HTTPClient) {
		c.baseURL = url
	}
}

// WithModelID overrides the speech model.
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

// NewClient creates a new ElevenLabs HTTP client.
// The API key falls back to the ELEVENLABS_API_KEY environment variable.
func NewClient(opts ...ClientOption) (*HTTPClient, error) {
	c := &HTTPClient{
		baseURL:  "https://api.elevenlabs.io/v1",
		modelID:  DefaultModelID,
		settings: DefaultVoiceSettings,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.apiKey == "" {
		c.apiKey = strings.TrimSpace(os.Getenv("ELEVENLABS_API_KEY"))
	}
	if c.apiKey == "" {
		return nil, ErrAPIKeyNotSet
	}

	c.api = httpapi.New("elevenlabs", c.baseURL, httpapi.HeaderAuth("xi-api-key", c.apiKey), c.apiOpts...)
	return c, nil
}

// Synthesize renders text with the given voice and returns MP3 bytes.
func (c *HTTPClient) Synthesize(ctx context.Context, voiceID, text string) ([]byte, error) {
	if strings.TrimSpace(voiceID) == "" {
		return nil, ErrVoiceRequired
	}
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}

	body, err := json.Marshal(speechRequest{
		Text:          text,
		ModelID:       c.modelID,
		VoiceSettings: c.settings,
	})
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: marshal request: %w", err)
	}

	audio, err := c.api.Do(ctx, httpapi.Request{
		Method:      http.MethodPost,
		URL:         "/text-to-speech/" + url.PathEscape(voiceID),
		Body:        body,
		ContentType: "application/json",
		Accept:      "audio/mpeg",
	})
	if err != nil {
		return nil, err
	}
	if len(audio) == 0 {
		return nil, ErrEmptyAudio
	}
	return audio, nil
}
