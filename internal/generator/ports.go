package generator

import (
	"context"

	"github.com/maauso/charactercast-api/internal/elevenlabs"
	"github.com/maauso/charactercast-api/internal/hedra"
	"github.com/maauso/charactercast-api/internal/openai"
)

// ImageRenderer renders a character image from a text prompt.
type ImageRenderer interface {
	GenerateImage(ctx context.Context, prompt string) (*openai.Image, error)
}

// SpeechSynthesizer turns text into speech with a provider voice.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, voiceID, text string) ([]byte, error)
}

// AssetStore registers and uploads media used as generation inputs.
type AssetStore interface {
	CreateAsset(ctx context.Context, t hedra.AssetType, name string) (string, error)
	UploadAsset(ctx context.Context, assetID string, t hedra.AssetType, name string, data []byte) error
}

// VideoProvider is the remote talking-video API.
type VideoProvider interface {
	AssetStore
	CreateGeneration(ctx context.Context, req hedra.GenerationRequest) (string, error)
	Status(ctx context.Context, generationID string) ([]byte, error)
	OutputURL(generationID string) string
	Download(ctx context.Context, url string) ([]byte, error)
}

// Compile-time checks that the provider clients satisfy the ports.
var (
	_ ImageRenderer     = (*openai.HTTPClient)(nil)
	_ SpeechSynthesizer = (*elevenlabs.HTTPClient)(nil)
	_ VideoProvider     = (*hedra.HTTPClient)(nil)
)
