// Package hedra provides an HTTP client for the Hedra video generation API
// and a parser for its loosely structured status responses.
package hedra

// DefaultBaseURL is the public Hedra web-app API.
const DefaultBaseURL = "https://api.hedra.com/web-app/public"

// DefaultModelID is the talking-video model used for generations.
const DefaultModelID = "d1dd37a3-e39a-4854-a298-6510289f9cf2"

// AssetType is the kind of media uploaded as a generation input.
type AssetType string

const (
	// AssetImage is the start keyframe of a video.
	AssetImage AssetType = "image"
	// AssetAudio is the voice track of a video.
	AssetAudio AssetType = "audio"
)

// ContentType returns the MIME type sent with uploads of this asset type.
func (t AssetType) ContentType() string {
	if t == AssetImage {
		return "image/jpeg"
	}
	return "audio/mpeg"
}

// assetRequest is the body of POST /assets.
type assetRequest struct {
	Type AssetType `json:"type"`
	Name string    `json:"name"`
}

// idResponse is returned by asset and generation creation.
type idResponse struct {
	ID   string `json:"id"`
	Type string `json:"type,omitempty"`
	Name string `json:"name,omitempty"`
}

// GenerationRequest describes a talking video to render.
type GenerationRequest struct {
	ImageAssetID string
	AudioAssetID string
	TextPrompt   string
	// Resolution defaults to 720p.
	Resolution string
	// AspectRatio defaults to 9:16.
	AspectRatio string
}

// generationBody is the body of POST /generations.
type generationBody struct {
	Type            string          `json:"type"`
	AIModelID       string          `json:"ai_model_id"`
	StartKeyframeID string          `json:"start_keyframe_id"`
	AudioID         string          `json:"audio_id"`
	Inputs          generatedInputs `json:"generated_video_inputs"`
}

// generatedInputs holds the rendering options of a generation.
type generatedInputs struct {
	TextPrompt  string `json:"text_prompt"`
	Resolution  string `json:"resolution"`
	AspectRatio string `json:"aspect_ratio"`
	// DurationMS of 0 renders the full audio length.
	DurationMS int `json:"duration_ms"`
}
