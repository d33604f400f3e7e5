// Package openai provides an HTTP client for the OpenAI chat completion and
// image generation APIs.
package openai

// Default models and image size.
const (
	DefaultChatModel  = "gpt-4.1"
	DefaultImageModel = "gpt-image-1"
	DefaultImageSize  = "1024x1536"
)

// chatRequest is the body of POST /chat/completions.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float32       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

// chatMessage is one message of a chat request or response.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatResponse is the subset of the chat completion response we read.
type chatResponse struct {
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
}

// imageRequest is the body of POST /images/generations.
type imageRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Size   string `json:"size"`
	N      int    `json:"n"`
}

// imageResponse is the image generation response.
type imageResponse struct {
	Data []struct {
		B64JSON       string `json:"b64_json"`
		URL           string `json:"url"`
		RevisedPrompt string `json:"revised_prompt"`
	} `json:"data"`
}

// Image is a decoded generated image.
type Image struct {
	// Data holds the PNG bytes.
	Data []byte
	// RevisedPrompt is the prompt the provider actually used, if reported.
	RevisedPrompt string
}
