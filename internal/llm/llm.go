// Package llm defines the text-completion port used by the script stage and
// provides a Google Gemini implementation of it.
package llm

import (
	"context"
	"errors"
)

// ErrEmptyResponse is returned when a provider answers without any text.
var ErrEmptyResponse = errors.New("llm: empty response")

// Provider identifies a text-completion backend.
type Provider string

const (
	// ProviderOpenAI uses the OpenAI chat completions API.
	ProviderOpenAI Provider = "openai"
	// ProviderGemini uses Google Gemini through generative-ai-go.
	ProviderGemini Provider = "gemini"
)

// IsValid returns true if the provider is supported.
func (p Provider) IsValid() bool {
	return p == ProviderOpenAI || p == ProviderGemini
}

// Prompt is one completion request.
type Prompt struct {
	// System sets the persona and rules.
	System string
	// User carries the task.
	User string
	// MaxTokens bounds the output length.
	MaxTokens int
	// Temperature controls sampling randomness.
	Temperature float32
}

// Client completes prompts.
type Client interface {
	// Complete returns the generated text for p.
	// Returns ErrEmptyResponse when the provider produced no text.
	Complete(ctx context.Context, p Prompt) (string, error)
}
