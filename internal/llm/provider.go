package llm

import (
	"context"
	"errors"
)

var (
	// ErrEmptyResponse is returned when the model produced no text
	ErrEmptyResponse = errors.New("model response did not include any output text")
	// ErrAttachmentUnsupported is returned by providers that cannot take inline audio
	ErrAttachmentUnsupported = errors.New("provider does not support audio attachments")
)

// Provider defines the interface for LLM providers
type Provider interface {
	// Generate sends one request to the model and returns its text output.
	// When OutputSchema is set the provider MUST constrain the output to it.
	Generate(ctx context.Context, request *GenerationRequest) (*GenerationResponse, error)

	// Name returns the provider name (e.g., "openai", "gemini")
	Name() string
}

// GenerationRequest contains all parameters needed for generation
type GenerationRequest struct {
	Model        string
	Prompt       string
	SystemPrompt string
	Temperature  *float32
	TopP         *float32
	// Structured output schema, nil for free text
	OutputSchema *OutputSchema
	// Inline audio sent along with the prompt
	Audio *Attachment
	// Operation names the request for tracing (e.g. "instrumental")
	Operation string
}

// OutputSchema defines the expected JSON output structure
type OutputSchema struct {
	Name        string
	Description string
	Schema      map[string]any // JSON Schema object
}

// Attachment is binary content sent inline with the prompt
type Attachment struct {
	MIMEType string
	Data     []byte
}

// Usage is the token accounting of one call
type Usage struct {
	Input  int `json:"input"`
	Output int `json:"output"`
	Total  int `json:"total"`
}

// GenerationResponse contains the result from the LLM
type GenerationResponse struct {
	Text     string `json:"text"`
	Model    string `json:"model"`
	Provider string `json:"provider"`
	Usage    Usage  `json:"usage"`
}

// Float32 returns a pointer to v
func Float32(v float32) *float32 {
	return &v
}
