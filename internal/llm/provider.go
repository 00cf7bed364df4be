// Package llm adapts text-generation vendors to a single Provider interface.
package llm

import "context"

// Provider sends one prompt to a model and returns its raw text.
// Implementations perform exactly one upstream request per call and never
// retry on their own.
type Provider interface {
	Generate(ctx context.Context, req Request) (*Response, error)

	// ModelID returns the model identifier this provider is configured to use.
	ModelID() string
}

// Request describes what to send to the model.
type Request struct {
	// System sets the model's role and constraints.
	System string

	// Prompt is the single user message.
	Prompt string

	// MaxTokens caps the response length.
	MaxTokens int

	// Temperature controls randomness. Zero leaves the vendor default.
	Temperature float64

	// JSON asks vendors that support it to constrain output to a JSON
	// object. The caller still repairs and validates the text.
	JSON bool
}

// Response holds the model's output.
type Response struct {
	// Text is the raw generated text, unmodified.
	Text string

	Usage Usage

	// Model is the model that actually served the request.
	Model string

	// StopReason is normalized to "end" or "max_tokens".
	StopReason string
}

// Usage tracks token consumption for a single request.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

const (
	StopEnd       = "end"
	StopMaxTokens = "max_tokens"
)

// resolveModel maps a friendly model name to a provider model ID.
func resolveModel(name string, models map[string]string) string {
	if id, ok := models[name]; ok {
		return id
	}
	// Unknown names are passed through so direct model IDs work.
	return name
}
