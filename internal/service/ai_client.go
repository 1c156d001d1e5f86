package service

import (
	"context"
)

// Classifier is the text-generation backend used to classify lead messages.
// It may fail or return text that only partially contains JSON.
type Classifier interface {
	Invoke(ctx context.Context, prompt string) (string, error)
}

// Responder generates conversational replies to leads
type Responder interface {
	// Respond returns a complete reply
	Respond(ctx context.Context, system, prompt string) (string, error)

	// RespondStream calls onDelta for each piece of text as it arrives and
	// returns the full reply
	RespondStream(ctx context.Context, system, prompt string, onDelta func(delta string) error) (string, error)
}

// ClassifierFunc adapts a plain function to Classifier
type ClassifierFunc func(ctx context.Context, prompt string) (string, error)

// Invoke calls f
func (f ClassifierFunc) Invoke(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// StreamChunk represents a generic streaming response chunk
type StreamChunk struct {
	// Regular content (always present in streaming)
	Content string

	// Thinking/reasoning content (provider-specific, e.g., DeepSeek)
	ThinkingContent string

	// Role (assistant, user, system)
	Role string

	// Whether this is the final chunk
	Done bool
}

// Ensure the OpenAI-compatible client serves both roles
var (
	_ Classifier = (*OpenAIClient)(nil)
	_ Responder  = (*OpenAIClient)(nil)
)
