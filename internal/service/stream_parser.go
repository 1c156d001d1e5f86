package service

import (
	"encoding/json"
	"strings"
)

// StreamChunkParser is the interface for provider-specific chunk parsing
type StreamChunkParser interface {
	ParseChunk(data []byte) (*StreamChunk, error)
}

// DeltaChunkParser parses OpenAI-format "choices[].delta" chunks. With
// reasoning enabled it also reads reasoning_content, as sent by NVIDIA-hosted
// DeepSeek models.
type DeltaChunkParser struct {
	reasoning bool
}

// ParseChunk converts a provider chunk to a generic StreamChunk
func (p *DeltaChunkParser) ParseChunk(data []byte) (*StreamChunk, error) {
	var rawChunk struct {
		Choices []struct {
			Delta struct {
				Role             string  `json:"role,omitempty"`
				Content          string  `json:"content,omitempty"`
				ReasoningContent *string `json:"reasoning_content,omitempty"`
			} `json:"delta"`
			FinishReason *string `json:"finish_reason,omitempty"`
		} `json:"choices"`
	}

	if err := json.Unmarshal(data, &rawChunk); err != nil {
		return nil, err
	}

	chunk := &StreamChunk{}
	if len(rawChunk.Choices) == 0 {
		return chunk, nil
	}

	choice := rawChunk.Choices[0]
	chunk.Role = choice.Delta.Role
	chunk.Content = choice.Delta.Content
	chunk.Done = choice.FinishReason != nil && *choice.FinishReason != ""
	if p.reasoning && choice.Delta.ReasoningContent != nil {
		chunk.ThinkingContent = *choice.Delta.ReasoningContent
	}

	return chunk, nil
}

// ParserForBase picks the chunk parser for an API base URL
func ParserForBase(baseURL string) *DeltaChunkParser {
	return &DeltaChunkParser{reasoning: IsNVIDIAProvider(baseURL)}
}

// IsNVIDIAProvider checks if the base URL is NVIDIA API
func IsNVIDIAProvider(baseURL string) bool {
	return strings.HasPrefix(strings.TrimRight(baseURL, "/"), "https://integrate.api.nvidia.com")
}

// IsOpenAIProvider checks if the base URL is official OpenAI API
func IsOpenAIProvider(baseURL string) bool {
	return strings.Contains(baseURL, "api.openai.com")
}
