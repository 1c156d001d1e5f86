package service

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"leadagent/internal/config"
	"leadagent/internal/logger"
)

const defaultGeminiModel = "gemini-2.0-flash"

// GeminiResponder generates conversational replies with Google's Gemini API
type GeminiResponder struct {
	client *genai.Client
	model  string
	log    *logger.Logger
}

// NewGeminiResponder creates a Gemini-backed responder
func NewGeminiResponder(ctx context.Context, cfg *config.GeminiConfig, log *logger.Logger) (*GeminiResponder, error) {
	if cfg == nil || cfg.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}
	if log == nil {
		log = logger.Nop()
	}

	model := cfg.Model
	if model == "" {
		model = defaultGeminiModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      cfg.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: cfg.BaseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	log.Info("Gemini responder ready", "model", model)
	return &GeminiResponder{
		client: client,
		model:  model,
		log:    log.With("service", "GeminiResponder"),
	}, nil
}

func (g *GeminiResponder) contents(prompt string) []*genai.Content {
	return []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}
}

func (g *GeminiResponder) generateConfig(system string) *genai.GenerateContentConfig {
	if system == "" {
		return nil
	}
	return &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
	}
}

// Respond returns the whole reply in one call
func (g *GeminiResponder) Respond(ctx context.Context, system, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, g.contents(prompt), g.generateConfig(system))
	if err != nil {
		return "", fmt.Errorf("Gemini generate failed: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("Gemini returned an empty reply")
	}
	return text, nil
}

// RespondStream forwards each streamed piece of text to onDelta
func (g *GeminiResponder) RespondStream(ctx context.Context, system, prompt string, onDelta func(string) error) (string, error) {
	var full strings.Builder

	for resp, err := range g.client.Models.GenerateContentStream(ctx, g.model, g.contents(prompt), g.generateConfig(system)) {
		if err != nil {
			return full.String(), fmt.Errorf("Gemini stream failed: %w", err)
		}
		delta := resp.Text()
		if delta == "" {
			continue
		}
		full.WriteString(delta)
		if onDelta != nil {
			if err := onDelta(delta); err != nil {
				return full.String(), err
			}
		}
	}

	if strings.TrimSpace(full.String()) == "" {
		return "", fmt.Errorf("Gemini returned an empty reply")
	}
	return full.String(), nil
}

var _ Responder = (*GeminiResponder)(nil)
