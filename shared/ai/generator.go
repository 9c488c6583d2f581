package ai

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// Generator is the single chat-completion style call the analyzers depend on.
// The provider gives no structured-output guarantee; callers decode defensively.
type Generator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}

// GeminiGenerator implements Generator against the Gemini API.
type GeminiGenerator struct {
	client *genai.Client
	model  string
}

func NewGeminiGenerator(ctx context.Context, apiKey, model string) (*GeminiGenerator, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiGenerator{client: client, model: model}, nil
}

// Model returns the configured model name, recorded as the analyzer version
// in the cache index.
func (g *GeminiGenerator) Model() string {
	return g.model
}

func (g *GeminiGenerator) Generate(ctx context.Context, system, prompt string) (string, error) {
	text := prompt
	if system != "" {
		text = system + "\n\n" + prompt
	}

	parts := []*genai.Part{
		genai.NewPartFromText(text),
	}
	contents := []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
	}

	result, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	responseText := result.Text()
	if responseText == "" {
		return "", fmt.Errorf("empty response from model %s", g.model)
	}
	return responseText, nil
}
