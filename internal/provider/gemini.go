package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.0-flash"

// Gemini generates text through the Google GenAI API.
type Gemini struct {
	client    *genai.Client
	modelName string
}

// NewGemini creates a Gemini-backed generator.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	if model = strings.TrimSpace(model); model == "" {
		model = defaultGeminiModel
	}

	return &Gemini{client: client, modelName: model}, nil
}

func (g *Gemini) Name() string { return "gemini" }

// Check verifies the client was constructed with credentials. The first real
// call surfaces auth problems as permanent failures.
func (g *Gemini) Check(context.Context) error {
	if g.client == nil {
		return errors.New("gemini client is not initialized")
	}
	return nil
}

// Generate sends the prompt to Gemini and returns the concatenated textual
// response parts.
func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", &Error{Provider: g.Name(), Kind: KindPermanent, Err: errors.New("prompt must not be empty")}
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.modelName, genai.Text(prompt), nil)
	if err != nil {
		return "", &Error{Provider: g.Name(), Kind: KindOf(err), Err: err}
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}

	output := strings.TrimSpace(builder.String())
	if output == "" {
		return "", &Error{Provider: g.Name(), Kind: KindTransient, Err: errors.New("gemini api returned empty response")}
	}

	return output, nil
}
