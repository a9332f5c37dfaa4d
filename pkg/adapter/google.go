package adapter

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/zen-systems/foodgate/pkg/food"
)

// GoogleAdapter implements the Adapter interface for Gemini models.
type GoogleAdapter struct {
	client *genai.Client
}

// NewGoogleAdapter creates a new Google Gemini adapter.
func NewGoogleAdapter(apiKey string) (*GoogleAdapter, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("google API key is required")
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create google client: %w", err)
	}

	return &GoogleAdapter{
		client: client,
	}, nil
}

// Name returns the adapter identifier.
func (a *GoogleAdapter) Name() string {
	return "google"
}

// Models returns the list of supported Gemini models.
func (a *GoogleAdapter) Models() []string {
	return []string{
		"gemini-2.0-flash",
		"gemini-2.0-pro",
	}
}

// contents translates the request's turns into Gemini contents. Gemini has
// no assistant role; those turns become the model role.
func (a *GoogleAdapter) contents(req Request) []*genai.Content {
	var contents []*genai.Content
	for _, m := range req.messages() {
		var role genai.Role = genai.RoleUser
		if m.Role == food.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Text, role))
	}
	return contents
}

func (a *GoogleAdapter) config(req Request) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.MaxOutputTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxOutputTokens)
	}
	return cfg
}

// Complete sends the conversation to Gemini and returns the full reply.
func (a *GoogleAdapter) Complete(ctx context.Context, req Request) (string, error) {
	resp, err := a.client.Models.GenerateContent(ctx, req.Model, a.contents(req), a.config(req))
	if err != nil {
		return "", fmt.Errorf("google API error: %w", err)
	}

	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("google returned no candidates")
	}

	var content string
	if resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			if part.Text != "" {
				content += part.Text
			}
		}
	}
	return content, nil
}

// CompleteStream sends the conversation to Gemini and emits each chunk's
// text as it arrives.
func (a *GoogleAdapter) CompleteStream(ctx context.Context, req Request, emit func(delta string) error) error {
	for resp, err := range a.client.Models.GenerateContentStream(ctx, req.Model, a.contents(req), a.config(req)) {
		if err != nil {
			return fmt.Errorf("google stream error: %w", err)
		}
		if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
			continue
		}
		for _, part := range resp.Candidates[0].Content.Parts {
			if part.Text == "" {
				continue
			}
			if err := emit(part.Text); err != nil {
				return err
			}
		}
	}
	return nil
}
