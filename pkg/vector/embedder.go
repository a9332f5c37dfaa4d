package vector

import (
	"context"
	"fmt"
	"hash/fnv"

	"google.golang.org/genai"
)

// queryPrefix follows the e5 convention the packs were embedded with:
// queries and passages are prefixed differently.
const queryPrefix = "query: "

// GeminiEmbedder embeds query text through the Gemini embedding API.
type GeminiEmbedder struct {
	client *genai.Client
	model  string
}

// NewGeminiEmbedder creates an embedder backed by the given embedding model.
func NewGeminiEmbedder(apiKey, model string) (*GeminiEmbedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &GeminiEmbedder{client: client, model: model}, nil
}

// EmbedText embeds one query string.
func (e *GeminiEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	contents := []*genai.Content{genai.NewContentFromText(queryPrefix+text, genai.RoleUser)}
	resp, err := e.client.Models.EmbedContent(ctx, e.model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("gemini embed error: %w", err)
	}
	if resp == nil || len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Values) == 0 {
		return nil, fmt.Errorf("gemini returned no embedding")
	}
	return resp.Embeddings[0].Values, nil
}

// MockEmbedder produces deterministic unit vectors from a text hash, for
// tests and offline runs.
type MockEmbedder struct {
	Dim int
}

// EmbedText generates the deterministic vector for text.
func (m *MockEmbedder) EmbedText(_ context.Context, text string) ([]float32, error) {
	dim := m.Dim
	if dim == 0 {
		dim = 8
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(text))
	seed := h.Sum32()

	v := make([]float32, dim)
	for i := range v {
		seed = seed*1664525 + 1013904223
		v[i] = float32(seed%1000)/1000.0 - 0.5
	}
	return normalize(v), nil
}
