package translator

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// DefaultOllamaURL is where a local Ollama listens.
const DefaultOllamaURL = "http://localhost:11434"

// Generator runs single-prompt completions against Ollama's /api/generate.
// The arbiter and the refiner use it; translation itself goes through the
// chat endpoint so session history can be replayed.
type Generator struct {
	model       string
	baseURL     string
	client      *http.Client
	temperature float64
	format      string
}

// NewGenerator creates a Generator for model. An empty baseURL means
// DefaultOllamaURL.
func NewGenerator(model, baseURL string, timeout time.Duration) *Generator {
	if baseURL == "" {
		baseURL = DefaultOllamaURL
	}
	return &Generator{
		model:       model,
		baseURL:     baseURL,
		client:      &http.Client{Timeout: timeout},
		temperature: 0.2,
	}
}

// WithJSON returns a copy of g that asks Ollama for a JSON object.
func (g *Generator) WithJSON() *Generator {
	c := *g
	c.format = "json"
	return &c
}

// Model is the model prompts are sent to.
func (g *Generator) Model() string { return g.model }

type generateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Format  string         `json:"format,omitempty"`
	Options map[string]any `json:"options,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// Generate returns the raw completion of prompt.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	body := generateRequest{
		Model:   g.model,
		Prompt:  prompt,
		Format:  g.format,
		Options: map[string]any{"temperature": g.temperature},
	}
	var resp generateResponse
	if err := doJSON(ctx, g.client, "ollama", http.MethodPost, g.baseURL+"/api/generate", nil, body, &resp); err != nil {
		return "", fmt.Errorf("generate with %s: %w", g.model, err)
	}
	return resp.Response, nil
}
