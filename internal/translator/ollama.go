package translator

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/valpere/texsplit/internal/postprocess"
)

var DefaultOllamaModels = []string{
	"llama3.2",
	"gemma2:2b",
	"qwen2.5:3b",
	"mistral:7b",
	"phi4:14b",
}

// OllamaTranslator sends chunks to a local Ollama chat endpoint, replaying
// the session history as earlier turns.
type OllamaTranslator struct {
	baseURL string
	models  []string
	client  *http.Client
}

func NewOllamaTranslator(baseURL string, models []string) *OllamaTranslator {
	if baseURL == "" {
		baseURL = DefaultOllamaURL
	}
	if len(models) == 0 {
		models = DefaultOllamaModels
	}
	return &OllamaTranslator{
		baseURL: baseURL,
		models:  models,
		client:  &http.Client{Timeout: 300 * time.Second},
	}
}

func (s *OllamaTranslator) Name() string {
	return "ollama"
}

// LaTeXAware reports that chunks reach Ollama with their markup intact.
func (s *OllamaTranslator) LaTeXAware() bool { return true }

func (s *OllamaTranslator) SetModels(models []string) {
	if len(models) > 0 {
		s.models = models
	}
}

func (s *OllamaTranslator) GetModels() []string {
	return s.models
}

type ollamaChatRequest struct {
	Model    string         `json:"model"`
	Messages []chatMessage  `json:"messages"`
	Stream   bool           `json:"stream"`
	Options  map[string]any `json:"options,omitempty"`
}

type ollamaChatResponse struct {
	Message         chatMessage `json:"message"`
	PromptEvalCount int         `json:"prompt_eval_count"`
	EvalCount       int         `json:"eval_count"`
}

func (s *OllamaTranslator) Translate(ctx context.Context, cfg ServiceConfig, req TranslateRequest) (*ServiceResult, error) {
	result := &ServiceResult{ServiceName: s.Name()}
	start := time.Now()
	defer func() { result.Latency = time.Since(start) }()

	model := cfg.Model
	if model == "" {
		model = pickModel(s.models, DefaultOllamaModels[0])
	}

	body := ollamaChatRequest{
		Model:    model,
		Messages: buildChatMessages(req),
		Options:  map[string]any{"temperature": 0.3},
	}
	var resp ollamaChatResponse
	if err := doJSON(ctx, s.client, s.Name(), http.MethodPost, s.baseURL+"/api/chat", nil, body, &resp); err != nil {
		return fail(result, err)
	}

	result.TranslatedText = postprocess.Clean(resp.Message.Content)
	result.Confidence = 0.7
	result.Metadata = usageMetadata(model, resp.PromptEvalCount, resp.EvalCount)
	return result, nil
}

func (s *OllamaTranslator) IsAvailable(ctx context.Context) error {
	if err := doJSON(ctx, s.client, s.Name(), http.MethodGet, s.baseURL+"/api/tags", nil, nil, nil); err != nil {
		return fmt.Errorf("Ollama not available: %w", err)
	}
	return nil
}

func (s *OllamaTranslator) SupportedLanguages(ctx context.Context) ([]string, error) {
	return []string{"en", "es", "fr", "de", "it", "pt", "ru", "zh", "ja", "ko", "ar", "uk"}, nil
}
