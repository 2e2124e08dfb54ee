package translator

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/valpere/texsplit/internal/postprocess"
)

var DefaultOpenRouterModels = []string{
	"google/gemini-2.0-flash-exp:free",
	"qwen/qwen2.5-72b-instruct:free",
	"mistralai/mistral-nemo:free",
	"meta-llama/llama-3.1-8b-instruct:free",
}

const defaultOpenRouterURL = "https://openrouter.ai/api/v1"

// OpenRouterService calls the OpenRouter chat completions API, picking a
// model from its rotation per request.
type OpenRouterService struct {
	apiKey  string
	baseURL string
	models  []string
	client  *http.Client
}

func NewOpenRouterService(apiKey string, baseURL string, models []string) *OpenRouterService {
	if baseURL == "" {
		baseURL = defaultOpenRouterURL
	}
	if len(models) == 0 {
		models = DefaultOpenRouterModels
	}
	return &OpenRouterService{
		apiKey:  apiKey,
		baseURL: baseURL,
		models:  models,
		client:  &http.Client{Timeout: 180 * time.Second},
	}
}

func (s *OpenRouterService) Name() string {
	return "openrouter"
}

// LaTeXAware reports that chunks reach OpenRouter with their markup intact.
func (s *OpenRouterService) LaTeXAware() bool { return true }

func (s *OpenRouterService) SetModels(models []string) {
	if len(models) > 0 {
		s.models = models
	}
}

func (s *OpenRouterService) GetModels() []string {
	return s.models
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

func (s *OpenRouterService) Translate(ctx context.Context, cfg ServiceConfig, req TranslateRequest) (*ServiceResult, error) {
	result := &ServiceResult{ServiceName: s.Name()}
	start := time.Now()
	defer func() { result.Latency = time.Since(start) }()

	apiKey := s.apiKey
	if apiKey == "" {
		apiKey = cfg.APIKey
	}
	if apiKey == "" {
		return fail(result, errors.New("OpenRouter API key required"))
	}

	model := cfg.Model
	if model == "" {
		model = pickModel(s.models, DefaultOpenRouterModels[0])
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+apiKey)
	header.Set("HTTP-Referer", "https://github.com/valpere/texsplit")
	header.Set("X-Title", "texsplit")

	body := chatCompletionRequest{
		Model:       model,
		Messages:    buildChatMessages(req),
		MaxTokens:   8192,
		Temperature: 0.3,
	}
	var resp chatCompletionResponse
	if err := doJSON(ctx, s.client, s.Name(), http.MethodPost, s.baseURL+"/chat/completions", header, body, &resp); err != nil {
		return fail(result, err)
	}
	if len(resp.Choices) == 0 {
		return fail(result, fmt.Errorf("empty response from %s model %s", s.Name(), model))
	}

	result.TranslatedText = postprocess.Clean(resp.Choices[0].Message.Content)
	result.Confidence = 0.7
	result.Metadata = usageMetadata(model, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
	return result, nil
}

func (s *OpenRouterService) IsAvailable(ctx context.Context) error {
	if s.apiKey == "" {
		return fmt.Errorf("OpenRouter API key not configured")
	}
	return nil
}

func (s *OpenRouterService) SupportedLanguages(ctx context.Context) ([]string, error) {
	return []string{"en", "es", "fr", "de", "it", "pt", "ru", "zh", "ja", "ko", "ar", "uk"}, nil
}
