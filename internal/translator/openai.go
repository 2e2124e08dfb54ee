package translator

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/schema"

	"github.com/valpere/texsplit/internal/postprocess"
)

const (
	DefaultOpenAIModel = "gpt-4o-mini"
	DefaultGeminiModel = "gemini-2.5-flash"

	// GeminiBaseURL is Gemini's OpenAI-compatible endpoint.
	GeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"
)

// OpenAIService translates through any OpenAI-compatible chat completions
// endpoint using an eino chat model. The session history is replayed as
// prior user/assistant messages.
type OpenAIService struct {
	name    string
	apiKey  string
	baseURL string
	model   string
	timeout time.Duration
}

// NewOpenAIService creates a service reported under name. An empty baseURL
// means the official OpenAI endpoint.
func NewOpenAIService(name, apiKey, baseURL, model string) *OpenAIService {
	if name == "" {
		name = "openai"
	}
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAIService{
		name:    name,
		apiKey:  apiKey,
		baseURL: baseURL,
		model:   model,
		timeout: 180 * time.Second,
	}
}

// NewGeminiService is an OpenAIService pointed at Gemini.
func NewGeminiService(apiKey, model string) *OpenAIService {
	if model == "" {
		model = DefaultGeminiModel
	}
	return NewOpenAIService("gemini", apiKey, GeminiBaseURL, model)
}

func (s *OpenAIService) Name() string {
	return s.name
}

// LaTeXAware reports that chunks reach the model with their markup intact.
func (s *OpenAIService) LaTeXAware() bool { return true }

func (s *OpenAIService) Translate(ctx context.Context, cfg ServiceConfig, req TranslateRequest) (*ServiceResult, error) {
	result := &ServiceResult{ServiceName: s.Name()}
	start := time.Now()
	defer func() { result.Latency = time.Since(start) }()

	chatCfg := &openai.ChatModelConfig{
		Model:   s.model,
		APIKey:  s.apiKey,
		Timeout: s.timeout,
	}
	if cfg.Model != "" {
		chatCfg.Model = cfg.Model
	}
	if chatCfg.APIKey == "" {
		chatCfg.APIKey = cfg.APIKey
	}
	if chatCfg.APIKey == "" {
		return fail(result, fmt.Errorf("%s API key required", s.name))
	}
	if s.baseURL != "" {
		chatCfg.BaseURL = s.baseURL
	}
	if cfg.BaseURL != "" {
		chatCfg.BaseURL = cfg.BaseURL
	}
	if cfg.Timeout > 0 {
		chatCfg.Timeout = cfg.Timeout
	}
	temperature := float32(0.3)
	chatCfg.Temperature = &temperature

	chatModel, err := openai.NewChatModel(ctx, chatCfg)
	if err != nil {
		return fail(result, fmt.Errorf("failed to create chat model: %w", err))
	}

	resp, err := chatModel.Generate(ctx, toSchemaMessages(buildChatMessages(req)))
	if err != nil {
		return fail(result, fmt.Errorf("request failed: %w", err))
	}
	if resp == nil || resp.Content == "" {
		return fail(result, fmt.Errorf("empty response from %s model %s", s.name, chatCfg.Model))
	}

	result.TranslatedText = postprocess.Clean(resp.Content)
	result.Confidence = 0.8
	if meta := resp.ResponseMeta; meta != nil && meta.Usage != nil {
		result.Metadata = usageMetadata(chatCfg.Model, meta.Usage.PromptTokens, meta.Usage.CompletionTokens)
	} else {
		result.Metadata = map[string]string{"model": chatCfg.Model}
	}

	return result, nil
}

func (s *OpenAIService) IsAvailable(ctx context.Context) error {
	if s.apiKey == "" {
		return fmt.Errorf("%s API key not configured", s.name)
	}
	return nil
}

func (s *OpenAIService) SupportedLanguages(ctx context.Context) ([]string, error) {
	return []string{"en", "es", "fr", "de", "it", "pt", "ru", "zh", "ja", "ko", "ar", "uk"}, nil
}

func toSchemaMessages(msgs []chatMessage) []*schema.Message {
	out := make([]*schema.Message, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case "system":
			out = append(out, schema.SystemMessage(m.Content))
		case "assistant":
			out = append(out, schema.AssistantMessage(m.Content, nil))
		default:
			out = append(out, schema.UserMessage(m.Content))
		}
	}
	return out
}
