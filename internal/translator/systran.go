package translator

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	defaultSystranURL   = "https://api-systran-systran-translation-v1.p.rapidapi.com"
	systranRapidAPIHost = "api-systran-systran-translation-v1.p.rapidapi.com"
)

// SystranService calls Systran through RapidAPI. It sees chunks with their
// markup replaced by placeholders.
type SystranService struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewSystranService(apiKey string) *SystranService {
	return &SystranService{
		apiKey:  apiKey,
		baseURL: defaultSystranURL,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

func (s *SystranService) Name() string {
	return "systran"
}

type systranRequest struct {
	Text   []string `json:"text"`
	Source string   `json:"source"`
	Target string   `json:"target"`
	Format string   `json:"format"`
}

type systranResponse struct {
	Outputs []struct {
		Output string `json:"output"`
		Error  string `json:"error"`
	} `json:"outputs"`
}

func (s *SystranService) Translate(ctx context.Context, cfg ServiceConfig, req TranslateRequest) (*ServiceResult, error) {
	result := &ServiceResult{ServiceName: s.Name()}
	start := time.Now()
	defer func() { result.Latency = time.Since(start) }()

	apiKey := s.apiKey
	if apiKey == "" {
		apiKey = cfg.APIKey
	}
	if apiKey == "" {
		return fail(result, errors.New("Systran API key required"))
	}

	source := req.SourceLang
	if source == "" {
		source = "auto"
	}

	header := http.Header{}
	header.Set("X-RapidAPI-Key", apiKey)
	header.Set("X-RapidAPI-Host", systranRapidAPIHost)

	body := systranRequest{
		Text:   []string{req.Text},
		Source: source,
		Target: req.TargetLang,
		Format: "text",
	}
	var resp systranResponse
	if err := doJSON(ctx, s.client, s.Name(), http.MethodPost, s.baseURL+"/translation/text/translate", header, body, &resp); err != nil {
		return fail(result, err)
	}

	if len(resp.Outputs) == 0 {
		return fail(result, errors.New("empty translation response"))
	}
	out := resp.Outputs[0]
	if out.Error != "" {
		return fail(result, fmt.Errorf("Systran: %s", out.Error))
	}
	if strings.TrimSpace(out.Output) == "" {
		return fail(result, errors.New("empty translation response"))
	}

	result.TranslatedText = out.Output
	result.Confidence = 1.0
	return result, nil
}

func (s *SystranService) IsAvailable(ctx context.Context) error {
	if s.apiKey == "" {
		return fmt.Errorf("Systran API key not configured")
	}
	return nil
}

func (s *SystranService) SupportedLanguages(ctx context.Context) ([]string, error) {
	return []string{"en", "fr", "es", "de", "it", "pt", "ru", "zh", "ja", "ko", "ar"}, nil
}
