package translator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	translate "cloud.google.com/go/translate"
	"golang.org/x/text/language"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// GoogleService calls Google Cloud Translation (v2). One client is kept and
// reused for as long as the credentials stay the same.
type GoogleService struct {
	mu     sync.Mutex
	client *translate.Client
	auth   string
}

func NewGoogleService() *GoogleService {
	return &GoogleService{}
}

func (s *GoogleService) Name() string {
	return "google"
}

func (s *GoogleService) clientFor(ctx context.Context, cfg ServiceConfig) (*translate.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	auth := cfg.Credentials + "\x00" + cfg.APIKey
	if s.client != nil && s.auth == auth {
		return s.client, nil
	}

	var opts []option.ClientOption
	if cfg.Credentials != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.Credentials))
	}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	// The client outlives this call; token refresh must not see its deadline.
	client, err := translate.NewClient(context.WithoutCancel(ctx), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	if s.client != nil {
		s.client.Close()
	}
	s.client, s.auth = client, auth
	return client, nil
}

// Close releases the cached client.
func (s *GoogleService) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client == nil {
		return nil
	}
	err := s.client.Close()
	s.client = nil
	return err
}

func (s *GoogleService) Translate(ctx context.Context, cfg ServiceConfig, req TranslateRequest) (*ServiceResult, error) {
	result := &ServiceResult{ServiceName: s.Name()}
	start := time.Now()
	defer func() { result.Latency = time.Since(start) }()

	target, err := language.Parse(req.TargetLang)
	if err != nil {
		return fail(result, fmt.Errorf("invalid target language: %w", err))
	}
	opts := &translate.Options{Format: translate.Text}
	if req.SourceLang != "" && req.SourceLang != "auto" {
		source, err := language.Parse(req.SourceLang)
		if err != nil {
			return fail(result, fmt.Errorf("invalid source language: %w", err))
		}
		opts.Source = source
	}

	client, err := s.clientFor(ctx, cfg)
	if err != nil {
		return fail(result, err)
	}

	translations, err := client.Translate(ctx, []string{req.Text}, target, opts)
	if err != nil {
		return fail(result, s.apiError(err))
	}
	if len(translations) == 0 {
		return fail(result, errors.New("no translation returned"))
	}

	result.TranslatedText = translations[0].Text
	result.Confidence = 1.0
	if translations[0].Source != language.Und {
		result.Metadata = map[string]string{"detected_source": translations[0].Source.String()}
	}
	return result, nil
}

// apiError turns HTTP failures into StatusError so that rejected
// credentials are not retried.
func (s *GoogleService) apiError(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return &StatusError{Service: s.Name(), Code: gerr.Code, Body: gerr.Message}
	}
	return fmt.Errorf("translation failed: %w", err)
}

func (s *GoogleService) IsAvailable(ctx context.Context) error {
	return nil
}

// SupportedLanguages asks the API for its target languages. It needs the
// credentials from the environment.
func (s *GoogleService) SupportedLanguages(ctx context.Context) ([]string, error) {
	client, err := s.clientFor(ctx, ServiceConfig{})
	if err != nil {
		return nil, err
	}
	langs, err := client.SupportedLanguages(ctx, language.English)
	if err != nil {
		return nil, s.apiError(err)
	}
	codes := make([]string, 0, len(langs))
	for _, l := range langs {
		codes = append(codes, l.Tag.String())
	}
	return codes, nil
}
