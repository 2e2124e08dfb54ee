package translator

import (
	"context"
	"time"
)

type ServiceConfig struct {
	Credentials string        `mapstructure:"credentials" json:"credentials"`
	APIKey      string        `mapstructure:"api_key" json:"api_key"`
	Model       string        `mapstructure:"model" json:"model"`
	BaseURL     string        `mapstructure:"base_url" json:"base_url"`
	Timeout     time.Duration `mapstructure:"timeout" json:"timeout"`
	ProjectID   string        `mapstructure:"project_id" json:"project_id"`
}

// Turn is one completed exchange of a translation session.
type Turn struct {
	Source      string `json:"source"`
	Translation string `json:"translation"`
}

type TranslateRequest struct {
	Text       string `json:"text"`
	SourceLang string `json:"source_lang"`
	TargetLang string `json:"target_lang"`

	// PreviousContext is the tail of the previous chunk, for services that
	// keep no conversation.
	PreviousContext string            `json:"previous_context,omitempty"`
	GlossaryTerms   map[string]string `json:"glossary_terms,omitempty"`
	Instructions    string            `json:"instructions,omitempty"`
	// History holds earlier turns of the session, oldest first. Chat
	// services replay it as prior messages.
	History []Turn `json:"history,omitempty"`
}

type ServiceResult struct {
	ServiceName    string            `json:"service_name"`
	TranslatedText string            `json:"translated_text"`
	Confidence     float64           `json:"confidence"`
	Metadata       map[string]string `json:"metadata"`
	Latency        time.Duration     `json:"latency"`
	Error          string            `json:"error,omitempty"`
}

type TranslationService interface {
	Name() string
	Translate(ctx context.Context, cfg ServiceConfig, req TranslateRequest) (*ServiceResult, error)
	IsAvailable(ctx context.Context) error
	SupportedLanguages(ctx context.Context) ([]string, error)
}

// LaTeXAware is implemented by services that are instructed to keep LaTeX
// markup intact. Chunks sent to any other service have their markup replaced
// by placeholders first.
type LaTeXAware interface {
	LaTeXAware() bool
}

// IsLaTeXAware reports whether svc can receive raw LaTeX.
func IsLaTeXAware(svc TranslationService) bool {
	aware, ok := svc.(LaTeXAware)
	return ok && aware.LaTeXAware()
}
