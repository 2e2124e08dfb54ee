// Package config loads texsplit settings from a config file, TEXSPLIT_*
// environment variables and command-line flags through viper.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/valpere/texsplit/internal/chunker"
)

const EnvPrefix = "TEXSPLIT"

type LLMConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
}

type GoogleConfig struct {
	Credentials string `mapstructure:"credentials"`
	ProjectID   string `mapstructure:"project_id"`
	APIKey      string `mapstructure:"api_key"`
}

type OllamaConfig struct {
	URL    string   `mapstructure:"url"`
	Models []string `mapstructure:"models"`
}

type OpenRouterConfig struct {
	APIKey string   `mapstructure:"api_key"`
	Models []string `mapstructure:"models"`
}

// StageConfig configures the Ollama-backed arbiter or refiner.
type StageConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Model   string `mapstructure:"model"`
	URL     string `mapstructure:"url"`
}

type ServerConfig struct {
	Addr         string `mapstructure:"addr"`
	APIKey       string `mapstructure:"api_key"`
	MaxBodyBytes int64  `mapstructure:"max_body_bytes"`
}

type Config struct {
	DB       string `mapstructure:"db"`
	NoCache  bool   `mapstructure:"no_cache"`
	LogLevel string `mapstructure:"log_level"`

	Source    string   `mapstructure:"source"`
	Target    string   `mapstructure:"target"`
	ChunkSize int      `mapstructure:"chunk_size"`
	Services  []string `mapstructure:"services"`
	Strategy  string   `mapstructure:"strategy"`
	Parallel  int      `mapstructure:"parallel"`
	MaxChunks int      `mapstructure:"max_chunks"`

	MaxRetries       int           `mapstructure:"max_retries"`
	RetryDelay       time.Duration `mapstructure:"retry_delay"`
	Timeout          time.Duration `mapstructure:"timeout"`
	StrictValidation bool          `mapstructure:"strict_validation"`
	SkipValidation   bool          `mapstructure:"skip_validation"`

	HistoryTurns  int    `mapstructure:"history_turns"`
	ContextWords  int    `mapstructure:"context_words"`
	Instructions  string `mapstructure:"instructions"`
	StripComments bool   `mapstructure:"strip_comments"`
	MergeLines    bool   `mapstructure:"merge_lines"`

	Google     GoogleConfig     `mapstructure:"google"`
	OpenAI     LLMConfig        `mapstructure:"openai"`
	Gemini     LLMConfig        `mapstructure:"gemini"`
	Ollama     OllamaConfig     `mapstructure:"ollama"`
	OpenRouter OpenRouterConfig `mapstructure:"openrouter"`
	Systran    LLMConfig        `mapstructure:"systran"`
	MyMemory   struct {
		Email string `mapstructure:"email"`
	} `mapstructure:"mymemory"`

	Arbiter StageConfig  `mapstructure:"arbiter"`
	Refiner StageConfig  `mapstructure:"refiner"`
	Server  ServerConfig `mapstructure:"server"`
}

// Strategies lists the accepted values of Config.Strategy.
var Strategies = []string{"fallback", "arbiter"}

// Services lists the translation service names buildable from a Config.
var Services = []string{"google", "mymemory", "systran", "ollama", "openrouter", "openai", "gemini"}

// SetDefaults registers every key with its default so that environment
// variables are seen by Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("db", defaultDBPath())
	v.SetDefault("no_cache", false)
	v.SetDefault("log_level", "info")

	v.SetDefault("source", "auto")
	v.SetDefault("target", "")
	v.SetDefault("chunk_size", chunker.DefaultMaxChars)
	v.SetDefault("services", []string{"openai"})
	v.SetDefault("strategy", "fallback")
	v.SetDefault("parallel", 1)
	v.SetDefault("max_chunks", 0)

	v.SetDefault("max_retries", 3)
	v.SetDefault("retry_delay", 2*time.Second)
	v.SetDefault("timeout", 2*time.Minute)
	v.SetDefault("strict_validation", false)
	v.SetDefault("skip_validation", false)

	v.SetDefault("history_turns", 2)
	v.SetDefault("context_words", chunker.DefaultContextWords)
	v.SetDefault("instructions", "")
	v.SetDefault("strip_comments", false)
	v.SetDefault("merge_lines", false)

	v.SetDefault("google.credentials", "")
	v.SetDefault("google.project_id", "")
	v.SetDefault("google.api_key", "")
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.base_url", "")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.base_url", "")
	v.SetDefault("gemini.model", "gemini-2.5-flash")
	v.SetDefault("ollama.url", "http://localhost:11434")
	v.SetDefault("ollama.models", []string{})
	v.SetDefault("openrouter.api_key", "")
	v.SetDefault("openrouter.models", []string{})
	v.SetDefault("systran.api_key", "")
	v.SetDefault("systran.base_url", "")
	v.SetDefault("mymemory.email", "")

	v.SetDefault("arbiter.enabled", false)
	v.SetDefault("arbiter.model", "llama3.2")
	v.SetDefault("arbiter.url", "http://localhost:11434")
	v.SetDefault("refiner.enabled", false)
	v.SetDefault("refiner.model", "llama3.2")
	v.SetDefault("refiner.url", "http://localhost:11434")

	v.SetDefault("server.addr", ":8090")
	v.SetDefault("server.api_key", "")
	v.SetDefault("server.max_body_bytes", int64(10<<20))
}

// BindEnv maps TEXSPLIT_* variables onto keys ("openai.api_key" reads
// TEXSPLIT_OPENAI_API_KEY) and accepts the providers' usual variables for
// credentials.
func BindEnv(v *viper.Viper) error {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	aliases := map[string][]string{
		"openai.api_key":     {"TEXSPLIT_OPENAI_API_KEY", "OPENAI_API_KEY"},
		"gemini.api_key":     {"TEXSPLIT_GEMINI_API_KEY", "GEMINI_API_KEY"},
		"openrouter.api_key": {"TEXSPLIT_OPENROUTER_API_KEY", "OPENROUTER_API_KEY"},
		"systran.api_key":    {"TEXSPLIT_SYSTRAN_API_KEY", "SYSTRAN_API_KEY"},
		"google.credentials": {"TEXSPLIT_GOOGLE_CREDENTIALS", "GOOGLE_APPLICATION_CREDENTIALS"},
		"google.project_id":  {"TEXSPLIT_GOOGLE_PROJECT_ID", "GOOGLE_CLOUD_PROJECT"},
		"ollama.url":         {"TEXSPLIT_OLLAMA_URL", "OLLAMA_HOST"},
	}
	for key, names := range aliases {
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return fmt.Errorf("bind %s: %w", key, err)
		}
	}
	return nil
}

// Load decodes the settings held by v.
func Load(v *viper.Viper) (Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	c.Services = splitList(c.Services)
	c.Ollama.Models = splitList(c.Ollama.Models)
	c.OpenRouter.Models = splitList(c.OpenRouter.Models)
	return c, nil
}

// Validate checks settings shared by every command.
func (c Config) Validate() error {
	if c.ChunkSize < 0 {
		return fmt.Errorf("chunk size must not be negative, got %d", c.ChunkSize)
	}
	if c.Parallel < 0 {
		return fmt.Errorf("parallel must not be negative, got %d", c.Parallel)
	}
	if c.MaxChunks < 0 {
		return fmt.Errorf("max chunks must not be negative, got %d", c.MaxChunks)
	}
	if c.MaxRetries < 1 {
		return fmt.Errorf("max retries must be at least 1, got %d", c.MaxRetries)
	}
	if !slices.Contains(Strategies, c.Strategy) {
		return fmt.Errorf("unknown strategy %q (want one of %s)", c.Strategy, strings.Join(Strategies, ", "))
	}
	if c.StrictValidation && c.SkipValidation {
		return fmt.Errorf("strict and skipped validation are mutually exclusive")
	}
	for _, s := range c.Services {
		if !slices.Contains(Services, s) {
			return fmt.Errorf("unknown service %q (want one of %s)", s, strings.Join(Services, ", "))
		}
	}
	return nil
}

// ValidateTranslate additionally requires what a translation run needs.
func (c Config) ValidateTranslate() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Target == "" {
		return fmt.Errorf("target language is required")
	}
	if len(c.Services) == 0 {
		return fmt.Errorf("at least one translation service is required")
	}
	return nil
}

// splitList flattens comma-separated entries, as environment variables
// deliver lists as a single string.
func splitList(items []string) []string {
	var out []string
	for _, item := range items {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func defaultDBPath() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "texsplit", "texsplit.db")
	}
	return filepath.Join("data", "texsplit.db")
}
