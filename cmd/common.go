/*
Copyright © 2025 Valentyn Solomko <valentyn.solomko@gmail.com>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/valpere/texsplit/internal/arbiter"
	"github.com/valpere/texsplit/internal/config"
	"github.com/valpere/texsplit/internal/orchestrator"
	"github.com/valpere/texsplit/internal/refiner"
	"github.com/valpere/texsplit/internal/store"
	"github.com/valpere/texsplit/internal/translator"
)

var (
	defaultOllamaModels = []string{
		"gemma2:27b", "aya:35b", "mixtral:8x7b", "qwen3:14b",
		"gemma3:12b-it-qat", "phi4:14b-q4_K_M", "llama3.1:8b", "mistral:7b",
	}
	defaultOpenRouterModels = []string{
		"google/gemini-2.5-flash-preview:free",
		"qwen/qwen2.5-72b-instruct:free",
		"mistralai/mistral-nemo:free",
		"meta-llama/llama-3.1-8b-instruct:free",
	}
)

// buildServices constructs the translation services named in c, in order.
func buildServices(c config.Config) ([]translator.TranslationService, error) {
	ollamaModels := c.Ollama.Models
	if len(ollamaModels) == 0 {
		ollamaModels = defaultOllamaModels
	}
	openrouterModels := c.OpenRouter.Models
	if len(openrouterModels) == 0 {
		openrouterModels = defaultOpenRouterModels
	}

	var list []translator.TranslationService
	for _, name := range c.Services {
		switch name {
		case "google":
			list = append(list, translator.NewGoogleService())
		case "systran":
			list = append(list, translator.NewSystranService(c.Systran.APIKey))
		case "mymemory":
			list = append(list, translator.NewMyMemoryService(c.MyMemory.Email))
		case "ollama":
			list = append(list, translator.NewOllamaTranslator(c.Ollama.URL, ollamaModels))
		case "openrouter":
			list = append(list, translator.NewOpenRouterService(c.OpenRouter.APIKey, "", openrouterModels))
		case "openai":
			list = append(list, translator.NewOpenAIService("openai", c.OpenAI.APIKey, c.OpenAI.BaseURL, c.OpenAI.Model))
		case "gemini":
			list = append(list, translator.NewGeminiService(c.Gemini.APIKey, c.Gemini.Model))
		default:
			logger.Warn("unknown service, skipping", "service", name)
		}
	}

	if len(list) == 0 {
		return nil, fmt.Errorf("no valid services configured")
	}
	return list, nil
}

// buildOrchestrator wires services, the optional arbiter and the optional
// refiner into the chunk translator used by the pipeline.
func buildOrchestrator(c config.Config, services []translator.TranslationService) *orchestrator.Orchestrator {
	oc := orchestrator.OrchestratorConfig{
		Timeout:          c.Timeout,
		MinServices:      1,
		MaxAttempts:      c.MaxRetries,
		RetryDelay:       c.RetryDelay,
		StrictValidation: c.StrictValidation,
		SkipValidation:   c.SkipValidation,
		Strategy:         orchestrator.Strategy(c.Strategy),
		Service: translator.ServiceConfig{
			Credentials: c.Google.Credentials,
			ProjectID:   c.Google.ProjectID,
			APIKey:      c.Google.APIKey,
			Timeout:     c.Timeout,
		},
		Logger: logger,
	}
	if c.Arbiter.Enabled {
		oc.Strategy = orchestrator.StrategyArbiter
		oc.Arbiter = arbiter.NewOllamaArbiter(c.Arbiter.Model, c.Arbiter.URL)
	}
	if c.Refiner.Enabled {
		oc.Refiner = refiner.NewOllamaRefiner(c.Refiner.Model, c.Refiner.URL)
	}
	return orchestrator.New(services, oc)
}

func sessionOptions(c config.Config, runID, source string, glossary map[string]string) translator.SessionOptions {
	return translator.SessionOptions{
		ID:           runID,
		SourceLang:   source,
		TargetLang:   c.Target,
		Glossary:     glossary,
		Instructions: c.Instructions,
		HistoryTurns: c.HistoryTurns,
		ContextWords: c.ContextWords,
	}
}

// openStore opens the SQLite database at path, creating its directory.
func openStore(path string) (*store.Store, error) {
	if path == "" {
		return nil, fmt.Errorf("database path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	return store.New(path)
}

// openCommandStore opens the database named by the --db flag of cmd or the
// configuration.
func openCommandStore(cmd *cobra.Command) (*store.Store, error) {
	c, err := loadConfig(cmd, "db")
	if err != nil {
		return nil, err
	}
	return openStore(c.DB)
}

// storeRunE adapts fn into a RunE that opens the configured database
// around it.
func storeRunE(fn func(cmd *cobra.Command, args []string, db *store.Store) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		db, err := openCommandStore(cmd)
		if err != nil {
			return err
		}
		defer db.Close()
		return fn(cmd, args, db)
	}
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
