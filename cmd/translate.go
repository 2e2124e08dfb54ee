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
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/valpere/texsplit/internal"
	"github.com/valpere/texsplit/internal/chunker"
	"github.com/valpere/texsplit/internal/config"
	"github.com/valpere/texsplit/internal/detector"
	"github.com/valpere/texsplit/internal/pipeline"
	"github.com/valpere/texsplit/internal/store"
	"github.com/valpere/texsplit/internal/translator"
)

var (
	inputFile  string
	outputFile string
	resumeRun  string
)

var translateFlags = []string{
	"db", "no-cache", "source", "target", "chunk-size", "services", "strategy",
	"parallel", "max-chunks", "max-retries", "timeout", "strict-validation",
	"skip-validation", "history-turns", "instructions", "strip-comments",
	"merge-lines", "arbiter", "arbiter-model", "refine", "refiner-model", "ollama-url",
}

var translateCmd = &cobra.Command{
	Use:   "translate",
	Short: "Translate a LaTeX document chunk by chunk",
	Long: `Translate the body of a LaTeX document. The body is split at safe boundaries,
each chunk is translated by the configured services, and the chunks are put
back into the untouched preamble. The output file is written only when every
chunk has been translated.

Available services:
  - openai      OpenAI chat models (requires API key)
  - gemini      Gemini through its OpenAI-compatible endpoint (requires API key)
  - ollama      Ollama LLM (self-hosted)
  - openrouter  OpenRouter LLM (requires API key)
  - google      Google Translate (requires credentials)
  - systran     Systran Translate (requires API key)
  - mymemory    MyMemory (free, 5000 chars/day)

Progress is checkpointed. A failed or interrupted run can be continued with
--resume <run-id>; "texsplit runs list" shows the runs.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadConfig(cmd, translateFlags...)
		if err != nil {
			return err
		}
		if err := c.ValidateTranslate(); err != nil {
			return err
		}
		if inputFile == outputFile {
			return fmt.Errorf("input file and output file cannot be the same")
		}

		raw, err := os.ReadFile(inputFile)
		if err != nil {
			return fmt.Errorf("failed to read input file: %w", err)
		}
		return runTranslate(cmd.Context(), c, string(raw))
	},
}

func runTranslate(ctx context.Context, c config.Config, source string) error {
	services, err := buildServices(c)
	if err != nil {
		return err
	}

	db, err := openStore(c.DB)
	if err != nil {
		return err
	}
	defer db.Close()

	popts := pipeline.Options{
		MaxChars:      c.ChunkSize,
		StripComments: c.StripComments,
		MergeLines:    c.MergeLines,
		MaxChunks:     c.MaxChunks,
		Parallel:      c.Parallel,
		Checkpoint:    db,
		Progress:      reportProgress,
		Logger:        logger,
	}
	// A nil *store.Store would not be a nil pipeline.Memory.
	if !c.NoCache {
		popts.Memory = db
	}
	p := pipeline.New(buildOrchestrator(c, services), popts)

	doc, err := chunker.Split(p.Prepare(source), c.ChunkSize)
	if err != nil {
		return err
	}

	if resumeRun == "" && (c.Source == "" || c.Source == "auto") {
		c.Source = detectSource(doc.Body())
	}
	run, err := startRun(ctx, db, c, sourceHash(source), len(doc.Chunks))
	if err != nil {
		return err
	}

	glossary, err := db.GetGlossaryTerms(ctx, run.SourceLang, run.TargetLang)
	if err != nil {
		logger.Warn("glossary unavailable", "error", err)
	}

	sess := translator.Open(sessionOptions(c, run.ID, run.SourceLang, glossary))
	defer sess.Close()

	logger.Info("translating", "run", run.ID, "chunks", len(doc.Chunks),
		"source", run.SourceLang, "target", run.TargetLang, "services", c.Services)

	translated, err := p.TranslateDocument(ctx, doc, sess)
	if err == nil {
		var out string
		if out, err = doc.Reassemble(translated); err == nil {
			err = writeFile(outputFile, []byte(out))
		}
	}

	// The run outcome is stored even when ctx was cancelled.
	if ferr := db.FinishRun(context.WithoutCancel(ctx), run.ID, err); ferr != nil {
		logger.Warn("failed to record run outcome", "run", run.ID, "error", ferr)
	}
	if err != nil {
		var chunkErr *pipeline.ChunkError
		if errors.As(err, &chunkErr) || errors.Is(err, context.Canceled) {
			fmt.Fprintf(os.Stderr, "Continue with: texsplit translate -i %s -o %s --resume %s\n", inputFile, outputFile, run.ID)
		}
		return err
	}

	usage := sess.Usage()
	fmt.Printf("Successfully translated %s to %s\n", run.SourceLang, run.TargetLang)
	fmt.Printf("Chunks: %d, run: %s\n", len(doc.Chunks), run.ID)
	if usage.PromptTokens+usage.CompletionTokens > 0 {
		fmt.Printf("Tokens: %d prompt, %d completion\n", usage.PromptTokens, usage.CompletionTokens)
	}
	return nil
}

// startRun creates a run, or reopens the one named by --resume after making
// sure it was started on the same input with the same settings.
func startRun(ctx context.Context, db *store.Store, c config.Config, hash string, chunks int) (*internal.Run, error) {
	if resumeRun == "" {
		run := internal.Run{
			InputFile:  inputFile,
			OutputFile: outputFile,
			SourceLang: c.Source,
			TargetLang: c.Target,
			SourceHash: hash,
			ChunkSize:  c.ChunkSize,
			ChunkCount: chunks,
		}
		id, err := db.CreateRun(ctx, run)
		if err != nil {
			return nil, fmt.Errorf("failed to create run: %w", err)
		}
		run.ID = id
		return &run, nil
	}

	run, err := db.GetRun(ctx, resumeRun)
	if err != nil {
		return nil, err
	}
	switch {
	case run.Status == internal.RunCompleted:
		return nil, fmt.Errorf("run %s is already completed", run.ID)
	case run.SourceHash != hash:
		return nil, fmt.Errorf("run %s was started on a different input", run.ID)
	case run.ChunkCount != chunks || run.ChunkSize != c.ChunkSize:
		return nil, fmt.Errorf("run %s split the input into %d chunks of %d, now %d of %d",
			run.ID, run.ChunkCount, run.ChunkSize, chunks, c.ChunkSize)
	case run.TargetLang != c.Target:
		return nil, fmt.Errorf("run %s translates to %s, not %s", run.ID, run.TargetLang, c.Target)
	}
	if err := db.ReopenRun(ctx, run.ID); err != nil {
		return nil, err
	}
	logger.Info("resuming run", "run", run.ID, "done", run.Done, "chunks", run.ChunkCount)
	return run, nil
}

func detectSource(body string) string {
	if code, ok := detector.New().DetectLaTeX(body); ok {
		fmt.Fprintf(os.Stderr, "Detected source language: %s\n", code)
		return code
	}
	return "auto"
}

func reportProgress(e pipeline.Event) {
	logger.Info("chunk done", "chunk", e.Index+1, "of", e.Total, "origin", e.Origin,
		"prompt_tokens", e.Usage.PromptTokens, "completion_tokens", e.Usage.CompletionTokens)
}

func sourceHash(source string) string {
	sum := sha256.Sum256([]byte(source))
	return hex.EncodeToString(sum[:])
}

func init() {
	rootCmd.AddCommand(translateCmd)

	f := translateCmd.Flags()
	f.StringVarP(&inputFile, "input", "i", "", "Input LaTeX file (required)")
	f.StringVarP(&outputFile, "output", "o", "", "Output LaTeX file (required)")
	f.StringVar(&resumeRun, "resume", "", "Continue the run with this ID")

	f.StringP("source", "s", "auto", "Source language code")
	f.StringP("target", "t", "", "Target language code (required)")
	f.IntP("chunk-size", "n", chunker.DefaultMaxChars, "Chunk length in characters at which a chunk is closed")
	f.StringSlice("services", []string{"openai"}, "Translation services to use (comma-separated)")
	f.String("strategy", "fallback", "How candidates are chosen: fallback or arbiter")
	f.Int("parallel", 1, "Chunks translated at once (stateless sessions only)")
	f.Int("max-chunks", 0, "Translate only the first N chunks (0 = all)")
	f.Int("max-retries", 3, "Total attempts per service including the first (1 = no retries)")
	f.Duration("timeout", 0, "Timeout of a single service call")
	f.Bool("strict-validation", false, "Reject translations not in the target language")
	f.Bool("skip-validation", false, "Skip the target language check")
	f.Int("history-turns", 2, "Earlier chunks replayed to chat services (0 = stateless)")
	f.String("instructions", "", "Extra instructions for LLM services")
	f.Bool("strip-comments", false, "Remove % comments before splitting")
	f.Bool("merge-lines", false, "Join soft-wrapped prose lines before splitting")

	f.Bool("arbiter", false, "Ask every service and let an LLM arbiter choose")
	f.String("arbiter-model", "llama3.2", "Arbiter model name")
	f.Bool("refine", false, "Run a refinement pass over each translated chunk")
	f.String("refiner-model", "llama3.2", "Refiner model name")
	f.String("ollama-url", "http://localhost:11434", "Ollama base URL")

	f.String("db", "", "Database path for translation memory and runs")
	f.Bool("no-cache", false, "Disable translation memory")

	translateCmd.MarkFlagRequired("input")
	translateCmd.MarkFlagRequired("output")
}
