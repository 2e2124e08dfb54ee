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
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/valpere/texsplit/internal/chunker"
	"github.com/valpere/texsplit/internal/detector"
	"github.com/valpere/texsplit/internal/pipeline"
	"github.com/valpere/texsplit/internal/server"
)

var serveFlags = []string{
	"addr", "api-key", "db", "no-cache", "services", "strategy", "chunk-size",
	"max-retries", "timeout", "history-turns", "instructions", "arbiter", "refine",
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve split, merge and translate over HTTP",
	Long: `Start the HTTP API.

  GET  /health
  POST /api/split      {"text", "chunk_size"}       -> {"template", "chunks"}
  POST /api/merge      {"template", "chunks"}       -> {"document"}
  POST /api/translate  {"text", "source", "target"} -> {"document", "run_id"}

/api/translate uses the configured services and is disabled when none can be
built. Set server.api_key (TEXSPLIT_SERVER_API_KEY) to require a bearer token.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadConfig(cmd, serveFlags...)
		if err != nil {
			return err
		}

		opts := server.Options{
			APIKey:       c.Server.APIKey,
			MaxBodyBytes: c.Server.MaxBodyBytes,
			ChunkSize:    c.ChunkSize,
			Pipeline: pipeline.Options{
				StripComments: c.StripComments,
				MergeLines:    c.MergeLines,
				MaxChunks:     c.MaxChunks,
				Parallel:      c.Parallel,
			},
			Session: sessionOptions(c, "", "", nil),
		}

		var tr pipeline.Translator
		if services, err := buildServices(c); err != nil {
			logger.Warn("translation disabled", "error", err)
		} else {
			tr = buildOrchestrator(c, services)
			det := detector.New()
			opts.Detect = det.DetectLaTeX
		}

		if tr != nil && !c.NoCache {
			db, err := openStore(c.DB)
			if err != nil {
				return err
			}
			defer db.Close()
			opts.Pipeline.Memory = db
		}

		httpServer := &http.Server{
			Addr:              c.Server.Addr,
			Handler:           server.New(tr, opts, logger),
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       60 * time.Second,
		}

		ctx := cmd.Context()
		go func() {
			<-ctx.Done()
			logger.Info("shutting down...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			httpServer.Shutdown(shutdownCtx)
		}()

		logger.Info("starting texsplit server", "addr", c.Server.Addr, "translate", tr != nil)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	f := serveCmd.Flags()
	f.String("addr", ":8090", "Listen address")
	f.String("api-key", "", "Bearer token required on /api routes")
	f.String("db", "", "Database path for translation memory")
	f.Bool("no-cache", false, "Disable translation memory")
	f.StringSlice("services", []string{"openai"}, "Translation services to use (comma-separated)")
	f.String("strategy", "fallback", "How candidates are chosen: fallback or arbiter")
	f.IntP("chunk-size", "n", chunker.DefaultMaxChars, "Default chunk length in characters at which a chunk is closed")
	f.Int("max-retries", 3, "Total attempts per service including the first")
	f.Duration("timeout", 0, "Timeout of a single service call")
	f.Int("history-turns", 2, "Earlier chunks replayed to chat services (0 = stateless)")
	f.String("instructions", "", "Extra instructions for LLM services")
	f.Bool("arbiter", false, "Ask every service and let an LLM arbiter choose")
	f.Bool("refine", false, "Run a refinement pass over each translated chunk")
}
