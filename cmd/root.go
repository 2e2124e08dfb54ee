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
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/valpere/texsplit/internal/config"
)

var version = "0.1.0"

var (
	cfgFile string
	v       = viper.New()
	logger  = slog.New(slog.DiscardHandler)
)

// flagKeys maps command-line flags onto configuration keys. A command binds
// only the flags it names in loadConfig.
var flagKeys = map[string]string{
	"db":                "db",
	"no-cache":          "no_cache",
	"source":            "source",
	"target":            "target",
	"chunk-size":        "chunk_size",
	"services":          "services",
	"strategy":          "strategy",
	"parallel":          "parallel",
	"max-chunks":        "max_chunks",
	"max-retries":       "max_retries",
	"timeout":           "timeout",
	"strict-validation": "strict_validation",
	"skip-validation":   "skip_validation",
	"history-turns":     "history_turns",
	"instructions":      "instructions",
	"strip-comments":    "strip_comments",
	"merge-lines":       "merge_lines",
	"arbiter":           "arbiter.enabled",
	"arbiter-model":     "arbiter.model",
	"refine":            "refiner.enabled",
	"refiner-model":     "refiner.model",
	"ollama-url":        "ollama.url",
	"addr":              "server.addr",
	"api-key":           "server.api_key",
}

var rootCmd = &cobra.Command{
	Use:   "texsplit",
	Short: "Split, translate and reassemble LaTeX documents",
	Long: `texsplit cuts the body of a LaTeX document into chunks at safe boundaries
(paragraph breaks and top-level environments, never inside math, command
arguments or nested environments), translates them, and puts the document
back together so that it still compiles.

Use "texsplit translate --help" for translation options.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := readConfig(); err != nil {
			return err
		}
		level, err := parseLevel(v.GetString("log_level"))
		if err != nil {
			return err
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		return nil
	},
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default $HOME/.texsplit.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn, error")
	v.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))

	config.SetDefaults(v)
}

func readConfig() error {
	if err := config.BindEnv(v); err != nil {
		return err
	}
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil
		}
		v.AddConfigPath(home)
		v.SetConfigName(".texsplit")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) && cfgFile == "" {
			return nil
		}
		return fmt.Errorf("failed to read config: %w", err)
	}
	return nil
}

// loadConfig binds the named flags of cmd and decodes the configuration.
func loadConfig(cmd *cobra.Command, flags ...string) (config.Config, error) {
	for _, name := range flags {
		f := cmd.Flags().Lookup(name)
		if f == nil {
			continue
		}
		if err := bindFlag(f); err != nil {
			return config.Config{}, err
		}
	}
	c, err := config.Load(v)
	if err != nil {
		return config.Config{}, err
	}
	return c, c.Validate()
}

func bindFlag(f *pflag.Flag) error {
	key, ok := flagKeys[f.Name]
	if !ok {
		return fmt.Errorf("flag --%s has no configuration key", f.Name)
	}
	return v.BindPFlag(key, f)
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}
