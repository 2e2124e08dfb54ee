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
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/valpere/texsplit/internal/store"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the chunk translation memory",
	Long: `Inspect and prune the translation memory. Every chunk a run translates
is remembered per language pair, so re-translating an edited paper only
sends the changed chunks to the services.`,
}

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "List remembered chunk translations",
	RunE: storeRunE(func(cmd *cobra.Command, args []string, db *store.Store) error {
		entries, err := db.ListMemory(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list entries: %w", err)
		}
		if len(entries) == 0 {
			fmt.Println("Translation memory is empty.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tLANGS\tHITS\tLAST USED\tSTATE\tCHUNK")
		for _, e := range entries {
			state := "active"
			if e.Invalidated {
				state = "invalid"
			}
			fmt.Fprintf(w, "%s\t%s→%s\t%d\t%s\t%s\t%s\n",
				e.ID, e.SourceLang, e.TargetLang, e.UsageCount,
				e.LastUsed.Format("2006-01-02 15:04"), state, snippet(e.SourceText, 40))
		}
		return w.Flush()
	}),
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show translation memory counters",
	RunE: storeRunE(func(cmd *cobra.Command, args []string, db *store.Store) error {
		st, err := db.Stats(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to get stats: %w", err)
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 1, ' ', 0)
		fmt.Fprintf(w, "Chunks:\t%d\n", st.TotalEntries)
		fmt.Fprintf(w, "  served:\t%d\n", st.ActiveEntries)
		fmt.Fprintf(w, "  invalidated:\t%d\n", st.InvalidEntries)
		fmt.Fprintf(w, "Hits:\t%d\n", st.TotalUsage)
		return w.Flush()
	}),
}

// entryCmd builds a subcommand that applies op to one memory entry.
func entryCmd(use, short, done string, op func(*store.Store, context.Context, string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: storeRunE(func(cmd *cobra.Command, args []string, db *store.Store) error {
			if err := op(db, cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("failed to %s entry %s: %w", use, args[0], err)
			}
			fmt.Printf("%s: %s\n", done, args[0])
			return nil
		}),
	}
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Forget every remembered translation",
	RunE: storeRunE(func(cmd *cobra.Command, args []string, db *store.Store) error {
		n, err := db.ClearMemory(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to clear translation memory: %w", err)
		}
		fmt.Printf("Removed %d entries.\n", n)
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(cacheCmd)

	cacheCmd.PersistentFlags().String("db", "", "Database path (default from config)")

	cacheCmd.AddCommand(
		cacheListCmd,
		cacheStatsCmd,
		entryCmd("delete", "Delete a memory entry by ID", "Deleted",
			(*store.Store).DeleteMemory),
		entryCmd("invalidate", "Stop serving a memory entry without deleting it", "Invalidated",
			(*store.Store).InvalidateMemory),
		cacheClearCmd,
	)
}

// snippet shortens s to at most n runes on one line.
func snippet(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > n {
		return string(r[:n-3]) + "..."
	}
	return s
}
